package detector

import (
	"image"

	"gocv.io/x/gocv"
)

// MockBoxer is a test implementation of the Boxer interface. It allows
// tests to control the candidates returned by detection.
type MockBoxer struct {
	candidates []Candidate
	err        error
	calls      int
}

// NewMockBoxer creates a new MockBoxer instance.
func NewMockBoxer() *MockBoxer {
	return &MockBoxer{}
}

// SetCandidates sets the candidates that will be returned by Boxes.
func (m *MockBoxer) SetCandidates(candidates []Candidate) {
	m.candidates = candidates
}

// SetError sets the error that will be returned by Boxes.
func (m *MockBoxer) SetError(err error) {
	m.err = err
}

// Calls returns how many times Boxes has been invoked.
func (m *MockBoxer) Calls() int {
	return m.calls
}

// Boxes returns the pre-configured candidates or error.
func (m *MockBoxer) Boxes(frame *gocv.Mat, classes []string, threshold float64) ([]Candidate, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.candidates, nil
}

// Close is a no-op for the mock boxer.
func (m *MockBoxer) Close() error {
	return nil
}

// MockSegmenter is a test implementation of the Segmenter interface.
// By default it returns a frame-sized mask with the prompt box filled,
// which is what a well-behaved segmenter produces for a boxy object.
type MockSegmenter struct {
	mask *Mask
	err  error
}

// NewMockSegmenter creates a new MockSegmenter instance.
func NewMockSegmenter() *MockSegmenter {
	return &MockSegmenter{}
}

// SetMask sets a fixed mask to return instead of the default box fill.
func (m *MockSegmenter) SetMask(mask *Mask) {
	m.mask = mask
}

// SetError sets the error that will be returned by Segment.
func (m *MockSegmenter) SetError(err error) {
	m.err = err
}

// Segment returns the configured mask or a frame-sized mask covering the
// prompt box.
func (m *MockSegmenter) Segment(frame *gocv.Mat, box image.Rectangle) (*Mask, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.mask != nil {
		return m.mask, nil
	}
	mask := NewMask(frame.Cols(), frame.Rows())
	mask.FillRect(box)
	return mask, nil
}

// Close is a no-op for the mock segmenter.
func (m *MockSegmenter) Close() error {
	return nil
}
