package detector

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Input validation errors, reported before any model call.
var (
	// ErrEmptyFrame is returned when the input frame is nil or empty.
	ErrEmptyFrame = errors.New("frame is nil or empty")

	// ErrBadChannels is returned when the input frame does not have 3 color channels.
	ErrBadChannels = errors.New("frame must have 3 color channels")

	// ErrNoClasses is returned when the class list is empty.
	ErrNoClasses = errors.New("class list is empty")

	// ErrEmptyClass is returned when the class list contains an empty name.
	ErrEmptyClass = errors.New("class name is empty")

	// ErrThresholdRange is returned when the threshold is outside [0,1].
	ErrThresholdRange = errors.New("threshold must be between 0 and 1")
)

// Detector combines an open-vocabulary detection backend with an optional
// promptable segmentation backend. Detect calls are serialized; backends
// own the underlying model state exclusively for the duration of a call.
type Detector struct {
	boxer     Boxer
	segmenter Segmenter
	config    Config
	mu        sync.Mutex
}

// New creates a Detector from the given backends. The boxer is required;
// a nil segmenter yields detections without masks.
func New(boxer Boxer, segmenter Segmenter, config Config) (*Detector, error) {
	if boxer == nil {
		return nil, errors.New("detection backend cannot be nil")
	}
	if config.Threshold == 0 {
		config.Threshold = DefaultConfig().Threshold
	}
	if config.OverlapThreshold == 0 {
		config.OverlapThreshold = DefaultConfig().OverlapThreshold
	}
	return &Detector{
		boxer:     boxer,
		segmenter: segmenter,
		config:    config,
	}, nil
}

// Detect runs detection on a frame for the given class names using the
// configured default threshold.
func (d *Detector) Detect(frame *gocv.Mat, classes []string) ([]Detection, error) {
	return d.DetectWithThreshold(frame, classes, d.config.Threshold)
}

// DetectWithThreshold runs detection on a frame for the given class names,
// keeping only candidates scoring at or above threshold. Near-duplicate
// boxes of the same class are suppressed, keeping the higher confidence.
// When a segmenter is configured, each surviving candidate's box is used
// as a segmentation prompt to produce its mask.
//
// Results are ordered by descending confidence; ties break by class index,
// then box position.
func (d *Detector) DetectWithThreshold(frame *gocv.Mat, classes []string, threshold float64) ([]Detection, error) {
	if frame == nil || frame.Empty() {
		return nil, ErrEmptyFrame
	}
	if frame.Channels() != 3 {
		return nil, ErrBadChannels
	}
	if len(classes) == 0 {
		return nil, ErrNoClasses
	}
	for _, c := range classes {
		if c == "" {
			return nil, ErrEmptyClass
		}
	}
	if threshold < 0 || threshold > 1 {
		return nil, ErrThresholdRange
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	candidates, err := d.boxer.Boxes(frame, classes, threshold)
	if err != nil {
		return nil, fmt.Errorf("detection inference: %w", err)
	}

	kept := candidates[:0:0]
	for _, c := range candidates {
		if c.Confidence >= threshold {
			kept = append(kept, c)
		}
	}
	kept = suppressOverlapping(kept, d.config.OverlapThreshold)

	detections := make([]Detection, 0, len(kept))
	for _, c := range kept {
		det := Detection{
			Label:      c.Label,
			Class:      c.Class,
			Confidence: c.Confidence,
			Box:        c.Box,
			Center:     center(c.Box),
		}
		if d.segmenter != nil {
			mask, err := d.segmenter.Segment(frame, c.Box)
			if err != nil {
				return nil, fmt.Errorf("segmentation inference: %w", err)
			}
			det.Mask = mask
		}
		detections = append(detections, det)
	}

	sortDetections(detections)
	return detections, nil
}

// Close releases both backends. The first error encountered is returned.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.boxer.Close()
	if d.segmenter != nil {
		if serr := d.segmenter.Close(); err == nil {
			err = serr
		}
	}
	return err
}
