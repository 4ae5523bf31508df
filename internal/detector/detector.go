// Package detector provides open-vocabulary object detection with
// promptable segmentation for the Lookout object spotting system.
package detector

import (
	"image"

	"gocv.io/x/gocv"
)

// Candidate is a raw detection proposal produced by a Boxer, before
// overlap suppression and segmentation.
type Candidate struct {
	// Class is the index of the matched label in the requested class list.
	Class int

	// Label is the matched class name.
	Label string

	// Confidence is the detection score in [0,1].
	Confidence float64

	// Box is the bounding box in frame pixel coordinates, top-left origin.
	Box image.Rectangle
}

// Boxer is an open-vocabulary detection backend. It proposes bounding
// boxes for the given class names on a frame. Backends may use threshold
// to prune proposals early; the Detector filters again regardless.
type Boxer interface {
	Boxes(frame *gocv.Mat, classes []string, threshold float64) ([]Candidate, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Segmenter is a promptable segmentation backend. It produces a pixel
// mask for the object inside the prompt box. The returned mask has the
// same dimensions as the frame.
type Segmenter interface {
	Segment(frame *gocv.Mat, box image.Rectangle) (*Mask, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Config holds configuration options for the Detector.
type Config struct {
	// Threshold is the default confidence cutoff in [0,1] used by Detect.
	Threshold float64

	// OverlapThreshold is the IoU above which two same-class boxes are
	// considered duplicates; the lower-confidence one is dropped.
	OverlapThreshold float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Threshold:        0.1,
		OverlapThreshold: 0.9,
	}
}
