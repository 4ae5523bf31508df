package detector

import (
	"image"
	"sort"
)

// Detection is one detected object: its class, confidence, bounding box
// and, when a segmenter is configured, a pixel mask matching the frame
// dimensions.
type Detection struct {
	// Label is the class name the object matched.
	Label string `json:"label"`

	// Class is the index of the label in the requested class list.
	Class int `json:"class"`

	// Confidence is the detection score in [0,1].
	Confidence float64 `json:"confidence"`

	// Box is the bounding box in frame pixel coordinates, top-left origin.
	Box image.Rectangle `json:"box"`

	// Center is the midpoint of the bounding box.
	Center image.Point `json:"center"`

	// Mask marks the object's pixels. Nil when no segmenter is configured.
	Mask *Mask `json:"-"`
}

// center returns the midpoint of a rectangle.
func center(r image.Rectangle) image.Point {
	return image.Point{
		X: (r.Min.X + r.Max.X) / 2,
		Y: (r.Min.Y + r.Max.Y) / 2,
	}
}

// sortDetections orders detections by descending confidence. Ties are
// broken by class index (input class order), then by box top edge, then
// by box left edge, so results are deterministic for a given input.
func sortDetections(dets []Detection) {
	sort.SliceStable(dets, func(i, j int) bool {
		if dets[i].Confidence != dets[j].Confidence {
			return dets[i].Confidence > dets[j].Confidence
		}
		if dets[i].Class != dets[j].Class {
			return dets[i].Class < dets[j].Class
		}
		if dets[i].Box.Min.Y != dets[j].Box.Min.Y {
			return dets[i].Box.Min.Y < dets[j].Box.Min.Y
		}
		return dets[i].Box.Min.X < dets[j].Box.Min.X
	})
}
