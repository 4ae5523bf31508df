// Package testutil builds synthetic frames for tests. Frames are drawn
// rather than embedded so tests control exactly what the detector and
// motion gate see.
package testutil

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// BlankFrame returns a black BGR frame of the given size.
func BlankFrame(width, height int) *gocv.Mat {
	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	return &mat
}

// Object is a filled rectangle standing in for a detectable thing.
type Object struct {
	Box   image.Rectangle
	Color color.RGBA
}

// SceneFrame returns a frame with the given objects drawn onto it.
func SceneFrame(width, height int, objects ...Object) *gocv.Mat {
	frame := BlankFrame(width, height)
	for _, o := range objects {
		gocv.Rectangle(frame, o.Box, o.Color, -1)
	}
	return frame
}

// MotionSequence returns frames where a white square walks across the
// scene, enough to trip a motion gate between consecutive frames.
func MotionSequence(width, height, steps int) []*gocv.Mat {
	frames := make([]*gocv.Mat, 0, steps)
	side := height / 3
	for i := 0; i < steps; i++ {
		x := (width - side) * i / maxInt(steps-1, 1)
		frames = append(frames, SceneFrame(width, height, Object{
			Box:   image.Rect(x, height/3, x+side, height/3+side),
			Color: color.RGBA{R: 255, G: 255, B: 255},
		}))
	}
	return frames
}

// CloseFrames releases every frame in the slice.
func CloseFrames(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
