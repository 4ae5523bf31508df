package detector

import (
	"image"

	"github.com/nfnt/resize"
)

// Mask is a boolean pixel grid marking which pixels belong to a detected
// object. Its dimensions always match the frame it was produced from.
type Mask struct {
	width  int
	height int
	pixels []bool
}

// NewMask creates an empty mask with the given dimensions.
func NewMask(width, height int) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Mask{
		width:  width,
		height: height,
		pixels: make([]bool, width*height),
	}
}

// Width returns the mask width in pixels.
func (m *Mask) Width() int { return m.width }

// Height returns the mask height in pixels.
func (m *Mask) Height() int { return m.height }

// At reports whether the pixel at (x, y) belongs to the object.
// Out-of-range coordinates return false.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return false
	}
	return m.pixels[y*m.width+x]
}

// Set marks or clears the pixel at (x, y). Out-of-range coordinates are
// ignored.
func (m *Mask) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return
	}
	m.pixels[y*m.width+x] = v
}

// Area returns the number of object pixels in the mask.
func (m *Mask) Area() int {
	n := 0
	for _, p := range m.pixels {
		if p {
			n++
		}
	}
	return n
}

// Empty reports whether the mask contains no object pixels.
func (m *Mask) Empty() bool {
	for _, p := range m.pixels {
		if p {
			return false
		}
	}
	return true
}

// Bounds returns the tightest rectangle enclosing all object pixels.
// An empty mask yields the zero rectangle.
func (m *Mask) Bounds() image.Rectangle {
	minX, minY := m.width, m.height
	maxX, maxY := -1, -1
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			if !m.pixels[y*m.width+x] {
				continue
			}
			if x < minX {
				minX = x
			}
			if y < minY {
				minY = y
			}
			if x > maxX {
				maxX = x
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < 0 {
		return image.Rectangle{}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// FillRect marks every pixel inside r, clipped to the mask bounds.
func (m *Mask) FillRect(r image.Rectangle) {
	r = r.Intersect(image.Rect(0, 0, m.width, m.height))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m.pixels[y*m.width+x] = true
		}
	}
}

// grayThreshold is the luminance above which an upsampled mask pixel
// counts as part of the object.
const grayThreshold = 128

// MaskFromGray builds a mask of the given dimensions from a grayscale
// model output. Model masks are typically lower resolution than the
// frame, so the image is bilinearly upsampled before thresholding.
func MaskFromGray(img image.Image, width, height int) *Mask {
	b := img.Bounds()
	if b.Dx() != width || b.Dy() != height {
		img = resize.Resize(uint(width), uint(height), img, resize.Bilinear)
		b = img.Bounds()
	}

	m := NewMask(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			// RGBA returns 16-bit channels; average and scale down to 8 bits.
			lum := (r + g + bl) / 3 >> 8
			if lum >= grayThreshold {
				m.pixels[y*width+x] = true
			}
		}
	}
	return m
}
