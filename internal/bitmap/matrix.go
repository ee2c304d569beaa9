package bitmap

import (
	"image"
	"image/color"
)

// DefaultThreshold is the luma cutoff below which a pixel becomes a mark.
const DefaultThreshold = 128

// Matrix is a row-major monochrome raster. true means "deposit mark at
// this position". Width runs along the print direction, Height across
// the tape.
type Matrix struct {
	Width  int
	Height int
	bits   []bool
}

// New returns an all-blank matrix of the given size.
func New(width, height int) *Matrix {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Matrix{
		Width:  width,
		Height: height,
		bits:   make([]bool, width*height),
	}
}

// At reports whether a mark is set at (x, y). Out-of-range positions
// read as blank.
func (m *Matrix) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.bits[y*m.Width+x]
}

// Set writes a mark state at (x, y). Out-of-range positions are ignored.
func (m *Matrix) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.bits[y*m.Width+x] = v
}

// Marks returns the number of set positions.
func (m *Matrix) Marks() int {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

// FromImage thresholds an image into a mark matrix: any pixel whose gray
// value is darker than threshold becomes a mark. The rendering side owns
// polarity, so "dark = mark" holds for both tape color modes.
func FromImage(img image.Image, threshold uint8) *Matrix {
	bounds := img.Bounds()
	m := New(bounds.Dx(), bounds.Dy())
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			c := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			if c.Y < threshold {
				m.Set(x, y, true)
			}
		}
	}
	return m
}
