package imaging

import (
	"fmt"

	apperrors "github.com/anime-shed/sem-inspector-go/internal/errors"
)

// Region is a rectangular region of interest in pixel coordinates
type Region struct {
	X      int `yaml:"x" json:"x"`
	Y      int `yaml:"y" json:"y"`
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// String formats the region as WxH+X+Y
func (r Region) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// Within reports whether the region is non-empty and lies inside a w x h image
func (r Region) Within(w, h int) bool {
	return r.Width > 0 && r.Height > 0 &&
		r.X >= 0 && r.Y >= 0 &&
		r.X+r.Width <= w && r.Y+r.Height <= h
}

// Quadrants returns the four image quadrants: top-left, top-right,
// bottom-left, bottom-right. Odd dimensions give the extra row/column to the
// right and bottom quadrants.
func Quadrants(w, h int) [4]Region {
	hw, hh := w/2, h/2
	return [4]Region{
		{X: 0, Y: 0, Width: hw, Height: hh},
		{X: hw, Y: 0, Width: w - hw, Height: hh},
		{X: 0, Y: hh, Width: hw, Height: h - hh},
		{X: hw, Y: hh, Width: w - hw, Height: h - hh},
	}
}

// Crop copies the samples inside r into a new Image
func (m *Image) Crop(r Region) (*Image, error) {
	if !r.Within(m.width, m.height) {
		return nil, apperrors.NewRegionOutOfBoundsError(
			fmt.Sprintf("region %s exceeds image bounds %dx%d", r, m.width, m.height), nil)
	}
	out := make([]float64, 0, r.Width*r.Height)
	for y := r.Y; y < r.Y+r.Height; y++ {
		row := y * m.width
		out = append(out, m.pix[row+r.X:row+r.X+r.Width]...)
	}
	return &Image{width: r.Width, height: r.Height, pix: out}, nil
}
