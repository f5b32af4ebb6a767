// Package imaging holds the canonical single-channel sample grid every metric
// consumes, the adapter that produces it from decoded rasters, and the
// convolution helpers shared by the metric and degradation code.
package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"

	apperrors "github.com/anime-shed/sem-inspector-go/internal/errors"
)

// Image is an immutable grid of intensity samples in [0, 1], stored row-major.
type Image struct {
	width  int
	height int
	pix    []float64
}

// New builds an Image from row-major samples. The slice is owned by the
// returned Image afterwards and must not be modified by the caller.
func New(width, height int, samples []float64) (*Image, error) {
	if width < 1 || height < 1 {
		return nil, apperrors.NewInvalidImageError(
			fmt.Sprintf("image must have positive dimensions, got %dx%d", width, height), nil)
	}
	if len(samples) != width*height {
		return nil, apperrors.NewInvalidImageError(
			fmt.Sprintf("expected %d samples for %dx%d image, got %d", width*height, width, height, len(samples)), nil)
	}
	for i, v := range samples {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return nil, apperrors.NewInvalidImageError(
				fmt.Sprintf("sample %d out of range [0,1]: %v", i, v), nil)
		}
	}
	return &Image{width: width, height: height, pix: samples}, nil
}

// Width returns the number of columns
func (m *Image) Width() int { return m.width }

// Height returns the number of rows
func (m *Image) Height() int { return m.height }

// Len returns the number of samples
func (m *Image) Len() int { return len(m.pix) }

// Sample returns the intensity at column x, row y
func (m *Image) Sample(x, y int) float64 {
	return m.pix[y*m.width+x]
}

// Samples exposes the row-major backing slice. It is shared, not copied:
// callers must treat it as read-only.
func (m *Image) Samples() []float64 {
	return m.pix
}

// Clone returns a writable copy of the samples
func (m *Image) Clone() []float64 {
	out := make([]float64, len(m.pix))
	copy(out, m.pix)
	return out
}

// SameShape reports whether two images have identical dimensions
func (m *Image) SameShape(o *Image) bool {
	return m.width == o.width && m.height == o.height
}

// Equal reports whether two images are sample-for-sample identical
func (m *Image) Equal(o *Image) bool {
	if !m.SameShape(o) {
		return false
	}
	for i, v := range m.pix {
		if v != o.pix[i] {
			return false
		}
	}
	return true
}

// ColorModel implements image.Image
func (m *Image) ColorModel() color.Model { return color.Gray16Model }

// Bounds implements image.Image
func (m *Image) Bounds() image.Rectangle { return image.Rect(0, 0, m.width, m.height) }

// At implements image.Image, quantising to 16 bits
func (m *Image) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return color.Gray16{}
	}
	return color.Gray16{Y: uint16(math.Round(m.Sample(x, y) * 65535))}
}

// ToGray16 renders the image as a 16-bit grayscale raster for encoders
func (m *Image) ToGray16() *image.Gray16 {
	out := image.NewGray16(m.Bounds())
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			out.SetGray16(x, y, color.Gray16{Y: uint16(math.Round(m.Sample(x, y) * 65535))})
		}
	}
	return out
}

// Clip saturates v into the valid intensity range
func Clip(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
