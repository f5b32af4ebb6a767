package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/nfnt/resize"

	apperrors "github.com/anime-shed/sem-inspector-go/internal/errors"
)

// BT.601 luma weights
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// Raster is a decoded numeric sample buffer supplied by an external loader.
// Data is row-major and channel-interleaved.
type Raster struct {
	Width    int
	Height   int
	Channels int
	Data     []float64
	// MaxValue is the full-scale sample value for the bit depth (255 for
	// 8-bit, 65535 for 16-bit, 1 for already-normalised floats). Zero means 255.
	MaxValue float64
}

// PairOptions controls two-image normalisation
type PairOptions struct {
	// Resample allows the second image to be resized to the first image's
	// dimensions instead of failing with a shape mismatch.
	Resample bool
}

// Normalize converts a decoded raster into the canonical single-channel Image.
// An *Image is returned unchanged.
func Normalize(img image.Image) (*Image, error) {
	if img == nil {
		return nil, apperrors.NewInvalidImageError("image is nil", nil)
	}
	if m, ok := img.(*Image); ok {
		return m, nil
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, apperrors.NewInvalidImageError(
			fmt.Sprintf("image has zero area (%dx%d)", width, height), nil)
	}

	pix := make([]float64, 0, width*height)
	switch src := img.(type) {
	case *image.Gray:
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				pix = append(pix, float64(src.GrayAt(x, y).Y)/255.0)
			}
		}
	case *image.Gray16:
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				pix = append(pix, float64(src.Gray16At(x, y).Y)/65535.0)
			}
		}
	default:
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				r, g, b, _ := img.At(x, y).RGBA()
				v := (lumaR*float64(r) + lumaG*float64(g) + lumaB*float64(b)) / 65535.0
				pix = append(pix, Clip(v))
			}
		}
	}

	return &Image{width: width, height: height, pix: pix}, nil
}

// NormalizeRaster converts a 1- or 3-channel numeric buffer into an Image
func NormalizeRaster(r Raster) (*Image, error) {
	if r.Width <= 0 || r.Height <= 0 {
		return nil, apperrors.NewInvalidImageError(
			fmt.Sprintf("raster has zero area (%dx%d)", r.Width, r.Height), nil)
	}
	if r.Channels != 1 && r.Channels != 3 {
		return nil, apperrors.NewInvalidImageError(
			fmt.Sprintf("unsupported channel count %d (want 1 or 3)", r.Channels), nil)
	}
	if len(r.Data) != r.Width*r.Height*r.Channels {
		return nil, apperrors.NewInvalidImageError(
			fmt.Sprintf("raster holds %d samples, want %d", len(r.Data), r.Width*r.Height*r.Channels), nil)
	}
	maxValue := r.MaxValue
	if maxValue == 0 {
		maxValue = 255
	}
	if maxValue < 0 || math.IsInf(maxValue, 0) || math.IsNaN(maxValue) {
		return nil, apperrors.NewInvalidImageError(fmt.Sprintf("invalid raster max value %v", r.MaxValue), nil)
	}

	for i, v := range r.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > maxValue {
			return nil, apperrors.NewInvalidImageError(
				fmt.Sprintf("raster sample %d out of range [0,%v]: %v", i, maxValue, v), nil)
		}
	}

	pix := make([]float64, r.Width*r.Height)
	if r.Channels == 1 {
		for i, v := range r.Data {
			pix[i] = v / maxValue
		}
	} else {
		for i := range pix {
			c := r.Data[i*3 : i*3+3]
			pix[i] = Clip((lumaR*c[0] + lumaG*c[1] + lumaB*c[2]) / maxValue)
		}
	}
	return &Image{width: r.Width, height: r.Height, pix: pix}, nil
}

// NormalizePair normalises a reference/test pair and enforces matching shapes.
// With opts.Resample the second image is resized to the first one's size.
func NormalizePair(a, b image.Image, opts PairOptions) (*Image, *Image, error) {
	first, err := Normalize(a)
	if err != nil {
		return nil, nil, err
	}
	second, err := Normalize(b)
	if err != nil {
		return nil, nil, err
	}
	if first.SameShape(second) {
		return first, second, nil
	}
	if !opts.Resample {
		return nil, nil, apperrors.NewShapeMismatchError(
			fmt.Sprintf("image dimensions differ: %dx%d vs %dx%d",
				first.width, first.height, second.width, second.height), nil)
	}

	resized, err := Normalize(resize.Resize(uint(first.width), uint(first.height), second, resize.Lanczos3))
	if err != nil {
		return nil, nil, err
	}
	return first, resized, nil
}
