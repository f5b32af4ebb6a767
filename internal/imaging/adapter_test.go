package imaging

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/anime-shed/sem-inspector-go/internal/errors"
)

func createGray(width, height int, fill func(x, y int) uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: fill(x, y)})
		}
	}
	return img
}

func TestNormalize_Gray(t *testing.T) {
	img := createGray(4, 3, func(x, y int) uint8 { return uint8(x * 60) })

	out, err := Normalize(img)
	require.NoError(t, err)

	assert.Equal(t, 4, out.Width())
	assert.Equal(t, 3, out.Height())
	assert.InDelta(t, 0.0, out.Sample(0, 0), 1e-12)
	assert.InDelta(t, 180.0/255.0, out.Sample(3, 2), 1e-12)
}

func TestNormalize_Gray16(t *testing.T) {
	img := image.NewGray16(image.Rect(0, 0, 2, 2))
	img.SetGray16(1, 1, color.Gray16{Y: 65535})

	out, err := Normalize(img)
	require.NoError(t, err)
	assert.Equal(t, 1.0, out.Sample(1, 1))
	assert.Equal(t, 0.0, out.Sample(0, 0))
}

func TestNormalize_RGBUsesLuma(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{R: 255, G: 0, B: 0, A: 255})

	out, err := Normalize(img)
	require.NoError(t, err)
	assert.InDelta(t, lumaR, out.Sample(0, 0), 1e-9)
}

func TestNormalize_NonZeroOrigin(t *testing.T) {
	full := createGray(10, 10, func(x, y int) uint8 { return uint8(y*10 + x) })
	sub := full.SubImage(image.Rect(5, 5, 8, 7))

	out, err := Normalize(sub)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Width())
	assert.Equal(t, 2, out.Height())
	assert.InDelta(t, 55.0/255.0, out.Sample(0, 0), 1e-12)
}

func TestNormalize_Idempotent(t *testing.T) {
	img := createGray(16, 16, func(x, y int) uint8 { return uint8((x * y) % 256) })

	once, err := Normalize(img)
	require.NoError(t, err)
	twice, err := Normalize(once)
	require.NoError(t, err)

	assert.True(t, once.Equal(twice))
}

func TestNormalize_InvalidInput(t *testing.T) {
	testCases := []struct {
		name string
		img  image.Image
	}{
		{"Nil", nil},
		{"ZeroWidth", image.NewGray(image.Rect(0, 0, 0, 10))},
		{"ZeroHeight", image.NewGray(image.Rect(0, 0, 10, 0))},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize(tc.img)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidImage))
		})
	}
}

func TestNormalizeRaster(t *testing.T) {
	t.Run("SingleChannel16Bit", func(t *testing.T) {
		out, err := NormalizeRaster(Raster{Width: 2, Height: 1, Channels: 1, Data: []float64{0, 65535}, MaxValue: 65535})
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 1}, out.Samples())
	})

	t.Run("ThreeChannelDefaultDepth", func(t *testing.T) {
		out, err := NormalizeRaster(Raster{Width: 1, Height: 1, Channels: 3, Data: []float64{255, 255, 255}})
		require.NoError(t, err)
		assert.InDelta(t, 1.0, out.Sample(0, 0), 1e-12)
	})

	t.Run("IdempotentThroughNormalize", func(t *testing.T) {
		out, err := NormalizeRaster(Raster{Width: 2, Height: 2, Channels: 1, Data: []float64{0, 64, 128, 255}})
		require.NoError(t, err)
		again, err := Normalize(out)
		require.NoError(t, err)
		assert.True(t, out.Equal(again))
	})

	invalid := []struct {
		name   string
		raster Raster
	}{
		{"ZeroArea", Raster{Width: 0, Height: 3, Channels: 1}},
		{"FourChannels", Raster{Width: 1, Height: 1, Channels: 4, Data: []float64{1, 2, 3, 4}}},
		{"ShortData", Raster{Width: 2, Height: 2, Channels: 1, Data: []float64{1, 2, 3}}},
		{"OutOfRange", Raster{Width: 1, Height: 1, Channels: 1, Data: []float64{300}}},
		{"NaN", Raster{Width: 1, Height: 1, Channels: 1, Data: []float64{math.NaN()}}},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NormalizeRaster(tc.raster)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidImage), "got %v", err)
		})
	}
}

func TestNormalizePair_ShapeMismatch(t *testing.T) {
	ref := createGray(100, 100, func(x, y int) uint8 { return 128 })
	test := createGray(200, 200, func(x, y int) uint8 { return 128 })

	_, _, err := NormalizePair(ref, test, PairOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeShapeMismatch))
}

func TestNormalizePair_Resample(t *testing.T) {
	ref := createGray(100, 100, func(x, y int) uint8 { return 128 })
	test := createGray(200, 200, func(x, y int) uint8 { return 128 })

	a, b, err := NormalizePair(ref, test, PairOptions{Resample: true})
	require.NoError(t, err)
	assert.True(t, a.SameShape(b))
	assert.InDelta(t, 128.0/255.0, b.Sample(50, 50), 2.0/255.0)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(2, 2, []float64{0, 0.5, 1, 1.5})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidImage))

	_, err = New(0, 2, nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidImage))

	img, err := New(2, 1, []float64{0, 1})
	require.NoError(t, err)
	assert.Equal(t, color.Gray16{Y: 65535}, img.At(1, 0))
}
