package analyzer

import (
	"fmt"
	"math"

	apperrors "github.com/anime-shed/sem-inspector-go/internal/errors"
	"github.com/anime-shed/sem-inspector-go/internal/imaging"
	"github.com/anime-shed/sem-inspector-go/pkg/models"
	"gonum.org/v1/gonum/floats"
)

// SSIM stabilisation constants for a dynamic range of 1
const (
	ssimK1 = 0.01
	ssimK2 = 0.03
	ssimC1 = (ssimK1 * 1) * (ssimK1 * 1)
	ssimC2 = (ssimK2 * 1) * (ssimK2 * 1)
)

// fullReferenceCalculator implements FullReferenceCalculator
type fullReferenceCalculator struct {
	noRef NoReferenceCalculator
}

// NewFullReferenceCalculator creates a full-reference calculator. Comparative
// focus delegates the per-image score to noRef.
func NewFullReferenceCalculator(noRef NoReferenceCalculator) FullReferenceCalculator {
	return &fullReferenceCalculator{noRef: noRef}
}

func requireSameShape(reference, test *imaging.Image) error {
	if !reference.SameShape(test) {
		return apperrors.NewShapeMismatchError(fmt.Sprintf("reference is %dx%d, test is %dx%d",
			reference.Width(), reference.Height(), test.Width(), test.Height()), nil)
	}
	return nil
}

// SSIM computes the Gaussian-windowed structural similarity. The window is
// shrunk to the largest odd size fitting the image. The score is the mean of
// the similarity map, which is returned as the artifact.
func (fc *fullReferenceCalculator) SSIM(reference, test *imaging.Image, window int, sigma float64) (float64, *models.Artifact, error) {
	if err := requireSameShape(reference, test); err != nil {
		return 0, nil, err
	}
	w, h := reference.Width(), reference.Height()
	n := w * h

	if reference.Equal(test) {
		ones := make([]float64, n)
		for i := range ones {
			ones[i] = 1
		}
		return 1, &models.Artifact{Kind: "ssim_map", Width: w, Height: h, Values: ones}, nil
	}

	window = min(window, w, h)
	if window%2 == 0 {
		window--
	}
	k := imaging.GaussianKernel(window, sigma)
	blur := func(src []float64) []float64 {
		return imaging.ConvolveSeparable(src, w, h, k, k)
	}

	x, y := reference.Samples(), test.Samples()
	xx := make([]float64, n)
	yy := make([]float64, n)
	xy := make([]float64, n)
	for i := range x {
		xx[i] = x[i] * x[i]
		yy[i] = y[i] * y[i]
		xy[i] = x[i] * y[i]
	}

	muX, muY := blur(x), blur(y)
	sXX, sYY, sXY := blur(xx), blur(yy), blur(xy)

	ssimMap := make([]float64, n)
	for i := range ssimMap {
		mx, my := muX[i], muY[i]
		mxy := float64(mx * my)
		mx2 := float64(mx * mx)
		my2 := float64(my * my)
		varX := sXX[i] - mx2
		varY := sYY[i] - my2
		cov := sXY[i] - mxy

		num := float64((2*mxy + ssimC1) * (2*cov + ssimC2))
		den := float64((mx2 + my2 + ssimC1) * (varX + varY + ssimC2))
		ssimMap[i] = num / den
	}

	score := floats.Sum(ssimMap) / float64(n)
	return score, &models.Artifact{Kind: "ssim_map", Width: w, Height: h, Values: ssimMap}, nil
}

// PSNR returns 10*log10(1/MSE) in dB for a peak value of 1. Identical images
// give +Inf. The artifact is the absolute difference map.
func (fc *fullReferenceCalculator) PSNR(reference, test *imaging.Image) (float64, *models.Artifact, error) {
	if err := requireSameShape(reference, test); err != nil {
		return 0, nil, err
	}
	x, y := reference.Samples(), test.Samples()
	diff := make([]float64, len(x))
	var sse float64
	for i := range x {
		d := x[i] - y[i]
		diff[i] = math.Abs(d)
		sse += d * d
	}
	artifact := &models.Artifact{Kind: "difference_map", Width: reference.Width(), Height: reference.Height(), Values: diff}

	mse := sse / float64(len(x))
	if mse == 0 {
		return math.Inf(1), artifact, nil
	}
	return 10 * math.Log10(1/mse), artifact, nil
}

// FocusComparison scores both images with normalized variance over the same
// region. A zero reference score leaves the ratio undefined and returns a
// DegenerateInputError alongside the populated delta.
func (fc *fullReferenceCalculator) FocusComparison(reference, test *imaging.Image, roi *imaging.Region) (FocusComparison, error) {
	if err := requireSameShape(reference, test); err != nil {
		return FocusComparison{}, err
	}
	ref, err := fc.noRef.NormalizedVariance(reference, roi)
	if err != nil {
		return FocusComparison{}, err
	}
	tst, err := fc.noRef.NormalizedVariance(test, roi)
	if err != nil {
		return FocusComparison{}, err
	}

	fcmp := FocusComparison{Reference: ref, Test: tst, Delta: tst - ref}
	if ref == 0 {
		fcmp.Ratio = math.NaN()
		return fcmp, apperrors.NewDegenerateInputError("reference focus score is zero", nil)
	}
	fcmp.Ratio = tst / ref
	return fcmp, nil
}
