package degrade

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"

	apperrors "github.com/anime-shed/sem-inspector-go/internal/errors"
	"github.com/anime-shed/sem-inspector-go/internal/imaging"
	"github.com/anime-shed/sem-inspector-go/internal/logger"
)

// Generator applies synthetic degradations. It holds no state; every call
// draws from a fresh source seeded with the caller's seed, so the same image,
// spec and seed always produce bit-identical output.
type Generator struct{}

// NewGenerator creates a degradation generator
func NewGenerator() *Generator {
	return &Generator{}
}

// Apply returns a degraded copy of img clipped to [0, 1]
func (g *Generator) Apply(img *imaging.Image, spec Spec, seed uint64) (*imaging.Image, error) {
	if img == nil {
		return nil, apperrors.NewInvalidImageError("image is required", nil)
	}
	if spec == nil {
		return nil, apperrors.NewValidationError("degradation spec is required", nil)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	out := spec.apply(img, rand.NewSource(seed))
	for i, v := range out {
		out[i] = imaging.Clip(v)
	}
	degraded, err := imaging.New(img.Width(), img.Height(), out)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("%s produced an invalid image", spec.Kind()), err)
	}

	logger.WithFields(logrus.Fields{
		"kind":     spec.Kind(),
		"seed":     seed,
		"width":    img.Width(),
		"height":   img.Height(),
		"duration": time.Since(start).String(),
	}).Debug("Applied degradation")
	return degraded, nil
}

// ApplyChain applies specs in order, seeding step i with seed+i
func (g *Generator) ApplyChain(img *imaging.Image, specs []Spec, seed uint64) (*imaging.Image, error) {
	if img == nil {
		return nil, apperrors.NewInvalidImageError("image is required", nil)
	}
	for i, spec := range specs {
		if spec == nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("degradation %d is empty", i), nil)
		}
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("degradation %d: %w", i, err)
		}
	}

	current := img
	for i, spec := range specs {
		next, err := g.Apply(current, spec, seed+uint64(i))
		if err != nil {
			return nil, fmt.Errorf("degradation %d: %w", i, err)
		}
		current = next
	}
	return current, nil
}
