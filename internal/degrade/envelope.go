package degrade

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/anime-shed/sem-inspector-go/internal/errors"
)

// Envelope is the flat JSON/YAML form of a Spec, discriminated by Kind.
// Fields not used by the kind are ignored.
type Envelope struct {
	Kind string `json:"kind" yaml:"kind"`

	// gaussian_blur
	KernelSize int     `json:"kernel_size,omitempty" yaml:"kernel_size,omitempty"`
	Sigma      float64 `json:"sigma,omitempty" yaml:"sigma,omitempty"`

	// stigmation_blur
	MajorSize int     `json:"major_size,omitempty" yaml:"major_size,omitempty"`
	MinorSize int     `json:"minor_size,omitempty" yaml:"minor_size,omitempty"`
	Angle     float64 `json:"angle,omitempty" yaml:"angle,omitempty"`

	// poisson_noise
	Peak float64 `json:"peak,omitempty" yaml:"peak,omitempty"`

	// gaussian_noise
	StdDev float64 `json:"std_dev,omitempty" yaml:"std_dev,omitempty"`

	// contrast_shift; a missing gain means 1
	Gain   *float64 `json:"gain,omitempty" yaml:"gain,omitempty"`
	Offset float64  `json:"offset,omitempty" yaml:"offset,omitempty"`
}

// Spec converts the envelope to its concrete, validated Spec
func (e Envelope) Spec() (Spec, error) {
	var spec Spec
	switch e.Kind {
	case KindGaussianBlur:
		spec = GaussianBlur{KernelSize: e.KernelSize, Sigma: e.Sigma}
	case KindStigmationBlur:
		spec = StigmationBlur{MajorSize: e.MajorSize, MinorSize: e.MinorSize, Angle: e.Angle}
	case KindPoissonNoise:
		spec = PoissonNoise{Peak: e.Peak}
	case KindGaussianNoise:
		spec = GaussianNoise{StdDev: e.StdDev}
	case KindContrastShift:
		gain := 1.0
		if e.Gain != nil {
			gain = *e.Gain
		}
		spec = ContrastShift{Gain: gain, Offset: e.Offset}
	case "":
		return nil, apperrors.NewValidationError("degradation kind is required", nil)
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown degradation kind %q", e.Kind), nil)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// ParseEnvelope decodes one JSON envelope into a Spec
func ParseEnvelope(raw []byte) (Spec, error) {
	var e Envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, apperrors.NewValidationError("invalid degradation", err)
	}
	return e.Spec()
}

// ParseChain decodes a list of JSON envelopes in order
func ParseChain(raws []json.RawMessage) ([]Spec, error) {
	specs := make([]Spec, 0, len(raws))
	for i, raw := range raws {
		spec, err := ParseEnvelope(raw)
		if err != nil {
			return nil, fmt.Errorf("degradation %d: %w", i, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// EnvelopeFor converts a Spec back to its envelope form
func EnvelopeFor(spec Spec) Envelope {
	switch s := spec.(type) {
	case GaussianBlur:
		return Envelope{Kind: s.Kind(), KernelSize: s.KernelSize, Sigma: s.Sigma}
	case StigmationBlur:
		return Envelope{Kind: s.Kind(), MajorSize: s.MajorSize, MinorSize: s.MinorSize, Angle: s.Angle}
	case PoissonNoise:
		return Envelope{Kind: s.Kind(), Peak: s.Peak}
	case GaussianNoise:
		return Envelope{Kind: s.Kind(), StdDev: s.StdDev}
	case ContrastShift:
		gain := s.Gain
		return Envelope{Kind: s.Kind(), Gain: &gain, Offset: s.Offset}
	}
	return Envelope{}
}
