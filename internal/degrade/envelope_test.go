package degrade

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/anime-shed/sem-inspector-go/internal/errors"
)

func TestParseEnvelope(t *testing.T) {
	testCases := []struct {
		raw  string
		want Spec
	}{
		{`{"kind": "gaussian_blur", "kernel_size": 5}`, GaussianBlur{KernelSize: 5}},
		{`{"kind": "gaussian_blur", "sigma": 2.5}`, GaussianBlur{Sigma: 2.5}},
		{`{"kind": "stigmation_blur", "major_size": 9, "minor_size": 3, "angle": 45}`, StigmationBlur{MajorSize: 9, MinorSize: 3, Angle: 45}},
		{`{"kind": "poisson_noise", "peak": 30}`, PoissonNoise{Peak: 30}},
		{`{"kind": "gaussian_noise", "std_dev": 0.02}`, GaussianNoise{StdDev: 0.02}},
		{`{"kind": "contrast_shift", "offset": 0.1}`, ContrastShift{Gain: 1, Offset: 0.1}},
		{`{"kind": "contrast_shift", "gain": 0, "offset": 0.5}`, ContrastShift{Gain: 0, Offset: 0.5}},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			spec, err := ParseEnvelope([]byte(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.want, spec)
		})
	}
}

func TestParseEnvelope_Errors(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
	}{
		{"Malformed", `{"kind": `},
		{"MissingKind", `{"peak": 3}`},
		{"UnknownKind", `{"kind": "motion_blur"}`},
		{"InvalidParameters", `{"kind": "poisson_noise", "peak": 0}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseEnvelope([]byte(tc.raw))
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), "got %v", err)
		})
	}
}

func TestParseChain(t *testing.T) {
	specs, err := ParseChain([]json.RawMessage{
		json.RawMessage(`{"kind": "gaussian_blur", "kernel_size": 3}`),
		json.RawMessage(`{"kind": "gaussian_noise", "std_dev": 0.01}`),
	})
	require.NoError(t, err)
	assert.Equal(t, []Spec{GaussianBlur{KernelSize: 3}, GaussianNoise{StdDev: 0.01}}, specs)

	_, err = ParseChain([]json.RawMessage{
		json.RawMessage(`{"kind": "gaussian_blur"}`),
		json.RawMessage(`{"kind": "sharpen"}`),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "degradation 1")
}

func TestEnvelopeFor(t *testing.T) {
	for _, spec := range allSpecs {
		back, err := EnvelopeFor(spec).Spec()
		require.NoError(t, err)
		assert.Equal(t, spec, back)
	}
}
