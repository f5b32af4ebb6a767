package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anime-shed/sem-inspector-go/internal/config"
	apperrors "github.com/anime-shed/sem-inspector-go/internal/errors"
	"github.com/anime-shed/sem-inspector-go/internal/imaging"
	"github.com/anime-shed/sem-inspector-go/pkg/models"
)

type stubService struct {
	err     error
	lastReq interface{}
}

func (s *stubService) Assess(_ context.Context, req models.AssessRequest) (*models.QualityReport, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.QualityReport{ID: "r-1", Overall: models.TierGood, Width: 4, Height: 2}, nil
}

func (s *stubService) Match(_ context.Context, req models.MatchRequest) (*models.HistogramComparison, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.HistogramComparison{Method: "correlation", Correlation: 1, Tier: models.TierExcellent}, nil
}

func (s *stubService) Degrade(_ context.Context, req models.DegradeRequest) (*imaging.Image, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return imaging.New(4, 2, []float64{0, 0.25, 0.5, 1, 1, 0.5, 0.25, 0})
}

func (s *stubService) ValidateImageURL(string) error { return nil }

type stubStats map[string]interface{}

func (s stubStats) GetMetrics() map[string]interface{} { return s }

func newTestHandler(svc *stubService) http.Handler {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		RequestTimeout:     5 * time.Second,
		MaxRequestBodySize: 1024,
	}
	return NewHandler(svc, stubStats{"images_fetched": 3}, cfg)
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthAndStats(t *testing.T) {
	h := newTestHandler(&stubService{})

	w := do(h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"available"`)

	w = do(h, http.MethodGet, "/stats", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"images_fetched": 3}`, w.Body.String())
}

func TestAssess(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(svc)

	w := do(h, http.MethodPost, "/assess", `{"test_url": "https://example.com/t.png", "resample": true, "config": {"histogram_bins": 64}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report models.QualityReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, "r-1", report.ID)
	assert.Equal(t, models.TierGood, report.Overall)

	req := svc.lastReq.(models.AssessRequest)
	assert.True(t, req.Resample)
	assert.JSONEq(t, `{"histogram_bins": 64}`, string(req.Config))
}

func TestAssess_BadRequests(t *testing.T) {
	h := newTestHandler(&stubService{})

	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed json", `{"test_url":`, http.StatusBadRequest},
		{"missing test url", `{"reference_url": "https://example.com/r.png"}`, http.StatusBadRequest},
		{"not a url", `{"test_url": "not a url"}`, http.StatusBadRequest},
		{"body too large", `{"test_url": "https://example.com/` + strings.Repeat("a", 2048) + `.png"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, http.MethodPost, "/assess", tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())

			var resp models.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, http.StatusText(tt.code), resp.Error)
		})
	}
}

func TestServiceErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"shape mismatch", apperrors.NewShapeMismatchError("reference is 100x100, test is 200x200", nil), http.StatusUnprocessableEntity},
		{"not found", apperrors.NewNotFoundError("image not found", nil), http.StatusNotFound},
		{"network", apperrors.NewNetworkError("fetch failed", nil), http.StatusBadGateway},
		{"timeout", apperrors.NewTimeoutError("too slow", nil), http.StatusGatewayTimeout},
		{"validation", apperrors.NewValidationError("bad config", nil), http.StatusBadRequest},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&stubService{err: tt.err})
			w := do(h, http.MethodPost, "/match", `{"a_url": "https://example.com/a.png", "b_url": "https://example.com/b.png"}`)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}
}

func TestMatch(t *testing.T) {
	h := newTestHandler(&stubService{})

	w := do(h, http.MethodPost, "/match", `{"a_url": "https://example.com/a.png", "b_url": "https://example.com/b.png"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var cmp models.HistogramComparison
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cmp))
	assert.Equal(t, models.TierExcellent, cmp.Tier)
}

func TestDegradeReturnsPNG(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(svc)

	w := do(h, http.MethodPost, "/degrade", `{"url": "https://example.com/a.png", "seed": 42, "degradations": [{"kind": "gaussian_noise", "std_dev": 0.01}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
	assert.Equal(t, 2, img.Bounds().Dy())
	assert.EqualValues(t, 42, svc.lastReq.(models.DegradeRequest).Seed)

	w = do(h, http.MethodPost, "/degrade", `{"url": "https://example.com/a.png", "degradations": []}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
