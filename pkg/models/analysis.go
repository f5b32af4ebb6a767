package models

import (
	"encoding/json"
	"math"
	"time"
)

// Tier is the categorical quality verdict
type Tier string

const (
	TierExcellent Tier = "Excellent"
	TierGood      Tier = "Good"
	TierFair      Tier = "Fair"
	TierPoor      Tier = "Poor"
)

// tierRank orders tiers from best to worst
var tierRank = map[Tier]int{
	TierExcellent: 0,
	TierGood:      1,
	TierFair:      2,
	TierPoor:      3,
}

// Worse reports whether t is a worse verdict than other
func (t Tier) Worse(other Tier) bool {
	return tierRank[t] > tierRank[other]
}

// Valid reports whether t is one of the four defined tiers
func (t Tier) Valid() bool {
	_, ok := tierRank[t]
	return ok
}

// WorstTier returns the weakest of the given verdicts, ignoring empty ones.
// The second return value is false when no verdict was given.
func WorstTier(tiers ...Tier) (Tier, bool) {
	var worst Tier
	found := false
	for _, t := range tiers {
		if !t.Valid() {
			continue
		}
		if !found || t.Worse(worst) {
			worst = t
			found = true
		}
	}
	return worst, found
}

// Artifact is an auxiliary per-pixel map kept for visualisation (SSIM map,
// magnitude spectrum, difference map). It is not serialised.
type Artifact struct {
	Kind   string
	Width  int
	Height int
	Values []float64
}

// Metric is a single scalar score with its optional verdict and artifact.
// Exactly one of Score or Error is meaningful.
type Metric struct {
	Name      string    `json:"name"`
	Score     float64   `json:"score"`
	Tier      Tier      `json:"tier,omitempty"`
	Error     string    `json:"error,omitempty"`
	ErrorType string    `json:"error_type,omitempty"`
	Artifact  *Artifact `json:"-"`
}

// Failed reports whether the metric computation returned an error
func (m Metric) Failed() bool {
	return m.Error != ""
}

// MarshalJSON encodes infinite sentinels (PSNR of identical images) as a null
// score plus an "infinite" flag, since JSON has no representation for Inf.
func (m Metric) MarshalJSON() ([]byte, error) {
	type plain Metric
	out := struct {
		plain
		Score    *float64 `json:"score"`
		Infinite bool     `json:"infinite,omitempty"`
	}{plain: plain(m)}

	switch {
	case m.Failed():
	case math.IsInf(m.Score, 0):
		out.Infinite = true
	default:
		score := m.Score
		out.Score = &score
	}
	return json.Marshal(out)
}

// MetricResult maps metric names to their results
type MetricResult map[string]Metric

// Scores returns the successful scores keyed by metric name
func (r MetricResult) Scores() map[string]float64 {
	out := make(map[string]float64, len(r))
	for name, m := range r {
		if !m.Failed() {
			out[name] = m.Score
		}
	}
	return out
}

// HistogramStats summarises one image's intensity distribution
type HistogramStats struct {
	Bins       int     `json:"bins"`
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
	Skewness   float64 `json:"skewness"`
	ExKurtosis float64 `json:"excess_kurtosis"`
	Entropy    float64 `json:"entropy"`
	// Probabilities is the normalised histogram; omitted from JSON.
	Probabilities []float64 `json:"-"`
}

// HistogramComparison is the tool-to-tool matching result for two images
type HistogramComparison struct {
	A             HistogramStats `json:"a"`
	B             HistogramStats `json:"b"`
	Method        string         `json:"method"`
	Distance      float64        `json:"distance"`
	Correlation   float64        `json:"correlation"`
	MeanShift     float64        `json:"mean_shift"`
	ContrastRatio float64        `json:"contrast_ratio"`
	Tier          Tier           `json:"tier"`
}

// HistogramSection is the histogram part of a report: always the test image
// stats, plus a comparison when a reference was supplied.
type HistogramSection struct {
	Test       *HistogramStats      `json:"test,omitempty"`
	Comparison *HistogramComparison `json:"comparison,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// Verdicts records the per-component categorical verdicts feeding the
// overall tier
type Verdicts struct {
	CNR        Tier `json:"cnr,omitempty"`
	SSIM       Tier `json:"ssim,omitempty"`
	PSNR       Tier `json:"psnr,omitempty"`
	FocusDrift Tier `json:"focus_drift,omitempty"`
	Histogram  Tier `json:"histogram,omitempty"`
}

// All returns the verdicts in a fixed order
func (v Verdicts) All() []Tier {
	return []Tier{v.CNR, v.SSIM, v.PSNR, v.FocusDrift, v.Histogram}
}

// QualityReport is the complete result of assessing one test image,
// optionally against a reference
type QualityReport struct {
	ID                string    `json:"id"`
	Timestamp         time.Time `json:"timestamp"`
	ProcessingTimeSec float64   `json:"processing_time_sec"`
	Width             int       `json:"width"`
	Height            int       `json:"height"`
	HasReference      bool      `json:"has_reference"`

	NoReference   MetricResult     `json:"no_reference"`
	FullReference MetricResult     `json:"full_reference,omitempty"`
	Histogram     HistogramSection `json:"histogram"`

	Verdicts Verdicts `json:"verdicts"`
	Overall  Tier     `json:"overall"`

	// Errors lists "metric: message" for every metric that failed
	Errors []string `json:"errors,omitempty"`
}
