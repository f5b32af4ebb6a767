package models

import "encoding/json"

// AssessRequest asks for a quality report of TestURL, optionally against ReferenceURL
type AssessRequest struct {
	ReferenceURL string `json:"reference_url,omitempty"`
	TestURL      string `json:"test_url" binding:"required,url"`
	Resample     bool   `json:"resample,omitempty"`
	// Config optionally overrides metric configuration fields. It is decoded
	// by the analyzer package to avoid an import cycle.
	Config json.RawMessage `json:"config,omitempty"`
}

// MatchRequest asks for a tool-to-tool histogram comparison of two images
type MatchRequest struct {
	AURL     string `json:"a_url" binding:"required,url"`
	BURL     string `json:"b_url" binding:"required,url"`
	Resample bool   `json:"resample,omitempty"`
}

// DegradeRequest asks for a synthetic degradation chain applied to URL.
// Degradations are decoded by the degrade package.
type DegradeRequest struct {
	URL          string            `json:"url" binding:"required,url"`
	Degradations []json.RawMessage `json:"degradations" binding:"required,min=1"`
	Seed         uint64            `json:"seed"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
