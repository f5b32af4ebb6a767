package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestConstructors(t *testing.T) {
	testCases := []struct {
		name   string
		err    *AppError
		typ    ErrorType
		status int
	}{
		{"InvalidImage", NewInvalidImageError("empty", nil), ErrorTypeInvalidImage, http.StatusUnprocessableEntity},
		{"ShapeMismatch", NewShapeMismatchError("100x100 vs 200x200", nil), ErrorTypeShapeMismatch, http.StatusUnprocessableEntity},
		{"RegionOutOfBounds", NewRegionOutOfBoundsError("roi", nil), ErrorTypeRegionOutOfBounds, http.StatusUnprocessableEntity},
		{"DegenerateInput", NewDegenerateInputError("flat", nil), ErrorTypeDegenerateInput, http.StatusUnprocessableEntity},
		{"Validation", NewValidationError("bad", nil), ErrorTypeValidation, http.StatusBadRequest},
		{"Network", NewNetworkError("down", nil), ErrorTypeNetwork, http.StatusBadGateway},
		{"Timeout", NewTimeoutError("slow", nil), ErrorTypeTimeout, http.StatusGatewayTimeout},
		{"Internal", NewInternalError("oops", nil), ErrorTypeInternal, http.StatusInternalServerError},
		{"NotFound", NewNotFoundError("missing", nil), ErrorTypeNotFound, http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Type != tc.typ {
				t.Errorf("Expected type %s, got %s", tc.typ, tc.err.Type)
			}
			if GetStatusCode(tc.err) != tc.status {
				t.Errorf("Expected status %d, got %d", tc.status, GetStatusCode(tc.err))
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	plain := NewValidationError("URL cannot be empty", nil)
	if plain.Error() != "validation: URL cannot be empty" {
		t.Errorf("Unexpected message: %s", plain.Error())
	}

	cause := errors.New("connection refused")
	wrapped := NewNetworkError("fetch failed", cause)
	if wrapped.Error() != "network: fetch failed (caused by: connection refused)" {
		t.Errorf("Unexpected message: %s", wrapped.Error())
	}
	if !errors.Is(wrapped, cause) {
		t.Error("Expected Unwrap to expose the cause")
	}
}

func TestIsTypeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("degradation 2: %w", NewValidationError("peak must be > 0", nil))

	if !IsType(err, ErrorTypeValidation) {
		t.Error("Expected wrapped validation error to classify")
	}
	if IsType(err, ErrorTypeNetwork) {
		t.Error("Expected wrapped validation error not to be a network error")
	}
	if TypeOf(err) != ErrorTypeValidation {
		t.Errorf("Expected validation, got %s", TypeOf(err))
	}
	if GetStatusCode(err) != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", GetStatusCode(err))
	}
}

func TestForeignErrors(t *testing.T) {
	err := errors.New("plain")
	if IsType(err, ErrorTypeInternal) {
		t.Error("Expected foreign error not to match any type")
	}
	if TypeOf(err) != ErrorTypeInternal {
		t.Errorf("Expected foreign errors to report internal, got %s", TypeOf(err))
	}
	if GetStatusCode(err) != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", GetStatusCode(err))
	}
	if IsType(nil, ErrorTypeInternal) {
		t.Error("Expected nil not to match")
	}
}
