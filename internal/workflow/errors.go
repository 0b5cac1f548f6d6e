package workflow

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/foreman/internal/assembly"
	"github.com/JaimeStill/foreman/internal/compliance"
	"github.com/JaimeStill/foreman/internal/generation"
	"github.com/JaimeStill/foreman/internal/tax"
	"github.com/JaimeStill/foreman/internal/templates"
)

// Sentinel errors for workflow operations.
var (
	ErrInvalidState     = errors.New("workflow state is incomplete")
	ErrInvalidRequest   = errors.New("invalid request body")
	ErrValidationFailed = errors.New("document failed validation")
)

// MapHTTPStatus maps workflow errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, tax.ErrInvalidJurisdiction),
		errors.Is(err, tax.ErrLocalRateOutOfRange),
		errors.Is(err, generation.ErrNoTemplate):
		return http.StatusBadRequest
	case errors.Is(err, templates.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, compliance.ErrBlocked), errors.Is(err, ErrValidationFailed):
		return http.StatusUnprocessableEntity
	default:
		return assembly.MapHTTPStatus(err)
	}
}
