package templates

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for template loading and lookup.
var (
	ErrNotFound         = errors.New("template not found")
	ErrDuplicate        = errors.New("template id already loaded from another source")
	ErrMissingKey       = errors.New("missing required key")
	ErrMalformed        = errors.New("malformed definition")
	ErrInvalidParameter = errors.New("invalid parameter declaration")
	ErrInvalidFormula   = errors.New("invalid formula")
	ErrUndeclared       = errors.New("reference to undeclared name")
	ErrCycle            = errors.New("formula cycle")
	ErrUnusedParameter  = errors.New("parameter is never referenced")
	ErrNoLines          = errors.New("template defines no material or labor lines")
	ErrInvalidLine      = errors.New("invalid line definition")
)

// SyntaxError reports a template definition rejected before any generation.
// Path locates the failing element, e.g. "labor[0].hrs_formula".
type SyntaxError struct {
	TemplateID string
	Source     string
	Path       string
	Err        error
}

func (e *SyntaxError) Error() string {
	id := e.TemplateID
	if id == "" {
		id = e.Source
	}
	if id == "" {
		id = "<unnamed>"
	}
	if e.Path == "" {
		return fmt.Sprintf("template %s: %v", id, e.Err)
	}
	return fmt.Sprintf("template %s: %s: %v", id, e.Path, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// MapHTTPStatus maps template errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	var se *SyntaxError
	if errors.As(err, &se) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
