package assembly

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/JaimeStill/foreman/pkg/formula"
)

// MissingParameterError reports a required parameter absent from a binding.
type MissingParameterError struct {
	TemplateID string
	Name       string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("template %s: missing required parameter %q", e.TemplateID, e.Name)
}

// InvalidParameterError reports a bound value that violates its declaration.
type InvalidParameterError struct {
	TemplateID string
	Name       string
	Value      any
	Reason     string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("template %s: parameter %q = %v: %s", e.TemplateID, e.Name, e.Value, e.Reason)
}

// InvalidQuantityError reports a negative quantity, hours, usage, or price.
type InvalidQuantityError struct {
	Field string
	Value decimal.Decimal
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("%s evaluated to %s, must not be negative", e.Field, e.Value)
}

// AssemblyError aborts an assembly and names the failing line and expression.
// Binding is the resolved binding snapshot.
type AssemblyError struct {
	TemplateID string
	Line       string
	Expr       string
	Binding    map[string]string
	Err        error
}

func (e *AssemblyError) Error() string {
	if e.Expr == "" {
		return fmt.Sprintf("template %s: %s: %v", e.TemplateID, e.Line, e.Err)
	}
	return fmt.Sprintf("template %s: %s: %q: %v", e.TemplateID, e.Line, e.Expr, e.Err)
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}

// MapHTTPStatus maps assembly errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	var (
		missing  *MissingParameterError
		invalid  *InvalidParameterError
		assembly *AssemblyError
		ferr     *formula.Error
	)
	switch {
	case errors.As(err, &missing), errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &assembly), errors.As(err, &ferr):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
