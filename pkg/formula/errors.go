package formula

import (
	"errors"
	"fmt"
)

// Sentinel errors wrapped by *Error.
var (
	ErrSyntax         = errors.New("syntax error")
	ErrDivisionByZero = errors.New("division by zero")
	ErrUndefined      = errors.New("undefined variable")
)

// Error reports a parse or evaluation failure. Expr is the offending
// sub-expression exactly as it appears in Source, and Pos is its byte offset.
type Error struct {
	Source string
	Expr   string
	Pos    int
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("formula %q: %v in %q at offset %d", e.Source, e.Err, e.Expr, e.Pos)
}

func (e *Error) Unwrap() error {
	return e.Err
}
