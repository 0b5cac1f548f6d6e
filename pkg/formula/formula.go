// Package formula evaluates the arithmetic expressions that drive template
// quantities, hours, prices, and rates.
//
// The grammar is intentionally small: the four binary operators, unary sign,
// parentheses, numeric literals, and named variables. Evaluation uses exact
// decimal arithmetic, so identical inputs always produce identical results.
package formula

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// Expression is a parsed formula. It is immutable and safe for concurrent use.
type Expression struct {
	src  string
	root node
	vars []string
}

// Parse compiles src into an Expression. Syntax problems are reported as
// *Error wrapping ErrSyntax.
func Parse(src string) (*Expression, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}

	p := &parser{
		src:    src,
		tokens: tokens,
		vars:   make(map[string]struct{}),
	}

	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if t := p.peek(); t.kind != tokEOF {
		return nil, p.fail(t, fmt.Sprintf("unexpected %q", t.text))
	}

	vars := make([]string, 0, len(p.vars))
	for name := range p.vars {
		vars = append(vars, name)
	}
	slices.Sort(vars)

	return &Expression{src: src, root: root, vars: vars}, nil
}

// Eval parses and evaluates src in a single step.
func Eval(src string, vars map[string]decimal.Decimal) (decimal.Decimal, error) {
	expr, err := Parse(src)
	if err != nil {
		return decimal.Zero, err
	}
	return expr.Eval(vars)
}

// Eval computes the expression against vars. Undefined variables and division
// by zero are reported as *Error naming the failing sub-expression.
func (e *Expression) Eval(vars map[string]decimal.Decimal) (decimal.Decimal, error) {
	return e.root.eval(e.src, vars)
}

// Variables returns the sorted, de-duplicated variable names the expression references.
func (e *Expression) Variables() []string {
	return slices.Clone(e.vars)
}

// String returns the source text of the expression.
func (e *Expression) String() string {
	return e.src
}

// MarshalText encodes the expression as its source text.
func (e *Expression) MarshalText() ([]byte, error) {
	return []byte(e.src), nil
}
