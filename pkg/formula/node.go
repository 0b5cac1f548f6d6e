package formula

import (
	"github.com/shopspring/decimal"
)

// divisionPrecision bounds the scale of quotients so that evaluation is
// deterministic regardless of the package-level decimal settings.
const divisionPrecision = 16

type node interface {
	eval(src string, vars map[string]decimal.Decimal) (decimal.Decimal, error)
	span() (int, int)
}

type numberNode struct {
	value      decimal.Decimal
	start, end int
}

func (n *numberNode) eval(string, map[string]decimal.Decimal) (decimal.Decimal, error) {
	return n.value, nil
}

func (n *numberNode) span() (int, int) { return n.start, n.end }

type varNode struct {
	name       string
	start, end int
}

func (n *varNode) eval(src string, vars map[string]decimal.Decimal) (decimal.Decimal, error) {
	v, ok := vars[n.name]
	if !ok {
		return decimal.Zero, &Error{Source: src, Expr: n.name, Pos: n.start, Err: ErrUndefined}
	}
	return v, nil
}

func (n *varNode) span() (int, int) { return n.start, n.end }

type groupNode struct {
	inner      node
	start, end int
}

func (n *groupNode) eval(src string, vars map[string]decimal.Decimal) (decimal.Decimal, error) {
	return n.inner.eval(src, vars)
}

func (n *groupNode) span() (int, int) { return n.start, n.end }

type unaryNode struct {
	negate  bool
	operand node
	start   int
}

func (n *unaryNode) eval(src string, vars map[string]decimal.Decimal) (decimal.Decimal, error) {
	v, err := n.operand.eval(src, vars)
	if err != nil {
		return decimal.Zero, err
	}
	if n.negate {
		return v.Neg(), nil
	}
	return v, nil
}

func (n *unaryNode) span() (int, int) {
	_, end := n.operand.span()
	return n.start, end
}

type binaryNode struct {
	op          byte
	left, right node
}

func (n *binaryNode) eval(src string, vars map[string]decimal.Decimal) (decimal.Decimal, error) {
	l, err := n.left.eval(src, vars)
	if err != nil {
		return decimal.Zero, err
	}
	r, err := n.right.eval(src, vars)
	if err != nil {
		return decimal.Zero, err
	}

	switch n.op {
	case '+':
		return l.Add(r), nil
	case '-':
		return l.Sub(r), nil
	case '*':
		return l.Mul(r), nil
	default:
		if r.IsZero() {
			start, end := n.span()
			return decimal.Zero, &Error{
				Source: src,
				Expr:   src[start:end],
				Pos:    start,
				Err:    ErrDivisionByZero,
			}
		}
		return l.DivRound(r, divisionPrecision), nil
	}
}

func (n *binaryNode) span() (int, int) {
	start, _ := n.left.span()
	_, end := n.right.span()
	return start, end
}
