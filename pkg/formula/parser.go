package formula

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type parser struct {
	src    string
	tokens []token
	pos    int
	vars   map[string]struct{}
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) fail(t token, msg string) error {
	expr := t.text
	if t.kind == tokEOF {
		expr = strings.TrimSpace(p.src)
	}
	return &Error{
		Source: p.src,
		Expr:   expr,
		Pos:    t.pos,
		Err:    fmt.Errorf("%w: %s", ErrSyntax, msg),
	}
}

// expr := term (('+' | '-') term)*
func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	for {
		t := p.peek()
		if t.kind != tokOp || (t.text != "+" && t.text != "-") {
			return left, nil
		}
		p.next()

		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: t.text[0], left: left, right: right}
	}
}

// term := unary (('*' | '/') unary)*
func (p *parser) parseTerm() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		t := p.peek()
		if t.kind != tokOp || (t.text != "*" && t.text != "/") {
			return left, nil
		}
		p.next()

		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: t.text[0], left: left, right: right}
	}
}

// unary := ('-' | '+') unary | primary
func (p *parser) parseUnary() (node, error) {
	t := p.peek()
	if t.kind == tokOp && (t.text == "-" || t.text == "+") {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{negate: t.text == "-", operand: operand, start: t.pos}, nil
	}
	return p.parsePrimary()
}

// primary := number | ident | '(' expr ')'
func (p *parser) parsePrimary() (node, error) {
	t := p.next()

	switch t.kind {
	case tokNumber:
		text := t.text
		if strings.HasPrefix(text, ".") {
			text = "0" + text
		}
		if strings.HasSuffix(text, ".") {
			text += "0"
		}
		v, err := decimal.NewFromString(text)
		if err != nil {
			return nil, p.fail(t, "malformed number")
		}
		return &numberNode{value: v, start: t.pos, end: t.pos + len(t.text)}, nil

	case tokIdent:
		p.vars[t.text] = struct{}{}
		return &varNode{name: t.text, start: t.pos, end: t.pos + len(t.text)}, nil

	case tokLParen:
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		closing := p.next()
		if closing.kind != tokRParen {
			return nil, p.fail(closing, "expected ')'")
		}
		return &groupNode{inner: inner, start: t.pos, end: closing.pos + 1}, nil

	case tokEOF:
		return nil, p.fail(t, "unexpected end of expression")

	default:
		return nil, p.fail(t, fmt.Sprintf("unexpected %q", t.text))
	}
}
