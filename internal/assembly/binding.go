package assembly

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/JaimeStill/foreman/internal/templates"
)

// Binding maps parameter names to concrete values. Numbers may be any Go
// numeric kind, json.Number, decimal.Decimal, or a numeric string. Choice
// parameters take one of their choice keys.
type Binding map[string]any

// Resolved is a binding checked against a template with defaults applied.
type Resolved struct {
	// Values holds the number each parameter contributes to formulas.
	Values map[string]decimal.Decimal
	// Snapshot holds the canonical text of each bound value: choice keys
	// verbatim and numbers in shortest decimal form.
	Snapshot map[string]string
}

// Resolve validates b against the template's parameter declarations. It rejects
// unknown names, missing required values, wrong types, out-of-range numbers,
// unknown choices, and non-finite floats.
func Resolve(t *templates.Template, b Binding) (*Resolved, error) {
	for _, name := range slices.Sorted(maps.Keys(b)) {
		if _, ok := t.Parameters[name]; !ok {
			return nil, &InvalidParameterError{
				TemplateID: t.ID,
				Name:       name,
				Value:      b[name],
				Reason:     "not a declared parameter",
			}
		}
	}

	r := &Resolved{
		Values:   make(map[string]decimal.Decimal, len(t.Parameters)),
		Snapshot: make(map[string]string, len(t.Parameters)),
	}

	for _, name := range t.ParameterNames() {
		p := t.Parameters[name]

		raw, ok := b[name]
		if !ok || raw == nil {
			if p.Required() {
				return nil, &MissingParameterError{TemplateID: t.ID, Name: name}
			}
			raw = *p.Default
		}

		invalid := func(reason string) error {
			return &InvalidParameterError{TemplateID: t.ID, Name: name, Value: raw, Reason: reason}
		}

		if p.Type == templates.ParamChoice {
			key, ok := raw.(string)
			if !ok {
				return nil, invalid("choice value must be a string")
			}
			v, ok := p.Choices[key]
			if !ok {
				return nil, invalid("must be one of " + strings.Join(p.ChoiceKeys(), ", "))
			}
			r.Values[name] = v
			r.Snapshot[name] = key
			continue
		}

		v, err := toDecimal(raw)
		if err != nil {
			return nil, invalid(err.Error())
		}
		if p.Type == templates.ParamInteger && !v.IsInteger() {
			return nil, invalid("must be an integer")
		}
		if p.Min != nil && v.LessThan(*p.Min) {
			return nil, invalid("below minimum " + p.Min.String())
		}
		if p.Max != nil && v.GreaterThan(*p.Max) {
			return nil, invalid("above maximum " + p.Max.String())
		}

		r.Values[name] = v
		r.Snapshot[name] = v.String()
	}

	return r, nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case *decimal.Decimal:
		if n == nil {
			return decimal.Zero, fmt.Errorf("nil number")
		}
		return *n, nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, fmt.Errorf("must be finite")
		}
		return decimal.NewFromFloat(n), nil
	case float32:
		f := float64(n)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero, fmt.Errorf("must be finite")
		}
		return decimal.NewFromFloat32(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int8:
		return decimal.NewFromInt(int64(n)), nil
	case int16:
		return decimal.NewFromInt(int64(n)), nil
	case int32:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case uint:
		return decimal.NewFromUint64(uint64(n)), nil
	case uint8:
		return decimal.NewFromUint64(uint64(n)), nil
	case uint16:
		return decimal.NewFromUint64(uint64(n)), nil
	case uint32:
		return decimal.NewFromUint64(uint64(n)), nil
	case uint64:
		return decimal.NewFromUint64(n), nil
	case json.Number:
		return parseNumber(n.String())
	case string:
		return parseNumber(n)
	default:
		return decimal.Zero, fmt.Errorf("unsupported type %T", v)
	}
}

func parseNumber(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a number")
	}
	return d, nil
}
