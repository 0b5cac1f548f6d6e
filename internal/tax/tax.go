// Package tax computes sales tax for a subtotal in a jurisdiction.
//
// A jurisdiction is a two-letter state code, optionally followed by an explicit
// local rate: "TX" applies the state's typical combined rate, "TX+0.0125"
// applies the state rate plus a 1.25% local rate.
package tax

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/JaimeStill/foreman/pkg/currency"
)

// Func computes the tax owed on subtotal in jurisdiction.
type Func func(subtotal decimal.Decimal, jurisdiction string) (decimal.Decimal, error)

var (
	ErrInvalidJurisdiction = errors.New("invalid jurisdiction")
	ErrLocalRateOutOfRange = errors.New("local rate outside the state's range")
)

// State describes the rates of one state.
type State struct {
	Exempt   bool
	Rate     decimal.Decimal
	LocalMin decimal.Decimal
	LocalMax decimal.Decimal
	Typical  decimal.Decimal
}

// Rules holds per-state rates plus the fallback for unlisted states.
type Rules struct {
	States              map[string]State
	DefaultRate         decimal.Decimal
	DefaultJurisdiction string
}

// DefaultRules returns the built-in state table.
func DefaultRules() *Rules {
	return &Rules{
		States: map[string]State{
			"OR": {Exempt: true},
			"TX": {
				Rate:     decimal.RequireFromString("0.0625"),
				LocalMin: decimal.Zero,
				LocalMax: decimal.RequireFromString("0.02"),
				Typical:  decimal.RequireFromString("0.0825"),
			},
			"CA": {
				Rate:     decimal.RequireFromString("0.075"),
				LocalMin: decimal.RequireFromString("0.001"),
				LocalMax: decimal.RequireFromString("0.03"),
				Typical:  decimal.RequireFromString("0.0875"),
			},
			"WA": {
				Rate:     decimal.RequireFromString("0.065"),
				LocalMin: decimal.RequireFromString("0.005"),
				LocalMax: decimal.RequireFromString("0.039"),
				Typical:  decimal.RequireFromString("0.092"),
			},
		},
		DefaultRate:         decimal.RequireFromString("0.075"),
		DefaultJurisdiction: "TX",
	}
}

// Rate returns the combined rate for jurisdiction.
func (r *Rules) Rate(jurisdiction string) (decimal.Decimal, error) {
	j := strings.TrimSpace(jurisdiction)
	if j == "" {
		j = r.DefaultJurisdiction
	}

	code, local, hasLocal := strings.Cut(j, "+")
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidJurisdiction, jurisdiction)
	}

	state, known := r.States[code]
	if state.Exempt {
		if hasLocal {
			return decimal.Zero, fmt.Errorf("%w: %s is exempt", ErrLocalRateOutOfRange, code)
		}
		return decimal.Zero, nil
	}

	if !hasLocal {
		if !known {
			return r.DefaultRate, nil
		}
		return state.Typical, nil
	}

	l, err := decimal.NewFromString(strings.TrimSpace(local))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: local rate %q", ErrInvalidJurisdiction, local)
	}
	if !known {
		if l.IsNegative() {
			return decimal.Zero, fmt.Errorf("%w: %s", ErrLocalRateOutOfRange, l)
		}
		return r.DefaultRate.Add(l), nil
	}
	if l.LessThan(state.LocalMin) || l.GreaterThan(state.LocalMax) {
		return decimal.Zero, fmt.Errorf("%w: %s local %s not in [%s, %s]",
			ErrLocalRateOutOfRange, code, l, state.LocalMin, state.LocalMax)
	}
	return state.Rate.Add(l), nil
}

// Compute returns the tax on subtotal, rounded half-up to cents.
func (r *Rules) Compute(subtotal decimal.Decimal, jurisdiction string) (decimal.Decimal, error) {
	rate, err := r.Rate(jurisdiction)
	if err != nil {
		return decimal.Zero, err
	}
	return currency.Round(subtotal.Mul(rate)), nil
}

// Func returns r.Compute as a Func.
func (r *Rules) Func() Func {
	return r.Compute
}
