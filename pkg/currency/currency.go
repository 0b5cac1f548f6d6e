// Package currency rounds and formats monetary amounts.
package currency

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the fixed precision for every monetary value.
const Places = 2

// Pattern matches a well-formed dollar amount such as $975.00 or $12,480.50.
var Pattern = regexp.MustCompile(`^-?\$\d{1,3}(?:,\d{3})*\.\d{2}$`)

var half = decimal.NewFromFloat(0.5)

// Round rounds d half-up to two decimal places. Ties move toward positive
// infinity, so 2.345 becomes 2.35 and -2.345 becomes -2.34.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Shift(Places).Add(half).Floor().Shift(-Places)
}

// Sum adds amounts without any intermediate rounding.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Format renders d as US dollars with thousands separators, e.g. $1,234.56.
// The digits come from the decimal itself, so amounts of any size are exact.
func Format(d decimal.Decimal) string {
	r := Round(d)
	whole, cents, _ := strings.Cut(r.Abs().StringFixed(Places), ".")

	var b strings.Builder
	if r.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	b.WriteByte('.')
	b.WriteString(cents)
	return b.String()
}

// Valid reports whether s is a well-formed dollar amount.
func Valid(s string) bool {
	return Pattern.MatchString(s)
}
