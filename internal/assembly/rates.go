package assembly

import "github.com/shopspring/decimal"

// DefaultSkill is the rate table key used for unknown skill levels.
const DefaultSkill = "default"

// RateTable maps labor skill levels to hourly rates.
type RateTable map[string]decimal.Decimal

// DefaultRates returns the standard hourly rates by skill level.
func DefaultRates() RateTable {
	return RateTable{
		"maintenance":          decimal.NewFromInt(45),
		"install":              decimal.NewFromInt(65),
		"pruning":              decimal.NewFromInt(75),
		"electrical":           decimal.NewFromInt(85),
		"irrigation_tech":      decimal.NewFromInt(75),
		"certified_applicator": decimal.NewFromInt(70),
		"carpenter":            decimal.NewFromInt(80),
		"arborist":             decimal.NewFromInt(95),
		"equipment_operator":   decimal.NewFromInt(70),
		"design":               decimal.NewFromInt(85),
		"concrete":             decimal.NewFromInt(70),
		"customer_service":     decimal.NewFromInt(50),
		DefaultSkill:           decimal.NewFromInt(65),
	}
}

// Rate returns the hourly rate for skill. Unknown skills fall back to the
// default rate and report known as false.
func (t RateTable) Rate(skill string) (rate decimal.Decimal, known bool) {
	if r, ok := t[skill]; ok {
		return r, true
	}
	return t[DefaultSkill], false
}
