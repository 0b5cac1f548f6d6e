// Package assembly turns a template and a parameter binding into priced line
// items. Each line total is rounded once, half-up to cents, and the subtotal is
// the exact sum of those rounded totals.
package assembly

import (
	"fmt"
	"log/slog"
	"maps"

	"github.com/shopspring/decimal"

	"github.com/JaimeStill/foreman/internal/templates"
	"github.com/JaimeStill/foreman/pkg/currency"
)

// Kind identifies the section a line item belongs to.
type Kind string

// Line item kinds.
const (
	KindMaterial  Kind = "material"
	KindLabor     Kind = "labor"
	KindEquipment Kind = "equipment"
)

// LineItem is one priced line. Quantity and UnitPrice are exact; Total is
// rounded to cents.
type LineItem struct {
	Kind        Kind            `json:"kind"`
	Line        string          `json:"line"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// Result is a completed assembly.
type Result struct {
	Items    []LineItem                 `json:"line_items"`
	Subtotal decimal.Decimal            `json:"subtotal"`
	Binding  map[string]string          `json:"binding"`
	Values   map[string]decimal.Decimal `json:"-"`
}

// Assembler evaluates templates against bindings.
type Assembler struct {
	rates  RateTable
	logger *slog.Logger
}

// New creates an Assembler. A nil rates table uses DefaultRates.
func New(rates RateTable, logger *slog.Logger) *Assembler {
	if rates == nil {
		rates = DefaultRates()
	}
	return &Assembler{
		rates:  rates,
		logger: logger.With("system", "assembly"),
	}
}

// Assemble resolves b, evaluates the template's formulas in dependency order,
// then prices materials, labor, and equipment in declaration order. Any failure
// aborts the whole assembly.
func (a *Assembler) Assemble(t *templates.Template, b Binding) (*Result, error) {
	resolved, err := Resolve(t, b)
	if err != nil {
		return nil, err
	}

	vars := maps.Clone(resolved.Values)
	fail := func(line, expr string, err error) error {
		return &AssemblyError{
			TemplateID: t.ID,
			Line:       line,
			Expr:       expr,
			Binding:    resolved.Snapshot,
			Err:        err,
		}
	}

	for _, f := range t.Formulas {
		v, err := f.Expr.Eval(vars)
		if err != nil {
			return nil, fail("formulas."+f.Name, f.Expr.String(), err)
		}
		vars[f.Name] = v
	}

	eval := func(line, field string, amount templates.Amount) (decimal.Decimal, error) {
		v, err := amount.Eval(vars)
		if err != nil {
			return decimal.Zero, fail(line, amount.String(), err)
		}
		if v.IsNegative() {
			return decimal.Zero, fail(line, amount.String(), &InvalidQuantityError{Field: field, Value: v})
		}
		return v, nil
	}

	items := make([]LineItem, 0, len(t.Materials)+len(t.Labor)+len(t.Equipment))

	for i, m := range t.Materials {
		line := fmt.Sprintf("materials[%d]", i)
		qty, err := eval(line, "quantity", m.Quantity)
		if err != nil {
			return nil, err
		}
		price, err := eval(line, "unit_price", m.UnitPrice)
		if err != nil {
			return nil, err
		}
		price = price.Mul(decimal.NewFromInt(1).Add(m.Markup))

		items = append(items, newItem(KindMaterial, line, m.Description, qty, m.Unit, price))
	}

	for i, l := range t.Labor {
		line := fmt.Sprintf("labor[%d]", i)
		hours, err := eval(line, "hours", l.Hours)
		if err != nil {
			return nil, err
		}

		var rate decimal.Decimal
		if l.Rate.IsZero() {
			var known bool
			rate, known = a.rates.Rate(l.SkillLevel)
			if !known {
				a.logger.Warn("unknown skill level, using default rate",
					"template", t.ID, "line", line, "skill_level", l.SkillLevel, "rate", rate)
			}
		} else if rate, err = eval(line, "rate", l.Rate); err != nil {
			return nil, err
		}

		qty := hours.Mul(decimal.NewFromInt(int64(l.CrewSize)))
		items = append(items, newItem(KindLabor, line, l.Description, qty, "hr", rate))
	}

	for i, e := range t.Equipment {
		line := fmt.Sprintf("equipment[%d]", i)
		usage, err := eval(line, "usage", e.Usage)
		if err != nil {
			return nil, err
		}
		rate, err := eval(line, "daily_rate", e.DailyRate)
		if err != nil {
			return nil, err
		}

		items = append(items, newItem(KindEquipment, line, e.Description, usage, e.UsageUnit, rate))
	}

	totals := make([]decimal.Decimal, len(items))
	for i, item := range items {
		totals[i] = item.Total
	}

	return &Result{
		Items:    items,
		Subtotal: currency.Sum(totals...),
		Binding:  resolved.Snapshot,
		Values:   vars,
	}, nil
}

func newItem(kind Kind, line, description string, qty decimal.Decimal, unit string, price decimal.Decimal) LineItem {
	return LineItem{
		Kind:        kind,
		Line:        line,
		Description: description,
		Quantity:    qty,
		Unit:        unit,
		UnitPrice:   price,
		Total:       currency.Round(qty.Mul(price)),
	}
}
