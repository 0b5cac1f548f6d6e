// Package templates loads, validates, and caches the declarative templates
// that drive document generation. A Template is immutable once loaded.
package templates

import (
	"encoding/json"
	"maps"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/JaimeStill/foreman/pkg/formula"
)

// ParamType identifies how a bound parameter value is interpreted.
type ParamType string

// Parameter types.
const (
	ParamNumber  ParamType = "number"
	ParamInteger ParamType = "integer"
	ParamChoice  ParamType = "choice"
)

// Parameter declares one input of a template. A parameter without a Default is required.
// Choice parameters bind one of the Choices keys; formulas see the mapped number.
type Parameter struct {
	Name        string                     `json:"name"`
	Type        ParamType                  `json:"type"`
	Description string                     `json:"description,omitempty"`
	Unit        string                     `json:"unit,omitempty"`
	Default     *string                    `json:"default,omitempty"`
	Min         *decimal.Decimal           `json:"min,omitempty"`
	Max         *decimal.Decimal           `json:"max,omitempty"`
	Choices     map[string]decimal.Decimal `json:"choices,omitempty"`
}

// Required reports whether the parameter must be bound explicitly.
func (p Parameter) Required() bool {
	return p.Default == nil
}

// ChoiceKeys returns the sorted choice keys of a choice parameter.
func (p Parameter) ChoiceKeys() []string {
	return slices.Sorted(maps.Keys(p.Choices))
}

// Amount is a quantity, price, or rate given as a formula. A literal such as
// "65" is a formula without variables.
type Amount struct {
	expr *formula.Expression
}

// NewAmount parses src into an Amount.
func NewAmount(src string) (Amount, error) {
	expr, err := formula.Parse(src)
	if err != nil {
		return Amount{}, err
	}
	return Amount{expr: expr}, nil
}

// Eval evaluates the amount against the given variables.
func (a Amount) Eval(vars map[string]decimal.Decimal) (decimal.Decimal, error) {
	return a.expr.Eval(vars)
}

// Variables returns the names the amount references.
func (a Amount) Variables() []string {
	if a.expr == nil {
		return nil
	}
	return a.expr.Variables()
}

// IsLiteral reports whether the amount references no variables.
func (a Amount) IsLiteral() bool {
	return len(a.Variables()) == 0
}

// IsZero reports whether the amount was never set.
func (a Amount) IsZero() bool {
	return a.expr == nil
}

func (a Amount) String() string {
	if a.expr == nil {
		return ""
	}
	return a.expr.String()
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// Formula is a named intermediate value computed before any line item.
type Formula struct {
	Name string `json:"name"`
	Expr Amount `json:"expr"`
}

// Material is a priced material line. Its unit price is UnitPrice * (1 + Markup).
type Material struct {
	Description string          `json:"description"`
	Quantity    Amount          `json:"quantity"`
	UnitPrice   Amount          `json:"unit_price"`
	Markup      decimal.Decimal `json:"markup"`
	Unit        string          `json:"unit,omitempty"`
}

// Labor is a labor line billed at hours * crew size * rate. When Rate is unset
// the rate comes from SkillLevel.
type Labor struct {
	Description string `json:"description"`
	Hours       Amount `json:"hours"`
	Rate        Amount `json:"rate,omitzero"`
	SkillLevel  string `json:"skill_level,omitempty"`
	CrewSize    int    `json:"crew_size"`
}

// Equipment is an equipment rental line billed at usage * daily rate.
type Equipment struct {
	Description string `json:"description"`
	Usage       Amount `json:"usage"`
	DailyRate   Amount `json:"daily_rate"`
	UsageUnit   string `json:"usage_unit"`
}

// Template is an immutable, validated template definition.
// Formulas are stored in evaluation (topological) order.
type Template struct {
	ID          string               `json:"template_id"`
	Category    string               `json:"category"`
	Name        string               `json:"name,omitempty"`
	Description string               `json:"description,omitempty"`
	Parameters  map[string]Parameter `json:"parameters"`
	Formulas    []Formula            `json:"formulas,omitempty"`
	Materials   []Material           `json:"materials"`
	Labor       []Labor              `json:"labor"`
	Equipment   []Equipment          `json:"equipment,omitempty"`
	Revision    string               `json:"revision"`
	Source      string               `json:"-"`
}

// ParameterNames returns the sorted declared parameter names.
func (t *Template) ParameterNames() []string {
	return slices.Sorted(maps.Keys(t.Parameters))
}

// Summary is the list view of a template.
type Summary struct {
	ID          string `json:"template_id"`
	Category    string `json:"category"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Revision    string `json:"revision"`
	Lines       int    `json:"lines"`
}

// Summary returns the list view of t.
func (t *Template) Summary() Summary {
	return Summary{
		ID:          t.ID,
		Category:    t.Category,
		Name:        t.Name,
		Description: t.Description,
		Revision:    t.Revision,
		Lines:       len(t.Materials) + len(t.Labor) + len(t.Equipment),
	}
}
