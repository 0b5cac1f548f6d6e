package templates

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

var requiredKeys = []string{"template_id", "category", "parameters", "materials", "labor"}

type rawTemplate struct {
	ID          string                  `yaml:"template_id"`
	Category    string                  `yaml:"category"`
	Name        string                  `yaml:"name"`
	Description string                  `yaml:"description"`
	Parameters  map[string]rawParameter `yaml:"parameters"`
	Formulas    yaml.Node               `yaml:"formulas"`
	Materials   []rawMaterial           `yaml:"materials"`
	Labor       []rawLabor              `yaml:"labor"`
	Equipment   []rawEquipment          `yaml:"equipment"`
}

// Optional scalars are yaml.Node values; a zero Kind means the key was absent.
type rawParameter struct {
	Type        string               `yaml:"type"`
	Description string               `yaml:"description"`
	Unit        string               `yaml:"unit"`
	Default     yaml.Node            `yaml:"default"`
	Min         yaml.Node            `yaml:"min"`
	Max         yaml.Node            `yaml:"max"`
	Choices     map[string]yaml.Node `yaml:"choices"`
}

type rawMaterial struct {
	Description  string    `yaml:"description"`
	QtyFormula   yaml.Node `yaml:"qty_formula"`
	Quantity     yaml.Node `yaml:"quantity"`
	UnitPrice    yaml.Node `yaml:"unit_price"`
	PriceFormula yaml.Node `yaml:"price_formula"`
	UnitCost     yaml.Node `yaml:"unit_cost"`
	Markup       yaml.Node `yaml:"markup"`
	Unit         string    `yaml:"unit"`
}

type rawLabor struct {
	Description string    `yaml:"description"`
	Task        string    `yaml:"task"`
	HrsFormula  yaml.Node `yaml:"hrs_formula"`
	Hours       yaml.Node `yaml:"hours"`
	Rate        yaml.Node `yaml:"rate"`
	RateFormula yaml.Node `yaml:"rate_formula"`
	SkillLevel  string    `yaml:"skill_level"`
	CrewSize    *int      `yaml:"crew_size"`
}

type rawEquipment struct {
	Description  string    `yaml:"description"`
	UsageFormula yaml.Node `yaml:"usage_formula"`
	Usage        yaml.Node `yaml:"usage"`
	DailyRate    yaml.Node `yaml:"daily_rate"`
	UsageUnit    string    `yaml:"usage_unit"`
}

// present returns nil for a key that did not appear in the document.
func present(n *yaml.Node) *yaml.Node {
	if n.Kind == 0 {
		return nil
	}
	return n
}

// Parse decodes and validates a YAML or JSON template definition.
// Every failure is a *SyntaxError; no partially valid Template is returned.
func Parse(data []byte) (*Template, error) {
	return parse(data, "")
}

// ParseFile reads and parses the template at path.
func ParseFile(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", path, err)
	}
	return parse(data, path)
}

func parse(data []byte, source string) (*Template, error) {
	fail := func(id, path string, err error) error {
		return &SyntaxError{TemplateID: id, Source: source, Path: path, Err: err}
	}

	var keys map[string]any
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return nil, fail("", "", fmt.Errorf("%w: %v", ErrMalformed, err))
	}
	for _, k := range requiredKeys {
		if _, ok := keys[k]; !ok {
			id, _ := keys["template_id"].(string)
			return nil, fail(id, k, ErrMissingKey)
		}
	}

	var raw rawTemplate
	if err := yaml.Unmarshal(data, &raw); err != nil {
		id, _ := keys["template_id"].(string)
		return nil, fail(id, "", fmt.Errorf("%w: %v", ErrMalformed, err))
	}

	t, path, err := build(&raw)
	if err != nil {
		return nil, fail(raw.ID, path, err)
	}
	if path, err := validate(t); err != nil {
		return nil, fail(t.ID, path, err)
	}

	t.Source = source
	t.Revision = revision(t)
	return t, nil
}

func build(raw *rawTemplate) (*Template, string, error) {
	if strings.TrimSpace(raw.ID) == "" {
		return nil, "template_id", fmt.Errorf("%w: empty", ErrMalformed)
	}
	if strings.TrimSpace(raw.Category) == "" {
		return nil, "category", fmt.Errorf("%w: empty", ErrMalformed)
	}

	t := &Template{
		ID:          raw.ID,
		Category:    raw.Category,
		Name:        raw.Name,
		Description: raw.Description,
		Parameters:  make(map[string]Parameter, len(raw.Parameters)),
		Materials:   make([]Material, 0, len(raw.Materials)),
		Labor:       make([]Labor, 0, len(raw.Labor)),
		Equipment:   make([]Equipment, 0, len(raw.Equipment)),
	}

	for name, rp := range raw.Parameters {
		p, err := buildParameter(name, rp)
		if err != nil {
			return nil, "parameters." + name, err
		}
		t.Parameters[name] = p
	}

	formulas, path, err := buildFormulas(&raw.Formulas)
	if err != nil {
		return nil, path, err
	}
	t.Formulas = formulas

	for i, rm := range raw.Materials {
		m, field, err := buildMaterial(rm)
		if err != nil {
			return nil, fmt.Sprintf("materials[%d]%s", i, field), err
		}
		t.Materials = append(t.Materials, m)
	}

	for i, rl := range raw.Labor {
		l, field, err := buildLabor(rl)
		if err != nil {
			return nil, fmt.Sprintf("labor[%d]%s", i, field), err
		}
		t.Labor = append(t.Labor, l)
	}

	for i, re := range raw.Equipment {
		e, field, err := buildEquipment(re)
		if err != nil {
			return nil, fmt.Sprintf("equipment[%d]%s", i, field), err
		}
		t.Equipment = append(t.Equipment, e)
	}

	return t, "", nil
}

func buildParameter(name string, rp rawParameter) (Parameter, error) {
	p := Parameter{
		Name:        name,
		Type:        ParamType(rp.Type),
		Description: rp.Description,
		Unit:        rp.Unit,
	}

	switch p.Type {
	case ParamNumber, ParamInteger, ParamChoice:
	case "":
		p.Type = ParamNumber
	default:
		return p, fmt.Errorf("%w: unknown type %q", ErrInvalidParameter, rp.Type)
	}

	if v, ok := scalar(present(&rp.Default)); ok {
		p.Default = &v
	}

	var err error
	if p.Min, err = optionalDecimal(present(&rp.Min)); err != nil {
		return p, fmt.Errorf("%w: min: %v", ErrInvalidParameter, err)
	}
	if p.Max, err = optionalDecimal(present(&rp.Max)); err != nil {
		return p, fmt.Errorf("%w: max: %v", ErrInvalidParameter, err)
	}

	if len(rp.Choices) > 0 {
		if p.Type != ParamChoice {
			return p, fmt.Errorf("%w: choices declared on %s parameter", ErrInvalidParameter, p.Type)
		}
		p.Choices = make(map[string]decimal.Decimal, len(rp.Choices))
		for key, node := range rp.Choices {
			v, err := nodeDecimal(&node)
			if err != nil {
				return p, fmt.Errorf("%w: choice %q: %v", ErrInvalidParameter, key, err)
			}
			p.Choices[key] = v
		}
	}

	return p, nil
}

func buildFormulas(node *yaml.Node) ([]Formula, string, error) {
	if node.Kind == 0 || node.Tag == "!!null" {
		return nil, "", nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, "formulas", fmt.Errorf("%w: formulas must be a mapping of name to expression", ErrMalformed)
	}

	formulas := make([]Formula, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		amount, err := amountFrom(node.Content[i+1])
		if err != nil {
			return nil, "formulas." + name, err
		}
		formulas = append(formulas, Formula{Name: name, Expr: amount})
	}
	return formulas, "", nil
}

func buildMaterial(rm rawMaterial) (Material, string, error) {
	m := Material{Description: rm.Description, Unit: rm.Unit, Markup: decimal.Zero}
	unitCost, unitPrice, priceFormula := present(&rm.UnitCost), present(&rm.UnitPrice), present(&rm.PriceFormula)

	qty, field, err := pick(present(&rm.QtyFormula), "qty_formula", present(&rm.Quantity), "quantity")
	if err != nil {
		return m, field, err
	}
	m.Quantity = qty

	switch {
	case unitCost != nil && (unitPrice != nil || priceFormula != nil):
		return m, ".unit_cost", fmt.Errorf("%w: unit_cost conflicts with unit_price", ErrInvalidLine)
	case unitCost != nil:
		price, err := amountFrom(unitCost)
		if err != nil {
			return m, ".unit_cost", err
		}
		m.UnitPrice = price
	default:
		price, field, err := pick(priceFormula, "price_formula", unitPrice, "unit_price")
		if err != nil {
			return m, field, err
		}
		m.UnitPrice = price
	}

	markup, err := optionalDecimal(present(&rm.Markup))
	if err != nil {
		return m, ".markup", fmt.Errorf("%w: %v", ErrInvalidLine, err)
	}
	if markup != nil {
		m.Markup = *markup
	}

	return m, "", nil
}

func buildLabor(rl rawLabor) (Labor, string, error) {
	desc := rl.Description
	if desc == "" {
		desc = rl.Task
	}
	l := Labor{Description: desc, SkillLevel: rl.SkillLevel, CrewSize: 1}

	hours, field, err := pick(present(&rl.HrsFormula), "hrs_formula", present(&rl.Hours), "hours")
	if err != nil {
		return l, field, err
	}
	l.Hours = hours

	rateFormula, rateLiteral := present(&rl.RateFormula), present(&rl.Rate)
	if rateFormula != nil || rateLiteral != nil {
		rate, field, err := pick(rateFormula, "rate_formula", rateLiteral, "rate")
		if err != nil {
			return l, field, err
		}
		l.Rate = rate
	} else if rl.SkillLevel == "" {
		return l, ".rate", fmt.Errorf("%w: rate or skill_level required", ErrInvalidLine)
	}

	if rl.CrewSize != nil {
		l.CrewSize = *rl.CrewSize
	}

	return l, "", nil
}

func buildEquipment(re rawEquipment) (Equipment, string, error) {
	e := Equipment{Description: re.Description, UsageUnit: re.UsageUnit}
	if e.UsageUnit == "" {
		e.UsageUnit = "day"
	}

	usage, field, err := pick(present(&re.UsageFormula), "usage_formula", present(&re.Usage), "usage")
	if err != nil {
		return e, field, err
	}
	e.Usage = usage

	dailyRate := present(&re.DailyRate)
	if dailyRate == nil {
		return e, ".daily_rate", fmt.Errorf("%w: daily_rate required", ErrInvalidLine)
	}
	rate, err := amountFrom(dailyRate)
	if err != nil {
		return e, ".daily_rate", err
	}
	e.DailyRate = rate

	return e, "", nil
}

// pick returns the amount from whichever of the formula or literal keys is present.
func pick(formulaNode *yaml.Node, formulaKey string, literalNode *yaml.Node, literalKey string) (Amount, string, error) {
	switch {
	case formulaNode != nil && literalNode != nil:
		return Amount{}, "." + formulaKey, fmt.Errorf("%w: %s conflicts with %s", ErrInvalidLine, formulaKey, literalKey)
	case formulaNode != nil:
		a, err := amountFrom(formulaNode)
		return a, "." + formulaKey, err
	case literalNode != nil:
		a, err := amountFrom(literalNode)
		return a, "." + literalKey, err
	default:
		return Amount{}, "." + formulaKey, fmt.Errorf("%w: %s or %s required", ErrInvalidLine, formulaKey, literalKey)
	}
}

func amountFrom(node *yaml.Node) (Amount, error) {
	v, ok := scalar(node)
	if !ok {
		return Amount{}, fmt.Errorf("%w: expected a scalar expression", ErrInvalidFormula)
	}
	a, err := NewAmount(v)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %w", ErrInvalidFormula, err)
	}
	return a, nil
}

func scalar(node *yaml.Node) (string, bool) {
	if node == nil || node.Kind != yaml.ScalarNode || node.Tag == "!!null" {
		return "", false
	}
	return node.Value, true
}

func nodeDecimal(node *yaml.Node) (decimal.Decimal, error) {
	v, ok := scalar(node)
	if !ok {
		return decimal.Zero, fmt.Errorf("expected a number")
	}
	return decimal.NewFromString(v)
}

func optionalDecimal(node *yaml.Node) (*decimal.Decimal, error) {
	if _, ok := scalar(node); !ok {
		if node != nil && node.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("expected a number")
		}
		return nil, nil
	}
	v, err := nodeDecimal(node)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// revision digests the canonical JSON form so that reloading an unchanged
// definition yields the same value regardless of source formatting.
func revision(t *Template) string {
	data, _ := json.Marshal(t)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
