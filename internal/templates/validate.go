package templates

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// validate checks a built template and reorders its formulas topologically.
// It returns the path of the failing element alongside the error.
func validate(t *Template) (string, error) {
	if len(t.Materials) == 0 && len(t.Labor) == 0 {
		return "", ErrNoLines
	}

	for name, p := range t.Parameters {
		if err := validateParameter(p); err != nil {
			return "parameters." + name, err
		}
	}

	formulas := make(map[string]Formula, len(t.Formulas))
	for _, f := range t.Formulas {
		if _, ok := t.Parameters[f.Name]; ok {
			return "formulas." + f.Name, fmt.Errorf("%w: formula %q shadows a parameter", ErrInvalidFormula, f.Name)
		}
		formulas[f.Name] = f
	}

	used := make(map[string]bool)
	resolve := func(a Amount) error {
		for _, v := range a.Variables() {
			_, isParam := t.Parameters[v]
			_, isFormula := formulas[v]
			if !isParam && !isFormula {
				return fmt.Errorf("%w: %q in %s", ErrUndeclared, v, a)
			}
			used[v] = true
		}
		return nil
	}

	for _, f := range t.Formulas {
		if err := resolve(f.Expr); err != nil {
			return "formulas." + f.Name, err
		}
	}
	for i, m := range t.Materials {
		if m.Markup.IsNegative() {
			return fmt.Sprintf("materials[%d].markup", i), fmt.Errorf("%w: markup must not be negative", ErrInvalidLine)
		}
		if err := resolve(m.Quantity); err != nil {
			return fmt.Sprintf("materials[%d].quantity", i), err
		}
		if err := resolve(m.UnitPrice); err != nil {
			return fmt.Sprintf("materials[%d].unit_price", i), err
		}
	}
	for i, l := range t.Labor {
		if l.CrewSize < 1 {
			return fmt.Sprintf("labor[%d].crew_size", i), fmt.Errorf("%w: crew_size must be at least 1", ErrInvalidLine)
		}
		if err := resolve(l.Hours); err != nil {
			return fmt.Sprintf("labor[%d].hours", i), err
		}
		if !l.Rate.IsZero() {
			if err := resolve(l.Rate); err != nil {
				return fmt.Sprintf("labor[%d].rate", i), err
			}
		}
	}
	for i, e := range t.Equipment {
		if err := resolve(e.Usage); err != nil {
			return fmt.Sprintf("equipment[%d].usage", i), err
		}
		if err := resolve(e.DailyRate); err != nil {
			return fmt.Sprintf("equipment[%d].daily_rate", i), err
		}
	}

	order, err := topoSort(t.Formulas, formulas)
	if err != nil {
		return "formulas", err
	}
	t.Formulas = order

	for _, name := range t.ParameterNames() {
		if !used[name] {
			return "parameters." + name, ErrUnusedParameter
		}
	}

	return "", nil
}

func validateParameter(p Parameter) error {
	if p.Min != nil && p.Max != nil && p.Min.GreaterThan(*p.Max) {
		return fmt.Errorf("%w: min %s exceeds max %s", ErrInvalidParameter, p.Min, p.Max)
	}
	if p.Type == ParamChoice && len(p.Choices) == 0 {
		return fmt.Errorf("%w: choice parameter declares no choices", ErrInvalidParameter)
	}
	if p.Default == nil {
		return nil
	}

	def := *p.Default
	if p.Type == ParamChoice {
		if _, ok := p.Choices[def]; !ok {
			return fmt.Errorf("%w: default %q is not one of %s", ErrInvalidParameter, def, strings.Join(p.ChoiceKeys(), ", "))
		}
		return nil
	}

	v, err := decimal.NewFromString(def)
	if err != nil {
		return fmt.Errorf("%w: default %q is not a number", ErrInvalidParameter, def)
	}
	if p.Type == ParamInteger && !v.IsInteger() {
		return fmt.Errorf("%w: default %s is not an integer", ErrInvalidParameter, def)
	}
	if p.Min != nil && v.LessThan(*p.Min) {
		return fmt.Errorf("%w: default %s below min %s", ErrInvalidParameter, def, p.Min)
	}
	if p.Max != nil && v.GreaterThan(*p.Max) {
		return fmt.Errorf("%w: default %s above max %s", ErrInvalidParameter, def, p.Max)
	}
	return nil
}

// topoSort orders formulas so each follows the formulas it references.
// Ties keep declaration order.
func topoSort(declared []Formula, byName map[string]Formula) ([]Formula, error) {
	indegree := make(map[string]int, len(declared))
	dependents := make(map[string][]string, len(declared))

	for _, f := range declared {
		indegree[f.Name] += 0
		for _, v := range f.Expr.Variables() {
			if _, ok := byName[v]; ok {
				indegree[f.Name]++
				dependents[v] = append(dependents[v], f.Name)
			}
		}
	}

	order := make([]Formula, 0, len(declared))
	done := make(map[string]bool, len(declared))
	for len(order) < len(declared) {
		progressed := false
		for _, f := range declared {
			if done[f.Name] || indegree[f.Name] > 0 {
				continue
			}
			done[f.Name] = true
			order = append(order, f)
			for _, d := range dependents[f.Name] {
				indegree[d]--
			}
			progressed = true
		}
		if !progressed {
			return nil, fmt.Errorf("%w: %s", ErrCycle, strings.Join(findCycle(declared, byName, done), " -> "))
		}
	}

	return order, nil
}

// findCycle walks the unresolved formulas and returns one closed cycle path.
func findCycle(declared []Formula, byName map[string]Formula, done map[string]bool) []string {
	var start string
	for _, f := range declared {
		if !done[f.Name] {
			start = f.Name
			break
		}
	}

	var path []string
	seen := make(map[string]int)
	current := start
	for {
		if i, ok := seen[current]; ok {
			return append(slices.Clone(path[i:]), current)
		}
		seen[current] = len(path)
		path = append(path, current)

		next := ""
		for _, v := range byName[current].Expr.Variables() {
			if _, ok := byName[v]; ok && !done[v] {
				next = v
				break
			}
		}
		if next == "" {
			return path
		}
		current = next
	}
}
