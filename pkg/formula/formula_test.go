package formula_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/JaimeStill/foreman/pkg/formula"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestEval(t *testing.T) {
	vars := map[string]decimal.Decimal{
		"zones":       d("2"),
		"trench_feet": d("150"),
		"soil":        d("1.3"),
		"x":           d("3"),
	}

	tests := []struct {
		name string
		expr string
		want string
	}{
		{"literal", "42", "42"},
		{"leading dot", ".5", "0.5"},
		{"trailing dot", "5.", "5"},
		{"variable", "zones", "2"},
		{"precedence", "2 + 3 * 4", "14"},
		{"parentheses", "(2 + 3) * 4", "20"},
		{"left associative subtraction", "10 - 4 - 3", "3"},
		{"left associative division", "100 / 10 / 5", "2"},
		{"unary minus", "-x + 2", "-1"},
		{"unary in product", "2 * -3", "-6"},
		{"double negation", "--x", "3"},
		{"hours formula", "trench_feet * 0.1", "15"},
		{"soil modifier", "trench_feet * 0.1 * soil", "19.5"},
		{"fractional division", "10 / 4", "2.5"},
		{"repeating division", "1 / 3", "0.3333333333333333"},
		{"whitespace", "  zones\t*\n4 ", "8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formula.Eval(tt.expr, vars)
			if err != nil {
				t.Fatalf("Eval(%q) error: %v", tt.expr, err)
			}
			if !got.Equal(d(tt.want)) {
				t.Errorf("Eval(%q) = %s, want %s", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvalHoursExact(t *testing.T) {
	got, err := formula.Eval("trench_feet * 0.1", map[string]decimal.Decimal{"trench_feet": d("150")})
	if err != nil {
		t.Fatalf("Eval error: %v", err)
	}
	if got.String() != "15" {
		t.Errorf("hours = %s, want exactly 15", got)
	}
}

func TestEvalErrors(t *testing.T) {
	vars := map[string]decimal.Decimal{"a": d("6"), "b": d("2")}

	tests := []struct {
		name     string
		expr     string
		sentinel error
		subExpr  string
	}{
		{"division by literal zero", "a / 0", formula.ErrDivisionByZero, "a / 0"},
		{"division by computed zero", "1 + a / (b - b)", formula.ErrDivisionByZero, "a / (b - b)"},
		{"undefined variable", "a * zones", formula.ErrUndefined, "zones"},
		{"undefined inside group", "(missing + 1) * 2", formula.ErrUndefined, "missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := formula.Eval(tt.expr, vars)
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("Eval(%q) error = %v, want %v", tt.expr, err, tt.sentinel)
			}

			var fe *formula.Error
			if !errors.As(err, &fe) {
				t.Fatalf("error is not *formula.Error: %T", err)
			}
			if fe.Expr != tt.subExpr {
				t.Errorf("Expr = %q, want %q", fe.Expr, tt.subExpr)
			}
			if fe.Source != tt.expr {
				t.Errorf("Source = %q, want %q", fe.Source, tt.expr)
			}
		})
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"dangling operator", "2 +"},
		{"unclosed paren", "(2 + 3"},
		{"stray close paren", "2 + 3)"},
		{"adjacent operands", "2 3"},
		{"unknown character", "2 $ 3"},
		{"malformed number", "1..2"},
		{"lone dot", "."},
		{"function call", "max(1, 2)"},
		{"comparison", "a > b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := formula.Parse(tt.expr)
			if !errors.Is(err, formula.ErrSyntax) {
				t.Errorf("Parse(%q) error = %v, want ErrSyntax", tt.expr, err)
			}
		})
	}
}

func TestVariables(t *testing.T) {
	expr, err := formula.Parse("zones * heads + zones / (trench_feet - 1)")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	want := []string{"heads", "trench_feet", "zones"}
	if got := expr.Variables(); !slices.Equal(got, want) {
		t.Errorf("Variables() = %v, want %v", got, want)
	}
}

func TestEvalDeterministic(t *testing.T) {
	expr, err := formula.Parse("(a + b) / 7 * 3")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	vars := map[string]decimal.Decimal{"a": d("12.345"), "b": d("0.655")}

	first, err := expr.Eval(vars)
	if err != nil {
		t.Fatalf("Eval error: %v", err)
	}
	for range 10 {
		got, err := expr.Eval(vars)
		if err != nil {
			t.Fatalf("Eval error: %v", err)
		}
		if !got.Equal(first) {
			t.Fatalf("Eval not deterministic: %s != %s", got, first)
		}
	}
}
