package generation_test

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/JaimeStill/foreman/internal/assembly"
	"github.com/JaimeStill/foreman/internal/generation"
	"github.com/JaimeStill/foreman/internal/tax"
	"github.com/JaimeStill/foreman/internal/templates"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newSession() *generation.Session {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return generation.NewSession(assembly.New(nil, logger), tax.DefaultRules().Func(), logger)
}

func loadTemplate(t *testing.T, parts ...string) *templates.Template {
	t.Helper()
	path := filepath.Join(append([]string{"..", "..", "templates"}, parts...)...)
	tmpl, err := templates.ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile(%s): %v", path, err)
	}
	return tmpl
}

func sprinkler(t *testing.T) *templates.Template {
	return loadTemplate(t, "irrigation", "sprinkler_zone_turf.yaml")
}

func treeRemoval(t *testing.T) *templates.Template {
	return loadTemplate(t, "tree_care", "tree_removal_residential.yaml")
}

func generate(t *testing.T, req generation.Request) *generation.Document {
	t.Helper()
	doc, err := newSession().Generate(req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return doc
}

func TestGenerateSprinklerZone(t *testing.T) {
	doc := generate(t, generation.Request{
		Template:     sprinkler(t),
		Binding:      assembly.Binding{"zones": 1, "trench_feet": 150},
		Jurisdiction: "TX",
		Header:       generation.Header{Company: "Greenline Landscape", Client: "Dana Ortiz", Project: "Backyard zone 1"},
	})

	if !doc.Subtotal.Equal(d("1534.63")) {
		t.Errorf("subtotal = %s, want 1534.63", doc.Subtotal)
	}
	if !doc.Tax.Equal(d("126.61")) {
		t.Errorf("tax = %s, want 126.61", doc.Tax)
	}
	if !doc.Total.Equal(d("1661.24")) {
		t.Errorf("total = %s, want 1661.24", doc.Total)
	}
	if doc.Kind != generation.KindEstimate {
		t.Errorf("kind = %q, want estimate", doc.Kind)
	}
	if !strings.HasPrefix(doc.Header.Number, "EST-") {
		t.Errorf("number = %q, want EST- prefix", doc.Header.Number)
	}
	if !strings.HasPrefix(doc.Fingerprint, "sha256:") || len(doc.Fingerprint) != len("sha256:")+64 {
		t.Errorf("fingerprint = %q", doc.Fingerprint)
	}
	if err := generation.Verify(doc); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestSprinklerVersusTreeRemoval(t *testing.T) {
	a := generate(t, generation.Request{
		Template: sprinkler(t),
		Binding:  assembly.Binding{"zones": 1, "trench_feet": 150},
	})
	b := generate(t, generation.Request{
		Template: treeRemoval(t),
		Binding:  assembly.Binding{"trees": 2, "diameter_in": 18},
	})

	if a.Fingerprint == b.Fingerprint {
		t.Error("different templates produced the same fingerprint")
	}
	if a.ContentDigest == b.ContentDigest {
		t.Error("different templates produced the same line items")
	}
	if err := generation.CheckDistinct(a, b); err != nil {
		t.Errorf("CheckDistinct: %v", err)
	}

	descriptions := func(doc *generation.Document) map[string]bool {
		out := make(map[string]bool)
		for _, item := range doc.LineItems {
			out[item.Description] = true
		}
		return out
	}
	da, db := descriptions(a), descriptions(b)
	for desc := range da {
		if db[desc] {
			t.Errorf("line %q appears in both documents", desc)
		}
	}
}

func TestTurfVersusTreeScenario(t *testing.T) {
	turf := generate(t, generation.Request{
		Template: sprinkler(t),
		Binding:  assembly.Binding{"zones": 2, "trench_feet": 150, "soil": "turf"},
	})
	tree := generate(t, generation.Request{
		Template: treeRemoval(t),
		Binding:  assembly.Binding{"trees": 1, "diameter_in": 24},
	})

	if turf.Fingerprint == tree.Fingerprint {
		t.Error("fingerprints match")
	}
	if turf.Total.Equal(tree.Total) {
		t.Errorf("totals match: %s", turf.Total)
	}
	if err := generation.CheckDistinct(turf, tree); err != nil {
		t.Errorf("CheckDistinct: %v", err)
	}
}

func TestDistinctBindings(t *testing.T) {
	tmpl := sprinkler(t)
	bindings := []assembly.Binding{
		{"zones": 1, "trench_feet": 150},
		{"zones": 2, "trench_feet": 150},
		{"zones": 1, "trench_feet": 151},
		{"zones": 1, "trench_feet": 150, "soil": "clay"},
		{"zones": 1, "trench_feet": 150, "heads_per_zone": 8},
	}

	docs := make([]*generation.Document, len(bindings))
	for i, b := range bindings {
		docs[i] = generate(t, generation.Request{Template: tmpl, Binding: b})
	}

	for i := range docs {
		for j := i + 1; j < len(docs); j++ {
			if err := generation.CheckDistinct(docs[i], docs[j]); err != nil {
				t.Errorf("bindings %v and %v: %v", bindings[i], bindings[j], err)
			}
		}
	}
}

func TestDeterminism(t *testing.T) {
	tmpl := sprinkler(t)
	req := generation.Request{Template: tmpl, Binding: assembly.Binding{"zones": 3, "trench_feet": 220.5, "soil": "roots"}}

	a := generate(t, req)
	b := generate(t, req)

	if a.ID == b.ID {
		t.Error("each generation should have its own id")
	}
	if a.Fingerprint != b.Fingerprint || a.ContentDigest != b.ContentDigest {
		t.Error("identical inputs produced different digests")
	}
	if err := generation.CheckDistinct(a, b); err != nil {
		t.Errorf("regeneration flagged as not distinct: %v", err)
	}
}

func TestDefaultsMatchExplicitBinding(t *testing.T) {
	tmpl := sprinkler(t)
	implicit := generate(t, generation.Request{Template: tmpl, Binding: assembly.Binding{"zones": 1, "trench_feet": 150}})
	explicit := generate(t, generation.Request{Template: tmpl, Binding: assembly.Binding{"zones": 1, "trench_feet": 150, "soil": "turf", "heads_per_zone": 6}})

	if implicit.Fingerprint != explicit.Fingerprint {
		t.Error("binding a parameter to its default should not change the fingerprint")
	}
}

func TestCheckDistinctDetectsStaticContent(t *testing.T) {
	doc := generate(t, generation.Request{Template: sprinkler(t), Binding: assembly.Binding{"zones": 1, "trench_feet": 150}})

	static := *doc
	static.TemplateID = "tree_removal_residential"
	static.Binding = map[string]string{"trees": "2", "diameter_in": "18"}
	static.Fingerprint = generation.Fingerprint(static.TemplateID, static.Binding, static.LineItems)

	err := generation.CheckDistinct(doc, &static)
	if !errors.Is(err, generation.ErrNotDistinct) {
		t.Errorf("err = %v, want ErrNotDistinct", err)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(doc *generation.Document)
		want   error
	}{
		{
			name: "binding changed",
			mutate: func(doc *generation.Document) {
				doc.Binding = map[string]string{"zones": "9"}
			},
			want: generation.ErrFingerprintMismatch,
		},
		{
			name: "line total changed",
			mutate: func(doc *generation.Document) {
				doc.LineItems[0].Total = d("1.00")
			},
			want: generation.ErrFingerprintMismatch,
		},
		{
			name: "total changed",
			mutate: func(doc *generation.Document) {
				doc.Total = doc.Total.Add(d("0.01"))
			},
			want: generation.ErrInconsistentTotals,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := generate(t, generation.Request{Template: sprinkler(t), Binding: assembly.Binding{"zones": 1, "trench_feet": 150}})
			tt.mutate(doc)
			if err := generation.Verify(doc); !errors.Is(err, tt.want) {
				t.Errorf("Verify err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGenerateErrors(t *testing.T) {
	t.Run("no template", func(t *testing.T) {
		_, err := newSession().Generate(generation.Request{})
		if !errors.Is(err, generation.ErrNoTemplate) {
			t.Errorf("err = %v, want ErrNoTemplate", err)
		}
	})

	t.Run("missing parameter", func(t *testing.T) {
		_, err := newSession().Generate(generation.Request{Template: sprinkler(t), Binding: assembly.Binding{"zones": 1}})
		var e *assembly.MissingParameterError
		if !errors.As(err, &e) {
			t.Errorf("err = %v, want MissingParameterError", err)
		}
	})

	t.Run("invalid jurisdiction", func(t *testing.T) {
		_, err := newSession().Generate(generation.Request{
			Template:     sprinkler(t),
			Binding:      assembly.Binding{"zones": 1, "trench_feet": 150},
			Jurisdiction: "TX+0.5",
		})
		if !errors.Is(err, tax.ErrLocalRateOutOfRange) {
			t.Errorf("err = %v, want ErrLocalRateOutOfRange", err)
		}
	})
}

func TestRenderHTML(t *testing.T) {
	doc := generate(t, generation.Request{
		Template:     sprinkler(t),
		Binding:      assembly.Binding{"zones": 1, "trench_feet": 150},
		Jurisdiction: "TX",
		Header:       generation.Header{Client: "Dana Ortiz & Sons"},
	})

	out, err := generation.RenderHTML(doc)
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	html := string(out)

	for _, want := range []string{
		`id="header"`, `id="materials"`, `id="labor"`, `id="equipment"`, `id="totals"`,
		"Trenching and pipe installation",
		`<td class="amount">$975.00</td>`,
		`<td class="amount">$1,534.63</td>`,
		`<td class="amount">$1,661.24</td>`,
		"Dana Ortiz &amp; Sons",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
}

func TestRenderMarkdown(t *testing.T) {
	doc := generate(t, generation.Request{
		Template: treeRemoval(t),
		Binding:  assembly.Binding{"trees": 2, "diameter_in": 18},
		Kind:     generation.KindInvoice,
	})

	md, err := generation.RenderMarkdown(doc)
	if err != nil {
		t.Fatalf("RenderMarkdown: %v", err)
	}

	for _, want := range []string{"# Invoice INV-", "## Labor", "| Tree felling and rigging |", "$1,934.78"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}
