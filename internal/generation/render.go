package generation

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	"text/template"

	"github.com/shopspring/decimal"

	"github.com/JaimeStill/foreman/internal/assembly"
	"github.com/JaimeStill/foreman/pkg/currency"
)

// Section ids rendered into every HTML artifact.
const (
	SectionHeader    = "header"
	SectionMaterials = "materials"
	SectionLabor     = "labor"
	SectionEquipment = "equipment"
	SectionTotals    = "totals"
)

// RequiredSections lists the section ids every artifact must contain.
var RequiredSections = []string{SectionHeader, SectionMaterials, SectionLabor, SectionTotals}

//go:embed layouts
var layouts embed.FS

var funcs = map[string]any{
	"money": func(d decimal.Decimal) string { return currency.Format(d) },
	"qty":   func(d decimal.Decimal) string { return d.String() },
}

var (
	htmlLayout = htmltemplate.Must(htmltemplate.New("document.html").Funcs(funcs).ParseFS(layouts, "layouts/document.html"))
	mdLayout   = template.Must(template.New("document.md").Funcs(funcs).ParseFS(layouts, "layouts/document.md"))
)

type section struct {
	ID    string
	Title string
	Items []assembly.LineItem
}

type view struct {
	*Document
	Sections []section
}

func newView(doc *Document) view {
	sections := []section{
		{ID: SectionMaterials, Title: "Materials", Items: doc.Items(assembly.KindMaterial)},
		{ID: SectionLabor, Title: "Labor", Items: doc.Items(assembly.KindLabor)},
	}
	if eq := doc.Items(assembly.KindEquipment); len(eq) > 0 {
		sections = append(sections, section{ID: SectionEquipment, Title: "Equipment", Items: eq})
	}
	return view{Document: doc, Sections: sections}
}

// RenderHTML renders the printable HTML artifact of doc.
func RenderHTML(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := htmlLayout.Execute(&buf, newView(doc)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderMarkdown renders doc as Markdown for terminal preview.
func RenderMarkdown(doc *Document) (string, error) {
	var buf bytes.Buffer
	if err := mdLayout.Execute(&buf, newView(doc)); err != nil {
		return "", err
	}
	return buf.String(), nil
}
