// Package vision scores rendered documents against a professional-quality
// checklist using a vision-capable model.
package vision

import (
	"context"
	"errors"
	"slices"
)

// Criterion is one aspect of document quality the judge scores.
type Criterion string

const (
	ProfessionalAppearance Criterion = "professional_appearance"
	HeaderFormatting       Criterion = "header_formatting"
	TableStructure         Criterion = "table_structure"
	Completeness           Criterion = "completeness"
	Typography             Criterion = "typography"
	LayoutBalance          Criterion = "layout_balance"
	DataAccuracy           Criterion = "data_accuracy"
	PrintReadiness         Criterion = "print_readiness"
)

// AllCriteria lists every criterion in checklist order.
var AllCriteria = []Criterion{
	ProfessionalAppearance,
	HeaderFormatting,
	TableStructure,
	Completeness,
	Typography,
	LayoutBalance,
	DataAccuracy,
	PrintReadiness,
}

var descriptions = map[Criterion]string{
	ProfessionalAppearance: "Overall impression of a document a contractor would hand to a client",
	HeaderFormatting:       "Company, client, project and document number are clearly laid out",
	TableStructure:         "Line-item tables have aligned columns, headings and consistent rows",
	Completeness:           "Materials, labor and totals sections are present and populated",
	Typography:             "Fonts are legible and consistent, with no overlapping or clipped text",
	LayoutBalance:          "Whitespace and section spacing are even across the page",
	DataAccuracy:           "Quantities, prices and totals read as plausible and consistent",
	PrintReadiness:         "The page would print cleanly with nothing cut off at the margins",
}

// Describe returns the checklist text for c.
func (c Criterion) Describe() string {
	return descriptions[c]
}

// Valid reports whether c is a known criterion.
func (c Criterion) Valid() bool {
	return slices.Contains(AllCriteria, c)
}

// MaxScore is the upper bound of every score.
const MaxScore = 10.0

// Finding is the judge's score for one criterion.
type Finding struct {
	Criterion Criterion `json:"criterion"`
	Score     float64   `json:"score"`
	Notes     string    `json:"notes,omitempty"`
}

// Judgment is the judge's assessment of one rendered document.
type Judgment struct {
	Score          float64   `json:"score"`
	ReadyForClient bool      `json:"ready_for_client"`
	Summary        string    `json:"summary"`
	Findings       []Finding `json:"findings"`
}

// Finding returns the finding for c.
func (j *Judgment) Finding(c Criterion) (Finding, bool) {
	for _, f := range j.Findings {
		if f.Criterion == c {
			return f, true
		}
	}
	return Finding{}, false
}

// Judge scores a rendered page image.
type Judge interface {
	Judge(ctx context.Context, image []byte, criteria []Criterion) (*Judgment, error)
}

var (
	ErrNoImage     = errors.New("no image to judge")
	ErrJudgeFailed = errors.New("vision judgment failed")
)
