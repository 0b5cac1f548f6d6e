package validation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/JaimeStill/foreman/internal/documents"
	"github.com/JaimeStill/foreman/internal/generation"
	"github.com/JaimeStill/foreman/pkg/currency"
)

func (p *Pipeline) basic(ctx context.Context, s *subject) []Check {
	const level = LevelBasic

	exists := p.documentExists(ctx, s)
	if exists.Status == StatusFail {
		return []Check{
			exists,
			newCheck(level, "artifact_exists", StatusSkip, "document unavailable"),
			newCheck(level, "document_structure", StatusSkip, "document unavailable"),
			newCheck(level, "line_items_present", StatusSkip, "document unavailable"),
			newCheck(level, "artifact_parses", StatusSkip, "document unavailable"),
		}
	}

	artifact := p.artifactExists(ctx, s)
	return []Check{
		exists,
		artifact,
		documentStructure(s),
		lineItemsPresent(s),
		artifactParses(s, artifact.Status != StatusFail),
	}
}

func (p *Pipeline) documentExists(ctx context.Context, s *subject) Check {
	const name = "document_exists"

	rec, err := p.docs.Find(ctx, s.id)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return newCheck(LevelBasic, name, StatusFail, "document %s not found", s.id)
		}
		return newCheck(LevelBasic, name, StatusFail, "find document: %v", err)
	}
	s.record = rec

	doc, err := p.docs.Load(ctx, s.id)
	if err != nil {
		return newCheck(LevelBasic, name, StatusFail, "load document record: %v", err)
	}
	s.doc = doc

	return newCheck(LevelBasic, name, StatusPass, "%s %s", doc.Kind, doc.Header.Number).
		with("template_id", doc.TemplateID)
}

func (p *Pipeline) artifactExists(ctx context.Context, s *subject) Check {
	const name = "artifact_exists"

	data, err := p.docs.Artifact(ctx, s.id)
	if err != nil {
		return newCheck(LevelBasic, name, StatusFail, "read artifact: %v", err)
	}
	if len(data) == 0 {
		return newCheck(LevelBasic, name, StatusFail, "artifact %s is empty", s.record.ArtifactKey)
	}
	s.artifact = data

	return newCheck(LevelBasic, name, StatusPass, "artifact stored at %s", s.record.ArtifactKey).
		with("bytes", strconv.Itoa(len(data)))
}

// documentStructure checks every line is well formed, line totals follow the
// rounding law, and the summary row agrees with the stored record.
func documentStructure(s *subject) Check {
	const name = "document_structure"
	doc := s.doc

	var problems []string
	for i, item := range doc.LineItems {
		label := item.Line
		if label == "" {
			label = fmt.Sprintf("line %d", i)
			problems = append(problems, label+": missing line id")
		}
		if strings.TrimSpace(item.Description) == "" {
			problems = append(problems, label+": missing description")
		}
		if item.Quantity.IsNegative() {
			problems = append(problems, label+": negative quantity")
		}
		if item.UnitPrice.IsNegative() {
			problems = append(problems, label+": negative unit price")
		}
		if want := currency.Round(item.Quantity.Mul(item.UnitPrice)); !item.Total.Equal(want) {
			problems = append(problems, fmt.Sprintf("%s: total %s, expected %s", label, item.Total, want))
		}
	}

	totals := make([]decimal.Decimal, len(doc.LineItems))
	for i, item := range doc.LineItems {
		totals[i] = item.Total
	}
	if sum := currency.Sum(totals...); !doc.Subtotal.Equal(sum) {
		problems = append(problems, fmt.Sprintf("subtotal %s, lines sum to %s", doc.Subtotal, sum))
	}
	if total := doc.Subtotal.Add(doc.Tax); !doc.Total.Equal(total) {
		problems = append(problems, fmt.Sprintf("total %s, subtotal plus tax is %s", doc.Total, total))
	}

	rec := s.record
	if rec.Fingerprint != doc.Fingerprint {
		problems = append(problems, "stored fingerprint differs from document record")
	}
	if !rec.Total.Equal(doc.Total) {
		problems = append(problems, fmt.Sprintf("stored total %s differs from document total %s", rec.Total, doc.Total))
	}

	if len(problems) > 0 {
		return newCheck(LevelBasic, name, StatusFail, "%s", strings.Join(problems, "; ")).
			with("problems", strconv.Itoa(len(problems)))
	}
	return newCheck(LevelBasic, name, StatusPass, "%d lines, total %s", len(doc.LineItems), currency.Format(doc.Total))
}

func lineItemsPresent(s *subject) Check {
	const name = "line_items_present"

	if len(s.doc.LineItems) == 0 {
		return newCheck(LevelBasic, name, StatusFail, "document has no line items")
	}
	return newCheck(LevelBasic, name, StatusPass, "%d line items", len(s.doc.LineItems))
}

func artifactParses(s *subject, available bool) Check {
	const name = "artifact_parses"

	if !available {
		return newCheck(LevelBasic, name, StatusSkip, "artifact unavailable")
	}

	root, err := parseArtifact(s.artifact)
	if err != nil {
		return newCheck(LevelBasic, name, StatusFail, "parse artifact: %v", err)
	}
	if !elementIDs(root)[generation.SectionHeader] {
		return newCheck(LevelBasic, name, StatusFail, "artifact has no %s section", generation.SectionHeader)
	}
	s.root = root

	return newCheck(LevelBasic, name, StatusPass, "artifact parsed")
}
