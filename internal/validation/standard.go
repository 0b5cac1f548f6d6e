package validation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/JaimeStill/foreman/internal/assembly"
	"github.com/JaimeStill/foreman/internal/generation"
	"github.com/JaimeStill/foreman/pkg/currency"
)

func (p *Pipeline) standard(ctx context.Context, s *subject) []Check {
	return []Check{
		currencyFormat(s),
		requiredSections(s),
		p.templateUsage(s),
		artifactContent(s),
		p.contentDistinctness(ctx, s),
	}
}

func currencyFormat(s *subject) Check {
	const name = "currency_format"

	cells := amountCells(s.root)
	if len(cells) == 0 {
		return newCheck(LevelStandard, name, StatusFail, "artifact contains no amount cells")
	}

	var bad []string
	for _, cell := range cells {
		if !currency.Valid(cell) {
			bad = append(bad, strconv.Quote(cell))
		}
	}
	if len(bad) > 0 {
		return newCheck(LevelStandard, name, StatusFail, "malformed amounts: %s", strings.Join(bad, ", "))
	}
	return newCheck(LevelStandard, name, StatusPass, "%d amounts well formed", len(cells))
}

func requiredSections(s *subject) Check {
	const name = "required_sections"

	required := generation.RequiredSections
	if len(s.doc.Items(assembly.KindEquipment)) > 0 {
		required = append(required[:len(required):len(required)], generation.SectionEquipment)
	}

	ids := elementIDs(s.root)
	var missing []string
	for _, id := range required {
		if !ids[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return newCheck(LevelStandard, name, StatusFail, "missing sections: %s", strings.Join(missing, ", "))
	}
	return newCheck(LevelStandard, name, StatusPass, "sections present: %s", strings.Join(required, ", "))
}

// templateUsage proves the document came from its declared template: the
// stored digests verify, the template resolves, and assembling it against the
// recorded binding reproduces the same line items and subtotal.
func (p *Pipeline) templateUsage(s *subject) Check {
	const name = "template_usage"
	doc := s.doc

	if doc.TemplateID == "" {
		return newCheck(LevelStandard, name, StatusFail, "document does not declare a template")
	}
	if err := generation.Verify(doc); err != nil {
		return newCheck(LevelStandard, name, StatusFail, "%v", err)
	}

	tmpl, err := p.templates.Get(doc.TemplateID)
	if err != nil {
		return newCheck(LevelStandard, name, StatusFail, "resolve template: %v", err).
			with("template_id", doc.TemplateID)
	}

	binding := make(assembly.Binding, len(doc.Binding))
	for k, v := range doc.Binding {
		binding[k] = v
	}

	res, err := p.assembler.Assemble(tmpl, binding)
	if err != nil {
		return withRevisions(newCheck(LevelStandard, name, StatusFail, "recompute: %v", err), tmpl.Revision, doc.TemplateRevision)
	}

	if generation.ContentDigest(res.Items) != doc.ContentDigest || !res.Subtotal.Equal(doc.Subtotal) {
		return withRevisions(newCheck(LevelStandard, name, StatusFail, "recomputed subtotal %s, document %s",
			currency.Format(res.Subtotal), currency.Format(doc.Subtotal)), tmpl.Revision, doc.TemplateRevision)
	}
	return withRevisions(newCheck(LevelStandard, name, StatusPass, "recomputed %s from %s",
		currency.Format(res.Subtotal), doc.TemplateID), tmpl.Revision, doc.TemplateRevision)
}

// withRevisions records the current template revision and, when it differs,
// the revision stored on the document. Drift never changes the verdict.
func withRevisions(c Check, current, stored string) Check {
	c = c.with("template_revision", current)
	if stored != current {
		c = c.with("document_revision", stored)
	}
	return c
}

// artifactContent checks the rendered artifact shows each line description
// and the document totals.
func artifactContent(s *subject) Check {
	const name = "artifact_content"
	doc := s.doc
	body := text(s.root)

	var missing []string
	for _, item := range doc.LineItems {
		desc := strings.Join(strings.Fields(item.Description), " ")
		if !strings.Contains(body, desc) {
			missing = append(missing, strconv.Quote(item.Description))
		}
	}
	for _, amount := range []string{currency.Format(doc.Subtotal), currency.Format(doc.Total)} {
		if !strings.Contains(body, amount) {
			missing = append(missing, amount)
		}
	}
	if doc.Header.Number != "" && !strings.Contains(body, doc.Header.Number) {
		missing = append(missing, doc.Header.Number)
	}

	if len(missing) > 0 {
		return newCheck(LevelStandard, name, StatusFail, "artifact does not show %s", strings.Join(missing, ", "))
	}
	return newCheck(LevelStandard, name, StatusPass, "artifact reflects %d lines and totals", len(doc.LineItems))
}

// contentDistinctness fails when another stored document carries identical
// line items but came from a different template or binding.
func (p *Pipeline) contentDistinctness(ctx context.Context, s *subject) Check {
	const name = "content_distinctness"
	doc := s.doc

	siblings, err := p.docs.Siblings(ctx, doc.ContentDigest, doc.ID)
	if err != nil {
		return newCheck(LevelStandard, name, StatusFail, "%v", err)
	}

	var clashes []string
	for _, sib := range siblings {
		if sib.TemplateID != doc.TemplateID || sib.Fingerprint != doc.Fingerprint {
			clashes = append(clashes, fmt.Sprintf("%s (%s)", sib.ID, sib.TemplateID))
		}
	}
	if len(clashes) > 0 {
		return newCheck(LevelStandard, name, StatusFail, "%v: shares line items with %s",
			generation.ErrNotDistinct, strings.Join(clashes, ", ")).
			with("content_digest", doc.ContentDigest)
	}
	return newCheck(LevelStandard, name, StatusPass, "%d regenerations share this content", len(siblings))
}
