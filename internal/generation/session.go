package generation

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/foreman/internal/assembly"
	"github.com/JaimeStill/foreman/internal/tax"
)

var ErrNoTemplate = errors.New("generation request has no template")

// Session generates documents. Generate is safe for concurrent use.
type Session struct {
	assembler *assembly.Assembler
	tax       tax.Func
	logger    *slog.Logger
	now       func() time.Time
}

// NewSession creates a Session using the given assembler and tax function.
func NewSession(assembler *assembly.Assembler, taxFn tax.Func, logger *slog.Logger) *Session {
	return &Session{
		assembler: assembler,
		tax:       taxFn,
		logger:    logger.With("system", "generation"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Generate assembles req's template against its binding, applies tax, and
// returns a fingerprinted document. Computation errors abort the request.
func (s *Session) Generate(req Request) (*Document, error) {
	if req.Template == nil {
		return nil, ErrNoTemplate
	}
	t := req.Template

	res, err := s.assembler.Assemble(t, req.Binding)
	if err != nil {
		s.logger.Warn("assembly failed", "template", t.ID, "binding", req.Binding, "error", err)
		return nil, err
	}

	taxAmount, err := s.tax(res.Subtotal, req.Jurisdiction)
	if err != nil {
		return nil, fmt.Errorf("template %s: tax: %w", t.ID, err)
	}

	kind := req.Kind
	if kind == "" {
		kind = KindEstimate
	}

	id := uuid.New()
	header := req.Header
	if header.Number == "" {
		header.Number = fmt.Sprintf("%s-%s", kind.prefix(), strings.ToUpper(id.String()[:8]))
	}

	doc := &Document{
		ID:               id,
		Kind:             kind,
		TemplateID:       t.ID,
		TemplateRevision: t.Revision,
		Category:         t.Category,
		Header:           header,
		Binding:          res.Binding,
		LineItems:        res.Items,
		Jurisdiction:     req.Jurisdiction,
		Subtotal:         res.Subtotal,
		Tax:              taxAmount,
		Total:            res.Subtotal.Add(taxAmount),
		Fingerprint:      Fingerprint(t.ID, res.Binding, res.Items),
		ContentDigest:    ContentDigest(res.Items),
		GeneratedAt:      s.now(),
	}

	s.logger.Info("document generated",
		"id", doc.ID,
		"template", doc.TemplateID,
		"total", doc.Total.StringFixed(2),
		"fingerprint", doc.Fingerprint,
	)
	return doc, nil
}
