package workflow

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/JaimeStill/foreman/internal/compliance"
	"github.com/JaimeStill/foreman/internal/documents"
	"github.com/JaimeStill/foreman/internal/generation"
	"github.com/JaimeStill/foreman/internal/validation"
)

// step wraps fn as a state node. A step error is stored under KeyErr and
// routes the graph to finalize instead of aborting it, so the reports
// gathered so far survive.
func step(rt *Runtime, name string, fn func(ctx context.Context, s state.State) (state.State, error)) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		s, err := fn(ctx, s)
		if err != nil {
			rt.Logger.WarnContext(ctx, "workflow step stopped", "step", name, "error", err)
			return s.Set(KeyErr, fmt.Errorf("%s: %w", name, err)), nil
		}
		return s, nil
	})
}

func get[T any](s state.State, key string) (T, bool) {
	var zero T
	val, ok := s.Get(key)
	if !ok {
		return zero, false
	}
	v, ok := val.(T)
	return v, ok
}

func request(s state.State) (Request, error) {
	req, ok := get[Request](s, KeyRequest)
	if !ok {
		return Request{}, fmt.Errorf("%w: missing %s", ErrInvalidState, KeyRequest)
	}
	return req, nil
}

func withReport(s state.State, report *compliance.Report) state.State {
	if report == nil {
		return s
	}
	reports, _ := get[[]*compliance.Report](s, KeyReports)
	return s.Set(KeyReports, append(slices.Clone(reports), report))
}

// GenerateNode returns a state node that generates the requested document and
// flags it when its line items match a document from other inputs.
func GenerateNode(rt *Runtime) state.StateNode {
	return step(rt, "generate", func(ctx context.Context, s state.State) (state.State, error) {
		req, err := request(s)
		if err != nil {
			return s, err
		}

		var doc *generation.Document
		report, err := rt.Enforcer.Run(ctx, req.context(compliance.OpDocumentGeneration), func(ctx context.Context, opctx *compliance.Context) error {
			tmpl, err := rt.Templates.Get(req.TemplateID)
			if err != nil {
				return err
			}

			doc, err = rt.Session.Generate(generation.Request{
				Template:     tmpl,
				Binding:      req.Binding,
				Kind:         req.Kind,
				Jurisdiction: req.Jurisdiction,
				Header:       req.Header,
			})
			if err != nil {
				return err
			}
			opctx.DocumentID = doc.ID.String()

			static, err := hardcoded(ctx, rt.Documents, doc)
			if err != nil {
				return err
			}
			opctx.SetFlag(compliance.FlagHardcodedContent, static)
			return nil
		})
		s = withReport(s, report)
		if err != nil {
			return s, err
		}

		rt.Logger.InfoContext(ctx, "generate node complete", "document_id", doc.ID, "template", doc.TemplateID)
		return s.Set(KeyDocument, doc), nil
	})
}

// hardcoded reports whether a stored document with the same line items came
// from a different template or binding.
func hardcoded(ctx context.Context, docs documents.System, doc *generation.Document) (bool, error) {
	siblings, err := docs.Siblings(ctx, doc.ContentDigest, doc.ID)
	if err != nil {
		return false, err
	}
	for _, sib := range siblings {
		other, err := docs.Load(ctx, sib.ID)
		if err != nil {
			return false, err
		}
		if err := generation.CheckDistinct(doc, other); err != nil {
			if errors.Is(err, generation.ErrNotDistinct) {
				return true, nil
			}
			return false, err
		}
	}
	return false, nil
}

// PersistNode returns a state node that stores the generated document.
func PersistNode(rt *Runtime) state.StateNode {
	return step(rt, "persist", func(ctx context.Context, s state.State) (state.State, error) {
		req, err := request(s)
		if err != nil {
			return s, err
		}
		doc, ok := get[*generation.Document](s, KeyDocument)
		if !ok {
			return s, fmt.Errorf("%w: missing %s", ErrInvalidState, KeyDocument)
		}

		opctx := req.context(compliance.OpFileOperations)
		opctx.DocumentID = doc.ID.String()

		var rec *documents.Record
		report, err := rt.Enforcer.Run(ctx, opctx, func(ctx context.Context, _ *compliance.Context) error {
			var err error
			rec, err = rt.Documents.Create(ctx, doc)
			return err
		})
		s = withReport(s, report)
		if err != nil {
			return s, err
		}

		return s.Set(KeyRecord, rec), nil
	})
}

// ValidateNode returns a state node that runs the validation pipeline at the
// requested level. Skipped or deferred validation leaves no result.
func ValidateNode(rt *Runtime) state.StateNode {
	return step(rt, "validate", func(ctx context.Context, s state.State) (state.State, error) {
		req, err := request(s)
		if err != nil {
			return s, err
		}
		rec, ok := get[*documents.Record](s, KeyRecord)
		if !ok {
			return s, fmt.Errorf("%w: missing %s", ErrInvalidState, KeyRecord)
		}

		opctx := req.context(compliance.OpVisualValidation)
		opctx.DocumentID = rec.ID.String()
		opctx.Attributes = map[string]string{"level": string(req.level())}

		var result *validation.Result
		report, err := rt.Enforcer.Run(ctx, opctx, func(ctx context.Context, opctx *compliance.Context) error {
			if req.SkipValidation || req.DeferValidation {
				return nil
			}

			var err error
			result, err = rt.Validation.Validate(ctx, rec.ID, req.level())
			if err != nil {
				return err
			}
			for name, v := range validationFlags(result) {
				opctx.SetFlag(name, v)
			}
			if !result.Passed() {
				return fmt.Errorf("%w at %s level", ErrValidationFailed, result.Reached())
			}
			return nil
		})
		s = withReport(s, report)
		if result != nil {
			s = s.Set(KeyValidation, result)
		}
		return s, err
	})
}

// DeliverNode returns a state node that marks the document delivered once the
// delivery rules accept the validation evidence.
func DeliverNode(rt *Runtime) state.StateNode {
	return step(rt, "deliver", func(ctx context.Context, s state.State) (state.State, error) {
		req, err := request(s)
		if err != nil {
			return s, err
		}
		rec, ok := get[*documents.Record](s, KeyRecord)
		if !ok {
			return s, fmt.Errorf("%w: missing %s", ErrInvalidState, KeyRecord)
		}

		opctx := req.context(compliance.OpDocumentDelivery)
		opctx.DocumentID = rec.ID.String()
		if result, ok := get[*validation.Result](s, KeyValidation); ok {
			for name, v := range validationFlags(result) {
				opctx.SetFlag(name, v)
			}
		}

		report, err := rt.Enforcer.Run(ctx, opctx, func(ctx context.Context, _ *compliance.Context) error {
			delivered, err := rt.Documents.MarkDelivered(ctx, rec.ID)
			if err != nil {
				return err
			}
			rec = delivered
			return nil
		})
		s = withReport(s, report)
		if err != nil {
			return s, err
		}

		s = s.Set(KeyRecord, rec)
		return s.Set(KeyDelivered, true), nil
	})
}

// FinalizeNode returns a state node that logs the outcome of the execution.
func FinalizeNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		req, _ := get[Request](s, KeyRequest)
		stopped, _ := get[error](s, KeyErr)
		delivered, _ := get[bool](s, KeyDelivered)

		attrs := []any{"template", req.TemplateID, "delivered", delivered}
		if rec, ok := get[*documents.Record](s, KeyRecord); ok {
			attrs = append(attrs, "document_id", rec.ID)
		}
		if result, ok := get[*validation.Result](s, KeyValidation); ok {
			attrs = append(attrs, "validation", result.OverallStatus)
		}
		if stopped != nil {
			attrs = append(attrs, "error", stopped)
		}

		rt.Logger.InfoContext(ctx, "finalize node complete", attrs...)
		return s, nil
	})
}

// validationFlags derives compliance evidence from a validation result.
func validationFlags(r *validation.Result) map[string]bool {
	flags := map[string]bool{
		compliance.FlagTemplateVerified:          false,
		compliance.FlagStandardValidationPassed:  false,
		compliance.FlagVisualValidationPerformed: false,
	}

	if c, ok := r.Check("template_usage"); ok {
		flags[compliance.FlagTemplateVerified] = c.Status == validation.StatusPass
	}
	if c, ok := r.Check("editor_export"); ok {
		flags[compliance.FlagVisualValidationPerformed] = c.Status == validation.StatusPass || c.Status == validation.StatusWarn
	}

	reachedStandard := r.Reached().Includes(validation.LevelStandard)
	passed := true
	for _, c := range r.Checks {
		if validation.LevelStandard.Includes(c.Level) && c.Status == validation.StatusFail {
			passed = false
		}
	}
	flags[compliance.FlagStandardValidationPassed] = reachedStandard && passed
	return flags
}
