// Package workflow runs the estimate workflow: generate a document from a
// template, persist it, validate it and optionally deliver it. Every step is
// wrapped by the compliance enforcer and the steps form a state graph
// (generate → persist → validate → deliver? → finalize).
package workflow

import (
	"errors"
	"time"

	"github.com/JaimeStill/foreman/internal/assembly"
	"github.com/JaimeStill/foreman/internal/compliance"
	"github.com/JaimeStill/foreman/internal/documents"
	"github.com/JaimeStill/foreman/internal/generation"
	"github.com/JaimeStill/foreman/internal/validation"
)

// State keys carried between workflow nodes.
const (
	KeyRequest    = "request"
	KeyDocument   = "document"
	KeyRecord     = "record"
	KeyValidation = "validation"
	KeyDelivered  = "delivered"
	KeyReports    = "reports"
	KeyErr        = "error"
)

// Request describes one estimate to produce.
type Request struct {
	TemplateID   string            `json:"template_id"`
	Binding      assembly.Binding  `json:"binding"`
	Kind         generation.Kind   `json:"kind,omitempty"`
	Jurisdiction string            `json:"jurisdiction,omitempty"`
	Header       generation.Header `json:"header,omitzero"`

	// Level is the validation depth; standard when empty.
	Level   validation.Level `json:"level,omitempty"`
	Deliver bool             `json:"deliver,omitempty"`

	Scenario        string `json:"scenario,omitempty"`
	SkipValidation  bool   `json:"skip_validation,omitempty"`
	DeferValidation bool   `json:"defer_validation,omitempty"`
	Override        bool   `json:"override,omitempty"`
}

func (r Request) level() validation.Level {
	if r.Level == "" {
		return validation.LevelStandard
	}
	return r.Level
}

func (r Request) context(op compliance.Operation) *compliance.Context {
	opctx := &compliance.Context{
		Operation:  op,
		TemplateID: r.TemplateID,
		Scenario:   r.Scenario,
		Override:   r.Override,
	}
	opctx.SetFlag(compliance.FlagSkipValidation, r.SkipValidation)
	opctx.SetFlag(compliance.FlagDeferValidation, r.DeferValidation)
	return opctx
}

// Result is the outcome of one workflow execution. Steps after a failed or
// blocked step do not run; Error names the step that stopped the workflow.
type Result struct {
	Document    *documents.Record    `json:"document,omitempty"`
	Validation  *validation.Result   `json:"validation,omitempty"`
	Delivered   bool                 `json:"delivered"`
	Compliance  []*compliance.Report `json:"compliance"`
	Error       string               `json:"error,omitempty"`
	CompletedAt time.Time            `json:"completed_at"`

	err error
}

// Err returns the error that stopped the workflow, if any.
func (r *Result) Err() error {
	return r.err
}

// Blocked reports whether a compliance rule stopped the workflow.
func (r *Result) Blocked() bool {
	return errors.Is(r.err, compliance.ErrBlocked)
}

// Violations returns every violation raised during the execution.
func (r *Result) Violations() []compliance.Violation {
	var out []compliance.Violation
	for _, report := range r.Compliance {
		out = append(out, report.Violations()...)
	}
	return out
}
