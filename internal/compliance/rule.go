// Package compliance wraps operations with pre- and post-condition rules.
// Every failing rule yields a recorded Violation; severity decides whether
// the operation proceeds.
package compliance

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Severity determines the effect of a failing rule.
type Severity string

const (
	// SeverityAdvisory records the violation and proceeds.
	SeverityAdvisory Severity = "advisory"
	// SeverityEnforced records and blocks unless the context carries an override.
	SeverityEnforced Severity = "enforced"
	// SeverityStrict records and always blocks.
	SeverityStrict Severity = "strict"
)

// Action is the declared response to a violation.
type Action string

const (
	ActionWarn  Action = "warn"
	ActionBlock Action = "block"
)

// Phase is when a rule is evaluated relative to the wrapped operation.
type Phase string

const (
	PhasePre  Phase = "pre"
	PhasePost Phase = "post"
)

// Operation identifies a kind of monitored operation.
type Operation string

const (
	OpDocumentGeneration Operation = "document_generation"
	OpTemplateProcessing Operation = "template_processing"
	OpVisualValidation   Operation = "visual_validation"
	OpFileOperations     Operation = "file_operations"
	OpEditorOperations   Operation = "editor_operations"
	OpDocumentDelivery   Operation = "document_delivery"
)

// Operations lists every known operation.
var Operations = []Operation{
	OpDocumentGeneration,
	OpTemplateProcessing,
	OpVisualValidation,
	OpFileOperations,
	OpEditorOperations,
	OpDocumentDelivery,
}

// Rule is a named predicate bound to an operation and phase.
type Rule struct {
	ID          string    `yaml:"id" json:"id"`
	Operation   Operation `yaml:"operation" json:"operation"`
	Phase       Phase     `yaml:"phase" json:"phase"`
	Severity    Severity  `yaml:"severity" json:"severity"`
	Action      Action    `yaml:"action" json:"action"`
	Check       string    `yaml:"check" json:"check"`
	Description string    `yaml:"description" json:"description"`
}

// Blocks reports whether a failure of r blocks the operation under opctx.
func (r Rule) Blocks(opctx Context) bool {
	switch r.Severity {
	case SeverityStrict:
		return true
	case SeverityEnforced:
		return !opctx.Override
	default:
		return false
	}
}

func (r *Rule) normalize() error {
	if r.ID == "" {
		return fmt.Errorf("rule missing id")
	}
	if !knownOperation(r.Operation) {
		return fmt.Errorf("rule %s: unknown operation %q", r.ID, r.Operation)
	}
	switch r.Phase {
	case PhasePre, PhasePost:
	default:
		return fmt.Errorf("rule %s: unknown phase %q", r.ID, r.Phase)
	}
	if _, ok := predicates[r.Check]; !ok {
		return fmt.Errorf("rule %s: unknown check %q", r.ID, r.Check)
	}

	switch r.Severity {
	case SeverityAdvisory:
		if r.Action == "" {
			r.Action = ActionWarn
		}
		if r.Action != ActionWarn {
			return fmt.Errorf("rule %s: advisory rules cannot %s", r.ID, r.Action)
		}
	case SeverityEnforced:
		if r.Action == "" {
			r.Action = ActionBlock
		}
		if r.Action != ActionBlock {
			return fmt.Errorf("rule %s: enforced rules block unless overridden", r.ID)
		}
	case SeverityStrict:
		if r.Action == "" {
			r.Action = ActionBlock
		}
		if r.Action != ActionBlock {
			return fmt.Errorf("rule %s: strict rules always block", r.ID)
		}
	default:
		return fmt.Errorf("rule %s: unknown severity %q", r.ID, r.Severity)
	}
	return nil
}

func knownOperation(op Operation) bool {
	return slices.Contains(Operations, op)
}

// Violation is the recorded failure of one rule for one operation.
// Seq, PrevHash and Hash are assigned by the history store.
type Violation struct {
	Seq        int64             `json:"seq"`
	ID         uuid.UUID         `json:"id"`
	RuleID     string            `json:"rule_id"`
	Severity   Severity          `json:"severity"`
	Action     Action            `json:"action"`
	Operation  Operation         `json:"operation"`
	Phase      Phase             `json:"phase"`
	DocumentID string            `json:"document_id,omitempty"`
	TemplateID string            `json:"template_id,omitempty"`
	Message    string            `json:"message"`
	Blocked    bool              `json:"blocked"`
	Context    map[string]string `json:"context"`
	OccurredAt time.Time         `json:"occurred_at"`
	PrevHash   string            `json:"prev_hash,omitempty"`
	Hash       string            `json:"hash,omitempty"`
}
