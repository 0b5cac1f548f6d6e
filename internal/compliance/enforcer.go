package compliance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrBlocked is returned when a violation blocks an operation.
var ErrBlocked = errors.New("operation blocked by compliance rule")

// BlockedError lists the violations that blocked an operation.
type BlockedError struct {
	Operation  Operation
	Phase      Phase
	Violations []Violation
}

func (e *BlockedError) Error() string {
	ids := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		if v.Blocked {
			ids = append(ids, v.RuleID)
		}
	}
	return fmt.Sprintf("%s %s blocked by %s", e.Operation, e.Phase, strings.Join(ids, ", "))
}

func (e *BlockedError) Unwrap() error { return ErrBlocked }

// Sink persists violations.
type Sink interface {
	RecordViolation(ctx context.Context, v *Violation) error
}

// Outcome is the result of evaluating rules for one phase.
type Outcome struct {
	Phase      Phase       `json:"phase"`
	Violations []Violation `json:"violations"`
	Blocked    bool        `json:"blocked"`
}

// Enforcer evaluates registry rules around operations and records every
// violation. It is safe for concurrent use.
type Enforcer struct {
	registry *Registry
	sink     Sink
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewEnforcer creates an Enforcer. A nil sink keeps violations in metrics and
// logs only.
func NewEnforcer(registry *Registry, sink Sink, logger *slog.Logger) *Enforcer {
	return &Enforcer{
		registry: registry,
		sink:     sink,
		metrics:  NewMetrics(),
		logger:   logger.With("system", "compliance"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Registry returns the rules in force.
func (e *Enforcer) Registry() *Registry { return e.registry }

// Metrics returns the enforcer's running totals.
func (e *Enforcer) Metrics() *Metrics { return e.metrics }

// Check evaluates the rules for opctx.Operation at phase and records each
// violation. A blocking violation yields a *BlockedError alongside the outcome.
func (e *Enforcer) Check(ctx context.Context, phase Phase, opctx *Context) (*Outcome, error) {
	out := &Outcome{Phase: phase, Violations: make([]Violation, 0)}

	for _, rule := range e.registry.For(opctx.Operation, phase) {
		ok, msg := predicates[rule.Check](opctx)
		if ok {
			continue
		}

		v := Violation{
			ID:         uuid.New(),
			RuleID:     rule.ID,
			Severity:   rule.Severity,
			Action:     rule.Action,
			Operation:  opctx.Operation,
			Phase:      phase,
			DocumentID: opctx.DocumentID,
			TemplateID: opctx.TemplateID,
			Message:    msg,
			Blocked:    rule.Blocks(*opctx),
			Context:    opctx.snapshot(),
			OccurredAt: e.now(),
		}

		if e.sink != nil {
			if err := e.sink.RecordViolation(ctx, &v); err != nil {
				return out, fmt.Errorf("record violation %s: %w", rule.ID, err)
			}
		}
		e.metrics.violation(v)

		level := slog.LevelWarn
		if v.Blocked {
			level = slog.LevelError
		}
		e.logger.Log(ctx, level, "compliance violation",
			"rule", v.RuleID,
			"severity", v.Severity,
			"operation", v.Operation,
			"phase", v.Phase,
			"document", v.DocumentID,
			"template", v.TemplateID,
			"blocked", v.Blocked,
			"message", v.Message,
		)

		out.Violations = append(out.Violations, v)
		out.Blocked = out.Blocked || v.Blocked
	}

	if out.Blocked {
		return out, &BlockedError{Operation: opctx.Operation, Phase: phase, Violations: out.Violations}
	}
	return out, nil
}

// Report combines the outcomes of a wrapped operation.
type Report struct {
	Operation Operation `json:"operation"`
	Pre       *Outcome  `json:"pre"`
	Post      *Outcome  `json:"post,omitempty"`
	Executed  bool      `json:"executed"`
	Blocked   bool      `json:"blocked"`
}

// Violations returns all violations from both phases.
func (r *Report) Violations() []Violation {
	var out []Violation
	if r.Pre != nil {
		out = append(out, r.Pre.Violations...)
	}
	if r.Post != nil {
		out = append(out, r.Post.Violations...)
	}
	return out
}

// Run wraps op with pre and post rule evaluation. A blocking pre violation
// prevents op from running. Post rules always run once op has executed and
// observe its error through opctx.Err. The returned error joins op's error
// with any *BlockedError.
func (e *Enforcer) Run(ctx context.Context, opctx *Context, op func(ctx context.Context, opctx *Context) error) (*Report, error) {
	report := &Report{Operation: opctx.Operation}

	pre, err := e.Check(ctx, PhasePre, opctx)
	report.Pre = pre
	if err != nil {
		report.Blocked = pre.Blocked
		e.metrics.operation(report)
		return report, err
	}

	opErr := op(ctx, opctx)
	report.Executed = true
	opctx.Err = opErr

	post, postErr := e.Check(ctx, PhasePost, opctx)
	report.Post = post
	report.Blocked = post.Blocked

	e.metrics.operation(report)
	return report, errors.Join(opErr, postErr)
}
