// Package validation checks stored documents at four escalating levels.
// Invoking a level runs every earlier level first and stops at the first
// level with a failing check.
package validation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Level is a validation depth.
type Level string

const (
	LevelBasic         Level = "basic"
	LevelStandard      Level = "standard"
	LevelComprehensive Level = "comprehensive"
	LevelProduction    Level = "production"
)

// Levels lists every level in escalation order.
var Levels = []Level{LevelBasic, LevelStandard, LevelComprehensive, LevelProduction}

var ErrUnknownLevel = errors.New("unknown validation level")

// ParseLevel parses a level name, case-insensitively.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	if l.rank() < 0 {
		return "", fmt.Errorf("%w: %q", ErrUnknownLevel, s)
	}
	return l, nil
}

func (l Level) rank() int {
	for i, level := range Levels {
		if level == l {
			return i
		}
	}
	return -1
}

// Includes reports whether running l also runs other.
func (l Level) Includes(other Level) bool {
	return other.rank() >= 0 && other.rank() <= l.rank()
}

// Status is the outcome of a check or a whole result.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
	StatusSkip Status = "skip"
)

// Check is the outcome of one named check.
type Check struct {
	Name    string            `json:"name"`
	Level   Level             `json:"level"`
	Status  Status            `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// Result is one validation run over a document.
type Result struct {
	ID            uuid.UUID `json:"id"`
	DocumentID    uuid.UUID `json:"document_id"`
	Level         Level     `json:"level"`
	OverallStatus Status    `json:"overall_status"`
	Checks        []Check   `json:"checks"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// Passed reports whether no executed check failed.
func (r *Result) Passed() bool {
	return r.OverallStatus == StatusPass || r.OverallStatus == StatusWarn
}

// Check returns the named check.
func (r *Result) Check(name string) (Check, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return Check{}, false
}

// Reached returns the highest level with at least one executed check.
func (r *Result) Reached() Level {
	reached := Level("")
	for _, c := range r.Checks {
		if c.Level.rank() > reached.rank() {
			reached = c.Level
		}
	}
	return reached
}

// overall derives the aggregate status: fail if any check failed, warn if any
// warned, otherwise pass.
func overall(checks []Check) Status {
	status := StatusPass
	for _, c := range checks {
		switch c.Status {
		case StatusFail:
			return StatusFail
		case StatusWarn:
			status = StatusWarn
		}
	}
	return status
}

// Recorder persists validation results.
type Recorder interface {
	RecordResult(ctx context.Context, r *Result) error
}
