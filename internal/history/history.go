// Package history is the append-only store of validation results and
// compliance violations. Violations form a SHA-256 hash chain in insertion
// order so tampering with stored rows is detectable.
package history

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/foreman/internal/compliance"
	"github.com/JaimeStill/foreman/internal/validation"
	"github.com/JaimeStill/foreman/pkg/pagination"
)

// System defines the history store.
type System interface {
	Handler() *Handler

	RecordResult(ctx context.Context, r *validation.Result) error
	Results(ctx context.Context, documentID uuid.UUID) ([]validation.Result, error)

	RecordViolation(ctx context.Context, v *compliance.Violation) error
	Violations(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[compliance.Violation], error)
	VerifyChain(ctx context.Context) (*ChainReport, error)
}

// ChainReport is the outcome of verifying the violation hash chain.
type ChainReport struct {
	Verified bool   `json:"verified"`
	Count    int    `json:"count"`
	Head     string `json:"head,omitempty"`
	BrokenAt int64  `json:"broken_at,omitempty"`
	Reason   string `json:"reason,omitempty"`
}
