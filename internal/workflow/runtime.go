package workflow

import (
	"log/slog"

	"github.com/JaimeStill/foreman/internal/compliance"
	"github.com/JaimeStill/foreman/internal/documents"
	"github.com/JaimeStill/foreman/internal/generation"
	"github.com/JaimeStill/foreman/internal/templates"
	"github.com/JaimeStill/foreman/internal/validation"
)

// Runtime bundles the dependencies that workflow nodes require.
// It is constructed by higher-level composition code from Infrastructure and Domain systems.
type Runtime struct {
	Templates  *templates.Repository
	Session    *generation.Session
	Documents  documents.System
	Validation *validation.Pipeline
	Enforcer   *compliance.Enforcer
	Logger     *slog.Logger

	// Workers bounds ExecuteBatch concurrency; zero uses the CPU count.
	Workers int
	// MaxBatch caps the requests accepted by one batch; zero uses DefaultMaxBatch.
	MaxBatch int
}

func (rt *Runtime) batchLimit() int {
	if rt.MaxBatch > 0 {
		return rt.MaxBatch
	}
	return DefaultMaxBatch
}
