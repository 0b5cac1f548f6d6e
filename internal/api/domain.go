package api

import (
	"fmt"

	"github.com/JaimeStill/foreman/internal/assembly"
	"github.com/JaimeStill/foreman/internal/compliance"
	"github.com/JaimeStill/foreman/internal/documents"
	"github.com/JaimeStill/foreman/internal/generation"
	"github.com/JaimeStill/foreman/internal/history"
	"github.com/JaimeStill/foreman/internal/templates"
	"github.com/JaimeStill/foreman/internal/validation"
	"github.com/JaimeStill/foreman/internal/workflow"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Templates  *templates.Repository
	Session    *generation.Session
	Documents  documents.System
	History    history.System
	Enforcer   *compliance.Enforcer
	Validation *validation.Pipeline
	Workflow   *workflow.Runtime
}

// NewDomain creates all domain systems from the runtime. Templates that fail
// to load are logged and skipped; a protocol file that fails to load is an error.
func NewDomain(runtime *Runtime) (*Domain, error) {
	db := runtime.Database.Connection()

	repo := templates.NewRepository(runtime.Templates, runtime.Logger)
	if _, err := repo.Discover(runtime.Templates.Dir); err != nil {
		runtime.Logger.Warn("template discovery incomplete", "dir", runtime.Templates.Dir, "error", err)
	}

	registry, err := runtime.Compliance.Load()
	if err != nil {
		return nil, fmt.Errorf("load protocol: %w", err)
	}

	session := generation.NewSession(
		assembly.New(nil, runtime.Logger),
		runtime.Tax.Rules().Func(),
		runtime.Logger,
	)

	docs := documents.New(db, runtime.Storage, runtime.Logger, runtime.Pagination)
	hist := history.New(db, runtime.Database.Driver(), runtime.Logger, runtime.Pagination)
	enforcer := compliance.NewEnforcer(registry, hist, runtime.Logger)

	pipeline := validation.New(
		docs,
		repo,
		validation.Options{
			Editor:   runtime.Editor,
			Judge:    runtime.Judge,
			Recorder: hist,
		},
		runtime.Validation,
		runtime.Logger,
	)

	return &Domain{
		Templates:  repo,
		Session:    session,
		Documents:  docs,
		History:    hist,
		Enforcer:   enforcer,
		Validation: pipeline,
		Workflow: &workflow.Runtime{
			Templates:  repo,
			Session:    session,
			Documents:  docs,
			Validation: pipeline,
			Enforcer:   enforcer,
			Logger:     runtime.Logger,
			Workers:    runtime.BatchWorkers,
			MaxBatch:   runtime.MaxBatch,
		},
	}, nil
}
