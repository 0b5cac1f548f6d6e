package api

import (
	"github.com/JaimeStill/foreman/internal/compliance"
	"github.com/JaimeStill/foreman/internal/config"
	"github.com/JaimeStill/foreman/internal/infrastructure"
	"github.com/JaimeStill/foreman/internal/tax"
	"github.com/JaimeStill/foreman/internal/templates"
	"github.com/JaimeStill/foreman/internal/validation"
	"github.com/JaimeStill/foreman/pkg/pagination"
)

// Runtime extends Infrastructure with the configuration domain systems need.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination   pagination.Config
	Templates    templates.Config
	Tax          tax.Config
	Validation   validation.Config
	Compliance   compliance.Config
	BatchWorkers int
	MaxBatch     int
	MaxListSize  int32
}

// NewRuntime creates a runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	scoped := *infra
	scoped.Logger = infra.Logger.With("module", "api")

	return &Runtime{
		Infrastructure: &scoped,
		Pagination:     cfg.API.Pagination,
		Templates:      cfg.Templates,
		Tax:            cfg.Tax,
		Validation:     cfg.Validation,
		Compliance:     cfg.Compliance,
		BatchWorkers:   cfg.API.BatchWorkers,
		MaxBatch:       cfg.API.MaxBatch,
		MaxListSize:    cfg.Storage.MaxListSize,
	}
}
