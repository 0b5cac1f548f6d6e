package api

import (
	"net/http"

	"github.com/JaimeStill/foreman/internal/compliance"
	"github.com/JaimeStill/foreman/internal/templates"
	"github.com/JaimeStill/foreman/internal/validation"
	"github.com/JaimeStill/foreman/internal/workflow"
	"github.com/JaimeStill/foreman/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	runtime *Runtime,
) []routes.Group {
	logger := runtime.Logger

	groups := []routes.Group{
		templates.NewHandler(domain.Templates, logger).Routes(),
		domain.Documents.Handler().Routes(),
		validation.NewHandler(domain.Validation, domain.History, logger).Routes(),
		domain.History.Handler().Routes(),
		compliance.NewHandler(domain.Enforcer, logger).Routes(),
		workflow.NewHandler(domain.Workflow, logger).Routes(),
		newStorageHandler(runtime.Storage, logger, runtime.MaxListSize).routes(),
	}

	routes.Register(mux, groups...)
	return groups
}
