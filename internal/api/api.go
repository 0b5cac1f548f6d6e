// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/foreman/internal/config"
	"github.com/JaimeStill/foreman/internal/infrastructure"
	"github.com/JaimeStill/foreman/pkg/middleware"
	"github.com/JaimeStill/foreman/pkg/module"
	"github.com/JaimeStill/foreman/pkg/openapi"
)

// NewModule creates the API module with all domain handlers and middleware.
// Template watching, when enabled, runs until the lifecycle shuts down.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)

	domain, err := NewDomain(runtime)
	if err != nil {
		return nil, err
	}

	if cfg.Templates.Watch {
		if err := domain.Templates.Watch(runtime.Lifecycle.Context()); err != nil {
			return nil, fmt.Errorf("watch templates: %w", err)
		}
	}

	mux := http.NewServeMux()
	groups := registerRoutes(mux, domain, runtime)

	if cfg.API.OpenAPI.Serve() {
		spec, err := buildSpec(cfg, groups)
		if err != nil {
			return nil, fmt.Errorf("build openapi spec: %w", err)
		}
		mux.HandleFunc("GET /openapi.json", openapi.ServeSpec(spec))
	}

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.MaxBytes(cfg.API.MaxBodySizeBytes()))
	m.Use(middleware.Logger(runtime.Logger))

	return m, nil
}
