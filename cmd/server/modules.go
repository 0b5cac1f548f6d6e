package main

import (
	"net/http"

	"github.com/JaimeStill/foreman/internal/api"
	"github.com/JaimeStill/foreman/internal/config"
	"github.com/JaimeStill/foreman/internal/infrastructure"
	"github.com/JaimeStill/foreman/pkg/handlers"
	"github.com/JaimeStill/foreman/pkg/module"
)

type Modules struct {
	API *module.Module
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Modules{API: apiModule}, nil
}

func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
}

type readiness struct {
	Status     string          `json:"status"`
	Subsystems map[string]bool `json:"subsystems,omitempty"`
}

// buildRouter registers the health endpoints served outside any module. /readyz lists
// each tracked subsystem so an operator can see which one is holding it back.
func buildRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, readiness{Status: "ok"})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		body := readiness{Status: "ready", Subsystems: infra.Lifecycle.Status()}
		if !infra.Lifecycle.Ready() {
			body.Status = "not ready"
			handlers.RespondJSON(w, http.StatusServiceUnavailable, body)
			return
		}
		handlers.RespondJSON(w, http.StatusOK, body)
	})

	return router
}
