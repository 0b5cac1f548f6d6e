package main

import (
	"os"
	"time"

	"github.com/JaimeStill/foreman/internal/config"
	"github.com/JaimeStill/foreman/internal/infrastructure"
	"github.com/JaimeStill/foreman/pkg/database"
)

type Server struct {
	infra   *infrastructure.Infrastructure
	modules *Modules
	http    *httpServer
}

// NewServer composes infrastructure and modules. Embedded SQLite databases
// are migrated in place; PostgreSQL schemas are managed by cmd/migrate.
func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg, os.Stderr)
	if err != nil {
		return nil, err
	}

	if cfg.Database.Driver == database.DriverSQLite {
		if err := infra.Migrate(); err != nil {
			return nil, err
		}
	}

	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra)
	modules.Mount(router)

	infra.Logger.Info(
		"server initialized",
		"addr", cfg.Server.Addr(),
		"version", cfg.Version,
		"env", cfg.Env(),
		"config", cfg.Sources(),
		"database", cfg.Database.Driver,
		"storage", cfg.Storage.Backend,
		"editor", cfg.Editor.Backend,
		"modules", router.Prefixes(),
	)
	if cfg.API.OpenAPI.Serve() {
		infra.Logger.Info("openapi document published", "path", cfg.API.BasePath+"/openapi.json")
	}

	return &Server{
		infra:   infra,
		modules: modules,
		http:    newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

func (s *Server) Start() error {
	s.infra.Logger.Info("starting service")

	if err := s.infra.Start(); err != nil {
		return err
	}

	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	go func() {
		s.infra.Lifecycle.WaitForStartup()
		s.infra.Logger.Info("startup complete", "subsystems", s.infra.Lifecycle.Status())
	}()

	return nil
}

func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown")
	return s.infra.Lifecycle.Shutdown(timeout)
}
