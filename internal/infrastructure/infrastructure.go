// Package infrastructure builds the shared systems every foreman surface
// runs on: logging, the database pool, artifact storage, the serialized
// editor and the vision judge.
package infrastructure

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/JaimeStill/foreman/internal/config"
	"github.com/JaimeStill/foreman/internal/editor"
	"github.com/JaimeStill/foreman/internal/migrations"
	"github.com/JaimeStill/foreman/internal/vision"
	"github.com/JaimeStill/foreman/pkg/database"
	"github.com/JaimeStill/foreman/pkg/lifecycle"
	"github.com/JaimeStill/foreman/pkg/storage"
)

type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	Editor    *editor.Serialized
	Judge     vision.Judge

	backend editor.Editor
}

// starter attaches one subsystem to the lifecycle coordinator.
type starter struct {
	name  string
	start func(*lifecycle.Coordinator) error
}

// New wires every system from cfg with logs written to w. Nothing is
// started until Start; short-lived commands call Close instead.
func New(cfg *config.Config, w io.Writer) (*Infrastructure, error) {
	logger := cfg.Logging.NewLogger(w)

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		db.Connection().Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}

	backend := editor.New(&cfg.Editor, logger)

	return &Infrastructure{
		Lifecycle: lifecycle.New(),
		Logger:    logger,
		Database:  db,
		Storage:   store,
		Editor:    editor.Serialize(backend, cfg.Editor.CallTimeoutDuration()),
		Judge:     vision.NewAgent(cfg.Agent, logger),
		backend:   backend,
	}, nil
}

func (i *Infrastructure) starters() []starter {
	s := []starter{
		{"database", i.Database.Start},
		{"storage", i.Storage.Start},
	}
	if chrome, ok := i.backend.(*editor.Chrome); ok {
		s = append(s, starter{"editor", chrome.Start})
	}
	return s
}

// Start registers each system with the lifecycle coordinator in dependency
// order and stops at the first failure.
func (i *Infrastructure) Start() error {
	for _, s := range i.starters() {
		if err := s.start(i.Lifecycle); err != nil {
			return fmt.Errorf("start %s: %w", s.name, err)
		}
		i.Logger.Debug("system registered", "system", s.name)
	}
	return nil
}

func (i *Infrastructure) Migrate() error {
	if err := migrations.Up(i.Database.Connection(), i.Database.Driver()); err != nil {
		return fmt.Errorf("migrate %s: %w", i.Database.Driver(), err)
	}
	return nil
}

// Close releases the browser and the database pool without going through
// the lifecycle coordinator.
func (i *Infrastructure) Close() {
	if chrome, ok := i.backend.(*editor.Chrome); ok {
		chrome.Shutdown()
	}
	if err := i.Database.Connection().Close(); err != nil {
		i.Logger.Error("database close failed", "error", err)
	}
}
