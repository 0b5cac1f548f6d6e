package infrastructure_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/foreman/internal/config"
	"github.com/JaimeStill/foreman/internal/editor"
	"github.com/JaimeStill/foreman/internal/infrastructure"
	"github.com/JaimeStill/foreman/pkg/storage"
)

func embeddedConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Embedded(dir)
	cfg.Editor.Backend = editor.BackendNone
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return cfg, dir
}

func TestNew(t *testing.T) {
	cfg, _ := embeddedConfig(t)

	infra, err := infrastructure.New(cfg, io.Discard)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer infra.Close()

	if infra.Lifecycle == nil || infra.Logger == nil {
		t.Error("missing lifecycle or logger")
	}
	if infra.Database == nil || infra.Database.Connection() == nil {
		t.Error("missing database")
	}
	if infra.Database.Driver() != "sqlite" {
		t.Errorf("driver = %s, want sqlite", infra.Database.Driver())
	}
	if infra.Storage == nil || infra.Editor == nil || infra.Judge == nil {
		t.Error("missing storage, editor or judge")
	}
}

func TestNewLogging(t *testing.T) {
	cfg, _ := embeddedConfig(t)
	cfg.Logging.Format = config.FormatJSON
	cfg.Logging.Level = "debug"

	var buf bytes.Buffer
	infra, err := infrastructure.New(cfg, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer infra.Close()

	infra.Logger.Debug("registered", "system", "test")
	if !strings.Contains(buf.String(), `"msg":"registered"`) {
		t.Errorf("logger did not honour config: %s", buf.String())
	}
}

func TestNewInvalidStorage(t *testing.T) {
	cfg, _ := embeddedConfig(t)
	cfg.Storage.Backend = storage.BackendAzure
	cfg.Storage.ConnectionString = "not-a-connection-string"

	if _, err := infrastructure.New(cfg, io.Discard); err == nil {
		t.Fatal("expected error for invalid storage connection string")
	}
}

func TestStartAndMigrate(t *testing.T) {
	cfg, dir := embeddedConfig(t)

	infra, err := infrastructure.New(cfg, io.Discard)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := infra.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := infra.Migrate(); err != nil {
		t.Fatalf("second Migrate() should be a no-op: %v", err)
	}

	if err := infra.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	infra.Lifecycle.WaitForStartup()

	if _, err := os.Stat(filepath.Join(dir, "artifacts")); err != nil {
		t.Errorf("storage root not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "foreman.db")); err != nil {
		t.Errorf("database file not created: %v", err)
	}

	if err := infra.Lifecycle.Shutdown(5 * time.Second); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
