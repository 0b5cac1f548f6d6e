package database_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/foreman/pkg/database"
	"github.com/JaimeStill/foreman/pkg/lifecycle"
)

func TestFinalizeDefaults(t *testing.T) {
	cfg := database.Config{Name: "foreman", User: "foreman"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	tests := []struct {
		name     string
		got      any
		expected any
	}{
		{"driver", cfg.Driver, database.DriverPostgres},
		{"path", cfg.Path, "foreman.db"},
		{"host", cfg.Host, "localhost"},
		{"port", cfg.Port, 5432},
		{"ssl_mode", cfg.SSLMode, "disable"},
		{"max_open_conns", cfg.MaxOpenConns, 25},
		{"max_idle_conns", cfg.MaxIdleConns, 5},
		{"conn_max_lifetime", cfg.ConnMaxLifetime, "15m"},
		{"conn_timeout", cfg.ConnTimeout, "5s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %v, want %v", tt.got, tt.expected)
			}
		})
	}
}

func TestFinalizeEnvOverrides(t *testing.T) {
	t.Setenv("TEST_DB_DRIVER", "sqlite")
	t.Setenv("TEST_DB_PATH", "/var/lib/foreman/foreman.db")
	t.Setenv("TEST_DB_PORT", "5433")
	t.Setenv("TEST_DB_MAX_OPEN", "50")
	t.Setenv("TEST_DB_TIMEOUT", "10s")

	env := &database.Env{
		Driver:       "TEST_DB_DRIVER",
		Path:         "TEST_DB_PATH",
		Port:         "TEST_DB_PORT",
		MaxOpenConns: "TEST_DB_MAX_OPEN",
		ConnTimeout:  "TEST_DB_TIMEOUT",
	}

	cfg := database.Config{}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	tests := []struct {
		name     string
		got      any
		expected any
	}{
		{"driver", cfg.Driver, database.DriverSQLite},
		{"path", cfg.Path, "/var/lib/foreman/foreman.db"},
		{"port", cfg.Port, 5433},
		{"max_open_conns", cfg.MaxOpenConns, 50},
		{"conn_timeout", cfg.ConnTimeout, "10s"},
		{"dsn", cfg.Dsn(), "/var/lib/foreman/foreman.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %v, want %v", tt.got, tt.expected)
			}
		})
	}
}

func TestFinalizeValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     database.Config
		wantErr string
	}{
		{"missing name", database.Config{User: "foreman"}, "name required"},
		{"missing user", database.Config{Name: "foreman"}, "user required"},
		{"unknown driver", database.Config{Driver: "mysql"}, `unsupported database driver: "mysql"`},
		{"invalid ssl mode", database.Config{Name: "foreman", User: "foreman", SSLMode: "always"}, `invalid ssl_mode "always"`},
		{"negative pool", database.Config{Driver: database.DriverSQLite, MaxOpenConns: -1}, "invalid pool size"},
		{
			name:    "invalid conn_max_lifetime",
			cfg:     database.Config{Name: "foreman", User: "foreman", ConnMaxLifetime: "bad"},
			wantErr: "invalid conn_max_lifetime",
		},
		{
			name:    "invalid conn_timeout",
			cfg:     database.Config{Driver: database.DriverSQLite, ConnTimeout: "bad"},
			wantErr: "invalid conn_timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := database.Config{Driver: database.DriverPostgres, Host: "localhost", Port: 5432, Name: "basedb", User: "baseuser"}
	base.Merge(&database.Config{Host: "remotehost", Port: 5433, Name: "overlaydb"})

	if base.Host != "remotehost" || base.Port != 5433 || base.Name != "overlaydb" {
		t.Errorf("overlay not applied: %+v", base)
	}
	if base.User != "baseuser" || base.Driver != database.DriverPostgres {
		t.Errorf("zero overlay fields should be preserved: %+v", base)
	}
}

func TestDsn(t *testing.T) {
	cfg := database.Config{
		Driver:   database.DriverPostgres,
		Host:     "localhost",
		Port:     5432,
		Name:     "foreman",
		User:     "foreman",
		Password: "secret",
		SSLMode:  "disable",
	}

	want := "host=localhost port=5432 dbname=foreman user=foreman password=secret sslmode=disable"
	if dsn := cfg.Dsn(); dsn != want {
		t.Errorf("dsn:\ngot  %s\nwant %s", dsn, want)
	}

	cfg.Password = `it's a secret`
	want = `host=localhost port=5432 dbname=foreman user=foreman password='it\'s a secret' sslmode=disable`
	if dsn := cfg.Dsn(); dsn != want {
		t.Errorf("quoted dsn:\ngot  %s\nwant %s", dsn, want)
	}

	cfg.Password = ""
	if dsn := cfg.Dsn(); strings.Contains(dsn, "password=") {
		t.Errorf("empty password should be omitted: %s", dsn)
	}
}

func TestDurationParsers(t *testing.T) {
	cfg := database.Config{ConnMaxLifetime: "15m", ConnTimeout: "5s"}

	if d := cfg.ConnMaxLifetimeDuration(); d != 15*time.Minute {
		t.Errorf("conn_max_lifetime: got %v, want 15m", d)
	}
	if d := cfg.ConnTimeoutDuration(); d != 5*time.Second {
		t.Errorf("conn_timeout: got %v, want 5s", d)
	}
}

func TestNewPostgresSetsPoolParams(t *testing.T) {
	cfg := database.Config{
		Driver:          database.DriverPostgres,
		Host:            "localhost",
		Port:            5432,
		Name:            "foreman",
		User:            "foreman",
		SSLMode:         "disable",
		MaxOpenConns:    42,
		MaxIdleConns:    7,
		ConnMaxLifetime: "10m",
		ConnTimeout:     "3s",
	}

	sys, err := database.New(&cfg, slog.Default())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	conn := sys.Connection()
	defer conn.Close()

	if sys.Driver() != database.DriverPostgres {
		t.Errorf("Driver() = %q", sys.Driver())
	}
	if got := conn.Stats().MaxOpenConnections; got != 42 {
		t.Errorf("MaxOpenConnections = %d, want 42", got)
	}
}

func TestNewSQLite(t *testing.T) {
	cfg := database.Config{Driver: database.DriverSQLite, Path: ":memory:", ConnTimeout: "2s"}

	sys, err := database.New(&cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	conn := sys.Connection()

	if got := conn.Stats().MaxOpenConnections; got != 1 {
		t.Errorf("MaxOpenConnections = %d, want 1", got)
	}

	var fk int
	if err := conn.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}

	lc := lifecycle.New()
	if err := sys.Start(lc); err != nil {
		t.Fatalf("Start: %v", err)
	}
	lc.WaitForStartup()
	if !sys.Ready() || !lc.Ready() || !lc.Status()["database"] {
		t.Errorf("database not ready after startup: %v", lc.Status())
	}
	if err := lc.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := conn.Ping(); err == nil {
		t.Error("connection should be closed after shutdown")
	}
	if sys.Ready() {
		t.Error("ready after shutdown")
	}
	if err := sys.Check(context.Background()); !errors.Is(err, database.ErrNotReady) {
		t.Errorf("Check() after close = %v, want ErrNotReady", err)
	}
}
