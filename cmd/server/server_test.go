package main

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/JaimeStill/foreman/internal/config"
	"github.com/JaimeStill/foreman/internal/editor"
	"github.com/JaimeStill/foreman/internal/infrastructure"
	"github.com/JaimeStill/foreman/pkg/lifecycle"
)

func testInfra(t *testing.T) *infrastructure.Infrastructure {
	t.Helper()
	cfg := config.Embedded(t.TempDir())
	cfg.Templates.Dir = filepath.Join("..", "..", "templates")
	cfg.Editor.Backend = editor.BackendNone
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	infra, err := infrastructure.New(cfg, io.Discard)
	if err != nil {
		t.Fatalf("infrastructure.New: %v", err)
	}
	t.Cleanup(infra.Close)
	return infra
}

func TestHealthEndpoints(t *testing.T) {
	infra := testInfra(t)
	router := buildRouter(infra)

	get := func(path string) (int, readiness) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		var body readiness
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
		return rec.Code, body
	}

	if code, body := get("/healthz"); code != http.StatusOK || body.Status != "ok" {
		t.Errorf("healthz = %d %+v", code, body)
	}

	if code, body := get("/readyz"); code != http.StatusServiceUnavailable || body.Status != "not ready" {
		t.Errorf("readyz before startup = %d %+v", code, body)
	}

	if err := infra.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	infra.Lifecycle.WaitForStartup()

	code, body := get("/readyz")
	if code != http.StatusOK || body.Status != "ready" {
		t.Errorf("readyz after startup = %d %+v", code, body)
	}
	if !body.Subsystems["database"] {
		t.Errorf("subsystems = %v", body.Subsystems)
	}
}

func TestHTTPServerAddressInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	cfg := &config.ServerConfig{Host: "127.0.0.1", Port: port}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	srv := newHTTPServer(cfg, http.NotFoundHandler(), testInfra(t).Logger)
	if err := srv.Start(lifecycle.New()); err == nil {
		t.Fatal("Start should fail when the port is taken")
	}
	if srv.Ready() {
		t.Error("server reported ready without a listener")
	}
}

func TestHTTPServerLifecycle(t *testing.T) {
	cfg := &config.ServerConfig{Host: "127.0.0.1", Port: freePort(t)}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	lc := lifecycle.New()
	srv := newHTTPServer(cfg, http.NotFoundHandler(), testInfra(t).Logger)
	if err := srv.Start(lc); err != nil {
		t.Fatalf("Start: %v", err)
	}
	lc.WaitForStartup()

	if !lc.Status()["http"] {
		t.Errorf("status = %v", lc.Status())
	}
	if err := lc.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if _, err := net.DialTimeout("tcp", cfg.Addr(), time.Second); err == nil {
		t.Error("server still accepting connections after shutdown")
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}
