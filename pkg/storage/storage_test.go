package storage_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/JaimeStill/foreman/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newLocal(t *testing.T) storage.System {
	t.Helper()
	sys, err := storage.New(&storage.Config{Backend: storage.BackendLocal, Root: t.TempDir()}, discard())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return sys
}

func TestFinalize(t *testing.T) {
	t.Setenv("TEST_STORAGE_BACKEND", "local")
	t.Setenv("TEST_STORAGE_MAX_LIST", "9999")

	cfg := storage.Config{}
	err := cfg.Finalize(&storage.Env{Backend: "TEST_STORAGE_BACKEND", MaxListSize: "TEST_STORAGE_MAX_LIST"})
	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.Backend != storage.BackendLocal {
		t.Errorf("backend = %q, want local", cfg.Backend)
	}
	if cfg.Root != "artifacts" || cfg.ContainerName != "documents" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.MaxListSize != storage.MaxListCap {
		t.Errorf("max_list_size = %d, want clamped to %d", cfg.MaxListSize, storage.MaxListCap)
	}
}

func TestFinalizeValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     storage.Config
		wantErr string
	}{
		{"azure without connection string", storage.Config{}, "connection_string required"},
		{"unknown backend", storage.Config{Backend: "s3"}, `unsupported backend "s3"`},
		{"negative list size", storage.Config{Backend: storage.BackendLocal, MaxListSize: -5}, "max_list_size must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Finalize() = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestFinalizeClampsConfiguredListSize(t *testing.T) {
	cfg := storage.Config{Backend: storage.BackendLocal, MaxListSize: 10000}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}
	if cfg.MaxListSize != storage.MaxListCap {
		t.Errorf("max_list_size = %d, want %d", cfg.MaxListSize, storage.MaxListCap)
	}
}

func TestMerge(t *testing.T) {
	base := storage.Config{Backend: storage.BackendAzure, ContainerName: "documents", ConnectionString: "base"}
	base.Merge(&storage.Config{ConnectionString: "overlay"})

	if base.ConnectionString != "overlay" || base.ContainerName != "documents" || base.Backend != storage.BackendAzure {
		t.Errorf("merge result = %+v", base)
	}
}

func TestNewAzure(t *testing.T) {
	sys, err := storage.New(&storage.Config{ContainerName: "documents", ConnectionString: azuriteConnString}, discard())
	if err != nil || sys == nil {
		t.Fatalf("New() = %v, %v", sys, err)
	}

	_, err = storage.New(&storage.Config{ContainerName: "documents", ConnectionString: "not-a-connection-string"}, discard())
	if err == nil {
		t.Error("expected error for invalid connection string")
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", storage.ErrNotFound, http.StatusNotFound},
		{"empty key", storage.ErrEmptyKey, http.StatusBadRequest},
		{"invalid key", storage.ErrInvalidKey, http.StatusBadRequest},
		{"invalid max results", storage.ErrInvalidMaxResults, http.StatusBadRequest},
		{"wrapped not found", fmt.Errorf("download: %w", storage.ErrNotFound), http.StatusNotFound},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := storage.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseMaxResults(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		fallback int32
		want     int32
		wantErr  bool
	}{
		{"empty returns fallback", "", 50, 50, false},
		{"valid value within cap", "100", 50, 100, false},
		{"value exceeding cap is clamped", "9999", 50, storage.MaxListCap, false},
		{"zero is invalid", "0", 50, 0, true},
		{"negative is invalid", "-1", 50, 0, true},
		{"non-numeric is invalid", "abc", 50, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := storage.ParseMaxResults(tt.input, tt.fallback)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseMaxResults(%q) expected error", tt.input)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseMaxResults(%q) = %d, %v, want %d", tt.input, got, err, tt.want)
			}
		})
	}
}

func TestKeyValidation(t *testing.T) {
	backends := map[string]storage.System{"local": newLocal(t)}
	azure, err := storage.New(&storage.Config{ContainerName: "documents", ConnectionString: azuriteConnString}, discard())
	if err != nil {
		t.Fatal(err)
	}
	backends["azure"] = azure

	keys := []struct {
		key  string
		want error
	}{
		{"", storage.ErrEmptyKey},
		{"documents/../secrets/key", storage.ErrInvalidKey},
		{"/documents/abc/record.json", storage.ErrInvalidKey},
		{"documents//record.json", storage.ErrInvalidKey},
		{"documents/./record.json", storage.ErrInvalidKey},
		{"documents\\abc\\record.json", storage.ErrInvalidKey},
		{"documents/abc/", storage.ErrInvalidKey},
	}

	ctx := context.Background()
	for name, sys := range backends {
		for _, tt := range keys {
			t.Run(name+"/"+tt.key, func(t *testing.T) {
				if err := sys.Upload(ctx, tt.key, bytes.NewReader(nil), "text/html"); !errors.Is(err, tt.want) {
					t.Errorf("Upload() = %v, want %v", err, tt.want)
				}
				if _, err := sys.Download(ctx, tt.key); !errors.Is(err, tt.want) {
					t.Errorf("Download() = %v, want %v", err, tt.want)
				}
				if _, err := sys.Find(ctx, tt.key); !errors.Is(err, tt.want) {
					t.Errorf("Find() = %v, want %v", err, tt.want)
				}
				if err := sys.Delete(ctx, tt.key); !errors.Is(err, tt.want) {
					t.Errorf("Delete() = %v, want %v", err, tt.want)
				}
				if _, err := sys.Exists(ctx, tt.key); !errors.Is(err, tt.want) {
					t.Errorf("Exists() = %v, want %v", err, tt.want)
				}
			})
		}
	}
}

func TestLocalRoundTrip(t *testing.T) {
	sys := newLocal(t)
	ctx := context.Background()
	key := "documents/abc/artifact.html"

	if ok, err := sys.Exists(ctx, key); ok || err != nil {
		t.Fatalf("Exists(before) = %v, %v", ok, err)
	}
	if _, err := sys.Download(ctx, key); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Download(before) = %v, want ErrNotFound", err)
	}

	body := "<html><body>estimate</body></html>"
	if err := sys.Upload(ctx, key, strings.NewReader(body), "text/html"); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	meta, err := sys.Find(ctx, key)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if meta.ContentLength != int64(len(body)) || !strings.HasPrefix(meta.ContentType, "text/html") {
		t.Errorf("meta = %+v", meta)
	}

	rc, err := sys.Download(ctx, key)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	got, _ := io.ReadAll(rc)
	rc.Close()
	if string(got) != body {
		t.Errorf("downloaded %q, want %q", got, body)
	}

	if err := sys.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := sys.Delete(ctx, key); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Delete(again) = %v, want ErrNotFound", err)
	}
}

func TestLocalList(t *testing.T) {
	sys := newLocal(t)
	ctx := context.Background()

	for _, key := range []string{"documents/a/record.json", "documents/b/record.json", "documents/c/record.json", "other/x.json"} {
		if err := sys.Upload(ctx, key, strings.NewReader("{}"), "application/json"); err != nil {
			t.Fatal(err)
		}
	}

	page, err := sys.List(ctx, "documents/", "", 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Blobs) != 2 || page.Blobs[0].Key != "documents/a/record.json" || page.NextMarker != "documents/b/record.json" {
		t.Fatalf("first page = %+v", page)
	}

	page, err = sys.List(ctx, "documents/", page.NextMarker, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Blobs) != 1 || page.Blobs[0].Key != "documents/c/record.json" || page.NextMarker != "" {
		t.Errorf("second page = %+v", page)
	}
}
