package module_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/foreman/pkg/module"
)

func TestNewPrefix(t *testing.T) {
	tests := []struct {
		prefix    string
		wantPanic bool
	}{
		{"/api", false},
		{"/storage", false},
		{"", true},
		{"api", true},
		{"/api/v1", true},
		{"/", true},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			defer func() {
				if r := recover(); (r != nil) != tt.wantPanic {
					t.Errorf("panic = %v, wantPanic %v", r, tt.wantPanic)
				}
			}()
			m := module.New(tt.prefix, http.NewServeMux())
			if m.Prefix() != tt.prefix {
				t.Errorf("Prefix() = %s, want %s", m.Prefix(), tt.prefix)
			}
		})
	}
}

func TestServe(t *testing.T) {
	var seen string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		seen = r.URL.Path
	})

	m := module.New("/api", mux)

	var wrapped bool
	m.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped = true
			next.ServeHTTP(w, r)
		})
	})

	tests := []struct {
		path string
		want string
	}{
		{"/api/templates/paver_patio", "/templates/paver_patio"},
		{"/api", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			seen, wrapped = "", false
			m.Serve(httptest.NewRecorder(), httptest.NewRequest("GET", tt.path, nil))
			if seen != tt.want {
				t.Errorf("inner path = %q, want %q", seen, tt.want)
			}
			if !wrapped {
				t.Error("module middleware not applied")
			}
		})
	}
}

func TestRouter(t *testing.T) {
	reply := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}
	}

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /documents", reply("documents"))

	router := module.NewRouter()
	router.Mount(module.New("/api", apiMux))
	router.HandleNative("GET /healthz", reply("ok"))

	tests := []struct {
		name   string
		path   string
		status int
		body   string
	}{
		{"module", "/api/documents", http.StatusOK, "documents"},
		{"trailing slash", "/api/documents/", http.StatusOK, "documents"},
		{"native fallback", "/healthz", http.StatusOK, "ok"},
		{"unmatched", "/metrics", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.body != "" && rec.Body.String() != tt.body {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.body)
			}
		})
	}
}

func TestUseAfterServe(t *testing.T) {
	m := module.New("/api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	var hits []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits = append(hits, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	m.Use(tag("cors"))
	m.Serve(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/documents", nil))
	m.Use(tag("logger"))
	m.Serve(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/documents", nil))

	if len(hits) != 3 || hits[1] != "cors" || hits[2] != "logger" {
		t.Errorf("hits = %v", hits)
	}
}

func TestServeLeavesRequestUntouched(t *testing.T) {
	m := module.New("/api", http.NewServeMux())
	req := httptest.NewRequest("GET", "/api/documents/", nil)
	m.Serve(httptest.NewRecorder(), req)

	if req.URL.Path != "/api/documents/" {
		t.Errorf("caller request path = %q", req.URL.Path)
	}
}

func TestMount(t *testing.T) {
	router := module.NewRouter()
	router.Mount(module.New("/storage", http.NewServeMux()))
	router.Mount(module.New("/api", http.NewServeMux()))

	if got := router.Prefixes(); len(got) != 2 || got[0] != "/api" || got[1] != "/storage" {
		t.Errorf("Prefixes() = %v", got)
	}

	defer func() {
		if recover() == nil {
			t.Error("mounting a taken prefix should panic")
		}
	}()
	router.Mount(module.New("/api", http.NewServeMux()))
}
