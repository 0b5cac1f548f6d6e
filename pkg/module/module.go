// Package module mounts self-contained HTTP handlers under single-level path
// prefixes. Each module owns its middleware stack and sees request paths
// relative to its prefix.
package module

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/JaimeStill/foreman/pkg/middleware"
)

// ErrInvalidPrefix is the panic value wrapped by New for a bad prefix.
var ErrInvalidPrefix = errors.New("invalid module prefix")

// Module serves an inner handler beneath a prefix such as "/api".
type Module struct {
	prefix     string
	router     http.Handler
	middleware middleware.System

	mu      sync.Mutex
	handler http.Handler
}

// New panics unless prefix is a single named segment with a leading slash.
func New(prefix string, router http.Handler) *Module {
	if err := checkPrefix(prefix); err != nil {
		panic(err)
	}
	return &Module{
		prefix:     prefix,
		router:     router,
		middleware: middleware.New(),
	}
}

func (m *Module) Prefix() string {
	return m.prefix
}

// Handler returns the inner router behind the module middleware. The chain
// is cached until the next Use.
func (m *Module) Handler() http.Handler {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handler == nil {
		m.handler = m.middleware.Apply(m.router)
	}
	return m.handler
}

func (m *Module) Use(mw middleware.Func) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.middleware.Use(mw)
	m.handler = nil
}

// Serve hands a copy of req to the inner router with the prefix and any
// trailing slash removed from its path. "/api" arrives as "/".
func (m *Module) Serve(w http.ResponseWriter, req *http.Request) {
	inner := req.Clone(req.Context())
	inner.URL.Path = m.relative(req.URL.Path)
	inner.URL.RawPath = ""
	m.Handler().ServeHTTP(w, inner)
}

func (m *Module) relative(path string) string {
	rest, _ := strings.CutPrefix(path, m.prefix)
	rest = strings.TrimSuffix(rest, "/")
	if rest == "" {
		return "/"
	}
	return rest
}

func checkPrefix(prefix string) error {
	name, ok := strings.CutPrefix(prefix, "/")
	switch {
	case !ok:
		return fmt.Errorf("%w: %q must start with /", ErrInvalidPrefix, prefix)
	case name == "":
		return fmt.Errorf("%w: %q names no segment", ErrInvalidPrefix, prefix)
	case strings.Contains(name, "/"):
		return fmt.Errorf("%w: %q spans more than one segment", ErrInvalidPrefix, prefix)
	}
	return nil
}
