package templates

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sahilm/fuzzy"
)

// Repository caches loaded templates by id. It is safe for concurrent use.
type Repository struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.RWMutex
	byID     map[string]*Template
	bySource map[string]string
}

// NewRepository creates an empty repository.
func NewRepository(cfg Config, logger *slog.Logger) *Repository {
	return &Repository{
		cfg:      cfg,
		logger:   logger.With("system", "templates"),
		byID:     make(map[string]*Template),
		bySource: make(map[string]string),
	}
}

// Load parses data and caches the resulting template. Reloading an unchanged
// definition returns the cached template.
func (r *Repository) Load(data []byte) (*Template, error) {
	t, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return r.store(t)
}

// LoadFile parses the file at path and caches the resulting template.
func (r *Repository) LoadFile(path string) (*Template, error) {
	t, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return r.store(t)
}

// Discover loads every template under root selected by the include and ignore
// patterns. Valid templates are cached even when others fail; the failures are
// returned joined.
func (r *Repository) Discover(root string) ([]*Template, error) {
	paths, err := r.discover(root)
	if err != nil {
		return nil, err
	}

	loaded := make([]*Template, 0, len(paths))
	var errs []error
	for _, path := range paths {
		t, err := r.LoadFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		loaded = append(loaded, t)
	}

	r.logger.Info("templates discovered", "root", root, "loaded", len(loaded), "failed", len(errs))
	return loaded, errors.Join(errs...)
}

func (r *Repository) discover(root string) ([]string, error) {
	fsys := os.DirFS(root)
	if _, err := fs.Stat(fsys, "."); err != nil {
		return nil, fmt.Errorf("template root %s: %w", root, err)
	}

	seen := make(map[string]bool)
	var paths []string

	for _, pattern := range r.cfg.Include {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		for _, m := range matches {
			if seen[m] || !r.cfg.matches(m) {
				continue
			}
			seen[m] = true
			paths = append(paths, filepath.Join(root, filepath.FromSlash(m)))
		}
	}

	slices.Sort(paths)
	return paths, nil
}

// Get returns the template with the given id.
func (r *Repository) Get(id string) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t, nil
}

// List returns summaries of all cached templates sorted by id.
func (r *Repository) List() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := slices.Sorted(maps.Keys(r.byID))
	out := make([]Summary, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.byID[id].Summary())
	}
	return out
}

// Suggest returns cached template ids that fuzzily match id, best first.
func (r *Repository) Suggest(id string) []string {
	r.mu.RLock()
	ids := slices.Sorted(maps.Keys(r.byID))
	r.mu.RUnlock()

	matches := fuzzy.Find(id, ids)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Str)
	}
	return out
}

// Forget drops the template last loaded from source.
func (r *Repository) Forget(source string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.bySource[source]; ok {
		delete(r.byID, id)
		delete(r.bySource, source)
		r.logger.Info("template removed", "id", id, "source", source)
	}
}

func (r *Repository) store(t *Template) (*Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byID[t.ID]; ok {
		if existing.Revision == t.Revision {
			return existing, nil
		}
		if existing.Source != t.Source {
			return nil, fmt.Errorf("%w: %s in %s and %s", ErrDuplicate, t.ID, existing.Source, t.Source)
		}
	}

	if t.Source != "" {
		if prev, ok := r.bySource[t.Source]; ok && prev != t.ID {
			delete(r.byID, prev)
		}
		r.bySource[t.Source] = t.ID
	}

	r.byID[t.ID] = t
	r.logger.Info("template loaded", "id", t.ID, "revision", t.Revision[:12], "source", t.Source)
	return t, nil
}
