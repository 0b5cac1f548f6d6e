package templates

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads templates under the configured directory as files change until
// ctx is done. A file that fails to parse keeps its previous revision cached.
func (r *Repository) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	root := r.cfg.Dir
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
	if err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", root, err)
	}

	r.logger.Info("watching templates", "dir", root)

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				r.handleEvent(w, event)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				r.logger.Warn("template watcher error", "error", err)
			}
		}
	}()

	return nil
}

func (r *Repository) handleEvent(w *fsnotify.Watcher, event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.Add(event.Name); err != nil {
				r.logger.Warn("watch directory failed", "path", event.Name, "error", err)
			}
			return
		}
	}

	rel, err := filepath.Rel(r.cfg.Dir, event.Name)
	if err != nil || !r.cfg.matches(filepath.ToSlash(rel)) {
		return
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		r.Forget(event.Name)
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		if _, err := r.LoadFile(event.Name); err != nil {
			r.logger.Warn("template reload failed, keeping previous revision", "path", event.Name, "error", err)
		}
	}
}
