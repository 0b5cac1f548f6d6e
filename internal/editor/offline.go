package editor

import (
	"context"
	"log/slog"
)

// New returns the editor selected by cfg.
func New(cfg *Config, logger *slog.Logger) Editor {
	if cfg.Backend == BackendNone {
		return Offline{}
	}
	return NewChrome(*cfg, logger)
}

// Offline is an Editor that is never running. Comprehensive validation against
// it fails with ErrNotRunning.
type Offline struct{}

func (Offline) IsRunning(context.Context) (bool, error) { return false, nil }

func (Offline) ListOpenWindows(context.Context) ([]Window, error) { return nil, ErrNotRunning }

func (Offline) Open(context.Context, string) (Handle, error) { return "", ErrNotRunning }

func (Offline) ExportToImage(context.Context, Handle) ([]byte, error) { return nil, ErrNotRunning }

func (Offline) Close(context.Context, Handle) error { return ErrNotRunning }
