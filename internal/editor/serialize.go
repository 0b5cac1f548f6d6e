package editor

import (
	"context"
	"time"
)

// Serialized wraps an Editor so at most one call runs at a time system-wide.
// The per-call deadline covers time spent waiting for the editor as well as
// the call itself. Callers share one Serialized per process.
type Serialized struct {
	sem     chan struct{}
	editor  Editor
	timeout time.Duration
}

// Serialize wraps e. A non-positive timeout leaves call deadlines to the caller.
func Serialize(e Editor, timeout time.Duration) *Serialized {
	return &Serialized{sem: make(chan struct{}, 1), editor: e, timeout: timeout}
}

// acquire applies the call deadline and then waits for the editor. The
// returned release must be called once the call completes.
func (s *Serialized) acquire(ctx context.Context, op, target string) (context.Context, func(), error) {
	cancel := context.CancelFunc(func() {})
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
	}

	select {
	case s.sem <- struct{}{}:
		return ctx, func() {
			cancel()
			<-s.sem
		}, nil
	case <-ctx.Done():
		cancel()
		return nil, nil, wrap(op, target, ctx.Err())
	}
}

func (s *Serialized) IsRunning(ctx context.Context) (bool, error) {
	ctx, release, err := s.acquire(ctx, "status", "")
	if err != nil {
		return false, err
	}
	defer release()
	ok, err := s.editor.IsRunning(ctx)
	return ok, wrap("status", "", err)
}

func (s *Serialized) ListOpenWindows(ctx context.Context) ([]Window, error) {
	ctx, release, err := s.acquire(ctx, "list", "")
	if err != nil {
		return nil, err
	}
	defer release()
	windows, err := s.editor.ListOpenWindows(ctx)
	return windows, wrap("list", "", err)
}

func (s *Serialized) Open(ctx context.Context, path string) (Handle, error) {
	ctx, release, err := s.acquire(ctx, "open", path)
	if err != nil {
		return "", err
	}
	defer release()
	h, err := s.editor.Open(ctx, path)
	return h, wrap("open", path, err)
}

func (s *Serialized) ExportToImage(ctx context.Context, h Handle) ([]byte, error) {
	ctx, release, err := s.acquire(ctx, "export", string(h))
	if err != nil {
		return nil, err
	}
	defer release()
	data, err := s.editor.ExportToImage(ctx, h)
	return data, wrap("export", string(h), err)
}

func (s *Serialized) Close(ctx context.Context, h Handle) error {
	ctx, release, err := s.acquire(ctx, "close", string(h))
	if err != nil {
		return err
	}
	defer release()
	return wrap("close", string(h), s.editor.Close(ctx, h))
}

// CanPrint reports whether the wrapped editor implements PDFExporter.
func (s *Serialized) CanPrint() bool {
	_, ok := s.editor.(PDFExporter)
	return ok
}

// ExportToPDF prints h when the wrapped editor supports it.
func (s *Serialized) ExportToPDF(ctx context.Context, h Handle) ([]byte, error) {
	pdf, ok := s.editor.(PDFExporter)
	if !ok {
		return nil, wrap("print", string(h), ErrPDFUnsupported)
	}
	ctx, release, err := s.acquire(ctx, "print", string(h))
	if err != nil {
		return nil, err
	}
	defer release()
	data, err := pdf.ExportToPDF(ctx, h)
	return data, wrap("print", string(h), err)
}
