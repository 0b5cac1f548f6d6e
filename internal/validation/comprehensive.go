package validation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"os"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/JaimeStill/foreman/internal/editor"
)

// comprehensive round-trips the artifact through the editor: open, export a
// page image, confirm the window, and print when the editor supports it.
func (p *Pipeline) comprehensive(ctx context.Context, s *subject) []Check {
	const level = LevelComprehensive

	skipRest := func(reason string) []Check {
		return []Check{
			newCheck(level, "editor_export", StatusSkip, "%s", reason),
			newCheck(level, "editor_windows", StatusSkip, "%s", reason),
			newCheck(level, "print_layout", StatusSkip, "%s", reason),
		}
	}

	if p.editor == nil {
		return append([]Check{newCheck(level, "editor_open", StatusFail, "no editor configured")}, skipRest("editor unavailable")...)
	}

	path, err := p.stage(s)
	if err != nil {
		return append([]Check{newCheck(level, "editor_open", StatusFail, "stage artifact: %v", err)}, skipRest("artifact not staged")...)
	}
	defer os.Remove(path)

	open, h := p.editorOpen(ctx, path)
	if h == "" {
		return append([]Check{open}, skipRest("document not open")...)
	}
	defer p.closeEditor(ctx, h)

	return []Check{
		open,
		p.editorExport(ctx, s, h),
		p.editorWindows(ctx, h),
		p.printLayout(ctx, h),
	}
}

func (p *Pipeline) stage(s *subject) (string, error) {
	f, err := os.CreateTemp(p.cfg.WorkDir, fmt.Sprintf("foreman-%s-*.html", s.id))
	if err != nil {
		return "", err
	}
	if _, err := f.Write(s.artifact); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func (p *Pipeline) editorCall(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.cfg.EditorTimeoutDuration())
}

// editorOpen returns the handle of the opened document, or an empty handle
// when nothing is open. A dialog raised while opening warns but keeps the
// document for the remaining checks.
func (p *Pipeline) editorOpen(ctx context.Context, path string) (Check, editor.Handle) {
	const name = "editor_open"

	ctx, cancel := p.editorCall(ctx)
	defer cancel()

	h, err := p.editor.Open(ctx, path)
	if err != nil {
		var dialog *editor.DialogError
		if errors.As(err, &dialog) {
			return newCheck(LevelComprehensive, name, StatusWarn, "%v", err).
				with("dialog", dialog.Kind), dialog.Handle
		}
		return newCheck(LevelComprehensive, name, StatusFail, "%v", err), ""
	}
	return newCheck(LevelComprehensive, name, StatusPass, "opened as %s", h).
		with("handle", string(h)), h
}

func (p *Pipeline) editorExport(ctx context.Context, s *subject, h editor.Handle) Check {
	const name = "editor_export"

	callCtx, cancel := p.editorCall(ctx)
	defer cancel()

	data, err := p.editor.ExportToImage(callCtx, h)
	if err != nil {
		var dialog *editor.DialogError
		if errors.As(err, &dialog) {
			return newCheck(LevelComprehensive, name, StatusWarn, "%v", err)
		}
		return newCheck(LevelComprehensive, name, StatusFail, "%v", err)
	}

	img, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return newCheck(LevelComprehensive, name, StatusFail, "export is not a png: %v", err)
	}
	if img.Width == 0 || img.Height == 0 {
		return newCheck(LevelComprehensive, name, StatusFail, "export is empty (%dx%d)", img.Width, img.Height)
	}

	key, err := p.docs.SaveRender(ctx, s.id, data)
	if err != nil {
		return newCheck(LevelComprehensive, name, StatusFail, "store render: %v", err)
	}
	s.render = data

	return newCheck(LevelComprehensive, name, StatusPass, "exported %dx%d png", img.Width, img.Height).
		with("render_key", key).
		with("bytes", strconv.Itoa(len(data)))
}

func (p *Pipeline) editorWindows(ctx context.Context, h editor.Handle) Check {
	const name = "editor_windows"

	ctx, cancel := p.editorCall(ctx)
	defer cancel()

	windows, err := p.editor.ListOpenWindows(ctx)
	if err != nil {
		return newCheck(LevelComprehensive, name, StatusFail, "%v", err)
	}

	for _, w := range windows {
		if w.Handle != h {
			continue
		}
		if w.Dialog != "" {
			return newCheck(LevelComprehensive, name, StatusWarn, "window %q shows a dialog: %s", w.Title, w.Dialog)
		}
		return newCheck(LevelComprehensive, name, StatusPass, "window %q open", w.Title).
			with("windows", strconv.Itoa(len(windows)))
	}
	return newCheck(LevelComprehensive, name, StatusWarn, "document window not listed among %d windows", len(windows))
}

func (p *Pipeline) printLayout(ctx context.Context, h editor.Handle) Check {
	const name = "print_layout"

	if !p.editor.CanPrint() {
		return newCheck(LevelComprehensive, name, StatusSkip, "editor cannot print")
	}

	ctx, cancel := p.editorCall(ctx)
	defer cancel()

	data, err := p.editor.ExportToPDF(ctx, h)
	if err != nil {
		return newCheck(LevelComprehensive, name, StatusFail, "%v", err)
	}

	pages, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return newCheck(LevelComprehensive, name, StatusFail, "read printed pdf: %v", err)
	}

	if pages > p.cfg.MaxPages {
		return newCheck(LevelComprehensive, name, StatusWarn, "prints on %d pages, limit %d", pages, p.cfg.MaxPages).
			with("pages", strconv.Itoa(pages))
	}
	return newCheck(LevelComprehensive, name, StatusPass, "prints on %d page(s)", pages).
		with("pages", strconv.Itoa(pages))
}

func (p *Pipeline) closeEditor(ctx context.Context, h editor.Handle) {
	ctx, cancel := p.editorCall(context.WithoutCancel(ctx))
	defer cancel()

	if err := p.editor.Close(ctx, h); err != nil {
		p.logger.Warn("editor close failed", "handle", h, "error", err)
	}
}
