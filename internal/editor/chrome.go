package editor

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/JaimeStill/foreman/pkg/lifecycle"
)

type tab struct {
	ctx    context.Context
	cancel context.CancelFunc
	path   string

	mu     sync.Mutex
	dialog *DialogError
}

func (t *tab) pendingDialog() *DialogError {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dialog
}

// Chrome is an Editor backed by a headless Chromium instance. The browser is
// launched on first use; each opened document gets its own tab.
type Chrome struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	browser  context.Context
	shutdown func()
	tabs     map[Handle]*tab
}

// NewChrome creates a Chrome editor. No browser is started until a call needs one.
func NewChrome(cfg Config, logger *slog.Logger) *Chrome {
	return &Chrome{
		cfg:    cfg,
		logger: logger.With("system", "editor", "backend", BackendChrome),
		tabs:   make(map[Handle]*tab),
	}
}

// Start registers a shutdown hook that closes the browser.
func (c *Chrome) Start(lc *lifecycle.Coordinator) error {
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		c.Shutdown()
	})
	return nil
}

// Shutdown closes every tab and the browser.
func (c *Chrome) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for h, t := range c.tabs {
		t.cancel()
		delete(c.tabs, h)
	}
	if c.shutdown != nil {
		c.shutdown()
		c.shutdown = nil
		c.browser = nil
		c.logger.Info("browser closed")
	}
}

func (c *Chrome) launch(ctx context.Context) (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browser != nil && c.browser.Err() == nil {
		return c.browser, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !c.cfg.Headful),
		chromedp.Flag("disable-gpu", true),
	)
	if c.cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if c.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.cfg.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browser, cancelBrowser := chromedp.NewContext(allocCtx)

	if err := runDetached(ctx, browser); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, err
	}

	c.browser = browser
	c.shutdown = func() {
		cancelBrowser()
		cancelAlloc()
	}
	c.logger.Info("browser started")
	return browser, nil
}

// runDetached performs the first Run on a chromedp context, which allocates
// its browser or tab, without tying that lifetime to the caller's deadline.
func runDetached(ctx, cdpCtx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(cdpCtx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// bound derives a context from parent carrying the caller's deadline and
// cancellation.
func bound(parent, caller context.Context) (context.Context, context.CancelFunc) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if deadline, ok := caller.Deadline(); ok {
		ctx, cancel = context.WithDeadline(parent, deadline)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	stop := context.AfterFunc(caller, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (c *Chrome) IsRunning(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.browser != nil && c.browser.Err() == nil, nil
}

func (c *Chrome) ListOpenWindows(ctx context.Context) ([]Window, error) {
	c.mu.Lock()
	browser := c.browser
	c.mu.Unlock()

	if browser == nil || browser.Err() != nil {
		return nil, ErrNotRunning
	}

	runCtx, cancel := bound(browser, ctx)
	defer cancel()

	infos, err := chromedp.Targets(runCtx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	windows := make([]Window, 0, len(infos))
	for _, info := range infos {
		if info.Type != "page" {
			continue
		}
		w := Window{
			Handle: Handle(info.TargetID),
			Title:  info.Title,
			Path:   strings.TrimPrefix(info.URL, "file://"),
		}
		if t, ok := c.tabs[w.Handle]; ok {
			if d := t.pendingDialog(); d != nil {
				w.Dialog = d.Kind
			}
		}
		windows = append(windows, w)
	}
	return windows, nil
}

func (c *Chrome) Open(ctx context.Context, path string) (Handle, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	browser, err := c.launch(ctx)
	if err != nil {
		return "", fmt.Errorf("launch browser: %w", err)
	}

	tabCtx, cancelTab := chromedp.NewContext(browser)
	if err := runDetached(ctx, tabCtx); err != nil {
		cancelTab()
		return "", fmt.Errorf("open tab: %w", err)
	}

	t := &tab{ctx: tabCtx, cancel: cancelTab, path: abs}
	h := Handle(chromedp.FromContext(tabCtx).Target.TargetID)

	chromedp.ListenTarget(tabCtx, func(ev any) {
		opening, ok := ev.(*page.EventJavascriptDialogOpening)
		if !ok {
			return
		}
		t.mu.Lock()
		t.dialog = &DialogError{Handle: h, Kind: string(opening.Type), Message: opening.Message}
		t.mu.Unlock()
		go chromedp.Run(tabCtx, page.HandleJavaScriptDialog(false))
	})

	c.mu.Lock()
	c.tabs[h] = t
	c.mu.Unlock()

	runCtx, cancel := bound(tabCtx, ctx)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.Navigate("file://"+filepath.ToSlash(abs))); err != nil {
		return h, err
	}
	if d := t.pendingDialog(); d != nil {
		c.logger.Warn("dialog detected", "handle", h, "kind", d.Kind, "message", d.Message)
		return h, d
	}

	c.logger.Info("document opened", "handle", h, "path", abs)
	return h, nil
}

func (c *Chrome) lookup(h Handle) (*tab, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tabs[h]
	if !ok {
		return nil, ErrUnknownHandle
	}
	return t, nil
}

func (c *Chrome) ExportToImage(ctx context.Context, h Handle) ([]byte, error) {
	t, err := c.lookup(h)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := bound(t.ctx, ctx)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(runCtx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, err
	}
	if d := t.pendingDialog(); d != nil {
		return buf, d
	}
	return buf, nil
}

// ExportToPDF prints the document open under h.
func (c *Chrome) ExportToPDF(ctx context.Context, h Handle) ([]byte, error) {
	t, err := c.lookup(h)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := bound(t.ctx, ctx)
	defer cancel()

	var buf []byte
	err = chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		data, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
		buf = data
		return err
	}))
	return buf, err
}

func (c *Chrome) Close(ctx context.Context, h Handle) error {
	c.mu.Lock()
	t, ok := c.tabs[h]
	delete(c.tabs, h)
	c.mu.Unlock()

	if !ok {
		return ErrUnknownHandle
	}

	if err := chromedp.Cancel(t.ctx); err != nil {
		t.cancel()
		return err
	}
	t.cancel()
	c.logger.Info("document closed", "handle", h)
	return nil
}

var _ interface {
	Editor
	PDFExporter
} = (*Chrome)(nil)
