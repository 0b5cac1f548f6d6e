package monitor_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/JaimeStill/foreman/internal/editor"
	"github.com/JaimeStill/foreman/internal/monitor"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type scriptedSampler struct {
	mu     sync.Mutex
	script []monitor.Snapshot
	errs   map[int]error
	calls  int
	done   func()
}

func (p *scriptedSampler) Snapshot(ctx context.Context) (monitor.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.calls
	p.calls++
	if err := p.errs[i]; err != nil {
		return monitor.Snapshot{}, err
	}
	if i >= len(p.script)-1 {
		if p.done != nil {
			p.done()
			p.done = nil
		}
		i = len(p.script) - 1
	}
	return p.script[i], nil
}

func cfg(interval, max string) *monitor.Config {
	c := &monitor.Config{Interval: interval, MaxDuration: max}
	if err := c.Finalize(nil); err != nil {
		panic(err)
	}
	return c
}

func TestClassifyDialog(t *testing.T) {
	tests := []struct {
		title string
		want  monitor.DialogKind
	}{
		{"Error", monitor.DialogError},
		{"Save failed", monitor.DialogError},
		{"Warning: unsaved changes", monitor.DialogWarning},
		{"alert", monitor.DialogWarning},
		{"Save As", monitor.DialogSave},
		{"Export to PDF", monitor.DialogExport},
		{"Print", monitor.DialogPrint},
		{"Open File", monitor.DialogOpen},
		{"About", monitor.DialogUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			if got := monitor.ClassifyDialog(tt.title); got != tt.want {
				t.Errorf("ClassifyDialog(%q) = %s, want %s", tt.title, got, tt.want)
			}
		})
	}
}

func TestDiff(t *testing.T) {
	prev := monitor.Snapshot{
		Running:   true,
		Documents: []string{"a.html", "b.html"},
	}
	next := monitor.Snapshot{
		Running:   true,
		Documents: []string{"b.html", "c.html"},
		Dialogs:   []monitor.Dialog{{Handle: "h1", Title: "Export failed", Kind: monitor.DialogError}},
		Errors:    []string{"Export failed"},
	}

	events := monitor.Diff(prev, next)
	want := []monitor.EventType{
		monitor.EventDialogDetected,
		monitor.EventDocumentOpened,
		monitor.EventDocumentClosed,
		monitor.EventErrorDetected,
	}
	if len(events) != len(want) {
		t.Fatalf("events = %+v", events)
	}
	for i, e := range events {
		if e.Type != want[i] {
			t.Errorf("event %d = %s, want %s", i, e.Type, want[i])
		}
	}

	if events := monitor.Diff(next, next); len(events) != 0 {
		t.Errorf("identical snapshots produced %v", events)
	}

	stopped := monitor.Diff(prev, monitor.Snapshot{})
	if stopped[0].Type != monitor.EventProcessChange || stopped[0].Detail != "stopped" {
		t.Errorf("stop event = %+v", stopped[0])
	}
}

func TestRunUntilStopped(t *testing.T) {
	stop := make(chan struct{})
	sampler := &scriptedSampler{
		script: []monitor.Snapshot{
			{Running: false},
			{Running: true},
			{Running: true, Documents: []string{"estimate.html"}},
			{Running: true, Documents: []string{"estimate.html"}, Dialogs: []monitor.Dialog{{Handle: "h1", Title: "Print", Kind: monitor.DialogPrint}}},
		},
		done: func() { close(stop) },
	}

	report, err := monitor.New(sampler, cfg("5ms", "5s"), discard()).Run(context.Background(), stop)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Reason != monitor.ReasonStopped {
		t.Errorf("reason = %s, want stopped", report.Reason)
	}
	if report.Polls < 4 {
		t.Errorf("polls = %d, want at least 4", report.Polls)
	}
	for _, tt := range []struct {
		typ  monitor.EventType
		want int
	}{
		{monitor.EventProcessChange, 1},
		{monitor.EventDocumentOpened, 1},
		{monitor.EventDialogDetected, 1},
	} {
		if got := report.Count(tt.typ); got != tt.want {
			t.Errorf("%s events = %d, want %d", tt.typ, got, tt.want)
		}
	}
	if report.EndedAt.Before(report.StartedAt) {
		t.Error("ended before started")
	}
}

func TestRunTimeout(t *testing.T) {
	sampler := &scriptedSampler{
		script: []monitor.Snapshot{{Running: true}},
		errs:   map[int]error{1: errors.New("editor unavailable")},
	}

	report, err := monitor.New(sampler, cfg("5ms", "40ms"), discard()).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Reason != monitor.ReasonTimeout {
		t.Errorf("reason = %s, want timeout", report.Reason)
	}
	if report.Polls < 2 {
		t.Errorf("polls = %d, want at least 2", report.Polls)
	}
	if report.Count(monitor.EventErrorDetected) != 1 {
		t.Errorf("events = %+v, want one poll failure", report.Events)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sampler := &scriptedSampler{script: []monitor.Snapshot{{}}}
	report, err := monitor.New(sampler, cfg("1s", "1m"), discard()).Run(ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if report == nil || report.Reason != monitor.ReasonCancelled {
		t.Errorf("report = %+v", report)
	}
}

type fakeEditor struct {
	running bool
	windows []editor.Window
}

func (f fakeEditor) IsRunning(context.Context) (bool, error) { return f.running, nil }
func (f fakeEditor) ListOpenWindows(context.Context) ([]editor.Window, error) {
	return f.windows, nil
}
func (fakeEditor) Open(context.Context, string) (editor.Handle, error) { return "", nil }
func (fakeEditor) ExportToImage(context.Context, editor.Handle) ([]byte, error) {
	return nil, nil
}
func (fakeEditor) Close(context.Context, editor.Handle) error { return nil }

func TestEditorSampler(t *testing.T) {
	sampler := monitor.EditorSampler{Editor: fakeEditor{
		running: true,
		windows: []editor.Window{
			{Handle: "h1", Title: "EST-1", Path: "/tmp/est-1.html"},
			{Handle: "h2", Title: "EST-2", Path: "/tmp/est-2.html", Dialog: "Render error"},
		},
	}}

	s, err := sampler.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !s.Running || len(s.Documents) != 2 || s.Documents[0] != "/tmp/est-1.html" {
		t.Errorf("snapshot = %+v", s)
	}
	if len(s.Dialogs) != 1 || s.Dialogs[0].Kind != monitor.DialogError || len(s.Errors) != 1 {
		t.Errorf("dialogs = %+v errors = %v", s.Dialogs, s.Errors)
	}

	idle, err := monitor.EditorSampler{Editor: fakeEditor{}}.Snapshot(context.Background())
	if err != nil || idle.Running || len(idle.Documents) != 0 {
		t.Errorf("idle snapshot = %+v, err = %v", idle, err)
	}
}

func TestConfigFinalize(t *testing.T) {
	tests := []struct {
		name    string
		cfg     monitor.Config
		wantErr bool
	}{
		{"defaults", monitor.Config{}, false},
		{"bad interval", monitor.Config{Interval: "often"}, true},
		{"zero interval", monitor.Config{Interval: "0s"}, true},
		{"max below interval", monitor.Config{Interval: "5s", MaxDuration: "1s"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("Finalize() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	var c monitor.Config
	c.Finalize(nil)
	if c.IntervalDuration() != 2*time.Second || c.MaxDurationValue() != 10*time.Minute {
		t.Errorf("defaults = %+v", c)
	}
}
