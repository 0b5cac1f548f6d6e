// Package monitor polls the editor at a fixed interval and reports changes:
// process starts and stops, dialogs, opened and closed documents, errors.
package monitor

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/JaimeStill/foreman/internal/editor"
)

// DialogKind classifies a dialog by its title.
type DialogKind string

const (
	DialogError   DialogKind = "error"
	DialogWarning DialogKind = "warning"
	DialogSave    DialogKind = "save"
	DialogOpen    DialogKind = "open"
	DialogExport  DialogKind = "export"
	DialogPrint   DialogKind = "print"
	DialogUnknown DialogKind = "unknown"
)

var dialogKeywords = []struct {
	kind     DialogKind
	keywords []string
}{
	{DialogError, []string{"error", "fail", "exception", "crash"}},
	{DialogWarning, []string{"warning", "caution", "alert", "beforeunload"}},
	{DialogSave, []string{"save"}},
	{DialogExport, []string{"export"}},
	{DialogPrint, []string{"print"}},
	{DialogOpen, []string{"open"}},
}

// ClassifyDialog maps a dialog title to its kind. Earlier kinds win when a
// title matches several.
func ClassifyDialog(title string) DialogKind {
	t := strings.ToLower(title)
	for _, k := range dialogKeywords {
		for _, kw := range k.keywords {
			if strings.Contains(t, kw) {
				return k.kind
			}
		}
	}
	return DialogUnknown
}

// Dialog is a modal dialog observed in the editor.
type Dialog struct {
	Handle editor.Handle `json:"handle"`
	Title  string        `json:"title"`
	Kind   DialogKind    `json:"kind"`
}

// Snapshot is the editor state at one poll.
type Snapshot struct {
	Running   bool            `json:"running"`
	Windows   []editor.Window `json:"windows"`
	Dialogs   []Dialog        `json:"dialogs"`
	Documents []string        `json:"documents"`
	Errors    []string        `json:"errors"`
	TakenAt   time.Time       `json:"taken_at"`
}

// Sampler captures snapshots.
type Sampler interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// EditorSampler captures snapshots from an editor.
type EditorSampler struct {
	Editor editor.Editor
}

func (p EditorSampler) Snapshot(ctx context.Context) (Snapshot, error) {
	s := Snapshot{TakenAt: time.Now().UTC()}

	running, err := p.Editor.IsRunning(ctx)
	if err != nil {
		return s, err
	}
	s.Running = running
	if !running {
		return s, nil
	}

	windows, err := p.Editor.ListOpenWindows(ctx)
	if err != nil {
		return s, err
	}
	s.Windows = windows

	for _, w := range windows {
		if w.Dialog != "" {
			d := Dialog{Handle: w.Handle, Title: w.Dialog, Kind: ClassifyDialog(w.Dialog)}
			s.Dialogs = append(s.Dialogs, d)
			if d.Kind == DialogError {
				s.Errors = append(s.Errors, d.Title)
			}
		}
		doc := w.Path
		if doc == "" {
			doc = w.Title
		}
		if doc != "" && !slices.Contains(s.Documents, doc) {
			s.Documents = append(s.Documents, doc)
		}
	}
	slices.Sort(s.Documents)
	return s, nil
}
