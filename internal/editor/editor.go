// Package editor drives the external document editor used to open rendered
// artifacts, capture them as images and list open windows. All access goes
// through Serialize so only one call reaches the editor at a time.
package editor

import (
	"context"
	"errors"
	"fmt"
)

// Handle identifies an open document in the editor.
type Handle string

// Window describes an open editor window.
type Window struct {
	Handle Handle `json:"handle"`
	Title  string `json:"title"`
	Path   string `json:"path,omitempty"`
	Dialog string `json:"dialog,omitempty"`
}

// Editor is the capability set the validation pipeline and monitor rely on.
type Editor interface {
	IsRunning(ctx context.Context) (bool, error)
	ListOpenWindows(ctx context.Context) ([]Window, error)
	Open(ctx context.Context, path string) (Handle, error)
	ExportToImage(ctx context.Context, h Handle) ([]byte, error)
	Close(ctx context.Context, h Handle) error
}

// PDFExporter is implemented by editors that can print an open document.
type PDFExporter interface {
	ExportToPDF(ctx context.Context, h Handle) ([]byte, error)
}

var (
	ErrNotRunning     = errors.New("editor not running")
	ErrUnknownHandle  = errors.New("unknown editor handle")
	ErrPDFUnsupported = errors.New("editor cannot export pdf")
)

// Error reports a failed editor call.
type Error struct {
	Op     string
	Target string
	Err    error
}

func (e *Error) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("editor %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("editor %s %s: %v", e.Op, e.Target, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// DialogError reports a modal dialog raised by the editor during a call.
// The document may still be open under Handle.
type DialogError struct {
	Handle  Handle
	Kind    string
	Message string
}

func (e *DialogError) Error() string {
	return fmt.Sprintf("editor dialog (%s) on %s: %s", e.Kind, e.Handle, e.Message)
}

func wrap(op, target string, err error) error {
	if err == nil {
		return nil
	}
	var dialog *DialogError
	var editorErr *Error
	if errors.As(err, &dialog) || errors.As(err, &editorErr) {
		return err
	}
	return &Error{Op: op, Target: target, Err: err}
}
