package monitor

import (
	"slices"
	"time"

	"github.com/JaimeStill/foreman/internal/editor"
)

// EventType names a change between two snapshots.
type EventType string

const (
	EventProcessChange  EventType = "process_change"
	EventDialogDetected EventType = "dialog_detected"
	EventDocumentOpened EventType = "document_opened"
	EventDocumentClosed EventType = "document_closed"
	EventErrorDetected  EventType = "error_detected"
)

// Event is one observed change.
type Event struct {
	Type   EventType     `json:"type"`
	Handle editor.Handle `json:"handle,omitempty"`
	Kind   DialogKind    `json:"kind,omitempty"`
	Detail string        `json:"detail"`
	At     time.Time     `json:"at"`
}

// Diff returns the events that turn prev into next.
func Diff(prev, next Snapshot) []Event {
	var events []Event
	add := func(e Event) {
		e.At = next.TakenAt
		events = append(events, e)
	}

	if prev.Running != next.Running {
		detail := "stopped"
		if next.Running {
			detail = "started"
		}
		add(Event{Type: EventProcessChange, Detail: detail})
	}

	for _, d := range next.Dialogs {
		if !slices.Contains(prev.Dialogs, d) {
			add(Event{Type: EventDialogDetected, Handle: d.Handle, Kind: d.Kind, Detail: d.Title})
		}
	}

	for _, doc := range next.Documents {
		if !slices.Contains(prev.Documents, doc) {
			add(Event{Type: EventDocumentOpened, Detail: doc})
		}
	}
	for _, doc := range prev.Documents {
		if !slices.Contains(next.Documents, doc) {
			add(Event{Type: EventDocumentClosed, Detail: doc})
		}
	}

	for _, msg := range next.Errors {
		if !slices.Contains(prev.Errors, msg) {
			add(Event{Type: EventErrorDetected, Detail: msg})
		}
	}

	return events
}
