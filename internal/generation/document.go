// Package generation produces immutable priced documents from templates and
// fingerprints them so template-derived output can be verified later.
package generation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JaimeStill/foreman/internal/assembly"
	"github.com/JaimeStill/foreman/internal/templates"
)

// Kind is the business document type.
type Kind string

// Document kinds.
const (
	KindEstimate Kind = "estimate"
	KindInvoice  Kind = "invoice"
	KindContract Kind = "contract"
)

// Title returns the display title of the kind.
func (k Kind) Title() string {
	switch k {
	case KindInvoice:
		return "Invoice"
	case KindContract:
		return "Contract"
	default:
		return "Estimate"
	}
}

func (k Kind) prefix() string {
	switch k {
	case KindInvoice:
		return "INV"
	case KindContract:
		return "CON"
	default:
		return "EST"
	}
}

// Header identifies the parties and project of a document.
type Header struct {
	Company string `json:"company,omitempty"`
	Client  string `json:"client,omitempty"`
	Project string `json:"project,omitempty"`
	Address string `json:"address,omitempty"`
	Number  string `json:"number,omitempty"`
}

// Request asks for one document.
type Request struct {
	Template     *templates.Template
	Binding      assembly.Binding
	Kind         Kind
	Jurisdiction string
	Header       Header
}

// Document is a generated document. It is never modified after Generate returns.
type Document struct {
	ID               uuid.UUID           `json:"id"`
	Kind             Kind                `json:"kind"`
	TemplateID       string              `json:"template_id"`
	TemplateRevision string              `json:"template_revision"`
	Category         string              `json:"category"`
	Header           Header              `json:"header"`
	Binding          map[string]string   `json:"binding_snapshot"`
	LineItems        []assembly.LineItem `json:"line_items"`
	Jurisdiction     string              `json:"jurisdiction"`
	Subtotal         decimal.Decimal     `json:"subtotal"`
	Tax              decimal.Decimal     `json:"tax"`
	Total            decimal.Decimal     `json:"total"`
	Fingerprint      string              `json:"content_fingerprint"`
	ContentDigest    string              `json:"content_digest"`
	GeneratedAt      time.Time           `json:"generated_at"`
}

// Items returns the line items of the given kind in order.
func (d *Document) Items(kind assembly.Kind) []assembly.LineItem {
	var out []assembly.LineItem
	for _, item := range d.LineItems {
		if item.Kind == kind {
			out = append(out, item)
		}
	}
	return out
}
