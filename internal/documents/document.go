// Package documents persists generated documents. Each document is stored as
// a database row for querying, a JSON record holding the full generated
// document, and a rendered HTML artifact in blob storage.
package documents

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JaimeStill/foreman/internal/generation"
)

// Status is the delivery state of a stored document.
type Status string

const (
	StatusGenerated Status = "generated"
	StatusDelivered Status = "delivered"
)

// Record is the stored summary of a generated document.
type Record struct {
	ID               uuid.UUID       `json:"id"`
	Kind             generation.Kind `json:"kind"`
	Number           string          `json:"number"`
	TemplateID       string          `json:"template_id"`
	TemplateRevision string          `json:"template_revision"`
	Category         string          `json:"category"`
	Client           string          `json:"client"`
	Fingerprint      string          `json:"content_fingerprint"`
	ContentDigest    string          `json:"content_digest"`
	Jurisdiction     string          `json:"jurisdiction"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	Tax              decimal.Decimal `json:"tax"`
	Total            decimal.Decimal `json:"total"`
	RecordKey        string          `json:"record_key"`
	ArtifactKey      string          `json:"artifact_key"`
	Status           Status          `json:"status"`
	GeneratedAt      time.Time       `json:"generated_at"`
	DeliveredAt      *time.Time      `json:"delivered_at"`
}

// RecordKey returns the storage key of the JSON record for id.
func RecordKey(id uuid.UUID) string {
	return fmt.Sprintf("documents/%s/record.json", id)
}

// ArtifactKey returns the storage key of the rendered HTML artifact for id.
func ArtifactKey(id uuid.UUID) string {
	return fmt.Sprintf("documents/%s/artifact.html", id)
}

// RenderKey returns the storage key of the exported page image for id.
func RenderKey(id uuid.UUID) string {
	return fmt.Sprintf("documents/%s/render.png", id)
}

func newRecord(doc *generation.Document) Record {
	return Record{
		ID:               doc.ID,
		Kind:             doc.Kind,
		Number:           doc.Header.Number,
		TemplateID:       doc.TemplateID,
		TemplateRevision: doc.TemplateRevision,
		Category:         doc.Category,
		Client:           doc.Header.Client,
		Fingerprint:      doc.Fingerprint,
		ContentDigest:    doc.ContentDigest,
		Jurisdiction:     doc.Jurisdiction,
		Subtotal:         doc.Subtotal,
		Tax:              doc.Tax,
		Total:            doc.Total,
		RecordKey:        RecordKey(doc.ID),
		ArtifactKey:      ArtifactKey(doc.ID),
		Status:           StatusGenerated,
		GeneratedAt:      doc.GeneratedAt,
	}
}
