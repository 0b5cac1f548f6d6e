package documents

import (
	"net/url"

	"github.com/JaimeStill/foreman/pkg/query"
	"github.com/JaimeStill/foreman/pkg/repository"
)

var projection = query.
	NewProjectionMap("", "documents", "d").
	Project("id", "ID").
	Project("kind", "Kind").
	Project("number", "Number").
	Project("template_id", "TemplateID").
	Project("template_revision", "TemplateRevision").
	Project("category", "Category").
	Project("client", "Client").
	Project("fingerprint", "Fingerprint").
	Project("content_digest", "ContentDigest").
	Project("jurisdiction", "Jurisdiction").
	Project("subtotal", "Subtotal").
	Project("tax", "Tax").
	Project("total", "Total").
	Project("record_key", "RecordKey").
	Project("artifact_key", "ArtifactKey").
	Project("status", "Status").
	Project("generated_at", "GeneratedAt").
	Project("delivered_at", "DeliveredAt")

var defaultSort = query.SortField{
	Field:      "GeneratedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for document queries.
// Nil fields are ignored. Client and Number use case-insensitive contains
// matching; the rest match exactly.
type Filters struct {
	TemplateID    *string `json:"template_id,omitempty"`
	Category      *string `json:"category,omitempty"`
	Kind          *string `json:"kind,omitempty"`
	Status        *string `json:"status,omitempty"`
	Jurisdiction  *string `json:"jurisdiction,omitempty"`
	ContentDigest *string `json:"content_digest,omitempty"`
	Client        *string `json:"client,omitempty"`
	Number        *string `json:"number,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("TemplateID", f.TemplateID).
		WhereEquals("Category", f.Category).
		WhereEquals("Kind", f.Kind).
		WhereEquals("Status", f.Status).
		WhereEquals("Jurisdiction", f.Jurisdiction).
		WhereEquals("ContentDigest", f.ContentDigest).
		WhereContains("Client", f.Client).
		WhereContains("Number", f.Number)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	get := func(key string) *string {
		if v := values.Get(key); v != "" {
			return &v
		}
		return nil
	}

	return Filters{
		TemplateID:    get("template_id"),
		Category:      get("category"),
		Kind:          get("kind"),
		Status:        get("status"),
		Jurisdiction:  get("jurisdiction"),
		ContentDigest: get("content_digest"),
		Client:        get("client"),
		Number:        get("number"),
	}
}

func scanRecord(s repository.Scanner) (Record, error) {
	var r Record
	err := s.Scan(
		&r.ID,
		&r.Kind,
		&r.Number,
		&r.TemplateID,
		&r.TemplateRevision,
		&r.Category,
		&r.Client,
		&r.Fingerprint,
		&r.ContentDigest,
		&r.Jurisdiction,
		&r.Subtotal,
		&r.Tax,
		&r.Total,
		&r.RecordKey,
		&r.ArtifactKey,
		&r.Status,
		&r.GeneratedAt,
		&r.DeliveredAt,
	)
	return r, err
}
