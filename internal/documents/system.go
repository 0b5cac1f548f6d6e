package documents

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/foreman/internal/generation"
	"github.com/JaimeStill/foreman/pkg/pagination"
)

// System defines the public contract for document domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Record], error)

	Find(ctx context.Context, id uuid.UUID) (*Record, error)
	// Create stores the record, renders and stores the HTML artifact, and
	// inserts the summary row. Blobs are removed if the insert fails.
	Create(ctx context.Context, doc *generation.Document) (*Record, error)
	// Load returns the full generated document as stored.
	Load(ctx context.Context, id uuid.UUID) (*generation.Document, error)
	Artifact(ctx context.Context, id uuid.UUID) ([]byte, error)
	SaveRender(ctx context.Context, id uuid.UUID, png []byte) (string, error)
	// Siblings returns other documents whose line items share digest.
	Siblings(ctx context.Context, digest string, exclude uuid.UUID) ([]Record, error)
	MarkDelivered(ctx context.Context, id uuid.UUID) (*Record, error)
}
