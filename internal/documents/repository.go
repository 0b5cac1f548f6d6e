package documents

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/foreman/internal/generation"
	"github.com/JaimeStill/foreman/pkg/pagination"
	"github.com/JaimeStill/foreman/pkg/query"
	"github.com/JaimeStill/foreman/pkg/repository"
	"github.com/JaimeStill/foreman/pkg/storage"
)

const (
	contentTypeJSON = "application/json"
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypePNG  = "image/png"
)

type repo struct {
	db         *sql.DB
	storage    storage.System
	logger     *slog.Logger
	pagination pagination.Config
	now        func() time.Time
}

// New creates a document repository implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		storage:    store,
		logger:     logger.With("system", "documents"),
		pagination: pagination,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Record], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Number", "Client", "TemplateID")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	total, err := repository.Count(ctx, r.db, countSQL, countArgs)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	records, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	result := pagination.NewPageResult(records, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Record, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	rec, err := repository.QueryOne(ctx, r.db, q, args, scanRecord)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &rec, nil
}

func (r *repo) Create(ctx context.Context, doc *generation.Document) (*Record, error) {
	rec := newRecord(doc)

	if _, err := r.Find(ctx, rec.ID); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicate, rec.ID)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document record: %w", err)
	}

	artifact, err := generation.RenderHTML(doc)
	if err != nil {
		return nil, fmt.Errorf("render document artifact: %w", err)
	}

	if err := r.storage.Upload(ctx, rec.RecordKey, bytes.NewReader(data), contentTypeJSON); err != nil {
		return nil, fmt.Errorf("upload document record: %w", err)
	}
	if err := r.storage.Upload(ctx, rec.ArtifactKey, bytes.NewReader(artifact), contentTypeHTML); err != nil {
		r.discard(ctx, rec.RecordKey)
		return nil, fmt.Errorf("upload document artifact: %w", err)
	}

	q := `
		INSERT INTO documents(
			id, kind, number, template_id, template_revision, category, client,
			fingerprint, content_digest, jurisdiction, subtotal, tax, total,
			record_key, artifact_key, status, generated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(
			ctx, tx, q,
			rec.ID.String(),
			string(rec.Kind),
			rec.Number,
			rec.TemplateID,
			rec.TemplateRevision,
			rec.Category,
			rec.Client,
			rec.Fingerprint,
			rec.ContentDigest,
			rec.Jurisdiction,
			rec.Subtotal.StringFixed(2),
			rec.Tax.StringFixed(2),
			rec.Total.StringFixed(2),
			rec.RecordKey,
			rec.ArtifactKey,
			string(rec.Status),
			rec.GeneratedAt,
		)
	})

	if err != nil {
		r.discard(ctx, rec.RecordKey)
		r.discard(ctx, rec.ArtifactKey)
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("document stored", "id", rec.ID, "template", rec.TemplateID, "number", rec.Number)
	return &rec, nil
}

func (r *repo) Load(ctx context.Context, id uuid.UUID) (*generation.Document, error) {
	rec, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := r.read(ctx, rec.RecordKey)
	if err != nil {
		return nil, err
	}

	var doc generation.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptRecord, rec.RecordKey, err)
	}
	return &doc, nil
}

func (r *repo) Artifact(ctx context.Context, id uuid.UUID) ([]byte, error) {
	rec, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.read(ctx, rec.ArtifactKey)
}

func (r *repo) SaveRender(ctx context.Context, id uuid.UUID, png []byte) (string, error) {
	if _, err := r.Find(ctx, id); err != nil {
		return "", err
	}

	key := RenderKey(id)
	if err := r.storage.Upload(ctx, key, bytes.NewReader(png), contentTypePNG); err != nil {
		return "", fmt.Errorf("upload document render: %w", err)
	}
	return key, nil
}

func (r *repo) Siblings(ctx context.Context, digest string, exclude uuid.UUID) ([]Record, error) {
	q, args := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("ContentDigest", digest).
		Build()

	records, err := repository.QueryMany(ctx, r.db, q, args, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("query siblings: %w", err)
	}

	siblings := make([]Record, 0, len(records))
	for _, rec := range records {
		if rec.ID != exclude {
			siblings = append(siblings, rec)
		}
	}
	return siblings, nil
}

func (r *repo) MarkDelivered(ctx context.Context, id uuid.UUID) (*Record, error) {
	rec, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status == StatusDelivered {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyDelivered, id)
	}

	at := r.now()
	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(
			ctx, tx,
			"UPDATE documents SET status = $1, delivered_at = $2 WHERE id = $3 AND status = $4",
			string(StatusDelivered), at, id.String(), string(StatusGenerated),
		)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrAlreadyDelivered, ErrDuplicate)
	}

	rec.Status = StatusDelivered
	rec.DeliveredAt = &at

	r.logger.Info("document delivered", "id", id, "number", rec.Number)
	return rec, nil
}

func (r *repo) read(ctx context.Context, key string) ([]byte, error) {
	rc, err := r.storage.Download(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: blob %s missing", ErrNotFound, key)
		}
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

func (r *repo) discard(ctx context.Context, key string) {
	if err := r.storage.Delete(ctx, key); err != nil {
		r.logger.Warn("compensating blob delete failed", "key", key, "error", err)
	}
}
