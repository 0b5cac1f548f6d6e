package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/foreman/internal/compliance"
	"github.com/JaimeStill/foreman/internal/validation"
	"github.com/JaimeStill/foreman/pkg/database"
	"github.com/JaimeStill/foreman/pkg/pagination"
	"github.com/JaimeStill/foreman/pkg/query"
	"github.com/JaimeStill/foreman/pkg/repository"
)

type repo struct {
	db         *sql.DB
	driver     string
	logger     *slog.Logger
	pagination pagination.Config
	now        func() time.Time

	// serializes chain appends within the process; postgres also takes a
	// table lock so concurrent instances cannot fork the chain.
	mu sync.Mutex
}

// New creates a history store over db, which must be migrated.
func New(db *sql.DB, driver string, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		driver:     driver,
		logger:     logger.With("system", "history"),
		pagination: pagination,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) RecordResult(ctx context.Context, res *validation.Result) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	if res.RecordedAt.IsZero() {
		res.RecordedAt = r.now()
	}
	res.RecordedAt = res.RecordedAt.UTC().Truncate(time.Microsecond)

	checks, err := json.Marshal(res.Checks)
	if err != nil {
		return fmt.Errorf("encode checks: %w", err)
	}

	q := `
		INSERT INTO validation_results(id, document_id, level, overall_status, checks, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	err = repository.ExecExpectOne(ctx, r.db, q,
		res.ID.String(),
		res.DocumentID.String(),
		string(res.Level),
		string(res.OverallStatus),
		string(checks),
		res.RecordedAt,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("validation result recorded",
		"id", res.ID,
		"document", res.DocumentID,
		"level", res.Level,
		"status", res.OverallStatus,
	)
	return nil
}

func (r *repo) Results(ctx context.Context, documentID uuid.UUID) ([]validation.Result, error) {
	q, args := query.
		NewBuilder(resultProjection, resultSort).
		WhereEquals("DocumentID", documentID.String()).
		Build()

	results, err := repository.QueryMany(ctx, r.db, q, args, scanResult)
	if err != nil {
		return nil, fmt.Errorf("query validation results: %w", err)
	}
	return results, nil
}

func (r *repo) RecordViolation(ctx context.Context, v *compliance.Violation) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.OccurredAt.IsZero() {
		v.OccurredAt = r.now()
	}
	v.OccurredAt = v.OccurredAt.UTC().Truncate(time.Microsecond)
	if v.Context == nil {
		v.Context = map[string]string{}
	}

	data, err := json.Marshal(v.Context)
	if err != nil {
		return fmt.Errorf("encode violation context: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if r.driver == database.DriverPostgres {
			if _, err := tx.ExecContext(ctx, "LOCK TABLE violations IN SHARE ROW EXCLUSIVE MODE"); err != nil {
				return struct{}{}, err
			}
		}

		prev, err := lastHash(ctx, tx)
		if err != nil {
			return struct{}{}, err
		}

		hash, err := hashViolation(prev, v)
		if err != nil {
			return struct{}{}, err
		}

		q := `
			INSERT INTO violations(
				id, rule_id, severity, action, operation, phase, document_id,
				template_id, message, blocked, context, occurred_at, prev_hash, hash
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

		err = repository.ExecExpectOne(ctx, tx, q,
			v.ID.String(),
			v.RuleID,
			string(v.Severity),
			string(v.Action),
			string(v.Operation),
			string(v.Phase),
			v.DocumentID,
			v.TemplateID,
			v.Message,
			v.Blocked,
			string(data),
			v.OccurredAt,
			prev,
			hash,
		)
		if err != nil {
			return struct{}{}, err
		}

		var seq int64
		if err := tx.QueryRowContext(ctx, "SELECT seq FROM violations WHERE id = $1", v.ID.String()).Scan(&seq); err != nil {
			return struct{}{}, err
		}

		v.Seq, v.PrevHash, v.Hash = seq, prev, hash
		return struct{}{}, nil
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("violation recorded", "seq", v.Seq, "rule", v.RuleID, "hash", v.Hash)
	return nil
}

func lastHash(ctx context.Context, tx *sql.Tx) (string, error) {
	var hash string
	err := tx.QueryRowContext(ctx, "SELECT hash FROM violations ORDER BY seq DESC LIMIT 1").Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return hash, err
}

func (r *repo) Violations(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[compliance.Violation], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(violationProjection, violationSort).
		WhereSearch(page.Search, "RuleID", "Message", "DocumentID", "TemplateID")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	total, err := repository.Count(ctx, r.db, countSQL, countArgs)
	if err != nil {
		return nil, fmt.Errorf("count violations: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	violations, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanViolation)
	if err != nil {
		return nil, fmt.Errorf("query violations: %w", err)
	}

	result := pagination.NewPageResult(violations, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) VerifyChain(ctx context.Context) (*ChainReport, error) {
	q, args := query.NewBuilder(violationProjection, chainOrder).Build()

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query violations: %w", err)
	}
	defer rows.Close()

	report := &ChainReport{Verified: true}
	prev := ""

	for rows.Next() {
		v, err := scanViolation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan violation: %w", err)
		}
		report.Count++

		if v.PrevHash != prev {
			return r.broken(report, v.Seq, "prev_hash does not match preceding entry"), nil
		}
		want, err := hashViolation(prev, &v)
		if err != nil {
			return nil, err
		}
		if v.Hash != want {
			return r.broken(report, v.Seq, "hash does not match entry contents"), nil
		}

		prev = v.Hash
		report.Head = v.Hash
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return report, nil
}

func (r *repo) broken(report *ChainReport, seq int64, reason string) *ChainReport {
	report.Verified = false
	report.BrokenAt = seq
	report.Reason = reason
	r.logger.Error("violation chain broken", "seq", seq, "reason", reason)
	return report
}
