package history

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/JaimeStill/foreman/internal/compliance"
	"github.com/JaimeStill/foreman/internal/validation"
	"github.com/JaimeStill/foreman/pkg/query"
	"github.com/JaimeStill/foreman/pkg/repository"
)

var violationProjection = query.
	NewProjectionMap("", "violations", "v").
	Project("seq", "Seq").
	Project("id", "ID").
	Project("rule_id", "RuleID").
	Project("severity", "Severity").
	Project("action", "Action").
	Project("operation", "Operation").
	Project("phase", "Phase").
	Project("document_id", "DocumentID").
	Project("template_id", "TemplateID").
	Project("message", "Message").
	Project("blocked", "Blocked").
	Project("context", "Context").
	Project("occurred_at", "OccurredAt").
	Project("prev_hash", "PrevHash").
	Project("hash", "Hash")

var resultProjection = query.
	NewProjectionMap("", "validation_results", "r").
	Project("id", "ID").
	Project("document_id", "DocumentID").
	Project("level", "Level").
	Project("overall_status", "OverallStatus").
	Project("checks", "Checks").
	Project("recorded_at", "RecordedAt")

var (
	violationSort = query.SortField{Field: "Seq", Descending: true}
	chainOrder    = query.SortField{Field: "Seq"}
	resultSort    = query.SortField{Field: "RecordedAt"}
)

// Filters contains optional filtering criteria for violation queries.
type Filters struct {
	RuleID     *string `json:"rule_id,omitempty"`
	Severity   *string `json:"severity,omitempty"`
	Operation  *string `json:"operation,omitempty"`
	Phase      *string `json:"phase,omitempty"`
	DocumentID *string `json:"document_id,omitempty"`
	TemplateID *string `json:"template_id,omitempty"`
	Blocked    *bool   `json:"blocked,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("RuleID", f.RuleID).
		WhereEquals("Severity", f.Severity).
		WhereEquals("Operation", f.Operation).
		WhereEquals("Phase", f.Phase).
		WhereEquals("DocumentID", f.DocumentID).
		WhereEquals("TemplateID", f.TemplateID).
		WhereEquals("Blocked", f.Blocked)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	get := func(key string) *string {
		if v := values.Get(key); v != "" {
			return &v
		}
		return nil
	}

	var blocked *bool
	if v, err := strconv.ParseBool(values.Get("blocked")); err == nil {
		blocked = &v
	}

	return Filters{
		RuleID:     get("rule_id"),
		Severity:   get("severity"),
		Operation:  get("operation"),
		Phase:      get("phase"),
		DocumentID: get("document_id"),
		TemplateID: get("template_id"),
		Blocked:    blocked,
	}
}

// jsonColumn scans a JSON or JSONB column that drivers return as text or bytes.
type jsonColumn[T any] struct {
	v *T
}

func (c jsonColumn[T]) Scan(src any) error {
	switch s := src.(type) {
	case nil:
		return nil
	case string:
		return json.Unmarshal([]byte(s), c.v)
	case []byte:
		return json.Unmarshal(s, c.v)
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
}

func scanViolation(s repository.Scanner) (compliance.Violation, error) {
	var v compliance.Violation
	err := s.Scan(
		&v.Seq,
		&v.ID,
		&v.RuleID,
		&v.Severity,
		&v.Action,
		&v.Operation,
		&v.Phase,
		&v.DocumentID,
		&v.TemplateID,
		&v.Message,
		&v.Blocked,
		jsonColumn[map[string]string]{&v.Context},
		&v.OccurredAt,
		&v.PrevHash,
		&v.Hash,
	)
	return v, err
}

func scanResult(s repository.Scanner) (validation.Result, error) {
	var r validation.Result
	err := s.Scan(
		&r.ID,
		&r.DocumentID,
		&r.Level,
		&r.OverallStatus,
		jsonColumn[[]validation.Check]{&r.Checks},
		&r.RecordedAt,
	)
	return r, err
}
