package history_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/foreman/internal/compliance"
	"github.com/JaimeStill/foreman/internal/history"
	"github.com/JaimeStill/foreman/internal/migrations"
	"github.com/JaimeStill/foreman/internal/validation"
	"github.com/JaimeStill/foreman/pkg/database"
	"github.com/JaimeStill/foreman/pkg/pagination"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStore(t *testing.T) (history.System, *sql.DB) {
	t.Helper()

	db, err := database.Open(&database.Config{Driver: database.DriverSQLite, Path: ":memory:"})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Up(db, database.DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return history.New(db, database.DriverSQLite, discard(), pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}), db
}

func violation(rule string, blocked bool) *compliance.Violation {
	return &compliance.Violation{
		RuleID:     rule,
		Severity:   compliance.SeverityStrict,
		Action:     compliance.ActionBlock,
		Operation:  compliance.OpDocumentGeneration,
		Phase:      compliance.PhasePre,
		DocumentID: "doc-1",
		TemplateID: "paver_patio",
		Message:    "operation does not name a template",
		Blocked:    blocked,
		Context:    map[string]string{"scenario": "single_document"},
		OccurredAt: time.Date(2026, 3, 14, 9, 30, 0, 123456789, time.UTC),
	}
}

func TestComputeHash(t *testing.T) {
	a := history.ComputeHash("", "entry")
	if len(a) != 64 {
		t.Fatalf("hash length = %d, want 64", len(a))
	}
	if a == history.ComputeHash("prev", "entry") {
		t.Error("prev hash should change the result")
	}
	if a != history.ComputeHash("", "entry") {
		t.Error("hash is not deterministic")
	}
}

func TestRecordViolationChain(t *testing.T) {
	sys, _ := newStore(t)
	ctx := context.Background()

	var prev string
	for i := range 3 {
		v := violation(fmt.Sprintf("rule.%d", i), i%2 == 0)
		if err := sys.RecordViolation(ctx, v); err != nil {
			t.Fatalf("RecordViolation: %v", err)
		}
		if v.Seq != int64(i+1) {
			t.Errorf("seq = %d, want %d", v.Seq, i+1)
		}
		if v.PrevHash != prev {
			t.Errorf("prev_hash = %q, want %q", v.PrevHash, prev)
		}
		if v.ID == uuid.Nil || v.Hash == "" {
			t.Errorf("id/hash not assigned: %+v", v)
		}
		prev = v.Hash
	}

	report, err := sys.VerifyChain(ctx)
	if err != nil {
		t.Fatalf("VerifyChain: %v", err)
	}
	if !report.Verified || report.Count != 3 || report.Head != prev {
		t.Errorf("report = %+v", report)
	}
}

func TestRecordViolationDuplicate(t *testing.T) {
	sys, _ := newStore(t)
	ctx := context.Background()

	v := violation("rule.a", true)
	if err := sys.RecordViolation(ctx, v); err != nil {
		t.Fatal(err)
	}
	dup := violation("rule.b", true)
	dup.ID = v.ID
	if err := sys.RecordViolation(ctx, dup); !errors.Is(err, history.ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}
}

func TestVerifyChainEmpty(t *testing.T) {
	sys, _ := newStore(t)
	report, err := sys.VerifyChain(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !report.Verified || report.Count != 0 {
		t.Errorf("report = %+v", report)
	}
}

func TestVerifyChainDetectsTampering(t *testing.T) {
	sys, db := newStore(t)
	ctx := context.Background()

	for i := range 3 {
		if err := sys.RecordViolation(ctx, violation(fmt.Sprintf("rule.%d", i), false)); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := db.Exec(`UPDATE violations SET message = 'edited' WHERE seq = 2`); err == nil {
		t.Fatal("update should be rejected by the append-only trigger")
	}

	if _, err := db.Exec(`DROP TRIGGER violations_no_update`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`UPDATE violations SET message = 'edited' WHERE seq = 2`); err != nil {
		t.Fatal(err)
	}

	report, err := sys.VerifyChain(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.Verified || report.BrokenAt != 2 {
		t.Errorf("report = %+v, want broken at 2", report)
	}
}

func TestViolationsList(t *testing.T) {
	sys, _ := newStore(t)
	ctx := context.Background()

	for i := range 4 {
		v := violation("rule.a", i < 3)
		if i == 3 {
			v.RuleID = "rule.b"
		}
		if err := sys.RecordViolation(ctx, v); err != nil {
			t.Fatal(err)
		}
	}

	ptr := func(s string) *string { return &s }
	yes := true

	tests := []struct {
		name    string
		filters history.Filters
		want    int
	}{
		{"all", history.Filters{}, 4},
		{"by rule", history.Filters{RuleID: ptr("rule.b")}, 1},
		{"blocked", history.Filters{Blocked: &yes}, 3},
		{"by document", history.Filters{DocumentID: ptr("doc-2")}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := sys.Violations(ctx, pagination.PageRequest{Page: 1, PageSize: 10}, tt.filters)
			if err != nil {
				t.Fatalf("Violations: %v", err)
			}
			if result.Total != tt.want {
				t.Errorf("total = %d, want %d", result.Total, tt.want)
			}
		})
	}

	result, err := sys.Violations(ctx, pagination.PageRequest{Page: 1, PageSize: 10}, history.Filters{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Data[0].Seq != 4 {
		t.Errorf("first seq = %d, want newest first", result.Data[0].Seq)
	}
	if result.Data[0].Context["scenario"] != "single_document" {
		t.Errorf("context = %v", result.Data[0].Context)
	}
}

func TestRecordResult(t *testing.T) {
	sys, _ := newStore(t)
	ctx := context.Background()
	docID := uuid.New()

	for _, level := range []validation.Level{validation.LevelBasic, validation.LevelStandard} {
		res := &validation.Result{
			DocumentID:    docID,
			Level:         level,
			OverallStatus: validation.StatusPass,
			Checks: []validation.Check{
				{Name: "document_exists", Level: validation.LevelBasic, Status: validation.StatusPass},
			},
		}
		if err := sys.RecordResult(ctx, res); err != nil {
			t.Fatalf("RecordResult: %v", err)
		}
		if res.ID == uuid.Nil || res.RecordedAt.IsZero() {
			t.Errorf("id/recorded_at not assigned: %+v", res)
		}
	}

	results, err := sys.Results(ctx, docID)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].Level != validation.LevelBasic || results[1].Level != validation.LevelStandard {
		t.Errorf("levels = %s, %s", results[0].Level, results[1].Level)
	}
	if len(results[0].Checks) != 1 || results[0].Checks[0].Name != "document_exists" {
		t.Errorf("checks = %+v", results[0].Checks)
	}

	other, err := sys.Results(ctx, uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Errorf("other document results = %d, want 0", len(other))
	}
}

func TestEnforcerRecordsToHistory(t *testing.T) {
	sys, _ := newStore(t)
	ctx := context.Background()
	enf := compliance.NewEnforcer(compliance.DefaultRegistry(), sys, discard())

	_, err := enf.Run(ctx, &compliance.Context{Operation: compliance.OpDocumentGeneration}, func(context.Context, *compliance.Context) error {
		return nil
	})
	if !errors.Is(err, compliance.ErrBlocked) {
		t.Fatalf("err = %v, want ErrBlocked", err)
	}

	result, err := sys.Violations(ctx, pagination.PageRequest{Page: 1, PageSize: 10}, history.Filters{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Total != 1 || result.Data[0].RuleID != "generation.template_declared" || !result.Data[0].Blocked {
		t.Errorf("violations = %+v", result.Data)
	}
}

func TestHandler(t *testing.T) {
	sys, _ := newStore(t)
	if err := sys.RecordViolation(context.Background(), violation("rule.a", true)); err != nil {
		t.Fatal(err)
	}

	mux := http.NewServeMux()
	group := sys.Handler().Routes()
	for _, route := range group.Routes {
		mux.HandleFunc(route.Method+" "+group.Prefix+route.Pattern, route.Handler)
	}

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{"list", "GET", "/violations?rule_id=rule.a", "", http.StatusOK, `"total":1`},
		{"list filtered out", "GET", "/violations?blocked=false", "", http.StatusOK, `"total":0`},
		{"verify", "GET", "/violations/verify", "", http.StatusOK, `"verified":true`},
		{"search", "POST", "/violations/search", `{"page":1,"template_id":"paver_patio"}`, http.StatusOK, `"total":1`},
		{"bad search", "POST", "/violations/search", "{", http.StatusBadRequest, "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body %s missing %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}
