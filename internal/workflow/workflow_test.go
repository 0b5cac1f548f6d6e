package workflow_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/foreman/internal/assembly"
	"github.com/JaimeStill/foreman/internal/compliance"
	"github.com/JaimeStill/foreman/internal/documents"
	"github.com/JaimeStill/foreman/internal/generation"
	"github.com/JaimeStill/foreman/internal/history"
	"github.com/JaimeStill/foreman/internal/migrations"
	"github.com/JaimeStill/foreman/internal/tax"
	"github.com/JaimeStill/foreman/internal/templates"
	"github.com/JaimeStill/foreman/internal/validation"
	"github.com/JaimeStill/foreman/internal/workflow"
	"github.com/JaimeStill/foreman/pkg/database"
	"github.com/JaimeStill/foreman/pkg/pagination"
	"github.com/JaimeStill/foreman/pkg/storage"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type env struct {
	rt      *workflow.Runtime
	history history.System
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db, err := database.Open(&database.Config{Driver: database.DriverSQLite, Path: ":memory:"})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Up(db, database.DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store, err := storage.New(&storage.Config{Backend: storage.BackendLocal, Root: t.TempDir()}, discard())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}

	page := pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}

	repo := templates.NewRepository(templates.Config{}, discard())
	for _, path := range []string{
		filepath.Join("..", "..", "templates", "irrigation", "sprinkler_zone_turf.yaml"),
		filepath.Join("..", "..", "templates", "tree_care", "tree_removal_residential.yaml"),
	} {
		if _, err := repo.LoadFile(path); err != nil {
			t.Fatalf("LoadFile(%s): %v", path, err)
		}
	}

	cfg := validation.Config{WorkDir: t.TempDir()}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}

	docs := documents.New(db, store, discard(), page)
	hist := history.New(db, database.DriverSQLite, discard(), page)

	return &env{
		rt: &workflow.Runtime{
			Templates:  repo,
			Session:    generation.NewSession(assembly.New(nil, discard()), tax.DefaultRules().Func(), discard()),
			Documents:  docs,
			Validation: validation.New(docs, repo, validation.Options{Recorder: hist}, cfg, discard()),
			Enforcer:   compliance.NewEnforcer(compliance.DefaultRegistry(), hist, discard()),
			Logger:     discard(),
			Workers:    2,
			MaxBatch:   2,
		},
		history: hist,
	}
}

func sprinklerRequest() workflow.Request {
	return workflow.Request{
		TemplateID:   "sprinkler_zone_turf",
		Binding:      assembly.Binding{"zones": 1, "trench_feet": 150},
		Jurisdiction: "TX",
		Header:       generation.Header{Client: "Dana Ortiz", Project: "Backyard zone 1"},
	}
}

func ruleIDs(vs []compliance.Violation) map[string]bool {
	out := make(map[string]bool)
	for _, v := range vs {
		out[v.RuleID] = v.Blocked
	}
	return out
}

func TestExecute(t *testing.T) {
	e := newEnv(t)

	result, err := workflow.Execute(context.Background(), e.rt, sprinklerRequest())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if result.Document == nil || result.Document.TemplateID != "sprinkler_zone_turf" {
		t.Fatalf("document = %+v", result.Document)
	}
	if result.Validation == nil || result.Validation.OverallStatus != validation.StatusPass {
		t.Fatalf("validation = %+v", result.Validation)
	}
	if result.Validation.Level != validation.LevelStandard {
		t.Errorf("level = %s, want standard by default", result.Validation.Level)
	}
	if result.Delivered {
		t.Error("document delivered without being asked")
	}
	if len(result.Compliance) != 3 {
		t.Errorf("reports = %d, want generate, persist and validate", len(result.Compliance))
	}
	if vs := result.Violations(); len(vs) != 0 {
		t.Errorf("violations = %v, want none", ruleIDs(vs))
	}

	stored, err := e.history.Results(context.Background(), result.Document.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 1 {
		t.Errorf("recorded validations = %d, want 1", len(stored))
	}
}

func TestExecuteDeliver(t *testing.T) {
	e := newEnv(t)
	req := sprinklerRequest()
	req.Deliver = true

	result, err := workflow.Execute(context.Background(), e.rt, req)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if !result.Delivered || result.Document.Status != documents.StatusDelivered {
		t.Errorf("delivered = %v, status = %s", result.Delivered, result.Document.Status)
	}

	rules := ruleIDs(result.Violations())
	blocked, ok := rules["delivery.visual_validation"]
	if !ok || blocked {
		t.Errorf("want a non-blocking visual validation violation, got %v", rules)
	}
}

func TestExecuteBlocked(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(req *workflow.Request)
		rule      string
		persisted bool
	}{
		{
			name:   "no template",
			mutate: func(req *workflow.Request) { req.TemplateID = "" },
			rule:   "generation.template_declared",
		},
		{
			name:      "skipped validation",
			mutate:    func(req *workflow.Request) { req.SkipValidation = true },
			rule:      "validation.not_skipped",
			persisted: true,
		},
		{
			name: "delivery before standard validation",
			mutate: func(req *workflow.Request) {
				req.Level = validation.LevelBasic
				req.Override = true
				req.Deliver = true
			},
			rule:      "delivery.standard_validation",
			persisted: true,
		},
		{
			name: "delivery with override still needs validation",
			mutate: func(req *workflow.Request) {
				req.SkipValidation = true
				req.Override = true
				req.Deliver = true
			},
			rule:      "delivery.standard_validation",
			persisted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			req := sprinklerRequest()
			tt.mutate(&req)

			result, err := workflow.Execute(context.Background(), e.rt, req)
			if !errors.Is(err, compliance.ErrBlocked) {
				t.Fatalf("err = %v, want ErrBlocked", err)
			}
			if !result.Blocked() || result.Error == "" {
				t.Error("result should report the block")
			}
			if result.Delivered {
				t.Error("blocked workflow delivered the document")
			}
			if (result.Document != nil) != tt.persisted {
				t.Errorf("document persisted = %v, want %v", result.Document != nil, tt.persisted)
			}
			if blocked, ok := ruleIDs(result.Violations())[tt.rule]; !ok || !blocked {
				t.Errorf("want blocking %s, got %v", tt.rule, ruleIDs(result.Violations()))
			}
			if got := workflow.MapHTTPStatus(err); got != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want 422", got)
			}

			rule := tt.rule
			page, err := e.history.Violations(context.Background(), pagination.PageRequest{Page: 1, PageSize: 20}, history.Filters{RuleID: &rule})
			if err != nil {
				t.Fatal(err)
			}
			if page.Total != 1 {
				t.Errorf("recorded %s violations = %d, want 1", tt.rule, page.Total)
			}
		})
	}
}

func TestExecuteOverrideSkip(t *testing.T) {
	e := newEnv(t)
	req := sprinklerRequest()
	req.SkipValidation = true
	req.Override = true

	result, err := workflow.Execute(context.Background(), e.rt, req)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Validation != nil {
		t.Error("skipped validation produced a result")
	}

	rules := ruleIDs(result.Violations())
	for _, id := range []string{"validation.not_skipped", "validation.template_verified"} {
		blocked, ok := rules[id]
		if !ok {
			t.Errorf("missing %s violation", id)
		}
		if blocked {
			t.Errorf("%s blocked despite override", id)
		}
	}
}

func TestExecuteHardcodedContent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	tmpl, err := e.rt.Templates.Get("sprinkler_zone_turf")
	if err != nil {
		t.Fatal(err)
	}
	doc, err := e.rt.Session.Generate(generation.Request{
		Template: tmpl,
		Binding:  assembly.Binding{"zones": 1, "trench_feet": 150},
	})
	if err != nil {
		t.Fatal(err)
	}
	doc.ID = uuid.New()
	doc.TemplateID = "tree_removal_residential"
	doc.Binding = map[string]string{"trees": "2", "diameter_in": "18"}
	doc.Fingerprint = generation.Fingerprint(doc.TemplateID, doc.Binding, doc.LineItems)
	if _, err := e.rt.Documents.Create(ctx, doc); err != nil {
		t.Fatal(err)
	}

	result, err := workflow.Execute(ctx, e.rt, sprinklerRequest())
	if !errors.Is(err, compliance.ErrBlocked) {
		t.Fatalf("err = %v, want ErrBlocked", err)
	}
	if result.Document != nil {
		t.Error("hardcoded document was persisted")
	}
	if blocked := ruleIDs(result.Violations())["generation.no_hardcoded_content"]; !blocked {
		t.Errorf("violations = %v", ruleIDs(result.Violations()))
	}
}

func TestExecuteRegenerationIsNotHardcoded(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	for i := range 2 {
		if _, err := workflow.Execute(ctx, e.rt, sprinklerRequest()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
}

func TestExecuteErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(req *workflow.Request)
		is     error
		status int
	}{
		{
			name:   "unknown template",
			mutate: func(req *workflow.Request) { req.TemplateID = "gazebo" },
			is:     templates.ErrNotFound,
			status: http.StatusNotFound,
		},
		{
			name:   "invalid level",
			mutate: func(req *workflow.Request) { req.Level = "deep" },
			is:     workflow.ErrInvalidRequest,
			status: http.StatusBadRequest,
		},
		{
			name:   "bad jurisdiction",
			mutate: func(req *workflow.Request) { req.Jurisdiction = "Texas" },
			is:     tax.ErrInvalidJurisdiction,
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			req := sprinklerRequest()
			tt.mutate(&req)

			_, err := workflow.Execute(context.Background(), e.rt, req)
			if !errors.Is(err, tt.is) {
				t.Fatalf("err = %v, want %v", err, tt.is)
			}
			if got := workflow.MapHTTPStatus(err); got != tt.status {
				t.Errorf("status = %d, want %d", got, tt.status)
			}
		})
	}

	t.Run("missing parameter", func(t *testing.T) {
		e := newEnv(t)
		req := sprinklerRequest()
		req.Binding = assembly.Binding{"zones": 1}

		result, err := workflow.Execute(context.Background(), e.rt, req)
		var missing *assembly.MissingParameterError
		if !errors.As(err, &missing) {
			t.Fatalf("err = %v, want MissingParameterError", err)
		}
		if result.Blocked() {
			t.Error("generation failure is not a compliance block")
		}
		if _, ok := ruleIDs(result.Violations())["generation.succeeded"]; !ok {
			t.Error("generation failure should be recorded as a violation")
		}
	})
}

func TestExecuteBatch(t *testing.T) {
	e := newEnv(t)

	bad := sprinklerRequest()
	bad.TemplateID = "gazebo"

	tree := workflow.Request{
		TemplateID:   "tree_removal_residential",
		Binding:      assembly.Binding{"trees": 2, "diameter_in": 18},
		Jurisdiction: "TX",
	}

	second := sprinklerRequest()
	second.Binding = assembly.Binding{"zones": 2, "trench_feet": 150}

	results, err := workflow.ExecuteBatch(context.Background(), e.rt, []workflow.Request{sprinklerRequest(), bad, tree, second})
	if err != nil {
		t.Fatalf("ExecuteBatch: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("results = %d, want 4", len(results))
	}

	if !errors.Is(results[1].Err(), templates.ErrNotFound) || results[1].Error == "" {
		t.Errorf("bad request err = %v", results[1].Err())
	}

	seen := make(map[string]bool)
	for _, i := range []int{0, 2, 3} {
		r := results[i]
		if r.Err() != nil {
			t.Fatalf("request %d: %v", i, r.Err())
		}
		if seen[r.Document.Fingerprint] {
			t.Errorf("request %d repeats a fingerprint", i)
		}
		seen[r.Document.Fingerprint] = true
	}
	if results[2].Document.TemplateID != "tree_removal_residential" {
		t.Error("results are not in request order")
	}
}

func TestExecuteBatchCancelled(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := workflow.ExecuteBatch(ctx, e.rt, []workflow.Request{sprinklerRequest()})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
