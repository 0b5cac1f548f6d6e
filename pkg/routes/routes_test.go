package routes_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/foreman/pkg/openapi"
	"github.com/JaimeStill/foreman/pkg/routes"
)

func echo(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(name + ":" + r.PathValue("id")))
	}
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()

	routes.Register(mux,
		routes.Group{
			Prefix: "/documents",
			Routes: []routes.Route{
				{Method: "GET", Pattern: "", Handler: echo("list")},
				{Method: "GET", Pattern: "/{id}", Handler: echo("find")},
				{Method: "POST", Pattern: "/{id}/validate", Handler: echo("validate")},
			},
		},
		routes.Group{
			Prefix: "/compliance",
			Children: []routes.Group{
				{
					Prefix: "/rules",
					Routes: []routes.Route{
						{Method: "GET", Pattern: "/{id}", Handler: echo("rule")},
					},
				},
			},
		},
	)

	tests := []struct {
		method string
		path   string
		status int
		body   string
	}{
		{"GET", "/documents", http.StatusOK, "list:"},
		{"GET", "/documents/42", http.StatusOK, "find:42"},
		{"POST", "/documents/42/validate", http.StatusOK, "validate:42"},
		{"GET", "/compliance/rules/delivery.standard_validation", http.StatusOK, "rule:delivery.standard_validation"},
		{"DELETE", "/documents/42", http.StatusMethodNotAllowed, ""},
		{"GET", "/compliance", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.body != "" && rec.Body.String() != tt.body {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.body)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	explicit := &openapi.Operation{
		Summary:   "Run one estimate",
		Responses: map[int]*openapi.Response{http.StatusCreated: {Description: "Created"}},
	}

	spec := openapi.NewSpec("Test", "1.0.0")
	routes.Describe(spec,
		routes.Group{
			Prefix: "/estimates",
			Tags:   []string{"workflow"},
			Routes: []routes.Route{
				{Method: "POST", Pattern: "", Handler: echo("run"), OpenAPI: explicit},
			},
		},
		routes.Group{
			Prefix: "/storage",
			Routes: []routes.Route{
				{Method: "GET", Pattern: "/download/{key...}", Handler: echo("download")},
			},
		},
		routes.Group{
			Prefix: "/compliance",
			Children: []routes.Group{
				{
					Prefix: "/rules",
					Routes: []routes.Route{
						{Method: "GET", Pattern: "/{id}", Handler: echo("rule")},
					},
				},
			},
		},
	)

	tests := []struct {
		name    string
		op      *openapi.Operation
		summary string
		tag     string
		id      string
		params  []string
		status  int
	}{
		{"explicit", spec.Paths["/estimates"].Post, "Run one estimate", "workflow", "postEstimates", nil, http.StatusCreated},
		{"wildcard", spec.Paths["/storage/download/{key}"].Get, "GET /storage/download/{key...}", "storage", "getStorageDownloadByKey", []string{"key"}, http.StatusOK},
		{"child inherits tag", spec.Paths["/compliance/rules/{id}"].Get, "GET /compliance/rules/{id}", "compliance", "getComplianceRulesById", []string{"id"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.op == nil {
				t.Fatal("operation not described")
			}
			if tt.op.Summary != tt.summary {
				t.Errorf("summary = %q, want %q", tt.op.Summary, tt.summary)
			}
			if tt.op.OperationID != tt.id {
				t.Errorf("operationId = %q, want %q", tt.op.OperationID, tt.id)
			}
			if len(tt.op.Tags) != 1 || tt.op.Tags[0] != tt.tag {
				t.Errorf("tags = %v, want [%s]", tt.op.Tags, tt.tag)
			}
			if len(tt.op.Parameters) != len(tt.params) {
				t.Fatalf("parameters = %d, want %d", len(tt.op.Parameters), len(tt.params))
			}
			for i, name := range tt.params {
				if tt.op.Parameters[i].Name != name || tt.op.Parameters[i].In != "path" {
					t.Errorf("parameter %d = %+v", i, tt.op.Parameters[i])
				}
			}
			if _, ok := tt.op.Responses[tt.status]; !ok {
				t.Errorf("missing %d response", tt.status)
			}
		})
	}

	if explicit.Tags != nil || explicit.OperationID != "" {
		t.Error("route operation should not be modified")
	}
}

func TestEntries(t *testing.T) {
	groups := []routes.Group{
		{
			Prefix: "/documents",
			Routes: []routes.Route{{Method: "GET", Pattern: "/{id}", Handler: echo("find")}},
		},
		{
			Prefix: "/compliance",
			Tags:   []string{"rules"},
			Routes: []routes.Route{{Method: "GET", Pattern: "/metrics", Handler: echo("metrics")}},
			Children: []routes.Group{
				{Prefix: "/rules", Routes: []routes.Route{{Method: "GET", Pattern: "", Handler: echo("rules")}}},
			},
		},
	}

	want := []struct {
		pattern string
		tag     string
	}{
		{"GET /documents/{id}", "documents"},
		{"GET /compliance/metrics", "rules"},
		{"GET /compliance/rules", "rules"},
	}

	var i int
	for e := range routes.Entries(groups...) {
		if i >= len(want) {
			t.Fatalf("unexpected entry %s", e.MuxPattern())
		}
		if e.MuxPattern() != want[i].pattern {
			t.Errorf("entry %d pattern = %q, want %q", i, e.MuxPattern(), want[i].pattern)
		}
		if len(e.Tags) != 1 || e.Tags[0] != want[i].tag {
			t.Errorf("entry %d tags = %v, want [%s]", i, e.Tags, want[i].tag)
		}
		i++
	}
	if i != len(want) {
		t.Errorf("entries = %d, want %d", i, len(want))
	}

	for range routes.Entries(groups...) {
		break
	}
}
