package openapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/foreman/pkg/openapi"
)

func TestNewSpec(t *testing.T) {
	spec := openapi.NewSpec("Foreman API", "0.3.0")
	spec.AddServer("/api")
	spec.SetDescription("estimates")

	if spec.OpenAPI != "3.1.0" {
		t.Errorf("openapi version: got %s, want 3.1.0", spec.OpenAPI)
	}
	if spec.Info.Title != "Foreman API" || spec.Info.Version != "0.3.0" || spec.Info.Description != "estimates" {
		t.Errorf("info: got %+v", spec.Info)
	}
	if len(spec.Servers) != 1 || spec.Servers[0].URL != "/api" {
		t.Errorf("servers: got %+v", spec.Servers)
	}
	for _, name := range []string{"Error", "PageRequest", "Money"} {
		if _, ok := spec.Components.Schemas[name]; !ok {
			t.Errorf("missing default schema: %s", name)
		}
	}
	for _, name := range []string{"BadRequest", "NotFound", "Blocked"} {
		if _, ok := spec.Components.Responses[name]; !ok {
			t.Errorf("missing default response: %s", name)
		}
	}
}

func TestAddOperation(t *testing.T) {
	spec := openapi.NewSpec("Test", "1.0.0")

	get := &openapi.Operation{Summary: "find"}
	put := &openapi.Operation{Summary: "replace"}
	spec.AddOperation("get", "/documents/{id}", get)
	spec.AddOperation("PUT", "/documents/{id}", put)
	spec.AddOperation("PATCH", "/documents/{id}", &openapi.Operation{Summary: "ignored"})

	item := spec.Paths["/documents/{id}"]
	if item == nil {
		t.Fatal("path not added")
	}
	if item.Get != get || item.Put != put {
		t.Errorf("operations: got %+v", item)
	}
	if item.Post != nil || item.Delete != nil {
		t.Error("unexpected operations on path")
	}
}

func TestRefs(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"schema", openapi.SchemaRef("Money").Ref, "#/components/schemas/Money"},
		{"response", openapi.ResponseRef("Blocked").Ref, "#/components/responses/Blocked"},
		{"request body", openapi.RequestBodyJSON("EstimateRequest", true).Content["application/json"].Schema.Ref, "#/components/schemas/EstimateRequest"},
		{"response body", openapi.ResponseJSON("ok", "EstimateResult").Content["application/json"].Schema.Ref, "#/components/schemas/EstimateResult"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("ref: got %s, want %s", tt.got, tt.want)
			}
		})
	}
}

func TestParams(t *testing.T) {
	tests := []struct {
		name     string
		param    *openapi.Parameter
		in       string
		required bool
		format   string
	}{
		{"path", openapi.PathParam("key", "Storage key"), "path", true, ""},
		{"uuid", openapi.UUIDParam("id", "Document ID"), "path", true, "uuid"},
		{"query", openapi.QueryParam("rule_id", "string", "Rule filter", false), "query", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.param.In != tt.in || tt.param.Required != tt.required {
				t.Errorf("param: got in=%s required=%v", tt.param.In, tt.param.Required)
			}
			if tt.param.Schema.Type != "string" || tt.param.Schema.Format != tt.format {
				t.Errorf("schema: got type=%s format=%s", tt.param.Schema.Type, tt.param.Schema.Format)
			}
		})
	}
}

func TestSchemaHelpers(t *testing.T) {
	list := openapi.ArrayOf(openapi.SchemaRef("Violation"))
	if list.Type != "array" || list.Items.Ref != "#/components/schemas/Violation" {
		t.Errorf("ArrayOf = %+v", list)
	}

	ctx := openapi.MapOf(&openapi.Schema{Type: "string"})
	if ctx.Type != "object" || ctx.AdditionalProperties.Type != "string" {
		t.Errorf("MapOf = %+v", ctx)
	}

	download := openapi.ResponseBinary("Blob contents", "text/html", "image/png")
	if len(download.Content) != 2 {
		t.Fatalf("content types = %d, want 2", len(download.Content))
	}
	for ct, media := range download.Content {
		if media.Schema.Type != "string" || media.Schema.Format != "binary" {
			t.Errorf("%s schema = %+v", ct, media.Schema)
		}
	}
}

func TestComponentsMerge(t *testing.T) {
	c := openapi.NewComponents()
	c.AddSchemas(map[string]*openapi.Schema{"Document": {Type: "object"}})
	c.AddResponses(map[string]*openapi.Response{"Conflict": {Description: "Already exists"}})

	if _, ok := c.Schemas["Document"]; !ok {
		t.Error("Document schema not added")
	}
	if _, ok := c.Schemas["Money"]; !ok {
		t.Error("default Money schema should still exist")
	}
	if _, ok := c.Responses["Conflict"]; !ok {
		t.Error("Conflict response not added")
	}
	if _, ok := c.Responses["NotFound"]; !ok {
		t.Error("default NotFound response should still exist")
	}
}

func TestServeSpec(t *testing.T) {
	spec := openapi.NewSpec("Test", "1.0.0")
	spec.AddOperation("POST", "/estimates", &openapi.Operation{
		Responses: map[int]*openapi.Response{http.StatusCreated: {Description: "Created"}},
	})
	data, err := openapi.MarshalJSON(spec)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	rec := httptest.NewRecorder()
	openapi.ServeSpec(data)(rec, httptest.NewRequest("GET", "/openapi.json", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("content-type: got %s", ct)
	}

	var parsed struct {
		OpenAPI string                                `json:"openapi"`
		Paths   map[string]map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("body unmarshal failed: %v", err)
	}
	if parsed.OpenAPI != "3.1.0" {
		t.Errorf("openapi: got %s", parsed.OpenAPI)
	}
	if _, ok := parsed.Paths["/estimates"]["post"]; !ok {
		t.Errorf("paths: got %v", parsed.Paths)
	}
}

func TestConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := openapi.Config{}
		if err := cfg.Finalize(nil); err != nil {
			t.Fatalf("finalize failed: %v", err)
		}
		if cfg.Title != "Foreman API" || cfg.Description == "" {
			t.Errorf("defaults: got %+v", cfg)
		}
		if !cfg.Serve() {
			t.Error("document should be served by default")
		}
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("FOREMAN_OPENAPI_TITLE", "Yard Works API")
		t.Setenv("FOREMAN_OPENAPI_ENABLED", "false")

		cfg := openapi.Config{}
		err := cfg.Finalize(&openapi.ConfigEnv{
			Title:   "FOREMAN_OPENAPI_TITLE",
			Enabled: "FOREMAN_OPENAPI_ENABLED",
		})
		if err != nil {
			t.Fatalf("finalize failed: %v", err)
		}
		if cfg.Title != "Yard Works API" {
			t.Errorf("title: got %s", cfg.Title)
		}
		if cfg.Serve() {
			t.Error("document should be disabled")
		}
	})

	t.Run("merge", func(t *testing.T) {
		off := false
		base := openapi.Config{Title: "Base", Description: "kept"}
		base.Merge(&openapi.Config{Title: "Overlay", Enabled: &off})

		if base.Title != "Overlay" || base.Description != "kept" || base.Serve() {
			t.Errorf("merged: got %+v", base)
		}
	})
}
