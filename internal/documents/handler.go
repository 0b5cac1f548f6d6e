package documents

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/foreman/pkg/handlers"
	"github.com/JaimeStill/foreman/pkg/openapi"
	"github.com/JaimeStill/foreman/pkg/pagination"
	"github.com/JaimeStill/foreman/pkg/routes"
)

// Handler serves stored documents: summaries, full records, rendered
// artifacts and content-digest siblings.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "documents"),
		pagination: pagination,
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/documents",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List, OpenAPI: listOp},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find, OpenAPI: idOp("Document summary", "Document")},
			{Method: "GET", Pattern: "/{id}/record", Handler: h.Record, OpenAPI: idOp("Full generated document", "")},
			{Method: "GET", Pattern: "/{id}/artifact", Handler: h.Artifact, OpenAPI: artifactOp},
			{Method: "GET", Pattern: "/{id}/siblings", Handler: h.Siblings, OpenAPI: idOp("Documents sharing the same line items", "")},
			{Method: "POST", Pattern: "/search", Handler: h.Search, OpenAPI: searchOp},
		},
	}
}

// Schemas are the component schemas referenced by the document routes.
var Schemas = map[string]*openapi.Schema{
	"Document": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"id":                  {Type: "string", Format: "uuid", ReadOnly: true},
			"kind":                {Type: "string", Enum: []any{"estimate", "invoice", "contract"}},
			"number":              {Type: "string", Example: "EST-1A2B3C4D"},
			"template_id":         {Type: "string"},
			"template_revision":   {Type: "string"},
			"category":            {Type: "string"},
			"client":              {Type: "string"},
			"content_fingerprint": {Type: "string"},
			"content_digest":      {Type: "string"},
			"jurisdiction":        {Type: "string"},
			"subtotal":            openapi.SchemaRef("Money"),
			"tax":                 openapi.SchemaRef("Money"),
			"total":               openapi.SchemaRef("Money"),
			"record_key":          {Type: "string"},
			"artifact_key":        {Type: "string"},
			"status":              {Type: "string", Enum: []any{"generated", "delivered"}},
			"generated_at":        {Type: "string", Format: "date-time"},
			"delivered_at":        {Type: "string", Format: "date-time"},
		},
	},
}

var filterParams = []*openapi.Parameter{
	openapi.QueryParam("template_id", "string", "Exact template id", false),
	openapi.QueryParam("category", "string", "Exact category", false),
	openapi.QueryParam("kind", "string", "estimate, invoice or contract", false),
	openapi.QueryParam("status", "string", "generated or delivered", false),
	openapi.QueryParam("jurisdiction", "string", "Exact tax jurisdiction", false),
	openapi.QueryParam("content_digest", "string", "Exact line item digest", false),
	openapi.QueryParam("client", "string", "Client name substring", false),
	openapi.QueryParam("number", "string", "Document number substring", false),
}

var listOp = &openapi.Operation{
	Summary: "List documents, newest first",
	Parameters: append([]*openapi.Parameter{
		openapi.QueryParam("page", "integer", "Page number (1-indexed)", false),
		openapi.QueryParam("page_size", "integer", "Results per page", false),
		openapi.QueryParam("search", "string", "Matches number, client or template", false),
		openapi.QueryParam("sort", "string", "Comma-separated fields, - for descending", false),
	}, filterParams...),
	Responses: map[int]*openapi.Response{
		http.StatusOK: {Description: "Page of documents"},
	},
}

var searchOp = &openapi.Operation{
	Summary: "Search documents with a JSON body of paging and filter fields",
	RequestBody: &openapi.RequestBody{
		Required: true,
		Content: map[string]*openapi.MediaType{
			"application/json": {Schema: openapi.SchemaRef("PageRequest")},
		},
	},
	Responses: map[int]*openapi.Response{
		http.StatusOK:         {Description: "Page of documents"},
		http.StatusBadRequest: openapi.ResponseRef("BadRequest"),
	},
}

var artifactOp = &openapi.Operation{
	Summary:    "Rendered HTML artifact",
	Parameters: []*openapi.Parameter{openapi.UUIDParam("id", "Document ID")},
	Responses: map[int]*openapi.Response{
		http.StatusOK:         openapi.ResponseBinary("HTML artifact", contentTypeHTML),
		http.StatusBadRequest: openapi.ResponseRef("BadRequest"),
		http.StatusNotFound:   openapi.ResponseRef("NotFound"),
	},
}

func idOp(summary, schema string) *openapi.Operation {
	ok := &openapi.Response{Description: summary}
	if schema != "" {
		ok = openapi.ResponseJSON(summary, schema)
	}
	return &openapi.Operation{
		Summary:    summary,
		Parameters: []*openapi.Parameter{openapi.UUIDParam("id", "Document ID")},
		Responses: map[int]*openapi.Response{
			http.StatusOK:         ok,
			http.StatusBadRequest: openapi.ResponseRef("BadRequest"),
			http.StatusNotFound:   openapi.ResponseRef("NotFound"),
		},
	}
}

// List accepts filters and paging as query parameters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	h.list(w, r, page, FiltersFromQuery(r.URL.Query()))
}

// Search accepts the same criteria as List in a JSON body.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}
	req.PageRequest.Normalize(h.pagination)
	h.list(w, r, req.PageRequest, req.Filters)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, page pagination.PageRequest, filters Filters) {
	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	respondByID(h, w, r, h.sys.Find)
}

// Record returns the full generated document, including line items and binding.
func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	respondByID(h, w, r, h.sys.Load)
}

// Siblings lists other documents whose line items match the document's
// content digest. A document with no siblings yields an empty list.
func (h *Handler) Siblings(w http.ResponseWriter, r *http.Request) {
	respondByID(h, w, r, func(ctx context.Context, id uuid.UUID) ([]Record, error) {
		rec, err := h.sys.Find(ctx, id)
		if err != nil {
			return nil, err
		}
		return h.sys.Siblings(ctx, rec.ContentDigest, id)
	})
}

// Artifact serves the rendered HTML artifact.
func (h *Handler) Artifact(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	data, err := h.sys.Artifact(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func respondByID[T any](h *Handler, w http.ResponseWriter, r *http.Request, fetch func(context.Context, uuid.UUID) (T, error)) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	v, err := fetch(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, v)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
