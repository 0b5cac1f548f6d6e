package workflow

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/foreman/pkg/handlers"
	"github.com/JaimeStill/foreman/pkg/openapi"
	"github.com/JaimeStill/foreman/pkg/routes"
)

// DefaultMaxBatch caps the batch endpoint when the runtime sets no limit.
const DefaultMaxBatch = 50

// Handler provides HTTP endpoints for running the estimate workflow.
type Handler struct {
	rt     *Runtime
	logger *slog.Logger
}

// BatchRequest is the body of the batch endpoint.
type BatchRequest struct {
	Requests []Request `json:"requests"`
}

// NewHandler creates a Handler over rt.
func NewHandler(rt *Runtime, logger *slog.Logger) *Handler {
	return &Handler{
		rt:     rt,
		logger: logger.With("handler", "workflow"),
	}
}

// Routes returns the route group definition for workflow endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/estimates",
		Tags:   []string{"estimates"},
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Execute, OpenAPI: executeOp},
			{Method: "POST", Pattern: "/batch", Handler: h.Batch, OpenAPI: batchOp},
		},
	}
}

var executeOp = &openapi.Operation{
	Summary:     "Generate, persist and validate one estimate",
	RequestBody: openapi.RequestBodyJSON("EstimateRequest", true),
	Responses: map[int]*openapi.Response{
		http.StatusCreated:             openapi.ResponseJSON("Workflow completed", "EstimateResult"),
		http.StatusBadRequest:          openapi.ResponseRef("BadRequest"),
		http.StatusNotFound:            openapi.ResponseRef("NotFound"),
		http.StatusUnprocessableEntity: openapi.ResponseJSON("Blocked or failed validation; partial result", "EstimateResult"),
	},
}

var batchOp = &openapi.Operation{
	Summary:     "Run the estimate workflow for a batch of requests",
	Description: "The batch size is capped by api.max_batch (50 by default).",
	RequestBody: openapi.RequestBodyJSON("EstimateBatch", true),
	Responses: map[int]*openapi.Response{
		http.StatusOK:         {Description: "Results in request order"},
		http.StatusBadRequest: openapi.ResponseRef("BadRequest"),
	},
}

// Execute runs the workflow for one request. A run stopped by a failing or
// blocked step still returns its partial result, with the status mapped from
// the stopping error.
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	result, err := Execute(r.Context(), h.rt, req)
	if result == nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	if err != nil {
		handlers.RespondJSON(w, MapHTTPStatus(err), result)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, result)
}

// Batch runs the workflow for every request in the body. Individual failures
// are reported per result; the response is 200 unless the batch itself fails.
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}
	if n, limit := len(req.Requests), h.rt.batchLimit(); n == 0 || n > limit {
		handlers.RespondError(w, h.logger, http.StatusBadRequest,
			fmt.Errorf("%w: batch of %d requests, limit %d", ErrInvalidRequest, n, limit))
		return
	}

	results, err := ExecuteBatch(r.Context(), h.rt, req.Requests)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, results)
}
