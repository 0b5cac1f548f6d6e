package validation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/foreman/pkg/handlers"
	"github.com/JaimeStill/foreman/pkg/routes"
)

var (
	ErrInvalidID      = errors.New("invalid document id")
	ErrInvalidRequest = errors.New("invalid request body")
)

// Results reads recorded validation history.
type Results interface {
	Results(ctx context.Context, documentID uuid.UUID) ([]Result, error)
}

// ValidateRequest selects the level to validate at. The level may also be
// given as the level query parameter; the body takes precedence.
type ValidateRequest struct {
	Level Level `json:"level"`
}

// Handler provides HTTP endpoints for document validation.
type Handler struct {
	pipeline *Pipeline
	results  Results
	logger   *slog.Logger
}

// NewHandler creates a Handler over pipeline and the result history.
func NewHandler(pipeline *Pipeline, results Results, logger *slog.Logger) *Handler {
	return &Handler{
		pipeline: pipeline,
		results:  results,
		logger:   logger.With("handler", "validation"),
	}
}

// Routes returns the route group definition for validation endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/documents",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/{id}/validate", Handler: h.Validate},
			{Method: "GET", Pattern: "/{id}/validations", Handler: h.History},
		},
	}
}

// MapHTTPStatus maps validation errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnknownLevel), errors.Is(err, ErrInvalidID), errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Validate runs the pipeline at the requested level, defaulting to standard.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	raw := string(req.Level)
	if raw == "" {
		raw = r.URL.Query().Get("level")
	}
	level := LevelStandard
	if raw != "" {
		parsed, err := ParseLevel(raw)
		if err != nil {
			handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
			return
		}
		level = parsed
	}

	result, err := h.pipeline.Validate(r.Context(), id, level)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// History returns every recorded validation of a document, oldest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	results, err := h.results.Results(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, results)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
