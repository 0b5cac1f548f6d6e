package compliance

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/foreman/pkg/handlers"
	"github.com/JaimeStill/foreman/pkg/routes"
)

// Handler exposes the rule registry and enforcement metrics.
type Handler struct {
	enforcer *Enforcer
	logger   *slog.Logger
}

// NewHandler creates a Handler over enforcer.
func NewHandler(enforcer *Enforcer, logger *slog.Logger) *Handler {
	return &Handler{
		enforcer: enforcer,
		logger:   logger.With("handler", "compliance"),
	}
}

// Routes returns the route group definition for compliance endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/compliance",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/rules", Handler: h.Rules},
			{Method: "GET", Pattern: "/metrics", Handler: h.Metrics},
		},
	}
}

// Rules lists the rules in force, optionally filtered by operation.
func (h *Handler) Rules(w http.ResponseWriter, r *http.Request) {
	rules := h.enforcer.Registry().Rules()

	if op := Operation(r.URL.Query().Get("operation")); op != "" {
		if !knownOperation(op) {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrUnknownOperation)
			return
		}
		filtered := make([]Rule, 0, len(rules))
		for _, rule := range rules {
			if rule.Operation == op {
				filtered = append(filtered, rule)
			}
		}
		rules = filtered
	}

	handlers.RespondJSON(w, http.StatusOK, rules)
}

// Metrics returns the current enforcement totals.
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.enforcer.Metrics().Snapshot())
}
