package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"

	"github.com/JaimeStill/foreman/pkg/handlers"
	"github.com/JaimeStill/foreman/pkg/openapi"
	"github.com/JaimeStill/foreman/pkg/routes"
	"github.com/JaimeStill/foreman/pkg/storage"
)

// storageHandler exposes read-only access to stored document blobs
// (records, artifacts, and editor renders).
type storageHandler struct {
	store       storage.System
	logger      *slog.Logger
	maxListSize int32
}

func newStorageHandler(
	store storage.System,
	logger *slog.Logger,
	maxListSize int32,
) *storageHandler {
	return &storageHandler{
		store:       store,
		logger:      logger.With("handler", "storage"),
		maxListSize: maxListSize,
	}
}

func (h *storageHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/storage",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.list},
			{Method: "GET", Pattern: "/download/{key...}", Handler: h.download, OpenAPI: downloadOp},
			{Method: "GET", Pattern: "/{key...}", Handler: h.find},
		},
	}
}

var downloadOp = &openapi.Operation{
	Summary: "Download a stored record, artifact or render",
	Parameters: []*openapi.Parameter{
		openapi.PathParam("key", "Storage key"),
		openapi.QueryParam("inline", "boolean", "Serve with an inline Content-Disposition", false),
	},
	Responses: map[int]*openapi.Response{
		http.StatusOK:         openapi.ResponseBinary("Blob contents", "application/json", "text/html", "image/png"),
		http.StatusBadRequest: openapi.ResponseRef("BadRequest"),
		http.StatusNotFound:   openapi.ResponseRef("NotFound"),
	},
}

func (h *storageHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	maxResults, err := storage.ParseMaxResults(q.Get("max_results"), h.maxListSize)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}

	result, err := h.store.List(r.Context(), q.Get("prefix"), q.Get("marker"), maxResults)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// disposition builds the Content-Disposition header for a download. Renders
// and artifacts can be viewed in place with ?inline=true.
func disposition(r *http.Request, key string) string {
	kind := "attachment"
	if inline, _ := strconv.ParseBool(r.URL.Query().Get("inline")); inline {
		kind = "inline"
	}
	return fmt.Sprintf("%s; filename=%q", kind, path.Base(key))
}

func (h *storageHandler) find(w http.ResponseWriter, r *http.Request) {
	meta, err := h.store.Find(r.Context(), r.PathValue("key"))
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, meta)
}

func (h *storageHandler) download(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	meta, err := h.store.Find(r.Context(), key)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}

	body, err := h.store.Download(r.Context(), key)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}
	defer body.Close()

	if meta.ContentType != "" {
		w.Header().Set("Content-Type", meta.ContentType)
	}
	if meta.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(meta.ContentLength, 10))
	}
	w.Header().Set("Content-Disposition", disposition(r, key))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("download interrupted", "key", key, "error", err)
	}
}
