package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/edulens/edulens/internal/catalog"
	"github.com/edulens/edulens/internal/dataset"
	"github.com/edulens/edulens/internal/errutil"
	"github.com/edulens/edulens/internal/filecache"
	"github.com/edulens/edulens/internal/repository"
	"github.com/shogo82148/go-sfv"
)

// CacheName identifies this service in Cache-Status headers.
const CacheName = "edulens"

// maxUploadBytes bounds PUT /datasets/{name} bodies.
const maxUploadBytes = 64 << 20

// Handler serves the dataset API.
//
// Routes:
//
//	GET    /datasets          listing (?refresh=1 bypasses the cache)
//	GET    /datasets/{name}   summary of one dataset
//	PUT    /datasets/{name}   upload, body is the file content
//	DELETE /datasets/{name}
//	GET    /overview
//	GET    /cache/stats
//	DELETE /cache
type Handler struct {
	Catalog *catalog.Catalog
	Cache   *filecache.Cache
	mux     *http.ServeMux
}

func NewHandler(cat *catalog.Catalog, cache *filecache.Cache) *Handler {
	h := &Handler{Catalog: cat, Cache: cache, mux: http.NewServeMux()}
	h.mux.HandleFunc("GET /datasets", h.listDatasets)
	h.mux.HandleFunc("GET /datasets/{name}", h.describeDataset)
	h.mux.HandleFunc("PUT /datasets/{name}", h.uploadDataset)
	h.mux.HandleFunc("DELETE /datasets/{name}", h.removeDataset)
	h.mux.HandleFunc("GET /overview", h.overview)
	h.mux.HandleFunc("GET /cache/stats", h.cacheStats)
	h.mux.HandleFunc("DELETE /cache", h.clearCache)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) listDatasets(w http.ResponseWriter, r *http.Request) {
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

	entries, hit, err := h.Catalog.List(r.Context(), refresh)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	setCacheStatus(w, hit, refresh)
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) describeDataset(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Catalog.Describe(r.Context(), r.PathValue("name"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) uploadDataset(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxUploadBytes)
	entry, err := h.Catalog.Upload(r.Context(), r.PathValue("name"), body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *Handler) removeDataset(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.Remove(r.Context(), r.PathValue("name")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.Catalog.Overview(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		catalog.Overview
		Highlights []string `json:"highlights"`
	}{ov, ov.Highlights()})
}

func (h *Handler) cacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Cache.Stats())
}

func (h *Handler) clearCache(w http.ResponseWriter, r *http.Request) {
	h.Cache.Clear()
	slog.Info("Cache cleared over HTTP", "remote", r.RemoteAddr)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var maxBytesErr *http.MaxBytesError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, repository.ErrInvalidName):
		status = http.StatusBadRequest
	case errors.Is(err, dataset.ErrUnsupportedFormat), errors.Is(err, dataset.ErrEmpty):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &maxBytesErr):
		status = http.StatusRequestEntityTooLarge
	}
	if status == http.StatusInternalServerError {
		errutil.ReportError(err, "Request failed", "method", r.Method, "path", r.URL.Path)
	} else {
		slog.Debug("Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// setCacheStatus sets an RFC 9211 Cache-Status header describing whether the
// response came from the file cache.
func setCacheStatus(w http.ResponseWriter, hit, forced bool) {
	item := sfv.Item{Value: sfv.Token(CacheName)}
	switch {
	case hit:
		item.Parameters = sfv.Parameters{{Key: "hit", Value: true}}
	case forced:
		item.Parameters = sfv.Parameters{{Key: "fwd", Value: sfv.Token("request")}}
	default:
		item.Parameters = sfv.Parameters{{Key: "fwd", Value: sfv.Token("miss")}}
	}
	val, err := sfv.EncodeList(sfv.List{item})
	if err != nil {
		errutil.LogMsg(err, "Failed to encode Cache-Status")
		return
	}
	w.Header().Set("Cache-Status", val)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	errutil.LogMsg(json.NewEncoder(w).Encode(v), "Failed to write response")
}
