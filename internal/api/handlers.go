package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/holmgren/refdesk/internal/apperr"
	"github.com/holmgren/refdesk/internal/index"
	"github.com/holmgren/refdesk/internal/refs"
	"github.com/holmgren/refdesk/internal/wikipedia"
)

// Limits bounds user-supplied input sizes.
type Limits struct {
	MaxTitleLength   int   // runes
	MaxContentLength int64 // bytes
}

// Handler holds API route handlers.
type Handler struct {
	svc    *Service
	limits Limits
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service, limits Limits) *Handler {
	if limits.MaxTitleLength <= 0 {
		limits.MaxTitleLength = 120
	}
	if limits.MaxContentLength <= 0 {
		limits.MaxContentLength = 512 << 20
	}
	return &Handler{svc: svc, limits: limits}
}

// writeWorkspaceError maps domain errors to HTTP responses. Path
// rejections surface as not-found so filesystem structure never leaks.
func writeWorkspaceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, apperr.ErrInvalidTitle):
		writeJSON(w, http.StatusBadRequest, errorBody("title cannot be converted to a valid workspace name"))
	case errors.Is(err, apperr.ErrInvalidPath), errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListWorkspaces handles GET /workspaces.
func (h *Handler) ListWorkspaces(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListWorkspaces(r.Context())
	if err != nil {
		slog.Error("list workspaces failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if items == nil {
		items = []WorkspaceListItem{}
	}
	writeJSON(w, http.StatusOK, WorkspaceListResponse{Workspaces: items, Total: len(items)})
}

// CreateWorkspace handles POST /workspaces.
func (h *Handler) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.limits.MaxContentLength)
	var req CreateWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Title == "" || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("title and content are required"))
		return
	}
	if utf8.RuneCountInString(req.Title) > h.limits.MaxTitleLength {
		writeJSON(w, http.StatusBadRequest, errorBody("title is too long"))
		return
	}

	detail, isNew, err := h.svc.CreateWorkspace(r.Context(), req.Title, req.Content)
	if err != nil {
		writeWorkspaceError(w, err, "create workspace")
		return
	}
	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	writeJSON(w, status, CreateWorkspaceResponse{Workspace: detail, IsNew: isNew})
}

// GetWorkspace handles GET /workspaces/{slug}.
func (h *Handler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	slugName := chi.URLParam(r, "slug")
	detail, err := h.svc.GetWorkspace(r.Context(), slugName)
	if err != nil {
		writeWorkspaceError(w, err, "get workspace")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// SaveWorkspace handles PUT /workspaces/{slug}.
func (h *Handler) SaveWorkspace(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.limits.MaxContentLength)
	slugName := chi.URLParam(r, "slug")

	var req SaveWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	restored, err := h.svc.SaveWorkspace(r.Context(), slugName, req.Content, req.Status)
	if err != nil {
		writeWorkspaceError(w, err, "save workspace")
		return
	}
	writeJSON(w, http.StatusOK, SaveWorkspaceResponse{Restored: restored})
}

// GetWorkspaceFile handles GET /workspaces/{slug}/files/{name}.
func (h *Handler) GetWorkspaceFile(w http.ResponseWriter, r *http.Request) {
	slugName := chi.URLParam(r, "slug")
	name := chi.URLParam(r, "name")

	data, err := h.svc.ReadFile(r.Context(), slugName, name)
	if err != nil {
		writeWorkspaceError(w, err, "read workspace file")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Extract handles POST /extract: a stateless run of the extraction
// engine without creating a workspace.
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.limits.MaxContentLength)
	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	editable, refsMap := refs.Extract(req.Content)
	writeJSON(w, http.StatusOK, ExtractResponse{Editable: editable, Refs: refsMap})
}

// Restore handles POST /restore: a stateless run of the restoration
// engine with a caller-supplied reference map.
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.limits.MaxContentLength)
	var req RestoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	writeJSON(w, http.StatusOK, RestoreResponse{Restored: refs.Restore(req.Content, req.Refs)})
}

// Search handles GET /search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// ImportArticle handles POST /import: fetch a Wikipedia article and
// create a workspace from its wikitext.
func (h *Handler) ImportArticle(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	detail, isNew, err := h.svc.ImportArticle(r.Context(), req.Title)
	if err != nil {
		switch {
		case errors.Is(err, wikipedia.ErrInvalidArticleTitle):
			writeJSON(w, http.StatusBadRequest, errorBody("invalid article title"))
		case errors.Is(err, wikipedia.ErrArticleNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("article not found"))
		case errors.Is(err, apperr.ErrInvalidTitle):
			writeJSON(w, http.StatusBadRequest, errorBody("title cannot be converted to a valid workspace name"))
		default:
			slog.Error("import failed", slog.String("title", req.Title), slog.String("error", err.Error()))
			writeJSON(w, http.StatusBadGateway, errorBody("import failed"))
		}
		return
	}
	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	writeJSON(w, status, CreateWorkspaceResponse{Workspace: detail, IsNew: isNew})
}
