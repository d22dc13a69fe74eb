package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth
// group.
func NewRouter(svc *Service, authEnabled bool, token string, limits Limits, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, limits)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Workspace lifecycle.
	r.Get("/workspaces", h.ListWorkspaces)
	r.Post("/workspaces", h.CreateWorkspace)
	r.Get("/workspaces/{slug}", h.GetWorkspace)
	r.Put("/workspaces/{slug}", h.SaveWorkspace)
	r.Get("/workspaces/{slug}/files/{name}", h.GetWorkspaceFile)

	// Stateless engine access.
	r.Post("/extract", h.Extract)
	r.Post("/restore", h.Restore)

	// Search.
	r.Get("/search", h.Search)

	// Wikipedia import.
	r.Post("/import", h.ImportArticle)

	// SSE endpoint (protected by the same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
