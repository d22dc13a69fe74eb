package api

import "github.com/holmgren/refdesk/internal/index"

// CreateWorkspaceRequest is the request body for creating a workspace.
type CreateWorkspaceRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// SaveWorkspaceRequest is the request body for saving edited text.
// Status is optional; when present it replaces the stored status
// verbatim.
type SaveWorkspaceRequest struct {
	Content string `json:"content"`
	Status  string `json:"status,omitempty"`
}

// CreateWorkspaceResponse wraps the created (or pre-existing) workspace.
type CreateWorkspaceResponse struct {
	Workspace *WorkspaceDetail `json:"workspace"`
	IsNew     bool             `json:"is_new"`
}

// SaveWorkspaceResponse returns the regenerated document.
type SaveWorkspaceResponse struct {
	Restored string `json:"restored"`
}

// WorkspaceListResponse wraps a workspace listing.
type WorkspaceListResponse struct {
	Workspaces []WorkspaceListItem `json:"workspaces"`
	Total      int                 `json:"total"`
}

// ExtractRequest is the request body for a stateless extraction.
type ExtractRequest struct {
	Content string `json:"content"`
}

// ExtractResponse carries the placeholder text and the reference map.
type ExtractResponse struct {
	Editable string            `json:"editable"`
	Refs     map[string]string `json:"refs"`
}

// RestoreRequest is the request body for a stateless restoration.
type RestoreRequest struct {
	Content string            `json:"content"`
	Refs    map[string]string `json:"refs"`
}

// RestoreResponse carries the restored text.
type RestoreResponse struct {
	Restored string `json:"restored"`
}

// ImportRequest names a Wikipedia article to import.
type ImportRequest struct {
	Title string `json:"title"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results"`
}
