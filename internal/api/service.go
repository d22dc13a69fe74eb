package api

import (
	"context"
	"fmt"

	"github.com/holmgren/refdesk/internal/index"
	"github.com/holmgren/refdesk/internal/workspace"
)

// ArticleFetcher retrieves raw article text for imports. Implemented by
// *wikipedia.Client.
type ArticleFetcher interface {
	FetchArticle(ctx context.Context, title string) (string, error)
}

// Service coordinates the workspace store, the search index, and the
// article import client for the API layer.
type Service struct {
	store *workspace.Store
	db    index.WorkspaceIndex
	wiki  ArticleFetcher
}

// NewService creates a new API service. wiki may be nil to disable
// Wikipedia imports.
func NewService(store *workspace.Store, db index.WorkspaceIndex, wiki ArticleFetcher) *Service {
	return &Service{store: store, db: db, wiki: wiki}
}

// WorkspaceDetail is the response payload for a single workspace.
type WorkspaceDetail struct {
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	RefsCount int    `json:"refs_count"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	Editable  string `json:"editable"`
}

// WorkspaceListItem is a lightweight item in a list response.
type WorkspaceListItem struct {
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	RefsCount int    `json:"refs_count"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// CreateWorkspace creates a workspace from a title and raw document.
// Creation is idempotent by slug; isNew reports whether the workspace
// was created by this call.
func (s *Service) CreateWorkspace(_ context.Context, title, document string) (*WorkspaceDetail, bool, error) {
	slugName, _, isNew, err := s.store.Create(title, document)
	if err != nil {
		return nil, false, err
	}
	detail, err := s.GetWorkspace(context.Background(), slugName)
	if err != nil {
		return nil, false, err
	}
	return detail, isNew, nil
}

// GetWorkspace returns a workspace's metadata plus its editable text.
func (s *Service) GetWorkspace(_ context.Context, slugName string) (*WorkspaceDetail, error) {
	e, err := s.store.Get(slugName)
	if err != nil {
		return nil, err
	}
	editable, err := s.store.ReadFile(slugName, workspace.FileEditable)
	if err != nil {
		return nil, err
	}
	return &WorkspaceDetail{
		Slug:      e.Slug,
		Title:     e.Meta.TitleOriginal,
		Status:    e.Meta.Status,
		RefsCount: e.Meta.RefsCount,
		CreatedAt: e.Meta.CreatedAt,
		UpdatedAt: e.Meta.UpdatedAt,
		Editable:  string(editable),
	}, nil
}

// SaveWorkspace stores edited text, regenerates the restored document
// from the immutable reference map, and returns the restored text.
func (s *Service) SaveWorkspace(_ context.Context, slugName, content, status string) (string, error) {
	return s.store.Update(slugName, content, status)
}

// ListWorkspaces returns all workspaces, most recently updated first.
func (s *Service) ListWorkspaces(_ context.Context) ([]WorkspaceListItem, error) {
	entries, err := s.store.List()
	if err != nil {
		return nil, err
	}
	items := make([]WorkspaceListItem, len(entries))
	for i, e := range entries {
		items[i] = WorkspaceListItem{
			Slug:      e.Slug,
			Title:     e.Meta.TitleOriginal,
			Status:    e.Meta.Status,
			RefsCount: e.Meta.RefsCount,
			CreatedAt: e.Meta.CreatedAt,
			UpdatedAt: e.Meta.UpdatedAt,
		}
	}
	return items, nil
}

// ReadFile returns one of the five allow-listed workspace artifacts.
func (s *Service) ReadFile(_ context.Context, slugName, name string) ([]byte, error) {
	return s.store.ReadFile(slugName, name)
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// ImportArticle fetches an article from Wikipedia and creates a
// workspace from it.
func (s *Service) ImportArticle(ctx context.Context, title string) (*WorkspaceDetail, bool, error) {
	if s.wiki == nil {
		return nil, false, fmt.Errorf("wikipedia import is not configured")
	}
	wikitext, err := s.wiki.FetchArticle(ctx, title)
	if err != nil {
		return nil, false, err
	}
	return s.CreateWorkspace(ctx, title, wikitext)
}
