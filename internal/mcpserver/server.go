// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Refdesk tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/holmgren/refdesk/internal/index"
	"github.com/holmgren/refdesk/internal/refs"
	"github.com/holmgren/refdesk/internal/workspace"
)

// Server wraps the MCP server with Refdesk tools.
type Server struct {
	mcp   *server.MCPServer
	store *workspace.Store
	db    *index.DB
}

// New creates a new MCP server with all Refdesk tools registered.
func New(store *workspace.Store, db *index.DB) *Server {
	s := &Server{store: store, db: db}

	s.mcp = server.NewMCPServer(
		"Refdesk",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_workspaces",
		mcp.WithDescription("List all editing workspaces, most recently updated first."),
	), s.listWorkspaces)

	s.mcp.AddTool(mcp.NewTool("read_workspace_file",
		mcp.WithDescription("Read one workspace artifact: original.wiki, refs.json, "+
			"editable.wiki, restored.wiki, or meta.json."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Workspace slug (e.g. ada-lovelace)")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Artifact file name")),
	), s.readWorkspaceFile)

	s.mcp.AddTool(mcp.NewTool("create_workspace",
		mcp.WithDescription("Create an editing workspace from a document title and raw wikitext. "+
			"Citation tags are replaced by [refN] placeholders in the editable text; the tags "+
			"themselves are preserved verbatim in the workspace's reference map. Creation is "+
			"idempotent: if a workspace with the same slug exists it is returned unchanged."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Document title, used to derive the slug")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Raw wikitext document")),
	), s.createWorkspace)

	s.mcp.AddTool(mcp.NewTool("save_workspace",
		mcp.WithDescription("Save edited placeholder text into a workspace and regenerate the "+
			"restored document from its reference map."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Workspace slug")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Edited text containing [refN] placeholders")),
		mcp.WithString("status", mcp.Description("Optional new workspace status")),
	), s.saveWorkspace)

	s.mcp.AddTool(mcp.NewTool("extract_refs",
		mcp.WithDescription("Run citation extraction on a document without creating a workspace. "+
			"Returns the placeholder text and the reference map."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Raw wikitext document")),
	), s.extractRefs)

	s.mcp.AddTool(mcp.NewTool("search_workspaces",
		mcp.WithDescription("Full-text search through workspace titles and original documents."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchWorkspaces)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listWorkspaces(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.store.List()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	type item struct {
		Slug      string `json:"slug"`
		Title     string `json:"title"`
		Status    string `json:"status"`
		RefsCount int    `json:"refs_count"`
		UpdatedAt string `json:"updated_at"`
	}
	items := make([]item, len(entries))
	for i, e := range entries {
		items[i] = item{
			Slug:      e.Slug,
			Title:     e.Meta.TitleOriginal,
			Status:    e.Meta.Status,
			RefsCount: e.Meta.RefsCount,
			UpdatedAt: e.Meta.UpdatedAt,
		}
	}
	out, _ := json.MarshalIndent(items, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readWorkspaceFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slugName, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.ReadFile(slugName, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s/%s", slugName, name)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) createWorkspace(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	slugName, _, isNew, err := s.store.Create(title, content)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !isNew {
		return mcp.NewToolResultText(fmt.Sprintf("exists: %s", slugName)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", slugName)), nil
}

func (s *Server) saveWorkspace(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slugName, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status := ""
	if v, err := req.RequireString("status"); err == nil {
		status = v
	}

	restored, err := s.store.Update(slugName, content, status)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(restored), nil
}

func (s *Server) extractRefs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	editable, refsMap := refs.Extract(content)
	out, _ := json.MarshalIndent(struct {
		Editable string            `json:"editable"`
		Refs     map[string]string `json:"refs"`
	}{Editable: editable, Refs: refsMap}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchWorkspaces(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
