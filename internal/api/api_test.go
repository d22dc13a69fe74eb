package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/holmgren/refdesk/internal/index"
	"github.com/holmgren/refdesk/internal/testutil"
	"github.com/holmgren/refdesk/internal/wikipedia"
	"github.com/holmgren/refdesk/internal/workspace"
)

// testEnv sets up a temp workspace store, SQLite index, service, and
// router. authToken == "" means auth is disabled.
func testEnv(t *testing.T, authToken string) (*Service, http.Handler) {
	t.Helper()
	svc, router, _, _ := testEnvFull(t, authToken, nil)
	return svc, router
}

func testEnvFull(t *testing.T, authToken string, wiki ArticleFetcher) (*Service, http.Handler, *workspace.Store, *index.DB) {
	t.Helper()

	_, store := testutil.TestStore(t)
	db := testutil.TestDB(t)
	svc := NewService(store, db, wiki)
	router := NewRouter(svc, authToken != "", authToken, Limits{}, nil)
	return svc, router, store, db
}

func doJSON(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateAndGetWorkspace(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/workspaces", map[string]string{
		"title":   "Ada Lovelace",
		"content": "Pioneer.<ref>Menabrea notes</ref> Analyst.<ref name=\"b\">Babbage letters</ref>",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var created CreateWorkspaceResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if !created.IsNew {
		t.Error("is_new = false, want true")
	}
	if created.Workspace.Slug != "ada-lovelace" {
		t.Errorf("slug = %q", created.Workspace.Slug)
	}
	if created.Workspace.RefsCount != 2 {
		t.Errorf("refs_count = %d, want 2", created.Workspace.RefsCount)
	}

	w = doJSON(t, router, http.MethodGet, "/workspaces/ada-lovelace", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var detail WorkspaceDetail
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatal(err)
	}
	if detail.Title != "Ada Lovelace" {
		t.Errorf("title = %q", detail.Title)
	}
	if detail.Editable != "Pioneer.[ref1] Analyst.[ref2]" {
		t.Errorf("editable = %q", detail.Editable)
	}
	if detail.Status != workspace.StatusProcessing {
		t.Errorf("status = %q", detail.Status)
	}
}

func TestCreateIdempotent(t *testing.T) {
	_, router := testEnv(t, "")

	body := map[string]string{"title": "Dup Article", "content": "first version"}
	w := doJSON(t, router, http.MethodPost, "/workspaces", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("first create = %d", w.Code)
	}

	// Second create returns the existing workspace untouched.
	body["content"] = "second version"
	w = doJSON(t, router, http.MethodPost, "/workspaces", body)
	if w.Code != http.StatusOK {
		t.Fatalf("second create = %d, want 200", w.Code)
	}
	var resp CreateWorkspaceResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.IsNew {
		t.Error("is_new = true on existing workspace")
	}
	if resp.Workspace.Editable != "first version" {
		t.Errorf("editable = %q, original overwritten", resp.Workspace.Editable)
	}
}

func TestCreateValidation(t *testing.T) {
	_, router := testEnv(t, "")

	cases := []struct {
		name string
		body map[string]string
	}{
		{"missing title", map[string]string{"content": "x"}},
		{"missing content", map[string]string{"title": "x"}},
		{"unsluggable title", map[string]string{"title": "!!!", "content": "x"}},
	}
	for _, tc := range cases {
		w := doJSON(t, router, http.MethodPost, "/workspaces", tc.body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tc.name, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/workspaces", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON: status = %d, want 400", w.Code)
	}
}

func TestSaveWorkspace(t *testing.T) {
	_, router, store, _ := testEnvFull(t, "", nil)

	w := doJSON(t, router, http.MethodPost, "/workspaces", map[string]string{
		"title":   "Save Me",
		"content": "Alpha<ref>one</ref> beta<ref>two</ref>",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d", w.Code)
	}

	w = doJSON(t, router, http.MethodPut, "/workspaces/save-me", map[string]string{
		"content": "Beta[ref2] alpha[ref1]",
		"status":  workspace.StatusDone,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("save = %d, body = %s", w.Code, w.Body.String())
	}
	var resp SaveWorkspaceResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	want := "Beta<ref>two</ref> alpha<ref>one</ref>"
	if resp.Restored != want {
		t.Errorf("restored = %q, want %q", resp.Restored, want)
	}

	// Restored text is also persisted.
	data, err := store.ReadFile("save-me", workspace.FileRestored)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != want {
		t.Errorf("restored.wiki = %q", string(data))
	}

	e, err := store.Get("save-me")
	if err != nil {
		t.Fatal(err)
	}
	if e.Meta.Status != workspace.StatusDone {
		t.Errorf("status = %q, want done", e.Meta.Status)
	}
}

func TestSaveMissingWorkspace(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPut, "/workspaces/no-such", map[string]string{"content": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("save missing = %d, want 404", w.Code)
	}
}

func TestListWorkspaces(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodGet, "/workspaces", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp WorkspaceListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 0 || resp.Workspaces == nil {
		t.Errorf("empty list: total = %d, workspaces = %v", resp.Total, resp.Workspaces)
	}

	for _, title := range []string{"One", "Two", "Three"} {
		doJSON(t, router, http.MethodPost, "/workspaces", map[string]string{"title": title, "content": "body"})
	}
	w = doJSON(t, router, http.MethodGet, "/workspaces", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 3 {
		t.Errorf("total = %d, want 3", resp.Total)
	}
}

func TestGetWorkspaceFile(t *testing.T) {
	_, router := testEnv(t, "")

	doJSON(t, router, http.MethodPost, "/workspaces", map[string]string{
		"title":   "Files",
		"content": "Text<ref>cite</ref>",
	})

	w := doJSON(t, router, http.MethodGet, "/workspaces/files/files/original.wiki", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("original.wiki = %d", w.Code)
	}
	if w.Body.String() != "Text<ref>cite</ref>" {
		t.Errorf("body = %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Errorf("content type = %q", ct)
	}

	// Names outside the artifact allow-list are not served, even if a
	// file by that name exists in the workspace directory.
	w = doJSON(t, router, http.MethodGet, "/workspaces/files/files/meta.yaml", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("disallowed name = %d, want 404", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/workspaces/files/files/..", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("dotdot name = %d, want 404", w.Code)
	}
}

func TestExtractEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/extract", map[string]string{
		"content": "A<ref>x</ref>B<ref name=\"n\"/>C",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("extract = %d", w.Code)
	}
	var resp ExtractResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Editable != "A[ref1]B[ref2]C" {
		t.Errorf("editable = %q", resp.Editable)
	}
	if resp.Refs["ref1"] != "<ref>x</ref>" || resp.Refs["ref2"] != "<ref name=\"n\"/>" {
		t.Errorf("refs = %v", resp.Refs)
	}
}

func TestRestoreEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/restore", map[string]any{
		"content": "B[ref2] A[ref1] [ref9]",
		"refs":    map[string]string{"ref1": "<ref>a</ref>", "ref2": "<ref>b</ref>"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("restore = %d", w.Code)
	}
	var resp RestoreResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	want := "B<ref>b</ref> A<ref>a</ref> [ref9]"
	if resp.Restored != want {
		t.Errorf("restored = %q, want %q", resp.Restored, want)
	}
}

func TestSearchEndpoint(t *testing.T) {
	_, router, store, db := testEnvFull(t, "", nil)

	doJSON(t, router, http.MethodPost, "/workspaces", map[string]string{
		"title":   "Quantum Entanglement",
		"content": "Spooky action involving zymurgy metaphors.",
	})
	if err := index.Sync(db, store, slog.New(slog.NewTextHandler(os.Stderr, nil))); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	w := doJSON(t, router, http.MethodGet, "/search?q=zymurgy", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d", w.Code)
	}
	var resp SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Slug != "quantum-entanglement" {
		t.Errorf("results = %+v", resp.Results)
	}

	w = doJSON(t, router, http.MethodGet, "/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing q = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, router := testEnv(t, "sekrit")

	req := httptest.NewRequest(http.MethodGet, "/workspaces", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/workspaces", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/workspaces", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}

type fakeFetcher struct {
	fetch func(ctx context.Context, title string) (string, error)
}

func (f *fakeFetcher) FetchArticle(ctx context.Context, title string) (string, error) {
	return f.fetch(ctx, title)
}

func TestImportArticle(t *testing.T) {
	wiki := &fakeFetcher{fetch: func(_ context.Context, title string) (string, error) {
		switch title {
		case "Known Article":
			return "Intro.<ref>first source</ref>", nil
		case "Gone":
			return "", wikipedia.ErrArticleNotFound
		default:
			return "", wikipedia.ErrInvalidArticleTitle
		}
	}}
	_, router, store, _ := testEnvFull(t, "", wiki)

	w := doJSON(t, router, http.MethodPost, "/import", map[string]string{"title": "Known Article"})
	if w.Code != http.StatusCreated {
		t.Fatalf("import = %d, body = %s", w.Code, w.Body.String())
	}
	var resp CreateWorkspaceResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Workspace.Slug != "known-article" || resp.Workspace.RefsCount != 1 {
		t.Errorf("workspace = %+v", resp.Workspace)
	}
	if _, err := os.Stat(filepath.Join(store.Root(), "known-article", workspace.FileMeta)); err != nil {
		t.Errorf("meta.json not written: %v", err)
	}

	w = doJSON(t, router, http.MethodPost, "/import", map[string]string{"title": "Gone"})
	if w.Code != http.StatusNotFound {
		t.Errorf("missing article = %d, want 404", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/import", map[string]string{"title": "bad[name]"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid title = %d, want 400", w.Code)
	}
}
