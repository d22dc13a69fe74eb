// Package workspace owns the on-disk representation of reference
// workspaces and their lifecycle. A workspace is a directory under the
// store root, keyed by slug, holding the immutable original document
// and reference map plus the mutable editable and restored texts.
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/holmgren/refdesk/internal/apperr"
	"github.com/holmgren/refdesk/internal/refs"
	"github.com/holmgren/refdesk/internal/slug"
)

// Fixed per-workspace file names. ReadFile serves exactly these and
// nothing else.
const (
	FileOriginal = "original.wiki"
	FileRefs     = "refs.json"
	FileEditable = "editable.wiki"
	FileRestored = "restored.wiki"
	FileMeta     = "meta.json"
)

var allowedFiles = map[string]struct{}{
	FileOriginal: {},
	FileRefs:     {},
	FileEditable: {},
	FileRestored: {},
	FileMeta:     {},
}

// Store manages workspaces under a single root directory.
type Store struct {
	root string // canonical absolute path to the storage root

	now func() time.Time // overridable in tests
}

// NewStore creates a Store rooted at the given directory. The directory
// must already exist.
func NewStore(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("workspace: resolve root: %w", err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("workspace: resolve root: %w", err)
	}
	info, err := os.Stat(canonical)
	if err != nil {
		return nil, fmt.Errorf("workspace: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace: root is not a directory: %s", canonical)
	}
	return &Store{root: canonical, now: time.Now}, nil
}

// Root returns the canonical storage root.
func (s *Store) Root() string {
	return s.root
}

// Entry is one row in a workspace listing.
type Entry struct {
	Slug string `json:"slug"`
	Path string `json:"-"`
	Meta Meta   `json:"meta"`
}

// Create makes a new workspace from a title and a raw document, or
// returns the identity of the existing one. Creation is idempotent by
// slug and never overwrites: if original.wiki is already present the
// stored artifacts are left untouched and isNew is false.
//
// Returns apperr.ErrInvalidTitle when the title yields an empty slug
// and apperr.ErrInvalidPath when the slug fails path validation.
func (s *Store) Create(title, document string) (slugName, path string, isNew bool, err error) {
	slugName = slug.Make(title)
	if slugName == "" {
		return "", "", false, fmt.Errorf("workspace: title %q: %w", title, apperr.ErrInvalidTitle)
	}

	path, err = s.safePath(slugName)
	if err != nil {
		return "", "", false, fmt.Errorf("%s: %w", err.Error(), apperr.ErrInvalidPath)
	}

	if _, statErr := os.Stat(filepath.Join(path, FileOriginal)); statErr == nil {
		return slugName, path, false, nil
	}

	// Compute every artifact before touching disk so a failed write
	// never leaves a half-extracted workspace behind.
	editable, refsMap := refs.Extract(document)
	refsJSON, err := json.MarshalIndent(refsMap, "", "  ")
	if err != nil {
		return "", "", false, fmt.Errorf("workspace: encode refs: %w", err)
	}
	now := s.now().UTC().Format(time.RFC3339)
	meta := Meta{
		TitleOriginal: title,
		Slug:          slugName,
		CreatedAt:     now,
		UpdatedAt:     now,
		RefsCount:     len(refsMap),
		Status:        StatusProcessing,
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", "", false, fmt.Errorf("workspace: mkdir: %w", err)
	}

	// Metadata goes last: listing and reads treat a directory without
	// readable meta.json as not yet created.
	writes := []struct {
		name    string
		content []byte
	}{
		{FileOriginal, []byte(document)},
		{FileRefs, append(refsJSON, '\n')},
		{FileEditable, []byte(editable)},
		{FileRestored, []byte(document)},
		{FileMeta, encodeMeta(meta)},
	}
	for _, w := range writes {
		if err := atomicWrite(filepath.Join(path, w.name), w.content); err != nil {
			return "", "", false, err
		}
	}

	return slugName, path, true, nil
}

// Update overwrites the editable text, recomputes the restored text
// from the stored reference map, and bumps the metadata timestamp. A
// non-empty status replaces the stored status verbatim. Returns the
// restored text.
//
// Returns apperr.ErrNotFound when the workspace's reference map is
// missing or unreadable.
func (s *Store) Update(slugName, edited, status string) (string, error) {
	path, err := s.safePath(slugName)
	if err != nil {
		return "", fmt.Errorf("%s: %w", err.Error(), apperr.ErrInvalidPath)
	}

	refsData, err := os.ReadFile(filepath.Join(path, FileRefs))
	if err != nil {
		return "", fmt.Errorf("workspace: %s: %w", slugName, apperr.ErrNotFound)
	}
	var refsMap map[string]string
	if err := json.Unmarshal(refsData, &refsMap); err != nil {
		return "", fmt.Errorf("workspace: %s: corrupt reference map: %w", slugName, apperr.ErrNotFound)
	}

	restored := refs.Restore(edited, refsMap)

	if err := atomicWrite(filepath.Join(path, FileEditable), []byte(edited)); err != nil {
		return "", err
	}
	if err := atomicWrite(filepath.Join(path, FileRestored), []byte(restored)); err != nil {
		return "", err
	}

	meta, err := s.readMeta(path)
	if err != nil {
		// Tolerate a missing or corrupt record: rebuild what we know.
		meta = Meta{Slug: slugName, Status: StatusProcessing}
	}
	meta.UpdatedAt = s.now().UTC().Format(time.RFC3339)
	if status != "" {
		meta.Status = status
	}
	if err := atomicWrite(filepath.Join(path, FileMeta), encodeMeta(meta)); err != nil {
		return "", err
	}

	return restored, nil
}

// List enumerates workspaces under the root, most recently updated
// first. Directories whose meta.json is missing or unparsable are
// skipped: one corrupt workspace must not break the listing.
func (s *Store) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("workspace: list: %w", err)
	}

	var out []Entry
	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}
		path := filepath.Join(s.root, de.Name())
		meta, err := s.readMeta(path)
		if err != nil {
			continue
		}
		out = append(out, Entry{Slug: de.Name(), Path: path, Meta: meta})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Meta.UpdatedAt > out[j].Meta.UpdatedAt
	})
	return out, nil
}

// Get returns the listing entry for a single workspace.
func (s *Store) Get(slugName string) (Entry, error) {
	path, err := s.safePath(slugName)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: %w", err.Error(), apperr.ErrInvalidPath)
	}
	meta, err := s.readMeta(path)
	if err != nil {
		return Entry{}, fmt.Errorf("workspace: %s: %w", slugName, apperr.ErrNotFound)
	}
	return Entry{Slug: slugName, Path: path, Meta: meta}, nil
}

// ReadFile returns the content of one of the five workspace artifacts.
// Any other name is rejected without touching disk, which makes this
// the sole read gate for name-addressed file access.
func (s *Store) ReadFile(slugName, name string) ([]byte, error) {
	if _, ok := allowedFiles[name]; !ok {
		return nil, fmt.Errorf("workspace: file %q: %w", name, apperr.ErrNotFound)
	}
	path, err := s.safePath(slugName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), apperr.ErrInvalidPath)
	}
	data, err := os.ReadFile(filepath.Join(path, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("workspace: %s/%s: %w", slugName, name, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("workspace: read %s/%s: %w", slugName, name, err)
	}
	return data, nil
}

func (s *Store) readMeta(path string) (Meta, error) {
	data, err := os.ReadFile(filepath.Join(path, FileMeta))
	if err != nil {
		return Meta{}, err
	}
	return decodeMeta(data)
}
