package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// reservedNames are legacy Windows device names that cannot be used as
// directory names. Kept on every platform so a storage root remains
// portable across filesystems.
var reservedNames = map[string]struct{}{
	"con": {}, "prn": {}, "aux": {}, "nul": {},
	"com1": {}, "com2": {}, "com3": {}, "com4": {}, "com5": {},
	"com6": {}, "com7": {}, "com8": {}, "com9": {},
	"lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {}, "lpt5": {},
	"lpt6": {}, "lpt7": {}, "lpt8": {}, "lpt9": {},
}

// safePath resolves a workspace slug against the store root and rejects
// any candidate that could escape it. The result must be a direct child
// of the canonical root, which also defends against symlink surprises.
func (s *Store) safePath(slug string) (string, error) {
	if slug == "" {
		return "", fmt.Errorf("workspace: empty slug")
	}
	if strings.Contains(slug, "..") || strings.ContainsAny(slug, `/\`) {
		return "", fmt.Errorf("workspace: unsafe slug: %s", slug)
	}
	if _, reserved := reservedNames[strings.ToLower(slug)]; reserved {
		return "", fmt.Errorf("workspace: reserved name: %s", slug)
	}

	joined := filepath.Join(s.root, slug)

	// Canonicalize through symlinks when the directory already exists.
	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("workspace: resolve path: %w", err)
		}
		resolved = joined
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return "", fmt.Errorf("workspace: resolve path: %w", err)
	}
	if filepath.Dir(abs) != s.root {
		return "", fmt.Errorf("workspace: path escapes root: %s", slug)
	}
	return joined, nil
}
