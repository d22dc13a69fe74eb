// Package slug derives filesystem-safe workspace identifiers from
// user-supplied titles.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	invalidRunRe = regexp.MustCompile(`[^a-z0-9_]+`)
	hyphenRunRe  = regexp.MustCompile(`-+`)
)

// Make converts a title to a safe slug usable as a directory name:
// NFKD-normalize, drop non-ASCII remnants, lowercase, replace runs of
// characters outside [a-z0-9_] with a single hyphen, collapse repeated
// hyphens, and trim leading/trailing hyphens.
//
// Titles with no ASCII-representable characters produce an empty slug;
// callers must treat that as a validation failure.
func Make(title string) string {
	decomposed := norm.NFKD.String(title)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}

	s := strings.ToLower(b.String())
	s = invalidRunRe.ReplaceAllString(s, "-")
	s = hyphenRunRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
