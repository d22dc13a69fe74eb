// Package refs extracts <ref> citation tags from WikiText and restores
// them after editing. Extraction replaces each tag with a numbered
// [refN] placeholder and records the exact original substring so that
// restoration is byte-for-byte lossless.
package refs

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\[(ref\d+)\]`)

// Extract finds every <ref ...>...</ref> and self-closing <ref ... />
// occurrence in document and replaces each with a [refN] placeholder,
// numbered by position in the document starting at 1.
//
// The returned map stores the exact original substring per key,
// including all whitespace, attributes, and casing. Unterminated tags
// are left in place as ordinary text. If no tags are found the document
// is returned unchanged with an empty map.
func Extract(document string) (string, map[string]string) {
	spans := tagSpans(document, "ref")

	refs := make(map[string]string, len(spans))
	editable := document

	// Replace from the last span backwards so earlier offsets stay valid.
	for i := len(spans) - 1; i >= 0; i-- {
		key := fmt.Sprintf("ref%d", i+1)
		s := spans[i]
		refs[key] = document[s.start:s.end]
		editable = editable[:s.start] + "[" + key + "]" + editable[s.end:]
	}

	return editable, refs
}

// Restore replaces every [refN] placeholder in edited with the original
// tag content from refs. Placeholders whose key is absent from the map
// are left unchanged.
func Restore(edited string, refs map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(edited, func(match string) string {
		key := match[1 : len(match)-1]
		if original, ok := refs[key]; ok {
			return original
		}
		return match
	})
}

// span is a half-open [start, end) byte range in the source document.
type span struct {
	start int
	end   int
}

// tagSpans scans text for non-overlapping occurrences of the named tag,
// either balanced (<tag ...>...</tag>) or self-closing (<tag .../>),
// matching the tag name case-insensitively. It returns spans in
// document order. Only tag boundaries are detected; the document is
// otherwise treated as an opaque character stream.
func tagSpans(text, name string) []span {
	var out []span
	pos := 0
	for pos < len(text) {
		start := indexTagOpen(text, name, pos)
		if start < 0 {
			break
		}

		attrEnd, selfClosing, ok := scanOpenTag(text, start+1+len(name))
		if !ok {
			// Unterminated open tag: inert, skip past the "<".
			pos = start + 1
			continue
		}
		if selfClosing {
			out = append(out, span{start: start, end: attrEnd})
			pos = attrEnd
			continue
		}

		end := indexTagClose(text, name, attrEnd)
		if end < 0 {
			// No closing tag: the whole construct stays as plain text.
			pos = start + 1
			continue
		}
		out = append(out, span{start: start, end: end})
		pos = end
	}
	return out
}

// indexTagOpen returns the offset of the next "<name" occurrence at or
// after from, where the name is followed by whitespace, '>' or '/'.
// Returns -1 if none exists.
func indexTagOpen(text, name string, from int) int {
	for i := from; i+1+len(name) <= len(text); i++ {
		if text[i] != '<' {
			continue
		}
		if !strings.EqualFold(text[i+1:i+1+len(name)], name) {
			continue
		}
		rest := i + 1 + len(name)
		if rest >= len(text) {
			return -1
		}
		switch text[rest] {
		case ' ', '\t', '\n', '\r', '>', '/':
			return i
		}
	}
	return -1
}

// scanOpenTag scans the attribute region of an open tag starting just
// after the tag name. Quoted attribute values may contain '>'. It
// returns the offset one past the closing '>' and whether the tag was
// self-closing. ok is false when the tag never terminates.
func scanOpenTag(text string, from int) (end int, selfClosing bool, ok bool) {
	var quote byte
	for i := from; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '>':
			if i > from && lastNonSpace(text[from:i]) == '/' {
				return i + 1, true, true
			}
			return i + 1, false, true
		case '<':
			// A new tag opens before this one closed: malformed.
			return 0, false, false
		}
	}
	return 0, false, false
}

// indexTagClose returns the offset one past the matching "</name ... >"
// at or after from, or -1 when the tag is never closed.
func indexTagClose(text, name string, from int) int {
	for i := from; i+2+len(name) <= len(text); i++ {
		if text[i] != '<' || text[i+1] != '/' {
			continue
		}
		if !strings.EqualFold(text[i+2:i+2+len(name)], name) {
			continue
		}
		j := i + 2 + len(name)
		// Allow whitespace between the name and '>'.
		for j < len(text) && (text[j] == ' ' || text[j] == '\t' || text[j] == '\n' || text[j] == '\r') {
			j++
		}
		if j < len(text) && text[j] == '>' {
			return j + 1
		}
	}
	return -1
}

func lastNonSpace(s string) byte {
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return s[i]
		}
	}
	return 0
}
