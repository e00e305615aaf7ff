// Package snapshot encodes sets of files into a single human-readable
// document and back: combined exports, auto backups, restore, diff.
package snapshot

import (
	"regexp"
	"strings"
)

// File is one path/content pair in encode order.
type File struct {
	Path    string
	Content string
}

// headerLine matches a section header line: exactly "### " then the path.
var headerLine = regexp.MustCompile(`(?m)^### (.+)$`)

// Encode produces the combined document: header, blank line, then for each
// file a "### <path>" section with the content verbatim, then the footer.
// Header and footer lines are always present even when empty, so the
// document shape does not depend on their content.
//
// The format is plain text on purpose: the output is meant to be pasted
// into an LLM conversation and read by humans, so there is no escaping. A
// file whose own content contains a "### " line followed by a blank line
// will confuse Parse; that is a documented limit of the format.
func Encode(files []File, header, footer string) string {
	lines := []string{header, ""}
	for _, f := range files {
		lines = append(lines, "### "+f.Path, "", f.Content, "")
	}
	lines = append(lines, footer)
	return strings.Join(lines, "\n")
}

// Parse recovers the path to content mapping from a combined document.
// Anything before the first section header (the header text) is ignored,
// as is the footer. A path appearing twice keeps its last occurrence.
// A document with no sections parses to an empty map.
func Parse(blob string) map[string]string {
	matches := headerLine.FindAllStringSubmatchIndex(blob, -1)

	// A real section header is always followed by a blank line; a content
	// line that merely starts with "### " usually is not.
	kept := matches[:0]
	for _, m := range matches {
		if m[1]+2 <= len(blob) && blob[m[1]:m[1]+2] == "\n\n" {
			kept = append(kept, m)
		}
	}

	files := make(map[string]string, len(kept))
	for i, m := range kept {
		path := blob[m[2]:m[3]]
		start := m[1] + 2 // skip the newline ending the header line and the blank line

		var content string
		if i+1 < len(kept) {
			end := kept[i+1][0] - 2 // drop the blank line and newline before the next header
			if end < start {
				end = start
			}
			content = blob[start:end]
		} else {
			// Last section: everything up to the blank line that separates
			// the content from the footer. The footer is the final element,
			// so the last blank line in the tail is the separator.
			tail := blob[start:]
			if idx := strings.LastIndex(tail, "\n\n"); idx >= 0 {
				content = tail[:idx]
			} else {
				content = tail
			}
		}
		files[path] = content
	}
	return files
}
