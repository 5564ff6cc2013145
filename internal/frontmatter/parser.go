// Package frontmatter extracts structured sub-agent definitions from
// markdown documents hosted in remote repositories.
package frontmatter

import (
	"regexp"
	"strings"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
)

const (
	// minBodyChars is the minimum non-whitespace body length after a
	// front-matter block.
	minBodyChars = 50

	// minFallbackChars is the minimum total content length accepted when
	// no front-matter block was found.
	minFallbackChars = 100
)

var (
	namePattern     = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)
	nonAlnumPattern = regexp.MustCompile(`[^a-z0-9]+`)
	hyphenRuns      = regexp.MustCompile(`-{2,}`)
)

// ParseMarkdownFile parses one markdown document into a sub-agent definition.
// Returns nil when the document does not describe a valid sub-agent; parsing
// never fails with an error. Path is used for name derivation fallbacks.
func ParseMarkdownFile(path, content string) *domain.SubAgentFile {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	doc := &domain.SubAgentFile{Path: path, Extra: make(map[string]string)}

	meta, body, hadFrontMatter := splitFrontMatter(content)
	doc.HadFrontMatter = hadFrontMatter
	doc.Body = body

	if hadFrontMatter {
		applyMetadata(doc, meta)
	}

	// Heuristic fallbacks fill fields front-matter did not provide
	if doc.Name == "" {
		doc.Name = headingName(body)
	}
	if doc.Description == "" {
		doc.Description = heuristicDescription(body)
	}
	if len(doc.Tools) == 0 {
		doc.Tools = heuristicTools(body)
	}

	doc.Name = NormalizeName(doc.Name, path)

	if !validate(doc, content) {
		return nil
	}
	return doc
}

// splitFrontMatter separates a leading ---\n...\n--- block from the body.
func splitFrontMatter(content string) (meta []string, body string, found bool) {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(normalized, "---\n") {
		return nil, normalized, false
	}
	rest := normalized[len("---\n"):]
	idx := strings.Index(rest, "\n---")
	if idx < 0 {
		return nil, normalized, false
	}
	block := rest[:idx]
	body = rest[idx+len("\n---"):]
	body = strings.TrimPrefix(body, "\n")
	return strings.Split(block, "\n"), body, true
}

// applyMetadata fills known fields from key: value lines; unknown keys go
// into the overflow map.
func applyMetadata(doc *domain.SubAgentFile, lines []string) {
	for _, line := range lines {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if key == "" || value == "" {
			continue
		}

		switch key {
		case "name":
			doc.Name = strings.ToLower(value)
		case "description":
			doc.Description = value
		case "tools", "allowed-tools":
			doc.Tools = splitList(value)
		case "category":
			doc.Category = strings.ToLower(value)
		case "version":
			doc.Version = value
		case "tags", "keywords":
			doc.Tags = splitList(value)
		case "author":
			doc.Author = value
		default:
			doc.Extra[key] = value
		}
	}
}

// splitList parses a comma-separated value, tolerating a bracketed [...]
// list form.
func splitList(value string) []string {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]") {
		value = value[1 : len(value)-1]
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		item = strings.Trim(strings.TrimSpace(item), `"'`)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

// headingName derives a slugified name from the first top-level heading.
func headingName(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return slugifyFragment(line[2:])
		}
	}
	return ""
}

// slugifyFragment lowercases and hyphenates arbitrary text.
func slugifyFragment(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonAlnumPattern.ReplaceAllString(s, "-")
	s = hyphenRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// heuristicDescription scans the body for a description: **Role**: /
// **Description**: prefixed lines win, then the first substantial
// non-heading line.
func heuristicDescription(body string) string {
	lines := strings.Split(body, "\n")
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		for _, prefix := range []string{"**Role**:", "**Role:**", "**Description**:", "**Description:**"} {
			if strings.HasPrefix(trimmed, prefix) {
				if desc := strings.TrimSpace(trimmed[len(prefix):]); desc != "" {
					return desc
				}
			}
		}
	}
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "---") {
			continue
		}
		if len(trimmed) >= 30 {
			return trimmed
		}
	}
	return ""
}

// heuristicTools extracts a tool list from any body line mentioning tools:.
func heuristicTools(body string) []string {
	for _, line := range strings.Split(body, "\n") {
		lower := strings.ToLower(line)
		idx := strings.Index(lower, "tools:")
		if idx < 0 {
			continue
		}
		if tools := splitList(line[idx+len("tools:"):]); len(tools) > 0 {
			return tools
		}
	}
	return nil
}

// NormalizeName returns name when it already matches the slug pattern,
// otherwise derives one from the filename: lowercase, non-alphanumerics to
// hyphens, collapsed and trimmed, prefixed with agent- when the result does
// not start with a letter.
func NormalizeName(name, path string) string {
	if namePattern.MatchString(name) {
		return name
	}

	base := path
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	base = strings.TrimSuffix(base, ".md")

	derived := slugifyFragment(base)
	if derived == "" || derived[0] < 'a' || derived[0] > 'z' {
		derived = "agent-" + derived
		derived = strings.TrimSuffix(derived, "-")
	}
	return derived
}

func validate(doc *domain.SubAgentFile, content string) bool {
	if doc.Name == "" || doc.Description == "" || !namePattern.MatchString(doc.Name) {
		return false
	}
	if doc.HadFrontMatter {
		return nonWhitespaceLen(doc.Body) >= minBodyChars
	}
	return len(content) > minFallbackChars
}

func nonWhitespaceLen(s string) int {
	n := 0
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
		default:
			n++
		}
	}
	return n
}
