package github

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
)

// repoURLPattern matches github.com repository URLs with an optional .git
// suffix and optional trailing path segments.
var repoURLPattern = regexp.MustCompile(`^(?:https?://)?(?:www\.)?github\.com/([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+?)(?:\.git)?(?:/.*)?$`)

// ParseRepoURL extracts owner and repo from a github.com URL.
// Returns domain.ErrInvalidRepoURL for anything that does not look like one.
func ParseRepoURL(rawURL string) (owner, repo string, err error) {
	trimmed := strings.TrimSpace(rawURL)
	matches := repoURLPattern.FindStringSubmatch(trimmed)
	if matches == nil {
		return "", "", fmt.Errorf("%w: %q", domain.ErrInvalidRepoURL, rawURL)
	}
	return matches[1], matches[2], nil
}

// IsValidRepoURL reports whether the URL parses as a github.com repository.
func IsValidRepoURL(rawURL string) bool {
	_, _, err := ParseRepoURL(rawURL)
	return err == nil
}
