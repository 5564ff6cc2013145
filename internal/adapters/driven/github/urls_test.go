package github

import (
	"errors"
	"testing"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
)

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{"plain", "https://github.com/acme/tools", "acme", "tools", false},
		{"git suffix", "https://github.com/acme/tools.git", "acme", "tools", false},
		{"trailing path", "https://github.com/acme/tools/tree/main/agents", "acme", "tools", false},
		{"trailing slash", "https://github.com/acme/tools/", "acme", "tools", false},
		{"no scheme", "github.com/acme/tools", "acme", "tools", false},
		{"http", "http://github.com/acme/tools", "acme", "tools", false},
		{"www", "https://www.github.com/acme/tools", "acme", "tools", false},
		{"dotted repo", "https://github.com/acme/my.agents.git", "acme", "my.agents", false},
		{"whitespace", "  https://github.com/acme/tools  ", "acme", "tools", false},
		{"not a url", "not a url", "", "", true},
		{"missing repo", "https://github.com/acme", "", "", true},
		{"wrong host", "https://gitlab.com/acme/tools", "", "", true},
		{"empty", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, err := ParseRepoURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %s/%s", tt.url, owner, repo)
				}
				if !errors.Is(err, domain.ErrInvalidRepoURL) {
					t.Errorf("expected ErrInvalidRepoURL, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if owner != tt.wantOwner || repo != tt.wantRepo {
				t.Errorf("got %s/%s, want %s/%s", owner, repo, tt.wantOwner, tt.wantRepo)
			}
		})
	}
}

func TestIsValidRepoURL(t *testing.T) {
	if !IsValidRepoURL("https://github.com/acme/tools.git") {
		t.Error("expected valid")
	}
	if IsValidRepoURL("ftp://example.com/acme/tools") {
		t.Error("expected invalid")
	}
}
