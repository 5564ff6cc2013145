package domain

import (
	"strings"
	"testing"
)

func TestGenerateSlug_Deterministic(t *testing.T) {
	a := GenerateSlug("Code Reviewer", "acme", "tools")
	b := GenerateSlug("Code Reviewer", "acme", "tools")
	if a != b {
		t.Errorf("expected identical slugs, got %q and %q", a, b)
	}
	if !ValidSlug(a) {
		t.Errorf("expected a valid slug, got %q", a)
	}
	if !strings.HasPrefix(a, "code-reviewer-acme-tools-") {
		t.Errorf("expected slug to lead with the slugified parts, got %q", a)
	}
}

func TestGenerateSlug_DistinctForDistinctRepos(t *testing.T) {
	a := GenerateSlug("Code Reviewer", "acme", "tools")
	b := GenerateSlug("Code Reviewer", "acme", "other-tools")
	if a == b {
		t.Errorf("expected distinct slugs for distinct repos, both %q", a)
	}
}

func TestGenerateSlug_DistinctWhenPartsCollide(t *testing.T) {
	// Both triples slugify to the same joined prefix; only the hash
	// suffix keeps them apart.
	a := GenerateSlug("code-reviewer", "acme", "tools")
	b := GenerateSlug("code", "reviewer-acme", "tools")
	if a == b {
		t.Errorf("expected distinct slugs for distinct triples, both %q", a)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Code Reviewer", "code-reviewer"},
		{"  spaces  ", "spaces"},
		{"UPPER_case.name", "upper-case-name"},
		{"already-slugged", "already-slugged"},
		{"---", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidSlug(t *testing.T) {
	valid := []string{"code-reviewer", "a", "agent-1", "x9-y"}
	for _, s := range valid {
		if !ValidSlug(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}
	invalid := []string{"", "1agent", "-lead", "Upper", "has space", "under_score"}
	for _, s := range invalid {
		if ValidSlug(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestAgent_AddTags(t *testing.T) {
	a := &Agent{Tags: []string{"subagent"}}

	added := a.AddTags([]string{"subagent", "testing", "", "devops"}, 10)
	if !added {
		t.Error("expected tags to be added")
	}
	if len(a.Tags) != 3 {
		t.Errorf("expected 3 tags, got %v", a.Tags)
	}

	// Cap is enforced
	a = &Agent{}
	var many []string
	for _, s := range []string{"a", "b", "c", "d"} {
		many = append(many, s)
	}
	a.AddTags(many, 2)
	if len(a.Tags) != 2 {
		t.Errorf("expected cap of 2, got %v", a.Tags)
	}

	// No duplicates, no change reported
	a = &Agent{Tags: []string{"x"}}
	if a.AddTags([]string{"x"}, 10) {
		t.Error("expected no change when tag already present")
	}
}
