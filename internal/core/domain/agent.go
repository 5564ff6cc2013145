package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateID creates a unique random ID.
func GenerateID() string {
	return uuid.NewString()
}

// AgentStatus represents the lifecycle state of an agent record.
type AgentStatus string

const (
	AgentStatusDraft       AgentStatus = "draft"
	AgentStatusPublished   AgentStatus = "published"
	AgentStatusArchived    AgentStatus = "archived"
	AgentStatusUnderReview AgentStatus = "under_review"
)

// Agent is the persisted record representing one importable sub-agent.
// Created by the importer; afterwards only the sync engine mutates the
// repository-derived fields (metadata, content, version, tags). Deletion
// is an API/UI concern, never done by the core.
type Agent struct {
	ID                  string      `json:"id"`
	Slug                string      `json:"slug"`
	Name                string      `json:"name"`
	Description         string      `json:"description"`
	DetailedDescription string      `json:"detailed_description,omitempty"`
	Tags                []string    `json:"tags,omitempty"`
	Version             string      `json:"version,omitempty"`
	License             string      `json:"license,omitempty"`
	Framework           string      `json:"framework,omitempty"`
	Category            string      `json:"category,omitempty"`
	Tools               []string    `json:"tools,omitempty"`
	Status              AgentStatus `json:"status"`

	// Provenance
	RepoURL        string     `json:"repo_url"`
	RepoOwner      string     `json:"repo_owner"`
	RepoName       string     `json:"repo_name"`
	SourcePath     string     `json:"source_path,omitempty"`
	CommitSHA      string     `json:"commit_sha,omitempty"`
	OriginalAuthor string     `json:"original_author,omitempty"`
	LastSyncAt     *time.Time `json:"last_sync_at,omitempty"`

	Stars     int       `json:"stars"`
	Forks     int       `json:"forks"`
	Homepage  string    `json:"homepage,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// slugPattern is the shape every agent name and slug must satisfy.
var slugPattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s, replaces runs of non-alphanumerics with a single
// hyphen and strips leading/trailing hyphens.
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = nonSlugChars.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// GenerateSlug derives the globally unique slug for an agent from its name
// and source repository. Deterministic: the same (name, owner, repo) triple
// always yields the same slug, and distinct triples yield distinct slugs.
// The hash suffix disambiguates triples whose slugified parts collide
// (hyphens inside one component are indistinguishable from the joiner).
func GenerateSlug(name, owner, repo string) string {
	sum := sha256.Sum256([]byte(name + "\x00" + owner + "\x00" + repo))
	parts := []string{Slugify(name), Slugify(owner), Slugify(repo), hex.EncodeToString(sum[:4])}
	return strings.Join(parts, "-")
}

// ValidSlug reports whether s matches [a-z][a-z0-9-]*.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// AddTags unions the given tags into the agent's tag list, preserving order
// of first appearance and capping the total at max. Returns true if any tag
// was added.
func (a *Agent) AddTags(tags []string, max int) bool {
	seen := make(map[string]bool, len(a.Tags))
	for _, t := range a.Tags {
		seen[t] = true
	}

	added := false
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		if max > 0 && len(a.Tags) >= max {
			break
		}
		a.Tags = append(a.Tags, t)
		seen[t] = true
		added = true
	}
	return added
}
