package domain

import "time"

// BindingStatus represents the outcome of the most recent sync attempt.
type BindingStatus string

const (
	BindingStatusIdle    BindingStatus = "idle"
	BindingStatusRunning BindingStatus = "running"
	BindingStatusSuccess BindingStatus = "success"
	BindingStatusError   BindingStatus = "error"
)

// BindingConfig holds per-binding sync options.
type BindingConfig struct {
	// ReadmeAsDescription gates the content pass: when true, the repository
	// README replaces the agent's detailed description on sync.
	ReadmeAsDescription bool `json:"readme_as_description"`

	// Branch overrides the repository default branch for tree reads.
	Branch string `json:"branch,omitempty"`
}

// SyncBinding links one agent record to one remote repository for ongoing
// synchronization. At most one binding exists per agent. Disabling sync
// soft-disables the binding; it is never deleted by the core.
type SyncBinding struct {
	ID        string `json:"id"`
	AgentID   string `json:"agent_id"`
	RepoOwner string `json:"repo_owner"`
	RepoName  string `json:"repo_name"`
	Enabled   bool   `json:"enabled"`
	Branch    string `json:"branch,omitempty"`

	// WebhookID is the remote webhook identifier, nil when no webhook is
	// registered.
	WebhookID *int64 `json:"webhook_id,omitempty"`

	LastSyncAt    *time.Time    `json:"last_sync_at,omitempty"`
	LastCommitSHA string        `json:"last_commit_sha,omitempty"`
	Status        BindingStatus `json:"status"`
	LastError     string        `json:"last_error,omitempty"`
	Config        BindingConfig `json:"config"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSyncBinding creates an enabled binding in the idle state.
func NewSyncBinding(agentID, owner, repo string) *SyncBinding {
	now := time.Now()
	return &SyncBinding{
		ID:        GenerateID(),
		AgentID:   agentID,
		RepoOwner: owner,
		RepoName:  repo,
		Enabled:   true,
		Status:    BindingStatusIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// EffectiveBranch returns the branch the sync engine should read from,
// falling back to the repository default when none is configured.
func (b *SyncBinding) EffectiveBranch(repoDefault string) string {
	if b.Config.Branch != "" {
		return b.Config.Branch
	}
	if b.Branch != "" {
		return b.Branch
	}
	return repoDefault
}
