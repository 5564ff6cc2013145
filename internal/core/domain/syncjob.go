package domain

import "time"

// SyncJobType selects which update passes a job runs.
type SyncJobType string

const (
	SyncJobTypeFull     SyncJobType = "full"
	SyncJobTypeMetadata SyncJobType = "metadata"
	SyncJobTypeContent  SyncJobType = "content"
)

// SyncJobStatus represents the state machine of one sync execution:
// pending -> running -> completed | failed. Terminal states are immutable.
type SyncJobStatus string

const (
	SyncJobStatusPending   SyncJobStatus = "pending"
	SyncJobStatusRunning   SyncJobStatus = "running"
	SyncJobStatusCompleted SyncJobStatus = "completed"
	SyncJobStatusFailed    SyncJobStatus = "failed"
)

// SyncJob is one execution attempt against a binding. Immutable once it
// reaches a terminal status; retained for a bounded window then purged.
type SyncJob struct {
	ID        string        `json:"id"`
	BindingID string        `json:"binding_id"`
	AgentID   string        `json:"agent_id"`
	Type      SyncJobType   `json:"type"`
	Status    SyncJobStatus `json:"status"`

	// Progress is a best-effort percentage, 0-100.
	Progress int `json:"progress"`

	// Result holds free-form outcome metadata.
	Result map[string]string `json:"result,omitempty"`

	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewSyncJob creates a pending job for a binding.
func NewSyncJob(bindingID, agentID string, jobType SyncJobType) *SyncJob {
	return &SyncJob{
		ID:        GenerateID(),
		BindingID: bindingID,
		AgentID:   agentID,
		Type:      jobType,
		Status:    SyncJobStatusPending,
		CreatedAt: time.Now(),
	}
}

// MarkRunning transitions the job to running.
func (j *SyncJob) MarkRunning() {
	now := time.Now()
	j.Status = SyncJobStatusRunning
	j.StartedAt = &now
}

// MarkCompleted transitions the job to the completed terminal state.
func (j *SyncJob) MarkCompleted() {
	now := time.Now()
	j.Status = SyncJobStatusCompleted
	j.Progress = 100
	j.CompletedAt = &now
}

// MarkFailed transitions the job to the failed terminal state.
func (j *SyncJob) MarkFailed(errMsg string) {
	now := time.Now()
	j.Status = SyncJobStatusFailed
	j.Error = errMsg
	j.CompletedAt = &now
}

// JobLogLevel classifies a job log entry.
type JobLogLevel string

const (
	JobLogInfo  JobLogLevel = "info"
	JobLogWarn  JobLogLevel = "warn"
	JobLogError JobLogLevel = "error"
)

// JobLog is one ordered, append-only log entry for a sync job.
type JobLog struct {
	JobID     string      `json:"job_id"`
	Level     JobLogLevel `json:"level"`
	Message   string      `json:"message"`
	CreatedAt time.Time   `json:"created_at"`
}

// SyncChanges records which of the four independent update passes changed
// anything during one sync.
type SyncChanges struct {
	Metadata bool `json:"metadata"`
	Content  bool `json:"content"`
	Version  bool `json:"version"`
	Tags     bool `json:"tags"`
}

// Any reports whether any pass applied a change.
func (c SyncChanges) Any() bool {
	return c.Metadata || c.Content || c.Version || c.Tags
}

// SyncStats holds counters for one sync execution.
type SyncStats struct {
	CommitsProcessed  int     `json:"commits_processed"`
	FilesUpdated      int     `json:"files_updated"`
	ProcessingSeconds float64 `json:"processing_seconds"`
}

// SyncResult is the outcome of one sync invocation.
type SyncResult struct {
	Success  bool        `json:"success"`
	JobID    string      `json:"job_id"`
	Changes  SyncChanges `json:"changes"`
	Errors   []string    `json:"errors,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
	Stats    SyncStats   `json:"stats"`
}
