package domain

// RepositoryInfo is the snapshot of the source repository carried inside an
// import result. Read-only; the source of truth is the hosting service.
type RepositoryInfo struct {
	Owner         string   `json:"owner"`
	Name          string   `json:"name"`
	FullName      string   `json:"full_name"`
	Description   string   `json:"description,omitempty"`
	DefaultBranch string   `json:"default_branch"`
	Stars         int      `json:"stars"`
	Forks         int      `json:"forks"`
	Topics        []string `json:"topics,omitempty"`
	License       string   `json:"license,omitempty"`
	Homepage      string   `json:"homepage,omitempty"`
	HTMLURL       string   `json:"html_url"`
	Private       bool     `json:"private"`
	Archived      bool     `json:"archived"`
}

// ImportMetadata carries observability data attached to every import result
// regardless of outcome.
type ImportMetadata struct {
	ProcessingMS   int64    `json:"processing_ms"`
	FilesProcessed int      `json:"files_processed"`
	Features       []string `json:"features,omitempty"`
}

// ImportResult is the outcome of importing one repository. Multi-repository
// flows produce one result per input; one repository's failure never affects
// another's result.
type ImportResult struct {
	Success    bool            `json:"success"`
	Repository *RepositoryInfo `json:"repository,omitempty"`
	Agents     []*Agent        `json:"agents,omitempty"`
	Errors     []string        `json:"errors,omitempty"`
	Warnings   []string        `json:"warnings,omitempty"`
	Metadata   ImportMetadata  `json:"metadata"`
}

// AddError appends a human-readable error and clears the success flag.
func (r *ImportResult) AddError(msg string) {
	r.Success = false
	r.Errors = append(r.Errors, msg)
}

// AddWarning appends a human-readable warning without affecting success.
func (r *ImportResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
