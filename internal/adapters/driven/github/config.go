package github

import "time"

// Config contains configuration for the GitHub adapter.
type Config struct {
	// APIBaseURL is the base URL for GitHub API.
	// Defaults to https://api.github.com for github.com.
	// For GitHub Enterprise, use https://<hostname>/api/v3
	APIBaseURL string

	// PerPage is the default number of items to fetch per page.
	// Maximum is 100.
	PerPage int

	// MaxRetries is the maximum number of retry attempts for rate-limited
	// or server-errored requests.
	MaxRetries int

	// UserAgent is sent on every request. GitHub rejects requests without one.
	UserAgent string

	// RequestTimeout bounds every individual API request.
	RequestTimeout time.Duration
}

// DefaultConfig returns the default GitHub adapter configuration.
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:     "https://api.github.com",
		PerPage:        30,
		MaxRetries:     3,
		UserAgent:      "agenthub-core",
		RequestTimeout: 10 * time.Second,
	}
}
