package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidRepoURL indicates a repository URL that could not be parsed
	ErrInvalidRepoURL = errors.New("invalid repository URL")

	// ErrNoSubAgentsFound indicates a repository contained no valid sub-agent files
	ErrNoSubAgentsFound = errors.New("no valid sub-agent files found")

	// ErrSelectedFilesNotFound indicates a path allow-list matched nothing
	ErrSelectedFilesNotFound = errors.New("none of the selected files were found")

	// ErrRepositoryPrivate indicates import was attempted on a private repository
	ErrRepositoryPrivate = errors.New("repository is private")

	// ErrRepositoryArchived indicates import was attempted on an archived repository
	ErrRepositoryArchived = errors.New("repository is archived")

	// ErrSyncInProgress indicates a sync is already running for the binding
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrBindingDisabled indicates the sync binding is disabled
	ErrBindingDisabled = errors.New("sync binding is disabled")

	// ErrQuotaExhausted indicates the hosting API quota for a resource class is spent
	ErrQuotaExhausted = errors.New("quota exhausted")

	// ErrSignatureInvalid indicates a webhook signature did not verify
	ErrSignatureInvalid = errors.New("webhook signature invalid")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")
)
