package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// Payload size cap for webhook deliveries (GitHub caps payloads at 25 MB)
const maxWebhookBody = 25 << 20

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Tags         Health
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Checks database, queue and Redis connectivity
// @Tags         Health
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	if s.taskQueue != nil {
		if err := s.taskQueue.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "task queue unavailable")
			return
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "redis unavailable")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Import endpoints

// handleImport godoc
// @Summary      Import repository
// @Description  Import all sub-agent definitions from a repository URL (admin only)
// @Tags         Import
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      driving.ImportRequest  true  "Import request"
// @Success      200      {object}  domain.ImportResult
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /import [post]
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req driving.ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RepoURL == "" {
		writeError(w, http.StatusBadRequest, "repo_url is required")
		return
	}

	result, err := s.importService.ImportFromURL(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "import failed")
		return
	}

	// Per-repo failures are carried inside the result
	writeJSON(w, http.StatusOK, result)
}

// handleBatchImport godoc
// @Summary      Batch import
// @Description  Import multiple repositories; failures are isolated per repo (admin only)
// @Tags         Import
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      driving.BatchImportRequest  true  "Batch import request"
// @Success      200      {array}   domain.ImportResult
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Router       /import/batch [post]
func (s *Server) handleBatchImport(w http.ResponseWriter, r *http.Request) {
	var req driving.BatchImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.RepoURLs) == 0 {
		writeError(w, http.StatusBadRequest, "repo_urls is required")
		return
	}

	results, err := s.importService.BatchImport(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "batch import failed")
		return
	}

	writeJSON(w, http.StatusOK, results)
}

// ValidateRequest identifies a repository to validate
type ValidateRequest struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// handleValidateRepository godoc
// @Summary      Validate repository
// @Description  Checks that a repository is importable without importing it
// @Tags         Import
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      ValidateRequest  true  "Repository to validate"
// @Success      200      {object}  StatusResponse
// @Failure      404      {object}  ErrorResponse  "Repository not found"
// @Failure      422      {object}  ErrorResponse  "Repository not importable"
// @Router       /import/validate [post]
func (s *Server) handleValidateRepository(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Owner == "" || req.Repo == "" {
		writeError(w, http.StatusBadRequest, "owner and repo are required")
		return
	}

	if err := s.importService.ValidateRepository(r.Context(), req.Owner, req.Repo); err != nil {
		switch err {
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "repository not found")
		case domain.ErrRepositoryPrivate:
			writeError(w, http.StatusUnprocessableEntity, "repository is private")
		case domain.ErrRepositoryArchived:
			writeError(w, http.StatusUnprocessableEntity, "repository is archived")
		default:
			writeError(w, http.StatusInternalServerError, "validation failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Sync endpoints

// SyncTriggerRequest holds optional sync parameters
type SyncTriggerRequest struct {
	Force bool               `json:"force,omitempty"`
	Type  domain.SyncJobType `json:"type,omitempty"`
}

// handleSyncAgent godoc
// @Summary      Sync agent
// @Description  Trigger a sync for an agent against its bound repository (admin only)
// @Tags         Sync
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string              true   "Agent ID"
// @Param        request  body      SyncTriggerRequest  false  "Sync options"
// @Success      200      {object}  domain.SyncResult
// @Failure      404      {object}  ErrorResponse  "Agent or binding not found"
// @Failure      409      {object}  ErrorResponse  "Sync in progress or binding disabled"
// @Router       /agents/{id}/sync [post]
func (s *Server) handleSyncAgent(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("id")
	if agentID == "" {
		writeError(w, http.StatusBadRequest, "missing agent id")
		return
	}

	// Body is optional
	var req SyncTriggerRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	result, err := s.syncOrchestrator.SyncAgent(r.Context(), driving.SyncRequest{
		AgentID: agentID,
		Force:   req.Force,
		Type:    req.Type,
	})
	if err != nil {
		switch err {
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "agent or binding not found")
		case domain.ErrSyncInProgress:
			writeError(w, http.StatusConflict, "sync already in progress")
		case domain.ErrBindingDisabled:
			writeError(w, http.StatusConflict, "sync binding is disabled")
		default:
			writeError(w, http.StatusInternalServerError, "sync failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSyncBinding(w http.ResponseWriter, r *http.Request) {
	bindingID := r.PathValue("id")
	if bindingID == "" {
		writeError(w, http.StatusBadRequest, "missing binding id")
		return
	}

	var req SyncTriggerRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	result, err := s.syncOrchestrator.SyncBinding(r.Context(), bindingID, req.Force)
	if err != nil {
		switch err {
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "binding not found")
		case domain.ErrSyncInProgress:
			writeError(w, http.StatusConflict, "sync already in progress")
		case domain.ErrBindingDisabled:
			writeError(w, http.StatusConflict, "sync binding is disabled")
		default:
			writeError(w, http.StatusInternalServerError, "sync failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Binding endpoints

// CreateBindingRequest holds the binding configuration
type CreateBindingRequest struct {
	Config domain.BindingConfig `json:"config"`
}

// handleCreateBinding godoc
// @Summary      Create binding
// @Description  Bind an agent to its source repository for syncing (admin only)
// @Tags         Bindings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                true  "Agent ID"
// @Param        request  body      CreateBindingRequest  true  "Binding configuration"
// @Success      201      {object}  domain.SyncBinding
// @Failure      404      {object}  ErrorResponse  "Agent not found"
// @Failure      409      {object}  ErrorResponse  "Binding already exists"
// @Router       /agents/{id}/binding [post]
func (s *Server) handleCreateBinding(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("id")
	if agentID == "" {
		writeError(w, http.StatusBadRequest, "missing agent id")
		return
	}

	var req CreateBindingRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	binding, err := s.bindingService.CreateBinding(r.Context(), agentID, req.Config)
	if err != nil {
		switch err {
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "agent not found")
		case domain.ErrAlreadyExists:
			writeError(w, http.StatusConflict, "binding already exists")
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "agent has no source repository")
		default:
			writeError(w, http.StatusInternalServerError, "failed to create binding")
		}
		return
	}

	writeJSON(w, http.StatusCreated, binding)
}

func (s *Server) handleGetAgentBinding(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("id")
	if agentID == "" {
		writeError(w, http.StatusBadRequest, "missing agent id")
		return
	}

	binding, err := s.bindingService.GetBindingByAgent(r.Context(), agentID)
	if err != nil {
		switch err {
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "binding not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to get binding")
		}
		return
	}

	writeJSON(w, http.StatusOK, binding)
}

func (s *Server) handleGetBinding(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing binding id")
		return
	}

	binding, err := s.bindingService.GetBinding(r.Context(), id)
	if err != nil {
		switch err {
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "binding not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to get binding")
		}
		return
	}

	writeJSON(w, http.StatusOK, binding)
}

func (s *Server) handleUpdateBinding(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing binding id")
		return
	}

	var req CreateBindingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	binding, err := s.bindingService.UpdateBinding(r.Context(), id, req.Config)
	if err != nil {
		switch err {
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "binding not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update binding")
		}
		return
	}

	writeJSON(w, http.StatusOK, binding)
}

func (s *Server) handleEnableBinding(w http.ResponseWriter, r *http.Request) {
	s.toggleBinding(w, r, s.bindingService.EnableBinding, "enabled")
}

func (s *Server) handleDisableBinding(w http.ResponseWriter, r *http.Request) {
	s.toggleBinding(w, r, s.bindingService.DisableBinding, "disabled")
}

func (s *Server) toggleBinding(w http.ResponseWriter, r *http.Request, toggle func(ctx context.Context, id string) error, status string) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing binding id")
		return
	}

	if err := toggle(r.Context(), id); err != nil {
		switch err {
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "binding not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update binding")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

// WebhookSetupRequest holds webhook registration parameters
type WebhookSetupRequest struct {
	CallbackURL string `json:"callback_url"`
	Secret      string `json:"secret"`
}

// handleSetupWebhook godoc
// @Summary      Setup webhook
// @Description  Register a push webhook on the bound repository (admin only)
// @Tags         Bindings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string               true  "Binding ID"
// @Param        request  body      WebhookSetupRequest  true  "Webhook parameters"
// @Success      200      {object}  StatusResponse
// @Failure      404      {object}  ErrorResponse  "Binding not found"
// @Router       /bindings/{id}/webhook [post]
func (s *Server) handleSetupWebhook(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing binding id")
		return
	}

	var req WebhookSetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CallbackURL == "" {
		writeError(w, http.StatusBadRequest, "callback_url is required")
		return
	}

	if err := s.bindingService.SetupWebhook(r.Context(), id, req.CallbackURL, req.Secret); err != nil {
		switch err {
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "binding not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to setup webhook")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRemoveWebhook(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing binding id")
		return
	}

	if err := s.bindingService.RemoveWebhook(r.Context(), id); err != nil {
		switch err {
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "binding not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to remove webhook")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// Job endpoints

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	bindingID := r.PathValue("id")
	if bindingID == "" {
		writeError(w, http.StatusBadRequest, "missing binding id")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	jobs, err := s.syncOrchestrator.ListJobs(r.Context(), bindingID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing job id")
		return
	}

	job, err := s.syncOrchestrator.GetJob(r.Context(), id)
	if err != nil {
		switch err {
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "job not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to get job")
		}
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleGetJobLogs(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing job id")
		return
	}

	logs, err := s.syncOrchestrator.GetJobLogs(r.Context(), id)
	if err != nil {
		switch err {
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "job not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to get job logs")
		}
		return
	}

	writeJSON(w, http.StatusOK, logs)
}

// Webhook receiver

// handleGitHubWebhook godoc
// @Summary      GitHub webhook receiver
// @Description  Receives webhook deliveries; authenticated by HMAC signature over the raw body
// @Tags         Webhooks
// @Accept       json
// @Produce      json
// @Param        X-GitHub-Event       header    string  true  "Event type"
// @Param        X-Hub-Signature-256  header    string  true  "HMAC signature"
// @Success      202  {object}  StatusResponse
// @Failure      401  {object}  ErrorResponse  "Invalid signature"
// @Router       /webhooks/github [post]
func (s *Server) handleGitHubWebhook(w http.ResponseWriter, r *http.Request) {
	eventType := r.Header.Get("X-GitHub-Event")
	signature := r.Header.Get("X-Hub-Signature-256")

	if eventType == "" {
		writeError(w, http.StatusBadRequest, "missing event type header")
		return
	}

	// Signature is computed over the raw body, so read it before decoding
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if err := s.webhookService.HandleDelivery(r.Context(), eventType, signature, payload); err != nil {
		switch err {
		case domain.ErrSignatureInvalid:
			writeError(w, http.StatusUnauthorized, "invalid signature")
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "invalid payload")
		default:
			writeError(w, http.StatusInternalServerError, "failed to process delivery")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// Quota endpoints

func (s *Server) handleListQuotas(w http.ResponseWriter, r *http.Request) {
	if s.quotaManager == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, s.quotaManager.Snapshots())
}

// Helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
