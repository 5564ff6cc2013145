package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driven"
	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driving"
	"github.com/agenthub-labs/agenthub-core/internal/quota"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string

	// Services
	importService    driving.ImportService
	syncOrchestrator driving.SyncOrchestrator
	bindingService   driving.BindingService
	webhookService   driving.WebhookService
	quotaManager     *quota.Manager

	// Infrastructure
	authAdapter driven.AuthAdapter
	taskQueue   driven.TaskQueue
	db          Pinger // PostgreSQL health check
	redisClient Pinger // Redis health check (optional)
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	importService driving.ImportService,
	syncOrchestrator driving.SyncOrchestrator,
	bindingService driving.BindingService,
	webhookService driving.WebhookService,
	quotaManager *quota.Manager, // can be nil
	authAdapter driven.AuthAdapter,
	taskQueue driven.TaskQueue,
	db Pinger,
	redisClient Pinger, // can be nil
) *Server {
	s := &Server{
		router:           http.NewServeMux(),
		version:          cfg.Version,
		importService:    importService,
		syncOrchestrator: syncOrchestrator,
		bindingService:   bindingService,
		webhookService:   webhookService,
		quotaManager:     quotaManager,
		authAdapter:      authAdapter,
		taskQueue:        taskQueue,
		db:               db,
		redisClient:      redisClient,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Create middleware
	authMiddleware := NewAuthMiddleware(s.authAdapter)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Webhook receiver (signature-authenticated, no bearer token)
	s.router.HandleFunc("POST /api/v1/webhooks/github", s.handleGitHubWebhook)

	// Import endpoints (admin-only)
	s.router.Handle("POST /api/v1/import",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleImport))))
	s.router.Handle("POST /api/v1/import/batch",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleBatchImport))))
	s.router.Handle("POST /api/v1/import/validate",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleValidateRepository)))

	// Agent sync endpoints
	s.router.Handle("POST /api/v1/agents/{id}/sync",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleSyncAgent))))
	s.router.Handle("GET /api/v1/agents/{id}/binding",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetAgentBinding)))
	s.router.Handle("POST /api/v1/agents/{id}/binding",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleCreateBinding))))

	// Binding management (admin-only for mutations)
	s.router.Handle("GET /api/v1/bindings/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetBinding)))
	s.router.Handle("PUT /api/v1/bindings/{id}",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleUpdateBinding))))
	s.router.Handle("POST /api/v1/bindings/{id}/enable",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleEnableBinding))))
	s.router.Handle("POST /api/v1/bindings/{id}/disable",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleDisableBinding))))
	s.router.Handle("POST /api/v1/bindings/{id}/sync",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleSyncBinding))))
	s.router.Handle("POST /api/v1/bindings/{id}/webhook",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleSetupWebhook))))
	s.router.Handle("DELETE /api/v1/bindings/{id}/webhook",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleRemoveWebhook))))
	s.router.Handle("GET /api/v1/bindings/{id}/jobs",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListJobs)))

	// Sync job reads
	s.router.Handle("GET /api/v1/jobs/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetJob)))
	s.router.Handle("GET /api/v1/jobs/{id}/logs",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetJobLogs)))

	// Quota observability
	s.router.Handle("GET /api/v1/quotas",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListQuotas)))
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	// Channel to listen for OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-stop
	log.Println("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
