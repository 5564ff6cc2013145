package main

// @title           AgentHub Core API
// @version         1.0
// @description     Repository import and sync core for the AgentHub sub-agent marketplace.

// @contact.name   AgentHub OSS
// @contact.url    https://github.com/agenthub-labs/agenthub-core/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Format: "Bearer {token}"

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/agenthub-labs/agenthub-core/internal/adapters/driven/auth"
	"github.com/agenthub-labs/agenthub-core/internal/adapters/driven/github"
	"github.com/agenthub-labs/agenthub-core/internal/adapters/driven/memory"
	"github.com/agenthub-labs/agenthub-core/internal/adapters/driven/postgres"
	postgresqueue "github.com/agenthub-labs/agenthub-core/internal/adapters/driven/queue/postgres"
	redisqueue "github.com/agenthub-labs/agenthub-core/internal/adapters/driven/queue/redis"
	redisadapter "github.com/agenthub-labs/agenthub-core/internal/adapters/driven/redis"
	httpadapter "github.com/agenthub-labs/agenthub-core/internal/adapters/driving/http"
	"github.com/agenthub-labs/agenthub-core/internal/config"
	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driven"
	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driving"
	"github.com/agenthub-labs/agenthub-core/internal/core/services"
	"github.com/agenthub-labs/agenthub-core/internal/frontmatter"
	"github.com/agenthub-labs/agenthub-core/internal/quota"
	"github.com/agenthub-labs/agenthub-core/internal/worker"
)

var version = "dev"

var configPath string

func main() {
	root := &cobra.Command{
		Use:     "agenthub-core",
		Short:   "Repository import and sync core for the AgentHub marketplace",
		Version: version,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")

	root.AddCommand(newServeCmd())
	root.AddCommand(newWorkerCmd())
	root.AddCommand(newImportCmd())
	root.AddCommand(newSyncCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds every wired dependency. Adapters are constructed exactly once.
type app struct {
	cfg *config.Config

	db          *postgres.DB
	redisClient *redis.Client

	taskQueue driven.TaskQueue
	lock      driven.DistributedLock

	quotaManager *quota.Manager
	throttler    *quota.Throttler
	authAdapter  *auth.Adapter

	importService  *services.ImportService
	syncEngine     *services.SyncEngine
	bindingService *services.BindingService
	webhookService *services.WebhookService
	scheduler      *services.Scheduler
}

func (a *app) close() {
	if a.taskQueue != nil {
		if err := a.taskQueue.Close(); err != nil {
			log.Printf("Failed to close task queue: %v", err)
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			log.Printf("Failed to close Redis client: %v", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}
}

// bootstrap loads configuration and wires the full dependency graph.
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := slog.Default()
	a := &app{cfg: cfg}

	// ===== PostgreSQL =====
	log.Println("Connecting to PostgreSQL...")
	db, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime(),
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime(),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	a.db = db

	if err := db.InitSchema(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	log.Println("PostgreSQL connected and schema initialized")

	// ===== Redis (optional) =====
	if cfg.Redis.URL != "" {
		log.Println("Connecting to Redis...")
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("parse Redis URL: %w", err)
		}
		a.redisClient = redis.NewClient(opts)
		if err := a.redisClient.Ping(ctx).Err(); err != nil {
			a.close()
			return nil, fmt.Errorf("connect to Redis: %w", err)
		}
		log.Println("Redis connected")
	}

	// ===== PostgreSQL stores =====
	agentStore := postgres.NewAgentStore(db)
	bindingStore := postgres.NewBindingStore(db)
	jobStore := postgres.NewSyncJobStore(db)
	schedulerStore := postgres.NewSchedulerStore(db)
	quotaStore := postgres.NewQuotaStore(db)

	// ===== Task queue (Redis if available, otherwise PostgreSQL) =====
	if a.redisClient != nil {
		a.taskQueue, err = redisqueue.NewQueue(a.redisClient, fmt.Sprintf("worker-%d", os.Getpid()))
		if err != nil {
			a.close()
			return nil, fmt.Errorf("create task queue: %w", err)
		}
		log.Println("Using Redis task queue")
	} else {
		a.taskQueue = postgresqueue.NewQueue(db.DB)
		log.Println("Using PostgreSQL task queue")
	}

	// ===== Distributed lock (Redis if available, otherwise advisory locks) =====
	if a.redisClient != nil {
		a.lock = redisadapter.NewLock(a.redisClient)
		log.Println("Using Redis distributed lock")
	} else {
		a.lock = postgres.NewAdvisoryLock(db)
		log.Println("Using PostgreSQL advisory lock")
	}

	// ===== Webhook delivery gate (Redis if available, otherwise in-memory) =====
	var gate driven.DeliveryGate
	if a.redisClient != nil {
		gate = redisadapter.NewDeliveryGate(a.redisClient)
	} else {
		gate = memory.NewDeliveryGate()
	}

	// ===== Hosting client =====
	a.quotaManager = quota.NewManager(quotaStore, logger)

	ghCfg := github.DefaultConfig()
	if cfg.GitHub.APIBaseURL != "" {
		ghCfg.APIBaseURL = cfg.GitHub.APIBaseURL
	}
	ghCfg.RequestTimeout = cfg.GitHub.RequestTimeout()
	tokenProvider := driven.NewStaticTokenProvider(cfg.GitHub.Token)
	ghClient := github.NewClient(tokenProvider, ghCfg, a.quotaManager)

	// Every hosting API call is admitted through the throttler, and the
	// quota cache is primed and refreshed from the rate-limit endpoint.
	a.throttler = quota.NewThrottler(a.quotaManager, logger)
	go a.throttler.Start(ctx)
	go a.refreshQuotaLoop(ctx, ghClient)

	var hosting driven.HostingClient = quota.NewThrottledClient(ghClient, a.throttler, 0)

	// ===== Core services =====
	a.authAdapter = auth.NewAdapter(cfg.Auth.JWTSecret)

	parser := frontmatter.NewRepoParser(hosting, logger)

	a.importService = services.NewImportService(services.ImportServiceConfig{
		Hosting:      hosting,
		Parser:       parser,
		AgentStore:   agentStore,
		ParseRepoURL: github.ParseRepoURL,
		Logger:       logger,
	})

	a.syncEngine = services.NewSyncEngine(services.SyncEngineConfig{
		Hosting:      hosting,
		AgentStore:   agentStore,
		BindingStore: bindingStore,
		JobStore:     jobStore,
		Logger:       logger,
	})

	a.bindingService = services.NewBindingService(hosting, agentStore, bindingStore, logger)

	// Inbound webhooks publish sync events; the engine reacts to them
	bus := services.NewEventBus(logger)
	a.syncEngine.RegisterDefaultHandlers(bus)
	a.webhookService = services.NewWebhookService(cfg.Webhook.Secret, gate, bus, logger)

	if cfg.Scheduler.Enabled {
		a.scheduler = services.NewScheduler(services.SchedulerConfig{
			Store:        schedulerStore,
			TaskQueue:    a.taskQueue,
			JobStore:     jobStore,
			Lock:         a.lock,
			Logger:       logger,
			PollInterval: cfg.Scheduler.PollInterval(),
			LockRequired: cfg.Scheduler.LockRequired,
		})
		log.Printf("Scheduler enabled (lock_required=%t)", cfg.Scheduler.LockRequired)
	} else {
		log.Println("Scheduler disabled")
	}

	return a, nil
}

// refreshQuotaLoop primes the quota cache and keeps it fresh from the
// rate-limit endpoint until the context is cancelled.
func (a *app) refreshQuotaLoop(ctx context.Context, hosting driven.HostingClient) {
	if err := a.quotaManager.RefreshAll(ctx, hosting); err != nil {
		log.Printf("Initial quota refresh failed: %v", err)
	}

	interval := a.cfg.GitHub.QuotaRefreshInterval()
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.quotaManager.RefreshAll(ctx, hosting); err != nil {
				log.Printf("Quota refresh failed: %v", err)
			}
		}
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutdown signal received, stopping...")
		cancel()
	}()
	return ctx, cancel
}

// redisPinger adapts a go-redis client to the server's health interface.
type redisPinger struct {
	client *redis.Client
}

func (p *redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			var redisHealth httpadapter.Pinger
			if a.redisClient != nil {
				redisHealth = &redisPinger{client: a.redisClient}
			}

			server := httpadapter.NewServer(
				httpadapter.Config{
					Host:    a.cfg.Server.Host,
					Port:    a.cfg.Server.Port,
					Version: version,
				},
				a.importService,
				a.syncEngine,
				a.bindingService,
				a.webhookService,
				a.quotaManager,
				a.authAdapter,
				a.taskQueue,
				a.db,
				redisHealth,
			)

			log.Printf("API server starting on :%d", a.cfg.Server.Port)
			return server.Start()
		},
	}
}

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the task worker and scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			w := worker.NewWorker(worker.WorkerConfig{
				TaskQueue:      a.taskQueue,
				Importer:       a.importService,
				Syncer:         a.syncEngine,
				Scheduler:      a.scheduler,
				Logger:         slog.Default(),
				Concurrency:    a.cfg.Worker.Concurrency,
				DequeueTimeout: a.cfg.Worker.DequeueTimeoutSec,
			})

			if err := w.Start(ctx); err != nil {
				return fmt.Errorf("start worker: %w", err)
			}
			log.Println("Worker started, processing tasks...")

			<-ctx.Done()

			log.Println("Stopping worker...")
			w.Stop()
			log.Println("Worker stopped")
			return nil
		},
	}
}

func newImportCmd() *cobra.Command {
	var autoPublish bool

	cmd := &cobra.Command{
		Use:   "import <repo-url>",
		Short: "Import all sub-agents from a repository URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.importService.ImportFromURL(ctx, driving.ImportRequest{
				RepoURL:     args[0],
				AutoPublish: autoPublish,
			})
			if result != nil {
				fmt.Printf("Imported %d agent(s) from %s\n", len(result.Agents), args[0])
				for _, warning := range result.Warnings {
					fmt.Printf("  warning: %s\n", warning)
				}
				for _, msg := range result.Errors {
					fmt.Printf("  error: %s\n", msg)
				}
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&autoPublish, "publish", false, "publish imported agents immediately")
	return cmd
}

func newSyncCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "sync <agent-id>",
		Short: "Sync an agent with its bound repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.syncEngine.SyncAgent(ctx, driving.SyncRequest{
				AgentID: args[0],
				Force:   force,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Sync job %s finished (changed=%t)\n", result.JobID, result.Changes.Any())
			fmt.Printf("  metadata=%t content=%t version=%t tags=%t\n",
				result.Changes.Metadata, result.Changes.Content,
				result.Changes.Version, result.Changes.Tags)
			for _, warning := range result.Warnings {
				fmt.Printf("  warning: %s\n", warning)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "sync even when no upstream change is detected")
	return cmd
}
