package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"boardflow/backend/internal/api"
	"boardflow/backend/internal/config"
	"boardflow/backend/internal/engine"
	"boardflow/backend/internal/logging"
	"boardflow/backend/internal/mcp"
	"boardflow/backend/internal/notifications"
	"boardflow/backend/internal/observability"
	"boardflow/backend/internal/registry"
	"boardflow/backend/internal/repository"
	"boardflow/backend/internal/services"
	"boardflow/backend/internal/tls"
)

func main() {
	ctx := context.Background()

	// Initialize logging
	logger := logging.NewLogger()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		log.Fatalf("Configuration loading failed: %v", err)
	}

	logger.Info("Starting Boardflow Workflow Service")

	// Initialize stores. Without a configured database the service runs on
	// in-memory stores and the builtin template catalog.
	var executionStore repository.ExecutionStore
	var templateStore repository.TemplateStore
	if cfg.DB.Host != "" {
		dbPool, err := initDatabase(ctx, cfg, logger)
		if err != nil {
			logger.Error("Failed to initialize database", "error", err)
			log.Fatalf("Database initialization failed: %v", err)
		}
		defer dbPool.Close()
		logger.Info("Database connected")

		store := repository.NewPostgresStore(dbPool)
		executionStore = store
		templateStore = store.TemplateView()
	} else {
		logger.Warn("No database configured, using in-memory stores")
		store := repository.NewMemoryStore()
		executionStore = store
		templateStore = store.TemplateView()
		for _, template := range registry.Builtin() {
			if err := templateStore.Put(ctx, template); err != nil {
				log.Fatalf("Failed to load builtin template %s: %v", template.ID, err)
			}
		}
	}

	reg := registry.NewStoreRegistry(templateStore)

	// Initialize collaborators
	var aiClient services.AIClient
	if cfg.AIProvider.URL != "" {
		aiClient = services.NewHTTPAIClient(cfg.AIProvider.URL, cfg.AIProvider.Timeout)
	} else {
		logger.Warn("No AI provider configured, using static analysis client")
		aiClient = &services.StaticAIClient{}
	}

	var notifier notifications.Notifier
	if cfg.Notifications.WebhookURL != "" {
		notifier = notifications.NewWebhookNotifier(cfg.Notifications.WebhookURL, logger)
	} else {
		notifier = notifications.NewLogNotifier(logger)
	}

	var actions services.ActionRunner
	if cfg.Actions.URL != "" {
		actions = services.NewHTTPActionRunner(cfg.Actions.URL)
	} else {
		logger.Warn("No action endpoint configured, recording actions in memory")
		actions = services.NewRecordingActionRunner()
	}

	metrics := observability.NewMetrics()

	// Initialize the workflow engine
	eng := engine.NewEngine(reg, executionStore, aiClient, actions, notifier, logger,
		engine.WithRetryPolicy(engine.RetryPolicy{
			MaxRetries:        cfg.Engine.MaxRetries,
			InitialDelay:      cfg.Engine.InitialDelay,
			BackoffMultiplier: cfg.Engine.BackoffMultiplier,
		}),
		engine.WithMetrics(metrics),
	)
	defer eng.Shutdown()

	decisions := services.NewDecisionEngine()

	logger.Info("Workflow engine initialized")

	// Create Echo server
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("boardflow"))

	// Mount REST API handlers
	apiServer := api.NewServer(eng, reg, decisions)
	apiServer.Register(e.Group("/api/v1"))
	e.GET("/health", api.HandleHealth)

	logger.Info("REST API handlers mounted")

	// Mount MCP protocol handlers
	mcpServer := mcp.NewServer(eng, reg, decisions)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())
	e.Any("/mcp", echo.WrapHandler(mcpHandlers))
	e.Any("/mcp/*", echo.WrapHandler(mcpHandlers))

	logger.Info("MCP protocol handlers mounted")

	// Expose OpenAPI spec and Swagger UI
	e.GET("/openapi.yaml", echo.WrapHandler(api.SpecHandler()))
	e.GET("/docs", echo.WrapHandler(api.SwaggerHandler()))

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", addr, "tls", cfg.TLS.Enable)
		if cfg.TLS.Enable {
			if _, err := os.Stat(cfg.TLS.CertFile); os.IsNotExist(err) {
				if len(cfg.TLS.Hostnames) > 0 {
					if err := tls.GenerateSelfSignedCert(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.Hostnames); err != nil {
						logger.Error("failed to generate self-signed cert", "error", err)
					}
				}
			}
			serverErrors <- server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			serverErrors <- server.ListenAndServe()
		}
	}()

	// Wait for shutdown signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdown:
		logger.Info("Shutdown signal received", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			if err := server.Close(); err != nil {
				logger.Error("Server close error", "error", err)
			}
		}

		logger.Info("Server stopped gracefully")
	}
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*pgxpool.Pool, error) {
	logger.Debug("Initializing database connection")

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
