// Package cli provides the startup steps shared by cmd/propman,
// cmd/invoice-worker and cmd/propman-report.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"propman/internal/amqp"
	"propman/internal/backend"
	"propman/internal/cache"
	"propman/internal/config"
	"propman/internal/log"
	"propman/internal/reporting"
	"propman/internal/services"
	"propman/internal/store"
)

// SetupLogger builds the process logger at LOG_LEVEL and makes it the slog default.
func SetupLogger(component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(os.Getenv("LOG_LEVEL")),
		Component: component,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// OpenStore opens the configured backend. Exits the process on failure.
func OpenStore(ctx context.Context, logger *log.Logger, cfg *config.Config) (store.Store, backend.CleanupFunc) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to open store", log.FieldError, err, "backend", bcfg.Type)
		os.Exit(1)
	}
	return res.Store, res.Cleanup
}

// NewReportCache returns a Redis-backed report cache when REDIS_URL is set and
// an in-process LRU otherwise. The returned func releases it.
func NewReportCache(ctx context.Context, logger *log.Logger, cfg *config.Config) (cache.Cache[reporting.Report], func()) {
	logger = logger.WithComponent(log.ComponentCache)
	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err == nil {
			logger.Info("Report cache backed by Redis")
			return cache.NewRedisCache[reporting.Report](client, "propman:report:", cfg.ReportCacheTTL), func() { _ = client.Close() }
		}
		logger.Warn("Redis unavailable, falling back to in-process report cache", log.FieldError, err)
	}

	lru := cache.NewLRUCache[reporting.Report](cfg.ReportCacheSize, cfg.ReportCacheTTL)
	manager := cache.NewManager()
	manager.Register(lru)
	manager.StartCleanup(cfg.ReportCacheTTL)
	logger.Info("Report cache in process", "size", cfg.ReportCacheSize, "ttl", cfg.ReportCacheTTL)
	return lru, manager.Stop
}

// NewReportService wires the reporting service over st with the configured
// expense strategy.
func NewReportService(st store.Store, rc cache.Cache[reporting.Report], cfg *config.Config) (*reporting.Service, error) {
	kind, err := reporting.ParseEstimatorKind(cfg.ExpenseStrategy)
	if err != nil {
		return nil, err
	}
	return reporting.NewService(st, st, st, rc, reporting.ServiceConfig{
		Estimator:    kind,
		ExpenseRatio: cfg.ExpenseRatio,
		FetchTimeout: cfg.FetchTimeout,
	})
}

// NewAMQPClient connects to the broker when AMQP_URL is set. It returns nil
// when AMQP is disabled or unreachable.
func NewAMQPClient(logger *log.Logger, cfg *config.Config) *amqp.Client {
	if cfg.AMQPURL == "" {
		return nil
	}
	logger = logger.WithComponent(log.ComponentAMQP)
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		return nil
	}
	logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client
}

// Publisher adapts an optional client to services.EventPublisher so that a
// disabled broker is an untyped nil.
func Publisher(client *amqp.Client) services.EventPublisher {
	if client == nil {
		return nil
	}
	return client
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup has run.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
