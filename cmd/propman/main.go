package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"propman/internal/auth"
	"propman/internal/cli"
	"propman/internal/dashboard"
	apphttp "propman/internal/http"
	"propman/internal/log"
	"propman/internal/middleware/ratelimit"
	"propman/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()
	st, closeStore := cli.OpenStore(ctx, logger, cfg)

	reportCache, closeCache := cli.NewReportCache(ctx, logger, cfg)
	reports, err := cli.NewReportService(st, reportCache, cfg)
	if err != nil {
		logger.Error("Failed to initialize report service", log.FieldError, err)
		os.Exit(1)
	}

	secret := cfg.AuthTokenSecret
	if secret == "" {
		// Sessions will not survive a restart.
		secret = uuid.NewString() + uuid.NewString()
		logger.Warn("AUTH_TOKEN_SECRET not set, using an ephemeral signing key")
	}
	tokens, err := auth.NewTokenIssuer(secret, cfg.AuthTokenTTL)
	if err != nil {
		logger.Error("Failed to initialize token issuer", log.FieldError, err)
		os.Exit(1)
	}
	authSvc := auth.NewService(
		auth.NewLocalProvider(st, tokens),
		st, st,
		auth.ServiceConfig{AllowAdminSignup: cfg.AllowAdminSignup},
		logger.WithComponent(log.ComponentAuth).Slog(),
	)

	amqpClient := cli.NewAMQPClient(logger, cfg)
	invoices := services.NewInvoiceService(st, cli.Publisher(amqpClient))

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store:     st,
		Auth:      authSvc,
		Invoices:  invoices,
		Expenses:  services.NewExpenseService(st),
		Reports:   reports,
		Dashboard: dashboard.NewService(st, cfg.FetchTimeout),
	}, apphttp.Options{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit: ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
		TrustedProxies: cfg.TrustedProxies,
		Logger:         logger,
	})
	if err != nil {
		logger.Error("Failed to initialize HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := invoices.Close(); err != nil {
			logger.Error("Failed to close invoice publisher", log.FieldError, err)
		}
		closeCache()
		if err := closeStore(); err != nil {
			logger.Error("Failed to close store", log.FieldError, err)
		}
	})

	logger.Info("Starting propman server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp_enabled", amqpClient != nil,
		"expense_strategy", cfg.ExpenseStrategy)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
