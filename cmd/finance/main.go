package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finance/internal/auth"
	"finance/internal/cli"
	apphttp "finance/internal/http"
	"finance/internal/log"
	"finance/internal/middleware/ratelimit"
	"finance/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()

	ctx := context.Background()
	be := cli.InitBackend(ctx, logger, cfg)
	st := be.Store

	amqpClient := cli.InitAMQP(logger, cfg)
	// Keep the interface nil when there is no broker.
	var publisher services.EventPublisher
	if amqpClient != nil {
		publisher = amqpClient
	}

	limitStore, err := cli.InitRateLimitStore(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize rate limit store", log.FieldError, err)
		os.Exit(1)
	}
	loginLimiter := ratelimit.NewLimiter(limitStore, ratelimit.Config{
		Limit:  cfg.LoginMaxAttempts,
		Window: cfg.LoginWindow,
		Prefix: ratelimit.LoginConfig().Prefix,
		Logger: logger.Logger,
	})
	writeConfig := ratelimit.DefaultConfig()
	writeConfig.Limit = cfg.WriteRequestsPerMinute
	writeConfig.Logger = logger.Logger
	writeLimiter := ratelimit.NewLimiter(limitStore, writeConfig)

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
	now := cfg.Clock()

	budgets := services.NewBudgetService(st, st, publisher, logger)
	svc := apphttp.Services{
		Auth:         services.NewAuthService(st, issuer, loginLimiter, publisher, logger),
		Budgets:      budgets,
		Pots:         services.NewPotService(st, publisher, logger),
		Transactions: services.NewTransactionService(st, budgets, publisher, logger),
		Bills:        services.NewBillService(st, now, logger),
		Overview:     services.NewOverviewService(st, cfg.OpeningBalanceMoney(), now, logger),
	}

	srv := apphttp.NewServer(apphttp.Config{
		Addr:         ":" + cfg.Port,
		CookieSecure: cfg.CookieSecure,
		CacheTTL:     cfg.CacheTTL,
		Ready:        st.Ping,
	}, svc, issuer, writeLimiter, logger)

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if err := limitStore.Close(); err != nil {
			logger.Warn("Rate limit store close error", log.FieldError, err)
		}
		if be.Cleanup != nil {
			if err := be.Cleanup(); err != nil {
				logger.Error("Backend close error", log.FieldError, err)
			}
		}
	})

	logger.Info("Starting finance server", "port", cfg.Port, log.FieldBackend, cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
