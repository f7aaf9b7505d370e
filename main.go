package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"CryptoLens_MarketData/internal/app"
	"CryptoLens_MarketData/internal/config"
	"CryptoLens_MarketData/internal/http"
	"CryptoLens_MarketData/internal/logger"
	"CryptoLens_MarketData/internal/models"
	"CryptoLens_MarketData/internal/ratelimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	startupCtx := logger.WithLogEvent(context.Background(), logger.NewInternalLogEvent())

	appLogger, err := app.NewLogger(startupCtx, cfg, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()

	appLogger.LogInfo(startupCtx, logger.OpServerStart, "Starting CryptoLens Market Data API", map[string]interface{}{
		"version": "1.0.0",
		"config": map[string]interface{}{
			"port":                cfg.Port,
			"cache_type":          cfg.CacheType,
			"market_api_url":      cfg.MarketAPIURL,
			"limiter_interval_ms": cfg.LimiterMinInterval.Milliseconds(),
			"max_retries":         cfg.Retry.MaxRetries,
			"log_sink":            logSink(cfg),
		},
	})

	stack, err := app.Build(cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to initialize market data stack: %v", err)
	}
	defer stack.Close()

	rateLimiter := ratelimit.NewClientLimiter(
		int64(cfg.GlobalRateLimitPerSec),
		int64(cfg.GlobalRateLimitPerSec),
		int64(cfg.PerIPRateLimitPerSec),
		int64(cfg.PerIPRateLimitPerSec),
	)
	defer rateLimiter.Close()

	handler := http.NewHandler(stack.Market, stack.Recommender, appLogger)

	addr := ":" + cfg.Port
	server := http.NewServer(
		addr,
		handler,
		appLogger,
		rateLimiter,
		cfg.ServerReadTimeout,
		cfg.ServerWriteTimeout,
	)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	fmt.Printf("CryptoLens Market Data API listening on %s\n", addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		appLogger.LogError(startupCtx, logger.OpServerStart, "", "Server failed to start", err, models.LogSeverityHigh, map[string]interface{}{
			"addr": addr,
		})
		log.Printf("Server failed to start: %v", err)
		return
	case <-quit:
	}

	fmt.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(startupCtx, cfg.ServerShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.LogError(ctx, logger.OpServerShutdown, "", "Server shutdown error", err, models.LogSeverityMedium, nil)
		log.Printf("Server shutdown error: %v", err)
		return
	}
	appLogger.LogInfo(ctx, logger.OpServerShutdown, "Server shutdown completed successfully", nil)
}

func logSink(cfg *config.Config) string {
	if cfg.DatabaseURL != "" {
		return "postgres"
	}
	return "stdout"
}
