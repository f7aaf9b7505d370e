// Package app composes the market data stack from configuration. Both the
// API server and the marketctl CLI build their services here.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"CryptoLens_MarketData/internal/cache"
	"CryptoLens_MarketData/internal/config"
	"CryptoLens_MarketData/internal/fetcher"
	"CryptoLens_MarketData/internal/logger"
	"CryptoLens_MarketData/internal/marketdata"
	"CryptoLens_MarketData/internal/models"
	"CryptoLens_MarketData/internal/parser"
	"CryptoLens_MarketData/internal/ratelimit"
	"CryptoLens_MarketData/internal/recommendation"
	"CryptoLens_MarketData/internal/retry"
)

// Stack holds the composed services and the resources behind them
type Stack struct {
	Logger      logger.Service
	Cache       cache.Service
	Limiter     ratelimit.Scheduler
	Market      marketdata.Service
	Recommender recommendation.Service
}

// NewLogger returns the Postgres-backed logger when cfg.DatabaseURL is set,
// otherwise a slog logger writing to w. Entries the database rejects also
// go to w.
func NewLogger(ctx context.Context, cfg *config.Config, w io.Writer) (logger.Service, error) {
	if cfg.DatabaseURL == "" {
		return logger.NewSlogLoggerTo(w, cfg.LogLevel, cfg.LogFormat), nil
	}

	db, err := logger.NewPostgresConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to log database: %w", err)
	}
	return logger.NewDatabaseLogger(db, logger.NewHandlerLogger(w, cfg.LogLevel, cfg.LogFormat)), nil
}

// NewCache returns the cache backend named by cfg.CacheType
func NewCache(cfg *config.Config) (cache.Service, error) {
	switch cfg.CacheType {
	case "redis":
		return cache.NewRedisCache(cfg.RedisURL, cfg.CacheKeyPrefix)
	case "memory":
		return cache.NewMemoryCache(cfg.CacheCleanupInterval), nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.CacheType)
	}
}

// Build composes the market data facade and the recommendation service on
// top of appLogger. The market upstream gets one serialized limiter shared
// by every caller of the returned stack.
func Build(cfg *config.Config, appLogger logger.Service) (*Stack, error) {
	cacheService, err := NewCache(cfg)
	if err != nil {
		ctx := logger.WithLogEvent(context.Background(), logger.NewInternalLogEvent())
		appLogger.LogError(ctx, logger.OpStackInit, cfg.CacheType, "Failed to initialize cache", err, models.LogSeverityHigh, map[string]interface{}{
			"cache_type": cfg.CacheType,
		})
		return nil, err
	}

	limiter := ratelimit.NewQueue(ratelimit.QueueOptions{
		Name:            "market",
		MinInterval:     cfg.LimiterMinInterval,
		DispatchTimeout: cfg.LimiterDispatchTimeout,
		Logger:          appLogger,
	})

	jsonParser := parser.NewParser()
	market := marketdata.NewService(
		fetcher.NewHTTPFetcher(fetcher.Options{
			BaseURL: cfg.MarketAPIURL,
			APIKey:  cfg.MarketAPIKey,
			Timeout: cfg.FetchTimeout,
		}),
		jsonParser,
		cacheService,
		limiter,
		retry.NewExecutor(cfg.Retry, appLogger),
		appLogger,
		cfg.TTL,
	)

	recommender := recommendation.NewService(
		fetcher.NewHTTPFetcher(fetcher.Options{
			BaseURL: cfg.RecommenderAPIURL,
			Timeout: cfg.FetchTimeout,
		}),
		jsonParser,
		market,
		appLogger,
		cfg.EnrichConcurrency,
	)

	return &Stack{
		Logger:      appLogger,
		Cache:       cacheService,
		Limiter:     limiter,
		Market:      market,
		Recommender: recommender,
	}, nil
}

// Close stops the limiter and releases the cache. Jobs still queued fail
// with ErrLimiterClosed. The logger is left to its owner.
func (s *Stack) Close() error {
	return errors.Join(s.Limiter.Close(), s.Cache.Close())
}
