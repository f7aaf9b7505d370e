package recommendation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"CryptoLens_MarketData/internal/fetcher"
	"CryptoLens_MarketData/internal/logger"
	"CryptoLens_MarketData/internal/marketdata"
	"CryptoLens_MarketData/internal/models"
	"CryptoLens_MarketData/internal/parser"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultConcurrency bounds the coin lookups in flight per request
	DefaultConcurrency = 3

	recommenderPath = "/recommendations/recommender"
	quoteCurrency   = "usd"
)

// Recommender implements Service by joining the recommender backend's list
// with market data from the coin index
type Recommender struct {
	fetcher     fetcher.Service
	parser      parser.Service
	market      marketdata.Service
	logger      logger.Service
	concurrency int
}

// NewService creates a new recommendation service. backend talks to the
// recommender API, which is not the rate-limited market upstream.
func NewService(backend fetcher.Service, parser parser.Service, market marketdata.Service, logger logger.Service, concurrency int) Service {
	return newRecommender(backend, parser, market, logger, concurrency)
}

// newRecommender creates the concrete implementation
func newRecommender(backend fetcher.Service, parser parser.Service, market marketdata.Service, logger logger.Service, concurrency int) *Recommender {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Recommender{
		fetcher:     backend,
		parser:      parser,
		market:      market,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Recommendations fetches the caller's recommendations and attaches market
// data to each. Items without a symbol or without a market match are dropped;
// the remaining ones keep the backend's order.
func (r *Recommender) Recommendations(ctx context.Context, bearerToken string) (*models.RecommendationsResult, error) {
	start := time.Now()

	body, err := r.fetcher.Get(fetcher.WithBearerToken(ctx, bearerToken), recommenderPath, nil)
	if err != nil {
		r.logger.LogError(ctx, logger.OpRecommendations, "", "Failed to fetch recommendations", err, models.LogSeverityMedium, nil)
		return nil, fmt.Errorf("failed to fetch recommendations: %w", err)
	}

	raw, err := r.parser.ParseRecommendations(body)
	if err != nil {
		r.logger.LogError(ctx, logger.OpRecommendations, "", "Failed to parse recommendations", err, models.LogSeverityMedium, map[string]interface{}{
			"content_size": len(body),
		})
		return nil, fmt.Errorf("failed to parse recommendations: %w", err)
	}

	enriched := make([]*models.EnrichedRecommendation, len(raw.Recommendations))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, item := range raw.Recommendations {
		if item.Symbol == "" {
			continue
		}
		g.Go(func() error {
			coin, err := r.market.LookupCoin(gctx, item.Symbol, item.Symbol, quoteCurrency)
			if errors.Is(err, models.ErrCoinNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			enriched[i] = &models.EnrichedRecommendation{
				Cryptocurrency:     *coin,
				ProfileSource:      raw.Profile,
				RiskLevel:          item.RiskLevel,
				Network:            item.Network,
				PredictedMovement:  item.PredictedMovement,
				PredictedProbaUp:   item.PredictedProbaUp,
				EligibleForProfile: item.EligibleForProfile,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		r.logger.LogError(ctx, logger.OpRecommendations, "", "Failed to enrich recommendations", err, severityOf(err), nil)
		return nil, fmt.Errorf("failed to enrich recommendations: %w", err)
	}

	result := &models.RecommendationsResult{
		Profile:         raw.Profile,
		Recommendations: make([]models.EnrichedRecommendation, 0, len(enriched)),
	}
	for _, rec := range enriched {
		if rec != nil {
			result.Recommendations = append(result.Recommendations, *rec)
		}
	}

	r.logger.LogSuccess(ctx, logger.OpRecommendations, string(raw.Profile), "Enriched recommendations", map[string]interface{}{
		"received":    len(raw.Recommendations),
		"enriched":    len(result.Recommendations),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return result, nil
}

func severityOf(err error) models.LogSeverity {
	if models.IsRateLimited(err) {
		return models.LogSeverityLow
	}
	return models.LogSeverityMedium
}
