package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"CryptoLens_MarketData/internal/cache"
	"CryptoLens_MarketData/internal/cache/typedCache"
	"CryptoLens_MarketData/internal/fetcher"
	"CryptoLens_MarketData/internal/logger"
	"CryptoLens_MarketData/internal/metrics"
	"CryptoLens_MarketData/internal/models"
	"CryptoLens_MarketData/internal/parser"
	"CryptoLens_MarketData/internal/ratelimit"
	"CryptoLens_MarketData/internal/retry"

	"golang.org/x/sync/singleflight"
)

// MarketData implements the Service interface. Every upstream call goes
// through the limiter, with the retry executor inside the limiter slot.
type MarketData struct {
	fetcher fetcher.Service
	parser  parser.Service
	cache   cache.Service
	limiter ratelimit.Scheduler
	retry   retry.Service
	logger  logger.Service
	ttls    TTLs
	group   singleflight.Group
}

// NewService creates a new market data facade
func NewService(
	fetcher fetcher.Service,
	parser parser.Service,
	cache cache.Service,
	limiter ratelimit.Scheduler,
	retry retry.Service,
	logger logger.Service,
	ttls TTLs,
) Service {
	return newMarketData(fetcher, parser, cache, limiter, retry, logger, ttls)
}

// newMarketData creates the concrete implementation
func newMarketData(
	fetcher fetcher.Service,
	parser parser.Service,
	cache cache.Service,
	limiter ratelimit.Scheduler,
	retry retry.Service,
	logger logger.Service,
	ttls TTLs,
) *MarketData {
	return &MarketData{
		fetcher: fetcher,
		parser:  parser,
		cache:   cache,
		limiter: limiter,
		retry:   retry,
		logger:  logger,
		ttls:    ttls,
	}
}

// TopListings returns a page of coins ordered by market cap
func (s *MarketData) TopListings(ctx context.Context, query models.ListingsQuery) ([]models.Cryptocurrency, error) {
	q, err := normalizeListings(query)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"vs_currency":             {q.Currency},
		"order":                   {"market_cap_desc"},
		"per_page":                {strconv.Itoa(q.Limit)},
		"page":                    {strconv.Itoa(q.Page)},
		"sparkline":               {strconv.FormatBool(q.Sparkline)},
		"price_change_percentage": {"1h,24h,7d"},
	}
	if len(q.IDs) > 0 {
		params.Set("ids", strings.Join(q.IDs, ","))
	}

	return load(ctx, s, KindListings, logger.OpListings, ListingsKey(q),
		func(ctx context.Context) ([]byte, error) {
			return s.fetcher.Get(ctx, "/coins/markets", params)
		},
		s.parser.ParseListings,
	)
}

// PriceHistory returns the price samples of the last days for a coin
func (s *MarketData) PriceHistory(ctx context.Context, id string, days int, currency string) ([]models.PricePoint, error) {
	id, err := normalizeID(id)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		return nil, invalid("days must be positive, got %d", days)
	}
	currency, err = normalizeCurrency(currency)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"vs_currency": {currency},
		"days":        {strconv.Itoa(days)},
		"interval":    {historyInterval(days)},
	}

	return load(ctx, s, KindHistory, logger.OpPriceHistory, HistoryKey(id, currency, days),
		func(ctx context.Context) ([]byte, error) {
			return s.fetcher.Get(ctx, "/coins/"+url.PathEscape(id)+"/market_chart", params)
		},
		s.parser.ParsePriceHistory,
	)
}

// CoinDetails returns the flattened detail document of a coin
func (s *MarketData) CoinDetails(ctx context.Context, id, currency string) (*models.CoinDetails, error) {
	id, err := normalizeID(id)
	if err != nil {
		return nil, err
	}
	currency, err = normalizeCurrency(currency)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"localization":   {"false"},
		"tickers":        {"false"},
		"market_data":    {"true"},
		"community_data": {"false"},
		"developer_data": {"false"},
		"sparkline":      {"false"},
	}

	return load(ctx, s, KindDetails, logger.OpCoinDetails, DetailsKey(id, currency),
		func(ctx context.Context) ([]byte, error) {
			return s.fetcher.Get(ctx, "/coins/"+url.PathEscape(id), params)
		},
		func(body []byte) (*models.CoinDetails, error) {
			return s.parser.ParseCoinDetails(body, currency)
		},
	)
}

// Search returns the coins matching a free-text query
func (s *MarketData) Search(ctx context.Context, query string) ([]models.SearchCoin, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalid("search query must not be empty")
	}

	return load(ctx, s, KindSearch, logger.OpSearch, SearchKey(query),
		func(ctx context.Context) ([]byte, error) {
			return s.fetcher.Get(ctx, "/search", url.Values{"query": {query}})
		},
		s.parser.ParseSearch,
	)
}

// LookupCoin resolves a coin by symbol, falling back to its name, from the
// cached coin index
func (s *MarketData) LookupCoin(ctx context.Context, symbol, name, currency string) (*models.Cryptocurrency, error) {
	if strings.TrimSpace(symbol) == "" && strings.TrimSpace(name) == "" {
		return nil, invalid("symbol or name is required")
	}

	index, err := s.coinIndex(ctx, currency)
	if err != nil {
		return nil, err
	}

	coin, ok := index.Lookup(symbol, name)
	if !ok {
		return nil, fmt.Errorf("%w: symbol=%q name=%q", models.ErrCoinNotFound, symbol, name)
	}
	found := *coin
	return &found, nil
}

// LookupCoins resolves many symbols with a single index fetch. Symbols that
// are not in the index are absent from the result.
func (s *MarketData) LookupCoins(ctx context.Context, symbols []string, currency string) (map[string]*models.Cryptocurrency, error) {
	result := make(map[string]*models.Cryptocurrency, len(symbols))
	if len(symbols) == 0 {
		return result, nil
	}

	index, err := s.coinIndex(ctx, currency)
	if err != nil {
		return nil, err
	}

	for _, symbol := range symbols {
		if coin, ok := index.Lookup(symbol, ""); ok {
			found := *coin
			result[symbol] = &found
		}
	}

	s.logger.LogSuccess(ctx, logger.OpCoinLookup, "", "Resolved symbols from coin index", map[string]interface{}{
		"requested": len(symbols),
		"resolved":  len(result),
	})
	return result, nil
}

// Invalidate drops a single cache entry
func (s *MarketData) Invalidate(ctx context.Context, key string) error {
	return s.cache.Delete(ctx, key)
}

// Purge drops every cache entry
func (s *MarketData) Purge(ctx context.Context) error {
	return s.cache.Clear(ctx)
}

// coinIndex returns the cached symbol/name index over the top listings page
func (s *MarketData) coinIndex(ctx context.Context, currency string) (*models.CoinIndex, error) {
	currency, err := normalizeCurrency(currency)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"vs_currency":             {currency},
		"order":                   {"market_cap_desc"},
		"per_page":                {strconv.Itoa(IndexPageSize)},
		"page":                    {"1"},
		"sparkline":               {"true"},
		"price_change_percentage": {"24h"},
	}

	return load(ctx, s, KindIndex, logger.OpCoinLookup, IndexKey(currency),
		func(ctx context.Context) ([]byte, error) {
			return s.fetcher.Get(ctx, "/coins/markets", params)
		},
		func(body []byte) (*models.CoinIndex, error) {
			coins, err := s.parser.ParseListings(body)
			if err != nil {
				return nil, err
			}
			return models.NewCoinIndex(currency, coins), nil
		},
	)
}

// load serves key from the cache or, on a miss, fetches it through the
// limiter and retry executor, parses it and caches it with the kind's TTL.
// Concurrent misses on the same key share one upstream call, which keeps
// running when the caller that started it goes away. Failures are returned
// and never cached.
func load[T any](
	ctx context.Context,
	s *MarketData,
	kind Kind,
	operation string,
	key string,
	fetch func(ctx context.Context) ([]byte, error),
	parse func(body []byte) (T, error),
) (T, error) {
	var zero T
	start := time.Now()
	typed := typedCache.New[T](s.cache)

	cached, err := typed.Get(ctx, key)
	if err == nil {
		metrics.CacheLookups.WithLabelValues(string(kind), "hit").Inc()
		s.logger.LogSuccess(ctx, logger.OpCacheHit, key, "Served from cache", map[string]interface{}{
			"kind":        string(kind),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return cached, nil
	}
	if !errors.Is(err, models.ErrCacheMiss) {
		s.logger.LogError(ctx, logger.OpCacheMiss, key, "Cache read failed, treating as miss", err, models.LogSeverityLow, map[string]interface{}{
			"kind": string(kind),
		})
	}

	metrics.CacheLookups.WithLabelValues(string(kind), "miss").Inc()
	s.logger.LogInfo(ctx, logger.OpCacheMiss, fmt.Sprintf("Cache miss for %s", key), map[string]interface{}{
		"kind": string(kind),
	})

	// the flight outlives any one caller; each caller stops waiting on its own ctx
	flightCtx := context.WithoutCancel(ctx)
	flight := s.group.DoChan(key, func() (interface{}, error) {
		ctx := flightCtx
		if cached, err := typed.Get(ctx, key); err == nil {
			return cached, nil
		}

		body, err := ratelimit.Schedule(ctx, s.limiter, func(ctx context.Context) ([]byte, error) {
			return retry.Do(ctx, s.retry, fetch)
		})
		if err != nil {
			s.logger.LogError(ctx, logger.OpUpstreamFetch, key, "Failed to fetch market data", err, severityOf(err), map[string]interface{}{
				"kind":        string(kind),
				"duration_ms": time.Since(start).Milliseconds(),
			})
			return nil, models.NewMarketDataError(string(kind), key, "failed to fetch", err)
		}

		parsed, err := parse(body)
		if err != nil {
			metrics.UpstreamErrors.WithLabelValues("malformed").Inc()
			s.logger.LogError(ctx, logger.OpUpstreamFetch, key, "Upstream payload did not match the expected shape", err, models.LogSeverityMedium, map[string]interface{}{
				"kind":         string(kind),
				"content_size": len(body),
			})
			return nil, models.NewMarketDataError(string(kind), key, "failed to parse", err)
		}

		if err := typed.Set(ctx, key, parsed, s.ttls.of(kind)); err != nil {
			s.logger.LogError(ctx, logger.OpCacheSet, key, "Failed to cache market data", err, models.LogSeverityLow, map[string]interface{}{
				"kind": string(kind),
			})
		}
		return parsed, nil
	})

	var res singleflight.Result
	select {
	case res = <-flight:
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	if res.Err != nil {
		return zero, res.Err
	}
	value, shared := res.Val, res.Shared

	s.logger.LogSuccess(ctx, operation, key, "Fetched market data", map[string]interface{}{
		"kind":        string(kind),
		"shared":      shared,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return value.(T), nil
}

// severityOf grades fetch failures for the log; rate limiting after
// exhausted retries is expected under load
func severityOf(err error) models.LogSeverity {
	switch {
	case models.IsRateLimited(err):
		return models.LogSeverityLow
	case errors.Is(err, models.ErrDispatchTimeout), errors.Is(err, models.ErrFetchTimeout):
		return models.LogSeverityHigh
	default:
		return models.LogSeverityMedium
	}
}
