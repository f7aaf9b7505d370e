package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"CryptoLens_MarketData/internal/config"
	"CryptoLens_MarketData/internal/logger"
	"CryptoLens_MarketData/internal/mocks"
	"CryptoLens_MarketData/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const marketsBody = `[
	{"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":64000,"market_cap_rank":1},
	{"id":"ethereum","symbol":"eth","name":"Ethereum","current_price":3100,"market_cap_rank":2}
]`

func testConfig(marketURL, recommenderURL string) *config.Config {
	cfg := config.Default()
	cfg.MarketAPIURL = marketURL
	cfg.RecommenderAPIURL = recommenderURL
	cfg.LimiterMinInterval = 0
	cfg.FetchTimeout = 2 * time.Second
	cfg.Retry.InitialDelay = time.Millisecond
	cfg.Retry.MaxDelay = 5 * time.Millisecond
	return cfg
}

func TestBuild_ServesFromUpstreamThenCache(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/coins/markets", r.URL.Path)
		_, _ = w.Write([]byte(marketsBody))
	}))
	defer upstream.Close()

	stack, err := Build(testConfig(upstream.URL, "http://127.0.0.1:1"), mocks.NewQuietLogger())
	require.NoError(t, err)
	defer stack.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		listings, err := stack.Market.TopListings(ctx, models.ListingsQuery{Limit: 2})
		require.NoError(t, err)
		require.Len(t, listings, 2)
		assert.Equal(t, "bitcoin", listings[0].ID)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestBuild_RecommendationsUseBothUpstreams(t *testing.T) {
	market := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(marketsBody))
	}))
	defer market.Close()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"profile":"baixo","recommendations":[{"symbol":"ETH","network":"ethereum"},{"symbol":"DOGE"}]}`))
	}))
	defer backend.Close()

	stack, err := Build(testConfig(market.URL, backend.URL), mocks.NewQuietLogger())
	require.NoError(t, err)
	defer stack.Close()

	result, err := stack.Recommender.Recommendations(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, result.Recommendations, 1)
	assert.Equal(t, "ethereum", result.Recommendations[0].ID)
	assert.Equal(t, 3100.0, result.Recommendations[0].CurrentPrice)
}

func TestBuild_CloseFailsLaterCalls(t *testing.T) {
	stack, err := Build(testConfig("http://127.0.0.1:1", "http://127.0.0.1:1"), mocks.NewQuietLogger())
	require.NoError(t, err)
	require.NoError(t, stack.Close())

	_, err = stack.Market.Search(context.Background(), "btc")
	assert.ErrorIs(t, err, models.ErrLimiterClosed)
}

func TestBuild_CacheFailureIsLogged(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1", "http://127.0.0.1:1")
	cfg.CacheType = "disk"

	appLogger := &mocks.MockLogger{}
	appLogger.On("LogError", mock.Anything, logger.OpStackInit, "disk", "Failed to initialize cache",
		mock.Anything, models.LogSeverityHigh, map[string]interface{}{"cache_type": "disk"}).Once()

	stack, err := Build(cfg, appLogger)
	assert.Error(t, err)
	assert.Nil(t, stack)
	appLogger.AssertExpectations(t)
}

func TestNewCache(t *testing.T) {
	cfg := config.Default()

	memory, err := NewCache(cfg)
	require.NoError(t, err)
	defer memory.Close()

	mr := miniredis.RunT(t)
	cfg.CacheType = "redis"
	cfg.RedisURL = "redis://" + mr.Addr()
	redisCache, err := NewCache(cfg)
	require.NoError(t, err)
	defer redisCache.Close()

	require.NoError(t, redisCache.Set(context.Background(), "k", "v", time.Minute))
	assert.True(t, mr.Exists(cfg.CacheKeyPrefix+"k"))

	cfg.CacheType = "disk"
	_, err = NewCache(cfg)
	assert.Error(t, err)
}

func TestNewLogger_DefaultsToSlog(t *testing.T) {
	cfg := config.Default()

	appLogger, err := NewLogger(context.Background(), cfg, io.Discard)
	require.NoError(t, err)
	assert.NotNil(t, appLogger)
	assert.NoError(t, appLogger.Close())
}
