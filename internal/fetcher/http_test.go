package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"CryptoLens_MarketData/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(server *httptest.Server, apiKey string, timeout time.Duration) *HTTPFetcher {
	return newHTTPFetcher(Options{BaseURL: server.URL + "/api/v3/", APIKey: apiKey, Timeout: timeout}, nil)
}

func TestHTTPFetcher_Get_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/coins/markets", r.URL.Path)
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, defaultUserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "demo-key", r.Header.Get(DefaultAPIKeyHeader))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"bitcoin"}]`))
	}))
	defer server.Close()

	f := newTestFetcher(server, "demo-key", 5*time.Second)
	body, err := f.Get(context.Background(), "/coins/markets", url.Values{"vs_currency": {"usd"}})

	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"bitcoin"}]`, string(body))
}

func TestHTTPFetcher_Get_NoAPIKeyHeaderWhenUnset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header[http.CanonicalHeaderKey(DefaultAPIKeyHeader)]
		assert.False(t, present)
		assert.Empty(t, r.URL.RawQuery)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	_, err := newTestFetcher(server, "", time.Second).Get(context.Background(), "ping", nil)
	require.NoError(t, err)
}

func TestHTTPFetcher_Get_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"status":{"error_code":429}}`))
	}))
	defer server.Close()

	_, err := newTestFetcher(server, "", time.Second).Get(context.Background(), "/coins/bitcoin/market_chart", nil)

	require.Error(t, err)
	assert.True(t, models.IsRateLimited(err))

	var upstreamErr *models.UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, 429, upstreamErr.StatusCode)
	assert.Equal(t, 30*time.Second, upstreamErr.RetryAfter)
	assert.Equal(t, "/coins/{id}/market_chart", upstreamErr.Endpoint)
}

func TestHTTPFetcher_Get_ErrorStatuses(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError, http.StatusBadGateway} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			}))
			defer server.Close()

			_, err := newTestFetcher(server, "", time.Second).Get(context.Background(), "/search", nil)

			assert.ErrorIs(t, err, models.ErrUpstreamStatus)
			assert.False(t, models.IsRateLimited(err))
			var upstreamErr *models.UpstreamError
			require.True(t, errors.As(err, &upstreamErr))
			assert.Equal(t, status, upstreamErr.StatusCode)
		})
	}
}

func TestHTTPFetcher_Get_ClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	_, err := newTestFetcher(server, "", 50*time.Millisecond).Get(context.Background(), "/coins/markets", nil)
	assert.ErrorIs(t, err, models.ErrFetchTimeout)
}

func TestHTTPFetcher_Get_ContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := newTestFetcher(server, "", 5*time.Second).Get(ctx, "/coins/markets", nil)
	assert.ErrorIs(t, err, models.ErrFetchTimeout)
}

func TestHTTPFetcher_Get_TransportError(t *testing.T) {
	f := newHTTPFetcher(Options{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, nil)

	_, err := f.Get(context.Background(), "/coins/markets", nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrUpstreamStatus)
	assert.Contains(t, err.Error(), "failed to fetch /coins/markets")
}

func TestHTTPFetcher_Get_BodyTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", MaxBodySize+10)))
	}))
	defer server.Close()

	_, err := newTestFetcher(server, "", 5*time.Second).Get(context.Background(), "/coins/markets", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Duration(0), parseRetryAfter("", now))
	assert.Equal(t, 5*time.Second, parseRetryAfter("5", now))
	assert.Equal(t, time.Duration(0), parseRetryAfter("-3", now))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon", now))
	assert.Equal(t, 90*time.Second, parseRetryAfter(now.Add(90*time.Second).Format(http.TimeFormat), now))
}

func TestEndpointLabel(t *testing.T) {
	tests := map[string]string{
		"/coins/markets":               "/coins/markets",
		"coins/bitcoin":                "/coins/{id}",
		"/coins/ethereum/market_chart": "/coins/{id}/market_chart",
		"/search":                      "/search",
		"/recommendations/recommender": "/recommendations/recommender",
	}
	for in, want := range tests {
		assert.Equal(t, want, endpointLabel(in), in)
	}
}

func TestHTTPFetcher_Get_ForwardsBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"recommendations":[]}`))
	}))
	defer server.Close()

	ctx := WithBearerToken(context.Background(), "s3cret")
	_, err := newTestFetcher(server, "", time.Second).Get(ctx, "/recommendations/recommender", nil)
	require.NoError(t, err)
}
