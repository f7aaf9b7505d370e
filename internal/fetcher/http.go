package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"CryptoLens_MarketData/internal/metrics"
	"CryptoLens_MarketData/internal/models"
)

const (
	// MaxBodySize caps how much of an upstream response is read
	MaxBodySize = 5 * 1024 * 1024

	// DefaultAPIKeyHeader is the header the public market API reads its demo key from
	DefaultAPIKeyHeader = "x-cg-demo-api-key"

	defaultUserAgent = "CryptoLens-MarketData/1.0"
)

type contextKey string

const authorizationKey contextKey = "authorization"

// WithBearerToken makes requests made with the returned context carry token
// as a bearer Authorization header
func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, authorizationKey, token)
}

// Options configures an HTTPFetcher
type Options struct {
	BaseURL      string
	APIKey       string
	APIKeyHeader string
	UserAgent    string
	Timeout      time.Duration
}

// HTTPFetcher implements Service against a JSON HTTP API
type HTTPFetcher struct {
	client       *http.Client
	baseURL      string
	apiKey       string
	apiKeyHeader string
	userAgent    string
}

// NewHTTPFetcher creates a new HTTP JSON fetcher rooted at opts.BaseURL
func NewHTTPFetcher(opts Options) Service {
	return newHTTPFetcher(opts, nil)
}

// newHTTPFetcher creates the concrete implementation; a nil client gets a default one
func newHTTPFetcher(opts Options, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		}
	}
	if opts.APIKeyHeader == "" {
		opts.APIKeyHeader = DefaultAPIKeyHeader
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	return &HTTPFetcher{
		client:       client,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		apiKey:       opts.APIKey,
		apiKeyHeader: opts.APIKeyHeader,
		userAgent:    opts.UserAgent,
	}
}

// Get requests baseURL+path with the given query and returns the raw body of a 2xx answer
func (f *HTTPFetcher) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint := endpointLabel(path)
	target := f.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.userAgent)
	if f.apiKey != "" {
		req.Header.Set(f.apiKeyHeader, f.apiKey)
	}
	if token, ok := ctx.Value(authorizationKey).(string); ok && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	metrics.UpstreamDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		if isTimeout(ctx, err) {
			metrics.UpstreamErrors.WithLabelValues("timeout").Inc()
			return nil, fmt.Errorf("%w: %s: %v", models.ErrFetchTimeout, endpoint, err)
		}
		metrics.UpstreamErrors.WithLabelValues("transport").Inc()
		return nil, fmt.Errorf("failed to fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain a little so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

		upstreamErr := models.NewUpstreamError(endpoint, resp.StatusCode, parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()))
		if resp.StatusCode == http.StatusTooManyRequests {
			metrics.UpstreamErrors.WithLabelValues("rate_limited").Inc()
		} else {
			metrics.UpstreamErrors.WithLabelValues("status").Inc()
		}
		return nil, upstreamErr
	}

	body, err := readBodyWithLimit(resp.Body, MaxBodySize)
	if err != nil {
		if isTimeout(ctx, err) {
			metrics.UpstreamErrors.WithLabelValues("timeout").Inc()
			return nil, fmt.Errorf("%w: %s: %v", models.ErrFetchTimeout, endpoint, err)
		}
		metrics.UpstreamErrors.WithLabelValues("transport").Inc()
		return nil, fmt.Errorf("failed to read %s response body: %w", endpoint, err)
	}

	return body, nil
}

// isTimeout reports whether err came from a deadline rather than a broken transport
func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// readBodyWithLimit reads the response body, failing when it exceeds maxSize
func readBodyWithLimit(body io.Reader, maxSize int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("response too large (exceeds %d bytes)", maxSize)
	}
	return data, nil
}

// parseRetryAfter reads a Retry-After header given in seconds or as an HTTP date
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// endpointLabel collapses per-coin paths so metrics keep a bounded label set
func endpointLabel(path string) string {
	path = "/" + strings.Trim(path, "/")
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(parts) >= 2 && parts[0] == "coins" && parts[1] != "markets" && parts[1] != "list" {
		parts[1] = "{id}"
	}
	return "/" + strings.Join(parts, "/")
}
