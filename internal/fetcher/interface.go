package fetcher

import (
	"context"
	"net/url"
)

// Service defines the interface for fetching JSON documents from an upstream API
// External packages should use this interface, not the concrete implementations
type Service interface {
	Get(ctx context.Context, path string, query url.Values) ([]byte, error)
}
