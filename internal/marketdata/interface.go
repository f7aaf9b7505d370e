package marketdata

import (
	"context"

	"CryptoLens_MarketData/internal/models"
)

// Service defines the cached, rate-limited access to market data
// External packages should use this interface, not the concrete implementations
type Service interface {
	TopListings(ctx context.Context, query models.ListingsQuery) ([]models.Cryptocurrency, error)
	PriceHistory(ctx context.Context, id string, days int, currency string) ([]models.PricePoint, error)
	CoinDetails(ctx context.Context, id, currency string) (*models.CoinDetails, error)
	Search(ctx context.Context, query string) ([]models.SearchCoin, error)
	LookupCoin(ctx context.Context, symbol, name, currency string) (*models.Cryptocurrency, error)
	LookupCoins(ctx context.Context, symbols []string, currency string) (map[string]*models.Cryptocurrency, error)
	Invalidate(ctx context.Context, key string) error
	Purge(ctx context.Context) error
}
