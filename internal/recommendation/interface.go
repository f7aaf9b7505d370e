package recommendation

import (
	"context"

	"CryptoLens_MarketData/internal/models"
)

// Service defines the interface for enriched coin recommendations
// External packages should use this interface, not the concrete implementations
type Service interface {
	Recommendations(ctx context.Context, bearerToken string) (*models.RecommendationsResult, error)
}
