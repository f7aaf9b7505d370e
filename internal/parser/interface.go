package parser

import "CryptoLens_MarketData/internal/models"

// Service defines the interface for turning upstream JSON payloads into domain values
// External packages should use this interface, not the concrete implementations
type Service interface {
	ParseListings(body []byte) ([]models.Cryptocurrency, error)
	ParsePriceHistory(body []byte) ([]models.PricePoint, error)
	ParseCoinDetails(body []byte, currency string) (*models.CoinDetails, error)
	ParseSearch(body []byte) ([]models.SearchCoin, error)
	ParseRecommendations(body []byte) (*models.RawRecommendations, error)
}
