package mocks

import (
	"CryptoLens_MarketData/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockParser is a mock implementation of parser.Service
type MockParser struct {
	mock.Mock
}

// ParseListings mocks the ParseListings method of parser.Service
func (m *MockParser) ParseListings(body []byte) ([]models.Cryptocurrency, error) {
	args := m.Called(body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Cryptocurrency), args.Error(1)
}

// ParsePriceHistory mocks the ParsePriceHistory method of parser.Service
func (m *MockParser) ParsePriceHistory(body []byte) ([]models.PricePoint, error) {
	args := m.Called(body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PricePoint), args.Error(1)
}

// ParseCoinDetails mocks the ParseCoinDetails method of parser.Service
func (m *MockParser) ParseCoinDetails(body []byte, currency string) (*models.CoinDetails, error) {
	args := m.Called(body, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CoinDetails), args.Error(1)
}

// ParseSearch mocks the ParseSearch method of parser.Service
func (m *MockParser) ParseSearch(body []byte) ([]models.SearchCoin, error) {
	args := m.Called(body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SearchCoin), args.Error(1)
}

// ParseRecommendations mocks the ParseRecommendations method of parser.Service
func (m *MockParser) ParseRecommendations(body []byte) (*models.RawRecommendations, error) {
	args := m.Called(body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RawRecommendations), args.Error(1)
}
