package mocks

import (
	"context"

	"CryptoLens_MarketData/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockMarketData is a mock implementation of marketdata.Service
type MockMarketData struct {
	mock.Mock
}

// TopListings mocks the TopListings method of marketdata.Service
func (m *MockMarketData) TopListings(ctx context.Context, query models.ListingsQuery) ([]models.Cryptocurrency, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Cryptocurrency), args.Error(1)
}

// PriceHistory mocks the PriceHistory method of marketdata.Service
func (m *MockMarketData) PriceHistory(ctx context.Context, id string, days int, currency string) ([]models.PricePoint, error) {
	args := m.Called(ctx, id, days, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PricePoint), args.Error(1)
}

// CoinDetails mocks the CoinDetails method of marketdata.Service
func (m *MockMarketData) CoinDetails(ctx context.Context, id, currency string) (*models.CoinDetails, error) {
	args := m.Called(ctx, id, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CoinDetails), args.Error(1)
}

// Search mocks the Search method of marketdata.Service
func (m *MockMarketData) Search(ctx context.Context, query string) ([]models.SearchCoin, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SearchCoin), args.Error(1)
}

// LookupCoin mocks the LookupCoin method of marketdata.Service
func (m *MockMarketData) LookupCoin(ctx context.Context, symbol, name, currency string) (*models.Cryptocurrency, error) {
	args := m.Called(ctx, symbol, name, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Cryptocurrency), args.Error(1)
}

// LookupCoins mocks the LookupCoins method of marketdata.Service
func (m *MockMarketData) LookupCoins(ctx context.Context, symbols []string, currency string) (map[string]*models.Cryptocurrency, error) {
	args := m.Called(ctx, symbols, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*models.Cryptocurrency), args.Error(1)
}

// Invalidate mocks the Invalidate method of marketdata.Service
func (m *MockMarketData) Invalidate(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// Purge mocks the Purge method of marketdata.Service
func (m *MockMarketData) Purge(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
