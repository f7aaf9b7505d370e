package mocks

import (
	"context"

	"CryptoLens_MarketData/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockRecommender is a mock implementation of recommendation.Service
type MockRecommender struct {
	mock.Mock
}

// Recommendations mocks the Recommendations method of recommendation.Service
func (m *MockRecommender) Recommendations(ctx context.Context, bearerToken string) (*models.RecommendationsResult, error) {
	args := m.Called(ctx, bearerToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RecommendationsResult), args.Error(1)
}
