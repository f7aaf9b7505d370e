package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockRateLimiter is a mock implementation of the inbound ratelimit.Service
type MockRateLimiter struct {
	mock.Mock
}

// Allow mocks ratelimit.Service.Allow for one client id
func (m *MockRateLimiter) Allow(clientID string) bool {
	args := m.Called(clientID)
	return args.Bool(0)
}

// Wait mocks ratelimit.Service.Wait
func (m *MockRateLimiter) Wait(ctx context.Context, clientID string) error {
	args := m.Called(ctx, clientID)
	return args.Error(0)
}
