package ratelimit

import "context"

// Operation is a unit of upstream work dispatched by a Scheduler
type Operation func(ctx context.Context) error

// Scheduler serializes outbound operations so they start at least a minimum
// interval apart, in submission order
type Scheduler interface {
	Schedule(ctx context.Context, op Operation) error
	Len() int
	Close() error
}

// Service defines the inbound per-client rate limiting used by the HTTP layer
type Service interface {
	Allow(clientID string) bool
	Wait(ctx context.Context, clientID string) error
}
