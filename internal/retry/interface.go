package retry

import "context"

// Operation is one attempt of a unit of work
type Operation func(ctx context.Context) error

// Service defines the interface for running operations under a retry policy
// External packages should use this interface, not the concrete implementations
type Service interface {
	Run(ctx context.Context, op Operation) error
}
