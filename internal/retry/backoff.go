package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"CryptoLens_MarketData/internal/logger"
	"CryptoLens_MarketData/internal/metrics"
	"CryptoLens_MarketData/internal/models"
)

// Policy configures exponential backoff. Only rate-limited failures are retried.
type Policy struct {
	MaxRetries    int           `yaml:"max_retries"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
}

// DefaultPolicy returns 3 retries starting at 1s, doubling, capped at 10s
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2,
	}
}

// Validate rejects policies that cannot produce a growing delay
func (p Policy) Validate() error {
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries must be non-negative, got %d", p.MaxRetries)
	}
	if p.InitialDelay < 0 || p.MaxDelay < 0 {
		return fmt.Errorf("retry delays must be non-negative")
	}
	if p.BackoffFactor <= 1 {
		return fmt.Errorf("backoff factor must be greater than 1, got %v", p.BackoffFactor)
	}
	return nil
}

// Delay returns min(InitialDelay * BackoffFactor^attempt, MaxDelay)
func (p Policy) Delay(attempt int) time.Duration {
	delay := float64(p.InitialDelay) * math.Pow(p.BackoffFactor, float64(attempt))
	if delay > float64(p.MaxDelay) || math.IsInf(delay, 1) {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

// Budget is the longest Run can take when every attempt uses perAttempt and
// every retry waits out its full backoff
func (p Policy) Budget(perAttempt time.Duration) time.Duration {
	total := time.Duration(p.MaxRetries+1) * perAttempt
	for attempt := 0; attempt < p.MaxRetries; attempt++ {
		total += p.Delay(attempt)
	}
	return total
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc, a timer that gives up on ctx cancellation
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Executor implements Service with exponential backoff on rate-limit failures
type Executor struct {
	policy Policy
	sleep  SleepFunc
	logger logger.Service
}

// NewExecutor creates a new backoff executor
func NewExecutor(policy Policy, logger logger.Service) Service {
	return newExecutor(policy, logger, Sleep)
}

// newExecutor creates the concrete implementation
func newExecutor(policy Policy, logger logger.Service, sleep SleepFunc) *Executor {
	if sleep == nil {
		sleep = Sleep
	}
	return &Executor{
		policy: policy,
		sleep:  sleep,
		logger: logger,
	}
}

// Run executes op, retrying after a backoff delay while it fails with a
// rate-limit error and retries remain. Any other error is returned at once.
// When retries are exhausted the last error is returned.
func (e *Executor) Run(ctx context.Context, op Operation) error {
	var lastErr error

	for attempt := 0; attempt <= e.policy.MaxRetries; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !models.IsRateLimited(err) || attempt == e.policy.MaxRetries {
			return err
		}

		delay := e.policy.Delay(attempt)
		metrics.Retries.Inc()
		if e.logger != nil {
			e.logger.LogError(ctx, logger.OpRetryBackoff, "", "Upstream rate limited, backing off", err, models.LogSeverityLow, map[string]interface{}{
				"attempt":     attempt + 1,
				"max_retries": e.policy.MaxRetries,
				"delay_ms":    delay.Milliseconds(),
			})
		}

		if err := e.sleep(ctx, delay); err != nil {
			return fmt.Errorf("retry aborted after attempt %d: %w", attempt+1, err)
		}
	}

	return lastErr
}

// Do runs a value-returning operation through s
func Do[T any](ctx context.Context, s Service, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := s.Run(ctx, func(ctx context.Context) error {
		value, err := op(ctx)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
