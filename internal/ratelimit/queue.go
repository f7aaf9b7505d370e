package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"CryptoLens_MarketData/internal/logger"
	"CryptoLens_MarketData/internal/metrics"
	"CryptoLens_MarketData/internal/models"
)

const (
	// DefaultMinInterval keeps upstream calls under the public API's per-minute quota
	DefaultMinInterval = 1500 * time.Millisecond
	// DefaultDispatchTimeout bounds a single dispatched operation
	DefaultDispatchTimeout = 30 * time.Second
)

// QueueOptions configures a Queue
type QueueOptions struct {
	Name            string
	MinInterval     time.Duration
	DispatchTimeout time.Duration // zero disables the timeout
	Logger          logger.Service
}

// job is one scheduled operation and the channel its outcome is delivered on
type job struct {
	ctx  context.Context
	op   Operation
	done chan error
}

// Queue is a FIFO limiter that dispatches one operation at a time and keeps
// consecutive dispatch starts at least MinInterval apart
type Queue struct {
	name            string
	minInterval     time.Duration
	dispatchTimeout time.Duration
	logger          logger.Service

	mutex          sync.Mutex
	jobs           []*job
	processing     bool
	closed         bool
	lastDispatchAt time.Time

	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewQueue creates a serialized limiter
func NewQueue(opts QueueOptions) Scheduler {
	return newQueue(opts, time.Now)
}

// newQueue creates the concrete implementation with an injectable clock
func newQueue(opts QueueOptions, now func() time.Time) *Queue {
	if opts.Name == "" {
		opts.Name = "upstream"
	}
	if opts.MinInterval < 0 {
		opts.MinInterval = 0
	}
	return &Queue{
		name:            opts.Name,
		minInterval:     opts.MinInterval,
		dispatchTimeout: opts.DispatchTimeout,
		logger:          opts.Logger,
		now:             now,
		stop:            make(chan struct{}),
	}
}

// Schedule enqueues op and blocks until it has run, returning op's own error.
// A caller whose ctx ends while waiting gets ctx.Err(); if that happens before
// dispatch the operation is dropped without consuming a slot.
func (q *Queue) Schedule(ctx context.Context, op Operation) error {
	j := &job{ctx: ctx, op: op, done: make(chan error, 1)}

	q.mutex.Lock()
	if q.closed {
		q.mutex.Unlock()
		return models.ErrLimiterClosed
	}
	q.jobs = append(q.jobs, j)
	metrics.QueueDepth.WithLabelValues(q.name).Set(float64(len(q.jobs)))
	if !q.processing {
		q.processing = true
		go q.drain()
	}
	q.mutex.Unlock()

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of operations waiting for dispatch
func (q *Queue) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return len(q.jobs)
}

// Close stops the queue. Waiting operations fail with ErrLimiterClosed and
// later calls to Schedule are rejected. An operation already running finishes.
func (q *Queue) Close() error {
	q.mutex.Lock()
	q.closed = true
	pending := q.jobs
	q.jobs = nil
	metrics.QueueDepth.WithLabelValues(q.name).Set(0)
	q.mutex.Unlock()

	for _, j := range pending {
		j.done <- models.ErrLimiterClosed
	}
	q.stopOnce.Do(func() { close(q.stop) })
	return nil
}

// drain runs queued operations one after another until the queue is empty
func (q *Queue) drain() {
	for {
		q.mutex.Lock()
		if len(q.jobs) == 0 {
			q.processing = false
			q.mutex.Unlock()
			return
		}
		wait := q.minInterval - q.now().Sub(q.lastDispatchAt)
		q.mutex.Unlock()

		if wait > 0 && !q.pause(wait) {
			q.mutex.Lock()
			q.processing = false
			q.mutex.Unlock()
			return
		}

		q.mutex.Lock()
		if len(q.jobs) == 0 {
			q.processing = false
			q.mutex.Unlock()
			return
		}
		j := q.jobs[0]
		q.jobs[0] = nil
		q.jobs = q.jobs[1:]
		metrics.QueueDepth.WithLabelValues(q.name).Set(float64(len(q.jobs)))

		if err := j.ctx.Err(); err != nil {
			q.mutex.Unlock()
			metrics.Dispatches.WithLabelValues(q.name, "cancelled").Inc()
			j.done <- err
			continue
		}
		q.lastDispatchAt = q.now()
		q.mutex.Unlock()

		j.done <- q.dispatch(j)
	}
}

// pause waits for d, returning false if the queue was closed meanwhile
func (q *Queue) pause(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-q.stop:
		return false
	}
}

// dispatch runs a single operation, bounded by the dispatch timeout if set
func (q *Queue) dispatch(j *job) error {
	ctx := j.ctx
	cancel := func() {}
	if q.dispatchTimeout > 0 {
		ctx, cancel = context.WithTimeout(j.ctx, q.dispatchTimeout)
	}
	defer cancel()

	result := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				result <- fmt.Errorf("scheduled operation panicked: %v", r)
			}
		}()
		result <- j.op(ctx)
	}()

	select {
	case err := <-result:
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		metrics.Dispatches.WithLabelValues(q.name, outcome).Inc()
		return err
	case <-ctx.Done():
		if err := j.ctx.Err(); err != nil {
			metrics.Dispatches.WithLabelValues(q.name, "cancelled").Inc()
			return err
		}
		metrics.Dispatches.WithLabelValues(q.name, "timeout").Inc()
		if q.logger != nil {
			q.logger.LogError(j.ctx, logger.OpLimiterDispatch, q.name, "Dispatched operation exceeded timeout", models.ErrDispatchTimeout, models.LogSeverityMedium, map[string]interface{}{
				"timeout_ms": q.dispatchTimeout.Milliseconds(),
			})
		}
		return fmt.Errorf("%w after %s", models.ErrDispatchTimeout, q.dispatchTimeout)
	}
}

// Schedule runs a value-returning operation through s
func Schedule[T any](ctx context.Context, s Scheduler, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := s.Schedule(ctx, func(ctx context.Context) error {
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
