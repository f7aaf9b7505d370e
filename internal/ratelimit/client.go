package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	bucketSweepInterval = 10 * time.Minute
	bucketIdleTimeout   = 30 * time.Minute
)

// TokenBucket is a refilling token bucket
type TokenBucket struct {
	capacity   int64
	tokens     int64
	refillRate int64 // tokens per second
	lastRefill time.Time
	lastUsed   time.Time
	now        func() time.Time
	mutex      sync.Mutex
}

// NewTokenBucket creates a full bucket with the given capacity and refill rate
func NewTokenBucket(capacity, refillRate int64) *TokenBucket {
	return newTokenBucket(capacity, refillRate, time.Now)
}

func newTokenBucket(capacity, refillRate int64, now func() time.Time) *TokenBucket {
	t := now()
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: t,
		lastUsed:   t,
		now:        now,
	}
}

// Allow consumes a token if one is available
func (tb *TokenBucket) Allow() bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill()
	tb.lastUsed = tb.now()

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// giveBack returns a token consumed by a request that was rejected elsewhere
func (tb *TokenBucket) giveBack() {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	if tb.tokens < tb.capacity {
		tb.tokens++
	}
}

func (tb *TokenBucket) idleSince(cutoff time.Time) bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()
	return tb.lastUsed.Before(cutoff)
}

// refill adds whole tokens for the time elapsed since the last refill
func (tb *TokenBucket) refill() {
	now := tb.now()
	tokensToAdd := int64(now.Sub(tb.lastRefill).Seconds() * float64(tb.refillRate))
	if tokensToAdd > 0 {
		tb.tokens = min(tb.capacity, tb.tokens+tokensToAdd)
		tb.lastRefill = now
	}
}

// ClientLimiter applies a global bucket and a bucket per client
type ClientLimiter struct {
	global         *TokenBucket
	clients        sync.Map // map[string]*TokenBucket
	perClientBurst int64
	perClientRate  int64
	now            func() time.Time
	stop           chan struct{}
	stopOnce       sync.Once
}

// NewClientLimiter creates a two-tier inbound limiter and starts its idle-bucket sweep
func NewClientLimiter(globalBurst, globalRate, perClientBurst, perClientRate int64) *ClientLimiter {
	l := newClientLimiter(globalBurst, globalRate, perClientBurst, perClientRate, time.Now)
	go l.sweepLoop(bucketSweepInterval)
	return l
}

func newClientLimiter(globalBurst, globalRate, perClientBurst, perClientRate int64, now func() time.Time) *ClientLimiter {
	return &ClientLimiter{
		global:         newTokenBucket(globalBurst, globalRate, now),
		perClientBurst: perClientBurst,
		perClientRate:  perClientRate,
		now:            now,
		stop:           make(chan struct{}),
	}
}

// Allow reports whether a request from clientID may proceed
func (l *ClientLimiter) Allow(clientID string) bool {
	if !l.global.Allow() {
		return false
	}
	if !l.bucketFor(clientID).Allow() {
		l.global.giveBack()
		return false
	}
	return true
}

// Wait blocks until clientID may proceed or ctx is done
func (l *ClientLimiter) Wait(ctx context.Context, clientID string) error {
	if l.Allow(clientID) {
		return nil
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.Allow(clientID) {
				return nil
			}
		}
	}
}

// Close stops the idle-bucket sweep
func (l *ClientLimiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *ClientLimiter) bucketFor(clientID string) *TokenBucket {
	if bucket, ok := l.clients.Load(clientID); ok {
		return bucket.(*TokenBucket)
	}
	actual, _ := l.clients.LoadOrStore(clientID, newTokenBucket(l.perClientBurst, l.perClientRate, l.now))
	return actual.(*TokenBucket)
}

// sweepIdle drops client buckets unused for longer than bucketIdleTimeout
func (l *ClientLimiter) sweepIdle() int {
	cutoff := l.now().Add(-bucketIdleTimeout)
	removed := 0
	l.clients.Range(func(key, value interface{}) bool {
		if value.(*TokenBucket).idleSince(cutoff) {
			l.clients.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

func (l *ClientLimiter) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweepIdle()
		}
	}
}
