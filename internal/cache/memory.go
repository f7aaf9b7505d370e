package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"CryptoLens_MarketData/internal/metrics"
	"CryptoLens_MarketData/internal/models"
)

// DefaultCleanupInterval is how often expired entries are swept
const DefaultCleanupInterval = 5 * time.Minute

// MemoryCache implements Service using in-memory storage
type MemoryCache struct {
	data  map[string]*cacheEntry
	mutex sync.Mutex
	now   func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// cacheEntry is valid while now - storedAt <= ttl
type cacheEntry struct {
	value    interface{}
	storedAt time.Time
	ttl      time.Duration
}

func (e *cacheEntry) expired(now time.Time) bool {
	return now.Sub(e.storedAt) > e.ttl
}

// NewMemoryCache creates a new in-memory cache that sweeps expired entries
// every cleanupInterval (DefaultCleanupInterval when <= 0)
func NewMemoryCache(cleanupInterval time.Duration) Service {
	return newMemoryCache(cleanupInterval, time.Now)
}

// newMemoryCache creates the concrete implementation
func newMemoryCache(cleanupInterval time.Duration, now func() time.Time) *MemoryCache {
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	if now == nil {
		now = time.Now
	}

	cache := &MemoryCache{
		data: make(map[string]*cacheEntry),
		now:  now,
		stop: make(chan struct{}),
	}

	// Start cleanup routine
	go cache.cleanupLoop(cleanupInterval)

	return cache
}

// Get retrieves a cached value for the given key. An expired entry is removed
// and reported as a miss.
func (m *MemoryCache) Get(ctx context.Context, key string) (interface{}, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	entry, exists := m.data[key]
	if !exists {
		return nil, models.ErrCacheMiss
	}

	if entry.expired(m.now()) {
		delete(m.data, key)
		return nil, models.ErrCacheMiss
	}

	return entry.value, nil
}

// Set stores a value in the cache with the specified TTL
func (m *MemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("TTL must be positive, got: %v", ttl)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.data[key] = &cacheEntry{
		value:    value,
		storedAt: m.now(),
		ttl:      ttl,
	}

	return nil
}

// Has reports whether key holds a valid entry
func (m *MemoryCache) Has(ctx context.Context, key string) bool {
	_, err := m.Get(ctx, key)
	return err == nil
}

// Delete removes an entry from the cache
func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	delete(m.data, key)
	return nil
}

// Clear removes all entries
func (m *MemoryCache) Clear(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.data = make(map[string]*cacheEntry)
	return nil
}

// Cleanup removes every expired entry and returns how many were removed
func (m *MemoryCache) Cleanup() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := m.now()
	removed := 0
	for key, entry := range m.data {
		if entry.expired(now) {
			delete(m.data, key)
			removed++
		}
	}
	return removed
}

// Close stops the background sweep
func (m *MemoryCache) Close() error {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	return nil
}

// Size returns the current number of cached entries (for monitoring)
func (m *MemoryCache) Size() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.data)
}

// cleanupLoop sweeps expired entries until Close is called
func (m *MemoryCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			if removed := m.Cleanup(); removed > 0 {
				metrics.CacheSwept.Add(float64(removed))
			}
		}
	}
}
