package cache

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dexlens/dexlens/domain"
)

const (
	// DefaultPoolTTL applies to pool entries and full analysis entries.
	DefaultPoolTTL = 300 * time.Second
	// DefaultPriceTTL applies to per-token price entries.
	DefaultPriceTTL = 30 * time.Second
	// DefaultTokenTTL applies to token metadata entries.
	DefaultTokenTTL = 3600 * time.Second

	// lockWaitTimeout bounds how long a GetOrFill caller waits for another
	// caller's in-flight fetch before force-releasing the lock.
	lockWaitTimeout = 5 * time.Second

	// AnalysisKeyPrefix prefixes full analysis entries in the pool store.
	AnalysisKeyPrefix = "analysis_"
)

var (
	addressKeyRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	poolKeyRegex    = regexp.MustCompile(`^(v2_|v3_|analysis_|pool_|route_)?0x[0-9a-fA-F]{40}(_0x[0-9a-fA-F]{40})?$`)
	genericKeyRegex = regexp.MustCompile(`^[a-z0-9_x]{1,100}$`)
)

var (
	cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dexlens_cache_hits_total",
			Help: "Total number of cache hits.",
		},
		[]string{"store"},
	)
	cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dexlens_cache_misses_total",
			Help: "Total number of cache misses.",
		},
		[]string{"store"},
	)
	lockTimeouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dexlens_cache_lock_timeouts_total",
			Help: "Total number of single-flight lock waits that timed out.",
		},
	)
)

func init() {
	prometheus.MustRegister(cacheHits)
	prometheus.MustRegister(cacheMisses)
	prometheus.MustRegister(lockTimeouts)
}

type entry struct {
	value     any
	expiresAt time.Time
}

// Store is a single keyed TTL store.
type Store struct {
	name       string
	defaultTTL time.Duration

	mu      sync.RWMutex
	entries map[string]entry
}

// NewStore creates a named store with the given default TTL.
func NewStore(name string, defaultTTL time.Duration) *Store {
	return &Store{
		name:       name,
		defaultTTL: defaultTTL,
		entries:    make(map[string]entry),
	}
}

// Get returns the value for key if present and unexpired.
// An expired entry is never returned.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok || time.Now().After(e.expiresAt) {
		cacheMisses.WithLabelValues(s.name).Inc()
		return nil, false
	}

	cacheHits.WithLabelValues(s.name).Inc()
	return e.value, true
}

// GetWithAge returns the value plus its age since write.
func (s *Store) GetWithAge(key string) (any, time.Duration, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	ttl := s.defaultTTL
	s.mu.RUnlock()

	if !ok || time.Now().After(e.expiresAt) {
		cacheMisses.WithLabelValues(s.name).Inc()
		return nil, 0, false
	}

	cacheHits.WithLabelValues(s.name).Inc()
	age := ttl - time.Until(e.expiresAt)
	if age < 0 {
		age = 0
	}
	return e.value, age, true
}

// Set writes the value under key. A non-positive ttl uses the store default.
func (s *Store) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	s.mu.Lock()
	s.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	s.mu.Unlock()
}

// Delete removes the entry for key.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Keys returns a snapshot of all unexpired keys.
func (s *Store) Keys() []string {
	now := time.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for k, e := range s.entries {
		if now.Before(e.expiresAt) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Len returns the number of unexpired entries.
func (s *Store) Len() int {
	now := time.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.entries {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}

// purgeExpired removes entries past their TTL and returns the count removed.
func (s *Store) purgeExpired() int {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// Clear drops all entries.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = make(map[string]entry)
	s.mu.Unlock()
}

// keyLock tracks one in-flight fill. done is closed on release.
type keyLock struct {
	acquiredAt time.Time
	done       chan struct{}
}

// Cache bundles the three TTL stores with per-key single-flight fills.
type Cache struct {
	pools  *Store
	prices *Store
	tokens *Store

	lockMu sync.Mutex
	locks  map[string]*keyLock
}

// New creates a cache with the default TTLs.
func New() *Cache {
	return NewWithTTLs(DefaultPoolTTL, DefaultPriceTTL, DefaultTokenTTL)
}

// NewWithTTLs creates a cache with custom per-store TTLs.
func NewWithTTLs(poolTTL, priceTTL, tokenTTL time.Duration) *Cache {
	return &Cache{
		pools:  NewStore("pools", poolTTL),
		prices: NewStore("prices", priceTTL),
		tokens: NewStore("tokens", tokenTTL),
		locks:  make(map[string]*keyLock),
	}
}

// Pools returns the pool store. Full analysis entries live here under
// AnalysisKeyPrefix keys.
func (c *Cache) Pools() *Store { return c.pools }

// Prices returns the price store.
func (c *Cache) Prices() *Store { return c.prices }

// Tokens returns the token metadata store.
func (c *Cache) Tokens() *Store { return c.tokens }

// ValidateKey checks a key against the store's admissible shapes.
// Addresses must be 0x-prefixed 40-hex-digit strings; pool keys additionally
// admit v2_/v3_/analysis_/pool_/route_ prefixes; any other key must be
// lowercase [a-z0-9_x] and at most 100 characters.
func (c *Cache) ValidateKey(store *Store, key string) error {
	switch store {
	case c.pools:
		if poolKeyRegex.MatchString(key) || genericKeyRegex.MatchString(key) {
			return nil
		}
	case c.prices, c.tokens:
		if addressKeyRegex.MatchString(key) {
			return nil
		}
	default:
		if genericKeyRegex.MatchString(key) {
			return nil
		}
	}
	return domain.InvalidCacheKeyError{Key: key}
}

// GetOrFill returns the cached value for key or computes it via fetch,
// guaranteeing at most one fetch in flight per key. A nil fetch result is
// returned but never cached. Lock waits are bounded; a wedged fetcher's lock
// is force-removed after the timeout and the caller falls through to a fresh
// read.
func (c *Cache) GetOrFill(ctx context.Context, store *Store, key string, ttl time.Duration, fetch func(ctx context.Context) (any, error)) (any, error) {
	if err := c.ValidateKey(store, key); err != nil {
		return nil, err
	}

	if v, ok := store.Get(key); ok {
		return v, nil
	}

	var lock *keyLock
	for {
		c.lockMu.Lock()
		holder, inFlight := c.locks[key]
		if !inFlight {
			lock = &keyLock{acquiredAt: time.Now(), done: make(chan struct{})}
			c.locks[key] = lock
			c.lockMu.Unlock()
			break
		}
		c.lockMu.Unlock()

		select {
		case <-holder.done:
			// Holder finished; its value should now be cached.
			if v, ok := store.Get(key); ok {
				return v, nil
			}
			// Holder failed to produce a value; contend for the lock again.
		case <-time.After(lockWaitTimeout):
			lockTimeouts.Inc()
			c.lockMu.Lock()
			if current, ok := c.locks[key]; ok && current == holder {
				delete(c.locks, key)
			}
			c.lockMu.Unlock()
			if v, ok := store.Get(key); ok {
				return v, nil
			}
			// Fall through and contend for the lock.
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	// Re-read under lock: another caller may have filled between our read
	// and lock acquisition.
	if v, ok := store.Get(key); ok {
		c.release(key, lock)
		return v, nil
	}

	value, err := fetch(ctx)
	if err != nil {
		c.release(key, lock)
		return nil, err
	}

	if value != nil {
		store.Set(key, value, ttl)
	}
	c.release(key, lock)
	return value, nil
}

// release closes the given lock and removes it from the map if it is still
// the current holder. A lock force-removed by a timed-out waiter may have
// been replaced; only the matching entry is deleted.
func (c *Cache) release(key string, lock *keyLock) {
	c.lockMu.Lock()
	if current, ok := c.locks[key]; ok && current == lock {
		delete(c.locks, key)
	}
	c.lockMu.Unlock()
	close(lock.done)
}

// ClearTokenAnalysis invalidates every entry derived from the given token:
// the analysis entry, the token and price entries, and any pool-store key
// that contains the address as a delimited segment. Substring-only matches
// are not removed.
func (c *Cache) ClearTokenAnalysis(addressLower string) {
	c.pools.Delete(AnalysisKeyPrefix + addressLower)
	c.tokens.Delete(addressLower)
	c.prices.Delete(addressLower)

	for _, key := range c.pools.Keys() {
		if keyContainsAddress(key, addressLower) {
			c.pools.Delete(key)
		}
	}
}

// keyContainsAddress reports whether key contains address as a segment
// delimited by underscores, or equals it outright.
func keyContainsAddress(key, addressLower string) bool {
	if key == addressLower {
		return true
	}
	for _, segment := range strings.Split(key, "_") {
		if segment == addressLower {
			return true
		}
	}
	return false
}

// Cleanup purges expired entries from all stores and returns the total removed.
func (c *Cache) Cleanup() int {
	return c.pools.purgeExpired() + c.prices.purgeExpired() + c.tokens.purgeExpired()
}

// Stats summarizes the cache for the admin endpoint.
type Stats struct {
	PoolEntries  int `json:"poolEntries"`
	PriceEntries int `json:"priceEntries"`
	TokenEntries int `json:"tokenEntries"`
	LocksHeld    int `json:"locksHeld"`
}

// GetStats returns a point-in-time view of store sizes.
func (c *Cache) GetStats() Stats {
	c.lockMu.Lock()
	locksHeld := len(c.locks)
	c.lockMu.Unlock()

	return Stats{
		PoolEntries:  c.pools.Len(),
		PriceEntries: c.prices.Len(),
		TokenEntries: c.tokens.Len(),
		LocksHeld:    locksHeld,
	}
}
