package openmeteo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/agalert-service/internal/domain"
	"github.com/couchcryptid/agalert-service/internal/observability"
)

// CachedFetcher wraps a ForecastFetcher with an in-memory LRU cache whose
// entries expire after a TTL.
type CachedFetcher struct {
	inner   domain.ForecastFetcher
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedFetcher creates a cache decorator around a forecast fetcher.
func NewCachedFetcher(inner domain.ForecastFetcher, maxEntries int, ttl time.Duration, metrics *observability.Metrics) *CachedFetcher {
	return newCachedFetcher(inner, maxEntries, ttl, metrics, clockwork.NewRealClock())
}

func newCachedFetcher(inner domain.ForecastFetcher, maxEntries int, ttl time.Duration, metrics *observability.Metrics, clock clockwork.Clock) *CachedFetcher {
	return &CachedFetcher{
		inner:   inner,
		cache:   newLRUCache(maxEntries, ttl, clock),
		metrics: metrics,
	}
}

// FetchForecast serves a cached forecast for the same coordinate and horizon
// while it is fresh. Errors are never cached.
func (c *CachedFetcher) FetchForecast(ctx context.Context, lat, lon float64, days int) (domain.RawForecast, error) {
	key := fmt.Sprintf("%.4f,%.4f|%d", lat, lon, days)
	raw, result := c.cache.get(key)
	c.metrics.ForecastCache.WithLabelValues(string(result)).Inc()
	if result == cacheHit {
		return raw, nil
	}

	raw, err := c.inner.FetchForecast(ctx, lat, lon, days)
	if err != nil {
		return raw, err
	}
	if len(raw.Records) > 0 {
		c.cache.put(key, raw)
	}
	return raw, nil
}

type lookup string

const (
	cacheHit     lookup = "hit"
	cacheMiss    lookup = "miss"
	cacheExpired lookup = "expired"
)

// lruCache is a thread-safe LRU cache of forecasts with per-entry expiry.
type lruCache struct {
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key     string
	value   domain.RawForecast
	expires time.Time
	prev    *entry
	next    *entry
}

func newLRUCache(maxEntries int, ttl time.Duration, clock clockwork.Clock) *lruCache {
	return &lruCache{
		maxEntries: max(maxEntries, 1),
		ttl:        ttl,
		clock:      clock,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.RawForecast, lookup) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.RawForecast{}, cacheMiss
	}
	if !c.clock.Now().Before(e.expires) {
		delete(c.entries, key)
		c.remove(e)
		return domain.RawForecast{}, cacheExpired
	}
	c.moveToFront(e)
	return e.value, cacheHit
}

func (c *lruCache) put(key string, value domain.RawForecast) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.clock.Now().Add(c.ttl)
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expires = expires
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, expires: expires}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
