package pipeline

import (
	"context"
	"strings"
	"sync"

	"github.com/couchcryptid/cruise-data-etl/internal/domain"
	"github.com/couchcryptid/cruise-data-etl/internal/observability"
)

// CachedStations wraps a StationProvider with an in-memory LRU cache keyed
// by cruise. Only successful lookups are cached.
type CachedStations struct {
	inner   StationProvider
	cache   *lruCache[string, []domain.Station]
	metrics *observability.Metrics
}

// NewCachedStations creates a cache decorator around a station provider.
func NewCachedStations(inner StationProvider, maxEntries int, metrics *observability.Metrics) *CachedStations {
	return &CachedStations{
		inner:   inner,
		cache:   newLRUCache[string, []domain.Station](maxEntries),
		metrics: metrics,
	}
}

func (c *CachedStations) Stations(ctx context.Context, cruise string) ([]domain.Station, error) {
	key := strings.ToLower(cruise)
	if stations, ok := c.cache.get(key); ok {
		c.metrics.StationCache.WithLabelValues("hit").Inc()
		return stations, nil
	}
	c.metrics.StationCache.WithLabelValues("miss").Inc()
	stations, err := c.inner.Stations(ctx, cruise)
	if err != nil {
		return nil, err
	}
	c.cache.put(key, stations)
	return stations, nil
}

// CachedTracks wraps a TrackSource so a cruise's underway files are parsed
// once per run even though both the timeline and the underway product use
// them.
type CachedTracks struct {
	inner TrackSource
	cache *lruCache[string, *domain.LocationIndex]
}

// NewCachedTracks creates a cache decorator around a track source.
func NewCachedTracks(inner TrackSource, maxEntries int) *CachedTracks {
	return &CachedTracks{inner: inner, cache: newLRUCache[string, *domain.LocationIndex](maxEntries)}
}

func (c *CachedTracks) Track(ctx context.Context, cruise string) (*domain.LocationIndex, error) {
	key := strings.ToLower(cruise)
	if idx, ok := c.cache.get(key); ok {
		return idx, nil
	}
	idx, err := c.inner.Track(ctx, cruise)
	if err != nil {
		return nil, err
	}
	c.cache.put(key, idx)
	return idx, nil
}

// lruCache is a simple thread-safe LRU cache.
type lruCache[K comparable, V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[K]*entry[K, V]
	head       *entry[K, V] // most recently used
	tail       *entry[K, V] // least recently used
}

type entry[K comparable, V any] struct {
	key   K
	value V
	prev  *entry[K, V]
	next  *entry[K, V]
}

func newLRUCache[K comparable, V any](maxEntries int) *lruCache[K, V] {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache[K, V]{
		maxEntries: maxEntries,
		entries:    make(map[K]*entry[K, V]),
	}
}

func (c *lruCache[K, V]) get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[K, V]) put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[K, V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[K, V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[K, V]) moveToFront(e *entry[K, V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[K, V]) addToFront(e *entry[K, V]) {
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

func (c *lruCache[K, V]) remove(e *entry[K, V]) {
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

func (c *lruCache[K, V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
