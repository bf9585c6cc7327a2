package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/couchcryptid/cruise-data-etl/internal/domain"
	"github.com/couchcryptid/cruise-data-etl/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks for cache tests ---

type countingStations struct {
	calls    int
	stations []domain.Station
	err      error
}

func (m *countingStations) Stations(_ context.Context, _ string) ([]domain.Station, error) {
	m.calls++
	return m.stations, m.err
}

type countingTracks struct {
	calls int
}

func (m *countingTracks) Track(_ context.Context, _ string) (*domain.LocationIndex, error) {
	m.calls++
	return domain.NewLocationIndex(nil, []string{"gps"}), nil
}

// --- cache decorator tests ---

func TestCachedStations_CacheHit(t *testing.T) {
	inner := &countingStations{stations: []domain.Station{{Name: "L4"}}}
	cached := NewCachedStations(inner, 10, observability.NewMetricsForTesting())

	s1, err := cached.Stations(context.Background(), "EN608")
	require.NoError(t, err)
	assert.Equal(t, "L4", s1[0].Name)

	s2, err := cached.Stations(context.Background(), "en608")
	require.NoError(t, err)
	assert.Equal(t, "L4", s2[0].Name)

	assert.Equal(t, 1, inner.calls, "cruise keys are case-insensitive")
}

func TestCachedStations_ErrorsNotCached(t *testing.T) {
	inner := &countingStations{err: fmt.Errorf("stations: %w", domain.ErrDataNotFound)}
	cached := NewCachedStations(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.Stations(context.Background(), "en608")
	require.ErrorIs(t, err, domain.ErrDataNotFound)
	_, _ = cached.Stations(context.Background(), "en608")

	assert.Equal(t, 2, inner.calls)
}

func TestCachedTracks_DifferentKeysMiss(t *testing.T) {
	inner := &countingTracks{}
	cached := NewCachedTracks(inner, 10)

	_, _ = cached.Track(context.Background(), "en608")
	_, _ = cached.Track(context.Background(), "en617")
	_, _ = cached.Track(context.Background(), "en608")

	assert.Equal(t, 2, inner.calls)
}

// --- LRU cache unit tests ---

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache[string, string](3)

	c.put("a", "A")
	c.put("b", "B")

	v, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A", v)

	_, ok = c.get("missing")
	assert.False(t, ok)
	assert.Equal(t, 2, c.len())
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache[string, string](2)

	c.put("a", "A")
	c.put("b", "B")
	c.put("c", "C") // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	v, ok := c.get("b")
	assert.True(t, ok)
	assert.Equal(t, "B", v)

	v, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, "C", v)
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache[string, string](2)

	c.put("a", "A")
	c.put("b", "B")

	// Access "a" to promote it
	c.get("a")

	// Insert "c": should evict "b" (LRU), not "a"
	c.put("c", "C")

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache[string, string](2)

	c.put("a", "A1")
	c.put("a", "A2")

	v, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A2", v)
	assert.Equal(t, 1, c.len())
}

func TestLRUCache_MinimumSize(t *testing.T) {
	c := newLRUCache[string, int](0)

	c.put("a", 1)
	c.put("b", 2)

	assert.Equal(t, 1, c.len())
}
