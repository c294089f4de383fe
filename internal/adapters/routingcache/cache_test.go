package routingcache_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/loopwalk/internal/adapters/routingcache"
	"github.com/samirrijal/loopwalk/internal/core/domain"
)

type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]int
	getErr  error
	deleted []string
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, ttls: map[string]int{}}
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return v, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, ttl int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	m.deleted = append(m.deleted, key)
	return nil
}

type countingRouter struct {
	calls int
	cand  *domain.RouteCandidate
	err   error
}

func (c *countingRouter) Route(context.Context, []domain.Coordinate) (*domain.RouteCandidate, error) {
	c.calls++
	return c.cand, c.err
}

var points = []domain.Coordinate{{Lat: 51.505, Lon: -0.09}, {Lat: 51.51, Lon: -0.08}, {Lat: 51.505, Lon: -0.09}}

func TestRouter_HitSkipsInner(t *testing.T) {
	inner := &countingRouter{cand: &domain.RouteCandidate{
		Coordinates:    []domain.Coordinate{{Lat: 51.505, Lon: -0.09}, {Lat: 51.505, Lon: -0.09}},
		DistanceMeters: 4900,
	}}
	cache := newMemCache()
	r := routingcache.New(inner, cache, "foot", 600)

	first, err := r.Route(context.Background(), points)
	require.NoError(t, err)
	second, err := r.Route(context.Background(), points)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, first.Coordinates, second.Coordinates)
	assert.Equal(t, first.DistanceMeters, second.DistanceMeters)
	assert.False(t, first.Cached)
	assert.True(t, second.Cached, "a hit must be marked as served from cache")
	assert.Equal(t, 600, cache.ttls[routingcache.Key("foot", points)])
}

func TestRouter_FailuresAreNotCached(t *testing.T) {
	for _, innerErr := range []error{
		fmt.Errorf("x: %w", domain.ErrNoRoute),
		fmt.Errorf("x: %w", domain.ErrRoutingUnavailable),
	} {
		inner := &countingRouter{err: innerErr}
		cache := newMemCache()
		r := routingcache.New(inner, cache, "foot", 600)

		_, err := r.Route(context.Background(), points)
		assert.ErrorIs(t, err, innerErr)
		_, _ = r.Route(context.Background(), points)

		assert.Equal(t, 2, inner.calls)
		assert.Empty(t, cache.data)
	}
}

func TestRouter_EmptyCandidateNotCached(t *testing.T) {
	inner := &countingRouter{cand: &domain.RouteCandidate{}}
	cache := newMemCache()
	r := routingcache.New(inner, cache, "foot", 600)

	_, err := r.Route(context.Background(), points)
	require.NoError(t, err)
	assert.Empty(t, cache.data)
}

func TestRouter_CacheErrorFallsThrough(t *testing.T) {
	inner := &countingRouter{cand: &domain.RouteCandidate{Coordinates: points, DistanceMeters: 10}}
	cache := newMemCache()
	cache.getErr = errors.New("connection refused")
	r := routingcache.New(inner, cache, "foot", 600)

	got, err := r.Route(context.Background(), points)
	require.NoError(t, err)
	assert.Equal(t, 10.0, got.DistanceMeters)
	assert.Equal(t, 1, inner.calls)
}

func TestRouter_CorruptEntryIsReplaced(t *testing.T) {
	inner := &countingRouter{cand: &domain.RouteCandidate{Coordinates: points, DistanceMeters: 10}}
	cache := newMemCache()
	key := routingcache.Key("foot", points)
	cache.data[key] = []byte("{not json")
	r := routingcache.New(inner, cache, "foot", 600)

	_, err := r.Route(context.Background(), points)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.Contains(t, cache.deleted, key)
	assert.NotEqual(t, "{not json", string(cache.data[key]))
}

func TestKey(t *testing.T) {
	base := routingcache.Key("foot", points)

	jitter := []domain.Coordinate{{Lat: 51.5050000001, Lon: -0.09}, points[1], points[2]}
	assert.Equal(t, base, routingcache.Key("foot", jitter))

	moved := []domain.Coordinate{{Lat: 51.50501, Lon: -0.09}, points[1], points[2]}
	assert.NotEqual(t, base, routingcache.Key("foot", moved))

	reversed := []domain.Coordinate{points[2], points[1], points[0]}
	reversed[1] = domain.Coordinate{Lat: -0.08, Lon: 51.51}
	assert.NotEqual(t, base, routingcache.Key("foot", reversed))

	assert.NotEqual(t, base, routingcache.Key("bike", points))
	assert.Regexp(t, `^routing:foot:[0-9a-f]{64}$`, base)
}
