package loopsearch_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/loopwalk/internal/core/domain"
	"github.com/samirrijal/loopwalk/internal/core/loopsearch"
	"github.com/samirrijal/loopwalk/internal/pkg/geospatial"
)

// --- Mock RoutingService ---

type mockRouter struct {
	mu      sync.Mutex
	calls   [][]domain.Coordinate
	routeFn func(call int, points []domain.Coordinate) (*domain.RouteCandidate, error)
}

func (m *mockRouter) Route(ctx context.Context, points []domain.Coordinate) (*domain.RouteCandidate, error) {
	m.mu.Lock()
	call := len(m.calls)
	m.calls = append(m.calls, points)
	m.mu.Unlock()
	return m.routeFn(call, points)
}

func (m *mockRouter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func loopOf(meters float64, points []domain.Coordinate) *domain.RouteCandidate {
	return &domain.RouteCandidate{Coordinates: points, DistanceMeters: meters}
}

// fakeSleep records requested delays without waiting.
type fakeSleep struct {
	delays []time.Duration
}

func (f *fakeSleep) sleep(ctx context.Context, d time.Duration) error {
	f.delays = append(f.delays, d)
	return ctx.Err()
}

var london = domain.Coordinate{Lat: 51.505, Lon: -0.09}

func testConfig(sl *fakeSleep) loopsearch.Config {
	cfg := loopsearch.DefaultConfig()
	cfg.MaxAttempts = 4
	cfg.InterAttemptDelay = 1500 * time.Millisecond
	cfg.Rand = func() float64 { return 30.0 / 360.0 }
	cfg.Sleep = sl.sleep
	return cfg
}

func TestSearch_AcceptsFirstAttemptOnExactDistance(t *testing.T) {
	router := &mockRouter{routeFn: func(_ int, p []domain.Coordinate) (*domain.RouteCandidate, error) {
		return loopOf(5000, p), nil
	}}
	sl := &fakeSleep{}

	res := loopsearch.New(router, testConfig(sl)).Search(context.Background(), london, 5)

	require.Equal(t, domain.StatusAccepted, res.Status)
	require.NotNil(t, res.Route)
	assert.Equal(t, 5000.0, res.Route.DistanceMeters)
	assert.Equal(t, 1, router.callCount(), "must not issue a second network call")
	assert.Empty(t, sl.delays)
	require.Len(t, res.Attempts, 1)
	assert.Equal(t, domain.OutcomeAccepted, res.Attempts[0].Outcome)
}

func TestSearch_ExhaustsAttemptsAndReturnsClosest(t *testing.T) {
	// Always outside tolerance: 50% over target, shrinking a little each call
	// so the closest candidate is the last one.
	distances := []float64{7600, 7500, 7700, 7550}
	router := &mockRouter{routeFn: func(call int, p []domain.Coordinate) (*domain.RouteCandidate, error) {
		return loopOf(distances[call], p), nil
	}}
	sl := &fakeSleep{}
	cfg := testConfig(sl)

	res := loopsearch.New(router, cfg).Search(context.Background(), london, 5)

	require.Equal(t, domain.StatusBestEffort, res.Status)
	require.NotNil(t, res.Route)
	assert.Equal(t, 7500.0, res.Route.DistanceMeters)
	assert.Equal(t, cfg.MaxAttempts, router.callCount())
	require.Len(t, sl.delays, cfg.MaxAttempts-1, "delay between each pair of attempts")
	for _, d := range sl.delays {
		assert.Equal(t, cfg.InterAttemptDelay, d)
	}
	for _, a := range res.Attempts {
		assert.Equal(t, domain.OutcomeToleranceMiss, a.Outcome)
	}
}

func TestSearch_ConstantOvershootKeepsFirstBest(t *testing.T) {
	router := &mockRouter{routeFn: func(_ int, p []domain.Coordinate) (*domain.RouteCandidate, error) {
		return loopOf(7500, p), nil
	}}
	sl := &fakeSleep{}
	cfg := testConfig(sl)
	cfg.MaxAttempts = 3

	res := loopsearch.New(router, cfg).Search(context.Background(), london, 5)

	require.Equal(t, domain.StatusBestEffort, res.Status)
	assert.Equal(t, 3, router.callCount())
	assert.Len(t, sl.delays, 2)
	// Ties keep the earliest candidate.
	assert.Equal(t, res.Attempts[0].Waypoints[0], res.Route.Coordinates[1])
}

func TestSearch_EmptyThenAcceptOnThirdAttempt(t *testing.T) {
	router := &mockRouter{routeFn: func(call int, p []domain.Coordinate) (*domain.RouteCandidate, error) {
		if call < 2 {
			return nil, fmt.Errorf("graphhopper: %w", domain.ErrNoRoute)
		}
		return loopOf(5200, p), nil
	}}
	sl := &fakeSleep{}

	res := loopsearch.New(router, testConfig(sl)).Search(context.Background(), london, 5)

	require.Equal(t, domain.StatusAccepted, res.Status)
	assert.Equal(t, 5200.0, res.Route.DistanceMeters)
	assert.Equal(t, 3, router.callCount())
	require.Len(t, res.Attempts, 3)
	assert.Equal(t, domain.OutcomeNoRoute, res.Attempts[0].Outcome)
	assert.Equal(t, domain.OutcomeNoRoute, res.Attempts[1].Outcome)
	assert.Equal(t, domain.OutcomeAccepted, res.Attempts[2].Outcome)
	assert.Len(t, sl.delays, 2)
}

func TestSearch_NilCandidateCountsAsNoRoute(t *testing.T) {
	router := &mockRouter{routeFn: func(int, []domain.Coordinate) (*domain.RouteCandidate, error) {
		return nil, nil
	}}
	res := loopsearch.New(router, testConfig(&fakeSleep{})).Search(context.Background(), london, 5)

	assert.Equal(t, domain.StatusEmpty, res.Status)
	for _, a := range res.Attempts {
		assert.Equal(t, domain.OutcomeNoRoute, a.Outcome)
	}
}

func TestSearch_TransportFailuresReturnEmpty(t *testing.T) {
	router := &mockRouter{routeFn: func(int, []domain.Coordinate) (*domain.RouteCandidate, error) {
		return nil, fmt.Errorf("dial tcp: %w", domain.ErrRoutingUnavailable)
	}}
	sl := &fakeSleep{}
	cfg := testConfig(sl)

	var res domain.SearchResult
	require.NotPanics(t, func() {
		res = loopsearch.New(router, cfg).Search(context.Background(), london, 5)
	})

	assert.Equal(t, domain.StatusEmpty, res.Status)
	assert.Nil(t, res.Route)
	assert.Equal(t, cfg.MaxAttempts, router.callCount())
	require.Len(t, res.Attempts, cfg.MaxAttempts)
	for _, a := range res.Attempts {
		assert.Equal(t, domain.OutcomeTransportFailure, a.Outcome)
		assert.NotEmpty(t, a.Err)
	}
}

func TestSearch_FailureThenMissIsBestEffort(t *testing.T) {
	router := &mockRouter{routeFn: func(call int, p []domain.Coordinate) (*domain.RouteCandidate, error) {
		if call%2 == 0 {
			return nil, errors.New("boom")
		}
		return loopOf(3000, p), nil
	}}
	res := loopsearch.New(router, testConfig(&fakeSleep{})).Search(context.Background(), london, 5)

	assert.Equal(t, domain.StatusBestEffort, res.Status)
	assert.Equal(t, 3000.0, res.Route.DistanceMeters)
}

func TestSearch_ToleranceBoundsAreInclusive(t *testing.T) {
	for _, d := range []float64{4500, 5500} {
		router := &mockRouter{routeFn: func(_ int, p []domain.Coordinate) (*domain.RouteCandidate, error) {
			return loopOf(d, p), nil
		}}
		res := loopsearch.New(router, testConfig(&fakeSleep{})).Search(context.Background(), london, 5)
		assert.Equal(t, domain.StatusAccepted, res.Status, "distance %.0f", d)
	}
}

func TestSearch_CancelledContextStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	router := &mockRouter{routeFn: func(call int, p []domain.Coordinate) (*domain.RouteCandidate, error) {
		if call == 1 {
			cancel()
			return nil, ctx.Err()
		}
		return loopOf(9000, p), nil
	}}

	res := loopsearch.New(router, testConfig(&fakeSleep{})).Search(ctx, london, 5)

	assert.Equal(t, domain.StatusBestEffort, res.Status)
	assert.Equal(t, 9000.0, res.Route.DistanceMeters)
	assert.Equal(t, 2, router.callCount())
}

func TestSearch_AlreadyCancelledIsEmpty(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	router := &mockRouter{routeFn: func(_ int, p []domain.Coordinate) (*domain.RouteCandidate, error) {
		return loopOf(5000, p), nil
	}}

	res := loopsearch.New(router, testConfig(&fakeSleep{})).Search(ctx, london, 5)

	assert.Equal(t, domain.StatusEmpty, res.Status)
	assert.Zero(t, router.callCount())
}

func TestSearch_RealSleepHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	router := &mockRouter{routeFn: func(_ int, p []domain.Coordinate) (*domain.RouteCandidate, error) {
		return loopOf(100, p), nil
	}}
	cfg := loopsearch.DefaultConfig()
	cfg.InterAttemptDelay = time.Hour

	start := time.Now()
	res := loopsearch.New(router, cfg).Search(ctx, london, 5)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, domain.StatusBestEffort, res.Status)
	assert.Equal(t, 1, router.callCount())
}

func TestSearch_OnAttemptObservesEveryAttempt(t *testing.T) {
	router := &mockRouter{routeFn: func(call int, p []domain.Coordinate) (*domain.RouteCandidate, error) {
		if call == 0 {
			return nil, domain.ErrNoRoute
		}
		return loopOf(5000, p), nil
	}}
	var seen []domain.AttemptOutcome
	cfg := testConfig(&fakeSleep{})
	cfg.OnAttempt = func(a domain.SearchAttempt) { seen = append(seen, a.Outcome) }

	loopsearch.New(router, cfg).Search(context.Background(), london, 5)

	assert.Equal(t, []domain.AttemptOutcome{domain.OutcomeNoRoute, domain.OutcomeAccepted}, seen)
}

func TestSearch_TriangularRequestIsClosedLoop(t *testing.T) {
	router := &mockRouter{routeFn: func(_ int, p []domain.Coordinate) (*domain.RouteCandidate, error) {
		return loopOf(5000, p), nil
	}}
	loopsearch.New(router, testConfig(&fakeSleep{})).Search(context.Background(), london, 5)

	require.Equal(t, 1, router.callCount())
	pts := router.calls[0]
	require.Len(t, pts, 5)
	assert.Equal(t, london, pts[0])
	assert.Equal(t, london, pts[4])
}

func TestSearch_OutAndBackUsesHalfDistance(t *testing.T) {
	router := &mockRouter{routeFn: func(_ int, p []domain.Coordinate) (*domain.RouteCandidate, error) {
		return loopOf(5000, p), nil
	}}
	cfg := testConfig(&fakeSleep{})
	cfg.Strategy = loopsearch.OutAndBack{}

	res := loopsearch.New(router, cfg).Search(context.Background(), london, 5)

	pts := router.calls[0]
	require.Len(t, pts, 3)
	assert.Equal(t, london, pts[0])
	assert.Equal(t, london, pts[2])
	assert.InDelta(t, 2500, london.DistanceTo(pts[1]), 1e-6)
	assert.Equal(t, 2500.0, res.Attempts[0].RadiusMeters)
}

// Start (51.505, -0.09), 5 km, triangular, attempt 0 at bearing 30°:
// radius 0.16*5000 = 800 m, waypoints at 30°, 150° and 270°.
func TestPlan_ConcreteTriangularScenario(t *testing.T) {
	cfg := loopsearch.DefaultConfig()
	cfg.Rand = func() float64 { return 30.0 / 360.0 }
	s := loopsearch.New(&mockRouter{}, cfg)

	b, r, pts := s.Plan(london, 5000, 0)

	assert.InDelta(t, 30, b, 1e-9)
	assert.InDelta(t, 800, r, 1e-9)
	require.Len(t, pts, 5)
	for i, brng := range []float64{30, 150, 270} {
		lat, lon := geospatial.Destination(london.Lat, london.Lon, 800, brng)
		assert.InDelta(t, lat, pts[i+1].Lat, 1e-6, "waypoint %d lat", i)
		assert.InDelta(t, lon, pts[i+1].Lon, 1e-6, "waypoint %d lon", i)
		assert.InDelta(t, 800, london.DistanceTo(pts[i+1]), 1e-3)
	}
}

func TestPlan_RadiusShrinksAndDrifts(t *testing.T) {
	cfg := loopsearch.DefaultConfig()
	cfg.Rand = func() float64 { return 0 }
	s := loopsearch.New(&mockRouter{}, cfg)

	tests := []struct {
		attempt int
		bearing float64
		radius  float64
	}{
		{0, 0, 800},
		{1, 45, 800 * 0.88},
		{2, 90, 800 * 0.76},
		{3, 135, 800 * 0.64},
		{4, 180, 800 * 0.52},
		{9, 45, 800 * 0.2}, // 9*45 = 405 wraps; scale floored at MinRadiusScale
	}
	for _, tt := range tests {
		b, r, _ := s.Plan(london, 5000, tt.attempt)
		assert.InDelta(t, tt.bearing, b, 1e-9, "attempt %d bearing", tt.attempt)
		assert.InDelta(t, tt.radius, r, 1e-9, "attempt %d radius", tt.attempt)
	}
}

func TestPlan_RandomModeIgnoresAttemptIndex(t *testing.T) {
	cfg := loopsearch.DefaultConfig()
	cfg.BearingMode = loopsearch.BearingRandom
	cfg.Rand = func() float64 { return 0.5 }
	s := loopsearch.New(&mockRouter{}, cfg)

	for i := 0; i < 4; i++ {
		b, _, _ := s.Plan(london, 5000, i)
		assert.InDelta(t, 180, b, 1e-9)
	}
}

func TestSeededRand_IsDeterministic(t *testing.T) {
	a, b := loopsearch.SeededRand(42), loopsearch.SeededRand(42)
	for i := 0; i < 10; i++ {
		x, y := a(), b()
		assert.Equal(t, x, y)
		assert.True(t, x >= 0 && x < 1)
	}
	assert.NotEqual(t, loopsearch.SeededRand(1)(), loopsearch.SeededRand(2)())
}

func TestSearch_SkipsDelayAfterCachedAttempt(t *testing.T) {
	router := &mockRouter{routeFn: func(call int, p []domain.Coordinate) (*domain.RouteCandidate, error) {
		c := loopOf(9000, p)
		c.Cached = call%2 == 0
		return c, nil
	}}
	sl := &fakeSleep{}

	res := loopsearch.New(router, testConfig(sl)).Search(context.Background(), london, 5)

	assert.Equal(t, domain.StatusBestEffort, res.Status)
	assert.Len(t, res.Attempts, 4)
	// Attempts 0 and 2 were cache hits; only attempt 1 paces the next call.
	assert.Equal(t, []time.Duration{1500 * time.Millisecond}, sl.delays)
}

func TestSearch_ZeroToleranceUsesDefault(t *testing.T) {
	router := &mockRouter{routeFn: func(_ int, p []domain.Coordinate) (*domain.RouteCandidate, error) {
		return loopOf(5400, p), nil
	}}
	cfg := testConfig(&fakeSleep{})
	cfg.ToleranceFraction = 0

	res := loopsearch.New(router, cfg).Search(context.Background(), london, 5)

	assert.Equal(t, domain.StatusAccepted, res.Status, "5.4 km is within the 10 percent fallback tolerance")
	assert.Equal(t, 1, router.callCount())
}
