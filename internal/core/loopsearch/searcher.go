package loopsearch

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/samirrijal/loopwalk/internal/core/domain"
	"github.com/samirrijal/loopwalk/internal/core/ports"
	"github.com/samirrijal/loopwalk/internal/pkg/logging"
)

// Config tunes a loop search. Use DefaultConfig and override fields.
type Config struct {
	// ToleranceFraction is the accepted relative deviation from the target.
	// Values <= 0 fall back to 0.10; there is no exact-match mode.
	ToleranceFraction float64
	MaxAttempts       int
	// InterAttemptDelay paces calls to the routing service. It is skipped
	// after an attempt answered from cache.
	InterAttemptDelay time.Duration
	Strategy          Strategy
	BearingMode       BearingMode
	BearingDrift      float64

	// Rand returns values in [0, 1). Defaults to math/rand/v2.
	Rand func() float64
	// Sleep waits between attempts and returns early with ctx.Err()
	// when ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnAttempt, when set, observes every finished attempt in order.
	OnAttempt func(domain.SearchAttempt)
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		ToleranceFraction: 0.10,
		MaxAttempts:       5,
		InterAttemptDelay: time.Second,
		Strategy:          DefaultTriangular(),
		BearingMode:       BearingDrift,
		BearingDrift:      45,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ToleranceFraction <= 0 {
		c.ToleranceFraction = d.ToleranceFraction
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InterAttemptDelay < 0 {
		c.InterAttemptDelay = 0
	}
	if c.Strategy == nil {
		c.Strategy = d.Strategy
	}
	if t, ok := c.Strategy.(Triangular); ok && t == (Triangular{}) {
		c.Strategy = d.Strategy
	}
	if c.BearingMode == "" {
		c.BearingMode = d.BearingMode
	}
	if c.BearingMode == BearingDrift && c.BearingDrift == 0 {
		c.BearingDrift = d.BearingDrift
	}
	if c.Rand == nil {
		c.Rand = rand.Float64
	}
	if c.Sleep == nil {
		c.Sleep = sleepCtx
	}
	return c
}

// Searcher runs loop-route searches against a routing service. It keeps no
// state between calls and is safe for concurrent use.
type Searcher struct {
	router ports.RoutingService
	cfg    Config
}

// New creates a Searcher. Zero-valued config fields fall back to DefaultConfig,
// as does a zero Triangular strategy and a zero drift in drift mode.
func New(router ports.RoutingService, cfg Config) *Searcher {
	return &Searcher{router: router, cfg: cfg.withDefaults()}
}

// best is the closest tolerance miss seen so far in one search.
type best struct {
	route *domain.RouteCandidate
	err   float64
}

func (b best) consider(c *domain.RouteCandidate, targetMeters float64) best {
	e := math.Abs(c.DistanceMeters - targetMeters)
	if b.route == nil || e < b.err {
		return best{route: c, err: e}
	}
	return b
}

// Search looks for a closed walking loop of roughly targetKm kilometers
// starting and ending at start. Attempts run strictly one after another.
// The first candidate within tolerance is returned as StatusAccepted;
// otherwise the closest candidate is returned as StatusBestEffort, or
// StatusEmpty if no attempt produced one. Routing failures and ctx
// cancellation never surface as errors.
func (s *Searcher) Search(ctx context.Context, start domain.Coordinate, targetKm float64) domain.SearchResult {
	targetMeters := targetKm * 1000
	lo := targetMeters * (1 - s.cfg.ToleranceFraction)
	hi := targetMeters * (1 + s.cfg.ToleranceFraction)
	log := logging.FromContext(ctx)

	result := domain.SearchResult{TargetMeters: targetMeters}
	var acc best

	for i := 0; i < s.cfg.MaxAttempts; i++ {
		if ctx.Err() != nil {
			log.Debug("loop search cancelled", "attempt", i, "error", ctx.Err())
			break
		}

		attempt, candidate := s.attempt(ctx, start, targetMeters, i)

		if candidate != nil && candidate.DistanceMeters >= lo && candidate.DistanceMeters <= hi {
			attempt.Outcome = domain.OutcomeAccepted
			s.record(&result, attempt)
			log.Debug("loop attempt accepted", "attempt", i, "distance_m", candidate.DistanceMeters, "target_m", targetMeters)
			result.Status = domain.StatusAccepted
			result.Route = candidate
			return result
		}
		if candidate != nil {
			acc = acc.consider(candidate, targetMeters)
		}
		s.record(&result, attempt)
		log.Debug("loop attempt rejected",
			"attempt", i,
			"outcome", attempt.Outcome,
			"bearing", attempt.BearingDeg,
			"radius_m", attempt.RadiusMeters,
			"distance_m", attempt.DistanceMeters,
			"error", attempt.Err,
		)

		cached := candidate != nil && candidate.Cached
		if i < s.cfg.MaxAttempts-1 && s.cfg.InterAttemptDelay > 0 && !cached {
			if err := s.cfg.Sleep(ctx, s.cfg.InterAttemptDelay); err != nil {
				break
			}
		}
	}

	if acc.route != nil {
		result.Status = domain.StatusBestEffort
		result.Route = acc.route
		return result
	}
	result.Status = domain.StatusEmpty
	return result
}

// Plan returns the bearing, radius and closed point sequence for attempt i
// without contacting the routing service.
func (s *Searcher) Plan(start domain.Coordinate, targetMeters float64, attempt int) (bearingDeg, radiusMeters float64, points []domain.Coordinate) {
	bearingDeg = bearing(s.cfg.BearingMode, s.cfg.BearingDrift, s.cfg.Rand, attempt)
	radiusMeters = s.cfg.Strategy.Radius(targetMeters, attempt)
	waypoints := s.cfg.Strategy.Waypoints(start, radiusMeters, bearingDeg)

	points = make([]domain.Coordinate, 0, len(waypoints)+2)
	points = append(points, start)
	points = append(points, waypoints...)
	points = append(points, start)
	return bearingDeg, radiusMeters, points
}

func (s *Searcher) attempt(ctx context.Context, start domain.Coordinate, targetMeters float64, i int) (domain.SearchAttempt, *domain.RouteCandidate) {
	b, r, points := s.Plan(start, targetMeters, i)
	a := domain.SearchAttempt{
		Index:        i,
		BearingDeg:   b,
		RadiusMeters: r,
		Waypoints:    points[1 : len(points)-1],
	}

	candidate, err := s.router.Route(ctx, points)
	switch {
	case err == nil && (candidate == nil || len(candidate.Coordinates) == 0):
		a.Outcome = domain.OutcomeNoRoute
		a.Err = domain.ErrNoRoute.Error()
		return a, nil
	case errors.Is(err, domain.ErrNoRoute):
		a.Outcome = domain.OutcomeNoRoute
		a.Err = err.Error()
		return a, nil
	case err != nil:
		a.Outcome = domain.OutcomeTransportFailure
		a.Err = err.Error()
		return a, nil
	}

	a.Outcome = domain.OutcomeToleranceMiss
	a.DistanceMeters = candidate.DistanceMeters
	return a, candidate
}

func (s *Searcher) record(result *domain.SearchResult, a domain.SearchAttempt) {
	result.Attempts = append(result.Attempts, a)
	if s.cfg.OnAttempt != nil {
		s.cfg.OnAttempt(a)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
