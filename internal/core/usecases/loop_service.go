package usecases

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/loopwalk/internal/core/domain"
	"github.com/samirrijal/loopwalk/internal/core/loopsearch"
	"github.com/samirrijal/loopwalk/internal/core/ports"
	"github.com/samirrijal/loopwalk/internal/pkg/logging"
	"github.com/samirrijal/loopwalk/internal/pkg/metrics"
	"github.com/samirrijal/loopwalk/internal/pkg/telemetry"
)

// MaxAttemptsLimit caps the per-request attempt budget.
const MaxAttemptsLimit = 10

// LoopSettings are the service-wide search defaults. Per-request fields on
// domain.LoopRequest override Tolerance, MaxAttempts and DefaultStrategy.
type LoopSettings struct {
	DefaultStrategy   string
	Tolerance         float64
	MaxAttempts       int
	InterAttemptDelay time.Duration
	Triangular        loopsearch.Triangular
	BearingMode       loopsearch.BearingMode
	BearingDrift      float64
	MaxDistanceKm     float64
	FallbackStart     domain.Coordinate

	// Sleep replaces the inter-attempt wait; nil uses a real timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultLoopSettings mirrors the config defaults.
func DefaultLoopSettings() LoopSettings {
	d := loopsearch.DefaultConfig()
	return LoopSettings{
		DefaultStrategy:   loopsearch.StrategyTriangular,
		Tolerance:         d.ToleranceFraction,
		MaxAttempts:       d.MaxAttempts,
		InterAttemptDelay: d.InterAttemptDelay,
		Triangular:        loopsearch.DefaultTriangular(),
		BearingMode:       d.BearingMode,
		BearingDrift:      d.BearingDrift,
		MaxDistanceKm:     42.2,
		FallbackStart:     domain.Coordinate{Lat: 51.505, Lon: -0.09},
	}
}

// LoopService generates loop walking routes.
type LoopService struct {
	router     ports.RoutingService
	publisher  ports.EventPublisher
	settings   LoopSettings
	strategies map[string]loopsearch.Strategy
	now        func() time.Time
	events     sync.WaitGroup
}

// NewLoopService creates a LoopService. publisher may be nil.
func NewLoopService(router ports.RoutingService, publisher ports.EventPublisher, settings LoopSettings) *LoopService {
	return &LoopService{
		router:    router,
		publisher: publisher,
		settings:  settings,
		strategies: map[string]loopsearch.Strategy{
			loopsearch.StrategyOutAndBack: loopsearch.OutAndBack{},
			loopsearch.StrategyTriangular: settings.Triangular,
		},
		now: time.Now,
	}
}

// Settings returns the service defaults.
func (s *LoopService) Settings() LoopSettings {
	return s.settings
}

// Strategies lists the available waypoint strategies.
func (s *LoopService) Strategies() []domain.StrategyInfo {
	return loopsearch.StrategyInfos()
}

// Normalize validates req and fills defaults: a search ID, the fallback
// start, the default strategy, tolerance and attempt budget. Errors wrap
// domain.ErrInvalidRequest.
func (s *LoopService) Normalize(req domain.LoopRequest) (domain.LoopRequest, error) {
	if math.IsNaN(req.DistanceKm) || req.DistanceKm <= 0 {
		return req, fmt.Errorf("%w: distance_km must be positive", domain.ErrInvalidRequest)
	}
	if req.DistanceKm > s.settings.MaxDistanceKm {
		return req, fmt.Errorf("%w: distance_km must not exceed %g", domain.ErrInvalidRequest, s.settings.MaxDistanceKm)
	}

	if req.Start == nil {
		start := s.settings.FallbackStart
		req.Start = &start
	} else if err := req.Start.Validate(); err != nil {
		return req, err
	}

	if req.Strategy == "" {
		req.Strategy = s.settings.DefaultStrategy
	}
	if _, ok := s.strategies[req.Strategy]; !ok {
		return req, fmt.Errorf("%w: unknown strategy %q", domain.ErrInvalidRequest, req.Strategy)
	}

	switch {
	case req.Tolerance == 0:
		req.Tolerance = s.settings.Tolerance
	case math.IsNaN(req.Tolerance) || req.Tolerance < 0 || req.Tolerance >= 1:
		return req, fmt.Errorf("%w: tolerance must be in (0, 1)", domain.ErrInvalidRequest)
	}

	switch {
	case req.MaxAttempts == 0:
		req.MaxAttempts = s.settings.MaxAttempts
	case req.MaxAttempts < 1 || req.MaxAttempts > MaxAttemptsLimit:
		return req, fmt.Errorf("%w: max_attempts must be 1-%d", domain.ErrInvalidRequest, MaxAttemptsLimit)
	}

	if req.SearchID == "" {
		req.SearchID = uuid.NewString()
	}
	return req, nil
}

// Generate runs a loop search for req. Routing failures surface as an
// empty or best-effort route, never as an error; only invalid input fails.
func (s *LoopService) Generate(ctx context.Context, req domain.LoopRequest) (*domain.LoopRoute, error) {
	req, err := s.Normalize(req)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.Tracer().Start(ctx, "LoopService.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String(telemetry.AttrSearchID, req.SearchID),
		attribute.String(telemetry.AttrStrategy, req.Strategy),
		attribute.Float64(telemetry.AttrTargetKm, req.DistanceKm),
	)

	log := logging.FromContext(ctx).With("search_id", req.SearchID, "strategy", req.Strategy)
	ctx = logging.WithLogger(ctx, log)

	var relay *eventRelay
	if s.publisher != nil {
		relay = s.startRelay(ctx, req.MaxAttempts+1)
	}
	searcher := loopsearch.New(s.router, s.searchConfig(req, relay))

	started := time.Now()
	result := searcher.Search(ctx, *req.Start, req.DistanceKm)
	elapsed := time.Since(started)

	route := s.envelope(req, result)
	s.observe(req.Strategy, result, elapsed)

	span.SetAttributes(
		attribute.String(telemetry.AttrStatus, string(result.Status)),
		attribute.Int(telemetry.AttrAttempts, len(result.Attempts)),
	)
	log.Info("loop search finished",
		"status", result.Status,
		"attempts", len(result.Attempts),
		"target_km", req.DistanceKm,
		"distance_km", route.DistanceKm,
		"duration", elapsed,
	)

	if relay != nil {
		event := &domain.LoopGenerated{
			SearchID:   route.SearchID,
			Status:     route.Status,
			Strategy:   route.Strategy,
			Start:      route.Start,
			TargetKm:   route.TargetKm,
			DistanceKm: route.DistanceKm,
			Attempts:   len(route.Attempts),
			Time:       route.GeneratedAt,
		}
		relay.enqueue(pendingEvent{kind: "generated", publish: func(ctx context.Context, p ports.EventPublisher) error {
			return p.PublishLoopGenerated(ctx, event)
		}})
		relay.close()
	}

	return route, nil
}

// Wait blocks until the events of finished searches have been published or
// timed out. Call it before closing the publisher.
func (s *LoopService) Wait() {
	s.events.Wait()
}

func (s *LoopService) searchConfig(req domain.LoopRequest, relay *eventRelay) loopsearch.Config {
	cfg := loopsearch.Config{
		ToleranceFraction: req.Tolerance,
		MaxAttempts:       req.MaxAttempts,
		InterAttemptDelay: s.settings.InterAttemptDelay,
		Strategy:          s.strategies[req.Strategy],
		BearingMode:       s.settings.BearingMode,
		BearingDrift:      s.settings.BearingDrift,
		Sleep:             s.settings.Sleep,
	}
	if req.Seed != nil {
		cfg.Rand = loopsearch.SeededRand(*req.Seed)
	}
	if relay != nil {
		cfg.OnAttempt = func(a domain.SearchAttempt) {
			event := &domain.AttemptEvent{SearchID: req.SearchID, Attempt: a, Time: s.now()}
			relay.enqueue(pendingEvent{kind: "attempt", publish: func(ctx context.Context, p ports.EventPublisher) error {
				return p.PublishAttempt(ctx, event)
			}})
		}
	}
	return cfg
}

func (s *LoopService) envelope(req domain.LoopRequest, result domain.SearchResult) *domain.LoopRoute {
	route := &domain.LoopRoute{
		SearchID:    req.SearchID,
		Status:      result.Status,
		Strategy:    req.Strategy,
		Start:       *req.Start,
		TargetKm:    req.DistanceKm,
		Coordinates: []domain.Coordinate{},
		Attempts:    result.Attempts,
		GeneratedAt: s.now().UTC(),
	}
	if route.Attempts == nil {
		route.Attempts = []domain.SearchAttempt{}
	}
	if result.Route != nil {
		route.Coordinates = result.Route.Coordinates
		route.DistanceKm = result.Route.DistanceKm()
	}
	return route
}

func (s *LoopService) observe(strategy string, result domain.SearchResult, elapsed time.Duration) {
	metrics.LoopSearchesTotal.WithLabelValues(strategy, string(result.Status)).Inc()
	metrics.LoopSearchAttempts.WithLabelValues(strategy).Observe(float64(len(result.Attempts)))
	metrics.LoopSearchDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
	if result.Route != nil && result.TargetMeters > 0 {
		metrics.LoopDistanceError.Observe(math.Abs(result.Route.DistanceMeters-result.TargetMeters) / result.TargetMeters)
	}
}
