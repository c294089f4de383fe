package ports

import (
	"context"

	"github.com/samirrijal/loopwalk/internal/core/domain"
)

// RoutingService computes a walking route through an ordered list of points.
// Implementations return domain.ErrNoRoute when the service found no path and
// wrap domain.ErrRoutingUnavailable for transport-level failures.
type RoutingService interface {
	Route(ctx context.Context, points []domain.Coordinate) (*domain.RouteCandidate, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishAttempt(ctx context.Context, event *domain.AttemptEvent) error
	PublishLoopGenerated(ctx context.Context, event *domain.LoopGenerated) error
}

// CacheService provides read-through caching. Get returns domain.ErrCacheMiss
// for absent keys.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// JobScheduler runs loop searches asynchronously.
type JobScheduler interface {
	// Submit starts a job and returns its ID.
	Submit(ctx context.Context, req domain.LoopRequest) (string, error)
	// Result returns the finished route, domain.ErrJobNotFinished while the
	// job is running, or domain.ErrJobNotFound for unknown IDs.
	Result(ctx context.Context, jobID string) (*domain.LoopRoute, error)
}
