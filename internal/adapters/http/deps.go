package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/loopwalk/internal/core/ports"
	"github.com/samirrijal/loopwalk/internal/core/usecases"
)

// Pinger is a dependency that can report its own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Loops *usecases.LoopService
	Jobs  ports.JobScheduler // nil disables /v1/loops/jobs
	NATS  *nats.Conn

	// Readiness checks; nil means "not configured".
	Cache    Pinger
	Temporal Pinger

	// LimiterStorage shares rate-limit counters between replicas; nil keeps
	// them in memory.
	LimiterStorage fiber.Storage
	RateLimit      int
	RequestTimeout time.Duration
}

func (d *Dependencies) requestTimeout() time.Duration {
	if d.RequestTimeout <= 0 {
		return 30 * time.Second
	}
	return d.RequestTimeout
}

func (d *Dependencies) rateLimit() int {
	if d.RateLimit <= 0 {
		return 30
	}
	return d.RateLimit
}
