package usecases

import (
	"context"
	"time"

	"github.com/samirrijal/loopwalk/internal/core/ports"
	"github.com/samirrijal/loopwalk/internal/pkg/logging"
)

// eventPublishTimeout bounds each background publish.
const eventPublishTimeout = 5 * time.Second

type pendingEvent struct {
	kind    string
	publish func(ctx context.Context, p ports.EventPublisher) error
}

// eventRelay publishes the events of one search in order, off the search
// goroutine. Its queue holds every event a search can emit, so enqueue
// never blocks.
type eventRelay struct {
	queue chan pendingEvent
}

// startRelay launches the relay goroutine. Publishing runs on a context
// detached from ctx's deadline; each event gets eventPublishTimeout.
func (s *LoopService) startRelay(ctx context.Context, capacity int) *eventRelay {
	r := &eventRelay{queue: make(chan pendingEvent, capacity)}
	base := context.WithoutCancel(ctx)
	log := logging.FromContext(ctx)

	s.events.Add(1)
	go func() {
		defer s.events.Done()
		for ev := range r.queue {
			pctx, cancel := context.WithTimeout(base, eventPublishTimeout)
			if err := ev.publish(pctx, s.publisher); err != nil {
				log.Warn("publish loop event failed", "event", ev.kind, "error", err)
			}
			cancel()
		}
	}()
	return r
}

func (r *eventRelay) enqueue(ev pendingEvent) {
	select {
	case r.queue <- ev:
	default:
		// queue full: drop the event rather than stall the search
	}
}

func (r *eventRelay) close() {
	close(r.queue)
}
