package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "loopwalk",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "loopwalk",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "loopwalk",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Loop search metrics
	LoopSearchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "loopwalk",
		Subsystem: "search",
		Name:      "searches_total",
		Help:      "Total loop searches by strategy and result status",
	}, []string{"strategy", "status"})

	LoopSearchAttempts = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "loopwalk",
		Subsystem: "search",
		Name:      "attempts",
		Help:      "Routing attempts used per loop search",
		Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10},
	}, []string{"strategy"})

	LoopSearchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "loopwalk",
		Subsystem: "search",
		Name:      "duration_seconds",
		Help:      "Wall time of a loop search including inter-attempt delays",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"strategy"})

	LoopDistanceError = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "loopwalk",
		Subsystem: "search",
		Name:      "distance_error_ratio",
		Help:      "Relative deviation of the returned route from the target distance",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.2, 0.35, 0.5, 1},
	})

	// Routing service metrics
	RoutingRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "loopwalk",
		Subsystem: "routing",
		Name:      "requests_total",
		Help:      "Total routing service requests by outcome",
	}, []string{"outcome"})

	RoutingRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "loopwalk",
		Subsystem: "routing",
		Name:      "request_duration_seconds",
		Help:      "Routing service request latency",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "loopwalk",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "loopwalk",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "loopwalk",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	}
}
