// Package routingcache memoises routing-service answers in a shared cache.
package routingcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math"

	"github.com/samirrijal/loopwalk/internal/core/domain"
	"github.com/samirrijal/loopwalk/internal/core/ports"
	"github.com/samirrijal/loopwalk/internal/pkg/logging"
	"github.com/samirrijal/loopwalk/internal/pkg/metrics"
)

const metricOp = "routing"

// Router wraps a ports.RoutingService and caches successful routes. Errors
// from the inner service are passed through and never stored.
type Router struct {
	inner   ports.RoutingService
	cache   ports.CacheService
	profile string
	ttl     int
}

// New returns a caching decorator around inner. ttlSeconds is the lifetime of
// each stored route.
func New(inner ports.RoutingService, cache ports.CacheService, profile string, ttlSeconds int) *Router {
	return &Router{inner: inner, cache: cache, profile: profile, ttl: ttlSeconds}
}

// Route serves from cache when possible and falls through to the inner
// service otherwise. Cache failures degrade to a plain inner call.
func (r *Router) Route(ctx context.Context, points []domain.Coordinate) (*domain.RouteCandidate, error) {
	key := Key(r.profile, points)
	log := logging.FromContext(ctx)

	data, err := r.cache.Get(ctx, key)
	switch {
	case err == nil:
		var cand domain.RouteCandidate
		if jerr := json.Unmarshal(data, &cand); jerr == nil {
			metrics.CacheHits.WithLabelValues(metricOp).Inc()
			cand.Cached = true
			return &cand, nil
		}
		log.Warn("discarding undecodable cached route", "key", key)
		_ = r.cache.Delete(ctx, key)
	case !errors.Is(err, domain.ErrCacheMiss):
		log.Warn("routing cache read failed", "error", err)
	}
	metrics.CacheMisses.WithLabelValues(metricOp).Inc()

	cand, err := r.inner.Route(ctx, points)
	if err != nil || cand == nil || len(cand.Coordinates) == 0 {
		return cand, err
	}

	if data, err := json.Marshal(cand); err == nil {
		if err := r.cache.Set(ctx, key, data, r.ttl); err != nil {
			log.Warn("routing cache write failed", "error", err)
		}
	}
	return cand, nil
}

// Key derives the cache key for a point sequence. Coordinates are rounded to
// 1e-6 degrees so float noise below ~10 cm maps to the same entry.
func Key(profile string, points []domain.Coordinate) string {
	h := sha256.New()
	var buf [8]byte
	for _, p := range points {
		binary.BigEndian.PutUint64(buf[:], uint64(int64(math.Round(p.Lat*1e6))))
		h.Write(buf[:])
		binary.BigEndian.PutUint64(buf[:], uint64(int64(math.Round(p.Lon*1e6))))
		h.Write(buf[:])
	}
	return "routing:" + profile + ":" + hex.EncodeToString(h.Sum(nil))
}
