package loopsearch

import (
	"fmt"
	"math/rand/v2"

	"github.com/samirrijal/loopwalk/internal/core/domain"
	"github.com/samirrijal/loopwalk/internal/pkg/geospatial"
)

// BearingMode selects how the first waypoint bearing is chosen per attempt.
type BearingMode string

const (
	// BearingRandom draws a uniform bearing in [0, 360) every attempt.
	BearingRandom BearingMode = "random"
	// BearingDrift adds attempt*drift to the random draw so later attempts
	// move away from directions that already failed.
	BearingDrift BearingMode = "drift"
)

// ParseBearingMode validates a configured bearing mode.
func ParseBearingMode(s string) (BearingMode, error) {
	switch BearingMode(s) {
	case BearingRandom, BearingDrift:
		return BearingMode(s), nil
	case "":
		return BearingDrift, nil
	}
	return "", fmt.Errorf("%w: unknown bearing mode %q", domain.ErrInvalidRequest, s)
}

// bearing returns the bearing for attempt i. rnd must return values in [0, 1).
func bearing(mode BearingMode, drift float64, rnd func() float64, attempt int) float64 {
	b := rnd() * 360
	if mode == BearingDrift {
		b += float64(attempt) * drift
	}
	return geospatial.NormalizeBearing(b)
}

// SeededRand returns a deterministic source for reproducible searches.
func SeededRand(seed uint64) func() float64 {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)).Float64
}
