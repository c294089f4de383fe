package loopsearch

import (
	"fmt"
	"math"
	"sort"

	"github.com/samirrijal/loopwalk/internal/core/domain"
)

// Strategy decides where the waypoints of one attempt go.
type Strategy interface {
	// Name is the identifier used in configuration and requests.
	Name() string
	// Radius returns the waypoint distance from the start for attempt i.
	Radius(targetMeters float64, attempt int) float64
	// Waypoints places the intermediate points around start. The returned
	// slice excludes start itself.
	Waypoints(start domain.Coordinate, radiusMeters, bearingDeg float64) []domain.Coordinate
	// Info describes the strategy for discovery endpoints.
	Info() domain.StrategyInfo
}

const (
	StrategyOutAndBack  = "out-and-back"
	StrategyTriangular  = "triangular"
	defaultStrategyName = StrategyTriangular
)

// OutAndBack walks to a single midpoint at half the target distance and
// returns the same way.
type OutAndBack struct{}

func (OutAndBack) Name() string { return StrategyOutAndBack }

func (OutAndBack) Radius(targetMeters float64, _ int) float64 {
	return targetMeters / 2
}

func (OutAndBack) Waypoints(start domain.Coordinate, radiusMeters, bearingDeg float64) []domain.Coordinate {
	return []domain.Coordinate{start.Project(radiusMeters, bearingDeg)}
}

func (OutAndBack) Info() domain.StrategyInfo {
	return domain.StrategyInfo{
		Name:        StrategyOutAndBack,
		Waypoints:   1,
		Description: "single midpoint at half the target distance, walked out and back",
	}
}

// Triangular places three waypoints 120° apart on a circle around the start.
// The circle shrinks on later attempts because real paths are longer than
// the straight-line legs between waypoints.
type Triangular struct {
	RadiusFactor   float64 // share of the target distance used as radius on attempt 0
	ShrinkPerTry   float64 // radius scale lost per attempt
	MinRadiusScale float64 // lower bound for the scale
}

// DefaultTriangular returns the triangular strategy with its tuned defaults.
func DefaultTriangular() Triangular {
	return Triangular{RadiusFactor: 0.16, ShrinkPerTry: 0.12, MinRadiusScale: 0.2}
}

func (Triangular) Name() string { return StrategyTriangular }

func (t Triangular) Radius(targetMeters float64, attempt int) float64 {
	scale := 1 - float64(attempt)*t.ShrinkPerTry
	scale = math.Max(scale, t.MinRadiusScale)
	return t.RadiusFactor * targetMeters * scale
}

func (Triangular) Waypoints(start domain.Coordinate, radiusMeters, bearingDeg float64) []domain.Coordinate {
	return []domain.Coordinate{
		start.Project(radiusMeters, bearingDeg),
		start.Project(radiusMeters, bearingDeg+120),
		start.Project(radiusMeters, bearingDeg+240),
	}
}

func (Triangular) Info() domain.StrategyInfo {
	return domain.StrategyInfo{
		Name:        StrategyTriangular,
		Waypoints:   3,
		Description: "three waypoints 120° apart on a shrinking circle, a loop that does not retrace itself",
	}
}

// Strategies lists the built-in strategies by name.
func Strategies() map[string]Strategy {
	return map[string]Strategy{
		StrategyOutAndBack: OutAndBack{},
		StrategyTriangular: DefaultTriangular(),
	}
}

// StrategyByName resolves a strategy; the empty name selects the default.
func StrategyByName(name string) (Strategy, error) {
	if name == "" {
		name = defaultStrategyName
	}
	s, ok := Strategies()[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown strategy %q", domain.ErrInvalidRequest, name)
	}
	return s, nil
}

// StrategyInfos returns the descriptors of all built-in strategies, sorted by name.
func StrategyInfos() []domain.StrategyInfo {
	var out []domain.StrategyInfo
	for _, s := range Strategies() {
		out = append(out, s.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
