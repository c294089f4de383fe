package usecases

import (
	"github.com/samirrijal/loopwalk/internal/core/domain"
	"github.com/samirrijal/loopwalk/internal/core/loopsearch"
	"github.com/samirrijal/loopwalk/internal/pkg/config"
)

// SettingsFromConfig turns the search section of the config into LoopSettings.
func SettingsFromConfig(c config.SearchConfig) (LoopSettings, error) {
	mode, err := loopsearch.ParseBearingMode(c.BearingMode)
	if err != nil {
		return LoopSettings{}, err
	}
	strategy, err := loopsearch.StrategyByName(c.Strategy)
	if err != nil {
		return LoopSettings{}, err
	}

	return LoopSettings{
		DefaultStrategy:   strategy.Name(),
		Tolerance:         c.Tolerance,
		MaxAttempts:       c.MaxAttempts,
		InterAttemptDelay: c.Delay(),
		Triangular: loopsearch.Triangular{
			RadiusFactor:   c.RadiusFactor,
			ShrinkPerTry:   c.RadiusShrink,
			MinRadiusScale: c.MinRadiusScale,
		},
		BearingMode:   mode,
		BearingDrift:  c.BearingDrift,
		MaxDistanceKm: c.MaxDistanceKm,
		FallbackStart: domain.Coordinate{Lat: c.FallbackLat, Lon: c.FallbackLon},
	}, nil
}
