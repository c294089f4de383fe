// Package geoexport renders loop routes in interchange formats.
package geoexport

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/loopwalk/internal/core/domain"
)

// Feature converts a route into a GeoJSON LineString feature. Coordinates are
// emitted in [lon, lat] order.
func Feature(route *domain.LoopRoute) *geojson.Feature {
	line := make(orb.LineString, 0, len(route.Coordinates))
	for _, c := range route.Coordinates {
		line = append(line, orb.Point{c.Lon, c.Lat})
	}

	f := geojson.NewFeature(line)
	f.ID = route.SearchID
	f.Properties = geojson.Properties{
		"search_id":   route.SearchID,
		"status":      string(route.Status),
		"strategy":    route.Strategy,
		"target_km":   route.TargetKm,
		"distance_km": route.DistanceKm,
		"attempts":    len(route.Attempts),
		"start":       []float64{route.Start.Lon, route.Start.Lat},
	}
	return f
}

// GeoJSON returns the encoded feature.
func GeoJSON(route *domain.LoopRoute) ([]byte, error) {
	return Feature(route).MarshalJSON()
}
