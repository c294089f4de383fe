package geoexport

import (
	"fmt"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/samirrijal/loopwalk/internal/core/domain"
)

const creator = "loopwalk"

// GPX builds a GPX 1.1 document with a single track holding the route.
func GPX(route *domain.LoopRoute) *gpx.GPX {
	points := make([]gpx.GPXPoint, 0, len(route.Coordinates))
	for _, c := range route.Coordinates {
		points = append(points, gpx.GPXPoint{Point: gpx.Point{Latitude: c.Lat, Longitude: c.Lon}})
	}

	name := fmt.Sprintf("%.1f km loop", route.TargetKm)
	ts := route.GeneratedAt
	return &gpx.GPX{
		Version:     "1.1",
		Creator:     creator,
		Name:        name,
		Description: fmt.Sprintf("%s loop, %s, %.2f km", route.Strategy, route.Status, route.DistanceKm),
		Time:        &ts,
		Tracks: []gpx.GPXTrack{{
			Name:     name,
			Type:     "walking",
			Segments: []gpx.GPXTrackSegment{{Points: points}},
		}},
	}
}

// GPXBytes returns the indented GPX 1.1 XML for route.
func GPXBytes(route *domain.LoopRoute) ([]byte, error) {
	b, err := GPX(route).ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return nil, fmt.Errorf("encode gpx: %w", err)
	}
	return b, nil
}

// Filename suggests a download name for route.
func Filename(route *domain.LoopRoute) string {
	return fmt.Sprintf("loop-%s.gpx", route.SearchID)
}
