package domain

import (
	"fmt"
	"math"

	"github.com/samirrijal/loopwalk/internal/pkg/geospatial"
)

// Coordinate is a WGS 84 position in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate reports whether the coordinate is finite and within range.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lon) || math.IsInf(c.Lon, 0) {
		return fmt.Errorf("%w: coordinate must be finite", ErrInvalidRequest)
	}
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: lat must be within [-90, 90], got %g", ErrInvalidRequest, c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: lon must be within [-180, 180], got %g", ErrInvalidRequest, c.Lon)
	}
	return nil
}

// Project returns the point reached by travelling distanceMeters from c
// along the great circle starting at bearingDeg (0 = north, clockwise).
func (c Coordinate) Project(distanceMeters, bearingDeg float64) Coordinate {
	lat, lon := geospatial.Destination(c.Lat, c.Lon, distanceMeters, bearingDeg)
	return Coordinate{Lat: lat, Lon: lon}
}

// DistanceTo returns the great-circle distance to other in meters.
func (c Coordinate) DistanceTo(other Coordinate) float64 {
	return geospatial.Haversine(c.Lat, c.Lon, other.Lat, other.Lon)
}
