package geospatial

import "math"

// Destination returns the point reached by travelling distanceMeters from
// (lat, lon) along the great circle whose initial bearing is bearingDeg
// (0 = north, clockwise). The result longitude is wrapped into [-180, 180].
// Inputs must be finite.
func Destination(lat, lon, distanceMeters, bearingDeg float64) (float64, float64) {
	delta := distanceMeters / EarthRadiusMeters
	theta := toRad(NormalizeBearing(bearingDeg))
	phi1 := toRad(lat)
	lambda1 := toRad(lon)

	sinPhi1, cosPhi1 := math.Sin(phi1), math.Cos(phi1)
	sinDelta, cosDelta := math.Sin(delta), math.Cos(delta)

	sinPhi2 := sinPhi1*cosDelta + cosPhi1*sinDelta*math.Cos(theta)
	// Rounding can push the argument a hair outside [-1, 1] near the poles.
	sinPhi2 = math.Max(-1, math.Min(1, sinPhi2))
	phi2 := math.Asin(sinPhi2)

	lambda2 := lambda1 + math.Atan2(
		math.Sin(theta)*sinDelta*cosPhi1,
		cosDelta-sinPhi1*sinPhi2,
	)

	return toDeg(phi2), NormalizeLongitude(toDeg(lambda2))
}

// NormalizeBearing maps any bearing into [0, 360).
func NormalizeBearing(deg float64) float64 {
	b := math.Mod(deg, 360)
	if b < 0 {
		b += 360
	}
	if b >= 360 {
		b = 0
	}
	return b
}

// NormalizeLongitude wraps a longitude into [-180, 180].
func NormalizeLongitude(deg float64) float64 {
	if deg >= -180 && deg <= 180 {
		return deg
	}
	l := math.Mod(deg+180, 360)
	if l < 0 {
		l += 360
	}
	return l - 180
}
