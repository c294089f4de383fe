package domain

// RouteCandidate is a closed walking polyline returned by the routing service.
type RouteCandidate struct {
	Coordinates    []Coordinate `json:"coordinates"`
	DistanceMeters float64      `json:"distance_m"`

	// Cached marks a candidate served without contacting the routing service.
	Cached bool `json:"-"`
}

// DistanceKm returns the route length in kilometers.
func (r RouteCandidate) DistanceKm() float64 {
	return r.DistanceMeters / 1000
}

// AttemptOutcome classifies a single search attempt.
type AttemptOutcome string

const (
	OutcomeAccepted         AttemptOutcome = "accepted"
	OutcomeToleranceMiss    AttemptOutcome = "tolerance_miss"
	OutcomeNoRoute          AttemptOutcome = "no_route"
	OutcomeTransportFailure AttemptOutcome = "transport_failure"
)

// SearchAttempt records one iteration of a loop search.
type SearchAttempt struct {
	Index          int            `json:"index"`
	BearingDeg     float64        `json:"bearing_deg"`
	RadiusMeters   float64        `json:"radius_m"`
	Waypoints      []Coordinate   `json:"waypoints"`
	Outcome        AttemptOutcome `json:"outcome"`
	DistanceMeters float64        `json:"distance_m,omitempty"`
	Err            string         `json:"error,omitempty"`
}

// SearchStatus tags the quality of a search result.
type SearchStatus string

const (
	StatusAccepted   SearchStatus = "accepted"
	StatusBestEffort SearchStatus = "best_effort"
	StatusEmpty      SearchStatus = "empty"
)

// SearchResult is the outcome of one loop search. Route is nil when Status
// is StatusEmpty.
type SearchResult struct {
	Status       SearchStatus    `json:"status"`
	Route        *RouteCandidate `json:"route,omitempty"`
	TargetMeters float64         `json:"target_m"`
	Attempts     []SearchAttempt `json:"attempts"`
}
