package telemetry

// Span attribute keys shared by the search and routing spans.
const (
	AttrSearchID   = "loopwalk.search_id"
	AttrStrategy   = "loopwalk.strategy"
	AttrTargetKm   = "loopwalk.target_km"
	AttrStatus     = "loopwalk.status"
	AttrAttempts   = "loopwalk.attempts"
	AttrPointCount = "routing.point_count"
	AttrDistanceM  = "routing.distance_m"
	AttrHTTPStatus = "http.status_code"
)
