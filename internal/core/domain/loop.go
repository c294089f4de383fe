package domain

import "time"

// LoopRequest is a caller's request for a loop route.
// Zero values mean "use the service default".
type LoopRequest struct {
	SearchID    string      `json:"search_id,omitempty"`
	Start       *Coordinate `json:"start,omitempty"`
	DistanceKm  float64     `json:"distance_km"`
	Strategy    string      `json:"strategy,omitempty"`
	Seed        *uint64     `json:"seed,omitempty"`
	Tolerance   float64     `json:"tolerance,omitempty"`
	MaxAttempts int         `json:"max_attempts,omitempty"`
}

// LoopRoute is the caller-facing envelope around a SearchResult.
type LoopRoute struct {
	SearchID    string          `json:"search_id"`
	Status      SearchStatus    `json:"status"`
	Strategy    string          `json:"strategy"`
	Start       Coordinate      `json:"start"`
	TargetKm    float64         `json:"target_km"`
	DistanceKm  float64         `json:"distance_km"`
	Coordinates []Coordinate    `json:"coordinates"`
	Attempts    []SearchAttempt `json:"attempts"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// StrategyInfo describes a waypoint strategy for discovery endpoints.
type StrategyInfo struct {
	Name        string `json:"name"`
	Waypoints   int    `json:"waypoints"`
	Description string `json:"description"`
}
