package domain

import "time"

// AttemptEvent is published after every search attempt.
type AttemptEvent struct {
	SearchID string        `json:"search_id"`
	Attempt  SearchAttempt `json:"attempt"`
	Time     time.Time     `json:"time"`
}

// LoopGenerated is published once a search has finished.
type LoopGenerated struct {
	SearchID   string       `json:"search_id"`
	Status     SearchStatus `json:"status"`
	Strategy   string       `json:"strategy"`
	Start      Coordinate   `json:"start"`
	TargetKm   float64      `json:"target_km"`
	DistanceKm float64      `json:"distance_km"`
	Attempts   int          `json:"attempts"`
	Time       time.Time    `json:"time"`
}
