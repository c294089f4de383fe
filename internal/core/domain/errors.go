package domain

import "errors"

var (
	// ErrInvalidRequest marks caller input that cannot be searched.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNoRoute means the routing service answered but found no path.
	ErrNoRoute = errors.New("no route found")

	// ErrRoutingUnavailable covers transport failures, non-2xx answers,
	// timeouts and undecodable bodies from the routing service.
	ErrRoutingUnavailable = errors.New("routing service unavailable")

	// ErrJobNotFinished is returned while an async loop job is still running.
	ErrJobNotFinished = errors.New("job not finished")

	// ErrJobNotFound is returned for unknown job IDs.
	ErrJobNotFound = errors.New("job not found")

	// ErrCacheMiss is returned by cache lookups for absent keys.
	ErrCacheMiss = errors.New("cache miss")
)
