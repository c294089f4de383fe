package http

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/loopwalk/internal/core/domain"
	"github.com/samirrijal/loopwalk/internal/pkg/geoexport"
)

// loopParams is the shared request shape of the loop endpoints. Query
// strings and JSON job bodies both decode into it.
type loopParams struct {
	Lat         *float64 `json:"lat" query:"lat"`
	Lon         *float64 `json:"lon" query:"lon"`
	DistanceKm  float64  `json:"distance_km" query:"distance_km"`
	Strategy    string   `json:"strategy" query:"strategy"`
	Seed        *uint64  `json:"seed" query:"seed"`
	Tolerance   float64  `json:"tolerance" query:"tolerance"`
	MaxAttempts int      `json:"max_attempts" query:"max_attempts"`
	SearchID    string   `json:"search_id" query:"search_id"`
}

func (p loopParams) request() (domain.LoopRequest, error) {
	req := domain.LoopRequest{
		SearchID:    p.SearchID,
		DistanceKm:  p.DistanceKm,
		Strategy:    p.Strategy,
		Seed:        p.Seed,
		Tolerance:   p.Tolerance,
		MaxAttempts: p.MaxAttempts,
	}
	switch {
	case p.Lat != nil && p.Lon != nil:
		req.Start = &domain.Coordinate{Lat: *p.Lat, Lon: *p.Lon}
	case p.Lat != nil || p.Lon != nil:
		return req, fmt.Errorf("%w: lat and lon must be given together", domain.ErrInvalidRequest)
	}
	if len(p.SearchID) > 64 {
		return req, fmt.Errorf("%w: search_id too long (max 64 characters)", domain.ErrInvalidRequest)
	}
	if !validSearchID(p.SearchID) {
		return req, fmt.Errorf("%w: search_id may only contain letters, digits, '-' and '_'", domain.ErrInvalidRequest)
	}
	return req, nil
}

// validSearchID keeps IDs safe to embed in NATS subjects.
func validSearchID(id string) bool {
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// parseLoopQuery reads loop parameters from the query string. Parse errors
// are reported per parameter rather than as a generic decode failure.
func parseLoopQuery(c *fiber.Ctx) (domain.LoopRequest, error) {
	var p loopParams
	var err error

	floatParam := func(name string) (*float64, error) {
		raw := c.Query(name)
		if raw == "" {
			return nil, nil
		}
		v, perr := strconv.ParseFloat(raw, 64)
		if perr != nil {
			return nil, fmt.Errorf("%w: %s must be a number", domain.ErrInvalidRequest, name)
		}
		return &v, nil
	}

	if p.Lat, err = floatParam("lat"); err != nil {
		return domain.LoopRequest{}, err
	}
	if p.Lon, err = floatParam("lon"); err != nil {
		return domain.LoopRequest{}, err
	}

	dist, err := floatParam("distance_km")
	if err != nil {
		return domain.LoopRequest{}, err
	}
	if dist == nil {
		return domain.LoopRequest{}, fmt.Errorf("%w: distance_km is required", domain.ErrInvalidRequest)
	}
	p.DistanceKm = *dist

	tol, err := floatParam("tolerance")
	if err != nil {
		return domain.LoopRequest{}, err
	}
	if tol != nil {
		if *tol <= 0 {
			return domain.LoopRequest{}, fmt.Errorf("%w: tolerance must be in (0, 1)", domain.ErrInvalidRequest)
		}
		p.Tolerance = *tol
	}

	if raw := c.Query("max_attempts"); raw != "" {
		n, perr := strconv.Atoi(raw)
		if perr != nil || n < 1 {
			return domain.LoopRequest{}, fmt.Errorf("%w: max_attempts must be a positive integer", domain.ErrInvalidRequest)
		}
		p.MaxAttempts = n
	}

	if raw := c.Query("seed"); raw != "" {
		s, perr := strconv.ParseUint(raw, 10, 64)
		if perr != nil {
			return domain.LoopRequest{}, fmt.Errorf("%w: seed must be a non-negative integer", domain.ErrInvalidRequest)
		}
		p.Seed = &s
	}

	p.Strategy = c.Query("strategy")
	p.SearchID = c.Query("search_id")
	return p.request()
}

// generate parses the query and runs the search.
func generate(c *fiber.Ctx, deps *Dependencies) (*domain.LoopRoute, error) {
	req, err := parseLoopQuery(c)
	if err != nil {
		return nil, err
	}
	return deps.Loops.Generate(c.UserContext(), req)
}

// LoopHandler generates a loop route and returns it as JSON. An empty search
// is still a 200 with status "empty".
func LoopHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		route, err := generate(c, deps)
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set("Cache-Control", "no-store")
		return c.JSON(route)
	}
}

// LoopGeoJSONHandler returns the loop as a GeoJSON Feature.
func LoopGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		route, err := generate(c, deps)
		if err != nil {
			return errFromDomain(c, err)
		}
		if route.Status == domain.StatusEmpty {
			return errNoRoute(c, "no loop found for search "+route.SearchID)
		}

		body, err := geoexport.GeoJSON(route)
		if err != nil {
			return errInternal(c, err.Error())
		}
		c.Set("Cache-Control", "no-store")
		c.Set("Content-Type", "application/geo+json")
		return c.Send(body)
	}
}

// LoopGPXHandler returns the loop as a GPX 1.1 download.
func LoopGPXHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		route, err := generate(c, deps)
		if err != nil {
			return errFromDomain(c, err)
		}
		if route.Status == domain.StatusEmpty {
			return errNoRoute(c, "no loop found for search "+route.SearchID)
		}

		body, err := geoexport.GPXBytes(route)
		if err != nil {
			return errInternal(c, err.Error())
		}
		c.Set("Cache-Control", "no-store")
		c.Set("Content-Type", "application/gpx+xml")
		c.Set("Content-Disposition", `attachment; filename="`+geoexport.Filename(route)+`"`)
		return c.Send(body)
	}
}

// StrategiesHandler lists waypoint strategies and the search defaults.
func StrategiesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := deps.Loops.Settings()
		return c.JSON(fiber.Map{
			"strategies": deps.Loops.Strategies(),
			"defaults": fiber.Map{
				"strategy":        s.DefaultStrategy,
				"tolerance":       s.Tolerance,
				"max_attempts":    s.MaxAttempts,
				"max_distance_km": s.MaxDistanceKm,
				"start":           s.FallbackStart,
			},
		})
	}
}

// SubmitLoopJobHandler validates a JSON loop request and schedules it.
func SubmitLoopJobHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Jobs == nil {
			return errUnavailable(c, "async jobs are disabled")
		}

		var p loopParams
		if err := c.BodyParser(&p); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		req, err := p.request()
		if err != nil {
			return errFromDomain(c, err)
		}
		if req, err = deps.Loops.Normalize(req); err != nil {
			return errFromDomain(c, err)
		}

		jobID, err := deps.Jobs.Submit(c.UserContext(), req)
		if err != nil {
			return errUnavailable(c, err.Error())
		}

		c.Location("/v1/loops/jobs/" + jobID)
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"job_id":    jobID,
			"search_id": req.SearchID,
		})
	}
}

// LoopJobHandler returns a finished job's route, or 202 while it runs.
func LoopJobHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Jobs == nil {
			return errUnavailable(c, "async jobs are disabled")
		}
		jobID := c.Params("id")
		if jobID == "" {
			return errBadRequest(c, "job id is required")
		}

		route, err := deps.Jobs.Result(c.UserContext(), jobID)
		switch {
		case errors.Is(err, domain.ErrJobNotFinished):
			c.Set("Retry-After", "2")
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
				"job_id": jobID,
				"status": "running",
			})
		case err != nil:
			return errFromDomain(c, err)
		}

		c.Set("Cache-Control", "private, max-age=3600")
		return c.JSON(route)
	}
}
