package graphhopper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/loopwalk/internal/core/domain"
	"github.com/samirrijal/loopwalk/internal/pkg/logging"
	"github.com/samirrijal/loopwalk/internal/pkg/metrics"
	"github.com/samirrijal/loopwalk/internal/pkg/telemetry"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

// Client implements ports.RoutingService against the GraphHopper Route API.
type Client struct {
	baseURL string
	apiKey  string
	profile string
	http    *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithProfile overrides the routing profile (default "foot").
func WithProfile(profile string) Option {
	return func(c *Client) { c.profile = profile }
}

// New creates a GraphHopper client. baseURL is the API root, e.g.
// https://graphhopper.com/api/1.
func New(baseURL, apiKey string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		profile: "foot",
		http:    &http.Client{Timeout: timeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Profile returns the routing profile sent with every request.
func (c *Client) Profile() string {
	return c.profile
}

type routeResponse struct {
	Paths []struct {
		Distance float64 `json:"distance"`
		Time     int64   `json:"time"`
		Points   struct {
			Type        string      `json:"type"`
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"points"`
	} `json:"paths"`
	Message string `json:"message"`
}

// Route requests a walking route visiting points in order. The service
// returns [lng, lat] pairs; they are swapped into domain coordinates.
func (c *Client) Route(ctx context.Context, points []domain.Coordinate) (*domain.RouteCandidate, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "graphhopper.Route")
	defer span.End()
	span.SetAttributes(attribute.Int(telemetry.AttrPointCount, len(points)))

	start := time.Now()
	candidate, outcome, err := c.do(ctx, points)
	metrics.RoutingRequestDuration.Observe(time.Since(start).Seconds())
	metrics.RoutingRequestsTotal.WithLabelValues(outcome).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		logging.FromContext(ctx).Debug("routing request failed", "outcome", outcome, "error", err)
		return nil, err
	}
	span.SetAttributes(attribute.Float64(telemetry.AttrDistanceM, candidate.DistanceMeters))
	return candidate, nil
}

func (c *Client) do(ctx context.Context, points []domain.Coordinate) (*domain.RouteCandidate, string, error) {
	if len(points) < 2 {
		return nil, "invalid", fmt.Errorf("%w: at least two points are required", domain.ErrInvalidRequest)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.routeURL(points), nil)
	if err != nil {
		return nil, "invalid", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "transport_error", fmt.Errorf("graphhopper request: %w: %v", domain.ErrRoutingUnavailable, err)
	}
	defer resp.Body.Close()
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int(telemetry.AttrHTTPStatus, resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "transport_error", fmt.Errorf("graphhopper read body: %w: %v", domain.ErrRoutingUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "http_" + strconv.Itoa(resp.StatusCode), fmt.Errorf("graphhopper status %d: %w: %s",
			resp.StatusCode, domain.ErrRoutingUnavailable, errorMessage(body))
	}

	var rr routeResponse
	if err := json.Unmarshal(body, &rr); err != nil {
		return nil, "decode_error", fmt.Errorf("graphhopper decode: %w: %v", domain.ErrRoutingUnavailable, err)
	}
	if len(rr.Paths) == 0 || len(rr.Paths[0].Points.Coordinates) == 0 {
		return nil, "no_route", fmt.Errorf("graphhopper: %w", domain.ErrNoRoute)
	}

	path := rr.Paths[0]
	coords := make([]domain.Coordinate, 0, len(path.Points.Coordinates))
	for i, p := range path.Points.Coordinates {
		if len(p) < 2 {
			return nil, "decode_error", fmt.Errorf("graphhopper decode: %w: point %d has %d values",
				domain.ErrRoutingUnavailable, i, len(p))
		}
		coords = append(coords, domain.Coordinate{Lat: p[1], Lon: p[0]})
	}

	return &domain.RouteCandidate{Coordinates: coords, DistanceMeters: path.Distance}, "ok", nil
}

func (c *Client) routeURL(points []domain.Coordinate) string {
	q := url.Values{}
	for _, p := range points {
		q.Add("point", strconv.FormatFloat(p.Lat, 'f', 6, 64)+","+strconv.FormatFloat(p.Lon, 'f', 6, 64))
	}
	q.Set("profile", c.profile)
	q.Set("points_encoded", "false")
	q.Set("instructions", "false")
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	return c.baseURL + "/route?" + q.Encode()
}

func errorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		return e.Message
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}
