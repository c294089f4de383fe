package graphhopper_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/samirrijal/loopwalk/internal/adapters/graphhopper"
	"github.com/samirrijal/loopwalk/internal/core/domain"
	"github.com/samirrijal/loopwalk/internal/pkg/telemetry"
)

var loopPoints = []domain.Coordinate{
	{Lat: 51.505, Lon: -0.09},
	{Lat: 51.511, Lon: -0.085},
	{Lat: 51.505, Lon: -0.09},
}

func TestRoute_SuccessSwapsCoordinates(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"paths":[{"distance":5123.4,"time":3600000,"points":{"type":"LineString","coordinates":[[-0.09,51.505],[-0.085,51.511],[-0.09,51.505]]}}]}`))
	}))
	defer srv.Close()

	c := graphhopper.New(srv.URL+"/", "test-key", 5*time.Second)
	route, err := c.Route(context.Background(), loopPoints)
	require.NoError(t, err)

	assert.Equal(t, 5123.4, route.DistanceMeters)
	assert.InDelta(t, 5.1234, route.DistanceKm(), 1e-9)
	require.Len(t, route.Coordinates, 3)
	assert.Equal(t, domain.Coordinate{Lat: 51.511, Lon: -0.085}, route.Coordinates[1])

	require.NotNil(t, got)
	assert.Equal(t, "/route", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, []string{"51.505000,-0.090000", "51.511000,-0.085000", "51.505000,-0.090000"}, q["point"])
	assert.Equal(t, "foot", q.Get("profile"))
	assert.Equal(t, "false", q.Get("points_encoded"))
	assert.Equal(t, "test-key", q.Get("key"))
}

func TestRoute_EmptyPathsIsNoRoute(t *testing.T) {
	for _, body := range []string{`{"paths":[]}`, `{}`, `{"paths":[{"distance":10,"points":{"coordinates":[]}}]}`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		_, err := graphhopper.New(srv.URL, "", time.Second).Route(context.Background(), loopPoints)
		srv.Close()

		assert.ErrorIs(t, err, domain.ErrNoRoute, "body %s", body)
	}
}

func TestRoute_Non2xxIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"API limit reached"}`))
	}))
	defer srv.Close()

	_, err := graphhopper.New(srv.URL, "", time.Second).Route(context.Background(), loopPoints)
	require.ErrorIs(t, err, domain.ErrRoutingUnavailable)
	assert.Contains(t, err.Error(), "API limit reached")
	assert.Contains(t, err.Error(), "429")
}

func TestRoute_MalformedJSONIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"paths": [`))
	}))
	defer srv.Close()

	_, err := graphhopper.New(srv.URL, "", time.Second).Route(context.Background(), loopPoints)
	assert.ErrorIs(t, err, domain.ErrRoutingUnavailable)
}

func TestRoute_ShortPointIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"paths":[{"distance":10,"points":{"coordinates":[[1]]}}]}`))
	}))
	defer srv.Close()

	_, err := graphhopper.New(srv.URL, "", time.Second).Route(context.Background(), loopPoints)
	assert.ErrorIs(t, err, domain.ErrRoutingUnavailable)
}

func TestRoute_TimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := graphhopper.New(srv.URL, "", 50*time.Millisecond).Route(context.Background(), loopPoints)
	assert.ErrorIs(t, err, domain.ErrRoutingUnavailable)
}

func TestRoute_UnreachableIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := graphhopper.New(url, "", time.Second).Route(context.Background(), loopPoints)
	assert.ErrorIs(t, err, domain.ErrRoutingUnavailable)
}

func TestRoute_OmitsEmptyKeyAndHonoursProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("key"))
		assert.Equal(t, "hike", r.URL.Query().Get("profile"))
		_, _ = w.Write([]byte(`{"paths":[{"distance":1,"points":{"coordinates":[[0,0],[0,0]]}}]}`))
	}))
	defer srv.Close()

	c := graphhopper.New(srv.URL, "", time.Second, graphhopper.WithProfile("hike"))
	_, err := c.Route(context.Background(), loopPoints)
	require.NoError(t, err)
	assert.Equal(t, "hike", c.Profile())
}

func TestRoute_RejectsSinglePoint(t *testing.T) {
	_, err := graphhopper.New("http://unused", "", time.Second).Route(context.Background(), loopPoints[:1])
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestRoute_SpanRecordsHTTPStatus(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"slow down"}`))
	}))
	defer srv.Close()

	_, err := graphhopper.New(srv.URL, "", time.Second).Route(context.Background(), loopPoints)
	require.ErrorIs(t, err, domain.ErrRoutingUnavailable)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "graphhopper.Route", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.Int(telemetry.AttrHTTPStatus, http.StatusTooManyRequests))
}
