package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joyvchen/birdride/internal/aggregator"
	"github.com/joyvchen/birdride/internal/conf"
	"github.com/joyvchen/birdride/internal/errors"
	"github.com/joyvchen/birdride/internal/route"
)

// staticSource answers every query with a fixed observation set.
type staticSource struct {
	recent  []aggregator.Observation
	notable []aggregator.Observation
	err     error
}

func (s *staticSource) Fetch(ctx context.Context, center route.Coordinate, radiusKm float64, backDays int, mode aggregator.Mode) ([]aggregator.Observation, error) {
	if s.err != nil {
		return nil, s.err
	}
	if mode == aggregator.ModeNotable {
		return s.notable, nil
	}
	return s.recent, nil
}

func testSettings() *conf.Settings {
	return &conf.Settings{
		Route: conf.RouteSettings{
			RadiusKm:  8.0,
			BackDays:  14,
			MaxPoints: 15,
		},
	}
}

func setupController(t *testing.T, source aggregator.ObservationSource) *Controller {
	t.Helper()

	e := echo.New()
	c := New(e, aggregator.New(source), nil, testSettings())
	t.Cleanup(c.Shutdown)
	return c
}

func doRequest(t *testing.T, c *Controller, target string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	rec := httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, req)
	return rec
}

func decodeSightings(t *testing.T, rec *httptest.ResponseRecorder) SightingsResponse {
	t.Helper()

	var resp SightingsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestGetHealth(t *testing.T) {
	t.Parallel()

	c := setupController(t, &staticSource{})
	rec := doRequest(t, c, "/api/v1/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestGetSightings(t *testing.T) {
	t.Parallel()

	source := &staticSource{
		recent: []aggregator.Observation{{
			SpeciesCode: "amerob",
			CommonName:  "American Robin",
			Location:    route.Coordinate{Lat: 47.61, Lon: -122.32},
			Count:       2,
			ChecklistID: "S1",
		}},
	}
	c := setupController(t, source)

	rec := doRequest(t, c, "/api/v1/sightings?path=47.60,-122.33;47.62,-122.30")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeSightings(t, rec)
	require.Len(t, resp.Species, 1)
	assert.Equal(t, "amerob", resp.Species[0].SpeciesCode)
	assert.Equal(t, 2, resp.Stats.SamplePoints)
	assert.False(t, resp.Incomplete)
}

func TestGetSightingsMissingPath(t *testing.T) {
	t.Parallel()

	c := setupController(t, &staticSource{})
	rec := doRequest(t, c, "/api/v1/sightings")

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.CorrelationID)
}

func TestGetSightingsBadParameters(t *testing.T) {
	t.Parallel()

	c := setupController(t, &staticSource{})

	tests := []struct {
		name   string
		target string
	}{
		{"malformed path", "/api/v1/sightings?path=garbage"},
		{"out of range latitude", "/api/v1/sightings?path=95.0,-122.33"},
		{"non-numeric days", "/api/v1/sightings?path=47.60,-122.33&days=soon"},
		{"non-numeric radius", "/api/v1/sightings?path=47.60,-122.33&radius_km=wide"},
		{"non-numeric max points", "/api/v1/sightings?path=47.60,-122.33&max_points=lots"},
		{"negative within miles", "/api/v1/sightings?path=47.60,-122.33&within_miles=-1"},
		{"unknown order", "/api/v1/sightings?path=47.60,-122.33&order=alphabetical"},
		{"zero days", "/api/v1/sightings?path=47.60,-122.33&days=0"},
		{"zero radius", "/api/v1/sightings?path=47.60,-122.33&radius_km=0"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := doRequest(t, c, tt.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGetSightingsAllQueriesFailed(t *testing.T) {
	t.Parallel()

	source := &staticSource{
		err: errors.Newf("upstream down").Category(errors.CategoryNetwork).Build(),
	}
	c := setupController(t, source)

	rec := doRequest(t, c, "/api/v1/sightings?path=47.60,-122.33;47.62,-122.30")
	require.Equal(t, http.StatusOK, rec.Code, "total upstream failure is data absence, not an API error")

	resp := decodeSightings(t, rec)
	assert.Empty(t, resp.Species)
	assert.True(t, resp.Incomplete)
	assert.Equal(t, resp.Stats.Queries, resp.Stats.Failed)
}

func TestGetSightingsWithinMilesFilter(t *testing.T) {
	t.Parallel()

	source := &staticSource{
		recent: []aggregator.Observation{
			{SpeciesCode: "amerob", Location: route.Coordinate{Lat: 47.61, Lon: -122.32}, Count: 1, ChecklistID: "S1"},
			{SpeciesCode: "sonspa", Location: route.Coordinate{Lat: 48.50, Lon: -121.00}, Count: 1, ChecklistID: "S2"},
		},
	}
	c := setupController(t, source)

	rec := doRequest(t, c, "/api/v1/sightings?path=47.60,-122.33;47.62,-122.30&within_miles=10")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeSightings(t, rec)
	require.Len(t, resp.Species, 1)
	assert.Equal(t, "amerob", resp.Species[0].SpeciesCode)
}

func TestGetSightingsOrderParameter(t *testing.T) {
	t.Parallel()

	source := &staticSource{
		recent: []aggregator.Observation{
			{SpeciesCode: "amerob", Location: route.Coordinate{Lat: 47.61, Lon: -122.32}, Count: 1, ChecklistID: "S1"},
		},
		notable: []aggregator.Observation{
			{SpeciesCode: "gyrfal", Location: route.Coordinate{Lat: 47.61, Lon: -122.31}, Count: 1, ChecklistID: "S2"},
		},
	}
	c := setupController(t, source)

	rec := doRequest(t, c, "/api/v1/sightings?path=47.60,-122.33;47.62,-122.30&order=rarity")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeSightings(t, rec)
	require.Len(t, resp.Species, 2)
	assert.Equal(t, "gyrfal", resp.Species[0].SpeciesCode)
	assert.Equal(t, aggregator.RarityRare, resp.Species[0].Rarity)
}

func TestRegisterMetricsHandler(t *testing.T) {
	t.Parallel()

	c := setupController(t, &staticSource{})

	registry := prometheus.NewRegistry()
	c.RegisterMetricsHandler(registry)

	rec := doRequest(t, c, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}
