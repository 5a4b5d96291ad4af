package ebird

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/joyvchen/birdride/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestNewClientAppliesDefaults(t *testing.T) {
	client, err := NewClient(Config{APIKey: "test-key"})
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, DefaultConfig().BaseURL, client.config.BaseURL)
	assert.Equal(t, DefaultConfig().Locale, client.config.Locale)
	assert.Equal(t, DefaultConfig().RateLimitMS, client.config.RateLimitMS)
}

func TestRecentObservationsSuccess(t *testing.T) {
	server := setupMockServer(t, map[string]mockResponse{
		"/data/obs/geo/recent": {
			status: http.StatusOK,
			body:   recentFeedBody(t, "amerob", "sonspa"),
		},
	})
	client := setupTestClient(t, server)

	obs, err := client.RecentObservations(context.Background(), 47.61, -122.33, 8.0, 14)
	require.NoError(t, err)
	require.Len(t, obs, 2)

	assert.Equal(t, "amerob", obs[0].SpeciesCode)
	assert.Equal(t, "Test Hotspot", obs[0].LocationName)
	assert.Equal(t, 2, obs[0].HowMany)
	assert.Equal(t, "S100amerob", obs[0].SubID)
	assert.False(t, obs[0].Reviewed)

	ts := obs[0].ObservedTime()
	assert.Equal(t, 2026, ts.Year())
	assert.Equal(t, time.August, ts.Month())
}

func TestNotableObservationsSuccess(t *testing.T) {
	server := setupMockServer(t, map[string]mockResponse{
		"/data/obs/geo/recent/notable": {
			status: http.StatusOK,
			body:   recentFeedBody(t, "gyrfal"),
		},
	})
	client := setupTestClient(t, server)

	obs, err := client.NotableObservations(context.Background(), 47.61, -122.33, 8.0, 14)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, "gyrfal", obs[0].SpeciesCode)
}

func TestFetchObservationsValidatesArguments(t *testing.T) {
	server := setupMockServer(t, map[string]mockResponse{})
	client := setupTestClient(t, server)

	tests := []struct {
		name     string
		radiusKm float64
		backDays int
	}{
		{"zero radius", 0, 14},
		{"radius over limit", 51, 14},
		{"zero backdays", 8, 0},
		{"backdays over limit", 8, 31},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.RecentObservations(context.Background(), 47.61, -122.33, tt.radiusKm, tt.backDays)
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
		})
	}
}

func TestAuthenticationFailureIsNotRetried(t *testing.T) {
	server := setupMockServer(t, map[string]mockResponse{
		"/data/obs/geo/recent": {
			status: http.StatusForbidden,
			body:   `{"title": "Forbidden", "status": 403, "detail": "Invalid API key"}`,
		},
	})
	client := setupTestClient(t, server)

	_, err := client.RecentObservations(context.Background(), 47.61, -122.33, 8.0, 14)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	m := client.GetMetrics()
	assert.Equal(t, int64(1), m.APICalls, "auth errors must not be retried")
	assert.Equal(t, int64(1), m.APIErrors)
}

func TestMalformedJSONResponse(t *testing.T) {
	server := setupMockServer(t, map[string]mockResponse{
		"/data/obs/geo/recent": {
			status: http.StatusOK,
			body:   `[{"speciesCode": "amerob"`,
		},
	})
	client := setupTestClient(t, server)

	_, err := client.RecentObservations(context.Background(), 47.61, -122.33, 8.0, 14)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryParsing))
}

func TestNonJSONContentType(t *testing.T) {
	server := setupMockServer(t, map[string]mockResponse{
		"/data/obs/geo/recent": {
			status:      http.StatusOK,
			body:        "<html>login page</html>",
			contentType: "text/html",
		},
	})
	client := setupTestClient(t, server)

	_, err := client.RecentObservations(context.Background(), 47.61, -122.33, 8.0, 14)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
}

func TestServerErrorIsRetried(t *testing.T) {
	server := setupMockServer(t, map[string]mockResponse{
		"/data/obs/geo/recent": {
			status: http.StatusServiceUnavailable,
			body:   `{"title": "Unavailable", "status": 503, "detail": "Try again later"}`,
		},
	})
	client := setupTestClient(t, server)

	_, err := client.RecentObservations(context.Background(), 47.61, -122.33, 8.0, 14)
	require.Error(t, err)

	m := client.GetMetrics()
	assert.Equal(t, int64(3), m.APICalls, "server errors should be retried")
}

func TestRecentObservationsLargeFeedWithoutDeadline(t *testing.T) {
	// Production callers pass deadline-less contexts, and a busy region's feed
	// runs to megabytes; the full body must be readable after the HTTP client
	// applies its own default timeout.
	codes := make([]string, 3000)
	for i := range codes {
		codes[i] = fmt.Sprintf("bird%04d", i)
	}

	server := setupMockServer(t, map[string]mockResponse{
		"/data/obs/geo/recent": {status: http.StatusOK, body: recentFeedBody(t, codes...)},
	})
	client := setupTestClient(t, server)

	observations, err := client.RecentObservations(context.Background(), 47.61, -122.33, 8.0, 14)
	require.NoError(t, err)
	require.Len(t, observations, len(codes))
	assert.Equal(t, "bird0000", observations[0].SpeciesCode)
	assert.Equal(t, "bird2999", observations[len(observations)-1].SpeciesCode)
}

func TestCancelledContextAbortsRequest(t *testing.T) {
	server := setupMockServer(t, map[string]mockResponse{
		"/data/obs/geo/recent": {
			status: http.StatusOK,
			body:   recentFeedBody(t, "amerob"),
		},
	})
	client := setupTestClient(t, server)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.RecentObservations(ctx, 47.61, -122.33, 8.0, 14)
	require.Error(t, err)
}

func TestObservedTime(t *testing.T) {
	tests := []struct {
		name     string
		obsDt    string
		wantZero bool
	}{
		{"date and time", "2026-08-30 09:15", false},
		{"date only", "2026-08-30", false},
		{"empty", "", true},
		{"garbage", "yesterday", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Observation{ObsDate: tt.obsDt}
			assert.Equal(t, tt.wantZero, o.ObservedTime().IsZero())
		})
	}
}
