package ebird

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// mockResponse represents a mocked HTTP response
type mockResponse struct {
	status      int
	body        string
	contentType string
}

// setupTestClient creates a test client pointed at the given server
func setupTestClient(tb testing.TB, server *httptest.Server) *Client {
	tb.Helper()

	config := Config{
		APIKey:      "test-key",
		BaseURL:     server.URL,
		Timeout:     5 * time.Second,
		RateLimitMS: 1, // Fast for tests
	}

	client, err := NewClient(config)
	require.NoError(tb, err)

	if tt, ok := tb.(*testing.T); ok {
		tt.Cleanup(func() {
			client.Close()
		})
	}

	return client
}

// setupMockServer creates a mock server with predefined responses keyed by
// request path (query string ignored so tests stay readable)
func setupMockServer(tb testing.TB, responses map[string]mockResponse) *httptest.Server {
	tb.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check API key
		if apiKey := r.Header.Get("X-eBirdApiToken"); apiKey == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"title": "Unauthorized", "status": 401, "detail": "Missing API key"}`))
			return
		}

		if response, ok := responses[r.URL.Path]; ok {
			if response.contentType != "" {
				w.Header().Set("Content-Type", response.contentType)
			} else {
				w.Header().Set("Content-Type", "application/json")
			}
			w.WriteHeader(response.status)
			_, _ = w.Write([]byte(response.body))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"title": "Not Found", "status": 404, "detail": "Endpoint not found"}`))
	}))

	if tt, ok := tb.(*testing.T); ok {
		tt.Cleanup(server.Close)
	}

	return server
}

// recentFeedBody builds a recent feed JSON payload from species codes
func recentFeedBody(tb testing.TB, speciesCodes ...string) string {
	tb.Helper()

	var sb strings.Builder
	sb.WriteString("[")
	for i, code := range speciesCodes {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(`{
			"speciesCode": "` + code + `",
			"comName": "Common Name",
			"sciName": "Scientific name",
			"locId": "L1",
			"locName": "Test Hotspot",
			"obsDt": "2026-08-30 09:15",
			"howMany": 2,
			"lat": 47.61,
			"lng": -122.33,
			"obsValid": true,
			"obsReviewed": false,
			"locationPrivate": false,
			"subId": "S100` + code + `"
		}`)
	}
	sb.WriteString("]")
	return sb.String()
}
