package ebird

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joyvchen/birdride/internal/errors"
	"github.com/joyvchen/birdride/internal/httpclient"
	"github.com/joyvchen/birdride/internal/logging"
)

// Package-level logger specific to ebird service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar) // Dynamic level control
	closeLogger     func() error
)

func init() {
	var err error
	// Define log file path relative to working directory
	logFilePath := filepath.Join("logs", "ebird.log")
	serviceLevelVar.Set(slog.LevelDebug)

	// Initialize the service-specific file logger
	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "ebird", serviceLevelVar)
	if err != nil {
		// Fallback: Log error to standard log and disable service logging
		log.Printf("Failed to initialize ebird file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "ebird")
		closeLogger = func() error { return nil }
	}
}

// Client provides methods for querying the eBird API observation feeds
type Client struct {
	config      Config
	httpClient  *httpclient.Client
	rateLimiter *time.Ticker
	mu          sync.Mutex
	lastRequest time.Time
	debug       bool      // Enable debug logging
	firstCallMu sync.Once // Track first successful API call

	// Metrics
	metrics struct {
		apiCalls      int64
		apiErrors     int64
		totalDuration time.Duration
		mu            sync.RWMutex
	}
}

// NewClient creates a new eBird API client
func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, errors.Newf("eBird API key is required").
			Category(errors.CategoryConfiguration).
			Component("ebird").
			Build()
	}

	// Use defaults for missing config values
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.RateLimitMS == 0 {
		config.RateLimitMS = DefaultConfig().RateLimitMS
	}
	if config.Locale == "" {
		config.Locale = DefaultConfig().Locale
	}

	client := &Client{
		config: config,
		httpClient: httpclient.New(&httpclient.Config{
			DefaultTimeout: config.Timeout,
		}),
		rateLimiter: time.NewTicker(time.Duration(config.RateLimitMS) * time.Millisecond),
	}

	logger.Info("eBird client initialized",
		"base_url", config.BaseURL,
		"rate_limit_ms", config.RateLimitMS,
		"locale", config.Locale,
		"api_key_configured", config.APIKey != "")

	return client, nil
}

// SetDebug enables verbose request/response logging.
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// Close cleans up client resources
func (c *Client) Close() {
	c.rateLimiter.Stop()
	c.httpClient.CloseIdleConnections()
	logger.Info("Closing eBird client")

	if closeLogger != nil {
		if err := closeLogger(); err != nil {
			// Use standard log since our logger might be closing
			log.Printf("Error closing eBird logger: %v", err)
		}
	}
}

// RecentObservations retrieves recent observations of any species reported
// within radiusKm of the given point during the last backDays days.
func (c *Client) RecentObservations(ctx context.Context, lat, lon, radiusKm float64, backDays int) ([]Observation, error) {
	return c.fetchObservations(ctx, "/data/obs/geo/recent", lat, lon, radiusKm, backDays, false)
}

// NotableObservations retrieves recent notable (rare or review-worthy)
// observations reported within radiusKm of the given point during the last
// backDays days. This is the Rare Bird Alert style feed.
func (c *Client) NotableObservations(ctx context.Context, lat, lon, radiusKm float64, backDays int) ([]Observation, error) {
	return c.fetchObservations(ctx, "/data/obs/geo/recent/notable", lat, lon, radiusKm, backDays, true)
}

// fetchObservations issues one geo feed query and decodes the result.
func (c *Client) fetchObservations(ctx context.Context, endpoint string, lat, lon, radiusKm float64, backDays int, fullDetail bool) ([]Observation, error) {
	if backDays < 1 || backDays > 30 {
		return nil, errors.Newf("backDays must be between 1 and 30, got %d", backDays).
			Category(errors.CategoryValidation).
			Component("ebird").
			Build()
	}
	if radiusKm <= 0 || radiusKm > 50 {
		return nil, errors.Newf("radiusKm must be between 0 and 50, got %v", radiusKm).
			Category(errors.CategoryValidation).
			Component("ebird").
			Build()
	}

	query := url.Values{}
	// eBird accepts at most four decimal places for coordinates
	query.Set("lat", fmt.Sprintf("%.4f", lat))
	query.Set("lng", fmt.Sprintf("%.4f", lon))
	query.Set("dist", fmt.Sprintf("%.1f", radiusKm))
	query.Set("back", fmt.Sprintf("%d", backDays))
	query.Set("sppLocale", c.config.Locale)
	if fullDetail {
		query.Set("detail", "full")
	} else {
		query.Set("includeProvisional", "true")
	}

	requestURL := fmt.Sprintf("%s%s?%s", c.config.BaseURL, endpoint, query.Encode())

	var observations []Observation
	if err := c.doRequestWithRetry(ctx, requestURL, &observations); err != nil {
		return nil, err
	}
	return observations, nil
}

// doRequest performs an HTTP request with rate limiting and auth
func (c *Client) doRequest(ctx context.Context, requestURL string, result any) error {
	// Rate limiting
	c.mu.Lock()
	select {
	case <-c.rateLimiter.C:
	case <-ctx.Done():
		c.mu.Unlock()
		return errors.New(ctx.Err()).
			Category(errors.CategoryCancellation).
			Context("url", requestURL).
			Component("ebird").
			Build()
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	start := time.Now()

	c.metrics.mu.Lock()
	c.metrics.apiCalls++
	c.metrics.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, http.NoBody)
	if err != nil {
		c.countError()
		return errors.Newf("failed to create HTTP request: %w", err).
			Category(errors.CategoryNetwork).
			Context("url", requestURL).
			Component("ebird").
			Build()
	}

	req.Header.Set("X-eBirdApiToken", c.config.APIKey)
	req.Header.Set("Accept", "application/json")

	if c.debug {
		logger.Debug("eBird API request",
			"url", requestURL,
			"has_api_key", c.config.APIKey != "")
	}

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		c.countError()
		logger.Error("eBird API request failed",
			"error", err,
			"url", requestURL)
		return errors.Newf("HTTP request failed: %w", err).
			Category(errors.CategoryNetwork).
			Context("url", requestURL).
			Component("ebird").
			Build()
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		c.countError()
		logger.Error("Failed to read response body",
			"error", err,
			"url", requestURL,
			"status_code", resp.StatusCode)
		return errors.Newf("failed to read response body: %w", err).
			Category(errors.CategoryNetwork).
			Context("url", requestURL).
			Context("status_code", resp.StatusCode).
			Component("ebird").
			Build()
	}

	contentType := resp.Header.Get("Content-Type")
	if resp.StatusCode == http.StatusOK && !strings.Contains(strings.ToLower(contentType), "application/json") {
		logger.Error("eBird API returned non-JSON response",
			"status_code", resp.StatusCode,
			"content_type", contentType,
			"url", requestURL,
			"response_preview", preview(bodyBytes))
		return errors.Newf("eBird API returned non-JSON response (Content-Type: %s)", contentType).
			Category(errors.CategoryNetwork).
			Context("status_code", resp.StatusCode).
			Context("content_type", contentType).
			Context("url", requestURL).
			Component("ebird").
			Build()
	}

	if resp.StatusCode >= 400 {
		c.countError()

		var apiErr Error
		if err := json.Unmarshal(bodyBytes, &apiErr); err != nil || apiErr.Detail == "" {
			apiErr = Error{Detail: string(bodyBytes)}
		}
		apiErr.Status = resp.StatusCode

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			logger.Error("eBird API authentication failed",
				"status_code", resp.StatusCode,
				"url", requestURL,
				"has_api_key", c.config.APIKey != "",
				"message", "Check your eBird API key in the configuration")
		} else {
			logger.Warn("eBird API error response",
				"status_code", resp.StatusCode,
				"error_detail", apiErr.Detail,
				"url", requestURL)
		}

		return errors.Newf("eBird API error (status %d): %s", resp.StatusCode, apiErr.Detail).
			Category(getErrorCategory(resp.StatusCode)).
			Context("status_code", resp.StatusCode).
			Context("url", requestURL).
			Component("ebird").
			Build()
	}

	if result != nil {
		if err := json.Unmarshal(bodyBytes, result); err != nil {
			logger.Error("Failed to parse eBird API response",
				"error", err,
				"url", requestURL,
				"response_size", len(bodyBytes),
				"response_preview", preview(bodyBytes))
			return errors.Newf("failed to parse response: %w", err).
				Category(errors.CategoryParsing).
				Context("url", requestURL).
				Context("response_size", len(bodyBytes)).
				Component("ebird").
				Build()
		}
	}

	duration := time.Since(start)

	// Log first successful API call to confirm authentication
	c.firstCallMu.Do(func() {
		logger.Info("eBird API authentication successful",
			"first_successful_request", requestURL)
	})

	if c.debug {
		logger.Debug("eBird API response",
			"status_code", resp.StatusCode,
			"url", requestURL,
			"duration_ms", duration.Milliseconds(),
			"response_size", len(bodyBytes))
	}

	c.metrics.mu.Lock()
	c.metrics.totalDuration += duration
	c.metrics.mu.Unlock()

	return nil
}

// doRequestWithRetry wraps doRequest with retry logic for transient failures
func (c *Client) doRequestWithRetry(ctx context.Context, requestURL string, result any) error {
	const maxRetries = 3
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := c.doRequest(ctx, requestURL, result)
		if err == nil {
			return nil
		}

		// Check if error is retryable
		var enhancedErr *errors.EnhancedError
		if errors.As(err, &enhancedErr) {
			// Don't retry auth, validation, parsing or cancellation errors
			switch enhancedErr.Category {
			case errors.CategoryConfiguration,
				errors.CategoryValidation,
				errors.CategoryParsing,
				errors.CategoryCancellation,
				errors.CategoryNotFound:
				return err
			}

			if statusCode, ok := enhancedErr.Context["status_code"].(int); ok {
				// Don't retry client errors except 429
				if statusCode >= 400 && statusCode < 500 && statusCode != 429 {
					return err
				}
			}
		}

		lastErr = err

		if ctx.Err() != nil {
			return lastErr
		}

		if attempt < maxRetries-1 {
			delay := time.Duration(attempt+1) * 500 * time.Millisecond
			logger.Warn("eBird API request failed, retrying",
				"attempt", attempt+1,
				"max_retries", maxRetries,
				"delay_ms", delay.Milliseconds(),
				"url", requestURL,
				"error", err.Error())

			select {
			case <-time.After(delay):
				// Continue to next retry
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return lastErr
}

func (c *Client) countError() {
	c.metrics.mu.Lock()
	c.metrics.apiErrors++
	c.metrics.mu.Unlock()
}

func preview(body []byte) string {
	const limit = 500
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}

// Metrics represents eBird client performance metrics
type Metrics struct {
	APICalls      int64         `json:"api_calls"`
	APIErrors     int64         `json:"api_errors"`
	TotalDuration time.Duration `json:"total_duration"`
	AvgDuration   time.Duration `json:"avg_duration"`
}

// GetMetrics returns current client metrics
func (c *Client) GetMetrics() Metrics {
	c.metrics.mu.RLock()
	defer c.metrics.mu.RUnlock()

	metrics := Metrics{
		APICalls:      c.metrics.apiCalls,
		APIErrors:     c.metrics.apiErrors,
		TotalDuration: c.metrics.totalDuration,
	}

	if metrics.APICalls > 0 {
		metrics.AvgDuration = time.Duration(int64(metrics.TotalDuration) / metrics.APICalls)
	}

	return metrics
}

// getErrorCategory determines the appropriate error category based on HTTP status code
func getErrorCategory(statusCode int) errors.ErrorCategory {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		// Bad or missing API key is a configuration problem
		return errors.CategoryConfiguration
	case http.StatusTooManyRequests:
		return errors.CategoryLimit
	case http.StatusNotFound:
		return errors.CategoryNotFound
	default:
		return errors.CategoryNetwork
	}
}
