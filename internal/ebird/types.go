// Package ebird provides a client for the eBird API v2 observation feeds
package ebird

import "time"

// Observation represents a single sighting report from an eBird feed.
// The fields mirror the API's wire format; optional fields may be zero.
type Observation struct {
	SpeciesCode     string  `json:"speciesCode"`
	CommonName      string  `json:"comName"`
	ScientificName  string  `json:"sciName"`
	LocationID      string  `json:"locId"`
	LocationName    string  `json:"locName"`
	ObsDate         string  `json:"obsDt"`   // "2006-01-02 15:04" local time
	HowMany         int     `json:"howMany"` // absent when count was "X"
	Latitude        float64 `json:"lat"`
	Longitude       float64 `json:"lng"`
	Valid           bool    `json:"obsValid"`
	Reviewed        bool    `json:"obsReviewed"`
	LocationPrivate bool    `json:"locationPrivate"`
	SubID           string  `json:"subId"` // checklist identifier
	NumObservers    int     `json:"numObservers,omitempty"`
}

// obsDt comes with or without a time component depending on the checklist.
var obsDateLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02",
}

// ObservedTime parses the observation date. It returns the zero time when the
// date is missing or malformed; callers treat that as "earliest possible".
func (o *Observation) ObservedTime() time.Time {
	for _, layout := range obsDateLayouts {
		if ts, err := time.Parse(layout, o.ObsDate); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// Config holds configuration for the eBird client
type Config struct {
	APIKey      string        `json:"api_key"`
	BaseURL     string        `json:"base_url"`
	Timeout     time.Duration `json:"timeout"`
	RateLimitMS int           `json:"rate_limit_ms"` // Milliseconds between requests
	Locale      string        `json:"locale"`        // Locale for common names
}

// Error represents an eBird API error response
type Error struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func (e *Error) Error() string {
	return e.Detail
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaseURL:     "https://api.ebird.org/v2",
		Timeout:     30 * time.Second,
		RateLimitMS: 100, // 10 requests per second max
		Locale:      "en",
	}
}
