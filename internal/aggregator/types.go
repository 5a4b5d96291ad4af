// Package aggregator merges bird observations fetched around a route's sample
// points into one deduplicated, rarity-classified summary per species.
package aggregator

import (
	"context"
	"time"

	"github.com/joyvchen/birdride/internal/route"
)

// Mode selects which observation feed a query hits.
type Mode string

const (
	// ModeRecent is the general recent-observations feed.
	ModeRecent Mode = "recent"
	// ModeNotable is the rare bird alert feed of reviewed or notable sightings.
	ModeNotable Mode = "notable"
)

// ObservationSource is the external collaborator that returns raw observations
// around a coordinate. Implementations must be safe for concurrent use.
type ObservationSource interface {
	Fetch(ctx context.Context, center route.Coordinate, radiusKm float64, backDays int, mode Mode) ([]Observation, error)
}

// Observation is one sighting report with defaults already applied at
// ingestion: Count is at least 1, NumObservers at least 0.
type Observation struct {
	SpeciesCode    string // source-assigned stable species identity
	CommonName     string
	ScientificName string
	Location       route.Coordinate
	Observed       time.Time // zero when the source omitted the date
	Count          int
	LocationName   string
	ChecklistID    string // report token, part of the dedup key
	Reviewed       bool
	NumObservers   int
}

// Rarity is the classification tier of a species summary.
type Rarity string

const (
	RarityCommon Rarity = "common"
	// RarityUncommon exists for richer sources; this aggregator never assigns it.
	RarityUncommon Rarity = "uncommon"
	RarityRare     Rarity = "rare"
)

// Sighting is one constituent report retained inside a species summary.
// It is exclusively owned by its parent summary.
type Sighting struct {
	Observed     time.Time        `json:"observed"`
	Count        int              `json:"count"`
	LocationName string           `json:"location_name"`
	ChecklistID  string           `json:"checklist_id"`
	Location     route.Coordinate `json:"location"`
}

// SpeciesImage is an optional photo attached by the enrichment collaborator.
type SpeciesImage struct {
	URL         string `json:"url"`
	Attribution string `json:"attribution,omitempty"`
}

// SpeciesSummary is the merged result for one species across every sample
// point. The primary display fields always reflect the most recent sighting;
// Sightings is ordered most recent first and is never empty.
type SpeciesSummary struct {
	SpeciesCode    string `json:"species_code"`
	CommonName     string `json:"common_name"`
	ScientificName string `json:"scientific_name"`
	Rarity         Rarity `json:"rarity"`

	// Primary display fields, from the most recent sighting
	Observed     time.Time        `json:"observed"`
	Count        int              `json:"count"`
	LocationName string           `json:"location_name"`
	Location     route.Coordinate `json:"location"`

	Sightings []Sighting `json:"sightings"`

	// Path-relative annotations
	DistanceMiles float64 `json:"distance_miles"` // minimum distance to the route
	RouteMile     float64 `json:"route_mile"`     // mile marker nearest the primary sighting

	Image *SpeciesImage `json:"image,omitempty"`
}

// Order selects how the final collection is ranked.
type Order string

const (
	// OrderRecency sorts by primary timestamp, newest first.
	OrderRecency Order = "recency"
	// OrderRarity sorts rare species before common ones, otherwise stable.
	OrderRarity Order = "rarity"
)

// Options controls one aggregation call.
type Options struct {
	BackDays    int      // lookback window in days
	RadiusKm    float64  // search radius around each sample point
	MaxPoints   int      // cap on route sample points
	WithinMiles *float64 // proximity cutoff from the route; nil disables the filter
	Order       Order    // ranking policy, defaults to OrderRecency
}

// Stats describes how the fan-out went. Failed counts sub-queries that
// contributed nothing; it never fails the call by itself.
type Stats struct {
	SamplePoints int `json:"sample_points"`
	Queries      int `json:"queries"`
	Failed       int `json:"failed"`
}

// Result is the outcome of one aggregation call.
type Result struct {
	Species []SpeciesSummary `json:"species"`
	Stats   Stats            `json:"stats"`
}

// Incomplete reports whether an empty result is due to total source failure
// rather than genuinely empty data. Callers use it to distinguish "no birds
// near this route" from "the source was unreachable".
func (r *Result) Incomplete() bool {
	return r.Stats.Queries > 0 && r.Stats.Failed == r.Stats.Queries && len(r.Species) == 0
}
