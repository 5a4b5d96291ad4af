package aggregator

import (
	"context"

	"github.com/joyvchen/birdride/internal/ebird"
	"github.com/joyvchen/birdride/internal/route"
)

// EBirdSource adapts the eBird client to the ObservationSource interface.
// Wire records are converted to domain observations here, with optional field
// defaults applied exactly once.
type EBirdSource struct {
	client *ebird.Client
}

// NewEBirdSource wraps an eBird client as an observation source.
func NewEBirdSource(client *ebird.Client) *EBirdSource {
	return &EBirdSource{client: client}
}

// Fetch implements ObservationSource.
func (s *EBirdSource) Fetch(ctx context.Context, center route.Coordinate, radiusKm float64, backDays int, mode Mode) ([]Observation, error) {
	var raw []ebird.Observation
	var err error

	switch mode {
	case ModeNotable:
		raw, err = s.client.NotableObservations(ctx, center.Lat, center.Lon, radiusKm, backDays)
	default:
		raw, err = s.client.RecentObservations(ctx, center.Lat, center.Lon, radiusKm, backDays)
	}
	if err != nil {
		return nil, err
	}

	out := make([]Observation, 0, len(raw))
	for i := range raw {
		out = append(out, fromWire(&raw[i]))
	}
	return out, nil
}

// fromWire converts one eBird wire record into a domain observation.
// Checklists reporting an "X" count omit howMany; that still means at least
// one bird was present.
func fromWire(o *ebird.Observation) Observation {
	count := o.HowMany
	if count < 1 {
		count = 1
	}
	observers := o.NumObservers
	if observers < 0 {
		observers = 0
	}

	return Observation{
		SpeciesCode:    o.SpeciesCode,
		CommonName:     o.CommonName,
		ScientificName: o.ScientificName,
		Location:       route.Coordinate{Lat: o.Latitude, Lon: o.Longitude},
		Observed:       o.ObservedTime(),
		Count:          count,
		LocationName:   o.LocationName,
		ChecklistID:    o.SubID,
		Reviewed:       o.Reviewed,
		NumObservers:   observers,
	}
}
