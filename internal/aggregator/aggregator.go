package aggregator

import (
	"context"
	"io"
	"log"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joyvchen/birdride/internal/errors"
	"github.com/joyvchen/birdride/internal/logging"
	"github.com/joyvchen/birdride/internal/observability/metrics"
	"github.com/joyvchen/birdride/internal/route"
)

// Package-level logger specific to the aggregator service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar) // Dynamic level control
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "aggregator.log")
	serviceLevelVar.Set(slog.LevelDebug)

	logger, _, err = logging.NewFileLogger(logFilePath, "aggregator", serviceLevelVar)
	if err != nil {
		log.Printf("Failed to initialize aggregator file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "aggregator")
	}
}

// Aggregator runs route-proximity observation aggregation against one
// observation source. Safe for concurrent use.
type Aggregator struct {
	source  ObservationSource
	metrics *metrics.AggregatorMetrics
}

// New creates an Aggregator reading from source.
func New(source ObservationSource) *Aggregator {
	return &Aggregator{source: source}
}

// SetMetrics attaches Prometheus metrics. A nil receiver value disables them.
func (a *Aggregator) SetMetrics(m *metrics.AggregatorMetrics) {
	a.metrics = m
}

// queryResult is the private result slot of one sample-point/mode query.
// Every goroutine writes only its own slot, so the fan-out needs no locks.
type queryResult struct {
	mode         Mode
	point        route.Coordinate
	observations []Observation
	err          error
}

// AlongRoute samples the route, queries the observation source around every
// sample point in both feed modes concurrently, and folds the results into
// per-species summaries.
//
// Per-query failures are absorbed: they contribute zero observations and are
// counted in Result.Stats. The call itself fails only on invalid arguments.
// Cancelling ctx aborts outstanding queries; already settled results are still
// folded and returned.
func (a *Aggregator) AlongRoute(ctx context.Context, r route.Route, opts Options) (*Result, error) {
	if opts.BackDays < 1 {
		return nil, errors.Newf("lookback window must be at least 1 day, got %d", opts.BackDays).
			Category(errors.CategoryValidation).
			Component("aggregator").
			Build()
	}
	if opts.RadiusKm <= 0 {
		return nil, errors.Newf("radius must be positive, got %v", opts.RadiusKm).
			Category(errors.CategoryValidation).
			Component("aggregator").
			Build()
	}

	samples, err := r.Sample(opts.MaxPoints)
	if err != nil {
		return nil, err
	}

	if a.metrics != nil {
		a.metrics.IncrementAggregations()
	}

	start := time.Now()
	results := a.fetch(ctx, samples, opts)
	fetchDuration := time.Since(start)

	// Collect notable species codes before merging anything: rarity for a
	// species depends on whether it ever appeared in any notable response,
	// even when the recent feed entry for it lacks the reviewed flag.
	notable := make(map[string]struct{})
	for i := range results {
		if results[i].mode != ModeNotable || results[i].err != nil {
			continue
		}
		for j := range results[i].observations {
			if code := results[i].observations[j].SpeciesCode; code != "" {
				notable[code] = struct{}{}
			}
		}
	}

	// Single-threaded fold over every settled query, notable observations
	// included: a notable sighting may never reappear in the recent feed.
	m := newMerger()
	failed := 0
	for i := range results {
		if results[i].err != nil {
			failed++
			logger.Warn("sample point query failed",
				"mode", string(results[i].mode),
				"lat", results[i].point.Lat,
				"lon", results[i].point.Lon,
				"error", results[i].err.Error())
			continue
		}
		for j := range results[i].observations {
			m.add(&results[i].observations[j], notable)
		}
	}

	species := m.finalize()
	annotateRoute(species, r)

	if opts.WithinMiles != nil {
		species = FilterByProximity(species, r, *opts.WithinMiles)
	}

	switch opts.Order {
	case OrderRarity:
		SortByRarity(species)
	default:
		SortByRecency(species)
	}

	result := &Result{
		Species: species,
		Stats: Stats{
			SamplePoints: len(samples),
			Queries:      len(results),
			Failed:       failed,
		},
	}

	if a.metrics != nil {
		a.metrics.ObserveFetchDuration(fetchDuration.Seconds())
		a.metrics.ObserveSpeciesReturned(len(species))
		if result.Incomplete() {
			a.metrics.IncrementIncompleteResults()
		}
	}

	logger.Info("route aggregation complete",
		"sample_points", len(samples),
		"queries", len(results),
		"failed", failed,
		"species", len(species),
		"duration_ms", fetchDuration.Milliseconds())

	return result, nil
}

// fetch issues one notable and one recent query per sample point, all
// concurrently. The result slice has one slot per query; failures stay in
// their slot and never abort the group.
func (a *Aggregator) fetch(ctx context.Context, samples []route.Coordinate, opts Options) []queryResult {
	modes := []Mode{ModeNotable, ModeRecent}
	results := make([]queryResult, len(samples)*len(modes))

	g, gctx := errgroup.WithContext(ctx)
	for i, point := range samples {
		for j, mode := range modes {
			slot := &results[i*len(modes)+j]
			slot.mode = mode
			slot.point = point
			g.Go(func() error {
				if a.metrics != nil {
					a.metrics.IncrementSourceQueries(string(slot.mode))
				}
				obs, err := a.source.Fetch(gctx, slot.point, opts.RadiusKm, opts.BackDays, slot.mode)
				if err != nil {
					if a.metrics != nil {
						a.metrics.IncrementSourceErrors(string(slot.mode))
					}
					slot.err = err
					return nil
				}
				slot.observations = obs
				return nil
			})
		}
	}
	// Goroutines always return nil; Wait only synchronizes
	_ = g.Wait()

	return results
}
