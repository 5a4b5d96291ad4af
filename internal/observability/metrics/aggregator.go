// Package metrics provides custom Prometheus metrics for the birdride components.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// AggregatorMetrics contains all Prometheus metrics related to route aggregation.
type AggregatorMetrics struct {
	SourceQueries     *prometheus.CounterVec
	SourceErrors      *prometheus.CounterVec
	Aggregations      prometheus.Counter
	IncompleteResults prometheus.Counter
	FetchDuration     prometheus.Histogram
	SpeciesReturned   prometheus.Histogram
	registry          *prometheus.Registry
}

// NewAggregatorMetrics creates a new instance of AggregatorMetrics and
// registers it on the given registry.
func NewAggregatorMetrics(registry *prometheus.Registry) (*AggregatorMetrics, error) {
	m := &AggregatorMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize aggregator metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register aggregator metrics: %w", err)
	}
	return m, nil
}

// initMetrics initializes all metrics for AggregatorMetrics.
func (m *AggregatorMetrics) initMetrics() error {
	m.SourceQueries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aggregator_source_queries_total",
		Help: "Total number of observation source queries issued, by feed mode.",
	}, []string{"mode"})

	m.SourceErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aggregator_source_errors_total",
		Help: "Total number of failed observation source queries, by feed mode.",
	}, []string{"mode"})

	m.Aggregations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aggregator_aggregations_total",
		Help: "Total number of route aggregation calls.",
	})

	m.IncompleteResults = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aggregator_incomplete_results_total",
		Help: "Total number of aggregation calls where every source query failed.",
	})

	m.FetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "aggregator_fetch_duration_seconds",
		Help:    "Duration of the concurrent fetch phase in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	m.SpeciesReturned = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "aggregator_species_returned",
		Help:    "Number of species summaries returned per aggregation call.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	return nil
}

// IncrementSourceQueries increases the query counter for the given feed mode.
func (m *AggregatorMetrics) IncrementSourceQueries(mode string) {
	m.SourceQueries.WithLabelValues(mode).Inc()
}

// IncrementSourceErrors increases the failed query counter for the given feed mode.
func (m *AggregatorMetrics) IncrementSourceErrors(mode string) {
	m.SourceErrors.WithLabelValues(mode).Inc()
}

// IncrementAggregations increases the aggregation call counter by one.
func (m *AggregatorMetrics) IncrementAggregations() {
	m.Aggregations.Inc()
}

// IncrementIncompleteResults increases the all-queries-failed counter by one.
func (m *AggregatorMetrics) IncrementIncompleteResults() {
	m.IncompleteResults.Inc()
}

// ObserveFetchDuration records the duration of one concurrent fetch phase.
// The duration should be provided in seconds.
func (m *AggregatorMetrics) ObserveFetchDuration(durationSeconds float64) {
	m.FetchDuration.Observe(durationSeconds)
}

// ObserveSpeciesReturned records the result size of one aggregation call.
func (m *AggregatorMetrics) ObserveSpeciesReturned(count int) {
	m.SpeciesReturned.Observe(float64(count))
}

// Collect implements the prometheus.Collector interface.
func (m *AggregatorMetrics) Collect(ch chan<- prometheus.Metric) {
	m.SourceQueries.Collect(ch)
	m.SourceErrors.Collect(ch)
	ch <- m.Aggregations
	ch <- m.IncompleteResults
	ch <- m.FetchDuration
	ch <- m.SpeciesReturned
}

// Describe implements the prometheus.Collector interface.
func (m *AggregatorMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.SourceQueries.Describe(ch)
	m.SourceErrors.Describe(ch)
	ch <- m.Aggregations.Desc()
	ch <- m.IncompleteResults.Desc()
	ch <- m.FetchDuration.Desc()
	ch <- m.SpeciesReturned.Desc()
}
