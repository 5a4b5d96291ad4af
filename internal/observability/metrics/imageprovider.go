package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ImageProviderMetrics contains all Prometheus metrics related to the image provider.
type ImageProviderMetrics struct {
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
	ImageFetches  prometheus.Counter
	FetchErrors   prometheus.Counter
	FetchDuration prometheus.Histogram
	registry      *prometheus.Registry
}

// NewImageProviderMetrics creates a new instance of ImageProviderMetrics and
// registers it on the given registry.
func NewImageProviderMetrics(registry *prometheus.Registry) (*ImageProviderMetrics, error) {
	m := &ImageProviderMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize image provider metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register image provider metrics: %w", err)
	}
	return m, nil
}

// initMetrics initializes all metrics for ImageProviderMetrics.
func (m *ImageProviderMetrics) initMetrics() error {
	m.CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_provider_cache_hits_total",
		Help: "Total number of image cache hits.",
	})

	m.CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_provider_cache_misses_total",
		Help: "Total number of image cache misses.",
	})

	m.ImageFetches = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_provider_fetches_total",
		Help: "Total number of image fetches.",
	})

	m.FetchErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_provider_fetch_errors_total",
		Help: "Total number of image fetch errors.",
	})

	m.FetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "image_provider_fetch_duration_seconds",
		Help:    "Duration of image fetches in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	return nil
}

// IncrementCacheHits increases the cache hit counter by one.
func (m *ImageProviderMetrics) IncrementCacheHits() {
	m.CacheHits.Inc()
}

// IncrementCacheMisses increases the cache miss counter by one.
func (m *ImageProviderMetrics) IncrementCacheMisses() {
	m.CacheMisses.Inc()
}

// IncrementImageFetches increases the image fetch counter by one.
func (m *ImageProviderMetrics) IncrementImageFetches() {
	m.ImageFetches.Inc()
}

// IncrementFetchErrors increases the fetch error counter by one.
func (m *ImageProviderMetrics) IncrementFetchErrors() {
	m.FetchErrors.Inc()
}

// ObserveFetchDuration records the duration of one image fetch.
// The duration should be provided in seconds.
func (m *ImageProviderMetrics) ObserveFetchDuration(durationSeconds float64) {
	m.FetchDuration.Observe(durationSeconds)
}

// Collect implements the prometheus.Collector interface.
func (m *ImageProviderMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.CacheHits
	ch <- m.CacheMisses
	ch <- m.ImageFetches
	ch <- m.FetchErrors
	ch <- m.FetchDuration
}

// Describe implements the prometheus.Collector interface.
func (m *ImageProviderMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.CacheHits.Desc()
	ch <- m.CacheMisses.Desc()
	ch <- m.ImageFetches.Desc()
	ch <- m.FetchErrors.Desc()
	ch <- m.FetchDuration.Desc()
}
