// Package imageprovider fetches and caches bird photos for species summaries.
package imageprovider

import (
	"context"
	"io"
	"log"
	"log/slog"
	"path/filepath"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/joyvchen/birdride/internal/aggregator"
	"github.com/joyvchen/birdride/internal/errors"
	"github.com/joyvchen/birdride/internal/logging"
	"github.com/joyvchen/birdride/internal/observability/metrics"
)

var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "imageprovider.log")
	serviceLevelVar.Set(slog.LevelDebug)

	logger, _, err = logging.NewFileLogger(logFilePath, "imageprovider", serviceLevelVar)
	if err != nil {
		log.Printf("Failed to initialize imageprovider file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "imageprovider")
	}
}

// Image is one resolved photo with its attribution line.
type Image struct {
	URL         string
	Attribution string
}

// Provider resolves a photo for a species. Implementations must be safe for
// concurrent use.
type Provider interface {
	Fetch(ctx context.Context, speciesCode, scientificName string) (Image, error)
}

const (
	defaultCacheTTL    = 14 * 24 * time.Hour
	negativeCacheTTL   = 1 * time.Hour
	cacheSweepInterval = 1 * time.Hour

	// Enrichment must never stall an otherwise finished aggregation.
	enrichConcurrency = 4
	enrichRate        = rate.Limit(10) // lookups per second
)

// negativeEntry marks a species whose lookup recently failed or came back
// empty. Cached so repeated route queries do not hammer the provider.
type negativeEntry struct{}

// Cache wraps a Provider with an in-memory TTL cache. Failed lookups are
// negatively cached with a shorter TTL.
type Cache struct {
	provider Provider
	entries  *gocache.Cache
	limiter  *rate.Limiter
	metrics  *metrics.ImageProviderMetrics
}

// NewCache creates a caching wrapper around provider.
func NewCache(provider Provider) *Cache {
	return &Cache{
		provider: provider,
		entries:  gocache.New(defaultCacheTTL, cacheSweepInterval),
		limiter:  rate.NewLimiter(enrichRate, 1),
	}
}

// SetMetrics attaches Prometheus metrics. A nil value disables them.
func (c *Cache) SetMetrics(m *metrics.ImageProviderMetrics) {
	c.metrics = m
}

// Get returns the cached image for the species, fetching through the
// underlying provider on a miss. A negative result is cached too and is
// reported as a not-found error until its entry expires.
func (c *Cache) Get(ctx context.Context, speciesCode, scientificName string) (Image, error) {
	if speciesCode == "" {
		return Image{}, errors.Newf("species code is required").
			Category(errors.CategoryValidation).
			Component("imageprovider").
			Build()
	}

	if cached, found := c.entries.Get(speciesCode); found {
		if c.metrics != nil {
			c.metrics.IncrementCacheHits()
		}
		if _, negative := cached.(negativeEntry); negative {
			return Image{}, errors.Newf("no image for species %s", speciesCode).
				Category(errors.CategoryNotFound).
				Component("imageprovider").
				Build()
		}
		return cached.(Image), nil
	}
	if c.metrics != nil {
		c.metrics.IncrementCacheMisses()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return Image{}, err
	}

	start := time.Now()
	img, err := c.provider.Fetch(ctx, speciesCode, scientificName)
	if c.metrics != nil {
		c.metrics.IncrementImageFetches()
		c.metrics.ObserveFetchDuration(time.Since(start).Seconds())
	}
	if err != nil {
		if c.metrics != nil {
			c.metrics.IncrementFetchErrors()
		}
		// Cancellation is the caller's doing, not the species' fault
		if !errors.IsCategory(err, errors.CategoryCancellation) && ctx.Err() == nil {
			c.entries.Set(speciesCode, negativeEntry{}, negativeCacheTTL)
		}
		return Image{}, err
	}
	if img.URL == "" {
		c.entries.Set(speciesCode, negativeEntry{}, negativeCacheTTL)
		return Image{}, errors.Newf("no image for species %s", speciesCode).
			Category(errors.CategoryNotFound).
			Component("imageprovider").
			Build()
	}

	c.entries.SetDefault(speciesCode, img)
	return img, nil
}

// EnrichAll attaches images to the summaries in place. Lookups run
// concurrently and independently; a failed lookup leaves that summary's Image
// nil and never fails the batch. Cancelling ctx stops outstanding lookups.
func (c *Cache) EnrichAll(ctx context.Context, summaries []aggregator.SpeciesSummary) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)

	for i := range summaries {
		s := &summaries[i]
		g.Go(func() error {
			img, err := c.Get(gctx, s.SpeciesCode, s.ScientificName)
			if err != nil {
				if !errors.IsNotFound(err) {
					logger.Debug("image lookup failed",
						"species_code", s.SpeciesCode,
						"error", err.Error())
				}
				return nil
			}
			s.Image = &aggregator.SpeciesImage{
				URL:         img.URL,
				Attribution: img.Attribution,
			}
			return nil
		})
	}
	_ = g.Wait()
}
