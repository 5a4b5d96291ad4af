package imageprovider

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joyvchen/birdride/internal/aggregator"
	"github.com/joyvchen/birdride/internal/errors"
)

// stubProvider serves a fixed image map and counts fetches.
type stubProvider struct {
	mu      sync.Mutex
	images  map[string]Image
	err     error
	fetches int
}

func (s *stubProvider) Fetch(ctx context.Context, speciesCode, scientificName string) (Image, error) {
	s.mu.Lock()
	s.fetches++
	s.mu.Unlock()

	if s.err != nil {
		return Image{}, s.err
	}
	img, ok := s.images[speciesCode]
	if !ok {
		return Image{}, errors.Newf("species %s not in photo index", speciesCode).
			Category(errors.CategoryNotFound).
			Component("imageprovider").
			Build()
	}
	return img, nil
}

func (s *stubProvider) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

func TestCacheGetFetchesOnceAndServesFromCache(t *testing.T) {
	t.Parallel()

	stub := &stubProvider{images: map[string]Image{
		"amerob": {URL: "https://img.test/amerob.jpg", Attribution: "Someone (CC0)"},
	}}
	cache := NewCache(stub)

	for i := 0; i < 3; i++ {
		img, err := cache.Get(context.Background(), "amerob", "Turdus migratorius")
		require.NoError(t, err)
		assert.Equal(t, "https://img.test/amerob.jpg", img.URL)
	}

	assert.Equal(t, 1, stub.fetchCount())
}

func TestCacheGetRequiresSpeciesCode(t *testing.T) {
	t.Parallel()

	cache := NewCache(&stubProvider{})
	_, err := cache.Get(context.Background(), "", "Turdus migratorius")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestCacheNegativeResultIsCached(t *testing.T) {
	t.Parallel()

	stub := &stubProvider{images: map[string]Image{}}
	cache := NewCache(stub)

	for i := 0; i < 3; i++ {
		_, err := cache.Get(context.Background(), "nosuch", "")
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	}

	// Only the first miss reached the provider
	assert.Equal(t, 1, stub.fetchCount())
}

func TestCacheProviderErrorIsNegativelyCached(t *testing.T) {
	t.Parallel()

	stub := &stubProvider{
		err: errors.Newf("backend down").Category(errors.CategoryImageFetch).Build(),
	}
	cache := NewCache(stub)

	_, err := cache.Get(context.Background(), "amerob", "")
	require.Error(t, err)

	_, err = cache.Get(context.Background(), "amerob", "")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err), "cached negative entry reads as not found")
	assert.Equal(t, 1, stub.fetchCount())
}

func TestCacheCancelledLookupIsNotNegativelyCached(t *testing.T) {
	t.Parallel()

	stub := &stubProvider{images: map[string]Image{
		"amerob": {URL: "https://img.test/amerob.jpg"},
	}}
	cache := NewCache(stub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := cache.Get(ctx, "amerob", "")
	require.Error(t, err)

	// A later lookup with a live context succeeds
	img, err := cache.Get(context.Background(), "amerob", "")
	require.NoError(t, err)
	assert.Equal(t, "https://img.test/amerob.jpg", img.URL)
}

func TestEnrichAllAttachesImages(t *testing.T) {
	t.Parallel()

	stub := &stubProvider{images: map[string]Image{
		"amerob": {URL: "https://img.test/amerob.jpg", Attribution: "A (CC BY)"},
		"gyrfal": {URL: "https://img.test/gyrfal.jpg", Attribution: "B (CC0)"},
	}}
	cache := NewCache(stub)

	summaries := []aggregator.SpeciesSummary{
		{SpeciesCode: "amerob", ScientificName: "Turdus migratorius"},
		{SpeciesCode: "gyrfal", ScientificName: "Falco rusticolus"},
		{SpeciesCode: "nosuch", ScientificName: "Nullus avis"},
	}

	cache.EnrichAll(context.Background(), summaries)

	require.NotNil(t, summaries[0].Image)
	assert.Equal(t, "https://img.test/amerob.jpg", summaries[0].Image.URL)
	assert.Equal(t, "A (CC BY)", summaries[0].Image.Attribution)
	require.NotNil(t, summaries[1].Image)
	assert.Nil(t, summaries[2].Image, "failed lookup leaves the summary untouched")
}

func TestEnrichAllEmptyBatch(t *testing.T) {
	t.Parallel()

	cache := NewCache(&stubProvider{})
	cache.EnrichAll(context.Background(), nil)
}
