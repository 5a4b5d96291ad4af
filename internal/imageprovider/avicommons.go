package imageprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/joyvchen/birdride/internal/errors"
	"github.com/joyvchen/birdride/internal/httpclient"
)

const (
	aviCommonsProviderName = "avicommons"
	aviCommonsBaseURL      = "https://static.avicommons.org"
	aviCommonsDefaultSize  = "320" // published sizes: 240, 320, 480, 900
)

// aviCommonsEntry is one record of the Avicommons species dataset.
type aviCommonsEntry struct {
	Code    string `json:"code"` // eBird species code
	Name    string `json:"name"`
	SciName string `json:"sciName"`
	License string `json:"license"`
	Key     string `json:"key"` // photo identifier
	By      string `json:"by"`  // author
	Family  string `json:"family"`
}

// AviCommonsProvider resolves photos from the Avicommons dataset. The dataset
// index is downloaded once on first use and kept for the life of the provider.
type AviCommonsProvider struct {
	client  *httpclient.Client
	baseURL string
	size    string

	loadOnce  sync.Once
	loadErr   error
	byCode    map[string]*aviCommonsEntry
	bySciName map[string]*aviCommonsEntry
}

// NewAviCommonsProvider creates a provider against the public Avicommons host.
func NewAviCommonsProvider(client *httpclient.Client) *AviCommonsProvider {
	return &AviCommonsProvider{
		client:  client,
		baseURL: aviCommonsBaseURL,
		size:    aviCommonsDefaultSize,
	}
}

// SetBaseURL overrides the dataset host, for tests.
func (p *AviCommonsProvider) SetBaseURL(baseURL string) {
	p.baseURL = strings.TrimRight(baseURL, "/")
}

// load downloads and indexes the dataset. Runs at most once; a failed load is
// sticky so every lookup reports the same error instead of re-downloading.
func (p *AviCommonsProvider) load(ctx context.Context) error {
	p.loadOnce.Do(func() {
		url := p.baseURL + "/latest.json"
		logger.Info("loading species photo index", "provider", aviCommonsProviderName, "url", url)

		resp, err := p.client.Get(ctx, url)
		if err != nil {
			p.loadErr = errors.New(err).
				Category(errors.CategoryImageFetch).
				Component("imageprovider").
				Context("provider", aviCommonsProviderName).
				Build()
			return
		}
		defer func() {
			if err := resp.Body.Close(); err != nil {
				logger.Debug("failed to close response body", "error", err)
			}
		}()

		if resp.StatusCode != http.StatusOK {
			p.loadErr = errors.Newf("photo index request returned status %d", resp.StatusCode).
				Category(errors.CategoryImageFetch).
				Component("imageprovider").
				Context("provider", aviCommonsProviderName).
				Build()
			return
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			p.loadErr = errors.New(err).
				Category(errors.CategoryImageFetch).
				Component("imageprovider").
				Build()
			return
		}

		var entries []aviCommonsEntry
		if err := json.Unmarshal(body, &entries); err != nil {
			p.loadErr = errors.New(err).
				Category(errors.CategoryParsing).
				Component("imageprovider").
				Context("provider", aviCommonsProviderName).
				Build()
			return
		}

		p.byCode = make(map[string]*aviCommonsEntry, len(entries))
		p.bySciName = make(map[string]*aviCommonsEntry, len(entries))
		for i := range entries {
			e := &entries[i]
			if e.Code != "" {
				p.byCode[e.Code] = e
			}
			if e.SciName != "" {
				p.bySciName[strings.ToLower(e.SciName)] = e
			}
		}
		logger.Info("species photo index loaded", "provider", aviCommonsProviderName, "entries", len(entries))
	})
	return p.loadErr
}

// Fetch implements Provider. Lookup is by species code first, falling back to
// a case-insensitive scientific name match.
func (p *AviCommonsProvider) Fetch(ctx context.Context, speciesCode, scientificName string) (Image, error) {
	if err := p.load(ctx); err != nil {
		return Image{}, err
	}

	entry, ok := p.byCode[speciesCode]
	if !ok && scientificName != "" {
		entry, ok = p.bySciName[strings.ToLower(scientificName)]
	}
	if !ok || entry.Key == "" {
		return Image{}, errors.Newf("species %s not in photo index", speciesCode).
			Category(errors.CategoryNotFound).
			Component("imageprovider").
			Context("provider", aviCommonsProviderName).
			Build()
	}

	return Image{
		URL:         fmt.Sprintf("%s/%s-%s-%s.jpg", p.baseURL, entry.Code, entry.Key, p.size),
		Attribution: attribution(entry),
	}, nil
}

// licenseNames maps Avicommons license codes to display names.
var licenseNames = map[string]string{
	"cc-by":       "CC BY",
	"cc-by-sa":    "CC BY-SA",
	"cc-by-nc":    "CC BY-NC",
	"cc-by-nc-sa": "CC BY-NC-SA",
	"cc-by-nd":    "CC BY-ND",
	"cc-by-nc-nd": "CC BY-NC-ND",
	"cc0":         "CC0",
}

func attribution(e *aviCommonsEntry) string {
	if e.By == "" {
		return ""
	}
	name, ok := licenseNames[e.License]
	if !ok {
		name = e.License
	}
	if name == "" {
		return e.By
	}
	return fmt.Sprintf("%s (%s)", e.By, name)
}
