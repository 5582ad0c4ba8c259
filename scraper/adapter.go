package scraper

import (
	"context"

	"housing-navigator/models"
)

// Adapter fetches raw listings from one external source. Implementations
// differ only in how they obtain page content; field extraction is shared
// through the Resolver.
type Adapter interface {
	// Name returns the configured source name.
	Name() string
	// Scrape fetches up to maxPages of results for the region and returns
	// raw field extractions. An empty slice with a nil error means the
	// source answered but had nothing to offer.
	Scrape(ctx context.Context, region string, maxPages int) ([]*models.RawListing, error)
}
