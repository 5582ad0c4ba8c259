// Package static implements the source adapter for plain-HTML sites:
// one HTTP GET per results page, parsed with goquery.
package static

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"housing-navigator/config"
	"housing-navigator/models"
	"housing-navigator/scraper"
	"housing-navigator/utils"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Adapter scrapes a statically rendered listing site.
type Adapter struct {
	source   config.SourceConfig
	resolver *scraper.Resolver
	client   *http.Client
	retry    *utils.RetryConfig
	logger   *utils.Logger
}

// New creates a static Adapter for the given source configuration.
func New(source config.SourceConfig, retry *utils.RetryConfig, logger *utils.Logger) *Adapter {
	return &Adapter{
		source:   source,
		resolver: scraper.NewResolver(source.Groups, logger),
		client:   &http.Client{Timeout: 30 * time.Second},
		retry:    retry,
		logger:   logger,
	}
}

func (a *Adapter) Name() string { return a.source.Name }

// Scrape fetches result pages in order until maxPages is reached, a page
// yields nothing, or the context expires. Records accumulated before a
// mid-run failure are returned alongside the error.
func (a *Adapter) Scrape(ctx context.Context, region string, maxPages int) ([]*models.RawListing, error) {
	var all []*models.RawListing

	for page := 1; page <= maxPages; page++ {
		pageURL := a.pageURL(region, page)
		a.logger.Info("[%s] Fetching page %d: %s", a.source.Name, page, pageURL)

		var raw []*models.RawListing
		err := a.retry.Do(ctx, fmt.Sprintf("%s page %d", a.source.Name, page), func() error {
			var fetchErr error
			raw, fetchErr = a.fetchPage(ctx, pageURL)
			if errors.Is(fetchErr, models.ErrNoContainerMatch) || errors.Is(fetchErr, models.ErrNoFieldMatch) {
				// Markup drift is deterministic; retrying cannot help.
				return utils.Permanent(fetchErr)
			}
			return fetchErr
		})
		if err != nil {
			if errors.Is(err, models.ErrNoContainerMatch) && page > 1 {
				// Pagination ran past the last page.
				break
			}
			return all, err
		}

		if len(raw) == 0 {
			break
		}
		all = append(all, raw...)
	}

	a.logger.Info("[%s] Extracted %d raw listings for %q", a.source.Name, len(all), region)
	return all, nil
}

func (a *Adapter) pageURL(region string, page int) string {
	slug := url.QueryEscape(strings.ToLower(strings.TrimSpace(region)))
	return fmt.Sprintf(a.source.SearchURL, slug, page)
}

func (a *Adapter) fetchPage(ctx context.Context, pageURL string) ([]*models.RawListing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d from %s", models.ErrNetwork, resp.StatusCode, pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}

	return a.resolver.Resolve(doc, a.source.Name)
}
