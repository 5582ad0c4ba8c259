// Package rendered implements the source adapter for JavaScript-heavy
// sites. A headless Chrome session renders each page, the resulting HTML
// is captured once, and field extraction runs through the same resolver
// the static adapter uses.
package rendered

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"housing-navigator/config"
	"housing-navigator/models"
	"housing-navigator/scraper"
	"housing-navigator/utils"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Adapter scrapes a JS-rendered listing site through headless Chrome.
type Adapter struct {
	source    config.SourceConfig
	resolver  *scraper.Resolver
	retry     *utils.RetryConfig
	logger    *utils.Logger
	chromeBin string
}

// New creates a rendered Adapter. chromeBin optionally points at a
// Chrome binary; empty means chromedp's default lookup.
func New(source config.SourceConfig, retry *utils.RetryConfig, logger *utils.Logger, chromeBin string) *Adapter {
	return &Adapter{
		source:    source,
		resolver:  scraper.NewResolver(source.Groups, logger),
		retry:     retry,
		logger:    logger,
		chromeBin: chromeBin,
	}
}

func (a *Adapter) Name() string { return a.source.Name }

// Scrape renders result pages in order. The browser session is torn down
// on every exit path, success or failure.
func (a *Adapter) Scrape(ctx context.Context, region string, maxPages int) ([]*models.RawListing, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(userAgent),
	)
	if a.chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(a.chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var all []*models.RawListing
	for page := 1; page <= maxPages; page++ {
		pageURL := a.pageURL(region, page)
		a.logger.Info("[%s] Rendering page %d: %s", a.source.Name, page, pageURL)

		var raw []*models.RawListing
		err := a.retry.Do(ctx, fmt.Sprintf("%s page %d", a.source.Name, page), func() error {
			html, renderErr := a.renderPage(browserCtx, pageURL)
			if renderErr != nil {
				return fmt.Errorf("%w: %v", models.ErrNetwork, renderErr)
			}
			var resolveErr error
			raw, resolveErr = a.resolvePage(html)
			if errors.Is(resolveErr, models.ErrNoContainerMatch) || errors.Is(resolveErr, models.ErrNoFieldMatch) {
				// Markup drift is deterministic; retrying cannot help.
				return utils.Permanent(resolveErr)
			}
			return resolveErr
		})
		if err != nil {
			if errors.Is(err, models.ErrNoContainerMatch) && page > 1 {
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

// renderPage navigates, waits for the page to settle, and captures the
// rendered HTML in one round trip.
func (a *Adapter) renderPage(browserCtx context.Context, pageURL string) (string, error) {
	tabCtx, cancel := context.WithTimeout(browserCtx, 60*time.Second)
	defer cancel()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.Evaluate(`Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`, nil),
		chromedp.Sleep(3*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", err
	}
	return html, nil
}

func (a *Adapter) resolvePage(html string) ([]*models.RawListing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse rendered html: %w", err)
	}
	return a.resolver.Resolve(doc, a.source.Name)
}
