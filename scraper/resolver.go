package scraper

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"housing-navigator/config"
	"housing-navigator/models"
	"housing-navigator/utils"
)

// Resolver locates listing elements in parsed page content using
// cascading selector groups. Groups are tried in configuration order;
// inside the winning group, each field role tries its selector
// alternatives in order. The resolver is deterministic: the same content
// and configuration always produce the same records.
type Resolver struct {
	groups []config.SelectorGroup
	logger *utils.Logger
}

// NewResolver creates a Resolver over the given selector groups.
func NewResolver(groups []config.SelectorGroup, logger *utils.Logger) *Resolver {
	return &Resolver{groups: groups, logger: logger}
}

// Resolve extracts raw listings from the document. It returns
// models.ErrNoContainerMatch when no group locates any container, so the
// caller can distinguish markup drift from an empty results page.
func (r *Resolver) Resolve(doc *goquery.Document, sourceName string) ([]*models.RawListing, error) {
	for _, group := range r.groups {
		containers := findContainers(doc, group.Container)
		if containers == nil || containers.Length() == 0 {
			r.logger.Debug("[resolver] Group %q matched no containers on %s", group.Name, sourceName)
			continue
		}

		r.logger.Info("[resolver] Source %s: group %q matched %d containers",
			sourceName, group.Name, containers.Length())
		raw := r.extractAll(containers, group, sourceName)
		if len(raw) == 0 {
			return nil, fmt.Errorf("source %s: group %q: %d containers, zero usable records: %w",
				sourceName, group.Name, containers.Length(), models.ErrNoFieldMatch)
		}
		return raw, nil
	}

	return nil, fmt.Errorf("source %s: tried %d selector groups: %w",
		sourceName, len(r.groups), models.ErrNoContainerMatch)
}

// findContainers tries the container alternatives in order and returns
// the first non-empty selection.
func findContainers(doc *goquery.Document, selectors []string) *goquery.Selection {
	for _, sel := range selectors {
		if s := doc.Find(sel); s.Length() > 0 {
			return s
		}
	}
	return nil
}

func (r *Resolver) extractAll(containers *goquery.Selection, group config.SelectorGroup, sourceName string) []*models.RawListing {
	now := time.Now().UTC()
	out := make([]*models.RawListing, 0, containers.Length())

	containers.Each(func(_ int, el *goquery.Selection) {
		raw, ok := r.extractOne(el, group, sourceName, now)
		if !ok {
			r.logger.Debug("[resolver] Skipping container with no usable fields on %s", sourceName)
			return
		}
		out = append(out, raw)
	})
	return out
}

// extractOne resolves each field role inside one container element.
// Confidence is Exact when both title and price came from their first
// selector alternative, Heuristic when any field needed a fallback.
func (r *Resolver) extractOne(el *goquery.Selection, group config.SelectorGroup, sourceName string, now time.Time) (*models.RawListing, bool) {
	fallbackUsed := false

	field := func(role string) string {
		value, idx := resolveField(el, group.Fields[role], role)
		if value != "" && idx > 0 {
			fallbackUsed = true
		}
		return value
	}

	raw := &models.RawListing{
		Title:        field(config.RoleTitle),
		Address:      field(config.RoleAddress),
		RawPrice:     field(config.RolePrice),
		RawBedrooms:  field(config.RoleBedrooms),
		RawBathrooms: field(config.RoleBathrooms),
		RawArea:      field(config.RoleArea),
		RawDate:      field(config.RoleDate),
		Description:  field(config.RoleDescription),
		URL:          field(config.RoleURL),
		ImageURL:     field(config.RoleImage),
		SourceName:   sourceName,
		ScrapedAt:    now,
	}

	if raw.Title == "" && raw.Address == "" && raw.RawPrice == "" {
		return nil, false
	}

	raw.Confidence = models.ConfidenceExact
	if fallbackUsed {
		raw.Confidence = models.ConfidenceHeuristic
	}
	return raw, true
}

// resolveField tries each selector alternative in order and returns the
// first non-empty value plus the index of the alternative that produced
// it. Link roles read href/src attributes; everything else reads text.
func resolveField(el *goquery.Selection, selectors []string, role string) (string, int) {
	for i, sel := range selectors {
		found := el.Find(sel).First()
		if found.Length() == 0 {
			continue
		}

		var value string
		switch role {
		case config.RoleURL:
			value, _ = found.Attr("href")
		case config.RoleImage:
			value, _ = found.Attr("src")
		default:
			value = strings.TrimSpace(found.Text())
		}
		if value != "" {
			return value, i
		}
	}
	return "", -1
}
