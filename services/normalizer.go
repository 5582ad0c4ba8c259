package services

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"housing-navigator/models"
	"housing-navigator/utils"
)

var (
	// priceRegexp captures the first numeric money token, commas allowed
	priceRegexp = regexp.MustCompile(`[\d,]+(?:\.\d+)?`)
	// areaRegexp captures the first numeric token of an area string
	areaRegexp = regexp.MustCompile(`[\d,]+(?:\.\d+)?`)
	// bedroomRegexp captures an integer adjacent to a bedroom token
	bedroomRegexp = regexp.MustCompile(`(?i)(\d+)\s*(?:bed(?:room)?s?|br|bd)\b`)
	// bathroomRegexp captures a possibly-fractional bathroom count
	bathroomRegexp = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:bath(?:room)?s?|ba)\b`)
	// imperialRegexp detects square-feet units around an area value
	imperialRegexp = regexp.MustCompile(`(?i)sq\.?\s*\.?ft|sqft|square\s+feet|ft²`)
)

// SqFtToSqM is the fixed imperial-to-metric area conversion ratio.
const SqFtToSqM = 0.092903

// dateFormats is the fixed ordered list of accepted calendar formats.
// The first successful parse wins.
var dateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"01-02-2006",
	"02-01-2006",
	"02.01.2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// NormalizePrice extracts a positive integer dollar amount from free text.
// A decimal cents suffix is dropped. Returns nil when nothing parseable
// is present; never panics.
//
// Examples:
//
//	"$1,200"    → 1200
//	"$1,200.50" → 1200
//	"unknown"   → nil
func NormalizePrice(raw string) *int64 {
	match := priceRegexp.FindString(raw)
	if match == "" {
		return nil
	}

	cleaned := strings.ReplaceAll(match, ",", "")
	if dot := strings.IndexByte(cleaned, '.'); dot >= 0 {
		cleaned = cleaned[:dot]
	}

	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

// NormalizeDate tries each calendar format in order and returns the first
// parse as a UTC calendar date, or nil.
func NormalizeDate(raw string) *time.Time {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	for _, format := range dateFormats {
		if t, err := time.Parse(format, trimmed); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}

// NormalizeArea extracts the first numeric token as square meters.
// Square-feet values convert with the fixed SqFtToSqM ratio; results are
// rounded to 2 decimal places. Returns nil when no number is present.
func NormalizeArea(raw string) *float64 {
	match := areaRegexp.FindString(raw)
	if match == "" {
		return nil
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil || value <= 0 {
		return nil
	}

	if imperialRegexp.MatchString(raw) {
		value *= SqFtToSqM
	}

	rounded := math.Round(value*100) / 100
	return &rounded
}

// NormalizeBedrooms extracts a bedroom count. A "studio" token
// (case-insensitive) is detected before numeric extraction and maps to
// the studio sentinel. Returns nil when neither is found.
func NormalizeBedrooms(raw string) *int {
	if strings.Contains(strings.ToLower(raw), "studio") {
		studio := models.StudioBedrooms
		return &studio
	}

	match := bedroomRegexp.FindStringSubmatch(raw)
	if len(match) < 2 {
		return nil
	}
	n, err := strconv.Atoi(match[1])
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

// NormalizeBathrooms extracts a bathroom count, fractional allowed.
func NormalizeBathrooms(raw string) *float64 {
	match := bathroomRegexp.FindStringSubmatch(raw)
	if len(match) < 2 {
		return nil
	}
	v, err := strconv.ParseFloat(match[1], 64)
	if err != nil || v <= 0 {
		return nil
	}
	return &v
}

// maxArea bounds plausible listing area in square meters.
const maxArea = 10000

// Normalizer transforms RawListings into normalized, validated Listings.
type Normalizer struct {
	logger *utils.Logger
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize processes raw extractions and returns normalized records.
// Field-level parse failures yield nil fields; record-level validation
// failures drop that record only and are returned as a count.
func (n *Normalizer) Normalize(raw []*models.RawListing) ([]*models.Listing, int) {
	seen := make(map[string]struct{})
	result := make([]*models.Listing, 0, len(raw))
	dropped := 0

	for _, r := range raw {
		url := strings.TrimSpace(r.URL)
		if _, dup := seen[url]; url != "" && dup {
			n.logger.Debug("[normalizer] Duplicate URL skipped: %s", url)
			continue
		}
		if url != "" {
			seen[url] = struct{}{}
		}

		listing := &models.Listing{
			Title:         normalizeText(r.Title),
			Address:       normalizeText(r.Address),
			Region:        ExtractRegion(r.Address),
			Price:         NormalizePrice(r.RawPrice),
			BedroomCount:  NormalizeBedrooms(r.RawBedrooms),
			BathroomCount: NormalizeBathrooms(r.RawBathrooms),
			Area:          NormalizeArea(r.RawArea),
			AvailableFrom: NormalizeDate(r.RawDate),
			Description:   normalizeText(r.Description),
			SourceName:    r.SourceName,
			SourceURL:     url,
			ImageURL:      strings.TrimSpace(r.ImageURL),
			Confidence:    r.Confidence,
			LastSeenAt:    r.ScrapedAt,
		}
		if listing.Confidence == "" {
			listing.Confidence = models.ConfidenceHeuristic
		}
		if r.RawDate != "" && listing.AvailableFrom == nil {
			n.logger.Warn("[normalizer] Unparseable date %q on %s", r.RawDate, listing.Title)
		}

		if err := n.validate(listing); err != nil {
			n.logger.Warn("[normalizer] Dropping record %q: %v", listing.Title, err)
			dropped++
			continue
		}

		result = append(result, listing)
	}

	n.logger.Info("[normalizer] Normalized %d of %d raw records (dropped %d)",
		len(result), len(raw), len(raw)-len(result))
	return result, dropped
}

// validate enforces record-level invariants. A failing record is dropped;
// the batch continues.
func (n *Normalizer) validate(l *models.Listing) error {
	if l.Title == "" {
		return fmt.Errorf("missing title")
	}
	if l.Address == "" {
		return fmt.Errorf("missing address")
	}
	if l.Price != nil && *l.Price <= 0 {
		return fmt.Errorf("non-positive price %d", *l.Price)
	}
	if l.Area != nil && (*l.Area <= 0 || *l.Area > maxArea) {
		return fmt.Errorf("area %.2f out of range", *l.Area)
	}
	if l.BedroomCount != nil && *l.BedroomCount < 0 {
		return fmt.Errorf("negative bedroom count")
	}
	return nil
}

// normalizeText strips leading/trailing whitespace and collapses internal
// whitespace.
func normalizeText(s string) string {
	fields := strings.FieldsFunc(strings.TrimSpace(s), func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
