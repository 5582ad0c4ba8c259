package models

import "time"

// StudioBedrooms is the bedroom-count sentinel for studio apartments.
// Studios normalize to 0 so the identity key stays deterministic.
const StudioBedrooms = 0

// Confidence describes how a listing's fields were obtained.
type Confidence string

const (
	// ConfidenceExact means the fields came from structured extraction
	// (a primary selector alternative matched).
	ConfidenceExact Confidence = "exact"
	// ConfidenceHeuristic means a fallback selector or best-effort text
	// parse produced the fields.
	ConfidenceHeuristic Confidence = "heuristic"
	// ConfidenceSynthetic marks placeholder records from the synthesizer.
	ConfidenceSynthetic Confidence = "synthetic"
)

// Region is the city/state/country triple attached to a listing.
type Region struct {
	City    string `json:"city" yaml:"city"`
	State   string `json:"state" yaml:"state"`
	Country string `json:"country" yaml:"country"`
}

// Coordinates holds raw latitude/longitude when a source exposes them.
// Distance math over these is a flat Euclidean approximation, not a
// great-circle distance.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RawListing holds unprocessed field strings exactly as extracted from
// page content. This is written to CSV before any normalization.
type RawListing struct {
	Title        string
	Address      string
	RawPrice     string
	RawBedrooms  string
	RawBathrooms string
	RawArea      string
	RawDate      string
	Description  string
	URL          string
	ImageURL     string
	SourceName   string
	Confidence   Confidence
	ScrapedAt    time.Time
}

// Listing is the canonical normalized record.
type Listing struct {
	IdentityKey      string       `json:"identity_key"`
	Title            string       `json:"title"`
	Address          string       `json:"address"`
	Region           Region       `json:"region"`
	Price            *int64       `json:"price"`
	BedroomCount     *int         `json:"bedroom_count"`
	BathroomCount    *float64     `json:"bathroom_count"`
	Area             *float64     `json:"area"`
	AcceptedPrograms []string     `json:"accepted_programs"`
	Amenities        []string     `json:"amenities"`
	AvailableFrom    *time.Time   `json:"available_from"`
	Description      string       `json:"description,omitempty"`
	SourceName       string       `json:"source_name"`
	SourceURL        string       `json:"source_url"`
	ImageURL         string       `json:"image_url,omitempty"`
	Coordinates      *Coordinates `json:"coordinates,omitempty"`
	Confidence       Confidence   `json:"extraction_confidence"`
	LastSeenAt       time.Time    `json:"last_seen_at"`
}

// IsStudio reports whether the listing is a studio.
func (l *Listing) IsStudio() bool {
	return l.BedroomCount != nil && *l.BedroomCount == StudioBedrooms
}

// HasProgram reports whether the listing accepts the given program tag.
func (l *Listing) HasProgram(program string) bool {
	for _, p := range l.AcceptedPrograms {
		if p == program {
			return true
		}
	}
	return false
}

// HasAmenity reports whether the listing carries the given amenity tag.
func (l *Listing) HasAmenity(amenity string) bool {
	for _, a := range l.Amenities {
		if a == amenity {
			return true
		}
	}
	return false
}

// SearchTerm is one remembered search: the region string the requester
// asked for and, when known, the price they searched around.
type SearchTerm struct {
	Region     string    `json:"region"`
	Price      *int64    `json:"price,omitempty"`
	SearchedAt time.Time `json:"searched_at"`
}

// MaxRecentSearches bounds the search history kept on a profile.
// Oldest entries are trimmed first; most recent is last.
const MaxRecentSearches = 10

// PreferenceProfile captures a requester's accumulated preferences.
// Subsequent submissions merge into an existing profile; they never
// replace it wholesale.
type PreferenceProfile struct {
	MaxPrice           *int64       `json:"max_price,omitempty"`
	PreferredBedrooms  *int         `json:"preferred_bedrooms,omitempty"`
	RequiredAmenities  []string     `json:"required_amenities,omitempty"`
	PreferredAmenities []string     `json:"preferred_amenities,omitempty"`
	RequiredPrograms   []string     `json:"required_programs,omitempty"`
	PreferredRegions   []string     `json:"preferred_regions,omitempty"`
	RecentSearches     []SearchTerm `json:"recent_searches,omitempty"`
	Coordinates        *Coordinates `json:"coordinates,omitempty"`
}

// Merge folds an incoming submission into the profile. Non-nil scalar
// fields win; set fields are unioned; searches append most-recent-last
// and trim oldest-first past MaxRecentSearches.
func (p *PreferenceProfile) Merge(in PreferenceProfile) {
	if in.MaxPrice != nil {
		p.MaxPrice = in.MaxPrice
	}
	if in.PreferredBedrooms != nil {
		p.PreferredBedrooms = in.PreferredBedrooms
	}
	if in.Coordinates != nil {
		p.Coordinates = in.Coordinates
	}
	p.RequiredAmenities = unionStrings(p.RequiredAmenities, in.RequiredAmenities)
	p.PreferredAmenities = unionStrings(p.PreferredAmenities, in.PreferredAmenities)
	p.RequiredPrograms = unionStrings(p.RequiredPrograms, in.RequiredPrograms)
	if len(in.PreferredRegions) > 0 {
		p.PreferredRegions = in.PreferredRegions
	}
	p.RecentSearches = append(p.RecentSearches, in.RecentSearches...)
	if over := len(p.RecentSearches) - MaxRecentSearches; over > 0 {
		p.RecentSearches = p.RecentSearches[over:]
	}
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if _, dup := seen[s]; !dup {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	for _, s := range b {
		if _, dup := seen[s]; !dup {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// ScoredListing pairs a listing with its computed score. Always derived
// on demand, never stored.
type ScoredListing struct {
	Listing   *Listing           `json:"listing"`
	Score     float64            `json:"score"`
	Breakdown map[string]float64 `json:"score_breakdown"`
}
