package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Field roles a selector group can resolve. Selector configuration maps
// each role to an ordered list of CSS selector alternatives.
const (
	RoleTitle       = "title"
	RoleAddress     = "address"
	RolePrice       = "price"
	RoleBedrooms    = "bedrooms"
	RoleBathrooms   = "bathrooms"
	RoleArea        = "area"
	RoleDate        = "date"
	RoleDescription = "description"
	RoleURL         = "url"
	RoleImage       = "image"
)

// SelectorGroup is one candidate page layout: ordered container selectors
// plus, per field role, ordered field-selector alternatives. Groups are
// tried in priority order; the first one that locates at least one
// container wins.
type SelectorGroup struct {
	Name      string              `yaml:"name"`
	Container []string            `yaml:"container"`
	Fields    map[string][]string `yaml:"fields"`
}

// SourceConfig describes one external listing site. Adding a site layout
// means adding configuration here, not code.
type SourceConfig struct {
	Name string `yaml:"name"`
	// Mode selects the fetch strategy: "static" (plain HTTP + parser) or
	// "rendered" (headless Chrome for JS-heavy pages).
	Mode string `yaml:"mode"`
	// SearchURL is a template with %s for the region slug and %d for the
	// page number.
	SearchURL string          `yaml:"search_url"`
	Groups    []SelectorGroup `yaml:"selector_groups"`
}

type sourcesFile struct {
	Sources []SourceConfig `yaml:"sources"`
}

// LoadSources reads per-source selector-group configuration from a YAML file.
func LoadSources(path string) ([]SourceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sources config: read %q: %w", path, err)
	}

	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("sources config: parse %q: %w", path, err)
	}

	for _, src := range f.Sources {
		if src.Name == "" || src.SearchURL == "" || len(src.Groups) == 0 {
			return nil, fmt.Errorf("sources config: source %q incomplete", src.Name)
		}
	}
	return f.Sources, nil
}

// Taxonomy is the keyword data driving the voucher/amenity classifier.
type Taxonomy struct {
	// Programs maps a program tag to its synonym phrases.
	Programs map[string][]string `yaml:"programs"`
	// GenericPhrases indicate voucher acceptance without naming a program.
	GenericPhrases []string `yaml:"generic_phrases"`
	// DefaultProgram is emitted when only a generic phrase matched.
	DefaultProgram string `yaml:"default_program"`
	// Amenities are matched as case-insensitive substrings.
	Amenities []string `yaml:"amenities"`
}

// LoadTaxonomy reads the classifier keyword taxonomy from a YAML file.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("taxonomy config: read %q: %w", path, err)
	}

	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("taxonomy config: parse %q: %w", path, err)
	}
	if len(t.Programs) == 0 {
		return nil, fmt.Errorf("taxonomy config: %q defines no programs", path)
	}
	if t.DefaultProgram == "" {
		t.DefaultProgram = mostCommonProgram
	}
	return &t, nil
}

const mostCommonProgram = "Section 8"

// DefaultTaxonomy returns the built-in NYC voucher/amenity keyword set,
// used when no taxonomy file is configured.
func DefaultTaxonomy() *Taxonomy {
	return &Taxonomy{
		Programs: map[string][]string{
			"Section 8": {"section 8", "section eight", "housing choice voucher", "hcv"},
			"CityFHEPS": {"cityfheps", "city fheps", "nyc fheps"},
			"FHEPS":     {"fheps", "family homelessness", "eviction prevention supplement"},
			"HASA":      {"hasa", "hiv/aids services", "aids services"},
		},
		GenericPhrases: []string{"vouchers accepted", "voucher accepted", "vouchers welcome"},
		DefaultProgram: mostCommonProgram,
		Amenities: []string{
			"Laundry", "Dishwasher", "Elevator", "Hardwood", "No Fee", "Doorman",
			"Gym", "Pets", "Parking", "Storage", "Balcony", "Roof",
		},
	}
}

// ScoringWeights holds every tunable constant of the ranking engine.
// All of them can be changed without touching scoring control flow.
type ScoringWeights struct {
	// RegionMatch is added once per recent search whose region matches.
	RegionMatch float64 `yaml:"region_match"`
	// PreferredRegion is added once when the listing falls in any of the
	// profile's preferred regions.
	PreferredRegion float64 `yaml:"preferred_region"`
	// RecentSearchWindow bounds how many most-recent searches are scanned.
	RecentSearchWindow int `yaml:"recent_search_window"`
	// PriceProximity is added when the listing price is within
	// PriceTolerance (relative) of a previously searched price.
	PriceProximity float64 `yaml:"price_proximity"`
	PriceTolerance float64 `yaml:"price_tolerance"`
	// BedroomMatch is added on an exact bedroom-count match.
	BedroomMatch float64 `yaml:"bedroom_match"`
	// AmenityOverlap is added per matched amenity, up to AmenityCap.
	AmenityOverlap float64 `yaml:"amenity_overlap"`
	AmenityCap     float64 `yaml:"amenity_cap"`
	// Two-tier coordinate proximity bonus. Distances are Euclidean over
	// raw lat/lng degrees — an approximation, not great-circle math.
	NearDistance float64 `yaml:"near_distance"`
	NearBonus    float64 `yaml:"near_bonus"`
	FarDistance  float64 `yaml:"far_distance"`
	FarBonus     float64 `yaml:"far_bonus"`
}

// DefaultScoringWeights returns the tuned defaults.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		RegionMatch:        10,
		PreferredRegion:    10,
		RecentSearchWindow: 5,
		PriceProximity:     15,
		PriceTolerance:     0.10,
		BedroomMatch:       10,
		AmenityOverlap:     5,
		AmenityCap:         20,
		NearDistance:       0.05,
		NearBonus:          20,
		FarDistance:        0.15,
		FarBonus:           10,
	}
}

// LoadScoringWeights reads ranking weights from a YAML file, falling back
// to defaults for fields left at zero.
func LoadScoringWeights(path string) (ScoringWeights, error) {
	w := DefaultScoringWeights()

	data, err := os.ReadFile(path)
	if err != nil {
		return w, fmt.Errorf("scoring config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &w); err != nil {
		return w, fmt.Errorf("scoring config: parse %q: %w", path, err)
	}

	def := DefaultScoringWeights()
	if w.RecentSearchWindow <= 0 {
		w.RecentSearchWindow = def.RecentSearchWindow
	}
	if w.PriceTolerance <= 0 {
		w.PriceTolerance = def.PriceTolerance
	}
	return w, nil
}
