package services

import (
	"math"
	"sort"
	"strings"

	"housing-navigator/config"
	"housing-navigator/models"
)

// Scorer ranks listings against a preference profile using externally
// loaded weights.
type Scorer struct {
	weights config.ScoringWeights
}

func NewScorer(weights config.ScoringWeights) *Scorer {
	return &Scorer{weights: weights}
}

// Rank filters out listings that fail a hard preference constraint,
// scores the remainder, and returns them sorted by score descending.
// Ties break toward the lower price, then the more recent sighting.
func (s *Scorer) Rank(listings []*models.Listing, profile *models.PreferenceProfile) []*models.ScoredListing {
	scored := make([]*models.ScoredListing, 0, len(listings))
	for _, l := range listings {
		if !passesHardFilters(l, profile) {
			continue
		}
		score, breakdown := s.score(l, profile)
		scored = append(scored, &models.ScoredListing{Listing: l, Score: score, Breakdown: breakdown})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		ap, bp := priceOrMax(a.Listing), priceOrMax(b.Listing)
		if ap != bp {
			return ap < bp
		}
		return a.Listing.LastSeenAt.After(b.Listing.LastSeenAt)
	})
	return scored
}

// passesHardFilters applies the exclusion rules: over budget, or
// missing a required amenity or program. Excluded listings are never
// scored.
func passesHardFilters(l *models.Listing, p *models.PreferenceProfile) bool {
	if p.MaxPrice != nil && l.Price != nil && *l.Price > *p.MaxPrice {
		return false
	}
	for _, a := range p.RequiredAmenities {
		if !l.HasAmenity(a) {
			return false
		}
	}
	for _, prog := range p.RequiredPrograms {
		if !l.HasProgram(prog) {
			return false
		}
	}
	return true
}

func (s *Scorer) score(l *models.Listing, p *models.PreferenceProfile) (float64, map[string]float64) {
	w := s.weights
	breakdown := make(map[string]float64)

	searches := recentWindow(p.RecentSearches, w.RecentSearchWindow)

	var regionScore float64
	for _, term := range searches {
		if regionMatches(l, term.Region) {
			regionScore += w.RegionMatch
		}
	}
	if regionScore > 0 {
		breakdown["region_match"] = regionScore
	}

	for _, region := range p.PreferredRegions {
		if regionMatches(l, region) {
			breakdown["preferred_region"] = w.PreferredRegion
			break
		}
	}

	if l.Price != nil {
		for _, term := range searches {
			if term.Price == nil || *term.Price <= 0 {
				continue
			}
			diff := math.Abs(float64(*l.Price - *term.Price))
			if diff/float64(*term.Price) <= w.PriceTolerance {
				breakdown["price_proximity"] = w.PriceProximity
				break
			}
		}
	}

	if p.PreferredBedrooms != nil && l.BedroomCount != nil && *l.BedroomCount == *p.PreferredBedrooms {
		breakdown["bedroom_match"] = w.BedroomMatch
	}

	var amenityScore float64
	for _, a := range p.PreferredAmenities {
		if l.HasAmenity(a) {
			amenityScore += w.AmenityOverlap
		}
	}
	if amenityScore > w.AmenityCap {
		amenityScore = w.AmenityCap
	}
	if amenityScore > 0 {
		breakdown["amenity_overlap"] = amenityScore
	}

	if p.Coordinates != nil && l.Coordinates != nil {
		d := euclidean(*p.Coordinates, *l.Coordinates)
		switch {
		case d <= w.NearDistance:
			breakdown["coordinate_proximity"] = w.NearBonus
		case d <= w.FarDistance:
			breakdown["coordinate_proximity"] = w.FarBonus
		}
	}

	var total float64
	for _, v := range breakdown {
		total += v
	}
	return total, breakdown
}

// recentWindow returns the n most recent search terms. Searches are
// stored most-recent-last.
func recentWindow(searches []models.SearchTerm, n int) []models.SearchTerm {
	if len(searches) > n {
		return searches[len(searches)-n:]
	}
	return searches
}

// regionMatches checks a searched region string against the listing's
// region triple and address, case-insensitively.
func regionMatches(l *models.Listing, region string) bool {
	r := strings.ToLower(strings.TrimSpace(region))
	if r == "" {
		return false
	}
	if strings.ToLower(l.Region.City) == r || strings.ToLower(l.Region.State) == r {
		return true
	}
	return strings.Contains(strings.ToLower(l.Address), r)
}

// euclidean is a flat-plane distance over raw degrees. Fine at NYC
// scale where the proximity thresholds live.
func euclidean(a, b models.Coordinates) float64 {
	dlat := a.Latitude - b.Latitude
	dlng := a.Longitude - b.Longitude
	return math.Sqrt(dlat*dlat + dlng*dlng)
}

func priceOrMax(l *models.Listing) int64 {
	if l.Price == nil {
		return math.MaxInt64
	}
	return *l.Price
}
