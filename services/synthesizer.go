package services

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sort"
	"time"

	"housing-navigator/models"
)

// Pools the synthesizer draws from. Kept small and NYC-flavored so
// generated records look plausible next to scraped ones.
var (
	synthNeighborhoods = []string{
		"Astoria", "Bushwick", "Harlem", "Bed-Stuy", "Jackson Heights",
		"Crown Heights", "Washington Heights", "Flatbush", "Sunset Park",
		"South Bronx", "Ridgewood", "East New York",
	}
	synthStreets = []string{
		"Broadway", "Ocean Ave", "Grand St", "Myrtle Ave", "Nostrand Ave",
		"Fulton St", "Atlantic Ave", "Knickerbocker Ave", "Westchester Ave",
	}
	synthAmenities = []string{
		"Laundry In Building", "Dishwasher", "Elevator", "Hardwood Floors",
		"No Fee", "Pets Allowed", "Heat Included",
	}
	synthPrograms = []string{"Section 8", "CityFHEPS", "FHEPS", "HASA"}
)

// Synthesizer generates placeholder listings when every live source
// fails. Output is deterministic for a given request, so repeated
// fallbacks do not flood the store with near-duplicates.
type Synthesizer struct{}

func NewSynthesizer() *Synthesizer {
	return &Synthesizer{}
}

// Generate produces count synthetic listings for the requested region
// and constraints. Every record is tagged ConfidenceSynthetic.
func (s *Synthesizer) Generate(region string, maxPrice int64, bedrooms *int, count int) []*models.Listing {
	rng := rand.New(rand.NewSource(seedFor(region, maxPrice, bedrooms)))
	now := time.Now().UTC()

	out := make([]*models.Listing, 0, count)
	for i := 0; i < count; i++ {
		beds := rng.Intn(4)
		if bedrooms != nil {
			beds = *bedrooms
		}

		price := syntheticPrice(rng, maxPrice, beds)
		hood := synthNeighborhoods[rng.Intn(len(synthNeighborhoods))]
		street := synthStreets[rng.Intn(len(synthStreets))]
		streetNo := 10 + rng.Intn(990)

		title := fmt.Sprintf("%s in %s", bedroomLabel(beds), hood)
		address := fmt.Sprintf("%d %s, %s, NY", streetNo, street, hood)

		amenities := pickSome(rng, synthAmenities, 1+rng.Intn(3))
		programs := pickSome(rng, synthPrograms, 1+rng.Intn(2))

		bathrooms := 1.0
		if beds >= 2 && rng.Intn(2) == 0 {
			bathrooms = 1.5
		}
		area := math.Round((float64(28+beds*18)+rng.Float64()*12)*100) / 100
		available := now.AddDate(0, 0, rng.Intn(45)).Truncate(24 * time.Hour)

		l := &models.Listing{
			Title:            title,
			Address:          address,
			Region:           models.Region{City: "New York", State: "NY", Country: "USA"},
			Price:            &price,
			BedroomCount:     &beds,
			BathroomCount:    &bathrooms,
			Area:             &area,
			AcceptedPrograms: programs,
			Amenities:        amenities,
			AvailableFrom:    &available,
			Description:      fmt.Sprintf("%s apartment in %s. Vouchers accepted, contact for a viewing.", bedroomLabel(beds), hood),
			SourceName:       "synthesized",
			Confidence:       models.ConfidenceSynthetic,
			LastSeenAt:       now,
		}
		l.IdentityKey = IdentityKey(l.Title, l.Address, l.BedroomCount, l.Price)
		out = append(out, l)
	}
	return out
}

// seedFor hashes the request parameters so the same request always
// produces the same records.
func seedFor(region string, maxPrice int64, bedrooms *int) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%d|", region, maxPrice)
	if bedrooms != nil {
		fmt.Fprintf(h, "%d", *bedrooms)
	}
	return int64(h.Sum64())
}

func syntheticPrice(rng *rand.Rand, maxPrice int64, beds int) int64 {
	base := int64(1100 + beds*450)
	price := base + int64(rng.Intn(400))
	if maxPrice > 0 && price > maxPrice {
		price = maxPrice - int64(rng.Intn(200))
		if price < 500 {
			price = 500
		}
	}
	return price
}

func bedroomLabel(beds int) string {
	if beds == models.StudioBedrooms {
		return "Studio"
	}
	return fmt.Sprintf("%dBR", beds)
}

func pickSome(rng *rand.Rand, pool []string, n int) []string {
	idx := rng.Perm(len(pool))
	if n > len(pool) {
		n = len(pool)
	}
	out := make([]string, 0, n)
	for _, i := range idx[:n] {
		out = append(out, pool[i])
	}
	sort.Strings(out)
	return out
}
