package services

import (
	"context"
	"sort"

	"housing-navigator/storage"
	"housing-navigator/utils"
)

// InsightService summarizes the stored listing corpus.
type InsightService struct {
	store  storage.ListingStore
	logger *utils.Logger
}

func NewInsightService(store storage.ListingStore, logger *utils.Logger) *InsightService {
	return &InsightService{store: store, logger: logger}
}

// Report is a snapshot of the stored corpus.
type Report struct {
	TotalListings int            `json:"total_listings"`
	BySource      map[string]int `json:"by_source"`
	ByConfidence  map[string]int `json:"by_confidence"`
	ByProgram     map[string]int `json:"by_program"`
	AveragePrice  float64        `json:"average_price"`
	MedianPrice   int64          `json:"median_price"`
	TopAmenities  []string       `json:"top_amenities"`
}

// Generate builds a Report from all active stored listings.
func (s *InsightService) Generate(ctx context.Context) (*Report, error) {
	listings, err := s.store.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	r := &Report{
		TotalListings: len(listings),
		BySource:      make(map[string]int),
		ByConfidence:  make(map[string]int),
		ByProgram:     make(map[string]int),
	}

	var prices []int64
	amenityCounts := make(map[string]int)

	for _, l := range listings {
		r.BySource[l.SourceName]++
		r.ByConfidence[string(l.Confidence)]++
		for _, p := range l.AcceptedPrograms {
			r.ByProgram[p]++
		}
		for _, a := range l.Amenities {
			amenityCounts[a]++
		}
		if l.Price != nil {
			prices = append(prices, *l.Price)
		}
	}

	if len(prices) > 0 {
		var sum int64
		for _, p := range prices {
			sum += p
		}
		r.AveragePrice = float64(sum) / float64(len(prices))

		sort.Slice(prices, func(i, j int) bool { return prices[i] < prices[j] })
		r.MedianPrice = prices[len(prices)/2]
	}

	r.TopAmenities = topKeys(amenityCounts, 5)

	s.logger.Info("[insights] %d listings, %d priced, %d sources",
		r.TotalListings, len(prices), len(r.BySource))
	return r, nil
}

// topKeys returns the n most frequent keys, count descending with
// alphabetical tie-break.
func topKeys(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
