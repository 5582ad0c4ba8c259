package services

import (
	"context"
	"testing"
	"time"

	"housing-navigator/models"
	"housing-navigator/storage"
	"housing-navigator/utils"
)

func TestInsightsGenerate(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	seed := []*models.Listing{
		{IdentityKey: "a", Title: "1BR", Address: "x", Price: int64Ptr(1500),
			AcceptedPrograms: []string{"Section 8"}, Amenities: []string{"Laundry"},
			SourceName: "gosection8", Confidence: models.ConfidenceExact, LastSeenAt: time.Now()},
		{IdentityKey: "b", Title: "2BR", Address: "y", Price: int64Ptr(2100),
			Amenities:  []string{"Laundry", "Elevator"},
			SourceName: "craigslist", Confidence: models.ConfidenceHeuristic, LastSeenAt: time.Now()},
		{IdentityKey: "c", Title: "Studio", Address: "z",
			SourceName: "gosection8", Confidence: models.ConfidenceSynthetic, LastSeenAt: time.Now()},
	}
	for _, l := range seed {
		if _, err := store.Upsert(ctx, l); err != nil {
			t.Fatal(err)
		}
	}

	report, err := NewInsightService(store, utils.NewLogger()).Generate(ctx)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if report.TotalListings != 3 {
		t.Errorf("TotalListings = %d, want 3", report.TotalListings)
	}
	if report.BySource["gosection8"] != 2 || report.BySource["craigslist"] != 1 {
		t.Errorf("BySource = %v", report.BySource)
	}
	if report.ByConfidence["synthetic"] != 1 {
		t.Errorf("ByConfidence = %v", report.ByConfidence)
	}
	if report.ByProgram["Section 8"] != 1 {
		t.Errorf("ByProgram = %v", report.ByProgram)
	}
	if report.AveragePrice != 1800 {
		t.Errorf("AveragePrice = %f, want 1800", report.AveragePrice)
	}
	if report.MedianPrice != 2100 {
		t.Errorf("MedianPrice = %d, want 2100", report.MedianPrice)
	}
	if len(report.TopAmenities) == 0 || report.TopAmenities[0] != "Laundry" {
		t.Errorf("TopAmenities = %v", report.TopAmenities)
	}
}
