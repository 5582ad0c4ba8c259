package services

import (
	"testing"

	"housing-navigator/models"
)

func TestSynthesizerDeterministic(t *testing.T) {
	s := NewSynthesizer()

	a := s.Generate("Brooklyn", 2000, intPtr(1), 5)
	b := s.Generate("Brooklyn", 2000, intPtr(1), 5)

	if len(a) != 5 || len(b) != 5 {
		t.Fatalf("Expected 5 listings per run, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i].IdentityKey != b[i].IdentityKey {
			t.Errorf("Run mismatch at %d: %s vs %s", i, a[i].IdentityKey, b[i].IdentityKey)
		}
		if a[i].Title != b[i].Title || *a[i].Price != *b[i].Price {
			t.Errorf("Run mismatch at %d: %q/%d vs %q/%d", i, a[i].Title, *a[i].Price, b[i].Title, *b[i].Price)
		}
	}

	other := s.Generate("Queens", 2000, intPtr(1), 5)
	same := true
	for i := range a {
		if a[i].IdentityKey != other[i].IdentityKey {
			same = false
		}
	}
	if same {
		t.Error("Different region should change the generated records")
	}
}

func TestSynthesizerHonorsConstraints(t *testing.T) {
	s := NewSynthesizer()

	for _, l := range s.Generate("Bronx", 1600, intPtr(2), 8) {
		if l.Confidence != models.ConfidenceSynthetic {
			t.Errorf("Listing %q not tagged synthetic", l.Title)
		}
		if l.Price == nil || *l.Price > 1600 || *l.Price < 500 {
			t.Errorf("Listing %q price out of bounds: %v", l.Title, l.Price)
		}
		if l.BedroomCount == nil || *l.BedroomCount != 2 {
			t.Errorf("Listing %q ignored bedroom constraint: %v", l.Title, l.BedroomCount)
		}
		if l.IdentityKey == "" {
			t.Errorf("Listing %q missing identity key", l.Title)
		}
	}
}

func TestSynthesizerStudioLabel(t *testing.T) {
	s := NewSynthesizer()
	studio := models.StudioBedrooms

	for _, l := range s.Generate("Manhattan", 0, &studio, 3) {
		if l.Title[:6] != "Studio" {
			t.Errorf("Expected studio title, got %q", l.Title)
		}
	}
}
