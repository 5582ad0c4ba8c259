package services

import (
	"reflect"
	"testing"

	"housing-navigator/config"
)

func TestClassifyNamedPrograms(t *testing.T) {
	c := NewClassifier(config.DefaultTaxonomy(), false)

	programs, amenities := c.Classify(
		"Section 8 OK!",
		"CityFHEPS welcome. Laundry in building, hardwood floors.",
	)

	if !reflect.DeepEqual(programs, []string{"CityFHEPS", "Section 8"}) {
		t.Errorf("Programs = %v, want [CityFHEPS Section 8]", programs)
	}
	if !reflect.DeepEqual(amenities, []string{"Hardwood", "Laundry"}) {
		t.Errorf("Amenities = %v, want [Hardwood Laundry]", amenities)
	}
}

func TestClassifyBoundariesAndNegation(t *testing.T) {
	c := NewClassifier(config.DefaultTaxonomy(), false)

	programs, amenities := c.Classify("", "Section 8 and CityFHEPS accepted, no pets")
	if !reflect.DeepEqual(programs, []string{"CityFHEPS", "Section 8"}) {
		t.Errorf("Programs = %v, want [CityFHEPS Section 8]", programs)
	}
	if len(amenities) != 0 {
		t.Errorf("Negated amenity should not tag: %v", amenities)
	}

	// The bare program name still matches on its own.
	programs, _ = c.Classify("", "FHEPS accepted")
	if !reflect.DeepEqual(programs, []string{"FHEPS"}) {
		t.Errorf("Programs = %v, want [FHEPS]", programs)
	}

	// Keyword embedded in a longer word does not tag.
	_, amenities = c.Classify("", "wall-to-wall carpets throughout")
	if len(amenities) != 0 {
		t.Errorf("Embedded keyword should not tag: %v", amenities)
	}

	// A non-negated mention after a negated one still counts.
	_, amenities = c.Classify("", "no smoking, pets welcome")
	if !reflect.DeepEqual(amenities, []string{"Pets"}) {
		t.Errorf("Amenities = %v, want [Pets]", amenities)
	}
}

func TestClassifyGenericPhraseDefaults(t *testing.T) {
	c := NewClassifier(config.DefaultTaxonomy(), false)

	programs, _ := c.Classify("Nice 1BR", "All vouchers accepted, call today.")
	if !reflect.DeepEqual(programs, []string{"Section 8"}) {
		t.Errorf("Generic phrase should emit the default program, got %v", programs)
	}
}

func TestClassifyStrictMode(t *testing.T) {
	c := NewClassifier(config.DefaultTaxonomy(), true)

	programs, _ := c.Classify("Nice 1BR", "All vouchers accepted, call today.")
	if !reflect.DeepEqual(programs, []string{UnspecifiedProgram}) {
		t.Errorf("Strict mode should emit %q, got %v", UnspecifiedProgram, programs)
	}

	// Named matches are unaffected by strict mode.
	programs, _ = c.Classify("HCV welcome", "")
	if !reflect.DeepEqual(programs, []string{"Section 8"}) {
		t.Errorf("Named synonym match broken in strict mode: %v", programs)
	}
}

func TestClassifyNoMatches(t *testing.T) {
	c := NewClassifier(config.DefaultTaxonomy(), false)

	programs, amenities := c.Classify("Plain apartment", "Nothing special here.")
	if len(programs) != 0 {
		t.Errorf("Expected no programs, got %v", programs)
	}
	if len(amenities) != 0 {
		t.Errorf("Expected no amenities, got %v", amenities)
	}
}

func TestClassifyCaseInsensitive(t *testing.T) {
	c := NewClassifier(config.DefaultTaxonomy(), false)

	programs, amenities := c.Classify("SECTION 8 AND HASA ACCEPTED", "ELEVATOR BUILDING")
	if !reflect.DeepEqual(programs, []string{"HASA", "Section 8"}) {
		t.Errorf("Programs = %v", programs)
	}
	if !reflect.DeepEqual(amenities, []string{"Elevator"}) {
		t.Errorf("Amenities = %v", amenities)
	}
}
