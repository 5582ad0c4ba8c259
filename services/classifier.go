package services

import (
	"sort"
	"strings"

	"housing-navigator/config"
)

// UnspecifiedProgram is emitted in strict mode when a generic voucher
// phrase matched but no specific program keyword did.
const UnspecifiedProgram = "Unspecified"

// Classifier tags listings with voucher-program and amenity keywords from
// an externally loaded taxonomy.
type Classifier struct {
	taxonomy *config.Taxonomy
	// strict disables the default-program fallback on generic voucher
	// phrases, trading recall for precision.
	strict bool
}

// NewClassifier creates a Classifier over the given taxonomy.
func NewClassifier(taxonomy *config.Taxonomy, strict bool) *Classifier {
	return &Classifier{taxonomy: taxonomy, strict: strict}
}

// Classify scans title + description and returns matched program tags and
// amenity tags. Keyword matching is case-insensitive and boundary-aware,
// so "CityFHEPS" does not also tag FHEPS. Amenity mentions preceded by a
// negation word ("no pets") do not tag. Both result sets are sorted for
// deterministic output.
//
// A generic "vouchers accepted" phrase with no specific program match
// emits the taxonomy's default program (the most common one), a known
// recall-over-precision trade-off, or UnspecifiedProgram in strict mode.
func (c *Classifier) Classify(title, description string) (programs, amenities []string) {
	text := strings.ToLower(title + " " + description)

	for program, keywords := range c.taxonomy.Programs {
		for _, kw := range keywords {
			if containsKeyword(text, strings.ToLower(kw)) {
				programs = append(programs, program)
				break
			}
		}
	}

	if len(programs) == 0 {
		for _, phrase := range c.taxonomy.GenericPhrases {
			if strings.Contains(text, strings.ToLower(phrase)) {
				if c.strict {
					programs = append(programs, UnspecifiedProgram)
				} else {
					programs = append(programs, c.taxonomy.DefaultProgram)
				}
				break
			}
		}
	}

	for _, amenity := range c.taxonomy.Amenities {
		if matchesAmenity(text, strings.ToLower(amenity)) {
			amenities = append(amenities, amenity)
		}
	}

	sort.Strings(programs)
	sort.Strings(amenities)
	return programs, amenities
}

// containsKeyword reports whether kw occurs in text on word boundaries.
// Plain substring matching would tag FHEPS inside "cityfheps".
func containsKeyword(text, kw string) bool {
	for start := 0; ; {
		idx := strings.Index(text[start:], kw)
		if idx < 0 {
			return false
		}
		idx += start

		before := idx == 0 || !isWordByte(text[idx-1])
		end := idx + len(kw)
		after := end >= len(text) || !isWordByte(text[end])
		if before && after {
			return true
		}
		start = idx + 1
	}
}

// matchesAmenity is containsKeyword plus negation handling: a mention
// directly preceded by "no", "not", or "without" does not count.
func matchesAmenity(text, kw string) bool {
	for start := 0; ; {
		idx := strings.Index(text[start:], kw)
		if idx < 0 {
			return false
		}
		idx += start

		before := idx == 0 || !isWordByte(text[idx-1])
		end := idx + len(kw)
		after := end >= len(text) || !isWordByte(text[end])
		if before && after && !negatedBefore(text[:idx]) {
			return true
		}
		start = idx + 1
	}
}

var negationWords = []string{"no", "not", "without"}

// negatedBefore reports whether the text leading up to a keyword ends in
// a negation word.
func negatedBefore(prefix string) bool {
	trimmed := strings.TrimRight(prefix, " \t")
	for _, neg := range negationWords {
		if !strings.HasSuffix(trimmed, neg) {
			continue
		}
		boundary := len(trimmed) - len(neg)
		if boundary == 0 || !isWordByte(trimmed[boundary-1]) {
			return true
		}
	}
	return false
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
