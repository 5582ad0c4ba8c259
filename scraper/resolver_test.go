package scraper

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"housing-navigator/config"
	"housing-navigator/models"
	"housing-navigator/utils"
)

const currentLayout = `
<html><body>
  <div class="listing-card">
    <h2 class="listing-title">1BR in Astoria</h2>
    <span class="listing-address">100 Broadway, Astoria, NY</span>
    <span class="listing-price">$1,500</span>
    <a class="listing-link" href="https://example.com/a">view</a>
  </div>
  <div class="listing-card">
    <h2 class="listing-title">2BR in Flatbush</h2>
    <span class="listing-address">9 Church Ave, Flatbush, NY</span>
    <span class="listing-price">$2,100</span>
    <a class="listing-link" href="https://example.com/b">view</a>
  </div>
</body></html>`

const legacyLayout = `
<html><body>
  <table>
    <tr class="result-row">
      <td class="result-name">Studio in Harlem</td>
      <td class="result-loc">12 W 125th St, Harlem, NY</td>
      <td class="result-rent">$1,300</td>
    </tr>
  </table>
</body></html>`

func testGroups() []config.SelectorGroup {
	return []config.SelectorGroup{
		{
			Name:      "cards",
			Container: []string{"div.listing-card"},
			Fields: map[string][]string{
				config.RoleTitle:   {"h2.listing-title", ".fallback-title"},
				config.RoleAddress: {"span.listing-address"},
				config.RolePrice:   {"span.listing-price"},
				config.RoleURL:     {"a.listing-link"},
			},
		},
		{
			Name:      "legacy-table",
			Container: []string{"tr.result-row"},
			Fields: map[string][]string{
				config.RoleTitle:   {"td.result-name"},
				config.RoleAddress: {"td.result-loc"},
				config.RolePrice:   {"td.result-rent"},
			},
		},
	}
}

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return doc
}

func TestResolvePrimaryGroup(t *testing.T) {
	r := NewResolver(testGroups(), utils.NewLogger())

	raw, err := r.Resolve(parseDoc(t, currentLayout), "testsource")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(raw) != 2 {
		t.Fatalf("Expected 2 listings, got %d", len(raw))
	}

	first := raw[0]
	if first.Title != "1BR in Astoria" || first.RawPrice != "$1,500" {
		t.Errorf("Bad extraction: %+v", first)
	}
	if first.URL != "https://example.com/a" {
		t.Errorf("URL should come from href: %q", first.URL)
	}
	if first.Confidence != models.ConfidenceExact {
		t.Errorf("First-alternative match should be Exact, got %s", first.Confidence)
	}
}

func TestResolveFallsBackToSecondGroup(t *testing.T) {
	r := NewResolver(testGroups(), utils.NewLogger())

	raw, err := r.Resolve(parseDoc(t, legacyLayout), "testsource")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(raw) != 1 {
		t.Fatalf("Expected 1 listing from the legacy group, got %d", len(raw))
	}
	if raw[0].Title != "Studio in Harlem" {
		t.Errorf("Bad extraction: %+v", raw[0])
	}
}

func TestResolveNoContainerMatch(t *testing.T) {
	r := NewResolver(testGroups(), utils.NewLogger())

	_, err := r.Resolve(parseDoc(t, "<html><body><p>redesigned</p></body></html>"), "testsource")
	if !errors.Is(err, models.ErrNoContainerMatch) {
		t.Errorf("Expected ErrNoContainerMatch, got %v", err)
	}
}

func TestResolveNoFieldMatch(t *testing.T) {
	empty := `
	<html><body>
	  <div class="listing-card"><em>advert</em></div>
	  <div class="listing-card"><em>another advert</em></div>
	</body></html>`

	r := NewResolver(testGroups(), utils.NewLogger())
	_, err := r.Resolve(parseDoc(t, empty), "testsource")
	if !errors.Is(err, models.ErrNoFieldMatch) {
		t.Errorf("Expected ErrNoFieldMatch, got %v", err)
	}
}

func TestResolveDeterministic(t *testing.T) {
	r := NewResolver(testGroups(), utils.NewLogger())

	a, err := r.Resolve(parseDoc(t, currentLayout), "testsource")
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Resolve(parseDoc(t, currentLayout), "testsource")
	if err != nil {
		t.Fatal(err)
	}

	if len(a) != len(b) {
		t.Fatalf("Run lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Title != b[i].Title || a[i].RawPrice != b[i].RawPrice || a[i].URL != b[i].URL {
			t.Errorf("Record %d differs between runs", i)
		}
	}
}

func TestResolveSkipsEmptyContainers(t *testing.T) {
	mixed := `
	<html><body>
	  <div class="listing-card">
	    <h2 class="listing-title">Real 1BR</h2>
	    <span class="listing-price">$1,400</span>
	  </div>
	  <div class="listing-card"><em>advert</em></div>
	</body></html>`

	r := NewResolver(testGroups(), utils.NewLogger())
	raw, err := r.Resolve(parseDoc(t, mixed), "testsource")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(raw) != 1 {
		t.Errorf("Empty container should be skipped, got %d records", len(raw))
	}
}

func TestResolveFieldFallbackMarksHeuristic(t *testing.T) {
	fallbackOnly := `
	<html><body>
	  <div class="listing-card">
	    <h3 class="fallback-title">Walk-up 1BR</h3>
	    <span class="listing-address">7 Suydam St, Bushwick, NY</span>
	    <span class="listing-price">$1,700</span>
	  </div>
	</body></html>`

	r := NewResolver(testGroups(), utils.NewLogger())
	raw, err := r.Resolve(parseDoc(t, fallbackOnly), "testsource")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(raw) != 1 {
		t.Fatalf("Expected 1 listing, got %d", len(raw))
	}
	if raw[0].Title != "Walk-up 1BR" {
		t.Errorf("Fallback selector not used: %+v", raw[0])
	}
	if raw[0].Confidence != models.ConfidenceHeuristic {
		t.Errorf("Fallback extraction should be Heuristic, got %s", raw[0].Confidence)
	}
}
