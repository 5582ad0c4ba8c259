package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"housing-navigator/config"
	"housing-navigator/engine"
	"housing-navigator/models"
	"housing-navigator/services"
	"housing-navigator/storage"
	"housing-navigator/utils"
)

func newTestServer(store *storage.MemoryStore) *Server {
	logger := utils.NewLogger()
	cfg := &config.Config{
		MaxConcurrency: 1,
		RateLimitMs:    1,
		MaxPages:       1,
		WorkerTimeoutS: 5,
		RunDeadlineS:   10,
	}
	orch := engine.NewOrchestrator(
		cfg,
		nil,
		services.NewNormalizer(logger),
		services.NewClassifier(config.DefaultTaxonomy(), false),
		services.NewDeduper(store, logger),
		services.NewSynthesizer(),
		nil,
		logger,
	)
	return NewServer(orch, store, services.NewScorer(config.DefaultScoringWeights()),
		services.NewInsightService(store, logger), logger)
}

func seedListing(t *testing.T, store *storage.MemoryStore, title string, price int64, programs []string) {
	t.Helper()
	p := price
	l := &models.Listing{
		IdentityKey:      services.IdentityKey(title, "100 Broadway, Astoria, NY", nil, &p),
		Title:            title,
		Address:          "100 Broadway, Astoria, NY",
		Region:           models.Region{City: "Astoria", State: "NY", Country: "USA"},
		Price:            &p,
		AcceptedPrograms: programs,
		Confidence:       models.ConfidenceExact,
		LastSeenAt:       time.Now().UTC(),
	}
	if _, err := store.Upsert(context.Background(), l); err != nil {
		t.Fatal(err)
	}
}

func TestScrapeEndpointSynthesizesWithoutSources(t *testing.T) {
	s := newTestServer(storage.NewMemoryStore())

	req := httptest.NewRequest(http.MethodPost, "/v1/scrape",
		strings.NewReader(`{"region": "Brooklyn", "max_price": 2000}`))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status %d: %s", rec.Code, rec.Body.String())
	}

	var res engine.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("Bad response JSON: %v", err)
	}
	if !res.Synthesized || len(res.Records) == 0 {
		t.Errorf("Expected a synthesized non-empty batch: %+v", res)
	}
}

func TestScrapeEndpointRequiresRegion(t *testing.T) {
	s := newTestServer(storage.NewMemoryStore())

	req := httptest.NewRequest(http.MethodPost, "/v1/scrape", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestListingsFilters(t *testing.T) {
	store := storage.NewMemoryStore()
	s := newTestServer(store)
	seedListing(t, store, "1BR in Astoria", 1500, []string{"Section 8"})
	seedListing(t, store, "2BR in Astoria", 2400, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/listings?max_rent=2000&program=Section+8", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Total    int               `json:"total"`
		Listings []*models.Listing `json:"listings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Total != 1 || len(body.Listings) != 1 {
		t.Fatalf("Expected 1 filtered listing, got %+v", body)
	}
	if body.Listings[0].Title != "1BR in Astoria" {
		t.Errorf("Wrong listing survived the filters: %s", body.Listings[0].Title)
	}
}

func TestPreferencesMergeAndRecommend(t *testing.T) {
	store := storage.NewMemoryStore()
	s := newTestServer(store)
	seedListing(t, store, "1BR in Astoria", 1500, []string{"Section 8"})
	seedListing(t, store, "2BR in Astoria", 2400, nil)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/preferences", strings.NewReader(body))
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, req)
		return rec
	}

	if rec := post(`{"requester_id": "u1", "profile": {"max_price": 2000}}`); rec.Code != http.StatusOK {
		t.Fatalf("First submission failed: %d", rec.Code)
	}
	// Second submission merges rather than replaces.
	rec := post(`{"requester_id": "u1", "profile": {"required_programs": ["Section 8"]}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Second submission failed: %d", rec.Code)
	}
	var merged struct {
		Profile models.PreferenceProfile `json:"profile"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &merged); err != nil {
		t.Fatal(err)
	}
	if merged.Profile.MaxPrice == nil || *merged.Profile.MaxPrice != 2000 {
		t.Errorf("Merge lost max_price: %+v", merged.Profile)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/recommended?requester_id=u1", nil)
	getRec := httptest.NewRecorder()
	s.Router().ServeHTTP(getRec, req)
	if getRec.Code != http.StatusOK {
		t.Fatalf("Recommend failed: %d", getRec.Code)
	}

	var out struct {
		Total   int                     `json:"total"`
		Results []*models.ScoredListing `json:"results"`
	}
	if err := json.Unmarshal(getRec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Total != 1 {
		t.Fatalf("Hard filters should leave 1 listing, got %d", out.Total)
	}
	if out.Results[0].Listing.Title != "1BR in Astoria" {
		t.Errorf("Wrong recommendation: %s", out.Results[0].Listing.Title)
	}
}

func TestRecommendedUnknownRequester(t *testing.T) {
	s := newTestServer(storage.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/v1/recommended?requester_id=ghost", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown requester, got %d", rec.Code)
	}
}

func TestInsightsEndpoint(t *testing.T) {
	store := storage.NewMemoryStore()
	s := newTestServer(store)
	seedListing(t, store, "1BR in Astoria", 1500, []string{"Section 8"})

	req := httptest.NewRequest(http.MethodGet, "/v1/insights", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status %d", rec.Code)
	}
	var report services.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.TotalListings != 1 || report.ByProgram["Section 8"] != 1 {
		t.Errorf("Unexpected report: %+v", report)
	}
}
