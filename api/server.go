// Package api exposes the engine over HTTP. It is a thin layer: request
// decoding, filter parsing, and JSON envelopes; all real work happens in
// the engine and services.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"housing-navigator/engine"
	"housing-navigator/models"
	"housing-navigator/services"
	"housing-navigator/storage"
	"housing-navigator/utils"
)

// Server holds the HTTP handlers and the requester preference profiles.
type Server struct {
	orchestrator *engine.Orchestrator
	store        storage.ListingStore
	scorer       *services.Scorer
	insights     *services.InsightService
	logger       *utils.Logger

	mu       sync.Mutex
	profiles map[string]*models.PreferenceProfile
}

// NewServer wires the handlers.
func NewServer(orchestrator *engine.Orchestrator, store storage.ListingStore, scorer *services.Scorer, insights *services.InsightService, logger *utils.Logger) *Server {
	return &Server{
		orchestrator: orchestrator,
		store:        store,
		scorer:       scorer,
		insights:     insights,
		logger:       logger,
		profiles:     make(map[string]*models.PreferenceProfile),
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/v1/scrape", s.handleScrape).Methods(http.MethodPost)
	r.HandleFunc("/v1/listings", s.handleListings).Methods(http.MethodGet)
	r.HandleFunc("/v1/preferences", s.handlePreferences).Methods(http.MethodPost)
	r.HandleFunc("/v1/recommended", s.handleRecommended).Methods(http.MethodGet)
	r.HandleFunc("/v1/insights", s.handleInsights).Methods(http.MethodGet)
	return r
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Region) == "" {
		writeError(w, http.StatusBadRequest, "region is required")
		return
	}

	res, err := s.orchestrator.Run(r.Context(), req)
	if err != nil {
		s.logger.Error("[api] Scrape run failed: %v", err)
		writeError(w, http.StatusInternalServerError, "extraction run failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	listings, err := s.store.FetchAll(r.Context())
	if err != nil {
		s.logger.Error("[api] Fetch failed: %v", err)
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}

	q := r.URL.Query()
	filtered := listings[:0:0]
	region := strings.ToLower(q.Get("region"))
	maxRent, _ := strconv.ParseInt(q.Get("max_rent"), 10, 64)
	program := q.Get("program")
	bedrooms, bedroomsSet := parseIntParam(q.Get("bedrooms"))

	for _, l := range listings {
		if region != "" && !strings.Contains(strings.ToLower(l.Region.City), region) &&
			!strings.Contains(strings.ToLower(l.Address), region) {
			continue
		}
		if maxRent > 0 && (l.Price == nil || *l.Price > maxRent) {
			continue
		}
		if program != "" && !l.HasProgram(program) {
			continue
		}
		if bedroomsSet && (l.BedroomCount == nil || *l.BedroomCount != bedrooms) {
			continue
		}
		filtered = append(filtered, l)
	}

	limit, offset := pagination(q.Get("limit"), q.Get("offset"))
	page := paginate(filtered, limit, offset)

	writeJSON(w, http.StatusOK, map[string]any{
		"total":    len(filtered),
		"count":    len(page),
		"offset":   offset,
		"listings": page,
	})
}

func (s *Server) handlePreferences(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RequesterID string                   `json:"requester_id"`
		Profile     models.PreferenceProfile `json:"profile"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id := body.RequesterID
	if id == "" {
		id = "default"
	}

	s.mu.Lock()
	profile, ok := s.profiles[id]
	if !ok {
		profile = &models.PreferenceProfile{}
		s.profiles[id] = profile
	}
	profile.Merge(body.Profile)
	merged := *profile
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"requester_id": id,
		"profile":      merged,
	})
}

func (s *Server) handleRecommended(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("requester_id")
	if id == "" {
		id = "default"
	}

	s.mu.Lock()
	profile, ok := s.profiles[id]
	var snapshot models.PreferenceProfile
	if ok {
		snapshot = *profile
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "no preference profile for requester")
		return
	}

	listings, err := s.store.FetchAll(r.Context())
	if err != nil {
		s.logger.Error("[api] Fetch failed: %v", err)
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}

	ranked := s.scorer.Rank(listings, &snapshot)

	limit, offset := pagination(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	page := paginate(ranked, limit, offset)

	writeJSON(w, http.StatusOK, map[string]any{
		"requester_id": id,
		"total":        len(ranked),
		"count":        len(page),
		"results":      page,
	})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	report, err := s.insights.Generate(r.Context())
	if err != nil {
		s.logger.Error("[api] Insights failed: %v", err)
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

const defaultPageSize = 50

func pagination(limitStr, offsetStr string) (limit, offset int) {
	limit = defaultPageSize
	if n, err := strconv.Atoi(limitStr); err == nil && n > 0 && n <= 200 {
		limit = n
	}
	if n, err := strconv.Atoi(offsetStr); err == nil && n > 0 {
		offset = n
	}
	return limit, offset
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func parseIntParam(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
