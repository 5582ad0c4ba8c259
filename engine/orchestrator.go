// Package engine wires the full extraction pipeline: source adapters in
// a rate-limited worker pool, normalization, classification, dedup
// upserts, and the synthetic fallback when every source comes up empty.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"housing-navigator/config"
	"housing-navigator/models"
	"housing-navigator/scraper"
	"housing-navigator/services"
	"housing-navigator/storage"
	"housing-navigator/utils"
)

// Request describes one extraction run.
type Request struct {
	Region   string `json:"region"`
	MaxPrice int64  `json:"max_price,omitempty"`
	Bedrooms *int   `json:"bedrooms,omitempty"`
	// MaxPages caps result pages per source; zero means the configured
	// default.
	MaxPages int `json:"max_pages,omitempty"`
}

// Result is the envelope every run returns. Callers get stored records
// and error kinds, never raw error chains.
type Result struct {
	RunID       string             `json:"run_id"`
	Records     []*models.Listing  `json:"records"`
	Synthesized bool               `json:"synthesized"`
	Dropped     int                `json:"dropped"`
	Errors      []models.ErrorKind `json:"errors,omitempty"`
	StartedAt   time.Time          `json:"started_at"`
	FinishedAt  time.Time          `json:"finished_at"`
}

// syntheticBatchSize is how many placeholder records a fallback produces.
const syntheticBatchSize = 5

// Orchestrator runs the extraction pipeline across all configured
// sources.
type Orchestrator struct {
	cfg        *config.Config
	adapters   []scraper.Adapter
	normalizer *services.Normalizer
	classifier *services.Classifier
	deduper    *services.Deduper
	synth      *services.Synthesizer
	rawWriter  storage.RawListingWriter
	logger     *utils.Logger
}

// NewOrchestrator assembles the pipeline. rawWriter may be nil when raw
// CSV auditing is disabled.
func NewOrchestrator(
	cfg *config.Config,
	adapters []scraper.Adapter,
	normalizer *services.Normalizer,
	classifier *services.Classifier,
	deduper *services.Deduper,
	synth *services.Synthesizer,
	rawWriter storage.RawListingWriter,
	logger *utils.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		adapters:   adapters,
		normalizer: normalizer,
		classifier: classifier,
		deduper:    deduper,
		synth:      synth,
		rawWriter:  rawWriter,
		logger:     logger,
	}
}

// Run executes one extraction across all sources. Sources run
// concurrently in a bounded, rate-limited pool; pages within a source
// stay ordered. A global deadline bounds the whole run; records upserted
// before the deadline survive it. When no source produced a single
// stored record, the synthesizer fills in.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	res := &Result{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
	maxPages := req.MaxPages
	if maxPages <= 0 {
		maxPages = o.cfg.MaxPages
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(o.cfg.RunDeadlineS)*time.Second)
	defer cancel()

	o.logger.Info("[orchestrator] Run %s: region %q, %d sources", res.RunID, req.Region, len(o.adapters))

	var mu sync.Mutex
	pool := utils.NewWorkerPool(o.cfg.MaxConcurrency, o.cfg.RateLimitMs)
	seen := utils.NewSeenSet()

	for _, adapter := range o.adapters {
		adapter := adapter
		pool.Submit(runCtx, func(jobCtx context.Context) {
			workerCtx, cancelWorker := context.WithTimeout(jobCtx, time.Duration(o.cfg.WorkerTimeoutS)*time.Second)
			defer cancelWorker()

			stored, dropped, err := o.runSource(workerCtx, adapter, req.Region, maxPages, seen)

			mu.Lock()
			defer mu.Unlock()
			res.Records = append(res.Records, stored...)
			res.Dropped += dropped
			if err != nil {
				kind := models.Classify(err)
				res.Errors = append(res.Errors, kind)
				o.logger.Error("[orchestrator] Source %s failed (%s): %v", adapter.Name(), kind, err)
			}
		})
	}
	pool.Wait()

	if len(res.Records) == 0 {
		o.logger.Warn("[orchestrator] Run %s: no live records, synthesizing fallback data", res.RunID)
		res.Records = o.synthesize(context.Background(), req)
		res.Synthesized = true
	}

	res.FinishedAt = time.Now().UTC()
	o.logger.Info("[orchestrator] Run %s done: %d records, %d dropped, %d errors (synthesized=%t)",
		res.RunID, len(res.Records), res.Dropped, len(res.Errors), res.Synthesized)
	return res, nil
}

// persistTimeout bounds the normalize-and-upsert stage of a source run.
// It is independent of the worker timeout: records extracted before a
// cancellation still count.
const persistTimeout = 30 * time.Second

// runSource drives one adapter end to end: scrape, audit, normalize,
// classify, upsert. Raw records scraped before a mid-run failure are
// still processed, so the error return accompanies partial data. Only
// the scrape honors ctx; persistence runs on its own deadline so a
// worker timeout cannot void work already done.
func (o *Orchestrator) runSource(ctx context.Context, adapter scraper.Adapter, region string, maxPages int, seen *utils.SeenSet) ([]*models.Listing, int, error) {
	raw, scrapeErr := adapter.Scrape(ctx, region, maxPages)

	storeCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	fresh := raw[:0:0]
	for _, r := range raw {
		if r.URL == "" || seen.Add(r.URL) {
			fresh = append(fresh, r)
		}
	}

	if o.rawWriter != nil && len(fresh) > 0 {
		if err := o.rawWriter.WriteRaw(fresh); err != nil {
			o.logger.Warn("[orchestrator] Raw audit write failed for %s: %v", adapter.Name(), err)
		}
	}

	listings, dropped := o.normalizer.Normalize(fresh)

	var stored []*models.Listing
	for _, l := range listings {
		programs, amenities := o.classifier.Classify(l.Title, l.Description)
		l.AcceptedPrograms = programs
		l.Amenities = amenities

		up, err := o.deduper.Upsert(storeCtx, l)
		if err != nil {
			o.logger.Error("[orchestrator] Upsert failed for %q: %v", l.Title, err)
			dropped++
			continue
		}
		stored = append(stored, up)
	}

	return stored, dropped, scrapeErr
}

// synthesize generates and stores the fallback batch. It runs on a fresh
// context: the run deadline may already be blown, and the fallback is
// what guarantees a non-empty response.
func (o *Orchestrator) synthesize(ctx context.Context, req Request) []*models.Listing {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	generated := o.synth.Generate(req.Region, req.MaxPrice, req.Bedrooms, syntheticBatchSize)
	stored := make([]*models.Listing, 0, len(generated))
	for _, l := range generated {
		up, err := o.deduper.Upsert(ctx, l)
		if err != nil {
			o.logger.Error("[orchestrator] Synthetic upsert failed: %v", err)
			continue
		}
		stored = append(stored, up)
	}
	return stored
}
