package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"housing-navigator/api"
	"housing-navigator/config"
	"housing-navigator/engine"
	"housing-navigator/scraper"
	"housing-navigator/scraper/rendered"
	"housing-navigator/scraper/static"
	"housing-navigator/services"
	"housing-navigator/storage"
	"housing-navigator/utils"
)

// staleAfter is how long a listing may go unseen before a CLI run marks
// it inactive.
const staleAfter = 72 * time.Hour

func main() {
	serve := flag.Bool("serve", false, "run the HTTP API instead of a one-shot scrape")
	region := flag.String("region", "New York", "region to scrape in one-shot mode")
	flag.Parse()

	logger := utils.NewLogger()
	cfg := config.Load()

	logger.Info("[main] Housing navigator starting")

	store := openStore(cfg, logger)
	defer store.Close()

	sources, err := config.LoadSources(cfg.SourcesPath)
	if err != nil {
		logger.Error("[main] %v", err)
		os.Exit(1)
	}

	taxonomy, err := config.LoadTaxonomy(cfg.TaxonomyPath)
	if err != nil {
		logger.Warn("[main] %v — using built-in taxonomy", err)
		taxonomy = config.DefaultTaxonomy()
	}

	weights, err := config.LoadScoringWeights(cfg.ScoringPath)
	if err != nil {
		logger.Warn("[main] %v — using default weights", err)
	}

	retry := &utils.RetryConfig{
		MaxAttempts: cfg.MaxRetries,
		BaseDelay:   2 * time.Second,
		Logger:      logger,
	}

	adapters := make([]scraper.Adapter, 0, len(sources))
	for _, src := range sources {
		switch src.Mode {
		case "rendered":
			adapters = append(adapters, rendered.New(src, retry, logger, cfg.ChromeBin))
		default:
			adapters = append(adapters, static.New(src, retry, logger))
		}
		logger.Info("[main] Source %s registered (%s)", src.Name, src.Mode)
	}

	var rawWriter storage.RawListingWriter
	if cfg.CSVOutputPath != "" {
		w, err := storage.NewCSVWriter(cfg.CSVOutputPath)
		if err != nil {
			logger.Warn("[main] CSV audit disabled: %v", err)
		} else {
			rawWriter = w
			defer w.Close()
		}
	}

	orchestrator := engine.NewOrchestrator(
		cfg,
		adapters,
		services.NewNormalizer(logger),
		services.NewClassifier(taxonomy, cfg.ClassifierStrict),
		services.NewDeduper(store, logger),
		services.NewSynthesizer(),
		rawWriter,
		logger,
	)
	scorer := services.NewScorer(weights)
	insights := services.NewInsightService(store, logger)

	if *serve {
		runServer(cfg, orchestrator, store, scorer, insights, logger)
		return
	}
	runOnce(cfg, orchestrator, store, insights, *region, logger)
}

// openStore connects to PostgreSQL, falling back to the in-memory store
// so demo runs work without a database.
func openStore(cfg *config.Config, logger *utils.Logger) storage.ListingStore {
	ps, err := storage.NewPostgresStore(cfg.DSN())
	if err != nil {
		logger.Warn("[main] PostgreSQL unavailable (%v), using in-memory store", err)
		return storage.NewMemoryStore()
	}
	logger.Info("[main] Connected to PostgreSQL at %s:%s", cfg.PostgresHost, cfg.PostgresPort)
	return ps
}

func runOnce(cfg *config.Config, orchestrator *engine.Orchestrator, store storage.ListingStore, insights *services.InsightService, region string, logger *utils.Logger) {
	ctx := context.Background()

	res, err := orchestrator.Run(ctx, engine.Request{Region: region})
	if err != nil {
		logger.Error("[main] Extraction run failed: %v", err)
		os.Exit(1)
	}

	logger.Info("[main] Run %s: %d records, synthesized=%t, %d errors",
		res.RunID, len(res.Records), res.Synthesized, len(res.Errors))

	stale, err := store.MarkStale(ctx, time.Now().UTC().Add(-staleAfter))
	if err != nil {
		logger.Warn("[main] Stale sweep failed: %v", err)
	} else if stale > 0 {
		logger.Info("[main] Marked %d listings stale", stale)
	}

	if report, err := insights.Generate(ctx); err == nil {
		logger.Info("[main] Corpus: %d listings, avg $%.0f, top amenities %v",
			report.TotalListings, report.AveragePrice, report.TopAmenities)
	}
}

func runServer(cfg *config.Config, orchestrator *engine.Orchestrator, store storage.ListingStore, scorer *services.Scorer, insights *services.InsightService, logger *utils.Logger) {
	server := api.NewServer(orchestrator, store, scorer, insights, logger)
	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Minute,
	}

	go func() {
		logger.Info("[main] HTTP API listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("[main] HTTP server: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("[main] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("[main] Shutdown: %v", err)
	}
}
