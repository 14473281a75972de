package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rssai/internal/api"
	"github.com/rssai/internal/config"
	"github.com/rssai/internal/crawler"
	"github.com/rssai/internal/embedding"
	"github.com/rssai/internal/events"
	"github.com/rssai/internal/fetcher"
	"github.com/rssai/internal/indexer"
	"github.com/rssai/internal/ingest"
	"github.com/rssai/internal/search"
	"github.com/rssai/internal/store"
	"github.com/rssai/internal/tools"
	"github.com/rssai/pkg/models"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	var (
		configFile     = flag.String("config", "config/config.yaml", "Configuration file path")
		serve          = flag.Bool("serve", false, "Start the HTTP API gateway")
		updateAll      = flag.Bool("update-all", false, "Fetch every registered feed and index new entries")
		updateCategory = flag.String("update-category", "", "Fetch the feeds of one category and index new entries")
		addFeeds       = flag.Bool("add-feeds", false, "Register the feed seeds from the configuration")
		runIndex       = flag.Bool("index", false, "Embed stored entries that still lack a vector")
		resetDB        = flag.Bool("reset-db", false, "Drop all stored feeds and entries")
		listFeeds      = flag.Bool("list-feeds", false, "List registered feeds")
		listCategories = flag.Bool("list-categories", false, "List feed categories")
		showVer        = flag.Bool("version", false, "Show version information")
		help           = flag.Bool("help", false, "Show help information")
	)
	flag.Parse()

	if *help {
		showHelp()
		return
	}
	if *showVer {
		showVersion()
		return
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Skipping .env: %v", err)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := newApp(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer app.Close()

	switch {
	case *resetDB:
		err = app.resetDB(ctx)
	case *addFeeds:
		err = app.addFeeds(ctx, cfg.Feeds)
	case *listFeeds:
		err = app.listFeeds(ctx)
	case *listCategories:
		err = app.listCategories(ctx)
	case *updateCategory != "":
		err = app.update(ctx, *updateCategory)
	case *updateAll:
		err = app.update(ctx, "")
	case *runIndex:
		err = app.index(ctx)
	case *serve:
		err = app.serve(ctx, cancel)
	default:
		showHelp()
		return
	}
	if err != nil {
		log.Fatalf("Command failed: %v", err)
	}
}

// app holds the wired pipeline components
type app struct {
	cfg         *config.Config
	store       *store.Store
	coordinator *ingest.Coordinator
	indexer     *indexer.Indexer
	gateway     *api.Gateway
	producer    *events.Producer
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	st, err := store.New(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	embedder := embedding.NewClient(cfg.Embedding)
	feedFetcher := fetcher.New(cfg.Fetch)
	producer := events.NewProducer(cfg.Events)

	policy := models.FetchPolicy{
		MaxAge:     cfg.Fetch.MaxAge.Std(),
		MaxEntries: cfg.Fetch.MaxEntries,
	}
	coordinator := ingest.New(st, feedFetcher, producerOrNil(producer), policy)
	ix := indexer.New(st, embedder, cfg.Embedding.BatchSize, cfg.Embedding.TruncateChars)
	engine := search.New(st, embedder, cfg.Search)
	crawl := crawler.New(cfg.Crawl)

	registry, err := tools.NewRegistry(tools.Deps{
		Catalog:  st,
		Searcher: engine,
		Refresh:  coordinator,
		Crawler:  crawl,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	gateway := api.NewGateway(cfg.API, registry, st, coordinator, ix, version)

	return &app{
		cfg:         cfg,
		store:       st,
		coordinator: coordinator,
		indexer:     ix,
		gateway:     gateway,
		producer:    producer,
	}, nil
}

// producerOrNil keeps the coordinator's publisher interface nil when
// publication is disabled, rather than a non-nil interface holding a
// nil pointer.
func producerOrNil(p *events.Producer) ingest.Publisher {
	if p == nil {
		return nil
	}
	return p
}

func (a *app) Close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			log.Printf("Error closing event producer: %v", err)
		}
	}
	a.store.Close()
}

func (a *app) resetDB(ctx context.Context) error {
	if err := a.store.Reset(ctx); err != nil {
		return err
	}
	log.Println("Database reset: all feeds and entries removed")
	return nil
}

func (a *app) addFeeds(ctx context.Context, seeds []config.FeedSeed) error {
	if len(seeds) == 0 {
		log.Println("No feed seeds configured")
		return nil
	}
	for _, seed := range seeds {
		feed := models.Feed{
			URL:      seed.URL,
			Name:     seed.Name,
			Category: seed.Category,
		}
		if err := a.store.UpsertFeed(ctx, &feed); err != nil {
			return err
		}
		log.Printf("Registered feed %s (%s) in category %s", feed.DisplayName(), feed.URL, feed.CategoryLabel())
	}
	return nil
}

func (a *app) listFeeds(ctx context.Context) error {
	feeds, err := a.store.ListFeeds(ctx)
	if err != nil {
		return err
	}
	if len(feeds) == 0 {
		fmt.Println("No feeds registered")
		return nil
	}
	for _, f := range feeds {
		updated := "never"
		if f.LastUpdated != nil {
			updated = f.LastUpdated.UTC().Format(time.RFC3339)
		}
		fmt.Printf("%-30s %-15s updated %-22s %s\n", f.DisplayName(), f.CategoryLabel(), updated, f.URL)
	}
	return nil
}

func (a *app) listCategories(ctx context.Context) error {
	categories, err := a.store.ListCategories(ctx)
	if err != nil {
		return err
	}
	for _, c := range categories {
		fmt.Printf("%-20s %d feeds\n", c.Name, c.FeedCount)
	}
	return nil
}

// update fetches feeds (all, or one category), ingests new entries and
// runs an indexing pass over anything still missing an embedding.
func (a *app) update(ctx context.Context, category string) error {
	var (
		feeds []models.Feed
		err   error
	)
	if category != "" {
		feeds, err = a.store.ListFeedsByCategory(ctx, category)
	} else {
		feeds, err = a.store.ListFeeds(ctx)
	}
	if err != nil {
		return err
	}
	if len(feeds) == 0 {
		log.Println("No feeds to update")
		return nil
	}

	report := a.coordinator.UpdateAll(ctx, feeds)
	log.Printf("Update finished: %d succeeded, %d failed, %d inserted, %d updated, %d unchanged",
		report.Succeeded, report.Failed,
		report.Counts.Inserted, report.Counts.Updated, report.Counts.Unchanged)
	for _, fr := range report.Feeds {
		if !fr.OK && fr.Error != nil {
			log.Printf("  %s: %s (%s)", fr.FeedURL, fr.Error.Message, fr.Error.Kind)
		}
	}

	return a.index(ctx)
}

func (a *app) index(ctx context.Context) error {
	report, err := a.indexer.IndexPending(ctx)
	if err != nil {
		return err
	}
	log.Printf("Indexing finished: %d indexed, %d failed, %d remaining",
		report.Indexed, report.Failed, report.Remaining)
	return nil
}

func (a *app) serve(ctx context.Context, cancel context.CancelFunc) error {
	errCh := make(chan error, 1)
	go func() {
		if err := a.gateway.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigChan:
		log.Println("Shutdown signal received, stopping services...")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := a.gateway.Stop(shutdownCtx); err != nil {
		log.Printf("Error during gateway shutdown: %v", err)
	}
	cancel()
	log.Println("Stopped")
	return nil
}

func showHelp() {
	fmt.Printf(`rssai - RSS ingestion and semantic search pipeline

Usage:
  rssai [flags]

Flags:
  -config string
        Configuration file path (default "config/config.yaml")
  -serve
        Start the HTTP API gateway
  -update-all
        Fetch every registered feed and index new entries
  -update-category string
        Fetch the feeds of one category and index new entries
  -add-feeds
        Register the feed seeds from the configuration
  -index
        Embed stored entries that still lack a vector
  -reset-db
        Drop all stored feeds and entries
  -list-feeds
        List registered feeds
  -list-categories
        List feed categories
  -version
        Show version information

Examples:
  rssai -add-feeds -config config/config.yaml   # Register configured feeds
  rssai -update-all                             # Fetch, ingest and index
  rssai -serve                                  # Start the API gateway
`)
}

func showVersion() {
	fmt.Printf("rssai version %s\n", version)
	fmt.Printf("Commit: %s\n", commit)
	fmt.Printf("Built: %s\n", date)
}
