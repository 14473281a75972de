// Package ingest merges fetched candidate entries into the feed store,
// enforcing the (feed, link) uniqueness contract and deciding when a
// stored embedding must be invalidated.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/rssai/internal/fetcher"
	"github.com/rssai/internal/store"
	"github.com/rssai/pkg/models"
)

// Store is the subset of the feed store the coordinator writes to
type Store interface {
	UpsertFeed(ctx context.Context, feed *models.Feed) error
	UpsertEntry(ctx context.Context, entry *models.Entry) (store.UpsertOutcome, error)
}

// Fetcher retrieves remote feed documents
type Fetcher interface {
	Fetch(ctx context.Context, url string, policy models.FetchPolicy) (*fetcher.Result, error)
	FetchAll(ctx context.Context, urls []string, policy models.FetchPolicy) []fetcher.Outcome
}

// Publisher receives per-feed ingest reports. A nil publisher disables
// publication.
type Publisher interface {
	Publish(ctx context.Context, report models.FeedReport) error
}

// Coordinator deduplicates and upserts candidate entries. Writes for
// the same feed are serialized; different feeds proceed concurrently.
type Coordinator struct {
	store     Store
	fetcher   Fetcher
	publisher Publisher
	policy    models.FetchPolicy

	mu        sync.Mutex
	feedLocks map[string]*sync.Mutex
}

// New creates a coordinator with the given fetch policy.
func New(st Store, f Fetcher, pub Publisher, policy models.FetchPolicy) *Coordinator {
	return &Coordinator{
		store:     st,
		fetcher:   f,
		publisher: pub,
		policy:    policy,
		feedLocks: make(map[string]*sync.Mutex),
	}
}

// IngestEntries upserts the candidates into the given feed, keyed on
// (feed, link). It returns per-outcome counts; invalid candidates are
// counted, not errors. A store failure on one entry is logged and does
// not stop the remaining entries; the first such error is returned
// alongside the partial counts.
func (c *Coordinator) IngestEntries(ctx context.Context, feed *models.Feed, candidates []models.Candidate) (models.UpdateCounts, error) {
	lock := c.lockFor(feed.URL)
	lock.Lock()
	defer lock.Unlock()

	var counts models.UpdateCounts
	var firstErr error
	for _, cand := range candidates {
		if !validCandidate(cand) {
			counts.SkippedInvalid++
			continue
		}
		entry := &models.Entry{
			FeedID:      feed.ID,
			Title:       strings.TrimSpace(cand.Title),
			Content:     cand.Content,
			Link:        strings.TrimSpace(cand.Link),
			Published:   cand.Published,
			ContentHash: ContentHash(cand.Title, cand.Content),
		}
		outcome, err := c.store.UpsertEntry(ctx, entry)
		if err != nil {
			log.Printf("ingest: upsert %s failed: %v", entry.Link, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		switch outcome {
		case store.OutcomeInserted:
			counts.Inserted++
		case store.OutcomeUpdated:
			counts.Updated++
		default:
			counts.Unchanged++
		}
	}
	return counts, firstErr
}

// RefreshFeed fetches one feed synchronously, refreshes its metadata
// and ingests the candidates. The report is published when a publisher
// is configured.
func (c *Coordinator) RefreshFeed(ctx context.Context, feed models.Feed) models.FeedReport {
	report := models.FeedReport{FeedURL: feed.URL, FeedName: feed.DisplayName()}

	result, err := c.fetcher.Fetch(ctx, feed.URL, c.policy)
	if err != nil {
		return c.finish(ctx, report, err)
	}
	report, err = c.ingestResult(ctx, feed, result)
	return c.finish(ctx, report, err)
}

// UpdateAll refreshes every given feed through the fetcher's bounded
// pool and aggregates the isolated per-feed reports. It blocks until
// all fetches complete; a failing feed is reported, never thrown.
func (c *Coordinator) UpdateAll(ctx context.Context, feeds []models.Feed) models.UpdateReport {
	urls := make([]string, len(feeds))
	for i, feed := range feeds {
		urls[i] = feed.URL
	}
	outcomes := c.fetcher.FetchAll(ctx, urls, c.policy)

	var update models.UpdateReport
	for i, outcome := range outcomes {
		feed := feeds[i]
		report := models.FeedReport{FeedURL: feed.URL, FeedName: feed.DisplayName()}
		if outcome.Err != nil {
			report = c.finish(ctx, report, outcome.Err)
		} else {
			ingested, err := c.ingestResult(ctx, feed, outcome.Result)
			report = c.finish(ctx, ingested, err)
		}
		update.Feeds = append(update.Feeds, report)
		if report.OK {
			update.Succeeded++
			update.Counts.Add(report.Counts)
		} else {
			update.Failed++
		}
	}
	return update
}

// ingestResult refreshes the feed row from the parsed metadata, then
// ingests the candidate entries.
func (c *Coordinator) ingestResult(ctx context.Context, feed models.Feed, result *fetcher.Result) (models.FeedReport, error) {
	report := models.FeedReport{FeedURL: feed.URL, FeedName: feed.DisplayName()}

	now := time.Now().UTC()
	feed.Title = result.Meta.Title
	if feed.Description == "" {
		feed.Description = result.Meta.Description
	}
	feed.LastUpdated = &now
	if err := c.store.UpsertFeed(ctx, &feed); err != nil {
		return report, err
	}
	if report.FeedName == "" {
		report.FeedName = feed.DisplayName()
	}

	counts, err := c.IngestEntries(ctx, &feed, result.Entries)
	report.Counts = counts
	return report, err
}

func (c *Coordinator) finish(ctx context.Context, report models.FeedReport, err error) models.FeedReport {
	report.OK = err == nil
	report.Error = models.PayloadOf(err)
	report.FinishedAt = time.Now().UTC()
	if err != nil {
		log.Printf("ingest: refresh %s failed: %v", report.FeedURL, err)
	} else {
		log.Printf("ingest: refreshed %s: %+v", report.FeedURL, report.Counts)
	}
	if c.publisher != nil {
		if pubErr := c.publisher.Publish(ctx, report); pubErr != nil {
			log.Printf("ingest: publish report for %s failed: %v", report.FeedURL, pubErr)
		}
	}
	return report
}

func (c *Coordinator) lockFor(url string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.feedLocks[url]
	if !ok {
		lock = &sync.Mutex{}
		c.feedLocks[url] = lock
	}
	return lock
}

// ContentHash derives the dedup key over the mutable entry fields.
// Embeddings are recomputed only when this hash changes.
func ContentHash(title, content string) string {
	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(title)))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}

func validCandidate(c models.Candidate) bool {
	return strings.TrimSpace(c.Title) != "" &&
		strings.TrimSpace(c.Link) != "" &&
		strings.TrimSpace(c.Content) != ""
}
