// Package fetcher retrieves and parses remote feed documents. It only
// performs network I/O; storing the results is the coordinator's job.
package fetcher

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/rssai/internal/config"
	"github.com/rssai/pkg/models"
)

// Result is the outcome of fetching a single feed document
type Result struct {
	Meta    models.FeedMeta
	Entries []models.Candidate
}

// Fetcher retrieves feed documents over HTTP with a mandatory timeout
type Fetcher struct {
	parser      *gofeed.Parser
	timeout     time.Duration
	concurrency int
	now         func() time.Time
}

// New creates a fetcher from the fetch configuration.
func New(cfg config.FetchConfig) *Fetcher {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: cfg.Timeout.Std()}
	parser.UserAgent = "rssai/1.0"
	return &Fetcher{
		parser:      parser,
		timeout:     cfg.Timeout.Std(),
		concurrency: cfg.Concurrency,
		now:         time.Now,
	}
}

// Fetch retrieves and parses one feed document, returning the entries
// newer than policy.MaxAge capped at policy.MaxEntries, newest first.
// An entry without a publish date is dated "now" rather than dropped;
// it then always passes the age cutoff.
func (f *Fetcher) Fetch(ctx context.Context, url string, policy models.FetchPolicy) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	feed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, models.E(models.ErrFetch, "fetcher.Fetch", url, err)
	}

	now := f.now()
	cutoff := now.Add(-policy.MaxAge)

	candidates := make([]models.Candidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		published := itemPublished(item)
		if published.IsZero() {
			published = now
		}
		if policy.MaxAge > 0 && published.Before(cutoff) {
			continue
		}
		candidates = append(candidates, models.Candidate{
			Title:     item.Title,
			Content:   itemContent(item),
			Link:      item.Link,
			Published: published.UTC(),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Published.After(candidates[j].Published)
	})
	if policy.MaxEntries > 0 && len(candidates) > policy.MaxEntries {
		candidates = candidates[:policy.MaxEntries]
	}

	return &Result{
		Meta: models.FeedMeta{
			Title:       feed.Title,
			Description: feed.Description,
		},
		Entries: candidates,
	}, nil
}

func itemPublished(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return time.Time{}
}

func itemContent(item *gofeed.Item) string {
	if item.Content != "" {
		return item.Content
	}
	return item.Description
}
