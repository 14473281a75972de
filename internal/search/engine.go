// Package search executes similarity queries over the stored
// embeddings and shapes the results for the tool dispatcher.
package search

import (
	"context"
	"sort"
	"strings"

	"github.com/pgvector/pgvector-go"

	"github.com/rssai/internal/config"
	"github.com/rssai/internal/embedding"
	"github.com/rssai/internal/store"
	"github.com/rssai/pkg/models"
)

// Store is the read-only slice of the feed store the engine queries
type Store interface {
	SearchEntries(ctx context.Context, q store.SearchQuery) ([]models.SearchHit, error)
}

// Options scope a single search
type Options struct {
	Limit    int
	Breadth  int
	Category string
	FeedID   int64
}

// EntryResult is one ranked entry
type EntryResult struct {
	Title      string  `json:"title"`
	Link       string  `json:"link"`
	Published  string  `json:"published"`
	Preview    string  `json:"content_preview"`
	Distance   float64 `json:"distance"`
	Similarity float64 `json:"similarity"`
	FeedName   string  `json:"feed_name"`
	FeedURL    string  `json:"feed_url"`
}

// FeedResult aggregates the ranked entries of one feed
type FeedResult struct {
	Name      string        `json:"name"`
	URL       string        `json:"url"`
	Category  string        `json:"category,omitempty"`
	Relevance float64       `json:"relevance"`
	Entries   []EntryResult `json:"matching_entries"`
}

// Results is the full shape returned for a related-feeds search
type Results struct {
	Query   string        `json:"query"`
	Entries []EntryResult `json:"entries"`
	Feeds   []FeedResult  `json:"feeds"`
}

const previewChars = 200
const entriesPerFeed = 3

// Engine embeds queries and ranks stored entries by vector distance
type Engine struct {
	store    Store
	embedder embedding.Embedder
	cfg      config.SearchConfig
}

// New creates a search engine.
func New(st Store, emb embedding.Embedder, cfg config.SearchConfig) *Engine {
	return &Engine{store: st, embedder: emb, cfg: cfg}
}

// ClampLimit bounds a caller-supplied limit to the configured range.
func (e *Engine) ClampLimit(limit int) int {
	if limit <= 0 {
		return e.cfg.DefaultLimit
	}
	if limit > e.cfg.MaxLimit {
		return e.cfg.MaxLimit
	}
	return limit
}

// Search embeds the query text and returns the closest entries,
// ascending by L2 distance.
func (e *Engine) Search(ctx context.Context, query string, opts Options) (*Results, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.Errorf(models.ErrValidation, "search.Search", "", "query must not be empty")
	}

	vec, err := e.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}
	return e.SearchVector(ctx, query, pgvector.NewVector(vec), opts)
}

// SearchVector ranks entries against an already embedded query.
func (e *Engine) SearchVector(ctx context.Context, query string, vec pgvector.Vector, opts Options) (*Results, error) {
	limit := e.ClampLimit(opts.Limit)
	breadth := opts.Breadth
	if breadth <= 0 {
		breadth = e.cfg.Breadth
	}

	hits, err := e.store.SearchEntries(ctx, store.SearchQuery{
		Vector:   vec,
		Limit:    limit,
		Breadth:  breadth,
		Category: opts.Category,
		FeedID:   opts.FeedID,
	})
	if err != nil {
		return nil, err
	}

	results := &Results{Query: query, Entries: []EntryResult{}, Feeds: []FeedResult{}}
	byFeed := map[string]*FeedResult{}
	feedOrder := []string{}
	for _, hit := range hits {
		entry := EntryResult{
			Title:      hit.Entry.Title,
			Link:       hit.Entry.Link,
			Published:  hit.Entry.Published.Format("2006-01-02T15:04:05Z07:00"),
			Preview:    hit.Entry.ContentPreview(previewChars),
			Distance:   hit.Distance,
			Similarity: hit.Similarity(),
			FeedName:   hit.FeedName,
			FeedURL:    hit.FeedURL,
		}
		results.Entries = append(results.Entries, entry)

		fr, ok := byFeed[hit.FeedURL]
		if !ok {
			fr = &FeedResult{Name: hit.FeedName, URL: hit.FeedURL, Category: hit.FeedCategory}
			byFeed[hit.FeedURL] = fr
			feedOrder = append(feedOrder, hit.FeedURL)
		}
		fr.Relevance += entry.Similarity
		if len(fr.Entries) < entriesPerFeed {
			fr.Entries = append(fr.Entries, entry)
		}
	}

	for _, url := range feedOrder {
		results.Feeds = append(results.Feeds, *byFeed[url])
	}
	sort.SliceStable(results.Feeds, func(i, j int) bool {
		return results.Feeds[i].Relevance > results.Feeds[j].Relevance
	})
	return results, nil
}
