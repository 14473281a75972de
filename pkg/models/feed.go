package models

import (
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
)

// EmbeddingDimension is the fixed dimensionality of entry embeddings.
const EmbeddingDimension = 768

// CategoryUncategorized groups feeds that carry no category label.
const CategoryUncategorized = "uncategorized"

// Feed represents a syndicated feed source
type Feed struct {
	ID          int64      `json:"id"`
	URL         string     `json:"url"`
	Name        string     `json:"name"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
}

// CategoryLabel returns the derived grouping key for the feed.
func (f Feed) CategoryLabel() string {
	if strings.TrimSpace(f.Category) == "" {
		return CategoryUncategorized
	}
	return strings.ToLower(f.Category)
}

// DisplayName prefers the configured name over the parsed title.
func (f Feed) DisplayName() string {
	if f.Name != "" {
		return f.Name
	}
	return f.Title
}

// Entry represents a single stored feed entry
type Entry struct {
	ID          int64            `json:"id"`
	FeedID      int64            `json:"feed_id"`
	Title       string           `json:"title"`
	Content     string           `json:"content"`
	Link        string           `json:"link"`
	Published   time.Time        `json:"published"`
	ContentHash string           `json:"-"`
	Embedding   *pgvector.Vector `json:"-"`
}

// HasEmbedding reports whether the entry has been indexed.
func (e Entry) HasEmbedding() bool {
	return e.Embedding != nil
}

// ContentPreview returns a bounded excerpt of the entry body.
func (e Entry) ContentPreview(max int) string {
	runes := []rune(e.Content)
	if len(runes) <= max {
		return e.Content
	}
	return string(runes[:max]) + "..."
}

// Candidate represents a parsed entry before deduplication and storage
type Candidate struct {
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Link      string    `json:"link"`
	Published time.Time `json:"published"`
}

// FeedMeta carries the metadata parsed from a remote feed document
type FeedMeta struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// FetchPolicy bounds what a single fetch is allowed to yield
type FetchPolicy struct {
	MaxAge     time.Duration `json:"max_age"`
	MaxEntries int           `json:"max_entries"`
}

// Category is a derived grouping over feeds, not a stored entity
type Category struct {
	Name      string `json:"name"`
	FeedCount int    `json:"feed_count"`
}

// SearchHit is one ANN result joined with its owning feed
type SearchHit struct {
	Entry        Entry   `json:"entry"`
	FeedName     string  `json:"feed_name"`
	FeedURL      string  `json:"feed_url"`
	FeedCategory string  `json:"feed_category,omitempty"`
	Distance     float64 `json:"distance"`
}

// Similarity converts the L2 distance into a bounded score in (0, 1].
func (h SearchHit) Similarity() float64 {
	return 1.0 / (1.0 + h.Distance)
}
