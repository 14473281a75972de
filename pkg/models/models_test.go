package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryLabel(t *testing.T) {
	assert.Equal(t, "tech", Feed{Category: "Tech"}.CategoryLabel())
	assert.Equal(t, CategoryUncategorized, Feed{}.CategoryLabel())
	assert.Equal(t, CategoryUncategorized, Feed{Category: "   "}.CategoryLabel())
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Configured", Feed{Name: "Configured", Title: "Parsed"}.DisplayName())
	assert.Equal(t, "Parsed", Feed{Title: "Parsed"}.DisplayName())
}

func TestContentPreview(t *testing.T) {
	short := Entry{Content: "brief"}
	assert.Equal(t, "brief", short.ContentPreview(10))

	long := Entry{Content: "aaaaabbbbb"}
	assert.Equal(t, "aaaaa...", long.ContentPreview(5))
}

func TestSimilarityBounds(t *testing.T) {
	assert.Equal(t, 1.0, SearchHit{Distance: 0}.Similarity())
	assert.Equal(t, 0.5, SearchHit{Distance: 1}.Similarity())
	assert.Less(t, SearchHit{Distance: 9}.Similarity(), SearchHit{Distance: 1}.Similarity())
}

func TestKindOf(t *testing.T) {
	typed := E(ErrFetch, "op", "subject", errors.New("refused"))
	assert.Equal(t, ErrFetch, KindOf(typed))

	wrapped := E(ErrNotFound, "outer", "", typed)
	assert.Equal(t, ErrNotFound, KindOf(wrapped))

	assert.Equal(t, ErrStore, KindOf(errors.New("plain")))
}

func TestPayloadOf(t *testing.T) {
	assert.Nil(t, PayloadOf(nil))

	payload := PayloadOf(E(ErrCrawl, "crawler.Crawl", "https://x", errors.New("404")))
	assert.Equal(t, ErrCrawl, payload.Kind)
	assert.Equal(t, "crawler.Crawl", payload.Op)
	assert.Equal(t, "https://x", payload.Subject)
	assert.Equal(t, "404", payload.Message)

	plain := PayloadOf(errors.New("raw"))
	assert.Equal(t, ErrStore, plain.Kind)
	assert.Equal(t, "raw", plain.Message)
}

func TestUpdateCounts(t *testing.T) {
	var c UpdateCounts
	c.Add(UpdateCounts{Inserted: 2, Unchanged: 1})
	c.Add(UpdateCounts{Updated: 1, SkippedInvalid: 3})
	assert.Equal(t, UpdateCounts{Inserted: 2, Updated: 1, Unchanged: 1, SkippedInvalid: 3}, c)
	assert.Equal(t, 7, c.Total())
}
