package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rssai/internal/crawler"
	"github.com/rssai/internal/search"
	"github.com/rssai/pkg/models"
)

type fakeCatalog struct {
	feeds      []models.Feed
	categories []models.Category
	entries    map[int64][]models.Entry
}

func (c *fakeCatalog) ListFeeds(ctx context.Context) ([]models.Feed, error) {
	return c.feeds, nil
}

func (c *fakeCatalog) ListFeedsByCategory(ctx context.Context, category string) ([]models.Feed, error) {
	var out []models.Feed
	for _, f := range c.feeds {
		if f.CategoryLabel() == category {
			out = append(out, f)
		}
	}
	return out, nil
}

func (c *fakeCatalog) ListCategories(ctx context.Context) ([]models.Category, error) {
	return c.categories, nil
}

func (c *fakeCatalog) GetFeedByName(ctx context.Context, name string) (*models.Feed, error) {
	for i, f := range c.feeds {
		if f.Name == name || f.Title == name {
			return &c.feeds[i], nil
		}
	}
	return nil, models.Errorf(models.ErrNotFound, "store.GetFeedByName", name, "feed %q not found", name)
}

func (c *fakeCatalog) RecentEntries(ctx context.Context, feedID int64, limit int) ([]models.Entry, error) {
	entries := c.entries[feedID]
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (c *fakeCatalog) EntriesForFeed(ctx context.Context, feedID int64) ([]models.Entry, error) {
	return c.entries[feedID], nil
}

type fakeSearcher struct {
	lastQuery string
	lastOpts  search.Options
}

func (s *fakeSearcher) Search(ctx context.Context, query string, opts search.Options) (*search.Results, error) {
	if query == "" {
		return nil, models.Errorf(models.ErrValidation, "search.Search", "", "query must not be empty")
	}
	s.lastQuery = query
	s.lastOpts = opts
	return &search.Results{Query: query}, nil
}

type fakeRefresher struct {
	report models.FeedReport
}

func (r *fakeRefresher) RefreshFeed(ctx context.Context, feed models.Feed) models.FeedReport {
	report := r.report
	report.FeedURL = feed.URL
	return report
}

type fakeCrawler struct{}

func (c *fakeCrawler) Crawl(ctx context.Context, url string) (*crawler.Page, error) {
	return &crawler.Page{URL: url, Title: "Page", Content: "text"}, nil
}

func testDeps() Deps {
	now := time.Now().UTC()
	return Deps{
		Catalog: &fakeCatalog{
			feeds: []models.Feed{
				{ID: 1, Name: "Tech Weekly", URL: "https://tech.example.com/rss", Category: "tech"},
				{ID: 2, Name: "Science Daily", URL: "https://sci.example.com/rss", Category: "science"},
			},
			categories: []models.Category{
				{Name: "science", FeedCount: 1},
				{Name: "tech", FeedCount: 1},
			},
			entries: map[int64][]models.Entry{
				1: {
					{ID: 10, FeedID: 1, Title: "Today", Link: "https://tech.example.com/1", Published: now.Add(-2 * time.Hour)},
					{ID: 11, FeedID: 1, Title: "This week", Link: "https://tech.example.com/2", Published: now.Add(-3 * 24 * time.Hour)},
					{ID: 12, FeedID: 1, Title: "This month", Link: "https://tech.example.com/3", Published: now.Add(-20 * 24 * time.Hour)},
					{ID: 13, FeedID: 1, Title: "Ancient", Link: "https://tech.example.com/4", Published: now.Add(-90 * 24 * time.Hour)},
				},
			},
		},
		Searcher: &fakeSearcher{},
		Refresh:  &fakeRefresher{report: models.FeedReport{OK: true, Counts: models.UpdateCounts{Inserted: 2}}},
		Crawler:  &fakeCrawler{},
	}
}

func newTestRegistry(t *testing.T, deps Deps) *Registry {
	t.Helper()
	r, err := NewRegistry(deps)
	require.NoError(t, err)
	return r
}

func args(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestRegistryRejectsDuplicateOperation(t *testing.T) {
	r := newTestRegistry(t, testDeps())
	err := r.register(Definition{
		Name:    "crawl_url",
		handler: func(ctx context.Context, args json.RawMessage) (interface{}, error) { return nil, nil },
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestRegistryRejectsMissingHandler(t *testing.T) {
	r := &Registry{defs: map[string]Definition{}}
	err := r.register(Definition{Name: "broken"})
	require.Error(t, err)
}

func TestDefinitionsSortedByName(t *testing.T) {
	defs := newTestRegistry(t, testDeps()).Definitions()
	require.Len(t, defs, 6)
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	assert.Equal(t, []string{
		"crawl_url", "fetch_feed", "get_all_categories",
		"get_category_feeds", "get_feed_details", "search_related_feeds",
	}, names)
}

func TestDispatchUnknownOperation(t *testing.T) {
	r := newTestRegistry(t, testDeps())
	result := r.Dispatch(context.Background(), "does_not_exist", nil)

	assert.False(t, result.OK)
	assert.NotEmpty(t, result.CallID)
	require.NotNil(t, result.Error)
	assert.Equal(t, models.ErrValidation, result.Error.Kind)
}

func TestDispatchMalformedArguments(t *testing.T) {
	r := newTestRegistry(t, testDeps())
	result := r.Dispatch(context.Background(), "crawl_url", json.RawMessage(`{"url": 42`))

	assert.False(t, result.OK)
	require.NotNil(t, result.Error)
	assert.Equal(t, models.ErrValidation, result.Error.Kind)
}

func TestGetAllCategories(t *testing.T) {
	r := newTestRegistry(t, testDeps())
	result := r.Dispatch(context.Background(), "get_all_categories", nil)

	require.True(t, result.OK)
	data := result.Data.(map[string]interface{})
	assert.Equal(t, 2, data["total"])
}

func TestGetCategoryFeedsUnknownCategory(t *testing.T) {
	r := newTestRegistry(t, testDeps())
	result := r.Dispatch(context.Background(), "get_category_feeds",
		args(t, map[string]string{"category": "sports"}))

	require.True(t, result.OK)
	data := result.Data.(map[string]interface{})
	assert.Equal(t, 0, data["total"])
	assert.Equal(t, []string{"science", "tech"}, data["available_categories"])
}

func TestGetCategoryFeedsKnownCategory(t *testing.T) {
	r := newTestRegistry(t, testDeps())
	result := r.Dispatch(context.Background(), "get_category_feeds",
		args(t, map[string]string{"category": "tech"}))

	require.True(t, result.OK)
	data := result.Data.(map[string]interface{})
	assert.Equal(t, 1, data["total"])
	feeds := data["feeds"].([]feedSummary)
	require.Len(t, feeds, 1)
	assert.Equal(t, "Tech Weekly", feeds[0].Name)
	require.NotEmpty(t, feeds[0].Entries)
}

func TestGetFeedDetailsBucketsByRecency(t *testing.T) {
	r := newTestRegistry(t, testDeps())
	result := r.Dispatch(context.Background(), "get_feed_details",
		args(t, map[string]string{"feed_name": "Tech Weekly"}))

	require.True(t, result.OK)
	data := result.Data.(map[string]interface{})
	assert.Equal(t, 4, data["entries_count"])

	buckets := data["entries"].(map[string]recencyBucket)
	assert.Equal(t, 1, buckets["last_24h"].Count)
	assert.Equal(t, 1, buckets["last_week"].Count)
	assert.Equal(t, 1, buckets["last_month"].Count)
	assert.Equal(t, 1, buckets["older"].Count)
	assert.Equal(t, "Today", buckets["last_24h"].Entries[0].Title)
}

func TestGetFeedDetailsNotFound(t *testing.T) {
	r := newTestRegistry(t, testDeps())
	result := r.Dispatch(context.Background(), "get_feed_details",
		args(t, map[string]string{"feed_name": "Nope"}))

	assert.False(t, result.OK)
	require.NotNil(t, result.Error)
	assert.Equal(t, models.ErrNotFound, result.Error.Kind)
}

func TestSearchRelatedFeedsForwardsOptions(t *testing.T) {
	deps := testDeps()
	searcher := deps.Searcher.(*fakeSearcher)
	r := newTestRegistry(t, deps)

	result := r.Dispatch(context.Background(), "search_related_feeds",
		args(t, map[string]interface{}{"query": "space telescopes", "limit": 7, "category": "science"}))

	require.True(t, result.OK)
	assert.Equal(t, "space telescopes", searcher.lastQuery)
	assert.Equal(t, 7, searcher.lastOpts.Limit)
	assert.Equal(t, "science", searcher.lastOpts.Category)
}

func TestSearchRelatedFeedsEmptyQuery(t *testing.T) {
	r := newTestRegistry(t, testDeps())
	result := r.Dispatch(context.Background(), "search_related_feeds",
		args(t, map[string]string{"query": ""}))

	assert.False(t, result.OK)
	require.NotNil(t, result.Error)
	assert.Equal(t, models.ErrValidation, result.Error.Kind)
}

func TestFetchFeedReturnsReport(t *testing.T) {
	r := newTestRegistry(t, testDeps())
	result := r.Dispatch(context.Background(), "fetch_feed",
		args(t, map[string]string{"feed_name": "Tech Weekly"}))

	require.True(t, result.OK)
	report := result.Data.(models.FeedReport)
	assert.True(t, report.OK)
	assert.Equal(t, 2, report.Counts.Inserted)
}

func TestFetchFeedUnknownFeed(t *testing.T) {
	r := newTestRegistry(t, testDeps())
	result := r.Dispatch(context.Background(), "fetch_feed",
		args(t, map[string]string{"feed_name": "Nope"}))

	assert.False(t, result.OK)
	require.NotNil(t, result.Error)
	assert.Equal(t, models.ErrNotFound, result.Error.Kind)
}

func TestFetchFeedSurfacesFetchFailure(t *testing.T) {
	deps := testDeps()
	deps.Refresh = &fakeRefresher{report: models.FeedReport{
		OK: false,
		Error: &models.ErrorPayload{
			Kind: models.ErrFetch, Op: "fetcher.Fetch",
			Subject: "https://tech.example.com/rss", Message: "connection refused",
		},
	}}
	r := newTestRegistry(t, deps)

	result := r.Dispatch(context.Background(), "fetch_feed",
		args(t, map[string]string{"feed_name": "Tech Weekly"}))

	assert.False(t, result.OK)
	require.NotNil(t, result.Error)
	assert.Equal(t, models.ErrFetch, result.Error.Kind)
	assert.Equal(t, "connection refused", result.Error.Message)
}

func TestCrawlURLRequiresURL(t *testing.T) {
	r := newTestRegistry(t, testDeps())
	result := r.Dispatch(context.Background(), "crawl_url",
		args(t, map[string]string{"url": "  "}))

	assert.False(t, result.OK)
	require.NotNil(t, result.Error)
	assert.Equal(t, models.ErrValidation, result.Error.Kind)
}

func TestDispatchContainsPanic(t *testing.T) {
	r := newTestRegistry(t, testDeps())
	require.NoError(t, r.register(Definition{
		Name: "explode",
		handler: func(ctx context.Context, args json.RawMessage) (interface{}, error) {
			panic("boom")
		},
	}))

	result := r.Dispatch(context.Background(), "explode", nil)
	assert.False(t, result.OK)
	require.NotNil(t, result.Error)
	assert.Equal(t, models.ErrStore, result.Error.Kind)
}
