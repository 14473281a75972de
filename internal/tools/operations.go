package tools

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rssai/internal/search"
	"github.com/rssai/pkg/models"
)

const (
	categoryEntryLimit = 5
	previewChars       = 200
)

func operations(deps Deps) []Definition {
	return []Definition{
		{
			Name:        "get_all_categories",
			Description: "List every feed category with the number of feeds in each.",
			Input:       map[string]Param{},
			handler:     getAllCategories(deps.Catalog),
		},
		{
			Name:        "get_category_feeds",
			Description: "List the feeds in one category, each with its most recent entries.",
			Input: map[string]Param{
				"category": {Type: "string", Description: "Category label, case-insensitive", Required: true},
			},
			handler: getCategoryFeeds(deps.Catalog),
		},
		{
			Name:        "get_feed_details",
			Description: "Show one feed with its entries grouped by recency.",
			Input: map[string]Param{
				"feed_name": {Type: "string", Description: "Feed name or title", Required: true},
			},
			handler: getFeedDetails(deps.Catalog),
		},
		{
			Name:        "search_related_feeds",
			Description: "Semantic search over stored entries, grouped by feed relevance.",
			Input: map[string]Param{
				"query":    {Type: "string", Description: "Natural-language query", Required: true},
				"limit":    {Type: "integer", Description: "Maximum entries to return", Required: false},
				"category": {Type: "string", Description: "Restrict to one category", Required: false},
			},
			handler: searchRelatedFeeds(deps.Searcher),
		},
		{
			Name:        "fetch_feed",
			Description: "Fetch a feed from its source now and ingest new entries.",
			Input: map[string]Param{
				"feed_name": {Type: "string", Description: "Feed name or title", Required: true},
			},
			handler: fetchFeed(deps.Catalog, deps.Refresh),
		},
		{
			Name:        "crawl_url",
			Description: "Download a web page and extract its readable text.",
			Input: map[string]Param{
				"url": {Type: "string", Description: "Absolute http or https URL", Required: true},
			},
			handler: crawlURL(deps.Crawler),
		},
	}
}

// entrySummary is the trimmed entry shape embedded in operation output
type entrySummary struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Published string `json:"published"`
	Preview   string `json:"preview"`
}

func summarize(e models.Entry) entrySummary {
	return entrySummary{
		Title:     e.Title,
		Link:      e.Link,
		Published: e.Published.UTC().Format(time.RFC3339),
		Preview:   e.ContentPreview(previewChars),
	}
}

func summarizeAll(entries []models.Entry) []entrySummary {
	out := make([]entrySummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, summarize(e))
	}
	return out
}

type feedSummary struct {
	Name        string         `json:"name"`
	URL         string         `json:"url"`
	Description string         `json:"description,omitempty"`
	Category    string         `json:"category"`
	LastUpdated string         `json:"last_updated,omitempty"`
	Entries     []entrySummary `json:"entries,omitempty"`
}

func summarizeFeed(f models.Feed) feedSummary {
	s := feedSummary{
		Name:        f.DisplayName(),
		URL:         f.URL,
		Description: f.Description,
		Category:    f.CategoryLabel(),
	}
	if f.LastUpdated != nil {
		s.LastUpdated = f.LastUpdated.UTC().Format(time.RFC3339)
	}
	return s
}

func getAllCategories(catalog Catalog) Handler {
	return func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		categories, err := catalog.ListCategories(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"categories": categories,
			"total":      len(categories),
		}, nil
	}
}

func getCategoryFeeds(catalog Catalog) Handler {
	return func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		var in struct {
			Category string `json:"category"`
		}
		if err := decodeArgs("get_category_feeds", args, &in); err != nil {
			return nil, err
		}
		in.Category = strings.TrimSpace(in.Category)
		if in.Category == "" {
			return nil, models.Errorf(models.ErrValidation, "get_category_feeds", "", "category is required")
		}

		feeds, err := catalog.ListFeedsByCategory(ctx, in.Category)
		if err != nil {
			return nil, err
		}

		out := map[string]interface{}{
			"category": strings.ToLower(in.Category),
			"feeds":    []feedSummary{},
			"total":    len(feeds),
		}
		if len(feeds) == 0 {
			// Unknown category is not an error; hand back the valid
			// labels so the caller can correct itself.
			categories, err := catalog.ListCategories(ctx)
			if err != nil {
				return nil, err
			}
			labels := make([]string, 0, len(categories))
			for _, c := range categories {
				labels = append(labels, c.Name)
			}
			out["available_categories"] = labels
			return out, nil
		}

		summaries := make([]feedSummary, 0, len(feeds))
		for _, f := range feeds {
			s := summarizeFeed(f)
			entries, err := catalog.RecentEntries(ctx, f.ID, categoryEntryLimit)
			if err != nil {
				return nil, err
			}
			s.Entries = summarizeAll(entries)
			summaries = append(summaries, s)
		}
		out["feeds"] = summaries
		return out, nil
	}
}

func getFeedDetails(catalog Catalog) Handler {
	return func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		var in struct {
			FeedName string `json:"feed_name"`
		}
		if err := decodeArgs("get_feed_details", args, &in); err != nil {
			return nil, err
		}
		in.FeedName = strings.TrimSpace(in.FeedName)
		if in.FeedName == "" {
			return nil, models.Errorf(models.ErrValidation, "get_feed_details", "", "feed_name is required")
		}

		feed, err := catalog.GetFeedByName(ctx, in.FeedName)
		if err != nil {
			return nil, err
		}
		entries, err := catalog.EntriesForFeed(ctx, feed.ID)
		if err != nil {
			return nil, err
		}

		return map[string]interface{}{
			"feed":          summarizeFeed(*feed),
			"entries_count": len(entries),
			"entries":       bucketByRecency(entries, time.Now()),
		}, nil
	}
}

// recencyBucket groups entries published within one window
type recencyBucket struct {
	Count   int            `json:"count"`
	Entries []entrySummary `json:"entries"`
}

// bucketByRecency splits entries into last 24 hours, last week, last
// month and older. Entries arrive newest first and stay that way.
func bucketByRecency(entries []models.Entry, now time.Time) map[string]recencyBucket {
	buckets := map[string]recencyBucket{
		"last_24h":   {Entries: []entrySummary{}},
		"last_week":  {Entries: []entrySummary{}},
		"last_month": {Entries: []entrySummary{}},
		"older":      {Entries: []entrySummary{}},
	}
	for _, e := range entries {
		age := now.Sub(e.Published)
		var key string
		switch {
		case age <= 24*time.Hour:
			key = "last_24h"
		case age <= 7*24*time.Hour:
			key = "last_week"
		case age <= 30*24*time.Hour:
			key = "last_month"
		default:
			key = "older"
		}
		b := buckets[key]
		b.Count++
		b.Entries = append(b.Entries, summarize(e))
		buckets[key] = b
	}
	return buckets
}

func searchRelatedFeeds(searcher Searcher) Handler {
	return func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		var in struct {
			Query    string `json:"query"`
			Limit    int    `json:"limit"`
			Category string `json:"category"`
		}
		if err := decodeArgs("search_related_feeds", args, &in); err != nil {
			return nil, err
		}
		return searcher.Search(ctx, in.Query, search.Options{
			Limit:    in.Limit,
			Category: in.Category,
		})
	}
}

func fetchFeed(catalog Catalog, refresh Refresher) Handler {
	return func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		var in struct {
			FeedName string `json:"feed_name"`
		}
		if err := decodeArgs("fetch_feed", args, &in); err != nil {
			return nil, err
		}
		in.FeedName = strings.TrimSpace(in.FeedName)
		if in.FeedName == "" {
			return nil, models.Errorf(models.ErrValidation, "fetch_feed", "", "feed_name is required")
		}

		feed, err := catalog.GetFeedByName(ctx, in.FeedName)
		if err != nil {
			return nil, err
		}
		report := refresh.RefreshFeed(ctx, *feed)
		if !report.OK && report.Error != nil {
			return nil, models.Errorf(report.Error.Kind, report.Error.Op,
				report.Error.Subject, "%s", report.Error.Message)
		}
		return report, nil
	}
}

func crawlURL(cr Crawler) Handler {
	return func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		var in struct {
			URL string `json:"url"`
		}
		if err := decodeArgs("crawl_url", args, &in); err != nil {
			return nil, err
		}
		in.URL = strings.TrimSpace(in.URL)
		if in.URL == "" {
			return nil, models.Errorf(models.ErrValidation, "crawl_url", "", "url is required")
		}
		return cr.Crawl(ctx, in.URL)
	}
}
