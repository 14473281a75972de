// Package crawler extracts readable text from arbitrary web pages for
// the crawl_url operation.
package crawler

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/rssai/internal/config"
	"github.com/rssai/pkg/models"
)

// Page is the extracted content of a crawled URL
type Page struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Crawler fetches pages with a bounded timeout and response size
type Crawler struct {
	client   *http.Client
	maxBytes int64
}

// New creates a crawler from configuration.
func New(cfg config.CrawlConfig) *Crawler {
	return &Crawler{
		client:   &http.Client{Timeout: cfg.Timeout.Std()},
		maxBytes: cfg.MaxBytes,
	}
}

// Crawl retrieves the URL and extracts its title and paragraph text.
// Script, style and navigation chrome are stripped. Empty extraction
// is a CrawlError, not an empty success.
func (c *Crawler) Crawl(ctx context.Context, rawURL string) (*Page, error) {
	const op = "crawler.Crawl"

	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, models.Errorf(models.ErrValidation, op, rawURL, "not an http(s) url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, models.E(models.ErrCrawl, op, rawURL, err)
	}
	req.Header.Set("User-Agent", "rssai/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, models.E(models.ErrCrawl, op, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, models.Errorf(models.ErrCrawl, op, rawURL, "unexpected status %s", resp.Status)
	}

	body := io.LimitReader(resp.Body, c.maxBytes)
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, models.E(models.ErrCrawl, op, rawURL, err)
	}

	doc.Find("script, style, noscript, iframe, nav, header, footer, form").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	var parts []string
	doc.Find("h1, h2, h3, h4, p, li, article").Each(func(_ int, sel *goquery.Selection) {
		// Skip containers; their children are visited separately.
		if sel.Is("article") && sel.Find("p").Length() > 0 {
			return
		}
		text := strings.Join(strings.Fields(sel.Text()), " ")
		if text != "" {
			parts = append(parts, text)
		}
	})

	content := strings.Join(parts, "\n\n")
	if content == "" {
		return nil, models.Errorf(models.ErrCrawl, op, rawURL, "no extractable content")
	}
	return &Page{URL: rawURL, Title: title, Content: content}, nil
}
