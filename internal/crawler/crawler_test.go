package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rssai/internal/config"
	"github.com/rssai/pkg/models"
)

func newTestCrawler() *Crawler {
	return New(config.CrawlConfig{
		Timeout:  config.Duration(5 * time.Second),
		MaxBytes: 1 << 20,
	})
}

func TestCrawlExtractsReadableText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html>
			<head><title>Release Notes</title><style>p { color: red; }</style></head>
			<body>
				<nav>Home | About</nav>
				<script>console.log("tracking")</script>
				<h1>Version 2.0</h1>
				<p>The storage layer was rewritten.</p>
				<ul><li>Faster queries</li></ul>
				<footer>Copyright</footer>
			</body>
		</html>`))
	}))
	defer srv.Close()

	page, err := newTestCrawler().Crawl(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Release Notes", page.Title)
	assert.Contains(t, page.Content, "Version 2.0")
	assert.Contains(t, page.Content, "The storage layer was rewritten.")
	assert.Contains(t, page.Content, "Faster queries")
	assert.NotContains(t, page.Content, "tracking")
	assert.NotContains(t, page.Content, "color: red")
	assert.NotContains(t, page.Content, "Home | About")
	assert.NotContains(t, page.Content, "Copyright")
}

func TestCrawlRejectsInvalidURL(t *testing.T) {
	for _, raw := range []string{"", "not-a-url", "ftp://example.com/file", "javascript:alert(1)"} {
		_, err := newTestCrawler().Crawl(context.Background(), raw)
		require.Error(t, err, "url %q", raw)
		assert.Equal(t, models.ErrValidation, models.KindOf(err))
	}
}

func TestCrawlNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestCrawler().Crawl(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, models.ErrCrawl, models.KindOf(err))
}

func TestCrawlNoExtractableContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><script>var x = 1;</script></body></html>`))
	}))
	defer srv.Close()

	_, err := newTestCrawler().Crawl(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, models.ErrCrawl, models.KindOf(err))
}
