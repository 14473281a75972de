package fetcher

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/rssai/pkg/models"
)

// Outcome is the isolated result of fetching one feed in a batch
type Outcome struct {
	URL    string
	Result *Result
	Err    error
}

// FetchAll retrieves many feeds concurrently through a bounded worker
// pool. Each feed's failure is captured in its outcome; one slow or
// broken remote never aborts the others. Outcomes keep the input order.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string, policy models.FetchPolicy) []Outcome {
	outcomes := make([]Outcome, len(urls))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, url := range urls {
		i, url := i, url
		g.Go(func() error {
			result, err := f.Fetch(ctx, url, policy)
			outcomes[i] = Outcome{URL: url, Result: result, Err: err}
			return nil
		})
	}
	// Workers never return errors; Wait only blocks for completion.
	_ = g.Wait()

	return outcomes
}
