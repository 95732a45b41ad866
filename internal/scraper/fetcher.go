package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
)

// CollyFetcher implements inventory.PageFetcher using the Colly collector.
// Phones are revisited on every scrape run, so URL dedup is disabled.
type CollyFetcher struct {
	timeout       time.Duration
	baseCollector *colly.Collector
}

// NewCollyFetcher builds a fetcher with the given per-request timeout.
func NewCollyFetcher(timeout time.Duration) *CollyFetcher {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	c.SetRequestTimeout(timeout)
	return &CollyFetcher{timeout: timeout, baseCollector: c}
}

// Fetch executes a single HTTP GET against a device page.
func (f *CollyFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetch canceled: %w", err)
	}

	// Clone per call: callbacks registered on a collector accumulate, and
	// workers share one fetcher.
	collector := f.baseCollector.Clone()
	collector.SetRequestTimeout(f.timeout)

	var (
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := collector.Visit(url); err != nil {
		return nil, fmt.Errorf("visit %s: %w", url, err)
	}
	collector.Wait()

	if fetchErr != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, fetchErr)
	}
	return body, nil
}
