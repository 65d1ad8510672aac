// Package feed fetches and parses RSS/Atom feeds using gofeed, wrapped with
// the project's circuit breaker and retry helpers.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"newsaggregator/internal/resilience/circuitbreaker"
	"newsaggregator/internal/resilience/retry"

	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"
)

// Link is one <link> element of a parsed entry, preserving its rel
// attribute so callers can prefer rel="alternate" links.
type Link struct {
	URL string
	Rel string
}

// Entry is one parsed feed item, prior to any sanitization or normalization.
type Entry struct {
	Title       string
	Links       []Link
	Description string
	Content     string
	Published   *time.Time
	Updated     *time.Time
}

// Result is the outcome of one Fetch call.
type Result struct {
	NotModified bool
	ETag        string
	FeedTitle   string
	SiteURL     string
	Entries     []Entry
}

// Fetcher retrieves and parses a feed, honoring a previously seen ETag via
// conditional GET.
type Fetcher interface {
	Fetch(ctx context.Context, feedURL, lastETag string) (*Result, error)
}

// GofeedFetcher implements Fetcher using the gofeed library, wrapped with a
// circuit breaker and retry policy for resilience against flaky sources.
type GofeedFetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewHTTPClient builds the outbound HTTP client used for feed fetches,
// applying HTTP_PROXY/HTTPS_PROXY/NO_PROXY from host configuration.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
		},
	}
}

// NewGofeedFetcher creates a Fetcher using the given HTTP client, with the
// package's standard feed-fetch circuit breaker and retry configuration.
func NewGofeedFetcher(client *http.Client) *GofeedFetcher {
	return &GofeedFetcher{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		retryConfig:    retry.FeedFetchConfig(),
	}
}

// ErrNotModified is returned by doFetch to signal a 304 response; Fetch
// translates this into a Result with NotModified set rather than an error.
var ErrNotModified = errors.New("feed not modified")

// Fetch performs a conditional GET against feedURL and parses the response
// body as RSS or Atom. A 304 response yields a Result with NotModified=true
// and no entries.
func (f *GofeedFetcher) Fetch(ctx context.Context, feedURL, lastETag string) (*Result, error) {
	var result *Result

	retryErr := retry.WithBackoff(ctx, f.retryConfig, func() error {
		cbResult, err := f.circuitBreaker.Execute(func() (interface{}, error) {
			return f.doFetch(ctx, feedURL, lastETag)
		})
		if err != nil {
			if errors.Is(err, ErrNotModified) {
				result = &Result{NotModified: true}
				return nil
			}
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("feed fetch circuit breaker open, request rejected",
					slog.String("url", feedURL),
					slog.String("state", f.circuitBreaker.State().String()))
			}
			return err
		}
		result = cbResult.(*Result)
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}
	return result, nil
}

func (f *GofeedFetcher) doFetch(ctx context.Context, feedURL, lastETag string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "newsaggregator/1.0")
	if lastETag != "" {
		req.Header.Set("If-None-Match", lastETag)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		io.Copy(io.Discard, resp.Body)
		return nil, ErrNotModified
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("feed fetch: unexpected status %d", resp.StatusCode)
	}

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("feed parse: %w", err)
	}

	entries := make([]Entry, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		entries = append(entries, toEntry(it))
	}

	siteURL := parsed.Link
	return &Result{
		ETag:      strings.TrimSpace(resp.Header.Get("ETag")),
		FeedTitle: parsed.Title,
		SiteURL:   siteURL,
		Entries:   entries,
	}, nil
}

func toEntry(it *gofeed.Item) Entry {
	links := make([]Link, 0, len(it.Links)+1)
	if it.Link != "" {
		links = append(links, Link{URL: it.Link, Rel: "alternate"})
	}

	content := it.Content
	if content == "" {
		content = it.Description
	}

	return Entry{
		Title:       it.Title,
		Links:       links,
		Description: it.Description,
		Content:     content,
		Published:   it.PublishedParsed,
		Updated:     it.UpdatedParsed,
	}
}
