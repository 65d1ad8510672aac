// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes all application metrics including:
//   - HTTP request metrics (duration, count, size)
//   - Business metrics (feed crawls, dedup decisions, translation calls)
//   - Database query metrics
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "newsaggregator/internal/observability/metrics"
//
//	func crawlFeed(feedID int64) {
//	    start := time.Now()
//	    // ... fetch, parse, process ...
//
//	    metrics.RecordFeedCrawl(feedID, time.Since(start))
//	}
package metrics
