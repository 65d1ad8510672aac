package pathutil

import (
	"regexp"
	"strings"
)

// PathPattern represents a regex pattern and its corresponding normalized template.
type PathPattern struct {
	Pattern  *regexp.Regexp
	Template string
}

// pathPatterns defines the list of patterns for dynamic routes.
// Patterns are evaluated in order from most specific to least specific.
// Pre-compiled at initialization for optimal performance (<1μs per operation).
var pathPatterns = []*PathPattern{
	// Feed routes with IDs
	{Pattern: regexp.MustCompile(`^/feeds/\d+/fetch$`), Template: "/feeds/:id/fetch"},
	{Pattern: regexp.MustCompile(`^/feeds/\d+$`), Template: "/feeds/:id"},

	// Article routes with IDs
	{Pattern: regexp.MustCompile(`^/articles/\d+/click$`), Template: "/articles/:id/click"},
}

// NormalizePath normalizes dynamic URL paths to prevent metrics label cardinality explosion.
// It converts paths with IDs (e.g., /feeds/123) to template format (e.g., /feeds/:id).
// Static paths remain unchanged.
//
// Performance: <1μs per operation (pre-compiled regex patterns)
//
// Examples:
//
//	NormalizePath("/feeds/123")             // "/feeds/:id"
//	NormalizePath("/feeds/456/fetch")       // "/feeds/:id/fetch"
//	NormalizePath("/articles/789/click")    // "/articles/:id/click"
//	NormalizePath("/feeds/test")            // "/feeds/test" (unchanged)
//	NormalizePath("/articles/featured")     // "/articles/featured" (unchanged)
//	NormalizePath("/health")                // "/health" (unchanged)
//	NormalizePath("/metrics")               // "/metrics" (unchanged)
//	NormalizePath("/unknown/path/123")      // "/unknown/path/123" (no match, return original)
//
// Query parameters and trailing slashes are handled:
//
//	NormalizePath("/feeds/123?force=1")     // "/feeds/:id"
//	NormalizePath("/feeds/123/")            // "/feeds/:id"
func NormalizePath(path string) string {
	// Strip query parameters if present
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}

	// Strip trailing slash if present (except for root path)
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}

	// Try to match against known patterns
	for _, p := range pathPatterns {
		if p.Pattern.MatchString(path) {
			return p.Template
		}
	}

	// No match found, return original path
	// This is safe - static paths like /health, /metrics, /feeds/test
	// and list endpoints like /articles/featured will pass through unchanged
	return path
}

// GetExpectedCardinality returns the expected number of unique path labels
// after normalization. This is useful for capacity planning and monitoring.
//
// Expected cardinality calculation:
//   - Static endpoints: ~11 (feeds, feeds/test, articles, articles/featured,
//     the three settings routes, the three health routes, metrics)
//   - Template endpoints: 3 (feeds/:id, feeds/:id/fetch, articles/:id/click)
//   - Total: ~14 unique path labels
func GetExpectedCardinality() int {
	// Count template patterns
	templateCount := len(pathPatterns)

	// Estimate static endpoints
	staticCount := 11 // /feeds, /feeds/test, /articles, /articles/featured, /settings/*, /health*, /metrics

	// Total expected cardinality
	return templateCount + staticCount
}
