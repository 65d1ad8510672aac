package pathutil_test

import (
	"fmt"

	"newsaggregator/internal/handler/http/pathutil"
)

// ExampleNormalizePath demonstrates how path normalization works
// to prevent metrics label cardinality explosion.
func ExampleNormalizePath() {
	// Before normalization: Each feed ID creates a unique path label
	// This would cause cardinality explosion in Prometheus metrics

	// After normalization: All feed IDs map to the same template
	fmt.Println(pathutil.NormalizePath("/feeds/123"))
	fmt.Println(pathutil.NormalizePath("/feeds/456"))
	fmt.Println(pathutil.NormalizePath("/feeds/789"))

	// Output:
	// /feeds/:id
	// /feeds/:id
	// /feeds/:id
}

// ExampleNormalizePath_clicks demonstrates normalization for article click endpoints.
func ExampleNormalizePath_clicks() {
	fmt.Println(pathutil.NormalizePath("/articles/1/click"))
	fmt.Println(pathutil.NormalizePath("/articles/2/click"))
	fmt.Println(pathutil.NormalizePath("/articles/3/click"))

	// Output:
	// /articles/:id/click
	// /articles/:id/click
	// /articles/:id/click
}

// ExampleNormalizePath_static demonstrates that static endpoints remain unchanged.
func ExampleNormalizePath_static() {
	fmt.Println(pathutil.NormalizePath("/health"))
	fmt.Println(pathutil.NormalizePath("/metrics"))
	fmt.Println(pathutil.NormalizePath("/settings/translation"))

	// Output:
	// /health
	// /metrics
	// /settings/translation
}

// ExampleNormalizePath_literalSegments demonstrates that non-numeric segments
// under a dynamic prefix remain unchanged.
func ExampleNormalizePath_literalSegments() {
	fmt.Println(pathutil.NormalizePath("/feeds/test"))
	fmt.Println(pathutil.NormalizePath("/articles/featured"))

	// Output:
	// /feeds/test
	// /articles/featured
}

// ExampleNormalizePath_queryParameters demonstrates that query parameters are stripped.
func ExampleNormalizePath_queryParameters() {
	fmt.Println(pathutil.NormalizePath("/feeds/123?force=1"))
	fmt.Println(pathutil.NormalizePath("/articles/featured?limit=5"))
	fmt.Println(pathutil.NormalizePath("/health?format=json"))

	// Output:
	// /feeds/:id
	// /articles/featured
	// /health
}

// ExampleNormalizePath_trailingSlash demonstrates that trailing slashes are handled.
func ExampleNormalizePath_trailingSlash() {
	fmt.Println(pathutil.NormalizePath("/feeds/123/"))
	fmt.Println(pathutil.NormalizePath("/articles/456/click/"))

	// Output:
	// /feeds/:id
	// /articles/:id/click
}

// ExampleNormalizePath_nested demonstrates normalization of nested routes.
func ExampleNormalizePath_nested() {
	fmt.Println(pathutil.NormalizePath("/feeds/123/fetch"))
	fmt.Println(pathutil.NormalizePath("/articles/456/click"))

	// Output:
	// /feeds/:id/fetch
	// /articles/:id/click
}

// ExampleGetExpectedCardinality demonstrates how to check expected metric cardinality.
func ExampleGetExpectedCardinality() {
	cardinality := pathutil.GetExpectedCardinality()
	fmt.Printf("Expected unique path labels: ~%d\n", cardinality)

	// Output is approximate, so we just demonstrate the usage
	// In real output: Expected unique path labels: ~14
}
