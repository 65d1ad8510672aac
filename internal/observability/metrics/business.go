package metrics

import (
	"fmt"
	"time"
)

// RecordEntryOutcome records what happened to one processed feed entry.
func RecordEntryOutcome(outcome string) {
	EntriesProcessedTotal.WithLabelValues(outcome).Inc()
}

// RecordDedupDecision records the verdict of one dedup comparison at a
// given pipeline stage ("intra_batch", "recent_jaccard", "llm").
func RecordDedupDecision(stage string, isDuplicate bool) {
	verdict := "unique"
	if isDuplicate {
		verdict = "duplicate"
	}
	DedupDecisionsTotal.WithLabelValues(stage, verdict).Inc()
}

// RecordTranslationCall records the outcome of one translation engine call.
func RecordTranslationCall(provider, result string) {
	TranslationCallsTotal.WithLabelValues(provider, result).Inc()
}

// RecordFeedCrawl records metrics for one feed's fetch+parse+pipeline pass.
func RecordFeedCrawl(feedID int64, duration time.Duration) {
	FeedCrawlDuration.WithLabelValues(fmt.Sprintf("%d", feedID)).Observe(duration.Seconds())
}

// RecordFeedCrawlError records an error during feed crawling.
func RecordFeedCrawlError(feedID int64, errorType string) {
	FeedCrawlErrors.WithLabelValues(fmt.Sprintf("%d", feedID), errorType).Inc()
}

// UpdateArticlesTotal updates the total count of articles in the database.
func UpdateArticlesTotal(count int) {
	ArticlesTotal.Set(float64(count))
}

// UpdateFeedsTotal updates the total count of feeds in the database.
func UpdateFeedsTotal(count int) {
	FeedsTotal.Set(float64(count))
}

// RecordDBQuery records the duration of a database query operation.
// Operation should describe the query type (e.g., "select_articles", "insert_article").
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool statistics.
func UpdateDBConnectionStats(active, idle int) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
