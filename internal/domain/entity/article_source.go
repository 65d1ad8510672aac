package entity

import "time"

// Decision records why an ArticleSource row was written: the entry was
// accepted as the primary record, or rejected as a duplicate by one of the
// dedup stages.
const (
	DecisionPrimary       = "primary"
	DecisionRecentJaccard = "recent_jaccard"
	DecisionLLMDuplicate  = "llm_duplicate"
)

// ArticleSource is the provenance row written for every processed entry,
// whether it was accepted or rejected as a duplicate of an existing article.
type ArticleSource struct {
	ArticleID    int64
	FeedID       int64
	SourceDomain string
	SourceURL    string
	PublishedAt  time.Time
	InsertedAt   time.Time
	Decision     string
	Confidence   *float64
}
