package entity

import "time"

// Article represents a normalized, deduplicated feed entry.
type Article struct {
	ID           int64
	FeedID       *int64
	Title        string
	URL          string
	Description  string
	Language     string
	SourceDomain string
	PublishedAt  time.Time
	FetchedAt    time.Time
	ClickCount   int64
	CanonicalID  int64
}

// Validate checks the invariants required before an Article can be inserted:
// non-empty title and URL. CanonicalID is back-filled by the store adapter on
// insert and is not checked here.
func (a *Article) Validate() error {
	if a.Title == "" {
		return &ValidationError{Field: "title", Message: "must not be empty"}
	}
	if a.URL == "" {
		return &ValidationError{Field: "url", Message: "must not be empty"}
	}
	return nil
}
