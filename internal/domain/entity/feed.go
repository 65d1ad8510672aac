// Package entity defines the core domain entities and validation logic for the application.
package entity

import (
	"fmt"
	"strings"
	"time"
)

// Feed represents a subscribed RSS/Atom source.
type Feed struct {
	ID                   int64
	URL                  string
	Title                string
	SiteURL              string
	SourceDomain         string
	Enabled              bool
	FetchIntervalSeconds int32
	FilterCondition      string
	LastETag             string
	LastFetchAt          *time.Time
	LastFetchStatus      *int16
	FailCount            int32
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Default scheduler tunables applied when a persisted value is zero.
const (
	DefaultFetchIntervalSeconds = 600
)

// Validate checks the feed's invariants: non-empty URL and a positive fetch
// interval. SourceDomain is inferred from the URL host when not supplied.
func (f *Feed) Validate() error {
	f.URL = strings.TrimSpace(f.URL)
	if f.URL == "" {
		return &ValidationError{Field: "url", Message: "must not be empty"}
	}
	if f.FetchIntervalSeconds <= 0 {
		f.FetchIntervalSeconds = DefaultFetchIntervalSeconds
	}
	if f.SourceDomain == "" {
		domain, err := InferSourceDomain(f.URL)
		if err != nil {
			return &ValidationError{Field: "url", Message: fmt.Sprintf("cannot infer source_domain: %v", err)}
		}
		f.SourceDomain = domain
	}
	return nil
}

// IsDue reports whether the feed should be fetched given the current time.
func (f *Feed) IsDue(now time.Time) bool {
	if !f.Enabled {
		return false
	}
	if f.LastFetchAt == nil {
		return true
	}
	interval := time.Duration(f.FetchIntervalSeconds) * time.Second
	return !f.LastFetchAt.Add(interval).After(now)
}
