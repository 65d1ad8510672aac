package postgres

import (
	"database/sql"

	"newsaggregator/internal/resilience/circuitbreaker"
	"newsaggregator/internal/store"
)

// Store wires the individual repositories into one store.Store backed by a
// shared *sql.DB connection pool.
type Store struct {
	*FeedRepo
	*ArticleRepo
	*ArticleSourceRepo
	*SettingsRepo
	*MaintenanceRepo
}

// NewStore builds a Store over db. Settings reads happen on every feed round
// and on every admin settings call, so that repo alone goes through the
// database circuit breaker; the feed/article paths already sit behind the
// per-feed lock and batch transactions.
func NewStore(db *sql.DB) *Store {
	return &Store{
		FeedRepo:          NewFeedRepo(db),
		ArticleRepo:       NewArticleRepo(db),
		ArticleSourceRepo: NewArticleSourceRepo(db),
		SettingsRepo:      NewSettingsRepo(circuitbreaker.NewDBCircuitBreaker(db)),
		MaintenanceRepo:   NewMaintenanceRepo(db),
	}
}

var _ store.Store = (*Store)(nil)
