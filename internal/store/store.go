// Package store defines the persistence contracts the ingestion pipeline and
// the admin-facing usecases depend on. Concrete implementations live under
// internal/infra/adapter/persistence.
package store

import (
	"context"
	"time"

	"newsaggregator/internal/domain/entity"
)

// DueFeed is the projection of a Feed used by the scheduler to dispatch
// per-feed processing: just enough to fetch and to know which lock to take.
type DueFeed struct {
	ID              int64
	URL             string
	SourceDomain    string
	LastETag        string
	FilterCondition string
}

// ArticleListFilter narrows ListArticles by an optional time window and a
// case-insensitive title substring.
type ArticleListFilter struct {
	From    *time.Time
	To      *time.Time
	Keyword string
	Page    int
	PageSize int
}

// NewArticle is the input to InsertBatch: a candidate already through
// normalization, sanitization, translation, and dedup.
type NewArticle struct {
	FeedID       int64
	Title        string
	URL          string
	Description  string
	Language     string
	SourceDomain string
	PublishedAt  time.Time
}

// InsertedArticle pairs a newly persisted article's id with the candidate
// that produced it, for provenance writes after commit.
type InsertedArticle struct {
	ID      int64
	Article NewArticle
}

// FeedStore exposes the feed lifecycle and locking operations the scheduler
// and per-feed processor need.
type FeedStore interface {
	List(ctx context.Context) ([]*entity.Feed, error)
	FindByURL(ctx context.Context, url string) (*entity.Feed, error)
	FindByID(ctx context.Context, id int64) (*entity.Feed, error)
	ListDue(ctx context.Context, limit int, now time.Time) ([]DueFeed, error)
	Upsert(ctx context.Context, feed *entity.Feed) (*entity.Feed, error)

	MarkNotModified(ctx context.Context, feedID int64, status int16) error
	MarkFailure(ctx context.Context, feedID int64, status int16) error
	MarkSuccess(ctx context.Context, feedID int64, status int16, etag, title, siteURL string) error

	// TryAcquireLock attempts a non-blocking per-feed advisory lock, used by
	// the scheduler's try-and-skip path. It returns a release function that
	// must be called exactly once when acquired is true.
	TryAcquireLock(ctx context.Context, feedID int64) (acquired bool, release func(), err error)

	// AcquireLock takes the blocking per-feed advisory lock used by the
	// delete protocol. The returned release function must be called exactly
	// once.
	AcquireLock(ctx context.Context, feedID int64) (release func(), err error)

	// DeleteCascade disables the feed, deletes its provenance and article
	// rows, and deletes the feed row, all inside one transaction, while
	// holding the feed's blocking advisory lock.
	DeleteCascade(ctx context.Context, feedID int64) error
}

// ArticleStore exposes article persistence: batch insert with idempotent
// upsert-by-(feed,url), click accounting, and the read paths the admin
// surface needs.
type ArticleStore interface {
	// InsertBatch inserts articles inside one transaction using
	// ON CONFLICT (feed_id, url) DO NOTHING, then back-fills canonical_id on
	// every newly inserted row. Rows that already existed are silently
	// skipped and omitted from the result.
	InsertBatch(ctx context.Context, articles []NewArticle) ([]InsertedArticle, error)

	IncrementClick(ctx context.Context, articleID int64) error
	ListArticles(ctx context.Context, filter ArticleListFilter) ([]*entity.Article, int64, error)
	ListFeatured(ctx context.Context, limit int) ([]*entity.Article, error)

	// ListRecent returns the limit most recently published articles,
	// ordered by published_at DESC, for historical dedup comparison.
	ListRecent(ctx context.Context, limit int) ([]*entity.Article, error)

	// ApplyFilterCondition deletes articles for feedID that do not satisfy
	// condition, which has already passed the filter-condition denylist.
	ApplyFilterCondition(ctx context.Context, feedID int64, condition string) (int64, error)
}

// ArticleSourceStore records provenance for every processed entry.
type ArticleSourceStore interface {
	// InsertAccepted writes a decision=primary provenance row for a newly
	// inserted article.
	InsertAccepted(ctx context.Context, articleID, feedID int64, sourceDomain, sourceURL string, publishedAt time.Time) error

	// InsertDuplicate writes a provenance row for an entry rejected as a
	// duplicate of an existing article.
	InsertDuplicate(ctx context.Context, existingArticleID, feedID int64, sourceDomain, sourceURL string, publishedAt time.Time, decision string, confidence *float64) error
}

// SettingStore exposes the settings key/value table.
type SettingStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	UpsertSetting(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// MaintenanceStore exposes housekeeping operations run outside the normal
// feed-processing path.
type MaintenanceStore interface {
	// CleanupOrphanContent deletes article_sources and articles rows whose
	// feed_id is NULL, left behind by earlier non-transactional deletions.
	CleanupOrphanContent(ctx context.Context) (deletedArticles, deletedSources int64, err error)
}

// Store aggregates every persistence contract the ingestion pipeline and
// admin usecases depend on.
type Store interface {
	FeedStore
	ArticleStore
	ArticleSourceStore
	SettingStore
	MaintenanceStore
}
