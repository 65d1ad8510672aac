// Package postgres provides PostgreSQL implementations of the store
// contracts over the news schema (feeds, articles, article_sources,
// settings).
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"newsaggregator/internal/domain/entity"
	"newsaggregator/internal/store"
)

// FeedRepo implements store.FeedStore.
type FeedRepo struct{ db *sql.DB }

// NewFeedRepo builds a FeedRepo.
func NewFeedRepo(db *sql.DB) *FeedRepo {
	return &FeedRepo{db: db}
}

func scanFeed(scanner interface {
	Scan(...interface{}) error
}) (*entity.Feed, error) {
	var f entity.Feed
	var title, siteURL, filterCondition, lastETag sql.NullString
	var lastFetchAt sql.NullTime
	var lastFetchStatus sql.NullInt16

	if err := scanner.Scan(
		&f.ID, &f.URL, &title, &siteURL, &f.SourceDomain, &f.Enabled,
		&f.FetchIntervalSeconds, &filterCondition, &lastETag,
		&lastFetchAt, &lastFetchStatus, &f.FailCount,
	); err != nil {
		return nil, err
	}

	f.Title = title.String
	f.SiteURL = siteURL.String
	f.FilterCondition = filterCondition.String
	f.LastETag = lastETag.String
	if lastFetchAt.Valid {
		t := lastFetchAt.Time
		f.LastFetchAt = &t
	}
	if lastFetchStatus.Valid {
		v := lastFetchStatus.Int16
		f.LastFetchStatus = &v
	}
	return &f, nil
}

const feedColumns = `id, url, title, site_url, source_domain, enabled,
       fetch_interval_seconds, filter_condition, last_etag,
       last_fetch_at, last_fetch_status, fail_count`

// List returns every feed, most recently created first.
func (r *FeedRepo) List(ctx context.Context) ([]*entity.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM news.feeds ORDER BY id DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	feeds := make([]*entity.Feed, 0, 32)
	for rows.Next() {
		f, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("List: scan: %w", err)
		}
		feeds = append(feeds, f)
	}
	return feeds, rows.Err()
}

// FindByURL returns the feed with the given URL, or nil if none exists.
func (r *FeedRepo) FindByURL(ctx context.Context, url string) (*entity.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM news.feeds WHERE url = $1`
	f, err := scanFeed(r.db.QueryRowContext(ctx, query, url))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindByURL: %w", err)
	}
	return f, nil
}

// FindByID returns the feed with the given id, or nil if none exists.
func (r *FeedRepo) FindByID(ctx context.Context, id int64) (*entity.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM news.feeds WHERE id = $1`
	f, err := scanFeed(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindByID: %w", err)
	}
	return f, nil
}

// ListDue returns up to limit enabled feeds due for a fetch as of now,
// ordered by last_fetch_at NULLS FIRST.
func (r *FeedRepo) ListDue(ctx context.Context, limit int, now time.Time) ([]store.DueFeed, error) {
	const query = `
SELECT id, url, source_domain, last_etag, filter_condition
FROM news.feeds
WHERE enabled = TRUE
  AND (
      last_fetch_at IS NULL OR
      last_fetch_at <= $1 - make_interval(secs => fetch_interval_seconds)
  )
ORDER BY last_fetch_at NULLS FIRST
LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("ListDue: %w", err)
	}
	defer func() { _ = rows.Close() }()

	due := make([]store.DueFeed, 0, limit)
	for rows.Next() {
		var d store.DueFeed
		var lastETag, filterCondition sql.NullString
		if err := rows.Scan(&d.ID, &d.URL, &d.SourceDomain, &lastETag, &filterCondition); err != nil {
			return nil, fmt.Errorf("ListDue: scan: %w", err)
		}
		d.LastETag = lastETag.String
		d.FilterCondition = filterCondition.String
		due = append(due, d)
	}
	return due, rows.Err()
}

// Upsert inserts or updates a feed by its unique URL, preserving existing
// title/site_url/enabled/fetch_interval_seconds when the corresponding field
// is the zero value.
func (r *FeedRepo) Upsert(ctx context.Context, feed *entity.Feed) (*entity.Feed, error) {
	const query = `
INSERT INTO news.feeds (
    url, title, site_url, source_domain, enabled,
    fetch_interval_seconds, filter_condition
)
VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, NULLIF(trim($7), ''))
ON CONFLICT (url) DO UPDATE SET
    title = COALESCE(EXCLUDED.title, news.feeds.title),
    site_url = COALESCE(EXCLUDED.site_url, news.feeds.site_url),
    source_domain = EXCLUDED.source_domain,
    enabled = EXCLUDED.enabled,
    fetch_interval_seconds = EXCLUDED.fetch_interval_seconds,
    filter_condition = EXCLUDED.filter_condition,
    updated_at = NOW()
RETURNING ` + feedColumns

	f, err := scanFeed(r.db.QueryRowContext(ctx, query,
		feed.URL, feed.Title, feed.SiteURL, feed.SourceDomain, feed.Enabled,
		feed.FetchIntervalSeconds, feed.FilterCondition,
	))
	if err != nil {
		return nil, fmt.Errorf("Upsert: %w", err)
	}
	return f, nil
}

// MarkNotModified records a 304 response: resets fail_count, does not touch
// last_etag (the server sent no new one).
func (r *FeedRepo) MarkNotModified(ctx context.Context, feedID int64, status int16) error {
	const query = `
UPDATE news.feeds
SET last_fetch_at = NOW(), last_fetch_status = $2, fail_count = 0, updated_at = NOW()
WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, feedID, status); err != nil {
		return fmt.Errorf("MarkNotModified: %w", err)
	}
	return nil
}

// MarkFailure increments fail_count for a fetch/parse failure.
func (r *FeedRepo) MarkFailure(ctx context.Context, feedID int64, status int16) error {
	const query = `
UPDATE news.feeds
SET last_fetch_at = NOW(), last_fetch_status = $2, fail_count = fail_count + 1, updated_at = NOW()
WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, feedID, status); err != nil {
		return fmt.Errorf("MarkFailure: %w", err)
	}
	return nil
}

// MarkSuccess records a successful fetch: new etag, optionally refreshed
// title/site_url from the parsed feed, and resets fail_count.
func (r *FeedRepo) MarkSuccess(ctx context.Context, feedID int64, status int16, etag, title, siteURL string) error {
	const query = `
UPDATE news.feeds
SET last_fetch_at = NOW(),
    last_fetch_status = $2,
    last_etag = NULLIF($3, ''),
    title = COALESCE(NULLIF($4, ''), title),
    site_url = COALESCE(NULLIF($5, ''), site_url),
    fail_count = 0,
    updated_at = NOW()
WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, feedID, status, etag, title, siteURL); err != nil {
		return fmt.Errorf("MarkSuccess: %w", err)
	}
	return nil
}

// TryAcquireLock attempts pg_try_advisory_lock on a dedicated connection,
// held until release is called.
func (r *FeedRepo) TryAcquireLock(ctx context.Context, feedID int64) (bool, func(), error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return false, nil, fmt.Errorf("TryAcquireLock: acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, feedID).Scan(&acquired); err != nil {
		_ = conn.Close()
		return false, nil, fmt.Errorf("TryAcquireLock: %w", err)
	}
	if !acquired {
		_ = conn.Close()
		return false, nil, nil
	}

	release := func() {
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, feedID)
		_ = conn.Close()
	}
	return true, release, nil
}

// AcquireLock blocks on pg_advisory_lock on a dedicated connection.
func (r *FeedRepo) AcquireLock(ctx context.Context, feedID int64) (func(), error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("AcquireLock: acquire connection: %w", err)
	}
	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, feedID); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("AcquireLock: %w", err)
	}

	release := func() {
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, feedID)
		_ = conn.Close()
	}
	return release, nil
}

// DeleteCascade disables the feed, deletes its provenance and article rows,
// and deletes the feed row inside one transaction, while holding the feed's
// blocking advisory lock for the whole operation.
func (r *FeedRepo) DeleteCascade(ctx context.Context, feedID int64) error {
	release, err := r.AcquireLock(ctx, feedID)
	if err != nil {
		return fmt.Errorf("DeleteCascade: %w", err)
	}
	defer release()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("DeleteCascade: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE news.feeds SET enabled = FALSE, updated_at = NOW() WHERE id = $1`, feedID); err != nil {
		return fmt.Errorf("DeleteCascade: disable: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM news.article_sources WHERE feed_id = $1`, feedID); err != nil {
		return fmt.Errorf("DeleteCascade: delete sources: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM news.articles WHERE feed_id = $1`, feedID); err != nil {
		return fmt.Errorf("DeleteCascade: delete articles: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM news.feeds WHERE id = $1`, feedID); err != nil {
		return fmt.Errorf("DeleteCascade: delete feed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("DeleteCascade: commit: %w", err)
	}
	return nil
}

var _ store.FeedStore = (*FeedRepo)(nil)
