package db

import (
	"database/sql"
)

// MigrateUp creates the news schema (feeds, articles, article_sources,
// settings) if it does not already exist, plus the ops schema reserved for
// the event stream served by the separate admin layer.
func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`CREATE SCHEMA IF NOT EXISTS news`); err != nil {
		return err
	}
	if _, err := db.Exec(`CREATE SCHEMA IF NOT EXISTS ops`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS news.feeds (
    id                      BIGSERIAL PRIMARY KEY,
    url                     TEXT NOT NULL UNIQUE,
    title                   TEXT,
    site_url                TEXT,
    source_domain           TEXT NOT NULL,
    enabled                 BOOLEAN NOT NULL DEFAULT TRUE,
    fetch_interval_seconds  INTEGER NOT NULL DEFAULT 600,
    filter_condition        TEXT,
    last_etag               TEXT,
    last_fetch_at           TIMESTAMPTZ,
    last_fetch_status       SMALLINT,
    fail_count              INTEGER NOT NULL DEFAULT 0,
    created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at              TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS news.articles (
    id              BIGSERIAL PRIMARY KEY,
    feed_id         BIGINT REFERENCES news.feeds(id),
    title           TEXT NOT NULL,
    url             TEXT NOT NULL,
    description     TEXT,
    language        TEXT,
    source_domain   TEXT NOT NULL,
    published_at    TIMESTAMPTZ NOT NULL,
    fetched_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    click_count     BIGINT NOT NULL DEFAULT 0,
    canonical_id    BIGINT REFERENCES news.articles(id),
    UNIQUE (feed_id, url)
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS news.article_sources (
    article_id      BIGINT NOT NULL REFERENCES news.articles(id),
    feed_id         BIGINT REFERENCES news.feeds(id),
    source_domain   TEXT NOT NULL,
    source_url      TEXT NOT NULL,
    published_at    TIMESTAMPTZ NOT NULL,
    inserted_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    decision        TEXT NOT NULL,
    confidence      DOUBLE PRECISION,
    UNIQUE (article_id, source_url)
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS news.settings (
    key             TEXT PRIMARY KEY,
    value           TEXT NOT NULL,
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`); err != nil {
		return err
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_feeds_enabled_last_fetch_at ON news.feeds(last_fetch_at) WHERE enabled = TRUE`,
		`CREATE INDEX IF NOT EXISTS idx_articles_published_at ON news.articles(published_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_feed_id ON news.articles(feed_id)`,
		`CREATE INDEX IF NOT EXISTS idx_article_sources_article_id ON news.article_sources(article_id)`,
		`CREATE INDEX IF NOT EXISTS idx_article_sources_feed_id ON news.article_sources(feed_id)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	return nil
}

// MigrateDown drops the news schema and everything in it. Use with caution:
// this deletes all feeds, articles, provenance, and settings.
func MigrateDown(db *sql.DB) error {
	_, err := db.Exec(`DROP SCHEMA IF EXISTS news CASCADE`)
	return err
}
