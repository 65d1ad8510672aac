package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"newsaggregator/internal/common/pagination"
	"newsaggregator/internal/domain/entity"
	"newsaggregator/internal/store"
)

// ArticleRepo implements store.ArticleStore.
type ArticleRepo struct{ db *sql.DB }

// NewArticleRepo builds an ArticleRepo.
func NewArticleRepo(db *sql.DB) *ArticleRepo {
	return &ArticleRepo{db: db}
}

const articleColumns = `id, title, url, description, language, source_domain,
       published_at, fetched_at, click_count, canonical_id`

func scanArticle(scanner interface {
	Scan(...interface{}) error
}) (*entity.Article, error) {
	var a entity.Article
	var description, language sql.NullString

	if err := scanner.Scan(
		&a.ID, &a.Title, &a.URL, &description, &language, &a.SourceDomain,
		&a.PublishedAt, &a.FetchedAt, &a.ClickCount, &a.CanonicalID,
	); err != nil {
		return nil, err
	}
	a.Description = description.String
	a.Language = language.String
	return &a, nil
}

// InsertBatch inserts articles inside one transaction using
// ON CONFLICT (feed_id, url) DO NOTHING, back-filling canonical_id on every
// newly inserted row. Rows that already existed are omitted from the result.
func (r *ArticleRepo) InsertBatch(ctx context.Context, articles []store.NewArticle) ([]store.InsertedArticle, error) {
	if len(articles) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("InsertBatch: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insertQuery = `
INSERT INTO news.articles (
    feed_id, title, url, description, language, source_domain, published_at,
    fetched_at, click_count
)
VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, NOW(), 0)
ON CONFLICT (feed_id, url) DO NOTHING
RETURNING id`

	const backfillQuery = `
UPDATE news.articles SET canonical_id = COALESCE(canonical_id, id) WHERE id = $1`

	inserted := make([]store.InsertedArticle, 0, len(articles))
	for _, article := range articles {
		var id int64
		err := tx.QueryRowContext(ctx, insertQuery,
			article.FeedID, article.Title, article.URL, article.Description,
			article.Language, article.SourceDomain, article.PublishedAt,
		).Scan(&id)
		if err == sql.ErrNoRows {
			continue // (feed_id, url) already present
		}
		if err != nil {
			return nil, fmt.Errorf("InsertBatch: insert: %w", err)
		}

		if _, err := tx.ExecContext(ctx, backfillQuery, id); err != nil {
			return nil, fmt.Errorf("InsertBatch: backfill canonical_id: %w", err)
		}
		inserted = append(inserted, store.InsertedArticle{ID: id, Article: article})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("InsertBatch: commit: %w", err)
	}
	return inserted, nil
}

// IncrementClick atomically bumps click_count for an article.
func (r *ArticleRepo) IncrementClick(ctx context.Context, articleID int64) error {
	const query = `UPDATE news.articles SET click_count = click_count + 1 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, articleID)
	if err != nil {
		return fmt.Errorf("IncrementClick: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("IncrementClick: %w", entity.ErrNotFound)
	}
	return nil
}

// ListArticles returns a page of articles matching filter and the total
// matching row count.
func (r *ArticleRepo) ListArticles(ctx context.Context, filter store.ArticleListFilter) ([]*entity.Article, int64, error) {
	where, args := buildArticleFilterClause(filter.From, filter.To, filter.Keyword)

	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := pagination.CalculateOffset(page, pageSize)

	query := `SELECT ` + articleColumns + ` FROM news.articles ` + where +
		fmt.Sprintf(" ORDER BY published_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(append([]interface{}{}, args...), pageSize, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("ListArticles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	articles := make([]*entity.Article, 0, pageSize)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ListArticles: scan: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ListArticles: %w", err)
	}

	countQuery := `SELECT COUNT(*) FROM news.articles ` + where
	var total int64
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ListArticles: count: %w", err)
	}

	return articles, total, nil
}

// ListFeatured returns up to limit articles published in the last 24 hours,
// ordered by click_count desc then published_at desc.
func (r *ArticleRepo) ListFeatured(ctx context.Context, limit int) ([]*entity.Article, error) {
	const query = `
SELECT ` + articleColumns + `
FROM news.articles
WHERE published_at >= NOW() - INTERVAL '24 HOURS'
ORDER BY click_count DESC, published_at DESC
LIMIT $1`
	return r.queryArticles(ctx, "ListFeatured", query, limit)
}

// ListRecent returns up to limit of the most recently published articles,
// used to build the historical dedup snapshot.
func (r *ArticleRepo) ListRecent(ctx context.Context, limit int) ([]*entity.Article, error) {
	const query = `
SELECT ` + articleColumns + `
FROM news.articles
ORDER BY published_at DESC
LIMIT $1`
	return r.queryArticles(ctx, "ListRecent", query, limit)
}

func (r *ArticleRepo) queryArticles(ctx context.Context, op, query string, limit int) ([]*entity.Article, error) {
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	articles := make([]*entity.Article, 0, limit)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// ApplyFilterCondition deletes articles for feedID that fail condition.
// condition is an admin-authored boolean expression, already past the
// filter-condition denylist; it cannot be bound as a placeholder value, so it
// is interpolated into NOT (...) verbatim.
func (r *ArticleRepo) ApplyFilterCondition(ctx context.Context, feedID int64, condition string) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM news.articles WHERE feed_id = $1 AND NOT (%s)`, condition)
	res, err := r.db.ExecContext(ctx, query, feedID)
	if err != nil {
		return 0, fmt.Errorf("ApplyFilterCondition: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("ApplyFilterCondition: %w", err)
	}
	return n, nil
}

var _ store.ArticleStore = (*ArticleRepo)(nil)
