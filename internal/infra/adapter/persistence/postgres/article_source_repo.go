package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"newsaggregator/internal/domain/entity"
	"newsaggregator/internal/store"
)

// ArticleSourceRepo implements store.ArticleSourceStore: the provenance
// table recording how every processed entry was classified.
type ArticleSourceRepo struct{ db *sql.DB }

// NewArticleSourceRepo builds an ArticleSourceRepo.
func NewArticleSourceRepo(db *sql.DB) *ArticleSourceRepo {
	return &ArticleSourceRepo{db: db}
}

const insertArticleSourceQuery = `
INSERT INTO news.article_sources (
    article_id, feed_id, source_domain, source_url, published_at,
    inserted_at, decision, confidence
)
VALUES ($1, $2, $3, $4, $5, NOW(), $6, $7)
ON CONFLICT (article_id, source_url) DO NOTHING`

// InsertAccepted writes a decision=primary provenance row for a newly
// inserted article.
func (r *ArticleSourceRepo) InsertAccepted(ctx context.Context, articleID, feedID int64, sourceDomain, sourceURL string, publishedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, insertArticleSourceQuery,
		articleID, feedID, sourceDomain, sourceURL, publishedAt,
		entity.DecisionPrimary, nil,
	)
	if err != nil {
		return fmt.Errorf("InsertAccepted: %w", err)
	}
	return nil
}

// InsertDuplicate writes a provenance row for an entry rejected as a
// duplicate of an existing article.
func (r *ArticleSourceRepo) InsertDuplicate(ctx context.Context, existingArticleID, feedID int64, sourceDomain, sourceURL string, publishedAt time.Time, decision string, confidence *float64) error {
	_, err := r.db.ExecContext(ctx, insertArticleSourceQuery,
		existingArticleID, feedID, sourceDomain, sourceURL, publishedAt,
		decision, confidence,
	)
	if err != nil {
		return fmt.Errorf("InsertDuplicate: %w", err)
	}
	return nil
}

var _ store.ArticleSourceStore = (*ArticleSourceRepo)(nil)
