package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"newsaggregator/internal/store"
)

// MaintenanceRepo implements store.MaintenanceStore: housekeeping run
// outside the normal feed-processing path.
type MaintenanceRepo struct{ db *sql.DB }

// NewMaintenanceRepo builds a MaintenanceRepo.
func NewMaintenanceRepo(db *sql.DB) *MaintenanceRepo {
	return &MaintenanceRepo{db: db}
}

// CleanupOrphanContent deletes article_sources and articles rows whose
// feed_id is NULL, left behind by earlier non-transactional deletions, in
// one transaction.
func (r *MaintenanceRepo) CleanupOrphanContent(ctx context.Context) (int64, int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("CleanupOrphanContent: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	sourcesRes, err := tx.ExecContext(ctx, `DELETE FROM news.article_sources WHERE feed_id IS NULL`)
	if err != nil {
		return 0, 0, fmt.Errorf("CleanupOrphanContent: delete sources: %w", err)
	}
	deletedSources, err := sourcesRes.RowsAffected()
	if err != nil {
		return 0, 0, fmt.Errorf("CleanupOrphanContent: %w", err)
	}

	articlesRes, err := tx.ExecContext(ctx, `DELETE FROM news.articles WHERE feed_id IS NULL`)
	if err != nil {
		return 0, 0, fmt.Errorf("CleanupOrphanContent: delete articles: %w", err)
	}
	deletedArticles, err := articlesRes.RowsAffected()
	if err != nil {
		return 0, 0, fmt.Errorf("CleanupOrphanContent: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("CleanupOrphanContent: commit: %w", err)
	}
	return deletedArticles, deletedSources, nil
}

var _ store.MaintenanceStore = (*MaintenanceRepo)(nil)
