package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"newsaggregator/internal/observability/metrics"
	"newsaggregator/internal/store"
)

// settingsExecutor is the slice of database/sql both *sql.DB and
// *circuitbreaker.DBCircuitBreaker implement; the settings queries are
// single-statement and need no transactions.
type settingsExecutor interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SettingsRepo implements store.SettingStore over the news.settings table.
type SettingsRepo struct{ db settingsExecutor }

// NewSettingsRepo builds a SettingsRepo.
func NewSettingsRepo(db settingsExecutor) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// Get returns a setting's value, or ("", false, nil) if unset.
func (r *SettingsRepo) Get(ctx context.Context, key string) (string, bool, error) {
	defer observeQuery("settings_get")()
	const query = `SELECT value FROM news.settings WHERE key = $1`
	var value string
	err := r.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("Get: %w", err)
	}
	return value, true, nil
}

// UpsertSetting inserts or overwrites a setting.
func (r *SettingsRepo) UpsertSetting(ctx context.Context, key, value string) error {
	defer observeQuery("settings_upsert")()
	const query = `
INSERT INTO news.settings (key, value)
VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("UpsertSetting: %w", err)
	}
	return nil
}

// Delete removes a setting. Deleting a key that does not exist is not an
// error.
func (r *SettingsRepo) Delete(ctx context.Context, key string) error {
	defer observeQuery("settings_delete")()
	const query = `DELETE FROM news.settings WHERE key = $1`
	if _, err := r.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

// observeQuery times one query for the db_query_duration metric.
func observeQuery(operation string) func() {
	start := time.Now()
	return func() { metrics.RecordDBQuery(operation, time.Since(start)) }
}

var _ store.SettingStore = (*SettingsRepo)(nil)
