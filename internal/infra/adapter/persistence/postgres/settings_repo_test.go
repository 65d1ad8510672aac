package postgres_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"newsaggregator/internal/infra/adapter/persistence/postgres"
)

func TestSettingsRepo_Get_Missing(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM news.settings`)).
		WithArgs("translation.provider").
		WillReturnRows(sqlmock.NewRows(nil))

	repo := postgres.NewSettingsRepo(db)
	value, ok, err := repo.Get(context.Background(), "translation.provider")
	if err != nil {
		t.Fatalf("Get err=%v", err)
	}
	if ok || value != "" {
		t.Fatalf("Get = (%q, %v), want (\"\", false)", value, ok)
	}
}

func TestSettingsRepo_Upsert(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT (key) DO UPDATE`)).
		WithArgs("translation.enabled", "true").
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := postgres.NewSettingsRepo(db)
	if err := repo.UpsertSetting(context.Background(), "translation.enabled", "true"); err != nil {
		t.Fatalf("Upsert err=%v", err)
	}
}

func TestSettingsRepo_Delete(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM news.settings`)).
		WithArgs("translation.deepseek.api_key").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := postgres.NewSettingsRepo(db)
	if err := repo.Delete(context.Background(), "translation.deepseek.api_key"); err != nil {
		t.Fatalf("Delete err=%v", err)
	}
}
