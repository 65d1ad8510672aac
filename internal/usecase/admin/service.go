// Package admin implements the operations the (out-of-scope) HTTP/REST layer
// exposes to operators: feed CRUD, article browsing, and translation/dedup
// settings management, all delegating to the ingestion core.
package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"newsaggregator/internal/domain/entity"
	"newsaggregator/internal/infra/feed"
	"newsaggregator/internal/store"
	"newsaggregator/internal/usecase/ingest"
	"newsaggregator/internal/usecase/translate"
)

// Service implements the operations the admin layer calls into: feed CRUD,
// article browsing, one-shot fetches, and settings management.
type Service struct {
	store     store.Store
	fetcher   feed.Fetcher
	engine    *translate.Engine
	processor *ingest.Processor
	priority  []string
}

// New builds a Service.
func New(s store.Store, fetcher feed.Fetcher, engine *translate.Engine, processor *ingest.Processor, priority []string) *Service {
	return &Service{store: s, fetcher: fetcher, engine: engine, processor: processor, priority: priority}
}

// ListFeeds returns every feed, most recently created first.
func (s *Service) ListFeeds(ctx context.Context) ([]*entity.Feed, error) {
	return s.store.List(ctx)
}

// UpsertFeed validates and persists feed, scheduling an immediate one-shot
// fetch when the feed transitions from disabled (or new) to enabled.
func (s *Service) UpsertFeed(ctx context.Context, f *entity.Feed) (*entity.Feed, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrBadRequest, err)
	}
	if err := entity.ValidateFilterCondition(f.FilterCondition); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrBadRequest, err)
	}

	existing, err := s.store.FindByURL(ctx, f.URL)
	if err != nil {
		return nil, err
	}
	wasEnabled := existing != nil && existing.Enabled

	saved, err := s.store.Upsert(ctx, f)
	if err != nil {
		return nil, err
	}

	if saved.Enabled && !wasEnabled {
		go s.processor.Process(context.WithoutCancel(ctx), store.DueFeed{
			ID:              saved.ID,
			URL:             saved.URL,
			SourceDomain:    saved.SourceDomain,
			LastETag:        saved.LastETag,
			FilterCondition: saved.FilterCondition,
		})
	}

	return saved, nil
}

// DeleteFeed runs the disable-then-cascade-delete protocol under the feed's
// blocking processing lock.
func (s *Service) DeleteFeed(ctx context.Context, feedID int64) error {
	return s.store.DeleteCascade(ctx, feedID)
}

// TestFeedResult is the outcome of a connectivity probe against a candidate
// feed URL, performed with no database mutation.
type TestFeedResult struct {
	Status     string
	Title      string
	SiteURL    string
	EntryCount int
}

// TestFeed fetches url once, outside the normal store/lock machinery, and
// reports what was found.
func (s *Service) TestFeed(ctx context.Context, url string) (TestFeedResult, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return TestFeedResult{}, fmt.Errorf("%w: url must not be empty", entity.ErrBadRequest)
	}

	result, err := s.fetcher.Fetch(ctx, url, "")
	if err != nil {
		return TestFeedResult{Status: "error"}, nil
	}
	if result.NotModified {
		return TestFeedResult{Status: "not_modified"}, nil
	}
	return TestFeedResult{
		Status:     "ok",
		Title:      result.FeedTitle,
		SiteURL:    result.SiteURL,
		EntryCount: len(result.Entries),
	}, nil
}

// RecordClick atomically increments an article's click count.
func (s *Service) RecordClick(ctx context.Context, articleID int64) error {
	return s.store.IncrementClick(ctx, articleID)
}

// ListArticles returns a filtered, paginated set of articles and the total
// matching row count.
func (s *Service) ListArticles(ctx context.Context, filter store.ArticleListFilter) ([]*entity.Article, int64, error) {
	return s.store.ListArticles(ctx, filter)
}

// ListFeatured returns up to limit articles from the last 24 hours, ordered
// by click count then recency.
func (s *Service) ListFeatured(ctx context.Context, limit int) ([]*entity.Article, error) {
	return s.store.ListFeatured(ctx, limit)
}

// FetchFeedOnce runs the per-feed state machine exactly once for an explicit
// feed id, synchronously.
func (s *Service) FetchFeedOnce(ctx context.Context, feedID int64) error {
	f, err := s.store.FindByID(ctx, feedID)
	if err != nil {
		return err
	}
	if f == nil {
		return fmt.Errorf("%w: feed %d", entity.ErrNotFound, feedID)
	}

	s.processor.Process(ctx, store.DueFeed{
		ID:              f.ID,
		URL:             f.URL,
		SourceDomain:    f.SourceDomain,
		LastETag:        f.LastETag,
		FilterCondition: f.FilterCondition,
	})
	return nil
}

// ProviderView is a single provider's display-safe state, for the admin
// settings surface.
type ProviderView struct {
	Name         string
	Configured   bool
	Verified     bool
	LastError    string
	BaseURL      string
	Model        string
	MaskedAPIKey string
}

// TranslationSettings is the translation engine's current state, as shown to
// an operator.
type TranslationSettings struct {
	Enabled               bool
	TranslateDescriptions bool
	CurrentProvider       string
	AvailableProviders    []string
	Providers             []ProviderView
}

// GetTranslationSettings snapshots the live translation engine state.
func (s *Service) GetTranslationSettings(context.Context) TranslationSettings {
	providers, translationProvider, _, enabled, translateDescriptions := s.engine.Snapshot()
	return TranslationSettings{
		Enabled:               enabled,
		TranslateDescriptions: translateDescriptions,
		CurrentProvider:       translationProvider,
		AvailableProviders:    append([]string(nil), s.priority...),
		Providers:             toProviderViews(providers),
	}
}

// ProviderCredentialUpdate is an admin-supplied credential change for one
// provider. Setting a field to the empty string clears that credential.
type ProviderCredentialUpdate struct {
	APIKey  *string
	BaseURL *string
	Model   *string
}

// UpdateTranslationSettingsInput is the admin payload for
// update_translation_settings.
type UpdateTranslationSettingsInput struct {
	Provider              *string
	Enabled               *bool
	TranslateDescriptions *bool
	Credentials           map[string]ProviderCredentialUpdate
}

// UpdateTranslationSettings applies input to the live engine and persists
// every changed field to the settings store, then schedules re-verification
// of any provider whose credentials changed.
func (s *Service) UpdateTranslationSettings(ctx context.Context, input UpdateTranslationSettingsInput) (TranslationSettings, error) {
	engineUpdate := translate.CredentialsUpdate{
		TranslationProvider:   input.Provider,
		Enabled:               input.Enabled,
		TranslateDescriptions: input.TranslateDescriptions,
	}
	if len(input.Credentials) > 0 {
		engineUpdate.Providers = make(map[string]translate.ProviderConfig, len(input.Credentials))
		for name, cred := range input.Credentials {
			cfg := s.providerCurrent(name)
			if cred.APIKey != nil {
				cfg.APIKey = *cred.APIKey
			}
			if cred.BaseURL != nil {
				cfg.BaseURL = *cred.BaseURL
			}
			if cred.Model != nil {
				cfg.Model = *cred.Model
			}
			engineUpdate.Providers[name] = cfg
		}
	}

	changed, err := s.engine.Update(engineUpdate)
	if err != nil {
		return TranslationSettings{}, fmt.Errorf("%w: %v", entity.ErrBadRequest, err)
	}

	if err := s.persistTranslationSettings(ctx, input); err != nil {
		return TranslationSettings{}, err
	}

	if len(changed) > 0 {
		s.engine.StartVerification(context.WithoutCancel(ctx), changed...)
	}

	return s.GetTranslationSettings(ctx), nil
}

// providerCurrent returns name's current base URL and model (never its API
// key, which the engine snapshot never exposes unmasked), as a starting
// point for a partial credential update.
func (s *Service) providerCurrent(name string) translate.ProviderConfig {
	providers, _, _, _, _ := s.engine.Snapshot()
	for _, p := range providers {
		if p.Name == name {
			return translate.ProviderConfig{BaseURL: p.BaseURL, Model: p.Model}
		}
	}
	return translate.ProviderConfig{}
}

func (s *Service) persistTranslationSettings(ctx context.Context, input UpdateTranslationSettingsInput) error {
	if input.Provider != nil {
		if err := s.store.UpsertSetting(ctx, entity.SettingTranslationProvider, *input.Provider); err != nil {
			return err
		}
	}
	if input.Enabled != nil {
		if err := s.store.UpsertSetting(ctx, entity.SettingTranslationEnabled, boolString(*input.Enabled)); err != nil {
			return err
		}
	}
	if input.TranslateDescriptions != nil {
		if err := s.store.UpsertSetting(ctx, entity.SettingTranslateDescriptions, boolString(*input.TranslateDescriptions)); err != nil {
			return err
		}
	}
	for name, cred := range input.Credentials {
		if cred.APIKey != nil {
			if err := s.upsertOrClear(ctx, providerSettingKey(name, "api_key"), *cred.APIKey); err != nil {
				return err
			}
		}
		if cred.BaseURL != nil {
			if err := s.upsertOrClear(ctx, providerSettingKey(name, "base_url"), *cred.BaseURL); err != nil {
				return err
			}
		}
		if cred.Model != nil {
			if err := s.upsertOrClear(ctx, providerSettingKey(name, "model"), *cred.Model); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) upsertOrClear(ctx context.Context, key, value string) error {
	if value == "" {
		return s.store.Delete(ctx, key)
	}
	return s.store.UpsertSetting(ctx, key, value)
}

func providerSettingKey(name, field string) string {
	return fmt.Sprintf("translation.%s.%s", name, field)
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// AIDedupSettings is the ai_dedup engine state, as shown to an operator.
type AIDedupSettings struct {
	Enabled  bool
	Provider string
}

// GetAIDedupSettings reads the persisted ai_dedup settings.
func (s *Service) GetAIDedupSettings(ctx context.Context) (AIDedupSettings, error) {
	enabled, _, err := s.store.Get(ctx, entity.SettingAIDedupEnabled)
	if err != nil {
		return AIDedupSettings{}, err
	}
	provider, _, err := s.store.Get(ctx, entity.SettingAIDedupProvider)
	if err != nil {
		return AIDedupSettings{}, err
	}
	return AIDedupSettings{Enabled: entity.ParseSettingBool(enabled), Provider: provider}, nil
}

// UpdateAIDedupSettingsInput is the admin payload for
// update_ai_dedup_settings.
type UpdateAIDedupSettingsInput struct {
	Enabled  *bool
	Provider *string
}

// UpdateAIDedupSettings persists the ai_dedup settings and retargets the
// engine's similarity-judgment provider selection.
func (s *Service) UpdateAIDedupSettings(ctx context.Context, input UpdateAIDedupSettingsInput) (AIDedupSettings, error) {
	if input.Provider != nil {
		if _, err := s.engine.Update(translate.CredentialsUpdate{DedupProvider: input.Provider}); err != nil {
			return AIDedupSettings{}, fmt.Errorf("%w: %v", entity.ErrBadRequest, err)
		}
		if err := s.store.UpsertSetting(ctx, entity.SettingAIDedupProvider, *input.Provider); err != nil {
			return AIDedupSettings{}, err
		}
	}
	if input.Enabled != nil {
		if err := s.store.UpsertSetting(ctx, entity.SettingAIDedupEnabled, boolString(*input.Enabled)); err != nil {
			return AIDedupSettings{}, err
		}
	}
	return s.GetAIDedupSettings(ctx)
}

// ConnectivityResult is the outcome of test_model_connectivity.
type ConnectivityResult struct {
	Verified  bool
	LastError string
}

// TestModelConnectivity synchronously re-verifies provider and returns the
// outcome.
func (s *Service) TestModelConnectivity(ctx context.Context, provider string) ConnectivityResult {
	testCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	err := s.engine.VerifyNow(testCtx, provider)
	if err != nil {
		return ConnectivityResult{Verified: false, LastError: err.Error()}
	}
	return ConnectivityResult{Verified: true}
}

func toProviderViews(snapshots []translate.ProviderSnapshot) []ProviderView {
	views := make([]ProviderView, 0, len(snapshots))
	for _, p := range snapshots {
		views = append(views, ProviderView{
			Name:         p.Name,
			Configured:   p.Configured,
			Verified:     p.Verified,
			LastError:    p.LastError,
			BaseURL:      p.BaseURL,
			Model:        p.Model,
			MaskedAPIKey: p.MaskedAPIKey,
		})
	}
	return views
}
