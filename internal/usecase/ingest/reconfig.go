package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"newsaggregator/internal/domain/entity"
	"newsaggregator/internal/store"
	"newsaggregator/internal/usecase/translate"
)

// knownProviderNames is the superset of provider names ever supported by the
// translation engine across deployments. A provider absent from the current
// priority list but present here has its leftover per-provider settings
// cleaned up by NormalizeLegacySettings.
var knownProviderNames = []string{"claude", "deepseek", "baidu", "ollama", "openai"}

// BuildTranslationConfig reads every provider's credentials plus the global
// flags from the settings store, producing the translate.Config used to
// (re)build the translation engine on startup and after an admin update.
func BuildTranslationConfig(ctx context.Context, settings store.SettingStore, priority []string) (translate.Config, error) {
	cfg := translate.Config{
		Priority:  append([]string(nil), priority...),
		Providers: make(map[string]translate.ProviderConfig, len(priority)),
	}

	for _, name := range priority {
		apiKey, _, err := settings.Get(ctx, providerKey(name, "api_key"))
		if err != nil {
			return translate.Config{}, fmt.Errorf("load %s api_key: %w", name, err)
		}
		baseURL, _, err := settings.Get(ctx, providerKey(name, "base_url"))
		if err != nil {
			return translate.Config{}, fmt.Errorf("load %s base_url: %w", name, err)
		}
		model, _, err := settings.Get(ctx, providerKey(name, "model"))
		if err != nil {
			return translate.Config{}, fmt.Errorf("load %s model: %w", name, err)
		}
		cfg.Providers[name] = translate.ProviderConfig{APIKey: apiKey, BaseURL: baseURL, Model: model}
	}

	provider, ok, err := settings.Get(ctx, entity.SettingTranslationProvider)
	if err != nil {
		return translate.Config{}, err
	}
	if !ok || provider == "" {
		if len(priority) > 0 {
			provider = priority[0]
		}
	}
	cfg.TranslationProvider = provider

	dedupProvider, ok, err := settings.Get(ctx, entity.SettingAIDedupProvider)
	if err != nil {
		return translate.Config{}, err
	}
	if !ok || dedupProvider == "" {
		dedupProvider = provider
	}
	cfg.DedupProvider = dedupProvider

	enabled, _, err := settings.Get(ctx, entity.SettingTranslationEnabled)
	if err != nil {
		return translate.Config{}, err
	}
	cfg.Enabled = entity.ParseSettingBool(enabled)

	translateDescriptions, _, err := settings.Get(ctx, entity.SettingTranslateDescriptions)
	if err != nil {
		return translate.Config{}, err
	}
	cfg.TranslateDescriptions = entity.ParseSettingBool(translateDescriptions)

	return cfg, nil
}

func providerKey(name, field string) string {
	return fmt.Sprintf("translation.%s.%s", name, field)
}

// NormalizeLegacySettings upserts a default translation.provider when none is
// persisted yet, and deletes per-provider credential keys for any provider
// that has fallen out of the current priority list.
func NormalizeLegacySettings(ctx context.Context, settings store.SettingStore, priority []string) error {
	if _, ok, err := settings.Get(ctx, entity.SettingTranslationProvider); err != nil {
		return err
	} else if !ok && len(priority) > 0 {
		if err := settings.UpsertSetting(ctx, entity.SettingTranslationProvider, priority[0]); err != nil {
			return err
		}
		slog.Info("seeded default translation.provider", slog.String("provider", priority[0]))
	}

	active := make(map[string]bool, len(priority))
	for _, name := range priority {
		active[name] = true
	}

	for _, name := range knownProviderNames {
		if active[name] {
			continue
		}
		for _, field := range []string{"api_key", "base_url", "model"} {
			key := providerKey(name, field)
			if _, ok, err := settings.Get(ctx, key); err != nil {
				return err
			} else if ok {
				if err := settings.Delete(ctx, key); err != nil {
					return err
				}
				slog.Info("removed retired provider setting", slog.String("key", key))
			}
		}
	}

	return nil
}

// RunStartupMaintenance runs the once-per-startup housekeeping: orphan
// content cleanup and legacy settings normalization.
func RunStartupMaintenance(ctx context.Context, s store.Store, priority []string) error {
	deletedArticles, deletedSources, err := s.CleanupOrphanContent(ctx)
	if err != nil {
		return fmt.Errorf("cleanup orphan content: %w", err)
	}
	if deletedArticles > 0 || deletedSources > 0 {
		slog.Info("cleaned up orphan content",
			slog.Int64("deleted_articles", deletedArticles), slog.Int64("deleted_sources", deletedSources))
	}

	if err := NormalizeLegacySettings(ctx, s, priority); err != nil {
		return fmt.Errorf("normalize legacy settings: %w", err)
	}
	return nil
}
