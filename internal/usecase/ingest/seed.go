package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"newsaggregator/internal/store"
)

// SettingsSeed is the YAML shape of a bootstrap settings file: a flat map of
// setting key to value, e.g.
//
//	settings:
//	  translation.provider: claude
//	  translation.enabled: "false"
type SettingsSeed struct {
	Settings map[string]string `yaml:"settings"`
}

// LoadSettingsSeed reads a settings seed file.
// The path parameter is expected to come from a trusted source (environment
// variable or hardcoded default), not user input.
func LoadSettingsSeed(path string) (*SettingsSeed, error) {
	// #nosec G304 -- path is provided by trusted source (env var), not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings seed file: %w", err)
	}

	var seed SettingsSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse settings seed file: %w", err)
	}
	return &seed, nil
}

// ApplySettingsSeed upserts every seed entry whose key is not yet persisted.
// Existing values always win: the seed only fills gaps, so an operator's
// runtime changes survive restarts with a seed file configured.
func ApplySettingsSeed(ctx context.Context, settings store.SettingStore, seed *SettingsSeed) error {
	for key, value := range seed.Settings {
		if _, ok, err := settings.Get(ctx, key); err != nil {
			return err
		} else if ok {
			continue
		}
		if err := settings.UpsertSetting(ctx, key, value); err != nil {
			return err
		}
		slog.Info("seeded setting", slog.String("key", key))
	}
	return nil
}
