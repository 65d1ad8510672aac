package worker

import (
	"fmt"
	"log/slog"
	"time"

	"newsaggregator/internal/pkg/config"
)

// SchedulerConfig holds the configuration for the ingestion scheduler: the
// primary ticker-driven due-feed dispatch loop plus the secondary
// cron-driven maintenance job (orphan cleanup, settings normalization).
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
type SchedulerConfig struct {
	// IntervalSeconds is how often the primary loop checks for due feeds.
	// Default: 60
	IntervalSeconds int

	// BatchSize is the maximum number of due feeds dispatched per tick.
	// Default: 4
	BatchSize int

	// Concurrency is the maximum number of feeds processed in parallel.
	// Default: 1
	Concurrency int

	// RequestTimeoutSeconds bounds a single feed fetch+pipeline pass.
	// Default: 10
	RequestTimeoutSeconds int

	// QuickRetryDelay is the backoff before a same-tick retry of a feed
	// that failed transiently.
	// Default: 10s
	QuickRetryDelay time.Duration

	// QuickRetryAttempts is the number of same-tick retries allowed before
	// a feed is deferred to its normal schedule.
	// Default: 2
	QuickRetryAttempts int

	// CronSchedule is the cron expression for the secondary maintenance job.
	// Default: "30 5 * * *"
	CronSchedule string

	// Timezone is the IANA timezone name used for the secondary cron job.
	// Default: "UTC"
	Timezone string

	// HealthPort is the port number for the health check HTTP server.
	// Range: 1024-65535
	// Default: 9091
	HealthPort int
}

// DefaultConfig returns a SchedulerConfig with the defaults named in the
// ingestion pipeline's configuration contract.
func DefaultConfig() SchedulerConfig {
	return SchedulerConfig{
		IntervalSeconds:       60,
		BatchSize:             4,
		Concurrency:           1,
		RequestTimeoutSeconds: 10,
		QuickRetryDelay:       10 * time.Second,
		QuickRetryAttempts:    2,
		CronSchedule:          "30 5 * * *",
		Timezone:              "UTC",
		HealthPort:            9091,
	}
}

// Validate checks if the configuration values are valid, collecting all
// field errors before returning.
func (c *SchedulerConfig) Validate() error {
	var errs []error

	if err := config.ValidateIntRange(c.IntervalSeconds, 1, 3600); err != nil {
		errs = append(errs, fmt.Errorf("interval seconds: %w", err))
	}
	if err := config.ValidateIntRange(c.BatchSize, 1, 1000); err != nil {
		errs = append(errs, fmt.Errorf("batch size: %w", err))
	}
	if err := config.ValidateIntRange(c.Concurrency, 1, 100); err != nil {
		errs = append(errs, fmt.Errorf("concurrency: %w", err))
	}
	if err := config.ValidateIntRange(c.RequestTimeoutSeconds, 1, 300); err != nil {
		errs = append(errs, fmt.Errorf("request timeout seconds: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.QuickRetryDelay); err != nil {
		errs = append(errs, fmt.Errorf("quick retry delay: %w", err))
	}
	if err := config.ValidateIntRange(c.QuickRetryAttempts, 0, 10); err != nil {
		errs = append(errs, fmt.Errorf("quick retry attempts: %w", err))
	}
	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads scheduler configuration from environment variables
// with validation and automatic fallback to default values on failure. It
// never returns an error: an invalid or missing value logs a warning,
// records a fallback metric, and falls back to the corresponding default.
//
// Environment variables:
//   - SCHEDULER_INTERVAL_SECS
//   - SCHEDULER_BATCH_SIZE
//   - SCHEDULER_CONCURRENCY
//   - SCHEDULER_REQUEST_TIMEOUT_SECS
//   - SCHEDULER_QUICK_RETRY_DELAY
//   - SCHEDULER_QUICK_RETRY_ATTEMPTS
//   - CRON_SCHEDULE
//   - WORKER_TIMEZONE
//   - WORKER_HEALTH_PORT
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*SchedulerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	applyInt := func(field, envKey string, current int, rangeMin, rangeMax int) int {
		result := config.LoadEnvInt(envKey, current, func(v int) error {
			return config.ValidateIntRange(v, rangeMin, rangeMax)
		})
		if result.FallbackApplied {
			fallbackApplied = true
			metrics.RecordValidationError(field)
			metrics.RecordFallback(field, "default")
			for _, warning := range result.Warnings {
				logger.Warn("Configuration fallback applied",
					slog.String("field", field),
					slog.String("warning", warning))
			}
		}
		return result.Value.(int)
	}

	cfg.IntervalSeconds = applyInt("interval_seconds", "SCHEDULER_INTERVAL_SECS", cfg.IntervalSeconds, 1, 3600)
	cfg.BatchSize = applyInt("batch_size", "SCHEDULER_BATCH_SIZE", cfg.BatchSize, 1, 1000)
	cfg.Concurrency = applyInt("concurrency", "SCHEDULER_CONCURRENCY", cfg.Concurrency, 1, 100)
	cfg.RequestTimeoutSeconds = applyInt("request_timeout_seconds", "SCHEDULER_REQUEST_TIMEOUT_SECS", cfg.RequestTimeoutSeconds, 1, 300)
	cfg.QuickRetryAttempts = applyInt("quick_retry_attempts", "SCHEDULER_QUICK_RETRY_ATTEMPTS", cfg.QuickRetryAttempts, 0, 10)
	cfg.HealthPort = applyInt("health_port", "WORKER_HEALTH_PORT", cfg.HealthPort, 1024, 65535)

	durResult := config.LoadEnvDuration("SCHEDULER_QUICK_RETRY_DELAY", cfg.QuickRetryDelay, func(d time.Duration) error {
		return config.ValidateDuration(d, 1*time.Second, 5*time.Minute)
	})
	cfg.QuickRetryDelay = durResult.Value.(time.Duration)
	if durResult.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("quick_retry_delay")
		metrics.RecordFallback("quick_retry_delay", "default")
		for _, warning := range durResult.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "QuickRetryDelay"),
				slog.String("warning", warning))
		}
	}

	cronResult := config.LoadEnvWithFallback("CRON_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule)
	cfg.CronSchedule = cronResult.Value.(string)
	if cronResult.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("cron_schedule")
		metrics.RecordFallback("cron_schedule", "default")
		for _, warning := range cronResult.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "CronSchedule"),
				slog.String("warning", warning))
		}
	}

	tzResult := config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = tzResult.Value.(string)
	if tzResult.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("timezone")
		metrics.RecordFallback("timezone", "default")
		for _, warning := range tzResult.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "Timezone"),
				slog.String("warning", warning))
		}
	}

	metrics.SetFallbackActive("", fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}
