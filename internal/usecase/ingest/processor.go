package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"newsaggregator/internal/domain/entity"
	"newsaggregator/internal/infra/feed"
	"newsaggregator/internal/observability/metrics"
	"newsaggregator/internal/store"
	"newsaggregator/internal/usecase/dedup"
)

// ProcessorConfig bounds one feed task's retry behavior, mirroring the
// scheduler's quick-retry knobs.
type ProcessorConfig struct {
	RequestTimeout     time.Duration
	QuickRetryDelay    time.Duration
	QuickRetryAttempts int
}

// Processor runs the per-feed state machine: lock, conditional GET, parse,
// per-entry pipeline, persist, mark status.
type Processor struct {
	store      store.Store
	fetcher    feed.Fetcher
	translator Translator
	judge      dedup.SimilarityJudge
	cfg        ProcessorConfig
}

// NewProcessor builds a Processor.
func NewProcessor(s store.Store, fetcher feed.Fetcher, translator Translator, judge dedup.SimilarityJudge, cfg ProcessorConfig) *Processor {
	return &Processor{store: s, fetcher: fetcher, translator: translator, judge: judge, cfg: cfg}
}

// Process runs one due feed through the full state machine, from TryLock to
// Done. It never returns an error to the caller: every failure path is
// logged and recorded, and Process always releases the lock it acquired.
func (p *Processor) Process(ctx context.Context, due store.DueFeed) {
	acquired, release, err := p.store.TryAcquireLock(ctx, due.ID)
	if err != nil {
		slog.Error("try-lock failed", slog.Int64("feed_id", due.ID), slog.String("error", err.Error()))
		return
	}
	if !acquired {
		return // another worker holds this feed's lock this round
	}
	defer release()

	start := time.Now()
	attempts := 1 + p.cfg.QuickRetryAttempts

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = p.attempt(ctx, due)
		if lastErr == nil {
			metrics.RecordFeedCrawl(due.ID, time.Since(start))
			return
		}

		isLastAttempt := attempt == attempts
		if isLastAttempt {
			p.recordFailure(ctx, due.ID, lastErr)
			metrics.RecordFeedCrawlError(due.ID, classifyError(lastErr))
			return
		}

		slog.Warn("feed attempt failed, retrying",
			slog.Int64("feed_id", due.ID), slog.Int("attempt", attempt), slog.String("error", lastErr.Error()))
		select {
		case <-time.After(p.cfg.QuickRetryDelay):
		case <-ctx.Done():
			return
		}
	}
}

// classifyError labels an attempt failure for the feed_crawl_errors metric.
// Fetch-layer failures are the overwhelming majority in practice, so a
// "feed parse" prefix (the one error gofeed.Parse produces through
// GofeedFetcher) is the only case worth distinguishing from a generic
// http/network error.
func classifyError(err error) string {
	if strings.Contains(err.Error(), "feed parse") {
		return "parse_error"
	}
	return "http_error"
}

// attempt runs Fetching -> Parsing -> Processing -> Persisting for one try.
// A nil return means MarkSuccess (including NotModified) already happened.
func (p *Processor) attempt(ctx context.Context, due store.DueFeed) error {
	fetchCtx := ctx
	if p.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, p.cfg.RequestTimeout)
		defer cancel()
	}

	result, err := p.fetcher.Fetch(fetchCtx, due.URL, due.LastETag)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	if result.NotModified {
		if err := p.store.MarkNotModified(ctx, due.ID, 304); err != nil {
			return err
		}
		return nil
	}

	// Parsing already happened inside Fetch (gofeed decodes as it reads);
	// a malformed body surfaces as a fetch error above, so reaching here
	// means Parsing succeeded.

	inserted, err := p.processEntries(ctx, due, result.Entries)
	if err != nil {
		return err
	}

	if err := p.persist(ctx, due, inserted); err != nil {
		return err
	}

	if err := p.store.MarkSuccess(ctx, due.ID, 200, result.ETag, result.FeedTitle, result.SiteURL); err != nil {
		return err
	}
	return nil
}

// pendingArticle pairs an accepted candidate with its resolved language tag.
type pendingArticle struct {
	candidate dedup.Candidate
	language  string
}

// processEntries runs the per-entry pipeline over every parsed entry in
// source order, returning the accepted candidates to persist.
func (p *Processor) processEntries(ctx context.Context, due store.DueFeed, entries []feed.Entry) ([]pendingArticle, error) {
	recent, err := p.store.ListRecent(ctx, historicalSnapshotSize)
	if err != nil {
		return nil, err
	}
	historical := dedup.PrepareHistoricalSnapshot(recent)

	aiDedupEnabled, _ := p.boolSetting(ctx, entity.SettingAIDedupEnabled)

	decider := dedup.NewDecider(p.judge)
	pipeline := newEntryPipeline(due.ID, due.SourceDomain, p.translator, decider, historical, aiDedupEnabled)

	var pending []pendingArticle

	for _, entry := range entries {
		result := pipeline.process(ctx, entry)

		if result.accepted {
			pending = append(pending, pendingArticle{candidate: result.candidate, language: result.language})
			continue
		}

		if result.dropped != nil && result.dropped.verdict != nil {
			v := result.dropped.verdict
			if err := p.store.InsertDuplicate(ctx, v.ExistingArticleID, due.ID, due.SourceDomain,
				result.candidate.URL, result.candidate.PublishedAt, v.Decision, v.Confidence); err != nil {
				slog.Warn("provenance insert for duplicate failed",
					slog.Int64("feed_id", due.ID), slog.String("error", err.Error()))
			}
		}
	}

	return pending, nil
}

// persist inserts every accepted candidate inside one transaction, writes
// primary provenance for each newly-inserted row, and applies the feed's
// filter_condition (if any).
func (p *Processor) persist(ctx context.Context, due store.DueFeed, pending []pendingArticle) error {
	if len(pending) == 0 {
		return p.applyFilterCondition(ctx, due)
	}

	newArticles := make([]store.NewArticle, 0, len(pending))
	for _, pa := range pending {
		newArticles = append(newArticles, toNewArticle(due.ID, pa.candidate, pa.language))
	}

	insertedRows, err := p.store.InsertBatch(ctx, newArticles)
	if err != nil {
		return err
	}

	for _, row := range insertedRows {
		if err := p.store.InsertAccepted(ctx, row.ID, due.ID, row.Article.SourceDomain, row.Article.URL, row.Article.PublishedAt); err != nil {
			slog.Warn("provenance insert for accepted article failed",
				slog.Int64("feed_id", due.ID), slog.Int64("article_id", row.ID), slog.String("error", err.Error()))
		}
	}

	return p.applyFilterCondition(ctx, due)
}

func (p *Processor) applyFilterCondition(ctx context.Context, due store.DueFeed) error {
	if due.FilterCondition == "" {
		return nil
	}
	if err := entity.ValidateFilterCondition(due.FilterCondition); err != nil {
		slog.Error("filter_condition failed validation, skipping post-filter",
			slog.Int64("feed_id", due.ID), slog.String("error", err.Error()))
		return nil
	}
	n, err := p.store.ApplyFilterCondition(ctx, due.ID, due.FilterCondition)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Info("filter_condition removed articles", slog.Int64("feed_id", due.ID), slog.Int64("count", n))
	}
	return nil
}

func (p *Processor) recordFailure(ctx context.Context, feedID int64, cause error) {
	if err := p.store.MarkFailure(ctx, feedID, 0); err != nil {
		slog.Error("mark failure failed", slog.Int64("feed_id", feedID), slog.String("error", err.Error()))
	}
	slog.Error("feed processing failed, exhausted quick-retry attempts",
		slog.Int64("feed_id", feedID), slog.String("error", cause.Error()))
}

// boolSetting reads a persisted setting as a boolean, defaulting to false
// when unset.
func (p *Processor) boolSetting(ctx context.Context, key string) (bool, error) {
	value, ok, err := p.store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	return entity.ParseSettingBool(value), nil
}
