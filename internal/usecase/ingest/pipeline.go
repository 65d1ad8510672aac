// Package ingest implements the per-entry pipeline, the per-feed state
// machine, and the scheduler that drives them over the set of due feeds.
package ingest

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"newsaggregator/internal/infra/feed"
	"newsaggregator/internal/infra/llm"
	"newsaggregator/internal/normalize"
	"newsaggregator/internal/observability/metrics"
	"newsaggregator/internal/sanitize"
	"newsaggregator/internal/store"
	"newsaggregator/internal/usecase/dedup"
)

// Translator is the narrow capability the pipeline needs from the
// translation engine.
type Translator interface {
	Translate(ctx context.Context, title, description string) (result llm.TranslationResult, ok bool, err error)
	TranslateDescriptions() bool
	Enabled() bool
}

// entryHardCap is the maximum time the whole per-entry pipeline (sanitize,
// translate, dedup) may take before the entry is skipped.
const entryHardCap = 2 * time.Second

// translateRetryDelay is the pause before retrying a failed translation call
// exactly once.
const translateRetryDelay = 300 * time.Millisecond

// historicalSnapshotSize is N in "the N most recent articles" used for the
// historical dedup comparison.
const historicalSnapshotSize = 100

// candidateResult is the outcome of running the per-entry pipeline on one
// parsed feed entry.
type candidateResult struct {
	accepted  bool
	candidate dedup.Candidate
	language  string
	dropped   *dropOutcome
}

// dropOutcome records a duplicate drop that needs a provenance write;
// nil Verdict means the entry was dropped with no provenance (empty
// signature or intra-batch duplicate).
type dropOutcome struct {
	verdict *dedup.Verdict
}

// entryPipeline runs the per-entry steps for one feed's batch of parsed
// entries, maintaining the intra-batch dedup state across calls.
type entryPipeline struct {
	feedID       int64
	sourceDomain string
	translator   Translator
	decider      *dedup.Decider
	historical   []dedup.HistoricalCandidate
	aiDedupEnabled bool

	accepted []dedup.Candidate
}

func newEntryPipeline(feedID int64, sourceDomain string, translator Translator, decider *dedup.Decider, historical []dedup.HistoricalCandidate, aiDedupEnabled bool) *entryPipeline {
	return &entryPipeline{
		feedID:         feedID,
		sourceDomain:   sourceDomain,
		translator:     translator,
		decider:        decider,
		historical:     historical,
		aiDedupEnabled: aiDedupEnabled,
	}
}

// process runs the full per-entry pipeline (build, sanitize, translate,
// signature, dedup, accept) for one parsed entry, bounded by entryHardCap.
func (p *entryPipeline) process(ctx context.Context, entry feed.Entry) candidateResult {
	ctx, cancel := context.WithTimeout(ctx, entryHardCap)
	defer cancel()

	result, err := p.run(ctx, entry)
	if err != nil {
		if ctx.Err() != nil {
			slog.Warn("entry pipeline exceeded hard cap, skipping",
				slog.Int64("feed_id", p.feedID), slog.String("title", entry.Title))
		}
		metrics.RecordEntryOutcome("dropped_timeout")
		return candidateResult{}
	}
	return result
}

func (p *entryPipeline) run(ctx context.Context, parsed feed.Entry) (candidateResult, error) {
	// 1. Build candidate.
	title := strings.TrimSpace(parsed.Title)
	if title == "" {
		metrics.RecordEntryOutcome("dropped_empty_signature")
		return candidateResult{}, nil
	}

	rawURL := pickLink(parsed.Links)
	if rawURL == "" {
		metrics.RecordEntryOutcome("dropped_empty_signature")
		return candidateResult{}, nil
	}
	normalizedURL, err := normalize.URL(rawURL)
	if err != nil {
		metrics.RecordEntryOutcome("dropped_empty_signature")
		return candidateResult{}, nil
	}

	description := ""
	if strings.TrimSpace(parsed.Description) != "" {
		description = parsed.Description
	}

	publishedAt := time.Now().UTC()
	if parsed.Published != nil {
		publishedAt = *parsed.Published
	} else if parsed.Updated != nil {
		publishedAt = *parsed.Updated
	}

	// 2. Sanitize.
	sanitizedDescription := sanitize.HTML(description)
	title = sanitize.DecodeEntities(title)
	language := ""

	// 3. Translation decision.
	if p.translator != nil && p.translator.Enabled() && normalize.ShouldTranslate(title) {
		translated, ok := p.translateWithRetry(ctx, title, sanitizedDescription)
		if ok {
			title = translated.Title
			if translated.Description != "" {
				sanitizedDescription = translated.Description
			}
			language = "zh-CN"
		}
	}

	// 4. Signature.
	signature := normalize.PrepareTitleSignature(title)
	if len(signature.Tokens) == 0 {
		metrics.RecordEntryOutcome("dropped_empty_signature")
		return candidateResult{}, nil
	}

	candidate := dedup.Candidate{
		Title:        title,
		Description:  sanitizedDescription,
		URL:          normalizedURL,
		SourceDomain: p.sourceDomain,
		PublishedAt:  publishedAt,
		Signature:    signature,
	}

	// 5. Intra-batch dedup.
	if p.decider.IsIntraBatchDuplicate(candidate, p.accepted) {
		metrics.RecordEntryOutcome("dropped_dedup")
		return candidateResult{dropped: &dropOutcome{}}, nil
	}

	// 6. Historical dedup.
	verdict, err := p.decider.CheckHistorical(ctx, candidate, p.historical, p.aiDedupEnabled)
	if err != nil {
		return candidateResult{}, err
	}
	if verdict != nil {
		metrics.RecordEntryOutcome("dropped_dedup")
		return candidateResult{dropped: &dropOutcome{verdict: verdict}}, nil
	}

	// 8. Accept.
	p.accepted = append(p.accepted, candidate)
	metrics.RecordEntryOutcome("accepted")
	return candidateResult{accepted: true, candidate: candidate, language: language}, nil
}

// translateWithRetry calls the translation engine, retrying once after
// translateRetryDelay on failure. Keeping the original title/description is
// the caller's responsibility when ok is false.
func (p *entryPipeline) translateWithRetry(ctx context.Context, title, description string) (llm.TranslationResult, bool) {
	translateDescription := ""
	if p.translator.TranslateDescriptions() {
		translateDescription = description
	}

	result, ok, err := p.translator.Translate(ctx, title, translateDescription)
	if err == nil && ok {
		metrics.RecordTranslationCall("current", "success")
		return result, true
	}
	if err == nil && !ok {
		metrics.RecordTranslationCall("current", "skipped")
		return llm.TranslationResult{}, false
	}

	select {
	case <-time.After(translateRetryDelay):
	case <-ctx.Done():
		metrics.RecordTranslationCall("current", "error")
		return llm.TranslationResult{}, false
	}

	result, ok, err = p.translator.Translate(ctx, title, translateDescription)
	if err != nil || !ok {
		metrics.RecordTranslationCall("current", "error")
		return llm.TranslationResult{}, false
	}
	metrics.RecordTranslationCall("current", "success")
	return result, true
}

// pickLink prefers rel="alternate", falling back to the first link.
func pickLink(links []feed.Link) string {
	for _, l := range links {
		if l.Rel == "alternate" {
			return l.URL
		}
	}
	if len(links) > 0 {
		return links[0].URL
	}
	return ""
}

// toNewArticle converts an accepted candidate into a store insert row.
func toNewArticle(feedID int64, c dedup.Candidate, language string) store.NewArticle {
	return store.NewArticle{
		FeedID:       feedID,
		Title:        c.Title,
		URL:          c.URL,
		Description:  c.Description,
		Language:     language,
		SourceDomain: c.SourceDomain,
		PublishedAt:  c.PublishedAt,
	}
}
