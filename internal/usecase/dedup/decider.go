// Package dedup implements the multi-stage duplicate decision used by the
// per-entry pipeline: an intra-batch Jaccard/exact-title check, a historical
// Jaccard check against a recent-articles snapshot, and a bounded LLM
// tie-break for the ambiguous band between the two.
package dedup

import (
	"context"
	"log/slog"
	"time"

	"newsaggregator/internal/domain/entity"
	"newsaggregator/internal/infra/llm"
	"newsaggregator/internal/normalize"
	"newsaggregator/internal/observability/metrics"
)

// Thresholds and bounds fixed by the dedup contract.
const (
	// StrictThreshold is the Jaccard similarity at or above which two titles
	// are considered the same story without consulting an LLM.
	StrictThreshold = 0.9

	// LLMBandThreshold is the Jaccard similarity at or above which an
	// ambiguous pair becomes eligible for an LLM tie-break, provided
	// ai_dedup is enabled and a provider is available.
	LLMBandThreshold = 0.6

	// MaxLLMChecks bounds the number of judge_similarity calls spent on one
	// entry, shared across every historical candidate scanned for it.
	MaxLLMChecks = 3

	// llmCallTimeout is the hard per-call timeout for judge_similarity.
	llmCallTimeout = 10 * time.Second
)

// SimilarityJudge is the narrow capability the decider needs from the
// translation engine: a similarity opinion that may be unavailable (ok is
// false when no provider is configured and verified).
type SimilarityJudge interface {
	JudgeSimilarity(ctx context.Context, a, b llm.ArticleSnippet) (llm.SimilarityJudgment, bool, error)
}

// Candidate is a title already reduced to its comparison signature, the unit
// both intra-batch and historical checks compare against.
type Candidate struct {
	Title       string
	Description string
	URL         string
	SourceDomain string
	PublishedAt time.Time
	Signature   normalize.TitleSignature
}

// NewCandidate builds a Candidate from a title, computing its signature.
func NewCandidate(title, description, url, sourceDomain string, publishedAt time.Time) Candidate {
	return Candidate{
		Title:        title,
		Description:  description,
		URL:          url,
		SourceDomain: sourceDomain,
		PublishedAt:  publishedAt,
		Signature:    normalize.PrepareTitleSignature(title),
	}
}

// HistoricalCandidate pairs a persisted article with its precomputed title
// signature, built once per scheduler tick from the recent-articles
// snapshot and reused across every entry processed in that round.
type HistoricalCandidate struct {
	Article   *entity.Article
	Signature normalize.TitleSignature
}

// PrepareHistoricalSnapshot converts a published_at-DESC ordered list of
// recent articles into the form CheckHistorical scans. Order is preserved:
// the first duplicate hit in that order wins.
func PrepareHistoricalSnapshot(articles []*entity.Article) []HistoricalCandidate {
	snapshot := make([]HistoricalCandidate, len(articles))
	for i, a := range articles {
		snapshot[i] = HistoricalCandidate{
			Article:   a,
			Signature: normalize.PrepareTitleSignature(a.Title),
		}
	}
	return snapshot
}

// Verdict is the outcome of a historical dedup check: the entry duplicates
// ExistingArticleID and should be dropped with a provenance row describing
// Decision/Confidence.
type Verdict struct {
	ExistingArticleID int64
	Decision          string
	Confidence        *float64
}

// Decider runs the intra-batch and historical dedup checks.
type Decider struct {
	judge SimilarityJudge
}

// NewDecider builds a Decider. judge may be nil, in which case the LLM
// tie-break band is always skipped.
func NewDecider(judge SimilarityJudge) *Decider {
	return &Decider{judge: judge}
}

// IsIntraBatchDuplicate reports whether candidate duplicates any entry
// already accepted into this batch: Jaccard ≥ StrictThreshold, or the
// normalized titles are exactly equal.
func (d *Decider) IsIntraBatchDuplicate(candidate Candidate, batch []Candidate) bool {
	for _, accepted := range batch {
		if candidate.Signature.Normalized == accepted.Signature.Normalized {
			metrics.RecordDedupDecision("intra_batch", true)
			return true
		}
		if normalize.JaccardSimilarity(candidate.Signature.Tokens, accepted.Signature.Tokens) >= StrictThreshold {
			metrics.RecordDedupDecision("intra_batch", true)
			return true
		}
	}
	metrics.RecordDedupDecision("intra_batch", false)
	return false
}

// CheckHistorical scans historical in order, returning the first duplicate
// hit. A Jaccard ≥ StrictThreshold match is decided without an LLM call; a
// match in [LLMBandThreshold, StrictThreshold) is escalated to
// judge_similarity when aiDedupEnabled and a provider is available, up to
// MaxLLMChecks calls shared across the whole scan. LLM errors and timeouts
// are logged and treated as "not a duplicate", continuing the scan.
func (d *Decider) CheckHistorical(ctx context.Context, candidate Candidate, historical []HistoricalCandidate, aiDedupEnabled bool) (*Verdict, error) {
	llmChecksUsed := 0

	for _, h := range historical {
		sim := normalize.JaccardSimilarity(candidate.Signature.Tokens, h.Signature.Tokens)

		if sim >= StrictThreshold {
			metrics.RecordDedupDecision("recent_jaccard", true)
			confidence := sim
			return &Verdict{
				ExistingArticleID: h.Article.ID,
				Decision:          entity.DecisionRecentJaccard,
				Confidence:        &confidence,
			}, nil
		}

		if !aiDedupEnabled || sim < LLMBandThreshold || d.judge == nil || llmChecksUsed >= MaxLLMChecks {
			continue
		}

		llmChecksUsed++
		judgment, ok, err := d.callJudge(ctx, candidate, h)
		if err != nil {
			slog.Warn("judge_similarity failed, continuing scan",
				slog.Int64("candidate_article_id", h.Article.ID),
				slog.String("error", err.Error()))
			continue
		}
		if !ok {
			continue // no provider configured and verified
		}

		metrics.RecordDedupDecision("llm", judgment.IsDuplicate)
		if judgment.IsDuplicate {
			decision := judgment.Reason
			if decision == "" {
				decision = entity.DecisionLLMDuplicate
			}
			confidence := judgment.Confidence
			return &Verdict{
				ExistingArticleID: h.Article.ID,
				Decision:          decision,
				Confidence:        &confidence,
			}, nil
		}
	}

	metrics.RecordDedupDecision("recent_jaccard", false)
	return nil, nil
}

func (d *Decider) callJudge(ctx context.Context, candidate Candidate, h HistoricalCandidate) (llm.SimilarityJudgment, bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, llmCallTimeout)
	defer cancel()

	a := llm.ArticleSnippet{
		Title:   candidate.Title,
		Source:  candidate.SourceDomain,
		URL:     candidate.URL,
		Summary: candidate.Description,
	}
	if !candidate.PublishedAt.IsZero() {
		a.PublishedAt = candidate.PublishedAt.Format(time.RFC3339)
	}

	b := llm.ArticleSnippet{
		Title:   h.Article.Title,
		Source:  h.Article.SourceDomain,
		URL:     h.Article.URL,
		Summary: h.Article.Description,
	}
	if !h.Article.PublishedAt.IsZero() {
		b.PublishedAt = h.Article.PublishedAt.Format(time.RFC3339)
	}

	return d.judge.JudgeSimilarity(callCtx, a, b)
}
