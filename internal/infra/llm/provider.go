// Package llm adapts hosted and self-hosted chat completion APIs to the two
// JSON-only contracts the translation engine and the dedup decider need:
// translate(title, description?) and judge_similarity(a, b).
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// TranslationResult is the provider-agnostic result of a translate call.
type TranslationResult struct {
	Title       string
	Description string
}

// SimilarityJudgment is the provider-agnostic result of judge_similarity.
type SimilarityJudgment struct {
	IsDuplicate bool
	Reason      string
	Confidence  float64
}

// ArticleSnippet is the candidate summary passed to judge_similarity.
type ArticleSnippet struct {
	Title       string
	Source      string
	URL         string
	PublishedAt string
	Summary     string
}

// Provider is one chat-completion backend usable by the translation engine.
// Implementations must be safe for concurrent use.
type Provider interface {
	Name() string
	Translate(ctx context.Context, title, description string) (TranslationResult, error)
	JudgeSimilarity(ctx context.Context, a, b ArticleSnippet) (SimilarityJudgment, error)
}

const translationSystemPrompt = "You are a professional news translator. Translate the given English news title and summary into natural, accurate Simplified Chinese. Respond with a JSON object only, shaped as {\"title\": \"...\", \"description\": \"...\"}; use null for description when there is none. Do not add any extra text."

const similaritySystemPrompt = "You are a senior news deduplication assistant. Decide whether two news items describe the same event. Respond with a JSON object only, with fields is_duplicate, reason, confidence."

func translationUserPrompt(title, description string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", title)
	if description != "" {
		fmt.Fprintf(&b, "Summary: %s", description)
	} else {
		b.WriteString("Summary:")
	}
	return b.String()
}

func similarityUserPrompt(a, b ArticleSnippet) string {
	var buf strings.Builder
	buf.WriteString("Compare the following two news items and decide whether they describe the same event. If they do, respond with JSON {\"is_duplicate\": true, \"reason\": \"short reason\", \"confidence\": a decimal between 0 and 1}; if not, use false. Do not include anything besides that JSON.\n\n")
	writeSnippet(&buf, a, "NEWS A")
	writeSnippet(&buf, b, "NEWS B")
	return buf.String()
}

func writeSnippet(buf *strings.Builder, s ArticleSnippet, label string) {
	fmt.Fprintf(buf, "%s\nTitle: %s\n", label, s.Title)
	if s.Source != "" {
		fmt.Fprintf(buf, "Source: %s\n", s.Source)
	}
	if s.URL != "" {
		fmt.Fprintf(buf, "URL: %s\n", s.URL)
	}
	if s.PublishedAt != "" {
		fmt.Fprintf(buf, "Published: %s\n", s.PublishedAt)
	}
	if s.Summary != "" {
		fmt.Fprintf(buf, "Summary: %s\n", s.Summary)
	}
}

// stripJSONFence removes a leading ```json / ``` fence and a trailing ```
// from content, the way model responses are commonly wrapped.
func stripJSONFence(content string) string {
	cleaned := strings.TrimSpace(content)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

func parseTranslation(content string) (TranslationResult, error) {
	type payload struct {
		Title       string  `json:"title"`
		Description *string `json:"description"`
	}

	var p payload
	cleaned := stripJSONFence(content)
	if err := json.Unmarshal([]byte(cleaned), &p); err != nil {
		if err2 := json.Unmarshal([]byte(strings.TrimSpace(content)), &p); err2 != nil {
			return TranslationResult{}, fmt.Errorf("parse translation response: %w", err)
		}
	}

	result := TranslationResult{Title: strings.TrimSpace(p.Title)}
	if p.Description != nil {
		if trimmed := strings.TrimSpace(*p.Description); trimmed != "" {
			result.Description = trimmed
		}
	}
	return result, nil
}

func parseSimilarity(content string) (SimilarityJudgment, error) {
	type payload struct {
		IsDuplicate bool     `json:"is_duplicate"`
		Reason      *string  `json:"reason"`
		Confidence  *float64 `json:"confidence"`
	}

	var p payload
	cleaned := stripJSONFence(content)
	if err := json.Unmarshal([]byte(cleaned), &p); err != nil {
		if err2 := json.Unmarshal([]byte(strings.TrimSpace(content)), &p); err2 != nil {
			return SimilarityJudgment{}, fmt.Errorf("parse similarity response: %w", err)
		}
	}

	judgment := SimilarityJudgment{IsDuplicate: p.IsDuplicate}
	if p.Reason != nil {
		judgment.Reason = *p.Reason
	}
	if p.Confidence != nil {
		judgment.Confidence = *p.Confidence
	}
	return judgment, nil
}
