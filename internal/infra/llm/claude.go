package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sony/gobreaker"

	"newsaggregator/internal/resilience/circuitbreaker"
	"newsaggregator/internal/resilience/retry"
)

// ClaudeProvider is a hosted translation/similarity provider backed by
// Anthropic's Messages API.
type ClaudeProvider struct {
	client         anthropic.Client
	model          string
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewClaudeProvider builds a ClaudeProvider for the given API key and model.
// An empty model defaults to Claude Sonnet.
func NewClaudeProvider(apiKey, model string) *ClaudeProvider {
	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_5_20250929)
	}
	return &ClaudeProvider{
		client:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:          model,
		circuitBreaker: circuitbreaker.New(circuitbreaker.ClaudeAPIConfig()),
		retryConfig:    retry.AIAPIConfig(),
	}
}

// Name returns the provider identifier used in settings and logs.
func (c *ClaudeProvider) Name() string { return "claude" }

// Translate requests a Simplified Chinese translation of title/description.
func (c *ClaudeProvider) Translate(ctx context.Context, title, description string) (TranslationResult, error) {
	content, err := c.chat(ctx, translationSystemPrompt, translationUserPrompt(title, description))
	if err != nil {
		return TranslationResult{}, err
	}
	return parseTranslation(content)
}

// JudgeSimilarity asks whether two article snippets describe the same event.
func (c *ClaudeProvider) JudgeSimilarity(ctx context.Context, a, b ArticleSnippet) (SimilarityJudgment, error) {
	content, err := c.chat(ctx, similaritySystemPrompt, similarityUserPrompt(a, b))
	if err != nil {
		return SimilarityJudgment{}, err
	}
	return parseSimilarity(content)
}

func (c *ClaudeProvider) chat(ctx context.Context, system, user string) (string, error) {
	var result string

	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		cbResult, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.doChat(ctx, system, user)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("claude circuit breaker open, request rejected",
					slog.String("state", c.circuitBreaker.State().String()))
				return fmt.Errorf("claude unavailable: circuit breaker open")
			}
			return err
		}
		result = cbResult.(string)
		return nil
	})
	if retryErr != nil {
		return "", fmt.Errorf("claude chat failed: %w", retryErr)
	}
	return result, nil
}

func (c *ClaudeProvider) doChat(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 1024,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude api error: %w", err)
	}
	if len(message.Content) == 0 {
		return "", fmt.Errorf("claude api returned empty response")
	}
	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return "", fmt.Errorf("claude api returned unexpected response type")
	}
	return textBlock.Text, nil
}
