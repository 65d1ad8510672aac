package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"newsaggregator/internal/resilience/circuitbreaker"
	"newsaggregator/internal/resilience/retry"
)

// OpenAIProvider is a hosted provider speaking the OpenAI chat completions
// wire format. Pointing BaseURL at a compatible endpoint (DeepSeek and
// similar providers implement the same /v1/chat/completions contract) lets
// the same client serve multiple hosted backends.
type OpenAIProvider struct {
	name           string
	client         *openai.Client
	model          string
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewOpenAIProvider builds an OpenAIProvider. name identifies the provider in
// settings/logs ("openai", "deepseek", ...); baseURL may be empty to use the
// official OpenAI API.
func NewOpenAIProvider(name, apiKey, baseURL, model string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	return &OpenAIProvider{
		name:           name,
		client:         openai.NewClientWithConfig(cfg),
		model:          model,
		circuitBreaker: circuitbreaker.New(circuitbreaker.OpenAIAPIConfig()),
		retryConfig:    retry.AIAPIConfig(),
	}
}

// Name returns the provider identifier used in settings and logs.
func (o *OpenAIProvider) Name() string { return o.name }

// Translate requests a Simplified Chinese translation of title/description.
func (o *OpenAIProvider) Translate(ctx context.Context, title, description string) (TranslationResult, error) {
	content, err := o.chat(ctx, translationSystemPrompt, translationUserPrompt(title, description))
	if err != nil {
		return TranslationResult{}, err
	}
	return parseTranslation(content)
}

// JudgeSimilarity asks whether two article snippets describe the same event.
func (o *OpenAIProvider) JudgeSimilarity(ctx context.Context, a, b ArticleSnippet) (SimilarityJudgment, error) {
	content, err := o.chat(ctx, similaritySystemPrompt, similarityUserPrompt(a, b))
	if err != nil {
		return SimilarityJudgment{}, err
	}
	return parseSimilarity(content)
}

func (o *OpenAIProvider) chat(ctx context.Context, system, user string) (string, error) {
	var result string

	retryErr := retry.WithBackoff(ctx, o.retryConfig, func() error {
		cbResult, err := o.circuitBreaker.Execute(func() (interface{}, error) {
			return o.doChat(ctx, system, user)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("openai-compatible circuit breaker open, request rejected",
					slog.String("provider", o.name),
					slog.String("state", o.circuitBreaker.State().String()))
				return fmt.Errorf("%s unavailable: circuit breaker open", o.name)
			}
			return err
		}
		result = cbResult.(string)
		return nil
	})
	if retryErr != nil {
		return "", fmt.Errorf("%s chat failed: %w", o.name, retryErr)
	}
	return result, nil
}

func (o *OpenAIProvider) doChat(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s api error: %w", o.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s api returned empty response", o.name)
	}
	return resp.Choices[0].Message.Content, nil
}
