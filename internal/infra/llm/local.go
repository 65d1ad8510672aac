package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"newsaggregator/internal/resilience/circuitbreaker"
	"newsaggregator/internal/resilience/retry"
)

// LocalProvider talks to a self-hosted chat endpoint shaped like Ollama's
// /api/chat (no third-party client exists for it in the retrieval pack, so
// this is a deliberate stdlib net/http exception — see DESIGN.md).
type LocalProvider struct {
	baseURL        string
	model          string
	httpClient     *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewLocalProvider builds a LocalProvider pointed at baseURL (e.g.
// "http://localhost:11434").
func NewLocalProvider(baseURL, model string) *LocalProvider {
	return &LocalProvider{
		baseURL:        strings.TrimRight(baseURL, "/"),
		model:          model,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		circuitBreaker: circuitbreaker.New(circuitbreaker.DefaultConfig("local-llm")),
		retryConfig:    retry.AIAPIConfig(),
	}
}

// Name returns the provider identifier used in settings and logs.
func (l *LocalProvider) Name() string { return "ollama" }

// Translate requests a Simplified Chinese translation of title/description.
func (l *LocalProvider) Translate(ctx context.Context, title, description string) (TranslationResult, error) {
	content, err := l.chat(ctx, translationSystemPrompt, translationUserPrompt(title, description))
	if err != nil {
		return TranslationResult{}, err
	}
	return parseTranslation(content)
}

// JudgeSimilarity asks whether two article snippets describe the same event.
func (l *LocalProvider) JudgeSimilarity(ctx context.Context, a, b ArticleSnippet) (SimilarityJudgment, error) {
	content, err := l.chat(ctx, similaritySystemPrompt, similarityUserPrompt(a, b))
	if err != nil {
		return SimilarityJudgment{}, err
	}
	return parseSimilarity(content)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

func (l *LocalProvider) chat(ctx context.Context, system, user string) (string, error) {
	var result string

	retryErr := retry.WithBackoff(ctx, l.retryConfig, func() error {
		cbResult, err := l.circuitBreaker.Execute(func() (interface{}, error) {
			return l.doChat(ctx, system, user)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("local llm circuit breaker open, request rejected",
					slog.String("state", l.circuitBreaker.State().String()))
				return fmt.Errorf("local llm unavailable: circuit breaker open")
			}
			return err
		}
		result = cbResult.(string)
		return nil
	})
	if retryErr != nil {
		return "", fmt.Errorf("local llm chat failed: %w", retryErr)
	}
	return result, nil
}

func (l *LocalProvider) doChat(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: l.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Stream: false,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("local llm request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("local llm returned status %d: %s", resp.StatusCode, string(payload))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode local llm response: %w", err)
	}
	return parsed.Message.Content, nil
}
