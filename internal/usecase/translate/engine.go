// Package translate implements the translation engine: a multi-provider
// client with async credential verification, priority-ordered fallback, and
// runtime-mutable settings, shared (reference-counted, via a plain pointer)
// between every per-feed task and the admin settings handlers.
package translate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"newsaggregator/internal/infra/llm"
	"newsaggregator/internal/utils/text"
)

// ProviderConfig is one provider's credentials, as read from persisted
// settings or an admin update. An empty APIKey/BaseURL means "not
// configured" for that provider.
type ProviderConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// providerState tracks one priority-list entry's live client and
// verification status. Protected by Engine.mu.
type providerState struct {
	cfg        ProviderConfig
	client     llm.Provider
	configured bool
	verified   bool
	lastError  string
}

// maxErrorLen bounds the stored verification error string.
const maxErrorLen = 200

// verifySample is the fixed payload used to probe a newly (re)configured
// provider asynchronously.
const verifySampleTitle = "Verification ping"

// Engine is the shared, concurrency-safe translation/similarity client.
// Zero value is not usable; build with New.
type Engine struct {
	mu sync.RWMutex

	priority  []string
	providers map[string]*providerState

	translationProvider string
	dedupProvider        string

	enabled               bool
	translateDescriptions bool

	// verifyFn is overridable in tests; defaults to calling Translate with
	// the fixed sample payload.
	verifyFn func(ctx context.Context, p llm.Provider) error
}

// Config is the full bootstrap configuration for a new Engine.
type Config struct {
	// Priority is the fixed fallback order, e.g. {"claude", "deepseek", "ollama"}.
	Priority []string

	// Providers maps a priority-list name to its credentials. Omitted or
	// empty entries start unconfigured.
	Providers map[string]ProviderConfig

	// TranslationProvider is the default/current provider for Translate.
	TranslationProvider string

	// DedupProvider is the default/current provider for JudgeSimilarity.
	DedupProvider string

	Enabled               bool
	TranslateDescriptions bool
}

// New builds an Engine, constructing a client for every provider with
// present credentials. All providers start unverified; call StartVerification
// to kick off the background probe.
func New(cfg Config) *Engine {
	e := &Engine{
		priority:              append([]string(nil), cfg.Priority...),
		providers:             make(map[string]*providerState, len(cfg.Priority)),
		translationProvider:   cfg.TranslationProvider,
		dedupProvider:         cfg.DedupProvider,
		enabled:               cfg.Enabled,
		translateDescriptions: cfg.TranslateDescriptions,
	}
	e.verifyFn = e.defaultVerify

	for _, name := range cfg.Priority {
		pc := cfg.Providers[name]
		e.providers[name] = buildProviderState(name, pc)
	}
	return e
}

func buildProviderState(name string, cfg ProviderConfig) *providerState {
	client, ok := buildClient(name, cfg)
	return &providerState{cfg: cfg, client: client, configured: ok}
}

// buildClient constructs the llm.Provider for a given priority-list name.
// Providers are values dispatched on name, not an inheritance hierarchy:
// hosted ones need {base_url, model, key}, local ones {base_url, model}.
func buildClient(name string, cfg ProviderConfig) (llm.Provider, bool) {
	switch name {
	case "claude":
		if cfg.APIKey == "" {
			return nil, false
		}
		return llm.NewClaudeProvider(cfg.APIKey, cfg.Model), true
	case "ollama", "local":
		if cfg.BaseURL == "" {
			return nil, false
		}
		return llm.NewLocalProvider(cfg.BaseURL, cfg.Model), true
	default:
		// Any other name (openai, deepseek, baidu, ...) is treated as an
		// OpenAI-chat-completions-compatible hosted provider.
		if cfg.APIKey == "" {
			return nil, false
		}
		return llm.NewOpenAIProvider(name, cfg.APIKey, cfg.BaseURL, cfg.Model), true
	}
}

// StartVerification launches one background goroutine per configured
// provider to probe it with the fixed sample payload. Call once after New,
// and again (for the changed providers only) after Update.
func (e *Engine) StartVerification(ctx context.Context, names ...string) {
	e.mu.RLock()
	targets := names
	if len(targets) == 0 {
		targets = append([]string(nil), e.priority...)
	}
	clients := make(map[string]llm.Provider, len(targets))
	for _, name := range targets {
		if st, ok := e.providers[name]; ok && st.configured {
			clients[name] = st.client
		}
	}
	e.mu.RUnlock()

	for name, client := range clients {
		go e.verifyOne(ctx, name, client)
	}
}

func (e *Engine) verifyOne(ctx context.Context, name string, client llm.Provider) {
	vctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	err := e.verifyFn(vctx, client)

	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.providers[name]
	if !ok || st.client != client {
		return // superseded by a later Update
	}
	if err != nil {
		st.verified = false
		st.lastError = truncate(err.Error(), maxErrorLen)
		slog.Warn("translation provider verification failed",
			slog.String("provider", name), slog.String("error", st.lastError))
		return
	}
	st.verified = true
	st.lastError = ""
	slog.Info("translation provider verified", slog.String("provider", name))
}

// VerifyNow synchronously re-verifies a single provider and returns the
// outcome, for the admin "test connectivity" operation. It updates the same
// verified/lastError state StartVerification would.
func (e *Engine) VerifyNow(ctx context.Context, name string) error {
	e.mu.RLock()
	st := e.providers[name]
	e.mu.RUnlock()
	if st == nil || !st.configured {
		return fmt.Errorf("provider %q is not configured", name)
	}

	err := e.verifyFn(ctx, st.client)

	e.mu.Lock()
	defer e.mu.Unlock()
	current := e.providers[name]
	if current == nil || current.client != st.client {
		return err // superseded by a concurrent Update
	}
	if err != nil {
		current.verified = false
		current.lastError = truncate(err.Error(), maxErrorLen)
		return err
	}
	current.verified = true
	current.lastError = ""
	return nil
}

func (e *Engine) defaultVerify(ctx context.Context, p llm.Provider) error {
	_, err := p.Translate(ctx, verifySampleTitle, "")
	return err
}

// truncate bounds s to n characters, counting runes so a multi-byte provider
// error message is never cut mid-character.
func truncate(s string, n int) string {
	if text.CountRunes(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// CredentialsUpdate is an admin-issued batch update to any subset of the
// engine's mutable state.
type CredentialsUpdate struct {
	TranslationProvider *string
	DedupProvider       *string

	// Providers maps name -> new credentials for providers that changed.
	// A provider not present here is left untouched.
	Providers map[string]ProviderConfig

	Enabled               *bool
	TranslateDescriptions *bool
}

// Update applies a CredentialsUpdate. Fields that changed clear their
// verified flag and are returned in the changed slice so the caller can
// schedule StartVerification for just those providers. If the requested
// current provider would become unavailable, Update falls back to the next
// available provider by priority; if none is available and a provider
// change was explicitly requested, it returns an error.
func (e *Engine) Update(update CredentialsUpdate) (changed []string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for name, cfg := range update.Providers {
		st := e.providers[name]
		if st == nil {
			st = &providerState{}
			e.providers[name] = st
			if !containsString(e.priority, name) {
				e.priority = append(e.priority, name)
			}
		}
		client, ok := buildClient(name, cfg)
		st.cfg = cfg
		st.client = client
		st.configured = ok
		st.verified = false
		st.lastError = ""
		changed = append(changed, name)
	}

	if update.Enabled != nil {
		e.enabled = *update.Enabled
	}
	if update.TranslateDescriptions != nil {
		e.translateDescriptions = *update.TranslateDescriptions
	}

	if update.TranslationProvider != nil {
		requested := *update.TranslationProvider
		if st := e.providers[requested]; st != nil && st.configured {
			e.translationProvider = requested
		} else if fallback, ok := e.firstAvailableLocked(); ok {
			e.translationProvider = fallback
		} else {
			return changed, fmt.Errorf("translation provider %q unavailable and no fallback configured", requested)
		}
	}

	if update.DedupProvider != nil {
		requested := *update.DedupProvider
		if st := e.providers[requested]; st != nil && st.configured {
			e.dedupProvider = requested
		} else if fallback, ok := e.firstAvailableLocked(); ok {
			e.dedupProvider = fallback
		} else {
			return changed, fmt.Errorf("ai_dedup provider %q unavailable and no fallback configured", requested)
		}
	}

	return changed, nil
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func (e *Engine) firstAvailableLocked() (string, bool) {
	for _, name := range e.priority {
		if st := e.providers[name]; st != nil && st.configured {
			return name, true
		}
	}
	return "", false
}

// fallbackOrder returns the provider order to try for one call, starting at
// current and then the rest of the priority list, restricted to providers
// that are configured and verified.
func (e *Engine) fallbackOrder(current string) []*providerState {
	seen := make(map[string]bool, len(e.priority))
	order := make([]*providerState, 0, len(e.priority))

	add := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		if st := e.providers[name]; st != nil && st.configured && st.verified {
			order = append(order, st)
		}
	}

	if current != "" {
		add(current)
	}
	for _, name := range e.priority {
		add(name)
	}
	return order
}

// Translate iterates providers starting at the current translation
// provider, then the rest of the priority list restricted to
// configured-and-verified providers. It returns ok=false without error when
// translation is globally disabled or no provider is available, so callers
// skip silently rather than surfacing an error.
func (e *Engine) Translate(ctx context.Context, title, description string) (result llm.TranslationResult, ok bool, err error) {
	e.mu.RLock()
	if !e.enabled {
		e.mu.RUnlock()
		return llm.TranslationResult{}, false, nil
	}
	order := e.fallbackOrder(e.translationProvider)
	e.mu.RUnlock()

	if len(order) == 0 {
		return llm.TranslationResult{}, false, nil
	}

	var lastErr error
	for _, st := range order {
		res, callErr := st.client.Translate(ctx, title, description)
		if callErr == nil {
			return res, true, nil
		}
		lastErr = callErr
	}
	return llm.TranslationResult{}, false, lastErr
}

// TranslateDescriptions reports whether descriptions should be translated
// alongside titles, per the global setting.
func (e *Engine) TranslateDescriptions() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.translateDescriptions
}

// Enabled reports whether translation is globally enabled.
func (e *Engine) Enabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.enabled
}

// JudgeSimilarity asks the current ai_dedup provider (falling back through
// the priority list, same as Translate) whether two article snippets
// describe the same event. ok=false, err=nil means no provider is available.
func (e *Engine) JudgeSimilarity(ctx context.Context, a, b llm.ArticleSnippet) (judgment llm.SimilarityJudgment, ok bool, err error) {
	e.mu.RLock()
	order := e.fallbackOrder(e.dedupProvider)
	e.mu.RUnlock()

	if len(order) == 0 {
		return llm.SimilarityJudgment{}, false, nil
	}

	var lastErr error
	for _, st := range order {
		res, callErr := st.client.JudgeSimilarity(ctx, a, b)
		if callErr == nil {
			return res, true, nil
		}
		lastErr = callErr
	}
	return llm.SimilarityJudgment{}, false, lastErr
}

// ProviderSnapshot is a read-only view of one provider's live state, used by
// the admin settings surface.
type ProviderSnapshot struct {
	Name       string
	Configured bool
	Verified   bool
	LastError  string
	BaseURL    string
	Model      string
	// MaskedAPIKey shows only the last 4 characters of the configured key.
	MaskedAPIKey string
}

// Snapshot returns the current state of every provider plus the engine's
// global flags and current selections, for the admin settings surface.
func (e *Engine) Snapshot() (providers []ProviderSnapshot, translationProvider, dedupProvider string, enabled, translateDescriptions bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	providers = make([]ProviderSnapshot, 0, len(e.priority))
	for _, name := range e.priority {
		st := e.providers[name]
		if st == nil {
			continue
		}
		providers = append(providers, ProviderSnapshot{
			Name:         name,
			Configured:   st.configured,
			Verified:     st.verified,
			LastError:    st.lastError,
			BaseURL:      st.cfg.BaseURL,
			Model:        st.cfg.Model,
			MaskedAPIKey: maskSecret(st.cfg.APIKey),
		})
	}
	return providers, e.translationProvider, e.dedupProvider, e.enabled, e.translateDescriptions
}

// maskSecret reveals only the last 4 characters of secret, replacing the
// rest with bullets, so credentials are never echoed back verbatim.
func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	const visible = 4
	if len(secret) <= visible {
		return "••••"
	}
	return "••••" + secret[len(secret)-visible:]
}
