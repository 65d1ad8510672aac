package translate

import (
	"context"
	"errors"
	"testing"

	"newsaggregator/internal/infra/llm"
)

// fakeProvider is a hand-written llm.Provider stub: canned responses, no
// mocking framework, matching the teacher's test style.
type fakeProvider struct {
	name          string
	translateErr  error
	translateResp llm.TranslationResult
	judgeResp     llm.SimilarityJudgment
	judgeErr      error
	translateCalls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Translate(ctx context.Context, title, description string) (llm.TranslationResult, error) {
	f.translateCalls++
	if f.translateErr != nil {
		return llm.TranslationResult{}, f.translateErr
	}
	return f.translateResp, nil
}

func (f *fakeProvider) JudgeSimilarity(ctx context.Context, a, b llm.ArticleSnippet) (llm.SimilarityJudgment, error) {
	if f.judgeErr != nil {
		return llm.SimilarityJudgment{}, f.judgeErr
	}
	return f.judgeResp, nil
}

// noopVerify always succeeds, bypassing the network call New would otherwise
// schedule through defaultVerify.
func noopVerify(ctx context.Context, p llm.Provider) error { return nil }

func failVerify(ctx context.Context, p llm.Provider) error { return errors.New("boom") }

func newTestEngine(t *testing.T, cfg Config) (*Engine, map[string]*fakeProvider) {
	t.Helper()
	e := New(cfg)
	fakes := make(map[string]*fakeProvider, len(cfg.Providers))
	for name, st := range e.providers {
		f := &fakeProvider{name: name}
		st.client = f
		fakes[name] = f
	}
	return e, fakes
}

func TestEngine_TranslateSkipsUnverifiedProvider(t *testing.T) {
	e, fakes := newTestEngine(t, Config{
		Priority:            []string{"claude"},
		Providers:           map[string]ProviderConfig{"claude": {APIKey: "k"}},
		TranslationProvider: "claude",
		Enabled:             true,
	})
	fakes["claude"].translateResp = llm.TranslationResult{Title: "翻译"}

	_, ok, err := e.Translate(context.Background(), "Hello", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected translate to skip an unverified provider")
	}
}

func TestEngine_TranslateUsesVerifiedProvider(t *testing.T) {
	e, fakes := newTestEngine(t, Config{
		Priority:            []string{"claude"},
		Providers:           map[string]ProviderConfig{"claude": {APIKey: "k"}},
		TranslationProvider: "claude",
		Enabled:             true,
	})
	e.verifyFn = noopVerify
	verifySync(e, "claude")

	fakes["claude"].translateResp = llm.TranslationResult{Title: "翻译标题"}
	result, ok, err := e.Translate(context.Background(), "Hello", "")
	if err != nil || !ok {
		t.Fatalf("Translate() ok=%v err=%v, want ok=true", ok, err)
	}
	if result.Title != "翻译标题" {
		t.Errorf("Title = %q", result.Title)
	}
}

func TestEngine_TranslateDisabledGlobally(t *testing.T) {
	e, _ := newTestEngine(t, Config{
		Priority:            []string{"claude"},
		Providers:           map[string]ProviderConfig{"claude": {APIKey: "k"}},
		TranslationProvider: "claude",
		Enabled:             false,
	})
	e.verifyFn = noopVerify
	verifySync(e, "claude")

	_, ok, err := e.Translate(context.Background(), "Hello", "")
	if err != nil || ok {
		t.Fatalf("Translate() ok=%v err=%v, want ok=false err=nil", ok, err)
	}
}

func TestEngine_TranslateFallsBackToNextProvider(t *testing.T) {
	e, fakes := newTestEngine(t, Config{
		Priority: []string{"claude", "ollama"},
		Providers: map[string]ProviderConfig{
			"claude": {APIKey: "k"},
			"ollama": {BaseURL: "http://localhost:11434"},
		},
		TranslationProvider: "claude",
		Enabled:             true,
	})
	e.verifyFn = noopVerify
	verifySync(e, "claude")
	verifySync(e, "ollama")

	fakes["claude"].translateErr = errors.New("quota exceeded")
	fakes["ollama"].translateResp = llm.TranslationResult{Title: "本地翻译"}

	result, ok, err := e.Translate(context.Background(), "Hello", "")
	if err != nil || !ok {
		t.Fatalf("Translate() ok=%v err=%v, want ok=true", ok, err)
	}
	if result.Title != "本地翻译" {
		t.Errorf("Title = %q, want fallback provider's result", result.Title)
	}
}

func TestEngine_VerificationFailureBlocksUse(t *testing.T) {
	e, fakes := newTestEngine(t, Config{
		Priority:            []string{"claude"},
		Providers:           map[string]ProviderConfig{"claude": {APIKey: "k"}},
		TranslationProvider: "claude",
		Enabled:             true,
	})
	e.verifyFn = failVerify
	verifySync(e, "claude")

	fakes["claude"].translateResp = llm.TranslationResult{Title: "x"}
	_, ok, _ := e.Translate(context.Background(), "Hello", "")
	if ok {
		t.Fatal("a provider that failed verification must never be used")
	}

	providers, _, _, _, _ := e.Snapshot()
	if providers[0].LastError == "" {
		t.Error("expected a recorded verification error")
	}
}

func TestEngine_UpdateClearsVerifiedFlag(t *testing.T) {
	e, _ := newTestEngine(t, Config{
		Priority:            []string{"claude"},
		Providers:           map[string]ProviderConfig{"claude": {APIKey: "k"}},
		TranslationProvider: "claude",
		Enabled:             true,
	})
	e.verifyFn = noopVerify
	verifySync(e, "claude")

	changed, err := e.Update(CredentialsUpdate{
		Providers: map[string]ProviderConfig{"claude": {APIKey: "new-key"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(changed) != 1 || changed[0] != "claude" {
		t.Errorf("changed = %v, want [claude]", changed)
	}

	providers, _, _, _, _ := e.Snapshot()
	if providers[0].Verified {
		t.Error("expected verified flag cleared after credential update")
	}
}

func TestEngine_UpdateFallsBackWhenCurrentProviderUnavailable(t *testing.T) {
	e, _ := newTestEngine(t, Config{
		Priority: []string{"claude", "ollama"},
		Providers: map[string]ProviderConfig{
			"claude": {APIKey: "k"},
			"ollama": {BaseURL: "http://localhost:11434"},
		},
		TranslationProvider: "claude",
		Enabled:             true,
	})
	e.verifyFn = noopVerify
	verifySync(e, "ollama")

	requested := "claude"
	_, err := e.Update(CredentialsUpdate{
		TranslationProvider: &requested,
		Providers:           map[string]ProviderConfig{"claude": {APIKey: ""}}, // clears credentials
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, translationProvider, _, _, _ := e.Snapshot()
	if translationProvider != "ollama" {
		t.Errorf("translationProvider = %q, want fallback to ollama", translationProvider)
	}
}

func TestEngine_UpdateErrorsWhenNoFallbackAvailable(t *testing.T) {
	e, _ := newTestEngine(t, Config{
		Priority:            []string{"claude"},
		Providers:           map[string]ProviderConfig{"claude": {APIKey: "k"}},
		TranslationProvider: "claude",
		Enabled:             true,
	})

	requested := "claude"
	_, err := e.Update(CredentialsUpdate{
		TranslationProvider: &requested,
		Providers:           map[string]ProviderConfig{"claude": {APIKey: ""}},
	})
	if err == nil {
		t.Fatal("expected an error when no provider is available at all")
	}
}

func TestEngine_VerifyNowUpdatesSnapshot(t *testing.T) {
	e, _ := newTestEngine(t, Config{
		Priority:            []string{"claude"},
		Providers:           map[string]ProviderConfig{"claude": {APIKey: "k"}},
		TranslationProvider: "claude",
		Enabled:             true,
	})
	e.verifyFn = noopVerify

	if err := e.VerifyNow(context.Background(), "claude"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	providers, _, _, _, _ := e.Snapshot()
	if !providers[0].Verified {
		t.Error("expected VerifyNow to mark the provider verified")
	}
}

func TestEngine_MaskSecret(t *testing.T) {
	if got := maskSecret(""); got != "" {
		t.Errorf("maskSecret(\"\") = %q, want empty", got)
	}
	if got := maskSecret("sk-abcd1234"); got != "••••1234" {
		t.Errorf("maskSecret(...) = %q, want ••••1234", got)
	}
}

// verifySync runs verifyOne synchronously on the calling goroutine, so tests
// observe its outcome deterministically instead of polling for the
// background goroutine StartVerification would spawn.
func verifySync(e *Engine, name string) {
	e.mu.RLock()
	st := e.providers[name]
	e.mu.RUnlock()
	if st == nil || !st.configured {
		return
	}
	e.verifyOne(context.Background(), name, st.client)
}
