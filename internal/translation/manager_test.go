package translation

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"testing"
)

type stubProvider struct {
	name      string
	translate func(req TranslateRequest) (*TranslateResponse, error)
	calls     int
}

func (p *stubProvider) Name() string {
	if p.name == "" {
		return "stub"
	}
	return p.name
}

func (p *stubProvider) SupportedLanguages() []string {
	return []string{"de", "en"}
}

func (p *stubProvider) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	p.calls++
	if p.translate != nil {
		return p.translate(req)
	}
	return &TranslateResponse{Text: "translated:" + req.Text, SourceLang: "en", LatencyMs: 12}, nil
}

type stubStore struct {
	rows    map[string]CachedTranslation
	upserts []CachedTranslation
}

func newStubStore() *stubStore {
	return &stubStore{rows: make(map[string]CachedTranslation)}
}

func storeKey(contentHash []byte, targetLang string) string {
	return fmt.Sprintf("%x|%s", contentHash, targetLang)
}

func (s *stubStore) Lookup(ctx context.Context, contentHash []byte, targetLang string) (*CachedTranslation, error) {
	row, ok := s.rows[storeKey(contentHash, targetLang)]
	if !ok {
		return nil, ErrCacheMiss
	}
	return &row, nil
}

func (s *stubStore) Upsert(ctx context.Context, row CachedTranslation) error {
	s.rows[storeKey(row.ContentHash, row.TargetLang)] = row
	s.upserts = append(s.upserts, row)
	return nil
}

func newTestManager(t *testing.T, store CacheStore, provider Provider) *Manager {
	t.Helper()
	registry := NewRegistry("stub")
	if err := registry.Register(provider); err != nil {
		t.Fatalf("register provider: %v", err)
	}
	return NewManager(store, registry)
}

func TestRun_TranslatesAndCaches(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	provider := &stubProvider{}
	manager := newTestManager(t, store, provider)

	stats, results, err := manager.Run(context.Background(), []Task{{ID: "p1", Text: "Hello"}}, RunOptions{TargetLang: "DE"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Translated != 1 || stats.Cached != 0 || stats.Total != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(results) != 1 || results[0].Text != "translated:Hello" || results[0].Cached {
		t.Fatalf("unexpected results: %+v", results)
	}

	if len(store.upserts) != 1 {
		t.Fatalf("expected one cached row, got %d", len(store.upserts))
	}
	row := store.upserts[0]
	wantHash := sha256.Sum256([]byte("Hello"))
	if !bytes.Equal(row.ContentHash, wantHash[:]) {
		t.Fatalf("cache row keyed by wrong hash")
	}
	if row.TargetLang != "de" {
		t.Fatalf("target language not normalized: %q", row.TargetLang)
	}
	if row.SourceLang != "en" || row.ProviderName != "stub" {
		t.Fatalf("unexpected cache row: %+v", row)
	}
}

func TestRun_ServesCacheHitWithoutProvider(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	provider := &stubProvider{}
	manager := newTestManager(t, store, provider)

	hash := sha256.Sum256([]byte("Hello"))
	store.rows[storeKey(hash[:], "de")] = CachedTranslation{
		ContentHash:    hash[:],
		SourceLang:     "en",
		TargetLang:     "de",
		TranslatedText: "Hallo",
	}

	stats, results, err := manager.Run(context.Background(), []Task{{ID: "p1", Text: "Hello"}}, RunOptions{TargetLang: "de"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if provider.calls != 0 {
		t.Fatalf("cache hit must not call the provider, got %d calls", provider.calls)
	}
	if stats.Cached != 1 || stats.Translated != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(results) != 1 || results[0].Text != "Hallo" || !results[0].Cached {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestRun_ForceBypassesCache(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	provider := &stubProvider{}
	manager := newTestManager(t, store, provider)

	hash := sha256.Sum256([]byte("Hello"))
	store.rows[storeKey(hash[:], "de")] = CachedTranslation{ContentHash: hash[:], TargetLang: "de", TranslatedText: "stale"}

	_, results, err := manager.Run(context.Background(), []Task{{ID: "p1", Text: "Hello"}}, RunOptions{TargetLang: "de", Force: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("force must call the provider, got %d calls", provider.calls)
	}
	if results[0].Text != "translated:Hello" {
		t.Fatalf("force must return the fresh translation, got %q", results[0].Text)
	}
}

func TestRun_DryRunSkipsUncached(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	provider := &stubProvider{}
	manager := newTestManager(t, store, provider)

	stats, results, err := manager.Run(context.Background(), []Task{{ID: "p1", Text: "Hello"}}, RunOptions{TargetLang: "de", DryRun: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if provider.calls != 0 {
		t.Fatalf("dry run must not call the provider, got %d calls", provider.calls)
	}
	if stats.Skipped != 1 || len(results) != 0 {
		t.Fatalf("unexpected stats %+v results %+v", stats, results)
	}
	if len(store.upserts) != 0 {
		t.Fatalf("dry run must not write the cache")
	}
}

func TestRun_SkipsBlankTasks(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{}
	manager := newTestManager(t, nil, provider)

	stats, results, err := manager.Run(context.Background(), []Task{
		{ID: "p1", Text: "  "},
		{ID: "p2", Text: "Hello"},
	}, RunOptions{TargetLang: "de"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Total != 2 || stats.Skipped != 1 || stats.Translated != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(results) != 1 || results[0].ID != "p2" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestRun_MissingTargetLanguage(t *testing.T) {
	t.Parallel()

	manager := newTestManager(t, nil, &stubProvider{})
	if _, _, err := manager.Run(context.Background(), []Task{{ID: "p1", Text: "Hello"}}, RunOptions{}); err == nil {
		t.Fatalf("expected error without target language")
	}
}

func TestRun_UnknownSourceLanguageFallsBackToUnd(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{translate: func(req TranslateRequest) (*TranslateResponse, error) {
		return &TranslateResponse{Text: "Hallo", SourceLang: ""}, nil
	}}
	manager := newTestManager(t, nil, provider)

	_, results, err := manager.Run(context.Background(), []Task{{ID: "p1", Text: "Hello"}}, RunOptions{TargetLang: "de"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if results[0].SourceLang != "und" {
		t.Fatalf("expected und source language, got %q", results[0].SourceLang)
	}
}

func TestRun_ProviderFailureStopsRun(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("upstream unavailable")
	provider := &stubProvider{translate: func(TranslateRequest) (*TranslateResponse, error) {
		return nil, wantErr
	}}
	manager := newTestManager(t, nil, provider)

	_, _, err := manager.Run(context.Background(), []Task{{ID: "p1", Text: "Hello"}}, RunOptions{TargetLang: "de"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestRegistry_ResolvesDefaultAndExplicit(t *testing.T) {
	t.Parallel()

	registry := NewRegistry("")
	if registry.DefaultProvider() != DefaultProviderName {
		t.Fatalf("unexpected default provider: %q", registry.DefaultProvider())
	}

	provider := &stubProvider{name: "deepl"}
	if err := registry.Register(provider); err != nil {
		t.Fatalf("register: %v", err)
	}

	if got, err := registry.Provider(""); err != nil || got != provider {
		t.Fatalf("empty name should resolve the default provider, got %v err %v", got, err)
	}
	if got, err := registry.Provider(" DeepL "); err != nil || got != provider {
		t.Fatalf("names should be normalized, got %v err %v", got, err)
	}
	if _, err := registry.Provider("missing"); err == nil {
		t.Fatalf("unknown provider should error")
	}
}
