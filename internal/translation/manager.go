package translation

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"paper.fit/scanlate/internal/language"
)

// ErrCacheMiss is returned by a CacheStore lookup with no matching row.
var ErrCacheMiss = errors.New("translation not cached")

// RunOptions controls translation execution.
type RunOptions struct {
	TargetLang string
	Provider   string
	Force      bool
	DryRun     bool
}

// RunStats reports translation execution counters.
type RunStats struct {
	Total      int `json:"total"`
	Translated int `json:"translated"`
	Cached     int `json:"cached"`
	Skipped    int `json:"skipped"`
}

// Task is one text to translate, identified for reporting.
type Task struct {
	ID   string
	Text string
}

// TaskResult is the outcome of one translated task.
type TaskResult struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	Cached     bool   `json:"cached"`
}

// CachedTranslation is one persisted translation row.
type CachedTranslation struct {
	ContentHash    []byte
	SourceLang     string
	TargetLang     string
	OriginalText   string
	TranslatedText string
	ProviderName   string
	LatencyMS      int
}

// CacheStore persists translations keyed by content hash and target language.
type CacheStore interface {
	Lookup(ctx context.Context, contentHash []byte, targetLang string) (*CachedTranslation, error)
	Upsert(ctx context.Context, row CachedTranslation) error
}

// Manager coordinates provider calls and persistent translation caching.
// A nil store disables caching.
type Manager struct {
	store    CacheStore
	registry *Registry
}

func NewManager(store CacheStore, registry *Registry) *Manager {
	return &Manager{store: store, registry: registry}
}

func (m *Manager) DefaultProvider() string {
	if m == nil || m.registry == nil {
		return ""
	}
	return m.registry.DefaultProvider()
}

// TranslateText runs a single task and returns its result.
func (m *Manager) TranslateText(ctx context.Context, text string, opts RunOptions) (*TaskResult, error) {
	_, results, err := m.Run(ctx, []Task{{ID: "text", Text: text}}, opts)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("translation produced no result")
	}
	return &results[0], nil
}

// Run executes the tasks in order, consulting the cache first unless forced.
func (m *Manager) Run(ctx context.Context, tasks []Task, opts RunOptions) (RunStats, []TaskResult, error) {
	if m == nil {
		return RunStats{}, nil, fmt.Errorf("translation manager is not initialized")
	}

	targetLang := language.NormalizeCode(opts.TargetLang)
	if targetLang == "" {
		return RunStats{}, nil, fmt.Errorf("target language is required")
	}

	provider, err := m.resolveProvider(opts.Provider)
	if err != nil {
		return RunStats{}, nil, err
	}
	providerName := provider.Name()

	stats := RunStats{}
	results := make([]TaskResult, 0, len(tasks))
	for _, task := range tasks {
		stats.Total++

		if strings.TrimSpace(task.Text) == "" {
			stats.Skipped++
			continue
		}

		hash := contentHash(task.Text)
		if m.store != nil && !opts.Force {
			cached, err := m.store.Lookup(ctx, hash, targetLang)
			if err != nil && !errors.Is(err, ErrCacheMiss) {
				return stats, results, fmt.Errorf("lookup cached translation for task %s: %w", task.ID, err)
			}
			if cached != nil {
				stats.Cached++
				results = append(results, TaskResult{
					ID:         task.ID,
					Text:       cached.TranslatedText,
					SourceLang: cached.SourceLang,
					Cached:     true,
				})
				continue
			}
		}

		if opts.DryRun {
			stats.Skipped++
			continue
		}

		resp, err := provider.Translate(ctx, TranslateRequest{
			Text:       task.Text,
			TargetLang: targetLang,
		})
		if err != nil {
			return stats, results, fmt.Errorf("translate task %s: %w", task.ID, err)
		}

		translatedText := strings.TrimSpace(resp.Text)
		if translatedText == "" {
			return stats, results, fmt.Errorf("translate task %s: empty translation", task.ID)
		}

		sourceLang := language.NormalizeCode(resp.SourceLang)
		if sourceLang == "" {
			sourceLang = "und"
		}

		if m.store != nil {
			latencyMS := int(resp.LatencyMs)
			if latencyMS < 0 {
				latencyMS = 0
			}
			if err := m.store.Upsert(ctx, CachedTranslation{
				ContentHash:    hash,
				SourceLang:     sourceLang,
				TargetLang:     targetLang,
				OriginalText:   task.Text,
				TranslatedText: translatedText,
				ProviderName:   providerName,
				LatencyMS:      latencyMS,
			}); err != nil {
				return stats, results, fmt.Errorf("cache translation for task %s: %w", task.ID, err)
			}
		}

		stats.Translated++
		results = append(results, TaskResult{
			ID:         task.ID,
			Text:       translatedText,
			SourceLang: sourceLang,
		})
	}

	return stats, results, nil
}

func (m *Manager) resolveProvider(requested string) (Provider, error) {
	if m == nil || m.registry == nil {
		return nil, fmt.Errorf("translation provider registry is not initialized")
	}
	return m.registry.Provider(requested)
}

func contentHash(text string) []byte {
	sum := sha256.Sum256([]byte(text))
	return sum[:]
}
