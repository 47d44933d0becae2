package translation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"paper.fit/scanlate/internal/deepl"
	"paper.fit/scanlate/internal/language"
)

// DeepLProvider translates text through the DeepL API client.
type DeepLProvider struct {
	client *deepl.Client
}

func NewDeepLProvider(client *deepl.Client) *DeepLProvider {
	return &DeepLProvider{client: client}
}

func (p *DeepLProvider) Name() string {
	return "deepl"
}

func (p *DeepLProvider) SupportedLanguages() []string {
	return language.SupportedCodes()
}

func (p *DeepLProvider) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("deepl provider is not initialized")
	}

	targetLang := language.NormalizeCode(req.TargetLang)
	if targetLang == "" {
		return nil, fmt.Errorf("target language is required")
	}

	started := time.Now()
	result, err := p.client.Translate(ctx, req.Text, targetLang)
	if err != nil {
		return nil, err
	}

	sourceLang := language.NormalizeCode(result.SourceLang)
	if sourceLang == "" {
		sourceLang = language.NormalizeCode(req.SourceLang)
	}

	return &TranslateResponse{
		Text:         strings.TrimSpace(result.Text),
		SourceLang:   sourceLang,
		TargetLang:   targetLang,
		ProviderName: p.Name(),
		LatencyMs:    time.Since(started).Milliseconds(),
	}, nil
}
