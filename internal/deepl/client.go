// Package deepl is a client for the DeepL translation API: single-shot text
// translation and the multi-step asynchronous document-translation job
// (submit, poll, fetch). All network traffic goes through the transport
// executor, which handles retry, backoff and cancellation by identifier.
package deepl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"paper.fit/scanlate/internal/transport"
)

const (
	// ProBaseURL serves paid accounts.
	ProBaseURL = "https://api.deepl.com/v2"
	// FreeBaseURL serves free-tier accounts, selected by the ":fx" key suffix.
	FreeBaseURL = "https://api-free.deepl.com/v2"

	freeKeySuffix = ":fx"
)

// Request identifiers for cancellation by logical operation.
const (
	RequestIDTranslate = "deepl.translate"
	RequestIDDetect    = "deepl.detect"
)

// ErrEmptyText is returned before any network call when the input is blank.
var ErrEmptyText = errors.New("text is empty")

// Client talks to the DeepL API. The base URL is derived from the account
// tier encoded in the key suffix unless overridden.
type Client struct {
	apiKey   string
	baseURL  string
	executor *transport.Executor
	logger   zerolog.Logger
}

type Option func(*Client)

// WithBaseURL overrides tier-based endpoint selection.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(apiKey string, executor *transport.Executor, opts ...Option) *Client {
	c := &Client{
		apiKey:   strings.TrimSpace(apiKey),
		baseURL:  baseURLForKey(apiKey),
		executor: executor,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func baseURLForKey(apiKey string) string {
	if strings.HasSuffix(strings.TrimSpace(apiKey), freeKeySuffix) {
		return FreeBaseURL
	}
	return ProBaseURL
}

// BaseURL reports the endpoint this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Cancel aborts the in-flight request registered under id, if any.
func (c *Client) Cancel(id string) {
	if registry := c.executor.Registry(); registry != nil {
		registry.Cancel(id)
	}
}

// TranslateResult is one translated text with the source language the server
// detected.
type TranslateResult struct {
	Text       string
	SourceLang string
}

type translateResponse struct {
	Translations []struct {
		Text                   string `json:"text"`
		DetectedSourceLanguage string `json:"detected_source_language"`
	} `json:"translations"`
}

// Translate translates text into targetLang.
func (c *Client) Translate(ctx context.Context, text, targetLang string) (*TranslateResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	target := strings.ToUpper(strings.TrimSpace(targetLang))
	if target == "" {
		return nil, fmt.Errorf("target language is required")
	}

	form := url.Values{}
	form.Set("text", text)
	form.Set("target_lang", target)
	form.Set("preserve_formatting", "1")

	var parsed translateResponse
	err := c.executor.Execute(ctx, c.request(http.MethodPost, "/translate", []byte(form.Encode()), "application/x-www-form-urlencoded", RequestIDTranslate), &parsed, nil)
	if err != nil {
		return nil, err
	}

	if len(parsed.Translations) == 0 {
		return nil, &transport.Error{Kind: transport.KindInvalidResponse, Message: "translations missing"}
	}

	first := parsed.Translations[0]
	return &TranslateResult{
		Text:       first.Text,
		SourceLang: strings.ToLower(strings.TrimSpace(first.DetectedSourceLanguage)),
	}, nil
}

// DetectLanguage reports the source language the server detects for the
// sample. DeepL has no standalone detection endpoint; the detected source
// language of a translate call is the answer.
func (c *Client) DetectLanguage(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}

	form := url.Values{}
	form.Set("text", text)
	form.Set("target_lang", "EN")
	form.Set("preserve_formatting", "1")

	var parsed translateResponse
	err := c.executor.Execute(ctx, c.request(http.MethodPost, "/translate", []byte(form.Encode()), "application/x-www-form-urlencoded", RequestIDDetect), &parsed, nil)
	if err != nil {
		return "", err
	}

	if len(parsed.Translations) == 0 {
		return "", &transport.Error{Kind: transport.KindInvalidResponse, Message: "translations missing"}
	}

	code := strings.ToLower(strings.TrimSpace(parsed.Translations[0].DetectedSourceLanguage))
	if code == "" {
		return "", &transport.Error{Kind: transport.KindInvalidResponse, Message: "detected source language missing"}
	}
	return code, nil
}

func (c *Client) request(method, path string, body []byte, contentType, id string) transport.Request {
	return transport.Request{
		Method:      method,
		URL:         c.baseURL + path,
		Header:      c.authHeader(),
		Body:        body,
		ContentType: contentType,
		ID:          id,
	}
}

func (c *Client) authHeader() http.Header {
	header := http.Header{}
	header.Set("Authorization", "DeepL-Auth-Key "+c.apiKey)
	return header
}
