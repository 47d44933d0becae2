// Package langdetect produces a best-effort language code and display name
// for a text sample, preferring either the fast local classifier or the
// remote API and falling back to the other.
package langdetect

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"paper.fit/scanlate/internal/language"
)

// Method names the preferred classifier.
type Method string

const (
	MethodLocal Method = "local"
	MethodAPI   Method = "api"
)

// ParseMethod normalizes a method name; empty defaults to local.
func ParseMethod(raw string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(MethodLocal):
		return MethodLocal, nil
	case string(MethodAPI):
		return MethodAPI, nil
	default:
		return "", fmt.Errorf("unknown detection method %q", raw)
	}
}

var (
	// ErrEmptyText is returned before any classifier runs.
	ErrEmptyText = errors.New("text is empty")
	// ErrNoViableMethod means every available classifier failed or none was
	// configured for the requested preference.
	ErrNoViableMethod = errors.New("no viable detection method")
)

// Detection is the classification result.
type Detection struct {
	Code       string  `json:"code"`
	Confidence float64 `json:"confidence"`
	Name       string  `json:"name"`
}

// RemoteDetector classifies text through the translation API.
type RemoteDetector interface {
	DetectLanguage(ctx context.Context, text string) (string, error)
}

// Service chooses between the local classifier and the remote one. A nil
// remote means no API key was configured and only local detection is viable.
type Service struct {
	remote RemoteDetector
	logger zerolog.Logger
}

func NewService(remote RemoteDetector, logger zerolog.Logger) *Service {
	return &Service{remote: remote, logger: logger}
}

// Detect classifies text using the preferred method first. Empty text fails
// immediately with ErrEmptyText and makes no network call.
func (s *Service) Detect(ctx context.Context, text string, preferred Method) (*Detection, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	if preferred == MethodAPI {
		return s.detectPreferAPI(ctx, text)
	}
	return s.detectPreferLocal(ctx, text)
}

func (s *Service) detectPreferLocal(ctx context.Context, text string) (*Detection, error) {
	if code, confidence, ok := DetectLocal(text); ok {
		return newDetection(code, confidence), nil
	}

	if s.remote == nil {
		return nil, ErrNoViableMethod
	}

	s.logger.Debug().Msg("local detection inconclusive, falling back to API")
	code, err := s.remote.DetectLanguage(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: local detection inconclusive, API detection failed: %v", ErrNoViableMethod, err)
	}
	return newDetection(code, 1), nil
}

func (s *Service) detectPreferAPI(ctx context.Context, text string) (*Detection, error) {
	var remoteErr error
	if s.remote != nil {
		code, err := s.remote.DetectLanguage(ctx, text)
		if err == nil {
			return newDetection(code, 1), nil
		}
		remoteErr = err
		s.logger.Warn().Err(err).Msg("API detection failed, falling back to local")
	}

	if code, confidence, ok := DetectLocal(text); ok {
		return newDetection(code, confidence), nil
	}

	if remoteErr != nil {
		return nil, fmt.Errorf("%w: API detection failed: %v", ErrNoViableMethod, remoteErr)
	}
	return nil, ErrNoViableMethod
}

func newDetection(code string, confidence float64) *Detection {
	normalized := language.NormalizeCode(code)
	if normalized == "" {
		normalized = strings.ToLower(strings.TrimSpace(code))
	}
	return &Detection{
		Code:       normalized,
		Confidence: confidence,
		Name:       language.DisplayName(normalized),
	}
}
