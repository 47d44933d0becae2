package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

// Samples with fewer letters than this are too short for the statistical
// models to say anything useful.
const minSampleLetters = 6

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// DetectLocal classifies text with the on-process lingua models and returns
// an ISO 639-1 code with a confidence in [0,1]. ok is false when the sample
// is too short or no language reaches a usable confidence.
func DetectLocal(text string) (code string, confidence float64, ok bool) {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return "", 0, false
	}

	letterCount := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letterCount++
		}
	}
	if letterCount < minSampleLetters {
		return "", 0, false
	}

	language, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return "", 0, false
	}

	code = strings.ToLower(language.IsoCode639_1().String())
	if len(code) != 2 {
		return "", 0, false
	}

	confidence = 1
	for _, value := range getDetector().ComputeLanguageConfidenceValues(sample) {
		if value.Language() == language {
			confidence = value.Value()
			break
		}
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return code, confidence, true
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithPreloadedLanguageModels().
			Build()
	})
	return detector
}
