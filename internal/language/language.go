package language

import (
	"sort"
	"strings"
)

// Option is one selectable language for API and CLI listings.
type Option struct {
	Code   string `json:"code"`
	Label  string `json:"label"`
	Native string `json:"native,omitempty"`
}

type label struct {
	english string
	native  string
}

var languageLabels = map[string]label{
	"ar": {english: "Arabic", native: "العربية"},
	"cs": {english: "Czech", native: "Čeština"},
	"da": {english: "Danish", native: "Dansk"},
	"de": {english: "German", native: "Deutsch"},
	"el": {english: "Greek", native: "Ελληνικά"},
	"en": {english: "English", native: "English"},
	"es": {english: "Spanish", native: "Español"},
	"fi": {english: "Finnish", native: "Suomi"},
	"fr": {english: "French", native: "Français"},
	"hu": {english: "Hungarian", native: "Magyar"},
	"id": {english: "Indonesian", native: "Bahasa Indonesia"},
	"it": {english: "Italian", native: "Italiano"},
	"ja": {english: "Japanese", native: "日本語"},
	"ko": {english: "Korean", native: "한국어"},
	"nl": {english: "Dutch", native: "Nederlands"},
	"pl": {english: "Polish", native: "Polski"},
	"pt": {english: "Portuguese", native: "Português"},
	"ro": {english: "Romanian", native: "Română"},
	"ru": {english: "Russian", native: "Русский"},
	"sv": {english: "Swedish", native: "Svenska"},
	"tr": {english: "Turkish", native: "Türkçe"},
	"uk": {english: "Ukrainian", native: "Українська"},
	"zh": {english: "Chinese", native: "中文"},
}

// NormalizeTag normalizes a language tag to lowercase and "-" separators.
// Returns an empty string when the value is blank or contains invalid characters.
func NormalizeTag(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}

	trimmed = strings.ReplaceAll(trimmed, "_", "-")
	parts := strings.Split(trimmed, "-")
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !isAlphaLower(part) {
			return ""
		}
		normalized = append(normalized, part)
	}

	if len(normalized) == 0 {
		return ""
	}
	return strings.Join(normalized, "-")
}

// NormalizeCode returns the primary language subtag (for example, "en" from "en-US").
func NormalizeCode(raw string) string {
	tag := NormalizeTag(raw)
	if tag == "" {
		return ""
	}
	if dash := strings.IndexByte(tag, '-'); dash >= 0 {
		return tag[:dash]
	}
	return tag
}

// DisplayName returns the English name for a language code, falling back to
// the uppercased code for languages outside the label table.
func DisplayName(code string) string {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return ""
	}
	if labels, ok := languageLabels[normalized]; ok {
		return labels.english
	}
	return strings.ToUpper(normalized)
}

// SupportedCodes lists the language codes in the label table, sorted.
func SupportedCodes() []string {
	codes := make([]string, 0, len(languageLabels))
	for code := range languageLabels {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Options lists selectable target languages for API and CLI output.
func Options() []Option {
	codes := SupportedCodes()
	options := make([]Option, 0, len(codes))
	for _, code := range codes {
		labels := languageLabels[code]
		options = append(options, Option{
			Code:   code,
			Label:  labels.english,
			Native: labels.native,
		})
	}
	return options
}

func isAlphaLower(value string) bool {
	for _, r := range value {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
