package manifest

import (
	"strings"
	"testing"
)

func validManifest() string {
	return `{
		"manifest_version": "v1",
		"target_lang": "de",
		"items": [
			{"id": "p1", "text": "Hello"},
			{"id": "p2", "text": "Goodbye"}
		]
	}`
}

func TestParse(t *testing.T) {
	t.Parallel()

	m, err := Parse([]byte(validManifest()))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.TargetLang != "de" {
		t.Fatalf("unexpected target language: %q", m.TargetLang)
	}
	if len(m.Items) != 2 || m.Items[0].ID != "p1" || m.Items[1].Text != "Goodbye" {
		t.Fatalf("unexpected items: %+v", m.Items)
	}
	if m.Provider != "" {
		t.Fatalf("unexpected provider: %q", m.Provider)
	}
}

func TestParse_OptionalProvider(t *testing.T) {
	t.Parallel()

	raw := `{
		"manifest_version": "v1",
		"target_lang": "fr",
		"provider": "deepl",
		"items": [{"id": "p1", "text": "Hello"}]
	}`
	m, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.Provider != "deepl" {
		t.Fatalf("unexpected provider: %q", m.Provider)
	}
}

func TestParse_Rejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
	}{
		{name: "empty input", raw: ""},
		{name: "not json", raw: "target_lang: de"},
		{name: "trailing content", raw: validManifest() + `{"extra": true}`},
		{name: "wrong version", raw: `{"manifest_version":"v2","target_lang":"de","items":[{"id":"p1","text":"x"}]}`},
		{name: "missing items", raw: `{"manifest_version":"v1","target_lang":"de"}`},
		{name: "empty items", raw: `{"manifest_version":"v1","target_lang":"de","items":[]}`},
		{name: "unknown field", raw: `{"manifest_version":"v1","target_lang":"de","extra":1,"items":[{"id":"p1","text":"x"}]}`},
		{name: "invalid target language", raw: `{"manifest_version":"v1","target_lang":"d3","items":[{"id":"p1","text":"x"}]}`},
		{name: "blank item id", raw: `{"manifest_version":"v1","target_lang":"de","items":[{"id":"  ","text":"x"}]}`},
		{name: "duplicate item id", raw: `{"manifest_version":"v1","target_lang":"de","items":[{"id":"p1","text":"x"},{"id":"p1","text":"y"}]}`},
		{name: "blank item text", raw: `{"manifest_version":"v1","target_lang":"de","items":[{"id":"p1","text":" "}]}`},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Parse([]byte(tc.raw)); err == nil {
				t.Fatalf("expected rejection")
			}
		})
	}
}

func TestParse_DuplicateIDErrorNamesTheID(t *testing.T) {
	t.Parallel()

	raw := `{"manifest_version":"v1","target_lang":"de","items":[{"id":"p1","text":"x"},{"id":"p1","text":"y"}]}`
	_, err := Parse([]byte(raw))
	if err == nil || !strings.Contains(err.Error(), "p1") {
		t.Fatalf("error should name the duplicated id, got %v", err)
	}
}
