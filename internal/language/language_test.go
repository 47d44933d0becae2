package language

import "testing"

func TestNormalizeTag(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want string
	}{
		{name: "empty", raw: "", want: ""},
		{name: "whitespace only", raw: "  \t ", want: ""},
		{name: "simple code", raw: "en", want: "en"},
		{name: "uppercase", raw: "EN", want: "en"},
		{name: "region subtag", raw: "en-US", want: "en-us"},
		{name: "underscore separator", raw: "pt_BR", want: "pt-br"},
		{name: "surrounding whitespace", raw: "  de \n", want: "de"},
		{name: "empty subtag collapsed", raw: "en--us", want: "en-us"},
		{name: "digits rejected", raw: "e2", want: ""},
		{name: "punctuation rejected", raw: "en.us", want: ""},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizeTag(tc.raw); got != tc.want {
				t.Fatalf("NormalizeTag(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestNormalizeCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want string
	}{
		{raw: "en-US", want: "en"},
		{raw: "ZH", want: "zh"},
		{raw: "pt_BR", want: "pt"},
		{raw: "", want: ""},
		{raw: "123", want: ""},
	}

	for _, tc := range cases {
		tc := tc
		if got := NormalizeCode(tc.raw); got != tc.want {
			t.Fatalf("NormalizeCode(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	if got := DisplayName("de"); got != "German" {
		t.Fatalf("DisplayName(de) = %q", got)
	}
	if got := DisplayName("EN-us"); got != "English" {
		t.Fatalf("DisplayName(EN-us) = %q", got)
	}
	if got := DisplayName("xx"); got != "XX" {
		t.Fatalf("unlabelled code should fall back to uppercase, got %q", got)
	}
	if got := DisplayName(""); got != "" {
		t.Fatalf("DisplayName(empty) = %q", got)
	}
}

func TestOptions(t *testing.T) {
	t.Parallel()

	options := Options()
	if len(options) != len(SupportedCodes()) {
		t.Fatalf("options and supported codes disagree: %d vs %d", len(options), len(SupportedCodes()))
	}
	for i := 1; i < len(options); i++ {
		if options[i-1].Code >= options[i].Code {
			t.Fatalf("options not sorted at %d: %q >= %q", i, options[i-1].Code, options[i].Code)
		}
	}
	for _, option := range options {
		if option.Label == "" || option.Native == "" {
			t.Fatalf("option %q missing labels", option.Code)
		}
	}
}
