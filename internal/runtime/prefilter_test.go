package runtime

import (
	"slices"
	"testing"
)

func TestLiteralFilter(t *testing.T) {
	tests := []struct {
		pattern  string
		nilWant  bool
		prefix   string
		suffix   string
		required []string
	}{
		{pattern: "^error", prefix: "error"},
		{pattern: "failed$", suffix: "failed"},
		{pattern: "^error.*failed$", prefix: "error", suffix: "failed"},
		{pattern: "^/api/v1/", prefix: "/api/v1/"},
		{pattern: "^GET /api/.*", prefix: "GET /api/"},
		{pattern: ".*warning.*error.*", required: []string{"warning", "error"}},
		{pattern: `\d+.*test`, required: []string{"test"}},
		{pattern: `^www\.example\.com`, prefix: "www.example.com"},
		{pattern: `test\.log$`, suffix: "test.log"},
		{pattern: "^exact$", prefix: "exact", suffix: "exact"},
		{pattern: "colou?r", required: []string{"colo"}},
		{pattern: "abc*d", required: []string{"ab"}},
		{pattern: "ab+c", required: []string{"ab"}},
		{pattern: "^ab{2,3}c", prefix: "a"},
		{pattern: "key[[:space:]]*=[^]x]value", required: []string{"key", "value"}},
		{pattern: "x(foo|bar)yz", required: []string{"yz"}},
		{pattern: "foo|bar", nilWant: true},
		{pattern: "(?i)hello", nilWant: true},
		{pattern: "[0-9]+", nilWant: true},
		{pattern: "a.b", nilWant: true},
		{pattern: "(unclosed", nilWant: true},
		{pattern: "[unclosed", nilWant: true},
		{pattern: "", nilWant: true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			f := newLiteralFilter(tt.pattern)
			if tt.nilWant {
				if f != nil {
					t.Fatalf("got %+v, want no filter", f)
				}
				return
			}
			if f == nil {
				t.Fatal("got no filter")
			}
			if f.prefix != tt.prefix || f.suffix != tt.suffix || !slices.Equal(f.required, tt.required) {
				t.Errorf("got prefix=%q suffix=%q required=%q", f.prefix, f.suffix, f.required)
			}
		})
	}
}

// The filter may only reject subjects the regex would not match.
func TestLiteralFilterNeverRejectsMatches(t *testing.T) {
	patterns := []string{
		"^error.*failed$", "colou?r", "abc*d", "ab+c", "^ab{2,3}c", `a\.b*`,
		"x(foo|bar)yz", "key[ \t]*=", "héllo*", "^é+x", `\$[0-9]+\.`,
		"go(pher)?s", "a*?bc",
	}
	subjects := []string{
		"", "error: disk failed", "error", "color", "colour", "colr", "abd", "abcccd",
		"ad", "abc", "abbbc", "ac", "abbc", "abbbbc", "a.", "a.bbb", "xfooyz", "xbaryz",
		"key = 1", "key=", "héll", "héllooo", "éx", "ééx", "$12.50", "gos", "gophers",
		"bc", "aabc",
	}
	for _, pat := range patterns {
		f := newLiteralFilter(pat)
		if f == nil {
			continue
		}
		re, err := compile(pat)
		if err != nil {
			t.Fatalf("compile(%q): %v", pat, err)
		}
		for _, s := range subjects {
			if re.re.MatchString(s) && f.reject(s) {
				t.Errorf("pattern %q: filter %+v rejects matching %q", pat, f, s)
			}
		}
	}
}

func TestRegexUsesFilter(t *testing.T) {
	re, err := compile("^GET .*HTTP")
	if err != nil {
		t.Fatal(err)
	}
	if re.literals == nil {
		t.Fatal("no literal filter extracted")
	}
	if re.MatchString("POST /x HTTP/1.1") {
		t.Error("matched a subject without the prefix")
	}
	if !re.MatchString("GET /x HTTP/1.1") {
		t.Error("did not match")
	}
	if re.MatchString("PUT /x HTTP/1.1") {
		t.Error("matched PUT")
	}
}
