package schemagen

import (
	"regexp"
	"strings"
	"testing"
)

var validKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9_.\-]{1,64}$`)

func TestSanitizeKnownExamples(t *testing.T) {
	cases := map[string]string{
		"$filter": "_filter",
		"$top":    "_top",
		"":        "param",
	}
	for in, want := range cases {
		if got := sanitize(in); got != want {
			t.Fatalf("sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{"$filter", "$top", "", "Hello World!", "...leading", "--dash", "a__b___c", strings.Repeat("x", 200), "already_fine"}
	for _, in := range inputs {
		once := sanitize(in)
		twice := sanitize(once)
		if once != twice {
			t.Fatalf("sanitize not idempotent for %q: first=%q second=%q", in, once, twice)
		}
		if !validKeyPattern.MatchString(once) {
			t.Fatalf("sanitize(%q) = %q does not match key pattern", in, once)
		}
	}
}

func TestSanitizeCollapsesUnderscoreRuns(t *testing.T) {
	got := sanitize("a   b")
	if got != "a_b" {
		t.Fatalf("expected collapsed underscore run, got %q", got)
	}
}

func TestSanitizeTruncatesTo64(t *testing.T) {
	got := sanitize(strings.Repeat("a", 200))
	if len(got) != 64 {
		t.Fatalf("expected truncation to 64 chars, got length %d", len(got))
	}
}

func TestSanitizeTrimsLeadingDotOrDash(t *testing.T) {
	if got := sanitize("-foo"); got != "foo" {
		t.Fatalf("expected leading dash trimmed, got %q", got)
	}
	if got := sanitize(".foo"); got != "foo" {
		t.Fatalf("expected leading dot trimmed, got %q", got)
	}
}
