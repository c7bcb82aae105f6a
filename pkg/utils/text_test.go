package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
	if Truncate("日本語テキスト", 3) != "日本語..." {
		t.Errorf("got %s", Truncate("日本語テキスト", 3))
	}
}

func TestCollapseWhitespace(t *testing.T) {
	tests := map[string]string{
		"  hello   world  ": "hello world",
		"a\t\nb":            "a b",
		"":                  "",
		" \n\t ":            "",
	}
	for in, want := range tests {
		if got := CollapseWhitespace(in); got != want {
			t.Errorf("CollapseWhitespace(%q) = %q, want %q", in, got, want)
		}
	}
}
