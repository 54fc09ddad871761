package storage

import (
	"strings"
	"testing"
	"time"
)

func TestParsePublishedAtFormats(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Time
	}{
		{"2025-06-01T08:30:00Z", time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)},
		{"2025-06-01T10:30:00+02:00", time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)},
		{"2025-06-01T08:30:00", time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)},
		{"2025-06-01 08:30:00", time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)},
		{"2025-06-01", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, c := range cases {
		got, ok := parsePublishedAt(c.raw)
		if !ok {
			t.Fatalf("parsePublishedAt(%q) failed", c.raw)
		}
		if !got.Equal(c.want) {
			t.Fatalf("parsePublishedAt(%q) = %v, want %v", c.raw, got, c.want)
		}
	}
}

func TestParsePublishedAtRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "   ", "yesterday", "01/06/2025 08:30"} {
		if _, ok := parsePublishedAt(raw); ok {
			t.Fatalf("parsePublishedAt(%q) should fail", raw)
		}
	}
}

func TestArticleIDDeterministicAndDistinct(t *testing.T) {
	a := articleID("Bitcoin tops $100k", "Reuters")
	b := articleID("Bitcoin tops $100k", "Reuters")
	if a != b {
		t.Fatalf("articleID not deterministic: %q vs %q", a, b)
	}

	// 同标题不同来源必须是不同记录
	c := articleID("Bitcoin tops $100k", "Bloomberg")
	if a == c {
		t.Fatalf("articleID should differ across sources: %q", a)
	}

	// 标题/来源的边界不能混淆
	d := articleID("Bitcoin tops", "$100k Reuters")
	if a == d {
		t.Fatalf("articleID should separate title and source: %q", a)
	}
}

func TestTruncateRunesDB(t *testing.T) {
	if got := truncateRunesDB("  hello  ", 10); got != "hello" {
		t.Fatalf("truncateRunesDB should trim: %q", got)
	}
	if got := truncateRunesDB("abcdef", 3); got != "abc" {
		t.Fatalf("truncateRunesDB = %q, want %q", got, "abc")
	}
	// 多字节字符按 rune 截断
	if got := truncateRunesDB("你好世界", 2); got != "你好" {
		t.Fatalf("truncateRunesDB = %q, want %q", got, "你好")
	}
	if got := truncateRunesDB("anything", 0); got != "" {
		t.Fatalf("truncateRunesDB with limit 0 = %q, want empty", got)
	}
}

func TestToValidUTF8(t *testing.T) {
	if got := toValidUTF8("ok"); got != "ok" {
		t.Fatalf("toValidUTF8 changed valid input: %q", got)
	}
	bad := string([]byte{0xff, 0xfe, 'a'})
	got := toValidUTF8(bad)
	if !strings.ContainsRune(got, 0xFFFD) {
		t.Fatalf("toValidUTF8 should replace invalid bytes: %q", got)
	}
	if !strings.ContainsRune(got, 'a') {
		t.Fatalf("toValidUTF8 should keep valid bytes: %q", got)
	}
}
