package http

import (
	"testing"
	"time"
)

func TestParseTimeFormats(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2025-03-01T12:00:00Z", time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
		{"2025-03-01T12:00:00.250Z", time.Date(2025, 3, 1, 12, 0, 0, 250_000_000, time.UTC)},
		{"1740830400", time.Unix(1740830400, 0).UTC()},
	}
	for _, tc := range cases {
		got, ok := ParseTime(tc.in)
		if !ok {
			t.Fatalf("ParseTime(%q) not ok", tc.in)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("ParseTime(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseTimeRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "yesterday", "-5", "0"} {
		if _, ok := ParseTime(in); ok {
			t.Fatalf("ParseTime(%q) should not parse", in)
		}
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if got := ParseTimeDefault("", def); !got.Equal(def) {
		t.Fatalf("empty input must yield default, got %v", got)
	}
	if got := ParseTimeDefault("2025-03-02T00:00:00Z", def); got.Equal(def) {
		t.Fatalf("valid input must not yield default")
	}
}
