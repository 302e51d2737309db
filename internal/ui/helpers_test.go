package ui

import (
	"regexp"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var sgr = regexp.MustCompile("\x1b\\[[0-9;]*m")

func TestChrome(t *testing.T) {
	c := newChrome(GetTheme(ThemeNames()[0]))
	plain := lipgloss.NewStyle()
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"empty", c.text("", plain), ""},
		{"words", c.text("Due  soon", plain), "Due  soon"},
		{"pair", c.pair("Due:", plain, "4", plain), "Due: 4"},
		{"binding", c.binding("?", "More", plain), "?:More"},
		{"join", c.join([]string{"a", "b"}, 2), "a  b"},
	}
	for _, tt := range tests {
		if got := sgr.ReplaceAllString(tt.got, ""); got != tt.want {
			t.Fatalf("%s = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"  hello  ", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"abcd", 2, "ab"},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.limit); got != tt.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
		}
	}
}

func TestTruncateMiddle(t *testing.T) {
	if got := truncateMiddle("  ", 10); got != "" {
		t.Fatalf("truncateMiddle blank = %q, want empty", got)
	}
	if got := truncateMiddle("abcd", 2); got != "ab" {
		t.Fatalf("truncateMiddle limit<=3 = %q, want ab", got)
	}
	got := truncateMiddle("/home/user/exports/french.json", 12)
	if len([]rune(got)) != 12 {
		t.Fatalf("truncateMiddle = %q (%d runes), want 12", got, len([]rune(got)))
	}
}

func TestRelativeDay(t *testing.T) {
	now := time.Date(2026, 10, 17, 15, 0, 0, 0, time.UTC)
	tests := []struct {
		t    time.Time
		want string
	}{
		{time.Time{}, "-"},
		{now.Add(-2 * time.Hour), "today"},
		{now.AddDate(0, 0, 1), "tomorrow"},
		{now.AddDate(0, 0, -1), "yesterday"},
		{now.AddDate(0, 0, 5), "in 5d"},
		{now.AddDate(0, 0, -3), "3d ago"},
	}
	for _, tt := range tests {
		if got := relativeDay(tt.t, now); got != tt.want {
			t.Fatalf("relativeDay(%v) = %q, want %q", tt.t, got, tt.want)
		}
	}
}

func TestFirstLineAndPlural(t *testing.T) {
	if got := firstLine("\n  # Bonjour \nHello"); got != "# Bonjour" {
		t.Fatalf("firstLine = %q", got)
	}
	if plural(1, "card") != "1 card" || plural(2, "card") != "2 cards" {
		t.Fatalf("plural mismatch")
	}
}
