package repeater

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCardSides(t *testing.T) {
	tests := []struct {
		content string
		want    []string
	}{
		{"Bonjour---Hello", []string{"Bonjour", "Hello"}},
		{"single", []string{"single"}},
		{"a\n---\nb\n---\nc", []string{"a", "b", "c"}},
		{"---back", []string{"", "back"}},
	}
	for _, tt := range tests {
		got := Card{Content: tt.content}.Sides()
		if len(got) != len(tt.want) {
			t.Fatalf("Sides(%q) = %q, want %q", tt.content, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("Sides(%q)[%d] = %q, want %q", tt.content, i, got[i], tt.want[i])
			}
		}
	}
	if front := (Card{Content: "q---a"}).Front(); front != "q" {
		t.Fatalf("Front = %q, want q", front)
	}
}

func TestParseFeedback(t *testing.T) {
	for _, in := range []string{"ok", " OK ", "forgot", "skipped"} {
		if _, err := ParseFeedback(in); err != nil {
			t.Fatalf("ParseFeedback(%q) returned error: %v", in, err)
		}
	}
	if _, err := ParseFeedback("maybe"); err == nil {
		t.Fatalf("ParseFeedback(maybe) should fail")
	}
	if Feedback("nope").Valid() {
		t.Fatalf("Valid should be false for unknown feedback")
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"3f2504e0-4f89-11d3-9a0c-0305e82c3301", "3f2504e0-4f89-11d3-9a0c-0305e82c3301", false},
		{" 3F2504E0-4F89-11D3-9A0C-0305E82C3301 ", "3f2504e0-4f89-11d3-9a0c-0305e82c3301", false},
		{"c1", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseID("card", tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRateAcceptsNumberAndString(t *testing.T) {
	var payload struct {
		A Rate `json:"a"`
		B Rate `json:"b"`
		C Rate `json:"c"`
		D Rate `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"a":0.25,"b":"0.5","c":null,"d":""}`), &payload); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if payload.A != 0.25 || payload.B != 0.5 || payload.C != 0 || payload.D != 0 {
		t.Fatalf("rates = %+v", payload)
	}
	if got := payload.B.Percent(); got != 50 {
		t.Fatalf("Percent = %v, want 50", got)
	}
	if err := json.Unmarshal([]byte(`{"a":"high"}`), &payload); err == nil {
		t.Fatalf("Unmarshal should reject non-numeric rate")
	}
}

func TestParseTimeLayouts(t *testing.T) {
	if parseTime("2026-10-17T10:11:12Z").IsZero() {
		t.Fatalf("parseTime should parse RFC3339")
	}
	got := parseTime("2026-10-17T10:11:12.123456")
	if got.IsZero() || got.Location() != time.UTC || got.Hour() != 10 {
		t.Fatalf("parseTime naive = %v, want 10:11 UTC", got)
	}
	if parseTime("2026-10-17").Day() != 17 {
		t.Fatalf("parseTime should parse date-only values")
	}
	if !parseTime("not a time").IsZero() || !parseTime("").IsZero() {
		t.Fatalf("parseTime should return zero for invalid input")
	}
}

func TestUpdateEmpty(t *testing.T) {
	if !(CardUpdate{}).Empty() || !(DeckUpdate{}).Empty() {
		t.Fatalf("zero updates should be empty")
	}
	content := "x"
	if (CardUpdate{Content: &content}).Empty() {
		t.Fatalf("CardUpdate with content should not be empty")
	}
	paused := true
	if (DeckUpdate{IsPaused: &paused}).Empty() {
		t.Fatalf("DeckUpdate with is_paused should not be empty")
	}
}

func TestSaveExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")

	path, err := SaveExport(dir, Export{Filename: "french.json", Data: []byte(`{}`)})
	if err != nil {
		t.Fatalf("SaveExport returned error: %v", err)
	}
	if path != filepath.Join(dir, "french.json") {
		t.Fatalf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != `{}` {
		t.Fatalf("ReadFile = %q, %v", data, err)
	}

	if _, err := SaveExport(dir, Export{Filename: ""}); err == nil {
		t.Fatalf("SaveExport with empty filename should fail")
	}
}
