package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func writePrefs(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "prefs.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	p, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p != Default() {
		t.Fatalf("Load = %+v, want %+v", p, Default())
	}
}

func TestLoad_ReadsDefaultLocation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "repeater")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	writePrefs(t, dir, "theme = \"Slate\"\nplain_text = true\nlast_deck = \" d1 \"\n")

	p, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	want := Prefs{Theme: "Slate", PlainText: true, LastDeck: "d1"}
	if p != want {
		t.Fatalf("Load = %+v, want %+v", p, want)
	}
}

func TestSave_CreatesFileAndDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "prefs.toml")

	if err := Save(path, Prefs{Theme: "Kanagawa"}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.Theme != "Kanagawa" {
		t.Fatalf("Theme = %q, want %q", loaded.Theme, "Kanagawa")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestUpdate_KeepsOtherFields(t *testing.T) {
	path := writePrefs(t, t.TempDir(), "theme = \"Slate\"\nplain_text = true\n")

	got, err := Update(path, func(p *Prefs) { p.LastDeck = "d9" })
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	want := Prefs{Theme: "Slate", PlainText: true, LastDeck: "d9"}
	if got != want {
		t.Fatalf("Update = %+v, want %+v", got, want)
	}
	loaded, _ := Load(path)
	if loaded != want {
		t.Fatalf("Load after Update = %+v, want %+v", loaded, want)
	}
}

func TestLoad_FallsBackToDefault(t *testing.T) {
	tests := map[string]string{
		"empty theme":  "theme = \"\"\n",
		"invalid toml": "not valid toml {{{\n",
	}
	for name, body := range tests {
		p, err := Load(writePrefs(t, t.TempDir(), body))
		if err != nil {
			t.Fatalf("%s: Load returned error: %v", name, err)
		}
		if p.Theme != defaultTheme {
			t.Fatalf("%s: Theme = %q, want %q", name, p.Theme, defaultTheme)
		}
	}
}
