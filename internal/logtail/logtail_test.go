package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "repeater.log")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func jsonLine(level, msg string) string {
	return fmt.Sprintf(`{"level":%q,"ts":"2025-06-01T12:00:00.000Z","logger":"repeater.ui","msg":%q}`, level, msg)
}

func messages(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Message
	}
	return out
}

func TestTail(t *testing.T) {
	var lines []string
	for i := 1; i <= 10; i++ {
		lines = append(lines, jsonLine("info", fmt.Sprintf("line %d", i)))
	}
	path := writeLog(t, lines...)

	tests := []struct {
		name  string
		lines int
		want  []string
	}{
		{"all (0)", 0, []string{"line 1", "line 2", "line 3", "line 4", "line 5", "line 6", "line 7", "line 8", "line 9", "line 10"}},
		{"last 3", 3, []string{"line 8", "line 9", "line 10"}},
		{"exactly all", 10, []string{"line 1", "line 2", "line 3", "line 4", "line 5", "line 6", "line 7", "line 8", "line 9", "line 10"}},
		{"more than exists", 20, []string{"line 1", "line 2", "line 3", "line 4", "line 5", "line 6", "line 7", "line 8", "line 9", "line 10"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Tail(path, Options{Lines: tt.lines})
			if err != nil {
				t.Fatalf("Tail: %v", err)
			}
			if strings.Join(messages(got), ",") != strings.Join(tt.want, ",") {
				t.Fatalf("Tail = %v, want %v", messages(got), tt.want)
			}
		})
	}
}

func TestTail_FiltersBeforeCounting(t *testing.T) {
	path := writeLog(t,
		jsonLine("warn", "first warning"),
		jsonLine("info", "noise 1"),
		jsonLine("error", "an error"),
		jsonLine("info", "noise 2"),
		jsonLine("debug", "noise 3"),
	)
	got, err := Tail(path, Options{Lines: 2, MinLevel: zapcore.WarnLevel})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if want := "first warning,an error"; strings.Join(messages(got), ",") != want {
		t.Fatalf("Tail = %v, want %s", messages(got), want)
	}
}

func TestTail_MissingFile(t *testing.T) {
	got, err := Tail(filepath.Join(t.TempDir(), "absent.log"), Options{Lines: 5})
	if err != nil || got != nil {
		t.Fatalf("Tail missing = %v, %v; want nil, nil", got, err)
	}
}

func TestParseAndFormat(t *testing.T) {
	line := `{"level":"warn","ts":"2025-06-01T12:00:00.000Z","logger":"repeater.mutation","caller":"x.go:1","msg":"mutation failed","op":"submit review","error":"boom"}`
	entry, ok := Parse(line)
	if !ok {
		t.Fatal("Parse rejected a JSON entry")
	}
	if entry.Level != zapcore.WarnLevel || entry.Logger != "repeater.mutation" || entry.Message != "mutation failed" {
		t.Fatalf("Parse = %+v", entry)
	}
	if _, has := entry.Fields["caller"]; has {
		t.Fatal("caller should be dropped from fields")
	}

	formatted := entry.Format()
	for _, want := range []string{"WARN", "repeater.mutation: mutation failed", "error=boom op=submit review"} {
		if !strings.Contains(formatted, want) {
			t.Fatalf("Format() = %q, missing %q", formatted, want)
		}
	}

	raw, ok := Parse("panic: something")
	if ok || raw.Format() != "panic: something" {
		t.Fatalf("non-JSON line = %+v, %v", raw, ok)
	}
}
