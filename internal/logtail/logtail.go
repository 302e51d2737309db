package logtail

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// Options select which entries Tail returns.
type Options struct {
	// Lines is the maximum number of entries; zero or less returns all.
	Lines int
	// MinLevel drops entries below this level. Lines that are not JSON
	// entries are always kept.
	MinLevel zapcore.Level
}

// Entry is one decoded line of the JSON log.
type Entry struct {
	Time    time.Time
	Level   zapcore.Level
	Logger  string
	Message string
	Fields  map[string]any
	Raw     string
}

// Tail returns the last entries of the log at path in file order. A missing
// file yields no entries.
func Tail(path string, opts Options) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	var (
		ring  []Entry
		count int
		next  int
	)
	if opts.Lines > 0 {
		ring = make([]Entry, opts.Lines)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		entry, ok := Parse(line)
		if ok && entry.Level < opts.MinLevel {
			continue
		}
		if ring == nil {
			count++
			ring = append(ring, entry)
			continue
		}
		ring[next] = entry
		next = (next + 1) % len(ring)
		count++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	if opts.Lines <= 0 || count < len(ring) {
		return ring[:min(count, len(ring))], nil
	}
	out := make([]Entry, len(ring))
	for i := range out {
		out[i] = ring[(next+i)%len(ring)]
	}
	return out, nil
}

// Parse decodes a line written by the JSON encoder. Lines that do not
// decode are returned as Raw with ok false.
func Parse(line string) (Entry, bool) {
	entry := Entry{Raw: line, Level: zapcore.InfoLevel}
	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return entry, false
	}
	if ts, ok := fields["ts"].(string); ok {
		entry.Time, _ = time.Parse("2006-01-02T15:04:05.000Z0700", ts)
	}
	if lvl, ok := fields["level"].(string); ok {
		if parsed, err := zapcore.ParseLevel(lvl); err == nil {
			entry.Level = parsed
		}
	}
	entry.Logger, _ = fields["logger"].(string)
	entry.Message, _ = fields["msg"].(string)
	for _, k := range []string{"ts", "level", "logger", "msg", "caller", "stacktrace"} {
		delete(fields, k)
	}
	entry.Fields = fields
	return entry, true
}

// Format renders an entry as a single human-readable line:
// time, level, logger, message, then key=value fields sorted by key.
func (e Entry) Format() string {
	if e.Message == "" && e.Fields == nil {
		return e.Raw
	}
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Local().Format("15:04:05"))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s ", e.Level.CapitalString())
	if e.Logger != "" {
		b.WriteString(e.Logger)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
	}
	return b.String()
}
