// Package logging provides leveled logging and event tracing for mycelium.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - An EventLogger for structured JSONL lifecycle events (<data dir>/events.jsonl)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace is a custom slog level below Debug for per-tick logging.
// At this level every parameter adjustment and replacement pass is recorded.
const LevelTrace = slog.LevelDebug - 4

// EventsFile is the name of the JSONL event log inside the data directory.
const EventsFile = "events.jsonl"

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// EventLogger writes simulation lifecycle events to a JSONL file.
// It is safe for concurrent use. A nil EventLogger is safe to use;
// all methods are no-ops on nil receiver.
type EventLogger struct {
	mu    sync.Mutex
	file  *os.File
	trace bool
	now   func() time.Time
}

// NewEventLogger creates an event logger writing to dir/events.jsonl.
// At "info" level (the default), returns nil and no file is created.
// At "debug" or "trace" level, the file is opened for append.
// Returns nil if the file cannot be opened.
func NewEventLogger(dir string, level string) *EventLogger {
	lvl := ParseLevel(level)
	if lvl == slog.LevelInfo {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, EventsFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &EventLogger{file: f, trace: lvl <= LevelTrace, now: time.Now}
}

// Tracing reports whether per-tick events are recorded.
func (el *EventLogger) Tracing() bool {
	return el != nil && el.trace
}

// Log writes one event as a single JSONL line. The "event" and "time"
// fields are added automatically. The caller's map is not mutated.
func (el *EventLogger) Log(event string, fields map[string]any) {
	if el == nil || el.file == nil {
		return
	}

	entry := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		entry[k] = v
	}
	entry["event"] = event
	entry["time"] = el.now().UTC().Format(time.RFC3339Nano)

	el.mu.Lock()
	defer el.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = el.file.Write(data)
}

// Reseed records a population rebuild.
func (el *EventLogger) Reseed(seed uint64, agents int) {
	el.Log("reseed", map[string]any{"seed": seed, "agents": agents})
}

// Replace records a replacement pass. Passes that retired nothing are only
// recorded at trace level.
func (el *EventLogger) Replace(tick uint64, retired, spawned int) {
	if retired == 0 && !el.Tracing() {
		return
	}
	el.Log("replace", map[string]any{"tick": tick, "retired": retired, "spawned": spawned})
}

// Param records a parameter adjustment. Trace level only.
func (el *EventLogger) Param(name string, value float64) {
	if !el.Tracing() {
		return
	}
	el.Log("param", map[string]any{"name": name, "value": value})
}

// Capture records a capture session starting or stopping.
func (el *EventLogger) Capture(started bool, target string, frames int) {
	kind := "capture_stop"
	if started {
		kind = "capture_start"
	}
	el.Log(kind, map[string]any{"target": target, "frames": frames})
}

// Close closes the underlying file. Safe to call on nil receiver.
func (el *EventLogger) Close() {
	if el == nil || el.file == nil {
		return
	}

	el.mu.Lock()
	defer el.mu.Unlock()

	el.file.Close()
	el.file = nil
}
