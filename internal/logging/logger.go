// Package logging builds the slog loggers used by the drivers and an
// optional JSONL sink for per-tick population dumps.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LevelTrace sits below Debug. At this level the runner logs every genome.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps a level name to a slog.Level. Unknown names give info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled logger writing to w. format is "text" or
// "json"; anything else falls back to text.
func NewLogger(level, format string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if l, ok := a.Value.Any().(slog.Level); ok && l == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 4}))
}

// PopulationRecord is one line of a population dump.
type PopulationRecord struct {
	Experiment string   `json:"experiment"`
	Seed       int64    `json:"seed"`
	Tick       int      `json:"tick"`
	Size       int      `json:"size"`
	Genomes    []string `json:"genomes,omitempty"`
}

// PopulationLog appends PopulationRecords to a JSONL file. A nil
// PopulationLog is valid and discards everything.
type PopulationLog struct {
	mu sync.Mutex
	w  io.WriteCloser
}

// OpenPopulationLog opens path for append, creating parent directories.
func OpenPopulationLog(path string) (*PopulationLog, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("logging: create %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open population log: %w", err)
	}
	return &PopulationLog{w: f}, nil
}

// NewPopulationLog wraps an existing writer.
func NewPopulationLog(w io.WriteCloser) *PopulationLog {
	return &PopulationLog{w: w}
}

// Write appends one record.
func (p *PopulationLog) Write(rec PopulationRecord) error {
	if p == nil {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("logging: encode record: %w", err)
	}
	data = append(data, '\n')

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.w == nil {
		return nil
	}
	if _, err := p.w.Write(data); err != nil {
		return fmt.Errorf("logging: write record: %w", err)
	}
	return nil
}

// Close closes the underlying writer. Safe on a nil receiver.
func (p *PopulationLog) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.w == nil {
		return nil
	}
	err := p.w.Close()
	p.w = nil
	return err
}
