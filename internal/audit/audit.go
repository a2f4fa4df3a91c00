// Package audit writes a JSON-lines record of every MCP tool invocation.
package audit

import (
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"
)

// ErrNilWriter is returned by Logger.Record when the logger was constructed
// with a nil writer.
var ErrNilWriter = errors.New("audit: writer is nil")

// Entry captures a single tool invocation.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Tool      string         `json:"tool"`
	Params    map[string]any `json:"params,omitempty"`
	Result    string         `json:"result"`
	Duration  time.Duration  `json:"duration_ns"`
}

// Logger writes Entry records as newline-delimited JSON to an io.Writer.
// A nil *Logger is valid and drops everything, so call sites need no nil
// checks. Logger is safe for concurrent use.
type Logger struct {
	mu sync.Mutex
	w  io.Writer
}

// New returns a Logger that writes to w. If w is nil the returned logger is
// also nil, which is a usable no-op logger.
func New(w io.Writer) *Logger {
	if w == nil {
		return nil
	}
	return &Logger{w: w}
}

// Record serialises entry as a single JSON line and writes it to the
// underlying writer.
func (l *Logger) Record(entry Entry) error {
	if l == nil || l.w == nil {
		return ErrNilWriter
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	l.mu.Lock()
	_, err = l.w.Write(data)
	l.mu.Unlock()

	return err
}

// RecordTool logs one tool invocation, deriving the duration from start.
// It silently does nothing on a nil logger and ignores write failures; an
// audit problem must never fail the tool call itself.
func (l *Logger) RecordTool(tool string, params map[string]any, result string, start time.Time) {
	if l == nil {
		return
	}
	_ = l.Record(Entry{
		Timestamp: start,
		Tool:      tool,
		Params:    params,
		Result:    result,
		Duration:  time.Since(start),
	})
}
