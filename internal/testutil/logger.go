// Package testutil holds test helpers shared across packages: a capturing
// logger and a model-artifact writer.
package testutil

import (
	"strings"
	"sync"

	"github.com/turtacn/COF-H2-Predictor/internal/infrastructure/monitoring/logging"
)

// LogEntry is one captured log call.
type LogEntry struct {
	Level   string
	Logger  string
	Message string
	Fields  []logging.Field
}

// Field returns the value of the named field, with fields added through With
// searched after the call's own.
func (e LogEntry) Field(key string) (interface{}, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

type logSink struct {
	mu      sync.Mutex
	entries []LogEntry
}

// CaptureLogger records every entry. Children from With and Named write to
// the same sink.
type CaptureLogger struct {
	sink   *logSink
	name   string
	fields []logging.Field
}

// NewCaptureLogger creates an empty CaptureLogger.
func NewCaptureLogger() *CaptureLogger {
	return &CaptureLogger{sink: &logSink{}}
}

func (l *CaptureLogger) log(level, msg string, fields []logging.Field) {
	all := make([]logging.Field, 0, len(fields)+len(l.fields))
	all = append(all, fields...)
	all = append(all, l.fields...)
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.entries = append(l.sink.entries, LogEntry{Level: level, Logger: l.name, Message: msg, Fields: all})
}

func (l *CaptureLogger) Debug(msg string, fields ...logging.Field) { l.log("debug", msg, fields) }
func (l *CaptureLogger) Info(msg string, fields ...logging.Field)  { l.log("info", msg, fields) }
func (l *CaptureLogger) Warn(msg string, fields ...logging.Field)  { l.log("warn", msg, fields) }
func (l *CaptureLogger) Error(msg string, fields ...logging.Field) { l.log("error", msg, fields) }

// Fatal records the entry without exiting.
func (l *CaptureLogger) Fatal(msg string, fields ...logging.Field) { l.log("fatal", msg, fields) }

func (l *CaptureLogger) With(fields ...logging.Field) logging.Logger {
	child := *l
	child.fields = append(append([]logging.Field{}, l.fields...), fields...)
	return &child
}

func (l *CaptureLogger) Named(name string) logging.Logger {
	child := *l
	if l.name == "" {
		child.name = name
	} else {
		child.name = l.name + "." + name
	}
	return &child
}

func (l *CaptureLogger) Sync() error { return nil }

// Entries returns a copy of everything logged so far.
func (l *CaptureLogger) Entries() []LogEntry {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	out := make([]LogEntry, len(l.sink.entries))
	copy(out, l.sink.entries)
	return out
}

// Find returns the first entry at level whose message contains substr.
func (l *CaptureLogger) Find(level, substr string) (LogEntry, bool) {
	for _, e := range l.Entries() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return e, true
		}
	}
	return LogEntry{}, false
}

// Reset drops the captured entries.
func (l *CaptureLogger) Reset() {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.entries = nil
}
