package logger

import (
	"sync"

	"github.com/rs/zerolog"
)

// TestLogger is a Logger implementation that records entries in memory so
// tests can assert on what was logged.
type TestLogger struct {
	mu      *sync.Mutex
	entries *[]TestEntry
	fields  map[string]interface{}
}

// TestEntry is one recorded log call.
type TestEntry struct {
	Level   string
	Message string
	Fields  map[string]interface{}
}

// NewTestLogger creates a logger that records entries instead of writing them.
func NewTestLogger() *TestLogger {
	return &TestLogger{
		mu:      &sync.Mutex{},
		entries: &[]TestEntry{},
		fields:  make(map[string]interface{}),
	}
}

// Entries returns a copy of all recorded entries, including those logged
// through derived loggers.
func (t *TestLogger) Entries() []TestEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TestEntry, len(*t.entries))
	copy(out, *t.entries)
	return out
}

// HasMessage reports whether any entry carries the given message.
func (t *TestLogger) HasMessage(msg string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range *t.entries {
		if e.Message == msg {
			return true
		}
	}
	return false
}

func (t *TestLogger) record(level, msg string, extra map[string]interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fields := make(map[string]interface{}, len(t.fields)+len(extra))
	for k, v := range t.fields {
		fields[k] = v
	}
	for k, v := range extra {
		fields[k] = v
	}
	*t.entries = append(*t.entries, TestEntry{Level: level, Message: msg, Fields: fields})
}

func (t *TestLogger) Debug(msg string) { t.record("debug", msg, nil) }
func (t *TestLogger) Info(msg string)  { t.record("info", msg, nil) }
func (t *TestLogger) Warn(msg string)  { t.record("warn", msg, nil) }
func (t *TestLogger) Error(msg string) { t.record("error", msg, nil) }
func (t *TestLogger) Fatal(msg string) { t.record("fatal", msg, nil) }

// WithField returns a derived logger; entries still land in the parent's store.
func (t *TestLogger) WithField(key string, value interface{}) Logger {
	return t.WithFields(map[string]interface{}{key: value})
}

func (t *TestLogger) WithFields(fields map[string]interface{}) Logger {
	child := &TestLogger{
		mu:      t.mu,
		entries: t.entries,
		fields:  make(map[string]interface{}, len(t.fields)+len(fields)),
	}
	for k, v := range t.fields {
		child.fields[k] = v
	}
	for k, v := range fields {
		child.fields[k] = v
	}
	return child
}

func (t *TestLogger) WithError(err error) Logger {
	if err == nil {
		return t
	}
	return t.WithField("error", err.Error())
}

func (t *TestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	t.record("debug", msg, fields)
}

func (t *TestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	t.record("info", msg, fields)
}

func (t *TestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	t.record("warn", msg, fields)
}

func (t *TestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	t.record("error", msg, fields)
}

func (t *TestLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
