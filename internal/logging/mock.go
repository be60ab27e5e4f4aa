package logging

import "sync"

// LogEntry is a captured log call.
type LogEntry struct {
	Level   string
	Message string
	Fields  map[string]interface{}
	Err     error
}

// MockLogger records log calls for assertions in tests.
type MockLogger struct {
	mu      sync.Mutex
	entries []LogEntry

	pendingErr    error
	pendingFields map[string]interface{}
}

// NewMockLogger creates an empty mock logger.
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

// Entries returns a copy of all captured entries.
func (m *MockLogger) Entries() []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LogEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// HasMessage reports whether any entry carries the given message.
func (m *MockLogger) HasMessage(msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.Message == msg {
			return true
		}
	}
	return false
}

func (m *MockLogger) record(level, msg string, fields []Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	merged := make(map[string]interface{}, len(m.pendingFields)+len(fields))
	for k, v := range m.pendingFields {
		merged[k] = v
	}
	for _, f := range fields {
		merged[f.Key] = f.Value
	}
	m.entries = append(m.entries, LogEntry{
		Level:   level,
		Message: msg,
		Fields:  merged,
		Err:     m.pendingErr,
	})
}

func (m *MockLogger) Debug(msg string, fields ...Field) { m.record("debug", msg, fields) }
func (m *MockLogger) Info(msg string, fields ...Field)  { m.record("info", msg, fields) }
func (m *MockLogger) Warn(msg string, fields ...Field)  { m.record("warn", msg, fields) }
func (m *MockLogger) Error(msg string, fields ...Field) { m.record("error", msg, fields) }
func (m *MockLogger) Fatal(msg string, fields ...Field) { m.record("fatal", msg, fields) }

func (m *MockLogger) WithError(err error) Logger {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingErr = err
	return m
}

func (m *MockLogger) WithField(key string, value interface{}) Logger {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pendingFields == nil {
		m.pendingFields = map[string]interface{}{}
	}
	m.pendingFields[key] = value
	return m
}

func (m *MockLogger) WithFields(fields ...Field) Logger {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pendingFields == nil {
		m.pendingFields = map[string]interface{}{}
	}
	for _, f := range fields {
		m.pendingFields[f.Key] = f.Value
	}
	return m
}
