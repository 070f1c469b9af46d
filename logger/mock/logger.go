package mocklogger

import (
	"github.com/hugolhafner/lakecommit/logger"
)

var _ logger.Logger = (*MockLogger)(nil)

type LogEntry struct {
	Level   logger.LogLevel
	Message string
	KV      []any
}

// MockLogger records every entry for assertions. Loggers derived via With
// share the root recorder, so entries logged through a derived logger are
// visible on the logger the test holds.
type MockLogger struct {
	Entries []LogEntry

	root *MockLogger
	args []any
}

func New() *MockLogger {
	return &MockLogger{}
}

func (m *MockLogger) sink() *MockLogger {
	if m.root != nil {
		return m.root
	}
	return m
}

func (m *MockLogger) Log(level logger.LogLevel, msg string, kv ...any) {
	if len(m.args) > 0 {
		kv = append(append([]any{}, m.args...), kv...)
	}

	s := m.sink()
	s.Entries = append(
		s.Entries, LogEntry{
			Level:   level,
			Message: msg,
			KV:      kv,
		},
	)
}

func (m *MockLogger) Level() logger.LogLevel {
	return logger.DebugLevel
}

func (m *MockLogger) With(kv ...any) logger.Logger {
	return &MockLogger{
		root: m.sink(),
		args: append(append([]any{}, m.args...), kv...),
	}
}

func (m *MockLogger) Debug(msg string, kv ...any) {
	m.Log(logger.DebugLevel, msg, kv...)
}

func (m *MockLogger) Info(msg string, kv ...any) {
	m.Log(logger.InfoLevel, msg, kv...)
}

func (m *MockLogger) Warn(msg string, kv ...any) {
	m.Log(logger.WarnLevel, msg, kv...)
}

func (m *MockLogger) Error(msg string, kv ...any) {
	m.Log(logger.ErrorLevel, msg, kv...)
}

// HasMessage reports whether any entry was logged with the given message.
func (m *MockLogger) HasMessage(msg string) bool {
	for _, e := range m.sink().Entries {
		if e.Message == msg {
			return true
		}
	}
	return false
}
