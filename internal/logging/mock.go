package logging

import (
	"fmt"
	"strings"
	"sync"
)

// MockLogger implements the Logger interface for testing purposes
type MockLogger struct {
	mu sync.RWMutex

	level  Level
	fields Fields

	// Captured logs for verification
	LogEntries []LogEntry
}

// LogEntry represents a captured log entry for testing verification
type LogEntry struct {
	Level   Level
	Message string
	Fields  Fields
}

// NewMockLogger creates a new mock logger for testing
func NewMockLogger() *MockLogger {
	return &MockLogger{
		level:      DebugLevel,
		LogEntries: make([]LogEntry, 0),
		fields:     make(Fields),
	}
}

func (m *MockLogger) SetLevel(level Level) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level = level
}

func (m *MockLogger) GetLevel() Level {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.level
}

func (m *MockLogger) IsLevelEnabled(level Level) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return level >= m.level
}

func (m *MockLogger) log(level Level, msg string, fields Fields) {
	if !m.IsLevelEnabled(level) {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	merged := make(Fields)
	for k, v := range m.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	m.LogEntries = append(m.LogEntries, LogEntry{
		Level:   level,
		Message: msg,
		Fields:  merged,
	})
}

func (m *MockLogger) Debug(msg string) { m.log(DebugLevel, msg, nil) }
func (m *MockLogger) Info(msg string)  { m.log(InfoLevel, msg, nil) }
func (m *MockLogger) Warn(msg string)  { m.log(WarnLevel, msg, nil) }
func (m *MockLogger) Error(msg string) { m.log(ErrorLevel, msg, nil) }
func (m *MockLogger) Fatal(msg string) { m.log(FatalLevel, msg, nil) }

func (m *MockLogger) Debugf(format string, args ...interface{}) {
	m.log(DebugLevel, fmt.Sprintf(format, args...), nil)
}

func (m *MockLogger) Infof(format string, args ...interface{}) {
	m.log(InfoLevel, fmt.Sprintf(format, args...), nil)
}

func (m *MockLogger) Warnf(format string, args ...interface{}) {
	m.log(WarnLevel, fmt.Sprintf(format, args...), nil)
}

func (m *MockLogger) Errorf(format string, args ...interface{}) {
	m.log(ErrorLevel, fmt.Sprintf(format, args...), nil)
}

func (m *MockLogger) Fatalf(format string, args ...interface{}) {
	m.log(FatalLevel, fmt.Sprintf(format, args...), nil)
}

func (m *MockLogger) Debugw(msg string, keysAndValues ...interface{}) {
	m.log(DebugLevel, msg, keysAndValuesToFields(keysAndValues...))
}

func (m *MockLogger) Infow(msg string, keysAndValues ...interface{}) {
	m.log(InfoLevel, msg, keysAndValuesToFields(keysAndValues...))
}

func (m *MockLogger) Warnw(msg string, keysAndValues ...interface{}) {
	m.log(WarnLevel, msg, keysAndValuesToFields(keysAndValues...))
}

func (m *MockLogger) Errorw(msg string, keysAndValues ...interface{}) {
	m.log(ErrorLevel, msg, keysAndValuesToFields(keysAndValues...))
}

func (m *MockLogger) WithFields(fields Fields) Logger {
	m.mu.RLock()
	defer m.mu.RUnlock()

	merged := make(Fields)
	for k, v := range m.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	return &MockLogger{
		level:      m.level,
		fields:     merged,
		LogEntries: m.LogEntries,
	}
}

func (m *MockLogger) WithField(key string, value interface{}) Logger {
	return m.WithFields(Fields{key: value})
}

func (m *MockLogger) WithError(err error) Logger {
	if err == nil {
		return m
	}
	return m.WithField("error", err.Error())
}

func (m *MockLogger) Close() error { return nil }

// HasMessage reports whether any captured entry contains the given substring
func (m *MockLogger) HasMessage(substr string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, entry := range m.LogEntries {
		if strings.Contains(entry.Message, substr) {
			return true
		}
	}
	return false
}
