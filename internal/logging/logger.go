package logging

import (
	"fmt"
	"strings"
)

// Level represents the logging level
type Level int

const (
	// DebugLevel logs are voluminous and usually disabled in production
	DebugLevel Level = iota
	// InfoLevel is the default logging priority
	InfoLevel
	// WarnLevel logs are more important than Info, but don't need individual review
	WarnLevel
	// ErrorLevel logs are high-priority
	ErrorLevel
	// FatalLevel logs a message, then calls os.Exit(1)
	FatalLevel
)

// String returns the string representation of the log level
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string log level to a Level, defaulting to info
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	default:
		return InfoLevel
	}
}

// Fields represents structured logging fields
type Fields map[string]interface{}

// Logger defines the interface for structured logging
type Logger interface {
	SetLevel(level Level)
	GetLevel() Level
	IsLevelEnabled(level Level) bool

	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
	Fatal(msg string)

	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})

	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	WithFields(fields Fields) Logger
	WithField(key string, value interface{}) Logger
	WithError(err error) Logger

	// Close closes the logger and releases any resources
	Close() error
}

// keysAndValuesToFields converts key-value pairs to Fields
func keysAndValuesToFields(keysAndValues ...interface{}) Fields {
	fields := make(Fields)
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 < len(keysAndValues) {
			key := fmt.Sprintf("%v", keysAndValues[i])
			fields[key] = keysAndValues[i+1]
		}
	}
	return fields
}

// LoggerConfig holds configuration for creating loggers
type LoggerConfig struct {
	Level       Level  // Log level (Debug, Info, Warn, Error, Fatal)
	FilePath    string // Complete path to the log file
	LoggerName  string // Name identifier for the logger instance
	ServiceName string // Service name for structured logging
}

// DefaultConfig returns the default logger configuration
func DefaultConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:       InfoLevel,
		FilePath:    "/tmp/mongoquery.log",
		LoggerName:  "default",
		ServiceName: "mongoquery",
	}
}

// Validate validates the logger configuration
func (c *LoggerConfig) Validate() error {
	if c.FilePath == "" {
		return fmt.Errorf("log file path is required")
	}
	if c.LoggerName == "" {
		return fmt.Errorf("logger name is required")
	}
	if c.ServiceName == "" {
		return fmt.Errorf("service name is required")
	}
	return nil
}

// NewLogger creates a new logger with the given configuration.
// This is a factory function that creates the default implementation (zerolog).
func NewLogger(config *LoggerConfig) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logger configuration: %w", err)
	}

	logger, err := NewLoggerWithConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return logger, nil
}
