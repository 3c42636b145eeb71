package logging

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger interface for structured logging
type Logger interface {
	WithCorrelationID(id string) Logger
	WithFields(fields map[string]interface{}) Logger
	WithField(key string, value interface{}) Logger
	Info(msg string)
	Error(msg string, err error)
	Warn(msg string)
	Debug(msg string)
}

// StructuredLogger implements Logger interface using logrus
type StructuredLogger struct {
	logger        *logrus.Logger
	entry         *logrus.Entry
	serviceName   string
	correlationID string
}

// NewLogger creates a JSON logger writing to stderr at the given level
func NewLogger(serviceName, level string) Logger {
	return NewLoggerWithOutput(serviceName, level, os.Stderr)
}

// NewLoggerWithOutput creates a JSON logger writing to out
func NewLoggerWithOutput(serviceName, level string, out io.Writer) Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	logger.SetLevel(parseLevel(level))

	return &StructuredLogger{
		logger:      logger,
		entry:       logger.WithField("service", serviceName),
		serviceName: serviceName,
	}
}

// NewNopLogger discards everything
func NewNopLogger() Logger {
	return NewLoggerWithOutput("nop", "error", io.Discard)
}

// WithCorrelationID returns a new logger with correlation ID
func (l *StructuredLogger) WithCorrelationID(id string) Logger {
	return &StructuredLogger{
		logger:        l.logger,
		entry:         l.entry.WithField("correlation_id", id),
		serviceName:   l.serviceName,
		correlationID: id,
	}
}

// WithFields returns a new logger with additional fields
func (l *StructuredLogger) WithFields(fields map[string]interface{}) Logger {
	return &StructuredLogger{
		logger:        l.logger,
		entry:         l.entry.WithFields(fields),
		serviceName:   l.serviceName,
		correlationID: l.correlationID,
	}
}

// WithField returns a new logger with an additional field
func (l *StructuredLogger) WithField(key string, value interface{}) Logger {
	return &StructuredLogger{
		logger:        l.logger,
		entry:         l.entry.WithField(key, value),
		serviceName:   l.serviceName,
		correlationID: l.correlationID,
	}
}

// Info logs an info message
func (l *StructuredLogger) Info(msg string) {
	l.entry.Info(msg)
}

// Error logs an error message with error context
func (l *StructuredLogger) Error(msg string, err error) {
	if err != nil {
		l.entry.WithField("error", err.Error()).Error(msg)
	} else {
		l.entry.Error(msg)
	}
}

// Warn logs a warning message
func (l *StructuredLogger) Warn(msg string) {
	l.entry.Warn(msg)
}

// Debug logs a debug message
func (l *StructuredLogger) Debug(msg string) {
	l.entry.Debug(msg)
}

func parseLevel(level string) logrus.Level {
	switch level {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
