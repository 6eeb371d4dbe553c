package logging

import (
	"fmt"
	"log/slog"
	"strings"
)

// RestyLogger adapts an slog.Logger to the printf-style logger interface
// expected by go-resty (Errorf, Warnf, Debugf).
type RestyLogger struct {
	logger *slog.Logger
}

// NewRestyLogger creates a RestyLogger wrapping the given slog.Logger.
// If logger is nil, slog.Default() is used.
func NewRestyLogger(logger *slog.Logger) *RestyLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &RestyLogger{logger: logger.With(slog.String("component", "resty"))}
}

// Errorf logs a formatted message at error level.
func (l *RestyLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error(trimMessage(format, v...))
}

// Warnf logs a formatted message at warn level.
func (l *RestyLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn(trimMessage(format, v...))
}

// Debugf logs a formatted message at debug level.
func (l *RestyLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug(trimMessage(format, v...))
}

// Logger returns the underlying slog.Logger.
func (l *RestyLogger) Logger() *slog.Logger {
	return l.logger
}

// resty terminates its messages with newlines; slog adds its own.
func trimMessage(format string, v ...interface{}) string {
	return strings.TrimRight(fmt.Sprintf(format, v...), "\n")
}
