package logger

import (
	"io"
	"sync"
)

var (
	defaultLogger = mustDefault()
	defaultMu     sync.RWMutex
)

func mustDefault() *Logger {
	l, _ := New(DefaultConfig())
	return l
}

func current() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// InitFromConfig initializes the logger from configuration
func InitFromConfig(level, filePath string, console bool) error {
	logLevel, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	l, err := New(Config{
		Level:    logLevel,
		FilePath: filePath,
		Console:  console,
	})
	if err != nil {
		return err
	}

	replace(l)
	return nil
}

// SetOutput redirects the package logger to w. Used by tests.
func SetOutput(w io.Writer) {
	l := current()
	replace(NewWithWriter(l.entry.Logger.GetLevel(), w, nil))
}

func replace(l *Logger) {
	defaultMu.Lock()
	old := defaultLogger
	defaultLogger = l
	defaultMu.Unlock()

	if old != nil {
		old.Close()
	}
}

// Debug logs debug level messages
func Debug(format string, args ...interface{}) {
	current().Debug(format, args...)
}

// Info logs info level messages
func Info(format string, args ...interface{}) {
	current().Info(format, args...)
}

// Warn logs warning level messages
func Warn(format string, args ...interface{}) {
	current().Warn(format, args...)
}

// Error logs error level messages
func Error(format string, args ...interface{}) {
	current().Error(format, args...)
}

// Close closes the logger
func Close() error {
	return current().Close()
}
