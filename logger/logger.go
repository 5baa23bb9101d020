package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Config represents the configuration for the logger
type Config struct {
	// Log level
	Level logrus.Level
	// Log file path, empty disables file output
	FilePath string
	// Whether to log to console
	Console bool
}

// DefaultConfig returns default logger configuration
func DefaultConfig() Config {
	return Config{
		Level:   logrus.InfoLevel,
		Console: true,
	}
}

// Logger wraps a logrus logger and the file it writes to, if any
type Logger struct {
	entry *logrus.Entry
	file  *os.File
	mu    sync.Mutex
}

// New creates a new logger
func New(config Config) (*Logger, error) {
	var writers []io.Writer
	var file *os.File

	if config.FilePath != "" {
		// Ensure log directory exists
		if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %v", err)
		}

		f, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %v", err)
		}
		file = f
		writers = append(writers, f)
	}

	if config.Console || len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	return NewWithWriter(config.Level, io.MultiWriter(writers...), file), nil
}

// NewWithWriter creates a logger writing to w. file, when not nil, is closed by Close.
func NewWithWriter(level logrus.Level, w io.Writer, file *os.File) *Logger {
	log := logrus.New()
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(w)

	return &Logger{
		entry: log.WithField("app", "rainwise2mqtt"),
		file:  file,
	}
}

// Debug logs debug level messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

// Info logs info level messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

// Warn logs warning level messages
func (l *Logger) Warn(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

// Error logs error level messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

// Close closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// ParseLogLevel parses log level string
func ParseLogLevel(level string) (logrus.Level, error) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return logrus.DebugLevel, nil
	case "INFO", "":
		return logrus.InfoLevel, nil
	case "WARN", "WARNING":
		return logrus.WarnLevel, nil
	case "ERROR":
		return logrus.ErrorLevel, nil
	default:
		return logrus.InfoLevel, fmt.Errorf("unknown log level: %s, using default level INFO", level)
	}
}
