// Package logging configures logrus for the CLI and GUI and builds the
// per-run loggers used by the pipeline.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/orandin/lumberjackrus"
	"github.com/sirupsen/logrus"
)

// Rotation settings for the application log file
const (
	LogFileMaxSizeMB  = 10
	LogFileMaxBackups = 3
	LogFileMaxAgeDays = 7

	RunLogExtension  = ".log"
	RunLogFileMode   = 0644
	RunLogTimeLayout = "2006-01-02 15:04:05"
)

// Setup configures the standard logger. Console output goes to stderr with
// colors when attached to a terminal; file, if set, receives rotated JSON logs.
func Setup(level, file string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{
		ForceColors:   isatty.IsTerminal(os.Stderr.Fd()),
		FullTimestamp: true,
	})
	logrus.SetOutput(colorable.NewColorableStderr())

	if file == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	hook, err := lumberjackrus.NewHook(
		&lumberjackrus.LogFile{
			Filename:   file,
			MaxSize:    LogFileMaxSizeMB,
			MaxBackups: LogFileMaxBackups,
			MaxAge:     LogFileMaxAgeDays,
			Compress:   false,
			LocalTime:  true,
		},
		logrus.DebugLevel,
		&logrus.JSONFormatter{},
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to create file log hook: %w", err)
	}
	logrus.AddHook(hook)
	return nil
}

// RunLogger is a logger dedicated to a single pipeline run
type RunLogger struct {
	*logrus.Entry
	logger *logrus.Logger
	file   io.Closer
}

// NewRunLogger creates a logger that mirrors entries to parent (when set)
// and passes info-level messages to onLine. Nothing is shared between runs.
func NewRunLogger(parent *logrus.Logger, onLine LineFunc) *RunLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.DebugLevel)

	if parent != nil {
		logger.AddHook(&ParentHook{Parent: parent})
	}
	if onLine != nil {
		logger.AddHook(&LineHook{OnLine: onLine, LogLevel: logrus.InfoLevel})
	}

	return &RunLogger{Entry: logrus.NewEntry(logger), logger: logger}
}

// AttachFile starts copying entries to path, truncating an existing file.
// Calling it again replaces nothing and returns nil.
func (l *RunLogger) AttachFile(path string) error {
	if l.file != nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, RunLogFileMode)
	if err != nil {
		return fmt.Errorf("failed to open run log: %w", err)
	}
	l.file = f
	l.logger.AddHook(&WriterHook{
		Out:       f,
		Formatter: &RunFileFormatter{},
		LogLevel:  logrus.DebugLevel,
	})
	return nil
}

// Close releases the run log file
func (l *RunLogger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// RunFileFormatter renders "2006-01-02 15:04:05 - LEVEL - message" lines
type RunFileFormatter struct{}

// Format implements logrus.Formatter
func (f *RunFileFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	line := fmt.Sprintf("%s - %s - %s\n",
		entry.Time.Format(RunLogTimeLayout),
		strings.ToUpper(entry.Level.String()),
		entry.Message)
	return []byte(line), nil
}
