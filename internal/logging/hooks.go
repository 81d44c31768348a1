package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// WriterHook writes entries at or above LogLevel to Out
type WriterHook struct {
	Out       io.Writer
	Formatter logrus.Formatter
	LogLevel  logrus.Level
}

// Fire formats the entry and writes it to Out
func (hook *WriterHook) Fire(entry *logrus.Entry) error {
	serialized, err := hook.Formatter.Format(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to format log entry, %v\n", err)
		return err
	}
	if _, err = hook.Out.Write(serialized); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write log entry, %v\n", err)
	}
	return nil
}

// Levels returns the levels this hook fires on
func (hook *WriterHook) Levels() []logrus.Level {
	return logrus.AllLevels[:hook.LogLevel+1]
}

// LineFunc receives one rendered log line without trailing newline
type LineFunc func(line string)

// LineHook forwards each entry's message to a callback
type LineHook struct {
	OnLine   LineFunc
	LogLevel logrus.Level
}

// Fire passes the entry message to OnLine
func (hook *LineHook) Fire(entry *logrus.Entry) error {
	if hook.OnLine != nil {
		hook.OnLine(entry.Message)
	}
	return nil
}

// Levels returns the levels this hook fires on
func (hook *LineHook) Levels() []logrus.Level {
	return logrus.AllLevels[:hook.LogLevel+1]
}

// ParentHook re-logs entries through Parent so its level, formatter, output
// and hooks all apply. Panic and fatal entries are not forwarded.
type ParentHook struct {
	Parent *logrus.Logger
}

// Fire logs the entry on the parent logger with the same fields and time
func (hook *ParentHook) Fire(entry *logrus.Entry) error {
	hook.Parent.WithFields(entry.Data).WithTime(entry.Time).Log(entry.Level, entry.Message)
	return nil
}

// Levels returns the levels this hook fires on
func (hook *ParentHook) Levels() []logrus.Level {
	return logrus.AllLevels[logrus.ErrorLevel:]
}
