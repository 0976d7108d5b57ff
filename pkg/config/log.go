package config

import (
	"fmt"
	"os"
	"path"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// LogLevels lists the accepted level names, most to least severe.
var LogLevels = []string{"panic", "fatal", "error", "warn", "info", "debug", "trace"}

// NamedLogger creates a logger for one component. Every entry carries a
// "component" field and is prefixed with the caller's file and line.
func NamedLogger(name string, level string) (*logrus.Entry, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	l := &logrus.Logger{
		Out: os.Stderr,
		Formatter: &CustomTextFormatter{
			logrus.TextFormatter{
				FullTimestamp:   true,
				TimestampFormat: "15:04:05.000",
				// The caller goes in the message prefix instead.
				CallerPrettyfier: func(*runtime.Frame) (string, string) { return "", "" },
			},
		},
		Hooks:        make(logrus.LevelHooks),
		Level:        lvl,
		ReportCaller: true,
	}
	return l.WithField("component", name), nil
}

// ParseLevel accepts the names in LogLevels, case-insensitively.
func ParseLevel(level string) (logrus.Level, error) {
	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return 0, fmt.Errorf("config: log level %q: expected one of %s", level, strings.Join(LogLevels, ", "))
	}
	return lvl, nil
}

// CustomTextFormatter prefixes messages with the calling file and line.
type CustomTextFormatter struct {
	logrus.TextFormatter
}

// Format renders a single log entry.
func (f *CustomTextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	if entry.HasCaller() {
		entry.Message = fmt.Sprintf("[%-15s:%03d] %s", path.Base(entry.Caller.File), entry.Caller.Line, entry.Message)
	}
	return f.TextFormatter.Format(entry)
}
