package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Output formats accepted by New.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// LogContext provides context for log messages
type LogContext struct {
	JobID     string
	RequestID string
	Model     string
	Operation string
}

func (c *LogContext) fields() logrus.Fields {
	fields := logrus.Fields{}
	if c == nil {
		return fields
	}
	if c.JobID != "" {
		fields["job_id"] = c.JobID
	}
	if c.RequestID != "" {
		fields["request_id"] = c.RequestID
	}
	if c.Model != "" {
		fields["model"] = c.Model
	}
	if c.Operation != "" {
		fields["op"] = c.Operation
	}
	return fields
}

// Options configures a Logger.
type Options struct {
	// Level is a logrus level name; empty means info.
	Level string
	// Format is text or json. Empty picks json on Cloud Foundry and text elsewhere.
	Format string
	// Output defaults to stderr so stdout stays free for result documents.
	Output io.Writer
}

// Logger provides printf-style structured logging on top of logrus.
type Logger struct {
	base *logrus.Logger
}

// New creates a Logger from opts.
func New(opts Options) (*Logger, error) {
	base := logrus.New()

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	base.SetOutput(out)

	level := opts.Level
	if level == "" {
		level = "info"
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	base.SetLevel(parsed)

	format := strings.ToLower(opts.Format)
	if format == "" {
		format = FormatText
		// Running in Cloud Foundry: the platform expects one JSON document per line.
		if os.Getenv("VCAP_APPLICATION") != "" {
			format = FormatJSON
		}
	}
	switch format {
	case FormatJSON:
		base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	case FormatText:
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	default:
		return nil, fmt.Errorf("unknown log format %q (want %s or %s)", opts.Format, FormatText, FormatJSON)
	}

	return &Logger{base: base}, nil
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	base := logrus.New()
	base.SetOutput(io.Discard)
	return &Logger{base: base}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	l.base.Debugf(format, v...)
}

// Info logs an info message
func (l *Logger) Info(format string, v ...interface{}) {
	l.base.Infof(format, v...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...interface{}) {
	l.base.Warnf(format, v...)
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.base.Errorf(format, v...)
}

// InfoWithFields logs an info message with structured fields
func (l *Logger) InfoWithFields(format string, fields map[string]interface{}, v ...interface{}) {
	l.base.WithFields(fields).Infof(format, v...)
}

// WarnWithFields logs a warning message with structured fields
func (l *Logger) WarnWithFields(format string, fields map[string]interface{}, v ...interface{}) {
	l.base.WithFields(fields).Warnf(format, v...)
}

// ErrorWithFields logs an error message with structured fields
func (l *Logger) ErrorWithFields(format string, fields map[string]interface{}, v ...interface{}) {
	l.base.WithFields(fields).Errorf(format, v...)
}

// DebugEnabled reports whether debug messages are emitted.
func (l *Logger) DebugEnabled() bool {
	return l.base.IsLevelEnabled(logrus.DebugLevel)
}

// WithContext returns a context logger for chaining
func (l *Logger) WithContext(ctx *LogContext) *ContextLogger {
	return &ContextLogger{entry: l.base.WithFields(ctx.fields())}
}

// ContextLogger carries a fixed set of fields into every message.
type ContextLogger struct {
	entry *logrus.Entry
}

func (cl *ContextLogger) Debug(format string, v ...interface{}) {
	cl.entry.Debugf(format, v...)
}

func (cl *ContextLogger) Info(format string, v ...interface{}) {
	cl.entry.Infof(format, v...)
}

func (cl *ContextLogger) Warn(format string, v ...interface{}) {
	cl.entry.Warnf(format, v...)
}

func (cl *ContextLogger) Error(format string, v ...interface{}) {
	cl.entry.Errorf(format, v...)
}

// InfoWithFields logs an info message with context and fields
func (cl *ContextLogger) InfoWithFields(format string, fields map[string]interface{}, v ...interface{}) {
	cl.entry.WithFields(fields).Infof(format, v...)
}

// ErrorWithFields logs an error message with context and fields
func (cl *ContextLogger) ErrorWithFields(format string, fields map[string]interface{}, v ...interface{}) {
	cl.entry.WithFields(fields).Errorf(format, v...)
}
