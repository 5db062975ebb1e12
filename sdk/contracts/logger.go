package contracts

import "time"

// LogLevel represents the severity level for logging.
type LogLevel int

const (
	// InfoLevel reports connection lifecycle, discovery and subscriptions.
	InfoLevel LogLevel = iota
	// DebugLevel additionally traces every console frame and MIDI message.
	DebugLevel
	// ErrorLevel only reports failures.
	ErrorLevel
	// WarnLevel reports recoverable anomalies and failures.
	WarnLevel
	// FatalLevel only reports errors that abort the process.
	FatalLevel
)

// String returns the lower-case level name used in configuration files.
func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	case FatalLevel:
		return "fatal"
	default:
		return "unknown"
	}
}

// ParseLogLevel maps a level name to a LogLevel. Unknown names yield InfoLevel and false.
func ParseLogLevel(name string) (LogLevel, bool) {
	switch name {
	case "debug":
		return DebugLevel, true
	case "info", "":
		return InfoLevel, true
	case "warn", "warning":
		return WarnLevel, true
	case "error":
		return ErrorLevel, true
	case "fatal":
		return FatalLevel, true
	default:
		return InfoLevel, false
	}
}

// LogDestination specifies where the log messages should be directed.
type LogDestination string

const (
	// ConsoleLog directs log messages to stderr.
	ConsoleLog LogDestination = "console"
	// FileLog directs log messages to a file.
	FileLog LogDestination = "file"
)

// Field is a typed key/value pair attached to a log entry.
type Field interface {
	Bool(key string, val bool) Field
	Int(key string, val int) Field
	Float64(key string, val float64) Field
	String(key string, val string) Field
	Time(key string, val time.Time) Field
	Duration(key string, val time.Duration) Field
	Int64(key string, val int64) Field
	Error(key string, val error) Field
	Uint64(key string, val uint64) Field
	Uint8(key string, val uint8) Field
}

// Logger provides leveled, structured logging.
type Logger interface {
	Info(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	// Field returns a builder for typed log fields.
	Field() Field
	// With returns a child logger that attaches fields to every entry.
	With(fields ...Field) Logger
	// Enabled reports whether entries at level would be written.
	Enabled(level LogLevel) bool

	SetLevel(level LogLevel)
	SetDestination(dest LogDestination, filePath ...string) error
	Sync() error
}
