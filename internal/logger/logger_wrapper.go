package logger

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/leandrodaf/uad2midi/sdk/contracts"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format selects the zap encoder.
type Format string

const (
	// JSONFormat writes one JSON object per entry.
	JSONFormat Format = "json"
	// ConsoleFormat writes human readable, tab separated entries.
	ConsoleFormat Format = "console"
)

// ZapLogger implements contracts.Logger on top of zap.
type ZapLogger struct {
	mu     sync.RWMutex
	logger *zap.Logger
	level  zap.AtomicLevel
	format Format
	file   *os.File
}

// NewZapLogger creates a JSON logger writing to stderr at info level.
func NewZapLogger() contracts.Logger {
	return NewZapLoggerWithFormat(JSONFormat)
}

// NewZapLoggerWithFormat creates a logger writing to stderr with the given encoder.
func NewZapLoggerWithFormat(format Format) *ZapLogger {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	z := &ZapLogger{level: level, format: format}
	z.logger = zap.New(z.newCore(zapcore.Lock(os.Stderr)), zap.AddCaller(), zap.AddCallerSkip(1))
	return z
}

// NewZapLoggerWithCore wraps an existing core. The core's own level filter
// still applies on top of SetLevel.
func NewZapLoggerWithCore(core zapcore.Core) *ZapLogger {
	level := zap.NewAtomicLevelAt(zapcore.DebugLevel)
	return &ZapLogger{
		logger: zap.New(&levelCore{Core: core, level: level}),
		level:  level,
		format: JSONFormat,
	}
}

func (z *ZapLogger) newCore(ws zapcore.WriteSyncer) zapcore.Core {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if z.format == ConsoleFormat {
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(cfg)
	} else {
		enc = zapcore.NewJSONEncoder(cfg)
	}
	return zapcore.NewCore(enc, ws, z.level)
}

// Info logs a message at the INFO level
func (z *ZapLogger) Info(msg string, fields ...contracts.Field) {
	z.current().Info(msg, toZap(fields)...)
}

// Error logs a message at the ERROR level
func (z *ZapLogger) Error(msg string, fields ...contracts.Field) {
	z.current().Error(msg, toZap(fields)...)
}

// Debug logs a message at the DEBUG level
func (z *ZapLogger) Debug(msg string, fields ...contracts.Field) {
	z.current().Debug(msg, toZap(fields)...)
}

// Warn logs a message at the WARN level
func (z *ZapLogger) Warn(msg string, fields ...contracts.Field) {
	z.current().Warn(msg, toZap(fields)...)
}

// Fatal logs a message at the FATAL level and terminates the application
func (z *ZapLogger) Fatal(msg string, fields ...contracts.Field) {
	z.current().Fatal(msg, toZap(fields)...)
}

// Field returns a new instance of Field
func (z *ZapLogger) Field() contracts.Field {
	return zapField{}
}

// With returns a child logger sharing level and destination with z.
func (z *ZapLogger) With(fields ...contracts.Field) contracts.Logger {
	return &childLogger{parent: z, fields: toZap(fields)}
}

// Enabled reports whether entries at level are written.
func (z *ZapLogger) Enabled(level contracts.LogLevel) bool {
	return z.level.Enabled(zapLevel(level))
}

// SetLevel sets the logging level
func (z *ZapLogger) SetLevel(level contracts.LogLevel) {
	z.level.SetLevel(zapLevel(level))
}

// SetDestination redirects output to stderr or to a file opened for appending.
func (z *ZapLogger) SetDestination(dest contracts.LogDestination, filePath ...string) error {
	var (
		ws   zapcore.WriteSyncer
		file *os.File
	)
	switch dest {
	case contracts.ConsoleLog:
		ws = zapcore.Lock(os.Stderr)
	case contracts.FileLog:
		if len(filePath) == 0 || filePath[0] == "" {
			return fmt.Errorf("file log destination requires a path")
		}
		f, err := os.OpenFile(filePath[0], os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		file = f
		ws = zapcore.Lock(f)
	default:
		return fmt.Errorf("unsupported log destination %q", dest)
	}

	z.mu.Lock()
	defer z.mu.Unlock()
	_ = z.logger.Sync()
	if z.file != nil {
		_ = z.file.Close()
	}
	z.file = file
	z.logger = zap.New(z.newCore(ws), zap.AddCaller(), zap.AddCallerSkip(1))
	return nil
}

// Sync flushes buffered entries.
func (z *ZapLogger) Sync() error {
	return z.current().Sync()
}

func (z *ZapLogger) current() *zap.Logger {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.logger
}

// childLogger resolves its parent's zap logger on every call, so a later
// SetDestination on the parent also redirects children.
type childLogger struct {
	parent *ZapLogger
	fields []zap.Field
}

func (c *childLogger) log() *zap.Logger { return c.parent.current().With(c.fields...) }

func (c *childLogger) Info(msg string, fields ...contracts.Field) {
	c.log().Info(msg, toZap(fields)...)
}

func (c *childLogger) Error(msg string, fields ...contracts.Field) {
	c.log().Error(msg, toZap(fields)...)
}

func (c *childLogger) Debug(msg string, fields ...contracts.Field) {
	c.log().Debug(msg, toZap(fields)...)
}

func (c *childLogger) Warn(msg string, fields ...contracts.Field) {
	c.log().Warn(msg, toZap(fields)...)
}

func (c *childLogger) Fatal(msg string, fields ...contracts.Field) {
	c.log().Fatal(msg, toZap(fields)...)
}

func (c *childLogger) Field() contracts.Field { return zapField{} }

func (c *childLogger) With(fields ...contracts.Field) contracts.Logger {
	merged := make([]zap.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, toZap(fields)...)
	return &childLogger{parent: c.parent, fields: merged}
}

func (c *childLogger) Enabled(level contracts.LogLevel) bool { return c.parent.Enabled(level) }

func (c *childLogger) SetLevel(level contracts.LogLevel) { c.parent.SetLevel(level) }

func (c *childLogger) SetDestination(dest contracts.LogDestination, filePath ...string) error {
	return c.parent.SetDestination(dest, filePath...)
}

func (c *childLogger) Sync() error { return c.parent.Sync() }

// levelCore applies an AtomicLevel in front of a caller supplied core.
type levelCore struct {
	zapcore.Core
	level zap.AtomicLevel
}

func (c *levelCore) Enabled(l zapcore.Level) bool {
	return c.level.Enabled(l) && c.Core.Enabled(l)
}

func (c *levelCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelCore{Core: c.Core.With(fields), level: c.level}
}

func (c *levelCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.level.Enabled(ent.Level) {
		return ce
	}
	return c.Core.Check(ent, ce)
}

// zapLevel maps the contract levels onto zap's ordering.
func zapLevel(level contracts.LogLevel) zapcore.Level {
	switch level {
	case contracts.DebugLevel:
		return zapcore.DebugLevel
	case contracts.WarnLevel:
		return zapcore.WarnLevel
	case contracts.ErrorLevel:
		return zapcore.ErrorLevel
	case contracts.FatalLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func toZap(fields []contracts.Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		if f, ok := field.(zapField); ok && f.f.Key != "" {
			out = append(out, f.f)
		}
	}
	return out
}

// zapField implements contracts.Field by carrying a ready zap.Field.
type zapField struct {
	f zap.Field
}

func (zapField) Bool(key string, val bool) contracts.Field {
	return zapField{f: zap.Bool(key, val)}
}

func (zapField) Int(key string, val int) contracts.Field {
	return zapField{f: zap.Int(key, val)}
}

func (zapField) Float64(key string, val float64) contracts.Field {
	return zapField{f: zap.Float64(key, val)}
}

func (zapField) String(key string, val string) contracts.Field {
	return zapField{f: zap.String(key, val)}
}

func (zapField) Time(key string, val time.Time) contracts.Field {
	return zapField{f: zap.Time(key, val)}
}

func (zapField) Duration(key string, val time.Duration) contracts.Field {
	return zapField{f: zap.Duration(key, val)}
}

func (zapField) Int64(key string, val int64) contracts.Field {
	return zapField{f: zap.Int64(key, val)}
}

func (zapField) Error(key string, val error) contracts.Field {
	return zapField{f: zap.NamedError(key, val)}
}

func (zapField) Uint64(key string, val uint64) contracts.Field {
	return zapField{f: zap.Uint64(key, val)}
}

func (zapField) Uint8(key string, val uint8) contracts.Field {
	return zapField{f: zap.Uint8(key, val)}
}
