// Package logger provides the leveled logger used by the terminology client.
// It keeps a printf-style API on top of a zap core.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents the logging level.
type Level int

// Log levels.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelNone
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelNone:
		return "NONE"
	default:
		return ""
	}
}

// ParseLevel maps a case-insensitive level name to a Level.
// Unknown names yield LevelInfo and false.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, true
	case "info", "":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	case "none", "off":
		return LevelNone, true
	}
	return LevelInfo, false
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		// Above every level zap emits through the sugared API.
		return zapcore.FatalLevel + 1
	}
}

// Logger provides logging functionality.
type Logger struct {
	level zap.AtomicLevel
	sugar *zap.SugaredLogger
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = New(os.Stderr, LevelInfo)
)

// Default returns the default logger.
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault sets the default logger.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// New creates a console logger writing to output.
func New(output io.Writer, level Level) *Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	atom := zap.NewAtomicLevelAt(level.zapLevel())
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(output), atom)

	return &Logger{
		level: atom,
		sugar: zap.New(core).Named("txclient").Sugar(),
	}
}

// NewJSON creates a logger emitting JSON lines, for machine consumption.
func NewJSON(output io.Writer, level Level) *Logger {
	atom := zap.NewAtomicLevelAt(level.zapLevel())
	core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(output), atom)

	return &Logger{
		level: atom,
		sugar: zap.New(core).Named("txclient").Sugar(),
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{
		level: zap.NewAtomicLevelAt(LevelNone.zapLevel()),
		sugar: zap.NewNop().Sugar(),
	}
}

// SetLevel sets the logging level.
func (l *Logger) SetLevel(level Level) {
	l.level.SetLevel(level.zapLevel())
}

// Enabled reports whether messages at level are emitted.
func (l *Logger) Enabled(level Level) bool {
	return level != LevelNone && l.level.Enabled(level.zapLevel())
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{
		level: l.level,
		sugar: l.sugar.With(keysAndValues...),
	}
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) {
	l.sugar.Debugf(format, args...)
}

// Info logs an info message.
func (l *Logger) Info(format string, args ...any) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...any) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...any) {
	l.sugar.Errorf(format, args...)
}

// Package-level convenience functions.

// Debug logs a debug message using the default logger.
func Debug(format string, args ...any) {
	Default().Debug(format, args...)
}

// Info logs an info message using the default logger.
func Info(format string, args ...any) {
	Default().Info(format, args...)
}

// Warn logs a warning message using the default logger.
func Warn(format string, args ...any) {
	Default().Warn(format, args...)
}

// Error logs an error message using the default logger.
func Error(format string, args ...any) {
	Default().Error(format, args...)
}

// SetLevel sets the level of the default logger.
func SetLevel(level Level) {
	Default().SetLevel(level)
}
