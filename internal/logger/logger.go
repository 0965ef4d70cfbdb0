package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

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
	default:
		return "UNKNOWN"
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

var (
	mu sync.RWMutex

	level    = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	encoding = "text"
	sink     zapcore.WriteSyncer = zapcore.Lock(os.Stdout)
	closer   io.Closer

	sugar = build()
)

// build assembles the zap logger from the current encoding and sink.
// Must be called with mu held, except during package initialization.
func build() *zap.SugaredLogger {
	encCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	var encoder zapcore.Encoder
	if encoding == "json" {
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		// [2006-01-02 15:04:05] [INFO] message
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("[2006-01-02 15:04:05]")
		encCfg.EncodeLevel = func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + l.CapitalString() + "]")
		}
		encCfg.ConsoleSeparator = " "
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	return zap.New(zapcore.NewCore(encoder, sink, level)).Sugar()
}

func SetLevel(lvl string) {
	switch strings.ToUpper(lvl) {
	case "DEBUG":
		level.SetLevel(LevelDebug.zapLevel())
	case "INFO":
		level.SetLevel(LevelInfo.zapLevel())
	case "WARN":
		level.SetLevel(LevelWarn.zapLevel())
	case "ERROR":
		level.SetLevel(LevelError.zapLevel())
	}
}

// SetFormat switches between "text" and "json" output.
func SetFormat(f string) error {
	f = strings.ToLower(f)
	if f != "text" && f != "json" {
		return fmt.Errorf("unsupported log format %q", f)
	}

	mu.Lock()
	defer mu.Unlock()
	encoding = f
	sugar = build()
	return nil
}

// SetOutput directs logs to "stdout", "stderr" or a file path (appended).
func SetOutput(output string) error {
	var (
		ws zapcore.WriteSyncer
		c  io.Closer
	)

	switch strings.ToLower(output) {
	case "", "stdout":
		ws = zapcore.Lock(os.Stdout)
	case "stderr":
		ws = zapcore.Lock(os.Stderr)
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file %q: %w", output, err)
		}
		ws = zapcore.Lock(f)
		c = f
	}

	swap(ws, c)
	return nil
}

// SetWriter directs logs to w.
func SetWriter(w io.Writer) {
	swap(zapcore.Lock(zapcore.AddSync(w)), nil)
}

func swap(ws zapcore.WriteSyncer, c io.Closer) {
	mu.Lock()
	defer mu.Unlock()

	_ = sugar.Sync()
	if closer != nil {
		_ = closer.Close()
	}
	sink = ws
	closer = c
	sugar = build()
}

// Sync flushes buffered entries.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return sugar.Sync()
}

// IsDebugEnabled reports whether Debug messages are emitted.
func IsDebugEnabled() bool {
	return level.Enabled(zapcore.DebugLevel)
}

func log(lvl Level, format string, v ...any) {
	mu.RLock()
	s := sugar
	mu.RUnlock()

	switch lvl {
	case LevelDebug:
		s.Debugf(format, v...)
	case LevelInfo:
		s.Infof(format, v...)
	case LevelWarn:
		s.Warnf(format, v...)
	case LevelError:
		s.Errorf(format, v...)
	}
}

func Debug(format string, v ...any) {
	log(LevelDebug, format, v...)
}

func Info(format string, v ...any) {
	log(LevelInfo, format, v...)
}

func Warn(format string, v ...any) {
	log(LevelWarn, format, v...)
}

func Error(format string, v ...any) {
	log(LevelError, format, v...)
}
