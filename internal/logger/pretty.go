// Package logger builds the zap loggers used by the command-line tools: a
// colored console logger, an optional JSON log file and an in-memory buffer
// for the terminal UI.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Colors for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
	ColorBold   = "\033[1m"
)

func prettyEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:       "msg",
		LevelKey:         "level",
		TimeKey:          "time",
		NameKey:          "logger",
		CallerKey:        "",
		StacktraceKey:    "",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      customLevelEncoder,
		EncodeTime:       customTimeEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: " ",
	}
}

// PrettyEncoder creates a user-friendly console encoder
func PrettyEncoder() zapcore.Encoder {
	return zapcore.NewConsoleEncoder(prettyEncoderConfig())
}

// customLevelEncoder formats log levels with colors
func customLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.DebugLevel:
		enc.AppendString(fmt.Sprintf("%s[DEBUG]%s", ColorCyan, ColorReset))
	case zapcore.InfoLevel:
		enc.AppendString(fmt.Sprintf("%s[INFO]%s", ColorGreen, ColorReset))
	case zapcore.WarnLevel:
		enc.AppendString(fmt.Sprintf("%s[WARN]%s", ColorYellow, ColorReset))
	case zapcore.ErrorLevel:
		enc.AppendString(fmt.Sprintf("%s[ERROR]%s", ColorRed, ColorReset))
	case zapcore.FatalLevel:
		enc.AppendString(fmt.Sprintf("%s[FATAL]%s", ColorRed+ColorBold, ColorReset))
	default:
		enc.AppendString(fmt.Sprintf("[%s]", level.CapitalString()))
	}
}

func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05"))
}

func levelFor(debug bool) zapcore.Level {
	if debug {
		return zap.DebugLevel
	}
	return zap.InfoLevel
}

// CreatePrettyLogger creates a colored console logger on stdout.
func CreatePrettyLogger(debug bool) (*zap.Logger, error) {
	return newPrettyLogger(os.Stdout, debug), nil
}

func newPrettyLogger(w io.Writer, debug bool) *zap.Logger {
	core := zapcore.NewCore(PrettyEncoder(), zapcore.AddSync(zapcore.Lock(zapcore.AddSync(w))), levelFor(debug))
	return zap.New(core)
}

// Options configures New.
type Options struct {
	Debug bool
	// File receives JSON lines in addition to the console when set.
	File          string
	FlushInterval time.Duration
	Rotation      Rotation
	// Console defaults to stdout.
	Console io.Writer
}

// New tees the pretty console logger with a JSON file logger. The returned
// function flushes and closes the file.
func New(opts Options) (*zap.Logger, func() error, error) {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	level := levelFor(opts.Debug)
	cores := []zapcore.Core{
		zapcore.NewCore(PrettyEncoder(), zapcore.AddSync(zapcore.Lock(zapcore.AddSync(console))), level),
	}
	closeFn := func() error { return nil }

	if opts.File != "" {
		interval := opts.FlushInterval
		if interval <= 0 {
			interval = time.Second
		}
		fw, err := NewSafeFileWriter(opts.File, interval, opts.Rotation, zap.NewNop())
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(fw),
			level,
		))
		closeFn = fw.Close
	}

	return zap.New(zapcore.NewTee(cores...)), closeFn, nil
}

// CreateTUILoggerWithBuffer creates a logger that only writes to buffer so
// the terminal UI owns stdout.
func CreateTUILoggerWithBuffer(debug bool, buffer *LogBuffer) (*zap.Logger, error) {
	if buffer == nil {
		return nil, fmt.Errorf("buffer is required for TUI logger")
	}

	encoderConfig := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(buffer), levelFor(debug))
	return zap.New(core), nil
}
