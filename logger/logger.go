// Package logger builds the zap loggers used by the CLI and the batch
// converter.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tiffstack/contracts"
)

type LogFormat string

const (
	FormatConsole LogFormat = "CONSOLE"
	FormatJSON    LogFormat = "JSON"
)

// Component names passed to Named.
const (
	ComponentCLI       = "cli"
	ComponentConverter = "converter"
	ComponentPolicy    = "policy"
)

func getLogLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05 MST"))
}

// New creates a logger writing to stderr.
func New(level string, format LogFormat) *zap.Logger {
	return NewWithWriter(os.Stderr, level, format)
}

func NewWithWriter(w io.Writer, level string, format LogFormat) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "component",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if LogFormat(strings.ToUpper(string(format))) == FormatJSON {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoderConfig.EncodeTime = timeEncoder
		encoderConfig.ConsoleSeparator = " | "
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), zap.NewAtomicLevelAt(getLogLevel(level)))
	return zap.New(core)
}

// DiagnosticsSink logs downgrade diagnostics as warnings.
type DiagnosticsSink struct {
	log *zap.SugaredLogger
}

func NewDiagnosticsSink(log *zap.SugaredLogger) *DiagnosticsSink {
	return &DiagnosticsSink{log: log}
}

func (s *DiagnosticsSink) Emit(d contracts.Diagnostic) {
	s.log.Warnw("parameter downgraded", "field", d.Field, "reason", d.Reason)
}
