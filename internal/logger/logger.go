// Package logger builds the zap loggers shared by the server, the analytics
// worker and the mtm CLI.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config selects level, format and destination of a process logger.
type Config struct {
	// Level is debug, info, warn or error. Anything else logs at info.
	Level string
	// Format is json (default) or console.
	Format string
	// Output is a file path, stdout or stderr. Empty means stdout.
	Output string
	// Service, when set, is attached to every entry.
	Service string
}

// New builds the logger described by cfg.
func New(cfg Config) (*zap.Logger, error) {
	level, levelOK := parseLevel(cfg.Level)
	format := strings.ToLower(cfg.Format)
	if format != FormatConsole {
		format = FormatJSON
	}
	output := cfg.Output
	if output == "" {
		output = "stdout"
	}

	zcfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		DisableCaller:     true,
		DisableStacktrace: true,
		Encoding:          format,
		EncoderConfig:     encoderConfig(format),
		OutputPaths:       []string{output},
		ErrorOutputPaths:  []string{"stderr"},
	}
	log, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	if cfg.Service != "" {
		log = log.With(zap.String("service", cfg.Service))
	}
	if !levelOK {
		log.Warn("Unknown log level, using info", zap.String("requested", cfg.Level))
	}
	return log, nil
}

func parseLevel(s string) (zapcore.Level, bool) {
	if strings.TrimSpace(s) == "" {
		return zapcore.InfoLevel, true
	}
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return zapcore.InfoLevel, false
	}
	return level, true
}

// encoderConfig writes ISO8601 timestamps. Console output colors the level.
func encoderConfig(format string) zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "timestamp"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	if format == FormatConsole {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return ec
}
