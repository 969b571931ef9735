// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package logx builds the process logger.
package logx

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config configures the logger.
type Config struct {
	// One of "debug", "info", "warn" or "error".
	//
	// Default is "info".
	Level string

	// Development enables console output, stack traces
	// on warnings and DPanic panics.
	//
	// Default is false (JSON output).
	Development bool

	// Default is "vstream".
	Name string
}

// ParseLevel converts s to a zapcore.Level.
// The empty string is taken as "info".
func ParseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("logx: invalid level %q", s)
	}
	return lvl, nil
}

// New creates a new logger from cfg.
func New(cfg Config) (*zap.Logger, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = "vstream"
	}

	enc := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	encoding := "json"
	if cfg.Development {
		encoding = "console"
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc := zap.Config{
		Level:            zap.NewAtomicLevelAt(lvl),
		Development:      cfg.Development,
		Encoding:         encoding,
		EncoderConfig:    enc,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	log, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("logx: %w", err)
	}
	return log.Named(cfg.Name), nil
}
