// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging wraps charmbracelet/log with the level parsing and
// context plumbing shared by the CLI, the server, and the rewrite stage.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	defaultMu     sync.Mutex
	defaultLogger *log.Logger
)

// New creates a logger writing to stderr at the given level.
// Valid levels: "debug", "info", "warn", "error". Anything else is info.
func New(level string) *log.Logger {
	return NewWriter(os.Stderr, level)
}

// NewWriter creates a logger writing to w at the given level.
func NewWriter(w io.Writer, level string) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
	logger.SetLevel(ParseLevel(level))
	return logger
}

// ParseLevel maps a level name to a log.Level, defaulting to info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Default returns the process-wide logger.
func Default() *log.Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = New("info")
	}
	return defaultLogger
}

// SetDefault replaces the process-wide logger.
func SetDefault(logger *log.Logger) {
	defaultMu.Lock()
	defaultLogger = logger
	defaultMu.Unlock()
}

// SetLevel updates the level of the process-wide logger.
func SetLevel(level string) {
	Default().SetLevel(ParseLevel(level))
}

type contextKey struct{}

// FromContext returns the logger stored in ctx, or Default.
func FromContext(ctx context.Context) *log.Logger {
	if ctx == nil {
		return Default()
	}
	if logger, ok := ctx.Value(contextKey{}).(*log.Logger); ok && logger != nil {
		return logger
	}
	return Default()
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *log.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, contextKey{}, logger)
}
