// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package ctxlog carries a structured slog logger on a context.Context.
//
// The log level is read from the FANOUT_LOG_LEVEL environment variable and can be
// "DEBUG", "INFO", "WARN" or "ERROR". Any other value falls back to "WARN".
// Log records are written to stderr: a worker's stdout is reserved for progress markers.
package ctxlog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LevelEnvVar is the environment variable that sets the log level.
const LevelEnvVar = "FANOUT_LOG_LEVEL"

type loggerKey struct{}

// LevelVar is shared by the default loggers so the level can be changed at runtime.
var LevelVar = &slog.LevelVar{}

// DefaultLogger is the pretty console logger used when no logger is on the context.
var DefaultLogger = slog.New(NewPrettyHandler(&slog.HandlerOptions{
	Level: LevelVar,
},
	WithAutoColour(),
	WithDestinationWriter(os.Stderr),
))

// JSONLogger writes JSON records to stderr.
var JSONLogger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
	Level: LevelVar,
}))

func init() {
	LevelVar.Set(ParseLevel(os.Getenv(LevelEnvVar)))
}

// New returns a context carrying logger. A nil logger means DefaultLogger.
func New(ctx context.Context, logger *slog.Logger) context.Context {
	if logger == nil {
		logger = DefaultLogger
	}

	return context.WithValue(ctx, loggerKey{}, logger)
}

// NewForTUI returns a context whose logger writes uncoloured records to w,
// so that logging does not draw over a full screen program.
func NewForTUI(ctx context.Context, w io.Writer) context.Context {
	return New(ctx, slog.New(NewPrettyHandler(&slog.HandlerOptions{Level: LevelVar}, WithDestinationWriter(w))))
}

// Logger returns the logger from the context, or DefaultLogger if there is none.
func Logger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(loggerKey{}).(*slog.Logger)
	if !ok || logger == nil {
		return DefaultLogger
	}

	return logger
}

// WithAttrs returns a context whose logger carries the given attributes on every record.
func WithAttrs(ctx context.Context, args ...any) context.Context {
	return New(ctx, Logger(ctx).With(args...))
}

// Info logs at info level using the context logger.
func Info(ctx context.Context, msg string, args ...any) {
	Logger(ctx).Info(msg, args...)
}

// Debug logs at debug level using the context logger.
func Debug(ctx context.Context, msg string, args ...any) {
	Logger(ctx).Debug(msg, args...)
}

// Warn logs at warn level using the context logger.
func Warn(ctx context.Context, msg string, args ...any) {
	Logger(ctx).Warn(msg, args...)
}

// Error logs at error level using the context logger.
func Error(ctx context.Context, msg string, args ...any) {
	Logger(ctx).Error(msg, args...)
}

// ParseLevel converts a level name to a slog.Level. Unknown names are slog.LevelWarn.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
