// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package ctxlog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/TylerBrock/colorjson"
	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	// ErrMarshalAttribute is returned when the record attributes cannot be rendered.
	ErrMarshalAttribute = errors.New("error when marshaling attribute")
	// ErrIoWrite is returned when the record cannot be written to the destination.
	ErrIoWrite = errors.New("error when writing to output")
)

// TimeFormat is the timestamp layout of pretty log records.
const TimeFormat = "[15:04:05.000]"

// PrettyHandler renders records as `[time] LEVEL: message {attrs}`.
// Attributes are produced by an inner JSON handler so groups and WithAttrs behave like slog's own handlers.
type PrettyHandler struct {
	h                slog.Handler
	r                func([]string, slog.Attr) slog.Attr
	b                *bytes.Buffer
	m                *sync.Mutex
	writer           io.Writer
	colour           bool
	outputEmptyAttrs bool
}

// NewPrettyHandler creates a PrettyHandler. It writes to stderr unless WithDestinationWriter is given.
func NewPrettyHandler(handlerOptions *slog.HandlerOptions, options ...Option) *PrettyHandler {
	if handlerOptions == nil {
		handlerOptions = &slog.HandlerOptions{}
	}

	buf := &bytes.Buffer{}
	handler := &PrettyHandler{
		b: buf,
		h: slog.NewJSONHandler(buf, &slog.HandlerOptions{
			Level:       handlerOptions.Level,
			AddSource:   handlerOptions.AddSource,
			ReplaceAttr: suppressDefaults(handlerOptions.ReplaceAttr),
		}),
		r:      handlerOptions.ReplaceAttr,
		m:      &sync.Mutex{},
		writer: os.Stderr,
	}

	for _, opt := range options {
		opt(handler)
	}

	return handler
}

// Enabled reports whether the inner handler accepts the level.
func (h *PrettyHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.h.Enabled(ctx, level)
}

// WithAttrs returns a handler that adds attrs to every record.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	c.h = h.h.WithAttrs(attrs)

	return c
}

// WithGroup returns a handler that nests subsequent attributes under name.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	c := h.clone()
	c.h = h.h.WithGroup(name)

	return c
}

func (h *PrettyHandler) clone() *PrettyHandler {
	return &PrettyHandler{
		h:                h.h,
		r:                h.r,
		b:                h.b,
		m:                h.m,
		writer:           h.writer,
		colour:           h.colour,
		outputEmptyAttrs: h.outputEmptyAttrs,
	}
}

// Handle implements slog.Handler.
func (h *PrettyHandler) Handle(ctx context.Context, r slog.Record) error {
	level := h.replace(slog.Attr{Key: slog.LevelKey, Value: slog.AnyValue(r.Level)})
	timestamp := h.replace(slog.Attr{Key: slog.TimeKey, Value: slog.StringValue(r.Time.Format(TimeFormat))})
	msg := h.replace(slog.Attr{Key: slog.MessageKey, Value: slog.StringValue(r.Message)})

	attrs, err := h.computeAttrs(ctx, r)
	if err != nil {
		return err
	}

	var attrsAsBytes []byte

	if h.outputEmptyAttrs || len(attrs) > 0 {
		formatter := colorjson.NewFormatter()
		formatter.Indent = 0
		formatter.DisabledColor = !h.colour

		attrsAsBytes, err = formatter.Marshal(attrs)
		if err != nil {
			return errors.Join(ErrMarshalAttribute, err)
		}
	}

	parts := make([]string, 0, 4)

	if !timestamp.Equal(slog.Attr{}) {
		parts = append(parts, h.paint(color.FgWhite, timestamp.Value.String()))
	}

	if !level.Equal(slog.Attr{}) {
		parts = append(parts, h.paint(levelColour(r.Level), level.Value.String()+":"))
	}

	if !msg.Equal(slog.Attr{}) {
		parts = append(parts, h.paint(color.FgHiWhite, msg.Value.String()))
	}

	if len(attrsAsBytes) > 0 {
		parts = append(parts, string(attrsAsBytes))
	}

	h.m.Lock()
	defer h.m.Unlock()

	if _, err := io.WriteString(h.writer, strings.Join(parts, " ")+"\n"); err != nil {
		return errors.Join(ErrIoWrite, err)
	}

	return nil
}

func (h *PrettyHandler) replace(a slog.Attr) slog.Attr {
	if h.r == nil {
		return a
	}

	return h.r([]string{}, a)
}

func (h *PrettyHandler) paint(attr color.Attribute, s string) string {
	c := color.New(attr)
	if h.colour {
		c.EnableColor()
	} else {
		c.DisableColor()
	}

	return c.Sprint(s)
}

func (h *PrettyHandler) computeAttrs(ctx context.Context, r slog.Record) (map[string]any, error) {
	h.m.Lock()
	defer func() {
		h.b.Reset()
		h.m.Unlock()
	}()

	if err := h.h.Handle(ctx, r); err != nil {
		return nil, fmt.Errorf("error when calling inner handler's Handle: %w", err)
	}

	var attrs map[string]any

	if err := json.Unmarshal(h.b.Bytes(), &attrs); err != nil {
		return nil, fmt.Errorf("error when unmarshaling inner handler's Handle result: %w", err)
	}

	return attrs, nil
}

func levelColour(l slog.Level) color.Attribute {
	switch {
	case l <= slog.LevelDebug:
		return color.FgWhite
	case l <= slog.LevelInfo:
		return color.FgCyan
	case l < slog.LevelWarn:
		return color.FgBlue
	case l < slog.LevelError:
		return color.FgYellow
	case l <= slog.LevelError+1:
		return color.FgRed
	default:
		return color.FgHiMagenta
	}
}

func suppressDefaults(next func([]string, slog.Attr) slog.Attr) func([]string, slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.TimeKey ||
			a.Key == slog.LevelKey ||
			a.Key == slog.MessageKey {
			return slog.Attr{}
		}

		if next == nil {
			return a
		}

		return next(groups, a)
	}
}

// Option configures a PrettyHandler.
type Option func(h *PrettyHandler)

// WithDestinationWriter sets where records are written.
func WithDestinationWriter(writer io.Writer) Option {
	return func(h *PrettyHandler) {
		h.writer = writer
	}
}

// WithColour forces coloured output.
func WithColour() Option {
	return func(h *PrettyHandler) {
		h.colour = true
	}
}

// WithAutoColour enables colour when stderr is a terminal and NO_COLOR is unset.
func WithAutoColour() Option {
	return func(h *PrettyHandler) {
		_, noColour := os.LookupEnv("NO_COLOR")
		h.colour = !noColour && term.IsTerminal(int(os.Stderr.Fd()))
	}
}

// WithOutputEmptyAttrs renders `{}` for records without attributes.
func WithOutputEmptyAttrs() Option {
	return func(h *PrettyHandler) {
		h.outputEmptyAttrs = true
	}
}
