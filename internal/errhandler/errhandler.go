// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package errhandler decides what happens when processing an item fails.
package errhandler

import (
	"context"

	"github.com/matt-FFFFFF/fanout/internal/ctxlog"
	"github.com/matt-FFFFFF/fanout/internal/logger"
)

// Handler is notified once for every item whose processing failed.
// A non-nil return aborts the run with that error.
type Handler interface {
	HandleError(ctx context.Context, item string, err error, l logger.Logger) error
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc func(ctx context.Context, item string, err error, l logger.Logger) error

// HandleError implements Handler.
func (f HandlerFunc) HandleError(ctx context.Context, item string, err error, l logger.Logger) error {
	return f(ctx, item, err, l)
}

// Suppress swallows every failure so the run continues.
var Suppress Handler = HandlerFunc(func(context.Context, string, error, logger.Logger) error {
	return nil
})

// FailFast returns the first failure, which stops the run.
var FailFast Handler = HandlerFunc(func(_ context.Context, _ string, err error, _ logger.Logger) error {
	return err
})

// Logging reports the failure to the run logger, then defers to next.
func Logging(next Handler) Handler {
	if next == nil {
		next = Suppress
	}

	return HandlerFunc(func(ctx context.Context, item string, err error, l logger.Logger) error {
		ctxlog.Debug(ctx, "item failed", "item", item, "error", err)

		if l != nil {
			l.LogItemProcessingFailed(item, err)
		}

		return next.HandleError(ctx, item, err, l)
	})
}
