// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package signalbroker relays termination signals to the orchestrator.
//
// Workers share the terminal's process group, so an interactive Ctrl-C already reaches them.
// The orchestrator therefore ignores the first signal of a kind and cancels the run
// context on the second, which makes the launcher kill any worker that is still running.
package signalbroker

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/matt-FFFFFF/fanout/internal/ctxlog"
)

var termSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
	syscall.SIGQUIT,
	os.Interrupt,
}

// New subscribes to sigs, or to the termination signals when none are given.
func New(ctx context.Context, sigs ...os.Signal) chan os.Signal {
	ch := make(chan os.Signal, 1)

	if len(sigs) == 0 {
		sigs = termSignals
	}

	ctxlog.Debug(ctx, "subscribing to signals", "signals", sigs)
	signal.Notify(ch, sigs...)

	return ch
}

// Stop unsubscribes ch from all signals.
func Stop(ch chan os.Signal) {
	signal.Stop(ch)
}
