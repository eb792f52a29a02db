// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"context"
	"os"

	"github.com/matt-FFFFFF/fanout/internal/ctxlog"
)

// Watch reads sigCh until it is closed or a signal kind arrives twice.
// The second signal of a kind closes sigCh and calls cancel.
func Watch(ctx context.Context, sigCh chan os.Signal, cancel context.CancelFunc) {
	seen := make(map[os.Signal]struct{})

	for sig := range sigCh {
		if _, ok := seen[sig]; ok {
			ctxlog.Warn(ctx, "second signal received, cancelling run", "signal", sig.String())
			close(sigCh)
			cancel()

			return
		}

		ctxlog.Warn(ctx, "signal received, waiting for workers; send again to cancel", "signal", sig.String())

		seen[sig] = struct{}{}
	}
}
