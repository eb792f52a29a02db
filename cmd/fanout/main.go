// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main contains the fanout command-line interface (CLI).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/matt-FFFFFF/fanout"
	"github.com/matt-FFFFFF/fanout/cmd/fanout/run"
	"github.com/matt-FFFFFF/fanout/cmd/fanout/schema"
	"github.com/matt-FFFFFF/fanout/cmd/fanout/version"
	"github.com/matt-FFFFFF/fanout/internal/ctxlog"
	"github.com/matt-FFFFFF/fanout/internal/signalbroker"
	"github.com/urfave/cli/v3"
)

// rootCmd is the root command for the CLI.
var rootCmd = &cli.Command{
	Commands: []*cli.Command{
		run.NewRunCmd(),
		schema.NewSchemaCmd(),
		version.VersionCmd,
	},
	Writer:    os.Stdout,
	ErrWriter: os.Stderr,
	Name:      "fanout",
	Description: `fanout runs a shell command for every item of a list.
Large lists are split into segments that are streamed to worker processes,
and progress is aggregated from the progress symbols the workers print.`,
	Usage:     "fanout run --exec 'gzip \"$ITEM\"' --source 'files:*.log'",
	Copyright: "Copyright (c) matt-FFFFFF 2025. All rights reserved.",
	Authors: []any{
		"Matt White (matt-FFFFFF)",
	},
	EnableShellCompletion: true,
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = ctxlog.New(ctx, ctxlog.DefaultLogger)
	defer cancel()

	sigCh := signalbroker.New(ctx)

	go signalbroker.Watch(ctx, sigCh, cancel)

	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", fanout.Version, fanout.Commit)

	err := rootCmd.Run(ctx, os.Args)

	if ctx.Err() != nil {
		ctxlog.Error(ctx, "command terminated due to cancellation", "error", ctx.Err())
		os.Exit(1)
	}

	if err != nil {
		ctxlog.Error(ctx, "command execution failed", "error", err)
		os.Exit(1)
	}

	ctxlog.Info(ctx, "command completed successfully")
}
