// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package launcher

import (
	"context"
	"io"
)

// Stream identifies which worker pipe a chunk of output came from.
type Stream int

const (
	// Stdout is the worker's standard output, where progress markers are written.
	Stdout Stream = iota
	// Stderr is the worker's standard error.
	Stderr
)

// OutputFunc receives worker output as it arrives.
// It may be called concurrently for different workers and streams.
type OutputFunc func(stream Stream, chunk string)

// Worker is a running worker process.
type Worker interface {
	// Stdin is where items are written. Closing it ends the worker's segment.
	Stdin() io.WriteCloser
	// Running reports whether the worker has not exited yet.
	Running() bool
	// Done is closed once the worker has exited and its output has been delivered.
	Done() <-chan struct{}
	// Err is the exit error, valid once Done is closed.
	Err() error
	// CommandLine is the quoted command line, for logging.
	CommandLine() string
}

// StartOptions describes the worker process to start.
type StartOptions struct {
	Command          []string
	WorkingDirectory string
	Env              map[string]string
	// ProgressSymbol is held back on stdout until it is complete.
	ProgressSymbol string
	Output         OutputFunc
}

// Spawner starts worker processes.
type Spawner interface {
	Start(ctx context.Context, opts StartOptions) (Worker, error)
}

// SpawnerFunc adapts a function to a Spawner.
type SpawnerFunc func(ctx context.Context, opts StartOptions) (Worker, error)

// Start implements Spawner.
func (f SpawnerFunc) Start(ctx context.Context, opts StartOptions) (Worker, error) {
	return f(ctx, opts)
}
