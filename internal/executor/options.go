// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package executor

import (
	"context"
	"io"
	"os"
	"runtime"

	"github.com/matt-FFFFFF/fanout/internal/errhandler"
	"github.com/matt-FFFFFF/fanout/internal/itemsource"
	"github.com/matt-FFFFFF/fanout/internal/launcher"
	"github.com/matt-FFFFFF/fanout/internal/logger"
)

const (
	// DefaultBatchSize is the number of items between BeforeBatch and AfterBatch.
	DefaultBatchSize = 50
	// DefaultSegmentSize is the number of items streamed to a single worker.
	DefaultSegmentSize = 50
	// DefaultProgressSymbol is written by a child for every item it attempted.
	DefaultProgressSymbol = "."
)

// ExitPolicy decides the exit code of a run in which items failed.
type ExitPolicy int

const (
	// ExitAlwaysSucceed reports success as long as the run completed, whatever happened to individual items.
	ExitAlwaysSucceed ExitPolicy = iota
	// ExitFailOnItemError reports failure when at least one item failed.
	ExitFailOnItemError
)

// NounFunc names the items of a run, given how many there are.
type NounFunc func(count int) string

// Nouns returns a NounFunc using singular for exactly one item and plural otherwise.
func Nouns(singular, plural string) NounFunc {
	return func(count int) string {
		if count == 1 {
			return singular
		}

		return plural
	}
}

// Counter estimates how many items src holds.
// The returned source replaces src, so counters may consume it.
type Counter func(src itemsource.Source) (itemsource.Source, int, error)

// Runner streams items to workers.
type Runner interface {
	Run(ctx context.Context, src itemsource.Source) error
}

// LauncherFactory creates the Runner for a multi-worker run.
type LauncherFactory interface {
	Create(cfg launcher.Config) (Runner, error)
}

// LauncherFactoryFunc adapts a function to a LauncherFactory.
type LauncherFactoryFunc func(cfg launcher.Config) (Runner, error)

// Create implements LauncherFactory.
func (f LauncherFactoryFunc) Create(cfg launcher.Config) (Runner, error) {
	return f(cfg)
}

// ProcessLauncherFactory creates pools of OS processes.
var ProcessLauncherFactory LauncherFactory = LauncherFactoryFunc(func(cfg launcher.Config) (Runner, error) {
	p, err := launcher.New(launcher.OSSpawner{}, cfg)
	if err != nil {
		return nil, err
	}

	return p, nil
})

// Option configures an Executor.
type Option func(*Executor)

// WithBatchSize sets the number of items per batch.
func WithBatchSize(n int) Option {
	return func(e *Executor) {
		e.batchSize = n
	}
}

// WithSegmentSize sets the number of items streamed to each worker.
func WithSegmentSize(n int) Option {
	return func(e *Executor) {
		e.segmentSize = n
	}
}

// WithProgressSymbol sets the symbol a child writes for every item. It must be a single grapheme.
func WithProgressSymbol(symbol string) Option {
	return func(e *Executor) {
		e.progressSymbol = symbol
	}
}

// WithItemNoun sets how items are named in progress output.
func WithItemNoun(noun NounFunc) Option {
	return func(e *Executor) {
		e.itemNoun = noun
	}
}

// WithSource sets where the orchestrator gets its items from.
func WithSource(p itemsource.Provider) Option {
	return func(e *Executor) {
		e.source = p
	}
}

// WithChildInput sets the reader a child reads its items from. Defaults to stdin.
func WithChildInput(r io.Reader) Option {
	return func(e *Executor) {
		e.childInput = r
	}
}

// WithOutput sets where a child writes its progress symbols. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(e *Executor) {
		e.output = w
	}
}

// WithErrorHandler sets the handler notified of every failed item.
func WithErrorHandler(h errhandler.Handler) Option {
	return func(e *Executor) {
		e.errorHandler = h
	}
}

// WithLogger sets the run logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// WithWorkerCommand sets the argv of a child invocation. The first element must exist.
func WithWorkerCommand(argv ...string) Option {
	return func(e *Executor) {
		e.workerCommand = argv
	}
}

// WithWorkingDirectory sets the working directory of the workers.
func WithWorkingDirectory(dir string) Option {
	return func(e *Executor) {
		e.workingDirectory = dir
	}
}

// WithEnv adds environment variables to the workers.
func WithEnv(env map[string]string) Option {
	return func(e *Executor) {
		e.env = env
	}
}

// WithLauncherFactory replaces ProcessLauncherFactory.
func WithLauncherFactory(f LauncherFactory) Option {
	return func(e *Executor) {
		e.launcherFactory = f
	}
}

// WithCounter replaces itemsource.Count as the item count estimator.
func WithCounter(c Counter) Option {
	return func(e *Executor) {
		e.counter = c
	}
}

// WithDefaultWorkers sets the worker ceiling used when the run does not request a count.
func WithDefaultWorkers(n int) Option {
	return func(e *Executor) {
		e.defaultWorkers = n
	}
}

// WithExitPolicy sets the exit policy.
func WithExitPolicy(p ExitPolicy) Option {
	return func(e *Executor) {
		e.exitPolicy = p
	}
}

func defaults() *Executor {
	return &Executor{
		batchSize:       DefaultBatchSize,
		segmentSize:     DefaultSegmentSize,
		progressSymbol:  DefaultProgressSymbol,
		itemNoun:        Nouns("item", "items"),
		source:          itemsource.Static(),
		childInput:      os.Stdin,
		output:          os.Stdout,
		errorHandler:    errhandler.Logging(errhandler.Suppress),
		logger:          logger.Nop{},
		launcherFactory: ProcessLauncherFactory,
		counter:         itemsource.Count,
		defaultWorkers:  runtime.NumCPU(),
		exitPolicy:      ExitAlwaysSucceed,
	}
}
