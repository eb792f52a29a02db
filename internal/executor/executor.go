// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/matt-FFFFFF/fanout/internal/ctxlog"
	"github.com/matt-FFFFFF/fanout/internal/errhandler"
	"github.com/matt-FFFFFF/fanout/internal/fsys"
	"github.com/matt-FFFFFF/fanout/internal/itemsource"
	"github.com/matt-FFFFFF/fanout/internal/launcher"
	"github.com/matt-FFFFFF/fanout/internal/logger"
	"github.com/matt-FFFFFF/fanout/internal/progress"
	"github.com/rivo/uniseg"
)

// Executor runs a RunPolicy either in this process or across worker processes.
type Executor struct {
	policy           RunPolicy
	batchSize        int
	segmentSize      int
	progressSymbol   string
	itemNoun         NounFunc
	source           itemsource.Provider
	childInput       io.Reader
	output           io.Writer
	errorHandler     errhandler.Handler
	logger           logger.Logger
	workerCommand    []string
	workingDirectory string
	env              map[string]string
	launcherFactory  LauncherFactory
	counter          Counter
	defaultWorkers   int
	exitPolicy       ExitPolicy
}

// New validates the options and returns an Executor for policy.
func New(policy RunPolicy, opts ...Option) (*Executor, error) {
	e := defaults()
	e.policy = policy

	for _, opt := range opts {
		opt(e)
	}

	if err := e.validate(); err != nil {
		return nil, err
	}

	return e, nil
}

func (e *Executor) validate() error {
	if e.policy == nil {
		return invalidConfig("run policy is nil")
	}

	if e.batchSize < 1 {
		return invalidConfig("batch size must be 1 or greater, got %d", e.batchSize)
	}

	if e.segmentSize < 1 {
		return invalidConfig("segment size must be 1 or greater, got %d", e.segmentSize)
	}

	if e.defaultWorkers < 1 {
		return invalidConfig("default number of workers must be 1 or greater, got %d", e.defaultWorkers)
	}

	if n := uniseg.GraphemeClusterCount(e.progressSymbol); n != 1 || strings.ContainsAny(e.progressSymbol, "\r\n") {
		return invalidConfig("progress symbol must be a single character, got %d for %q", n, e.progressSymbol)
	}

	if len(e.workerCommand) > 0 {
		if err := e.checkEntryPoint(e.workerCommand[0]); err != nil {
			return err
		}
	}

	if e.errorHandler == nil {
		e.errorHandler = errhandler.Suppress
	}

	if e.logger == nil {
		e.logger = logger.Nop{}
	}

	return nil
}

// checkEntryPoint makes sure the worker executable exists.
// Bare names are looked up in PATH, anything else on the filesystem relative to the working directory.
func (e *Executor) checkEntryPoint(entry string) error {
	if !strings.ContainsRune(entry, '/') && !strings.ContainsRune(entry, filepath.Separator) {
		if _, err := exec.LookPath(entry); err != nil {
			return invalidConfig("the worker entry point %q could not be found in PATH", entry)
		}

		return nil
	}

	wd := e.workingDirectory
	if wd == "" {
		wd, _ = os.Getwd()
	}

	path := entry
	if !filepath.IsAbs(path) {
		path = filepath.Join(wd, path)
	}

	if _, err := fsys.FsFactory().Stat(path); err != nil {
		return invalidConfig("the worker entry point could not be found at the path %q (working directory: %s)", entry, wd)
	}

	return nil
}

// Execute runs the policy and returns the process exit code.
// A non-nil error means the run was aborted.
func (e *Executor) Execute(ctx context.Context, cfg RunConfiguration) (int, error) {
	if cfg.NumberOfWorkersDefined && cfg.NumberOfWorkers < 1 {
		return 1, invalidConfig("number of workers must be 1 or greater, got %d", cfg.NumberOfWorkers)
	}

	if cfg.Child {
		ctx = ctxlog.WithAttrs(ctx, "role", "child")
		return e.executeChild(ctx, cfg)
	}

	return e.executeMain(ctx, cfg)
}

func (e *Executor) executeChild(ctx context.Context, cfg RunConfiguration) (int, error) {
	var src itemsource.Source = itemsource.FromReader(e.childInput)
	if !cfg.ShouldPickItemsFromSource() {
		src = itemsource.Single(cfg.Item)
	}

	failed, err := e.processBatches(ctx, src, func() error {
		if _, err := io.WriteString(e.output, e.progressSymbol); err != nil {
			return errors.Join(ErrWriteProgress, err)
		}

		return nil
	}, nil)
	if err != nil {
		return 1, err
	}

	return e.exitCode(failed), nil
}

func (e *Executor) executeMain(ctx context.Context, cfg RunConfiguration) (int, error) {
	src, err := e.mainSource(ctx, cfg)
	if err != nil {
		return 1, err
	}

	src, count, err := e.counter(src)
	if err != nil {
		return 1, fmt.Errorf("failed to count items: %w", err)
	}

	workers, parallel := e.plan(cfg, count)
	noun := e.itemNoun(count)

	e.logger.LogConfiguration(progress.Summary{
		SegmentSize: e.segmentSize,
		BatchSize:   e.batchSize,
		TotalItems:  count,
		Segments:    ceilDiv(count, e.segmentSize),
		Batches:     ceilDiv(count, e.batchSize),
		Workers:     workers,
		ItemNoun:    noun,
		Parallel:    parallel,
	})

	ctxlog.Debug(ctx, "run planned", "items", count, "workers", workers, "parallel", parallel)

	if err := e.policy.BeforeFirst(ctx); err != nil {
		return 1, fmt.Errorf("%w: before first: %w", ErrHook, err)
	}

	e.logger.StartProgress(count)

	var code int

	if parallel {
		code, err = e.runWorkers(ctx, src, workers)
	} else {
		var failed bool

		failed, err = e.processBatches(ctx, src, nil, func() { e.logger.Advance(1) })
		code = e.exitCode(failed)
	}

	if err != nil {
		return 1, err
	}

	e.logger.Finish(noun)

	if err := e.policy.AfterLast(ctx); err != nil {
		return 1, fmt.Errorf("%w: after last: %w", ErrHook, err)
	}

	return code, nil
}

func (e *Executor) mainSource(ctx context.Context, cfg RunConfiguration) (itemsource.Source, error) {
	if !cfg.ShouldPickItemsFromSource() {
		return itemsource.Single(cfg.Item), nil
	}

	src, err := e.source(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch items: %w", err)
	}

	return src, nil
}

// plan returns the worker count to report and whether children are spawned.
func (e *Executor) plan(cfg RunConfiguration, count int) (int, bool) {
	workers := cfg.NumberOfWorkers
	if !cfg.NumberOfWorkersDefined {
		workers = max(1, min(e.defaultWorkers, ceilDiv(count, e.segmentSize)))
	}

	if count > e.segmentSize && (cfg.NumberOfWorkersDefined || workers > 1) {
		return workers, true
	}

	if cfg.NumberOfWorkersDefined {
		return workers, false
	}

	return 1, false
}

func (e *Executor) runWorkers(ctx context.Context, src itemsource.Source, workers int) (int, error) {
	if len(e.workerCommand) == 0 {
		return 1, invalidConfig("a worker command is required to run %d workers", workers)
	}

	l := logger.NewLocked(e.logger)

	runner, err := e.launcherFactory.Create(launcher.Config{
		Command:           e.workerCommand,
		WorkingDirectory:  e.workingDirectory,
		Env:               e.env,
		NumberOfWorkers:   workers,
		SegmentSize:       e.segmentSize,
		ProgressSymbol:    e.progressSymbol,
		Logger:            l,
		Output:            e.processOutput(l),
		FailOnWorkerError: e.exitPolicy == ExitFailOnItemError,
	})
	if err != nil {
		return 1, err
	}

	err = runner.Run(ctx, src)
	if errors.Is(err, launcher.ErrWorkerFailed) {
		ctxlog.Warn(ctx, "workers reported failures", "error", err)
		return 1, nil
	}

	if err != nil {
		return 1, err
	}

	return 0, nil
}

// processOutput counts progress symbols in worker stdout. Anything else, and all of stderr, is reported as unexpected.
func (e *Executor) processOutput(l logger.Logger) launcher.OutputFunc {
	return func(stream launcher.Stream, chunk string) {
		if stream == launcher.Stderr {
			l.LogUnexpectedOutput(chunk, e.progressSymbol)
			return
		}

		steps := strings.Count(chunk, e.progressSymbol)

		if rest := strings.ReplaceAll(chunk, e.progressSymbol, ""); rest != "" {
			l.LogUnexpectedOutput(rest, e.progressSymbol)
		}

		l.Advance(steps)
	}
}

// processBatches runs every item of src, batch by batch.
// attempted is called after every item, succeeded only after items that did not fail.
// It reports whether any item failed.
func (e *Executor) processBatches(ctx context.Context, src itemsource.Source, attempted func() error, succeeded func()) (bool, error) {
	var failed bool

	for batch, err := range itemsource.Batches(src, e.batchSize) {
		if err != nil {
			return failed, err
		}

		if err := ctx.Err(); err != nil {
			return failed, err
		}

		if err := e.policy.BeforeBatch(ctx, batch); err != nil {
			return failed, fmt.Errorf("%w: before batch: %w", ErrHook, err)
		}

		for _, item := range batch {
			if err := e.processItem(ctx, item); err != nil {
				failed = true

				if herr := e.errorHandler.HandleError(ctx, item, err, e.logger); herr != nil {
					return failed, herr
				}
			} else if succeeded != nil {
				succeeded()
			}

			if attempted != nil {
				if err := attempted(); err != nil {
					return failed, err
				}
			}
		}

		if err := e.policy.AfterBatch(ctx, batch); err != nil {
			return failed, fmt.Errorf("%w: after batch: %w", ErrHook, err)
		}
	}

	return failed, nil
}

// processItem is the failure boundary around a single item.
func (e *Executor) processItem(ctx context.Context, item string) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &ErrItemPanic{Item: item, Value: v, Stack: debug.Stack()}
		}
	}()

	return e.policy.ProcessItem(ctx, item)
}

func (e *Executor) exitCode(failed bool) int {
	if failed && e.exitPolicy == ExitFailOnItemError {
		return 1
	}

	return 0
}

func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}
