// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/matt-FFFFFF/fanout/internal/ctxlog"
	"github.com/matt-FFFFFF/fanout/internal/itemsource"
	"github.com/matt-FFFFFF/fanout/internal/logger"
)

var (
	// ErrInvalidConfig is returned by New when the pool configuration cannot work.
	ErrInvalidConfig = errors.New("invalid launcher configuration")
	// ErrItemContainsNewline is returned when an item cannot be framed on a worker's stdin.
	ErrItemContainsNewline = errors.New("item contains a newline")
	// ErrStartWorker is returned when the spawner fails to start a worker.
	ErrStartWorker = errors.New("failed to start worker")
	// ErrWriteItem is recorded when an item cannot be written to a worker.
	ErrWriteItem = errors.New("failed to write item to worker")
	// ErrWorkerFailed wraps worker exit errors when FailOnWorkerError is set.
	ErrWorkerFailed = errors.New("one or more workers failed")
)

// Config describes a pool.
type Config struct {
	// Command is the argv of every worker.
	Command          []string
	WorkingDirectory string
	Env              map[string]string
	// NumberOfWorkers is the ceiling on concurrently running workers.
	NumberOfWorkers int
	// SegmentSize is the number of items each worker receives.
	SegmentSize int
	// ProgressSymbol, if set, is never split across two stdout chunks.
	ProgressSymbol string
	Logger         logger.Logger
	Output         OutputFunc
	// OnWorkerExit, if set, is called for every reaped worker.
	OnWorkerExit func(Worker)
	// FailOnWorkerError makes Run return the worker exit errors.
	FailOnWorkerError bool
}

// Pool streams items to a bounded set of workers.
type Pool struct {
	spawner Spawner
	cfg     Config
}

// New validates cfg and returns a Pool.
func New(spawner Spawner, cfg Config) (*Pool, error) {
	var errs []error

	if spawner == nil {
		errs = append(errs, errors.New("spawner is nil"))
	}

	if len(cfg.Command) == 0 {
		errs = append(errs, errors.New("worker command is empty"))
	}

	if cfg.NumberOfWorkers < 1 {
		errs = append(errs, fmt.Errorf("number of workers must be at least 1, got %d", cfg.NumberOfWorkers))
	}

	if cfg.SegmentSize < 1 {
		errs = append(errs, fmt.Errorf("segment size must be at least 1, got %d", cfg.SegmentSize))
	}

	if len(errs) > 0 {
		return nil, errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.Nop{}
	}

	return &Pool{spawner: spawner, cfg: cfg}, nil
}

type slot struct {
	id     int
	worker Worker
	items  int
}

// run is the state of one Run call. It is only touched by the goroutine executing Run.
type run struct {
	*Pool
	ctx     context.Context
	exited  chan *slot
	running map[int]*slot
	open    *slot
	nextID  int
	errs    *multierror.Error
}

// Run streams every item of src to the workers and returns once all of them have exited.
// On context cancellation no further items are sent; the spawner is expected to stop the running workers.
func (p *Pool) Run(ctx context.Context, src itemsource.Source) error {
	r := &run{
		Pool:    p,
		ctx:     ctx,
		exited:  make(chan *slot),
		running: make(map[int]*slot, p.cfg.NumberOfWorkers),
	}

	runErr := r.stream(src)

	r.closeSegment()
	r.drain()

	switch {
	case runErr != nil:
		return runErr
	case ctx.Err() != nil:
		return ctx.Err()
	case p.cfg.FailOnWorkerError && r.errs.ErrorOrNil() != nil:
		return fmt.Errorf("%w: %w", ErrWorkerFailed, r.errs.ErrorOrNil())
	}

	return nil
}

func (r *run) stream(src itemsource.Source) error {
	for r.ctx.Err() == nil {
		item, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}

		if strings.Contains(item, "\n") {
			return fmt.Errorf("%w: %q", ErrItemContainsNewline, item)
		}

		// A worker that exited before its segment was full cannot take more items.
		if r.open != nil && !r.open.worker.Running() {
			ctxlog.Debug(r.ctx, "worker exited mid-segment", "slot", r.open.id, "items", r.open.items)
			r.closeSegment()
		}

		if r.open == nil {
			if !r.waitForSlot() {
				return nil
			}

			if err := r.startWorker(); err != nil {
				return err
			}
		}

		r.send(item)
	}

	return nil
}

// waitForSlot blocks until fewer than NumberOfWorkers workers are running.
// It returns false if the context is cancelled first.
func (r *run) waitForSlot() bool {
	for len(r.running) >= r.cfg.NumberOfWorkers {
		select {
		case s := <-r.exited:
			r.reap(s)
		case <-r.ctx.Done():
			return false
		}
	}

	return true
}

func (r *run) startWorker() error {
	w, err := r.spawner.Start(r.ctx, StartOptions{
		Command:          r.cfg.Command,
		WorkingDirectory: r.cfg.WorkingDirectory,
		Env:              r.cfg.Env,
		ProgressSymbol:   r.cfg.ProgressSymbol,
		Output:           r.cfg.Output,
	})
	if err != nil {
		return errors.Join(ErrStartWorker, err)
	}

	s := &slot{id: r.nextID, worker: w}
	r.nextID++
	r.running[s.id] = s
	r.open = s

	r.cfg.Logger.LogCommandStarted(w.CommandLine())
	ctxlog.Debug(r.ctx, "worker started", "slot", s.id, "running", len(r.running))

	go func() {
		<-w.Done()
		r.exited <- s
	}()

	return nil
}

func (r *run) send(item string) {
	s := r.open

	if _, err := io.WriteString(s.worker.Stdin(), item+"\n"); err != nil {
		ctxlog.Warn(r.ctx, "failed to write item to worker", "slot", s.id, "item", item, "error", err)
		r.errs = multierror.Append(r.errs, fmt.Errorf("%w %d: %w", ErrWriteItem, s.id, err))
	}

	s.items++
	if s.items >= r.cfg.SegmentSize {
		r.closeSegment()
	}
}

func (r *run) closeSegment() {
	if r.open == nil {
		return
	}

	if err := r.open.worker.Stdin().Close(); err != nil {
		ctxlog.Debug(r.ctx, "failed to close worker stdin", "slot", r.open.id, "error", err)
	}

	r.open = nil
}

func (r *run) drain() {
	for len(r.running) > 0 {
		r.reap(<-r.exited)
	}
}

func (r *run) reap(s *slot) {
	delete(r.running, s.id)

	// A worker that exits mid-segment cannot take more items.
	if r.open == s {
		r.closeSegment()
	}

	if err := s.worker.Err(); err != nil {
		ctxlog.Debug(r.ctx, "worker exited with error", "slot", s.id, "error", err)
		r.errs = multierror.Append(r.errs, fmt.Errorf("worker %d (%s): %w", s.id, s.worker.CommandLine(), err))
	}

	r.cfg.Logger.LogCommandFinished()

	if r.cfg.OnWorkerExit != nil {
		r.cfg.OnWorkerExit(s.worker)
	}
}
