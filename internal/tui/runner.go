// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/matt-FFFFFF/fanout/internal/progress"
	"golang.org/x/sync/errgroup"
)

// ErrTUI is returned when the terminal program fails.
var ErrTUI = errors.New("terminal interface failed")

var _ progress.Reporter = (*Reporter)(nil)

// Reporter forwards events to the TUI program. Events are never dropped.
type Reporter struct {
	program *tea.Program
	closed  bool
	mutex   sync.RWMutex
}

// NewReporter creates a Reporter sending to program.
func NewReporter(program *tea.Program) *Reporter {
	return &Reporter{program: program}
}

// Report implements progress.Reporter.
func (r *Reporter) Report(event progress.Event) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if r.closed || r.program == nil {
		return
	}

	r.program.Send(ProgressEventMsg{Event: event})
}

// Close implements progress.Reporter.
func (r *Reporter) Close() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.closed = true
}

// Runner owns the TUI program for the duration of a run.
type Runner struct {
	model    *Model
	program  *tea.Program
	reporter *Reporter
}

// NewRunner creates a Runner. Options are passed to the tea program.
func NewRunner(opts ...tea.ProgramOption) *Runner {
	model := NewModel()
	program := tea.NewProgram(model, opts...)

	return &Runner{
		model:    model,
		program:  program,
		reporter: NewReporter(program),
	}
}

// Reporter returns the reporter to log the run through.
func (r *Runner) Reporter() progress.Reporter {
	return r.reporter
}

// Run starts the program and calls run alongside it.
// Quitting the program cancels the context given to run.
func (r *Runner) Run(ctx context.Context, run func(ctx context.Context) (int, error)) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		code   int
		runErr error
		g      errgroup.Group
	)

	g.Go(func() error {
		code, runErr = run(ctx)

		r.program.Send(RunCompletedMsg{ExitCode: code, Err: runErr})
		r.reporter.Close()

		return nil
	})

	g.Go(func() error {
		_, err := r.program.Run()

		r.reporter.Close()
		cancel()

		if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return errors.Join(ErrTUI, err)
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return 1, errors.Join(err, runErr)
	}

	return code, runErr
}
