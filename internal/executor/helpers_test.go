// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package executor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/matt-FFFFFF/fanout/internal/errhandler"
	"github.com/matt-FFFFFF/fanout/internal/fsys"
	"github.com/matt-FFFFFF/fanout/internal/itemsource"
	"github.com/matt-FFFFFF/fanout/internal/launcher"
	"github.com/matt-FFFFFF/fanout/internal/logger"
	"github.com/prashantv/gostub"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const workerBinary = "/usr/local/bin/fanout"

var errProcessing = errors.New("processing failed")

type call struct {
	Name string
	Args []any
}

// recordingPolicy records every hook invocation. ProcessItem fails for failOn and panics for panicOn.
type recordingPolicy struct {
	mu      sync.Mutex
	calls   []call
	failOn  string
	panicOn string
	hookErr map[string]error
}

func (p *recordingPolicy) record(name string, args ...any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, call{Name: name, Args: args})

	return p.hookErr[name]
}

func (p *recordingPolicy) BeforeFirst(context.Context) error { return p.record("beforeFirst") }
func (p *recordingPolicy) AfterLast(context.Context) error   { return p.record("afterLast") }

func (p *recordingPolicy) BeforeBatch(_ context.Context, items []string) error {
	return p.record("beforeBatch", items)
}

func (p *recordingPolicy) AfterBatch(_ context.Context, items []string) error {
	return p.record("afterBatch", items)
}

func (p *recordingPolicy) ProcessItem(_ context.Context, item string) error {
	_ = p.record("process", item)

	switch item {
	case p.failOn:
		return errProcessing
	case p.panicOn:
		panic("kaboom")
	}

	return nil
}

func (p *recordingPolicy) Calls() []call {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]call(nil), p.calls...)
}

type handledError struct {
	Item string
	Err  error
}

// recordingHandler records every failure and answers with ret.
type recordingHandler struct {
	mu      sync.Mutex
	handled []handledError
	ret     error
}

func (h *recordingHandler) HandleError(_ context.Context, item string, err error, _ logger.Logger) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.handled = append(h.handled, handledError{Item: item, Err: err})

	return h.ret
}

var _ errhandler.Handler = (*recordingHandler)(nil)

// fakeFactory records the launcher config and plays script against the output callback.
type fakeFactory struct {
	created int
	cfg     launcher.Config
	items   []string
	script  []string
	stderr  []string
	runErr  error
}

func (f *fakeFactory) Create(cfg launcher.Config) (Runner, error) {
	f.created++
	f.cfg = cfg

	return fakeRunner{f}, nil
}

type fakeRunner struct {
	f *fakeFactory
}

func (r fakeRunner) Run(_ context.Context, src itemsource.Source) error {
	items, err := itemsource.Collect(src)
	if err != nil {
		return err
	}

	r.f.items = items

	for _, chunk := range r.f.script {
		r.f.cfg.Output(launcher.Stdout, chunk)
	}

	for _, chunk := range r.f.stderr {
		r.f.cfg.Output(launcher.Stderr, chunk)
	}

	return r.f.runErr
}

// newTestExecutor builds an Executor whose worker entry point exists on an in-memory filesystem.
func newTestExecutor(t *testing.T, policy RunPolicy, opts ...Option) *Executor {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, workerBinary, []byte("#!/bin/sh\n"), 0o755))

	stubs := gostub.Stub(&fsys.FsFactory, func() afero.Fs { return fs })
	defer stubs.Reset()

	all := append([]Option{WithWorkerCommand(workerBinary, "run", "--child")}, opts...)

	e, err := New(policy, all...)
	require.NoError(t, err)

	return e
}
