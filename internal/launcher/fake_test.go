// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package launcher

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// fakeSpawner starts in-memory workers that exit shortly after their stdin is closed.
type fakeSpawner struct {
	mu        sync.Mutex
	workers   []*fakeWorker
	active    atomic.Int32
	maxActive atomic.Int32
	exitDelay time.Duration
	exitErr   error
	failOn    int // 1-based Start call that fails, 0 for never
	quitAfter int // items after which a worker exits on its own, 0 for never
}

func (s *fakeSpawner) Start(_ context.Context, opts StartOptions) (Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failOn > 0 && len(s.workers)+1 == s.failOn {
		return nil, errors.New("spawn refused")
	}

	n := s.active.Add(1)
	for {
		m := s.maxActive.Load()
		if n <= m || s.maxActive.CompareAndSwap(m, n) {
			break
		}
	}

	w := &fakeWorker{
		spawner: s,
		opts:    opts,
		done:    make(chan struct{}),
	}
	s.workers = append(s.workers, w)

	return w, nil
}

func (s *fakeSpawner) segments() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]string, len(s.workers))
	for i, w := range s.workers {
		out[i] = w.items()
	}

	return out
}

type fakeWorker struct {
	spawner *fakeSpawner
	opts    StartOptions
	mu      sync.Mutex
	buf     strings.Builder
	closed  bool
	closing sync.Once
	exiting sync.Once
	done    chan struct{}
}

var _ io.WriteCloser = (*fakeWorker)(nil)

func (w *fakeWorker) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || !w.Running() {
		return 0, io.ErrClosedPipe
	}

	n, err := w.buf.Write(p)

	if q := w.spawner.quitAfter; q > 0 && strings.Count(w.buf.String(), "\n") >= q {
		w.exit()
	}

	return n, err
}

func (w *fakeWorker) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	w.closing.Do(func() {
		go func() {
			time.Sleep(w.spawner.exitDelay)
			w.exit()
		}()
	})

	return nil
}

func (w *fakeWorker) exit() {
	w.exiting.Do(func() {
		w.spawner.active.Add(-1)
		close(w.done)
	})
}

func (w *fakeWorker) items() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return strings.Split(strings.TrimSuffix(w.buf.String(), "\n"), "\n")
}

func (w *fakeWorker) Stdin() io.WriteCloser { return w }
func (w *fakeWorker) Done() <-chan struct{} { return w.done }
func (w *fakeWorker) CommandLine() string   { return QuoteCommandLine(w.opts.Command) }

func (w *fakeWorker) Running() bool {
	select {
	case <-w.done:
		return false
	default:
		return true
	}
}

func (w *fakeWorker) Err() error {
	if w.Running() {
		return nil
	}

	return w.spawner.exitErr
}
