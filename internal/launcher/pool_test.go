// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package launcher

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matt-FFFFFF/fanout/internal/itemsource"
	"github.com/matt-FFFFFF/fanout/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func items(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "item" + strconv.Itoa(i)
	}

	return out
}

func testConfig(workers, segment int) Config {
	return Config{
		Command:         []string{"fanout", "run", "--child"},
		NumberOfWorkers: workers,
		SegmentSize:     segment,
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		spawner Spawner
		cfg     Config
	}{
		{name: "nil spawner", cfg: testConfig(1, 1)},
		{name: "no command", spawner: &fakeSpawner{}, cfg: Config{NumberOfWorkers: 1, SegmentSize: 1}},
		{name: "zero workers", spawner: &fakeSpawner{}, cfg: testConfig(0, 1)},
		{name: "zero segment", spawner: &fakeSpawner{}, cfg: testConfig(1, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.spawner, tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestPool_SegmentsAcrossWorkers(t *testing.T) {
	defer goleak.VerifyNone(t)

	sp := &fakeSpawner{}
	rec := &logger.Recorder{}
	cfg := testConfig(2, 2)
	cfg.Logger = rec

	p, err := New(sp, cfg)
	require.NoError(t, err)
	require.NoError(t, p.Run(context.Background(), itemsource.FromSlice([]string{"a", "b", "c"})))

	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, sp.segments())

	var started, finished int

	for _, r := range rec.Records() {
		switch r.Name {
		case "logCommandStarted":
			started++

			assert.Equal(t, []any{"'fanout' 'run' '--child'"}, r.Args)
		case "logCommandFinished":
			finished++
		}
	}

	assert.Equal(t, 2, started)
	assert.Equal(t, 2, finished)
}

func TestPool_CeilingAndOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	tests := []struct {
		name     string
		items    int
		workers  int
		segment  int
		segments int
	}{
		{name: "many segments few workers", items: 25, workers: 3, segment: 2, segments: 13},
		{name: "one worker", items: 7, workers: 1, segment: 3, segments: 3},
		{name: "more workers than segments", items: 4, workers: 8, segment: 2, segments: 2},
		{name: "segment of one", items: 5, workers: 2, segment: 1, segments: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := &fakeSpawner{exitDelay: 2 * time.Millisecond}

			p, err := New(sp, testConfig(tt.workers, tt.segment))
			require.NoError(t, err)

			in := items(tt.items)
			require.NoError(t, p.Run(context.Background(), itemsource.FromSlice(in)))

			segs := sp.segments()
			require.Len(t, segs, tt.segments)
			assert.LessOrEqual(t, int(sp.maxActive.Load()), tt.workers)
			assert.Equal(t, int32(0), sp.active.Load(), "every worker is drained")

			var got []string
			for i, seg := range segs {
				if i < len(segs)-1 {
					assert.Len(t, seg, tt.segment)
				}

				got = append(got, seg...)
			}

			assert.Equal(t, in, got)
		})
	}
}

func TestPool_EmptySource(t *testing.T) {
	sp := &fakeSpawner{}

	p, err := New(sp, testConfig(2, 2))
	require.NoError(t, err)
	require.NoError(t, p.Run(context.Background(), itemsource.FromSlice(nil)))

	assert.Empty(t, sp.segments(), "workers are never created eagerly")
}

func TestPool_ItemWithNewline(t *testing.T) {
	defer goleak.VerifyNone(t)

	sp := &fakeSpawner{}

	p, err := New(sp, testConfig(2, 2))
	require.NoError(t, err)

	err = p.Run(context.Background(), itemsource.FromSlice([]string{"a", "b\nc"}))
	require.ErrorIs(t, err, ErrItemContainsNewline)
	assert.Equal(t, [][]string{{"a"}}, sp.segments())
	assert.Equal(t, int32(0), sp.active.Load())
}

func TestPool_WorkerExitingMidSegment(t *testing.T) {
	defer goleak.VerifyNone(t)

	sp := &fakeSpawner{quitAfter: 1}
	cfg := testConfig(1, 3)
	cfg.FailOnWorkerError = true

	p, err := New(sp, cfg)
	require.NoError(t, err)
	require.NoError(t, p.Run(context.Background(), itemsource.FromSlice([]string{"a", "b", "c"})),
		"no item is written to a worker that has exited")

	assert.Equal(t, [][]string{{"a"}, {"b"}, {"c"}}, sp.segments())
	assert.Equal(t, int32(1), sp.maxActive.Load())
}

func TestPool_StartFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	sp := &fakeSpawner{failOn: 2}

	p, err := New(sp, testConfig(2, 1))
	require.NoError(t, err)

	err = p.Run(context.Background(), itemsource.FromSlice(items(3)))
	require.ErrorIs(t, err, ErrStartWorker)
	assert.Len(t, sp.segments(), 1)
	assert.Equal(t, int32(0), sp.active.Load())
}

func TestPool_WorkerErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	exitErr := errors.New("exit status 1")

	tests := []struct {
		name    string
		fail    bool
		wantErr bool
	}{
		{name: "ignored by default"},
		{name: "escalated", fail: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := &fakeSpawner{exitErr: exitErr}

			var exits atomic.Int32

			cfg := testConfig(2, 1)
			cfg.FailOnWorkerError = tt.fail
			cfg.OnWorkerExit = func(w Worker) {
				exits.Add(1)
				assert.False(t, w.Running())
			}

			p, err := New(sp, cfg)
			require.NoError(t, err)

			err = p.Run(context.Background(), itemsource.FromSlice(items(3)))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrWorkerFailed)
				assert.ErrorIs(t, err, exitErr)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, int32(3), exits.Load())
		})
	}
}

func TestPool_Cancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sp := &fakeSpawner{}

	p, err := New(sp, testConfig(2, 2))
	require.NoError(t, err)

	err = p.Run(ctx, itemsource.FromSlice(items(10)))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sp.segments())
}

// cancellingSource cancels the run after handing out a number of items.
type cancellingSource struct {
	itemsource.Source
	after  int
	served int
	cancel context.CancelFunc
}

func (s *cancellingSource) Next() (string, error) {
	if s.served == s.after {
		s.cancel()
	}

	s.served++

	return s.Source.Next()
}

func TestPool_CancelledMidRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sp := &fakeSpawner{}

	p, err := New(sp, testConfig(1, 3))
	require.NoError(t, err)

	src := &cancellingSource{Source: itemsource.FromSlice(items(10)), after: 4, cancel: cancel}
	err = p.Run(ctx, src)
	require.ErrorIs(t, err, context.Canceled)

	var sent int
	for _, seg := range sp.segments() {
		sent += len(seg)
	}

	assert.LessOrEqual(t, sent, 5)
	assert.Equal(t, int32(0), sp.active.Load())
}
