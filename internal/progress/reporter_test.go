// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestEventType_String(t *testing.T) {
	tests := []struct {
		eventType EventType
		expected  string
	}{
		{EventConfigured, "configured"},
		{EventStarted, "started"},
		{EventAdvanced, "advanced"},
		{EventUnexpectedOutput, "unexpected-output"},
		{EventItemFailed, "item-failed"},
		{EventWorkerStarted, "worker-started"},
		{EventWorkerFinished, "worker-finished"},
		{EventFinished, "finished"},
		{EventType(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.eventType.String())
		})
	}
}

func TestChannelReporter_ListenReceivesAllEvents(t *testing.T) {
	defer goleak.VerifyNone(t)

	reporter := NewChannelReporter(context.Background(), 10)

	var (
		mu  sync.Mutex
		got []EventType
	)

	reporter.Listen(ListenerFunc(func(e Event) {
		mu.Lock()
		defer mu.Unlock()

		got = append(got, e.Type)
	}))

	reporter.Report(Event{Type: EventStarted})
	reporter.Report(Event{Type: EventAdvanced})
	reporter.Report(Event{Type: EventFinished})
	reporter.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []EventType{EventStarted, EventAdvanced, EventFinished}, got)
}

func TestChannelReporter_DropsWhenFull(t *testing.T) {
	reporter := NewChannelReporter(context.Background(), 1)
	defer reporter.Close()

	reporter.Report(Event{Type: EventStarted})
	reporter.Report(Event{Type: EventAdvanced})

	require.Len(t, reporter.Events(), 1)
	assert.Equal(t, EventStarted, (<-reporter.Events()).Type)
}

func TestChannelReporter_ReportAfterClose(t *testing.T) {
	reporter := NewChannelReporter(context.Background(), 1)
	reporter.Close()
	reporter.Close()

	assert.NotPanics(t, func() { reporter.Report(Event{Type: EventAdvanced}) })
}

func TestChannelReporter_ParentCancelStopsListener(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	reporter := NewChannelReporter(ctx, 1)
	reporter.Listen(ListenerFunc(func(Event) {}))

	cancel()

	done := make(chan struct{})

	go func() {
		reporter.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close should return once the parent context is cancelled")
	}
}

func TestNullReporter(t *testing.T) {
	r := NewNullReporter()
	r.Report(Event{Type: EventAdvanced})
	r.Close()
}
