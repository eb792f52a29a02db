// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"context"
	"sync"
)

var _ Reporter = (*ChannelReporter)(nil)

// ChannelReporter delivers events through a buffered channel.
// Events are dropped rather than blocking the sender when the buffer is full.
type ChannelReporter struct {
	ch     chan Event
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.RWMutex
	wg     sync.WaitGroup
	once   sync.Once
	closed bool
}

// NewChannelReporter creates a ChannelReporter with room for bufferSize pending events.
func NewChannelReporter(ctx context.Context, bufferSize int) *ChannelReporter {
	reporterCtx, cancel := context.WithCancel(ctx)

	return &ChannelReporter{
		ch:     make(chan Event, bufferSize),
		ctx:    reporterCtx,
		cancel: cancel,
	}
}

// Report implements Reporter.
func (cr *ChannelReporter) Report(event Event) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	if cr.closed || cr.ctx.Err() != nil {
		return
	}

	select {
	case cr.ch <- event:
	default:
	}
}

// Close stops accepting events, closes the channel and waits for listeners to drain it.
func (cr *ChannelReporter) Close() {
	cr.once.Do(func() {
		cr.mu.Lock()
		cr.closed = true
		close(cr.ch)
		cr.mu.Unlock()

		cr.wg.Wait()
		cr.cancel()
	})
}

// Listen forwards events to listener on a new goroutine until the reporter is closed
// and the buffer is drained, or the parent context is cancelled.
func (cr *ChannelReporter) Listen(listener Listener) {
	cr.wg.Add(1)

	go func() {
		defer cr.wg.Done()

		for {
			select {
			case event, ok := <-cr.ch:
				if !ok {
					return
				}

				listener.OnEvent(event)
			case <-cr.ctx.Done():
				return
			}
		}
	}()
}

// Events returns the event channel for callers that consume events themselves.
func (cr *ChannelReporter) Events() <-chan Event {
	return cr.ch
}
