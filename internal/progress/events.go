// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package progress defines the events a run emits and the reporters that deliver them
// to listeners such as the terminal UI.
package progress

import (
	"time"
)

// Event is a single lifecycle or progress notification of a run.
type Event struct {
	Type      EventType // What happened
	Message   string    // Human-readable summary
	Timestamp time.Time // When it happened
	Data      EventData // Type-specific payload
}

// EventType identifies what an Event reports.
type EventType int

const (
	// EventConfigured carries the run configuration summary.
	EventConfigured EventType = iota
	// EventStarted marks the start of progress tracking.
	EventStarted
	// EventAdvanced reports that items were completed.
	EventAdvanced
	// EventUnexpectedOutput reports worker output that is not a progress marker.
	EventUnexpectedOutput
	// EventItemFailed reports an item whose processing failed.
	EventItemFailed
	// EventWorkerStarted reports a spawned worker.
	EventWorkerStarted
	// EventWorkerFinished reports a reaped worker.
	EventWorkerFinished
	// EventFinished marks the end of progress tracking.
	EventFinished
)

// String implements fmt.Stringer.
func (et EventType) String() string {
	switch et {
	case EventConfigured:
		return "configured"
	case EventStarted:
		return "started"
	case EventAdvanced:
		return "advanced"
	case EventUnexpectedOutput:
		return "unexpected-output"
	case EventItemFailed:
		return "item-failed"
	case EventWorkerStarted:
		return "worker-started"
	case EventWorkerFinished:
		return "worker-finished"
	case EventFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Summary is the configuration of a run as reported at its start.
type Summary struct {
	SegmentSize int
	BatchSize   int
	TotalItems  int
	Segments    int
	Batches     int
	Workers     int
	ItemNoun    string
	Parallel    bool // Items are fanned out to worker processes
}

// EventData holds the fields relevant to each event type.
type EventData struct {
	// EventConfigured
	Summary Summary

	// EventStarted: Total. EventAdvanced: Steps.
	Total int
	Steps int

	// EventUnexpectedOutput
	Output         string
	ProgressSymbol string

	// EventItemFailed
	Item  string
	Error error

	// EventWorkerStarted
	CommandLine string

	// EventFinished
	ItemNoun string
}

// Reporter sends events.
type Reporter interface {
	// Report sends an event. Implementations must not block the caller.
	Report(event Event)
	// Close signals that no more events will be sent.
	Close()
}

// Listener receives events.
type Listener interface {
	// OnEvent handles an event. It runs on the reporter's goroutine and should return quickly.
	OnEvent(event Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

// OnEvent implements Listener.
func (f ListenerFunc) OnEvent(event Event) {
	f(event)
}

// NullReporter discards every event.
type NullReporter struct{}

// Report implements Reporter.
func (NullReporter) Report(Event) {}

// Close implements Reporter.
func (NullReporter) Close() {}

// NewNullReporter returns a Reporter that discards events.
func NewNullReporter() Reporter {
	return NullReporter{}
}
