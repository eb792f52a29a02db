// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package logger

import (
	"fmt"
	"time"

	"github.com/matt-FFFFFF/fanout/internal/progress"
)

var _ Logger = (*Reporting)(nil)

// Reporting turns logger calls into progress events.
type Reporting struct {
	reporter progress.Reporter
	now      func() time.Time
}

// NewReporting returns a Logger that reports every call to reporter.
func NewReporting(reporter progress.Reporter) *Reporting {
	return &Reporting{reporter: reporter, now: time.Now}
}

func (r *Reporting) send(t progress.EventType, msg string, data progress.EventData) {
	r.reporter.Report(progress.Event{
		Type:      t,
		Message:   msg,
		Timestamp: r.now(),
		Data:      data,
	})
}

// LogConfiguration implements Logger.
func (r *Reporting) LogConfiguration(summary progress.Summary) {
	r.send(progress.EventConfigured, describeConfiguration(summary), progress.EventData{Summary: summary})
}

// StartProgress implements Logger.
func (r *Reporting) StartProgress(total int) {
	r.send(progress.EventStarted, fmt.Sprintf("Starting %d", total), progress.EventData{Total: total})
}

// Advance implements Logger.
func (r *Reporting) Advance(steps int) {
	r.send(progress.EventAdvanced, "", progress.EventData{Steps: steps})
}

// Finish implements Logger.
func (r *Reporting) Finish(itemNoun string) {
	r.send(progress.EventFinished, "Processed "+itemNoun, progress.EventData{ItemNoun: itemNoun})
}

// LogItemProcessingFailed implements Logger.
func (r *Reporting) LogItemProcessingFailed(item string, err error) {
	r.send(progress.EventItemFailed, fmt.Sprintf("Failed to process %q", item), progress.EventData{Item: item, Error: err})
}

// LogUnexpectedOutput implements Logger.
func (r *Reporting) LogUnexpectedOutput(output, progressSymbol string) {
	r.send(progress.EventUnexpectedOutput, "Unexpected worker output", progress.EventData{
		Output:         output,
		ProgressSymbol: progressSymbol,
	})
}

// LogCommandStarted implements Logger.
func (r *Reporting) LogCommandStarted(commandLine string) {
	r.send(progress.EventWorkerStarted, "Worker started", progress.EventData{CommandLine: commandLine})
}

// LogCommandFinished implements Logger.
func (r *Reporting) LogCommandFinished() {
	r.send(progress.EventWorkerFinished, "Worker finished", progress.EventData{})
}

func describeConfiguration(s progress.Summary) string {
	where := "in the main process"
	if s.Parallel {
		where = fmt.Sprintf("with %d %s", s.Workers, plural(s.Workers, "worker", "workers"))
	}

	return fmt.Sprintf(
		"Processing %d %s in segments of %d, batches of %d, %d %s, %d %s, %s",
		s.TotalItems, s.ItemNoun,
		s.SegmentSize,
		s.BatchSize,
		s.Segments, plural(s.Segments, "segment", "segments"),
		s.Batches, plural(s.Batches, "batch", "batches"),
		where,
	)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}

	return many
}
