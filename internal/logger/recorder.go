// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package logger

import (
	"sync"

	"github.com/matt-FFFFFF/fanout/internal/progress"
)

var _ Logger = (*Recorder)(nil)

// Record is one call received by a Recorder.
type Record struct {
	Name string
	Args []any
}

// Recorder keeps every call in memory, in order. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	records []Record
}

// Records returns a copy of the calls received so far.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Record, len(r.records))
	copy(out, r.records)

	return out
}

func (r *Recorder) add(name string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append(r.records, Record{Name: name, Args: args})
}

func (r *Recorder) LogConfiguration(summary progress.Summary) { r.add("logConfiguration", summary) }
func (r *Recorder) StartProgress(total int)                  { r.add("startProgress", total) }
func (r *Recorder) Advance(steps int)                        { r.add("advance", steps) }
func (r *Recorder) Finish(itemNoun string)                   { r.add("finish", itemNoun) }
func (r *Recorder) LogItemProcessingFailed(item string, err error) {
	r.add("logItemProcessingFailed", item, err)
}
func (r *Recorder) LogUnexpectedOutput(output, progressSymbol string) {
	r.add("logUnexpectedOutput", output, progressSymbol)
}
func (r *Recorder) LogCommandStarted(commandLine string) { r.add("logCommandStarted", commandLine) }
func (r *Recorder) LogCommandFinished()                  { r.add("logCommandFinished") }
