// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package logger receives the lifecycle and progress events of a run.
// A Logger never influences control flow: every method is a notification.
package logger

import (
	"github.com/matt-FFFFFF/fanout/internal/progress"
)

// Logger is the sink for run events.
type Logger interface {
	// LogConfiguration reports how the run was set up.
	LogConfiguration(summary progress.Summary)
	// StartProgress starts tracking progress towards total items.
	StartProgress(total int)
	// Advance records steps completed items. Zero is allowed.
	Advance(steps int)
	// Finish ends progress tracking.
	Finish(itemNoun string)
	// LogItemProcessingFailed reports an item whose processing failed.
	LogItemProcessingFailed(item string, err error)
	// LogUnexpectedOutput reports worker output that is not made of progress symbols.
	LogUnexpectedOutput(output, progressSymbol string)
	// LogCommandStarted reports a spawned worker.
	LogCommandStarted(commandLine string)
	// LogCommandFinished reports a reaped worker.
	LogCommandFinished()
}

var _ Logger = Nop{}

// Nop discards every event.
type Nop struct{}

func (Nop) LogConfiguration(progress.Summary)     {}
func (Nop) StartProgress(int)                     {}
func (Nop) Advance(int)                           {}
func (Nop) Finish(string)                         {}
func (Nop) LogItemProcessingFailed(string, error) {}
func (Nop) LogUnexpectedOutput(string, string)    {}
func (Nop) LogCommandStarted(string)              {}
func (Nop) LogCommandFinished()                   {}
