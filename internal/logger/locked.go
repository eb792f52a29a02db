// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package logger

import (
	"sync"

	"github.com/matt-FFFFFF/fanout/internal/progress"
)

var _ Logger = (*Locked)(nil)

// Locked serialises calls to the wrapped logger.
// Worker output arrives on several goroutines at once, so the executor wraps its logger in one.
type Locked struct {
	mu   sync.Mutex
	next Logger
}

// NewLocked wraps next. A nil next logger means Nop.
func NewLocked(next Logger) *Locked {
	if next == nil {
		next = Nop{}
	}

	return &Locked{next: next}
}

// LogConfiguration implements Logger.
func (l *Locked) LogConfiguration(summary progress.Summary) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next.LogConfiguration(summary)
}

// StartProgress implements Logger.
func (l *Locked) StartProgress(total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next.StartProgress(total)
}

// Advance implements Logger.
func (l *Locked) Advance(steps int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next.Advance(steps)
}

// Finish implements Logger.
func (l *Locked) Finish(itemNoun string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next.Finish(itemNoun)
}

// LogItemProcessingFailed implements Logger.
func (l *Locked) LogItemProcessingFailed(item string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next.LogItemProcessingFailed(item, err)
}

// LogUnexpectedOutput implements Logger.
func (l *Locked) LogUnexpectedOutput(output, progressSymbol string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next.LogUnexpectedOutput(output, progressSymbol)
}

// LogCommandStarted implements Logger.
func (l *Locked) LogCommandStarted(commandLine string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next.LogCommandStarted(commandLine)
}

// LogCommandFinished implements Logger.
func (l *Locked) LogCommandFinished() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next.LogCommandFinished()
}
