// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package logger

import "github.com/matt-FFFFFF/fanout/internal/progress"

var _ Logger = Multi(nil)

// Multi forwards every event to each logger in order.
type Multi []Logger

func (m Multi) LogConfiguration(summary progress.Summary) {
	for _, l := range m {
		l.LogConfiguration(summary)
	}
}

func (m Multi) StartProgress(total int) {
	for _, l := range m {
		l.StartProgress(total)
	}
}

func (m Multi) Advance(steps int) {
	for _, l := range m {
		l.Advance(steps)
	}
}

func (m Multi) Finish(itemNoun string) {
	for _, l := range m {
		l.Finish(itemNoun)
	}
}

func (m Multi) LogItemProcessingFailed(item string, err error) {
	for _, l := range m {
		l.LogItemProcessingFailed(item, err)
	}
}

func (m Multi) LogUnexpectedOutput(output, progressSymbol string) {
	for _, l := range m {
		l.LogUnexpectedOutput(output, progressSymbol)
	}
}

func (m Multi) LogCommandStarted(commandLine string) {
	for _, l := range m {
		l.LogCommandStarted(commandLine)
	}
}

func (m Multi) LogCommandFinished() {
	for _, l := range m {
		l.LogCommandFinished()
	}
}
