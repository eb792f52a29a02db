// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package executor

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned when the executor or the run configuration cannot work.
	ErrInvalidConfig = errors.New("invalid executor configuration")
	// ErrHook is returned when a lifecycle hook fails.
	ErrHook = errors.New("lifecycle hook failed")
	// ErrWriteProgress is returned when a child cannot write its progress symbol.
	ErrWriteProgress = errors.New("failed to write progress")
)

// ErrItemPanic is the error handed to the error handler when processing an item panics.
type ErrItemPanic struct {
	Item  string
	Value any
	Stack []byte
}

func (e *ErrItemPanic) Error() string {
	return fmt.Sprintf("panic while processing item %q: %v", e.Item, e.Value)
}

func invalidConfig(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
