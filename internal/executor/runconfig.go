// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package executor

// RunConfiguration holds the per-run settings derived from the command line.
type RunConfiguration struct {
	// NumberOfWorkers is the requested worker count, meaningful when NumberOfWorkersDefined is set.
	NumberOfWorkers        int
	NumberOfWorkersDefined bool
	// Child is set when this process is a worker spawned by an orchestrator.
	Child bool
	// Item is the single item to process, when HasItem is set.
	Item    string
	HasItem bool
}

// ShouldPickItemsFromSource reports whether items come from the item source rather than Item.
func (c RunConfiguration) ShouldPickItemsFromSource() bool {
	return !c.HasItem
}
