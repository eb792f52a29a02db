// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package launcher fans items out to a bounded pool of worker processes.
//
// Items are streamed, newline terminated, to the stdin of the most recently started worker.
// Once a worker has received a full segment its stdin is closed and the next item goes to a new worker.
// At most NumberOfWorkers workers run at any time; the pool blocks on worker exit notifications
// when it is saturated and drains every worker before Run returns.
package launcher
