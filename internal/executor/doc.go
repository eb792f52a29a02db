// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package executor runs a RunPolicy over a collection of items.
//
// The same binary plays two roles. As the orchestrator it counts the items and either processes them
// in batches itself or streams them to child workers through the launcher package. As a child it
// reads newline delimited items from its input and writes one progress symbol per item to its output,
// which the orchestrator counts to advance its progress display.
package executor
