// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package tui shows the progress of a run in a full screen terminal view.
//
// The view is driven by progress events: the run logs through a logger.Reporting
// backed by the Runner's reporter, and every event becomes a bubbletea message.
package tui
