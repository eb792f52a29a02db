// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package fsys holds the filesystem used for configuration files, item sources and entry point checks.
package fsys

import "github.com/spf13/afero"

// FsFactory returns the filesystem. Tests replace it with an in-memory one.
var FsFactory = func() afero.Fs {
	return afero.NewOsFs()
}
