// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package run

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-getter/v2"
	"github.com/matt-FFFFFF/fanout/internal/ctxlog"
	"github.com/matt-FFFFFF/fanout/internal/fsys"
)

// ErrFetchConfig is returned when a remote run definition cannot be downloaded.
var ErrFetchConfig = errors.New("failed to fetch run definition")

const (
	goGetterPathSeparator = "//"
	goGetterRefSeparator  = "?"
	minimumGetterParts    = 3 // scheme, host and path
)

// fetchDefinition returns a local absolute path for src, downloading it with go-getter when it is not a local file.
// The download lives until cleanup is called, so workers can read it for the whole run.
func fetchDefinition(ctx context.Context, src string) (string, func(), error) {
	noop := func() {}

	if src == "" {
		return "", noop, nil
	}

	if _, err := fsys.FsFactory().Stat(src); err == nil {
		abs, err := filepath.Abs(src)
		if err != nil {
			return "", noop, errors.Join(ErrLoadConfig, err)
		}

		return abs, noop, nil
	}

	tmpDir, err := os.MkdirTemp("", "fanout-getter-*")
	if err != nil {
		return "", noop, errors.Join(ErrFetchConfig, err)
	}

	cleanup := func() {
		os.RemoveAll(tmpDir) //nolint:errcheck
	}

	wd, err := os.Getwd()
	if err != nil {
		cleanup()
		return "", noop, errors.Join(ErrFetchConfig, err)
	}

	req := &getter.Request{
		Src: src,
		Pwd: wd,
	}

	var dst string

	// A subdirectory URL names a file inside the fetched directory.
	// https://github.com/hashicorp/go-getter/issues/98
	if dirURL, fileName := splitFileNameFromGetterURL(src); dirURL != "" {
		req.Src = dirURL
		req.Dst = filepath.Join(tmpDir, "g")
		req.GetMode = getter.ModeDir
		dst = filepath.Join(req.Dst, fileName)
	} else {
		// The name keeps the extension, which selects the definition format.
		req.Dst = filepath.Join(tmpDir, path.Base(strings.SplitN(src, goGetterRefSeparator, 2)[0]))
		req.GetMode = getter.ModeFile
		dst = req.Dst
	}

	client := getter.Client{
		DisableSymlinks: true,
	}

	ctxlog.Debug(ctx, "fetching run definition", "src", req.Src, "dst", dst)

	if _, err := client.Get(ctx, req); err != nil {
		cleanup()
		return "", noop, errors.Join(ErrFetchConfig, err)
	}

	if _, err := os.Stat(dst); err != nil {
		cleanup()
		return "", noop, fmt.Errorf("%w: %s not found in %s: %w", ErrFetchConfig, path.Base(dst), src, err)
	}

	return dst, cleanup, nil
}

// splitFileNameFromGetterURL splits a go-getter subdirectory URL into the directory URL and the file name.
// Any ref query is kept on the directory URL. It returns empty strings when url has no subdirectory part.
func splitFileNameFromGetterURL(url string) (string, string) {
	var ref string

	parts := strings.Split(url, goGetterPathSeparator)
	if len(parts) < minimumGetterParts {
		return "", ""
	}

	last := parts[len(parts)-1]
	if before, after, ok := strings.Cut(last, goGetterRefSeparator); ok {
		last, ref = before, after
	}

	if last == "" || filepath.Clean(last) == filepath.Dir(last) {
		return "", ""
	}

	fileName := path.Base(last)

	if dir := path.Dir(last); dir == "." {
		parts = parts[:len(parts)-1]
	} else {
		parts[len(parts)-1] = dir
	}

	newURL := strings.Join(parts, goGetterPathSeparator)

	if ref != "" {
		newURL += goGetterRefSeparator + ref
	}

	return newURL, fileName
}
