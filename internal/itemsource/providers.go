// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package itemsource

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/matt-FFFFFF/fanout/internal/fsys"
	"github.com/spf13/afero"
)

// IncludeHidden tells the directory provider whether to descend into dot directories.
type IncludeHidden bool

var (
	// HiddenInclude lists hidden directories.
	HiddenInclude = IncludeHidden(true)
	// HiddenExclude skips hidden directories and everything below them.
	HiddenExclude = IncludeHidden(false)
)

// Files lists the files matching pattern. Relative patterns are resolved against workingDirectory.
func Files(pattern, workingDirectory string) Provider {
	return func(ctx context.Context) (Source, error) {
		searchPattern := pattern
		if !filepath.IsAbs(pattern) {
			searchPattern = filepath.Join(workingDirectory, pattern)
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		matches, err := afero.Glob(fsys.FsFactory(), searchPattern)
		if err != nil {
			return nil, fmt.Errorf("failed to list files with pattern %s: %w", pattern, err)
		}

		return FromSlice(matches), nil
	}
}

// Dirs lists the directories below root, relative to root, up to depth levels deep.
// A depth of zero or less means no limit.
func Dirs(root string, depth int, includeHidden IncludeHidden) Provider {
	return func(ctx context.Context) (Source, error) {
		var dirs []string

		err := afero.Walk(fsys.FsFactory(), root, func(path string, info fs.FileInfo, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			if err != nil {
				return err
			}

			if !info.IsDir() || path == root {
				return nil
			}

			if !bool(includeHidden) && strings.HasPrefix(filepath.Base(path), ".") {
				return filepath.SkipDir
			}

			rel, err := filepath.Rel(root, path)
			if err != nil {
				return fmt.Errorf("failed to get relative path for %s: %w", path, err)
			}

			if depth > 0 && strings.Count(rel, string(os.PathSeparator)) > depth-1 {
				return filepath.SkipDir
			}

			dirs = append(dirs, rel)

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list directories in %s: %w", root, err)
		}

		return FromSlice(dirs), nil
	}
}

// Split splits s on delimiter. Empty fields are dropped.
func Split(s, delimiter string) Provider {
	return func(ctx context.Context) (Source, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var items []string

		for _, f := range strings.Split(s, delimiter) {
			if f = strings.TrimSpace(f); f != "" {
				items = append(items, f)
			}
		}

		return FromSlice(items), nil
	}
}

// Lines reads one item per line from path, or from stdin when path is "-".
// The file stays open until the source is exhausted.
func Lines(path string) Provider {
	return func(ctx context.Context) (Source, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if path == "-" {
			return FromReader(os.Stdin), nil
		}

		f, err := fsys.FsFactory().Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open item file %s: %w", path, err)
		}

		return &closingSource{Source: FromReader(f), closer: f}, nil
	}
}

// Static serves a fixed list of items.
func Static(items ...string) Provider {
	return func(context.Context) (Source, error) {
		return FromSlice(items), nil
	}
}

type closingSource struct {
	Source
	closer interface{ Close() error }
	closed bool
}

func (s *closingSource) Next() (string, error) {
	item, err := s.Source.Next()
	if err != nil && !s.closed {
		s.closed = true
		_ = s.closer.Close()
	}

	return item, err
}
