// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package itemsource produces the string items a run processes.
//
// A Source is read once, front to back. Next returns io.EOF after the last item.
package itemsource

import (
	"bufio"
	"context"
	"errors"
	"io"
	"iter"
	"strings"
)

// maxLineSize bounds a single item read from a stream.
const maxLineSize = 1024 * 1024

// ErrReadItems is returned when the underlying stream of a source cannot be read.
var ErrReadItems = errors.New("failed to read items")

// Source is a forward-only sequence of items.
type Source interface {
	// Next returns the next item, or io.EOF when the sequence is exhausted.
	Next() (string, error)
}

// Sized is implemented by sources that know how many items remain without consuming them.
type Sized interface {
	Len() int
}

// Provider opens the item source of a run.
type Provider func(ctx context.Context) (Source, error)

var (
	_ Source = (*SliceSource)(nil)
	_ Sized  = (*SliceSource)(nil)
	_ Source = (*LineSource)(nil)
)

// SliceSource serves items from memory.
type SliceSource struct {
	items []string
	pos   int
}

// FromSlice returns a source over items. The slice is not copied.
func FromSlice(items []string) *SliceSource {
	return &SliceSource{items: items}
}

// Single returns a source with exactly one item.
func Single(item string) *SliceSource {
	return FromSlice([]string{item})
}

// Next implements Source.
func (s *SliceSource) Next() (string, error) {
	if s.pos >= len(s.items) {
		return "", io.EOF
	}

	item := s.items[s.pos]
	s.pos++

	return item, nil
}

// Len returns the number of items not yet returned by Next.
func (s *SliceSource) Len() int {
	return len(s.items) - s.pos
}

// LineSource reads newline-delimited items from a stream. Blank lines are skipped.
type LineSource struct {
	scanner *bufio.Scanner
}

// FromReader returns a source reading one item per line of r.
func FromReader(r io.Reader) *LineSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	return &LineSource{scanner: scanner}
}

// Next implements Source.
func (s *LineSource) Next() (string, error) {
	for s.scanner.Scan() {
		line := strings.TrimRight(s.scanner.Text(), "\r")
		if line == "" {
			continue
		}

		return line, nil
	}

	if err := s.scanner.Err(); err != nil {
		return "", errors.Join(ErrReadItems, err)
	}

	return "", io.EOF
}

// Collect drains src into a slice.
func Collect(src Source) ([]string, error) {
	var items []string

	for {
		item, err := src.Next()
		if errors.Is(err, io.EOF) {
			return items, nil
		}

		if err != nil {
			return items, err
		}

		items = append(items, item)
	}
}

// Count estimates the number of items in src.
// Sized sources are asked directly; any other source is materialised, and the returned
// source replays the items so the caller can still consume them.
func Count(src Source) (Source, int, error) {
	if sized, ok := src.(Sized); ok {
		return src, sized.Len(), nil
	}

	items, err := Collect(src)
	if err != nil {
		return nil, 0, err
	}

	return FromSlice(items), len(items), nil
}

// Batches splits src into consecutive batches of at most size items.
// A read error is yielded once with a nil batch and ends the sequence.
func Batches(src Source, size int) iter.Seq2[[]string, error] {
	return func(yield func([]string, error) bool) {
		batch := make([]string, 0, size)

		for {
			item, err := src.Next()
			if errors.Is(err, io.EOF) {
				break
			}

			if err != nil {
				yield(nil, err)
				return
			}

			batch = append(batch, item)
			if len(batch) < size {
				continue
			}

			if !yield(batch, nil) {
				return
			}

			batch = make([]string, 0, size)
		}

		if len(batch) > 0 {
			yield(batch, nil)
		}
	}
}
