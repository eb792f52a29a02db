// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package runconfig loads run definitions from YAML or HCL files.
package runconfig

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/matt-FFFFFF/fanout/internal/fsys"
	"github.com/matt-FFFFFF/fanout/internal/itemsource"
	"github.com/rivo/uniseg"
	"github.com/spf13/afero"
)

const (
	defaultBatchSize      = 50
	defaultSegmentSize    = 50
	defaultProgressSymbol = "."
	defaultItemNoun       = "item"
)

// Source types.
const (
	SourceLines = "lines"
	SourceFiles = "files"
	SourceDirs  = "dirs"
	SourceSplit = "split"
)

var (
	// ErrInvalidConfig is returned when a definition fails validation.
	ErrInvalidConfig = errors.New("invalid run definition")
	// ErrReadConfig is returned when the definition file cannot be read.
	ErrReadConfig = errors.New("failed to read run definition")
	// ErrParseConfig is returned when the definition file cannot be decoded.
	ErrParseConfig = errors.New("failed to parse run definition")
	// ErrUnsupportedFormat is returned for files that are neither YAML nor HCL.
	ErrUnsupportedFormat = errors.New("unsupported run definition format, use .yaml, .yml or .hcl")
)

// Definition describes a run.
type Definition struct {
	BatchSize        *int              `yaml:"batch_size,omitempty" hcl:"batch_size,optional" docdesc:"Number of items between the batch hooks"`
	SegmentSize      *int              `yaml:"segment_size,omitempty" hcl:"segment_size,optional" docdesc:"Number of items streamed to a single worker"`
	Workers          *int              `yaml:"workers,omitempty" hcl:"workers,optional" docdesc:"Number of worker processes, defaults to the number of CPU cores"`
	ProgressSymbol   string            `yaml:"progress_symbol,omitempty" hcl:"progress_symbol,optional" docdesc:"Single character a worker writes for every item"`
	ItemNoun         string            `yaml:"item_noun,omitempty" hcl:"item_noun,optional" docdesc:"What an item is called in messages"`
	ItemNounPlural   string            `yaml:"item_noun_plural,omitempty" hcl:"item_noun_plural,optional" docdesc:"Plural of item_noun, defaults to item_noun with an s"`
	Command          string            `yaml:"command" hcl:"command,optional" docdesc:"Shell command run for every item, with the item in ITEM"`
	BeforeFirst      string            `yaml:"before_first,omitempty" hcl:"before_first,optional" docdesc:"Shell command run once before the first item"`
	AfterLast        string            `yaml:"after_last,omitempty" hcl:"after_last,optional" docdesc:"Shell command run once after the last item"`
	BeforeBatch      string            `yaml:"before_batch,omitempty" hcl:"before_batch,optional" docdesc:"Shell command run before every batch, with the items in BATCH_ITEMS"`
	AfterBatch       string            `yaml:"after_batch,omitempty" hcl:"after_batch,optional" docdesc:"Shell command run after every batch, with the items in BATCH_ITEMS"`
	Env              map[string]string `yaml:"env,omitempty" hcl:"env,optional" docdesc:"Extra environment variables for every command"`
	WorkingDirectory string            `yaml:"working_directory,omitempty" hcl:"working_directory,optional" docdesc:"Directory the commands run in"`
	FailFast         bool              `yaml:"fail_fast,omitempty" hcl:"fail_fast,optional" docdesc:"Stop at the first item that fails"`
	FailOnItemError  bool              `yaml:"fail_on_item_error,omitempty" hcl:"fail_on_item_error,optional" docdesc:"Exit with a non-zero code when any item failed"`
	Source           *Source           `yaml:"source,omitempty" hcl:"source,block" docdesc:"Where the items come from, stdin when omitted"`
}

// Source describes where the items come from.
type Source struct {
	Type          string `yaml:"type" hcl:"type" docdesc:"Kind of source" docenum:"lines,files,dirs,split"`
	Path          string `yaml:"path,omitempty" hcl:"path,optional" docdesc:"File to read lines from (- for stdin), or the root of a dirs source"`
	Pattern       string `yaml:"pattern,omitempty" hcl:"pattern,optional" docdesc:"Glob matched by a files source"`
	Depth         int    `yaml:"depth,omitempty" hcl:"depth,optional" docdesc:"How many levels a dirs source descends, 0 for no limit"`
	IncludeHidden bool   `yaml:"include_hidden,omitempty" hcl:"include_hidden,optional" docdesc:"Whether a dirs source includes hidden directories"`
	Value         string `yaml:"value,omitempty" hcl:"value,optional" docdesc:"String split by a split source"`
	Delimiter     string `yaml:"delimiter,omitempty" hcl:"delimiter,optional" docdesc:"Delimiter of a split source"`
}

// Load reads the definition at path. The format is chosen by file extension.
// Defaults are applied but the definition is not validated, so that flags can complete it first.
func Load(path string) (*Definition, error) {
	data, err := afero.ReadFile(fsys.FsFactory(), path)
	if err != nil {
		return nil, errors.Join(ErrReadConfig, err)
	}

	def := &Definition{}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.UnmarshalWithOptions(data, def, yaml.DisallowUnknownField()); err != nil {
			return nil, fmt.Errorf("%w %s: %w", ErrParseConfig, path, err)
		}
	case ".hcl":
		if err := hclsimple.Decode(path, data, nil, def); err != nil {
			return nil, fmt.Errorf("%w %s: %w", ErrParseConfig, path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	def.ApplyDefaults()

	return def, nil
}

// Default returns a definition with every default applied.
func Default() *Definition {
	def := &Definition{}
	def.ApplyDefaults()

	return def
}

// ApplyDefaults fills in every unset field that has a default.
func (d *Definition) ApplyDefaults() {
	if d.BatchSize == nil {
		d.BatchSize = ptr(defaultBatchSize)
	}

	if d.SegmentSize == nil {
		d.SegmentSize = ptr(defaultSegmentSize)
	}

	if d.ProgressSymbol == "" {
		d.ProgressSymbol = defaultProgressSymbol
	}

	if d.ItemNoun == "" {
		d.ItemNoun = defaultItemNoun
	}

	if d.ItemNounPlural == "" {
		d.ItemNounPlural = d.ItemNoun + "s"
	}
}

// Validate reports every problem with the definition.
func (d *Definition) Validate() error {
	var result *multierror.Error

	if d.BatchSize != nil && *d.BatchSize < 1 {
		result = multierror.Append(result, fmt.Errorf("batch_size must be 1 or greater, got %d", *d.BatchSize))
	}

	if d.SegmentSize != nil && *d.SegmentSize < 1 {
		result = multierror.Append(result, fmt.Errorf("segment_size must be 1 or greater, got %d", *d.SegmentSize))
	}

	if d.Workers != nil && *d.Workers < 1 {
		result = multierror.Append(result, fmt.Errorf("workers must be 1 or greater, got %d", *d.Workers))
	}

	if n := uniseg.GraphemeClusterCount(d.ProgressSymbol); n != 1 {
		result = multierror.Append(result, fmt.Errorf("progress_symbol must be a single character, got %q", d.ProgressSymbol))
	}

	if strings.TrimSpace(d.Command) == "" {
		result = multierror.Append(result, errors.New("command is required"))
	}

	if d.Source != nil {
		if err := d.Source.validate(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}

	return nil
}

func (s *Source) validate() error {
	switch s.Type {
	case SourceLines:
		if s.Path == "" {
			return errors.New("source of type lines needs a path, use - for stdin")
		}
	case SourceFiles:
		if s.Pattern == "" {
			return errors.New("source of type files needs a pattern")
		}
	case SourceDirs:
		if s.Depth < 0 {
			return fmt.Errorf("source depth must not be negative, got %d", s.Depth)
		}
	case SourceSplit:
		if s.Delimiter == "" {
			return errors.New("source of type split needs a delimiter")
		}
	default:
		return fmt.Errorf("unknown source type %q, expected one of %s, %s, %s, %s",
			s.Type, SourceLines, SourceFiles, SourceDirs, SourceSplit)
	}

	return nil
}

// Provider returns the item source described by the definition. Without a source, items are read from stdin.
func (d *Definition) Provider() itemsource.Provider {
	s := d.Source
	if s == nil {
		return itemsource.Lines("-")
	}

	switch s.Type {
	case SourceFiles:
		return itemsource.Files(s.Pattern, d.WorkingDirectory)
	case SourceDirs:
		root := s.Path
		if root == "" {
			root = d.WorkingDirectory
		}

		if root == "" {
			root = "."
		}

		return itemsource.Dirs(root, s.Depth, itemsource.IncludeHidden(s.IncludeHidden))
	case SourceSplit:
		return itemsource.Split(s.Value, s.Delimiter)
	default:
		return itemsource.Lines(s.Path)
	}
}

// ParseSource parses the short form `type:argument` used on the command line,
// e.g. `lines:-`, `files:*.go`, `dirs:.` or `split:,:a,b,c`.
func ParseSource(s string) (*Source, error) {
	kind, arg, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("%w: source %q must look like type:argument", ErrInvalidConfig, s)
	}

	src := &Source{Type: kind}

	switch kind {
	case SourceLines, SourceDirs:
		src.Path = arg
	case SourceFiles:
		src.Pattern = arg
	case SourceSplit:
		delim, value, ok := strings.Cut(arg, ":")
		if !ok {
			return nil, fmt.Errorf("%w: split source %q must look like split:delimiter:value", ErrInvalidConfig, s)
		}

		src.Delimiter, src.Value = delim, value
	}

	if err := src.validate(); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	return src, nil
}

func ptr[T any](v T) *T {
	return &v
}
