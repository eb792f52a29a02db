// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package shellpolicy is a run policy that processes every item with a shell command.
//
// The item is passed in the ITEM environment variable. Batch hooks get the items of the batch,
// newline separated, in BATCH_ITEMS. Command output goes to a configurable writer, stderr by default,
// so that a child's stdout only carries progress symbols.
package shellpolicy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/exec"
	"strings"

	"github.com/matt-FFFFFF/fanout/internal/ctxlog"
	"github.com/matt-FFFFFF/fanout/internal/executor"
	"github.com/matt-FFFFFF/fanout/internal/launcher"
)

const (
	// ItemEnvVar holds the item being processed.
	ItemEnvVar = "ITEM"
	// BatchItemsEnvVar holds the newline separated items of the current batch.
	BatchItemsEnvVar = "BATCH_ITEMS"
)

var (
	// ErrNoCommand is returned by New when no item command is given.
	ErrNoCommand = errors.New("no command given")
	// ErrCommandFailed is returned when a shell command exits unsuccessfully.
	ErrCommandFailed = errors.New("command failed")
)

var _ executor.RunPolicy = (*Policy)(nil)

// Hooks are optional shell commands run around the items.
type Hooks struct {
	BeforeFirst string
	AfterLast   string
	BeforeBatch string
	AfterBatch  string
}

// Policy runs shell commands.
type Policy struct {
	command          string
	hooks            Hooks
	env              map[string]string
	workingDirectory string
	shell            []string
	output           io.Writer
}

// Option configures a Policy.
type Option func(*Policy)

// WithHooks sets the lifecycle hook commands.
func WithHooks(h Hooks) Option {
	return func(p *Policy) {
		p.hooks = h
	}
}

// WithEnv adds environment variables to every command.
func WithEnv(env map[string]string) Option {
	return func(p *Policy) {
		p.env = env
	}
}

// WithWorkingDirectory sets the directory commands run in.
func WithWorkingDirectory(dir string) Option {
	return func(p *Policy) {
		p.workingDirectory = dir
	}
}

// WithShell sets the shell invocation the command string is appended to, e.g. `bash -c`.
func WithShell(argv ...string) Option {
	return func(p *Policy) {
		p.shell = argv
	}
}

// WithOutput sets where command stdout and stderr go.
func WithOutput(w io.Writer) Option {
	return func(p *Policy) {
		p.output = w
	}
}

// New returns a Policy running command for every item.
func New(command string, opts ...Option) (*Policy, error) {
	if strings.TrimSpace(command) == "" {
		return nil, ErrNoCommand
	}

	p := &Policy{
		command: command,
		shell:   []string{"sh", "-c"},
		output:  os.Stderr,
	}

	for _, opt := range opts {
		opt(p)
	}

	if len(p.shell) == 0 {
		return nil, fmt.Errorf("%w: empty shell", ErrNoCommand)
	}

	return p, nil
}

// ProcessItem implements executor.RunPolicy.
func (p *Policy) ProcessItem(ctx context.Context, item string) error {
	return p.run(ctx, p.command, map[string]string{ItemEnvVar: item})
}

// BeforeFirst implements executor.RunPolicy.
func (p *Policy) BeforeFirst(ctx context.Context) error {
	return p.run(ctx, p.hooks.BeforeFirst, nil)
}

// AfterLast implements executor.RunPolicy.
func (p *Policy) AfterLast(ctx context.Context) error {
	return p.run(ctx, p.hooks.AfterLast, nil)
}

// BeforeBatch implements executor.RunPolicy.
func (p *Policy) BeforeBatch(ctx context.Context, items []string) error {
	return p.run(ctx, p.hooks.BeforeBatch, map[string]string{BatchItemsEnvVar: strings.Join(items, "\n")})
}

// AfterBatch implements executor.RunPolicy.
func (p *Policy) AfterBatch(ctx context.Context, items []string) error {
	return p.run(ctx, p.hooks.AfterBatch, map[string]string{BatchItemsEnvVar: strings.Join(items, "\n")})
}

func (p *Policy) run(ctx context.Context, command string, extra map[string]string) error {
	if command == "" {
		return nil
	}

	env := maps.Clone(p.env)
	if env == nil {
		env = make(map[string]string, len(extra))
	}

	maps.Copy(env, extra)

	argv := append(append([]string(nil), p.shell...), command)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) //nolint:gosec
	cmd.Dir = p.workingDirectory
	cmd.Env = launcher.MergeEnv(os.Environ(), env)
	cmd.Stdout = p.output
	cmd.Stderr = p.output

	ctxlog.Debug(ctx, "running command", "command", command, "cwd", p.workingDirectory)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrCommandFailed, command, err)
	}

	return nil
}
