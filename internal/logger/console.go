// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	bprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/matt-FFFFFF/fanout/internal/ctxlog"
	"github.com/matt-FFFFFF/fanout/internal/progress"
	"golang.org/x/term"
)

const defaultBarWidth = 40

var _ Logger = (*Console)(nil)

// Console prints run events for a human.
// On a terminal the progress bar is redrawn in place; otherwise only the summary lines are printed.
// Diagnostic events go to the context logger.
type Console struct {
	ctx         context.Context
	w           io.Writer
	interactive bool
	bar         bprogress.Model
	heading     lipgloss.Style
	warning     lipgloss.Style
	mu          sync.Mutex
	total       int
	current     int
	started     bool
}

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithInteractive overrides terminal detection.
func WithInteractive(interactive bool) ConsoleOption {
	return func(c *Console) {
		c.interactive = interactive
	}
}

// WithBarWidth sets the width of the progress bar in cells.
func WithBarWidth(width int) ConsoleOption {
	return func(c *Console) {
		c.bar.Width = width
	}
}

// NewConsole returns a Console writing to w.
func NewConsole(ctx context.Context, w io.Writer, opts ...ConsoleOption) *Console {
	renderer := lipgloss.NewRenderer(w)

	c := &Console{
		ctx:         ctx,
		w:           w,
		interactive: isTerminal(w),
		bar:         bprogress.New(bprogress.WithDefaultGradient(), bprogress.WithWidth(defaultBarWidth)),
		heading:     renderer.NewStyle().Bold(true),
		warning:     renderer.NewStyle().Foreground(lipgloss.Color("3")),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// LogConfiguration implements Logger.
func (c *Console) LogConfiguration(summary progress.Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintln(c.w, c.heading.Render(describeConfiguration(summary))) //nolint:errcheck
	fmt.Fprintln(c.w)                                                   //nolint:errcheck
}

// StartProgress implements Logger.
func (c *Console) StartProgress(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total = total
	c.current = 0
	c.started = true
	c.redraw()
}

// Advance implements Logger.
func (c *Console) Advance(steps int) {
	if steps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.current += steps
	c.redraw()
}

// Finish implements Logger.
func (c *Console) Finish(itemNoun string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.redraw()
	c.clearLine()
	c.started = false

	fmt.Fprintf(c.w, "Processed %d %s.\n", c.current, itemNoun) //nolint:errcheck
}

// LogItemProcessingFailed implements Logger.
func (c *Console) LogItemProcessingFailed(item string, err error) {
	ctxlog.Debug(c.ctx, "failed to process item", "item", item, "error", err)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLine()
	fmt.Fprintln(c.w, c.warning.Render(fmt.Sprintf("Failed to process %q: %v", item, err))) //nolint:errcheck
	c.redraw()
}

// LogUnexpectedOutput implements Logger.
func (c *Console) LogUnexpectedOutput(output, progressSymbol string) {
	ctxlog.Debug(c.ctx, "unexpected worker output", "output", output, "progressSymbol", progressSymbol)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLine()
	fmt.Fprintln(c.w, c.warning.Render("================= worker output =================")) //nolint:errcheck
	fmt.Fprintln(c.w, strings.TrimRight(output, "\n"))                                       //nolint:errcheck
	fmt.Fprintln(c.w, c.warning.Render("================================================="))  //nolint:errcheck
	c.redraw()
}

// LogCommandStarted implements Logger.
func (c *Console) LogCommandStarted(commandLine string) {
	ctxlog.Debug(c.ctx, "worker started", "commandLine", commandLine)
}

// LogCommandFinished implements Logger.
func (c *Console) LogCommandFinished() {
	ctxlog.Debug(c.ctx, "worker finished")
}

// redraw must be called with mu held.
func (c *Console) redraw() {
	if !c.interactive || !c.started {
		return
	}

	percent := 1.0
	if c.total > 0 {
		percent = min(float64(c.current)/float64(c.total), 1)
	}

	fmt.Fprintf(c.w, "\r%s %d/%d", c.bar.ViewAs(percent), c.current, c.total) //nolint:errcheck
}

// clearLine must be called with mu held.
func (c *Console) clearLine() {
	if !c.interactive || !c.started {
		return
	}

	fmt.Fprint(c.w, "\r\033[2K") //nolint:errcheck
}
