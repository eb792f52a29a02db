// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"fmt"
	"strings"
	"time"

	bprogress "github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/matt-FFFFFF/fanout/internal/progress"
)

const (
	maxRecentFailures = 5
	barPadding        = 4
	maxBarWidth       = 80
)

// ProgressEventMsg wraps a progress event for the tea framework.
type ProgressEventMsg struct {
	Event progress.Event
}

// RunCompletedMsg is sent once the run has returned.
type RunCompletedMsg struct {
	ExitCode int
	Err      error
}

// Styles contains all the styling for the TUI.
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Success lipgloss.Style
	Failed  lipgloss.Style
	Output  lipgloss.Style
	Help    lipgloss.Style
}

// NewStyles creates the default styling for the TUI.
func NewStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginBottom(1),
		Label: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")),
		Failed: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")),
		Output: lipgloss.NewStyle().
			Foreground(lipgloss.Color("7")).
			Italic(true),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			MarginTop(1),
	}
}

// Model is the TUI application state. It is only mutated by Update.
type Model struct {
	summary        progress.Summary
	total          int
	done           int
	failed         int
	unexpected     int
	workersRunning int
	workersStarted int
	lastOutput     string
	recentFailures []string
	itemNoun       string
	startedAt      time.Time
	finishedAt     time.Time
	completed      bool
	exitCode       int
	err            error
	quitting       bool
	width          int
	bar            bprogress.Model
	styles         *Styles
}

// NewModel creates a new TUI model.
func NewModel() *Model {
	return &Model{
		bar:    bprogress.New(bprogress.WithDefaultGradient()),
		styles: NewStyles(),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(max(msg.Width-barPadding*2, 10), maxBarWidth)

	case ProgressEventMsg:
		m.apply(msg.Event)

	case RunCompletedMsg:
		m.completed = true
		m.exitCode = msg.ExitCode
		m.err = msg.Err

		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) apply(e progress.Event) {
	switch e.Type {
	case progress.EventConfigured:
		m.summary = e.Data.Summary
	case progress.EventStarted:
		m.total = e.Data.Total
		m.startedAt = e.Timestamp
	case progress.EventAdvanced:
		m.done += e.Data.Steps
	case progress.EventUnexpectedOutput:
		m.unexpected++
		m.lastOutput = lastLine(e.Data.Output)
	case progress.EventItemFailed:
		m.failed++

		line := e.Data.Item
		if e.Data.Error != nil {
			line = fmt.Sprintf("%s: %v", e.Data.Item, e.Data.Error)
		}

		m.recentFailures = append(m.recentFailures, line)
		if len(m.recentFailures) > maxRecentFailures {
			m.recentFailures = m.recentFailures[len(m.recentFailures)-maxRecentFailures:]
		}
	case progress.EventWorkerStarted:
		m.workersStarted++
		m.workersRunning++
	case progress.EventWorkerFinished:
		m.workersRunning = max(m.workersRunning-1, 0)
	case progress.EventFinished:
		m.itemNoun = e.Data.ItemNoun
		m.finishedAt = e.Timestamp
	}
}

func (m *Model) percent() float64 {
	if m.total <= 0 {
		if m.finishedAt.IsZero() {
			return 0
		}

		return 1
	}

	return min(float64(m.done)/float64(m.total), 1)
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting && !m.completed {
		return "Stopping...\n"
	}

	var b strings.Builder

	title := "fanout"
	if m.summary.ItemNoun != "" {
		title = fmt.Sprintf("fanout: %d %s", m.summary.TotalItems, m.summary.ItemNoun)
	}

	b.WriteString(m.styles.Title.Render(title))
	b.WriteString("\n")

	if m.summary.Parallel {
		fmt.Fprintf(&b, "%s %d/%d running, %d started, segments of %d\n",
			m.styles.Label.Render("workers:"),
			m.workersRunning, m.summary.Workers, m.workersStarted, m.summary.SegmentSize)
	} else if m.summary.TotalItems > 0 {
		fmt.Fprintf(&b, "%s main process, batches of %d\n", m.styles.Label.Render("mode:"), m.summary.BatchSize)
	}

	fmt.Fprintf(&b, "\n%s %d/%d\n", m.bar.ViewAs(m.percent()), m.done, m.total)

	if m.failed > 0 {
		b.WriteString(m.styles.Failed.Render(fmt.Sprintf("%d failed", m.failed)))
		b.WriteString("\n")

		for _, f := range m.recentFailures {
			b.WriteString(m.styles.Failed.Render("  " + f))
			b.WriteString("\n")
		}
	}

	if m.lastOutput != "" {
		fmt.Fprintf(&b, "%s %s\n", m.styles.Label.Render("worker output:"), m.styles.Output.Render(m.lastOutput))
	}

	if m.completed {
		b.WriteString("\n")

		switch {
		case m.err != nil:
			b.WriteString(m.styles.Failed.Render("Run aborted: " + m.err.Error()))
		case m.exitCode != 0:
			b.WriteString(m.styles.Failed.Render(fmt.Sprintf("Run completed with exit code %d", m.exitCode)))
		default:
			b.WriteString(m.styles.Success.Render(fmt.Sprintf("Processed %d %s in %s", m.done, m.itemNoun, m.elapsed())))
		}

		b.WriteString("\n")

		return b.String()
	}

	b.WriteString(m.styles.Help.Render("q: stop the run"))
	b.WriteString("\n")

	return b.String()
}

func (m *Model) elapsed() time.Duration {
	if m.startedAt.IsZero() || m.finishedAt.IsZero() {
		return 0
	}

	return m.finishedAt.Sub(m.startedAt).Round(100 * time.Millisecond)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
