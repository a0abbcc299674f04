package gline

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// CommandStatus is the state of the most recent command
type CommandStatus int

const (
	// StatusIdle means no command has run yet
	StatusIdle CommandStatus = iota
	// StatusRunning means a command is in progress
	StatusRunning
	// StatusSucceeded means the last command exited with 0
	StatusSucceeded
	// StatusFailed means the last command exited non-zero or could not run
	StatusFailed
)

const statusGlyph = "●"

// StatusIndicator shows a spinner while a command runs and the outcome of
// the last command afterwards.
type StatusIndicator struct {
	status   CommandStatus
	exitCode int
	duration time.Duration
	spinner  spinner.Model

	idleStyle    lipgloss.Style
	successStyle lipgloss.Style
	failureStyle lipgloss.Style
	detailStyle  lipgloss.Style
}

func NewStatusIndicator() StatusIndicator {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))

	return StatusIndicator{
		status:       StatusIdle,
		spinner:      s,
		idleStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		successStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		failureStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		detailStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	}
}

// Tick starts the spinner animation.
func (i StatusIndicator) Tick() tea.Cmd {
	return i.spinner.Tick
}

func (i *StatusIndicator) Start() {
	i.status = StatusRunning
}

// Finish records the outcome of the command that was running.
func (i *StatusIndicator) Finish(exitCode int, duration time.Duration) {
	i.exitCode = exitCode
	i.duration = duration
	if exitCode == 0 {
		i.status = StatusSucceeded
	} else {
		i.status = StatusFailed
	}
}

func (i StatusIndicator) Status() CommandStatus {
	return i.status
}

// Update advances the spinner. Ticks stop once no command is running.
func (i StatusIndicator) Update(msg tea.Msg) (StatusIndicator, tea.Cmd) {
	if i.status != StatusRunning {
		return i, nil
	}
	var cmd tea.Cmd
	i.spinner, cmd = i.spinner.Update(msg)
	return i, cmd
}

// Width returns the display width of View. ● has ambiguous East Asian
// width, so the glyph is measured with runewidth, which follows the locale.
func (i StatusIndicator) Width() int {
	if i.status == StatusRunning {
		return lipgloss.Width(i.View())
	}
	return runewidth.StringWidth(statusGlyph) + lipgloss.Width(i.detail())
}

func (i StatusIndicator) View() string {
	switch i.status {
	case StatusRunning:
		return i.spinner.View() + i.detailStyle.Render(" running")
	case StatusSucceeded:
		return i.successStyle.Render(statusGlyph) + i.detailStyle.Render(i.detail())
	case StatusFailed:
		return i.failureStyle.Render(statusGlyph) + i.detailStyle.Render(i.detail())
	default:
		return i.idleStyle.Render(statusGlyph)
	}
}

func (i StatusIndicator) detail() string {
	switch i.status {
	case StatusSucceeded, StatusFailed:
		return fmt.Sprintf(" exit %d · %s", i.exitCode, formatDuration(i.duration))
	default:
		return ""
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return "<1ms"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return d.Round(100 * time.Millisecond).String()
	}
}
