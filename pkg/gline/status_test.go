package gline

import (
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
)

func TestStatusIndicator(t *testing.T) {
	indicator := NewStatusIndicator()
	assert.Equal(t, StatusIdle, indicator.Status())
	assert.Equal(t, "●", indicator.View())

	// ticks are ignored unless a command is running
	_, cmd := indicator.Update(spinner.TickMsg{})
	assert.Nil(t, cmd)

	indicator.Start()
	assert.Equal(t, StatusRunning, indicator.Status())
	assert.Contains(t, indicator.View(), "running")

	indicator.Finish(0, 250*time.Millisecond)
	assert.Equal(t, StatusSucceeded, indicator.Status())
	assert.Contains(t, indicator.View(), "exit 0 · 250ms")
	assert.Equal(t, runewidth.StringWidth("●")+lipgloss.Width(" exit 0 · 250ms"), indicator.Width())

	indicator.Start()
	indicator.Finish(127, 2*time.Second)
	assert.Equal(t, StatusFailed, indicator.Status())
	assert.Contains(t, indicator.View(), "exit 127 · 2s")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "<1ms", formatDuration(0))
	assert.Equal(t, "42ms", formatDuration(42*time.Millisecond))
	assert.Equal(t, "1.5s", formatDuration(1530*time.Millisecond))
}

func TestTitleBarDirectory(t *testing.T) {
	tests := []struct {
		name     string
		home     string
		cwd      string
		expected string
	}{
		{"home itself", "/home/user", "/home/user", "~"},
		{"under home", "/home/user", "/home/user/src/app", "~/src/app"},
		{"outside home", "/home/user", "/var/log", "/var/log"},
		{"sibling with shared prefix", "/home/user", "/home/username", "/home/username"},
		{"no home", "", "/tmp", "/tmp"},
		{"no directory", "/home/user", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title := NewTitleBar("manette", tt.home)
			title.SetDirectory(tt.cwd)
			assert.Equal(t, tt.expected, title.Directory())
		})
	}
}

func TestTitleBarTruncates(t *testing.T) {
	title := NewTitleBar("manette", "")
	title.SetDirectory("/a/very/long/directory/name/that/does/not/fit")
	title.SetWidth(24)

	view := title.View()
	assert.Contains(t, view, "manette")
	assert.Contains(t, view, "…")
	assert.LessOrEqual(t, len([]rune(view)), 24)
}

func TestTitleBarKeepsDirectoryThatFits(t *testing.T) {
	title := NewTitleBar("manette", "")
	title.SetDirectory("/srv/data/")
	// badge " manette " plus a space plus the directory
	title.SetWidth(9 + 1 + len("/srv/data/"))

	view := title.View()
	assert.Contains(t, view, "/srv/data/")
	assert.NotContains(t, view, "…")
}
