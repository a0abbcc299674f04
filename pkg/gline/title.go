package gline

import (
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
)

// TitleBar renders the top line: the application name and the working
// directory.
type TitleBar struct {
	width int
	title string
	home  string
	cwd   string

	badgeStyle lipgloss.Style
	dirStyle   lipgloss.Style
	barStyle   lipgloss.Style
}

func NewTitleBar(title, home string) TitleBar {
	return TitleBar{
		title:      title,
		home:       home,
		badgeStyle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Padding(0, 1),
		dirStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		barStyle:   lipgloss.NewStyle().Background(lipgloss.Color("236")),
	}
}

func (t *TitleBar) SetWidth(w int) {
	t.width = w
}

func (t *TitleBar) SetDirectory(cwd string) {
	t.cwd = cwd
}

// Directory returns the working directory as displayed, with the home
// directory abbreviated.
func (t TitleBar) Directory() string {
	if t.cwd == "" {
		return ""
	}
	if t.home == "" {
		return t.cwd
	}
	if t.cwd == t.home {
		return "~"
	}
	rel, err := filepath.Rel(t.home, t.cwd)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return t.cwd
	}
	return "~" + string(filepath.Separator) + rel
}

func (t TitleBar) View() string {
	badge := t.badgeStyle.Render(t.title)
	if t.width <= 0 {
		return badge + " " + t.dirStyle.Render(t.Directory())
	}

	remaining := t.width - lipgloss.Width(badge) - 1
	if remaining <= 0 {
		return truncate.String(badge, uint(t.width))
	}

	dir := fitWidth(t.Directory(), remaining)
	line := badge + " " + t.dirStyle.Render(dir)
	return t.barStyle.Width(t.width).Render(line)
}
