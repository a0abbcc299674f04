package shellinput

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/ansi"
	"github.com/muesli/reflow/truncate"
)

// CompletionChoice is a single completion suggestion. Choices compare and
// sort by Label only.
type CompletionChoice struct {
	Label      string // what the popup shows and what focus continuity compares
	Completion string // the full line installed when the choice is accepted
}

// CompletionProvider produces the completion choices for a line of input.
// Implementations return choices sorted by label without duplicates.
type CompletionProvider interface {
	Autocomplete(line string) ([]CompletionChoice, error)
}

const (
	DefaultPopupHeight   = 8
	DefaultPopupPageSize = 5

	// horizontal padding around each label, one cell on either side
	popupPadding = 2
)

// completionPopup tracks the choices offered to the user and which one is
// focused. The popup never edits the input line itself.
type completionPopup struct {
	open    bool
	choices []CompletionChoice
	focus   int
	offset  int

	height   int
	pageSize int

	// row index of the last pointer press, -1 when none is pending
	pressed int
}

func newCompletionPopup(height, pageSize int) completionPopup {
	if height <= 0 {
		height = DefaultPopupHeight
	}
	if pageSize <= 0 {
		pageSize = DefaultPopupPageSize
	}
	return completionPopup{height: height, pageSize: pageSize, pressed: -1}
}

// show opens the popup on choices with the first one focused. An empty
// set leaves the popup closed.
func (p *completionPopup) show(choices []CompletionChoice) bool {
	if len(choices) == 0 {
		p.close()
		return false
	}
	p.open = true
	p.choices = choices
	p.focus = 0
	p.offset = 0
	p.pressed = -1
	return true
}

// refilter replaces the choices while keeping focus on the same label when
// it survives. An empty set closes the popup.
func (p *completionPopup) refilter(choices []CompletionChoice) {
	if len(choices) == 0 {
		p.close()
		return
	}

	focus := 0
	if current, ok := p.focused(); ok {
		for i, choice := range choices {
			if choice.Label == current.Label {
				focus = i
				break
			}
		}
	}

	p.choices = choices
	p.pressed = -1
	p.setFocus(focus)
}

func (p *completionPopup) close() {
	p.open = false
	p.choices = nil
	p.focus = 0
	p.offset = 0
	p.pressed = -1
}

func (p completionPopup) focused() (CompletionChoice, bool) {
	if !p.open || p.focus < 0 || p.focus >= len(p.choices) {
		return CompletionChoice{}, false
	}
	return p.choices[p.focus], true
}

func (p *completionPopup) next() {
	if len(p.choices) == 0 {
		return
	}
	p.setFocus((p.focus + 1) % len(p.choices))
}

func (p *completionPopup) previous() {
	if len(p.choices) == 0 {
		return
	}
	p.setFocus((p.focus - 1 + len(p.choices)) % len(p.choices))
}

func (p *completionPopup) pageUp() {
	p.setFocus(max(0, p.focus-p.pageSize))
}

func (p *completionPopup) pageDown() {
	p.setFocus(min(len(p.choices)-1, p.focus+p.pageSize))
}

func (p *completionPopup) first() {
	p.setFocus(0)
}

func (p *completionPopup) last() {
	p.setFocus(len(p.choices) - 1)
}

// press focuses the choice at row without accepting it.
func (p *completionPopup) press(row int) {
	if row < 0 || row >= len(p.choices) {
		p.pressed = -1
		return
	}
	p.pressed = row
	p.setFocus(row)
}

// release reports whether the release at row completes a click on the
// focused choice.
func (p *completionPopup) release(row int) bool {
	pressed := p.pressed
	p.pressed = -1
	return pressed >= 0 && pressed == row && row == p.focus
}

func (p *completionPopup) setFocus(focus int) {
	if len(p.choices) == 0 {
		p.focus = 0
		p.offset = 0
		return
	}
	p.focus = clamp(focus, 0, len(p.choices)-1)
	p.scrollToFocus()
}

// scrollToFocus moves the window of visible rows the least amount needed
// for the focused row to be visible.
func (p *completionPopup) scrollToFocus() {
	rows := p.visibleRows()
	if p.focus < p.offset {
		p.offset = p.focus
	} else if p.focus >= p.offset+rows {
		p.offset = p.focus - rows + 1
	}
	p.offset = clamp(p.offset, 0, max(0, len(p.choices)-rows))
}

func (p completionPopup) visibleRows() int {
	return min(p.height, len(p.choices))
}

// requiredSize is the size the popup content needs to show every choice
// without truncation: the widest label plus padding, one row per choice.
func (p completionPopup) requiredSize() (width, height int) {
	longest := 0
	for _, choice := range p.choices {
		longest = max(longest, ansi.PrintableRuneWidth(choice.Label))
	}
	return longest + popupPadding, len(p.choices)
}

// view renders the visible rows inside a border. maxWidth bounds the
// content width; labels that do not fit are truncated.
func (p completionPopup) view(boxStyle, rowStyle, focusStyle lipgloss.Style, maxWidth int) string {
	if !p.open || len(p.choices) == 0 {
		return ""
	}

	width, _ := p.requiredSize()
	if maxWidth > popupPadding && width > maxWidth {
		width = maxWidth
	}

	rows := make([]string, 0, p.visibleRows())
	for i := p.offset; i < p.offset+p.visibleRows(); i++ {
		label := p.choices[i].Label
		if ansi.PrintableRuneWidth(label) > width-popupPadding {
			label = truncate.StringWithTail(label, uint(width-popupPadding), "…")
		}
		cell := " " + label + strings.Repeat(" ", max(0, width-popupPadding-ansi.PrintableRuneWidth(label))) + " "
		if i == p.focus {
			rows = append(rows, focusStyle.Render(cell))
		} else {
			rows = append(rows, rowStyle.Render(cell))
		}
	}

	return boxStyle.Render(strings.Join(rows, "\n"))
}
