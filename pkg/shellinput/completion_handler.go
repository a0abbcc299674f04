package shellinput

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// completionResultMsg carries the answer to a completion query back to the
// update loop.
type completionResultMsg struct {
	stateID int
	trigger bool
	line    string
	choices []CompletionChoice
	err     error
}

// requestCompletion starts a completion query for the current line. A
// trigger query opens the popup; any other query re-filters an open popup.
func (m *Model) requestCompletion(trigger bool) tea.Cmd {
	m.completionStateID++
	if m.CompletionProvider == nil {
		return nil
	}

	stateID := m.completionStateID
	line := m.buffer.Value()
	provider := m.CompletionProvider
	logger := m.logger()

	return func() tea.Msg {
		choices, err := provider.Autocomplete(line)
		if err != nil {
			logger.Debug("shellinput completion query failed", zap.String("line", line), zap.Error(err))
		}
		return completionResultMsg{
			stateID: stateID,
			trigger: trigger,
			line:    line,
			choices: choices,
			err:     err,
		}
	}
}

func (m *Model) setCompletionResult(msg completionResultMsg) {
	if msg.stateID != m.completionStateID {
		m.logger().Debug(
			"shellinput discarding completion",
			zap.Int("startStateId", msg.stateID),
			zap.Int("newStateId", m.completionStateID),
		)
		return
	}

	choices := msg.choices
	if msg.err != nil {
		choices = nil
	}

	switch {
	case msg.trigger && !m.popup.open:
		m.popup.show(choices)
	case m.popup.open:
		m.popup.refilter(choices)
	}

	m.logger().Debug(
		"shellinput completion applied",
		zap.String("line", msg.line),
		zap.Int("choices", len(choices)),
		zap.Bool("open", m.popup.open),
	)
}

// updatePopup handles a key while the popup is open. Keys with no meaning
// for the popup are ignored.
func (m *Model) updatePopup(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.KeyMap.AcceptChoice):
		return m.acceptCompletion()
	case key.Matches(msg, m.KeyMap.CancelChoice):
		return m.cancelCompletion()
	case key.Matches(msg, m.KeyMap.PrevChoice):
		m.popup.previous()
	case key.Matches(msg, m.KeyMap.NextChoice):
		m.popup.next()
	case key.Matches(msg, m.KeyMap.PageUp):
		m.popup.pageUp()
	case key.Matches(msg, m.KeyMap.PageDown):
		m.popup.pageDown()
	case key.Matches(msg, m.KeyMap.FirstChoice):
		m.popup.first()
	case key.Matches(msg, m.KeyMap.LastChoice):
		m.popup.last()
	case key.Matches(msg, m.KeyMap.DeleteCharacterBackward):
		m.buffer.DeleteBeforeCursor()
		m.editedLine()
		return m.requestCompletion(false)
	case msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace:
		if msg.Alt {
			return nil
		}
		m.insertRunesFromUserInput(msg.Runes)
		return m.requestCompletion(false)
	}
	return nil
}

// acceptCompletion installs the focused choice as the whole line and closes
// the popup.
func (m *Model) acceptCompletion() tea.Cmd {
	choice, ok := m.popup.focused()
	m.popup.close()
	m.completionStateID++
	if !ok {
		return nil
	}

	m.buffer.SetContent(choice.Completion)
	m.editedLine()
	m.logger().Debug("shellinput accepted completion", zap.String("label", choice.Label))

	if m.OnAccept != nil {
		return m.OnAccept(choice.Completion)
	}
	return nil
}

// cancelCompletion closes the popup and leaves the line untouched.
func (m *Model) cancelCompletion() tea.Cmd {
	m.popup.close()
	m.completionStateID++
	if m.OnCancel != nil {
		return m.OnCancel()
	}
	return nil
}

// updatePopupMouse handles pointer events. Coordinates are relative to the
// top left corner of the popup as rendered by PopupView.
func (m *Model) updatePopupMouse(msg tea.MouseMsg) tea.Cmd {
	if !m.popup.open {
		return nil
	}

	width, height := m.PopupSize()
	inside := msg.X >= 0 && msg.X < width && msg.Y >= 0 && msg.Y < height

	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.popup.previous()
			return nil
		case tea.MouseButtonWheelDown:
			m.popup.next()
			return nil
		}
		if !inside {
			return m.cancelCompletion()
		}
		if row, ok := m.popupRowAt(msg.Y); ok {
			m.popup.press(row)
		}
	case tea.MouseActionMotion:
		if row, ok := m.popupRowAt(msg.Y); inside && ok {
			m.popup.setFocus(row)
		}
	case tea.MouseActionRelease:
		row, ok := m.popupRowAt(msg.Y)
		if !inside || !ok {
			m.popup.pressed = -1
			return nil
		}
		if m.popup.release(row) {
			return m.acceptCompletion()
		}
	}
	return nil
}

// popupRowAt maps a popup relative y coordinate to a choice index. The
// first and last lines are the border.
func (m Model) popupRowAt(y int) (int, bool) {
	visible := y - 1
	if visible < 0 || visible >= m.popup.visibleRows() {
		return 0, false
	}
	return m.popup.offset + visible, true
}

// PopupOpen reports whether the completion popup is showing.
func (m Model) PopupOpen() bool {
	return m.popup.open
}

// PopupChoices returns the choices the popup is offering.
func (m Model) PopupChoices() []CompletionChoice {
	return m.popup.choices
}

// PopupFocus returns the index of the focused choice.
func (m Model) PopupFocus() int {
	return m.popup.focus
}

// PopupOffset returns the index of the first visible choice.
func (m Model) PopupOffset() int {
	return m.popup.offset
}

// PopupRequiredSize returns the content size needed to show every choice:
// the widest label plus padding and one row per choice.
func (m Model) PopupRequiredSize() (int, int) {
	return m.popup.requiredSize()
}

// PopupSize returns the outer size of the popup as drawn, border included.
func (m Model) PopupSize() (int, int) {
	if !m.popup.open {
		return 0, 0
	}
	width, _ := m.popup.requiredSize()
	if limit := m.popupContentLimit(); limit > popupPadding && width > limit {
		width = limit
	}
	return width + 2, m.popup.visibleRows() + 2
}

// PopupView renders the completion popup, or nothing when it is closed.
func (m Model) PopupView() string {
	return m.popup.view(m.PopupStyle, m.PopupRowStyle, m.PopupFocusStyle, m.popupContentLimit())
}

func (m Model) popupContentLimit() int {
	if m.Width <= 0 {
		return 0
	}
	return m.Width - 2
}
