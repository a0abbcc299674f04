/*
This file is forked from the textinput component from
github.com/charmbracelet/bubbles

# MIT License

# Copyright (c) 2020-2023 Charmbracelet, Inc

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/
package shellinput

import (
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/runeutil"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wrap"
	"github.com/rivo/uniseg"
	"go.uber.org/zap"
)

// Internal messages for clipboard operations.
type (
	pasteMsg    string
	pasteErrMsg struct{ error }
)

// KeyMap is the key bindings for different actions within the input.
type KeyMap struct {
	CharacterForward        key.Binding
	CharacterBackward       key.Binding
	DeleteAfterCursor       key.Binding
	DeleteBeforeCursor      key.Binding
	DeleteCharacterBackward key.Binding
	DeleteCharacterForward  key.Binding
	LineStart               key.Binding
	LineEnd                 key.Binding
	Paste                   key.Binding
	NextValue               key.Binding
	PrevValue               key.Binding
	Complete                key.Binding
	ClearScreen             key.Binding

	// Bindings that only apply while the completion popup is open.
	AcceptChoice key.Binding
	CancelChoice key.Binding
	PrevChoice   key.Binding
	NextChoice   key.Binding
	PageUp       key.Binding
	PageDown     key.Binding
	FirstChoice  key.Binding
	LastChoice   key.Binding
}

// DefaultKeyMap is the default set of key bindings for navigating and acting
// upon the input.
var DefaultKeyMap = KeyMap{
	CharacterForward:        key.NewBinding(key.WithKeys("right", "ctrl+f")),
	CharacterBackward:       key.NewBinding(key.WithKeys("left", "ctrl+b")),
	DeleteAfterCursor:       key.NewBinding(key.WithKeys("ctrl+k")),
	DeleteBeforeCursor:      key.NewBinding(key.WithKeys("ctrl+u")),
	DeleteCharacterBackward: key.NewBinding(key.WithKeys("backspace", "ctrl+h")),
	DeleteCharacterForward:  key.NewBinding(key.WithKeys("delete")),
	LineStart:               key.NewBinding(key.WithKeys("home", "ctrl+a")),
	LineEnd:                 key.NewBinding(key.WithKeys("end", "ctrl+e")),
	Paste:                   key.NewBinding(key.WithKeys("ctrl+v")),
	NextValue:               key.NewBinding(key.WithKeys("down", "ctrl+n")),
	PrevValue:               key.NewBinding(key.WithKeys("up", "ctrl+p")),
	Complete:                key.NewBinding(key.WithKeys("tab")),
	ClearScreen:             key.NewBinding(key.WithKeys("ctrl+l")),

	AcceptChoice: key.NewBinding(key.WithKeys("tab", "enter")),
	CancelChoice: key.NewBinding(key.WithKeys("esc")),
	PrevChoice:   key.NewBinding(key.WithKeys("up", "shift+tab", "ctrl+p")),
	NextChoice:   key.NewBinding(key.WithKeys("down", "ctrl+n")),
	PageUp:       key.NewBinding(key.WithKeys("pgup")),
	PageDown:     key.NewBinding(key.WithKeys("pgdown")),
	FirstChoice:  key.NewBinding(key.WithKeys("home")),
	LastChoice:   key.NewBinding(key.WithKeys("end")),
}

// Model is the Bubble Tea model for this text input element.
type Model struct {
	Err error

	// General settings.
	Prompt string
	Cursor cursor.Model
	Logger *zap.Logger

	// CompletionProvider answers completion queries. Queries run as
	// commands off the update loop.
	CompletionProvider CompletionProvider

	// OnAccept is called with the installed line after a completion choice
	// is accepted. OnCancel is called when the popup is dismissed without
	// a choice.
	OnAccept func(completion string) tea.Cmd
	OnCancel func() tea.Cmd

	// Styles. These will be applied as inline styles.
	PromptStyle     lipgloss.Style
	TextStyle       lipgloss.Style
	PopupStyle      lipgloss.Style
	PopupRowStyle   lipgloss.Style
	PopupFocusStyle lipgloss.Style

	// Width marks the horizontal boundary for this component to render within.
	// Content that exceeds this width will be wrapped.
	// If 0 or less this setting is ignored.
	Width int

	// KeyMap encodes the keybindings recognized by the widget.
	KeyMap KeyMap

	// focus indicates whether user input focus should be on this input
	// component. When false, ignore keyboard input and hide the cursor.
	focus bool

	buffer Buffer
	popup  completionPopup

	// completionStateID identifies the latest completion query. Results
	// carrying an older id are dropped.
	completionStateID int

	// values[0] is the line being edited. other indices represent history
	// values that can be navigated with the up and down arrow keys.
	values             []string
	selectedValueIndex int

	// rune sanitizer for input.
	rsan runeutil.Sanitizer
}

// New creates a new model with default settings.
func New() Model {
	return Model{
		Prompt:          "> ",
		Cursor:          cursor.New(),
		KeyMap:          DefaultKeyMap,
		PopupStyle:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")),
		PopupRowStyle:   lipgloss.NewStyle(),
		PopupFocusStyle: lipgloss.NewStyle().Reverse(true),

		popup:  newCompletionPopup(DefaultPopupHeight, DefaultPopupPageSize),
		values: []string{""},
	}
}

// SetPopupSize sets how many rows the completion popup shows at once and how
// far page up and page down move the focus.
func (m *Model) SetPopupSize(height, pageSize int) {
	m.popup = newCompletionPopup(height, pageSize)
}

// SetValue sets the value of the text input and closes the popup.
func (m *Model) SetValue(s string) {
	m.buffer.SetContent(string(m.san().Sanitize([]rune(s))))
	m.selectedValueIndex = 0
	m.values[0] = m.buffer.Value()
	m.popup.close()
	m.completionStateID++
}

// Value returns the value of the text input.
func (m Model) Value() string {
	return m.buffer.Value()
}

// Position returns the cursor position as a byte offset.
func (m Model) Position() int {
	return m.buffer.Cursor()
}

// Focused returns the focus state on the model.
func (m Model) Focused() bool {
	return m.focus
}

// Focus sets the focus state on the model. When the model is in focus it can
// receive keyboard input and the cursor will be shown.
func (m *Model) Focus() tea.Cmd {
	m.focus = true
	return m.Cursor.Focus()
}

// Blur removes the focus state on the model.  When the model is blurred it can
// not receive keyboard input and the cursor will be hidden.
func (m *Model) Blur() {
	m.focus = false
	m.Cursor.Blur()
}

// Reset sets the input to its default state with no input.
func (m *Model) Reset() {
	m.buffer = Buffer{}
	m.values[0] = ""
	m.selectedValueIndex = 0
	m.popup.close()
	m.completionStateID++
}

// SetHistoryValues sets the lines reachable with the up and down keys, most
// recent first.
func (m *Model) SetHistoryValues(historyValues []string) {
	m.values = append([]string{m.values[0]}, make([]string, len(historyValues))...)

	for i, s := range historyValues {
		m.values[i+1] = string(m.san().Sanitize([]rune(s)))
	}

	// reset value index if the selected index is out of bounds
	if m.selectedValueIndex >= len(m.values) {
		m.selectedValueIndex = 0
	}
}

// san initializes or retrieves the rune sanitizer.
func (m *Model) san() runeutil.Sanitizer {
	if m.rsan == nil {
		// The input has all its text on a single line so collapse
		// newlines/tabs to single spaces.
		m.rsan = runeutil.NewSanitizer(
			runeutil.ReplaceTabs(" "), runeutil.ReplaceNewlines(" "))
	}
	return m.rsan
}

func (m *Model) logger() *zap.Logger {
	if m.Logger == nil {
		return zap.NewNop()
	}
	return m.Logger
}

// insertRunesFromUserInput is the single path through which typed and
// pasted text reaches the buffer.
func (m *Model) insertRunesFromUserInput(v []rune) {
	for _, r := range m.san().Sanitize(v) {
		m.buffer.Insert(r)
	}
	m.editedLine()
}

// editedLine makes the buffer the line being edited again after any change.
func (m *Model) editedLine() {
	m.selectedValueIndex = 0
	m.values[0] = m.buffer.Value()
}

// Update is the Bubble Tea update loop.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focus {
		return m, nil
	}

	// Let's remember where the position of the cursor currently is so that if
	// the cursor position changes, we can reset the blink.
	oldPos := m.buffer.Cursor()
	var result tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.popup.open {
			result = m.updatePopup(msg)
			break
		}

		oldValue := m.buffer.Value()
		navigated := false

		switch {
		case key.Matches(msg, m.KeyMap.Complete):
			result = m.requestCompletion(true)
		case key.Matches(msg, m.KeyMap.DeleteCharacterBackward):
			m.buffer.DeleteBeforeCursor()
		case key.Matches(msg, m.KeyMap.DeleteCharacterForward):
			if m.buffer.Cursor() < m.buffer.Len() {
				m.buffer.MoveRight()
				m.buffer.DeleteBeforeCursor()
			}
		case key.Matches(msg, m.KeyMap.CharacterBackward):
			m.buffer.MoveLeft()
		case key.Matches(msg, m.KeyMap.CharacterForward):
			m.buffer.MoveRight()
		case key.Matches(msg, m.KeyMap.LineStart):
			m.buffer.MoveStart()
		case key.Matches(msg, m.KeyMap.LineEnd):
			m.buffer.MoveEnd()
		case key.Matches(msg, m.KeyMap.DeleteAfterCursor):
			m.buffer.DeleteAfterCursor()
		case key.Matches(msg, m.KeyMap.DeleteBeforeCursor):
			m.buffer.DeleteToStart()
		case key.Matches(msg, m.KeyMap.Paste):
			result = Paste
		case key.Matches(msg, m.KeyMap.NextValue):
			m.nextValue()
			navigated = true
		case key.Matches(msg, m.KeyMap.PrevValue):
			m.previousValue()
			navigated = true
		case key.Matches(msg, m.KeyMap.ClearScreen):
			// The host application owns the screen.
			return m, nil
		case msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace:
			if !msg.Alt {
				m.insertRunesFromUserInput(msg.Runes)
			}
		}

		if m.buffer.Value() != oldValue {
			if !navigated {
				m.editedLine()
			}
			// a pending query was made for a line that no longer exists
			m.completionStateID++
		}

	case tea.MouseMsg:
		result = m.updatePopupMouse(msg)

	case completionResultMsg:
		m.setCompletionResult(msg)

	case pasteMsg:
		m.insertRunesFromUserInput([]rune(msg))
		m.completionStateID++

	case pasteErrMsg:
		m.Err = msg
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.Cursor, cmd = m.Cursor.Update(msg)
	cmds = append(cmds, result, cmd)

	if oldPos != m.buffer.Cursor() && m.Cursor.Mode() == cursor.CursorBlink {
		m.Cursor.Blink = false
		cmds = append(cmds, m.Cursor.BlinkCmd())
	}

	return m, tea.Batch(cmds...)
}

// View renders the input line in its current state.
func (m Model) View() string {
	styleText := m.TextStyle.Inline(true).Render

	value := m.buffer.Value()
	pos := m.buffer.Cursor()
	v := m.PromptStyle.Render(m.Prompt) + styleText(value[:pos])

	if pos < len(value) {
		char, rest, _, _ := uniseg.FirstGraphemeClusterInString(value[pos:], -1)
		m.Cursor.SetChar(char)
		v += m.Cursor.View() // cursor and text under it
		v += styleText(rest) // text after cursor
	} else {
		m.Cursor.SetChar(" ")
		v += m.Cursor.View()
	}

	totalWidth := uniseg.StringWidth(v)

	// If a max width is set, we need to respect the horizontal boundary
	if m.Width > 0 {
		if totalWidth <= m.Width {
			// fill empty spaces with the background color
			v += styleText(strings.Repeat(" ", max(0, m.Width-totalWidth)))
		} else {
			v = wrap.String(v, m.Width)
		}
	}

	return v
}

// Blink is a command used to initialize cursor blinking.
func Blink() tea.Msg {
	return cursor.Blink()
}

// Paste is a command for pasting from the clipboard into the text input.
func Paste() tea.Msg {
	str, err := clipboard.ReadAll()
	if err != nil {
		return pasteErrMsg{err}
	}
	return pasteMsg(str)
}

func clamp(v, low, high int) int {
	if high < low {
		low, high = high, low
	}
	return min(high, max(low, v))
}

func (m *Model) nextValue() {
	if len(m.values) == 1 || m.selectedValueIndex == 0 {
		return
	}

	m.selectedValueIndex--
	m.buffer.SetContent(m.values[m.selectedValueIndex])
}

func (m *Model) previousValue() {
	if len(m.values) == 1 {
		return
	}

	if m.selectedValueIndex == 0 {
		m.values[0] = m.buffer.Value()
	}
	m.selectedValueIndex = min(m.selectedValueIndex+1, len(m.values)-1)
	m.buffer.SetContent(m.values[m.selectedValueIndex])
}
