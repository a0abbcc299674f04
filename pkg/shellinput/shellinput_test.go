package shellinput

import (
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// prefixCompletionProvider offers every label that starts with the last
// space separated token of the line.
type prefixCompletionProvider struct {
	labels []string
	err    error
}

func (p *prefixCompletionProvider) Autocomplete(line string) ([]CompletionChoice, error) {
	if p.err != nil {
		return nil, p.err
	}
	tokens := strings.Split(line, " ")
	current := tokens[len(tokens)-1]

	var result []CompletionChoice
	for _, label := range p.labels {
		if strings.HasPrefix(label, current) {
			tokens[len(tokens)-1] = label
			result = append(result, CompletionChoice{Label: label, Completion: strings.Join(tokens, " ")})
		}
	}
	return result, nil
}

type mockCompletionProvider struct {
	mock.Mock
}

func (m *mockCompletionProvider) Autocomplete(line string) ([]CompletionChoice, error) {
	args := m.Called(line)
	return args.Get(0).([]CompletionChoice), args.Error(1)
}

type acceptedMsg string
type cancelledMsg struct{}

func newTestModel(provider CompletionProvider) Model {
	m := New()
	m.Cursor.SetMode(cursor.CursorStatic)
	m.Focus()
	m.CompletionProvider = provider
	m.OnAccept = func(completion string) tea.Cmd {
		return func() tea.Msg { return acceptedMsg(completion) }
	}
	m.OnCancel = func() tea.Cmd {
		return func() tea.Msg { return cancelledMsg{} }
	}
	return m
}

// collect runs cmd and every command batched inside it, returning the
// resulting messages.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, c := range batch {
			msgs = append(msgs, collect(c)...)
		}
		return msgs
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// press sends msg and feeds any completion results back into the model.
// Other messages produced along the way are returned.
func press(m Model, msg tea.Msg) (Model, []tea.Msg) {
	m, cmd := m.Update(msg)
	var others []tea.Msg
	for _, out := range collect(cmd) {
		if result, ok := out.(completionResultMsg); ok {
			m, _ = m.Update(result)
			continue
		}
		others = append(others, out)
	}
	return m, others
}

func typeText(m Model, text string) Model {
	for _, r := range text {
		if r == ' ' {
			m, _ = press(m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
			continue
		}
		m, _ = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

var (
	tabKey       = tea.KeyMsg{Type: tea.KeyTab}
	enterKey     = tea.KeyMsg{Type: tea.KeyEnter}
	escKey       = tea.KeyMsg{Type: tea.KeyEsc}
	upKey        = tea.KeyMsg{Type: tea.KeyUp}
	downKey      = tea.KeyMsg{Type: tea.KeyDown}
	backspaceKey = tea.KeyMsg{Type: tea.KeyBackspace}
)

func TestTypingAndEditing(t *testing.T) {
	m := newTestModel(nil)
	m = typeText(m, "hello world")
	assert.Equal(t, "hello world", m.Value())

	m, _ = press(m, backspaceKey)
	assert.Equal(t, "hello worl", m.Value())

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyHome})
	assert.Equal(t, 0, m.Position())
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyRight})
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyDelete})
	assert.Equal(t, "hllo worl", m.Value())

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyCtrlK})
	assert.Equal(t, "h", m.Value())

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyEnd})
	m = typeText(m, "i")
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyCtrlU})
	assert.Equal(t, "", m.Value())
}

func TestHistoryNavigation(t *testing.T) {
	m := newTestModel(nil)
	m = typeText(m, "draft")
	m.SetHistoryValues([]string{"first", "second"})

	m, _ = press(m, upKey)
	assert.Equal(t, "first", m.Value())
	assert.Equal(t, 5, m.Position())

	m, _ = press(m, upKey)
	m, _ = press(m, upKey)
	assert.Equal(t, "second", m.Value())

	m, _ = press(m, downKey)
	assert.Equal(t, "first", m.Value())
	m, _ = press(m, downKey)
	assert.Equal(t, "draft", m.Value())
	m, _ = press(m, downKey)
	assert.Equal(t, "draft", m.Value())
}

func TestTabOpensPopup(t *testing.T) {
	provider := &prefixCompletionProvider{labels: []string{"a", "b", "dir/"}}
	m := newTestModel(provider)
	m = typeText(m, "ls ")

	m, _ = press(m, tabKey)
	require.True(t, m.PopupOpen())
	assert.Equal(t, []CompletionChoice{
		{Label: "a", Completion: "ls a"},
		{Label: "b", Completion: "ls b"},
		{Label: "dir/", Completion: "ls dir/"},
	}, m.PopupChoices())
	assert.Equal(t, 0, m.PopupFocus())
	assert.Equal(t, "ls ", m.Value(), "opening the popup does not edit the line")
}

func TestTabWithNoChoicesKeepsPopupClosed(t *testing.T) {
	m := newTestModel(&prefixCompletionProvider{labels: []string{"a"}})
	m = typeText(m, "ls z")

	m, _ = press(m, tabKey)
	assert.False(t, m.PopupOpen())
	assert.Equal(t, "ls z", m.Value())
}

func TestProviderErrorShowsNoPopup(t *testing.T) {
	m := newTestModel(&prefixCompletionProvider{err: errors.New("no working directory")})
	m = typeText(m, "ls ")

	m, _ = press(m, tabKey)
	assert.False(t, m.PopupOpen())
	assert.Equal(t, "ls ", m.Value())
}

func TestTypingRefiltersAndKeepsFocus(t *testing.T) {
	provider := &prefixCompletionProvider{labels: []string{"a", "ab", "abc", "b"}}
	m := newTestModel(provider)
	m = typeText(m, "ls ")
	m, _ = press(m, tabKey)

	m, _ = press(m, downKey)
	m, _ = press(m, downKey)
	require.Equal(t, "abc", m.PopupChoices()[m.PopupFocus()].Label)

	m = typeText(m, "a")
	assert.Equal(t, "ls a", m.Value())
	require.True(t, m.PopupOpen())
	assert.Len(t, m.PopupChoices(), 3)
	assert.Equal(t, "abc", m.PopupChoices()[m.PopupFocus()].Label)

	m = typeText(m, "bx")
	assert.Equal(t, "ls abx", m.Value())
	assert.False(t, m.PopupOpen(), "an empty result closes the popup")
}

func TestBackspaceWhilePopupOpenRequeries(t *testing.T) {
	provider := &prefixCompletionProvider{labels: []string{"a", "ab", "b"}}
	m := newTestModel(provider)
	m = typeText(m, "ls a")
	m, _ = press(m, tabKey)
	require.Len(t, m.PopupChoices(), 2)

	m, _ = press(m, backspaceKey)
	assert.Equal(t, "ls ", m.Value())
	assert.True(t, m.PopupOpen())
	assert.Len(t, m.PopupChoices(), 3)
}

func TestAcceptInstallsCompletion(t *testing.T) {
	for _, accept := range []tea.KeyMsg{tabKey, enterKey} {
		t.Run(accept.String(), func(t *testing.T) {
			m := newTestModel(&prefixCompletionProvider{labels: []string{"a", "b", "dir/"}})
			m = typeText(m, "ls ")
			m, _ = press(m, tabKey)
			m, _ = press(m, tea.KeyMsg{Type: tea.KeyEnd})

			m, msgs := press(m, accept)
			assert.False(t, m.PopupOpen())
			assert.Equal(t, "ls dir/", m.Value())
			assert.Equal(t, len("ls dir/"), m.Position())
			assert.Contains(t, msgs, tea.Msg(acceptedMsg("ls dir/")))
		})
	}
}

func TestCancelLeavesLine(t *testing.T) {
	m := newTestModel(&prefixCompletionProvider{labels: []string{"a", "b"}})
	m = typeText(m, "ls ")
	m, _ = press(m, tabKey)
	m, _ = press(m, downKey)

	m, msgs := press(m, escKey)
	assert.False(t, m.PopupOpen())
	assert.Equal(t, "ls ", m.Value())
	assert.Contains(t, msgs, tea.Msg(cancelledMsg{}))
}

func TestUnhandledKeysIgnoredWhilePopupOpen(t *testing.T) {
	m := newTestModel(&prefixCompletionProvider{labels: []string{"a", "b"}})
	m = typeText(m, "ls ")
	m, _ = press(m, tabKey)

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyLeft})
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyCtrlK})
	assert.True(t, m.PopupOpen())
	assert.Equal(t, "ls ", m.Value())
	assert.Equal(t, len("ls "), m.Position())
}

func TestPopupNavigationKeys(t *testing.T) {
	labels := make([]string, 12)
	for i := range labels {
		labels[i] = string(rune('a' + i))
	}
	m := newTestModel(&prefixCompletionProvider{labels: labels})
	m = typeText(m, "ls ")
	m, _ = press(m, tabKey)

	m, _ = press(m, upKey)
	assert.Equal(t, 11, m.PopupFocus(), "previous wraps to the last choice")
	m, _ = press(m, downKey)
	assert.Equal(t, 0, m.PopupFocus(), "next wraps to the first choice")

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyPgDown})
	assert.Equal(t, 5, m.PopupFocus())
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyPgDown})
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyPgDown})
	assert.Equal(t, 11, m.PopupFocus())
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyPgUp})
	assert.Equal(t, 6, m.PopupFocus())

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyHome})
	assert.Equal(t, 0, m.PopupFocus())
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyEnd})
	assert.Equal(t, 11, m.PopupFocus())
	assert.LessOrEqual(t, m.PopupOffset(), 11)
	assert.Greater(t, m.PopupOffset()+DefaultPopupHeight, 11)

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, 10, m.PopupFocus())
}

func TestStaleCompletionIsDiscarded(t *testing.T) {
	m := newTestModel(&prefixCompletionProvider{labels: []string{"a", "b"}})
	m = typeText(m, "ls ")

	m, cmd := m.Update(tabKey)
	pending := collect(cmd)

	// the line changes before the first answer arrives
	m = typeText(m, "z")
	for _, msg := range pending {
		m, _ = m.Update(msg)
	}
	assert.False(t, m.PopupOpen())
}

func TestCompletionQueriesCurrentLine(t *testing.T) {
	provider := &mockCompletionProvider{}
	provider.On("Autocomplete", "ca").Return([]CompletionChoice{{Label: "cat", Completion: "cat"}}, nil).Once()

	m := newTestModel(provider)
	m = typeText(m, "ca")
	m, _ = press(m, tabKey)
	m, _ = press(m, enterKey)

	assert.Equal(t, "cat", m.Value())
	provider.AssertExpectations(t)
}

func TestMouseClickAcceptsRow(t *testing.T) {
	m := newTestModel(&prefixCompletionProvider{labels: []string{"a", "b", "c"}})
	m = typeText(m, "ls ")
	m, _ = press(m, tabKey)

	// y 0 is the top border, so y 2 is the second choice
	m, _ = press(m, tea.MouseMsg{X: 2, Y: 2, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	assert.True(t, m.PopupOpen())
	assert.Equal(t, 1, m.PopupFocus())

	m, msgs := press(m, tea.MouseMsg{X: 2, Y: 2, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	assert.False(t, m.PopupOpen())
	assert.Equal(t, "ls b", m.Value())
	assert.Contains(t, msgs, tea.Msg(acceptedMsg("ls b")))
}

func TestMouseReleaseOnOtherRowDoesNotAccept(t *testing.T) {
	m := newTestModel(&prefixCompletionProvider{labels: []string{"a", "b", "c"}})
	m = typeText(m, "ls ")
	m, _ = press(m, tabKey)

	m, _ = press(m, tea.MouseMsg{X: 1, Y: 1, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m, _ = press(m, tea.MouseMsg{X: 1, Y: 3, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	assert.True(t, m.PopupOpen())
	assert.Equal(t, 0, m.PopupFocus())
	assert.Equal(t, "ls ", m.Value())
}

func TestMouseMotionMovesFocus(t *testing.T) {
	m := newTestModel(&prefixCompletionProvider{labels: []string{"a", "b", "c"}})
	m = typeText(m, "ls ")
	m, _ = press(m, tabKey)
	require.Equal(t, 0, m.PopupFocus())

	m, _ = press(m, tea.MouseMsg{X: 2, Y: 3, Action: tea.MouseActionMotion, Button: tea.MouseButtonNone})
	assert.True(t, m.PopupOpen())
	assert.Equal(t, 2, m.PopupFocus())
	assert.Equal(t, "ls ", m.Value(), "hovering does not accept")

	// the border and the area outside the popup leave focus alone
	m, _ = press(m, tea.MouseMsg{X: 2, Y: 0, Action: tea.MouseActionMotion, Button: tea.MouseButtonNone})
	assert.Equal(t, 2, m.PopupFocus())
	m, _ = press(m, tea.MouseMsg{X: 40, Y: 1, Action: tea.MouseActionMotion, Button: tea.MouseButtonNone})
	assert.Equal(t, 2, m.PopupFocus())
	assert.True(t, m.PopupOpen())

	m, _ = press(m, enterKey)
	assert.Equal(t, "ls c", m.Value())
}

func TestMousePressOutsideCancels(t *testing.T) {
	m := newTestModel(&prefixCompletionProvider{labels: []string{"a", "b"}})
	m = typeText(m, "ls ")
	m, _ = press(m, tabKey)

	m, msgs := press(m, tea.MouseMsg{X: 40, Y: 1, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	assert.False(t, m.PopupOpen())
	assert.Equal(t, "ls ", m.Value())
	assert.Contains(t, msgs, tea.Msg(cancelledMsg{}))
}

func TestPopupSize(t *testing.T) {
	m := newTestModel(&prefixCompletionProvider{labels: []string{"a", "longer"}})
	width, height := m.PopupSize()
	assert.Zero(t, width)
	assert.Zero(t, height)

	m = typeText(m, "ls ")
	m, _ = press(m, tabKey)

	width, height = m.PopupRequiredSize()
	assert.Equal(t, 8, width)
	assert.Equal(t, 2, height)

	width, height = m.PopupSize()
	assert.Equal(t, 10, width)
	assert.Equal(t, 4, height)

	view := m.PopupView()
	assert.Contains(t, view, "longer")
	assert.Len(t, strings.Split(view, "\n"), 4)
}

func TestSetValueClosesPopup(t *testing.T) {
	m := newTestModel(&prefixCompletionProvider{labels: []string{"a", "b"}})
	m = typeText(m, "ls ")
	m, _ = press(m, tabKey)

	m.SetValue("echo\tdone")
	assert.False(t, m.PopupOpen())
	assert.Equal(t, "echo done", m.Value())
}

func TestView(t *testing.T) {
	m := newTestModel(nil)
	m.Prompt = "$ "
	m = typeText(m, "ls")

	assert.Contains(t, m.View(), "$ ls")

	m.Width = 10
	assert.Equal(t, 10, len([]rune(ansi.Strip(m.View()))))
}
