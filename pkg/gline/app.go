package gline

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/robottwo/manette/pkg/shellinput"
	"go.uber.org/zap"
)

// maxTranscriptBlocks bounds how much output the viewport keeps.
const maxTranscriptBlocks = 500

const statusHint = "tab complete · pgup/pgdn scroll · ctrl+d exit"

type keyMap struct {
	Submit    key.Binding
	Interrupt key.Binding
	Exit      key.Binding
	Clear     key.Binding
	Scroll    key.Binding
}

var defaultKeyMap = keyMap{
	Submit:    key.NewBinding(key.WithKeys("enter")),
	Interrupt: key.NewBinding(key.WithKeys("ctrl+c")),
	Exit:      key.NewBinding(key.WithKeys("ctrl+d")),
	Clear:     key.NewBinding(key.WithKeys("ctrl+l")),
	Scroll:    key.NewBinding(key.WithKeys("pgup", "pgdown")),
}

type appModel struct {
	shell   Shell
	logger  *zap.Logger
	options Options
	keys    keyMap

	textInput shellinput.Model
	output    viewport.Model
	status    StatusIndicator
	title     TitleBar

	width  int
	height int

	blocks   []string
	running  bool
	cancel   context.CancelFunc
	quitting bool

	echoStyle   lipgloss.Style
	stderrStyle lipgloss.Style
	errorStyle  lipgloss.Style
	hintStyle   lipgloss.Style
}

type startupMsg struct{}

type commandFinishedMsg struct {
	request Request
	result  Result
}

type editorFinishedMsg struct {
	line string
	err  error
}

type completionAcceptedMsg struct {
	completion string
}

type completionCancelledMsg struct{}

func initialModel(shell Shell, logger *zap.Logger, options Options) appModel {
	snapshot := shell.Snapshot()

	textInput := shellinput.New()
	textInput.Prompt = snapshot.Prompt
	textInput.Logger = logger
	textInput.SetHistoryValues(snapshot.History)
	textInput.SetPopupSize(options.PopupHeight, options.PopupPageSize)
	textInput.Cursor.SetMode(cursor.CursorStatic)
	textInput.CompletionProvider = options.CompletionProvider
	textInput.OnAccept = func(completion string) tea.Cmd {
		return func() tea.Msg { return completionAcceptedMsg{completion: completion} }
	}
	textInput.OnCancel = func() tea.Cmd {
		return func() tea.Msg { return completionCancelledMsg{} }
	}
	textInput.Focus()

	title := NewTitleBar(options.Title, options.HomeDirectory)
	title.SetDirectory(snapshot.WorkingDirectory)

	return appModel{
		shell:   shell,
		logger:  logger,
		options: options,
		keys:    defaultKeyMap,

		textInput: textInput,
		output:    viewport.New(0, 0),
		status:    NewStatusIndicator(),
		title:     title,

		echoStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		stderrStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		errorStyle:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		hintStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func (m appModel) Init() tea.Cmd {
	cmds := []tea.Cmd{shellinput.Blink, m.windowTitle()}
	if m.options.StartupCommand != "" {
		cmds = append(cmds, func() tea.Msg { return startupMsg{} })
	}
	return tea.Batch(cmds...)
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m, cmd := m.update(msg)
	m.layout()
	return m, cmd
}

func (m appModel) update(msg tea.Msg) (appModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textInput.Width = msg.Width
		m.title.SetWidth(msg.Width)
		m.refreshOutput()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.status, cmd = m.status.Update(msg)
		return m, cmd

	case startupMsg:
		cmd := m.run(Request{Line: m.options.StartupCommand, Quiet: true})
		return m, cmd

	case commandFinishedMsg:
		return m.finishCommand(msg)

	case editorFinishedMsg:
		shell := m.shell
		return m, func() tea.Msg {
			return commandFinishedMsg{
				request: Request{Line: msg.line},
				result:  shell.FinishEdit(msg.line, msg.err),
			}
		}

	case completionAcceptedMsg:
		m.logger.Debug("gline completion accepted", zap.String("line", msg.completion))
		return m, nil

	case completionCancelledMsg:
		m.logger.Debug("gline completion cancelled", zap.String("line", m.textInput.Value()))
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)

	case tea.MouseMsg:
		if m.textInput.PopupOpen() {
			x, y := m.popupOrigin()
			msg.X -= x
			msg.Y -= y
			return m.updateTextInput(msg)
		}
		var cmd tea.Cmd
		m.output, cmd = m.output.Update(msg)
		return m, cmd
	}

	return m.updateTextInput(msg)
}

func (m appModel) updateKey(msg tea.KeyMsg) (appModel, tea.Cmd) {
	if key.Matches(msg, m.keys.Scroll) && !m.textInput.PopupOpen() {
		var cmd tea.Cmd
		m.output, cmd = m.output.Update(msg)
		return m, cmd
	}

	if m.running {
		if key.Matches(msg, m.keys.Interrupt) && m.cancel != nil {
			m.logger.Debug("gline interrupting running command")
			m.cancel()
		}
		return m, nil
	}

	if m.textInput.PopupOpen() {
		return m.updateTextInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.Interrupt):
		if m.textInput.Value() == "" {
			m.quitting = true
			return m, tea.Quit
		}
		m.appendBlock(m.echo(m.textInput.Value() + "^C"))
		m.textInput.Reset()
		m.refreshOutput()
		return m, nil

	case key.Matches(msg, m.keys.Exit):
		if m.textInput.Value() == "" {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		m.logger.Debug("gline clearing output", zap.Int("blocks", len(m.blocks)))
		m.blocks = nil
		m.refreshOutput()
		return m, tea.ClearScreen
	}

	return m.updateTextInput(msg)
}

func (m appModel) updateTextInput(msg tea.Msg) (appModel, tea.Cmd) {
	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m appModel) submit() (appModel, tea.Cmd) {
	line := m.textInput.Value()
	if strings.TrimSpace(line) == "" {
		return m, nil
	}

	m.textInput.Reset()
	m.appendBlock(m.echo(line))
	m.refreshOutput()

	if editor := m.shell.EditCommand(line); editor != nil {
		m.logger.Debug("gline launching editor", zap.String("line", line), zap.Strings("args", editor.Args))
		m.running = true
		m.status.Start()
		return m, tea.Batch(m.status.Tick(), tea.ExecProcess(editor, func(err error) tea.Msg {
			return editorFinishedMsg{line: line, err: err}
		}))
	}

	cmd := m.run(Request{Line: line})
	return m, cmd
}

// run executes req off the update loop. The returned command reports
// commandFinishedMsg.
func (m *appModel) run(req Request) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true
	m.status.Start()

	m.logger.Debug("gline running command", zap.String("line", req.Line), zap.Bool("quiet", req.Quiet))

	shell := m.shell
	return tea.Batch(m.status.Tick(), func() tea.Msg {
		defer cancel()
		return commandFinishedMsg{request: req, result: shell.Execute(ctx, req)}
	})
}

func (m appModel) finishCommand(msg commandFinishedMsg) (appModel, tea.Cmd) {
	result := msg.result
	m.running = false
	m.cancel = nil

	if result.Stdout != "" {
		m.appendBlock(strings.TrimRight(result.Stdout, "\n"))
	}
	if result.Stderr != "" {
		m.appendBlock(m.stderrStyle.Render(strings.TrimRight(result.Stderr, "\n")))
	}
	if result.Err != nil {
		m.appendBlock(m.errorStyle.Render(fmt.Sprintf("manette: %v", result.Err)))
	}

	m.status.Finish(result.ExitCode, result.Duration)
	previousDirectory := m.title.Directory()
	m.applySnapshot(result.Snapshot)

	m.logger.Debug(
		"gline command finished",
		zap.String("line", msg.request.Line),
		zap.Int("exitCode", result.ExitCode),
		zap.Duration("duration", result.Duration),
		zap.Bool("exited", result.Exited),
	)

	if result.Exited {
		m.quitting = true
		return m, tea.Quit
	}

	m.refreshOutput()
	if m.title.Directory() != previousDirectory {
		return m, m.windowTitle()
	}
	return m, nil
}

// windowTitle names the terminal window after the working directory.
func (m appModel) windowTitle() tea.Cmd {
	if dir := m.title.Directory(); dir != "" {
		return tea.SetWindowTitle(m.options.Title + ": " + dir)
	}
	return tea.SetWindowTitle(m.options.Title)
}

func (m *appModel) applySnapshot(snapshot Snapshot) {
	if snapshot.Prompt != "" {
		m.textInput.Prompt = snapshot.Prompt
	}
	m.textInput.SetHistoryValues(snapshot.History)
	if snapshot.WorkingDirectory != "" {
		m.title.SetDirectory(snapshot.WorkingDirectory)
	}
}

func (m appModel) echo(line string) string {
	return m.echoStyle.Render(m.textInput.Prompt) + line
}

func (m *appModel) appendBlock(block string) {
	m.blocks = append(m.blocks, block)
	if len(m.blocks) > maxTranscriptBlocks {
		m.blocks = m.blocks[len(m.blocks)-maxTranscriptBlocks:]
	}
}

func (m *appModel) refreshOutput() {
	content := strings.Join(m.blocks, "\n")
	m.output.SetContent(WordwrapWithRuneWidth(content, m.width))
	m.output.GotoBottom()
}

// layout gives the output viewport whatever the other rows leave over.
func (m *appModel) layout() {
	_, popupHeight := m.textInput.PopupSize()
	inputHeight := lipgloss.Height(m.textInput.View())
	height := m.height - 1 - inputHeight - popupHeight - 1

	m.output.Width = max(0, m.width)
	m.output.Height = max(1, height)
}

// popupOrigin returns the screen position of the popup's top left corner.
// The popup sits under the start of the argument being completed.
func (m appModel) popupOrigin() (int, int) {
	value := m.textInput.Value()
	x := runewidth.StringWidth(m.textInput.Prompt)
	if i := strings.LastIndex(value, " "); i >= 0 {
		x += runewidth.StringWidth(value[:i+1])
	}

	popupWidth, _ := m.textInput.PopupSize()
	if m.width > 0 {
		x = min(x, m.width-popupWidth)
	}
	x = max(0, x)

	y := 1 + lipgloss.Height(m.textInput.View())
	return x, y
}

func (m appModel) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{m.title.View(), m.textInput.View()}
	if m.textInput.PopupOpen() {
		x, _ := m.popupOrigin()
		sections = append(sections, lipgloss.NewStyle().PaddingLeft(x).Render(m.textInput.PopupView()))
	}
	sections = append(sections, m.output.View(), m.statusLine())

	return strings.Join(sections, "\n")
}

func (m appModel) statusLine() string {
	line := m.status.View()
	if m.width <= 0 {
		return line + "  " + m.hintStyle.Render(statusHint)
	}

	remaining := m.width - m.status.Width() - 2
	if remaining <= 0 {
		return line
	}
	return line + "  " + m.hintStyle.Render(fitWidth(statusHint, remaining))
}

// Run takes over the terminal and edits and runs lines until the user exits.
func Run(shell Shell, logger *zap.Logger, options Options) error {
	p := tea.NewProgram(
		initialModel(shell, logger, options),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := p.Run(); err != nil {
		logger.Error("gline program failed", zap.Error(err))
		return err
	}
	return nil
}
