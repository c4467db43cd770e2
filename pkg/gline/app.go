package gline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/robottwo/exline/internal/completion"
	"go.uber.org/zap"
)

// RESET_CURSOR_COLUMN moves the cursor back to the first column.
const RESET_CURSOR_COLUMN = "\033[1G"

type appModel struct {
	completer Completer
	logger    *zap.Logger
	options   Options

	textInput textinput.Model
	copyLine  func(string) error

	// completion belongs to completionStateId; it is only acted on while
	// that matches stateId.
	completion        completion.Completion
	completionStateId int
	stateId           int
	selected          int
	lastError         error

	// history holds every line; historyValues the ones Up/Down walk.
	history       []string
	historyValues []string
	historyIndex  int
	draft         string

	result      string
	appState    appState
	interrupted bool
	eof         bool
	width       int

	styles viewStyles
}

type setCompletionMsg struct {
	stateId    int
	completion completion.Completion
}

// errorMsg wraps an error returned by the completer
type errorMsg struct {
	stateId int
	err     error
}

// ErrInterrupted is returned when the user presses Ctrl+C or Esc
var ErrInterrupted = errors.New("interrupted by user")

type terminateMsg struct{}

func terminate() tea.Msg {
	return terminateMsg{}
}

type interruptMsg struct{}

func interrupt() tea.Msg {
	return interruptMsg{}
}

type endOfInputMsg struct{}

func endOfInput() tea.Msg {
	return endOfInputMsg{}
}

type appState int

const (
	Active appState = iota
	Terminated
)

func initialModel(
	prompt string,
	historyValues []string,
	completer Completer,
	logger *zap.Logger,
	options Options,
) appModel {
	if completer == nil {
		completer = &NoopCompleter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if options.AssistantHeight <= 0 {
		options.AssistantHeight = NewOptions().AssistantHeight
	}
	if options.CompletionTimeout <= 0 {
		options.CompletionTimeout = NewOptions().CompletionTimeout
	}

	textInput := textinput.New()
	textInput.Prompt = prompt
	if options.InitialValue != "" {
		textInput.SetValue(options.InitialValue)
		textInput.CursorEnd()
	}
	textInput.Cursor.SetMode(cursor.CursorStatic)
	textInput.Focus()

	return appModel{
		completer: completer,
		logger:    logger,
		options:   options,

		textInput: textInput,
		copyLine:  clipboard.WriteAll,
		// nothing has been completed yet
		completionStateId: -1,

		history:       historyValues,
		historyValues: historyValues,
		historyIndex:  len(historyValues),

		appState: Active,
		styles:   newViewStyles(),
	}
}

func (m appModel) Init() tea.Cmd {
	return m.complete()
}

// cursorOffset converts the rune position of the input cursor to a byte
// offset into the input value.
func (m appModel) cursorOffset() int {
	runes := []rune(m.textInput.Value())
	pos := max(0, min(m.textInput.Position(), len(runes)))
	return len(string(runes[:pos]))
}

// fresh reports whether the shown completion matches the current input.
func (m appModel) fresh() bool {
	return m.completionStateId == m.stateId
}

func (m appModel) complete() tea.Cmd {
	stateId := m.stateId
	line := m.textInput.Value()
	offset := m.cursorOffset()
	completer := m.completer
	logger := m.logger
	timeout := m.options.CompletionTimeout

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		c, err := completer.Complete(ctx, line, offset)
		if err != nil {
			logger.Debug("gline completion failed", zap.Error(err))
			return errorMsg{stateId: stateId, err: err}
		}

		logger.Debug(
			"gline completed input",
			zap.Int("stateId", stateId),
			zap.String("kind", c.Kind.String()),
			zap.Int("candidates", len(c.Candidates)),
		)
		return setCompletionMsg{stateId: stateId, completion: c}
	}
}

// inputChanged invalidates the current completion and requests a new one.
func (m appModel) inputChanged() (appModel, tea.Cmd) {
	m.stateId++
	m.selected = 0
	m.lastError = nil
	return m, m.complete()
}

func (m appModel) updateTextInput(msg tea.Msg) (appModel, tea.Cmd) {
	oldVal := m.textInput.Value()
	oldPos := m.textInput.Position()

	updatedTextInput, cmd := m.textInput.Update(msg)
	m.textInput = updatedTextInput

	if m.textInput.Value() == oldVal && m.textInput.Position() == oldPos {
		return m, cmd
	}

	// a typed edit leaves history navigation
	if m.textInput.Value() != oldVal {
		m.historyIndex = len(m.historyValues)
	}

	m, completeCmd := m.inputChanged()
	return m, tea.Batch(cmd, completeCmd)
}

func (m appModel) setCompletion(msg setCompletionMsg) (appModel, tea.Cmd) {
	if msg.stateId != m.stateId {
		m.logger.Debug(
			"gline discarding completion",
			zap.Int("startStateId", msg.stateId),
			zap.Int("newStateId", m.stateId),
		)
		return m, nil
	}

	m.completion = msg.completion
	m.completionStateId = msg.stateId
	m.selected = 0
	m.lastError = nil
	return m, nil
}

// acceptCandidate replaces the token before the cursor with the selected
// candidate, keeping the text after the cursor.
func (m appModel) acceptCandidate() (appModel, tea.Cmd) {
	if !m.fresh() || len(m.completion.Candidates) == 0 {
		return m, nil
	}

	value := m.textInput.Value()
	rest := value[m.cursorOffset():]
	applied, _ := m.completion.Apply(m.selected)

	m.textInput.SetValue(applied + rest)
	m.textInput.SetCursor(utf8.RuneCountInString(applied))
	m.historyIndex = len(m.historyValues)
	return m.inputChanged()
}

// moveSelection moves the highlighted candidate by delta, wrapping around
// the visible rows.
func (m appModel) moveSelection(delta int) appModel {
	n := min(len(m.completion.Candidates), m.options.AssistantHeight)
	if !m.fresh() || n == 0 {
		return m
	}
	m.selected = ((m.selected+delta)%n + n) % n
	return m
}

// copyToClipboard puts the whole input line on the system clipboard.
func (m appModel) copyToClipboard() appModel {
	if err := m.copyLine(m.textInput.Value()); err != nil {
		m.logger.Debug("gline failed to copy line", zap.Error(err))
		m.lastError = fmt.Errorf("failed to copy line: %w", err)
		return m
	}
	m.logger.Debug("gline copied line to clipboard")
	return m
}

func (m appModel) historyPrev() (appModel, tea.Cmd) {
	if m.historyIndex == len(m.historyValues) {
		m.draft = m.textInput.Value()
		m.historyValues = m.historyMatches(m.draft)
		m.historyIndex = len(m.historyValues)
	}
	if m.historyIndex <= 0 {
		return m, nil
	}
	m.historyIndex--
	m.textInput.SetValue(m.historyValues[m.historyIndex])
	m.textInput.CursorEnd()
	return m.inputChanged()
}

// historyMatches lists the lines Up/Down walk from draft.
func (m appModel) historyMatches(draft string) []string {
	if m.options.HistorySearch == nil || strings.TrimSpace(draft) == "" {
		return m.history
	}
	return m.options.HistorySearch(draft)
}

func (m appModel) historyNext() (appModel, tea.Cmd) {
	if m.historyIndex >= len(m.historyValues) {
		return m, nil
	}
	m.historyIndex++
	if m.historyIndex == len(m.historyValues) {
		m.textInput.SetValue(m.draft)
	} else {
		m.textInput.SetValue(m.historyValues[m.historyIndex])
	}
	m.textInput.CursorEnd()
	return m.inputChanged()
}

// Gline reads one command line. It returns ErrInterrupted when the line is
// cancelled and io.EOF when the user ends input on an empty line.
func Gline(
	prompt string,
	historyValues []string,
	completer Completer,
	logger *zap.Logger,
	options Options,
) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := tea.NewProgram(
		initialModel(prompt, historyValues, completer, logger, options),
	)

	m, err := p.Run()
	if err != nil {
		return "", err
	}

	appModel, ok := m.(appModel)
	if !ok {
		logger.Error("Gline resulted in an unexpected app model")
		panic("Gline resulted in an unexpected app model")
	}

	if appModel.interrupted {
		// keep the cancelled line visible
		fmt.Print(RESET_CURSOR_COLUMN + prompt + appModel.textInput.Value() + "^C\n")
		return "", ErrInterrupted
	}

	if appModel.eof {
		fmt.Print(RESET_CURSOR_COLUMN + prompt + "\n")
		return "", io.EOF
	}

	fmt.Print(RESET_CURSOR_COLUMN + appModel.getFinalOutput() + "\n")

	return appModel.result, nil
}
