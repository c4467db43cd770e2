package gline

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rivo/uniseg"
)

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.textInput.Width = max(0, msg.Width-uniseg.StringWidth(m.textInput.Prompt)-1)
		return m, nil

	case terminateMsg:
		m.appState = Terminated
		return m, nil

	case interruptMsg:
		m.appState = Terminated
		m.interrupted = true
		return m, nil

	case endOfInputMsg:
		m.appState = Terminated
		m.eof = true
		return m, nil

	case setCompletionMsg:
		return m.setCompletion(msg)

	case errorMsg:
		if msg.stateId == m.stateId {
			m.lastError = msg.err
			m.completion.Candidates = nil
			m.completionStateId = msg.stateId
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {

		case "enter":
			m.result = m.textInput.Value()
			return m, tea.Sequence(terminate, tea.Quit)

		case "ctrl+c", "esc":
			m.result = ""
			return m, tea.Sequence(interrupt, tea.Quit)

		case "ctrl+d":
			// end of input only on a blank line, otherwise delete forward
			if strings.TrimSpace(m.textInput.Value()) == "" {
				m.result = ""
				return m, tea.Sequence(endOfInput, tea.Quit)
			}

		case "tab":
			return m.acceptCandidate()

		case "ctrl+n":
			return m.moveSelection(1), nil

		case "ctrl+p", "shift+tab":
			return m.moveSelection(-1), nil

		case "up":
			return m.historyPrev()

		case "down":
			return m.historyNext()

		case "ctrl+y":
			return m.copyToClipboard(), nil

		case "ctrl+l":
			return m, tea.ClearScreen
		}
	}

	return m.updateTextInput(msg)
}
