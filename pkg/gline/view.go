package gline

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/ansi"
	"github.com/robottwo/exline/internal/cmdline"
	"github.com/robottwo/exline/internal/completion"
)

const defaultWidth = 80

type viewStyles struct {
	box         lipgloss.Style
	command     lipgloss.Style
	count       lipgloss.Style
	candidate   lipgloss.Style
	selected    lipgloss.Style
	description lipgloss.Style
	hint        lipgloss.Style
	error       lipgloss.Style
}

func newViewStyles() viewStyles {
	return viewStyles{
		box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1),
		command:     lipgloss.NewStyle().Bold(true),
		count:       lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		candidate:   lipgloss.NewStyle(),
		selected:    lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("12")),
		description: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		hint:        lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		error:       lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

// kindColors groups kinds by the source of their candidates.
var kindColors = map[cmdline.Kind]lipgloss.Color{
	cmdline.KindCommand:      "12",
	cmdline.KindFile:         "10",
	cmdline.KindDir:          "10",
	cmdline.KindFileInPath:   "10",
	cmdline.KindFileOpt:      "13",
	cmdline.KindHelp:         "14",
	cmdline.KindTags:         "14",
	cmdline.KindEnvironment:  "11",
	cmdline.KindUser:         "11",
	cmdline.KindShellCmd:     "11",
	cmdline.KindUserCommands: "5",
}

func kindBadge(kind cmdline.Kind) string {
	color, ok := kindColors[kind]
	if !ok {
		color = "240"
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true).Render(kind.String())
}

func (m appModel) View() string {
	// Once terminated, render nothing
	if m.appState == Terminated {
		return ""
	}

	return m.textInput.View() + "\n" + m.assistantView()
}

// contentWidth is the number of columns inside the box border and padding.
func (m appModel) contentWidth() int {
	width := m.width
	if width <= 0 {
		width = defaultWidth
	}
	return max(1, width-4)
}

func (m appModel) assistantView() string {
	width := m.contentWidth()

	lines := []string{m.statusLine(width)}
	switch {
	case m.lastError != nil:
		lines = append(lines, m.styles.error.Render(runewidth.Truncate("error: "+m.lastError.Error(), width, "…")))
	case m.completionStateId < 0:
		// still waiting for the first completion
	case !m.completion.Kind.Completable():
		lines = append(lines, m.styles.hint.Render("no completion at this position"))
	case len(m.completion.Candidates) == 0:
		lines = append(lines, m.styles.hint.Render("no matches"))
	default:
		lines = append(lines, m.candidateLines(width)...)
	}

	for len(lines) < m.options.AssistantHeight+1 {
		lines = append(lines, "")
	}

	return m.styles.box.Width(width + 2).Render(strings.Join(lines, "\n"))
}

// statusLine shows the kind, the resolved command and the candidate count.
func (m appModel) statusLine(width int) string {
	c := m.completion
	if m.completionStateId < 0 {
		return m.styles.hint.Render("…")
	}

	badge := kindBadge(c.Kind)
	used := ansi.PrintableRuneWidth(badge)
	parts := []string{badge}

	count := ""
	if c.Kind.Completable() && m.lastError == nil {
		count = fmt.Sprintf("%d", len(c.Candidates))
		if len(c.Candidates) == 1 {
			count += " candidate"
		} else {
			count += " candidates"
		}
	}

	if c.Command != "" {
		command := c.Command
		if c.Force {
			command += "!"
		}
		room := width - used - 1
		if count != "" {
			room -= runewidth.StringWidth(count) + 2
		}
		if room > 0 {
			command = runewidth.Truncate(command, room, "…")
			parts = append(parts, m.styles.command.Render(command))
			used += 1 + runewidth.StringWidth(command)
		}
	}

	line := strings.Join(parts, " ")
	if count != "" && used+2+runewidth.StringWidth(count) <= width {
		line += "  " + m.styles.count.Render(count)
	}
	return line
}

// candidateLines renders up to AssistantHeight candidates as two columns,
// the value and its description, each truncated to fit width.
func (m appModel) candidateLines(width int) []string {
	candidates := m.completion.Candidates
	if len(candidates) > m.options.AssistantHeight {
		candidates = candidates[:m.options.AssistantHeight]
	}

	const marker = 2
	column := 0
	for _, c := range candidates {
		column = max(column, runewidth.StringWidth(displayText(c)))
	}
	column = max(1, min(column, (width-marker)/2))

	lines := make([]string, 0, len(candidates))
	for i, c := range candidates {
		value := runewidth.FillRight(runewidth.Truncate(displayText(c), column, "…"), column)

		var line strings.Builder
		if i == m.selected {
			line.WriteString("> ")
			line.WriteString(m.styles.selected.Render(value))
		} else {
			line.WriteString("  ")
			line.WriteString(m.styles.candidate.Render(value))
		}

		room := width - marker - column - 1
		if c.Description != "" && room > 0 {
			line.WriteString(" ")
			line.WriteString(m.styles.description.Render(runewidth.Truncate(c.Description, room, "…")))
		}
		lines = append(lines, line.String())
	}
	return lines
}

func displayText(c completion.Candidate) string {
	if c.Display != "" {
		return c.Display
	}
	return c.Value
}

func (m appModel) getFinalOutput() string {
	m.textInput.SetValue(m.result)
	m.textInput.Blur()
	return m.textInput.View()
}
