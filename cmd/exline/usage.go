package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/robottwo/exline/internal/styles"
	"golang.org/x/term"
)

const (
	defaultTerminalWidth = 80
	flagColumn           = 28
)

var keyBindings = [][2]string{
	{"Tab", "Replace the word before the cursor with the highlighted candidate"},
	{"Ctrl+N, Ctrl+P", "Move the highlight through the candidates"},
	{"Up, Down", "Walk the recorded history, limited to lines starting with the typed text"},
	{"Enter", "Accept the line, print its classification and record it"},
	{"Ctrl+C, Esc", "Cancel the current line"},
	{"Ctrl+D", "Exit (on an empty line)"},
	{"Ctrl+Y", "Copy the line to the clipboard"},
	{"Ctrl+L", "Clear the screen"},
}

func terminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return defaultTerminalWidth
}

func printUsage() {
	writeUsage(os.Stdout, flag.CommandLine, terminalWidth())
}

// writeColumns prints name padded to the flag column followed by text
// wrapped to the remaining width.
func writeColumns(w io.Writer, name, text string, width int) {
	textWidth := max(20, width-flagColumn-3)
	lines := strings.SplitN(wordwrap.String(text, textWidth), "\n", 2)

	if len(name) > flagColumn {
		fmt.Fprintf(w, "  %s\n%s%s\n", name, strings.Repeat(" ", flagColumn+3), lines[0])
	} else {
		fmt.Fprintf(w, "  %-*s %s\n", flagColumn, name, lines[0])
	}
	if len(lines) > 1 {
		fmt.Fprintln(w, indent.String(lines[1], flagColumn+3))
	}
}

func writeUsage(w io.Writer, flags *flag.FlagSet, width int) {
	fmt.Fprintln(w, styles.KIND("Usage:")+" exline [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, wordwrap.String(
		"Classify ex command lines the way Vim decides what to complete at the cursor, "+
			"and list the candidates. With a terminal on stdin exline starts an interactive prompt; "+
			"otherwise each input line is classified at its end.", width))
	fmt.Fprintln(w)

	fmt.Fprintln(w, styles.KIND("Options:"))

	// We want to group aliases like -h and -help together
	printed := make(map[string]bool)

	flags.VisitAll(func(f *flag.Flag) {
		if printed[f.Name] {
			return
		}

		// Identify aliases based on shared usage strings.
		aliases := []string{f.Name}
		flags.VisitAll(func(p *flag.Flag) {
			if p.Name == f.Name {
				return
			}
			if p.Usage == f.Usage {
				aliases = append(aliases, p.Name)
				printed[p.Name] = true
			}
		})
		printed[f.Name] = true

		// Separate short and long flags
		var shortFlags, longFlags []string
		for _, name := range aliases {
			if len(name) == 1 {
				shortFlags = append(shortFlags, "-"+name)
			} else {
				longFlags = append(longFlags, "-"+name)
			}
		}
		flagStr := strings.Join(append(shortFlags, longFlags...), ", ")

		// Check if the flag takes an argument
		argName, usage := flag.UnquoteUsage(f)
		if argName != "" {
			flagStr += " <" + argName + ">"
		}

		writeColumns(w, flagStr, usage, width)
	})

	fmt.Fprintln(w)
	fmt.Fprintln(w, styles.KIND("Interactive keys:"))
	for _, binding := range keyBindings {
		writeColumns(w, binding[0], binding[1], width)
	}
}
