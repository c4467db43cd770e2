package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/robottwo/exline/internal/cmdline"
	"github.com/robottwo/exline/internal/completion"
	"github.com/robottwo/exline/internal/core"
	"github.com/robottwo/exline/internal/history"
	"github.com/robottwo/exline/internal/styles"
	"github.com/samber/lo"
)

// recordFunc stores a classified line, e.g. in the history database.
type recordFunc func(line string, result cmdline.Result) error

// completeLine classifies line at cursor and, when withCandidates is set,
// lists the candidates for the partial token.
func completeLine(ctx context.Context, provider *completion.Provider, line string, cursor int, withCandidates bool) (completion.Completion, error) {
	if withCandidates {
		return provider.Complete(ctx, line, cursor)
	}
	return completion.Completion{Result: provider.Classifier().Classify(line, cursor)}, nil
}

func printResult(w io.Writer, c completion.Completion, withCandidates, asJSON bool) error {
	if asJSON {
		var v any = c.Result
		if withCandidates {
			if c.Candidates == nil {
				c.Candidates = []completion.Candidate{}
			}
			v = c
		}
		return json.NewEncoder(w).Encode(v)
	}

	if _, err := fmt.Fprintln(w, core.Describe(c.Result)); err != nil {
		return err
	}
	if !withCandidates {
		return nil
	}
	for _, candidate := range c.Candidates {
		text := candidate.Display
		if text == "" {
			text = candidate.Value
		}
		line := "  " + styles.CANDIDATE(text)
		if candidate.Description != "" {
			line += "  " + styles.HINT(candidate.Description)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// classifyStream classifies every line of r at its end.
func classifyStream(
	ctx context.Context,
	r io.Reader,
	w io.Writer,
	provider *completion.Provider,
	record recordFunc,
	withCandidates, asJSON bool,
) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSuffix(scanner.Text(), "\r")
		c, err := completeLine(ctx, provider, line, len(line), withCandidates)
		if err != nil {
			return err
		}
		if err := printResult(w, c, withCandidates, asJSON); err != nil {
			return err
		}

		if record != nil && strings.TrimSpace(line) != "" {
			if err := record(line, c.Result); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return nil
}

type historyRecord struct {
	ID        uint      `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Line      string    `json:"line"`
	Kind      string    `json:"kind"`
	Command   string    `json:"command,omitempty"`
	SessionID string    `json:"session_id"`
}

// printHistory lists entries, given newest first, oldest first with their
// age relative to now.
// listHistory returns the recorded entries, newest first. A positive since
// keeps the entries recorded at most that long before now.
func listHistory(historyManager *history.HistoryManager, since time.Duration, now time.Time) ([]history.HistoryEntry, error) {
	if since <= 0 {
		return historyManager.GetAllEntries()
	}
	entries, err := historyManager.GetEntriesSince(now.Add(-since))
	if err != nil {
		return nil, err
	}
	return lo.Reverse(entries), nil
}

func printHistory(w io.Writer, entries []history.HistoryEntry, now time.Time, asJSON bool) error {
	encoder := json.NewEncoder(w)
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]

		if asJSON {
			err := encoder.Encode(historyRecord{
				ID:        entry.ID,
				CreatedAt: entry.CreatedAt,
				Line:      entry.Line,
				Kind:      entry.Kind,
				Command:   entry.Command,
				SessionID: entry.SessionID,
			})
			if err != nil {
				return err
			}
			continue
		}

		age := humanize.RelTime(entry.CreatedAt, now, "ago", "from now")
		_, err := fmt.Fprintf(w, "%5d  %s  %s  %s\n",
			entry.ID,
			styles.HINT(fmt.Sprintf("%-16s", age)),
			styles.KIND(fmt.Sprintf("%-13s", entry.Kind)),
			entry.Line,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
