package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/robottwo/exline/internal/cmdline"
	"github.com/robottwo/exline/internal/completion"
	"github.com/robottwo/exline/internal/config"
	"github.com/robottwo/exline/internal/history"
	"github.com/robottwo/exline/internal/styles"
	"github.com/robottwo/exline/pkg/gline"
	"go.uber.org/zap"
)

const Prompt = ":"

// quitCommands end an interactive session when accepted.
var quitCommands = map[string]bool{
	"quit":    true,
	"quitall": true,
	"qall":    true,
	"cquit":   true,
	"wq":      true,
	"wqall":   true,
	"xit":     true,
	"exit":    true,
	"xall":    true,
}

// Session handles the lines accepted by one interactive run.
type Session struct {
	ID string

	provider       *completion.Provider
	historyManager *history.HistoryManager
	cfg            *config.Config
	logger         *zap.Logger
	out            io.Writer
}

func NewSession(
	provider *completion.Provider,
	historyManager *history.HistoryManager,
	cfg *config.Config,
	logger *zap.Logger,
	out io.Writer,
) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		ID:             uuid.New().String(),
		provider:       provider,
		historyManager: historyManager,
		cfg:            cfg,
		logger:         logger,
		out:            out,
	}
}

// HistoryLines returns the lines offered by Up/Down, oldest first.
func (s *Session) HistoryLines() []string {
	if s.historyManager == nil || s.cfg.HistorySize == 0 {
		return nil
	}
	entries, err := s.historyManager.GetRecentEntries(s.cfg.HistorySize)
	if err != nil {
		s.logger.Warn("error getting recent history entries", zap.Error(err))
		return nil
	}

	lines := make([]string, len(entries))
	for i, entry := range entries {
		lines[i] = entry.Line
	}
	return lines
}

// HistoryMatches returns the history lines starting with prefix, oldest
// first.
func (s *Session) HistoryMatches(prefix string) []string {
	if s.historyManager == nil || s.cfg.HistorySize == 0 {
		return nil
	}
	entries, err := s.historyManager.GetRecentEntriesByPrefix(prefix, s.cfg.HistorySize)
	if err != nil {
		s.logger.Warn("error searching history", zap.String("prefix", prefix), zap.Error(err))
		return nil
	}

	lines := make([]string, len(entries))
	for i, entry := range entries {
		lines[len(entries)-1-i] = entry.Line
	}
	return lines
}

// Accept records line in history and prints its classification at the end
// of the line. It reports whether the line ends the session.
func (s *Session) Accept(line string) (bool, error) {
	if strings.TrimSpace(line) == "" {
		return false, nil
	}

	result := s.provider.Classifier().Classify(line, len(line))
	fmt.Fprintln(s.out, Describe(result))

	if s.historyManager != nil {
		if _, err := s.historyManager.Add(line, result, s.ID); err != nil {
			return false, err
		}
		if removed, err := s.historyManager.Trim(s.cfg.HistorySize); err != nil {
			s.logger.Warn("error trimming history", zap.Error(err))
		} else if removed > 0 {
			s.logger.Debug("trimmed history", zap.Int64("removed", removed))
		}
	}

	s.deleteUserCommand(result)

	return s.isQuit(line), nil
}

// deleteUserCommand drops the user command named by an accepted ":delcommand"
// from the candidates of the following prompts.
func (s *Session) deleteUserCommand(result cmdline.Result) {
	if result.Command != "delcommand" || result.Kind != cmdline.KindUserCommands {
		return
	}
	name := strings.TrimSpace(result.Arg())
	if name == "" {
		return
	}
	if s.provider.Static().UnregisterUserCommand(name) {
		s.logger.Debug("deleted user command", zap.String("name", name))
	}
}

// isQuit reports whether the command under the end of line ends the session.
// The blank appended to line completes a name still being typed, so "q",
// "1q" and "silent q" resolve like "q!".
func (s *Session) isQuit(line string) bool {
	closed := line + " "
	result := s.provider.Classifier().Classify(closed, len(closed))
	return quitCommands[result.Command]
}

// Describe renders a classification as "kind command! @pos".
func Describe(result cmdline.Result) string {
	parts := []string{styles.KIND(result.Kind.String())}
	if result.Command != "" {
		command := result.Command
		if result.Force {
			command += "!"
		}
		parts = append(parts, styles.COMMAND(command))
	}
	parts = append(parts, styles.HINT(fmt.Sprintf("@%d", result.ArgStart)))
	return strings.Join(parts, " ")
}

// ignoreInterrupts keeps SIGINT from ending the process while the prompt
// owns the terminal. The returned func restores the default handling and
// waits for the listener goroutine to exit.
func ignoreInterrupts() func() {
	chanSIGINT := make(chan os.Signal, 1)
	signal.Notify(chanSIGINT, os.Interrupt)

	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		for {
			select {
			case <-chanSIGINT:
				// ignore SIGINT
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(chanSIGINT)
		close(done)
		<-exited
	}
}

// RunInteractiveSession reads lines with completion until the user quits or
// ends input.
func RunInteractiveSession(
	ctx context.Context,
	provider *completion.Provider,
	historyManager *history.HistoryManager,
	cfg *config.Config,
	logger *zap.Logger,
) error {
	session := NewSession(provider, historyManager, cfg, logger, os.Stdout)
	logger.Debug("starting interactive session", zap.String("session", session.ID))

	stopIgnoring := ignoreInterrupts()
	defer stopIgnoring()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		// pick up entries added to completions.yaml since the last prompt
		provider.Static().ReloadUserCompletions()

		options := gline.NewOptions()
		options.HistorySearch = session.HistoryMatches
		line, err := gline.Gline(Prompt, session.HistoryLines(), provider, logger, options)

		logger.Debug("received line", zap.String("line", line))

		if err != nil {
			if errors.Is(err, gline.ErrInterrupted) {
				logger.Debug("input interrupted by user")
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			logger.Error("error reading input through gline", zap.Error(err))
			return err
		}

		quit, err := session.Accept(line)
		if err != nil {
			logger.Error("error recording line", zap.Error(err))
			fmt.Fprint(os.Stderr, gline.RESET_CURSOR_COLUMN+styles.ERROR("exline: "+err.Error()+"\n"))
		}
		if quit {
			logger.Debug("exiting...")
			return nil
		}
	}
}
