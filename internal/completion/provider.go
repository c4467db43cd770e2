package completion

import (
	"context"
	"fmt"
	"slices"

	"github.com/robottwo/exline/internal/cmdline"
	"go.uber.org/zap"
	"mvdan.cc/sh/v3/expand"
)

const defaultMaxCandidates = 50

// Options configures a Provider. Zero values select the defaults.
type Options struct {
	Registry      *cmdline.Registry
	Logger        *zap.Logger
	Fuzzy         bool
	MaxCandidates int
	// HelpTags and TagFiles are tags files for help topics and tags.
	HelpTags []string
	TagFiles []string
	// Path lists the directories searched by :find and friends.
	Path       []string
	PasswdFile string
	Dir        string
	Env        expand.Environ
	// UserCommands are registered in addition to the ones found in the
	// user completion files.
	UserCommands []UserCompletion
}

// Provider classifies a command line and produces the candidates for the
// partial token under the cursor.
type Provider struct {
	classifier *cmdline.Classifier
	static     *StaticCompleter
	defaults   *DefaultCompleter
	docs       *DocumentationCompleter
	builtins   []Candidate
	fuzzy      bool
	max        int
	logger     *zap.Logger
}

// NewProvider builds a Provider from opts.
func NewProvider(opts Options) *Provider {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxCandidates := opts.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = defaultMaxCandidates
	}

	static := NewStaticCompleter()
	for _, uc := range opts.UserCommands {
		static.RegisterUserCommand(uc.Value, uc.Description)
	}

	classifier := cmdline.NewClassifier(opts.Registry, logger)
	return &Provider{
		classifier: classifier,
		static:     static,
		builtins:   builtinCandidates(classifier.Registry()),
		defaults: &DefaultCompleter{
			Dir:        opts.Dir,
			Path:       opts.Path,
			PasswdFile: opts.PasswdFile,
			Env:        opts.Env,
			Fuzzy:      opts.Fuzzy,
			Max:        maxCandidates,
		},
		docs:   NewDocumentationCompleter(opts.HelpTags, opts.TagFiles, logger),
		fuzzy:  opts.Fuzzy,
		max:    maxCandidates,
		logger: logger,
	}
}

// Static returns the completer holding user commands and fixed tables, for
// registering user commands at runtime.
func (p *Provider) Static() *StaticCompleter {
	return p.static
}

// Classifier returns the classifier used by Complete.
func (p *Provider) Classifier() *cmdline.Classifier {
	return p.classifier
}

// Complete classifies line at the byte offset cursor and lists candidates
// for the partial token. An empty candidate list is a valid outcome.
func (p *Provider) Complete(ctx context.Context, line string, cursor int) (Completion, error) {
	result := p.classifier.Classify(line, cursor)
	completion := Completion{Result: result}

	if !result.Kind.Completable() {
		return completion, nil
	}

	candidates, err := p.candidates(ctx, result.Kind, result.Arg())
	if err != nil {
		return completion, fmt.Errorf("failed to complete %s: %w", result.Kind, err)
	}

	candidates = dedupCandidates(candidates)
	if len(candidates) > p.max {
		candidates = candidates[:p.max]
	}
	completion.Candidates = candidates

	p.logger.Debug("completed command line",
		zap.String("kind", result.Kind.String()),
		zap.String("command", result.Command),
		zap.String("arg", result.Arg()),
		zap.Int("candidates", len(candidates)),
	)
	return completion, nil
}

func (p *Provider) candidates(ctx context.Context, kind cmdline.Kind, arg string) ([]Candidate, error) {
	if candidates, found, err := p.defaults.GetCompletions(ctx, kind, arg); found {
		return candidates, err
	}

	var all []Candidate
	switch kind {
	case cmdline.KindCommand:
		all = append(slices.Clone(p.builtins), p.static.GetCompletions(cmdline.KindUserCommands, "")...)
	case cmdline.KindHelp:
		if tags, found := p.docs.GetCompletions(kind); found {
			all = tags
		} else {
			all = p.static.GetCompletions(kind, "")
		}
	case cmdline.KindTags:
		all, _ = p.docs.GetCompletions(kind)
	default:
		all = p.static.GetCompletions(kind, "")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return filterCandidates(all, arg, p.fuzzy), nil
}

// builtinCandidates lists the commands of registry in table order, with
// their shortest abbreviation as description.
func builtinCandidates(registry *cmdline.Registry) []Candidate {
	names := registry.Names()
	candidates := make([]Candidate, 0, len(names))
	for _, name := range names {
		c := Candidate{Value: name}
		if abbr, ok := registry.Abbreviation(name); ok && abbr != name {
			c.Description = "abbreviation: " + abbr
		}
		candidates = append(candidates, c)
	}
	return candidates
}
