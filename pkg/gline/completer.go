package gline

import (
	"context"

	"github.com/robottwo/exline/internal/completion"
)

// Completer classifies line at the byte offset cursor and lists candidates
// for the token being typed.
type Completer interface {
	Complete(ctx context.Context, line string, cursor int) (completion.Completion, error)
}

type NoopCompleter struct{}

func (c *NoopCompleter) Complete(ctx context.Context, line string, cursor int) (completion.Completion, error) {
	return completion.Completion{}, nil
}
