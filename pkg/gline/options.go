package gline

import "time"

type Options struct {
	// AssistantHeight is the number of candidate rows shown under the input.
	AssistantHeight int
	// CompletionTimeout bounds a single call to the completer.
	CompletionTimeout time.Duration
	// InitialValue is placed in the input before the first key press.
	InitialValue string
	// HistorySearch returns the history lines starting with prefix, oldest
	// first. When set, Up on a non-blank line walks only those lines.
	HistorySearch func(prefix string) []string
}

func NewOptions() Options {
	return Options{
		AssistantHeight:   5,
		CompletionTimeout: 2 * time.Second,
	}
}
