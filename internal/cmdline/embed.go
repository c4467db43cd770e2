package cmdline

import (
	"embed"
	"fmt"
	"sync"
)

// CommandData contains the embedded ex command table.
//
//go:embed data/commands.yaml
var CommandData embed.FS

const commandTablePath = "data/commands.yaml"

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// DefaultRegistry returns the registry built from the embedded command table.
// It is built on first use and shared afterwards.
func DefaultRegistry() *Registry {
	defaultOnce.Do(func() {
		registry, err := LoadRegistry(CommandData, commandTablePath)
		if err != nil {
			panic(fmt.Sprintf("embedded command table: %v", err))
		}
		defaultRegistry = registry
	})
	return defaultRegistry
}
