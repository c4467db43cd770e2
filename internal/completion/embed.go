package completion

import (
	"embed"
)

// CompletionData contains the embedded YAML candidate tables. They provide
// the fixed ++opt names and fallback help topics.
//
//go:embed data/*.yaml
var CompletionData embed.FS
