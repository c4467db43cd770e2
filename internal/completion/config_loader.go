package completion

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/robottwo/exline/internal/cmdline"
	"gopkg.in/yaml.v3"
)

// ConfigLoader handles loading candidate tables from YAML files
type ConfigLoader struct {
	fs fs.FS
}

// NewConfigLoader creates a new ConfigLoader with the given filesystem
func NewConfigLoader(filesystem fs.FS) *ConfigLoader {
	return &ConfigLoader{
		fs: filesystem,
	}
}

// LoadAllCompletions loads every YAML table in the filesystem.
// Returns a map of completion kinds to their entries; later files add to the
// entries of earlier ones.
func (cl *ConfigLoader) LoadAllCompletions() (map[cmdline.Kind][]UserCompletion, error) {
	completions := make(map[cmdline.Kind][]UserCompletion)

	err := fs.WalkDir(cl.fs, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || !isYAML(path) {
			return nil
		}

		config, err := cl.readConfig(path)
		if err != nil {
			return err
		}

		for kind, entries := range config.Kinds {
			completions[kind] = append(completions[kind], entries...)
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to load completions: %w", err)
	}

	return completions, nil
}

// LoadCompletionsFromFile loads the tables of a single file under data/.
func (cl *ConfigLoader) LoadCompletionsFromFile(filename string) (map[cmdline.Kind][]UserCompletion, error) {
	config, err := cl.readConfig(path.Join("data", filename))
	if err != nil {
		return nil, err
	}
	return config.Kinds, nil
}

func (cl *ConfigLoader) readConfig(path string) (UserCompletionConfig, error) {
	var config UserCompletionConfig

	data, err := fs.ReadFile(cl.fs, path)
	if err != nil {
		return config, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for kind := range config.Kinds {
		if !kind.Valid() {
			return config, fmt.Errorf("%s: unknown kind %q", path, kind)
		}
		if !kind.Completable() {
			return config, fmt.Errorf("%s: kind %q takes no candidates", path, kind)
		}
	}

	return config, nil
}

func isYAML(path string) bool {
	return strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")
}
