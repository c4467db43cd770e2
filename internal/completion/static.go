package completion

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/robottwo/exline/internal/cmdline"
	"gopkg.in/yaml.v3"
)

// StaticCompleter holds fixed candidate lists per completion kind
type StaticCompleter struct {
	completions map[cmdline.Kind][]Candidate
	mu          sync.RWMutex
}

// UserCompletionConfig represents user-defined completion configuration
type UserCompletionConfig struct {
	Kinds map[cmdline.Kind][]UserCompletion `yaml:"kinds" json:"kinds"`
}

// UserCompletion represents a single user-defined completion entry
type UserCompletion struct {
	Value       string `yaml:"value" json:"value"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

func NewStaticCompleter() *StaticCompleter {
	sc := &StaticCompleter{
		completions: make(map[cmdline.Kind][]Candidate),
	}
	sc.registerDefaults()
	sc.loadUserCompletions()
	return sc
}

func (s *StaticCompleter) registerDefaults() {
	loader := NewConfigLoader(CompletionData)
	completions, err := loader.LoadAllCompletions()
	if err != nil {
		// The embedded tables are checked by tests; an empty completer still works.
		return
	}

	for kind, entries := range completions {
		s.Register(kind, entries)
	}
}

// Register replaces the candidates of kind.
func (s *StaticCompleter) Register(kind cmdline.Kind, entries []UserCompletion) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.completions[kind] = toCandidates(entries)
}

// RegisterUserCommand adds a user command (a name starting with an uppercase
// letter) at runtime. Registering an existing name updates its description.
func (s *StaticCompleter) RegisterUserCommand(name, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	commands := s.completions[cmdline.KindUserCommands]
	for i := range commands {
		if commands[i].Value == name {
			commands[i].Description = description
			return
		}
	}
	s.completions[cmdline.KindUserCommands] = append(commands, Candidate{
		Value:       name,
		Description: description,
	})
}

// UnregisterUserCommand removes a user command. It reports whether the name
// was registered.
func (s *StaticCompleter) UnregisterUserCommand(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	commands := s.completions[cmdline.KindUserCommands]
	for i := range commands {
		if commands[i].Value == name {
			s.completions[cmdline.KindUserCommands] = append(commands[:i:i], commands[i+1:]...)
			return true
		}
	}
	return false
}

func toCandidates(entries []UserCompletion) []Candidate {
	candidates := make([]Candidate, 0, len(entries))
	for _, e := range entries {
		candidates = append(candidates, Candidate{
			Value:       e.Value,
			Description: e.Description,
		})
	}
	return candidates
}

// loadUserCompletions loads user-defined completions from config files
func (s *StaticCompleter) loadUserCompletions() {
	for _, configPath := range getUserCompletionConfigPaths() {
		if _, err := os.Stat(configPath); err == nil {
			if err := s.LoadCompletionsFromFile(configPath); err == nil {
				break
			}
		}
	}
}

// getUserCompletionConfigPaths returns the paths to check for user completion config
func getUserCompletionConfigPaths() []string {
	var paths []string

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		paths = append(paths, filepath.Join(xdgConfig, "exline", "completions.yaml"))
		paths = append(paths, filepath.Join(xdgConfig, "exline", "completions.json"))
	}

	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", "exline", "completions.yaml"))
		paths = append(paths, filepath.Join(home, ".config", "exline", "completions.json"))
	}

	return paths
}

// LoadCompletionsFromFile loads completions from a YAML or JSON file. Kinds
// found in the file add to the candidates already registered for them.
func (s *StaticCompleter) LoadCompletionsFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var config UserCompletionConfig

	if strings.HasSuffix(path, ".json") {
		if err := json.Unmarshal(data, &config); err != nil {
			return err
		}
	} else if err := yaml.Unmarshal(data, &config); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for kind, entries := range config.Kinds {
		if !kind.Valid() || !kind.Completable() {
			continue
		}
		s.completions[kind] = dedupCandidates(append(s.completions[kind], toCandidates(entries)...))
	}

	return nil
}

// ReloadUserCompletions reloads user-defined completions from config files
func (s *StaticCompleter) ReloadUserCompletions() {
	s.loadUserCompletions()
}

// GetCompletions returns the candidates of kind whose value starts with prefix.
func (s *StaticCompleter) GetCompletions(kind cmdline.Kind, prefix string) []Candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates, ok := s.completions[kind]
	if !ok {
		return nil
	}
	var filtered []Candidate
	for _, c := range candidates {
		if strings.HasPrefix(c.Value, prefix) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}
