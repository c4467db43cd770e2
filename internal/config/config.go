package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the config file.
const (
	EnvLogLevel    = "EXLINE_LOG_LEVEL"
	EnvHistorySize = "EXLINE_HISTORY_SIZE"
	EnvFuzzy       = "EXLINE_FUZZY"
	EnvPath        = "EXLINE_PATH"
)

// UserCommand is a user-defined command offered by command completion.
type UserCommand struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

// Config holds the settings of the exline tools.
type Config struct {
	LogLevel      string        `yaml:"log_level"`
	HistorySize   int           `yaml:"history_size"`
	FuzzyComplete bool          `yaml:"fuzzy_complete"`
	MaxCandidates int           `yaml:"max_candidates"`
	HelpTags      []string      `yaml:"help_tags,omitempty"`
	TagFiles      []string      `yaml:"tag_files,omitempty"`
	Path          []string      `yaml:"path,omitempty"`
	PasswdFile    string        `yaml:"passwd_file,omitempty"`
	UserCommands  []UserCommand `yaml:"user_commands,omitempty"`
}

// Default returns the settings used when no config file exists.
func Default() *Config {
	return &Config{
		LogLevel:      "info",
		HistorySize:   1000,
		MaxCandidates: 50,
		TagFiles:      []string{"tags"},
		Path:          []string{".", "/usr/include"},
		PasswdFile:    "/etc/passwd",
	}
}

// homeDir returns the user's home directory, using os.UserHomeDir() for portability
// across different platforms (including Windows where HOME is not typically set).
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

// DefaultPath returns ~/.config/exline/config.yaml, honouring XDG_CONFIG_HOME.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "exline", "config.yaml")
	}
	return filepath.Join(homeDir(), ".config", "exline", "config.yaml")
}

// Load reads the config file at path on top of the defaults and applies the
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	cfg.expandPaths()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvHistorySize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvHistorySize, err)
		}
		c.HistorySize = n
	}
	if v := os.Getenv(EnvFuzzy); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvFuzzy, err)
		}
		c.FuzzyComplete = b
	}
	if v, ok := os.LookupEnv(EnvPath); ok {
		c.Path = filepath.SplitList(v)
	}
	return nil
}

// Validate checks the values that cannot be used as they are.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.HistorySize < 0 {
		return fmt.Errorf("history_size must not be negative, got %d", c.HistorySize)
	}
	if c.MaxCandidates <= 0 {
		return fmt.Errorf("max_candidates must be positive, got %d", c.MaxCandidates)
	}
	for _, uc := range c.UserCommands {
		if err := ValidateUserCommandName(uc.Name); err != nil {
			return err
		}
	}
	return nil
}

// ValidateUserCommandName checks that name can be typed as a user command:
// an uppercase letter followed by letters and digits.
func ValidateUserCommandName(name string) error {
	if name == "" {
		return errors.New("user command name is empty")
	}
	if name[0] < 'A' || name[0] > 'Z' {
		return fmt.Errorf("user command %q must start with an uppercase letter", name)
	}
	for i := 1; i < len(name); i++ {
		ch := name[i]
		if !(ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9') {
			return fmt.Errorf("user command %q may only contain letters and digits", name)
		}
	}
	return nil
}

// Level returns the parsed log level. It is only valid after Validate.
func (c *Config) Level() zapcore.Level {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

func (c *Config) expandPaths() {
	for i, p := range c.HelpTags {
		c.HelpTags[i] = expandHome(p)
	}
	for i, p := range c.TagFiles {
		c.TagFiles[i] = expandHome(p)
	}
	for i, p := range c.Path {
		c.Path[i] = expandHome(p)
	}
	c.PasswdFile = expandHome(c.PasswdFile)
}

func expandHome(path string) string {
	if path == "~" {
		return homeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}
