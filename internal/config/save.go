package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Keys lists the settings accepted by Set.
var Keys = []string{
	"log_level",
	"history_size",
	"fuzzy_complete",
	"max_candidates",
	"help_tags",
	"tag_files",
	"path",
	"passwd_file",
	"user_commands",
}

// Set persists a single setting to the config file at path, keeping the
// other settings of the file. List settings take comma-separated values;
// user_commands takes "Name" or "Name=description" and adds or replaces
// that command.
func Set(path, key, value string) error {
	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Acquire exclusive lock on a lock file to prevent concurrent writes
	lockPath := path + ".lock"
	lock, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	defer func() {
		_ = unlockFile(lock.Fd())
		_ = lock.Close()
	}()

	if err := lockFile(lock.Fd()); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	// Only the file's own settings are stored, never environment overrides.
	cfg := Default()
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.set(key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return writeAtomic(path, data)
}

func (c *Config) set(key, value string) error {
	var err error
	switch key {
	case "log_level":
		c.LogLevel = value
	case "history_size":
		c.HistorySize, err = strconv.Atoi(value)
	case "fuzzy_complete":
		c.FuzzyComplete, err = strconv.ParseBool(value)
	case "max_candidates":
		c.MaxCandidates, err = strconv.Atoi(value)
	case "help_tags":
		c.HelpTags = splitList(value)
	case "tag_files":
		c.TagFiles = splitList(value)
	case "path":
		c.Path = splitList(value)
	case "passwd_file":
		c.PasswdFile = value
	case "user_commands":
		name, description, _ := strings.Cut(value, "=")
		c.addUserCommand(UserCommand{Name: strings.TrimSpace(name), Description: strings.TrimSpace(description)})
	default:
		return fmt.Errorf("unknown setting %q (known: %s)", key, strings.Join(Keys, ", "))
	}
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

func (c *Config) addUserCommand(uc UserCommand) {
	for i := range c.UserCommands {
		if c.UserCommands[i].Name == uc.Name {
			c.UserCommands[i] = uc
			return
		}
	}
	c.UserCommands = append(c.UserCommands, uc)
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// writeAtomic writes to a temp file, fsyncs it and renames it over path.
func writeAtomic(path string, data []byte) error {
	configDir := filepath.Dir(path)

	tmpFile, err := os.CreateTemp(configDir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}

	if err := tmpFile.Chmod(0600); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to set permissions on temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	// Fsync the directory to ensure rename is persisted
	if dir, err := os.Open(configDir); err == nil {
		_ = dir.Sync()
		_ = dir.Close()
	}

	success = true
	return nil
}
