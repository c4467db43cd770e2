package cmdline

import (
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Flags describe the argument grammar of an ex command.
type Flags uint8

const (
	// FlagExtra: free-form arguments may follow the command name.
	FlagExtra Flags = 1 << iota
	// FlagFile: arguments are file names.
	FlagFile
	// FlagNoSpace: the single file argument may contain spaces, so only the
	// whole argument is completed, never its last word.
	FlagNoSpace
	// FlagTrailingBar: '|' starts the next command and '"' a comment.
	FlagTrailingBar
	// FlagEditCmd: a +cmd argument is accepted.
	FlagEditCmd
	// FlagArgOpt: ++opt arguments are accepted.
	FlagArgOpt
)

var flagNames = []struct {
	name string
	flag Flags
}{
	{"extra", FlagExtra},
	{"file", FlagFile},
	{"nospace", FlagNoSpace},
	{"trailing_bar", FlagTrailingBar},
	{"edit_cmd", FlagEditCmd},
	{"arg_opt", FlagArgOpt},
}

// Has reports whether every bit of flag is set in f.
func (f Flags) Has(flag Flags) bool {
	return f&flag == flag
}

func (f Flags) String() string {
	var names []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, "|")
}

func parseFlag(name string) (Flags, bool) {
	for _, fn := range flagNames {
		if fn.name == name {
			return fn.flag, true
		}
	}
	return 0, false
}

// Command describes one entry of the ex command table.
type Command struct {
	Name  string
	Flags Flags
}

type group struct {
	start, end int
}

// Registry is an immutable ex command table. It is safe for concurrent use.
type Registry struct {
	commands []Command
	byName   map[string]int
	groups   map[byte]group
	// tail is where the lookup for a leader outside 'a'..'y' starts: the 'z'
	// group followed by every non-alphabetic command.
	tail int
}

// NewRegistry builds a registry from commands, keeping their order. Names must
// be unique and names sharing a first byte must be contiguous.
func NewRegistry(commands []Command) (*Registry, error) {
	r := &Registry{
		commands: slices.Clone(commands),
		byName:   make(map[string]int, len(commands)),
		groups:   make(map[byte]group),
	}

	for i, cmd := range r.commands {
		if cmd.Name == "" {
			return nil, fmt.Errorf("command %d has an empty name", i)
		}
		if _, dup := r.byName[cmd.Name]; dup {
			return nil, fmt.Errorf("duplicate command %q", cmd.Name)
		}
		r.byName[cmd.Name] = i

		first := cmd.Name[0]
		g, seen := r.groups[first]
		switch {
		case !seen:
			r.groups[first] = group{start: i, end: i + 1}
		case g.end == i:
			g.end++
			r.groups[first] = g
		default:
			return nil, fmt.Errorf("command %q: names starting with %q are not contiguous", cmd.Name, first)
		}
	}

	r.tail = len(r.commands)
	for first, g := range r.groups {
		if (first < 'a' || first > 'y') && g.start < r.tail {
			r.tail = g.start
		}
	}

	return r, nil
}

type registryFile struct {
	Commands []registryEntry `yaml:"commands"`
}

type registryEntry struct {
	Name  string   `yaml:"name"`
	Flags []string `yaml:"flags"`
}

// ParseRegistry decodes a YAML command table.
func ParseRegistry(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse command table: %w", err)
	}

	commands := make([]Command, 0, len(file.Commands))
	for i, entry := range file.Commands {
		if entry.Name == "" {
			return nil, fmt.Errorf("command %d has an empty name", i)
		}
		var flags Flags
		for _, name := range entry.Flags {
			flag, ok := parseFlag(name)
			if !ok {
				return nil, fmt.Errorf("command %q: unknown flag %q", entry.Name, name)
			}
			flags |= flag
		}
		commands = append(commands, Command{Name: entry.Name, Flags: flags})
	}

	return NewRegistry(commands)
}

// LoadRegistry reads and decodes the YAML command table at path in fsys.
func LoadRegistry(fsys fs.FS, path string) (*Registry, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	registry, err := ParseRegistry(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	return registry, nil
}

// bucket returns the index range searched for names starting with first.
func (r *Registry) bucket(first byte) (int, int) {
	if first >= 'a' && first <= 'y' {
		g, ok := r.groups[first]
		if !ok {
			return 0, 0
		}
		return g.start, g.end
	}
	return r.tail, len(r.commands)
}

// Lookup resolves a typed command name. An exact name wins; otherwise the
// first command of the bucket for the name's first byte that starts with the
// typed text is returned.
func (r *Registry) Lookup(typed string) (Command, bool) {
	if typed == "" {
		return Command{}, false
	}
	if i, ok := r.byName[typed]; ok {
		return r.commands[i], true
	}

	start, end := r.bucket(typed[0])
	for _, cmd := range r.commands[start:end] {
		if strings.HasPrefix(cmd.Name, typed) {
			return cmd, true
		}
	}
	return Command{}, false
}

// Flags returns the grammar flags of the command with exactly this name, or
// zero for names outside the table (user-defined commands).
func (r *Registry) Flags(name string) Flags {
	if i, ok := r.byName[name]; ok {
		return r.commands[i].Flags
	}
	return 0
}

// Has reports whether name is a full command name.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Abbreviation returns the shortest prefix of name that Lookup resolves to
// name.
func (r *Registry) Abbreviation(name string) (string, bool) {
	if !r.Has(name) {
		return "", false
	}
	for n := 1; n <= len(name); n++ {
		if cmd, ok := r.Lookup(name[:n]); ok && cmd.Name == name {
			return name[:n], true
		}
	}
	return name, true
}

// Commands returns a copy of the table in order.
func (r *Registry) Commands() []Command {
	return slices.Clone(r.commands)
}

// Names returns the command names in table order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.commands))
	for i, cmd := range r.commands {
		names[i] = cmd.Name
	}
	return names
}

// Len returns the number of commands.
func (r *Registry) Len() int {
	return len(r.commands)
}
