package completion

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/robottwo/exline/internal/cmdline"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
)

const defaultPasswdFile = "/etc/passwd"

// DefaultCompleter produces candidates that come from the system: the file
// system, the environment, the passwd database and $PATH.
type DefaultCompleter struct {
	// Dir is the directory relative paths are resolved against. Empty means
	// the process working directory.
	Dir string
	// Path lists the directories searched for file_in_path candidates.
	Path []string
	// PasswdFile defaults to /etc/passwd.
	PasswdFile string
	// Env defaults to the process environment.
	Env expand.Environ
	// Fuzzy ranks candidates by fuzzy score instead of prefix matching.
	Fuzzy bool
	// Max caps the shellcmd candidates confirmed by a $PATH lookup. Zero
	// confirms them all.
	Max int
}

// GetCompletions returns candidates for arg when kind is served by the
// system. found is false for kinds it does not handle.
func (d *DefaultCompleter) GetCompletions(ctx context.Context, kind cmdline.Kind, arg string) (candidates []Candidate, found bool, err error) {
	switch kind {
	case cmdline.KindFile:
		candidates, err = d.completeFiles(ctx, arg, false)
	case cmdline.KindDir:
		candidates, err = d.completeFiles(ctx, arg, true)
	case cmdline.KindFileInPath:
		candidates, err = d.completeFilesInPath(ctx, arg)
	case cmdline.KindEnvironment:
		candidates = d.completeEnvVars(arg)
	case cmdline.KindUser:
		candidates, err = d.completeUsers(arg)
	case cmdline.KindShellCmd:
		candidates, err = d.completeShellCommands(ctx, arg)
	default:
		return nil, false, nil
	}
	return candidates, true, err
}

func (d *DefaultCompleter) workDir() string {
	if d.Dir != "" {
		return d.Dir
	}
	cwd, _ := os.Getwd()
	return cwd
}

func (d *DefaultCompleter) environ() expand.Environ {
	if d.Env != nil {
		return d.Env
	}
	return expand.ListEnviron(os.Environ()...)
}

func (d *DefaultCompleter) completeFiles(ctx context.Context, arg string, dirsOnly bool) ([]Candidate, error) {
	return d.getFileCompletions(ctx, arg, []string{d.workDir()}, dirsOnly)
}

func (d *DefaultCompleter) completeFilesInPath(ctx context.Context, arg string) ([]Candidate, error) {
	typed := unescapeFileName(arg)
	// Absolute and explicitly relative names are not searched for.
	if filepath.IsAbs(typed) || strings.HasPrefix(typed, "~/") || strings.HasPrefix(typed, "./") || strings.HasPrefix(typed, "../") {
		return d.completeFiles(ctx, arg, false)
	}

	cwd := d.workDir()
	var bases []string
	for _, dir := range d.Path {
		if dir == "" || dir == "." {
			dir = cwd
		} else if !filepath.IsAbs(dir) {
			dir = filepath.Join(cwd, dir)
		}
		bases = append(bases, dir)
	}
	return d.getFileCompletions(ctx, arg, bases, false)
}

// getFileCompletions lists the directory named by the partial path arg, in
// each of bases when it is relative. Candidate values keep the typed
// directory part so that they can replace arg as a whole.
func (d *DefaultCompleter) getFileCompletions(ctx context.Context, arg string, bases []string, dirsOnly bool) ([]Candidate, error) {
	typed := unescapeFileName(arg)

	dirPart, namePrefix := "", typed
	if i := strings.LastIndexByte(typed, '/'); i >= 0 {
		dirPart, namePrefix = typed[:i+1], typed[i+1:]
	}

	var readDirs []string
	switch {
	case strings.HasPrefix(dirPart, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, nil
		}
		readDirs = []string{filepath.Join(home, dirPart[2:])}
	case filepath.IsAbs(dirPart):
		readDirs = []string{dirPart}
	default:
		for _, base := range bases {
			readDirs = append(readDirs, filepath.Join(base, dirPart))
		}
	}

	type fileEntry struct {
		name string
		Candidate
	}

	var files []fileEntry
	seen := make(map[string]bool)
	for _, dir := range readDirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) || errors.Is(err, os.ErrInvalid) {
				continue
			}
			return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
		}

		for _, entry := range entries {
			name := entry.Name()
			if seen[name] || (strings.HasPrefix(name, ".") && !strings.HasPrefix(namePrefix, ".")) {
				continue
			}

			isDir := entry.IsDir()
			if entry.Type()&fs.ModeSymlink != 0 {
				if info, err := os.Stat(filepath.Join(dir, name)); err == nil {
					isDir = info.IsDir()
				}
			}
			if dirsOnly && !isDir {
				continue
			}
			seen[name] = true

			c := Candidate{
				Value:       escapeFileName(dirPart + name),
				Display:     name,
				Description: "File",
			}
			if isDir {
				c.Display += "/"
				c.Suffix = "/"
				c.Description = "Directory"
			}
			files = append(files, fileEntry{name: name, Candidate: c})
		}
	}

	// Match on the name only; the directory part is common to every entry.
	files = filterBy(files, func(f fileEntry) string { return f.name }, namePrefix, d.Fuzzy)
	candidates := make([]Candidate, len(files))
	for i, f := range files {
		candidates[i] = f.Candidate
	}
	return candidates, nil
}

func (d *DefaultCompleter) completeEnvVars(prefix string) []Candidate {
	var candidates []Candidate
	d.environ().Each(func(name string, vr expand.Variable) bool {
		if vr.IsSet() && name != "" {
			candidates = append(candidates, Candidate{
				Value:       name,
				Description: "Environment Variable",
			})
		}
		return true
	})
	sortCandidates(candidates)
	return filterCandidates(candidates, prefix, d.Fuzzy)
}

// completeUsers lists the accounts of the passwd file. A missing file gives
// no candidates.
func (d *DefaultCompleter) completeUsers(prefix string) ([]Candidate, error) {
	path := d.PasswdFile
	if path == "" {
		path = defaultPasswdFile
	}

	candidates, err := parsePasswd(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return filterCandidates(candidates, prefix, d.Fuzzy), nil
}

// parsePasswd reads user names from a passwd(5) file. Comments and malformed
// lines are skipped.
func parsePasswd(path string) ([]Candidate, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = file.Close()
	}()

	var candidates []Candidate
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// name:password:uid:gid:gecos:home:shell
		fields := strings.Split(line, ":")
		if len(fields) < 7 || fields[0] == "" {
			continue
		}

		description := strings.Split(fields[4], ",")[0]
		if description == "" {
			description = fields[5]
		}
		candidates = append(candidates, Candidate{
			Value:       fields[0],
			Description: description,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return dedupCandidates(candidates), nil
}

// completeShellCommands lists the executables found in the directories of
// $PATH. Names shadowed by an earlier directory are reported once. Matches are
// looked up in order until Max of them are confirmed.
func (d *DefaultCompleter) completeShellCommands(ctx context.Context, prefix string) ([]Candidate, error) {
	env := d.environ()
	cwd := d.workDir()

	var candidates []Candidate
	for _, dir := range filepath.SplitList(env.Get("PATH").String()) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if dir == "" {
			dir = "."
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(cwd, dir)
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			candidates = append(candidates, Candidate{
				Value:       entry.Name(),
				Description: dir,
			})
		}
	}

	candidates = filterCandidates(dedupCandidates(candidates), prefix, d.Fuzzy)

	verified := candidates[:0]
	for _, c := range candidates {
		if d.Max > 0 && len(verified) == d.Max {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path, err := interp.LookPathDir(cwd, env, c.Value)
		if err != nil {
			continue
		}
		c.Description = path
		verified = append(verified, c)
	}
	return verified, nil
}
