package completion

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/robottwo/exline/internal/cmdline"
	"go.uber.org/zap"
)

// DocumentationCompleter handles completions for help topics and tags. The
// tags files are read once, on first use.
type DocumentationCompleter struct {
	helpFiles []string
	tagFiles  []string
	logger    *zap.Logger

	initOnce  sync.Once
	helpTags  []Candidate
	ctagsTags []Candidate
}

// NewDocumentationCompleter creates a completer over the given help tags
// files (tag<TAB>file<TAB>address lines) and ctags files.
func NewDocumentationCompleter(helpFiles, tagFiles []string, logger *zap.Logger) *DocumentationCompleter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentationCompleter{
		helpFiles: helpFiles,
		tagFiles:  tagFiles,
		logger:    logger,
	}
}

func (d *DocumentationCompleter) init() {
	d.initOnce.Do(func() {
		d.helpTags = d.scanTagFiles(d.helpFiles, "Help tag")
		d.ctagsTags = d.scanTagFiles(d.tagFiles, "Tag")
	})
}

// GetCompletions returns all help topics or tags. found is false for kinds
// other than help and tags, and for help when no help tags file is
// configured so the caller can fall back to its own topics.
func (d *DocumentationCompleter) GetCompletions(kind cmdline.Kind) ([]Candidate, bool) {
	switch kind {
	case cmdline.KindHelp:
		if len(d.helpFiles) == 0 {
			return nil, false
		}
		d.init()
		return d.helpTags, true
	case cmdline.KindTags:
		d.init()
		return d.ctagsTags, true
	}
	return nil, false
}

func (d *DocumentationCompleter) scanTagFiles(paths []string, description string) []Candidate {
	var candidates []Candidate
	for _, path := range paths {
		tags, err := parseTagFile(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				d.logger.Warn("failed to read tags file", zap.String("path", path), zap.Error(err))
			}
			continue
		}
		for _, t := range tags {
			candidates = append(candidates, Candidate{
				Value:       t.name,
				Description: description + " (" + t.file + ")",
			})
		}
	}

	candidates = dedupCandidates(candidates)
	sortCandidates(candidates)
	return candidates
}

type tagEntry struct {
	name string
	file string
}

// parseTagFile reads the tag names of a tags file. Lines look like
// "name<TAB>file<TAB>address"; ctags "!_TAG_" header lines are skipped.
func parseTagFile(path string) ([]tagEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = file.Close()
	}()

	var tags []tagEntry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "!_TAG_") {
			continue
		}

		fields := strings.SplitN(line, "\t", 3)
		if len(fields) < 2 || fields[0] == "" {
			continue
		}
		tags = append(tags, tagEntry{name: fields[0], file: fields[1]})
	}

	return tags, scanner.Err()
}
