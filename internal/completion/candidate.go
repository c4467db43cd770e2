package completion

import (
	"sort"
	"strings"

	"github.com/robottwo/exline/internal/cmdline"
	"github.com/sahilm/fuzzy"
	"github.com/samber/lo"
)

// Candidate is a single completion suggestion for the partial token.
type Candidate struct {
	Value       string `json:"value"`
	Display     string `json:"display,omitempty"`
	Description string `json:"description,omitempty"`
	// Suffix is appended after Value when the candidate is accepted, e.g. "/"
	// for directories.
	Suffix string `json:"suffix,omitempty"`
}

// Text returns what replaces the partial token when c is accepted.
func (c Candidate) Text() string {
	return c.Value + c.Suffix
}

// Completion pairs a classification with the candidates found for it.
type Completion struct {
	cmdline.Result
	Candidates []Candidate `json:"candidates"`
}

// Apply returns the line with the partial token replaced by candidate i of c
// and the new cursor position. Out of range indexes leave the line as is.
func (c Completion) Apply(i int) (string, int) {
	if i < 0 || i >= len(c.Candidates) {
		return c.Line, len(c.Line)
	}
	line := c.Prefix() + c.Candidates[i].Text()
	return line, len(line)
}

// filterCandidates keeps the candidates matching prefix. With useFuzzy the
// result is ranked by match score, otherwise it is a case-sensitive prefix
// match in input order.
func filterCandidates(candidates []Candidate, prefix string, useFuzzy bool) []Candidate {
	return filterBy(candidates, func(c Candidate) string { return c.Value }, prefix, useFuzzy)
}

func filterBy[T any](items []T, key func(T) string, prefix string, useFuzzy bool) []T {
	if prefix == "" {
		return items
	}
	if !useFuzzy {
		return lo.Filter(items, func(item T, _ int) bool {
			return strings.HasPrefix(key(item), prefix)
		})
	}

	keys := lo.Map(items, func(item T, _ int) string { return key(item) })
	matches := fuzzy.Find(prefix, keys)
	filtered := make([]T, 0, len(matches))
	for _, m := range matches {
		filtered = append(filtered, items[m.Index])
	}
	return filtered
}

// dedupCandidates drops later candidates whose Value was already seen.
func dedupCandidates(candidates []Candidate) []Candidate {
	return lo.UniqBy(candidates, func(c Candidate) string { return c.Value })
}

func sortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Value < candidates[j].Value
	})
}

// escapeFileName escapes the characters the classifier treats as argument
// separators in file names.
func escapeFileName(name string) string {
	if !strings.ContainsAny(name, " \t|\"\\") {
		return name
	}
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		switch name[i] {
		case ' ', '\t', '|', '"', '\\':
			b.WriteByte('\\')
		}
		b.WriteByte(name[i])
	}
	return b.String()
}

// unescapeFileName undoes escapeFileName for a typed partial path.
func unescapeFileName(arg string) string {
	if !strings.Contains(arg, "\\") {
		return arg
	}
	var b strings.Builder
	for i := 0; i < len(arg); i++ {
		if arg[i] == '\\' && i+1 < len(arg) {
			i++
		}
		b.WriteByte(arg[i])
	}
	return b.String()
}
