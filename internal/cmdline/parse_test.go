package cmdline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type classifyCase struct {
	name     string
	line     string
	kind     Kind
	argStart int
	command  string
	force    bool
}

func runClassifyCases(t *testing.T, tests []classifyCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.line, len(tt.line))
			assert.Equal(t, tt.kind, got.Kind, "kind for %q", tt.line)
			assert.Equal(t, tt.argStart, got.ArgStart, "arg start for %q", tt.line)
			assert.Equal(t, tt.command, got.Command, "command for %q", tt.line)
			assert.Equal(t, tt.force, got.Force, "force for %q", tt.line)
		})
	}
}

func TestClassify_CommandName(t *testing.T) {
	runClassifyCases(t, []classifyCase{
		{name: "empty line", line: "", kind: KindCommand},
		{name: "blank line", line: "   ", kind: KindCommand, argStart: 3},
		{name: "partial name", line: "e", kind: KindCommand},
		{name: "partial name after range", line: "10,20d", kind: KindCommand, argStart: 5},
		{name: "after pattern range", line: "/foo/d", kind: KindCommand, argStart: 5},
		{name: "range only", line: "1234", kind: KindCommand, argStart: 4},
		{name: "lone mark quote", line: "'", kind: KindCommand, argStart: 1},
		{name: "range ending in mark quote", line: "10'", kind: KindCommand, argStart: 3},
		{name: "user command name", line: "Foo", kind: KindCommand},
		{name: "mark command being typed", line: "k", kind: KindCommand},
		{name: "after bar", line: "ls | b", kind: KindCommand, argStart: 5},
		{name: "after modifier", line: "verbose ls", kind: KindCommand, argStart: 8},
		{name: "nothing after bar yet", line: "e | ", kind: KindCommand, argStart: 4},
	})
}

func TestClassify_Files(t *testing.T) {
	runClassifyCases(t, []classifyCase{
		{name: "leading blanks", line: "   edit ", kind: KindFile, argStart: 8, command: "edit"},
		{name: "nospace keeps the whole argument", line: "e foo/ba", kind: KindFile, argStart: 2, command: "edit"},
		{name: "escaped blank with nospace", line: `e a\ b c`, kind: KindFile, argStart: 2, command: "edit"},
		{name: "last of several arguments", line: "argadd a b", kind: KindFile, argStart: 9, command: "argadd"},
		{name: "escaped blank in last argument", line: `argadd x a\ b`, kind: KindFile, argStart: 9, command: "argadd"},
		{name: "modifier with bang", line: "silent! e ", kind: KindFile, argStart: 10, command: "edit"},
		{name: "stacked modifiers", line: "sil! vert new ", kind: KindFile, argStart: 14, command: "new"},
		{name: "modifier then split", line: "aboveleft sp x", kind: KindFile, argStart: 13, command: "split"},
		{name: "chained with colons", line: ": : e ", kind: KindFile, argStart: 6, command: "edit"},
		{name: "leading bar", line: "| e ", kind: KindFile, argStart: 4, command: "edit"},
		{name: "mark range", line: "'a,'be ", kind: KindFile, argStart: 7, command: "edit"},
		{name: "after no-argument command", line: "pwd | e ", kind: KindFile, argStart: 8, command: "edit"},
		{name: "after no-argument command without trailing bar", line: "noh | e ", kind: KindFile, argStart: 8, command: "edit"},
		{name: "wildcard", line: "e *.go", kind: KindFile, argStart: 2, command: "edit"},
		{name: "bang is a file name for edit", line: "e !", kind: KindFile, argStart: 2, command: "edit"},
		{name: "forced write", line: "w! ", kind: KindFile, argStart: 3, command: "write", force: true},
		{name: "append redirection", line: "w >> out", kind: KindFile, argStart: 5, command: "write"},
		{name: "single redirection", line: "w > out", kind: KindFile, argStart: 4, command: "write"},
		{name: "redirection at end", line: "w >>", kind: KindFile, argStart: 4, command: "write"},
		{name: "redir register escape", line: `redir @"`, kind: KindFile, argStart: 8, command: "redir"},
		{name: "redir to file", line: "redir > f", kind: KindFile, argStart: 8, command: "redir"},
		{name: "shell escape argument", line: "!ls ", kind: KindFile, argStart: 4, command: "!"},
		{name: "terminal argument", line: "ter ls ", kind: KindFile, argStart: 7, command: "terminal"},
		{name: "env path is a file", line: "e $HOME/x", kind: KindFile, argStart: 2, command: "edit"},
		{name: "tilde alone is a file", line: "e ~", kind: KindFile, argStart: 2, command: "edit"},
		{name: "tilde path is a file", line: "e ~us/x", kind: KindFile, argStart: 2, command: "edit"},
		{name: "bar inside quotes", line: `e "a|b" `, kind: KindFile, argStart: 2, command: "edit"},
		{name: "escaped bar", line: `e a\|b `, kind: KindFile, argStart: 2, command: "edit"},
		{name: "ctrl-v escaped bar", line: "e a\x16|b", kind: KindFile, argStart: 2, command: "edit"},
		{name: "escape after command", line: `e\ x`, kind: KindFile, argStart: 1, command: "edit"},
		{name: "py3file", line: "py3file ", kind: KindFile, argStart: 8, command: "py3file"},
	})
}

func TestClassify_Overrides(t *testing.T) {
	runClassifyCases(t, []classifyCase{
		{name: "help", line: "help ", kind: KindHelp, argStart: 5, command: "help"},
		{name: "h", line: "h ", kind: KindHelp, argStart: 2, command: "help"},
		{name: "he", line: "he ", kind: KindHelp, argStart: 3, command: "help"},
		{name: "hel", line: "hel ", kind: KindHelp, argStart: 4, command: "help"},
		{name: "help after tab modifier", line: "tab help ", kind: KindHelp, argStart: 9, command: "help"},
		{name: "cd", line: "cd ", kind: KindDir, argStart: 3, command: "cd"},
		{name: "lcd", line: "lcd ", kind: KindDir, argStart: 4, command: "lcd"},
		{name: "chdir home", line: "chdir ~", kind: KindDir, argStart: 6, command: "chdir"},
		{name: "tcd user", line: "tcd ~r", kind: KindUser, argStart: 5, command: "tcd"},
		{name: "cd environment", line: "cd $HO", kind: KindEnvironment, argStart: 4, command: "cd"},
		{name: "chained directory commands", line: "cd a | pwd | lcd ", kind: KindDir, argStart: 17, command: "lcd"},
		{name: "find", line: "find ", kind: KindFileInPath, argStart: 5, command: "find"},
		{name: "sfind", line: "sfind ", kind: KindFileInPath, argStart: 6, command: "sfind"},
		{name: "tabfind", line: "tabfind x", kind: KindFileInPath, argStart: 8, command: "tabfind"},
		{name: "tag", line: "tag ", kind: KindTags, argStart: 4, command: "tag"},
		{name: "stag", line: "stag ", kind: KindTags, argStart: 5, command: "stag"},
		{name: "ptjump", line: "ptjump x", kind: KindTags, argStart: 7, command: "ptjump"},
		{name: "delcommand", line: "delc ", kind: KindUserCommands, argStart: 5, command: "delcommand"},
		{name: "delcommand partial", line: "delcommand Fo", kind: KindUserCommands, argStart: 11, command: "delcommand"},
		{name: "global keeps nothing", line: "g/x/e ", kind: KindNothing, argStart: 1, command: "global"},
		{name: "substitute keeps nothing", line: "s/x/y/", kind: KindNothing, argStart: 1, command: "substitute"},
	})
}

func TestClassify_ShellAndExpansions(t *testing.T) {
	runClassifyCases(t, []classifyCase{
		{name: "write filter", line: "w !sort", kind: KindShellCmd, argStart: 3, command: "write"},
		{name: "forced read is a filter", line: "r! ls", kind: KindShellCmd, argStart: 3, command: "read", force: true},
		{name: "read filter", line: "read !ls", kind: KindShellCmd, argStart: 6, command: "read"},
		{name: "read filter at end", line: "r !", kind: KindShellCmd, argStart: 3, command: "read"},
		{name: "read filter after option", line: "r ++bin !", kind: KindShellCmd, argStart: 9, command: "read"},
		{name: "write filter after option", line: "w ++enc=x !ca", kind: KindShellCmd, argStart: 11, command: "write"},
		{name: "shell escape", line: "!ls", kind: KindShellCmd, argStart: 1, command: "!"},
		{name: "bare shell escape", line: "!", kind: KindShellCmd, argStart: 1, command: "!"},
		{name: "terminal", line: "ter ", kind: KindShellCmd, argStart: 4, command: "terminal"},
		{name: "terminal command", line: "ter ls", kind: KindShellCmd, argStart: 4, command: "terminal"},
		{name: "environment", line: "e $HO", kind: KindEnvironment, argStart: 3, command: "edit"},
		{name: "bare dollar", line: "e $", kind: KindEnvironment, argStart: 3, command: "edit"},
		{name: "user", line: "e ~us", kind: KindUser, argStart: 3, command: "edit"},
	})
}

func TestClassify_EditArguments(t *testing.T) {
	runClassifyCases(t, []classifyCase{
		{name: "option", line: "e ++en", kind: KindFileOpt, argStart: 4, command: "edit"},
		{name: "command", line: "e +10", kind: KindCommand, argStart: 3, command: "edit"},
		{name: "option before command", line: "e ++enc=utf8 +10", kind: KindCommand, argStart: 14, command: "edit"},
		{name: "option after command is rejected", line: "e +10 ++enc", kind: KindNothing, argStart: 7, command: "edit"},
		{name: "file after command", line: "e +10 f", kind: KindFile, argStart: 6, command: "edit"},
		{name: "file after option", line: "e ++enc=utf8 ", kind: KindFile, argStart: 13, command: "edit"},
		{name: "escaped blank in command", line: `e +\ x`, kind: KindCommand, argStart: 3, command: "edit"},
		{name: "escaped blank in split command", line: `sp +/foo\ bar x`, kind: KindFile, argStart: 14, command: "split"},
		{name: "read option", line: "r ++bin ", kind: KindFile, argStart: 8, command: "read"},
	})
}

func TestClassify_Nothing(t *testing.T) {
	runClassifyCases(t, []classifyCase{
		{name: "echo quote", line: `echo "`, kind: KindNothing, argStart: 5, command: "echo"},
		{name: "comment line", line: `" e`, kind: KindNothing, argStart: 3},
		{name: "trailing comment", line: `e foo "bar`, kind: KindNothing, argStart: 10, command: "edit"},
		{name: "quoted string then bar stays in echo", line: `echo "a" | e `, kind: KindNothing, argStart: 5, command: "echo"},
		{name: "second segment", line: "set x | set y", kind: KindNothing, argStart: 12, command: "set"},
		{name: "unterminated pattern", line: "/foo", kind: KindNothing, argStart: 4},
		{name: "mark", line: "ka", kind: KindNothing, argStart: 2, command: "k"},
		{name: "user command arguments", line: "Foo ", kind: KindNothing, argStart: 4, command: "Foo"},
		{name: "forced user command", line: "Foo! bar", kind: KindNothing, argStart: 5, command: "Foo", force: true},
		{name: "substitute flags", line: "sI ", kind: KindNothing, argStart: 3, command: "s"},
		{name: "unknown command", line: `\/foo/ e `, kind: KindNothing, argStart: 9},
		{name: "no arguments", line: "ls ", kind: KindNothing, argStart: 3, command: "ls"},
		{name: "unexpected argument", line: "pwd x", kind: KindNothing, argStart: 5, command: "pwd"},
		{name: "no-argument command without trailing bar", line: "noh e", kind: KindNothing, argStart: 5, command: "nohlsearch"},
		{name: "normal register", line: `norm "x`, kind: KindNothing, argStart: 5, command: "normal"},
		{name: "shift", line: "> ", kind: KindNothing, argStart: 2, command: ">"},
		{name: "shift run", line: ">> foo", kind: KindNothing, argStart: 6, command: ">"},
		{name: "left shift run", line: "<<<", kind: KindNothing, argStart: 3, command: "<"},
		{name: "search range then substitute", line: "?foo?s ", kind: KindNothing, argStart: 7, command: "substitute"},
		{name: "python3 reads as python", line: "python3 ", kind: KindNothing, argStart: 6, command: "python"},
	})
}

func TestClassify_Unsuccessful(t *testing.T) {
	got := Classify(`\x`, 2)
	assert.Equal(t, KindUnsuccessful, got.Kind)
	assert.Equal(t, 0, got.ArgStart)
	assert.False(t, got.Kind.Completable())

	runClassifyCases(t, []classifyCase{
		{name: "trailing backslash", line: `\`, kind: KindUnsuccessful},
		{name: "range then trailing backslash", line: `10\`, kind: KindUnsuccessful, argStart: 2},
	})
}

func TestClassify_CursorInsideLine(t *testing.T) {
	line := "set x | set y"

	got := Classify(line, 9)
	assert.Equal(t, KindCommand, got.Kind)
	assert.Equal(t, 8, got.ArgStart)
	assert.Equal(t, "s", got.Arg())

	got = Classify(line, 5)
	assert.Equal(t, KindNothing, got.Kind)
	assert.Equal(t, "set", got.Command)

	got = Classify("cd dir | e x", 5)
	assert.Equal(t, KindDir, got.Kind)
	assert.Equal(t, "di", got.Arg())
	assert.Equal(t, "cd ", got.Prefix())
}

func TestClassify_CursorClamped(t *testing.T) {
	assert.Equal(t, Classify("e foo", 5), Classify("e foo", 100))
	assert.Equal(t, Classify("", 0), Classify("e foo", -3))
}

func TestClassify_Idempotent(t *testing.T) {
	lines := []string{"", "e ", "set x | set y", "sil! vert new ", "e ++enc=utf8 +10", `e foo "bar`, "r! ls"}
	for _, line := range lines {
		for cursor := 0; cursor <= len(line); cursor++ {
			first := Classify(line, cursor)
			second := Classify(line, cursor)
			assert.Equal(t, first, second, "%q at %d", line, cursor)
		}
	}
}

func TestClassify_BlankLines(t *testing.T) {
	for _, line := range []string{"", " ", "\t", "  \t  "} {
		got := Classify(line, len(line))
		assert.Equal(t, KindCommand, got.Kind, "%q", line)
		assert.Equal(t, len(line), got.ArgStart, "%q", line)

		got = Classify(line, 0)
		assert.Equal(t, KindCommand, got.Kind, "%q", line)
		assert.Equal(t, 0, got.ArgStart, "%q", line)
	}
}

func TestClassify_EditLikeCommands(t *testing.T) {
	commands := []string{
		"edit", "split", "view", "vsplit", "new", "vnew", "sview", "tabedit",
		"tabnew", "badd", "drop", "pedit", "visual", "args", "argedit", "next",
	}
	for _, name := range commands {
		line := name + " "
		got := Classify(line, len(line))
		assert.Equal(t, KindFile, got.Kind, name)
		assert.Equal(t, len(line), got.ArgStart, name)
		assert.Equal(t, name, got.Command, name)
	}
}

// Every built-in command reached through its shortest abbreviation resolves
// to itself.
func TestClassify_AbbreviationsResolve(t *testing.T) {
	reg := DefaultRegistry()
	for _, name := range reg.Names() {
		// Modifiers are consumed, uppercase names are user commands, ':' is a
		// separator and "python3" stops at its digit.
		if IsModifier(name) || isUpper(name[0]) || name == ":" || name == "python3" {
			continue
		}

		abbr, ok := reg.Abbreviation(name)
		require.True(t, ok)

		for _, typed := range []string{abbr, name} {
			line := typed + " "
			got := Classify(line, len(line))
			assert.Equal(t, name, got.Command, "%q", typed)
		}
	}
}

func TestClassify_ModifiersAreTransparent(t *testing.T) {
	reg := DefaultRegistry()
	for _, name := range reg.Names() {
		if !IsModifier(name) {
			continue
		}
		line := name + " e "
		got := Classify(line, len(line))
		assert.Equal(t, KindFile, got.Kind, name)
		assert.Equal(t, "edit", got.Command, name)
	}
}

func TestClassify_ManySegments(t *testing.T) {
	line := strings.Repeat("pwd | ", 10000) + "cd "
	got := Classify(line, len(line))
	assert.Equal(t, KindDir, got.Kind)
	assert.Equal(t, len(line), got.ArgStart)
}

func TestClassifier_LogsRestarts(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cl := NewClassifier(nil, zap.New(core))

	got := cl.Classify("silent! pwd | e ", 16)
	assert.Equal(t, KindFile, got.Kind)

	entries := logs.FilterMessage("restarting command line parse").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "modifier", entries[0].ContextMap()["reason"])
	assert.Equal(t, "bar", entries[1].ContextMap()["reason"])
}

func TestClassifier_CustomRegistry(t *testing.T) {
	reg, err := NewRegistry([]Command{
		{Name: "open", Flags: FlagExtra | FlagFile},
		{Name: "quit", Flags: FlagTrailingBar},
	})
	require.NoError(t, err)

	cl := NewClassifier(reg, nil)
	assert.Same(t, reg, cl.Registry())

	got := cl.Classify("o a b", 5)
	assert.Equal(t, KindFile, got.Kind)
	assert.Equal(t, 4, got.ArgStart)
	assert.Equal(t, "open", got.Command)

	got = cl.Classify("q | o ", 6)
	assert.Equal(t, KindFile, got.Kind)
	assert.Equal(t, "open", got.Command)

	got = cl.Classify("edit ", 5)
	assert.Equal(t, KindNothing, got.Kind)
	assert.Empty(t, got.Command)
}

func TestKind(t *testing.T) {
	assert.Equal(t, "unset", KindUnset.String())
	assert.Equal(t, "file_in_path", KindFileInPath.String())

	for _, k := range []Kind{KindCommand, KindFile, KindFileInPath, KindFileOpt, KindDir, KindHelp,
		KindEnvironment, KindUser, KindShellCmd, KindTags, KindUserCommands} {
		assert.True(t, k.Completable(), k)
		assert.True(t, k.Valid(), k)
	}
	for _, k := range []Kind{KindUnset, KindNothing, KindUnsuccessful} {
		assert.False(t, k.Completable(), k)
	}
	assert.True(t, KindNothing.Valid())
	assert.False(t, KindUnset.Valid())
	assert.False(t, Kind("docker").Valid())
}
