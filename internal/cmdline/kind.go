package cmdline

// Kind is the category of completion candidate expected at the cursor.
type Kind string

const (
	// KindUnset is only seen transiently, before a parse restarts.
	KindUnset        Kind = ""
	KindCommand      Kind = "command"
	KindNothing      Kind = "nothing"
	KindFile         Kind = "file"
	KindFileInPath   Kind = "file_in_path"
	KindFileOpt      Kind = "file_opt"
	KindDir          Kind = "dir"
	KindHelp         Kind = "help"
	KindEnvironment  Kind = "environment"
	KindUser         Kind = "user"
	KindShellCmd     Kind = "shellcmd"
	KindTags         Kind = "tags"
	KindUserCommands Kind = "user_commands"
	KindUnsuccessful Kind = "unsuccessful"
)

func (k Kind) String() string {
	if k == KindUnset {
		return "unset"
	}
	return string(k)
}

// Completable reports whether candidates may exist for k. An empty candidate
// set is still a valid outcome for a completable kind.
func (k Kind) Completable() bool {
	switch k {
	case KindUnset, KindNothing, KindUnsuccessful:
		return false
	}
	return true
}

// Valid reports whether k is one of the kinds the classifier produces.
func (k Kind) Valid() bool {
	switch k {
	case KindCommand, KindNothing, KindFile, KindFileInPath, KindFileOpt,
		KindDir, KindHelp, KindEnvironment, KindUser, KindShellCmd, KindTags,
		KindUserCommands, KindUnsuccessful:
		return true
	}
	return false
}
