package cmdline

import (
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// ctrlV quotes the next character on the command line.
const ctrlV = 0x16

var modifiers = map[string]struct{}{
	"aboveleft":    {},
	"argdo":        {},
	"belowright":   {},
	"botright":     {},
	"browse":       {},
	"bufdo":        {},
	"cdo":          {},
	"cfdo":         {},
	"confirm":      {},
	"debug":        {},
	"folddoclosed": {},
	"folddoopen":   {},
	"hide":         {},
	"keepalt":      {},
	"keepjumps":    {},
	"keepmarks":    {},
	"keeppatterns": {},
	"ldo":          {},
	"leftabove":    {},
	"lfdo":         {},
	"lockmarks":    {},
	"noautocmd":    {},
	"noswapfile":   {},
	"rightbelow":   {},
	"sandbox":      {},
	"silent":       {},
	"tab":          {},
	"tabdo":        {},
	"topleft":      {},
	"verbose":      {},
	"vertical":     {},
	"windo":        {},
}

// IsModifier reports whether name is a command modifier such as "silent" or
// "vertical". Modifiers prefix another command and take no arguments.
func IsModifier(name string) bool {
	_, ok := modifiers[name]
	return ok
}

// Result is the classification of a command line at a cursor.
type Result struct {
	Kind Kind `json:"kind"`
	// ArgStart is the byte offset where the partial token to complete begins.
	ArgStart int  `json:"arg_start"`
	Force    bool `json:"force"`
	// Command is the resolved command of the segment under the cursor.
	Command string `json:"command,omitempty"`
	// Line is the classified text, cut at the cursor.
	Line string `json:"line"`
}

// Arg returns the partial token between ArgStart and the cursor.
func (r Result) Arg() string {
	if r.ArgStart < 0 || r.ArgStart > len(r.Line) {
		return ""
	}
	return r.Line[r.ArgStart:]
}

// Prefix returns the text before the partial token.
func (r Result) Prefix() string {
	if r.ArgStart < 0 || r.ArgStart > len(r.Line) {
		return r.Line
	}
	return r.Line[:r.ArgStart]
}

// Classifier decides which kind of completion applies at a cursor.
type Classifier struct {
	registry *Registry
	logger   *zap.Logger
}

// NewClassifier creates a classifier over registry. A nil registry selects
// the embedded command table and a nil logger discards output.
func NewClassifier(registry *Registry, logger *zap.Logger) *Classifier {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{registry: registry, logger: logger}
}

// Registry returns the command table used by the classifier.
func (cl *Classifier) Registry() *Registry {
	return cl.registry
}

// Classify classifies line at the byte offset cursor. Text after the cursor
// is ignored and out of range cursors are clamped.
func (cl *Classifier) Classify(line string, cursor int) Result {
	cursor = max(0, min(cursor, len(line)))
	ctx := NewContext(line[:cursor])
	cl.Parse(ctx)

	return Result{
		Kind:     ctx.Kind,
		ArgStart: ctx.Pos,
		Force:    ctx.Force,
		Command:  ctx.Cmd,
		Line:     ctx.Line,
	}
}

// Classify classifies line at cursor using the embedded command table.
func Classify(line string, cursor int) Result {
	return defaultClassifier().Classify(line, cursor)
}

func defaultClassifier() *Classifier {
	return &Classifier{registry: DefaultRegistry(), logger: zap.NewNop()}
}

// Parse runs the classifier over ctx.Line starting at ctx.Pos. Each pass
// handles one segment; a consumed modifier or a '|' starts a new one.
func (cl *Classifier) Parse(ctx *Context) {
	for cl.parseSegment(ctx) {
	}
}

func (cl *Classifier) restart(ctx *Context, reason string) bool {
	cl.logger.Debug("restarting command line parse",
		zap.String("reason", reason),
		zap.String("command", ctx.Cmd),
		zap.Int("pos", ctx.Pos))
	ctx.Cmd = ""
	ctx.Kind = KindUnset
	return true
}

// finish consumes the rest of the line with kind.
func finish(ctx *Context, kind Kind) bool {
	ctx.Pos = len(ctx.Line)
	ctx.Kind = kind
	return false
}

// parseSegment classifies one command of the line. It returns true when the
// parse must restart at ctx.Pos.
func (cl *Classifier) parseSegment(ctx *Context) bool {
	ctx.Kind = KindCommand
	ctx.Force = false

	if !ctx.skipWhitespace() {
		return false
	}
	if ctx.char() == '"' {
		return finish(ctx, KindNothing)
	}

	if skipRange(ctx) {
		return finish(ctx, KindNothing)
	}
	if !ctx.skipWhitespace() {
		return false
	}

	switch ctx.char() {
	case '"':
		return finish(ctx, KindNothing)
	case '|', ':':
		ctx.Pos++
		return cl.restart(ctx, "separator")
	}

	// "k" sets a mark and may be followed directly by the mark name.
	if ctx.char() == 'k' && ctx.Pos+1 < len(ctx.Line) && ctx.charAt(ctx.Pos+1) != 'e' {
		ctx.Cmd = "k"
		return finish(ctx, KindNothing)
	}

	cmdStart := ctx.Pos
	userCmd := cl.scanCommand(ctx)
	if ctx.Pos == cmdStart {
		ctx.Kind = KindUnsuccessful
		return false
	}

	// Still typing the command name.
	if ctx.eol() && isAlnum(ctx.Line[ctx.Pos-1]) {
		ctx.Pos = cmdStart
		ctx.Cmd = ""
		return false
	}

	if ctx.Cmd == "" {
		if ctx.Line[cmdStart] == 's' && strings.IndexByte("cgriI", ctx.charAt(cmdStart+1)) >= 0 {
			ctx.Cmd = "s"
		}
		return finish(ctx, KindNothing)
	}

	return cl.parseArguments(ctx, userCmd)
}

// scanCommand reads the command name at ctx.Pos and resolves it into
// ctx.Cmd. It reports whether the name is a user-defined command.
func (cl *Classifier) scanCommand(ctx *Context) bool {
	ctx.Cmd = ""
	start := ctx.Pos

	if isUpper(ctx.char()) {
		for isAlnum(ctx.char()) {
			ctx.Pos++
		}
		ctx.Cmd = ctx.Line[start:ctx.Pos]
		return true
	}

	if strings.IndexByte("@*!=><&~#", ctx.char()) >= 0 {
		ctx.Pos++
	} else {
		// py3, py3do, py3file and python3 are the only names with a digit.
		if strings.HasPrefix(ctx.Line[ctx.Pos:], "py3") {
			ctx.Pos += 3
		}
		// '*' is scanned as part of the name so "e*" is not read as "e" with
		// a "*" argument.
		for c := ctx.char(); isAlpha(c) || c == '*'; c = ctx.char() {
			ctx.Pos++
		}
	}

	if ctx.Pos > start {
		if cmd, ok := cl.registry.Lookup(ctx.Line[start:ctx.Pos]); ok {
			ctx.Cmd = cmd.Name
		}
	}
	return false
}

func (cl *Classifier) parseArguments(ctx *Context, userCmd bool) bool {
	ctx.Kind = KindNothing

	if ctx.char() == '!' {
		ctx.Pos++
		ctx.Force = true
	}

	if IsModifier(ctx.Cmd) {
		return cl.restart(ctx, "modifier")
	}

	ctx.skipWhitespace()

	flags := cl.registry.Flags(ctx.Cmd)
	useFilter := false

	switch ctx.Cmd {
	case "write", "update":
		if ctx.char() == '>' {
			if ctx.charAt(ctx.Pos+1) == '>' {
				ctx.Pos += 2
			} else {
				ctx.Pos++
			}
			ctx.skipWhitespace()
		}
		if ctx.Cmd == "write" && ctx.char() == '!' {
			ctx.Pos++
			useFilter = true
		}
	case "read":
		useFilter = readFilter(ctx)
	case "<", ">":
		for ctx.char() == ctx.Cmd[0] {
			ctx.Pos++
		}
		ctx.skipWhitespace()
	}

	if ctx.char() == '+' && ((flags.Has(FlagEditCmd) && !useFilter) || flags.Has(FlagArgOpt)) {
		if skipEditArgs(ctx, flags.Has(FlagEditCmd) && !useFilter) {
			return false
		}

		switch {
		case ctx.Cmd == "write" && ctx.char() == '!':
			ctx.Pos++
			useFilter = true
		case ctx.Cmd == "read":
			useFilter = readFilter(ctx)
		}
	}

	if flags.Has(FlagTrailingBar) && !useFilter {
		if ctx.Cmd == "redir" && ctx.char() == '@' && ctx.charAt(ctx.Pos+1) == '"' {
			ctx.Pos += 2
		}

		bar, comment := findBar(ctx.Line, ctx.Pos)
		if comment {
			ctx.Pos = len(ctx.Line)
			return false
		}
		if bar >= 0 {
			ctx.Pos = bar + 1
			return cl.restart(ctx, "bar")
		}
	}

	if !flags.Has(FlagExtra) && !userCmd {
		ctx.skipWhitespace()
		if ctx.char() == '|' {
			ctx.Pos++
			return cl.restart(ctx, "bar")
		}
		// A comment or arguments the command does not take.
		return finish(ctx, KindNothing)
	}

	if useFilter || ctx.Cmd == "!" || ctx.Cmd == "terminal" {
		argStart := ctx.Pos
		found := ctx.skipNonWhitespace()
		ctx.Pos = argStart
		if !found {
			ctx.Kind = KindShellCmd
			return false
		}
	}

	if flags.Has(FlagFile) {
		classifyFileArg(ctx, flags)
	}

	return cl.applyOverrides(ctx)
}

func readFilter(ctx *Context) bool {
	if ctx.char() == '!' {
		ctx.Pos++
		return true
	}
	return ctx.Force
}

// skipEditArgs consumes the "+cmd" and "++opt" arguments at ctx.Pos. It
// returns true when the line ends inside one of them; ctx then holds the
// kind of that argument and its start. "++opt" is only accepted before
// "+cmd", and only one "+cmd" is accepted.
func skipEditArgs(ctx *Context, allowCmd bool) bool {
	allowOpt := true

	for !ctx.eol() && ctx.char() == '+' {
		ctx.Pos++

		var kind Kind
		switch {
		case ctx.char() == '+':
			if allowOpt {
				ctx.Pos++
				kind = KindFileOpt
			} else {
				kind = KindNothing
			}
		case allowCmd:
			kind = KindCommand
			allowOpt = false
			allowCmd = false
		default:
			kind = KindNothing
		}

		argStart := ctx.Pos
		for !ctx.eol() && !isWhitespace(ctx.char()) {
			if ctx.char() == '\\' && ctx.Pos+1 < len(ctx.Line) {
				ctx.Pos++
			}
			ctx.Pos++
		}

		if ctx.eol() {
			ctx.Pos = argStart
			ctx.Kind = kind
			return true
		}

		ctx.skipWhitespace()
	}

	return false
}

// findBar looks for a '|' that ends the command starting at i. Backslash and
// CTRL-V escape the next character and a balanced "..." is skipped. A '"'
// without a closing quote starts a comment, reported by the second result.
func findBar(line string, i int) (int, bool) {
	for i < len(line) {
		switch line[i] {
		case '\\', ctrlV:
			i += 2
			continue
		case '"':
			end := closingQuote(line, i+1)
			if end < 0 {
				return -1, true
			}
			i = end + 1
			continue
		case '|':
			return i, false
		}
		i++
	}
	return -1, false
}

func closingQuote(line string, i int) int {
	for i < len(line) {
		switch line[i] {
		case '\\':
			i++
		case '"':
			return i
		}
		i++
	}
	return -1
}

// classifyFileArg classifies the file argument at ctx.Pos as a $ENV name, a
// ~user name or a file.
func classifyFileArg(ctx *Context, flags Flags) {
	argStart := ctx.Pos

	if ctx.char() == '$' {
		i := argStart + 1
		for i < len(ctx.Line) && isIdent(ctx.Line[i]) {
			i++
		}
		if i == len(ctx.Line) {
			ctx.Pos = argStart + 1
			ctx.Kind = KindEnvironment
			return
		}
	}

	if ctx.char() == '~' {
		i := argStart + 1
		for i < len(ctx.Line) && ctx.Line[i] != '/' && !isWhitespace(ctx.Line[i]) {
			i++
		}
		if i == len(ctx.Line) && i > argStart+1 {
			ctx.Pos = argStart + 1
			ctx.Kind = KindUser
			return
		}
	}

	ctx.Kind = KindFile
	// A nospace command takes a single name that may contain spaces.
	if !flags.Has(FlagNoSpace) {
		moveToLastArg(ctx)
	}
}

// moveToLastArg moves ctx.Pos to the start of the last blank-separated
// argument. Backslash-escaped blanks do not separate arguments.
func moveToLastArg(ctx *Context) {
	lastArg := ctx.Pos
	for !ctx.eol() {
		switch ctx.char() {
		case ' ', '\t':
			ctx.Pos++
			lastArg = ctx.Pos
		case '\\':
			if ctx.Pos+1 < len(ctx.Line) {
				ctx.Pos++
			}
			ctx.Pos++
		default:
			ctx.Pos++
		}
	}
	ctx.Pos = lastArg
}

var (
	fileInPathCommands = []string{"find", "sfind", "tabfind"}
	dirCommands        = []string{"cd", "chdir", "lcd", "lchdir", "tcd", "tchdir"}
	tagCommands        = []string{
		"tag", "stag", "ptag", "ltag",
		"tselect", "stselect", "tjump", "stjump", "ptselect", "ptjump",
	}
)

// applyOverrides adjusts the kind for commands whose arguments are not plain
// files. Commands with their own argument syntax (":global", ":set",
// ":autocmd" and the like) keep what the argument scan produced.
func (cl *Classifier) applyOverrides(ctx *Context) bool {
	switch {
	case lo.Contains(fileInPathCommands, ctx.Cmd):
		if ctx.Kind == KindFile {
			ctx.Kind = KindFileInPath
		}
	case lo.Contains(dirCommands, ctx.Cmd):
		if ctx.Kind == KindFile {
			ctx.Kind = KindDir
		}
	case ctx.Cmd == "help":
		ctx.Kind = KindHelp
	case IsModifier(ctx.Cmd):
		return cl.restart(ctx, "modifier")
	case ctx.Cmd == "delcommand":
		ctx.Kind = KindUserCommands
	case lo.Contains(tagCommands, ctx.Cmd):
		ctx.Kind = KindTags
	}
	return false
}
