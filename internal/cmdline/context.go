package cmdline

// Context is the mutable state threaded through one parse.
type Context struct {
	// Line is the command line up to the cursor.
	Line string
	// Pos is the scan offset into Line. When parsing finishes it is the start
	// of the partial token to complete.
	Pos int
	// Cmd is the resolved command of the current segment.
	Cmd string
	// Kind is the classification computed so far.
	Kind Kind
	// Force is set when a '!' followed the command name.
	Force bool
}

// NewContext returns a context positioned at the start of line.
func NewContext(line string) *Context {
	return &Context{Line: line, Kind: KindCommand}
}

// char returns the byte at Pos, or 0 at end of line.
func (c *Context) char() byte {
	return c.charAt(c.Pos)
}

func (c *Context) charAt(i int) byte {
	if i < 0 || i >= len(c.Line) {
		return 0
	}
	return c.Line[i]
}

func (c *Context) eol() bool {
	return c.Pos >= len(c.Line)
}

// skipWhitespace advances past whitespace and reports whether anything is
// left on the line.
func (c *Context) skipWhitespace() bool {
	for !c.eol() && isWhitespace(c.char()) {
		c.Pos++
	}
	return !c.eol()
}

// skipNonWhitespace advances to the next whitespace and reports whether one
// was found before the end of the line.
func (c *Context) skipNonWhitespace() bool {
	for !c.eol() && !isWhitespace(c.char()) {
		c.Pos++
	}
	return !c.eol()
}

func isWhitespace(b byte) bool {
	return b == ' ' || (b >= '\t' && b <= '\r')
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isUpper(b byte) bool {
	return b >= 'A' && b <= 'Z'
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isAlnum(b byte) bool {
	return isAlpha(b) || isDigit(b)
}

func isIdent(b byte) bool {
	return isAlnum(b) || b == '_'
}
