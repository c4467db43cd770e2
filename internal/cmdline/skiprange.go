package cmdline

import "strings"

const rangeChars = " \t0123456789.$%'/?-+,;\\"

// skipRange advances over a line range such as "1,$", ".+3", "'a,'b" or
// "/pat/;?pat?". The address values are not interpreted.
//
// It returns true when the line ends inside an unterminated pattern, in which
// case nothing after it can be completed. A quote at the end of the line is
// consumed; a backslash that does not escape a delimiter, a trailing one
// included, ends the range on the backslash.
func skipRange(ctx *Context) bool {
	for !ctx.eol() && strings.IndexByte(rangeChars, ctx.char()) >= 0 {
		switch ch := ctx.char(); ch {
		case '\\':
			switch ctx.charAt(ctx.Pos + 1) {
			case '/', '?', '&':
				ctx.Pos += 2
				continue
			default:
				// Not an address; leave it to the command scanner.
				return false
			}
		case '\'':
			if ctx.Pos+1 >= len(ctx.Line) {
				ctx.Pos = len(ctx.Line)
				return false
			}
			// Skip the mark name.
			ctx.Pos++
		case '/', '?':
			ctx.Pos++
			for !ctx.eol() && ctx.char() != ch {
				if ctx.char() == '\\' && ctx.Pos+1 < len(ctx.Line) {
					ctx.Pos++
				}
				ctx.Pos++
			}
			if ctx.eol() {
				return true
			}
		}
		ctx.Pos++
	}
	return false
}
