package compiler

import (
	"github.com/blikk-lang/blikk/lang/token"
)

func (c *Compiler) cur() token.Token {
	if c.pos >= len(c.toks) {
		return token.Token{Kind: token.EOF}
	}
	return c.toks[c.pos]
}

func (c *Compiler) curLine() int {
	line, _ := c.cur().Value.Pos.LineCol()
	return line
}

func (c *Compiler) peek(n int) token.Token {
	if c.pos+n >= len(c.toks) {
		return token.Token{Kind: token.EOF}
	}
	return c.toks[c.pos+n]
}

func (c *Compiler) at(k token.Kind) bool { return c.cur().Kind == k }

func (c *Compiler) advance() token.Token {
	t := c.cur()
	if c.pos < len(c.toks) {
		c.pos++
	}
	return t
}

// accept consumes the current token and returns true if it matches k.
func (c *Compiler) accept(k token.Kind) bool {
	if c.at(k) {
		c.advance()
		return true
	}
	return false
}

// expect consumes the current token, requiring it to match k; on mismatch
// it reports an error and does not advance, so the caller's resync logic
// can take over.
func (c *Compiler) expect(k token.Kind) (token.Token, bool) {
	if c.at(k) {
		return c.advance(), true
	}
	if c.at(token.EOF) {
		c.unexpectedEOF = true
	}
	c.errf("expected %#v, got %#v", k, c.cur().Kind)
	return token.Token{}, false
}

// skipEOLs consumes any run of end-of-line/semicolon terminators.
func (c *Compiler) skipEOLs() {
	for c.at(token.EOL) || c.at(token.SEMI) {
		c.advance()
	}
}

func (c *Compiler) errf(format string, args ...any) {
	c.diag.Errorf(c.file, c.cur().Value.Pos, format, args...)
}

func (c *Compiler) errfAt(pos token.Pos, format string, args ...any) {
	c.diag.Errorf(c.file, pos, format, args...)
}

// resync skips forward to the next statement boundary after an error
// (spec.md §4.D "Error recovery"): the next "do", end-of-line, semicolon,
// or END keyword.
func (c *Compiler) resync() {
	for {
		switch c.cur().Kind {
		case token.EOF, token.EOL, token.SEMI, token.DO, token.END:
			return
		default:
			c.advance()
		}
	}
}

// enterDepth increments the recursion guard, reporting an error and
// returning false once maxParseDepth is exceeded (spec.md §5).
func (c *Compiler) enterDepth() bool {
	c.depth++
	if c.depth > maxParseDepth {
		c.errf("excessive nesting depth")
		return false
	}
	return true
}

func (c *Compiler) leaveDepth() { c.depth-- }
