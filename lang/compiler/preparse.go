package compiler

import (
	"github.com/blikk-lang/blikk/lang/lexer"
	"github.com/blikk-lang/blikk/lang/token"
)

// preparse walks the whole token stream, tracking block depth, before any
// body is compiled, registering a Function/Record type/Enum type and a
// module-scope variable for each top-level declaration so that forward
// references resolve during body parsing regardless of textual order
// (spec.md §4.D "Preparse"). Declarations nested below top level are
// rejected with an error (their prototype tokens are still consumed).
// Registered script functions are queued in declaration order in
// c.preparsedFuncs; the main statement pass dequeues them instead of
// re-registering, then fills in their IR.
func (c *Compiler) preparse(tf *lexer.TokenizedFile) error {
	if tf == nil {
		return nil
	}
	savedPos := c.pos
	c.pos = 0
	depth := 0

	for !c.at(token.EOF) {
		switch c.cur().Kind {
		case token.BEGIN, token.IF, token.WHILE, token.FOR:
			depth++
			c.advance()
		case token.END:
			if depth > 0 {
				depth--
			}
			c.advance()
		case token.FUNC:
			if depth == 0 {
				c.preparseFunc()
			} else {
				c.errf("functions must be declared at top level")
				c.advance()
			}
		case token.RECORD:
			if depth == 0 {
				c.preparseRecord()
			} else {
				c.errf("records must be declared at top level")
				c.advance()
			}
		case token.ENUM:
			if depth == 0 {
				c.preparseEnum()
			} else {
				c.errf("enums must be declared at top level")
				c.advance()
			}
		default:
			c.advance()
		}
		c.diag.EndStatement()
	}

	c.pos = savedPos
	if c.diag.HasErrors() {
		return c.diag.Err()
	}
	return nil
}

// preparseFunc registers a func prototype, then skips its body (a matching
// run of nested blocks terminated by "end") without compiling it.
func (c *Compiler) preparseFunc() {
	start := c.pos
	fn, ok := c.parseFuncHeader()
	if !ok {
		c.diag.Poison(funcNameAt(c, start))
		c.resyncToEnd()
		return
	}
	c.preparsedFuncs = append(c.preparsedFuncs, fn)
	c.skipBlockBody()
}

func funcNameAt(c *Compiler, start int) string {
	if start+1 < len(c.toks) && c.toks[start+1].Value.Str != nil {
		return *c.toks[start+1].Value.Str
	}
	return ""
}

func (c *Compiler) preparseRecord() {
	start := c.pos
	if !c.parseRecordHeader() {
		c.diag.Poison(funcNameAt(c, start))
		c.resync()
	}
}

func (c *Compiler) preparseEnum() {
	start := c.pos
	if !c.parseEnumDecl() {
		c.diag.Poison(funcNameAt(c, start))
		c.resync()
	}
}

// skipBlockBody consumes tokens from just after a func header's trailing
// end-of-line up to (and including) its matching "end", tracking nested
// block openers.
func (c *Compiler) skipBlockBody() {
	c.skipEOLs()
	depth := 1
	for depth > 0 && !c.at(token.EOF) {
		switch c.cur().Kind {
		case token.BEGIN, token.IF, token.WHILE, token.FOR:
			depth++
		case token.END:
			depth--
		}
		c.advance()
	}
}

// resyncToEnd skips forward to the next "end" at the current nesting
// level, used when a top-level declaration's header fails to parse.
func (c *Compiler) resyncToEnd() {
	depth := 1
	for depth > 0 && !c.at(token.EOF) {
		switch c.cur().Kind {
		case token.BEGIN, token.IF, token.WHILE, token.FOR:
			depth++
		case token.END:
			depth--
		}
		c.advance()
	}
}
