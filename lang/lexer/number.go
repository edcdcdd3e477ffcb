package lexer

import (
	"math"
	"strconv"
	"strings"

	"github.com/blikk-lang/blikk/lang/token"
)

// scanNumber lexes an integer or float literal. Integer literals may use a
// 0b/0o/0x base prefix, with '_' digit separators permitted only in plain
// decimal literals (spec.md §4.C). Float literals are always decimal, with
// an optional fractional part and/or exponent.
func (l *Lexer) scanNumber(line int) token.Token {
	pos := token.MakePos(line, 1)
	start := l.off

	base := 10
	if l.cur == '0' {
		switch l.peekByte() {
		case 'b', 'B':
			l.advance()
			l.advance()
			base = 2
			return l.scanBasedInt(pos, start, base, isBinaryDigit)
		case 'o', 'O':
			l.advance()
			l.advance()
			base = 8
			return l.scanBasedInt(pos, start, base, isOctalDigit)
		case 'x', 'X':
			l.advance()
			l.advance()
			base = 16
			return l.scanBasedInt(pos, start, base, isHexDigit)
		}
	}
	return l.scanDecimal(pos, start)
}

func isBinaryDigit(r rune) bool { return r == '0' || r == '1' }
func isOctalDigit(r rune) bool  { return r >= '0' && r <= '7' }
func isHexDigit(r rune) bool {
	return r >= '0' && r <= '9' || r >= 'a' && r <= 'f' || r >= 'A' && r <= 'F'
}

func (l *Lexer) scanBasedInt(pos token.Pos, start, base int, digit func(rune) bool) token.Token {
	digitsStart := l.off
	for digit(l.cur) {
		l.advance()
	}
	if l.off == digitsStart {
		l.error(start, pos2line(pos), 1, "malformed numeric literal: no digits after base prefix")
	}
	lit := string(l.src[start:l.off])
	digits := string(l.src[digitsStart:l.off])
	v, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		l.error(start, pos2line(pos), 1, "integer literal value out of range")
	}
	return token.Token{Kind: token.INT, Value: token.Value{Raw: lit, Pos: pos, Int: int64(v)}}
}

func (l *Lexer) scanDecimal(pos token.Pos, start int) token.Token {
	isFloat := false
	var digits strings.Builder

	scanDigits := func() {
		for isDecimalDigit(l.cur) || l.cur == '_' {
			if l.cur != '_' {
				digits.WriteRune(l.cur)
			}
			l.advance()
		}
	}
	scanDigits()

	if l.cur == '.' {
		isFloat = true
		digits.WriteByte('.')
		l.advance()
		scanDigits()
	}
	if l.cur == 'e' || l.cur == 'E' {
		isFloat = true
		digits.WriteByte('e')
		l.advance()
		if l.cur == '+' || l.cur == '-' {
			digits.WriteRune(l.cur)
			l.advance()
		}
		scanDigits()
	}

	lit := string(l.src[start:l.off])
	if isFloat {
		f, err := strconv.ParseFloat(digits.String(), 64)
		if err != nil || math.IsInf(f, 0) {
			l.error(start, pos2line(pos), 1, "float literal value out of range")
		}
		return token.Token{Kind: token.FLOAT, Value: token.Value{Raw: lit, Pos: pos, Float: f}}
	}

	v, err := strconv.ParseUint(digits.String(), 10, 64)
	if err != nil || v > math.MaxInt64 {
		l.error(start, pos2line(pos), 1, "integer literal value out of range")
	}
	return token.Token{Kind: token.INT, Value: token.Value{Raw: lit, Pos: pos, Int: int64(v)}}
}

// pos2line extracts the line back out of a Pos built with column 1, to
// avoid threading the raw line value through every helper separately.
func pos2line(p token.Pos) int {
	line, _ := p.LineCol()
	return line
}
