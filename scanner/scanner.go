package scanner

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Gejsi/dassie/token"
)

// eof is returned by read once the reader is exhausted.
const eof rune = -1

// Scanner tokenizes CSS as described by CSS Syntax Level 3.
//
// Input is decoded as UTF-8. @charset rules are not interpreted.
type Scanner struct {
	// Errors holds the errors found so far, in input order.
	Errors []*Error

	rd   *bufio.Reader
	next token.Pos // position of the next rune read from rd

	// ring holds the most recent runes so that up to len(ring)-1 of them
	// can be pushed back with unread.
	ring    [4]rune
	ringPos [4]token.Pos
	head    int // index of the current rune
	pending int // runes pushed back and not yet reread
}

// New returns a new instance of Scanner.
func New(r io.Reader) *Scanner {
	return &Scanner{rd: bufio.NewReader(r)}
}

// Scan returns the next token. Comments are skipped. Once the input is
// consumed every call returns an EOF token.
func (s *Scanner) Scan() token.Token {
	for {
		ch := s.read()
		pos := s.pos()

		switch {
		case ch == eof:
			return &token.EOF{Pos: pos}
		case isWhitespace(ch):
			return s.scanWhitespace()
		case isQuote(ch):
			return s.scanString()
		case isDigit(ch):
			s.unread(1)
			return s.scanNumeric(pos)
		case ch == 'u' || ch == 'U':
			if ch1, ch2 := s.peek2(); ch1 == '+' && (isHexDigit(ch2) || ch2 == '?') {
				s.read()
				return s.scanUnicodeRange(pos)
			}
			return s.scanIdent()
		case isNameStart(ch):
			return s.scanIdent()
		}

		switch ch {
		case ',':
			return &token.Comma{Pos: pos}
		case ':':
			return &token.Colon{Pos: pos}
		case ';':
			return &token.Semicolon{Pos: pos}
		case '(':
			return &token.LParen{Pos: pos}
		case ')':
			return &token.RParen{Pos: pos}
		case '[':
			return &token.LBrack{Pos: pos}
		case ']':
			return &token.RBrack{Pos: pos}
		case '{':
			return &token.LBrace{Pos: pos}
		case '}':
			return &token.RBrace{Pos: pos}
		case '#':
			return s.scanHash()
		case '$', '*', '^', '~':
			if s.accept("=") {
				return match(ch, pos)
			}
		case '|':
			if s.accept("=") {
				return &token.DashMatch{Pos: pos}
			} else if s.accept("|") {
				return &token.Column{Pos: pos}
			}
		case '-':
			ch1, ch2 := s.peek2()
			if startsNumber(ch1, ch2) {
				s.unread(1)
				return s.scanNumeric(pos)
			} else if ch1 == '-' && ch2 == '>' {
				s.read()
				s.read()
				return &token.CDC{Pos: pos}
			} else if s.peekIdent() {
				return s.scanIdent()
			}
		case '+':
			if startsNumber(s.peek2()) {
				s.unread(1)
				return s.scanNumeric(pos)
			}
		case '.':
			if isDigit(s.peek()) {
				s.unread(1)
				return s.scanNumeric(pos)
			}
		case '/':
			if s.accept("*") {
				s.skipComment()
				continue
			}
		case '<':
			if s.accept("!--") {
				return &token.CDO{Pos: pos}
			}
		case '@':
			if s.read(); s.peekIdent() {
				return &token.AtKeyword{Value: s.scanName(), Pos: pos}
			}
			s.unread(1)
		case '\\':
			if s.peekEscape() {
				return s.scanIdent()
			}
			s.errorf(pos, "unescaped \\")
		}
		return &token.Delim{Value: string(ch), Pos: pos}
	}
}

// match returns the attribute selector operator that ch starts.
func match(ch rune, pos token.Pos) token.Token {
	switch ch {
	case '$':
		return &token.SuffixMatch{Pos: pos}
	case '*':
		return &token.SubstringMatch{Pos: pos}
	case '^':
		return &token.PrefixMatch{Pos: pos}
	default:
		return &token.IncludeMatch{Pos: pos}
	}
}

func (s *Scanner) scanWhitespace() token.Token {
	pos := s.pos()
	var b strings.Builder
	b.WriteRune(s.curr())
	for isWhitespace(s.read()) {
		b.WriteRune(s.curr())
	}
	s.unread(1)
	return &token.Whitespace{Value: b.String(), Pos: pos}
}

func (s *Scanner) skipWhitespace() {
	for isWhitespace(s.read()) {
	}
	s.unread(1)
}

// scanString consumes a string opened by the current quote. The end of input
// closes the string. An unescaped newline is left unread and produces a
// bad-string token.
func (s *Scanner) scanString() token.Token {
	pos, quote := s.pos(), s.curr()
	var b strings.Builder
	for {
		switch ch := s.read(); ch {
		case eof, quote:
			return &token.String{Value: b.String(), Ending: quote, Pos: pos}
		case '\n':
			s.unread(1)
			s.errorf(pos, "unterminated string")
			return &token.BadString{Pos: pos}
		case '\\':
			// An escaped newline is a line continuation.
			if next := s.read(); next != eof && next != '\n' {
				s.unread(1)
				b.WriteRune(s.scanEscape())
			}
		default:
			b.WriteRune(ch)
		}
	}
}

// scanNumeric consumes a number and an optional unit or percent sign.
func (s *Scanner) scanNumeric(pos token.Pos) token.Token {
	num, typ, repr := s.scanNumber()

	if s.read(); s.peekIdent() {
		unit := s.scanName()
		return &token.Dimension{Type: typ, Value: repr + unit, Number: num, Unit: unit, Pos: pos}
	} else if s.curr() == '%' {
		return &token.Percentage{Type: typ, Value: repr + "%", Number: num, Pos: pos}
	}
	s.unread(1)
	return &token.Number{Type: typ, Value: repr, Number: num, Pos: pos}
}

// scanNumber consumes a number and returns its value, its type flag and the
// text it was written as.
func (s *Scanner) scanNumber() (num float64, typ, repr string) {
	var b strings.Builder
	typ = "integer"

	if ch := s.read(); ch == '+' || ch == '-' {
		b.WriteRune(ch)
	} else {
		s.unread(1)
	}
	s.scanDigits(&b)

	if ch1, ch2 := s.peek2(); ch1 == '.' && isDigit(ch2) {
		typ = "number"
		b.WriteRune(s.read())
		s.scanDigits(&b)
	}

	if ch := s.read(); ch != 'e' && ch != 'E' {
		s.unread(1)
	} else if exp := s.scanExponent(); exp == "" {
		s.unread(1)
	} else {
		typ = "number"
		b.WriteRune(ch)
		b.WriteString(exp)
	}

	repr = b.String()
	num, _ = strconv.ParseFloat(repr, 64)
	return num, typ, repr
}

// scanExponent consumes the optionally signed digits after an "e". Nothing
// is consumed unless a digit follows.
func (s *Scanner) scanExponent() string {
	var b strings.Builder
	n := 0
	if ch := s.read(); ch == '+' || ch == '-' {
		b.WriteRune(ch)
		n++
	} else {
		s.unread(1)
	}

	if !isDigit(s.peek()) {
		s.unread(n)
		return ""
	}
	s.scanDigits(&b)
	return b.String()
}

func (s *Scanner) scanDigits(b *strings.Builder) {
	for isDigit(s.read()) {
		b.WriteRune(s.curr())
	}
	s.unread(1)
}

// skipComment consumes everything up to and including "*/". The opening
// "/*" must already be consumed.
func (s *Scanner) skipComment() {
	for {
		switch s.read() {
		case eof:
			s.unread(1)
			return
		case '*':
			if s.accept("/") {
				return
			}
		}
	}
}

// scanHash consumes a hash token, or returns a "#" delim if no name follows.
func (s *Scanner) scanHash() token.Token {
	pos := s.pos()
	if ch := s.read(); !isName(ch) && !s.peekEscape() {
		s.unread(1)
		return &token.Delim{Value: "#", Pos: pos}
	}

	typ := "unrestricted"
	if s.peekIdent() {
		typ = "id"
	}
	return &token.Hash{Value: s.scanName(), Type: typ, Pos: pos}
}

// scanName consumes name code points and escapes, starting with the current
// rune.
func (s *Scanner) scanName() string {
	var b strings.Builder
	s.unread(1)
	for {
		ch := s.read()
		switch {
		case isName(ch):
			b.WriteRune(ch)
		case s.peekEscape():
			b.WriteRune(s.scanEscape())
		default:
			s.unread(1)
			return b.String()
		}
	}
}

// scanIdent consumes an ident, function, url or bad-url token starting with
// the current rune.
func (s *Scanner) scanIdent() token.Token {
	pos := s.pos()
	name := s.scanName()

	if !s.accept("(") {
		return &token.Ident{Value: name, Pos: pos}
	} else if !strings.EqualFold(name, "url") {
		return &token.Function{Value: name, Pos: pos}
	}

	// url("x") is a function holding a string. Only the unquoted form is a
	// url token.
	for {
		ch1, ch2 := s.peek2()
		switch {
		case isWhitespace(ch1) && isWhitespace(ch2):
			s.read()
		case isQuote(ch1) || (isWhitespace(ch1) && isQuote(ch2)):
			return &token.Function{Value: name, Pos: pos}
		default:
			return s.scanURL(pos)
		}
	}
}

// scanURL consumes the rest of an unquoted url after "url(".
func (s *Scanner) scanURL(pos token.Pos) token.Token {
	s.skipWhitespace()

	var b strings.Builder
	for {
		ch := s.read()
		switch {
		case ch == ')' || ch == eof:
			return &token.URL{Value: b.String(), Pos: pos}
		case isWhitespace(ch):
			s.skipWhitespace()
			if ch := s.read(); ch == ')' || ch == eof {
				return &token.URL{Value: b.String(), Pos: pos}
			}
			s.errorf(pos, "whitespace in url")
			return s.scanBadURL(pos)
		case isQuote(ch) || ch == '(' || isNonPrintable(ch):
			s.errorf(pos, "invalid url code point: %c (%U)", ch, ch)
			return s.scanBadURL(pos)
		case ch == '\\':
			if !s.peekEscape() {
				s.errorf(s.pos(), "unescaped \\ in url")
				return s.scanBadURL(pos)
			}
			b.WriteRune(s.scanEscape())
		default:
			b.WriteRune(ch)
		}
	}
}

// scanBadURL skips the remains of a malformed url up to the closing ")".
func (s *Scanner) scanBadURL(pos token.Pos) token.Token {
	for {
		ch := s.read()
		if ch == ')' {
			break
		} else if ch == eof {
			s.unread(1)
			break
		} else if s.peekEscape() {
			s.scanEscape()
		}
	}
	return &token.BadURL{Pos: pos}
}

// scanUnicodeRange consumes the range after "u+". A "?" wildcard stands for
// 0 in the start and F in the end of the range.
func (s *Scanner) scanUnicodeRange(pos token.Pos) token.Token {
	var b strings.Builder
	s.scanHex(&b, 6)
	n := b.Len()
	for b.Len() < 6 {
		if s.read() != '?' {
			s.unread(1)
			break
		}
		b.WriteByte('?')
	}

	if b.Len() > n {
		v := b.String()
		return &token.UnicodeRange{
			Start: hexValue(strings.ReplaceAll(v, "?", "0")),
			End:   hexValue(strings.ReplaceAll(v, "?", "F")),
			Pos:   pos,
		}
	}

	start := hexValue(b.String())
	end := start
	if ch1, ch2 := s.peek2(); ch1 == '-' && isHexDigit(ch2) {
		s.read()
		b.Reset()
		s.scanHex(&b, 6)
		end = hexValue(b.String())
	}
	return &token.UnicodeRange{Start: start, End: end, Pos: pos}
}

// scanEscape consumes the escape opened by the current backslash and returns
// the code point it stands for.
func (s *Scanner) scanEscape() rune {
	ch := s.read()
	if ch == eof {
		s.unread(1)
		return '�'
	} else if !isHexDigit(ch) {
		return ch
	}

	var b strings.Builder
	b.WriteRune(ch)
	s.scanHex(&b, 5)

	// One whitespace rune after the digits belongs to the escape.
	if !isWhitespace(s.read()) {
		s.unread(1)
	}

	v := hexValue(b.String())
	if v == 0 || (v >= 0xD800 && v <= 0xDFFF) || v > 0x10FFFF {
		return '�'
	}
	return rune(v)
}

func (s *Scanner) scanHex(b *strings.Builder, max int) {
	for i := 0; i < max; i++ {
		if !isHexDigit(s.read()) {
			s.unread(1)
			return
		}
		b.WriteRune(s.curr())
	}
}

func hexValue(s string) int {
	v, _ := strconv.ParseInt(s, 16, 0)
	return int(v)
}

// peekEscape reports whether the current rune starts a valid escape.
func (s *Scanner) peekEscape() bool {
	return s.curr() == '\\' && s.peek() != '\n'
}

// peekIdent reports whether the current rune starts an identifier.
func (s *Scanner) peekIdent() bool {
	switch ch := s.curr(); {
	case ch == '-':
		ch1, ch2 := s.peek2()
		return isNameStart(ch1) || ch1 == '-' || (ch1 == '\\' && ch2 != '\n')
	case isNameStart(ch):
		return true
	case ch == '\\':
		return s.peekEscape()
	}
	return false
}

func startsNumber(ch1, ch2 rune) bool {
	return isDigit(ch1) || (ch1 == '.' && isDigit(ch2))
}

// accept consumes lit if the input continues with it.
func (s *Scanner) accept(lit string) bool {
	n := 0
	for _, want := range lit {
		n++
		if s.read() != want {
			s.unread(n)
			return false
		}
	}
	return true
}

func (s *Scanner) peek() rune {
	ch := s.read()
	s.unread(1)
	return ch
}

func (s *Scanner) peek2() (rune, rune) {
	ch1, ch2 := s.read(), s.read()
	s.unread(2)
	return ch1, ch2
}

// read returns the next rune, taking pushed back runes first. Runes from the
// reader are preprocessed: CR, CRLF and FF become LF and NUL becomes U+FFFD.
// The end of input reads as eof.
func (s *Scanner) read() rune {
	if s.pending > 0 {
		s.pending--
		s.head = (s.head + 1) % len(s.ring)
		return s.ring[s.head]
	}

	pos := s.next
	ch, _, err := s.rd.ReadRune()
	switch {
	case err != nil:
		ch = eof
	case ch == '\r':
		if ch1, _, err := s.rd.ReadRune(); err == nil && ch1 != '\n' {
			_ = s.rd.UnreadRune()
		}
		ch = '\n'
	case ch == '\f':
		ch = '\n'
	case ch == 0:
		ch = '�'
	}

	if ch == '\n' {
		s.next.Line++
		s.next.Char = 0
	} else if ch != eof {
		s.next.Char++
	}

	s.head = (s.head + 1) % len(s.ring)
	s.ring[s.head], s.ringPos[s.head] = ch, pos
	return ch
}

// unread pushes back the last n runes.
func (s *Scanner) unread(n int) {
	s.pending += n
	s.head = (s.head + len(s.ring) - n) % len(s.ring)
}

func (s *Scanner) curr() rune { return s.ring[s.head] }

// pos returns the position of the current rune.
func (s *Scanner) pos() token.Pos { return s.ringPos[s.head] }

func (s *Scanner) errorf(pos token.Pos, format string, args ...interface{}) {
	s.Errors = append(s.Errors, &Error{Message: fmt.Sprintf(format, args...), Pos: pos})
}

func isWhitespace(ch rune) bool { return ch == ' ' || ch == '\t' || ch == '\n' }
func isQuote(ch rune) bool      { return ch == '"' || ch == '\'' }
func isDigit(ch rune) bool      { return '0' <= ch && ch <= '9' }

func isHexDigit(ch rune) bool {
	return isDigit(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}

// isNameStart reports whether ch is a letter, an underscore or non-ASCII.
func isNameStart(ch rune) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_' || ch >= 0x80
}

func isName(ch rune) bool { return isNameStart(ch) || isDigit(ch) || ch == '-' }

func isNonPrintable(ch rune) bool {
	return (0 <= ch && ch <= 0x08) || ch == 0x0B || (0x0E <= ch && ch <= 0x1F) || ch == 0x7F
}

// Error represents a scan error.
type Error struct {
	Message string
	Pos     token.Pos
}

// Error returns the formatted string error message.
func (e *Error) Error() string {
	return e.Message
}
