// Package lexer provides a block-aware cursor over the CSS token stream.
//
// A Lexer hands out tokens one at a time and tracks blocks opened by "(",
// "[", "{" and function tokens. A block that the caller does not enter with
// ParseNestedBlock is skipped on the next read. Scopes created with
// ParseNestedBlock, ParseUntilBefore and ParseUntilAfter end at their
// closing token or delimiter, which is reported to the caller as io.EOF.
package lexer

import (
	"errors"
	"fmt"
	"io"

	"github.com/Gejsi/dassie/scanner"
	"github.com/Gejsi/dassie/token"
)

// Delimiters is a set of tokens that end a delimited scope.
type Delimiters uint8

const (
	// None is the empty set of delimiters.
	None Delimiters = 0

	Semicolon Delimiters = 1 << iota
	Comma
	Colon
	CurlyBracketBlock
	CloseParen
	CloseBracket
	CloseBrace
)

// ErrUnexpectedToken is returned, wrapped in an *Error, by the Expect helpers.
var ErrUnexpectedToken = errors.New("unexpected token")

// errNoBlock is returned by ParseNestedBlock when the last token did not open a block.
var errNoBlock = errors.New("lexer: no block to enter")

// Error reports a token that differs from the one the caller expected.
type Error struct {
	Expected string
	Tok      token.Token // nil when the scope is exhausted
	Pos      token.Pos
}

// Error returns the formatted error message.
func (e *Error) Error() string {
	if e.Tok == nil {
		return fmt.Sprintf("expected %s, got end of input", e.Expected)
	}
	return fmt.Sprintf("expected %s, got %q", e.Expected, e.Tok.String())
}

// Unwrap returns ErrUnexpectedToken.
func (e *Error) Unwrap() error { return ErrUnexpectedToken }

// blockKind identifies the kind of a block by its closing token.
type blockKind int

const (
	noBlock blockKind = iota
	parenBlock
	bracketBlock
	curlyBlock
)

// Lexer is a cursor over one scope of the token stream.
// Child lexers passed to the scope callbacks share the parent's input.
type Lexer struct {
	in        *input
	stop      Delimiters
	atStartOf blockKind // block opened by the last token and not yet entered
}

// New returns a lexer over the CSS text read from r.
func New(r io.Reader) *Lexer {
	return NewScanner(scanner.New(r))
}

// NewScanner returns a lexer over the tokens produced by s.
func NewScanner(s *scanner.Scanner) *Lexer {
	return &Lexer{in: &input{s: s}}
}

// Next returns the next token, skipping whitespace.
// Returns io.EOF at the end of the scope.
func (l *Lexer) Next() (token.Token, error) {
	for {
		tok, err := l.NextIncludingWhitespace()
		if err != nil {
			return tok, err
		}
		if _, ok := tok.(*token.Whitespace); !ok {
			return tok, nil
		}
	}
}

// NextIncludingWhitespace returns the next token, including whitespace.
// Returns io.EOF at the end of the scope. If the token was flagged by the
// scanner, it is returned along with the scanner's error.
func (l *Lexer) NextIncludingWhitespace() (token.Token, error) {
	if l.atStartOf != noBlock {
		l.in.consume(l.in.skipBlock(0, l.atStartOf))
		l.atStartOf = noBlock
	}

	it := l.in.peek(0)
	if l.stopsAt(it.tok) {
		return nil, io.EOF
	}
	l.in.consume(1)
	l.atStartOf = opens(it.tok)

	if it.err != nil {
		return it.tok, it.err
	}
	return it.tok, nil
}

// Current returns the last token read from the input.
func (l *Lexer) Current() token.Token {
	if l.in.last == nil {
		return nil
	}
	return l.in.last.tok
}

// Unscan pushes the last token read back onto the input.
// A block it opened is forgotten and reopened by the next read.
func (l *Lexer) Unscan() {
	l.in.unscan()
	l.atStartOf = noBlock
}

// IsExhausted returns true if only whitespace remains in the scope.
// It does not consume any tokens.
func (l *Lexer) IsExhausted() bool {
	i := 0
	if l.atStartOf != noBlock {
		i = l.in.skipBlock(0, l.atStartOf)
	}
	for {
		it := l.in.peek(i)
		if _, ok := it.tok.(*token.Whitespace); !ok {
			return l.stopsAt(it.tok)
		}
		i++
	}
}

// Position returns the position of the next token in the input.
func (l *Lexer) Position() token.Pos {
	return l.in.peek(0).tok.Position()
}

// ParseNestedBlock calls fn with a lexer scoped to the contents of the block
// opened by the last token. Tokens that fn leaves unread are skipped, as is
// the closing token.
func (l *Lexer) ParseNestedBlock(fn func(*Lexer) error) error {
	k := l.atStartOf
	if k == noBlock {
		return errNoBlock
	}
	l.atStartOf = noBlock

	child := &Lexer{in: l.in, stop: closer(k)}
	err := fn(child)
	child.drain()

	// Consume the closing token, unless the input ended first.
	if closes(l.in.peek(0).tok) == k {
		l.in.consume(1)
	}
	return err
}

// ParseUntilBefore calls fn with a lexer scoped up to, but not including,
// the first delimiter in d or in the enclosing scope's delimiters.
// Tokens that fn leaves unread are skipped; the delimiter is not.
func (l *Lexer) ParseUntilBefore(d Delimiters, fn func(*Lexer) error) error {
	child := &Lexer{in: l.in, stop: l.stop | d, atStartOf: l.atStartOf}
	l.atStartOf = noBlock

	err := fn(child)
	child.drain()
	return err
}

// ParseUntilAfter is like ParseUntilBefore but also consumes the delimiter.
// A "{" delimiter is consumed along with its block.
func (l *Lexer) ParseUntilAfter(d Delimiters, fn func(*Lexer) error) error {
	err := l.ParseUntilBefore(d, fn)

	it := l.in.peek(0)
	if delimiter(it.tok)&d != 0 {
		l.in.consume(1)
		if k := opens(it.tok); k != noBlock {
			l.in.consume(l.in.skipBlock(0, k))
		}
	}
	return err
}

// ExpectIdent reads the next non-whitespace token and checks that it is an identifier.
func (l *Lexer) ExpectIdent() (*token.Ident, error) {
	tok, err := l.expect("identifier")
	if err != nil {
		return nil, err
	}
	if t, ok := tok.(*token.Ident); ok {
		return t, nil
	}
	return nil, l.unexpected("identifier", tok)
}

// ExpectColon reads the next non-whitespace token and checks that it is a colon.
func (l *Lexer) ExpectColon() error {
	tok, err := l.expect("':'")
	if err != nil {
		return err
	}
	if _, ok := tok.(*token.Colon); !ok {
		return l.unexpected("':'", tok)
	}
	return nil
}

// ExpectSemicolon reads the next non-whitespace token and checks that it is a semicolon.
func (l *Lexer) ExpectSemicolon() error {
	tok, err := l.expect("';'")
	if err != nil {
		return err
	}
	if _, ok := tok.(*token.Semicolon); !ok {
		return l.unexpected("';'", tok)
	}
	return nil
}

// ExpectComma reads the next non-whitespace token and checks that it is a comma.
func (l *Lexer) ExpectComma() error {
	tok, err := l.expect("','")
	if err != nil {
		return err
	}
	if _, ok := tok.(*token.Comma); !ok {
		return l.unexpected("','", tok)
	}
	return nil
}

// ExpectCurlyBracketBlock reads the next non-whitespace token and checks
// that it opens a "{" block. The block is left pending for ParseNestedBlock.
func (l *Lexer) ExpectCurlyBracketBlock() error {
	tok, err := l.expect("'{'")
	if err != nil {
		return err
	}
	if _, ok := tok.(*token.LBrace); !ok {
		return l.unexpected("'{'", tok)
	}
	return nil
}

// expect reads the next non-whitespace token and turns the end of the
// scope into an unexpected token error.
func (l *Lexer) expect(what string) (token.Token, error) {
	tok, err := l.Next()
	if err == io.EOF {
		return nil, &Error{Expected: what, Pos: l.Position()}
	}
	return tok, err
}

func (l *Lexer) unexpected(what string, tok token.Token) error {
	return &Error{Expected: what, Tok: tok, Pos: tok.Position()}
}

// drain consumes the rest of the scope.
func (l *Lexer) drain() {
	for {
		if _, err := l.NextIncludingWhitespace(); err == io.EOF {
			return
		}
	}
}

// stopsAt returns true if tok ends the scope.
func (l *Lexer) stopsAt(tok token.Token) bool {
	if _, ok := tok.(*token.EOF); ok {
		return true
	}
	return delimiter(tok)&l.stop != 0
}

// delimiter returns the delimiter set matching tok.
func delimiter(tok token.Token) Delimiters {
	switch tok.(type) {
	case *token.Semicolon:
		return Semicolon
	case *token.Comma:
		return Comma
	case *token.Colon:
		return Colon
	case *token.LBrace:
		return CurlyBracketBlock
	case *token.RParen:
		return CloseParen
	case *token.RBrack:
		return CloseBracket
	case *token.RBrace:
		return CloseBrace
	}
	return None
}

// opens returns the kind of block opened by tok.
func opens(tok token.Token) blockKind {
	switch tok.(type) {
	case *token.LParen, *token.Function:
		return parenBlock
	case *token.LBrack:
		return bracketBlock
	case *token.LBrace:
		return curlyBlock
	}
	return noBlock
}

// closes returns the kind of block closed by tok.
func closes(tok token.Token) blockKind {
	switch tok.(type) {
	case *token.RParen:
		return parenBlock
	case *token.RBrack:
		return bracketBlock
	case *token.RBrace:
		return curlyBlock
	}
	return noBlock
}

// closer returns the delimiter that ends a block of kind k.
func closer(k blockKind) Delimiters {
	switch k {
	case parenBlock:
		return CloseParen
	case bracketBlock:
		return CloseBracket
	case curlyBlock:
		return CloseBrace
	}
	return None
}

// item is a scanned token and the scanner error reported while scanning it.
type item struct {
	tok token.Token
	err error
}

// input is the token stream shared by a lexer and its child scopes.
type input struct {
	s    *scanner.Scanner
	nerr int // number of scanner errors already attached to items

	buf  []item // lookahead
	last *item  // last consumed item, nil once unscanned
}

// peek returns the i-th item ahead without consuming it.
func (in *input) peek(i int) item {
	for len(in.buf) <= i {
		it := item{tok: in.s.Scan()}
		if n := len(in.s.Errors); n > in.nerr {
			it.err, in.nerr = in.s.Errors[n-1], n
		}
		in.buf = append(in.buf, it)
	}
	return in.buf[i]
}

// consume drops the next n items.
func (in *input) consume(n int) {
	if n == 0 {
		return
	}
	in.peek(n - 1)
	last := in.buf[n-1]
	in.last = &last
	in.buf = in.buf[n:]
}

// unscan pushes the last consumed item back onto the lookahead.
func (in *input) unscan() {
	if in.last == nil {
		return
	}
	in.buf = append([]item{*in.last}, in.buf...)
	in.last = nil
}

// skipBlock returns the lookahead index just past the end of a block of
// kind k whose opener precedes index i. Nested blocks are tracked on a stack
// and mismatched closing tokens are ignored. The input's EOF is never skipped.
func (in *input) skipBlock(i int, k blockKind) int {
	stack := []blockKind{k}
	for {
		tok := in.peek(i).tok
		if _, ok := tok.(*token.EOF); ok {
			return i
		}
		i++

		if c := closes(tok); c != noBlock && c == stack[len(stack)-1] {
			if stack = stack[:len(stack)-1]; len(stack) == 0 {
				return i
			}
		} else if o := opens(tok); o != noBlock {
			stack = append(stack, o)
		}
	}
}
