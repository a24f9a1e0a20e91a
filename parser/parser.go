package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/Gejsi/dassie/ast"
	"github.com/Gejsi/dassie/lexer"
	"github.com/Gejsi/dassie/token"
)

// Parse errors.
var (
	ErrUnexpectedToken   = lexer.ErrUnexpectedToken
	ErrNestingTooDeep    = errors.New("nesting too deep")
	ErrUnrecognizedToken = errors.New("unrecognized token")
)

// Error represents a parse error.
type Error struct {
	Err     error
	Message string
	Pos     token.Pos
}

// Error returns the formatted string error message.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the error kind.
func (e *Error) Unwrap() error { return e.Err }

// dump formats partial results field by field, bypassing the nodes' String methods.
var dump = spew.ConfigState{Indent: " ", DisableMethods: true, DisablePointerAddresses: true}

// parser holds the state of a single parse.
type parser struct {
	cfg   *Config
	depth int
}

func newParser(opts []Option) *parser {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.Validate()
	return &parser{cfg: cfg}
}

// ParseValue parses a value up to a semicolon, a {-block or the end of the
// scope. The result is trimmed.
func ParseValue(l *lexer.Lexer, opts ...Option) (ast.Value, error) {
	p := newParser(opts)
	v, err := p.parseValue(l)
	if err != nil {
		return "", p.error(err, v)
	}
	return v, nil
}

// ParseDeclaration parses a "property: value" pair and its trailing semicolon.
// The semicolon may be omitted when nothing follows the value in the scope.
func ParseDeclaration(l *lexer.Lexer, opts ...Option) (*ast.Declaration, error) {
	p := newParser(opts)
	d, err := p.parseDeclaration(l)
	if err != nil {
		return nil, p.error(err, d)
	}
	return d, nil
}

// ParseDeclarationBlock parses a {-block of declarations.
func ParseDeclarationBlock(l *lexer.Lexer, opts ...Option) (*ast.DeclarationBlock, error) {
	p := newParser(opts)
	b, err := p.parseDeclarationBlock(l)
	if err != nil {
		return nil, p.error(err, b)
	}
	return b, nil
}

// ParseSelectors parses a comma separated selector list up to the next {-block.
func ParseSelectors(l *lexer.Lexer, opts ...Option) ([]ast.Selector, error) {
	p := newParser(opts)
	a, err := p.parseSelectors(l)
	if err != nil {
		return nil, p.error(err, a)
	}
	return a, nil
}

// ParseRule parses a selector list followed by a declaration block.
func ParseRule(l *lexer.Lexer, opts ...Option) (*ast.Rule, error) {
	p := newParser(opts)
	r, err := p.parseRule(l)
	if err != nil {
		return nil, p.error(err, r)
	}
	return r, nil
}

// ParseStylesheet parses rules and at-rules until the input is exhausted.
func ParseStylesheet(l *lexer.Lexer, opts ...Option) (*ast.Stylesheet, error) {
	p := newParser(opts)
	a, err := p.parseStatements(l)
	if err != nil {
		return nil, p.error(err, a)
	}
	return &ast.Stylesheet{Statements: a}, nil
}

func (p *parser) parseValue(l *lexer.Lexer) (ast.Value, error) {
	var buf bytes.Buffer
	if err := p.eat(l, &buf); err != nil {
		return ast.Value(buf.String()), err
	}
	return ast.Value(strings.TrimSpace(buf.String())), nil
}

func (p *parser) parseDeclaration(l *lexer.Lexer) (*ast.Declaration, error) {
	ident, err := l.ExpectIdent()
	if err != nil {
		return nil, err
	}
	d := &ast.Declaration{Property: ast.Property(ident.Value)}

	if err := l.ExpectColon(); err != nil {
		return d, err
	}

	// The value ends before the next semicolon or colon.
	if err := l.ParseUntilBefore(lexer.Semicolon|lexer.Colon, func(l *lexer.Lexer) (err error) {
		d.Value, err = p.parseValue(l)
		return err
	}); err != nil {
		return d, err
	}

	if !l.IsExhausted() {
		if err := l.ExpectSemicolon(); err != nil {
			return d, err
		}
	}

	if p.cfg.Debug {
		p.cfg.Logger.Debugf("declaration: %s", d)
	}
	return d, nil
}

func (p *parser) parseDeclarationBlock(l *lexer.Lexer) (*ast.DeclarationBlock, error) {
	if err := l.ExpectCurlyBracketBlock(); err != nil {
		return nil, err
	}

	b := &ast.DeclarationBlock{}
	err := p.nested(l, func(l *lexer.Lexer) error {
		for !l.IsExhausted() {
			d, err := p.parseDeclaration(l)
			if err != nil {
				return err
			}
			b.Declarations = append(b.Declarations, d)
		}
		return nil
	})
	return b, err
}

func (p *parser) parseSelectors(l *lexer.Lexer) ([]ast.Selector, error) {
	var a []ast.Selector
	err := l.ParseUntilBefore(lexer.CurlyBracketBlock, func(l *lexer.Lexer) error {
		for {
			var buf bytes.Buffer
			if err := l.ParseUntilBefore(lexer.Comma, func(l *lexer.Lexer) error {
				return p.eat(l, &buf)
			}); err != nil {
				return err
			}

			s := strings.TrimSpace(buf.String())
			if s == "" {
				return &Error{Err: ErrUnexpectedToken, Message: "expected selector", Pos: l.Position()}
			}
			a = append(a, ast.Selector(s))

			if l.IsExhausted() {
				return nil
			} else if err := l.ExpectComma(); err != nil {
				return err
			}
		}
	})

	if p.cfg.Debug && err == nil {
		p.cfg.Logger.Debugf("selectors: %q", a)
	}
	return a, err
}

func (p *parser) parseRule(l *lexer.Lexer) (*ast.Rule, error) {
	selectors, err := p.parseSelectors(l)
	if err != nil {
		return nil, err
	}

	r := &ast.Rule{Selectors: selectors}
	if r.Block, err = p.parseDeclarationBlock(l); err != nil {
		return r, err
	}
	return r, nil
}

// parseStatements parses rules and at-rules until the end of the scope.
// HTML comment tokens between statements are skipped.
func (p *parser) parseStatements(l *lexer.Lexer) ([]ast.Statement, error) {
	var a []ast.Statement
	for {
		tok, err := l.Next()
		if err == io.EOF {
			return a, nil
		} else if err != nil {
			return a, err
		}

		switch tok := tok.(type) {
		case *token.CDO, *token.CDC:
			continue
		case *token.AtKeyword:
			r, err := p.parseAtRule(l, tok)
			if err != nil {
				return a, err
			}
			a = append(a, r)
		default:
			l.Unscan()
			r, err := p.parseRule(l)
			if err != nil {
				return a, err
			}
			a = append(a, r)
		}
	}
}

// parseAtRule parses the prelude and optional block of an at-rule whose
// keyword has just been read. The block is parsed as a list of statements.
func (p *parser) parseAtRule(l *lexer.Lexer, kw *token.AtKeyword) (*ast.AtRule, error) {
	r := &ast.AtRule{Name: kw.Value}

	var buf bytes.Buffer
	if err := l.ParseUntilBefore(lexer.Semicolon|lexer.CurlyBracketBlock, func(l *lexer.Lexer) error {
		return p.eat(l, &buf)
	}); err != nil {
		return r, err
	}
	r.Prelude = ast.Value(strings.TrimSpace(buf.String()))

	tok, err := l.Next()
	if err == io.EOF {
		return r, nil
	} else if err != nil {
		return r, err
	}

	switch tok.(type) {
	case *token.Semicolon:
	case *token.LBrace:
		r.HasBlock = true
		err = p.nested(l, func(l *lexer.Lexer) (err error) {
			r.Statements, err = p.parseStatements(l)
			return err
		})
	default:
		l.Unscan()
	}

	if p.cfg.Debug && err == nil {
		p.cfg.Logger.Debugf("at-rule: @%s %s", r.Name, r.Prelude)
	}
	return r, err
}

// eat re-serializes tokens into buf until a semicolon, a {-block or the end
// of the scope. The semicolon is consumed and the {-block is left unread.
// Nested blocks are written with their closing character.
func (p *parser) eat(l *lexer.Lexer, buf *bytes.Buffer) error {
	for {
		tok, err := l.NextIncludingWhitespace()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}

		switch tok := tok.(type) {
		case *token.Semicolon:
			return nil
		case *token.LBrace:
			l.Unscan()
			return nil

		case *token.Delim:
			buf.WriteString(tok.Value)
		case *token.Whitespace:
			buf.WriteString(tok.Value)
		case *token.Comma:
			buf.WriteByte(',')
		case *token.Colon:
			buf.WriteByte(':')
		case *token.Ident:
			buf.WriteString(tok.Value)
		case *token.URL:
			buf.WriteString(tok.Value)
		case *token.Hash:
			buf.WriteString("#" + tok.Value)
		case *token.AtKeyword:
			buf.WriteString("@" + tok.Value)
		case *token.String:
			buf.WriteString("'" + tok.Value + "'")
		case *token.IncludeMatch, *token.DashMatch, *token.PrefixMatch, *token.SuffixMatch, *token.SubstringMatch:
			buf.WriteString(tok.String())
		case *token.Number:
			buf.WriteString(formatNumber(tok, tok.Number))
		case *token.Percentage:
			buf.WriteString(formatNumber(tok, tok.Number) + "%")
		case *token.Dimension:
			buf.WriteString(formatNumber(tok, tok.Number) + tok.Unit)

		case *token.LParen:
			if err := p.eatBlock(l, buf, "(", ")"); err != nil {
				return err
			}
		case *token.LBrack:
			if err := p.eatBlock(l, buf, "[", "]"); err != nil {
				return err
			}
		case *token.Function:
			if err := p.eatBlock(l, buf, tok.Value+"(", ")"); err != nil {
				return err
			}

		default:
			if p.cfg.Strict {
				return &Error{Err: ErrUnrecognizedToken, Message: fmt.Sprintf("unrecognized token %q", tok.String()), Pos: tok.Position()}
			}
			if p.cfg.Debug {
				p.cfg.Logger.Debugf("ignoring token %q at %s", tok.String(), tok.Position())
			}
		}
	}
}

// eatBlock writes the contents of the block opened by the last token
// between its opening and closing text.
func (p *parser) eatBlock(l *lexer.Lexer, buf *bytes.Buffer, opening, closing string) error {
	buf.WriteString(opening)
	if err := p.nested(l, func(l *lexer.Lexer) error { return p.eat(l, buf) }); err != nil {
		return err
	}
	buf.WriteString(closing)
	return nil
}

// nested enters the block opened by the last token, enforcing the depth limit.
func (p *parser) nested(l *lexer.Lexer, fn func(*lexer.Lexer) error) error {
	if p.depth >= p.cfg.MaxDepth {
		return &Error{
			Err:     ErrNestingTooDeep,
			Message: fmt.Sprintf("blocks nested deeper than %d levels", p.cfg.MaxDepth),
			Pos:     l.Current().Position(),
		}
	}

	p.depth++
	defer func() { p.depth-- }()
	return l.ParseNestedBlock(fn)
}

// error converts lexer errors into parse errors and logs the failure when debugging.
func (p *parser) error(err error, partial interface{}) error {
	var e *lexer.Error
	if errors.As(err, &e) {
		err = &Error{Err: ErrUnexpectedToken, Message: e.Error(), Pos: e.Pos}
	}

	if p.cfg.Debug {
		p.cfg.Logger.WithError(err).Debugf("parse failed, partial result:\n%s", dump.Sdump(partial))
	}
	return err
}

// formatNumber writes exact integers without a fraction and other numbers
// in their shortest decimal form.
func formatNumber(n interface{ Int() (int32, bool) }, f float64) string {
	if i, ok := n.Int(); ok {
		return strconv.FormatInt(int64(i), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
