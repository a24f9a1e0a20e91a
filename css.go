package dassie

import (
	"io"
	"strings"

	"github.com/Gejsi/dassie/ast"
	"github.com/Gejsi/dassie/lexer"
	"github.com/Gejsi/dassie/parser"
)

// NewLexer returns a lexer over the CSS text read from r.
func NewLexer(r io.Reader) *lexer.Lexer {
	return lexer.New(r)
}

// ParseValue parses s as a declaration value.
func ParseValue(s string, opts ...parser.Option) (ast.Value, error) {
	return parser.ParseValue(NewLexer(strings.NewReader(s)), opts...)
}

// ParseDeclaration parses s as a single "property: value" declaration.
func ParseDeclaration(s string, opts ...parser.Option) (*ast.Declaration, error) {
	return parser.ParseDeclaration(NewLexer(strings.NewReader(s)), opts...)
}

// ParseDeclarationBlock parses s as a {-block of declarations.
func ParseDeclarationBlock(s string, opts ...parser.Option) (*ast.DeclarationBlock, error) {
	return parser.ParseDeclarationBlock(NewLexer(strings.NewReader(s)), opts...)
}

// ParseSelectors parses s as a comma separated selector list.
func ParseSelectors(s string, opts ...parser.Option) ([]ast.Selector, error) {
	return parser.ParseSelectors(NewLexer(strings.NewReader(s)), opts...)
}

// ParseRule parses s as a selector list followed by a declaration block.
func ParseRule(s string, opts ...parser.Option) (*ast.Rule, error) {
	return parser.ParseRule(NewLexer(strings.NewReader(s)), opts...)
}

// ParseStylesheet parses s as a list of rules and at-rules.
func ParseStylesheet(s string, opts ...parser.Option) (*ast.Stylesheet, error) {
	return parser.ParseStylesheet(NewLexer(strings.NewReader(s)), opts...)
}
