/*
Package dassie implements a CSS parser that turns a stream of CSS tokens into
selectors, declarations, rules and stylesheets. Values and selectors are kept
as re-serialized text rather than being interpreted, so the parser can be used
for building tools that extract, validate or format CSS without knowing the
grammar of every property.


Basics

Parsing occurs in three steps. First the scanner breaks up a stream of code
points (runes) into tokens such as identifiers, whitespace, strings and
numbers. Second, the lexer wraps the token stream in a cursor that knows
about blocks: a "(", "[", "{" or function token opens a block that ends with
the matching closing token, and a block that is not entered is skipped as a
whole. Finally, the parser reads tokens from the lexer and builds the syntax
tree.

The functions in this package accept a string and return a node:

	rule, err := dassie.ParseRule(`a > b, .btn { color: red; }`)

For streaming input, build a lexer with NewLexer and call the functions of
the parser package directly.


Syntax Tree

A Stylesheet is a list of statements. A statement is either a Rule or an
AtRule. A Rule is a list of selectors followed by a declaration block, and a
declaration block holds Declarations in source order. A Declaration is an
identifier followed by a colon and a value.

An AtRule starts with an "@" symbol and an identifier, followed by a prelude
and either a semicolon or a {-block. The prelude is kept as text and the
block is parsed as a list of statements.

Selectors and values are produced by re-serializing their tokens. Nested
blocks and function calls are written with their closing characters,
strings are written with single quotes and numbers are written in their
shortest form, so "1.50" becomes "1.5".


Errors

Parsing stops at the first error. Structural errors are returned as a
*parser.Error whose kind can be checked with errors.Is against
parser.ErrUnexpectedToken, parser.ErrNestingTooDeep and
parser.ErrUnrecognizedToken. Malformed tokens, such as an unterminated
string, are returned as a *scanner.Error.

*/
package dassie
