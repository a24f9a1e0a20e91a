package token

import (
	"math"
	"strconv"
)

// Token represents a lexical token.
type Token interface {
	token()
	String() string
	Position() Pos
}

func (_ *Ident) token()          {}
func (_ *Function) token()       {}
func (_ *AtKeyword) token()      {}
func (_ *Hash) token()           {}
func (_ *String) token()         {}
func (_ *BadString) token()      {}
func (_ *URL) token()            {}
func (_ *BadURL) token()         {}
func (_ *Delim) token()          {}
func (_ *Number) token()         {}
func (_ *Percentage) token()     {}
func (_ *Dimension) token()      {}
func (_ *UnicodeRange) token()   {}
func (_ *IncludeMatch) token()   {}
func (_ *DashMatch) token()      {}
func (_ *PrefixMatch) token()    {}
func (_ *SuffixMatch) token()    {}
func (_ *SubstringMatch) token() {}
func (_ *Column) token()         {}
func (_ *Whitespace) token()     {}
func (_ *CDO) token()            {}
func (_ *CDC) token()            {}
func (_ *Colon) token()          {}
func (_ *Semicolon) token()      {}
func (_ *Comma) token()          {}
func (_ *LBrack) token()         {}
func (_ *RBrack) token()         {}
func (_ *LParen) token()         {}
func (_ *RParen) token()         {}
func (_ *LBrace) token()         {}
func (_ *RBrace) token()         {}
func (_ *EOF) token()            {}

// Ident is an identifier such as "color" or "--main-bg".
type Ident struct {
	Value string
	Pos   Pos
}

// Function is an identifier immediately followed by "(".
// It opens a block that ends with the matching ")".
type Function struct {
	Value string
	Pos   Pos
}

type AtKeyword struct {
	Value string
	Pos   Pos
}

// Hash is a "#" followed by a name. Type is "id" if the name is a valid
// identifier and "unrestricted" otherwise.
type Hash struct {
	Type  string
	Value string
	Pos   Pos
}

// String is a quoted string. Value holds the unescaped contents and Ending
// holds the quote character that delimited it.
type String struct {
	Ending rune
	Value  string
	Pos    Pos
}

type BadString struct {
	Pos Pos
}

// URL is an unquoted url(...) token. Value holds the contents between the
// parentheses. A quoted url is scanned as a Function named "url".
type URL struct {
	Value string
	Pos   Pos
}

type BadURL struct {
	Pos Pos
}

type Delim struct {
	Value string
	Pos   Pos
}

// Number is a numeric token without a unit.
//
// Type is "integer" when the literal has no fraction or exponent and "number"
// otherwise. Value is the literal as written.
type Number struct {
	Type   string
	Number float64
	Value  string
	Pos    Pos
}

// Percentage is a number followed by "%". Number holds the written number,
// so "35%" has a Number of 35.
type Percentage struct {
	Type   string
	Number float64
	Value  string
	Pos    Pos
}

// Dimension is a number followed by a unit such as "px" or "em".
type Dimension struct {
	Type   string
	Number float64
	Unit   string
	Value  string
	Pos    Pos
}

type UnicodeRange struct {
	Start int
	End   int
	Pos   Pos
}

type IncludeMatch struct {
	Pos Pos
}
type DashMatch struct {
	Pos Pos
}
type PrefixMatch struct {
	Pos Pos
}
type SuffixMatch struct {
	Pos Pos
}
type SubstringMatch struct {
	Pos Pos
}

type Column struct {
	Pos Pos
}

type Whitespace struct {
	Value string
	Pos   Pos
}

type CDO struct {
	Pos Pos
}
type CDC struct {
	Pos Pos
}

type Colon struct {
	Pos Pos
}
type Semicolon struct {
	Pos Pos
}
type Comma struct {
	Pos Pos
}
type LBrack struct {
	Pos Pos
}
type RBrack struct {
	Pos Pos
}
type LParen struct {
	Pos Pos
}
type RParen struct {
	Pos Pos
}
type LBrace struct {
	Pos Pos
}
type RBrace struct {
	Pos Pos
}

type EOF struct {
	Pos Pos
}

// Int returns the exact integer representation of the number, if any.
func (t *Number) Int() (int32, bool) { return exactInt(t.Type, t.Number) }

// Int returns the exact integer representation of the percentage, if any.
func (t *Percentage) Int() (int32, bool) { return exactInt(t.Type, t.Number) }

// Int returns the exact integer representation of the dimension, if any.
func (t *Dimension) Int() (int32, bool) { return exactInt(t.Type, t.Number) }

// exactInt only reports integers that survive a round trip through int32.
func exactInt(typ string, f float64) (int32, bool) {
	if typ != "integer" || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int32(f), true
}

func (t *Ident) String() string          { return t.Value }
func (t *Function) String() string       { return t.Value + "(" }
func (t *AtKeyword) String() string      { return "@" + t.Value }
func (t *Hash) String() string           { return "#" + t.Value }
func (t *String) String() string         { return string(t.Ending) + t.Value + string(t.Ending) }
func (t *BadString) String() string      { return "bad string" }
func (t *URL) String() string            { return "url(" + t.Value + ")" }
func (t *BadURL) String() string         { return "bad url" }
func (t *Delim) String() string          { return t.Value }
func (t *Number) String() string         { return t.Value }
func (t *Percentage) String() string     { return t.Value }
func (t *Dimension) String() string      { return t.Value }
func (t *IncludeMatch) String() string   { return "~=" }
func (t *DashMatch) String() string      { return "|=" }
func (t *PrefixMatch) String() string    { return "^=" }
func (t *SuffixMatch) String() string    { return "$=" }
func (t *SubstringMatch) String() string { return "*=" }
func (t *Column) String() string         { return "||" }
func (t *Whitespace) String() string     { return "whitespace" }
func (t *CDO) String() string            { return "<!--" }
func (t *CDC) String() string            { return "-->" }
func (t *Colon) String() string          { return ":" }
func (t *Semicolon) String() string      { return ";" }
func (t *Comma) String() string          { return "," }
func (t *LBrack) String() string         { return "[" }
func (t *RBrack) String() string         { return "]" }
func (t *LParen) String() string         { return "(" }
func (t *RParen) String() string         { return ")" }
func (t *LBrace) String() string         { return "{" }
func (t *RBrace) String() string         { return "}" }
func (t *EOF) String() string            { return "EOF" }

func (t *UnicodeRange) String() string {
	if t.Start == t.End {
		return "U+" + strconv.FormatInt(int64(t.Start), 16)
	}
	return "U+" + strconv.FormatInt(int64(t.Start), 16) + "-" + strconv.FormatInt(int64(t.End), 16)
}

func (t *Ident) Position() Pos          { return t.Pos }
func (t *Function) Position() Pos       { return t.Pos }
func (t *AtKeyword) Position() Pos      { return t.Pos }
func (t *Hash) Position() Pos           { return t.Pos }
func (t *String) Position() Pos         { return t.Pos }
func (t *BadString) Position() Pos      { return t.Pos }
func (t *URL) Position() Pos            { return t.Pos }
func (t *BadURL) Position() Pos         { return t.Pos }
func (t *Delim) Position() Pos          { return t.Pos }
func (t *Number) Position() Pos         { return t.Pos }
func (t *Percentage) Position() Pos     { return t.Pos }
func (t *Dimension) Position() Pos      { return t.Pos }
func (t *UnicodeRange) Position() Pos   { return t.Pos }
func (t *IncludeMatch) Position() Pos   { return t.Pos }
func (t *DashMatch) Position() Pos      { return t.Pos }
func (t *PrefixMatch) Position() Pos    { return t.Pos }
func (t *SuffixMatch) Position() Pos    { return t.Pos }
func (t *SubstringMatch) Position() Pos { return t.Pos }
func (t *Column) Position() Pos         { return t.Pos }
func (t *Whitespace) Position() Pos     { return t.Pos }
func (t *CDO) Position() Pos            { return t.Pos }
func (t *CDC) Position() Pos            { return t.Pos }
func (t *Colon) Position() Pos          { return t.Pos }
func (t *Semicolon) Position() Pos      { return t.Pos }
func (t *Comma) Position() Pos          { return t.Pos }
func (t *LBrack) Position() Pos         { return t.Pos }
func (t *RBrack) Position() Pos         { return t.Pos }
func (t *LParen) Position() Pos         { return t.Pos }
func (t *RParen) Position() Pos         { return t.Pos }
func (t *LBrace) Position() Pos         { return t.Pos }
func (t *RBrace) Position() Pos         { return t.Pos }
func (t *EOF) Position() Pos            { return t.Pos }

// Pos specifies the line and character position of a token.
// The Char and Line are both zero-based indexes.
type Pos struct {
	Char int
	Line int
}

// String returns the position as a one-based "line:char" pair.
func (p Pos) String() string {
	return strconv.Itoa(p.Line+1) + ":" + strconv.Itoa(p.Char+1)
}
