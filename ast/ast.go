package ast

import (
	"bytes"

	"golang.org/x/exp/slices"
)

// Node represents a node in the CSS syntax tree.
type Node interface {
	node()
	String() string
}

func (_ Selector) node()          {}
func (_ Property) node()          {}
func (_ Value) node()             {}
func (_ *Declaration) node()      {}
func (_ *DeclarationBlock) node() {}
func (_ *Rule) node()             {}
func (_ *AtRule) node()           {}
func (_ *Stylesheet) node()       {}

// Selector is the serialized text of a single selector, such as "a > b".
// It never contains the comma that separates it from its siblings.
type Selector string

func (s Selector) String() string { return string(s) }

// Property is the name of a declaration, such as "color".
type Property string

func (p Property) String() string { return string(p) }

// Value is the serialized text of a declaration value with surrounding
// whitespace trimmed. Blocks and function calls in it are balanced.
type Value string

func (v Value) String() string { return string(v) }

// Declaration represents a property/value pair.
type Declaration struct {
	Property Property
	Value    Value
}

func (d *Declaration) String() string {
	if d == nil {
		return ""
	}
	return d.Property.String() + ": " + d.Value.String()
}

// Equal returns true if both declarations have the same property and value.
func (d *Declaration) Equal(other *Declaration) bool {
	if d == nil || other == nil {
		return d == other
	}
	return *d == *other
}

// DeclarationBlock represents the declarations inside a {-block, in source
// order. Repeated properties are kept.
type DeclarationBlock struct {
	Declarations []*Declaration
}

func (b *DeclarationBlock) String() string {
	if b == nil || len(b.Declarations) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	buf.WriteString("{ ")
	for _, d := range b.Declarations {
		buf.WriteString(d.String())
		buf.WriteString("; ")
	}
	buf.WriteString("}")
	return buf.String()
}

// Equal returns true if both blocks hold equal declarations in the same order.
func (b *DeclarationBlock) Equal(other *DeclarationBlock) bool {
	if b == nil || other == nil {
		return b == other
	}
	return slices.EqualFunc(b.Declarations, other.Declarations, (*Declaration).Equal)
}

// Rule represents a selector list followed by a declaration block.
type Rule struct {
	Selectors []Selector
	Block     *DeclarationBlock
}

func (r *Rule) String() string {
	if r == nil {
		return ""
	}
	var buf bytes.Buffer
	for i, s := range r.Selectors {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(s.String())
	}
	buf.WriteString(" ")
	if r.Block != nil {
		buf.WriteString(r.Block.String())
	} else {
		buf.WriteString("{}")
	}
	return buf.String()
}

// Equal returns true if both rules have the same selectors and equal blocks.
func (r *Rule) Equal(other *Rule) bool {
	if r == nil || other == nil {
		return r == other
	}
	return slices.Equal(r.Selectors, other.Selectors) && r.Block.Equal(other.Block)
}

// Statement represents a rule or an at-rule.
type Statement interface {
	Node
	statement()
}

func (_ *Rule) statement()   {}
func (_ *AtRule) statement() {}

// AtRule represents a rule starting with an "@" symbol. The prelude is kept
// as serialized text and is not interpreted. If the rule has a {-block, its
// contents are parsed as statements.
type AtRule struct {
	Name       string
	Prelude    Value
	Statements []Statement
	HasBlock   bool
}

func (r *AtRule) String() string {
	if r == nil {
		return ""
	}
	var buf bytes.Buffer
	buf.WriteString("@" + r.Name)
	if r.Prelude != "" {
		buf.WriteString(" " + r.Prelude.String())
	}
	if !r.HasBlock {
		buf.WriteString(";")
		return buf.String()
	}
	buf.WriteString(" {")
	for _, s := range r.Statements {
		buf.WriteString(" " + s.String())
	}
	buf.WriteString(" }")
	return buf.String()
}

// Equal returns true if both at-rules have the same name, prelude and statements.
func (r *AtRule) Equal(other *AtRule) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.Name == other.Name &&
		r.Prelude == other.Prelude &&
		r.HasBlock == other.HasBlock &&
		slices.EqualFunc(r.Statements, other.Statements, StatementEqual)
}

// Stylesheet represents a list of top-level statements.
type Stylesheet struct {
	Statements []Statement
}

func (s *Stylesheet) String() string {
	if s == nil {
		return ""
	}
	var buf bytes.Buffer
	for _, stmt := range s.Statements {
		buf.WriteString(stmt.String())
		buf.WriteString("\n")
	}
	return buf.String()
}

// Equal returns true if both stylesheets hold equal statements in the same order.
func (s *Stylesheet) Equal(other *Stylesheet) bool {
	if s == nil || other == nil {
		return s == other
	}
	return slices.EqualFunc(s.Statements, other.Statements, StatementEqual)
}

// StatementEqual returns true if a and b are the same kind of statement and equal.
func StatementEqual(a, b Statement) bool {
	switch a := a.(type) {
	case *Rule:
		b, ok := b.(*Rule)
		return ok && a.Equal(b)
	case *AtRule:
		b, ok := b.(*AtRule)
		return ok && a.Equal(b)
	}
	return a == nil && b == nil
}

// Walk calls fn for n and, depth-first, for every node below it.
// Children are not visited if fn returns false.
func Walk(n Node, fn func(Node) bool) {
	if !fn(n) {
		return
	}
	switch n := n.(type) {
	case *Stylesheet:
		for _, s := range n.Statements {
			Walk(s, fn)
		}
	case *AtRule:
		for _, s := range n.Statements {
			Walk(s, fn)
		}
	case *Rule:
		for _, s := range n.Selectors {
			Walk(s, fn)
		}
		if n.Block != nil {
			Walk(n.Block, fn)
		}
	case *DeclarationBlock:
		for _, d := range n.Declarations {
			Walk(d, fn)
		}
	case *Declaration:
		Walk(n.Property, fn)
		Walk(n.Value, fn)
	}
}
