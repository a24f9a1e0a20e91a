package dassie

import (
	"bytes"
	"io"
	"strings"

	"github.com/Gejsi/dassie/ast"
)

// DefaultIndent is the indentation used by a zero Printer.
const DefaultIndent = "  "

// Printer represents a configurable CSS printer.
// Each declaration is written on its own line and nested statements are
// indented by one level per block.
type Printer struct {
	Indent string
}

// Print writes n to w.
func (p *Printer) Print(w io.Writer, n ast.Node) error {
	var buf bytes.Buffer
	p.print(&buf, n, 0)
	_, err := w.Write(buf.Bytes())
	return err
}

// Sprint returns the printed form of n.
func (p *Printer) Sprint(n ast.Node) string {
	var buf bytes.Buffer
	p.print(&buf, n, 0)
	return buf.String()
}

func (p *Printer) print(buf *bytes.Buffer, n ast.Node, depth int) {
	switch n := n.(type) {
	case *ast.Stylesheet:
		if n == nil {
			return
		}
		p.printStatements(buf, n.Statements, depth)

	case *ast.AtRule:
		if n == nil {
			return
		}
		p.indent(buf, depth)
		buf.WriteString("@" + n.Name)
		if n.Prelude != "" {
			buf.WriteString(" " + string(n.Prelude))
		}
		if !n.HasBlock {
			buf.WriteString(";")
			return
		}
		if len(n.Statements) == 0 {
			buf.WriteString(" {}")
			return
		}
		buf.WriteString(" {\n")
		p.printStatements(buf, n.Statements, depth+1)
		p.indent(buf, depth)
		buf.WriteString("}")

	case *ast.Rule:
		if n == nil {
			return
		}
		p.indent(buf, depth)
		for i, s := range n.Selectors {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(string(s))
		}
		buf.WriteString(" ")
		p.print(buf, n.Block, depth)

	case *ast.DeclarationBlock:
		if n == nil || len(n.Declarations) == 0 {
			buf.WriteString("{}")
			return
		}
		buf.WriteString("{\n")
		for _, d := range n.Declarations {
			p.indent(buf, depth+1)
			p.print(buf, d, depth+1)
			buf.WriteString(";\n")
		}
		p.indent(buf, depth)
		buf.WriteString("}")

	case *ast.Declaration:
		if n == nil {
			return
		}
		buf.WriteString(string(n.Property))
		buf.WriteString(": ")
		buf.WriteString(string(n.Value))

	case ast.Selector, ast.Property, ast.Value:
		buf.WriteString(n.String())
	}
}

// printStatements writes each statement on its own line.
func (p *Printer) printStatements(buf *bytes.Buffer, a []ast.Statement, depth int) {
	for _, s := range a {
		p.print(buf, s, depth)
		buf.WriteString("\n")
	}
}

func (p *Printer) indent(buf *bytes.Buffer, depth int) {
	indent := p.Indent
	if indent == "" {
		indent = DefaultIndent
	}
	buf.WriteString(strings.Repeat(indent, depth))
}
