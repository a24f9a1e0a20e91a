package parser_test

import (
	"errors"
	"flag"
	"reflect"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/Gejsi/dassie/lexer"
	"github.com/Gejsi/dassie/parser"
	"github.com/Gejsi/dassie/token"
)

// testiter sets the table test iteration to run in isolation.
var testiter = flag.Int("test.iter", -1, "table test number")

// Ensure that values are re-serialized from their tokens.
func TestParseValue(t *testing.T) {
	var tests = []struct {
		s    string
		v    string
		opts []parser.Option
		err  string
	}{
		{s: `red`, v: `red`},
		{s: `  red  `, v: `red`},
		{s: ``, v: ``},
		{s: `red !important`, v: `red !important`},
		{s: `a,b`, v: `a,b`},
		{s: `hsl(var(--b2) / var(--tw-border-opacity))`, v: `hsl(var(--b2) / var(--tw-border-opacity))`},
		{s: `center / contain no-repeat url('x.svg'), #eee 35% url('y.png')`, v: `center / contain no-repeat url('x.svg'), #eee 35% url('y.png')`},
		{s: `url(x.png)`, v: `x.png`},
		{s: `"double"`, v: `'double'`},
		{s: `[data-x~="y"] [a|=b] [a^=b] [a$=b] [a*=b]`, v: `[data-x~='y'] [a|=b] [a^=b] [a$=b] [a*=b]`},
		{s: `(a [b] c)`, v: `(a [b] c)`},
		{s: `f(a`, v: `f(a)`},
		{s: `@media`, v: `@media`},
		{s: `a:b`, v: `a:b`},

		// Numbers.
		{s: `0`, v: `0`},
		{s: `+5`, v: `5`},
		{s: `-3`, v: `-3`},
		{s: `1.50`, v: `1.5`},
		{s: `1.0`, v: `1`},
		{s: `.5em`, v: `0.5em`},
		{s: `1e3`, v: `1000`},
		{s: `10.0%`, v: `10%`},
		{s: `12.5%`, v: `12.5%`},
		{s: `3000000000`, v: `3000000000`},
		{s: `-2.25rem`, v: `-2.25rem`},

		// Stopping points.
		{s: `a; b`, v: `a`},
		{s: `a { b }`, v: `a`},
		{s: `f(a; b) c`, v: `f(a) c`},

		// Tokens without a textual form.
		{s: `a || b`, v: `a  b`},
		{s: `a || b`, opts: []parser.Option{parser.WithStrict(true)}, err: `unrecognized token "||"`},
		{s: `a ) b`, opts: []parser.Option{parser.WithStrict(true)}, err: `unrecognized token ")"`},
		{s: `u+0-7f`, opts: []parser.Option{parser.WithStrict(true)}, err: `unrecognized token "U+0-7f"`},

		// Scanner errors.
		{s: "'a\n", err: `unterminated string`},
		{s: "f(url(a b))", err: `whitespace in url`},

		// Nesting.
		{s: `((a))`, v: `((a))`, opts: []parser.Option{parser.WithMaxDepth(2)}},
		{s: `(((a)))`, opts: []parser.Option{parser.WithMaxDepth(2)}, err: `blocks nested deeper than 2 levels`},
		{s: strings.Repeat("(", 256) + "a" + strings.Repeat(")", 256), v: strings.Repeat("(", 256) + "a" + strings.Repeat(")", 256)},
		{s: strings.Repeat("(", 257) + "a" + strings.Repeat(")", 257), err: `blocks nested deeper than 256 levels`},
		{s: strings.Repeat("f(", 100000), err: `blocks nested deeper than 256 levels`},
	}

	for i, tt := range tests {
		if *testiter > -1 && *testiter != i {
			continue
		}

		v, err := parser.ParseValue(newLexer(tt.s), tt.opts...)
		if tt.err != errstring(err) {
			t.Errorf("%d. <%.40q> error: exp=%q, got=%q", i, tt.s, tt.err, errstring(err))
		} else if string(v) != tt.v {
			t.Errorf("%d. <%.40q>\n\nexp: %s\n\ngot: %s", i, tt.s, tt.v, v)
		}
	}
}

// Ensure that declarations can be parsed.
func TestParseDeclaration(t *testing.T) {
	var tests = []struct {
		s   string
		d   string
		err string
	}{
		{s: `color: red;`, d: `color: red`},
		{s: `color: red`, d: `color: red`},
		{s: `color:red`, d: `color: red`},
		{s: `  color  :  red  ;  `, d: `color: red`},
		{s: `color: ;`, d: `color: `},
		{s: `--main-bg: #fff;`, d: `--main-bg: #fff`},
		{s: `border-color: hsl(var(--b2) / var(--tw-border-opacity));`, d: `border-color: hsl(var(--b2) / var(--tw-border-opacity))`},
		{s: `font-family: "Helvetica Neue", Arial, sans-serif;`, d: `font-family: 'Helvetica Neue', Arial, sans-serif`},
		{s: `color: red; margin: 0`, d: `color: red`},

		{s: ``, err: `expected identifier, got end of input`},
		{s: `: red`, err: `expected identifier, got ":"`},
		{s: `#x: red`, err: `expected identifier, got "#x"`},
		{s: `color red;`, err: `expected ':', got "red"`},
		{s: `color`, err: `expected ':', got end of input`},
		{s: `color: red blue: x;`, err: `expected ';', got ":"`},
	}

	for i, tt := range tests {
		if *testiter > -1 && *testiter != i {
			continue
		}

		d, err := parser.ParseDeclaration(newLexer(tt.s))
		if tt.err != errstring(err) {
			t.Errorf("%d. <%q> error: exp=%q, got=%q", i, tt.s, tt.err, errstring(err))
		} else if err == nil && d.String() != tt.d {
			t.Errorf("%d. <%q>\n\nexp: %s\n\ngot: %s", i, tt.s, tt.d, d.String())
		} else if err != nil && d != nil {
			t.Errorf("%d. <%q> expected no declaration on error", i, tt.s)
		}
	}
}

// Ensure that declaration blocks can be parsed.
func TestParseDeclarationBlock(t *testing.T) {
	var tests = []struct {
		s    string
		b    string
		opts []parser.Option
		err  string
	}{
		{s: `{}`, b: `{}`},
		{s: `  {  }  `, b: `{}`},
		{s: `{ color: red; }`, b: `{ color: red; }`},
		{s: `{ color: red }`, b: `{ color: red; }`},
		{s: `{color:red;margin:0 auto}`, b: `{ color: red; margin: 0 auto; }`},
		{s: `{ a: 1; a: 2 }`, b: `{ a: 1; a: 2; }`},
		{s: `{ a: 1 } b: 2`, b: `{ a: 1; }`},
		{s: `{ a: 1`, b: `{ a: 1; }`},
		{s: `{ background: center / contain no-repeat url('x.svg'), #eee 35% url('y.png'); }`, b: `{ background: center / contain no-repeat url('x.svg'), #eee 35% url('y.png'); }`},
		{s: `{ grid-template-areas: "a b" "c d"; }`, b: `{ grid-template-areas: 'a b' 'c d'; }`},

		{s: `{ color: red color: blue; }`, err: `expected ';', got ":"`},
		{s: `{ color: red;; }`, err: `expected identifier, got ";"`},
		{s: `{ color }`, err: `expected ':', got end of input`},
		{s: `color: red`, err: `expected '{', got "color"`},
		{s: ``, err: `expected '{', got end of input`},
		{s: `{ a: (b) }`, opts: []parser.Option{parser.WithMaxDepth(1)}, err: `blocks nested deeper than 1 levels`},
	}

	for i, tt := range tests {
		if *testiter > -1 && *testiter != i {
			continue
		}

		b, err := parser.ParseDeclarationBlock(newLexer(tt.s), tt.opts...)
		if tt.err != errstring(err) {
			t.Errorf("%d. <%q> error: exp=%q, got=%q", i, tt.s, tt.err, errstring(err))
		} else if err == nil && b.String() != tt.b {
			t.Errorf("%d. <%q>\n\nexp: %s\n\ngot: %s", i, tt.s, tt.b, b.String())
		}
	}
}

// Ensure that selector lists are split on top-level commas.
func TestParseSelectors(t *testing.T) {
	var tests = []struct {
		s   string
		a   []string
		err string
	}{
		{s: `a(b, c), d`, a: []string{"a(b, c)", "d"}},
		{s: `input ~ input`, a: []string{"input ~ input"}},
		{s: `input, .btn {}`, a: []string{"input", ".btn"}},
		{s: `a > b:hover::before, [type="text"]`, a: []string{"a > b:hover::before", "[type='text']"}},
		{s: `#x.y`, a: []string{"#x.y"}},
		{s: `*`, a: []string{"*"}},
		{s: `a{`, a: []string{"a"}},
		{s: `  h1 ,h2,  h3  {`, a: []string{"h1", "h2", "h3"}},
		{s: `li:nth-child(2n + 1)`, a: []string{"li:nth-child(2n + 1)"}},
		{s: `a[href^="http"], a[href$='.pdf']`, a: []string{"a[href^='http']", "a[href$='.pdf']"}},

		{s: ``, err: `expected selector`},
		{s: `a,`, err: `expected selector`},
		{s: `, a`, err: `expected selector`},
		{s: `a,,b`, err: `expected selector`},
		{s: `{}`, err: `expected selector`},
	}

	for i, tt := range tests {
		if *testiter > -1 && *testiter != i {
			continue
		}

		a, err := parser.ParseSelectors(newLexer(tt.s))
		if tt.err != errstring(err) {
			t.Errorf("%d. <%q> error: exp=%q, got=%q", i, tt.s, tt.err, errstring(err))
			continue
		}

		var got []string
		for _, s := range a {
			got = append(got, string(s))
		}
		if !reflect.DeepEqual(tt.a, got) {
			t.Errorf("%d. <%q>\n\nexp: %q\n\ngot: %q", i, tt.s, tt.a, got)
		}
	}
}

// Ensure that rules can be parsed.
func TestParseRule(t *testing.T) {
	var tests = []struct {
		s   string
		r   string
		err string
	}{
		{s: `input, .btn {}`, r: `input, .btn {}`},
		{s: `p > a { color: blue; text-decoration: underline; }`, r: `p > a { color: blue; text-decoration: underline; }`},
		{s: `a {`, r: `a {}`},
		{s: `.btn:hover{background-color:hsl(var(--b2) / var(--tw-border-opacity))}`, r: `.btn:hover { background-color: hsl(var(--b2) / var(--tw-border-opacity)); }`},

		{s: `a`, err: `expected '{', got end of input`},
		{s: `{}`, err: `expected selector`},
		{s: `a { color: red color: blue; }`, err: `expected ';', got ":"`},
	}

	for i, tt := range tests {
		if *testiter > -1 && *testiter != i {
			continue
		}

		r, err := parser.ParseRule(newLexer(tt.s))
		if tt.err != errstring(err) {
			t.Errorf("%d. <%q> error: exp=%q, got=%q", i, tt.s, tt.err, errstring(err))
		} else if err == nil && r.String() != tt.r {
			t.Errorf("%d. <%q>\n\nexp: %s\n\ngot: %s", i, tt.s, tt.r, r.String())
		} else if err != nil && r != nil {
			t.Errorf("%d. <%q> expected no rule on error", i, tt.s)
		}
	}
}

// Ensure that stylesheets can be parsed.
func TestParseStylesheet(t *testing.T) {
	var tests = []struct {
		s   string
		ss  string
		err string
	}{
		{s: ``, ss: ``},
		{s: `a {} b { c: d }`, ss: "a {}\nb { c: d; }\n"},
		{s: `@charset "utf-8"; a { b: c }`, ss: "@charset 'utf-8';\na { b: c; }\n"},
		{s: `<!-- a {} -->`, ss: "a {}\n"},
		{s: `@import url(a.css)`, ss: "@import a.css;\n"},
		{s: `@media screen and (min-width: 100px) { a { color: red } b {} }`, ss: "@media screen and (min-width: 100px) { a { color: red; } b {} }\n"},
		{s: `@supports (display: grid) { @media print { a {} } }`, ss: "@supports (display: grid) { @media print { a {} } }\n"},
		{s: "/* comment */\np > a {\n  color: blue;\n}\n", ss: "p > a { color: blue; }\n"},

		{s: `a {} }`, err: `expected selector`},
		{s: `a { b }`, err: `expected ':', got end of input`},
		{s: `@font-face { font-family: x; }`, err: `expected '{', got end of input`},
	}

	for i, tt := range tests {
		if *testiter > -1 && *testiter != i {
			continue
		}

		ss, err := parser.ParseStylesheet(newLexer(tt.s))
		if tt.err != errstring(err) {
			t.Errorf("%d. <%q> error: exp=%q, got=%q", i, tt.s, tt.err, errstring(err))
		} else if err == nil && ss.String() != tt.ss {
			t.Errorf("%d. <%q>\n\nexp: %s\n\ngot: %s", i, tt.s, tt.ss, ss.String())
		}
	}
}

// Ensure that parse errors carry their kind and position.
func TestError(t *testing.T) {
	_, err := parser.ParseDeclarationBlock(newLexer(`{ color: red color: blue; }`))
	if !errors.Is(err, parser.ErrUnexpectedToken) {
		t.Fatalf("unexpected error: %#v", err)
	}

	var e *parser.Error
	if !errors.As(err, &e) {
		t.Fatalf("unexpected error type: %T", err)
	} else if e.Pos != (token.Pos{Char: 18}) {
		t.Fatalf("unexpected pos: %s", e.Pos)
	}

	_, err = parser.ParseValue(newLexer(strings.Repeat("[", 1000)))
	if !errors.Is(err, parser.ErrNestingTooDeep) {
		t.Fatalf("unexpected error: %#v", err)
	}

	_, err = parser.ParseValue(newLexer(`a -->`), parser.WithStrict(true))
	if !errors.Is(err, parser.ErrUnrecognizedToken) {
		t.Fatalf("unexpected error: %#v", err)
	}
}

// Ensure that the parser only logs when debugging is enabled.
func TestDebug(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	if _, err := parser.ParseDeclaration(newLexer(`color: red`), parser.WithLogger(logger)); err != nil {
		t.Fatal(err)
	} else if n := len(hook.AllEntries()); n != 0 {
		t.Fatalf("unexpected log entries: %d", n)
	}

	if _, err := parser.ParseDeclaration(newLexer(`color: red`), parser.WithLogger(logger), parser.WithDebug(true)); err != nil {
		t.Fatal(err)
	} else if entry := hook.LastEntry(); entry == nil || entry.Message != "declaration: color: red" {
		t.Fatalf("unexpected log entry: %#v", entry)
	}

	hook.Reset()
	if _, err := parser.ParseDeclaration(newLexer(`color red`), parser.WithLogger(logger), parser.WithDebug(true)); err == nil {
		t.Fatal("expected error")
	} else if entry := hook.LastEntry(); entry == nil || entry.Data[logrus.ErrorKey] != err {
		t.Fatalf("unexpected log entry: %#v", entry)
	}
}

// Ensure that a failed parse logs the partial result field by field.
func TestDebug_PartialResult(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	_, err := parser.ParseDeclarationBlock(newLexer(`{ a: b; c d }`), parser.WithLogger(logger), parser.WithDebug(true))
	if err == nil {
		t.Fatal("expected error")
	}

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("expected log entry")
	} else if !strings.Contains(entry.Message, `Property: (ast.Property) (len=1) "a"`) {
		t.Fatalf("unexpected partial result: %s", entry.Message)
	} else if strings.Contains(entry.Message, `{ a: b; }`) {
		t.Fatalf("partial result printed with String: %s", entry.Message)
	}
}

// Ensure that a zero configuration is filled with defaults.
func TestConfig_Validate(t *testing.T) {
	var c parser.Config
	c.Validate()
	if c.MaxDepth != parser.DefaultMaxDepth {
		t.Fatalf("unexpected max depth: %d", c.MaxDepth)
	} else if c.Logger == nil {
		t.Fatal("expected logger")
	}

	_, err := parser.ParseValue(newLexer(`(((a)))`), parser.WithConfig(&parser.Config{MaxDepth: 2}))
	if !errors.Is(err, parser.ErrNestingTooDeep) {
		t.Fatalf("unexpected error: %#v", err)
	}
}

func newLexer(s string) *lexer.Lexer {
	return lexer.New(strings.NewReader(s))
}

// errstring returns the string representation of the error.
func errstring(err error) string {
	if err != nil {
		return err.Error()
	}
	return ""
}
