// Command dassie parses CSS files and prints the result.
//
// Usage:
//
//	dassie [flags] [file ...]
//
// With no files, the standard input is parsed. The output mode selects what
// is printed for each file: the parsed nodes in their compact form (print),
// a dump of the syntax tree (dump), the formatted stylesheet (fmt) or a
// unified diff between the input and the formatted stylesheet (diff).
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/sirupsen/logrus"

	"github.com/Gejsi/dassie"
	"github.com/Gejsi/dassie/ast"
	"github.com/Gejsi/dassie/parser"
	"github.com/Gejsi/dassie/scanner"
	"github.com/Gejsi/dassie/token"
)

var (
	flagConf      = flag.String("c", "", "config file location")
	flagMode      = flag.String("mode", ModePrint, "output mode: print, dump, fmt or diff")
	flagSelectors = flag.Bool("selectors", false, "parse the input as a selector list")
	flagWatch     = flag.Bool("w", false, "watch the input files and parse them again when they change")
	flagStrict    = flag.Bool("strict", false, "reject tokens that have no textual form")
	flagDebug     = flag.Bool("debug", false, "log parser debug messages")
	flagMaxDepth  = flag.Int("maxdepth", parser.DefaultMaxDepth, "maximum nesting of blocks")
	flagWorkers   = flag.Int("workers", runtime.NumCPU(), "number of files parsed concurrently")
	flagIndent    = flag.String("indent", dassie.DefaultIndent, "indentation used by the fmt and diff modes")
	flagLogLevel  = flag.String("loglevel", "info", "log level")
	flagNoColor   = flag.Bool("nocolor", false, "disable colored error output")
)

// flagKeys maps flags to the configuration keys they override.
var flagKeys = map[string]string{
	"mode":      "Mode",
	"selectors": "Selectors",
	"strict":    "Strict",
	"debug":     "Debug",
	"maxdepth":  "MaxDepth",
	"workers":   "Workers",
	"indent":    "Indent",
	"loglevel":  "LogLevel",
}

// stdin is the file name that selects the standard input.
const stdin = "-"

var errColor = color.New(color.FgRed, color.Bold)

// dumper prints the syntax tree field by field for the dump mode.
var dumper = spew.ConfigState{Indent: " ", DisableMethods: true, DisablePointerAddresses: true}

func main() {
	flag.Parse()
	if *flagNoColor {
		color.NoColor = true
	}

	c, err := loadFlags()
	if err != nil {
		logrus.Fatal(err)
	}
	logger := newLogger(c)

	files := flag.Args()
	if len(files) == 0 {
		files = []string{stdin}
	}
	ok := run(c, logger, files, os.Stdout, os.Stderr)

	if !*flagWatch {
		if !ok {
			os.Exit(1)
		}
		return
	}

	for _, name := range files {
		if name == stdin {
			logger.Fatal("cannot watch the standard input")
		}
	}
	watcher, err := watch(logger, files, func(name string) {
		run(c, logger, []string{name}, os.Stdout, os.Stderr)
	})
	if err != nil {
		logger.Fatal(err)
	}
	defer watcher.Close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig
}

// loadFlags loads the configuration file, if any, and overrides it with
// the flags that were set on the command line.
func loadFlags() (*Config, error) {
	c := newConfig()
	if *flagConf != "" {
		var err error
		if c, err = LoadConfigFile(*flagConf); err != nil {
			return nil, errors.Wrapf(err, "load config %s", *flagConf)
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode":
			c.Mode = *flagMode
		case "selectors":
			c.Selectors = *flagSelectors
		case "strict":
			c.Strict = *flagStrict
		case "debug":
			c.Debug = *flagDebug
		case "maxdepth":
			c.MaxDepth = *flagMaxDepth
		case "workers":
			c.Workers = *flagWorkers
		case "indent":
			c.Indent = *flagIndent
		case "loglevel":
			c.LogLevel = *flagLogLevel
		}
		if key, ok := flagKeys[f.Name]; ok {
			c.define(key)
		}
	})
	return c, c.Validate()
}

func newLogger(c *Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	logger.SetLevel(c.Level())
	return logger
}

// run parses the files on a worker pool and writes the results in the order
// of the files. Errors are written to stderr. It returns false if any file
// failed.
func run(c *Config, logger logrus.FieldLogger, files []string, stdout, stderr io.Writer) bool {
	pool, err := ants.NewPool(c.Workers)
	if err != nil {
		report(stderr, "", errors.Wrap(err, "create pool"))
		return false
	}
	defer pool.Release()

	type result struct {
		out string
		err error
	}
	results := make([]result, len(files))

	var wg sync.WaitGroup
	for i, name := range files {
		i, name := i, name
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			results[i].out, results[i].err = process(c, logger, name)
		}); err != nil {
			wg.Done()
			results[i].err = errors.Wrapf(err, "submit %s", name)
		}
	}
	wg.Wait()

	ok := true
	for i, r := range results {
		if r.err != nil {
			report(stderr, files[i], r.err)
			ok = false
			continue
		}
		fmt.Fprint(stdout, r.out)
	}
	return ok
}

// process parses a single file and returns its output for the configured mode.
func process(c *Config, logger logrus.FieldLogger, name string) (string, error) {
	src, err := readInput(name)
	if err != nil {
		return "", err
	}

	log := logger.WithField("file", displayName(name))
	l := dassie.NewLexer(bytes.NewReader(src))
	opt := parser.WithConfig(c.ParserConfig(log))

	var v interface{}
	var text, formatted string
	if c.Selectors {
		a, err := parser.ParseSelectors(l, opt)
		if err != nil {
			return "", err
		}
		lines := make([]string, len(a))
		for i, s := range a {
			lines[i] = string(s)
		}
		v = a
		text = strings.Join(lines, "\n") + "\n"
		formatted = strings.Join(lines, ",\n") + "\n"
	} else {
		ss, err := parser.ParseStylesheet(l, opt)
		if err != nil {
			return "", err
		}
		v = ss
		text = ss.String()
		formatted = c.Printer().Sprint(ss)
		logStats(log, ss)
	}

	switch c.Mode {
	case ModeDump:
		return dumper.Sdump(v), nil
	case ModeFmt:
		return formatted, nil
	case ModeDiff:
		diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(src)),
			B:        difflib.SplitLines(formatted),
			FromFile: displayName(name),
			ToFile:   displayName(name) + " (formatted)",
			Context:  3,
		})
		return diff, errors.Wrap(err, "diff")
	}
	return text, nil
}

// logStats logs the number of nodes of each kind in the stylesheet.
func logStats(logger logrus.FieldLogger, ss *ast.Stylesheet) {
	var rules, atRules, declarations int
	ast.Walk(ss, func(n ast.Node) bool {
		switch n.(type) {
		case *ast.Rule:
			rules++
		case *ast.AtRule:
			atRules++
		case *ast.Declaration:
			declarations++
		}
		return true
	})
	logger.WithFields(logrus.Fields{
		"rules":        rules,
		"at-rules":     atRules,
		"declarations": declarations,
	}).Debug("parsed")
}

func readInput(name string) ([]byte, error) {
	if name == stdin {
		b, err := io.ReadAll(os.Stdin)
		return b, errors.Wrap(err, "read standard input")
	}
	b, err := os.ReadFile(name)
	return b, errors.Wrapf(err, "read %s", name)
}

// report writes err to w, prefixed with the file name and, for parse and
// scan errors, the line and column.
func report(w io.Writer, name string, err error) {
	if pos, ok := position(err); ok {
		errColor.Fprintf(w, "%s:%s: %s\n", displayName(name), pos, err)
		return
	} else if name == "" {
		errColor.Fprintf(w, "%s\n", err)
		return
	}
	errColor.Fprintf(w, "%s: %s\n", displayName(name), err)
}

func position(err error) (token.Pos, bool) {
	var pe *parser.Error
	if errors.As(err, &pe) {
		return pe.Pos, true
	}
	var se *scanner.Error
	if errors.As(err, &se) {
		return se.Pos, true
	}
	return token.Pos{}, false
}

func displayName(name string) string {
	if name == stdin {
		return "<stdin>"
	}
	return name
}
