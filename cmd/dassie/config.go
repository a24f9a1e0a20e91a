package main

import (
	"fmt"
	"runtime"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"

	"github.com/Gejsi/dassie"
	"github.com/Gejsi/dassie/parser"
)

// Output modes.
const (
	ModePrint = "print"
	ModeDump  = "dump"
	ModeFmt   = "fmt"
	ModeDiff  = "diff"
)

// Config holds the command configuration. It is read from a TOML file and
// then overridden by flags.
type Config struct {
	MaxDepth  int
	Strict    bool
	Debug     bool
	LogLevel  string
	Workers   int
	Indent    string
	Mode      string
	Selectors bool

	md  toml.MetaData
	set map[string]bool // keys overridden by flags
}

func newConfig() *Config {
	return &Config{
		MaxDepth: parser.DefaultMaxDepth,
		LogLevel: "info",
		Workers:  runtime.NumCPU(),
		Indent:   dassie.DefaultIndent,
		Mode:     ModePrint,
	}
}

// LoadConfigFile loads the configuration in TOML format. It will error if
// there are values in the config that were not parsed.
func LoadConfigFile(fileName string) (*Config, error) {
	return loadConfig(fileName, true)
}

// LoadConfig is like LoadConfigFile but loads the config from a string.
func LoadConfig(conf string) (*Config, error) {
	return loadConfig(conf, false)
}

func loadConfig(conf string, isFileName bool) (*Config, error) {
	c := newConfig()
	var decodeMeta toml.MetaData
	var err error
	if isFileName {
		decodeMeta, err = toml.DecodeFile(conf, c)
	} else {
		decodeMeta, err = toml.Decode(conf, c)
	}
	if err != nil {
		return c, err
	}
	if len(decodeMeta.Undecoded()) > 0 {
		return c, fmt.Errorf("undecoded fields in configuration: %v", decodeMeta.Undecoded())
	}
	c.md = decodeMeta
	return c, c.Validate()
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModePrint, ModeDump, ModeFmt, ModeDiff:
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("max depth must be positive, got %d", c.MaxDepth)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// IsDefined returns true if key was set in the configuration file or by a
// flag.
func (c *Config) IsDefined(key string) bool {
	return c.set[key] || c.md.IsDefined(key)
}

// define records that key was set by a flag.
func (c *Config) define(key string) {
	if c.set == nil {
		c.set = make(map[string]bool)
	}
	c.set[key] = true
}

// Level returns the log level. Debug raises it to the debug level unless a
// level was given explicitly.
func (c *Config) Level() logrus.Level {
	level, _ := logrus.ParseLevel(c.LogLevel)
	if c.Debug && !c.IsDefined("LogLevel") && level < logrus.DebugLevel {
		level = logrus.DebugLevel
	}
	return level
}

// ParserConfig returns the parser configuration, logging to logger.
func (c *Config) ParserConfig(logger logrus.FieldLogger) *parser.Config {
	return &parser.Config{
		Logger:   logger,
		MaxDepth: c.MaxDepth,
		Strict:   c.Strict,
		Debug:    c.Debug,
	}
}

// Printer returns the printer used by the fmt and diff modes.
func (c *Config) Printer() *dassie.Printer {
	return &dassie.Printer{Indent: c.Indent}
}
