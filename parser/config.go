package parser

import (
	"github.com/sirupsen/logrus"
)

type (
	// Config defines configuration options for the parser's operations.
	Config struct {
		// Logger receives debug messages when Debug is set.
		Logger logrus.FieldLogger

		// MaxDepth limits how deeply blocks and function calls may nest.
		MaxDepth int

		// Strict rejects tokens that have no textual form in a value or selector.
		Strict bool

		Debug bool
	}

	// Option defines the parser functional option type.
	Option func(*Config)
)

// DefaultMaxDepth is the nesting limit used when none is configured.
const DefaultMaxDepth = 256

// DefaultConfig obtains the package's default parser configuration.
func DefaultConfig() *Config {
	return &Config{
		Logger:   logrus.New(),
		MaxDepth: DefaultMaxDepth,
	}
}

// Validate populates missing Config entries with defaults.
func (c *Config) Validate() {
	if c.MaxDepth <= 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.Logger == nil {
		c.Logger = logrus.New()
	}
}

// WithConfig replaces the whole configuration with a copy of cfg.
func WithConfig(cfg *Config) Option { return func(c *Config) { *c = *cfg } }

// WithMaxDepth configures the nesting limit.
func WithMaxDepth(depth int) Option { return func(c *Config) { c.MaxDepth = depth } }

// WithStrict configures the strict option.
func WithStrict(strict bool) Option { return func(c *Config) { c.Strict = strict } }

// WithDebug configures the debug option.
func WithDebug(debug bool) Option { return func(c *Config) { c.Debug = debug } }

// WithLogger configures the logger option.
func WithLogger(logger logrus.FieldLogger) Option { return func(c *Config) { c.Logger = logger } }
