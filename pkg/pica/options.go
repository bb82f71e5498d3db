package pica

import (
	"io"
	"regexp"

	"github.com/sirupsen/logrus"

	"github.com/picaplus/picareader/internal/options"
)

// Option configures a decoder or a Reader. Options that do not apply to a
// given decoder are ignored.
type Option func(*options.Config)

// WithLogger sets the logger used for debug output.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *options.Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithFilter installs a filter on a Reader.
func WithFilter(f Filter) Option {
	return func(c *options.Config) { c.Filter = f }
}

// WithIgnoreLines sets the pattern of plain-text lines to skip. A nil pattern
// restores the default, which matches only empty lines.
func WithIgnoreLines(re *regexp.Regexp) Option {
	return func(c *options.Config) {
		if re == nil {
			re = options.DefaultIgnoreLine
		}
		c.IgnoreLine = re
	}
}

// WithBlankLineRecords makes an empty line end a plain-text record, so one
// source may hold several records.
func WithBlankLineRecords(on bool) Option {
	return func(c *options.Config) { c.BlankLineRecords = on }
}

// WithBufferSize sets the read buffer size of the normalized decoder.
func WithBufferSize(n int) Option {
	return func(c *options.Config) {
		if n > 0 {
			c.BufferSize = n
		}
	}
}

// WithCharsetReader replaces the converter used for XML documents declaring
// a non-UTF-8 encoding.
func WithCharsetReader(fn func(label string, input io.Reader) (io.Reader, error)) Option {
	return func(c *options.Config) { c.CharsetReader = fn }
}

func buildConfig(opts []Option) options.Config {
	cfg := options.Defaults()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
