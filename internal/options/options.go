package options

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/picaplus/picareader/internal/record"
)

// Config carries decoder settings. Every decoder reads the parts it needs
// and ignores the rest.
type Config struct {
	Logger logrus.FieldLogger
	// Filter is handed to readers; decoders ignore it.
	Filter func(record.Record) (record.Record, bool)
	// IgnoreLine selects plain-text lines that carry no field data.
	IgnoreLine *regexp.Regexp
	// BlankLineRecords makes an empty plain-text line end the current record.
	BlankLineRecords bool
	// BufferSize is the refill size of the normalized-stream cursor.
	BufferSize int
	// CharsetReader converts non-UTF-8 XML input.
	CharsetReader func(label string, input io.Reader) (io.Reader, error)
}

// DefaultIgnoreLine matches only the fully empty line.
var DefaultIgnoreLine = regexp.MustCompile(`^$`)

// Defaults returns the configuration used when no option is given.
func Defaults() Config {
	return Config{
		Logger:     logrus.StandardLogger(),
		IgnoreLine: DefaultIgnoreLine,
		BufferSize: 4096,
	}
}

type contextKey struct{}

// WithLogger stores the provided logger inside the context.
func WithLogger(ctx context.Context, logger logrus.FieldLogger) context.Context {
	if logger == nil {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, logger)
}

// Logger retrieves the logger from context, falling back to the standard logger.
func Logger(ctx context.Context) logrus.FieldLogger {
	if v := ctx.Value(contextKey{}); v != nil {
		if logger, ok := v.(logrus.FieldLogger); ok {
			return logger
		}
	}
	return logrus.StandardLogger()
}

// Input formats accepted on the command line.
const (
	FormatAuto  = "auto"
	FormatPlain = "plain"
	FormatNorm  = "norm"
	FormatXML   = "xml"
)

var formatAliases = map[string]string{
	"auto":       FormatAuto,
	"plain":      FormatPlain,
	"pp":         FormatPlain,
	"picaplain":  FormatPlain,
	"norm":       FormatNorm,
	"normalized": FormatNorm,
	"pica":       FormatNorm,
	"xml":        FormatXML,
	"picaxml":    FormatXML,
}

// ParseFormat validates an input format name and returns its canonical form.
func ParseFormat(input string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(input))
	if key == "" {
		return FormatAuto, nil
	}
	if f, ok := formatAliases[key]; ok {
		return f, nil
	}
	return "", fmt.Errorf("unknown input format %q (want auto, plain, norm or xml)", input)
}

// Output encodings accepted on the command line.
const (
	OutputJSON  = "json"
	OutputYAML  = "yaml"
	OutputIon   = "ion"
	OutputPlain = "plain"
)

// ParseOutput validates an output encoding name.
func ParseOutput(input string) (string, error) {
	switch key := strings.ToLower(strings.TrimSpace(input)); key {
	case "", OutputJSON, "jsonl":
		return OutputJSON, nil
	case OutputYAML, "yml":
		return OutputYAML, nil
	case OutputIon:
		return OutputIon, nil
	case OutputPlain, "pp":
		return OutputPlain, nil
	default:
		return "", fmt.Errorf("unknown output encoding %q (want json, yaml, ion or plain)", input)
	}
}

// CompileIgnore compiles a line-ignore pattern. An empty pattern yields the
// default, which matches only empty lines.
func CompileIgnore(pattern string) (*regexp.Regexp, error) {
	if strings.TrimSpace(pattern) == "" {
		return DefaultIgnoreLine, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid ignore pattern: %w", err)
	}
	return re, nil
}
