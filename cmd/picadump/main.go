package main

import (
	"context"
	"fmt"
	"io"
	"regexp"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/text/unicode/norm"

	"github.com/picaplus/picareader/internal/options"
	"github.com/picaplus/picareader/internal/source"
	"github.com/picaplus/picareader/pkg/pica"
)

var (
	rootCmd = &cobra.Command{
		Use:   "picadump [file...]",
		Short: "Decode Pica+ records",
		Long: "picadump decodes Pica+ records in PicaPlain, normalized or Pica-XML form " +
			"and prints them as JSON lines, YAML, Ion text or PicaPlain. " +
			"Without arguments, or with \"-\", standard input is read. " +
			"gzip and zstd compressed inputs are decompressed on the fly.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.toConfig()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				args = []string{source.Stdin}
			}
			logger := logrus.StandardLogger()
			if flags.verbose {
				logger.SetLevel(logrus.DebugLevel)
			}
			ctx := options.WithLogger(cmd.Context(), logger)
			return run(ctx, cfg, args, cmd.OutOrStdout())
		},
	}

	flags cliFlags
)

type cliFlags struct {
	format      string
	output      string
	ignore      string
	blankLines  bool
	nfc         bool
	strictCodes bool
	validate    bool
	verbose     bool
}

// runConfig is the validated form of the command line flags.
type runConfig struct {
	format      string
	output      string
	ignore      *regexp.Regexp
	blankLines  bool
	nfc         bool
	strictCodes bool
	validate    bool
}

func (f cliFlags) toConfig() (runConfig, error) {
	format, err := options.ParseFormat(f.format)
	if err != nil {
		return runConfig{}, err
	}
	output, err := options.ParseOutput(f.output)
	if err != nil {
		return runConfig{}, err
	}
	ignore, err := options.CompileIgnore(f.ignore)
	if err != nil {
		return runConfig{}, err
	}
	return runConfig{
		format:      format,
		output:      output,
		ignore:      ignore,
		blankLines:  f.blankLines,
		nfc:         f.nfc,
		strictCodes: f.strictCodes,
		validate:    f.validate,
	}, nil
}

func init() {
	pf := rootCmd.Flags()
	pf.StringVarP(&flags.format, "format", "f", options.FormatAuto, "input format: auto, plain, norm or xml")
	pf.StringVarP(&flags.output, "output", "o", options.OutputJSON, "output encoding: json, yaml, ion or plain")
	pf.StringVar(&flags.ignore, "ignore", "", "regular expression of plain-text lines to skip (default: empty lines)")
	pf.BoolVar(&flags.blankLines, "blank-line-records", true, "treat empty lines as record separators in plain text")
	pf.BoolVar(&flags.nfc, "nfc", false, "normalize subfield values to Unicode NFC")
	pf.BoolVar(&flags.strictCodes, "strict-codes", false, "drop subfields whose code is not a letter or digit")
	pf.BoolVar(&flags.validate, "validate", false, "reject records violating the tag or subfield grammar")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	ctx := context.Background()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logrus.Fatal(err)
	}
}

// run decodes every path in turn. A failing input is logged and the next
// one is tried; all failures are returned together.
func run(ctx context.Context, cfg runConfig, paths []string, w io.Writer) error {
	log := options.Logger(ctx)
	enc, err := newEncoder(cfg.output, w)
	if err != nil {
		return err
	}
	var result error
	for _, path := range paths {
		n, err := dumpFile(ctx, cfg, path, enc)
		entry := log.WithField("input", path).WithField("records", n)
		if err != nil {
			entry.WithError(err).Error("failed to decode input")
			result = multierror.Append(result, fmt.Errorf("%s: %w", path, err))
			continue
		}
		entry.Debug("input decoded")
	}
	return result
}

func dumpFile(ctx context.Context, cfg runConfig, path string, enc encoder) (n int, err error) {
	in, err := source.Open(path)
	if err != nil {
		return 0, err
	}
	log := options.Logger(ctx)
	log.WithField("input", path).WithField("compression", in.Compression).Debug("input opened")

	opts := []pica.Option{
		pica.WithLogger(log),
		pica.WithIgnoreLines(cfg.ignore),
		pica.WithBlankLineRecords(cfg.blankLines),
	}
	var dec pica.Decoder
	var src io.Reader = io.NopCloser(in)
	if cfg.format == options.FormatAuto {
		var format string
		dec, format, src, err = pica.DetectDecoder(src, opts...)
		if err != nil {
			in.Close()
			return 0, err
		}
		log.WithField("input", path).WithField("format", format).Debug("format detected")
	} else {
		if dec, err = pica.NewDecoder(cfg.format, opts...); err != nil {
			in.Close()
			return 0, err
		}
	}

	factory := pica.Identity
	if cfg.validate {
		factory = pica.Validate
	}
	r := pica.NewReader(dec, factory, append(opts, pica.WithFilter(buildFilter(cfg)))...)
	defer func() {
		if cerr := r.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if cerr := in.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := r.Open(src); err != nil {
		return 0, err
	}
	err = pica.DecodeAll(ctx, r, func(rec pica.Record) error {
		n++
		return enc.encode(rec)
	})
	return n, err
}

func buildFilter(cfg runConfig) pica.Filter {
	var filters []pica.Filter
	if cfg.strictCodes {
		filters = append(filters, pica.DropInvalidSubfieldCodes, pica.SkipEmpty)
	}
	if cfg.nfc {
		filters = append(filters, pica.NormalizeFilter(norm.NFC))
	}
	if len(filters) == 0 {
		return nil
	}
	return pica.ChainFilters(filters...)
}
