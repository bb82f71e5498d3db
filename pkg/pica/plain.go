package pica

import (
	"io"
	"regexp"
	"strings"

	"github.com/picaplus/picareader/internal/driver"
	"github.com/picaplus/picareader/internal/options"
	"github.com/picaplus/picareader/internal/subfield"
)

var (
	lineBreak         = regexp.MustCompile(`\r\n|\n|\r`)
	plainFieldPattern = regexp.MustCompile(`^([012][0-9]{2}[A-Z@])(?:/([0-9]{2}))?\s+(\$.*)$`)
)

// Plain text has no signature of its own, so it is sniffed last and accepts
// whatever xml and norm rejected.
func init() {
	driver.Register(driver.Detection{
		Name:     options.FormatPlain,
		Aliases:  []string{"pp", "picaplain"},
		Sniff:    func([]byte) bool { return true },
		Priority: 100,
	}, func(cfg options.Config) driver.Decoder { return newPlainDecoder(cfg) })
}

// PlainDecoder reads PicaPlain text, one field per line.
//
// The format has no record delimiter: all lines of one source form a single
// record unless WithBlankLineRecords is set, in which case an empty line
// closes the current record. Callers holding several records in one text
// without blank lines must split it and open the decoder once per record.
type PlainDecoder struct {
	cfg    options.Config
	lines  []string
	pos    int
	open   bool
	closer io.Closer
}

var _ Decoder = (*PlainDecoder)(nil)

// NewPlainDecoder returns an unopened plain-text decoder.
func NewPlainDecoder(opts ...Option) *PlainDecoder {
	return newPlainDecoder(buildConfig(opts))
}

func newPlainDecoder(cfg options.Config) *PlainDecoder {
	return &PlainDecoder{cfg: cfg}
}

// Open reads the whole source and splits it on \n, \r or \r\n.
func (d *PlainDecoder) Open(src any) error {
	if err := d.Close(); err != nil {
		return err
	}
	text, closer, err := textFrom(src)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return err
	}
	text = strings.TrimPrefix(text, "\ufeff")
	d.lines = lineBreak.Split(text, -1)
	d.pos = 0
	d.open = true
	d.closer = closer
	d.cfg.Logger.WithField("lines", len(d.lines)).Debug("pica plain: opened")
	return nil
}

// OpenLines opens the decoder over already split lines. Zero lines decode
// to io.EOF right away.
func (d *PlainDecoder) OpenLines(lines []string) error {
	if err := d.Close(); err != nil {
		return err
	}
	d.lines = append([]string(nil), lines...)
	d.pos = 0
	d.open = true
	return nil
}

// ReadOne decodes the next record. A block of lines without any field line
// is a MalformedFieldError.
func (d *PlainDecoder) ReadOne() (Record, error) {
	if !d.open || d.pos >= len(d.lines) {
		return Record{}, io.EOF
	}
	start := d.pos
	var rec Record
	for d.pos < len(d.lines) {
		line := d.lines[d.pos]
		d.pos++
		if d.cfg.BlankLineRecords && line == "" {
			if len(rec.Fields) > 0 {
				break
			}
			continue
		}
		if d.cfg.IgnoreLine != nil && d.cfg.IgnoreLine.MatchString(line) {
			continue
		}
		field, merr := parsePlainField(line)
		if merr != nil {
			merr.Line = d.pos
			return Record{}, merr
		}
		rec.Fields = append(rec.Fields, field)
	}
	if len(rec.Fields) == 0 {
		if d.cfg.BlankLineRecords {
			return Record{}, io.EOF
		}
		return Record{}, &MalformedFieldError{
			Format: options.FormatPlain,
			Line:   start + 1,
			Offset: -1,
			Reason: "record contains no field lines",
		}
	}
	return rec, nil
}

// Close releases the lines and the source. Closing twice is a no-op.
func (d *PlainDecoder) Close() error {
	d.lines = nil
	d.pos = 0
	d.open = false
	if d.closer == nil {
		return nil
	}
	closer := d.closer
	d.closer = nil
	return closer.Close()
}

// ParsePlainField decodes one PicaPlain line. The tag, with its optional
// occurrence, is separated from the subfield block by one or more whitespace
// characters. Errors are of type *MalformedFieldError.
func ParsePlainField(line string) (Field, error) {
	f, merr := parsePlainField(line)
	if merr != nil {
		return Field{}, merr
	}
	return f, nil
}

func parsePlainField(line string) (Field, *MalformedFieldError) {
	m := plainFieldPattern.FindStringSubmatch(line)
	if m == nil {
		return Field{}, &MalformedFieldError{
			Format: options.FormatPlain,
			Offset: -1,
			Raw:    line,
			Reason: "invalid characters in line",
		}
	}
	subfields, err := subfield.Tokenize(m[3])
	if err != nil {
		return Field{}, &MalformedFieldError{
			Format: options.FormatPlain,
			Offset: -1,
			Raw:    line,
			Err:    err,
		}
	}
	return Field{
		Tag:        strings.Clone(m[1]),
		Occurrence: strings.Clone(m[2]),
		Subfields:  subfields,
	}, nil
}
