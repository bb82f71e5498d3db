package pica

import (
	"bytes"
	"errors"
	"io"
	"regexp"
	"unicode/utf8"

	"github.com/picaplus/picareader/internal/driver"
	"github.com/picaplus/picareader/internal/octet"
	"github.com/picaplus/picareader/internal/options"
)

var normFieldPattern = regexp.MustCompile(`(?s)^([012][0-9]{2}[A-Z@])(?:/([0-9]{2}))? \x1f(.+)$`)

func init() {
	driver.Register(driver.Detection{
		Name:     options.FormatNorm,
		Aliases:  []string{"normalized", "pica"},
		Sniff:    sniffNorm,
		Priority: 10,
	}, func(cfg options.Config) driver.Decoder { return newNormDecoder(cfg) })
}

func sniffNorm(prefix []byte) bool {
	return bytes.IndexByte(prefix, SubfieldSeparator) >= 0 ||
		bytes.IndexByte(prefix, FieldSeparator) >= 0 ||
		bytes.IndexByte(prefix, RecordSeparator) >= 0
}

// NormDecoder reads normalized Pica+, where records, fields and subfields
// are delimited by the control octets 0x1D, 0x1E and 0x1F.
//
// A field is "tag[/occurrence] " followed by one or more subfields, each
// introduced by 0x1F; the first octet after it is the code. Values are not
// escaped. Records without any field are dropped.
type NormDecoder struct {
	cfg    options.Config
	cur    *octet.Cursor
	closer io.Closer
	line   []byte
}

var _ Decoder = (*NormDecoder)(nil)

// NewNormDecoder returns an unopened normalized-stream decoder.
func NewNormDecoder(opts ...Option) *NormDecoder {
	return newNormDecoder(buildConfig(opts))
}

func newNormDecoder(cfg options.Config) *NormDecoder {
	return &NormDecoder{cfg: cfg}
}

// Open attaches the decoder to src and skips leading octets that cannot
// start a field, such as whitespace or a byte order mark.
func (d *NormDecoder) Open(src any) error {
	r, closer, err := readerFrom(src)
	if err != nil {
		return err
	}
	if err := d.Close(); err != nil {
		if closer != nil {
			closer.Close()
		}
		return err
	}
	d.cur = octet.NewCursor(r, d.cfg.BufferSize)
	d.closer = closer
	if err := d.cur.SkipWhile(notAlnum); err != nil {
		return streamError(err)
	}
	d.cfg.Logger.Debug("pica norm: opened")
	return nil
}

// ReadOne decodes the next non-empty record.
func (d *NormDecoder) ReadOne() (Record, error) {
	if d.cur == nil {
		return Record{}, io.EOF
	}
	for {
		end, err := d.cur.AtEnd()
		if err != nil {
			return Record{}, streamError(err)
		}
		if end {
			return Record{}, io.EOF
		}
		var rec Record
		for {
			b, err := d.cur.Peek()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return Record{}, streamError(err)
			}
			if b == RecordSeparator {
				d.cur.Next()
				break
			}
			field, err := d.readField()
			if err != nil {
				return Record{}, err
			}
			rec.Fields = append(rec.Fields, field)
		}
		// dumps usually put a newline after the record separator
		if err := d.cur.SkipWhile(notAlnum); err != nil {
			return Record{}, streamError(err)
		}
		if len(rec.Fields) > 0 {
			return rec, nil
		}
		d.cfg.Logger.Debug("pica norm: dropped record without fields")
	}
}

func (d *NormDecoder) readField() (Field, error) {
	start := d.cur.Offset()
	var err error
	d.line, err = d.cur.ReadUntil(d.line[:0], func(b byte) bool {
		return b == FieldSeparator || b == RecordSeparator
	})
	if err != nil {
		return Field{}, streamError(err)
	}
	b, err := d.cur.Peek()
	switch {
	case err == nil && b == FieldSeparator:
		d.cur.Next()
	case err != nil && !errors.Is(err, io.EOF):
		return Field{}, streamError(err)
	}
	return parseNormField(d.line, start)
}

// parseNormField copies everything it keeps out of raw.
func parseNormField(raw []byte, offset int64) (Field, error) {
	m := normFieldPattern.FindSubmatch(raw)
	if m == nil {
		return Field{}, &MalformedFieldError{
			Format: options.FormatNorm,
			Offset: offset,
			Raw:    string(raw),
			Reason: "unexpected data in input stream",
		}
	}
	chunks := bytes.Split(m[3], []byte{SubfieldSeparator})
	field := Field{
		Tag:        string(m[1]),
		Occurrence: string(m[2]),
		Subfields:  make([]Subfield, 0, len(chunks)),
	}
	for _, chunk := range chunks {
		if len(chunk) == 0 {
			return Field{}, &MalformedFieldError{
				Format: options.FormatNorm,
				Offset: offset,
				Raw:    string(raw),
				Reason: "subfield without code",
			}
		}
		_, size := utf8.DecodeRune(chunk)
		field.Subfields = append(field.Subfields, Subfield{
			Code:  string(chunk[:size]),
			Value: string(chunk[size:]),
		})
	}
	return field, nil
}

// Close releases the cursor and the source. Closing twice is a no-op.
func (d *NormDecoder) Close() error {
	d.cur = nil
	d.line = nil
	if d.closer == nil {
		return nil
	}
	closer := d.closer
	d.closer = nil
	return closer.Close()
}

func notAlnum(b byte) bool {
	return !('0' <= b && b <= '9' || 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z')
}

func streamError(err error) error {
	var readErr *octet.ReadError
	if errors.As(err, &readErr) {
		return &StreamIOError{Err: readErr.Err}
	}
	return &StreamIOError{Err: err}
}
