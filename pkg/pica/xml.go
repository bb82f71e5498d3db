package pica

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/picaplus/picareader/internal/driver"
	"github.com/picaplus/picareader/internal/options"
)

const (
	elemRecord    = "record"
	elemDatafield = "datafield"
	elemSubfield  = "subfield"
)

func init() {
	driver.Register(driver.Detection{
		Name:     options.FormatXML,
		Aliases:  []string{"picaxml"},
		Sniff:    sniffXML,
		Priority: 0,
	}, func(cfg options.Config) driver.Decoder { return newXMLDecoder(cfg) })
}

func sniffXML(prefix []byte) bool {
	prefix = bytes.TrimPrefix(prefix, []byte("\xef\xbb\xbf"))
	return bytes.HasPrefix(bytes.TrimLeft(prefix, " \t\r\n"), []byte("<"))
}

// XMLDecoder reads Pica-XML with a streaming pull parser. Only record,
// datafield and subfield elements in XMLNamespace are recognized; elements
// of the same name in other namespaces are skipped.
//
// No validation happens beyond XML well-formedness: a datafield without a
// tag attribute yields a field with an empty tag, a subfield without code
// one with an empty code.
type XMLDecoder struct {
	cfg    options.Config
	dec    *xml.Decoder
	tok    xml.Token
	closer io.Closer
	done   bool
}

var _ Decoder = (*XMLDecoder)(nil)

// NewXMLDecoder returns an unopened Pica-XML decoder.
func NewXMLDecoder(opts ...Option) *XMLDecoder {
	return newXMLDecoder(buildConfig(opts))
}

func newXMLDecoder(cfg options.Config) *XMLDecoder {
	if cfg.CharsetReader == nil {
		cfg.CharsetReader = charsetReader
	}
	return &XMLDecoder{cfg: cfg}
}

// Open attaches the decoder to src. A leading UTF-8 or UTF-16 byte order mark
// decides the encoding and overrides any encoding declaration.
func (d *XMLDecoder) Open(src any) error {
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
	in, bom := decodeBOM(r)
	d.dec = xml.NewDecoder(in)
	d.dec.CharsetReader = d.cfg.CharsetReader
	if bom {
		d.dec.CharsetReader = keepUTF8
	}
	d.closer = closer
	d.tok = nil
	d.done = false
	d.cfg.Logger.Debug("pica xml: opened")
	return nil
}

// ReadOne moves to the next record element and decodes its fields. A record
// element without datafield children yields a record with zero fields.
func (d *XMLDecoder) ReadOne() (Record, error) {
	if d.dec == nil || d.done {
		return Record{}, io.EOF
	}
	found, err := d.forwardTo(elemRecord)
	if err != nil {
		return Record{}, err
	}
	if !found {
		return Record{}, io.EOF
	}
	rec := Record{Fields: []Field{}}
	for !d.atEnd(elemRecord) {
		if err := d.advanceInside(elemRecord); err != nil {
			return Record{}, err
		}
		if d.atStart(elemDatafield) {
			field, err := d.readField()
			if err != nil {
				return Record{}, err
			}
			rec.Fields = append(rec.Fields, field)
		}
	}
	return rec, nil
}

func (d *XMLDecoder) readField() (Field, error) {
	start := d.tok.(xml.StartElement)
	field := Field{
		Tag:        attr(start, "tag"),
		Occurrence: attr(start, "occurrence"),
		Subfields:  []Subfield{},
	}
	for !d.atEnd(elemDatafield) {
		if err := d.advanceInside(elemDatafield); err != nil {
			return Field{}, err
		}
		if !d.atStart(elemSubfield) {
			continue
		}
		sf := Subfield{Code: attr(d.tok.(xml.StartElement), "code")}
		var value strings.Builder
		for !d.atEnd(elemSubfield) {
			if err := d.advanceInside(elemSubfield); err != nil {
				return Field{}, err
			}
			if text, ok := d.tok.(xml.CharData); ok {
				value.Write(text)
			}
		}
		sf.Value = value.String()
		field.Subfields = append(field.Subfields, sf)
	}
	return field, nil
}

// forwardTo advances until the cursor is on the start of the named element.
// The cursor does not move if it is already there. It reports false at the
// end of the document.
func (d *XMLDecoder) forwardTo(local string) (bool, error) {
	for !d.atStart(local) {
		if err := d.advance(); err != nil {
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, err
		}
	}
	return true, nil
}

func (d *XMLDecoder) advance() error {
	tok, err := d.dec.Token()
	if errors.Is(err, io.EOF) {
		d.done = true
		d.tok = nil
		return io.EOF
	}
	if err != nil {
		return fmt.Errorf("pica xml: %w", err)
	}
	d.tok = xml.CopyToken(tok)
	return nil
}

// advanceInside is advance for a cursor inside the named element, where the
// end of the document means truncated input.
func (d *XMLDecoder) advanceInside(local string) error {
	err := d.advance()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("pica xml: document ends inside %s element: %w", local, io.ErrUnexpectedEOF)
	}
	return err
}

func (d *XMLDecoder) atStart(local string) bool {
	se, ok := d.tok.(xml.StartElement)
	return ok && se.Name.Space == XMLNamespace && se.Name.Local == local
}

func (d *XMLDecoder) atEnd(local string) bool {
	ee, ok := d.tok.(xml.EndElement)
	return ok && ee.Name.Space == XMLNamespace && ee.Name.Local == local
}

// Close releases the parser and the source. Closing twice is a no-op.
func (d *XMLDecoder) Close() error {
	d.dec = nil
	d.tok = nil
	d.done = false
	if d.closer == nil {
		return nil
	}
	closer := d.closer
	d.closer = nil
	return closer.Close()
}

func attr(se xml.StartElement, name string) string {
	for _, a := range se.Attr {
		if a.Name.Space == "" && a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

var (
	bomUTF8    = []byte{0xef, 0xbb, 0xbf}
	bomUTF16BE = []byte{0xfe, 0xff}
	bomUTF16LE = []byte{0xff, 0xfe}
)

// decodeBOM converts input starting with a byte order mark to UTF-8 and
// reports whether a mark was found. Read errors surface on the first read of
// the returned reader.
func decodeBOM(r io.Reader) (io.Reader, bool) {
	br := bufio.NewReader(r)
	prefix, err := br.Peek(len(bomUTF8))
	if err != nil && !errors.Is(err, io.EOF) {
		return io.MultiReader(br, failedReader{err: err}), false
	}
	if !bytes.HasPrefix(prefix, bomUTF8) &&
		!bytes.HasPrefix(prefix, bomUTF16BE) &&
		!bytes.HasPrefix(prefix, bomUTF16LE) {
		return br, false
	}
	return transform.NewReader(br, unicode.BOMOverride(transform.Nop)), true
}

type failedReader struct{ err error }

func (r failedReader) Read([]byte) (int, error) { return 0, r.err }

// keepUTF8 is the charset reader for input already converted by decodeBOM.
func keepUTF8(_ string, input io.Reader) (io.Reader, error) {
	return input, nil
}

// charsetReader decodes documents declaring a non-UTF-8 encoding, using the
// IANA registry names.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("pica xml: charset %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("pica xml: unsupported charset %q", label)
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}
