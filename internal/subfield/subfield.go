// Package subfield splits the subfield block of a plain-text Pica+ field into
// code/value pairs.
//
// A subfield starts with the delimiter '$' followed by a one character code.
// The value runs up to the next delimiter; a doubled delimiter inside a value
// stands for one literal '$'.
package subfield

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/picaplus/picareader/internal/record"
)

// Delimiter starts every subfield in the plain-text format.
const Delimiter = '$'

var (
	// ErrMissingDelimiter is returned when the text does not start with '$'.
	ErrMissingDelimiter = errors.New("subfield block must start with '$'")
	// ErrDanglingDelimiter is returned for a trailing '$' without a code.
	ErrDanglingDelimiter = errors.New("subfield delimiter without code at end of input")
)

type state int

const (
	expectDelimiter state = iota
	expectCode
	accumulateValue
	done
)

// Tokenize splits text into subfields. Values are copied; the result never
// aliases text.
func Tokenize(text string) ([]record.Subfield, error) {
	var (
		out   []record.Subfield
		code  string
		value strings.Builder
		pos   int
		st    = expectDelimiter
	)
	for st != done {
		switch st {
		case expectDelimiter:
			if pos >= len(text) || text[pos] != Delimiter {
				return nil, ErrMissingDelimiter
			}
			pos++
			st = expectCode
		case expectCode:
			if pos >= len(text) {
				return nil, ErrDanglingDelimiter
			}
			_, size := utf8.DecodeRuneInString(text[pos:])
			code = text[pos : pos+size]
			pos += size
			value.Reset()
			st = accumulateValue
		case accumulateValue:
			next := strings.IndexByte(text[pos:], Delimiter)
			if next < 0 {
				value.WriteString(text[pos:])
				pos = len(text)
				out = append(out, record.Subfield{Code: strings.Clone(code), Value: value.String()})
				st = done
				continue
			}
			value.WriteString(text[pos : pos+next])
			pos += next
			if pos+1 < len(text) && text[pos+1] == Delimiter {
				value.WriteByte(Delimiter)
				pos += 2
				continue
			}
			out = append(out, record.Subfield{Code: strings.Clone(code), Value: value.String()})
			st = expectDelimiter
		}
	}
	return out, nil
}

// Escape renders subfields in the plain-text layout, doubling every '$' in
// values. Tokenize(Escape(s)) reproduces s.
func Escape(subfields []record.Subfield) string {
	var b strings.Builder
	for _, sf := range subfields {
		b.WriteByte(Delimiter)
		b.WriteString(sf.Code)
		b.WriteString(strings.ReplaceAll(sf.Value, "$", "$$"))
	}
	return b.String()
}
