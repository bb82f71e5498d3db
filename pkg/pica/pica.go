// Package pica decodes Pica+ bibliographic records from their plain-text,
// normalized and XML serializations into one uniform shape.
//
// Every decoder follows the same lifecycle: Open a source, call ReadOne until
// it returns io.EOF, then Close. A Reader adds an optional filter and a record
// factory on top of any decoder. Decoders are sequential cursors and must not
// be shared between goroutines without external locking.
//
// Callers own the Close call: a decoder does not release its source on a
// decode error.
package pica

import (
	"github.com/picaplus/picareader/internal/driver"
	"github.com/picaplus/picareader/internal/record"
)

type (
	// Record is an ordered sequence of fields.
	Record = record.Record
	// Field is a tagged field with an optional two digit occurrence.
	Field = record.Field
	// Subfield is a single code/value pair.
	Subfield = record.Subfield
	// Decoder is the contract shared by all serializations.
	Decoder = driver.Decoder
)

// Control octets of the normalized serialization.
const (
	RecordSeparator   byte = 0x1D
	FieldSeparator    byte = 0x1E
	SubfieldSeparator byte = 0x1F
)

// XMLNamespace is the namespace URI of Pica-XML elements.
const XMLNamespace = "info:srw/schema/5/picaXML-v1.0"
