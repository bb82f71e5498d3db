package pica

import "errors"

// ErrEmptyRecord is returned by Validate for records without fields.
var ErrEmptyRecord = errors.New("record has no fields")

// Identity hands the decoded record through unchanged.
func Identity(rec Record) (Record, error) { return rec, nil }

// Validate checks tag, occurrence and subfield-code grammar of every field
// and rejects records without fields.
func Validate(rec Record) (Record, error) {
	if len(rec.Fields) == 0 {
		return Record{}, ErrEmptyRecord
	}
	if err := rec.Check(); err != nil {
		return Record{}, err
	}
	return rec, nil
}
