package record

import (
	"fmt"
	"regexp"
)

// Record is the uniform decoded shape shared by every Pica+ serialization: an
// ordered sequence of fields. A record owns its data; decoders never keep a
// reference to a record they returned.
type Record struct {
	Fields []Field `json:"fields" ion:"fields"`
}

// Field is one tagged field. Occurrence is empty when none was encoded.
type Field struct {
	Tag        string     `json:"tag" ion:"tag"`
	Occurrence string     `json:"occurrence,omitempty" ion:"occurrence,omitempty"`
	Subfields  []Subfield `json:"subfields" ion:"subfields"`
}

// Subfield is a code/value pair. Code holds a single character.
type Subfield struct {
	Code  string `json:"code" ion:"code"`
	Value string `json:"value" ion:"value"`
}

var (
	tagPattern        = regexp.MustCompile(`^[012][0-9]{2}[A-Z@]$`)
	occurrencePattern = regexp.MustCompile(`^[0-9]{2}$`)
	codePattern       = regexp.MustCompile(`^[a-zA-Z0-9]$`)
)

// ValidTag reports whether tag matches [0-2][0-9]{2}[A-Z@].
func ValidTag(tag string) bool { return tagPattern.MatchString(tag) }

// ValidOccurrence reports whether occ is exactly two digits.
func ValidOccurrence(occ string) bool { return occurrencePattern.MatchString(occ) }

// ValidCode reports whether code is a single ASCII letter or digit.
func ValidCode(code string) bool { return codePattern.MatchString(code) }

// Shorthand renders the field address as "tag" or "tag/occurrence".
func (f Field) Shorthand() string {
	if f.Occurrence == "" {
		return f.Tag
	}
	return f.Tag + "/" + f.Occurrence
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	if r.Fields == nil {
		return Record{}
	}
	out := Record{Fields: make([]Field, len(r.Fields))}
	for i, f := range r.Fields {
		out.Fields[i] = f.Clone()
	}
	return out
}

// Clone returns a deep copy of the field.
func (f Field) Clone() Field {
	out := f
	if f.Subfields != nil {
		out.Subfields = make([]Subfield, len(f.Subfields))
		copy(out.Subfields, f.Subfields)
	}
	return out
}

// Check validates the grammar of every field in the record.
func (r Record) Check() error {
	for i, f := range r.Fields {
		if err := f.Check(); err != nil {
			return fmt.Errorf("field %d: %w", i, err)
		}
	}
	return nil
}

// Check validates tag, occurrence and subfield codes of the field.
func (f Field) Check() error {
	if !ValidTag(f.Tag) {
		return fmt.Errorf("invalid tag %q", f.Tag)
	}
	if f.Occurrence != "" && !ValidOccurrence(f.Occurrence) {
		return fmt.Errorf("invalid occurrence %q in %s", f.Occurrence, f.Tag)
	}
	if len(f.Subfields) == 0 {
		return fmt.Errorf("field %s has no subfields", f.Shorthand())
	}
	for _, sf := range f.Subfields {
		if !ValidCode(sf.Code) {
			return fmt.Errorf("invalid subfield code %q in %s", sf.Code, f.Shorthand())
		}
	}
	return nil
}
