package pica

import (
	"golang.org/x/text/unicode/norm"

	"github.com/picaplus/picareader/internal/record"
)

// ChainFilters applies filters in order. The chain stops at the first filter
// that skips the record.
func ChainFilters(filters ...Filter) Filter {
	return func(rec Record) (Record, bool) {
		for _, f := range filters {
			if f == nil {
				continue
			}
			var keep bool
			if rec, keep = f(rec); !keep {
				return Record{}, false
			}
		}
		return rec, true
	}
}

// NormalizeFilter converts every subfield value to the given Unicode
// normalization form. Catalog exports are often decomposed (NFD).
func NormalizeFilter(form norm.Form) Filter {
	return func(rec Record) (Record, bool) {
		out := rec.Clone()
		for i := range out.Fields {
			for j := range out.Fields[i].Subfields {
				sf := &out.Fields[i].Subfields[j]
				sf.Value = form.String(sf.Value)
			}
		}
		return out, true
	}
}

// DropInvalidSubfieldCodes removes subfields whose code is not a single
// ASCII letter or digit, and fields left without subfields.
func DropInvalidSubfieldCodes(rec Record) (Record, bool) {
	out := Record{Fields: make([]Field, 0, len(rec.Fields))}
	for _, f := range rec.Fields {
		kept := make([]Subfield, 0, len(f.Subfields))
		for _, sf := range f.Subfields {
			if record.ValidCode(sf.Code) {
				kept = append(kept, sf)
			}
		}
		if len(kept) == 0 {
			continue
		}
		f.Subfields = kept
		out.Fields = append(out.Fields, f)
	}
	return out, true
}

// SkipEmpty skips records without fields.
func SkipEmpty(rec Record) (Record, bool) {
	return rec, len(rec.Fields) > 0
}
