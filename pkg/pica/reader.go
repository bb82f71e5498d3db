package pica

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// Filter receives each freshly decoded record and returns the record to
// keep, possibly modified, or false to skip it.
type Filter func(Record) (Record, bool)

// Factory builds the caller's record type from the decoded shape.
type Factory[T any] func(Record) (T, error)

var errNoFactory = errors.New("no record factory configured")

// Reader runs decoded records through an optional filter and a factory.
// It is the single place implementing read = decode, filter, build; the
// decoders only implement ReadOne.
type Reader[T any] struct {
	dec     Decoder
	factory Factory[T]
	filter  Filter
	log     logrus.FieldLogger
	open    bool
}

// NewReader wraps dec. Of the options only WithLogger and WithFilter apply.
func NewReader[T any](dec Decoder, factory Factory[T], opts ...Option) *Reader[T] {
	cfg := buildConfig(opts)
	return &Reader[T]{
		dec:     dec,
		factory: factory,
		filter:  cfg.Filter,
		log:     cfg.Logger,
	}
}

// NewRecordReader wraps dec with the Identity factory.
func NewRecordReader(dec Decoder, opts ...Option) *Reader[Record] {
	return NewReader[Record](dec, Identity, opts...)
}

// Open opens the underlying decoder, closing a previous source first.
func (r *Reader[T]) Open(src any) error {
	if r.open {
		if err := r.Close(); err != nil {
			return err
		}
	}
	if err := r.dec.Open(src); err != nil {
		return err
	}
	r.open = true
	return nil
}

// Close closes the underlying decoder. Closing twice is a no-op.
func (r *Reader[T]) Close() error {
	r.open = false
	return r.dec.Close()
}

// IsOpen reports whether the reader was opened and not closed since.
func (r *Reader[T]) IsOpen() bool { return r.open }

// SetFilter installs f, replacing any previous filter.
func (r *Reader[T]) SetFilter(f Filter) { r.filter = f }

// Filter returns the installed filter or nil.
func (r *Reader[T]) Filter() Filter { return r.filter }

// UnsetFilter removes the filter.
func (r *Reader[T]) UnsetFilter() { r.filter = nil }

// Read returns the next record built by the factory. Records skipped by
// the filter are passed over. At the end of input Read returns io.EOF,
// on every call. Factory failures are returned as *FactoryError.
func (r *Reader[T]) Read() (T, error) {
	var zero T
	for {
		rec, err := r.dec.ReadOne()
		if err != nil {
			return zero, err
		}
		if r.filter != nil {
			out, keep := r.filter(rec)
			if !keep {
				r.log.WithField("fields", len(rec.Fields)).Debug("pica: record skipped by filter")
				continue
			}
			rec = out
		}
		if r.factory == nil {
			return zero, &FactoryError{Err: errNoFactory}
		}
		v, err := r.factory(rec)
		if err != nil {
			return zero, &FactoryError{Err: err}
		}
		return v, nil
	}
}
