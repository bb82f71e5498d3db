package pica

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/picaplus/picareader/internal/driver"
)

const sniffSize = 512

// NewDecoder returns an unopened decoder for the named format: "plain",
// "norm" or "xml", or one of their aliases.
func NewDecoder(format string, opts ...Option) (Decoder, error) {
	newDec, err := driver.Lookup(format)
	if err != nil {
		return nil, err
	}
	return newDec(buildConfig(opts)), nil
}

// DetectDecoder inspects the first bytes of r and returns a matching
// unopened decoder, its format name and a reader that still yields the
// inspected bytes. Open the decoder with the returned reader.
func DetectDecoder(r io.Reader, opts ...Option) (Decoder, string, io.Reader, error) {
	br := bufio.NewReaderSize(r, sniffSize)
	prefix, err := br.Peek(sniffSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, "", nil, &StreamIOError{Err: err}
	}
	name, newDec, err := driver.Detect(prefix)
	if err != nil {
		return nil, "", nil, err
	}
	return newDec(buildConfig(opts)), name, readCloser(br, r), nil
}

// Formats lists the registered format names.
func Formats() []string { return driver.Names() }

// DecodeAll reads r until io.EOF and calls fn for every record. It stops at
// the first error from r or fn, or when ctx is done.
func DecodeAll[T any](ctx context.Context, r *Reader[T], fn func(T) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		v, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(v); err != nil {
			return fmt.Errorf("handle record: %w", err)
		}
	}
}

type bufferedCloser struct {
	*bufio.Reader
	io.Closer
}

// readCloser keeps the Close method of the original reader, so the decoder
// still releases it.
func readCloser(br *bufio.Reader, orig io.Reader) io.Reader {
	if c, ok := orig.(io.Closer); ok {
		return bufferedCloser{Reader: br, Closer: c}
	}
	return br
}
