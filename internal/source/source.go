// Package source opens command line inputs, undoing gzip or zstd
// compression found by magic number.
package source

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Stdin is the path naming standard input.
const Stdin = "-"

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Compression names the detected wrapping of an input.
type Compression string

const (
	None Compression = "none"
	Gzip Compression = "gzip"
	Zstd Compression = "zstd"
)

// Input is an opened, decompressed source. Close releases the decompressor
// and the underlying file.
type Input struct {
	io.Reader
	Name        string
	Compression Compression
	closers     []func() error
}

// Close closes every layer, innermost first, and reports all failures.
func (in *Input) Close() error {
	var result error
	for _, c := range in.closers {
		if err := c(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	in.closers = nil
	return result
}

// Open opens path, or standard input for "-". Standard input is never closed.
func Open(path string) (*Input, error) {
	if path == Stdin {
		return Wrap("stdin", os.Stdin, nil)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	in, err := Wrap(path, f, f.Close)
	if err != nil {
		f.Close()
		return nil, err
	}
	return in, nil
}

// Wrap sniffs r and stacks a decompressor on top of it when needed. closeFn
// may be nil.
func Wrap(name string, r io.Reader, closeFn func() error) (*Input, error) {
	br := bufio.NewReader(r)
	in := &Input{Name: name, Compression: None}
	magic, _ := br.Peek(len(zstdMagic))
	switch {
	case bytes.HasPrefix(magic, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("%s: gzip header: %w", name, err)
		}
		in.Reader = zr
		in.Compression = Gzip
		in.closers = append(in.closers, zr.Close)
	case bytes.HasPrefix(magic, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("%s: zstd header: %w", name, err)
		}
		in.Reader = zr
		in.Compression = Zstd
		in.closers = append(in.closers, func() error {
			zr.Close()
			return nil
		})
	default:
		in.Reader = br
	}
	if closeFn != nil {
		in.closers = append(in.closers, closeFn)
	}
	return in, nil
}
