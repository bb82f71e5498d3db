// Package octet provides a buffered single-octet cursor over an io.Reader.
package octet

import (
	"errors"
	"fmt"
	"io"
)

// DefaultBufferSize is the refill size used when none is given.
const DefaultBufferSize = 4096

const maxEmptyReads = 100

// ReadError wraps a failure of the underlying reader other than io.EOF.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string { return fmt.Sprintf("read input stream: %v", e.Err) }

func (e *ReadError) Unwrap() error { return e.Err }

// Cursor reads one octet at a time through an owned buffer that is refilled
// from the source when exhausted. The cursor is at its end once the source
// reported io.EOF and the buffer is drained.
type Cursor struct {
	src     io.Reader
	buf     []byte
	pos     int
	n       int
	offset  int64
	eof     bool
	err     error
	pending error
}

// NewCursor returns a cursor over src. A size below one selects
// DefaultBufferSize.
func NewCursor(src io.Reader, size int) *Cursor {
	if size < 1 {
		size = DefaultBufferSize
	}
	return &Cursor{src: src, buf: make([]byte, size)}
}

// Offset is the number of octets consumed so far.
func (c *Cursor) Offset() int64 { return c.offset }

// AtEnd reports whether source and buffer are both exhausted.
func (c *Cursor) AtEnd() (bool, error) {
	if err := c.fill(); err != nil {
		return false, err
	}
	return c.pos == c.n && c.eof, nil
}

// Peek returns the next octet without consuming it. It returns io.EOF at the end.
func (c *Cursor) Peek() (byte, error) {
	if err := c.fill(); err != nil {
		return 0, err
	}
	if c.pos == c.n {
		return 0, io.EOF
	}
	return c.buf[c.pos], nil
}

// Next consumes and returns the next octet. It returns io.EOF at the end.
func (c *Cursor) Next() (byte, error) {
	b, err := c.Peek()
	if err != nil {
		return 0, err
	}
	c.pos++
	c.offset++
	return b, nil
}

// SkipWhile consumes octets as long as keep reports true. Reaching the end
// is not an error.
func (c *Cursor) SkipWhile(keep func(byte) bool) error {
	for {
		b, err := c.Peek()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if !keep(b) {
			return nil
		}
		c.pos++
		c.offset++
	}
}

// ReadUntil appends octets to dst up to, not including, the first octet for
// which stop reports true or the end of input.
func (c *Cursor) ReadUntil(dst []byte, stop func(byte) bool) ([]byte, error) {
	for {
		if err := c.fill(); err != nil {
			return dst, err
		}
		if c.pos == c.n {
			return dst, nil
		}
		chunk := c.buf[c.pos:c.n]
		for i, b := range chunk {
			if stop(b) {
				dst = append(dst, chunk[:i]...)
				c.pos += i
				c.offset += int64(i)
				return dst, nil
			}
		}
		dst = append(dst, chunk...)
		c.pos = c.n
		c.offset += int64(len(chunk))
	}
}

func (c *Cursor) fill() error {
	if c.err != nil {
		return c.err
	}
	if c.pos < c.n || c.eof {
		return nil
	}
	if c.pending != nil {
		c.err, c.pending = c.pending, nil
		return c.err
	}
	for i := 0; i < maxEmptyReads; i++ {
		n, err := c.src.Read(c.buf)
		if n < 0 || n > len(c.buf) {
			c.err = &ReadError{Err: fmt.Errorf("invalid read count %d", n)}
			return c.err
		}
		c.pos, c.n = 0, n
		switch {
		case errors.Is(err, io.EOF):
			c.eof = true
			return nil
		case err != nil && n > 0:
			// buffered octets are delivered before the failure surfaces
			c.pending = &ReadError{Err: err}
			return nil
		case err != nil:
			c.err = &ReadError{Err: err}
			return c.err
		case n > 0:
			return nil
		}
	}
	c.err = &ReadError{Err: io.ErrNoProgress}
	return c.err
}
