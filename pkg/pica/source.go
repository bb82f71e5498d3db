package pica

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// readerFrom adapts a source to an io.Reader. The returned closer is non-nil
// when the source itself must be closed with the decoder.
func readerFrom(src any) (io.Reader, io.Closer, error) {
	switch s := src.(type) {
	case string:
		return strings.NewReader(s), nil, nil
	case []byte:
		return bytes.NewReader(s), nil, nil
	case io.Reader:
		closer, _ := s.(io.Closer)
		return s, closer, nil
	}
	return nil, nil, fmt.Errorf("%w: %T", ErrInvalidSource, src)
}

// textFrom reads a whole source into memory.
func textFrom(src any) (string, io.Closer, error) {
	switch s := src.(type) {
	case string:
		return s, nil, nil
	case []byte:
		return string(s), nil, nil
	}
	r, closer, err := readerFrom(src)
	if err != nil {
		return "", nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", closer, &StreamIOError{Err: err}
	}
	return string(data), closer, nil
}
