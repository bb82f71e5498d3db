package pica

import (
	"errors"
	"fmt"
)

// ErrInvalidSource is returned by Open for sources that are neither a
// string, a byte slice nor an io.Reader.
var ErrInvalidSource = errors.New("pica: invalid source")

// MalformedFieldError reports a field that does not match the tag,
// occurrence and subfield grammar of its serialization.
type MalformedFieldError struct {
	Format string
	// Line is the 1-based line of a plain-text field, zero otherwise.
	Line int
	// Offset is the byte offset of a normalized field, -1 otherwise.
	Offset int64
	Raw    string
	Reason string
	Err    error
}

func (e *MalformedFieldError) Error() string {
	where := ""
	switch {
	case e.Line > 0:
		where = fmt.Sprintf(" at line %d", e.Line)
	case e.Offset >= 0:
		where = fmt.Sprintf(" at offset %d", e.Offset)
	}
	reason := e.Reason
	if reason == "" && e.Err != nil {
		reason = e.Err.Error()
	}
	return fmt.Sprintf("pica %s: malformed field%s: %s: %q", e.Format, where, reason, e.Raw)
}

func (e *MalformedFieldError) Unwrap() error { return e.Err }

// StreamIOError wraps a failure of the underlying input other than its
// normal end.
type StreamIOError struct {
	Err error
}

func (e *StreamIOError) Error() string { return fmt.Sprintf("pica: reading input: %v", e.Err) }

func (e *StreamIOError) Unwrap() error { return e.Err }

// FactoryError wraps a failure of the record factory.
type FactoryError struct {
	Err error
}

func (e *FactoryError) Error() string { return fmt.Sprintf("pica: creating record: %v", e.Err) }

func (e *FactoryError) Unwrap() error { return e.Err }
