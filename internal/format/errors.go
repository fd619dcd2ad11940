package format

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat is matched by every *Error.
	ErrFormat = errors.New("format: malformed graph file")

	// ErrTruncated is matched by every *TruncatedError.
	ErrTruncated = errors.New("format: truncated graph file")

	// ErrRecordCount is returned by Writer.Close when the number of records
	// written differs from the header.
	ErrRecordCount = errors.New("format: record count differs from header")
)

// Error describes a structurally invalid file.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("format: %s: %v", e.Reason, e.Err)
	}
	return "format: " + e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is ErrFormat.
func (e *Error) Is(target error) bool { return target == ErrFormat }

func formatErrorf(err error, reason string, args ...any) *Error {
	return &Error{Reason: fmt.Sprintf(reason, args...), Err: err}
}

// TruncatedError reports a record stream that ended before the declared count.
type TruncatedError struct {
	Declared uint64
	Read     uint64
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("format: truncated: header declares %d records, stream holds %d", e.Declared, e.Read)
}

// Is reports whether target is ErrTruncated.
func (e *TruncatedError) Is(target error) bool { return target == ErrTruncated }
