package filedb

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateKey is returned by Add when the key is already present
	ErrDuplicateKey = errors.New("key already exists")
	// ErrNotFound is returned by Get and Remove for a missing key
	ErrNotFound = errors.New("key not found")
	// ErrClosed is returned by operations on a closed DB
	ErrClosed = errors.New("database is closed")
	// ErrReservedSequence is returned by ValidateText
	ErrReservedSequence = errors.New("contains reserved delimiter sequence")
	// ErrEmptyKey is returned by ValidateKey
	ErrEmptyKey = errors.New("key must not be empty")
	// ErrNotRegularFile means the database path exists but is not a file
	ErrNotRegularFile = errors.New("object specified by path exists, but it is not a valid file")
)

// ParseError describes a line in database file that couldn't be parsed.
// A single bad line fails the whole Open.
type ParseError struct {
	// 1-based index of the record in the file
	Line   int
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	text := e.Text
	if len(text) > 80 {
		text = text[:80] + "..."
	}
	return fmt.Sprintf("line %d %q has incompatible format: %s", e.Line, text, e.Reason)
}

// IOError is returned when the database file can't be read or written
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s '%s': %s", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
