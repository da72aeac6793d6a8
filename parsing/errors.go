// Package parsing holds the error kinds and small helpers shared by the
// memory image loader and the execution log parser.
package parsing

import (
	"errors"
	"fmt"
)

var (
	// ErrFileNotFound is returned when an input file is missing or cannot be
	// read.
	ErrFileNotFound = errors.New("file not found")

	// ErrInvalidFormat is returned when a line does not follow the grammar of
	// the file it is read from.
	ErrInvalidFormat = errors.New("invalid format")
)

// A FormatError locates an ErrInvalidFormat failure in its input. Err
// describes what is wrong with the line.
type FormatError struct {
	Path string
	Line int
	Text string
	Err  error
}

// NewFormatError creates a FormatError for the given 1-based line. The format
// follows fmt.Errorf, so %w keeps the cause reachable through errors.Is.
func NewFormatError(line int, text string, format string, args ...any) *FormatError {
	return &FormatError{
		Line: line,
		Text: text,
		Err:  fmt.Errorf(format, args...),
	}
}

func (e *FormatError) Error() string {
	where := fmt.Sprintf("line %d", e.Line)
	if e.Path != "" {
		where = fmt.Sprintf("%s:%d", e.Path, e.Line)
	}

	return fmt.Sprintf("%s: %s: %s (%q)", where, ErrInvalidFormat, e.Err, e.Text)
}

// Unwrap makes errors.Is(err, ErrInvalidFormat) hold for every FormatError,
// next to whatever Err wraps.
func (e *FormatError) Unwrap() []error {
	return []error{ErrInvalidFormat, e.Err}
}
