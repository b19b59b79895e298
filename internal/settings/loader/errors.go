package loader

import (
	"errors"
	"fmt"
)

// Kind classifies a load failure.
type Kind uint8

const (
	// KindNone means no error.
	KindNone Kind = iota
	// KindCannotOpen means the file could not be opened.
	KindCannotOpen
	// KindFileHandle means the open file could not be inspected.
	KindFileHandle
	// KindRead means reading the file failed.
	KindRead
	// KindSeek means seeking within the file failed.
	KindSeek
	// KindParse means the content is not a valid settings document.
	KindParse
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindCannotOpen:
		return "cannot_open"
	case KindFileHandle:
		return "file_handle"
	case KindRead:
		return "read"
	case KindSeek:
		return "seek"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrCannotOpen = errors.New("cannot open settings file")
	ErrFileHandle = errors.New("settings file handle error")
	ErrRead       = errors.New("settings file read error")
	ErrSeek       = errors.New("settings file seek error")
	ErrParse      = errors.New("settings parse error")
)

// Error describes a failed load.
type Error struct {
	// Kind is the failure class.
	Kind Kind
	// Path is the file or source that failed to load.
	Path string
	// Line and Column locate a parse error, when the format reports it.
	Line   int
	Column int
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Kind == KindParse && e.Line > 0 {
		return fmt.Sprintf("%s: %s at line %d, column %d: %v", e.Path, e.Kind, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

func (k Kind) sentinel() error {
	switch k {
	case KindCannotOpen:
		return ErrCannotOpen
	case KindFileHandle:
		return ErrFileHandle
	case KindRead:
		return ErrRead
	case KindSeek:
		return ErrSeek
	case KindParse:
		return ErrParse
	default:
		return nil
	}
}

// KindOf returns the kind of a load error, KindNone for nil, and
// KindRead for errors that did not come from this package.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindRead
}
