package document

import "errors"

// Errors returned by document operations.
var (
	// ErrInvalidPointer indicates a malformed JSON Pointer.
	ErrInvalidPointer = errors.New("invalid json pointer")

	// ErrInvalidJSON indicates bytes that are not a single valid JSON value.
	ErrInvalidJSON = errors.New("invalid json")

	// ErrIndexOutOfRange indicates an array index too far past the end to pad.
	ErrIndexOutOfRange = errors.New("array index out of range")
)
