package protocol

import "errors"

// Sentinel errors for protocol formatting and parsing.
var (
	// ErrUnknownType indicates a field type outside string, int32 and double.
	ErrUnknownType = errors.New("protocol: unknown field type")

	// ErrTypeMismatch indicates a sample value that cannot be encoded as the
	// declared field type.
	ErrTypeMismatch = errors.New("protocol: value does not match field type")

	// ErrMalformed indicates input that is not valid protocol text.
	ErrMalformed = errors.New("protocol: malformed input")
)
