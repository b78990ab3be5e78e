package measurement

import (
	"errors"

	"github.com/georgevio/oml4go/internal/protocol"
)

// Sentinel errors for registry operations.
var (
	// ErrFrozen indicates a declaration after Freeze.
	ErrFrozen = errors.New("measurement: registry is frozen")

	// ErrMissingName indicates a point without a name at Freeze.
	ErrMissingName = errors.New("measurement: measurement point has no name")

	// ErrMissingDomain indicates a channel whose domain could not be resolved.
	ErrMissingDomain = errors.New("measurement: no domain for channel")

	// ErrUnknownPoint indicates an injection for an undeclared point.
	ErrUnknownPoint = errors.New("measurement: unknown measurement point")

	// ErrSizeMismatch indicates a sample whose value count differs from the schema.
	ErrSizeMismatch = errors.New("measurement: sample size does not match schema")

	// ErrTypeMismatch indicates a value that cannot be encoded as its field type.
	ErrTypeMismatch = protocol.ErrTypeMismatch

	// ErrUnknownType indicates a field declared with an unsupported type.
	ErrUnknownType = protocol.ErrUnknownType
)
