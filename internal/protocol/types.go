package protocol

import (
	"fmt"
	"strings"
)

// Version is the protocol version announced in every header block.
const Version = 3

// FieldType is the wire type of a measurement point field.
type FieldType string

// Supported field types.
const (
	TypeString FieldType = "string"
	TypeInt32  FieldType = "int32"
	TypeDouble FieldType = "double"
)

// Field describes one column of a measurement point.
type Field struct {
	Name string
	Type FieldType
}

// String returns the schema form "name:type".
func (f Field) String() string {
	return f.Name + ":" + string(f.Type)
}

// ParseFieldType normalises a declared type name.
//
// An empty name defaults to string. The legacy aliases "long" and "boolean"
// map to int32; deprecated is true for "long" so callers can warn about it.
func ParseFieldType(name string) (ft FieldType, deprecated bool, err error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "string":
		return TypeString, false, nil
	case "int32":
		return TypeInt32, false, nil
	case "double":
		return TypeDouble, false, nil
	case "long":
		return TypeInt32, true, nil
	case "boolean":
		return TypeInt32, false, nil
	default:
		return "", false, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
}
