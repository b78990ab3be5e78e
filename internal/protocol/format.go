package protocol

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Header holds the per-connection values announced before any schema.
type Header struct {
	Domain    string
	StartTime time.Time
	SenderID  string
	AppName   string
}

// Lines returns the header block without schema lines, in wire order.
func (h Header) Lines() []string {
	return []string{
		"protocol: " + strconv.Itoa(Version),
		"experiment-id: " + h.Domain,
		"start_time: " + strconv.FormatInt(h.StartTime.Unix(), 10),
		"sender-id: " + h.SenderID,
		"app-name: " + h.AppName,
		"content: text",
	}
}

// SchemaLine formats the schema declaration of a measurement point.
//
// Example: schema: 2 probe_cpu load:double core:int32
func SchemaLine(index int, name string, fields []Field) string {
	var b strings.Builder
	b.WriteString("schema: ")
	b.WriteString(strconv.Itoa(index))
	b.WriteByte(' ')
	b.WriteString(name)
	for _, f := range fields {
		b.WriteByte(' ')
		b.WriteString(f.String())
	}
	return b.String()
}

// SchemaIndex reports the index declared by a line produced by SchemaLine.
func SchemaIndex(line string) (int, bool) {
	rest, ok := strings.CutPrefix(line, "schema: ")
	if !ok {
		return 0, false
	}
	num, _, _ := strings.Cut(rest, " ")
	idx, err := strconv.Atoi(num)
	if err != nil {
		return 0, false
	}
	return idx, true
}

// DataLine formats one sample. The values must already be encoded with
// FormatValue.
func DataLine(elapsed time.Duration, index int, seq uint64, values []string) string {
	var b strings.Builder
	b.WriteString(strconv.FormatFloat(elapsed.Seconds(), 'f', -1, 64))
	b.WriteByte('\t')
	b.WriteString(strconv.Itoa(index))
	b.WriteByte('\t')
	b.WriteString(strconv.FormatUint(seq, 10))
	for _, v := range values {
		b.WriteByte('\t')
		b.WriteString(v)
	}
	return b.String()
}

// FormatValue encodes v as the text form of field type ft.
//
// Booleans are accepted for numeric fields and encode as 1 or 0. Integers
// are accepted for double fields. Strings are escaped so that tabs and
// newlines cannot break the line framing.
func FormatValue(ft FieldType, v any) (string, error) {
	switch ft {
	case TypeString:
		switch val := v.(type) {
		case string:
			return Escape(val), nil
		case []byte:
			return Escape(string(val)), nil
		case fmt.Stringer:
			return Escape(val.String()), nil
		}
	case TypeInt32:
		if b, ok := v.(bool); ok {
			return boolText(b), nil
		}
		if n, ok := asInt64(v); ok {
			if n < math.MinInt32 || n > math.MaxInt32 {
				return "", fmt.Errorf("%w: %d overflows int32", ErrTypeMismatch, n)
			}
			return strconv.FormatInt(n, 10), nil
		}
	case TypeDouble:
		switch val := v.(type) {
		case bool:
			return boolText(val), nil
		case float64:
			return strconv.FormatFloat(val, 'g', -1, 64), nil
		case float32:
			return strconv.FormatFloat(float64(val), 'g', -1, 32), nil
		}
		if n, ok := asInt64(v); ok {
			return strconv.FormatInt(n, 10), nil
		}
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, ft)
	}
	return "", fmt.Errorf("%w: %T for %s", ErrTypeMismatch, v, ft)
}

// Normalize converts v to the Go value that represents it for field type
// ft: string, int64 for int32 fields or float64 for double fields. It
// applies the same acceptance rules as FormatValue.
func Normalize(ft FieldType, v any) (any, error) {
	switch ft {
	case TypeString:
		switch val := v.(type) {
		case string:
			return val, nil
		case []byte:
			return string(val), nil
		case fmt.Stringer:
			return val.String(), nil
		}
	case TypeInt32:
		if b, ok := v.(bool); ok {
			if b {
				return int64(1), nil
			}
			return int64(0), nil
		}
		if n, ok := asInt64(v); ok {
			if n < math.MinInt32 || n > math.MaxInt32 {
				return nil, fmt.Errorf("%w: %d overflows int32", ErrTypeMismatch, n)
			}
			return n, nil
		}
	case TypeDouble:
		switch val := v.(type) {
		case bool:
			if val {
				return 1.0, nil
			}
			return 0.0, nil
		case float64:
			return val, nil
		case float32:
			return float64(val), nil
		}
		if n, ok := asInt64(v); ok {
			return float64(n), nil
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, ft)
	}
	return nil, fmt.Errorf("%w: %T for %s", ErrTypeMismatch, v, ft)
}

func boolText(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// asInt64 reports the value of any integer kind. Unsigned values above
// MaxInt64 are rejected.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

var (
	escaper   = strings.NewReplacer(`\`, `\\`, "\t", `\t`, "\n", `\n`, "\r", `\r`)
	unescaper = strings.NewReplacer(`\\`, `\`, `\t`, "\t", `\n`, "\n", `\r`, "\r")
)

// Escape makes s safe to embed in a tab-separated data line.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Unescape reverses Escape.
func Unescape(s string) string {
	return unescaper.Replace(s)
}
