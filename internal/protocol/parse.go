package protocol

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// maxLineSize bounds a single protocol line when parsing.
const maxLineSize = 1 << 20

// Schema is a parsed schema declaration.
type Schema struct {
	Index  int
	Name   string
	Fields []Field
}

// Sample is a parsed data line. Values are unescaped text.
type Sample struct {
	Time        float64
	SchemaIndex int
	Seq         uint64
	Values      []string
}

// Stream is everything read from one sink.
//
// A sender retransmits its full header after every reconnect, so a stream
// may contain several header blocks. HeaderBlocks counts them; schemas are
// merged by index and must agree between blocks.
type Stream struct {
	Header       Header
	Schemas      []Schema
	Samples      []Sample
	HeaderBlocks int
}

// Schema returns the schema with the given index.
func (s *Stream) Schema(index int) (Schema, bool) {
	for _, sc := range s.Schemas {
		if sc.Index == index {
			return sc, true
		}
	}
	return Schema{}, false
}

// Parse reads protocol text until EOF.
func Parse(r io.Reader) (*Stream, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	s := &Stream{}
	inHeader := false
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if strings.HasPrefix(line, "protocol:") {
			inHeader = true
			s.HeaderBlocks++
		}

		if inHeader {
			if line == "" {
				inHeader = false
				continue
			}
			if err := s.parseHeaderLine(line); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			continue
		}

		if line == "" {
			continue
		}
		if s.HeaderBlocks == 0 {
			return nil, fmt.Errorf("%w: line %d: data before header", ErrMalformed, lineNo)
		}
		// Schemas registered after the header went out arrive inline.
		if strings.HasPrefix(line, "schema:") {
			if err := s.parseHeaderLine(line); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			continue
		}
		sample, err := s.parseDataLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		s.Samples = append(s.Samples, sample)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading protocol stream: %w", err)
	}
	if s.HeaderBlocks == 0 {
		return nil, fmt.Errorf("%w: no header", ErrMalformed)
	}
	return s, nil
}

func (s *Stream) parseHeaderLine(line string) error {
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return fmt.Errorf("%w: header line %q", ErrMalformed, line)
	}
	value = strings.TrimSpace(value)

	switch key {
	case "protocol":
		v, err := strconv.Atoi(value)
		if err != nil || v != Version {
			return fmt.Errorf("%w: unsupported protocol %q", ErrMalformed, value)
		}
	case "experiment-id":
		s.Header.Domain = value
	case "start_time":
		sec, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: start_time %q", ErrMalformed, value)
		}
		s.Header.StartTime = time.Unix(sec, 0)
	case "sender-id":
		s.Header.SenderID = value
	case "app-name":
		s.Header.AppName = value
	case "schema":
		sc, err := parseSchema(value)
		if err != nil {
			return err
		}
		return s.mergeSchema(sc)
	}
	// Unknown keys (e.g. content) are ignored.
	return nil
}

func parseSchema(value string) (Schema, error) {
	parts := strings.Fields(value)
	if len(parts) < 2 {
		return Schema{}, fmt.Errorf("%w: schema %q", ErrMalformed, value)
	}
	index, err := strconv.Atoi(parts[0])
	if err != nil {
		return Schema{}, fmt.Errorf("%w: schema index %q", ErrMalformed, parts[0])
	}

	sc := Schema{Index: index, Name: parts[1]}
	for _, p := range parts[2:] {
		name, typ, ok := strings.Cut(p, ":")
		if !ok {
			return Schema{}, fmt.Errorf("%w: schema field %q", ErrMalformed, p)
		}
		ft, _, err := ParseFieldType(typ)
		if err != nil {
			return Schema{}, err
		}
		sc.Fields = append(sc.Fields, Field{Name: name, Type: ft})
	}
	return sc, nil
}

func (s *Stream) mergeSchema(sc Schema) error {
	existing, ok := s.Schema(sc.Index)
	if !ok {
		s.Schemas = append(s.Schemas, sc)
		return nil
	}
	if SchemaLine(existing.Index, existing.Name, existing.Fields) != SchemaLine(sc.Index, sc.Name, sc.Fields) {
		return fmt.Errorf("%w: schema %d redefined", ErrMalformed, sc.Index)
	}
	return nil
}

func (s *Stream) parseDataLine(line string) (Sample, error) {
	parts := strings.Split(line, "\t")
	if len(parts) < 3 {
		return Sample{}, fmt.Errorf("%w: data line %q", ErrMalformed, line)
	}

	t, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return Sample{}, fmt.Errorf("%w: timestamp %q", ErrMalformed, parts[0])
	}
	index, err := strconv.Atoi(parts[1])
	if err != nil {
		return Sample{}, fmt.Errorf("%w: schema index %q", ErrMalformed, parts[1])
	}
	seq, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return Sample{}, fmt.Errorf("%w: sequence %q", ErrMalformed, parts[2])
	}

	sc, ok := s.Schema(index)
	if !ok {
		return Sample{}, fmt.Errorf("%w: sample references unknown schema %d", ErrMalformed, index)
	}
	values := parts[3:]
	if len(values) != len(sc.Fields) {
		return Sample{}, fmt.Errorf("%w: schema %d has %d fields, sample has %d",
			ErrMalformed, index, len(sc.Fields), len(values))
	}

	sample := Sample{Time: t, SchemaIndex: index, Seq: seq, Values: make([]string, len(values))}
	for i, v := range values {
		sample.Values[i] = Unescape(v)
	}
	return sample, nil
}
