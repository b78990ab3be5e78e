package protocol

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseFieldType(t *testing.T) {
	tests := []struct {
		input      string
		want       FieldType
		deprecated bool
		wantErr    bool
	}{
		{input: "string", want: TypeString},
		{input: "", want: TypeString},
		{input: "int32", want: TypeInt32},
		{input: "double", want: TypeDouble},
		{input: "DOUBLE", want: TypeDouble},
		{input: "long", want: TypeInt32, deprecated: true},
		{input: "boolean", want: TypeInt32},
		{input: "blob", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, deprecated, err := ParseFieldType(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownType) {
					t.Fatalf("ParseFieldType(%q) error = %v, want ErrUnknownType", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFieldType(%q) error = %v", tt.input, err)
			}
			if got != tt.want || deprecated != tt.deprecated {
				t.Errorf("ParseFieldType(%q) = %q, %v, want %q, %v", tt.input, got, deprecated, tt.want, tt.deprecated)
			}
		})
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name    string
		ft      FieldType
		value   any
		want    string
		wantErr bool
	}{
		{name: "double", ft: TypeDouble, value: 0.42, want: "0.42"},
		{name: "double from int", ft: TypeDouble, value: 3, want: "3"},
		{name: "double from bool", ft: TypeDouble, value: true, want: "1"},
		{name: "int32", ft: TypeInt32, value: int64(-17), want: "-17"},
		{name: "int32 true", ft: TypeInt32, value: true, want: "1"},
		{name: "int32 false", ft: TypeInt32, value: false, want: "0"},
		{name: "int32 overflow", ft: TypeInt32, value: int64(1) << 40, wantErr: true},
		{name: "int32 from float", ft: TypeInt32, value: 1.5, wantErr: true},
		{name: "string", ft: TypeString, value: "eth0", want: "eth0"},
		{name: "string escaped", ft: TypeString, value: "a\tb\nc", want: `a\tb\nc`},
		{name: "string from int", ft: TypeString, value: 7, wantErr: true},
		{name: "string from stringer", ft: TypeString, value: time.Duration(1500) * time.Millisecond, want: "1.5s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatValue(tt.ft, tt.value)
			if tt.wantErr {
				if !errors.Is(err, ErrTypeMismatch) {
					t.Fatalf("FormatValue() error = %v, want ErrTypeMismatch", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FormatValue() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("FormatValue() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		ft      FieldType
		value   any
		want    any
		wantErr error
	}{
		{name: "double", ft: TypeDouble, value: 0.5, want: 0.5},
		{name: "double from uint8", ft: TypeDouble, value: uint8(4), want: 4.0},
		{name: "double from bool", ft: TypeDouble, value: false, want: 0.0},
		{name: "int32", ft: TypeInt32, value: int16(9), want: int64(9)},
		{name: "int32 from bool", ft: TypeInt32, value: true, want: int64(1)},
		{name: "string bytes kept raw", ft: TypeString, value: []byte("a\tb"), want: "a\tb"},
		{name: "int32 overflow", ft: TypeInt32, value: uint32(1) << 31, wantErr: ErrTypeMismatch},
		{name: "unknown type", ft: FieldType("blob"), value: 1, wantErr: ErrUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.ft, tt.value)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Normalize() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Normalize() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestEscapeRoundTrip(t *testing.T) {
	inputs := []string{"plain", "tab\there", "new\nline", `back\slash`, `\t literal`, "\r\n"}
	for _, in := range inputs {
		if got := Unescape(Escape(in)); got != in {
			t.Errorf("Unescape(Escape(%q)) = %q", in, got)
		}
		if strings.ContainsAny(Escape(in), "\t\n") {
			t.Errorf("Escape(%q) still contains framing characters", in)
		}
	}
}

func TestHeaderLines(t *testing.T) {
	h := Header{
		Domain:    "lab1",
		StartTime: time.Unix(1700000000, 500),
		SenderID:  "node7",
		AppName:   "probe",
	}

	want := []string{
		"protocol: 3",
		"experiment-id: lab1",
		"start_time: 1700000000",
		"sender-id: node7",
		"app-name: probe",
		"content: text",
	}
	got := h.Lines()
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("Lines() = %q, want %q", got, want)
	}
}

func TestSchemaLine(t *testing.T) {
	got := SchemaLine(2, "probe_cpu", []Field{{"load", TypeDouble}, {"core", TypeInt32}})
	if want := "schema: 2 probe_cpu load:double core:int32"; got != want {
		t.Errorf("SchemaLine() = %q, want %q", got, want)
	}

	if got := SchemaLine(1, "empty", nil); got != "schema: 1 empty" {
		t.Errorf("SchemaLine() without fields = %q", got)
	}
}

func TestSchemaIndex(t *testing.T) {
	tests := []struct {
		line   string
		want   int
		wantOK bool
	}{
		{SchemaLine(12, "app_cpu", []Field{{"load", TypeDouble}}), 12, true},
		{"schema: 3 empty", 3, true},
		{"0.5\t3\t1\t2", 0, false},
		{"schema: x app_cpu", 0, false},
		{"schema:3 app_cpu", 0, false},
	}
	for _, tt := range tests {
		got, ok := SchemaIndex(tt.line)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("SchemaIndex(%q) = %d, %v, want %d, %v", tt.line, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestDataLine(t *testing.T) {
	got := DataLine(1500*time.Millisecond, 1, 2, []string{"0.42", "eth0"})
	if want := "1.5\t1\t2\t0.42\teth0"; got != want {
		t.Errorf("DataLine() = %q, want %q", got, want)
	}

	if got := DataLine(time.Second, 3, 1, nil); got != "1\t3\t1" {
		t.Errorf("DataLine() without values = %q", got)
	}
}

func TestParse_RoundTrip(t *testing.T) {
	h := Header{Domain: "lab1", StartTime: time.Unix(1700000000, 0), SenderID: "node7", AppName: "probe"}
	fields := []Field{{"load", TypeDouble}, {"iface", TypeString}}

	lines := h.Lines()
	lines = append(lines, SchemaLine(1, "probe_cpu", fields), SchemaLine(2, "probe_tick", nil), "")
	lines = append(lines,
		DataLine(250*time.Millisecond, 1, 1, []string{"0.42", Escape("eth\t0")}),
		DataLine(500*time.Millisecond, 2, 1, nil),
	)
	text := strings.Join(lines, "\n") + "\n"

	s, err := Parse(strings.NewReader(text))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if s.Header != h {
		t.Errorf("Header = %+v, want %+v", s.Header, h)
	}
	if s.HeaderBlocks != 1 {
		t.Errorf("HeaderBlocks = %d, want 1", s.HeaderBlocks)
	}
	if len(s.Schemas) != 2 {
		t.Fatalf("len(Schemas) = %d, want 2", len(s.Schemas))
	}
	sc, ok := s.Schema(1)
	if !ok || sc.Name != "probe_cpu" || len(sc.Fields) != 2 || sc.Fields[1] != fields[1] {
		t.Errorf("Schema(1) = %+v", sc)
	}
	if len(s.Samples) != 2 {
		t.Fatalf("len(Samples) = %d, want 2", len(s.Samples))
	}
	first := s.Samples[0]
	if first.Time != 0.25 || first.SchemaIndex != 1 || first.Seq != 1 {
		t.Errorf("Samples[0] = %+v", first)
	}
	if first.Values[1] != "eth\t0" {
		t.Errorf("Samples[0].Values[1] = %q, want unescaped tab", first.Values[1])
	}
	if len(s.Samples[1].Values) != 0 {
		t.Errorf("Samples[1].Values = %q, want none", s.Samples[1].Values)
	}
}

func TestParse_RepeatedHeader(t *testing.T) {
	block := "protocol: 3\nexperiment-id: d\nstart_time: 10\nsender-id: n\napp-name: a\ncontent: text\nschema: 1 a_x v:int32\n\n"
	text := block + "0.1\t1\t1\t5\n" + block + "0.2\t1\t2\t6\n"

	s, err := Parse(strings.NewReader(text))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if s.HeaderBlocks != 2 {
		t.Errorf("HeaderBlocks = %d, want 2", s.HeaderBlocks)
	}
	if len(s.Schemas) != 1 {
		t.Errorf("len(Schemas) = %d, want 1", len(s.Schemas))
	}
	if len(s.Samples) != 2 {
		t.Errorf("len(Samples) = %d, want 2", len(s.Samples))
	}
}

func TestParse_InlineSchema(t *testing.T) {
	header := "protocol: 3\nexperiment-id: d\nstart_time: 10\nsender-id: n\napp-name: a\ncontent: text\nschema: 1 a_x v:int32\n\n"
	text := header + "0.1\t1\t1\t5\nschema: 2 a_y s:string\n0.2\t2\t1\thello\n"

	s, err := Parse(strings.NewReader(text))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if sc, ok := s.Schema(2); !ok || sc.Name != "a_y" {
		t.Errorf("Schema(2) = %+v, %v", sc, ok)
	}
	if len(s.Samples) != 2 || s.Samples[1].Values[0] != "hello" {
		t.Errorf("Samples = %+v", s.Samples)
	}
}

func TestParse_Errors(t *testing.T) {
	header := "protocol: 3\nexperiment-id: d\nstart_time: 10\nsender-id: n\napp-name: a\ncontent: text\nschema: 1 a_x v:int32\n\n"

	tests := []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "data before header", text: "0.1\t1\t1\t5\n"},
		{name: "wrong protocol", text: "protocol: 2\n\n"},
		{name: "unknown schema", text: header + "0.1\t9\t1\t5\n"},
		{name: "field count", text: header + "0.1\t1\t1\t5\t6\n"},
		{name: "bad sequence", text: header + "0.1\t1\tx\t5\n"},
		{name: "schema redefined", text: header + strings.Replace(header, "v:int32", "v:double", 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.text))
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("Parse() error = %v, want ErrMalformed", err)
			}
		})
	}
}
