package wire

import (
	"errors"
	"reflect"
	"testing"
)

func TestTextCodecEncode(t *testing.T) {
	tests := []struct {
		name string
		ins  *Instruction
		want string
	}{
		{
			name: "no args",
			ins:  NewDisconnect(),
			want: "10.disconnect;",
		},
		{
			name: "pointer",
			ins:  NewPointer(10, 20, ButtonLeft),
			want: "7.pointer,2.10,2.20,1.1;",
		},
		{
			name: "empty arg",
			ins:  &Instruction{Opcode: "clipboard", Args: []string{""}},
			want: "9.clipboard,0.;",
		},
		{
			name: "multibyte text counts characters",
			ins:  &Instruction{Opcode: "clipboard", Args: []string{"héllo"}},
			want: "9.clipboard,5.héllo;",
		},
	}

	var codec TextCodec
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := codec.Encode(tt.ins)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTextCodecEncodeEmptyOpcode(t *testing.T) {
	var codec TextCodec
	if _, err := codec.Encode(&Instruction{}); !errors.Is(err, ErrMalformed) {
		t.Errorf("Encode() error = %v, want ErrMalformed", err)
	}
}

func TestTextCodecDecode(t *testing.T) {
	tests := []struct {
		name string
		data string
		want *Instruction
	}{
		{
			name: "no args",
			data: "10.disconnect;",
			want: &Instruction{Opcode: "disconnect", Args: []string{}},
		},
		{
			name: "pointer",
			data: "7.pointer,2.10,2.20,1.1;",
			want: &Instruction{Opcode: "pointer", Args: []string{"10", "20", "1"}},
		},
		{
			name: "empty arg",
			data: "9.clipboard,0.;",
			want: &Instruction{Opcode: "clipboard", Args: []string{""}},
		},
		{
			name: "multibyte text",
			data: "9.clipboard,5.héllo;",
			want: &Instruction{Opcode: "clipboard", Args: []string{"héllo"}},
		},
		{
			name: "value containing separators",
			data: "9.clipboard,5.a,b;c;",
			want: &Instruction{Opcode: "clipboard", Args: []string{"a,b;c"}},
		},
	}

	var codec TextCodec
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := codec.Decode([]byte(tt.data))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got.Opcode != tt.want.Opcode || !reflect.DeepEqual(got.Args, tt.want.Args) {
				t.Errorf("Decode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTextCodecDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"no length separator", "sync;"},
		{"negative length", "-1.x;"},
		{"non-numeric length", "x.sync;"},
		{"short element", "9.sync;"},
		{"missing terminator", "4.sync"},
		{"bad terminator", "4.sync|"},
		{"trailing data", "4.sync;extra"},
	}

	var codec TextCodec
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := codec.Decode([]byte(tt.data)); !errors.Is(err, ErrMalformed) {
				t.Errorf("Decode(%q) error = %v, want ErrMalformed", tt.data, err)
			}
		})
	}
}

func TestTextCodecRoundTrip(t *testing.T) {
	var codec TextCodec
	ins := NewClipboard("line one\nline two, with 4.fake;elements")

	data, err := codec.Encode(ins)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := codec.Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.Opcode != ins.Opcode || !reflect.DeepEqual(got.Args, ins.Args) {
		t.Errorf("round trip = %v, want %v", got, ins)
	}
}
