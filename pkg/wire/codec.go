package wire

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrMalformed is returned by Decode when the payload is not a valid
// encoded instruction.
var ErrMalformed = errors.New("wire: malformed instruction")

// TextCodec is the canonical instruction encoding: each element is its
// character count, a period, and the value; elements are joined by commas
// and the instruction is terminated by a semicolon.
//
//	4.sync,13.1717243200000;
//	7.pointer,2.10,2.20,1.1;
//
// Lengths count characters, not bytes, so multi-byte text (clipboard
// contents in particular) survives the trip.
type TextCodec struct{}

// Encode implements Codec.
func (TextCodec) Encode(ins *Instruction) ([]byte, error) {
	if ins.Opcode == "" {
		return nil, fmt.Errorf("%w: empty opcode", ErrMalformed)
	}

	var b strings.Builder
	writeElement(&b, ins.Opcode)
	for _, arg := range ins.Args {
		b.WriteByte(',')
		writeElement(&b, arg)
	}
	b.WriteByte(';')
	return []byte(b.String()), nil
}

func writeElement(b *strings.Builder, value string) {
	b.WriteString(strconv.Itoa(utf8.RuneCountInString(value)))
	b.WriteByte('.')
	b.WriteString(value)
}

// Decode implements Codec. The payload must hold exactly one encoded
// instruction.
func (TextCodec) Decode(data []byte) (*Instruction, error) {
	s := string(data)
	var elements []string

	for {
		dot := strings.IndexByte(s, '.')
		if dot < 0 {
			return nil, fmt.Errorf("%w: missing length separator", ErrMalformed)
		}
		length, err := strconv.Atoi(s[:dot])
		if err != nil || length < 0 {
			return nil, fmt.Errorf("%w: bad element length %q", ErrMalformed, s[:dot])
		}
		s = s[dot+1:]

		// Seek past length characters, not bytes.
		end := 0
		for i := 0; i < length; i++ {
			if end >= len(s) {
				return nil, fmt.Errorf("%w: element shorter than declared", ErrMalformed)
			}
			_, size := utf8.DecodeRuneInString(s[end:])
			end += size
		}
		elements = append(elements, s[:end])

		if end >= len(s) {
			return nil, fmt.Errorf("%w: missing terminator", ErrMalformed)
		}
		switch s[end] {
		case ',':
			s = s[end+1:]
		case ';':
			if rest := s[end+1:]; rest != "" {
				return nil, fmt.Errorf("%w: trailing data after terminator", ErrMalformed)
			}
			return &Instruction{Opcode: elements[0], Args: elements[1:]}, nil
		default:
			return nil, fmt.Errorf("%w: bad element terminator %q", ErrMalformed, s[end])
		}
	}
}
