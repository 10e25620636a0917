package wire

import (
	"errors"
	"time"
)

// Transport errors.
var (
	// ErrReadTimeout is returned by ReadInstruction when no instruction
	// arrives within the bounded wait. It is not a failure; the relay loop
	// polls with short timeouts to honor its pump and sync deadlines.
	ErrReadTimeout = errors.New("wire: read timeout")

	// ErrConnClosed is returned by reads and writes on a closed Conn.
	ErrConnClosed = errors.New("wire: connection closed")
)

// Conn is the transport collaborator: a bidirectional instruction stream to
// the web-facing client. A Conn is exclusively owned by one Session; the
// runtime never shares it.
type Conn interface {
	// ReadInstruction blocks until an instruction arrives, the timeout
	// elapses (ErrReadTimeout), or the transport fails. A zero or negative
	// timeout polls without waiting.
	ReadInstruction(timeout time.Duration) (*Instruction, error)

	// WriteInstruction encodes and sends one instruction.
	WriteInstruction(ins *Instruction) error

	// Close releases the underlying transport. Safe to call more than once.
	Close() error
}

// Codec is the instruction codec collaborator: it owns the byte-level
// encoding of instructions. Implementations must be safe for use by a single
// Conn; they are not required to be safe for concurrent use.
type Codec interface {
	Encode(ins *Instruction) ([]byte, error)
	Decode(data []byte) (*Instruction, error)
}
