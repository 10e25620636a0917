// Package recording captures session instruction streams for later replay.
//
// Recording wraps a session's transport: the decorated wire.Conn taps every
// instruction crossing it, in either direction, into a Sink. The session
// runtime is unaware of the tap.
package recording

import (
	"fmt"
	"time"

	"github.com/viewgate-dev/viewgate/pkg/wire"
)

// Direction marks which way an instruction crossed the transport.
type Direction uint8

const (
	// Inbound instructions came from the client.
	Inbound Direction = iota
	// Outbound instructions went to the client.
	Outbound
)

func (d Direction) String() string {
	switch d {
	case Inbound:
		return "in"
	case Outbound:
		return "out"
	default:
		return fmt.Sprintf("direction(%d)", d)
	}
}

// marker is the single-byte wire form of a Direction in recording segments.
func (d Direction) marker() byte {
	if d == Inbound {
		return '<'
	}
	return '>'
}

// Event is one recorded instruction.
type Event struct {
	// Offset is the time since the recording started.
	Offset time.Duration

	Direction   Direction
	Instruction *wire.Instruction
}

// Sink persists recorded events. Implementations are called from the
// session's relay goroutine and must not block for long; buffer and flush
// on Close.
type Sink interface {
	Record(ev Event) error

	// Close flushes and releases the sink. Called exactly once, after the
	// last Record.
	Close() error
}

// encodeEvent renders one event as a segment line:
//
//	<offset-ms> <marker> <encoded instruction>\n
func encodeEvent(ev Event) ([]byte, error) {
	data, err := wire.TextCodec{}.Encode(ev.Instruction)
	if err != nil {
		return nil, err
	}
	line := fmt.Sprintf("%d %c %s\n", ev.Offset.Milliseconds(), ev.Direction.marker(), data)
	return []byte(line), nil
}
