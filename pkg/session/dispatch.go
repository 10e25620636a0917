package session

import (
	"github.com/viewgate-dev/viewgate/pkg/wire"
)

// Dispatch routes one decoded instruction.
//
// sync and disconnect are protocol-control instructions handled here and
// never forwarded to the backend: sync counts as the liveness
// acknowledgment, disconnect transitions the Session to Stopping. The event
// opcodes route to the matching Handler Table slot; an absent slot silently
// discards the instruction.
//
// The returned error is nil on success (including discards), wraps
// ErrProtocolViolation for an unrecognized opcode or malformed arguments
// (tolerated; the session continues), or is a *HandlerError when a backend
// handler failed (the caller must stop the session). Every successful
// decode, and only a successful decode, advances lastReceived.
func (s *Session) Dispatch(ins *wire.Instruction) error {
	switch ins.Opcode {
	case wire.OpSync:
		// Acknowledgment of our sync probe. Any arguments are ignored.
		s.markReceived()
		return nil

	case wire.OpDisconnect:
		s.markReceived()
		s.logger.Info("client disconnect")
		s.Stop()
		return nil

	case wire.OpPointer:
		x, y, mask, err := wire.PointerArgs(ins.Args)
		if err != nil {
			return s.reportViolation(ins.Opcode, err)
		}
		s.markReceived()
		if s.Handlers.Pointer == nil {
			return nil
		}
		return s.invokeHandler("pointer", func() error {
			return s.Handlers.Pointer(s, x, y, mask)
		})

	case wire.OpKey:
		keysym, pressed, err := wire.KeyArgs(ins.Args)
		if err != nil {
			return s.reportViolation(ins.Opcode, err)
		}
		s.markReceived()
		if s.Handlers.Key == nil {
			return nil
		}
		return s.invokeHandler("key", func() error {
			return s.Handlers.Key(s, keysym, pressed)
		})

	case wire.OpClipboard:
		text, err := wire.ClipboardArgs(ins.Args)
		if err != nil {
			return s.reportViolation(ins.Opcode, err)
		}
		s.markReceived()
		if s.Handlers.Clipboard == nil {
			return nil
		}
		return s.invokeHandler("clipboard", func() error {
			return s.Handlers.Clipboard(s, text)
		})

	default:
		return s.reportViolation(ins.Opcode, nil)
	}
}

// reportViolation counts and returns a protocol violation.
func (s *Session) reportViolation(opcode string, cause error) error {
	s.violations.Add(1)
	return violation(opcode, cause)
}
