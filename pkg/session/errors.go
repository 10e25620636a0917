package session

import (
	"errors"
	"fmt"
)

// Sentinel errors for session construction and dispatch.
var (
	// ErrBackendInit is returned when a backend module's Init entrypoint
	// signals failure or exceeds InitTimeout. The partially constructed
	// Session is discarded; no handler, including teardown, is invoked.
	ErrBackendInit = errors.New("session: backend init failed")

	// ErrProtocolViolation marks an instruction the dispatcher cannot
	// route: an unrecognized opcode or malformed arguments. Violations are
	// reported but do not terminate the Session.
	ErrProtocolViolation = errors.New("session: protocol violation")

	// ErrSessionClosed is returned when an operation is attempted on a
	// Session whose resources are already released.
	ErrSessionClosed = errors.New("session: session closed")
)

// HandlerError wraps a failure (error return or panic) from a backend
// handler. Any HandlerError transitions the Session to Stopping.
type HandlerError struct {
	SessionID string
	Handler   string // handler slot name: "server_messages", "pointer", ...
	Err       error  // non-nil for error returns
	Panic     any    // non-nil for panics
	Stack     []byte // captured stack for panics
}

// Error returns the error message with session context.
func (e *HandlerError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("session %s: %s handler panic: %v", e.SessionID, e.Handler, e.Panic)
	}
	return fmt.Sprintf("session %s: %s handler: %v", e.SessionID, e.Handler, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// violation builds a ProtocolViolation error for the given opcode.
func violation(opcode string, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: %s: %v", ErrProtocolViolation, opcode, cause)
	}
	return fmt.Errorf("%w: unrecognized opcode %q", ErrProtocolViolation, opcode)
}
