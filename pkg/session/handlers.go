package session

import (
	"github.com/viewgate-dev/viewgate/pkg/wire"
)

// Handlers is the capability set a backend module registers during Init.
// Every slot is optional: a nil slot means the capability is unsupported and
// matching instructions are silently discarded.
//
// The table is populated once, before the relay loop starts, and must not be
// mutated afterward. Handlers are never invoked concurrently for the same
// Session, so a backend may assume single-threaded access to the state it
// stored in Session.Data.
type Handlers struct {
	// ServerMessages is the pump for backend-originated activity. The
	// relay loop invokes it at most once per ServerMessageHandleFrequency,
	// and suspends it while the client is behind on sync acknowledgments.
	// It is expected to return promptly; a handler that blocks stalls its
	// own Session but never any other.
	ServerMessages func(s *Session) error

	// Pointer receives pointer events. mask is the bitwise union of the
	// buttons currently pressed.
	Pointer func(s *Session, x, y int, mask wire.ButtonMask) error

	// Key receives key events for the given X11 keysym.
	Key func(s *Session, keysym int, pressed bool) error

	// Clipboard receives clipboard text, already unescaped from the wire
	// encoding.
	Clipboard func(s *Session, text string) error

	// Teardown releases backend-owned resources. Invoked exactly once,
	// after the relay loop has observed Stopping.
	Teardown func(s *Session) error
}

// Module is the ownership token for a loaded backend module.
//
// Init must populate the Session's Handler Table and opaque Data, or return
// an error; on error the Session is discarded without running any handler.
// Release is called exactly once per Session, after the teardown handler has
// run. For compiled-in modules Release is typically a no-op; a dynamic
// loader would unload its library here.
type Module interface {
	Name() string
	Init(s *Session, args []string) error
	Release() error
}
