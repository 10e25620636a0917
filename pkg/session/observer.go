package session

import (
	"time"

	"github.com/viewgate-dev/viewgate/pkg/wire"
)

// Observer receives notifications from the relay loop. Implementations back
// metrics, tracing, and recording; see package middleware.
//
// All callbacks are invoked from the Session's own relay goroutine, never
// concurrently for one Session. They must return promptly.
type Observer interface {
	// InstructionDispatched is called after each inbound instruction has
	// been dispatched. err is nil on success, wraps ErrProtocolViolation
	// for tolerated violations, or is a *HandlerError for failures.
	InstructionDispatched(s *Session, ins *wire.Instruction, elapsed time.Duration, err error)

	// SyncSent is called after each server-originated sync send.
	SyncSent(s *Session)

	// PumpCompleted is called after each server-message handler
	// invocation.
	PumpCompleted(s *Session, elapsed time.Duration, err error)

	// SessionClosed is called once, from Teardown, after all Session
	// resources are released.
	SessionClosed(s *Session)
}

// Observers fans out notifications to multiple observers in order.
type Observers []Observer

// InstructionDispatched implements Observer.
func (o Observers) InstructionDispatched(s *Session, ins *wire.Instruction, elapsed time.Duration, err error) {
	for _, ob := range o {
		ob.InstructionDispatched(s, ins, elapsed, err)
	}
}

// SyncSent implements Observer.
func (o Observers) SyncSent(s *Session) {
	for _, ob := range o {
		ob.SyncSent(s)
	}
}

// PumpCompleted implements Observer.
func (o Observers) PumpCompleted(s *Session, elapsed time.Duration, err error) {
	for _, ob := range o {
		ob.PumpCompleted(s, elapsed, err)
	}
}

// SessionClosed implements Observer.
func (o Observers) SessionClosed(s *Session) {
	for _, ob := range o {
		ob.SessionClosed(s)
	}
}

type nopObserver struct{}

func (nopObserver) InstructionDispatched(*Session, *wire.Instruction, time.Duration, error) {}
func (nopObserver) SyncSent(*Session)                                                      {}
func (nopObserver) PumpCompleted(*Session, time.Duration, error)                           {}
func (nopObserver) SessionClosed(*Session)                                                 {}
