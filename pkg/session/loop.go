package session

import (
	"errors"
	"time"

	"github.com/viewgate-dev/viewgate/pkg/wire"
)

// Run drives the relay loop until the Session leaves Running. Each iteration
// pumps backend-originated messages (at most once per
// ServerMessageHandleFrequency), sends keepalive syncs (once per
// SyncFrequency), and polls the transport for inbound instructions with a
// wait bounded by the nearer of those two deadlines.
//
// Run returns when the Session is Stopping: after a client disconnect, a
// handler failure, a transport failure, or an external Stop. The caller is
// responsible for invoking Teardown afterward.
func (s *Session) Run() {
	pumpFreq := s.config.ServerMessageHandleFrequency.Milliseconds()
	syncFreq := s.config.SyncFrequency.Milliseconds()

	// Zero so a backend with a server-message handler is pumped on the
	// first iteration.
	var lastPump int64

	s.logger.Info("relay loop started")

	for s.State() == StateRunning {
		now := s.clock.Now().UnixMilli()

		// Pump backend-originated messages. Pumping is suspended while
		// the client is behind on sync acknowledgments so a stalled
		// client is not flooded.
		if s.Handlers.ServerMessages != nil && s.clientLive() && now-lastPump >= pumpFreq {
			start := s.clock.Now()
			err := s.invokeHandler("server_messages", func() error {
				return s.Handlers.ServerMessages(s)
			})
			lastPump = s.clock.Now().UnixMilli()
			s.obs.PumpCompleted(s, s.clock.Now().Sub(start), err)
			if err != nil {
				s.logger.Error("server message handler failed", "error", err)
				s.Stop()
				break
			}
			now = lastPump
		}

		// Keepalive sync probe.
		if now-s.lastSent.Load() >= syncFreq {
			if err := s.sendSync(now); err != nil {
				break // Send already stopped the session
			}
		}

		// Bounded poll until the next pump or sync deadline.
		ins, err := s.conn.ReadInstruction(s.pollTimeout(now, lastPump))
		switch {
		case err == nil:
			start := s.clock.Now()
			derr := s.Dispatch(ins)
			s.obs.InstructionDispatched(s, ins, s.clock.Now().Sub(start), derr)
			if derr == nil {
				break
			}
			if errors.Is(derr, ErrProtocolViolation) {
				// Tolerated: a single malformed instruction must not
				// take the gateway down with a buggy client.
				s.logger.Warn("protocol violation",
					"instruction", ins.String(),
					"error", derr)
				break
			}
			s.logger.Error("handler failed", "error", derr)
			s.Stop()

		case errors.Is(err, wire.ErrReadTimeout):
			// Nothing arrived before the next deadline.

		default:
			s.logger.Error("transport failure", "error", err)
			s.Stop()
		}
	}

	s.logger.Info("relay loop stopped", "state", s.State())
}

// maxPoll bounds a single transport wait so an external Stop is observed
// promptly even when the next sync or pump deadline is far off.
const maxPoll = 250 * time.Millisecond

// pollTimeout returns the remaining time to the nearest scheduled deadline:
// the next server-message pump (when pumping is active) or the next sync
// send. Never less than one millisecond so the loop always yields to the
// transport, and never more than maxPoll.
func (s *Session) pollTimeout(now, lastPump int64) time.Duration {
	deadline := s.lastSent.Load() + s.config.SyncFrequency.Milliseconds()

	if s.Handlers.ServerMessages != nil && s.clientLive() {
		if pd := lastPump + s.config.ServerMessageHandleFrequency.Milliseconds(); pd < deadline {
			deadline = pd
		}
	}

	d := deadline - now
	if d < 1 {
		d = 1
	}
	if limit := maxPoll.Milliseconds(); d > limit {
		d = limit
	}
	return time.Duration(d) * time.Millisecond
}
