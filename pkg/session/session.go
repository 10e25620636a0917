package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viewgate-dev/viewgate/pkg/wire"
)

// State is the lifecycle state of a Session. The only transition is
// Running to Stopping; nothing leaves Stopping.
type State uint8

const (
	StateRunning State = iota
	StateStopping
)

// String returns the string representation of the state.
func (st State) String() string {
	switch st {
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	default:
		return "Unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so snapshots serialize the
// state by name.
func (st State) MarshalText() ([]byte, error) {
	return []byte(st.String()), nil
}

// Session is the live unit of connection state: one client transport, one
// backend module, one relay loop.
type Session struct {
	// ID uniquely identifies the session for logging and management.
	ID string

	// CreatedAt is when the session finished resolution.
	CreatedAt time.Time

	// Handlers is the capability set registered by the backend module's
	// Init. Populated once before the relay loop starts; read-only after.
	Handlers Handlers

	// Data is opaque state owned exclusively by the backend module. The
	// runtime never inspects or mutates it, only hands the Session (and
	// thereby Data) back into handler calls.
	Data any

	conn   wire.Conn
	module Module
	config *Config
	clock  Clock
	logger *slog.Logger
	obs    Observer

	state atomic.Int32

	// Wall-clock milliseconds, monotonically non-decreasing, updated only
	// by the relay loop on successful receive/send.
	lastReceived atomic.Int64
	lastSent     atomic.Int64

	writeMu  sync.Mutex // serializes conn writes
	tearOnce sync.Once
	done     chan struct{}

	// Counters
	received   atomic.Uint64
	sent       atomic.Uint64
	syncsSent  atomic.Uint64
	violations atomic.Uint64
}

// NewID generates a random identifier in the session ID format. Exposed
// for callers that need an ID before the Session exists, such as naming a
// recording.
func NewID() string {
	return generateID()
}

// generateID generates a random session ID.
func generateID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}

// New constructs a Session for the given transport and backend module,
// invoking the module's Init entrypoint with the handshake arguments.
//
// On Init failure the partial Session is discarded: no handler has run, none
// will, and the module handle is released before New returns ErrBackendInit.
// On success the Session is Running with both liveness timestamps set to the
// current clock time, ready for Run.
func New(conn wire.Conn, module Module, args []string, config *Config) (*Session, error) {
	config = config.withDefaults()

	s := &Session{
		ID:     generateID(),
		conn:   conn,
		module: module,
		config: config,
		clock:  config.Clock,
		obs:    config.Observer,
		done:   make(chan struct{}),
	}
	s.logger = config.Logger.With("session_id", s.ID, "backend", module.Name())

	if err := s.runInit(args); err != nil {
		// Initialization never completed: release the module handle and
		// abandon the partial session without teardown.
		if rerr := module.Release(); rerr != nil {
			s.logger.Warn("module release after failed init", "error", rerr)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrBackendInit, module.Name(), err)
	}

	now := s.clock.Now()
	s.CreatedAt = now
	s.lastReceived.Store(now.UnixMilli())
	s.lastSent.Store(now.UnixMilli())
	s.state.Store(int32(StateRunning))

	s.logger.Info("session resolved", "args", len(args))
	return s, nil
}

// runInit invokes the module's Init, bounded by InitTimeout. A module whose
// Init never returns is abandoned; its goroutine leaks by policy, since
// there is no way to cancel arbitrary backend code.
func (s *Session) runInit(args []string) error {
	if s.config.InitTimeout <= 0 {
		return s.safeInit(args)
	}

	result := make(chan error, 1)
	go func() {
		result <- s.safeInit(args)
	}()

	timer := time.NewTimer(s.config.InitTimeout)
	defer timer.Stop()

	select {
	case err := <-result:
		return err
	case <-timer.C:
		return fmt.Errorf("init timed out after %s", s.config.InitTimeout)
	}
}

// safeInit runs Init with panic containment.
func (s *Session) safeInit(args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("backend init panic",
				"panic", r,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("init panic: %v", r)
		}
	}()
	return s.module.Init(s, args)
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Stop requests the transition to Stopping. The relay loop observes the
// transition at the top of its next iteration; an instruction already being
// dispatched is never interrupted. Stopping an already stopping session is a
// no-op.
func (s *Session) Stop() {
	if s.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		s.logger.Debug("state transition", "state", StateStopping)
	}
}

// Done returns a channel closed when Teardown has released all resources.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Send writes one instruction to the client. It is safe to call from backend
// handlers; writes are serialized. A transport failure stops the session and
// is returned to the caller.
func (s *Session) Send(ins *wire.Instruction) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	s.writeMu.Lock()
	err := s.conn.WriteInstruction(ins)
	s.writeMu.Unlock()

	if err != nil {
		s.logger.Error("write error", "opcode", ins.Opcode, "error", err)
		s.Stop()
		return err
	}

	s.sent.Add(1)
	return nil
}

// sendSync sends a server-originated sync probe and advances lastSent. Only
// the relay loop calls this.
func (s *Session) sendSync(nowMillis int64) error {
	if err := s.Send(wire.NewSync(nowMillis)); err != nil {
		return err
	}
	s.storeMonotonic(&s.lastSent, nowMillis)
	s.syncsSent.Add(1)
	s.obs.SyncSent(s)
	return nil
}

// markReceived advances lastReceived after a successful decode.
func (s *Session) markReceived() {
	s.storeMonotonic(&s.lastReceived, s.clock.Now().UnixMilli())
	s.received.Add(1)
}

// storeMonotonic stores millis into dst, never moving it backwards.
func (s *Session) storeMonotonic(dst *atomic.Int64, millis int64) {
	for {
		cur := dst.Load()
		if millis <= cur || dst.CompareAndSwap(cur, millis) {
			return
		}
	}
}

// LastReceived returns the timestamp of the last successfully decoded
// instruction, in wall-clock milliseconds.
func (s *Session) LastReceived() int64 {
	return s.lastReceived.Load()
}

// LastSent returns the timestamp of the last sync send, in wall-clock
// milliseconds.
func (s *Session) LastSent() int64 {
	return s.lastSent.Load()
}

// clientLive reports whether the client has acknowledged recently enough
// for server message pumping to proceed. The client is considered stalled
// once nothing has been received within SyncThreshold of the latest sync
// send; any successfully dispatched instruction reestablishes liveness.
func (s *Session) clientLive() bool {
	return s.lastReceived.Load() > s.lastSent.Load()-s.config.SyncThreshold.Milliseconds()
}

// Teardown releases all Session resources: the backend's teardown handler
// (if registered), the module handle, and the transport, in that order, each
// exactly once. Safe to call more than once; subsequent calls are no-ops.
//
// Teardown must not run concurrently with the relay loop; call it after Run
// has returned, or after arranging for the loop to stop.
func (s *Session) Teardown() {
	s.tearOnce.Do(func() {
		s.state.Store(int32(StateStopping))

		if s.Handlers.Teardown != nil {
			if err := s.invokeHandler("teardown", func() error {
				return s.Handlers.Teardown(s)
			}); err != nil {
				s.logger.Warn("teardown handler", "error", err)
			}
		}

		if err := s.module.Release(); err != nil {
			s.logger.Warn("module release", "error", err)
		}

		if err := s.conn.Close(); err != nil {
			s.logger.Debug("transport close", "error", err)
		}

		close(s.done)
		s.obs.SessionClosed(s)

		s.logger.Info("session closed",
			"received", s.received.Load(),
			"sent", s.sent.Load(),
			"syncs", s.syncsSent.Load(),
			"violations", s.violations.Load())
	})
}

// invokeHandler runs a handler slot with panic containment. A panic is
// reported as a *HandlerError, the same as an error return.
func (s *Session) invokeHandler(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			s.logger.Error("handler panic",
				"handler", name,
				"panic", r,
				"stack", string(stack))
			err = &HandlerError{
				SessionID: s.ID,
				Handler:   name,
				Panic:     r,
				Stack:     stack,
			}
		}
	}()

	if herr := fn(); herr != nil {
		return &HandlerError{SessionID: s.ID, Handler: name, Err: herr}
	}
	return nil
}

// Logger returns the session-scoped logger.
func (s *Session) Logger() *slog.Logger {
	return s.logger
}

// Backend returns the name of the loaded backend module.
func (s *Session) Backend() string {
	return s.module.Name()
}

// Stats is a point-in-time snapshot of session counters.
type Stats struct {
	ID           string
	Backend      string
	State        State
	CreatedAt    time.Time
	LastReceived int64
	LastSent     int64
	Received     uint64
	Sent         uint64
	SyncsSent    uint64
	Violations   uint64
}

// Stats returns a snapshot of the session's counters.
func (s *Session) Stats() Stats {
	return Stats{
		ID:           s.ID,
		Backend:      s.module.Name(),
		State:        s.State(),
		CreatedAt:    s.CreatedAt,
		LastReceived: s.lastReceived.Load(),
		LastSent:     s.lastSent.Load(),
		Received:     s.received.Load(),
		Sent:         s.sent.Load(),
		SyncsSent:    s.syncsSent.Load(),
		Violations:   s.violations.Load(),
	}
}
