package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/viewgate-dev/viewgate/pkg/vgtest"
	"github.com/viewgate-dev/viewgate/pkg/wire"
)

// pumpRecorder registers a server-message handler that records the clock
// time of every invocation.
type pumpRecorder struct {
	clock *vgtest.Clock
	base  time.Time

	mu    sync.Mutex
	times []time.Duration // offsets from base
	errs  []error         // optional per-call returns
}

func newPumpRecorder(clock *vgtest.Clock) *pumpRecorder {
	return &pumpRecorder{clock: clock, base: clock.Now()}
}

func (p *pumpRecorder) handler(*Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.times = append(p.times, p.clock.Now().Sub(p.base))
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		return err
	}
	return nil
}

func (p *pumpRecorder) offsets() []time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]time.Duration, len(p.times))
	copy(out, p.times)
	return out
}

func countOpcode(writes []*wire.Instruction, opcode string) int {
	n := 0
	for _, ins := range writes {
		if ins.Opcode == opcode {
			n++
		}
	}
	return n
}

func TestRunSyncCadence(t *testing.T) {
	clock := vgtest.NewClock()
	conn := vgtest.NewScriptConn(clock,
		vgtest.ReadTimeout(), // waits out the full sync interval
		vgtest.Read(wire.NewDisconnect()),
	)

	s, err := newTestSession(clock, conn, &testModule{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	s.Run()

	if got := countOpcode(conn.Writes(), wire.OpSync); got != 1 {
		t.Errorf("sync sends = %d, want 1", got)
	}
	if s.State() != StateStopping {
		t.Errorf("State() = %v, want Stopping", s.State())
	}
}

func TestRunPumpCadence(t *testing.T) {
	clock := vgtest.NewClock()
	rec := newPumpRecorder(clock)

	module := &testModule{
		initFn: func(s *Session, _ []string) error {
			s.Handlers.ServerMessages = rec.handler
			return nil
		},
	}

	conn := vgtest.NewScriptConn(clock,
		vgtest.ReadTimeout(),
		vgtest.ReadTimeout(),
		vgtest.ReadTimeout(),
		vgtest.ReadTimeout(),
		vgtest.Read(wire.NewDisconnect()),
	)

	s, err := newTestSession(clock, conn, module)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	s.Run()

	// Config under test pumps every 50ms; the loop starts with an
	// immediate pump and each timed-out poll advances one pump interval.
	want := []time.Duration{
		0,
		50 * time.Millisecond,
		100 * time.Millisecond,
		150 * time.Millisecond,
		200 * time.Millisecond,
	}
	got := rec.offsets()
	if len(got) != len(want) {
		t.Fatalf("pump invocations = %d (%v), want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pump %d at %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRunPumpSuspendedUntilAck(t *testing.T) {
	clock := vgtest.NewClock()
	rec := newPumpRecorder(clock)

	module := &testModule{
		initFn: func(s *Session, _ []string) error {
			s.Handlers.ServerMessages = rec.handler
			return nil
		},
	}

	// Timeline (sync every 200ms, threshold 100ms, pump every 50ms):
	// pumps run at 0..200ms; the sync sent at 200ms goes unacknowledged,
	// so pumping suspends past 300ms; the client's sync at 410ms
	// reestablishes liveness and pumping resumes.
	conn := vgtest.NewScriptConn(clock,
		vgtest.ReadTimeout(), // 0 -> 50
		vgtest.ReadTimeout(), // -> 100
		vgtest.ReadTimeout(), // -> 150
		vgtest.ReadTimeout(), // -> 200
		vgtest.ReadTimeout(), // sync sent at 200, suspended: -> 400
		vgtest.ReadAfter(10*time.Millisecond, wire.NewSync(0)), // ack at 410
		vgtest.Read(wire.NewDisconnect()),
	)

	s, err := newTestSession(clock, conn, module)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	s.Run()

	want := []time.Duration{
		0,
		50 * time.Millisecond,
		100 * time.Millisecond,
		150 * time.Millisecond,
		200 * time.Millisecond,
		410 * time.Millisecond,
	}
	got := rec.offsets()
	if len(got) != len(want) {
		t.Fatalf("pump invocations = %d (%v), want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pump %d at %v, want %v", i, got[i], want[i])
		}
	}

	if got := countOpcode(conn.Writes(), wire.OpSync); got != 2 {
		t.Errorf("sync sends = %d, want 2", got)
	}
}

func TestRunPumpFailureStops(t *testing.T) {
	clock := vgtest.NewClock()
	rec := newPumpRecorder(clock)
	rec.errs = []error{errors.New("backend hung up")}

	module := &testModule{
		initFn: func(s *Session, _ []string) error {
			s.Handlers.ServerMessages = rec.handler
			return nil
		},
	}

	conn := vgtest.NewScriptConn(clock) // loop must stop before any read
	s, err := newTestSession(clock, conn, module)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	s.Run()

	if s.State() != StateStopping {
		t.Errorf("State() = %v, want Stopping", s.State())
	}
	if n := len(rec.offsets()); n != 1 {
		t.Errorf("pump invocations = %d, want 1", n)
	}
}

func TestRunPumpPanicStops(t *testing.T) {
	clock := vgtest.NewClock()
	module := &testModule{
		initFn: func(s *Session, _ []string) error {
			s.Handlers.ServerMessages = func(*Session) error {
				panic("vnc library bug")
			}
			return nil
		},
	}

	s, err := newTestSession(clock, vgtest.NewScriptConn(clock), module)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	s.Run()

	if s.State() != StateStopping {
		t.Errorf("State() = %v, want Stopping", s.State())
	}
}

func TestRunTransportFailureStops(t *testing.T) {
	clock := vgtest.NewClock()
	conn := vgtest.NewScriptConn(clock,
		vgtest.ReadErr(errors.New("connection reset")),
	)

	s, err := newTestSession(clock, conn, &testModule{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	s.Run()

	if s.State() != StateStopping {
		t.Errorf("State() = %v, want Stopping", s.State())
	}
}

func TestRunViolationTolerated(t *testing.T) {
	clock := vgtest.NewClock()
	var pointerCalls int

	module := &testModule{
		initFn: func(s *Session, _ []string) error {
			s.Handlers.Pointer = func(*Session, int, int, wire.ButtonMask) error {
				pointerCalls++
				return nil
			}
			return nil
		},
	}

	conn := vgtest.NewScriptConn(clock,
		vgtest.Read(&wire.Instruction{Opcode: "nonsense"}),
		vgtest.Read(wire.NewPointer(3, 4, 0)),
		vgtest.Read(wire.NewDisconnect()),
	)

	s, err := newTestSession(clock, conn, module)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	s.Run()

	// The violation did not terminate the session: the pointer event
	// after it was still dispatched.
	if pointerCalls != 1 {
		t.Errorf("pointer calls = %d, want 1", pointerCalls)
	}
	if s.Stats().Violations != 1 {
		t.Errorf("violations = %d, want 1", s.Stats().Violations)
	}
}

func TestRunHandlerFailureStops(t *testing.T) {
	clock := vgtest.NewClock()
	module := &testModule{
		initFn: func(s *Session, _ []string) error {
			s.Handlers.Key = func(*Session, int, bool) error {
				return errors.New("injection failed")
			}
			return nil
		},
	}

	conn := vgtest.NewScriptConn(clock,
		vgtest.Read(wire.NewKey(65, true)),
	)

	s, err := newTestSession(clock, conn, module)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	s.Run()

	if s.State() != StateStopping {
		t.Errorf("State() = %v, want Stopping", s.State())
	}
}

func TestRunExternalStop(t *testing.T) {
	clock := vgtest.NewClock()
	conn := vgtest.NewScriptConn(clock,
		vgtest.Read(wire.NewPointer(1, 1, 0)),
	)

	s, err := newTestSession(clock, conn, &testModule{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	s.Stop()
	s.Run()

	// Stop was observed before any poll.
	if n := len(conn.Writes()); n != 0 {
		t.Errorf("writes = %d, want 0", n)
	}
}

func TestRunObserverNotifications(t *testing.T) {
	clock := vgtest.NewClock()
	obs := &countingObserver{}

	cfg := quietConfig(clock)
	cfg.Observer = obs

	module := &testModule{
		initFn: func(s *Session, _ []string) error {
			s.Handlers.ServerMessages = func(*Session) error { return nil }
			return nil
		},
	}

	conn := vgtest.NewScriptConn(clock,
		vgtest.ReadTimeout(),
		vgtest.ReadTimeout(),
		vgtest.ReadTimeout(),
		vgtest.ReadTimeout(),
		vgtest.Read(wire.NewDisconnect()),
	)

	s, err := New(conn, module, nil, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	s.Run()
	s.Teardown()

	if obs.pumps.Load() == 0 {
		t.Error("observer saw no pumps")
	}
	if obs.syncs.Load() != 1 {
		t.Errorf("observer syncs = %d, want 1", obs.syncs.Load())
	}
	if obs.dispatched.Load() != 1 {
		t.Errorf("observer dispatches = %d, want 1", obs.dispatched.Load())
	}
	if obs.closed.Load() != 1 {
		t.Errorf("observer closes = %d, want 1", obs.closed.Load())
	}
}
