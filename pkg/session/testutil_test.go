package session

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viewgate-dev/viewgate/pkg/vgtest"
	"github.com/viewgate-dev/viewgate/pkg/wire"
)

// countingObserver tallies relay loop notifications.
type countingObserver struct {
	dispatched atomic.Int64
	syncs      atomic.Int64
	pumps      atomic.Int64
	closed     atomic.Int64
}

func (o *countingObserver) InstructionDispatched(*Session, *wire.Instruction, time.Duration, error) {
	o.dispatched.Add(1)
}

func (o *countingObserver) SyncSent(*Session) { o.syncs.Add(1) }

func (o *countingObserver) PumpCompleted(*Session, time.Duration, error) { o.pumps.Add(1) }

func (o *countingObserver) SessionClosed(*Session) { o.closed.Add(1) }

// testModule is a Module whose init/release behavior is configurable, with
// counters for teardown ordering assertions.
type testModule struct {
	name      string
	initErr   error
	initBlock bool
	initFn    func(s *Session, args []string) error

	mu        sync.Mutex
	initArgs  []string
	initCalls int
	releases  int
}

func (m *testModule) Name() string {
	if m.name == "" {
		return "test"
	}
	return m.name
}

func (m *testModule) Init(s *Session, args []string) error {
	m.mu.Lock()
	m.initCalls++
	m.initArgs = args
	m.mu.Unlock()

	if m.initBlock {
		select {} // never returns
	}
	if m.initErr != nil {
		return m.initErr
	}
	if m.initFn != nil {
		return m.initFn(s, args)
	}
	return nil
}

func (m *testModule) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases++
	return nil
}

func (m *testModule) releaseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releases
}

// quietConfig returns a Config bound to the given fake clock with logging
// discarded and short test-friendly timing.
func quietConfig(clock *vgtest.Clock) *Config {
	return &Config{
		SyncThreshold:                100 * time.Millisecond,
		SyncFrequency:                200 * time.Millisecond,
		ServerMessageHandleFrequency: 50 * time.Millisecond,
		InitTimeout:                  time.Second,
		HandshakeTimeout:             time.Second,
		Clock:                        clock,
		Logger:                       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// newTestSession builds a Running session over a scripted conn.
func newTestSession(clock *vgtest.Clock, conn *vgtest.ScriptConn, module *testModule) (*Session, error) {
	return New(conn, module, nil, quietConfig(clock))
}
