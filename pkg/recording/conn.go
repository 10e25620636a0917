package recording

import (
	"log/slog"
	"sync"
	"time"

	"github.com/viewgate-dev/viewgate/pkg/session"
	"github.com/viewgate-dev/viewgate/pkg/wire"
)

// Conn is a wire.Conn decorator taping both directions of the instruction
// stream into a Sink.
//
// A failing sink never fails the session: on the first Record error the tap
// is disabled with a warning and the underlying conn keeps serving.
type Conn struct {
	inner wire.Conn
	sink  Sink
	clock session.Clock
	log   *slog.Logger
	start time.Time

	mu       sync.Mutex
	disabled bool
}

// Config tunes a recording Conn.
type Config struct {
	// Clock supplies event offsets. Defaults to the system clock.
	Clock session.Clock

	// Logger receives tap failures. Defaults to slog.Default.
	Logger *slog.Logger
}

// NewConn decorates inner so every instruction crossing it is recorded to
// sink. The recording clock starts now.
func NewConn(inner wire.Conn, sink Sink, config *Config) *Conn {
	clock := session.SystemClock()
	logger := slog.Default()
	if config != nil && config.Clock != nil {
		clock = config.Clock
	}
	if config != nil && config.Logger != nil {
		logger = config.Logger
	}

	return &Conn{
		inner: inner,
		sink:  sink,
		clock: clock,
		log:   logger.With("component", "recording"),
		start: clock.Now(),
	}
}

// ReadInstruction implements wire.Conn. Timeouts and failures are not
// recorded; only instructions that actually arrived.
func (c *Conn) ReadInstruction(timeout time.Duration) (*wire.Instruction, error) {
	ins, err := c.inner.ReadInstruction(timeout)
	if err != nil {
		return nil, err
	}
	c.record(Inbound, ins)
	return ins, nil
}

// WriteInstruction implements wire.Conn.
func (c *Conn) WriteInstruction(ins *wire.Instruction) error {
	if err := c.inner.WriteInstruction(ins); err != nil {
		return err
	}
	c.record(Outbound, ins)
	return nil
}

// Close implements wire.Conn. The sink is closed after the underlying
// transport.
func (c *Conn) Close() error {
	err := c.inner.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.disabled {
		c.disabled = true
		if serr := c.sink.Close(); serr != nil {
			c.log.Warn("recording sink close failed", "error", serr)
		}
	}
	return err
}

func (c *Conn) record(dir Direction, ins *wire.Instruction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disabled {
		return
	}

	ev := Event{
		Offset:      c.clock.Now().Sub(c.start),
		Direction:   dir,
		Instruction: ins,
	}
	if err := c.sink.Record(ev); err != nil {
		// One bad sink must not take the session down. Stop taping and
		// keep relaying.
		c.log.Warn("recording disabled", "error", err)
		c.disabled = true
		c.sink.Close()
	}
}
