package vgtest

import (
	"sync"
	"time"

	"github.com/viewgate-dev/viewgate/pkg/wire"
)

// ReadStep describes one scripted result of ScriptConn.ReadInstruction.
type ReadStep struct {
	ins     *wire.Instruction
	err     error
	advance time.Duration // clock advance before returning
	full    bool          // advance by the caller's whole timeout
}

// Read returns the given instruction immediately.
func Read(ins *wire.Instruction) ReadStep {
	return ReadStep{ins: ins}
}

// ReadAfter returns the given instruction after advancing the clock by d,
// simulating an instruction that arrived mid-poll.
func ReadAfter(d time.Duration, ins *wire.Instruction) ReadStep {
	return ReadStep{ins: ins, advance: d}
}

// ReadTimeout waits out the caller's whole poll timeout: the clock advances
// by the timeout and the read reports wire.ErrReadTimeout.
func ReadTimeout() ReadStep {
	return ReadStep{err: wire.ErrReadTimeout, full: true}
}

// ReadErr fails the read with the given error.
func ReadErr(err error) ReadStep {
	return ReadStep{err: err}
}

// ScriptConn is a wire.Conn replaying a scripted sequence of reads and
// recording all writes. When the script is exhausted, reads fail with
// wire.ErrConnClosed so a relay loop under test always terminates.
type ScriptConn struct {
	clock *Clock

	mu     sync.Mutex
	script []ReadStep
	writes []*wire.Instruction
	closed int
}

// NewScriptConn creates a ScriptConn over the given clock.
func NewScriptConn(clock *Clock, script ...ReadStep) *ScriptConn {
	return &ScriptConn{clock: clock, script: script}
}

// ReadInstruction implements wire.Conn.
func (c *ScriptConn) ReadInstruction(timeout time.Duration) (*wire.Instruction, error) {
	c.mu.Lock()
	if len(c.script) == 0 {
		c.mu.Unlock()
		return nil, wire.ErrConnClosed
	}
	step := c.script[0]
	c.script = c.script[1:]
	c.mu.Unlock()

	if step.full {
		c.clock.Advance(timeout)
	} else if step.advance > 0 {
		c.clock.Advance(step.advance)
	}

	if step.err != nil {
		return nil, step.err
	}
	return step.ins, nil
}

// WriteInstruction implements wire.Conn.
func (c *ScriptConn) WriteInstruction(ins *wire.Instruction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, ins)
	return nil
}

// Close implements wire.Conn.
func (c *ScriptConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

// Writes returns a copy of all instructions written so far.
func (c *ScriptConn) Writes() []*wire.Instruction {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*wire.Instruction, len(c.writes))
	copy(out, c.writes)
	return out
}

// WrittenOpcodes returns the opcodes of all writes, in order.
func (c *ScriptConn) WrittenOpcodes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ops := make([]string, len(c.writes))
	for i, ins := range c.writes {
		ops[i] = ins.Opcode
	}
	return ops
}

// CloseCount returns how many times Close has been called.
func (c *ScriptConn) CloseCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
