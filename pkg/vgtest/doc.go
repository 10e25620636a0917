// Package vgtest provides testing helpers for the gateway runtime.
//
// Clock is a manually driven session.Clock, and ScriptConn is a wire.Conn
// that replays a scripted sequence of reads while recording writes. Together
// they make relay-loop timing deterministic without real wall-clock delays:
//
//	clock := vgtest.NewClock()
//	conn := vgtest.NewScriptConn(clock,
//	    vgtest.ReadTimeout(),                 // wait out one poll
//	    vgtest.Read(wire.NewPointer(1, 2, 0)),
//	    vgtest.Read(wire.NewDisconnect()),
//	)
package vgtest
