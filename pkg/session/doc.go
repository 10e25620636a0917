// Package session implements the session lifecycle and message-relay engine
// of the gateway.
//
// A Session is the live unit of state for one client connection: the
// transport handle, the lifecycle state, liveness timestamps, the Handler
// Table registered by a backend module, and the opaque state that module
// owns. The relay loop (Session.Run) alternates between pumping
// backend-originated messages and consuming client instructions, enforcing
// the sync/keepalive timing protocol, until the Session transitions from
// Running to Stopping. Teardown then releases the backend module and the
// transport exactly once.
//
// Backend modules are resolved and loaded by package backend; this package
// defines the Module contract they satisfy and never inspects the state they
// attach to a Session.
package session
