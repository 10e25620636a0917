// Package backend resolves protocol identifiers to backend modules and
// performs the handshake that turns an accepted connection into a running
// Session.
//
// Modules are registered in a compiled-in Registry mapping protocol
// identifiers to factories. The Loader interface keeps the resolution
// mechanism open: a process that needs out-of-tree backends can supply its
// own Loader (for example around plugin.Open) without touching the session
// runtime.
package backend
