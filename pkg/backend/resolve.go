package backend

import (
	"fmt"

	"github.com/viewgate-dev/viewgate/pkg/session"
	"github.com/viewgate-dev/viewgate/pkg/wire"
)

// Resolve reads the handshake off the transport and constructs a running
// Session for it.
//
// The handshake is the first inbound instruction: its opcode names the
// desired backend protocol, its arguments are passed verbatim to the
// module's Init. Exactly one instruction is read here; every subsequent
// read belongs to the relay loop.
//
// On failure (transport error, unknown protocol, init failure) no Session
// exists and no handler has been invoked; ownership of conn stays with the
// caller, which should close it.
func Resolve(conn wire.Conn, loader Loader, config *session.Config) (*session.Session, error) {
	timeout := session.DefaultConfig().HandshakeTimeout
	if config != nil && config.HandshakeTimeout > 0 {
		timeout = config.HandshakeTimeout
	}

	handshake, err := conn.ReadInstruction(timeout)
	if err != nil {
		return nil, fmt.Errorf("backend: read handshake: %w", err)
	}

	module, err := loader.Load(handshake.Opcode)
	if err != nil {
		return nil, err
	}

	return session.New(conn, module, handshake.Args, config)
}
