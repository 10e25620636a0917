// Package wire defines the instruction model shared by the gateway core and
// its collaborators.
//
// An Instruction is a decoded opcode plus positional string arguments. The
// byte-level encoding of instructions is owned by an external codec
// collaborator behind the Codec interface, and the underlying socket I/O is
// owned by a transport collaborator behind the Conn interface. The session
// runtime consumes and produces Instructions only; it never touches bytes.
package wire
