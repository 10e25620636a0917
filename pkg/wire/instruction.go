package wire

import (
	"fmt"
	"strconv"
	"strings"
)

// Opcodes consumed by the session runtime. Backends are free to send any
// opcode to the client; only the opcodes below have meaning inbound.
const (
	OpSync       = "sync"
	OpDisconnect = "disconnect"
	OpPointer    = "pointer"
	OpKey        = "key"
	OpClipboard  = "clipboard"
)

// ButtonMask is the bitwise union of pointer buttons currently pressed.
type ButtonMask int

const (
	ButtonLeft       ButtonMask = 1
	ButtonMiddle     ButtonMask = 2
	ButtonRight      ButtonMask = 4
	ButtonScrollUp   ButtonMask = 8
	ButtonScrollDown ButtonMask = 16
)

// Has returns true if the mask contains the specified button.
func (m ButtonMask) Has(button ButtonMask) bool {
	return m&button != 0
}

// String returns the pressed buttons as a comma-separated list.
func (m ButtonMask) String() string {
	if m == 0 {
		return "none"
	}
	var parts []string
	if m.Has(ButtonLeft) {
		parts = append(parts, "left")
	}
	if m.Has(ButtonMiddle) {
		parts = append(parts, "middle")
	}
	if m.Has(ButtonRight) {
		parts = append(parts, "right")
	}
	if m.Has(ButtonScrollUp) {
		parts = append(parts, "scroll-up")
	}
	if m.Has(ButtonScrollDown) {
		parts = append(parts, "scroll-down")
	}
	return strings.Join(parts, ",")
}

// Instruction is a single decoded protocol instruction: an opcode and its
// positional arguments. Argument unescaping is the codec's responsibility;
// Args are already plain text.
type Instruction struct {
	Opcode string
	Args   []string
}

// String returns a compact form for logging.
func (i *Instruction) String() string {
	if len(i.Args) == 0 {
		return i.Opcode
	}
	return i.Opcode + "(" + strings.Join(i.Args, ",") + ")"
}

// NewSync creates a sync instruction carrying the given millisecond
// timestamp. Inbound syncs may carry any arguments; they are ignored.
func NewSync(timestamp int64) *Instruction {
	return &Instruction{
		Opcode: OpSync,
		Args:   []string{strconv.FormatInt(timestamp, 10)},
	}
}

// NewDisconnect creates a disconnect instruction.
func NewDisconnect() *Instruction {
	return &Instruction{Opcode: OpDisconnect}
}

// NewPointer creates a pointer instruction.
func NewPointer(x, y int, mask ButtonMask) *Instruction {
	return &Instruction{
		Opcode: OpPointer,
		Args: []string{
			strconv.Itoa(x),
			strconv.Itoa(y),
			strconv.Itoa(int(mask)),
		},
	}
}

// NewKey creates a key instruction for the given X11 keysym.
func NewKey(keysym int, pressed bool) *Instruction {
	p := "0"
	if pressed {
		p = "1"
	}
	return &Instruction{
		Opcode: OpKey,
		Args:   []string{strconv.Itoa(keysym), p},
	}
}

// NewClipboard creates a clipboard instruction.
func NewClipboard(text string) *Instruction {
	return &Instruction{Opcode: OpClipboard, Args: []string{text}}
}

// PointerArgs extracts (x, y, mask) from a pointer instruction's arguments.
func PointerArgs(args []string) (x, y int, mask ButtonMask, err error) {
	if len(args) < 3 {
		return 0, 0, 0, fmt.Errorf("wire: pointer wants 3 args, got %d", len(args))
	}
	if x, err = strconv.Atoi(args[0]); err != nil {
		return 0, 0, 0, fmt.Errorf("wire: pointer x: %w", err)
	}
	if y, err = strconv.Atoi(args[1]); err != nil {
		return 0, 0, 0, fmt.Errorf("wire: pointer y: %w", err)
	}
	m, err := strconv.Atoi(args[2])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("wire: pointer mask: %w", err)
	}
	return x, y, ButtonMask(m), nil
}

// KeyArgs extracts (keysym, pressed) from a key instruction's arguments.
func KeyArgs(args []string) (keysym int, pressed bool, err error) {
	if len(args) < 2 {
		return 0, false, fmt.Errorf("wire: key wants 2 args, got %d", len(args))
	}
	if keysym, err = strconv.Atoi(args[0]); err != nil {
		return 0, false, fmt.Errorf("wire: keysym: %w", err)
	}
	switch args[1] {
	case "0":
		pressed = false
	case "1":
		pressed = true
	default:
		return 0, false, fmt.Errorf("wire: key pressed flag %q", args[1])
	}
	return keysym, pressed, nil
}

// ClipboardArgs extracts the clipboard text. The codec has already unescaped
// the wire encoding.
func ClipboardArgs(args []string) (string, error) {
	if len(args) < 1 {
		return "", fmt.Errorf("wire: clipboard wants 1 arg, got 0")
	}
	return args[0], nil
}
