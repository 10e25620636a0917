// Package transport adapts network connections to the wire.Conn contract
// consumed by the session runtime.
package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/viewgate-dev/viewgate/pkg/wire"
)

// Config tunes a websocket transport. The zero value is usable; see
// DefaultConfig for the values filled in.
type Config struct {
	// Codec encodes and decodes instructions. Defaults to wire.TextCodec.
	Codec wire.Codec

	// WriteTimeout bounds each outbound message write.
	WriteTimeout time.Duration

	// QueueSize is the inbound instruction buffer depth. Reads ahead of
	// the relay loop park here.
	QueueSize int

	// Logger receives transport-level events. Defaults to slog.Default.
	Logger *slog.Logger
}

// DefaultConfig returns the default transport configuration.
func DefaultConfig() *Config {
	return &Config{
		Codec:        wire.TextCodec{},
		WriteTimeout: 10 * time.Second,
		QueueSize:    64,
		Logger:       slog.Default(),
	}
}

func (c *Config) withDefaults() *Config {
	def := DefaultConfig()
	if c == nil {
		return def
	}
	out := *c
	if out.Codec == nil {
		out.Codec = def.Codec
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = def.WriteTimeout
	}
	if out.QueueSize <= 0 {
		out.QueueSize = def.QueueSize
	}
	if out.Logger == nil {
		out.Logger = def.Logger
	}
	return &out
}

// WebSocket is a wire.Conn over a gorilla websocket connection.
//
// Inbound messages are read by a dedicated goroutine and buffered, so the
// relay loop's bounded polls never put a read deadline on the underlying
// connection. Undecodable messages are dropped with a warning rather than
// failing the session.
type WebSocket struct {
	conn   *websocket.Conn
	config *Config
	logger *slog.Logger

	incoming chan *wire.Instruction

	errMu   sync.Mutex
	readErr error

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// NewWebSocket wraps an established websocket connection. It takes
// ownership of conn and starts the inbound read goroutine immediately.
func NewWebSocket(conn *websocket.Conn, config *Config) *WebSocket {
	config = config.withDefaults()
	w := &WebSocket{
		conn:     conn,
		config:   config,
		logger:   config.Logger.With("component", "transport", "remote", conn.RemoteAddr().String()),
		incoming: make(chan *wire.Instruction, config.QueueSize),
		done:     make(chan struct{}),
	}
	go w.readLoop()
	return w
}

func (w *WebSocket) readLoop() {
	defer close(w.incoming)

	for {
		mt, data, err := w.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				w.logger.Warn("read failed", "error", err)
			}
			w.setReadErr(mapConnError(err))
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		ins, err := w.config.Codec.Decode(data)
		if err != nil {
			w.logger.Warn("dropping undecodable message", "error", err)
			continue
		}

		select {
		case w.incoming <- ins:
		case <-w.done:
			return
		}
	}
}

func (w *WebSocket) setReadErr(err error) {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.readErr == nil {
		w.readErr = err
	}
}

func (w *WebSocket) getReadErr() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.readErr == nil {
		return wire.ErrConnClosed
	}
	return w.readErr
}

// ReadInstruction implements wire.Conn.
func (w *WebSocket) ReadInstruction(timeout time.Duration) (*wire.Instruction, error) {
	if timeout <= 0 {
		select {
		case ins, ok := <-w.incoming:
			if !ok {
				return nil, w.getReadErr()
			}
			return ins, nil
		default:
			return nil, wire.ErrReadTimeout
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ins, ok := <-w.incoming:
		if !ok {
			return nil, w.getReadErr()
		}
		return ins, nil
	case <-timer.C:
		return nil, wire.ErrReadTimeout
	}
}

// WriteInstruction implements wire.Conn.
func (w *WebSocket) WriteInstruction(ins *wire.Instruction) error {
	data, err := w.config.Codec.Encode(ins)
	if err != nil {
		return fmt.Errorf("transport: encode: %w", err)
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	select {
	case <-w.done:
		return wire.ErrConnClosed
	default:
	}

	w.conn.SetWriteDeadline(time.Now().Add(w.config.WriteTimeout))
	if err := w.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return mapConnError(err)
	}
	return nil
}

// Close implements wire.Conn. A close control frame is sent best-effort
// before the underlying connection is torn down.
func (w *WebSocket) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)

		w.writeMu.Lock()
		w.conn.SetWriteDeadline(time.Now().Add(time.Second))
		w.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		w.writeMu.Unlock()

		w.conn.Close()
	})
	return nil
}

// mapConnError folds transport-level failures into the wire error set so
// callers can match with errors.Is.
func mapConnError(err error) error {
	if websocket.IsCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseNormalClosure) || errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("%w: %v", wire.ErrConnClosed, err)
	}
	return fmt.Errorf("transport: %w", err)
}
