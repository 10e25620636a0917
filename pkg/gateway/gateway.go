// Package gateway is the embeddable HTTP surface of the relay: it upgrades
// websocket connections, resolves the requested backend, runs the relay
// loop, and guarantees teardown. The surrounding process mounts Router on
// its own server.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/viewgate-dev/viewgate/pkg/backend"
	"github.com/viewgate-dev/viewgate/pkg/recording"
	"github.com/viewgate-dev/viewgate/pkg/session"
	"github.com/viewgate-dev/viewgate/pkg/transport"
	"github.com/viewgate-dev/viewgate/pkg/wire"
)

// Config tunes a Gateway. Zero-value fields fall back to defaults.
type Config struct {
	// Session is the timing configuration applied to every session.
	Session *session.Config

	// Transport tunes the websocket transport of every connection.
	Transport *transport.Config

	// MaxSessions caps concurrent sessions; zero means unlimited.
	MaxSessions int

	// CheckOrigin is the websocket origin policy. Defaults to gorilla's
	// same-origin check.
	CheckOrigin func(r *http.Request) bool

	// Observers receive session lifecycle notifications (metrics,
	// tracing). Applied to every session in order.
	Observers []session.Observer

	// NewSink, when set, enables session recording: it is called once per
	// session and the returned sink receives the session's instruction
	// stream. Returning an error skips recording for that session only.
	NewSink func(sessionID string) (recording.Sink, error)

	// Logger receives gateway events. Defaults to slog.Default.
	Logger *slog.Logger
}

// Gateway relays websocket clients to backend display servers.
type Gateway struct {
	loader   backend.Loader
	config   *Config
	manager  *Manager
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// New creates a Gateway serving the modules known to loader.
func New(loader backend.Loader, config *Config) *Gateway {
	if config == nil {
		config = &Config{}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "gateway")

	return &Gateway{
		loader:  loader,
		config:  config,
		manager: NewManager(config.MaxSessions, logger),
		upgrader: websocket.Upgrader{
			CheckOrigin: config.CheckOrigin,
		},
		logger: logger,
	}
}

// Manager exposes the live session registry.
func (g *Gateway) Manager() *Manager {
	return g.manager
}

// Router returns the gateway's HTTP routes:
//
//	GET /ws        websocket endpoint
//	GET /healthz   liveness probe
//	GET /sessions  live session stats
//	GET /metrics   prometheus exposition
func (g *Gateway) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/ws", g.ServeWS)
	r.Get("/healthz", g.handleHealthz)
	r.Get("/sessions", g.handleSessions)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// ServeWS upgrades the request and serves the full session lifecycle:
// handshake, relay loop, teardown. It returns when the session is over.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	if g.config.MaxSessions > 0 && g.manager.Len() >= g.config.MaxSessions {
		// Reject before the upgrade so the client sees a clean HTTP
		// error instead of a dropped websocket.
		http.Error(w, "session limit reached", http.StatusServiceUnavailable)
		return
	}

	wsConn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	conn := g.newConn(wsConn)
	s, err := backend.Resolve(conn, g.loader, g.sessionConfig())
	if err != nil {
		g.logger.Warn("resolve failed", "error", err, "remote", r.RemoteAddr)
		conn.Close()
		return
	}

	if err := g.manager.Add(s); err != nil {
		g.logger.Warn("session rejected", "error", err, "session_id", s.ID)
		s.Teardown()
		return
	}
	defer g.manager.Remove(s.ID)

	s.Run()
	s.Teardown()
}

// newConn builds the transport stack for one connection: websocket
// adapter, plus the recording tap when configured.
func (g *Gateway) newConn(wsConn *websocket.Conn) wire.Conn {
	var conn wire.Conn = transport.NewWebSocket(wsConn, g.config.Transport)

	if g.config.NewSink == nil {
		return conn
	}
	sink, err := g.config.NewSink(session.NewID())
	if err != nil {
		g.logger.Warn("recording sink unavailable", "error", err)
		return conn
	}
	return recording.NewConn(conn, sink, &recording.Config{Logger: g.logger})
}

func (g *Gateway) sessionConfig() *session.Config {
	cfg := g.config.Session
	if cfg == nil {
		cfg = session.DefaultConfig()
	} else {
		cfg = cfg.Clone()
	}
	if len(g.config.Observers) > 0 {
		obs := make(session.Observers, 0, len(g.config.Observers)+1)
		if cfg.Observer != nil {
			obs = append(obs, cfg.Observer)
		}
		obs = append(obs, g.config.Observers...)
		cfg.Observer = obs
	}
	return cfg
}

func (g *Gateway) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"sessions": g.manager.Len(),
	})
}

func (g *Gateway) handleSessions(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(g.manager.Snapshot())
}

// Shutdown stops every live session and waits for teardown, bounded by
// ctx.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down", "sessions", g.manager.Len())
	return g.manager.Drain(ctx)
}
