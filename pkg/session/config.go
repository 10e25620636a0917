package session

import (
	"log/slog"
	"time"
)

// Config holds the timing constants and collaborators for a Session.
type Config struct {
	// Timing

	// SyncThreshold is the maximum wait for a sync acknowledgment. If no
	// instruction is received within this time of a sync send, server
	// message pumping is suspended until the client answers, so a stalled
	// client is not flooded with backend-driven updates.
	// Default: 500 milliseconds.
	SyncThreshold time.Duration

	// SyncFrequency is the interval between server-originated sync sends.
	// A healthy client answers each sync, so this doubles as the keepalive
	// probe interval. Default: 5 seconds.
	SyncFrequency time.Duration

	// ServerMessageHandleFrequency is the minimum interval between
	// invocations of a backend's server-message handler.
	// Default: 50 milliseconds.
	ServerMessageHandleFrequency time.Duration

	// InitTimeout bounds the backend module's Init call. A module whose
	// Init blocks past the deadline is abandoned and resolution fails.
	// Zero means no bound. Default: 15 seconds.
	InitTimeout time.Duration

	// HandshakeTimeout is the maximum wait for the client's handshake
	// instruction during resolution. Default: 10 seconds.
	HandshakeTimeout time.Duration

	// Collaborators

	// Clock supplies time to the relay loop. Default: SystemClock().
	Clock Clock

	// Logger is the base logger; the Session derives a child logger scoped
	// with its ID and backend name. Default: slog.Default().
	Logger *slog.Logger

	// Observer receives lifecycle and dispatch notifications. Optional.
	Observer Observer
}

// DefaultConfig returns a Config with the designed defaults.
func DefaultConfig() *Config {
	return &Config{
		SyncThreshold:                500 * time.Millisecond,
		SyncFrequency:                5 * time.Second,
		ServerMessageHandleFrequency: 50 * time.Millisecond,
		InitTimeout:                  15 * time.Second,
		HandshakeTimeout:             10 * time.Second,
	}
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// withDefaults fills unset fields from DefaultConfig.
func (c *Config) withDefaults() *Config {
	if c == nil {
		c = &Config{}
	} else {
		c = c.Clone()
	}
	defaults := DefaultConfig()
	if c.SyncThreshold == 0 {
		c.SyncThreshold = defaults.SyncThreshold
	}
	if c.SyncFrequency == 0 {
		c.SyncFrequency = defaults.SyncFrequency
	}
	if c.ServerMessageHandleFrequency == 0 {
		c.ServerMessageHandleFrequency = defaults.ServerMessageHandleFrequency
	}
	if c.InitTimeout == 0 {
		c.InitTimeout = defaults.InitTimeout
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = defaults.HandshakeTimeout
	}
	if c.Clock == nil {
		c.Clock = SystemClock()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Observer == nil {
		c.Observer = nopObserver{}
	}
	return c
}
