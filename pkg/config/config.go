// Package config loads gateway configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/viewgate-dev/viewgate/pkg/session"
	"github.com/viewgate-dev/viewgate/pkg/transport"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Session   SessionConfig   `yaml:"session"`
	Transport TransportConfig `yaml:"transport"`
	Recording RecordingConfig `yaml:"recording"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	MaxSessions     int           `yaml:"max_sessions"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type SessionConfig struct {
	SyncThreshold                time.Duration `yaml:"sync_threshold"`
	SyncFrequency                time.Duration `yaml:"sync_frequency"`
	ServerMessageHandleFrequency time.Duration `yaml:"server_message_handle_frequency"`
	InitTimeout                  time.Duration `yaml:"init_timeout"`
	HandshakeTimeout             time.Duration `yaml:"handshake_timeout"`
}

type TransportConfig struct {
	WriteTimeout time.Duration `yaml:"write_timeout"`
	QueueSize    int           `yaml:"queue_size"`
}

type RecordingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	S3      struct {
		Bucket string `yaml:"bucket"`
		Prefix string `yaml:"prefix"`
	} `yaml:"s3"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	sess := session.DefaultConfig()
	tr := transport.DefaultConfig()

	return &Config{
		Server: ServerConfig{
			Addr:            ":4822",
			MaxSessions:     0, // unlimited
			ShutdownTimeout: 30 * time.Second,
		},
		Session: SessionConfig{
			SyncThreshold:                sess.SyncThreshold,
			SyncFrequency:                sess.SyncFrequency,
			ServerMessageHandleFrequency: sess.ServerMessageHandleFrequency,
			InitTimeout:                  sess.InitTimeout,
			HandshakeTimeout:             sess.HandshakeTimeout,
		},
		Transport: TransportConfig{
			WriteTimeout: tr.WriteTimeout,
			QueueSize:    tr.QueueSize,
		},
		Recording: RecordingConfig{
			Dir: "recordings",
		},
	}
}

// Load reads the YAML file at path over the defaults. Absent keys keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the runtime cannot honor.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config: server.addr must not be empty")
	}
	if c.Server.MaxSessions < 0 {
		return fmt.Errorf("config: server.max_sessions must not be negative")
	}
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"session.sync_threshold", c.Session.SyncThreshold},
		{"session.sync_frequency", c.Session.SyncFrequency},
		{"session.server_message_handle_frequency", c.Session.ServerMessageHandleFrequency},
		{"session.init_timeout", c.Session.InitTimeout},
		{"session.handshake_timeout", c.Session.HandshakeTimeout},
	} {
		if d.value <= 0 {
			return fmt.Errorf("config: %s must be positive", d.name)
		}
	}
	if c.Session.SyncThreshold > c.Session.SyncFrequency {
		return fmt.Errorf("config: session.sync_threshold must not exceed session.sync_frequency")
	}
	return nil
}

// SessionConfig converts the session section to the runtime's config type.
func (c *Config) SessionConfig() *session.Config {
	return &session.Config{
		SyncThreshold:                c.Session.SyncThreshold,
		SyncFrequency:                c.Session.SyncFrequency,
		ServerMessageHandleFrequency: c.Session.ServerMessageHandleFrequency,
		InitTimeout:                  c.Session.InitTimeout,
		HandshakeTimeout:             c.Session.HandshakeTimeout,
	}
}

// TransportConfig converts the transport section to the transport's config
// type.
func (c *Config) TransportConfig() *transport.Config {
	return &transport.Config{
		WriteTimeout: c.Transport.WriteTimeout,
		QueueSize:    c.Transport.QueueSize,
	}
}
