package middleware

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/viewgate-dev/viewgate/pkg/session"
	"github.com/viewgate-dev/viewgate/pkg/wire"
)

// MetricsConfig configures the Prometheus session observer.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "viewgate").
	Namespace string

	// Subsystem is the metrics subsystem (default: "session").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for handler durations.
	// Default: prometheus.DefBuckets.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus session observer.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "viewgate",
		Subsystem: "session",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics is a session.Observer exporting Prometheus metrics:
//
//   - viewgate_session_instructions_total: counter of dispatched
//     instructions by opcode and status
//   - viewgate_session_instruction_duration_seconds: histogram of dispatch
//     duration by opcode
//   - viewgate_session_syncs_sent_total: counter of keepalive syncs sent
//   - viewgate_session_pumps_total: counter of server-message pump
//     invocations by status
//   - viewgate_session_pump_duration_seconds: histogram of pump duration
//   - viewgate_session_closed_total: counter of sessions torn down
//
// One Metrics instance serves any number of sessions concurrently.
type Metrics struct {
	instructionsTotal   *prometheus.CounterVec
	instructionDuration *prometheus.HistogramVec
	syncsSent           prometheus.Counter
	pumpsTotal          *prometheus.CounterVec
	pumpDuration        prometheus.Histogram
	closedTotal         prometheus.Counter
}

// NewMetrics creates and registers the session metrics.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		instructionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "instructions_total",
			Help:        "Total inbound instructions dispatched",
			ConstLabels: config.ConstLabels,
		}, []string{"opcode", "status"}),

		instructionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "instruction_duration_seconds",
			Help:        "Instruction dispatch duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"opcode"}),

		syncsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "syncs_sent_total",
			Help:        "Total keepalive sync instructions sent",
			ConstLabels: config.ConstLabels,
		}),

		pumpsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pumps_total",
			Help:        "Total server-message pump invocations",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		pumpDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pump_duration_seconds",
			Help:        "Server-message pump duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		closedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "closed_total",
			Help:        "Total sessions torn down",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// InstructionDispatched implements session.Observer.
func (m *Metrics) InstructionDispatched(_ *session.Session, ins *wire.Instruction, elapsed time.Duration, err error) {
	m.instructionsTotal.WithLabelValues(ins.Opcode, dispatchStatus(err)).Inc()
	m.instructionDuration.WithLabelValues(ins.Opcode).Observe(elapsed.Seconds())
}

// SyncSent implements session.Observer.
func (m *Metrics) SyncSent(*session.Session) {
	m.syncsSent.Inc()
}

// PumpCompleted implements session.Observer.
func (m *Metrics) PumpCompleted(_ *session.Session, elapsed time.Duration, err error) {
	m.pumpsTotal.WithLabelValues(errStatus(err)).Inc()
	m.pumpDuration.Observe(elapsed.Seconds())
}

// SessionClosed implements session.Observer.
func (m *Metrics) SessionClosed(*session.Session) {
	m.closedTotal.Inc()
}

func dispatchStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, session.ErrProtocolViolation):
		return "violation"
	default:
		return "error"
	}
}

func errStatus(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}
