package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/viewgate-dev/viewgate/pkg/session"
	"github.com/viewgate-dev/viewgate/pkg/wire"
)

const defaultTracerName = "viewgate"

// OTelConfig configures the OpenTelemetry session observer.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "viewgate").
	TracerName string

	// Filter determines which instructions to trace. Return true to trace
	// the instruction, false to skip. If nil, all instructions are traced.
	Filter func(ins *wire.Instruction) bool

	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry session observer.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithInstructionFilter sets a filter function for instructions.
func WithInstructionFilter(filter func(ins *wire.Instruction) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// Tracing is a session.Observer emitting one span per dispatched
// instruction and one per session teardown.
//
// Observer callbacks fire after the fact, so spans are created with
// explicit start and end timestamps reconstructed from the reported
// duration. The tracer comes from the global OpenTelemetry provider;
// configure it before serving:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
type Tracing struct {
	config OTelConfig
}

// NewTracing creates the tracing observer.
func NewTracing(opts ...OTelOption) *Tracing {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	config.tracer = otel.Tracer(config.TracerName)
	return &Tracing{config: config}
}

// InstructionDispatched implements session.Observer.
func (t *Tracing) InstructionDispatched(s *session.Session, ins *wire.Instruction, elapsed time.Duration, err error) {
	if t.config.Filter != nil && !t.config.Filter(ins) {
		return
	}

	end := time.Now()
	_, span := t.config.tracer.Start(context.Background(),
		"viewgate.dispatch."+ins.Opcode,
		trace.WithTimestamp(end.Add(-elapsed)),
		trace.WithAttributes(
			attribute.String("viewgate.session_id", s.ID),
			attribute.String("viewgate.module", s.Backend()),
			attribute.String("viewgate.opcode", ins.Opcode),
			attribute.Int("viewgate.args", len(ins.Args)),
		))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End(trace.WithTimestamp(end))
}

// SyncSent implements session.Observer.
func (t *Tracing) SyncSent(*session.Session) {}

// PumpCompleted implements session.Observer.
func (t *Tracing) PumpCompleted(*session.Session, time.Duration, error) {}

// SessionClosed implements session.Observer.
func (t *Tracing) SessionClosed(s *session.Session) {
	stats := s.Stats()
	_, span := t.config.tracer.Start(context.Background(), "viewgate.session.closed",
		trace.WithAttributes(
			attribute.String("viewgate.session_id", s.ID),
			attribute.String("viewgate.module", s.Backend()),
			attribute.Int64("viewgate.instructions_received", int64(stats.Received)),
			attribute.Int64("viewgate.syncs_sent", int64(stats.SyncsSent)),
			attribute.Int64("viewgate.violations", int64(stats.Violations)),
		))
	span.End()
}
