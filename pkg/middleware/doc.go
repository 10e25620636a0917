// Package middleware provides session.Observer implementations for
// operational visibility: Prometheus metrics and OpenTelemetry traces.
//
// Observers are passive; attach them through the session or gateway
// configuration:
//
//	metrics := middleware.NewMetrics()
//	g := gateway.New(registry, &gateway.Config{
//		Observers: []session.Observer{metrics, middleware.NewTracing()},
//	})
package middleware
