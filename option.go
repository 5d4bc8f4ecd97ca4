package termkit

import (
	"github.com/jwcompdev/termkit/metrics"
	"github.com/jwcompdev/termkit/policy"
	"github.com/jwcompdev/termkit/progress"
	"github.com/jwcompdev/termkit/service/event"
	"github.com/jwcompdev/termkit/service/output"
	"github.com/jwcompdev/termkit/service/shell"
	"github.com/jwcompdev/termkit/tracing"
	"go.uber.org/zap"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option configures a Service.
type Option func(s *Service)

// WithConfig sets the configuration; DefaultConfig is used otherwise.
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}

// WithLogger sets the logger shared by the session, the queue and the transports.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithSink sets the output sink receiving every terminal line.
func WithSink(sink output.Sink) Option {
	return func(s *Service) { s.sink = sink }
}

// WithDialer replaces the dialer derived from the configuration.
func WithDialer(dialer shell.Dialer) Option {
	return func(s *Service) { s.dialer = dialer }
}

// WithEventService sets the event service publishing command and connection events.
func WithEventService(service *event.Service) Option {
	return func(s *Service) { s.events = service }
}

// WithMetrics records command and queue metrics on collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(s *Service) { s.metrics = collector }
}

// WithPolicy sets the command policy; it overrides the configured one.
func WithPolicy(p *policy.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithProgress is notified whenever the queue counters change.
func WithProgress(onChange func(progress.Progress)) Option {
	return func(s *Service) { s.onProgress = onChange }
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile is empty the
// stdout exporter is used; otherwise traces are written to the supplied file path. The first
// successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter, for
// example OTLP, Jaeger or Zipkin. The first successful initialisation wins.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
