package batcher

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/viant/batcher/model/command"
	"github.com/viant/batcher/model/types"
	"github.com/viant/batcher/progress"
	"github.com/viant/batcher/service/action/web"
	"github.com/viant/batcher/service/executor"
	"github.com/viant/batcher/service/messaging"
	"github.com/viant/batcher/tracing"
	"go.uber.org/zap"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises a Batcher
type Option func(b *Batcher)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(b *Batcher) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithQueues sets the inbox and outbox transports, both are owned by the batcher afterwards
func WithQueues(inbox messaging.Queue[command.Command], outbox messaging.Queue[command.Result]) Option {
	return func(b *Batcher) {
		b.inbox = inbox
		b.outbox = outbox
	}
}

// WithFunctions registers additional services resolvable by named jobs
func WithFunctions(services ...types.Service) Option {
	return func(b *Batcher) {
		b.extensionServices = append(b.extensionServices, services...)
	}
}

// WithExecutorOptions lets the caller supply additional options passed to
// executor.NewService (e.g. a job listener).
func WithExecutorOptions(opts ...executor.Option) Option {
	return func(b *Batcher) {
		b.executorOptions = append(b.executorOptions, opts...)
	}
}

// WithWebOptions customises the built-in web service
func WithWebOptions(opts ...web.Option) Option {
	return func(b *Batcher) {
		b.webOptions = append(b.webOptions, opts...)
	}
}

// WithMetrics enables Prometheus metrics registered with registerer,
// prometheus.DefaultRegisterer is used when registerer is nil
func WithMetrics(registerer prometheus.Registerer) Option {
	return func(b *Batcher) {
		b.metricsEnabled = true
		b.registerer = registerer
	}
}

// WithMetricsNamespace sets the metrics namespace
func WithMetricsNamespace(namespace string) Option {
	return func(b *Batcher) {
		b.metricsNamespace = namespace
	}
}

// WithProgressListener sets a callback invoked on every progress change
func WithProgressListener(listener func(progress.Progress)) Option {
	return func(b *Batcher) {
		b.progressListener = listener
	}
}

// WithConsumeBackoff sets the worker delay after a transient inbox or outbox error
func WithConsumeBackoff(backoff time.Duration) Option {
	return func(b *Batcher) {
		b.consumeBackoff = backoff
	}
}

// WithTracing configures OpenTelemetry tracing. If outputFile is empty the
// stdout exporter is used; otherwise traces are written to the supplied file path.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(b *Batcher) {
		if err := tracing.Init(serviceName, serviceVersion, outputFile); err != nil {
			b.logger.Warn("failed to initialise tracing", zap.Error(err))
		}
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter (OTLP, Jaeger, ...).
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(b *Batcher) {
		if err := tracing.InitWithExporter(serviceName, serviceVersion, exporter); err != nil {
			b.logger.Warn("failed to initialise tracing", zap.Error(err))
		}
	}
}
