// Package tracing integrates OpenTelemetry with the batcher so that every
// Process call and every executed job can be observed as a span. All
// instrumentation is kept in a separate package; when no provider is
// installed spans are no-op.
package tracing
