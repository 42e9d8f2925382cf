// Package progress provides a lightweight tracker that keeps aggregated job
// counters (enqueued, pending, running, completed, failed) for a batcher.
// The tracker travels in the worker context so that workers can update it
// without holding a reference to the batcher.
package progress
