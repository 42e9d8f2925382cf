// Package executor bridges job commands consumed by a worker with the function
// that implements them. It resolves inline or registry-named functions,
// contains job failures (returned errors and panics) and reports the outcome to
// an optional listener.
package executor
