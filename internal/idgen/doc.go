// Package idgen produces the opaque identifiers used for batches and queue
// messages. Tests may replace NewFunc to get deterministic values.
package idgen
