// Package messaging defines the FIFO transport connecting the batcher with its
// workers. Implementations must be safe for concurrent producers and
// consumers, Publish must not block and Consume must block until a message is
// available or the context is done.
package messaging

import (
	"context"
)

// Vendor represents the name of a messaging vendor
type Vendor string

const (
	// VendorMemory in-process unbounded queue
	VendorMemory Vendor = "memory"
	// VendorFS serialised queue backed by an afs storage location
	VendorFS Vendor = "fs"
)

// Queue represents an abstract message queue for any payload type
type Queue[T any] interface {
	// Publish adds a new message with payload to the queue
	Publish(ctx context.Context, t *T) error

	// Consume retrieves a single message from the queue, blocking until one is available
	Consume(ctx context.Context) (Message[T], error)
}

// Message represents a message retrieved from a queue
type Message[T any] interface {
	// T returns the payload of this message
	T() *T

	// Ack acknowledges successful processing of this message
	Ack() error

	// Nack indicates failure in processing this message
	Nack(err error) error
}

// Sizer is implemented by queues able to report their backlog
type Sizer interface {
	Size() int
}
