package batcher

import (
	"errors"
	"fmt"
)

var (
	ErrClosed          = errors.New("batcher is closed")
	ErrInvalidWorkers  = errors.New("worker count must be > 0")
	ErrUnsupportedType = errors.New("unsupported queue type")
)

// InvariantError is the panic value raised when a collected result cannot be
// placed into the results slice; it signals corrupted orchestration.
type InvariantError struct {
	BatchID string
	Index   int
	Size    int
	Reason  string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("batch %v: %v: slot %d of %d", e.BatchID, e.Reason, e.Index, e.Size)
}
