package processor

import (
	"errors"
	"fmt"

	"github.com/viant/batcher/model/command"
)

var (
	ErrNotStarted     = errors.New("processor not started")
	ErrAlreadyStarted = errors.New("processor already started")
	ErrShutdown       = errors.New("processor already shut down")
)

// UnknownCommandError is the panic value raised when a worker receives a
// command kind it does not understand; it signals corrupted orchestration.
type UnknownCommandError struct {
	Kind   command.Kind
	Worker int
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("worker %d: unknown command %v", e.Worker, e.Kind)
}
