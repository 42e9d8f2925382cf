package executor

import (
	"errors"
	"fmt"
)

var (
	ErrJobRequired      = errors.New("job was nil")
	ErrFunctionNotFound = errors.New("function not found")
)

// PanicError wraps a value recovered from a panicking job
type PanicError struct {
	Ref   string
	Value interface{}
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("job %v panicked: %v", e.Ref, e.Value)
}
