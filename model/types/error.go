package types

import "fmt"

func NewMethodNotFoundError(name string) error {
	return fmt.Errorf("method %v not found", name)
}

func NewInvalidArgumentError(position int, value interface{}, expected string) error {
	return fmt.Errorf("invalid argument %d: %T, expected %v", position, value, expected)
}

func NewMissingArgumentError(name string) error {
	return fmt.Errorf("missing argument %v", name)
}
