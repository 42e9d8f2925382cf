package batcher

import (
	"errors"
	"fmt"
)

// Result is the outcome of a single job, Index is its submission position
type Result struct {
	Index int
	Value interface{}
	Err   error
}

// Results are ordered by submission
type Results []Result

// Values returns job values in submission order, failed jobs yield nil
func (r Results) Values() []interface{} {
	ret := make([]interface{}, len(r))
	for i, result := range r {
		ret[i] = result.Value
	}
	return ret
}

// Err returns all job errors joined, or nil when every job succeeded
func (r Results) Err() error {
	var errs []error
	for _, result := range r {
		if result.Err != nil {
			errs = append(errs, fmt.Errorf("job %d: %w", result.Index, result.Err))
		}
	}
	return errors.Join(errs...)
}

// Failed returns the number of failed jobs
func (r Results) Failed() int {
	count := 0
	for _, result := range r {
		if result.Err != nil {
			count++
		}
	}
	return count
}

// ValuesOf returns typed job values; it fails on the first job error or
// value of a different type.
func ValuesOf[T any](results Results) ([]T, error) {
	ret := make([]T, len(results))
	for i, result := range results {
		if result.Err != nil {
			return nil, fmt.Errorf("job %d: %w", result.Index, result.Err)
		}
		value, ok := result.Value.(T)
		if !ok {
			return nil, fmt.Errorf("job %d: unexpected value type %T", result.Index, result.Value)
		}
		ret[i] = value
	}
	return ret, nil
}
