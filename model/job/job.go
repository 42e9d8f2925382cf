// Package job defines the opaque unit of work submitted to a batcher.
package job

import (
	"fmt"
	"strings"

	"github.com/viant/batcher/model/types"
)

// Job represents a function reference plus its positional and keyword
// arguments. A job references its function either by Service/Method, resolved
// through the function registry on the worker side, or by an inline Func that
// only survives in-process transports.
type Job struct {
	Service string      `json:"service,omitempty" yaml:"service,omitempty"`
	Method  string      `json:"method,omitempty" yaml:"method,omitempty"`
	Args    *types.Args `json:"args,omitempty" yaml:"args,omitempty"`
	fn      types.Func
}

// New creates an inline job
func New(fn types.Func, args ...interface{}) *Job {
	return &Job{fn: fn, Args: types.NewArgs(args...)}
}

// Named creates a job referencing a registered function by "service/method" or
// by a service and method pair.
func Named(ref string, args ...interface{}) *Job {
	service, method := SplitRef(ref)
	return &Job{Service: service, Method: method, Args: types.NewArgs(args...)}
}

// WithKwarg sets keyword argument
func (j *Job) WithKwarg(name string, value interface{}) *Job {
	if j.Args == nil {
		j.Args = &types.Args{}
	}
	j.Args.SetKwarg(name, value)
	return j
}

// WithKwargs sets keyword arguments
func (j *Job) WithKwargs(kwargs map[string]interface{}) *Job {
	for k, v := range kwargs {
		j.WithKwarg(k, v)
	}
	return j
}

// Func returns inline function if any
func (j *Job) Func() types.Func {
	return j.fn
}

// IsInline returns true if job carries inline function
func (j *Job) IsInline() bool {
	return j.fn != nil
}

// Ref returns function identifier
func (j *Job) Ref() string {
	if j.Service == "" && j.Method == "" {
		if j.fn != nil {
			return "inline"
		}
		return ""
	}
	return j.Service + "/" + j.Method
}

func (j *Job) String() string {
	return fmt.Sprintf("%s(%d args)", j.Ref(), j.Args.Len())
}

// SplitRef splits "service/method" reference, the method is the segment
// after the last slash so services may be namespaced ("system/exec/run").
func SplitRef(ref string) (string, string) {
	idx := strings.LastIndex(ref, "/")
	if idx == -1 {
		return ref, ""
	}
	return ref[:idx], ref[idx+1:]
}
