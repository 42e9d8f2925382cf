package types

import (
	"fmt"
	"strconv"

	"github.com/viant/structology/conv"
)

// Args holds positional and keyword arguments of a job. Values must be JSON
// serialisable when the job travels through a serialised queue; numbers then
// come back as float64, which the accessors below convert transparently.
type Args struct {
	Positional []interface{}          `json:"positional,omitempty" yaml:"positional,omitempty"`
	Keyword    map[string]interface{} `json:"keyword,omitempty" yaml:"keyword,omitempty"`
	converter  *conv.Converter
}

// NewArgs creates positional arguments
func NewArgs(positional ...interface{}) *Args {
	return &Args{Positional: positional}
}

// WithConverter returns a shallow copy of args using converter for typed access
func (a *Args) WithConverter(converter *conv.Converter) *Args {
	ret := &Args{converter: converter}
	if a != nil {
		ret.Positional = a.Positional
		ret.Keyword = a.Keyword
	}
	return ret
}

func (a *Args) typedConverter() *conv.Converter {
	if a == nil || a.converter == nil {
		return defaultConverter
	}
	return a.converter
}

// Len returns number of positional arguments
func (a *Args) Len() int {
	if a == nil {
		return 0
	}
	return len(a.Positional)
}

// At returns positional argument or nil
func (a *Args) At(position int) interface{} {
	if position < 0 || position >= a.Len() {
		return nil
	}
	return a.Positional[position]
}

// Int returns positional argument as int
func (a *Args) Int(position int) (int, error) {
	if position >= a.Len() {
		return 0, NewMissingArgumentError(strconv.Itoa(position))
	}
	value := a.Positional[position]
	ret, ok := asInt(a.typedConverter(), value)
	if !ok {
		return 0, NewInvalidArgumentError(position, value, "int")
	}
	return ret, nil
}

// String returns positional argument as string
func (a *Args) String(position int) (string, error) {
	if position >= a.Len() {
		return "", NewMissingArgumentError(strconv.Itoa(position))
	}
	value := a.Positional[position]
	switch actual := value.(type) {
	case string:
		return actual, nil
	case fmt.Stringer:
		return actual.String(), nil
	}
	return "", NewInvalidArgumentError(position, value, "string")
}

// Kwarg returns keyword argument
func (a *Args) Kwarg(name string) (interface{}, bool) {
	if a == nil || a.Keyword == nil {
		return nil, false
	}
	value, ok := a.Keyword[name]
	return value, ok
}

// SetKwarg sets keyword argument
func (a *Args) SetKwarg(name string, value interface{}) {
	if a.Keyword == nil {
		a.Keyword = map[string]interface{}{}
	}
	a.Keyword[name] = value
}

// DecodeKwargs converts keyword arguments into dest struct pointer, unknown keywords are ignored
func (a *Args) DecodeKwargs(dest interface{}) error {
	if a == nil || len(a.Keyword) == 0 {
		return nil
	}
	return a.typedConverter().Convert(a.Keyword, dest)
}
