package types

import (
	"math"

	"github.com/viant/structology/conv"
)

var defaultConverter = NewConverter()

// NewConverter creates a converter turning decoded values (for example JSON
// maps and float64 numbers) into typed Go values
func NewConverter() *conv.Converter {
	options := conv.DefaultOptions()
	options.ClonePointerData = true
	options.IgnoreUnmapped = true
	options.AccessUnexported = true
	return conv.NewConverter(options)
}

// Convert converts value into dest pointer with the default converter
func Convert(value interface{}, dest interface{}) error {
	return defaultConverter.Convert(value, dest)
}

// AsInt converts numeric value to int, floats are accepted only when integral
func AsInt(value interface{}) (int, bool) {
	return asInt(defaultConverter, value)
}

// AsFloat converts numeric value to float64
func AsFloat(value interface{}) (float64, bool) {
	return asFloat(defaultConverter, value)
}

func asInt(converter *conv.Converter, value interface{}) (int, bool) {
	switch actual := value.(type) {
	case int:
		return actual, true
	case float32:
		return asInt(converter, float64(actual))
	case float64:
		if actual != math.Trunc(actual) {
			return 0, false
		}
	}
	if !isNumber(value) {
		return 0, false
	}
	var ret int
	if err := converter.Convert(value, &ret); err != nil {
		return 0, false
	}
	return ret, true
}

func asFloat(converter *conv.Converter, value interface{}) (float64, bool) {
	if !isNumber(value) {
		return 0, false
	}
	var ret float64
	if err := converter.Convert(value, &ret); err != nil {
		return 0, false
	}
	return ret, true
}

// isNumber reports numeric kinds only, text is never coerced into a number
func isNumber(value interface{}) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}
