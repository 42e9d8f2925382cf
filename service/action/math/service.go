package math

import (
	"context"
	"reflect"
	"strings"

	"github.com/viant/batcher/model/types"
)

// Name service name
const Name = "math"

// Service provides numeric aggregation functions
type Service struct{}

// New creates a math service
func New() *Service {
	return &Service{}
}

// Name returns the service name
func (s *Service) Name() string {
	return Name
}

// Methods returns the service methods
func (s *Service) Methods() types.Signatures {
	return []types.Signature{
		{
			Name:        "sum",
			Description: "Sums all numeric positional arguments, slices are flattened. Returns int when every operand is integral.",
		},
		{
			Name:        "product",
			Description: "Multiplies all numeric positional arguments, slices are flattened.",
		},
	}
}

// Method returns the specified method
func (s *Service) Method(name string) (types.Func, error) {
	switch strings.ToLower(name) {
	case "sum":
		return s.sum, nil
	case "product":
		return s.product, nil
	default:
		return nil, types.NewMethodNotFoundError(name)
	}
}

func (s *Service) sum(ctx context.Context, args *types.Args) (interface{}, error) {
	return fold(args, 0, func(acc, v float64) float64 { return acc + v }, func(acc, v int) int { return acc + v })
}

func (s *Service) product(ctx context.Context, args *types.Args) (interface{}, error) {
	return fold(args, 1, func(acc, v float64) float64 { return acc * v }, func(acc, v int) int { return acc * v })
}

func fold(args *types.Args, seed int, floatOp func(acc, v float64) float64, intOp func(acc, v int) int) (interface{}, error) {
	var operands []interface{}
	for i := 0; i < args.Len(); i++ {
		operands = flatten(args.At(i), operands)
	}
	intAcc, floatAcc, integral := seed, float64(seed), true
	for i, operand := range operands {
		if integral {
			if v, ok := types.AsInt(operand); ok {
				intAcc = intOp(intAcc, v)
				floatAcc = float64(intAcc)
				continue
			}
		}
		v, ok := types.AsFloat(operand)
		if !ok {
			return nil, types.NewInvalidArgumentError(i, operand, "number")
		}
		integral = false
		floatAcc = floatOp(floatAcc, v)
	}
	if integral {
		return intAcc, nil
	}
	return floatAcc, nil
}

func flatten(value interface{}, dest []interface{}) []interface{} {
	if value == nil {
		return dest
	}
	rValue := reflect.ValueOf(value)
	switch rValue.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rValue.Len(); i++ {
			dest = flatten(rValue.Index(i).Interface(), dest)
		}
		return dest
	}
	return append(dest, value)
}
