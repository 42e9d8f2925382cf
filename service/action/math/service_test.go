package math

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/batcher/model/types"
)

func TestService_Sum(t *testing.T) {
	testCases := []struct {
		name      string
		method    string
		args      *types.Args
		expect    interface{}
		expectErr bool
	}{
		{name: "ints", method: "sum", args: types.NewArgs(1, 2, 3), expect: 6},
		{name: "nested slice", method: "sum", args: types.NewArgs([]int{1, 2, 3, 4, 5, 7}), expect: 22},
		{name: "json numbers", method: "sum", args: types.NewArgs([]interface{}{float64(1), float64(2)}), expect: 3},
		{name: "mixed float", method: "sum", args: types.NewArgs(1, 0.5), expect: 1.5},
		{name: "empty", method: "sum", args: types.NewArgs(), expect: 0},
		{name: "invalid", method: "sum", args: types.NewArgs("x"), expectErr: true},
		{name: "numeric text", method: "sum", args: types.NewArgs("3", "4"), expectErr: true},
		{name: "int64 and uint8", method: "sum", args: types.NewArgs(int64(3), uint8(4)), expect: 7},
		{name: "product", method: "product", args: types.NewArgs([]int{2, 3}, 4), expect: 24},
		{name: "product empty", method: "product", args: types.NewArgs(), expect: 1},
	}
	service := New()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fn, err := service.Method(tc.method)
			assert.NoError(t, err)
			actual, err := fn(context.Background(), tc.args)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expect, actual)
		})
	}
}

func TestService_Method(t *testing.T) {
	service := New()
	assert.Equal(t, Name, service.Name())
	assert.Len(t, service.Methods(), 2)
	_, err := service.Method("max")
	assert.Error(t, err)
}
