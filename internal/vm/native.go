package vm

import (
	"fmt"
	"time"

	"github.com/chazu/ember/internal/object"
	"github.com/chazu/ember/internal/value"
)

// DefineNative registers a host-implemented function callable from the
// language under name, the embedding API's defineNative primitive.
func (vm *VM) DefineNative(name string, fn object.NativeFn) {
	s := vm.internString(name)
	vm.push(value.ObjectValue(s))
	n := vm.newNative(name, fn)
	vm.push(value.ObjectValue(n))
	vm.globals.Set(s, vm.stack[vm.sp-1])
	vm.pop()
	vm.pop()
}

// defineStandardNatives installs the native bridge's built-in functions:
// a wall-clock function (named by the core) and, for the array
// supplement, len/append.
func (vm *VM) defineStandardNatives() {
	vm.DefineNative("clock", func(args []value.Value) (value.Value, error) {
		return value.NumberValue(float64(time.Now().UnixNano()) / 1e9), nil
	})

	vm.DefineNative("len", func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return value.Value{}, fmt.Errorf("len() takes exactly 1 argument.")
		}
		switch o := args[0].AsObject().(type) {
		case *value.ObjString:
			return value.NumberValue(float64(len(o.Chars))), nil
		case *object.Array:
			return value.NumberValue(float64(len(o.Elements))), nil
		default:
			return value.Value{}, fmt.Errorf("len() argument must be a string or array.")
		}
	})

	vm.DefineNative("append", func(args []value.Value) (value.Value, error) {
		if len(args) != 2 {
			return value.Value{}, fmt.Errorf("append() takes exactly 2 arguments.")
		}
		arr, ok := args[0].AsObject().(*object.Array)
		if !ok {
			return value.Value{}, fmt.Errorf("append() first argument must be an array.")
		}
		arr.Elements = append(arr.Elements, args[1])
		vm.bytesAllocated += 8
		return args[0], nil
	})
}
