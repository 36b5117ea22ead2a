package vm

import (
	"fmt"

	"github.com/chazu/ember/internal/bytecode"
	"github.com/chazu/ember/internal/object"
	"github.com/chazu/ember/internal/value"
)

// callValue dispatches on the callee's runtime type, the Call protocol's
// four recognized cases plus the catch-all error. The callee sits on the
// stack just below its argCount arguments.
func (vm *VM) callValue(callee value.Value, argCount int) error {
	if !callee.IsObject() {
		return fmt.Errorf("Can only call functions and classes.")
	}

	switch callee := callee.AsObject().(type) {
	case *object.Native:
		args := make([]value.Value, argCount)
		copy(args, vm.stack[vm.sp-argCount:vm.sp])
		result, err := callee.Fn(args)
		if err != nil {
			return err
		}
		vm.sp -= argCount + 1
		vm.push(result)
		return nil

	case *bytecode.ObjClosure:
		return vm.callClosure(callee, argCount)

	case *object.Class:
		inst := vm.newInstance(callee)
		vm.stack[vm.sp-argCount-1] = value.ObjectValue(inst)
		if init, ok := callee.Methods.Get(vm.initString); ok {
			return vm.callClosure(init.AsObject().(*bytecode.ObjClosure), argCount)
		}
		if argCount != 0 {
			return fmt.Errorf("Expected 0 arguments but got %d.", argCount)
		}
		return nil

	case *object.BoundMethod:
		vm.stack[vm.sp-argCount-1] = callee.Receiver
		return vm.callClosure(callee.Method, argCount)

	default:
		return fmt.Errorf("Can only call functions and classes.")
	}
}

// callClosure pushes a new call frame for closure, base set so that
// local slot 0 lands on the receiver/callee slot already on the stack.
func (vm *VM) callClosure(closure *bytecode.ObjClosure, argCount int) error {
	if argCount != closure.Function.Arity {
		return fmt.Errorf("Expected %d arguments but got %d.", closure.Function.Arity, argCount)
	}
	if vm.frameCount >= len(vm.frames) {
		return fmt.Errorf("Stack overflow.")
	}

	vm.frames[vm.frameCount] = callFrame{
		closure: closure,
		ip:      0,
		base:    vm.sp - argCount - 1,
	}
	vm.frameCount++
	return nil
}

// invoke is the INVOKE fast path: instance fields are checked first (a
// field may shadow a method of the same name), then the class's method
// table directly. Because INHERIT copies a superclass's methods into the
// subclass table at class-creation time, there's no superclass chain to
// walk here.
func (vm *VM) invoke(fr *callFrame, name *value.ObjString, argCount int) error {
	receiver := vm.peek(argCount)
	inst, ok := receiver.AsObject().(*object.Instance)
	if !ok {
		return fmt.Errorf("Only instances have methods.")
	}

	if field, ok := inst.Fields.Get(name); ok {
		vm.stack[vm.sp-argCount-1] = field
		return vm.callValue(field, argCount)
	}

	return vm.invokeFromClass(fr, inst.Class, name, argCount)
}

func (vm *VM) invokeFromClass(fr *callFrame, class *object.Class, name *value.ObjString, argCount int) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return fmt.Errorf("Undefined property '%s'.", name.Chars)
	}
	return vm.callClosure(method.AsObject().(*bytecode.ObjClosure), argCount)
}

// bindMethod looks up name on class's method table and, if found, wraps
// it with the current peek(0) receiver into a BoundMethod, replacing the
// receiver on the stack with the result.
func (vm *VM) bindMethod(fr *callFrame, class *object.Class, name *value.ObjString) error {
	methodVal, ok := class.Methods.Get(name)
	if !ok {
		return fmt.Errorf("Undefined property '%s'.", name.Chars)
	}
	bound := vm.newBoundMethod(vm.peek(0), methodVal.AsObject().(*bytecode.ObjClosure))
	vm.pop()
	vm.push(value.ObjectValue(bound))
	return nil
}

// defineMethod pops a Closure off the stack and stores it in the class
// just below it (left there by CLASS/the method-compiling loop), keyed
// by name.
func (vm *VM) defineMethod(name *value.ObjString) {
	method := vm.peek(0)
	class := vm.peek(1).AsObject().(*object.Class)
	class.Methods.Set(name, method)
	vm.pop()
}

// ---------------------------------------------------------------------
// Arithmetic and comparison
// ---------------------------------------------------------------------

func (vm *VM) numericCompare(fr *callFrame, cmp func(a, b float64) bool) (value.Value, error) {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return value.Value{}, fmt.Errorf("Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	return value.BoolValue(cmp(a, b)), nil
}

func (vm *VM) arith(fr *callFrame, op func(a, b float64) float64) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return fmt.Errorf("Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	vm.push(value.NumberValue(op(a, b)))
	return nil
}

// add handles the one polymorphic binary operator: number+number or
// string+string. String concatenation interns its result, which is the
// third of the named allocation-unsafe spots, covered by internString's
// own push-before-register discipline.
func (vm *VM) add(fr *callFrame) error {
	if vm.peek(0).IsNumber() && vm.peek(1).IsNumber() {
		b := vm.pop().AsNumber()
		a := vm.pop().AsNumber()
		vm.push(value.NumberValue(a + b))
		return nil
	}

	bStr, bOk := vm.peek(0).AsObject().(*value.ObjString)
	aStr, aOk := vm.peek(1).AsObject().(*value.ObjString)
	if !aOk || !bOk {
		return fmt.Errorf("Operands must be two numbers or two strings.")
	}
	vm.pop()
	vm.pop()
	vm.push(value.ObjectValue(vm.internString(aStr.Chars + bStr.Chars)))
	return nil
}

// runtimeError formats message, attaches the current frame-by-frame
// stack trace (newest call first, matching the reporter's own ordering),
// and returns it as the dispatch loop's error result.
func (vm *VM) runtimeError(fr *callFrame, format string, args ...interface{}) (Result, error) {
	msg := fmt.Sprintf(format, args...)

	trace := make([]string, 0, vm.frameCount)
	for i := vm.frameCount - 1; i >= 0; i-- {
		f := &vm.frames[i]
		l := f.closure.Function.Chunk.LineAt(f.ip - 1)
		name := "script"
		if f.closure.Function.Name != nil {
			name = f.closure.Function.Name.Chars + "()"
		}
		trace = append(trace, fmt.Sprintf("[line %d] in %s", l, name))
	}

	vm.sp = 0
	vm.frameCount = 0
	return ResultRuntimeError, &RuntimeError{Message: msg, Trace: trace}
}
