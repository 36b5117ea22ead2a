package vm

import (
	"fmt"

	"github.com/chazu/ember/internal/bytecode"
	"github.com/chazu/ember/internal/object"
	"github.com/chazu/ember/internal/table"
	"github.com/chazu/ember/internal/value"
)

// Rough per-variant size estimates for bytesAllocated bookkeeping. These
// don't need to match Go's actual allocator output (Go's own GC owns the
// real memory); they only need to be consistent enough to drive the
// heap-growth heuristic the way the source's sizeof()-based accounting
// does.
const (
	sizeString      = 32
	sizeFunction    = 64
	sizeClosure     = 40
	sizeUpvalue     = 24
	sizeClass       = 48
	sizeInstance    = 32
	sizeBoundMethod = 32
	sizeNative      = 24
	sizeArray       = 32
)

// registerObject accounts for a freshly constructed object's size,
// triggers a collection if the allocation pushed bytesAllocated past
// nextGC (or stress mode is on), and only then links the object into the
// collector's intrusive list, so the collection its own allocation
// triggers never sweeps it. Every New* helper below funnels through here
// exactly once, immediately after constructing the object and, where the
// allocation-safety discipline requires it, after the object has already
// been pushed as a temporary root.
func (vm *VM) registerObject(obj value.Obj, size int) {
	vm.bytesAllocated += size

	if vm.cfg.GC.Stress || vm.bytesAllocated > vm.nextGC {
		vm.collectGarbage()
	}

	h := obj.ObjHeader()
	h.Next = vm.objects
	vm.objects = obj
}

func (vm *VM) collectGarbage() {
	if vm.cfg.GC.Log {
		fmt.Fprintf(vm.diag, "-- gc begin (session %s)\n", vm.sessionID)
	}
	before := vm.bytesAllocated

	vm.markRoots()
	vm.traceReferences()
	vm.strings.RemoveWhite()
	vm.sweep()

	vm.nextGC = int(float64(vm.bytesAllocated) * vm.cfg.GC.GrowFactor)
	if vm.nextGC < vm.cfg.GC.InitialThreshold {
		vm.nextGC = vm.cfg.GC.InitialThreshold
	}

	if vm.cfg.GC.Log {
		fmt.Fprintf(vm.diag, "-- gc end: collected %d bytes (%d -> %d), next at %d\n",
			before-vm.bytesAllocated, before, vm.bytesAllocated, vm.nextGC)
	}
}

func (vm *VM) markRoots() {
	for i := 0; i < vm.sp; i++ {
		vm.markValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		vm.markObject(vm.frames[i].closure)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.NextOpen {
		vm.markObject(uv)
	}
	vm.markTable(vm.globals)
	for _, fn := range vm.compilerRoots {
		vm.markObject(fn)
	}
	if vm.initString != nil {
		vm.markObject(vm.initString)
	}
	// The intern table is deliberately NOT marked here: its keys survive
	// only if reachable through one of the roots above, via weak-key
	// semantics resolved by RemoveWhite after tracing.
}

func (vm *VM) markValue(v value.Value) {
	if v.IsObject() {
		vm.markObject(v.AsObject())
	}
}

func (vm *VM) markObject(o value.Obj) {
	if o == nil {
		return
	}
	h := o.ObjHeader()
	if h.Marked {
		return
	}
	h.Marked = true
	vm.grayStack = append(vm.grayStack, o)
}

func (vm *VM) markTable(t *table.Table) {
	t.ForEach(func(key *value.ObjString, val value.Value) {
		vm.markObject(key)
		vm.markValue(val)
	})
}

func (vm *VM) traceReferences() {
	for len(vm.grayStack) > 0 {
		n := len(vm.grayStack) - 1
		obj := vm.grayStack[n]
		vm.grayStack = vm.grayStack[:n]
		vm.blackenObject(obj)
	}
}

// blackenObject scans one gray object's outgoing references. The type
// switch over concrete variants is the exhaustive-pattern-match
// replacement for hand-rolled type-tag dispatch.
func (vm *VM) blackenObject(obj value.Obj) {
	switch o := obj.(type) {
	case *value.ObjString, *object.Native:
		// no outgoing object references
	case *value.ObjUpvalue:
		vm.markValue(o.Closed)
	case *bytecode.ObjClosure:
		vm.markObject(o.Function)
		for _, uv := range o.Upvalues {
			// An in-progress CLOSURE capture loop can trigger a collection
			// before every slot is filled; the zero value is a nil
			// *value.ObjUpvalue, not a nil Obj, so it must be checked here
			// rather than relying on markObject's interface-nil check.
			if uv != nil {
				vm.markObject(uv)
			}
		}
	case *bytecode.ObjFunction:
		if o.Name != nil {
			vm.markObject(o.Name)
		}
		for _, c := range o.Chunk.Constants {
			vm.markValue(c)
		}
	case *object.Class:
		vm.markObject(o.Name)
		if o.Superclass != nil {
			vm.markObject(o.Superclass)
		}
		vm.markTable(o.Methods)
	case *object.Instance:
		vm.markObject(o.Class)
		vm.markTable(o.Fields)
	case *object.BoundMethod:
		vm.markValue(o.Receiver)
		vm.markObject(o.Method)
	case *object.Array:
		for _, e := range o.Elements {
			vm.markValue(e)
		}
	}
}

// sweep walks the intrusive object list once: unmarked objects are
// unlinked (Go's own collector reclaims the memory once nothing else
// references them) and their estimated size is returned to
// bytesAllocated, so the heap-growth heuristic tracks live bytes rather
// than ratcheting upward forever; survivors have their mark bit cleared
// for the next cycle.
func (vm *VM) sweep() {
	var prev value.Obj
	obj := vm.objects
	for obj != nil {
		h := obj.ObjHeader()
		if h.Marked {
			h.Marked = false
			prev = obj
			obj = h.Next
			continue
		}
		unreached := obj
		obj = h.Next
		if prev != nil {
			prev.ObjHeader().Next = obj
		} else {
			vm.objects = obj
		}
		unreached.ObjHeader().Next = nil
		vm.bytesAllocated -= objectSize(unreached)
	}
}

// objectSize mirrors the size estimate registerObject recorded for obj
// at allocation time, letting sweep credit back exactly what it freed.
func objectSize(obj value.Obj) int {
	switch o := obj.(type) {
	case *value.ObjString:
		return sizeString + len(o.Chars)
	case *bytecode.ObjFunction:
		return sizeFunction
	case *bytecode.ObjClosure:
		return sizeClosure
	case *value.ObjUpvalue:
		return sizeUpvalue
	case *object.Class:
		return sizeClass
	case *object.Instance:
		return sizeInstance
	case *object.BoundMethod:
		return sizeBoundMethod
	case *object.Native:
		return sizeNative
	case *object.Array:
		return sizeArray + 8*len(o.Elements)
	default:
		return 0
	}
}

// ---------------------------------------------------------------------
// compiler.Allocator implementation
// ---------------------------------------------------------------------

// InternString returns the canonical ObjString for chars, allocating and
// registering a new one only if this is the first time these exact bytes
// have been seen. The push/registerObject/pop sequence is the
// allocation-safety discipline: between creation and insertion into the
// intern table, the new string is reachable only by being a temporary
// stack root.
func (vm *VM) InternString(chars string) *value.ObjString {
	return vm.internString(chars)
}

func (vm *VM) internString(chars string) *value.ObjString {
	hash := value.HashString(chars)
	if interned := vm.strings.FindString(chars, hash); interned != nil {
		return interned
	}
	s := value.NewString(chars, hash)
	vm.push(value.ObjectValue(s))
	vm.registerObject(s, sizeString+len(chars))
	vm.strings.Set(s, value.NilValue())
	vm.pop()
	return s
}

// NewFunction allocates an empty ObjFunction for the compiler to fill in.
func (vm *VM) NewFunction() *bytecode.ObjFunction {
	fn := bytecode.NewFunction()
	vm.registerObject(fn, sizeFunction)
	return fn
}

// PushCompilerRoot and PopCompilerRoot keep the currently-active compiler
// chain's in-progress functions reachable during compilation, so a
// collection triggered by, say, interning a long run of string constants
// doesn't sweep away a function whose body hasn't finished compiling.
func (vm *VM) PushCompilerRoot(fn *bytecode.ObjFunction) {
	vm.compilerRoots = append(vm.compilerRoots, fn)
}

func (vm *VM) PopCompilerRoot() {
	vm.compilerRoots = vm.compilerRoots[:len(vm.compilerRoots)-1]
}

// ---------------------------------------------------------------------
// Runtime object allocation
// ---------------------------------------------------------------------

func (vm *VM) newClosure(fn *bytecode.ObjFunction) *bytecode.ObjClosure {
	c := bytecode.NewClosure(fn)
	vm.registerObject(c, sizeClosure)
	return c
}

func (vm *VM) newUpvalue(slot *value.Value) *value.ObjUpvalue {
	u := value.NewUpvalue(slot)
	vm.registerObject(u, sizeUpvalue)
	return u
}

func (vm *VM) newClass(name *value.ObjString) *object.Class {
	c := object.NewClass(name)
	vm.registerObject(c, sizeClass)
	return c
}

func (vm *VM) newInstance(class *object.Class) *object.Instance {
	i := object.NewInstance(class)
	vm.registerObject(i, sizeInstance)
	return i
}

func (vm *VM) newBoundMethod(receiver value.Value, method *bytecode.ObjClosure) *object.BoundMethod {
	b := object.NewBoundMethod(receiver, method)
	vm.registerObject(b, sizeBoundMethod)
	return b
}

func (vm *VM) newNative(name string, fn object.NativeFn) *object.Native {
	n := object.NewNative(name, fn)
	vm.registerObject(n, sizeNative)
	return n
}

func (vm *VM) newArray(elements []value.Value) *object.Array {
	a := object.NewArray(elements)
	vm.registerObject(a, sizeArray+8*len(elements))
	return a
}
