// Package object holds the heap-object variants that depend on both the
// hash table and the bytecode package: classes, instances, bound
// methods, native functions, and the array supplement.
package object

import (
	"github.com/chazu/ember/internal/bytecode"
	"github.com/chazu/ember/internal/table"
	"github.com/chazu/ember/internal/value"
)

// Class holds its name and a methods table (String -> Closure). Classes
// are created by CLASS and populated by subsequent METHOD/INHERIT
// opcodes before becoming visible to any other code.
type Class struct {
	value.Header
	Name       *value.ObjString
	Superclass *Class
	Methods    *table.Table
}

func NewClass(name *value.ObjString) *Class {
	return &Class{
		Header:  value.Header{Kind: value.KindClass},
		Name:    name,
		Methods: table.NewTable(),
	}
}

func (c *Class) String() string { return c.Name.Chars }

// Instance holds a reference to its Class and a fields table
// (String -> Value).
type Instance struct {
	value.Header
	Class  *Class
	Fields *table.Table
}

func NewInstance(class *Class) *Instance {
	return &Instance{
		Header: value.Header{Kind: value.KindInstance},
		Class:  class,
		Fields: table.NewTable(),
	}
}

func (i *Instance) String() string { return i.Class.Name.Chars + " instance" }

// BoundMethod pairs a receiver Value with a Closure; produced when an
// instance method is accessed as a value rather than called directly.
type BoundMethod struct {
	value.Header
	Receiver value.Value
	Method   *bytecode.ObjClosure
}

func NewBoundMethod(receiver value.Value, method *bytecode.ObjClosure) *BoundMethod {
	return &BoundMethod{
		Header:   value.Header{Kind: value.KindBoundMethod},
		Receiver: receiver,
		Method:   method,
	}
}

func (b *BoundMethod) String() string { return b.Method.String() }

// NativeFn is a host function callable from interpreted code. It receives
// its argument slice directly (no receiver) and returns either a result
// Value or an error which the VM turns into a runtime error carrying the
// current call site's line.
type NativeFn func(args []value.Value) (value.Value, error)

// Native wraps a host function reference callable by the interpreter.
type Native struct {
	value.Header
	Name string
	Fn   NativeFn
}

func NewNative(name string, fn NativeFn) *Native {
	return &Native{Header: value.Header{Kind: value.KindNative}, Name: name, Fn: fn}
}

func (n *Native) String() string { return "<native fn " + n.Name + ">" }

// Array is a supplemental heap variant backing bracket literals and the
// append/len natives; it follows the same GC discipline (intrusive list,
// mark/blacken/sweep) as every other object variant.
type Array struct {
	value.Header
	Elements []value.Value
}

func NewArray(elements []value.Value) *Array {
	return &Array{Header: value.Header{Kind: value.KindArray}, Elements: elements}
}

func (a *Array) String() string {
	s := "["
	for i, e := range a.Elements {
		if i > 0 {
			s += ", "
		}
		s += e.String()
	}
	return s + "]"
}
