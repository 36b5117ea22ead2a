package object

import (
	"errors"
	"testing"

	"github.com/chazu/ember/internal/bytecode"
	"github.com/chazu/ember/internal/value"
)

func TestClassStringIsItsName(t *testing.T) {
	name := value.NewString("Cat", value.HashString("Cat"))
	c := NewClass(name)
	if c.String() != "Cat" {
		t.Errorf("String() = %q, want %q", c.String(), "Cat")
	}
	if c.Methods == nil {
		t.Error("a new class should start with an initialized methods table")
	}
}

func TestInstanceStringNamesItsClass(t *testing.T) {
	name := value.NewString("Cat", value.HashString("Cat"))
	c := NewClass(name)
	i := NewInstance(c)
	if i.String() != "Cat instance" {
		t.Errorf("String() = %q, want %q", i.String(), "Cat instance")
	}
	if i.Fields == nil {
		t.Error("a new instance should start with an initialized fields table")
	}
}

func TestBoundMethodStringDelegatesToMethod(t *testing.T) {
	fn := bytecode.NewFunction()
	fn.Name = value.NewString("speak", value.HashString("speak"))
	closure := bytecode.NewClosure(fn)
	receiver := value.NilValue()

	bm := NewBoundMethod(receiver, closure)
	if bm.String() != "<fn speak>" {
		t.Errorf("String() = %q, want %q", bm.String(), "<fn speak>")
	}
}

func TestNativeStringIncludesName(t *testing.T) {
	n := NewNative("len", func(args []value.Value) (value.Value, error) {
		return value.NumberValue(float64(len(args))), nil
	})
	if n.String() != "<native fn len>" {
		t.Errorf("String() = %q, want %q", n.String(), "<native fn len>")
	}
	v, err := n.Fn(nil)
	if err != nil || v.AsNumber() != 0 {
		t.Errorf("Fn(nil) = (%v, %v), want (0, nil)", v, err)
	}
}

func TestNativeFnCanReturnAnError(t *testing.T) {
	boom := errors.New("boom")
	n := NewNative("explode", func(args []value.Value) (value.Value, error) {
		return value.NilValue(), boom
	})
	_, err := n.Fn(nil)
	if err != boom {
		t.Fatalf("Fn() error = %v, want %v", err, boom)
	}
}

func TestArrayStringFormatsElements(t *testing.T) {
	a := NewArray([]value.Value{value.NumberValue(1), value.NumberValue(2), value.NumberValue(3)})
	if got, want := a.String(), "[1, 2, 3]"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestEmptyArrayStringHasNoElements(t *testing.T) {
	a := NewArray(nil)
	if got, want := a.String(), "[]"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
