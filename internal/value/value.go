// Package value defines the runtime value representation shared by every
// other package in the interpreter: the tagged Value union and the common
// object header every heap-allocated variant embeds.
package value

import "fmt"

// Type tags the variant carried by a Value.
type Type byte

const (
	Nil Type = iota
	Bool
	Number
	Object
)

// Value is a uniform runtime value. Unlike the NaN-boxed representation
// some dynamic-language VMs use, this keeps the tag explicit: a Value is
// a small tagged struct rather than a reinterpreted float64, which keeps
// the garbage collector's job of telling objects from scalars trivial.
type Value struct {
	typ    Type
	b      bool
	n      float64
	obj    Obj
}

func NilValue() Value { return Value{typ: Nil} }

func BoolValue(b bool) Value { return Value{typ: Bool, b: b} }

func NumberValue(n float64) Value { return Value{typ: Number, n: n} }

func ObjectValue(o Obj) Value { return Value{typ: Object, obj: o} }

func (v Value) Type() Type { return v.typ }

func (v Value) IsNil() bool    { return v.typ == Nil }
func (v Value) IsBool() bool   { return v.typ == Bool }
func (v Value) IsNumber() bool { return v.typ == Number }
func (v Value) IsObject() bool { return v.typ == Object }

func (v Value) AsBool() bool     { return v.b }
func (v Value) AsNumber() float64 { return v.n }
func (v Value) AsObject() Obj    { return v.obj }

// IsFalsey implements the language's truthiness rule: only nil and the
// boolean false are falsey; everything else, including 0 and "", is true.
func (v Value) IsFalsey() bool {
	return v.typ == Nil || (v.typ == Bool && !v.b)
}

// Equal implements value equality per the data model: nil equals nil,
// bools and numbers compare by content, strings compare by content (which
// interning turns into pointer equality), and every other object variant
// compares by identity.
func Equal(a, b Value) bool {
	if a.typ != b.typ {
		return false
	}
	switch a.typ {
	case Nil:
		return true
	case Bool:
		return a.b == b.b
	case Number:
		return a.n == b.n
	case Object:
		as, aok := a.obj.(*ObjString)
		bs, bok := b.obj.(*ObjString)
		if aok && bok {
			return as == bs || as.Chars == bs.Chars
		}
		return a.obj == b.obj
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.typ {
	case Nil:
		return "nil"
	case Bool:
		if v.b {
			return "true"
		}
		return "false"
	case Number:
		return formatNumber(v.n)
	case Object:
		return fmt.Sprint(v.obj)
	default:
		return "<invalid value>"
	}
}

func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}
