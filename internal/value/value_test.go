package value

import "testing"

func TestFalseyness(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{NilValue(), true},
		{BoolValue(false), true},
		{BoolValue(true), false},
		{NumberValue(0), false},
		{NumberValue(1), false},
	}
	for _, c := range cases {
		if got := c.v.IsFalsey(); got != c.want {
			t.Errorf("IsFalsey(%v) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestEqualByContentForScalars(t *testing.T) {
	if !Equal(NumberValue(3), NumberValue(3)) {
		t.Error("equal numbers should compare equal")
	}
	if Equal(NumberValue(3), NumberValue(4)) {
		t.Error("unequal numbers should not compare equal")
	}
	if !Equal(NilValue(), NilValue()) {
		t.Error("nil should equal nil")
	}
	if Equal(BoolValue(true), BoolValue(false)) {
		t.Error("true should not equal false")
	}
}

func TestEqualStringsByContentDistinctObjects(t *testing.T) {
	a := ObjectValue(NewString("hi", HashString("hi")))
	b := ObjectValue(NewString("hi", HashString("hi")))
	if !Equal(a, b) {
		t.Error("two distinct ObjStrings with the same content should be value-equal")
	}
}

func TestEqualOtherObjectsByIdentity(t *testing.T) {
	u1 := &ObjUpvalue{Header: Header{Kind: KindUpvalue}}
	u2 := &ObjUpvalue{Header: Header{Kind: KindUpvalue}}
	if Equal(ObjectValue(u1), ObjectValue(u2)) {
		t.Error("distinct non-string objects should not compare equal")
	}
	if !Equal(ObjectValue(u1), ObjectValue(u1)) {
		t.Error("an object should equal itself")
	}
}

func TestNumberFormatting(t *testing.T) {
	if got := NumberValue(3).String(); got != "3" {
		t.Errorf("integral float printed as %q, want %q", got, "3")
	}
	if got := NumberValue(3.5).String(); got != "3.5" {
		t.Errorf("fractional float printed as %q, want %q", got, "3.5")
	}
}

func TestHeaderPromotesObjHeader(t *testing.T) {
	s := NewString("x", HashString("x"))
	var o Obj = s
	if o.ObjHeader().Kind != KindString {
		t.Errorf("ObjHeader().Kind = %v, want KindString", o.ObjHeader().Kind)
	}
}

func TestUpvalueOpenAndClose(t *testing.T) {
	slot := NumberValue(42)
	u := NewUpvalue(&slot)
	if !u.IsOpen() {
		t.Fatal("freshly created upvalue should be open")
	}
	u.Close()
	if u.IsOpen() {
		t.Fatal("upvalue should be closed after Close()")
	}
	if u.Closed.AsNumber() != 42 {
		t.Fatalf("Closed = %v, want 42", u.Closed)
	}
}
