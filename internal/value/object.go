package value

// Kind tags which heap-object variant a value carries. Dispatch on Kind
// replaces the type-tag-plus-cast pattern with an exhaustive switch over a
// small closed set, the nearest idiom Go has to a sum type.
type Kind byte

const (
	KindString Kind = iota
	KindFunction
	KindClosure
	KindUpvalue
	KindClass
	KindInstance
	KindBoundMethod
	KindNative
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindFunction:
		return "function"
	case KindClosure:
		return "closure"
	case KindUpvalue:
		return "upvalue"
	case KindClass:
		return "class"
	case KindInstance:
		return "instance"
	case KindBoundMethod:
		return "bound method"
	case KindNative:
		return "native"
	case KindArray:
		return "array"
	default:
		return "?"
	}
}

// Header is the common heap header every object variant embeds: the
// variant tag, the GC mark bit, and the intrusive link threading every
// live object into the collector's single linked list.
type Header struct {
	Kind   Kind
	Marked bool
	Next   Obj
}

func (h *Header) ObjHeader() *Header { return h }

// Obj is satisfied by every heap-allocated variant via an embedded Header.
type Obj interface {
	ObjHeader() *Header
}

// ObjString is an immutable, interned byte string with a precomputed hash.
type ObjString struct {
	Header
	Chars string
	Hash  uint32
}

func NewString(chars string, hash uint32) *ObjString {
	return &ObjString{Header: Header{Kind: KindString}, Chars: chars, Hash: hash}
}

func (s *ObjString) String() string { return s.Chars }

// HashString computes the 32-bit FNV-1a hash used for both the intern
// table and every other hash-table lookup keyed by string contents.
func HashString(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

// ObjUpvalue boxes a reference to a variable captured by a closure. While
// open, Location aliases a live stack slot; once closed, Location is
// repointed at Closed and the value is owned by the upvalue itself.
// NextOpen threads the VM's open-upvalue list, kept sorted by decreasing
// stack address, independent of the GC's own intrusive Next list.
type ObjUpvalue struct {
	Header
	Location *Value
	Closed   Value
	NextOpen *ObjUpvalue
}

func NewUpvalue(slot *Value) *ObjUpvalue {
	return &ObjUpvalue{Header: Header{Kind: KindUpvalue}, Location: slot}
}

func (u *ObjUpvalue) String() string { return "upvalue" }

// IsOpen reports whether this upvalue still aliases a live stack slot.
func (u *ObjUpvalue) IsOpen() bool { return u.Location != &u.Closed }

// Close migrates the upvalue's value onto the heap and redirects Location
// to point at it, severing the alias to the (about to be discarded) stack
// slot.
func (u *ObjUpvalue) Close() {
	u.Closed = *u.Location
	u.Location = &u.Closed
}
