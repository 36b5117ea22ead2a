package bytecode

import (
	"fmt"

	"github.com/chazu/ember/internal/value"
	"github.com/fxamacker/cbor/v2"
)

// cborEncMode mirrors the canonical-mode CBOR encoder the teacher's
// distribution format builds once at init time, giving deterministic
// byte output for the same Chunk across runs.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// wireValue is the portable mirror of value.Value: Value's fields are
// private (by design, to keep the tag-plus-payload invariant from being
// bypassed), so dump/load goes through this explicit representation
// instead of tagging cbor directly on Value.
type wireValue struct {
	Type byte       `cbor:"t"`
	Num  float64    `cbor:"n,omitempty"`
	Bool bool       `cbor:"b,omitempty"`
	Str  string      `cbor:"s,omitempty"`
	Fn   *wireChunk `cbor:"f,omitempty"`
}

// wireChunk is the portable mirror of an ObjFunction + its Chunk.
type wireChunk struct {
	Name      string      `cbor:"name"`
	Arity     int         `cbor:"arity"`
	Upvalues  int         `cbor:"upvalues"`
	Code      []byte      `cbor:"code"`
	Lines     []int       `cbor:"lines"`
	Constants []wireValue `cbor:"constants"`
}

func toWireValue(v value.Value) wireValue {
	switch v.Type() {
	case value.Nil:
		return wireValue{Type: byte(value.Nil)}
	case value.Bool:
		return wireValue{Type: byte(value.Bool), Bool: v.AsBool()}
	case value.Number:
		return wireValue{Type: byte(value.Number), Num: v.AsNumber()}
	case value.Object:
		switch o := v.AsObject().(type) {
		case *value.ObjString:
			return wireValue{Type: byte(value.Object), Str: o.Chars}
		case *ObjFunction:
			return wireValue{Type: byte(value.Object) + 1, Fn: toWireChunk(o)}
		default:
			return wireValue{Type: byte(value.Nil)}
		}
	default:
		return wireValue{Type: byte(value.Nil)}
	}
}

// internFunc reinterns a decoded string constant against the live VM so
// the round-tripped Chunk still satisfies the one-instance-per-contents
// interning invariant instead of manufacturing a detached duplicate.
type internFunc func(chars string) *value.ObjString

func fromWireValue(w wireValue, intern internFunc) value.Value {
	switch value.Type(w.Type) {
	case value.Nil:
		return value.NilValue()
	case value.Bool:
		return value.BoolValue(w.Bool)
	case value.Number:
		return value.NumberValue(w.Num)
	case value.Object:
		return value.ObjectValue(intern(w.Str))
	default: // function constant, tagged Object+1 above
		return value.ObjectValue(fromWireChunk(w.Fn, intern))
	}
}

func toWireChunk(fn *ObjFunction) *wireChunk {
	wc := &wireChunk{
		Arity:    fn.Arity,
		Upvalues: fn.UpvalueCount,
		Code:     append([]byte(nil), fn.Chunk.Code...),
		Lines:    append([]int(nil), fn.Chunk.Lines...),
	}
	if fn.Name != nil {
		wc.Name = fn.Name.Chars
	}
	for _, c := range fn.Chunk.Constants {
		wc.Constants = append(wc.Constants, toWireValue(c))
	}
	return wc
}

func fromWireChunk(wc *wireChunk, intern internFunc) *ObjFunction {
	fn := NewFunction()
	fn.Arity = wc.Arity
	fn.UpvalueCount = wc.Upvalues
	if wc.Name != "" {
		fn.Name = intern(wc.Name)
	}
	fn.Chunk.Code = append([]byte(nil), wc.Code...)
	fn.Chunk.Lines = append([]int(nil), wc.Lines...)
	for _, wv := range wc.Constants {
		fn.Chunk.Constants = append(fn.Chunk.Constants, fromWireValue(wv, intern))
	}
	return fn
}

// MarshalFunction serializes a compiled function (and everything nested
// inside its constant pool) to canonical CBOR, backing the -dump-bytecode
// CLI flag; -load-bytecode reads the result back with UnmarshalFunction.
func MarshalFunction(fn *ObjFunction) ([]byte, error) {
	return cborEncMode.Marshal(toWireChunk(fn))
}

// UnmarshalFunction deserializes bytes produced by MarshalFunction back
// into a live ObjFunction, reinterning every string constant through
// intern.
func UnmarshalFunction(data []byte, intern internFunc) (*ObjFunction, error) {
	var wc wireChunk
	if err := cbor.Unmarshal(data, &wc); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal function: %w", err)
	}
	return fromWireChunk(&wc, intern), nil
}
