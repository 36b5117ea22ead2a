package bytecode

import "github.com/chazu/ember/internal/value"

// Chunk is one function's compiled bytecode: the byte-coded instruction
// stream, its constant pool, and a parallel per-byte source-line array
// used only for error reporting.
type Chunk struct {
	Code      []byte
	Constants []value.Value
	Lines     []int
}

func NewChunk() *Chunk {
	return &Chunk{}
}

// Write appends a single byte (opcode or raw operand byte) tagged with
// the source line that produced it.
func (c *Chunk) Write(b byte, line int) int {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
	return len(c.Code) - 1
}

// WriteOp is Write specialized for an opcode, for readability at call
// sites.
func (c *Chunk) WriteOp(op Op, line int) int {
	return c.Write(byte(op), line)
}

// AddConstant appends val to the constant pool and returns its index.
// Constants are not deduplicated, here or in the compiler: every
// identifier or literal the compiler emits adds a new entry, even when an
// equal value is already in the pool.
func (c *Chunk) AddConstant(val value.Value) int {
	c.Constants = append(c.Constants, val)
	return len(c.Constants) - 1
}

// ByteAt and LineAt give the disassembler and runtime error reporter
// read-only access without exposing the slices directly.
func (c *Chunk) ByteAt(i int) byte  { return c.Code[i] }
func (c *Chunk) LineAt(i int) int   { return c.Lines[i] }
func (c *Chunk) Len() int           { return len(c.Code) }
func (c *Chunk) ConstantAt(i int) value.Value { return c.Constants[i] }

// ObjFunction is an immutable compiled unit: its own Chunk, an optional
// name (absent for the top-level script), an arity, and the number of
// upvalues closures over it must capture.
type ObjFunction struct {
	value.Header
	Name         *value.ObjString
	Arity        int
	UpvalueCount int
	Chunk        *Chunk
}

func NewFunction() *ObjFunction {
	return &ObjFunction{
		Header: value.Header{Kind: value.KindFunction},
		Chunk:  NewChunk(),
	}
}

func (f *ObjFunction) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return "<fn " + f.Name.Chars + ">"
}

// ObjClosure binds a Function to a fixed-length sequence of Upvalue
// references. Several closures may share one Function; the upvalue
// count is fixed at closure-creation time and matches the function's
// declared UpvalueCount for the lifetime of the closure.
type ObjClosure struct {
	value.Header
	Function *ObjFunction
	Upvalues []*value.ObjUpvalue
}

func NewClosure(fn *ObjFunction) *ObjClosure {
	return &ObjClosure{
		Header:   value.Header{Kind: value.KindClosure},
		Function: fn,
		Upvalues: make([]*value.ObjUpvalue, fn.UpvalueCount),
	}
}

func (c *ObjClosure) String() string { return c.Function.String() }
