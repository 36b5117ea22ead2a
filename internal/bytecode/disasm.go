package bytecode

import (
	"encoding/binary"
	"fmt"
	"io"
)

// DisassembleChunk writes a clox-style "== name ==" listing of every
// instruction in c to w, resolving constant operands and jump targets.
// Driven by the trace-bytecode debug toggle (the -trace CLI flag).
func DisassembleChunk(w io.Writer, c *Chunk, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < c.Len(); {
		offset = DisassembleInstruction(w, c, offset)
	}
}

// DisassembleInstruction prints the single instruction at offset and
// returns the offset of the next instruction.
func DisassembleInstruction(w io.Writer, c *Chunk, offset int) int {
	line := c.LineAt(offset)
	lineCol := fmt.Sprintf("%4d", line)
	if offset > 0 && c.LineAt(offset-1) == line {
		lineCol = "   |"
	}
	op := Op(c.ByteAt(offset))
	fmt.Fprintf(w, "%04d %s %s", offset, lineCol, op)

	switch op {
	case OpConstant, OpGetGlobal, OpDefineGlobal, OpSetGlobal,
		OpGetProperty, OpSetProperty, OpGetSuper, OpClass, OpMethod:
		idx := c.ByteAt(offset + 1)
		fmt.Fprintf(w, " %4d '%v'\n", idx, c.ConstantAt(int(idx)))
		return offset + 2
	case OpGetLocal, OpSetLocal, OpGetUpvalue, OpSetUpvalue, OpCall, OpArray:
		slot := c.ByteAt(offset + 1)
		fmt.Fprintf(w, " %4d\n", slot)
		return offset + 2
	case OpInvoke, OpSuperInvoke:
		idx := c.ByteAt(offset + 1)
		argc := c.ByteAt(offset + 2)
		fmt.Fprintf(w, " %4d '%v' (%d args)\n", idx, c.ConstantAt(int(idx)), argc)
		return offset + 3
	case OpJump, OpJumpIfFalse:
		jumpOff := int(binary.BigEndian.Uint16(c.Code[offset+1 : offset+3]))
		fmt.Fprintf(w, " %4d -> %d\n", offset, offset+3+jumpOff)
		return offset + 3
	case OpLoop:
		jumpOff := int(binary.BigEndian.Uint16(c.Code[offset+1 : offset+3]))
		fmt.Fprintf(w, " %4d -> %d\n", offset, offset+3-jumpOff)
		return offset + 3
	case OpClosure:
		idx := c.ByteAt(offset + 1)
		fn := c.ConstantAt(int(idx))
		fmt.Fprintf(w, " %4d '%v'\n", idx, fn)
		next := offset + 2
		fnObj, ok := fn.AsObject().(*ObjFunction)
		if ok {
			for i := 0; i < fnObj.UpvalueCount; i++ {
				isLocal := c.ByteAt(next)
				index := c.ByteAt(next + 1)
				kind := "upvalue"
				if isLocal != 0 {
					kind = "local"
				}
				fmt.Fprintf(w, "%04d      |                     %s %d\n", next, kind, index)
				next += 2
			}
		}
		return next
	default:
		fmt.Fprintln(w)
		return offset + 1
	}
}
