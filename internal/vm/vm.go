// Package vm implements the stack-based bytecode interpreter: the call
// frame stack, the value stack, the fetch-decode-execute dispatch loop,
// and everything the compiler needs from a GC-managed host.
package vm

import (
	"fmt"
	"io"

	"github.com/chazu/ember/internal/bytecode"
	"github.com/chazu/ember/internal/compiler"
	"github.com/chazu/ember/internal/config"
	"github.com/chazu/ember/internal/object"
	"github.com/chazu/ember/internal/table"
	"github.com/chazu/ember/internal/value"
	"github.com/chazu/ember/internal/vmerr"
	"github.com/google/uuid"
)

const slotsPerFrame = 256

// Result is the outcome the embedding API's interpret() reports.
type Result int

const (
	ResultOK Result = iota
	ResultCompileError
	ResultRuntimeError
)

// callFrame is one logical activation of a Closure: its instruction
// pointer, and base, the value-stack slot where its local 0 lives.
// Arguments occupy base+1..base+argCount.
type callFrame struct {
	closure *bytecode.ObjClosure
	ip      int
	base    int
}

// VM is the interpreter: the value/frame stacks, the globals and string
// intern tables, the GC's object list and gray worklist, and the
// configuration governing all of them. The source this is adapted from
// treats the VM and GC as process-wide singletons; here they're just the
// fields of one explicit struct, so reset() is "build a new one" and
// nothing is shared unless it's passed in.
type VM struct {
	stack []value.Value
	sp    int

	frames     []callFrame
	frameCount int

	openUpvalues *value.ObjUpvalue

	globals *table.Table
	strings *table.Table

	objects   value.Obj
	grayStack []value.Obj

	bytesAllocated int
	nextGC         int

	initString *value.ObjString

	compilerRoots []*bytecode.ObjFunction

	cfg       config.Config
	sessionID uuid.UUID
	out       io.Writer
	diag      io.Writer
}

// New constructs a VM. out receives PRINT output; diag receives compile
// diagnostics, GC log lines, bytecode disassembly, and execution traces.
// Runtime errors are returned to the caller, not written to diag.
func New(cfg config.Config, out, diag io.Writer) *VM {
	vm := &VM{
		cfg:       cfg,
		out:       out,
		diag:      diag,
		sessionID: uuid.New(),
		stack:     make([]value.Value, cfg.MaxFrames*slotsPerFrame),
		frames:    make([]callFrame, cfg.MaxFrames),
	}
	vm.resetState()
	return vm
}

// Reset tears down every live object and reinitializes the globals and
// intern-string singletons, enabling repeated independent runs from one
// process without starting a new VM.
func (vm *VM) Reset() { vm.resetState() }

func (vm *VM) resetState() {
	vm.sp = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
	vm.objects = nil
	vm.grayStack = nil
	vm.bytesAllocated = 0
	vm.nextGC = vm.cfg.GC.InitialThreshold
	vm.globals = table.NewTable()
	vm.strings = table.NewTable()
	vm.compilerRoots = nil
	vm.initString = vm.internString("init")
	vm.defineStandardNatives()
}

func (vm *VM) SessionID() uuid.UUID { return vm.sessionID }

// ---------------------------------------------------------------------
// Stack primitives
// ---------------------------------------------------------------------

func (vm *VM) push(v value.Value) {
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() value.Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.sp-1-distance]
}

// ---------------------------------------------------------------------
// Entry point
// ---------------------------------------------------------------------

// Interpret compiles and runs source against this VM's current globals
// and heap.
func (vm *VM) Interpret(source string) (Result, error) {
	var traceOut io.Writer
	if vm.cfg.Debug.TraceBytecode {
		traceOut = vm.diag
	}
	fn, err := compiler.CompileTraced(source, vm, vm.diag, traceOut)
	if err != nil {
		return ResultCompileError, &CompileError{Err: err}
	}
	return vm.RunFunction(fn)
}

// Compile compiles source against this VM's allocator without running
// it, the entry point -dump-bytecode uses to produce a function it then
// hands to bytecode.MarshalFunction.
func (vm *VM) Compile(source string) (*bytecode.ObjFunction, error) {
	fn, err := compiler.Compile(source, vm, vm.diag)
	if err != nil {
		return nil, &CompileError{Err: err}
	}
	return fn, nil
}

// RunFunction executes an already-compiled top-level function, the path
// -load-bytecode uses to skip straight from a cached CBOR chunk to
// execution.
func (vm *VM) RunFunction(fn *bytecode.ObjFunction) (Result, error) {
	closure := vm.newClosure(fn)
	vm.push(value.ObjectValue(closure))
	if rtErr := vm.callValue(value.ObjectValue(closure), 0); rtErr != nil {
		vm.sp = 0
		vm.frameCount = 0
		return ResultRuntimeError, rtErr
	}
	return vm.run()
}

// InternFunc exposes InternString as a callback for bytecode.UnmarshalFunction.
func (vm *VM) InternFunc() func(string) *value.ObjString {
	return vm.InternString
}

// ---------------------------------------------------------------------
// Dispatch loop
// ---------------------------------------------------------------------

func (vm *VM) run() (Result, error) {
	fr := &vm.frames[vm.frameCount-1]

	for {
		if vm.cfg.Debug.TraceExecution {
			bytecode.DisassembleInstruction(vm.diag, fr.closure.Function.Chunk, fr.ip)
		}

		op := bytecode.Op(vm.readByte(fr))
		switch op {
		case bytecode.OpConstant:
			vm.push(vm.readConstant(fr))

		case bytecode.OpNil:
			vm.push(value.NilValue())
		case bytecode.OpTrue:
			vm.push(value.BoolValue(true))
		case bytecode.OpFalse:
			vm.push(value.BoolValue(false))
		case bytecode.OpPop:
			vm.pop()

		case bytecode.OpGetLocal:
			slot := int(vm.readByte(fr))
			vm.push(vm.stack[fr.base+slot])
		case bytecode.OpSetLocal:
			slot := int(vm.readByte(fr))
			vm.stack[fr.base+slot] = vm.peek(0)

		case bytecode.OpGetGlobal:
			name := vm.readConstant(fr).AsObject().(*value.ObjString)
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError(fr, "Undefined variable '%s'.", name.Chars)
			}
			vm.push(v)
		case bytecode.OpDefineGlobal:
			name := vm.readConstant(fr).AsObject().(*value.ObjString)
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case bytecode.OpSetGlobal:
			name := vm.readConstant(fr).AsObject().(*value.ObjString)
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				return vm.runtimeError(fr, "Undefined variable '%s'.", name.Chars)
			}

		case bytecode.OpGetUpvalue:
			slot := int(vm.readByte(fr))
			vm.push(*fr.closure.Upvalues[slot].Location)
		case bytecode.OpSetUpvalue:
			slot := int(vm.readByte(fr))
			*fr.closure.Upvalues[slot].Location = vm.peek(0)

		case bytecode.OpGetProperty:
			inst, ok := vm.peek(0).AsObject().(*object.Instance)
			if !ok {
				return vm.runtimeError(fr, "Only instances have properties.")
			}
			name := vm.readConstant(fr).AsObject().(*value.ObjString)
			if v, ok := inst.Fields.Get(name); ok {
				vm.pop()
				vm.push(v)
				break
			}
			if rtErr := vm.bindMethod(fr, inst.Class, name); rtErr != nil {
				return vm.runtimeError(fr, "%s", rtErr)
			}

		case bytecode.OpSetProperty:
			inst, ok := vm.peek(1).AsObject().(*object.Instance)
			if !ok {
				return vm.runtimeError(fr, "Only instances have fields.")
			}
			name := vm.readConstant(fr).AsObject().(*value.ObjString)
			inst.Fields.Set(name, vm.peek(0))
			v := vm.pop()
			vm.pop()
			vm.push(v)

		case bytecode.OpGetSuper:
			name := vm.readConstant(fr).AsObject().(*value.ObjString)
			superclass := vm.pop().AsObject().(*object.Class)
			if rtErr := vm.bindMethod(fr, superclass, name); rtErr != nil {
				return vm.runtimeError(fr, "%s", rtErr)
			}

		case bytecode.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.BoolValue(value.Equal(a, b)))
		case bytecode.OpGreater:
			if res, rtErr := vm.numericCompare(fr, func(a, b float64) bool { return a > b }); rtErr != nil {
				return vm.runtimeError(fr, "%s", rtErr)
			} else {
				vm.push(res)
			}
		case bytecode.OpLess:
			if res, rtErr := vm.numericCompare(fr, func(a, b float64) bool { return a < b }); rtErr != nil {
				return vm.runtimeError(fr, "%s", rtErr)
			} else {
				vm.push(res)
			}

		case bytecode.OpAdd:
			if rtErr := vm.add(fr); rtErr != nil {
				return vm.runtimeError(fr, "%s", rtErr)
			}
		case bytecode.OpSubtract:
			if rtErr := vm.arith(fr, func(a, b float64) float64 { return a - b }); rtErr != nil {
				return vm.runtimeError(fr, "%s", rtErr)
			}
		case bytecode.OpMultiply:
			if rtErr := vm.arith(fr, func(a, b float64) float64 { return a * b }); rtErr != nil {
				return vm.runtimeError(fr, "%s", rtErr)
			}
		case bytecode.OpDivide:
			if rtErr := vm.arith(fr, func(a, b float64) float64 { return a / b }); rtErr != nil {
				return vm.runtimeError(fr, "%s", rtErr)
			}
		case bytecode.OpNot:
			vm.push(value.BoolValue(vm.pop().IsFalsey()))
		case bytecode.OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError(fr, "Operand must be a number.")
			}
			vm.push(value.NumberValue(-vm.pop().AsNumber()))

		case bytecode.OpPrint:
			fmt.Fprintln(vm.out, vm.pop().String())

		case bytecode.OpJump:
			offset := vm.readShort(fr)
			fr.ip += offset
		case bytecode.OpJumpIfFalse:
			offset := vm.readShort(fr)
			if vm.peek(0).IsFalsey() {
				fr.ip += offset
			}
		case bytecode.OpLoop:
			offset := vm.readShort(fr)
			fr.ip -= offset

		case bytecode.OpCall:
			argc := int(vm.readByte(fr))
			if rtErr := vm.callValue(vm.peek(argc), argc); rtErr != nil {
				return vm.runtimeError(fr, "%s", rtErr)
			}
			fr = &vm.frames[vm.frameCount-1]

		case bytecode.OpInvoke:
			name := vm.readConstant(fr).AsObject().(*value.ObjString)
			argc := int(vm.readByte(fr))
			if rtErr := vm.invoke(fr, name, argc); rtErr != nil {
				return vm.runtimeError(fr, "%s", rtErr)
			}
			fr = &vm.frames[vm.frameCount-1]

		case bytecode.OpSuperInvoke:
			name := vm.readConstant(fr).AsObject().(*value.ObjString)
			argc := int(vm.readByte(fr))
			superclass := vm.pop().AsObject().(*object.Class)
			if rtErr := vm.invokeFromClass(fr, superclass, name, argc); rtErr != nil {
				return vm.runtimeError(fr, "%s", rtErr)
			}
			fr = &vm.frames[vm.frameCount-1]

		case bytecode.OpClosure:
			fn := vm.readConstant(fr).AsObject().(*bytecode.ObjFunction)
			closure := vm.newClosure(fn)
			vm.push(value.ObjectValue(closure))
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := vm.readByte(fr)
				index := int(vm.readByte(fr))
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(&vm.stack[fr.base+index])
				} else {
					closure.Upvalues[i] = fr.closure.Upvalues[index]
				}
			}

		case bytecode.OpCloseUpvalue:
			vm.closeUpvalues(&vm.stack[vm.sp-1])
			vm.pop()

		case bytecode.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(&vm.stack[fr.base])
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return ResultOK, nil
			}
			vm.sp = fr.base
			vm.push(result)
			fr = &vm.frames[vm.frameCount-1]

		case bytecode.OpClass:
			name := vm.readConstant(fr).AsObject().(*value.ObjString)
			vm.push(value.ObjectValue(vm.newClass(name)))

		case bytecode.OpInherit:
			superVal := vm.peek(1)
			superclass, ok := superVal.AsObject().(*object.Class)
			if !ok {
				return vm.runtimeError(fr, "Superclass must be a class.")
			}
			subclass := vm.peek(0).AsObject().(*object.Class)
			subclass.Superclass = superclass
			subclass.Methods.AddAll(superclass.Methods)
			vm.pop() // subclass

		case bytecode.OpMethod:
			name := vm.readConstant(fr).AsObject().(*value.ObjString)
			vm.defineMethod(name)

		case bytecode.OpArray:
			count := int(vm.readByte(fr))
			elements := make([]value.Value, count)
			copy(elements, vm.stack[vm.sp-count:vm.sp])
			vm.sp -= count
			vm.push(value.ObjectValue(vm.newArray(elements)))

		case bytecode.OpGetIndex:
			idxVal := vm.pop()
			arrVal := vm.pop()
			arr, ok := arrVal.AsObject().(*object.Array)
			if !ok {
				return vm.runtimeError(fr, "Only arrays can be indexed.")
			}
			if !idxVal.IsNumber() {
				return vm.runtimeError(fr, "Array index must be a number.")
			}
			i := int(idxVal.AsNumber())
			if i < 0 || i >= len(arr.Elements) {
				return vm.runtimeError(fr, "Array index out of bounds.")
			}
			vm.push(arr.Elements[i])

		case bytecode.OpSetIndex:
			val := vm.pop()
			idxVal := vm.pop()
			arrVal := vm.pop()
			arr, ok := arrVal.AsObject().(*object.Array)
			if !ok {
				return vm.runtimeError(fr, "Only arrays can be indexed.")
			}
			if !idxVal.IsNumber() {
				return vm.runtimeError(fr, "Array index must be a number.")
			}
			i := int(idxVal.AsNumber())
			if i < 0 || i >= len(arr.Elements) {
				return vm.runtimeError(fr, "Array index out of bounds.")
			}
			arr.Elements[i] = val
			vm.push(val)

		default:
			// Reaching here means the compiler emitted a byte the dispatch
			// loop doesn't recognize as an opcode, an invariant violation
			// rather than a user-triggerable runtime error, so it aborts.
			panic(vmerr.Fatal(fmt.Sprintf("unknown opcode %d at ip %d", byte(op), fr.ip-1)))
		}
	}
}

func (vm *VM) readByte(fr *callFrame) byte {
	b := fr.closure.Function.Chunk.ByteAt(fr.ip)
	fr.ip++
	return b
}

func (vm *VM) readShort(fr *callFrame) int {
	hi := vm.readByte(fr)
	lo := vm.readByte(fr)
	return int(hi)<<8 | int(lo)
}

func (vm *VM) readConstant(fr *callFrame) value.Value {
	return fr.closure.Function.Chunk.ConstantAt(int(vm.readByte(fr)))
}
