// Package compiler implements the single-pass Pratt compiler: it emits
// bytecode directly from the scanner's tokens, with no intermediate AST,
// while resolving lexical scoping, closure upvalues, and class/method
// structure as it goes.
package compiler

import (
	"fmt"
	"io"

	"github.com/chazu/ember/internal/bytecode"
	"github.com/chazu/ember/internal/scanner"
	"github.com/chazu/ember/internal/value"
)

const maxLocals = 256
const maxUpvalues = 256
const maxConstants = 256
const maxArgs = 255
const maxJump = 65535

// Allocator is the set of GC-managed allocation operations the compiler
// needs from its host. A VM implements this so the compiler never
// imports the vm package, keeping the dependency graph one-directional.
type Allocator interface {
	InternString(chars string) *value.ObjString
	NewFunction() *bytecode.ObjFunction
	PushCompilerRoot(fn *bytecode.ObjFunction)
	PopCompilerRoot()
}

// FuncType distinguishes the four kinds of body a nested compiler
// instance can be compiling.
type FuncType int

const (
	TypeFunction FuncType = iota
	TypeScript
	TypeMethod
	TypeInitializer
)

type local struct {
	name     string
	depth    int
	captured bool
}

type upvalueRef struct {
	index   byte
	isLocal bool
}

type loopCtx struct {
	enclosing      *loopCtx
	scopeDepth     int // scope depth the loop body started at, for break/continue local cleanup
	continueTarget int // LOOP jumps here; for `for`, this is the increment clause
	breakJumps     []int
}

type classCtx struct {
	enclosing     *classCtx
	hasSuperclass bool
}

// funcCompiler is one nested compiler instance, one per function body
// (including the top-level script, methods, and initializers). Instances
// form a stack linked by enclosing, mirroring the call structure of the
// source being compiled.
type funcCompiler struct {
	enclosing  *funcCompiler
	function   *bytecode.ObjFunction
	funcType   FuncType
	locals     []local
	scopeDepth int
	upvalues   []upvalueRef
	loop       *loopCtx
}

// Parser drives one compilation: it owns the scanner cursor, the current
// and previous tokens, error accumulation, and the stack of nested
// function compilers.
type Parser struct {
	scan      *scanner.Scanner
	current   scanner.Token
	previous  scanner.Token
	hadError  bool
	panicMode bool
	errors    ErrorList

	alloc    Allocator
	diag     io.Writer
	fc       *funcCompiler
	class    *classCtx
	traceOut io.Writer // non-nil enables post-compile disassembly
}

// Compile compiles source into a top-level script function. On failure
// it returns a nil function and a non-nil ErrorList; compile errors never
// panic or unwind, they accumulate and are returned together.
func Compile(source string, alloc Allocator, diag io.Writer) (*bytecode.ObjFunction, error) {
	return CompileTraced(source, alloc, diag, nil)
}

// CompileTraced is Compile with an optional disassembly sink, used when
// the trace-bytecode debug toggle (the -trace CLI flag) is active.
func CompileTraced(source string, alloc Allocator, diag io.Writer, traceOut io.Writer) (*bytecode.ObjFunction, error) {
	p := &Parser{
		scan:     scanner.New(source),
		alloc:    alloc,
		diag:     diag,
		traceOut: traceOut,
	}
	p.pushFuncCompiler(TypeScript, "")

	p.advance()
	for !p.match(scanner.EOF) {
		p.declaration()
	}

	fn, _ := p.endFuncCompiler()
	if p.hadError {
		return nil, p.errors
	}
	return fn, nil
}

// ---------------------------------------------------------------------
// Token stream helpers
// ---------------------------------------------------------------------

func (p *Parser) advance() {
	p.previous = p.current
	for {
		p.current = p.scan.Next()
		if p.current.Type != scanner.Error {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *Parser) check(t scanner.TokenType) bool { return p.current.Type == t }

func (p *Parser) match(t scanner.TokenType) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) consume(t scanner.TokenType, msg string) {
	if p.current.Type == t {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

func (p *Parser) errorAtCurrent(msg string) { p.errorAt(p.current, msg) }
func (p *Parser) error(msg string)          { p.errorAt(p.previous, msg) }

func (p *Parser) errorAt(tok scanner.Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true
	e := &Error{Line: tok.Line, Message: msg}
	p.errors = append(p.errors, e)
	if p.diag != nil {
		fmt.Fprintf(p.diag, "[line %d] Error", tok.Line)
		switch tok.Type {
		case scanner.EOF:
			fmt.Fprint(p.diag, " at end")
		case scanner.Error:
		default:
			fmt.Fprintf(p.diag, " at '%s'", tok.Lexeme)
		}
		fmt.Fprintf(p.diag, ": %s\n", msg)
	}
}

func (p *Parser) synchronize() {
	p.panicMode = false
	for p.current.Type != scanner.EOF {
		if p.previous.Type == scanner.Semicolon {
			return
		}
		switch p.current.Type {
		case scanner.Class, scanner.Fun, scanner.Var, scanner.For,
			scanner.If, scanner.While, scanner.Print, scanner.Return:
			return
		}
		p.advance()
	}
}

// ---------------------------------------------------------------------
// Bytecode emission
// ---------------------------------------------------------------------

func (p *Parser) chunk() *bytecode.Chunk { return p.fc.function.Chunk }

func (p *Parser) emitByte(b byte) { p.chunk().Write(b, p.previous.Line) }

func (p *Parser) emitOp(op bytecode.Op) { p.chunk().WriteOp(op, p.previous.Line) }

func (p *Parser) emitOpByte(op bytecode.Op, operand byte) {
	p.emitOp(op)
	p.emitByte(operand)
}

func (p *Parser) emitReturn() {
	if p.fc.funcType == TypeInitializer {
		p.emitOpByte(bytecode.OpGetLocal, 0)
	} else {
		p.emitOp(bytecode.OpNil)
	}
	p.emitOp(bytecode.OpReturn)
}

func (p *Parser) makeConstant(v value.Value) byte {
	if len(p.chunk().Constants) >= maxConstants {
		p.error("Too many constants in one chunk.")
		return 0
	}
	return byte(p.chunk().AddConstant(v))
}

func (p *Parser) emitConstant(v value.Value) {
	p.emitOpByte(bytecode.OpConstant, p.makeConstant(v))
}

// emitJump writes a jump opcode with a placeholder 16-bit offset and
// returns the offset of the first operand byte, for patchJump to fill in
// later once the target is known.
func (p *Parser) emitJump(op bytecode.Op) int {
	p.emitOp(op)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return p.chunk().Len() - 2
}

func (p *Parser) patchJump(offset int) {
	jump := p.chunk().Len() - offset - 2
	if jump > maxJump {
		p.error("Too much code to jump over.")
		return
	}
	p.chunk().Code[offset] = byte(jump >> 8)
	p.chunk().Code[offset+1] = byte(jump & 0xff)
}

func (p *Parser) emitLoop(loopStart int) {
	p.emitOp(bytecode.OpLoop)
	offset := p.chunk().Len() - loopStart + 2
	if offset > maxJump {
		p.error("Loop body too large.")
	}
	p.emitByte(byte(offset >> 8))
	p.emitByte(byte(offset & 0xff))
}

func fnValue(fn *bytecode.ObjFunction) value.Value { return value.ObjectValue(fn) }

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// ---------------------------------------------------------------------
// Function-compiler stack
// ---------------------------------------------------------------------

func (p *Parser) pushFuncCompiler(t FuncType, name string) {
	fn := p.alloc.NewFunction()
	if name != "" {
		fn.Name = p.alloc.InternString(name)
	}
	p.alloc.PushCompilerRoot(fn)

	fc := &funcCompiler{enclosing: p.fc, function: fn, funcType: t}
	// Slot 0 is reserved: nameless for plain functions, "this" for
	// methods and initializers, making receiver access an ordinary
	// local-slot read.
	recv := ""
	if t == TypeMethod || t == TypeInitializer {
		recv = "this"
	}
	fc.locals = append(fc.locals, local{name: recv, depth: 0})
	p.fc = fc
}

// endFuncCompiler closes the current nested compiler and returns the
// finished function along with the upvalue descriptors the enclosing
// compiler must emit alongside CLOSURE.
func (p *Parser) endFuncCompiler() (*bytecode.ObjFunction, []upvalueRef) {
	p.emitReturn()
	fn := p.fc.function
	fn.UpvalueCount = len(p.fc.upvalues)
	upvalues := p.fc.upvalues

	if p.traceOut != nil && !p.hadError {
		name := "<script>"
		if fn.Name != nil {
			name = fn.Name.Chars
		}
		bytecode.DisassembleChunk(p.traceOut, fn.Chunk, name)
	}

	p.alloc.PopCompilerRoot()
	p.fc = p.fc.enclosing
	return fn, upvalues
}

// ---------------------------------------------------------------------
// Scopes and locals
// ---------------------------------------------------------------------

func (p *Parser) beginScope() { p.fc.scopeDepth++ }

func (p *Parser) endScope() {
	p.fc.scopeDepth--
	for len(p.fc.locals) > 0 {
		last := p.fc.locals[len(p.fc.locals)-1]
		if last.depth <= p.fc.scopeDepth {
			break
		}
		if last.captured {
			p.emitOp(bytecode.OpCloseUpvalue)
		} else {
			p.emitOp(bytecode.OpPop)
		}
		p.fc.locals = p.fc.locals[:len(p.fc.locals)-1]
	}
}

func identifiersEqual(a, b string) bool { return a == b }

func (p *Parser) addLocal(name string) {
	if len(p.fc.locals) >= maxLocals {
		p.error("Too many local variables in function.")
		return
	}
	p.fc.locals = append(p.fc.locals, local{name: name, depth: -1})
}

func (p *Parser) declareVariable() {
	if p.fc.scopeDepth == 0 {
		return
	}
	name := p.previous.Lexeme
	for i := len(p.fc.locals) - 1; i >= 0; i-- {
		l := p.fc.locals[i]
		if l.depth != -1 && l.depth < p.fc.scopeDepth {
			break
		}
		if identifiersEqual(l.name, name) {
			p.error("Already a variable with this name in this scope.")
		}
	}
	p.addLocal(name)
}

func (p *Parser) markInitialized() {
	if p.fc.scopeDepth == 0 {
		return
	}
	p.fc.locals[len(p.fc.locals)-1].depth = p.fc.scopeDepth
}

func (p *Parser) identifierConstant(name string) byte {
	return p.makeConstant(value.ObjectValue(p.alloc.InternString(name)))
}

func (p *Parser) parseVariable(errMsg string) byte {
	p.consume(scanner.Identifier, errMsg)
	p.declareVariable()
	if p.fc.scopeDepth > 0 {
		return 0
	}
	return p.identifierConstant(p.previous.Lexeme)
}

func (p *Parser) defineVariable(global byte) {
	if p.fc.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitOpByte(bytecode.OpDefineGlobal, global)
}

func resolveLocal(fc *funcCompiler, name string) int {
	for i := len(fc.locals) - 1; i >= 0; i-- {
		if identifiersEqual(fc.locals[i].name, name) {
			if fc.locals[i].depth == -1 {
				return -2 // sentinel: read before initialization
			}
			return i
		}
	}
	return -1
}

func addUpvalue(fc *funcCompiler, index byte, isLocal bool) int {
	for i, uv := range fc.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	if len(fc.upvalues) >= maxUpvalues {
		return -1
	}
	fc.upvalues = append(fc.upvalues, upvalueRef{index: index, isLocal: isLocal})
	return len(fc.upvalues) - 1
}

func resolveUpvalue(fc *funcCompiler, name string) int {
	if fc.enclosing == nil {
		return -1
	}
	if local := resolveLocal(fc.enclosing, name); local >= 0 {
		fc.enclosing.locals[local].captured = true
		return addUpvalue(fc, byte(local), true)
	}
	if up := resolveUpvalue(fc.enclosing, name); up >= 0 {
		return addUpvalue(fc, byte(up), false)
	}
	return -1
}
