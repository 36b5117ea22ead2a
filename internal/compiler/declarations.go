package compiler

import (
	"github.com/chazu/ember/internal/bytecode"
	"github.com/chazu/ember/internal/scanner"
)

func (p *Parser) declaration() {
	switch {
	case p.match(scanner.Class):
		p.classDeclaration()
	case p.match(scanner.Fun):
		p.funDeclaration()
	case p.match(scanner.Var):
		p.varDeclaration()
	default:
		p.statement()
	}
	if p.panicMode {
		p.synchronize()
	}
}

func (p *Parser) statement() {
	switch {
	case p.match(scanner.Print):
		p.printStatement()
	case p.match(scanner.If):
		p.ifStatement()
	case p.match(scanner.Return):
		p.returnStatement()
	case p.match(scanner.While):
		p.whileStatement()
	case p.match(scanner.For):
		p.forStatement()
	case p.match(scanner.Break):
		p.breakStatement()
	case p.match(scanner.Continue):
		p.continueStatement()
	case p.match(scanner.LeftBrace):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *Parser) block() {
	for !p.check(scanner.RightBrace) && !p.check(scanner.EOF) {
		p.declaration()
	}
	p.consume(scanner.RightBrace, "Expect '}' after block.")
}

func (p *Parser) expressionStatement() {
	p.expression()
	p.consume(scanner.Semicolon, "Expect ';' after expression.")
	p.emitOp(bytecode.OpPop)
}

func (p *Parser) printStatement() {
	p.expression()
	p.consume(scanner.Semicolon, "Expect ';' after value.")
	p.emitOp(bytecode.OpPrint)
}

func (p *Parser) returnStatement() {
	if p.fc.funcType == TypeScript {
		p.error("Can't return from top-level code.")
	}
	if p.match(scanner.Semicolon) {
		p.emitReturn()
		return
	}
	if p.fc.funcType == TypeInitializer {
		p.error("Can't return a value from an initializer.")
	}
	p.expression()
	p.consume(scanner.Semicolon, "Expect ';' after return value.")
	p.emitOp(bytecode.OpReturn)
}

func (p *Parser) varDeclaration() {
	global := p.parseVariable("Expect variable name.")
	if p.match(scanner.Equal) {
		p.expression()
	} else {
		p.emitOp(bytecode.OpNil)
	}
	p.consume(scanner.Semicolon, "Expect ';' after variable declaration.")
	p.defineVariable(global)
}

func (p *Parser) ifStatement() {
	p.consume(scanner.LeftParen, "Expect '(' after 'if'.")
	p.expression()
	p.consume(scanner.RightParen, "Expect ')' after condition.")

	thenJump := p.emitJump(bytecode.OpJumpIfFalse)
	p.emitOp(bytecode.OpPop)
	p.statement()

	elseJump := p.emitJump(bytecode.OpJump)
	p.patchJump(thenJump)
	p.emitOp(bytecode.OpPop)

	if p.match(scanner.Else) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *Parser) pushLoop() *loopCtx {
	lc := &loopCtx{enclosing: p.fc.loop, scopeDepth: p.fc.scopeDepth}
	p.fc.loop = lc
	return lc
}

func (p *Parser) popLoop(endTarget int) {
	lc := p.fc.loop
	for _, j := range lc.breakJumps {
		p.patchJump(j)
	}
	_ = endTarget
	p.fc.loop = lc.enclosing
}

func (p *Parser) whileStatement() {
	lc := p.pushLoop()
	loopStart := p.chunk().Len()
	lc.continueTarget = loopStart

	p.consume(scanner.LeftParen, "Expect '(' after 'while'.")
	p.expression()
	p.consume(scanner.RightParen, "Expect ')' after condition.")

	exitJump := p.emitJump(bytecode.OpJumpIfFalse)
	p.emitOp(bytecode.OpPop)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitOp(bytecode.OpPop)
	p.popLoop(p.chunk().Len())
}

func (p *Parser) forStatement() {
	p.beginScope()
	p.consume(scanner.LeftParen, "Expect '(' after 'for'.")

	if p.match(scanner.Semicolon) {
		// no initializer
	} else if p.match(scanner.Var) {
		p.varDeclaration()
	} else {
		p.expressionStatement()
	}

	lc := p.pushLoop()
	loopStart := p.chunk().Len()
	exitJump := -1
	if !p.match(scanner.Semicolon) {
		p.expression()
		p.consume(scanner.Semicolon, "Expect ';' after loop condition.")
		exitJump = p.emitJump(bytecode.OpJumpIfFalse)
		p.emitOp(bytecode.OpPop)
	}

	if !p.check(scanner.RightParen) {
		bodyJump := p.emitJump(bytecode.OpJump)
		incrementStart := p.chunk().Len()
		lc.continueTarget = incrementStart
		p.expression()
		p.emitOp(bytecode.OpPop)
		p.consume(scanner.RightParen, "Expect ')' after for clauses.")

		p.emitLoop(loopStart)
		loopStart = incrementStart
		p.patchJump(bodyJump)
	} else {
		lc.continueTarget = loopStart
		p.consume(scanner.RightParen, "Expect ')' after for clauses.")
	}

	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitOp(bytecode.OpPop)
	}
	p.popLoop(p.chunk().Len())
	p.endScope()
}

// emitLoopLocalCleanup pops every local declared inside the loop body
// (depth greater than the loop's own scope depth) without touching the
// scope bookkeeping itself, used by break/continue to leave the value
// stack balanced before jumping out of or back into the loop.
func (p *Parser) emitLoopLocalCleanup(lc *loopCtx) {
	for i := len(p.fc.locals) - 1; i >= 0; i-- {
		if p.fc.locals[i].depth <= lc.scopeDepth {
			break
		}
		if p.fc.locals[i].captured {
			p.emitOp(bytecode.OpCloseUpvalue)
		} else {
			p.emitOp(bytecode.OpPop)
		}
	}
}

func (p *Parser) breakStatement() {
	if p.fc.loop == nil {
		p.error("Can't use 'break' outside of a loop.")
		p.consume(scanner.Semicolon, "Expect ';' after 'break'.")
		return
	}
	p.emitLoopLocalCleanup(p.fc.loop)
	jump := p.emitJump(bytecode.OpJump)
	p.fc.loop.breakJumps = append(p.fc.loop.breakJumps, jump)
	p.consume(scanner.Semicolon, "Expect ';' after 'break'.")
}

func (p *Parser) continueStatement() {
	if p.fc.loop == nil {
		p.error("Can't use 'continue' outside of a loop.")
		p.consume(scanner.Semicolon, "Expect ';' after 'continue'.")
		return
	}
	p.emitLoopLocalCleanup(p.fc.loop)
	p.emitLoop(p.fc.loop.continueTarget)
	p.consume(scanner.Semicolon, "Expect ';' after 'continue'.")
}

// ---------------------------------------------------------------------
// Functions, methods, classes
// ---------------------------------------------------------------------

func (p *Parser) function(t FuncType, name string) {
	p.pushFuncCompiler(t, name)
	p.beginScope()

	p.consume(scanner.LeftParen, "Expect '(' after function name.")
	if !p.check(scanner.RightParen) {
		for {
			p.fc.function.Arity++
			if p.fc.function.Arity > maxArgs {
				p.errorAtCurrent("Can't have more than 255 parameters.")
			}
			paramConst := p.parseVariable("Expect parameter name.")
			p.defineVariable(paramConst)
			if !p.match(scanner.Comma) {
				break
			}
		}
	}
	p.consume(scanner.RightParen, "Expect ')' after parameters.")
	p.consume(scanner.LeftBrace, "Expect '{' before function body.")
	p.block()

	fn, upvalues := p.endFuncCompiler()
	idx := p.makeConstant(fnValue(fn))
	p.emitOpByte(bytecode.OpClosure, idx)
	for _, uv := range upvalues {
		p.emitByte(boolByte(uv.isLocal))
		p.emitByte(uv.index)
	}
}

func (p *Parser) funDeclaration() {
	global := p.parseVariable("Expect function name.")
	p.markInitialized()
	p.function(TypeFunction, p.previous.Lexeme)
	p.defineVariable(global)
}

func (p *Parser) method() {
	p.consume(scanner.Identifier, "Expect method name.")
	name := p.previous.Lexeme
	nameConst := p.identifierConstant(name)

	t := TypeMethod
	if name == "init" {
		t = TypeInitializer
	}
	p.function(t, name)
	p.emitOpByte(bytecode.OpMethod, nameConst)
}

func (p *Parser) classDeclaration() {
	p.consume(scanner.Identifier, "Expect class name.")
	className := p.previous.Lexeme
	nameConst := p.identifierConstant(className)
	p.declareVariable()

	p.emitOpByte(bytecode.OpClass, nameConst)
	p.defineVariable(nameConst)

	cc := &classCtx{enclosing: p.class}
	p.class = cc

	if p.match(scanner.Less) {
		p.consume(scanner.Identifier, "Expect superclass name.")
		p.variable(false)
		if p.previous.Lexeme == className {
			p.error("A class can't inherit from itself.")
		}

		p.beginScope()
		p.addLocal(syntheticSuper())
		p.defineVariable(0)

		p.namedVariable(className, false)
		p.emitOp(bytecode.OpInherit)
		cc.hasSuperclass = true
	}

	p.namedVariable(className, false)
	p.consume(scanner.LeftBrace, "Expect '{' before class body.")
	for !p.check(scanner.RightBrace) && !p.check(scanner.EOF) {
		p.method()
	}
	p.consume(scanner.RightBrace, "Expect '}' after class body.")
	p.emitOp(bytecode.OpPop)

	if cc.hasSuperclass {
		p.endScope()
	}
	p.class = cc.enclosing
}
