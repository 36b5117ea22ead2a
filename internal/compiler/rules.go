package compiler

import (
	"strconv"

	"github.com/chazu/ember/internal/bytecode"
	"github.com/chazu/ember/internal/scanner"
	"github.com/chazu/ember/internal/value"
)

// Precedence orders the binding strength of infix operators, low to
// high. parsePrecedence consumes infix operators whose precedence is at
// least as strong as the precedence it was called with.
type Precedence int

const (
	PrecNone       Precedence = iota
	PrecAssignment            // =
	PrecOr                    // or
	PrecAnd                   // and
	PrecEquality              // == !=
	PrecComparison            // < > <= >=
	PrecTerm                  // + -
	PrecFactor                // * /
	PrecUnary                 // ! -
	PrecCall                  // . () []
	PrecPrimary
)

type parseFn func(p *Parser, canAssign bool)

type rule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

var rules map[scanner.TokenType]rule

func init() {
	rules = map[scanner.TokenType]rule{
		scanner.LeftParen:    {(*Parser).grouping, (*Parser).call, PrecCall},
		scanner.LeftBracket:  {(*Parser).arrayLiteral, (*Parser).index, PrecCall},
		scanner.Dot:          {nil, (*Parser).dot, PrecCall},
		scanner.Minus:        {(*Parser).unary, (*Parser).binary, PrecTerm},
		scanner.Plus:         {nil, (*Parser).binary, PrecTerm},
		scanner.Slash:        {nil, (*Parser).binary, PrecFactor},
		scanner.Star:         {nil, (*Parser).binary, PrecFactor},
		scanner.Bang:         {(*Parser).unary, nil, PrecNone},
		scanner.BangEqual:    {nil, (*Parser).binary, PrecEquality},
		scanner.EqualEqual:   {nil, (*Parser).binary, PrecEquality},
		scanner.Greater:      {nil, (*Parser).binary, PrecComparison},
		scanner.GreaterEqual: {nil, (*Parser).binary, PrecComparison},
		scanner.Less:         {nil, (*Parser).binary, PrecComparison},
		scanner.LessEqual:    {nil, (*Parser).binary, PrecComparison},
		scanner.Identifier:   {(*Parser).variable, nil, PrecNone},
		scanner.String:       {(*Parser).stringLit, nil, PrecNone},
		scanner.Number:       {(*Parser).number, nil, PrecNone},
		scanner.And:          {nil, (*Parser).and, PrecAnd},
		scanner.Or:           {nil, (*Parser).or, PrecOr},
		scanner.False:        {(*Parser).literal, nil, PrecNone},
		scanner.Nil:          {(*Parser).literal, nil, PrecNone},
		scanner.True:         {(*Parser).literal, nil, PrecNone},
		scanner.Super:        {(*Parser).super, nil, PrecNone},
		scanner.This:         {(*Parser).this, nil, PrecNone},
	}
}

func getRule(t scanner.TokenType) rule {
	if r, ok := rules[t]; ok {
		return r
	}
	return rule{}
}

func (p *Parser) parsePrecedence(prec Precedence) {
	p.advance()
	r := getRule(p.previous.Type)
	if r.prefix == nil {
		p.error("Expect expression.")
		return
	}
	canAssign := prec <= PrecAssignment
	r.prefix(p, canAssign)

	for prec <= getRule(p.current.Type).precedence {
		p.advance()
		infix := getRule(p.previous.Type).infix
		infix(p, canAssign)
	}

	if canAssign && p.match(scanner.Equal) {
		p.error("Invalid assignment target.")
	}
}

func (p *Parser) expression() { p.parsePrecedence(PrecAssignment) }

// ---------------------------------------------------------------------
// Prefix / infix rule functions
// ---------------------------------------------------------------------

func (p *Parser) grouping(canAssign bool) {
	p.expression()
	p.consume(scanner.RightParen, "Expect ')' after expression.")
}

func (p *Parser) number(canAssign bool) {
	n, _ := strconv.ParseFloat(p.previous.Lexeme, 64)
	p.emitConstant(value.NumberValue(n))
}

func (p *Parser) stringLit(canAssign bool) {
	raw := p.previous.Lexeme
	contents := raw[1 : len(raw)-1] // strip surrounding quotes, no escapes
	if len(contents) > 4096 {
		p.error("String too long.")
	}
	s := p.alloc.InternString(contents)
	p.emitConstant(value.ObjectValue(s))
}

func (p *Parser) literal(canAssign bool) {
	switch p.previous.Type {
	case scanner.False:
		p.emitOp(bytecode.OpFalse)
	case scanner.True:
		p.emitOp(bytecode.OpTrue)
	case scanner.Nil:
		p.emitOp(bytecode.OpNil)
	}
}

func (p *Parser) unary(canAssign bool) {
	opType := p.previous.Type
	p.parsePrecedence(PrecUnary)
	switch opType {
	case scanner.Bang:
		p.emitOp(bytecode.OpNot)
	case scanner.Minus:
		p.emitOp(bytecode.OpNegate)
	}
}

func (p *Parser) binary(canAssign bool) {
	opType := p.previous.Type
	r := getRule(opType)
	p.parsePrecedence(r.precedence + 1)
	switch opType {
	case scanner.BangEqual:
		p.emitOp(bytecode.OpEqual)
		p.emitOp(bytecode.OpNot)
	case scanner.EqualEqual:
		p.emitOp(bytecode.OpEqual)
	case scanner.Greater:
		p.emitOp(bytecode.OpGreater)
	case scanner.GreaterEqual:
		p.emitOp(bytecode.OpLess)
		p.emitOp(bytecode.OpNot)
	case scanner.Less:
		p.emitOp(bytecode.OpLess)
	case scanner.LessEqual:
		p.emitOp(bytecode.OpGreater)
		p.emitOp(bytecode.OpNot)
	case scanner.Plus:
		p.emitOp(bytecode.OpAdd)
	case scanner.Minus:
		p.emitOp(bytecode.OpSubtract)
	case scanner.Star:
		p.emitOp(bytecode.OpMultiply)
	case scanner.Slash:
		p.emitOp(bytecode.OpDivide)
	}
}

func (p *Parser) and(canAssign bool) {
	endJump := p.emitJump(bytecode.OpJumpIfFalse)
	p.emitOp(bytecode.OpPop)
	p.parsePrecedence(PrecAnd)
	p.patchJump(endJump)
}

func (p *Parser) or(canAssign bool) {
	elseJump := p.emitJump(bytecode.OpJumpIfFalse)
	endJump := p.emitJump(bytecode.OpJump)
	p.patchJump(elseJump)
	p.emitOp(bytecode.OpPop)
	p.parsePrecedence(PrecOr)
	p.patchJump(endJump)
}

func (p *Parser) namedVariable(name string, canAssign bool) {
	var getOp, setOp bytecode.Op
	var slot int

	if local := resolveLocal(p.fc, name); local != -1 {
		if local == -2 {
			p.error("Can't read local variable in its own initializer.")
			slot = 0
		} else {
			slot = local
		}
		getOp, setOp = bytecode.OpGetLocal, bytecode.OpSetLocal
	} else if up := resolveUpvalue(p.fc, name); up != -1 {
		slot = up
		getOp, setOp = bytecode.OpGetUpvalue, bytecode.OpSetUpvalue
	} else {
		slot = int(p.identifierConstant(name))
		getOp, setOp = bytecode.OpGetGlobal, bytecode.OpSetGlobal
	}

	if canAssign && p.match(scanner.Equal) {
		p.expression()
		p.emitOpByte(setOp, byte(slot))
	} else {
		p.emitOpByte(getOp, byte(slot))
	}
}

func (p *Parser) variable(canAssign bool) {
	p.namedVariable(p.previous.Lexeme, canAssign)
}

func syntheticThis() string  { return "this" }
func syntheticSuper() string { return "super" }

func (p *Parser) this(canAssign bool) {
	if p.class == nil {
		p.error("Can't use 'this' outside of a class.")
		return
	}
	p.variable(false)
}

func (p *Parser) super(canAssign bool) {
	if p.class == nil {
		p.error("Can't use 'super' outside of a class.")
	} else if !p.class.hasSuperclass {
		p.error("Can't use 'super' in a class with no superclass.")
	}
	p.consume(scanner.Dot, "Expect '.' after 'super'.")
	p.consume(scanner.Identifier, "Expect superclass method name.")
	name := p.identifierConstant(p.previous.Lexeme)

	p.namedVariable(syntheticThis(), false)
	if p.match(scanner.LeftParen) {
		argc := p.argumentList()
		p.namedVariable(syntheticSuper(), false)
		p.emitOpByte(bytecode.OpSuperInvoke, name)
		p.emitByte(argc)
	} else {
		p.namedVariable(syntheticSuper(), false)
		p.emitOpByte(bytecode.OpGetSuper, name)
	}
}

func (p *Parser) argumentList() byte {
	var argc int
	if !p.check(scanner.RightParen) {
		for {
			p.expression()
			if argc == maxArgs {
				p.error("Can't have more than 255 arguments.")
			}
			argc++
			if !p.match(scanner.Comma) {
				break
			}
		}
	}
	p.consume(scanner.RightParen, "Expect ')' after arguments.")
	return byte(argc)
}

func (p *Parser) call(canAssign bool) {
	argc := p.argumentList()
	p.emitOpByte(bytecode.OpCall, argc)
}

func (p *Parser) dot(canAssign bool) {
	p.consume(scanner.Identifier, "Expect property name after '.'.")
	name := p.identifierConstant(p.previous.Lexeme)

	if canAssign && p.match(scanner.Equal) {
		p.expression()
		p.emitOpByte(bytecode.OpSetProperty, name)
	} else if p.match(scanner.LeftParen) {
		argc := p.argumentList()
		p.emitOpByte(bytecode.OpInvoke, name)
		p.emitByte(argc)
	} else {
		p.emitOpByte(bytecode.OpGetProperty, name)
	}
}

// arrayLiteral compiles a bracketed, comma-separated element list into
// ARRAY <count>. This is the prefix rule for '[', the supplemental
// sequence literal.
func (p *Parser) arrayLiteral(canAssign bool) {
	var count int
	if !p.check(scanner.RightBracket) {
		for {
			p.expression()
			if count == maxArgs {
				p.error("Can't have more than 255 array elements.")
			}
			count++
			if !p.match(scanner.Comma) {
				break
			}
		}
	}
	p.consume(scanner.RightBracket, "Expect ']' after array elements.")
	p.emitOpByte(bytecode.OpArray, byte(count))
}

// index compiles the infix '[' used for element access/assignment:
// arr[i] and arr[i] = v.
func (p *Parser) index(canAssign bool) {
	p.expression()
	p.consume(scanner.RightBracket, "Expect ']' after index.")
	if canAssign && p.match(scanner.Equal) {
		p.expression()
		p.emitOp(bytecode.OpSetIndex)
	} else {
		p.emitOp(bytecode.OpGetIndex)
	}
}
