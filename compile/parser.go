// Copyright (c) 2025 The Dust Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.
package compile

import (
	"strconv"

	"dust/bytecode"
	"dust/lang"
	"dust/utils"
)

// -----------------------------------------------------------------------------
// Pratt precedence

type precedence int

const (
	PREC_NONE precedence = iota
	PREC_ASSIGNMENT
	PREC_OR
	PREC_AND
	PREC_EQUALITY
	PREC_COMPARISON
	PREC_TERM
	PREC_FACTOR
	PREC_UNARY
	PREC_CALL
)

func infixPrecedence(kind lang.TokenKind) precedence {
	switch kind {
	case lang.TK_ASSIGN, lang.TK_PLUS_AGN, lang.TK_MINUS_AGN,
		lang.TK_TIMES_AGN, lang.TK_DIV_AGN, lang.TK_MOD_AGN:
		return PREC_ASSIGNMENT
	case lang.TK_LOGOR:
		return PREC_OR
	case lang.TK_LOGAND:
		return PREC_AND
	case lang.TK_EQ, lang.TK_NE:
		return PREC_EQUALITY
	case lang.TK_LT, lang.TK_LE, lang.TK_GT, lang.TK_GE:
		return PREC_COMPARISON
	case lang.TK_PLUS, lang.TK_MINUS:
		return PREC_TERM
	case lang.TK_TIMES, lang.TK_DIV, lang.TK_MOD:
		return PREC_FACTOR
	case lang.TK_LPAREN:
		return PREC_CALL
	}
	return PREC_NONE
}

// parseExpression compiles an expression, emitting its instructions and
// returning the address of its value. min bounds the infix operators this
// level may consume.
func (c *Compiler) parseExpression(min precedence) (operand, error) {
	left, err := c.parsePrefix()
	if err != nil {
		return operand{}, err
	}
	for {
		prec := infixPrecedence(c.stream.current.Kind)
		if prec == PREC_NONE || prec <= min {
			return left, nil
		}
		left, err = c.parseInfix(left, prec)
		if err != nil {
			return operand{}, err
		}
	}
}

// -----------------------------------------------------------------------------
// Prefix rules

func (c *Compiler) parsePrefix() (operand, error) {
	token := c.stream.current
	switch token.Kind {
	case lang.LIT_TRUE, lang.LIT_FALSE:
		if err := c.advance(); err != nil {
			return operand{}, err
		}
		return operand{
			address:    bytecode.EncodedBoolean(token.Kind == lang.LIT_TRUE),
			typ:        lang.TBool,
			span:       token.Span,
			localIndex: -1,
		}, nil
	case lang.LIT_BYTE:
		if err := c.advance(); err != nil {
			return operand{}, err
		}
		value, err := strconv.ParseUint(c.text(token.Span)[2:], 16, 8)
		if err != nil {
			return operand{}, liftLexError(&lang.LexError{Kind: lang.MalformedByte, Span: token.Span})
		}
		return operand{
			address:    bytecode.EncodedByte(byte(value)),
			typ:        lang.TByte,
			span:       token.Span,
			localIndex: -1,
		}, nil
	case lang.LIT_INT:
		if err := c.advance(); err != nil {
			return operand{}, err
		}
		return c.integerConstant(c.text(token.Span), token.Span)
	case lang.LIT_FLOAT:
		if err := c.advance(); err != nil {
			return operand{}, err
		}
		return c.floatConstant(c.text(token.Span), token.Span)
	case lang.LIT_CHAR:
		if err := c.advance(); err != nil {
			return operand{}, err
		}
		index := c.chunk.Constants.AddCharacter(lang.DecodeCharacter(c.text(token.Span)))
		return operand{
			address:    bytecode.Constant(index, bytecode.TYPE_CHARACTER),
			typ:        lang.TChar,
			span:       token.Span,
			localIndex: -1,
		}, nil
	case lang.LIT_STR:
		if err := c.advance(); err != nil {
			return operand{}, err
		}
		index := c.chunk.Constants.AddString(lang.DecodeString(c.text(token.Span)))
		return operand{
			address:    bytecode.Constant(index, bytecode.TYPE_STRING),
			typ:        lang.TString,
			span:       token.Span,
			localIndex: -1,
		}, nil
	case lang.TK_IDENT:
		return c.parseVariable()
	case lang.TK_LPAREN:
		if err := c.advance(); err != nil {
			return operand{}, err
		}
		grouped, err := c.parseExpression(PREC_NONE)
		if err != nil {
			return operand{}, err
		}
		if err := c.expect(lang.TK_RPAREN); err != nil {
			return operand{}, err
		}
		// Parentheses end a comparison chain.
		grouped.fromComparison = false
		grouped.span = lang.NewSpan(token.Span.Start, c.stream.previous.Span.End)
		return grouped, nil
	case lang.TK_MINUS:
		return c.parseNegation()
	case lang.TK_BANG:
		return c.parseNot()
	case lang.TK_LBRACKET:
		return c.parseListLiteral()
	case lang.KW_IF:
		return c.parseIf()
	}
	return operand{}, errorAt(ExpectedExpression, token.Span,
		"found %v", token.Kind)
}

func (c *Compiler) integerConstant(text string, span lang.Span) (operand, error) {
	value, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return operand{}, liftLexError(&lang.LexError{Kind: lang.MalformedInteger, Span: span})
	}
	index := c.chunk.Constants.AddInteger(value)
	return operand{
		address:    bytecode.Constant(index, bytecode.TYPE_INTEGER),
		typ:        lang.TInt,
		span:       span,
		localIndex: -1,
	}, nil
}

func (c *Compiler) floatConstant(text string, span lang.Span) (operand, error) {
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return operand{}, liftLexError(&lang.LexError{Kind: lang.MalformedFloat, Span: span})
	}
	index := c.chunk.Constants.AddFloat(value)
	return operand{
		address:    bytecode.Constant(index, bytecode.TYPE_FLOAT),
		typ:        lang.TFloat,
		span:       span,
		localIndex: -1,
	}, nil
}

func (c *Compiler) parseVariable() (operand, error) {
	span := c.stream.current.Span
	if err := c.advance(); err != nil {
		return operand{}, err
	}
	name := c.text(span)

	if index, visible := c.findLocal(name); visible {
		local := c.locals[index]
		return operand{
			address:    local.address,
			typ:        local.typ,
			span:       span,
			localIndex: index,
		}, nil
	} else if index >= 0 {
		return operand{}, errorAt(VariableOutOfScope, span, "%s", name)
	}
	if name == c.functionName && c.selfType != nil {
		return c.loadPrototype(int(c.chunk.PrototypeIndex), c.selfType, span), nil
	}
	// Function declarations of enclosing bodies are reachable through the
	// flat prototype table; anything else out there would need a capture,
	// which the language does not have.
	for enclosing := c.parent; enclosing != nil; enclosing = enclosing.parent {
		if name == enclosing.functionName && enclosing.selfType != nil {
			return c.loadPrototype(int(enclosing.chunk.PrototypeIndex), enclosing.selfType, span), nil
		}
		index, visible := enclosing.findLocal(name)
		if !visible {
			continue
		}
		local := enclosing.locals[index]
		if local.protoIndex >= 0 {
			return c.loadPrototype(local.protoIndex, local.typ, span), nil
		}
		return operand{}, errorAt(VariableOutOfScope, span,
			"%s cannot be captured from an enclosing function", name)
	}
	if native, found := bytecode.NativeByName(name); found {
		return operand{typ: lang.TNone, span: span, localIndex: -1, isNative: true, native: native}, nil
	}
	return operand{}, errorAt(UndeclaredVariable, span, "%s", name)
}

// loadPrototype materializes a flat-table function into a fresh register.
func (c *Compiler) loadPrototype(prototypeIndex int, typ *lang.Type, span lang.Span) operand {
	register := c.allocRegister(bytecode.TYPE_FUNCTION)
	address := bytecode.Register(register, bytecode.TYPE_FUNCTION)
	c.emit(bytecode.NewLoadFunction(address, uint16(prototypeIndex)), span)
	return operand{
		address:    address,
		typ:        typ,
		span:       span,
		localIndex: -1,
	}
}

// parseNegation folds the sign into integer and float literals; any other
// numeric operand is negated at run time.
func (c *Compiler) parseNegation() (operand, error) {
	minusSpan := c.stream.current.Span
	if err := c.advance(); err != nil {
		return operand{}, err
	}
	literal := c.stream.current
	if literal.Kind == lang.LIT_INT {
		if err := c.advance(); err != nil {
			return operand{}, err
		}
		op, err := c.integerConstant("-"+c.text(literal.Span), c.spanFrom(minusSpan))
		return op, err
	}
	if literal.Kind == lang.LIT_FLOAT {
		if err := c.advance(); err != nil {
			return operand{}, err
		}
		op, err := c.floatConstant("-"+c.text(literal.Span), c.spanFrom(minusSpan))
		return op, err
	}

	value, err := c.parseExpression(PREC_UNARY)
	if err != nil {
		return operand{}, err
	}
	if !value.typ.IsNumeric() {
		return operand{}, errorAt(CannotNegateType, value.span,
			"cannot negate %v", value.typ)
	}
	t := bytecode.OperandTypeOf(value.typ)
	destination := bytecode.Register(c.allocRegister(t), t)
	c.emit(bytecode.NewNegate(destination, value.address), c.spanFrom(minusSpan))
	return operand{
		address:    destination,
		typ:        value.typ,
		span:       c.spanFrom(minusSpan),
		localIndex: -1,
	}, nil
}

func (c *Compiler) parseNot() (operand, error) {
	bangSpan := c.stream.current.Span
	if err := c.advance(); err != nil {
		return operand{}, err
	}
	value, err := c.parseExpression(PREC_UNARY)
	if err != nil {
		return operand{}, err
	}
	if !value.typ.IsBool() {
		return operand{}, errorAt(ExpectedBoolean, value.span,
			"cannot apply ! to %v", value.typ)
	}
	destination := bytecode.Register(c.allocRegister(bytecode.TYPE_BOOLEAN), bytecode.TYPE_BOOLEAN)
	c.emit(bytecode.NewNot(destination, value.address), c.spanFrom(bangSpan))
	return operand{
		address:    destination,
		typ:        lang.TBool,
		span:       c.spanFrom(bangSpan),
		localIndex: -1,
	}, nil
}

func (c *Compiler) parseListLiteral() (operand, error) {
	openSpan := c.stream.current.Span
	if err := c.advance(); err != nil {
		return operand{}, err
	}
	if empty, err := c.match(lang.TK_RBRACKET); err != nil {
		return operand{}, err
	} else if empty {
		destination := bytecode.Register(c.allocRegister(bytecode.TYPE_LIST), bytecode.TYPE_LIST)
		c.emit(bytecode.NewLoadList(destination, bytecode.TYPE_NONE, 0, 0, false), c.spanFrom(openSpan))
		return operand{
			address:    destination,
			typ:        lang.ListOf(lang.TNone, 0),
			span:       c.spanFrom(openSpan),
			localIndex: -1,
		}, nil
	}

	first, err := c.parseExpression(PREC_NONE)
	if err != nil {
		return operand{}, err
	}
	elementType := first.typ
	elementTag := bytecode.OperandTypeOf(elementType)
	firstRegister := c.materializeTemp(first)
	lastRegister := firstRegister
	count := 1
	for {
		more, err := c.match(lang.TK_COMMA)
		if err != nil {
			return operand{}, err
		}
		if !more || c.check(lang.TK_RBRACKET) {
			break
		}
		item, err := c.parseExpression(PREC_NONE)
		if err != nil {
			return operand{}, err
		}
		if err := elementType.Check(item.typ); err != nil {
			return operand{}, &Error{
				Kind: ListItemTypeConflict,
				Span: item.span,
				Details: []Snippet{
					{Message: "first item has type " + elementType.String(), Span: first.span},
					{Message: "this item has type " + item.typ.String(), Span: item.span},
				},
			}
		}
		register := c.materializeTemp(item)
		utils.Assert(register == lastRegister+1, "list items are not contiguous")
		lastRegister = register
		count++
	}
	if err := c.expect(lang.TK_RBRACKET); err != nil {
		return operand{}, err
	}

	destination := bytecode.Register(c.allocRegister(bytecode.TYPE_LIST), bytecode.TYPE_LIST)
	c.emit(bytecode.NewLoadList(destination, elementTag, firstRegister, lastRegister, false),
		c.spanFrom(openSpan))
	return operand{
		address:    destination,
		typ:        lang.ListOf(elementType, count),
		span:       c.spanFrom(openSpan),
		localIndex: -1,
	}, nil
}

// parseIf compiles an if/else expression. Layout:
//
//	<condition, skips next when true>
//	JUMP +then          (taken when the condition fails: to else / end)
//	<then branch> <store> JUMP +else
//	<else branch> <store>
//
// Both branches leave their value in one register allocated in the
// enclosing scope.
func (c *Compiler) parseIf() (operand, error) {
	ifSpan := c.stream.current.Span
	if err := c.advance(); err != nil {
		return operand{}, err
	}
	if _, err := c.compileCondition(); err != nil {
		return operand{}, err
	}
	jumpToElse := c.emitJumpPlaceholder(c.stream.previous.Span)

	thenMark := c.beginScope()
	thenValue, err := c.parseBraceBlock()
	if err != nil {
		return operand{}, err
	}
	c.endScope(thenMark)

	hasValue := !thenValue.typ.IsNone()
	result := noneOperand(c.spanFrom(ifSpan))
	if hasValue {
		t := bytecode.OperandTypeOf(thenValue.typ)
		result = operand{
			address:    bytecode.Register(c.allocRegister(t), t),
			typ:        thenValue.typ,
			span:       c.spanFrom(ifSpan),
			localIndex: -1,
		}
		c.emitLoad(result.address, thenValue, false)
	}

	hasElse, err := c.match(lang.KW_ELSE)
	if err != nil {
		return operand{}, err
	}
	if !hasElse {
		if hasValue {
			return operand{}, errorAt(IfMissingElse, c.spanFrom(ifSpan),
				"the if branch produces %v", thenValue.typ)
		}
		c.patchJump(jumpToElse)
		return result, nil
	}

	jumpOverElse := c.emitJumpPlaceholder(c.stream.previous.Span)
	c.patchJump(jumpToElse)

	var elseValue operand
	if c.check(lang.KW_IF) {
		elseValue, err = c.parseIf()
	} else {
		elseMark := c.beginScope()
		elseValue, err = c.parseBraceBlock()
		c.endScope(elseMark)
	}
	if err != nil {
		return operand{}, err
	}
	if err := thenValue.typ.Check(elseValue.typ); err != nil {
		return operand{}, &Error{
			Kind: IfElseBranchMismatch,
			Span: elseValue.span,
			Details: []Snippet{
				{Message: "the if branch produces " + thenValue.typ.String(), Span: thenValue.span},
				{Message: "the else branch produces " + elseValue.typ.String(), Span: elseValue.span},
			},
		}
	}
	if hasValue {
		c.emitLoad(result.address, elseValue, false)
	}
	c.patchJump(jumpOverElse)
	result.span = c.spanFrom(ifSpan)
	return result, nil
}

// -----------------------------------------------------------------------------
// Infix rules

func (c *Compiler) parseInfix(left operand, prec precedence) (operand, error) {
	kind := c.stream.current.Kind
	switch kind {
	case lang.TK_ASSIGN, lang.TK_PLUS_AGN, lang.TK_MINUS_AGN,
		lang.TK_TIMES_AGN, lang.TK_DIV_AGN, lang.TK_MOD_AGN:
		return c.parseAssignment(left)
	case lang.TK_LOGAND, lang.TK_LOGOR:
		return c.parseLogical(left, prec)
	case lang.TK_EQ, lang.TK_NE, lang.TK_LT, lang.TK_LE, lang.TK_GT, lang.TK_GE:
		return c.parseComparison(left, prec)
	case lang.TK_PLUS, lang.TK_MINUS, lang.TK_TIMES, lang.TK_DIV, lang.TK_MOD:
		return c.parseBinary(left, prec)
	case lang.TK_LPAREN:
		return c.parseCall(left)
	}
	utils.ShouldNotReachHere()
	return operand{}, nil
}

// binaryRules maps arithmetic tokens to operations and their error kinds.
type binaryRule struct {
	operation     bytecode.Operation
	typeError     ErrorKind
	argumentError ErrorKind
}

var binaryRules = map[lang.TokenKind]binaryRule{
	lang.TK_PLUS:      {bytecode.OP_ADD, CannotAddType, CannotAddArguments},
	lang.TK_MINUS:     {bytecode.OP_SUBTRACT, CannotSubtractType, CannotSubtractArguments},
	lang.TK_TIMES:     {bytecode.OP_MULTIPLY, CannotMultiplyType, CannotMultiplyArguments},
	lang.TK_DIV:       {bytecode.OP_DIVIDE, CannotDivideType, CannotDivideArguments},
	lang.TK_MOD:       {bytecode.OP_MODULO, CannotModuloType, CannotModuloArguments},
	lang.TK_PLUS_AGN:  {bytecode.OP_ADD, CannotAddType, CannotAddArguments},
	lang.TK_MINUS_AGN: {bytecode.OP_SUBTRACT, CannotSubtractType, CannotSubtractArguments},
	lang.TK_TIMES_AGN: {bytecode.OP_MULTIPLY, CannotMultiplyType, CannotMultiplyArguments},
	lang.TK_DIV_AGN:   {bytecode.OP_DIVIDE, CannotDivideType, CannotDivideArguments},
	lang.TK_MOD_AGN:   {bytecode.OP_MODULO, CannotModuloType, CannotModuloArguments},
}

// binaryResultType applies the operator overload table. Addition admits the
// string and character concatenations; every other operator requires two
// numeric operands of the same type.
func binaryResultType(rule binaryRule, left, right operand) (*lang.Type, *Error) {
	operandsError := func() *Error {
		return &Error{
			Kind: rule.argumentError,
			Span: lang.NewSpan(left.span.Start, right.span.End),
			Details: []Snippet{
				{Message: "left operand has type " + left.typ.String(), Span: left.span},
				{Message: "right operand has type " + right.typ.String(), Span: right.span},
			},
		}
	}
	if rule.operation == bytecode.OP_ADD {
		switch {
		case left.typ.IsNumeric():
			if left.typ.Kind != right.typ.Kind {
				return nil, operandsError()
			}
			return left.typ, nil
		case left.typ.IsChar() || left.typ.IsString():
			if !right.typ.IsChar() && !right.typ.IsString() {
				return nil, operandsError()
			}
			return lang.TString, nil
		}
		return nil, errorAt(rule.typeError, left.span, "cannot add %v", left.typ)
	}
	if !left.typ.IsNumeric() {
		return nil, errorAt(rule.typeError, left.span,
			"the operator requires a numeric operand, found %v", left.typ)
	}
	if !right.typ.IsNumeric() || left.typ.Kind != right.typ.Kind {
		return nil, operandsError()
	}
	return left.typ, nil
}

func emitBinary(c *Compiler, operation bytecode.Operation, dst, lhs, rhs bytecode.Address, span lang.Span) {
	switch operation {
	case bytecode.OP_ADD:
		c.emit(bytecode.NewAdd(dst, lhs, rhs), span)
	case bytecode.OP_SUBTRACT:
		c.emit(bytecode.NewSubtract(dst, lhs, rhs), span)
	case bytecode.OP_MULTIPLY:
		c.emit(bytecode.NewMultiply(dst, lhs, rhs), span)
	case bytecode.OP_DIVIDE:
		c.emit(bytecode.NewDivide(dst, lhs, rhs), span)
	case bytecode.OP_MODULO:
		c.emit(bytecode.NewModulo(dst, lhs, rhs), span)
	default:
		utils.ShouldNotReachHere()
	}
}

func (c *Compiler) parseBinary(left operand, prec precedence) (operand, error) {
	operator := c.stream.current.Kind
	if err := c.advance(); err != nil {
		return operand{}, err
	}
	right, err := c.parseExpression(prec)
	if err != nil {
		return operand{}, err
	}
	rule := binaryRules[operator]
	resultType, typeErr := binaryResultType(rule, left, right)
	if typeErr != nil {
		return operand{}, typeErr
	}
	t := bytecode.OperandTypeOf(resultType)
	destination := bytecode.Register(c.allocRegister(t), t)
	span := lang.NewSpan(left.span.Start, right.span.End)
	emitBinary(c, rule.operation, destination, left.address, right.address, span)
	return operand{
		address:    destination,
		typ:        resultType,
		span:       span,
		localIndex: -1,
	}, nil
}

// comparisonInstruction maps a comparison operator to the instruction and
// comparator that compute it. Greater-than forms are synthesized from Less
// and LessEqual by flipping the comparator; != from Equal the same way.
func comparisonInstruction(kind lang.TokenKind, lhs, rhs bytecode.Address) bytecode.Instruction {
	switch kind {
	case lang.TK_EQ:
		return bytecode.NewEqual(true, lhs, rhs)
	case lang.TK_NE:
		return bytecode.NewEqual(false, lhs, rhs)
	case lang.TK_LT:
		return bytecode.NewLess(true, lhs, rhs)
	case lang.TK_GE:
		return bytecode.NewLess(false, lhs, rhs)
	case lang.TK_LE:
		return bytecode.NewLessEqual(true, lhs, rhs)
	case lang.TK_GT:
		return bytecode.NewLessEqual(false, lhs, rhs)
	}
	utils.ShouldNotReachHere()
	return bytecode.Instruction{}
}

func comparableOperands(kind lang.TokenKind, typ *lang.Type) bool {
	switch typ.Kind {
	case lang.TypeByte, lang.TypeChar, lang.TypeFloat, lang.TypeInt, lang.TypeString:
		return true
	case lang.TypeBool:
		// Booleans support equality but have no ordering.
		return kind == lang.TK_EQ || kind == lang.TK_NE
	}
	return false
}

// parseComparison emits the standard materialization idiom:
//
//	CMP comparator lhs rhs    (executes next when the comparison holds)
//	JUMP +1
//	LOAD dst false  (jump next)
//	LOAD dst true
func (c *Compiler) parseComparison(left operand, prec precedence) (operand, error) {
	operator := c.stream.current.Kind
	operatorSpan := c.stream.current.Span
	if left.fromComparison {
		return operand{}, errorAt(CannotChainComparison, operatorSpan,
			"parenthesize the first comparison")
	}
	if err := c.advance(); err != nil {
		return operand{}, err
	}
	right, err := c.parseExpression(prec)
	if err != nil {
		return operand{}, err
	}
	if right.fromComparison {
		return operand{}, errorAt(CannotChainComparison, operatorSpan,
			"parenthesize the second comparison")
	}
	if left.typ.Check(right.typ) != nil ||
		!comparableOperands(operator, left.typ) {
		return operand{}, &Error{
			Kind: CannotCompareArguments,
			Span: lang.NewSpan(left.span.Start, right.span.End),
			Details: []Snippet{
				{Message: "left operand has type " + left.typ.String(), Span: left.span},
				{Message: "right operand has type " + right.typ.String(), Span: right.span},
			},
		}
	}

	span := lang.NewSpan(left.span.Start, right.span.End)
	destination := bytecode.Register(c.allocRegister(bytecode.TYPE_BOOLEAN), bytecode.TYPE_BOOLEAN)
	c.emit(comparisonInstruction(operator, left.address, right.address), span)
	c.emit(bytecode.NewJump(1, true), operatorSpan)
	c.emit(bytecode.NewLoadEncoded(destination, bytecode.EncodedBoolean(false), true), operatorSpan)
	c.emit(bytecode.NewLoadEncoded(destination, bytecode.EncodedBoolean(true), false), operatorSpan)
	return operand{
		address:        destination,
		typ:            lang.TBool,
		span:           span,
		localIndex:     -1,
		fromComparison: true,
	}, nil
}

// parseLogical compiles && and || with the short-circuit skip-test: the
// right operand is jumped over when the left already determines the result,
// and both operands funnel into one boolean register.
func (c *Compiler) parseLogical(left operand, prec precedence) (operand, error) {
	operator := c.stream.current.Kind
	operatorSpan := c.stream.current.Span
	if err := c.advance(); err != nil {
		return operand{}, err
	}
	if !left.typ.IsBool() {
		return operand{}, errorAt(ExpectedBoolean, left.span,
			"the left operand of %v has type %v", operator, left.typ)
	}

	// The result register. A fresh scratch register holding the left value
	// is reused; anything else is copied so that locals are not clobbered.
	var result bytecode.Address
	if c.isFreshTemp(left) && left.address.Type == bytecode.TYPE_BOOLEAN {
		result = left.address
	} else {
		result = bytecode.Register(c.allocRegister(bytecode.TYPE_BOOLEAN), bytecode.TYPE_BOOLEAN)
		c.emitLoad(result, left, false)
	}

	// && evaluates the right operand when the left is true, || when it is
	// false: TEST skips the short-circuit jump in exactly that case.
	c.emit(bytecode.NewTest(result, operator == lang.TK_LOGAND), operatorSpan)
	skip := c.emitJumpPlaceholder(operatorSpan)

	right, err := c.parseExpression(prec)
	if err != nil {
		return operand{}, err
	}
	if !right.typ.IsBool() {
		return operand{}, errorAt(ExpectedBoolean, right.span,
			"the right operand of %v has type %v", operator, right.typ)
	}
	c.emitLoad(result, right, false)
	c.patchJump(skip)

	return operand{
		address:    result,
		typ:        lang.TBool,
		span:       lang.NewSpan(left.span.Start, right.span.End),
		localIndex: -1,
	}, nil
}

func (c *Compiler) parseAssignment(left operand) (operand, error) {
	operator := c.stream.current.Kind
	operatorSpan := c.stream.current.Span
	if err := c.advance(); err != nil {
		return operand{}, err
	}
	if left.localIndex < 0 {
		return operand{}, errorAt(InvalidAssignmentTarget, left.span,
			"this expression cannot be assigned to")
	}
	local := c.locals[left.localIndex]
	if !local.isMutable {
		return operand{}, &Error{
			Kind: CannotMutateImmutableVariable,
			Span: operatorSpan,
			Details: []Snippet{
				{Message: local.identifier + " is immutable", Span: left.span},
			},
			Help: []Snippet{
				{Message: "declare it with 'let mut'", Span: left.span},
			},
		}
	}

	right, err := c.parseExpression(PREC_NONE)
	if err != nil {
		return operand{}, err
	}
	span := lang.NewSpan(left.span.Start, right.span.End)

	if operator == lang.TK_ASSIGN {
		if err := local.typ.Check(right.typ); err != nil {
			return operand{}, &Error{
				Kind: CannotResolveVariableType,
				Span: span,
				Details: []Snippet{
					{Message: local.identifier + " has type " + local.typ.String(), Span: left.span},
					{Message: "assigned value has type " + right.typ.String(), Span: right.span},
				},
			}
		}
		c.emitLoad(local.address, right, false)
		return noneOperand(span), nil
	}

	// Compound assignment reuses the pinned register as both destination
	// and left operand, updating in place.
	rule := binaryRules[operator]
	resultType, typeErr := binaryResultType(rule, left, right)
	if typeErr != nil {
		return operand{}, typeErr
	}
	if err := local.typ.Check(resultType); err != nil {
		return operand{}, &Error{
			Kind: CannotResolveVariableType,
			Span: span,
			Details: []Snippet{
				{Message: local.identifier + " has type " + local.typ.String(), Span: left.span},
				{Message: "the operation produces " + resultType.String(), Span: right.span},
			},
		}
	}
	emitBinary(c, rule.operation, local.address, local.address, right.address, span)
	return noneOperand(span), nil
}

func (c *Compiler) parseCall(left operand) (operand, error) {
	if err := c.advance(); err != nil {
		return operand{}, err
	}
	var arguments []operand
	for !c.check(lang.TK_RPAREN) {
		argument, err := c.parseExpression(PREC_NONE)
		if err != nil {
			return operand{}, err
		}
		arguments = append(arguments, argument)
		if more, err := c.match(lang.TK_COMMA); err != nil {
			return operand{}, err
		} else if !more {
			break
		}
	}
	if err := c.expect(lang.TK_RPAREN); err != nil {
		return operand{}, err
	}
	span := c.spanFrom(left.span)

	if left.isNative {
		return c.emitNativeCall(left.native, arguments, span)
	}

	if !left.typ.IsFunction() {
		return operand{}, errorAt(ExpectedFunction, left.span,
			"cannot call a value of type %v", left.typ)
	}
	functionAddress := left.address
	functionType := left.typ.Func

	if err := c.checkCallSignature(functionType, arguments, span); err != nil {
		return operand{}, err
	}
	argumentList := c.addArgumentList(arguments)
	destination := c.callDestination(functionType.ReturnType)
	c.emit(bytecode.NewCall(destination, functionAddress, argumentList), span)
	return operand{
		address:    destination,
		typ:        functionType.ReturnType,
		span:       span,
		localIndex: -1,
	}, nil
}

func (c *Compiler) checkCallSignature(functionType *lang.FunctionType, arguments []operand, span lang.Span) error {
	if len(arguments) != len(functionType.ValueParameters) {
		return errorAt(ExpectedFunctionType, span,
			"the function takes %d arguments, found %d",
			len(functionType.ValueParameters), len(arguments))
	}
	for i, parameter := range functionType.ValueParameters {
		if err := parameter.Check(arguments[i].typ); err != nil {
			return &Error{
				Kind: ExpectedFunctionType,
				Span: arguments[i].span,
				Details: []Snippet{
					{Message: "the parameter has type " + parameter.String(), Span: span},
					{Message: "the argument has type " + arguments[i].typ.String(), Span: arguments[i].span},
				},
			}
		}
	}
	return nil
}

func (c *Compiler) addArgumentList(arguments []operand) uint16 {
	addresses := make([]bytecode.Address, len(arguments))
	for i, argument := range arguments {
		addresses[i] = argument.address
	}
	index := uint16(len(c.chunk.Arguments))
	c.chunk.Arguments = append(c.chunk.Arguments, addresses)
	return index
}

func (c *Compiler) callDestination(returnType *lang.Type) bytecode.Address {
	if returnType.IsNone() {
		return bytecode.Address{Kind: bytecode.MEM_REGISTER, Type: bytecode.TYPE_NONE}
	}
	t := bytecode.OperandTypeOf(returnType)
	return bytecode.Register(c.allocRegister(t), t)
}

func (c *Compiler) emitNativeCall(native bytecode.Native, arguments []operand, span lang.Span) (operand, error) {
	signature := nativeSignatures[native]
	if err := c.checkCallSignature(signature, arguments, span); err != nil {
		return operand{}, err
	}
	argumentList := c.addArgumentList(arguments)
	destination := c.callDestination(signature.ReturnType)
	c.emit(bytecode.NewCallNative(destination, uint16(native), argumentList), span)
	return operand{
		address:    destination,
		typ:        signature.ReturnType,
		span:       span,
		localIndex: -1,
	}, nil
}

// nativeSignatures types the built-in functions for call checking.
var nativeSignatures = map[bytecode.Native]*lang.FunctionType{
	bytecode.NATIVE_WRITE_LINE: {ValueParameters: []*lang.Type{lang.TString}, ReturnType: lang.TNone},
	bytecode.NATIVE_READ_LINE:  {ValueParameters: nil, ReturnType: lang.TString},
}
