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
	"dust/bytecode"
	"dust/lang"
	"dust/utils"
)

// -----------------------------------------------------------------------------
// Compiler
//
// A single pass couples the Pratt expression parser with type checking,
// register allocation and instruction emission. There is no AST: parsing an
// expression emits the instructions that compute it and returns the address
// where the value lives.

const (
	maxConstants    = 1 << 16
	maxInstructions = 1 << 16
	maxLocals       = 1 << 16
)

// tokenStream pumps tokens from the lexer, skipping comments. It is shared
// by the compilers of nested function bodies.
type tokenStream struct {
	lexer    *lang.Lexer
	previous lang.Token
	current  lang.Token
}

func newTokenStream(source []byte) (*tokenStream, error) {
	stream := &tokenStream{lexer: lang.NewLexer(source)}
	if err := stream.advance(); err != nil {
		return nil, err
	}
	return stream, nil
}

func (stream *tokenStream) advance() error {
	stream.previous = stream.current
	for {
		token, err := stream.lexer.NextToken()
		if err != nil {
			return liftLexError(err)
		}
		if token.Kind.IsComment() {
			continue
		}
		stream.current = token
		return nil
	}
}

// operand is the result of compiling an expression: the address holding the
// value, its language type and the source span that produced it.
type operand struct {
	address bytecode.Address
	typ     *lang.Type
	span    lang.Span

	// localIndex points into Compiler.locals when the operand is a plain
	// variable reference, enabling assignment and in-place updates.
	localIndex int

	// fromComparison marks the materialized result of a comparison so that
	// chained comparisons are rejected and conditions can be fused.
	fromComparison bool

	// Native call targets, which are not first-class values.
	isNative bool
	native   bytecode.Native
}

func noneOperand(span lang.Span) operand {
	return operand{
		address:    bytecode.Address{Kind: bytecode.MEM_REGISTER, Type: bytecode.TYPE_NONE},
		typ:        lang.TNone,
		span:       span,
		localIndex: -1,
	}
}

type localSlot struct {
	identifier string
	address    bytecode.Address
	typ        *lang.Type
	isMutable  bool
	depth      int // -1 once the scope has closed
	scopeID    int

	// protoIndex is the flat-table slot when this local names a declared
	// function, letting nested bodies call it without capturing.
	protoIndex int
}

type loopContext struct {
	breakJumps []int
}

type Compiler struct {
	stream *tokenStream
	source []byte
	chunk  *bytecode.Chunk
	parent *Compiler

	// root owns the flat prototype table every chunk of the compilation
	// shares: the main function at index 0, nested functions after it.
	// Slots are reserved before bodies compile so recursive and forward
	// references resolve.
	root       *Compiler
	prototypes []*bytecode.Chunk

	// Self-reference support for recursive functions.
	functionName string
	selfType     *lang.Type

	locals      []localSlot
	scopeDepth  int
	scopeSerial int

	// Per-type next-register cursors. The high-water mark of each cursor
	// becomes the chunk's bank size.
	next [9]uint16

	returnType *lang.Type
	sawReturn  bool

	loops []*loopContext
}

func newCompiler(stream *tokenStream, source []byte, name string, parent *Compiler) *Compiler {
	c := &Compiler{
		stream: stream,
		source: source,
		chunk: &bytecode.Chunk{
			Name:      name,
			Constants: bytecode.NewConstantPool(),
		},
		parent: parent,
	}
	if parent != nil {
		c.root = parent.root
	} else {
		c.root = c
		c.prototypes = []*bytecode.Chunk{c.chunk}
	}
	return c
}

// reservePrototype claims the next slot of the flat prototype table.
func (c *Compiler) reservePrototype() uint16 {
	index := uint16(len(c.root.prototypes))
	c.root.prototypes = append(c.root.prototypes, nil)
	return index
}

// CompileMain compiles a whole source text into a top-level chunk whose
// function type is () -> inferred.
func CompileMain(name string, source []byte) (*bytecode.Chunk, error) {
	stream, err := newTokenStream(source)
	if err != nil {
		return nil, err
	}
	compiler := newCompiler(stream, source, name, nil)
	if err := compiler.compileTopLevel(); err != nil {
		return nil, err
	}
	return compiler.chunk, nil
}

// Compile compiles a whole source text and flattens the prototype tree into
// a table with the main function at index 0.
func Compile(source []byte) ([]*bytecode.Chunk, error) {
	main, err := CompileMain("main", source)
	if err != nil {
		return nil, err
	}
	return main.Prototypes, nil
}

func (c *Compiler) compileTopLevel() error {
	last := noneOperand(c.stream.current.Span)
	lastValid := false
	for !c.check(lang.TK_EOF) {
		op, isExpression, err := c.parseStatement()
		if err != nil {
			return err
		}
		last, lastValid = op, isExpression
	}

	end := c.stream.current.Span
	returnType := lang.TNone
	if lastValid && !last.typ.IsNone() {
		c.emit(bytecode.NewReturn(true, last.address), end)
		returnType = last.typ
	} else {
		c.emit(bytecode.NewReturn(false, bytecode.Address{Type: bytecode.TYPE_NONE}), end)
	}
	c.chunk.Type = &lang.FunctionType{ReturnType: returnType}

	// Hand the finished flat table to every chunk of the compilation.
	for _, prototype := range c.prototypes {
		prototype.Prototypes = c.prototypes
	}
	return c.finishChunk()
}

func (c *Compiler) finishChunk() error {
	if c.chunk.Constants.Len() > maxConstants {
		return errorAt(ConstantIndexOutOfBounds, c.stream.previous.Span,
			"%d constants", c.chunk.Constants.Len())
	}
	if len(c.chunk.Instructions) > maxInstructions {
		return errorAt(InstructionIndexOutOfBounds, c.stream.previous.Span,
			"%d instructions", len(c.chunk.Instructions))
	}
	if len(c.chunk.Locals) > maxLocals {
		return errorAt(LocalIndexOutOfBounds, c.stream.previous.Span,
			"%d locals", len(c.chunk.Locals))
	}
	c.chunk.Constants.TrimStringPool()
	// A malformed chunk past this point is a compiler bug, not a user error.
	utils.Assert(c.chunk.Validate() == nil, "invalid chunk: %v", c.chunk.Validate())
	return nil
}

// -----------------------------------------------------------------------------
// Token helpers

func (c *Compiler) advance() error {
	return c.stream.advance()
}

func (c *Compiler) check(kind lang.TokenKind) bool {
	return c.stream.current.Kind == kind
}

func (c *Compiler) match(kind lang.TokenKind) (bool, error) {
	if !c.check(kind) {
		return false, nil
	}
	return true, c.advance()
}

func (c *Compiler) expect(kind lang.TokenKind) error {
	if !c.check(kind) {
		return errorAt(ExpectedToken, c.stream.current.Span,
			"expected %v, found %v", kind, c.stream.current.Kind)
	}
	return c.advance()
}

func (c *Compiler) text(span lang.Span) string {
	return span.Text(c.source)
}

// spanFrom covers everything from start through the previously consumed
// token.
func (c *Compiler) spanFrom(start lang.Span) lang.Span {
	return lang.NewSpan(start.Start, c.stream.previous.Span.End)
}

// -----------------------------------------------------------------------------
// Registers and scopes

func (c *Compiler) allocRegister(t bytecode.OperandType) uint16 {
	index := c.next[t]
	c.next[t]++
	if c.next[t] > c.chunk.MemoryLength(t) {
		c.chunk.SetMemoryLength(t, c.next[t])
	}
	return index
}

// isFreshTemp reports whether the operand is a scratch register on top of
// its bank cursor, free to be claimed by a local or reused as a target.
func (c *Compiler) isFreshTemp(o operand) bool {
	return o.localIndex < 0 &&
		o.address.Kind == bytecode.MEM_REGISTER &&
		o.address.Type != bytecode.TYPE_NONE &&
		o.address.Index+1 == c.next[o.address.Type]
}

type scopeMark struct {
	cursors    [9]uint16
	localCount int
}

func (c *Compiler) beginScope() scopeMark {
	c.scopeDepth++
	c.scopeSerial++
	return scopeMark{cursors: c.next, localCount: len(c.locals)}
}

// endScope releases the scope's registers by rolling the cursors back and
// retires its locals. Retired locals stay listed so that later references
// can be reported as out of scope rather than undeclared.
func (c *Compiler) endScope(mark scopeMark) {
	for i := mark.localCount; i < len(c.locals); i++ {
		c.locals[i].depth = -1
	}
	c.next = mark.cursors
	c.scopeDepth--
}

func (c *Compiler) addLocal(identifier string, address bytecode.Address, typ *lang.Type, isMutable bool) int {
	index := len(c.locals)
	c.locals = append(c.locals, localSlot{
		identifier: identifier,
		address:    address,
		typ:        typ,
		isMutable:  isMutable,
		depth:      c.scopeDepth,
		scopeID:    c.scopeSerial,
		protoIndex: -1,
	})
	c.chunk.Locals = append(c.chunk.Locals, bytecode.Local{
		Identifier: identifier,
		Address:    address,
		IsMutable:  isMutable,
		ScopeID:    c.scopeSerial,
	})
	return index
}

// findLocal returns the index of the innermost visible local with the given
// name, or the index of a retired one (found=false distinguishes the cases).
func (c *Compiler) findLocal(identifier string) (int, bool) {
	retired := -1
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].identifier != identifier {
			continue
		}
		if c.locals[i].depth >= 0 {
			return i, true
		}
		if retired < 0 {
			retired = i
		}
	}
	return retired, false
}

// -----------------------------------------------------------------------------
// Emission

func (c *Compiler) emit(in bytecode.Instruction, span lang.Span) {
	c.chunk.Instructions = append(c.chunk.Instructions, in)
	c.chunk.Positions = append(c.chunk.Positions, span)
}

// emitLoad materializes src into dst choosing the load instruction that
// matches where src currently lives.
func (c *Compiler) emitLoad(dst bytecode.Address, src operand, jumpNext bool) {
	if src.address == dst {
		utils.Assert(!jumpNext, "no-op load cannot carry a jump")
		return
	}
	switch src.address.Kind {
	case bytecode.MEM_CONSTANT:
		c.emit(bytecode.NewLoadConstant(dst, src.address, jumpNext), src.span)
	case bytecode.MEM_ENCODED:
		c.emit(bytecode.NewLoadEncoded(dst, src.address, jumpNext), src.span)
	default:
		c.emit(bytecode.NewMove(dst, src.address, jumpNext), src.span)
	}
}

// materializeTemp forces the operand into a freshly allocated register and
// returns its index; a fresh scratch register is used as-is.
func (c *Compiler) materializeTemp(o operand) uint16 {
	if c.isFreshTemp(o) {
		return o.address.Index
	}
	t := o.address.Type
	if o.address.Kind == bytecode.MEM_CONSTANT || o.address.Kind == bytecode.MEM_ENCODED {
		t = bytecode.OperandTypeOf(o.typ)
	}
	register := c.allocRegister(t)
	c.emitLoad(bytecode.Register(register, t), o, false)
	return register
}

// emitJumpPlaceholder emits a forward jump whose offset is patched later.
func (c *Compiler) emitJumpPlaceholder(span lang.Span) int {
	index := len(c.chunk.Instructions)
	c.emit(bytecode.NewJump(0, true), span)
	return index
}

// patchJump points the placeholder at the current end of the instruction
// vector.
func (c *Compiler) patchJump(index int) {
	offset := len(c.chunk.Instructions) - index - 1
	utils.Assert(offset >= 0, "backward patch of a forward jump")
	c.chunk.Instructions[index].B = uint16(offset)
}

// -----------------------------------------------------------------------------
// Statements

// parseStatement compiles one statement. The returned operand is only
// meaningful when the bool result is true: an expression statement without a
// trailing semicolon, whose value is the surrounding block's value.
func (c *Compiler) parseStatement() (operand, bool, error) {
	switch c.stream.current.Kind {
	case lang.KW_LET:
		return noneOperand(c.stream.current.Span), false, c.parseLet()
	case lang.KW_FN:
		return noneOperand(c.stream.current.Span), false, c.parseFunctionDeclaration()
	case lang.KW_WHILE:
		return noneOperand(c.stream.current.Span), false, c.parseWhile()
	case lang.KW_LOOP:
		return noneOperand(c.stream.current.Span), false, c.parseLoop()
	case lang.KW_BREAK:
		return noneOperand(c.stream.current.Span), false, c.parseBreak()
	case lang.KW_RETURN:
		return noneOperand(c.stream.current.Span), false, c.parseReturn()
	case lang.TK_SEMICOLON:
		return noneOperand(c.stream.current.Span), false, c.advance()
	case lang.KW_STRUCT, lang.KW_USE, lang.KW_MOD, lang.KW_PUB, lang.KW_CONST,
		lang.KW_ASYNC, lang.KW_MAP, lang.KW_CELL:
		return operand{}, false, errorAt(ExpectedToken, c.stream.current.Span,
			"%v declarations are not supported", c.stream.current.Kind)
	}

	expression, err := c.parseExpression(PREC_NONE)
	if err != nil {
		return operand{}, false, err
	}
	terminated, err := c.match(lang.TK_SEMICOLON)
	if err != nil {
		return operand{}, false, err
	}
	return expression, !terminated, nil
}

func (c *Compiler) parseLet() error {
	letSpan := c.stream.current.Span
	if err := c.advance(); err != nil {
		return err
	}
	isMutable, err := c.match(lang.KW_MUT)
	if err != nil {
		return err
	}
	nameSpan := c.stream.current.Span
	if err := c.expect(lang.TK_IDENT); err != nil {
		return err
	}
	name := c.text(nameSpan)

	var declared *lang.Type
	if annotated, err := c.match(lang.TK_COLON); err != nil {
		return err
	} else if annotated {
		declared, err = c.parseType()
		if err != nil {
			return err
		}
	}
	if err := c.expect(lang.TK_ASSIGN); err != nil {
		return err
	}
	init, err := c.parseExpression(PREC_NONE)
	if err != nil {
		return err
	}
	if init.typ.IsNone() {
		return errorAt(ExpectedExpression, init.span, "the initializer produces no value")
	}
	if declared != nil {
		if err := declared.Check(init.typ); err != nil {
			return &Error{
				Kind: CannotResolveVariableType,
				Span: c.spanFrom(letSpan),
				Details: []Snippet{
					{Message: "declared as " + declared.String(), Span: nameSpan},
					{Message: "initialized with " + init.typ.String(), Span: init.span},
				},
			}
		}
	}
	varType := init.typ
	if declared != nil {
		varType = declared
	}

	t := bytecode.OperandTypeOf(varType)
	var address bytecode.Address
	if !isMutable && c.isFreshTemp(init) {
		// Copy elision: the local takes over the initializer's register.
		address = init.address
	} else {
		register := c.allocRegister(t)
		address = bytecode.Register(register, t)
		c.emitLoad(address, init, false)
	}
	c.addLocal(name, address, varType, isMutable)
	if _, err := c.match(lang.TK_SEMICOLON); err != nil {
		return err
	}
	return nil
}

func (c *Compiler) parseFunctionDeclaration() error {
	fnSpan := c.stream.current.Span
	if err := c.advance(); err != nil {
		return err
	}
	nameSpan := c.stream.current.Span
	if err := c.expect(lang.TK_IDENT); err != nil {
		return err
	}
	name := c.text(nameSpan)

	child := newCompiler(c.stream, c.source, name, c)
	if err := c.expect(lang.TK_LPAREN); err != nil {
		return err
	}
	var parameterTypes []*lang.Type
	for !c.check(lang.TK_RPAREN) {
		parameterSpan := c.stream.current.Span
		if err := c.expect(lang.TK_IDENT); err != nil {
			return err
		}
		if err := c.expect(lang.TK_COLON); err != nil {
			return err
		}
		parameterType, err := c.parseType()
		if err != nil {
			return err
		}
		parameterTypes = append(parameterTypes, parameterType)
		t := bytecode.OperandTypeOf(parameterType)
		register := child.allocRegister(t)
		child.addLocal(c.text(parameterSpan), bytecode.Register(register, t), parameterType, false)
		if more, err := c.match(lang.TK_COMMA); err != nil {
			return err
		} else if !more {
			break
		}
	}
	if err := c.expect(lang.TK_RPAREN); err != nil {
		return err
	}
	returnType := lang.TNone
	if arrow, err := c.match(lang.TK_ARROW); err != nil {
		return err
	} else if arrow {
		returnType, err = c.parseType()
		if err != nil {
			return err
		}
	}

	functionType := lang.FunctionOf(parameterTypes, returnType)
	child.returnType = returnType
	child.functionName = name
	child.selfType = functionType
	// The flat-table slot is reserved before the body compiles so recursive
	// references resolve.
	prototypeIndex := c.reservePrototype()
	child.chunk.PrototypeIndex = prototypeIndex
	child.chunk.Type = functionType.Func

	if err := child.parseFunctionBody(); err != nil {
		return err
	}
	c.root.prototypes[prototypeIndex] = child.chunk

	register := c.allocRegister(bytecode.TYPE_FUNCTION)
	address := bytecode.Register(register, bytecode.TYPE_FUNCTION)
	c.emit(bytecode.NewLoadFunction(address, prototypeIndex), c.spanFrom(fnSpan))
	local := c.addLocal(name, address, functionType, false)
	c.locals[local].protoIndex = int(prototypeIndex)
	return nil
}

// parseFunctionBody compiles { statements } into the child compiler's chunk
// and seals it with a return.
func (c *Compiler) parseFunctionBody() error {
	if err := c.expect(lang.TK_LBRACE); err != nil {
		return err
	}
	last := noneOperand(c.stream.current.Span)
	lastValid := false
	for !c.check(lang.TK_RBRACE) && !c.check(lang.TK_EOF) {
		op, isExpression, err := c.parseStatement()
		if err != nil {
			return err
		}
		last, lastValid = op, isExpression
	}
	if err := c.expect(lang.TK_RBRACE); err != nil {
		return err
	}
	closing := c.stream.previous.Span

	if lastValid && !last.typ.IsNone() {
		if err := c.returnType.Check(last.typ); err != nil {
			return &Error{
				Kind: ReturnTypeConflict,
				Span: last.span,
				Details: []Snippet{
					{Message: "declared return type is " + c.returnType.String(), Span: closing},
					{Message: "this produces " + last.typ.String(), Span: last.span},
				},
			}
		}
		c.emit(bytecode.NewReturn(true, last.address), closing)
	} else {
		if !c.returnType.IsNone() && !c.sawReturn {
			return errorAt(ReturnTypeConflict, closing,
				"the function must return a value of type %v", c.returnType)
		}
		c.emit(bytecode.NewReturn(false, bytecode.Address{Type: bytecode.TYPE_NONE}), closing)
	}
	return c.finishChunk()
}

func (c *Compiler) parseReturn() error {
	returnSpan := c.stream.current.Span
	if err := c.advance(); err != nil {
		return err
	}
	if c.parent == nil {
		return errorAt(UnexpectedReturn, returnSpan, "return outside of a function")
	}
	c.sawReturn = true

	if c.check(lang.TK_SEMICOLON) || c.check(lang.TK_RBRACE) || c.check(lang.TK_EOF) {
		if !c.returnType.IsNone() {
			return errorAt(ReturnTypeConflict, returnSpan,
				"the function must return a value of type %v", c.returnType)
		}
		c.emit(bytecode.NewReturn(false, bytecode.Address{Type: bytecode.TYPE_NONE}), returnSpan)
	} else {
		value, err := c.parseExpression(PREC_NONE)
		if err != nil {
			return err
		}
		if err := c.returnType.Check(value.typ); err != nil {
			return &Error{
				Kind: ReturnTypeConflict,
				Span: value.span,
				Details: []Snippet{
					{Message: "declared return type is " + c.returnType.String(), Span: returnSpan},
					{Message: "this produces " + value.typ.String(), Span: value.span},
				},
			}
		}
		c.emit(bytecode.NewReturn(true, value.address), c.spanFrom(returnSpan))
	}
	if _, err := c.match(lang.TK_SEMICOLON); err != nil {
		return err
	}
	return nil
}

func (c *Compiler) parseWhile() error {
	if err := c.advance(); err != nil {
		return err
	}
	conditionStart := len(c.chunk.Instructions)
	conditionSpan, err := c.compileCondition()
	if err != nil {
		return err
	}
	exitJump := c.emitJumpPlaceholder(conditionSpan)

	loop := &loopContext{}
	c.loops = append(c.loops, loop)
	mark := c.beginScope()
	if _, err := c.parseBraceBlock(); err != nil {
		return err
	}
	c.endScope(mark)

	backward := len(c.chunk.Instructions)
	c.emit(bytecode.NewJump(uint16(backward+1-conditionStart), false), conditionSpan)
	c.patchJump(exitJump)
	for _, breakJump := range loop.breakJumps {
		c.patchJump(breakJump)
	}
	c.loops = c.loops[:len(c.loops)-1]
	return nil
}

func (c *Compiler) parseLoop() error {
	loopSpan := c.stream.current.Span
	if err := c.advance(); err != nil {
		return err
	}
	start := len(c.chunk.Instructions)

	loop := &loopContext{}
	c.loops = append(c.loops, loop)
	mark := c.beginScope()
	if _, err := c.parseBraceBlock(); err != nil {
		return err
	}
	c.endScope(mark)

	backward := len(c.chunk.Instructions)
	c.emit(bytecode.NewJump(uint16(backward+1-start), false), loopSpan)
	for _, breakJump := range loop.breakJumps {
		c.patchJump(breakJump)
	}
	c.loops = c.loops[:len(c.loops)-1]
	return nil
}

func (c *Compiler) parseBreak() error {
	breakSpan := c.stream.current.Span
	if err := c.advance(); err != nil {
		return err
	}
	if len(c.loops) == 0 {
		return errorAt(ExpectedToken, breakSpan, "break outside of a loop")
	}
	loop := c.loops[len(c.loops)-1]
	loop.breakJumps = append(loop.breakJumps, c.emitJumpPlaceholder(breakSpan))
	if _, err := c.match(lang.TK_SEMICOLON); err != nil {
		return err
	}
	return nil
}

// parseBraceBlock compiles { statements } and returns the value of the final
// expression statement, or a none operand.
func (c *Compiler) parseBraceBlock() (operand, error) {
	openSpan := c.stream.current.Span
	if err := c.expect(lang.TK_LBRACE); err != nil {
		return operand{}, err
	}
	last := noneOperand(openSpan)
	lastValid := false
	for !c.check(lang.TK_RBRACE) && !c.check(lang.TK_EOF) {
		op, isExpression, err := c.parseStatement()
		if err != nil {
			return operand{}, err
		}
		last, lastValid = op, isExpression
	}
	if err := c.expect(lang.TK_RBRACE); err != nil {
		return operand{}, err
	}
	if !lastValid {
		return noneOperand(c.spanFrom(openSpan)), nil
	}
	last.span = c.spanFrom(openSpan)
	return last, nil
}

// -----------------------------------------------------------------------------
// Conditions
//
// compileCondition compiles a boolean expression for if and while. The
// emitted tail skips the instruction that follows it when the condition
// holds, so the caller places the branch-away jump immediately after. A bare
// comparison fuses: its materialization idiom is stripped back to the
// comparison instruction with an inverted comparator.

func (c *Compiler) compileCondition() (lang.Span, error) {
	condition, err := c.parseExpression(PREC_NONE)
	if err != nil {
		return lang.Span{}, err
	}
	if !condition.typ.IsBool() {
		return lang.Span{}, errorAt(ExpectedBoolean, condition.span,
			"the condition has type %v", condition.typ)
	}

	instructions := c.chunk.Instructions
	n := len(instructions)
	if condition.fromComparison && n >= 4 &&
		instructions[n-4].Operation.IsComparison() &&
		instructions[n-3].Operation == bytecode.OP_JUMP &&
		instructions[n-2].Operation == bytecode.OP_LOAD_ENCODED &&
		instructions[n-1].Operation == bytecode.OP_LOAD_ENCODED {
		// Drop the jump and the two loads, keep the comparison, and flip
		// the comparator: the comparison now skips on success.
		c.chunk.Instructions = instructions[:n-3]
		c.chunk.Positions = c.chunk.Positions[:n-3]
		c.chunk.Instructions[n-4].D = !c.chunk.Instructions[n-4].D
		// The materialized boolean register is no longer produced.
		c.next[bytecode.TYPE_BOOLEAN]--
		return condition.span, nil
	}

	c.emit(bytecode.NewTest(condition.address, true), condition.span)
	return condition.span, nil
}

// -----------------------------------------------------------------------------
// Type annotations

func (c *Compiler) parseType() (*lang.Type, error) {
	span := c.stream.current.Span
	switch c.stream.current.Kind {
	case lang.KW_BOOL:
		return lang.TBool, c.advance()
	case lang.KW_BYTE:
		return lang.TByte, c.advance()
	case lang.KW_CHAR:
		return lang.TChar, c.advance()
	case lang.KW_FLOAT:
		return lang.TFloat, c.advance()
	case lang.KW_INT:
		return lang.TInt, c.advance()
	case lang.KW_STR:
		return lang.TString, c.advance()
	case lang.KW_ANY:
		return lang.TAny, c.advance()
	case lang.TK_LBRACKET:
		if err := c.advance(); err != nil {
			return nil, err
		}
		element, err := c.parseType()
		if err != nil {
			return nil, err
		}
		length := -1
		if sized, err := c.match(lang.TK_SEMICOLON); err != nil {
			return nil, err
		} else if sized {
			lengthSpan := c.stream.current.Span
			if err := c.expect(lang.LIT_INT); err != nil {
				return nil, err
			}
			length = parseListLength(c.text(lengthSpan))
		}
		if err := c.expect(lang.TK_RBRACKET); err != nil {
			return nil, err
		}
		return lang.ListOf(element, length), nil
	case lang.KW_FN:
		if err := c.advance(); err != nil {
			return nil, err
		}
		if err := c.expect(lang.TK_LPAREN); err != nil {
			return nil, err
		}
		var parameters []*lang.Type
		for !c.check(lang.TK_RPAREN) {
			parameter, err := c.parseType()
			if err != nil {
				return nil, errorAt(ExpectedFunctionType, c.spanFrom(span),
					"malformed function type")
			}
			parameters = append(parameters, parameter)
			if more, err := c.match(lang.TK_COMMA); err != nil {
				return nil, err
			} else if !more {
				break
			}
		}
		if err := c.expect(lang.TK_RPAREN); err != nil {
			return nil, err
		}
		returnType := lang.TNone
		if arrow, err := c.match(lang.TK_ARROW); err != nil {
			return nil, err
		} else if arrow {
			var err error
			returnType, err = c.parseType()
			if err != nil {
				return nil, err
			}
		}
		return lang.FunctionOf(parameters, returnType), nil
	}
	return nil, errorAt(ExpectedTokenMultiple, span,
		"expected a type, found %v", c.stream.current.Kind)
}

func parseListLength(text string) int {
	length := 0
	for _, digit := range text {
		length = length*10 + int(digit-'0')
	}
	return length
}
