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
	"testing"

	"dust/bytecode"
)

func compileOk(t *testing.T, source string) *bytecode.Chunk {
	t.Helper()
	chunk, err := CompileMain("test", []byte(source))
	if err != nil {
		t.Fatalf("compile %q: %v", source, err)
	}
	return chunk
}

func expectOperations(t *testing.T, chunk *bytecode.Chunk, operations ...bytecode.Operation) {
	t.Helper()
	if len(chunk.Instructions) != len(operations) {
		t.Fatalf("got %d instructions, want %d:\n%v", len(chunk.Instructions), len(operations), chunk.Instructions)
	}
	for i, operation := range operations {
		if chunk.Instructions[i].Operation != operation {
			t.Fatalf("instruction %d is %v, want %v:\n%v",
				i, chunk.Instructions[i].Operation, operation, chunk.Instructions)
		}
	}
}

func TestArithmeticConstants(t *testing.T) {
	chunk := compileOk(t, "1 + 2 * 3")
	expectOperations(t, chunk,
		bytecode.OP_MULTIPLY, bytecode.OP_ADD, bytecode.OP_RETURN)

	multiply := chunk.Instructions[0]
	if multiply.Destination() != bytecode.Register(0, bytecode.TYPE_INTEGER) {
		t.Fatalf("multiply destination is %v", multiply.Destination())
	}
	if !multiply.Left().IsConstant() || !multiply.Right().IsConstant() {
		t.Fatal("multiply must take its operands from the constant pool directly")
	}
	add := chunk.Instructions[1]
	if add.Destination() != bytecode.Register(1, bytecode.TYPE_INTEGER) {
		t.Fatalf("add destination is %v", add.Destination())
	}
	if add.Right() != bytecode.Register(0, bytecode.TYPE_INTEGER) {
		t.Fatalf("add right operand is %v", add.Right())
	}
	if chunk.IntegerMemoryLength != 2 {
		t.Fatalf("integer bank size is %d, want 2", chunk.IntegerMemoryLength)
	}
	if !chunk.Type.ReturnType.IsInt() {
		t.Fatalf("inferred type is %v", chunk.Type)
	}
}

func TestComparisonIdiom(t *testing.T) {
	chunk := compileOk(t, "1 == 1")
	expectOperations(t, chunk,
		bytecode.OP_EQUAL, bytecode.OP_JUMP,
		bytecode.OP_LOAD_ENCODED, bytecode.OP_LOAD_ENCODED, bytecode.OP_RETURN)

	if !chunk.Instructions[0].D {
		t.Fatal("== compiles with comparator true")
	}
	if chunk.Instructions[1].B != 1 || !chunk.Instructions[1].D {
		t.Fatal("the comparison is followed by JUMP +1")
	}
	if !chunk.Instructions[2].D {
		t.Fatal("the false-arm load must skip the true-arm load")
	}
	if chunk.Instructions[3].D {
		t.Fatal("the true-arm load falls through")
	}
}

func TestComparatorSynthesis(t *testing.T) {
	// > and >= come from LessEqual/Less with a flipped comparator, != from
	// Equal the same way.
	cases := map[string]struct {
		operation  bytecode.Operation
		comparator bool
	}{
		"1 < 2":  {bytecode.OP_LESS, true},
		"1 <= 2": {bytecode.OP_LESS_EQUAL, true},
		"1 > 2":  {bytecode.OP_LESS_EQUAL, false},
		"1 >= 2": {bytecode.OP_LESS, false},
		"1 != 2": {bytecode.OP_EQUAL, false},
	}
	for source, expected := range cases {
		chunk := compileOk(t, source)
		comparison := chunk.Instructions[0]
		if comparison.Operation != expected.operation || comparison.D != expected.comparator {
			t.Fatalf("%q compiles to %v comparator=%t, want %v comparator=%t",
				source, comparison.Operation, comparison.D, expected.operation, expected.comparator)
		}
	}
}

func TestShortCircuitShape(t *testing.T) {
	chunk := compileOk(t, "true && false || true")
	expectOperations(t, chunk,
		bytecode.OP_LOAD_ENCODED, bytecode.OP_TEST, bytecode.OP_JUMP,
		bytecode.OP_LOAD_ENCODED, bytecode.OP_TEST, bytecode.OP_JUMP,
		bytecode.OP_LOAD_ENCODED, bytecode.OP_RETURN)

	// && skips its right operand on false, || on true.
	if !chunk.Instructions[1].D {
		t.Fatal("&& must test with skip-if true")
	}
	if chunk.Instructions[4].D {
		t.Fatal("|| must test with skip-if false")
	}
	// All three loads funnel into one boolean register.
	dst := chunk.Instructions[0].Destination()
	if chunk.Instructions[3].Destination() != dst || chunk.Instructions[6].Destination() != dst {
		t.Fatal("short-circuit operands must share one result register")
	}
	if chunk.BooleanMemoryLength != 1 {
		t.Fatalf("boolean bank size is %d, want 1", chunk.BooleanMemoryLength)
	}
}

func TestIfElseShape(t *testing.T) {
	chunk := compileOk(t, "if 1 == 1 { 42 } else { 0 }")
	expectOperations(t, chunk,
		bytecode.OP_EQUAL, bytecode.OP_JUMP,
		bytecode.OP_LOAD_CONSTANT, bytecode.OP_JUMP,
		bytecode.OP_LOAD_CONSTANT, bytecode.OP_RETURN)

	// The fused condition skips the branch jump when it holds.
	if chunk.Instructions[0].D {
		t.Fatal("the fused condition must carry an inverted comparator")
	}
	if chunk.Instructions[1].B != 2 {
		t.Fatalf("jump to else is +%d, want +2", chunk.Instructions[1].B)
	}
	if chunk.Instructions[3].B != 1 {
		t.Fatalf("jump over else is +%d, want +1", chunk.Instructions[3].B)
	}
	// Both arms store into the same register.
	if chunk.Instructions[2].Destination() != chunk.Instructions[4].Destination() {
		t.Fatal("the branches target different registers")
	}
}

func TestMutableAccumulator(t *testing.T) {
	chunk := compileOk(t, "let mut a: int = 0; a += 1; a += 2; a")
	expectOperations(t, chunk,
		bytecode.OP_LOAD_CONSTANT, bytecode.OP_ADD, bytecode.OP_ADD, bytecode.OP_RETURN)

	register := bytecode.Register(0, bytecode.TYPE_INTEGER)
	for _, i := range []int{1, 2} {
		add := chunk.Instructions[i]
		if add.Destination() != register || add.Left() != register {
			t.Fatalf("compound assignment %d does not update in place: %v", i, add)
		}
	}
	if chunk.IntegerMemoryLength != 1 {
		t.Fatalf("integer bank size is %d, want 1", chunk.IntegerMemoryLength)
	}
}

func TestCopyElision(t *testing.T) {
	// An immutable local takes over the register of the temporary that
	// produced its initializer.
	chunk := compileOk(t, "let a = 1 + 2; a")
	expectOperations(t, chunk, bytecode.OP_ADD, bytecode.OP_RETURN)
	if chunk.IntegerMemoryLength != 1 {
		t.Fatalf("integer bank size is %d, want 1", chunk.IntegerMemoryLength)
	}
}

func TestFunctionPrototype(t *testing.T) {
	chunk := compileOk(t, "fn add(a: int, b: int) -> int { a + b } add(2, 3)")
	// The flat table holds the main chunk at 0 and the function after it.
	if len(chunk.Prototypes) != 2 || chunk.Prototypes[0] != chunk {
		t.Fatalf("prototype table is %v", chunk.Prototypes)
	}
	expectOperations(t, chunk,
		bytecode.OP_LOAD_FUNCTION, bytecode.OP_CALL, bytecode.OP_RETURN)
	if chunk.Instructions[0].B != 1 {
		t.Fatalf("LOAD_FUNCTION references prototype %d, want 1", chunk.Instructions[0].B)
	}

	prototype := chunk.Prototypes[1]
	if prototype.PrototypeIndex != 1 {
		t.Fatalf("prototype index is %d", prototype.PrototypeIndex)
	}
	if prototype.Name != "add" {
		t.Fatalf("prototype name is %q", prototype.Name)
	}
	expectOperations(t, prototype, bytecode.OP_ADD, bytecode.OP_RETURN)
	add := prototype.Instructions[0]
	if add.Left() != bytecode.Register(0, bytecode.TYPE_INTEGER) ||
		add.Right() != bytecode.Register(1, bytecode.TYPE_INTEGER) {
		t.Fatal("parameters must occupy the head of the integer bank")
	}
	if len(chunk.Arguments) != 1 || len(chunk.Arguments[0]) != 2 {
		t.Fatalf("argument lists are %v", chunk.Arguments)
	}
}

func TestWhileShape(t *testing.T) {
	chunk := compileOk(t, "let mut i = 0; while i < 5 { i += 1 } i")
	expectOperations(t, chunk,
		bytecode.OP_LOAD_CONSTANT, bytecode.OP_LESS, bytecode.OP_JUMP,
		bytecode.OP_ADD, bytecode.OP_JUMP, bytecode.OP_RETURN)

	backward := chunk.Instructions[4]
	if backward.D {
		t.Fatal("the loop closes with a backward jump")
	}
	if backward.B != 4 {
		t.Fatalf("backward jump is -%d, want -4", backward.B)
	}
	exit := chunk.Instructions[2]
	if !exit.D || exit.B != 2 {
		t.Fatalf("exit jump is %v", exit)
	}
}

func TestNegativeLiteralFolding(t *testing.T) {
	chunk := compileOk(t, "-5")
	expectOperations(t, chunk, bytecode.OP_RETURN)
	value, ok := chunk.Constants.GetInteger(chunk.Instructions[0].Left().Index)
	if !ok || value != -5 {
		t.Fatalf("folded constant is %d, %t", value, ok)
	}
}

func TestCompileFlatTable(t *testing.T) {
	prototypes, err := Compile([]byte("fn one() -> int { 1 } one()"))
	if err != nil {
		t.Fatal(err)
	}
	if len(prototypes) != 2 {
		t.Fatalf("got %d prototypes, want 2", len(prototypes))
	}
	if prototypes[0].Name != "main" || prototypes[1].Name != "one" {
		t.Fatalf("flat table order is %v, %v", prototypes[0].Name, prototypes[1].Name)
	}
}

func TestChunkInvariants(t *testing.T) {
	sources := []string{
		"1 + 2 * 3",
		"if 1 == 1 { 42 } else { 0 }",
		"true && false || true",
		"let mut a: int = 0; a += 1; a += 2; a",
		`"foo" + 'q'`,
		"fn add(a: int, b: int) -> int { a + b } add(2, 3)",
		"let mut i = 0; while i < 5 { i += 1 } i",
		"loop { break; }",
		"[1, 2, 3]",
		"fn fib(n: int) -> int { if n < 2 { n } else { fib(n - 1) + fib(n - 2) } } fib(10)",
	}
	for _, source := range sources {
		chunk := compileOk(t, source)
		if err := chunk.Validate(); err != nil {
			t.Fatalf("compile %q: %v", source, err)
		}
		if len(chunk.Instructions) != len(chunk.Positions) {
			t.Fatalf("compile %q: positions out of sync", source)
		}
	}
}

func expectCompileError(t *testing.T, source string, kind ErrorKind) {
	t.Helper()
	_, err := CompileMain("test", []byte(source))
	if err == nil {
		t.Fatalf("compile %q: expected an error", source)
	}
	compileError, ok := err.(*Error)
	if !ok {
		t.Fatalf("compile %q: unexpected error type %T: %v", source, err, err)
	}
	if compileError.Kind != kind {
		t.Fatalf("compile %q: error is %q, want kind %d", source, compileError.Error(), kind)
	}
}

func TestCompileErrors(t *testing.T) {
	expectCompileError(t, "1 + true", CannotAddArguments)
	expectCompileError(t, "true + 1", CannotAddType)
	expectCompileError(t, "true - false", CannotSubtractType)
	expectCompileError(t, "1 - 2.0", CannotSubtractArguments)
	expectCompileError(t, "1 * true", CannotMultiplyArguments)
	expectCompileError(t, "1 / true", CannotDivideArguments)
	expectCompileError(t, "1 % true", CannotModuloArguments)
	expectCompileError(t, "let a: int = 1; a = 2", CannotMutateImmutableVariable)
	expectCompileError(t, "a", UndeclaredVariable)
	expectCompileError(t, "if true { let x = 1; } x", VariableOutOfScope)
	expectCompileError(t, "1 < 2 < 3", CannotChainComparison)
	expectCompileError(t, "1 == true", CannotCompareArguments)
	expectCompileError(t, "true < false", CannotCompareArguments)
	expectCompileError(t, "if 1 { 2 } else { 3 }", ExpectedBoolean)
	expectCompileError(t, "if 1 == 1 { 42 }", IfMissingElse)
	expectCompileError(t, "if true { 1 } else { 2.0 }", IfElseBranchMismatch)
	expectCompileError(t, "let a: int = true", CannotResolveVariableType)
	expectCompileError(t, "return 1", UnexpectedReturn)
	expectCompileError(t, "struct Point { x: int }", ExpectedToken)
	expectCompileError(t, "async { 1 }", ExpectedToken)
	expectCompileError(t, "[1, true]", ListItemTypeConflict)
	expectCompileError(t, "1()", ExpectedFunction)
	expectCompileError(t, "fn f(a: int) -> int { a } f(true)", ExpectedFunctionType)
	expectCompileError(t, "fn f(a: int) -> int { a } f()", ExpectedFunctionType)
	expectCompileError(t, "fn f() -> int { }", ReturnTypeConflict)
	expectCompileError(t, "fn f() -> int { return 2.0 }", ReturnTypeConflict)
	expectCompileError(t, "break", ExpectedToken)
	expectCompileError(t, "let a = ;", ExpectedExpression)
	expectCompileError(t, "-true", CannotNegateType)
	expectCompileError(t, "!1", ExpectedBoolean)
	expectCompileError(t, "let a = $", Lex)
}
