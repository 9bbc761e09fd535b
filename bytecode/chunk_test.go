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
package bytecode

import (
	"testing"

	"dust/lang"
)

func validChunk() *Chunk {
	pool := NewConstantPool()
	one := pool.AddInteger(1)
	chunk := &Chunk{
		Name:      "test",
		Type:      &lang.FunctionType{ReturnType: lang.TInt},
		Constants: pool,
		Instructions: []Instruction{
			NewLoadConstant(Register(0, TYPE_INTEGER), Constant(one, TYPE_INTEGER), false),
			NewReturn(true, Register(0, TYPE_INTEGER)),
		},
		Positions:           []lang.Span{lang.NewSpan(0, 1), lang.NewSpan(1, 1)},
		IntegerMemoryLength: 1,
	}
	return chunk
}

func TestValidateAccepts(t *testing.T) {
	if err := validChunk().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestValidatePositionsOutOfSync(t *testing.T) {
	chunk := validChunk()
	chunk.Positions = chunk.Positions[:1]
	if chunk.Validate() == nil {
		t.Fatal("mismatched position vector accepted")
	}
}

func TestValidateMissingReturn(t *testing.T) {
	chunk := validChunk()
	chunk.Instructions = chunk.Instructions[:1]
	chunk.Positions = chunk.Positions[:1]
	if chunk.Validate() == nil {
		t.Fatal("chunk without a final RETURN accepted")
	}
}

func TestValidateRegisterBounds(t *testing.T) {
	chunk := validChunk()
	chunk.Instructions[0] = NewLoadConstant(
		Register(5, TYPE_INTEGER), Constant(0, TYPE_INTEGER), false)
	if chunk.Validate() == nil {
		t.Fatal("out-of-bank register accepted")
	}
}

func TestValidateConstantType(t *testing.T) {
	chunk := validChunk()
	chunk.Instructions[0] = NewLoadConstant(
		Register(0, TYPE_INTEGER), Constant(0, TYPE_FLOAT), false)
	if chunk.Validate() == nil {
		t.Fatal("constant referenced with the wrong type accepted")
	}
}

func TestValidateJumpBounds(t *testing.T) {
	chunk := validChunk()
	chunk.Instructions = []Instruction{
		NewJump(5, true),
		NewReturn(false, Address{Type: TYPE_NONE}),
	}
	if chunk.Validate() == nil {
		t.Fatal("jump past the end accepted")
	}
	// A comparison must have an instruction to skip.
	chunk = validChunk()
	chunk.Instructions = []Instruction{
		chunk.Instructions[0],
		NewEqual(true, Register(0, TYPE_INTEGER), Register(0, TYPE_INTEGER)),
	}
	if chunk.Validate() == nil {
		t.Fatal("comparison in final slot accepted")
	}
}
