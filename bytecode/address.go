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
	"fmt"

	"dust/lang"
	"dust/utils"
)

// -----------------------------------------------------------------------------
// Operand types
//
// OperandType is the compact per-operand type tag carried by instructions.
// Lists carry their element type at the Type level; at the instruction level
// the tag alone is enough because register banks are homogeneous.

type OperandType byte

const (
	TYPE_NONE OperandType = iota
	TYPE_BOOLEAN
	TYPE_BYTE
	TYPE_CHARACTER
	TYPE_FLOAT
	TYPE_INTEGER
	TYPE_STRING
	TYPE_LIST
	TYPE_FUNCTION

	operandTypeCount
)

var operandTypeNames = [operandTypeCount]string{
	TYPE_NONE:      "NONE",
	TYPE_BOOLEAN:   "BOOL",
	TYPE_BYTE:      "BYTE",
	TYPE_CHARACTER: "CHAR",
	TYPE_FLOAT:     "FLOAT",
	TYPE_INTEGER:   "INT",
	TYPE_STRING:    "STR",
	TYPE_LIST:      "LIST",
	TYPE_FUNCTION:  "FN",
}

func (t OperandType) Name() string {
	if t < operandTypeCount {
		return operandTypeNames[t]
	}
	return fmt.Sprintf("TYPE(%d)", byte(t))
}

func (t OperandType) String() string {
	return t.Name()
}

// OperandTypeOf maps a language type to its instruction-level tag.
func OperandTypeOf(t *lang.Type) OperandType {
	switch t.Kind {
	case lang.TypeNone:
		return TYPE_NONE
	case lang.TypeBool:
		return TYPE_BOOLEAN
	case lang.TypeByte:
		return TYPE_BYTE
	case lang.TypeChar:
		return TYPE_CHARACTER
	case lang.TypeFloat:
		return TYPE_FLOAT
	case lang.TypeInt:
		return TYPE_INTEGER
	case lang.TypeString:
		return TYPE_STRING
	case lang.TypeList:
		return TYPE_LIST
	case lang.TypeFunction:
		return TYPE_FUNCTION
	}
	utils.ShouldNotReachHere()
	return TYPE_NONE
}

// -----------------------------------------------------------------------------
// Addresses

// MemoryKind names where an operand lives.
type MemoryKind byte

const (
	// MEM_REGISTER indexes the per-type register window of the frame.
	MEM_REGISTER MemoryKind = iota
	// MEM_STACK indexes the per-type bank directly, outliving the window.
	MEM_STACK
	// MEM_CONSTANT indexes the chunk's constant pool.
	MEM_CONSTANT
	// MEM_ENCODED stores a small immediate directly in the index field.
	MEM_ENCODED
	// MEM_CELL indexes a heap cell, reserved for captured registers.
	MEM_CELL

	memoryKindCount
)

var memoryKindNames = [memoryKindCount]string{
	MEM_REGISTER: "R",
	MEM_STACK:    "S",
	MEM_CONSTANT: "C",
	MEM_ENCODED:  "E",
	MEM_CELL:     "L",
}

func (k MemoryKind) String() string {
	if k < memoryKindCount {
		return memoryKindNames[k]
	}
	return fmt.Sprintf("MEM(%d)", byte(k))
}

// Address is the compile-time-resolved triple naming where a value lives.
// It packs into an instruction operand as a 16-bit index plus one descriptor
// byte holding the memory kind and type tag.
type Address struct {
	Kind  MemoryKind
	Index uint16
	Type  OperandType
}

func Register(index uint16, t OperandType) Address {
	return Address{Kind: MEM_REGISTER, Index: index, Type: t}
}

func Stack(index uint16, t OperandType) Address {
	return Address{Kind: MEM_STACK, Index: index, Type: t}
}

func Constant(index uint16, t OperandType) Address {
	return Address{Kind: MEM_CONSTANT, Index: index, Type: t}
}

func EncodedBoolean(value bool) Address {
	index := uint16(0)
	if value {
		index = 1
	}
	return Address{Kind: MEM_ENCODED, Index: index, Type: TYPE_BOOLEAN}
}

func EncodedByte(value byte) Address {
	return Address{Kind: MEM_ENCODED, Index: uint16(value), Type: TYPE_BYTE}
}

func (a Address) IsConstant() bool {
	return a.Kind == MEM_CONSTANT
}

func (a Address) IsRegister() bool {
	return a.Kind == MEM_REGISTER || a.Kind == MEM_STACK
}

// descriptor packs the memory kind and type tag into the single byte stored
// in the instruction operand slot.
func (a Address) descriptor() byte {
	return byte(a.Kind)<<4 | byte(a.Type)
}

func addressOf(descriptor byte, index uint16) Address {
	return Address{
		Kind:  MemoryKind(descriptor >> 4),
		Index: index,
		Type:  OperandType(descriptor & 0x0F),
	}
}

func (a Address) String() string {
	if a.Kind == MEM_ENCODED {
		switch a.Type {
		case TYPE_BOOLEAN:
			return fmt.Sprintf("E_%t", a.Index != 0)
		case TYPE_BYTE:
			return fmt.Sprintf("E_0x%02X", a.Index)
		}
	}
	return fmt.Sprintf("%v_%v_%d", a.Kind, a.Type, a.Index)
}
