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

import "fmt"

// -----------------------------------------------------------------------------
// Instructions
//
// An instruction is a fixed-width record: the operation byte, three 16-bit
// index fields, a flag, and one descriptor byte per operand packing its
// memory kind and type tag. Field roles per operation:
//
//	MOVE           A=dst      B=src                 D=jump next
//	CLOSE          A=addr
//	LOAD_ENCODED   A=dst      B=immediate           D=jump next
//	LOAD_CONSTANT  A=dst      B=pool index          D=jump next
//	LOAD_LIST      A=dst      B=first  C=last       D=jump next
//	LOAD_FUNCTION  A=dst      B=prototype index
//	ADD..MODULO    A=dst      B=lhs    C=rhs
//	EQUAL..LESS_EQUAL         B=lhs    C=rhs        D=comparator
//	NEGATE, NOT    A=dst      B=src
//	TEST                      B=operand             D=skip if
//	TEST_SET       A=dst      B=src                 D=skip if
//	CALL           A=dst      B=function C=arg list
//	CALL_NATIVE    A=dst      B=native id C=arg list
//	JUMP                      B=offset              D=is positive
//	RETURN                    B=value               D=returns value
//
// The comparison operations execute the following instruction when their
// result equals the comparator and skip it otherwise. A jump adds its offset
// on top of the regular increment, so JUMP 1 skips exactly one instruction.
type Instruction struct {
	Operation Operation
	A         uint16
	B         uint16
	C         uint16
	D         bool
	ADesc     byte
	BDesc     byte
	CDesc     byte
}

func (in *Instruction) Destination() Address {
	return addressOf(in.ADesc, in.A)
}

func (in *Instruction) Left() Address {
	return addressOf(in.BDesc, in.B)
}

func (in *Instruction) Right() Address {
	return addressOf(in.CDesc, in.C)
}

func (in *Instruction) setDestination(a Address) {
	in.A = a.Index
	in.ADesc = a.descriptor()
}

func (in *Instruction) setLeft(a Address) {
	in.B = a.Index
	in.BDesc = a.descriptor()
}

func (in *Instruction) setRight(a Address) {
	in.C = a.Index
	in.CDesc = a.descriptor()
}

// -----------------------------------------------------------------------------
// Constructors

func NewNoOp() Instruction {
	return Instruction{Operation: OP_NO_OP}
}

func NewMove(dst, src Address, jumpNext bool) Instruction {
	in := Instruction{Operation: OP_MOVE, D: jumpNext}
	in.setDestination(dst)
	in.setLeft(src)
	return in
}

func NewClose(addr Address) Instruction {
	in := Instruction{Operation: OP_CLOSE}
	in.setDestination(addr)
	return in
}

func NewLoadEncoded(dst Address, value Address, jumpNext bool) Instruction {
	in := Instruction{Operation: OP_LOAD_ENCODED, D: jumpNext}
	in.setDestination(dst)
	in.setLeft(value)
	return in
}

func NewLoadConstant(dst Address, constant Address, jumpNext bool) Instruction {
	in := Instruction{Operation: OP_LOAD_CONSTANT, D: jumpNext}
	in.setDestination(dst)
	in.setLeft(constant)
	return in
}

func NewLoadList(dst Address, elemType OperandType, first, last uint16, jumpNext bool) Instruction {
	in := Instruction{Operation: OP_LOAD_LIST, D: jumpNext}
	in.setDestination(dst)
	in.setLeft(Register(first, elemType))
	in.setRight(Register(last, elemType))
	return in
}

func NewLoadFunction(dst Address, prototypeIndex uint16) Instruction {
	in := Instruction{Operation: OP_LOAD_FUNCTION, B: prototypeIndex}
	in.setDestination(dst)
	return in
}

func newBinary(op Operation, dst, lhs, rhs Address) Instruction {
	in := Instruction{Operation: op}
	in.setDestination(dst)
	in.setLeft(lhs)
	in.setRight(rhs)
	return in
}

func NewAdd(dst, lhs, rhs Address) Instruction {
	return newBinary(OP_ADD, dst, lhs, rhs)
}

func NewSubtract(dst, lhs, rhs Address) Instruction {
	return newBinary(OP_SUBTRACT, dst, lhs, rhs)
}

func NewMultiply(dst, lhs, rhs Address) Instruction {
	return newBinary(OP_MULTIPLY, dst, lhs, rhs)
}

func NewDivide(dst, lhs, rhs Address) Instruction {
	return newBinary(OP_DIVIDE, dst, lhs, rhs)
}

func NewModulo(dst, lhs, rhs Address) Instruction {
	return newBinary(OP_MODULO, dst, lhs, rhs)
}

func NewEqual(comparator bool, lhs, rhs Address) Instruction {
	in := Instruction{Operation: OP_EQUAL, D: comparator}
	in.setLeft(lhs)
	in.setRight(rhs)
	return in
}

func NewLess(comparator bool, lhs, rhs Address) Instruction {
	in := Instruction{Operation: OP_LESS, D: comparator}
	in.setLeft(lhs)
	in.setRight(rhs)
	return in
}

func NewLessEqual(comparator bool, lhs, rhs Address) Instruction {
	in := Instruction{Operation: OP_LESS_EQUAL, D: comparator}
	in.setLeft(lhs)
	in.setRight(rhs)
	return in
}

func NewNegate(dst, src Address) Instruction {
	in := Instruction{Operation: OP_NEGATE}
	in.setDestination(dst)
	in.setLeft(src)
	return in
}

func NewNot(dst, src Address) Instruction {
	in := Instruction{Operation: OP_NOT}
	in.setDestination(dst)
	in.setLeft(src)
	return in
}

func NewTest(operand Address, skipIf bool) Instruction {
	in := Instruction{Operation: OP_TEST, D: skipIf}
	in.setLeft(operand)
	return in
}

func NewTestSet(dst, src Address, skipIf bool) Instruction {
	in := Instruction{Operation: OP_TEST_SET, D: skipIf}
	in.setDestination(dst)
	in.setLeft(src)
	return in
}

func NewCall(dst, function Address, argumentList uint16) Instruction {
	in := Instruction{Operation: OP_CALL, C: argumentList}
	in.setDestination(dst)
	in.setLeft(function)
	return in
}

func NewCallNative(dst Address, nativeID uint16, argumentList uint16) Instruction {
	in := Instruction{Operation: OP_CALL_NATIVE, B: nativeID, C: argumentList}
	in.setDestination(dst)
	return in
}

func NewJump(offset uint16, isPositive bool) Instruction {
	return Instruction{Operation: OP_JUMP, B: offset, D: isPositive}
}

func NewReturn(returnsValue bool, value Address) Instruction {
	in := Instruction{Operation: OP_RETURN, D: returnsValue}
	in.setLeft(value)
	return in
}

// -----------------------------------------------------------------------------
// Display

func (in Instruction) String() string {
	switch in.Operation {
	case OP_NO_OP:
		return "NO_OP"
	case OP_MOVE:
		return fmt.Sprintf("MOVE %v %v%s", in.Destination(), in.Left(), jumpSuffix(in.D))
	case OP_CLOSE:
		return fmt.Sprintf("CLOSE %v", in.Destination())
	case OP_LOAD_ENCODED:
		return fmt.Sprintf("LOAD_ENCODED %v %v%s", in.Destination(), in.Left(), jumpSuffix(in.D))
	case OP_LOAD_CONSTANT:
		return fmt.Sprintf("LOAD_CONSTANT %v %v%s", in.Destination(), in.Left(), jumpSuffix(in.D))
	case OP_LOAD_LIST:
		return fmt.Sprintf("LOAD_LIST %v %v..%v%s", in.Destination(), in.Left(), in.Right(), jumpSuffix(in.D))
	case OP_LOAD_FUNCTION:
		return fmt.Sprintf("LOAD_FUNCTION %v P%d", in.Destination(), in.B)
	case OP_ADD, OP_SUBTRACT, OP_MULTIPLY, OP_DIVIDE, OP_MODULO:
		return fmt.Sprintf("%v %v %v %v", in.Operation, in.Destination(), in.Left(), in.Right())
	case OP_EQUAL, OP_LESS, OP_LESS_EQUAL:
		return fmt.Sprintf("%v %t %v %v", in.Operation, in.D, in.Left(), in.Right())
	case OP_NEGATE, OP_NOT:
		return fmt.Sprintf("%v %v %v", in.Operation, in.Destination(), in.Left())
	case OP_TEST:
		return fmt.Sprintf("TEST %v %t", in.Left(), in.D)
	case OP_TEST_SET:
		return fmt.Sprintf("TEST_SET %v %v %t", in.Destination(), in.Left(), in.D)
	case OP_CALL:
		return fmt.Sprintf("CALL %v %v A%d", in.Destination(), in.Left(), in.C)
	case OP_CALL_NATIVE:
		return fmt.Sprintf("CALL_NATIVE %v N%d A%d", in.Destination(), in.B, in.C)
	case OP_JUMP:
		sign := "+"
		if !in.D {
			sign = "-"
		}
		return fmt.Sprintf("JUMP %s%d", sign, in.B)
	case OP_RETURN:
		if in.D {
			return fmt.Sprintf("RETURN %v", in.Left())
		}
		return "RETURN"
	}
	return in.Operation.Name()
}

func jumpSuffix(jumpNext bool) string {
	if jumpNext {
		return " JUMP"
	}
	return ""
}
