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

import "testing"

// The operation values are dispatch-stable: reordering them silently breaks
// every compiled chunk.
func TestOperationValues(t *testing.T) {
	ordered := []Operation{
		OP_NO_OP, OP_MOVE, OP_CLOSE, OP_LOAD_ENCODED, OP_LOAD_CONSTANT,
		OP_LOAD_LIST, OP_LOAD_FUNCTION, OP_ADD, OP_SUBTRACT, OP_MULTIPLY,
		OP_DIVIDE, OP_MODULO, OP_EQUAL, OP_LESS, OP_LESS_EQUAL, OP_NEGATE,
		OP_NOT, OP_TEST, OP_TEST_SET, OP_CALL, OP_CALL_NATIVE, OP_JUMP,
		OP_RETURN,
	}
	for i, operation := range ordered {
		if Operation(i) != operation {
			t.Fatalf("operation %v has value %d, want %d", operation, operation, i)
		}
	}
	if int(operationCount) != len(ordered) {
		t.Fatalf("operation count is %d, want %d", operationCount, len(ordered))
	}
}

func TestOperandDescriptorRoundTrip(t *testing.T) {
	addresses := []Address{
		Register(3, TYPE_INTEGER),
		Stack(0, TYPE_STRING),
		Constant(65535, TYPE_FLOAT),
		EncodedBoolean(true),
		EncodedByte(0xFF),
	}
	for _, address := range addresses {
		in := NewMove(address, address, false)
		if in.Destination() != address || in.Left() != address {
			t.Fatalf("address %v does not survive instruction packing", address)
		}
	}
}

func TestInstructionFieldRecovery(t *testing.T) {
	call := NewCall(Register(2, TYPE_INTEGER), Register(0, TYPE_FUNCTION), 7)
	if call.Destination() != Register(2, TYPE_INTEGER) {
		t.Fatalf("destination is %v", call.Destination())
	}
	if call.Left() != Register(0, TYPE_FUNCTION) || call.C != 7 {
		t.Fatalf("call operands are %v, %d", call.Left(), call.C)
	}
	jump := NewJump(12, false)
	if jump.B != 12 || jump.D {
		t.Fatalf("jump fields are %d, %t", jump.B, jump.D)
	}
	ret := NewReturn(true, Register(1, TYPE_STRING))
	if !ret.D || ret.Left() != Register(1, TYPE_STRING) {
		t.Fatalf("return fields are %t, %v", ret.D, ret.Left())
	}
}
