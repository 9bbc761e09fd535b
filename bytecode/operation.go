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

// Operation is the dispatch byte of an instruction. The values are stable;
// the VM switches on them directly.
type Operation byte

const (
	OP_NO_OP Operation = iota
	OP_MOVE
	OP_CLOSE
	OP_LOAD_ENCODED
	OP_LOAD_CONSTANT
	OP_LOAD_LIST
	OP_LOAD_FUNCTION
	OP_ADD
	OP_SUBTRACT
	OP_MULTIPLY
	OP_DIVIDE
	OP_MODULO
	OP_EQUAL
	OP_LESS
	OP_LESS_EQUAL
	OP_NEGATE
	OP_NOT
	OP_TEST
	OP_TEST_SET
	OP_CALL
	OP_CALL_NATIVE
	OP_JUMP
	OP_RETURN

	operationCount
)

var operationNames = [operationCount]string{
	OP_NO_OP:         "NO_OP",
	OP_MOVE:          "MOVE",
	OP_CLOSE:         "CLOSE",
	OP_LOAD_ENCODED:  "LOAD_ENCODED",
	OP_LOAD_CONSTANT: "LOAD_CONSTANT",
	OP_LOAD_LIST:     "LOAD_LIST",
	OP_LOAD_FUNCTION: "LOAD_FUNCTION",
	OP_ADD:           "ADD",
	OP_SUBTRACT:      "SUBTRACT",
	OP_MULTIPLY:      "MULTIPLY",
	OP_DIVIDE:        "DIVIDE",
	OP_MODULO:        "MODULO",
	OP_EQUAL:         "EQUAL",
	OP_LESS:          "LESS",
	OP_LESS_EQUAL:    "LESS_EQUAL",
	OP_NEGATE:        "NEGATE",
	OP_NOT:           "NOT",
	OP_TEST:          "TEST",
	OP_TEST_SET:      "TEST_SET",
	OP_CALL:          "CALL",
	OP_CALL_NATIVE:   "CALL_NATIVE",
	OP_JUMP:          "JUMP",
	OP_RETURN:        "RETURN",
}

func (op Operation) Name() string {
	if op < operationCount {
		return operationNames[op]
	}
	return fmt.Sprintf("OP(%d)", byte(op))
}

func (op Operation) String() string {
	return op.Name()
}

// IsComparison reports whether the operation conditionally skips the next
// instruction based on a comparator flag.
func (op Operation) IsComparison() bool {
	return op == OP_EQUAL || op == OP_LESS || op == OP_LESS_EQUAL
}
