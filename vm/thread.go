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
package vm

import (
	"bufio"
	"io"
	"math"
	"os"

	"dust/bytecode"
	"dust/compile"
	"dust/lang"
)

// Run compiles and executes a source text, returning the program's value.
func Run(name string, source []byte) (Value, error) {
	chunk, err := compile.CompileMain(name, source)
	if err != nil {
		return NoneValue(), err
	}
	return NewThread(chunk).Run()
}

// -----------------------------------------------------------------------------
// Thread
//
// One thread owns its register banks and call stack exclusively; the chunk
// and its constants are read-only after compilation. Dispatch is strictly
// synchronous: the only instruction that can suspend the loop is RETURN from
// the bottom frame.

type Thread struct {
	memory Memory
	frames []CallFrame

	stdin  *bufio.Reader
	stdout io.Writer
}

func NewThread(chunk *bytecode.Chunk) *Thread {
	t := &Thread{
		stdin:  bufio.NewReader(os.Stdin),
		stdout: os.Stdout,
	}
	t.frames = append(t.frames, CallFrame{Chunk: chunk})
	t.memory.ensure(frameBases{}, chunk)
	return t
}

// SetIO redirects the native functions' input and output, used by the
// tests.
func (t *Thread) SetIO(stdin io.Reader, stdout io.Writer) {
	t.stdin = bufio.NewReader(stdin)
	t.stdout = stdout
}

// Run drives the dispatch loop to completion and returns the value of the
// bottom frame's RETURN.
func (t *Thread) Run() (Value, error) {
	for {
		frame := &t.frames[len(t.frames)-1]
		if frame.IP >= len(frame.Chunk.Instructions) {
			// The compiler guarantees every path ends in RETURN.
			return NoneValue(), fault(MissingReturnValue, t.spanAt(frame, frame.IP-1),
				"instruction pointer ran off the end of %v", frame.Chunk)
		}
		ip := frame.IP
		in := &frame.Chunk.Instructions[ip]
		frame.IP++

		switch in.Operation {
		case bytecode.OP_NO_OP:

		case bytecode.OP_MOVE, bytecode.OP_LOAD_ENCODED, bytecode.OP_LOAD_CONSTANT:
			t.writeValue(in.Destination(), frame, t.readValue(in.Left(), frame))
			if in.D {
				frame.IP++
			}

		case bytecode.OP_CLOSE:
			// No capturing assignments are ever compiled, so closed
			// registers do not occur.

		case bytecode.OP_LOAD_LIST:
			if err := t.loadList(in, frame); err != nil {
				return NoneValue(), err
			}
			if in.D {
				frame.IP++
			}

		case bytecode.OP_LOAD_FUNCTION:
			if int(in.B) >= len(frame.Chunk.Prototypes) {
				return NoneValue(), fault(FunctionIndexOutOfBounds, t.spanAt(frame, ip),
					"prototype %d of %d", in.B, len(frame.Chunk.Prototypes))
			}
			t.memory.Functions[t.slot(in.Destination(), frame)] = frame.Chunk.Prototypes[in.B]

		case bytecode.OP_ADD:
			t.add(in, frame)

		case bytecode.OP_SUBTRACT, bytecode.OP_MULTIPLY:
			t.arithmetic(in, frame)

		case bytecode.OP_DIVIDE, bytecode.OP_MODULO:
			if err := t.divide(in, frame, ip); err != nil {
				return NoneValue(), err
			}

		case bytecode.OP_EQUAL, bytecode.OP_LESS, bytecode.OP_LESS_EQUAL:
			if t.compare(in, frame) != in.D {
				frame.IP++
			}

		case bytecode.OP_NEGATE:
			t.negate(in, frame)

		case bytecode.OP_NOT:
			destination := in.Destination()
			t.memory.Booleans[t.slot(destination, frame)] = !t.booleanAt(in.Left(), frame)

		case bytecode.OP_TEST:
			if t.booleanAt(in.Left(), frame) == in.D {
				frame.IP++
			}

		case bytecode.OP_TEST_SET:
			if t.booleanAt(in.Left(), frame) == in.D {
				frame.IP++
			} else {
				t.writeValue(in.Destination(), frame, t.readValue(in.Left(), frame))
			}

		case bytecode.OP_CALL:
			if err := t.call(in, frame, ip); err != nil {
				return NoneValue(), err
			}

		case bytecode.OP_CALL_NATIVE:
			if err := t.callNative(in, frame, ip); err != nil {
				return NoneValue(), err
			}

		case bytecode.OP_JUMP:
			if in.D {
				frame.IP += int(in.B)
			} else {
				frame.IP -= int(in.B)
			}

		case bytecode.OP_RETURN:
			value := NoneValue()
			if in.D {
				value = t.readValue(in.Left(), frame)
			}
			if len(t.frames) == 1 {
				return value, nil
			}
			returnAddress := frame.ReturnAddress
			t.frames = t.frames[:len(t.frames)-1]
			if in.D {
				caller := &t.frames[len(t.frames)-1]
				t.writeValue(returnAddress, caller, value)
			}

		default:
			return NoneValue(), fault(UnhandledOperation, t.spanAt(frame, ip),
				"operation %v", in.Operation)
		}
	}
}

func (t *Thread) spanAt(frame *CallFrame, ip int) lang.Span {
	if ip < 0 || ip >= len(frame.Chunk.Positions) {
		return lang.Span{}
	}
	return frame.Chunk.Positions[ip]
}

// -----------------------------------------------------------------------------
// Lists

func (t *Thread) loadList(in *bytecode.Instruction, frame *CallFrame) error {
	elemType := in.Left().Type
	list := &List{ElemType: elemType}
	if elemType != bytecode.TYPE_NONE {
		first := in.Left()
		last := in.Right()
		for index := first.Index; index <= last.Index; index++ {
			item := bytecode.Register(index, elemType)
			list.Items = append(list.Items, t.readValue(item, frame))
		}
	}
	t.memory.Lists[t.slot(in.Destination(), frame)] = list
	return nil
}

// -----------------------------------------------------------------------------
// Calls

func (t *Thread) call(in *bytecode.Instruction, frame *CallFrame, ip int) error {
	callee := t.functionAt(in.Left(), frame)
	if callee == nil {
		return fault(FunctionIndexOutOfBounds, t.spanAt(frame, ip), "call to an empty function slot")
	}
	arguments := frame.Chunk.Arguments[in.C]

	bases := basesAfter(frame.Bases, frame.Chunk)
	t.memory.ensure(bases, callee)

	// Parameters occupy the head of the callee's banks in declaration
	// order, one counter per type.
	var parameterIndex [9]uint16
	next := CallFrame{
		Chunk:         callee,
		ReturnAddress: in.Destination(),
		Bases:         bases,
	}
	for _, argument := range arguments {
		value := t.readValue(argument, frame)
		register := bytecode.Register(parameterIndex[argument.Type], argument.Type)
		parameterIndex[argument.Type]++
		t.writeValue(register, &next, value)
	}
	t.frames = append(t.frames, next)
	return nil
}

func (t *Thread) callNative(in *bytecode.Instruction, frame *CallFrame, ip int) error {
	arguments := frame.Chunk.Arguments[in.C]
	return t.runNative(bytecode.Native(in.B), in.Destination(), arguments, frame, ip)
}

// -----------------------------------------------------------------------------
// Arithmetic
//
// Addition dispatches on the concrete operand types to cover the string and
// character concatenations; the remaining operators are purely numeric.
// Byte and integer arithmetic saturates, float follows IEEE 754.

func (t *Thread) add(in *bytecode.Instruction, frame *CallFrame) {
	destination := in.Destination()
	lhs, rhs := in.Left(), in.Right()
	switch {
	case lhs.Type == bytecode.TYPE_BYTE:
		sum := int(t.byteAt(lhs, frame)) + int(t.byteAt(rhs, frame))
		t.memory.Bytes[t.slot(destination, frame)] = clampByte(sum)
	case lhs.Type == bytecode.TYPE_FLOAT:
		t.memory.Floats[t.slot(destination, frame)] = t.floatAt(lhs, frame) + t.floatAt(rhs, frame)
	case lhs.Type == bytecode.TYPE_INTEGER:
		sum := saturatingAdd(t.integerAt(lhs, frame), t.integerAt(rhs, frame))
		t.memory.Integers[t.slot(destination, frame)] = sum
	default:
		// Any character/string combination concatenates into a string.
		t.memory.Strings[t.slot(destination, frame)] = t.text(lhs, frame) + t.text(rhs, frame)
	}
}

// text reads a character or string operand as string content.
func (t *Thread) text(addr bytecode.Address, frame *CallFrame) string {
	if addr.Type == bytecode.TYPE_CHARACTER {
		return string(t.characterAt(addr, frame))
	}
	return t.stringAt(addr, frame)
}

func (t *Thread) arithmetic(in *bytecode.Instruction, frame *CallFrame) {
	destination := in.Destination()
	lhs, rhs := in.Left(), in.Right()
	subtract := in.Operation == bytecode.OP_SUBTRACT
	switch lhs.Type {
	case bytecode.TYPE_BYTE:
		a, b := int(t.byteAt(lhs, frame)), int(t.byteAt(rhs, frame))
		if subtract {
			t.memory.Bytes[t.slot(destination, frame)] = clampByte(a - b)
		} else {
			t.memory.Bytes[t.slot(destination, frame)] = clampByte(a * b)
		}
	case bytecode.TYPE_FLOAT:
		a, b := t.floatAt(lhs, frame), t.floatAt(rhs, frame)
		if subtract {
			t.memory.Floats[t.slot(destination, frame)] = a - b
		} else {
			t.memory.Floats[t.slot(destination, frame)] = a * b
		}
	case bytecode.TYPE_INTEGER:
		a, b := t.integerAt(lhs, frame), t.integerAt(rhs, frame)
		if subtract {
			t.memory.Integers[t.slot(destination, frame)] = saturatingSubtract(a, b)
		} else {
			t.memory.Integers[t.slot(destination, frame)] = saturatingMultiply(a, b)
		}
	}
}

func (t *Thread) divide(in *bytecode.Instruction, frame *CallFrame, ip int) error {
	destination := in.Destination()
	lhs, rhs := in.Left(), in.Right()
	modulo := in.Operation == bytecode.OP_MODULO
	switch lhs.Type {
	case bytecode.TYPE_BYTE:
		a, b := t.byteAt(lhs, frame), t.byteAt(rhs, frame)
		if b == 0 {
			return fault(DivisionByZero, t.spanAt(frame, ip), "")
		}
		if modulo {
			t.memory.Bytes[t.slot(destination, frame)] = a % b
		} else {
			t.memory.Bytes[t.slot(destination, frame)] = a / b
		}
	case bytecode.TYPE_FLOAT:
		a, b := t.floatAt(lhs, frame), t.floatAt(rhs, frame)
		if modulo {
			t.memory.Floats[t.slot(destination, frame)] = math.Mod(a, b)
		} else {
			t.memory.Floats[t.slot(destination, frame)] = a / b
		}
	case bytecode.TYPE_INTEGER:
		a, b := t.integerAt(lhs, frame), t.integerAt(rhs, frame)
		if b == 0 {
			return fault(DivisionByZero, t.spanAt(frame, ip), "")
		}
		if modulo {
			t.memory.Integers[t.slot(destination, frame)] = a % b
		} else if a == math.MinInt64 && b == -1 {
			t.memory.Integers[t.slot(destination, frame)] = math.MaxInt64
		} else {
			t.memory.Integers[t.slot(destination, frame)] = a / b
		}
	}
	return nil
}

func (t *Thread) negate(in *bytecode.Instruction, frame *CallFrame) {
	destination := in.Destination()
	src := in.Left()
	switch src.Type {
	case bytecode.TYPE_BYTE:
		t.memory.Bytes[t.slot(destination, frame)] = clampByte(-int(t.byteAt(src, frame)))
	case bytecode.TYPE_FLOAT:
		t.memory.Floats[t.slot(destination, frame)] = -t.floatAt(src, frame)
	case bytecode.TYPE_INTEGER:
		value := t.integerAt(src, frame)
		if value == math.MinInt64 {
			t.memory.Integers[t.slot(destination, frame)] = math.MaxInt64
		} else {
			t.memory.Integers[t.slot(destination, frame)] = -value
		}
	}
}

// compare evaluates the comparison the instruction names, before the
// comparator flag is applied.
func (t *Thread) compare(in *bytecode.Instruction, frame *CallFrame) bool {
	lhs, rhs := in.Left(), in.Right()
	if in.Operation == bytecode.OP_EQUAL {
		switch lhs.Type {
		case bytecode.TYPE_BOOLEAN:
			return t.booleanAt(lhs, frame) == t.booleanAt(rhs, frame)
		case bytecode.TYPE_BYTE:
			return t.byteAt(lhs, frame) == t.byteAt(rhs, frame)
		case bytecode.TYPE_CHARACTER:
			return t.characterAt(lhs, frame) == t.characterAt(rhs, frame)
		case bytecode.TYPE_FLOAT:
			return t.floatAt(lhs, frame) == t.floatAt(rhs, frame)
		case bytecode.TYPE_INTEGER:
			return t.integerAt(lhs, frame) == t.integerAt(rhs, frame)
		case bytecode.TYPE_STRING:
			return t.stringAt(lhs, frame) == t.stringAt(rhs, frame)
		}
		return false
	}
	orEqual := in.Operation == bytecode.OP_LESS_EQUAL
	switch lhs.Type {
	case bytecode.TYPE_BYTE:
		a, b := t.byteAt(lhs, frame), t.byteAt(rhs, frame)
		return a < b || (orEqual && a == b)
	case bytecode.TYPE_CHARACTER:
		a, b := t.characterAt(lhs, frame), t.characterAt(rhs, frame)
		return a < b || (orEqual && a == b)
	case bytecode.TYPE_FLOAT:
		a, b := t.floatAt(lhs, frame), t.floatAt(rhs, frame)
		if orEqual {
			return a <= b
		}
		return a < b
	case bytecode.TYPE_INTEGER:
		a, b := t.integerAt(lhs, frame), t.integerAt(rhs, frame)
		return a < b || (orEqual && a == b)
	case bytecode.TYPE_STRING:
		a, b := t.stringAt(lhs, frame), t.stringAt(rhs, frame)
		return a < b || (orEqual && a == b)
	}
	return false
}

// -----------------------------------------------------------------------------
// Saturating integer helpers

func clampByte(v int) byte {
	if v < 0 {
		return 0x00
	}
	if v > 0xFF {
		return 0xFF
	}
	return byte(v)
}

func saturatingAdd(a, b int64) int64 {
	sum := a + b
	if a > 0 && b > 0 && sum < 0 {
		return math.MaxInt64
	}
	if a < 0 && b < 0 && sum >= 0 {
		return math.MinInt64
	}
	return sum
}

func saturatingSubtract(a, b int64) int64 {
	difference := a - b
	if a >= 0 && b < 0 && difference < 0 {
		return math.MaxInt64
	}
	if a < 0 && b > 0 && difference > 0 {
		return math.MinInt64
	}
	return difference
}

func saturatingMultiply(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a == -1 || b == -1 {
		other := a
		if a == -1 {
			other = b
		}
		if other == math.MinInt64 {
			return math.MaxInt64
		}
		return -other
	}
	product := a * b
	if product/b != a {
		if (a < 0) == (b < 0) {
			return math.MaxInt64
		}
		return math.MinInt64
	}
	return product
}
