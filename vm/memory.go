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
	"dust/bytecode"
	"dust/utils"
)

// -----------------------------------------------------------------------------
// Typed register banks
//
// Eight parallel banks, one per operand type, shared by every frame of a
// thread. A frame addresses its registers through per-type base offsets: the
// callee's bases sit past the caller's high-water marks, so callee registers
// never alias caller live values. Moving the type dispatch to compile time is
// the point of this layout; reads and writes here are direct slice indexing.

type Memory struct {
	Booleans   []bool
	Bytes      []byte
	Characters []rune
	Floats     []float64
	Integers   []int64
	Strings    []string
	Lists      []*List
	Functions  []*bytecode.Chunk
}

// frameBases holds a frame's per-type base offsets into the banks, indexed
// by OperandType.
type frameBases [9]int

// basesAfter computes the bases of a frame stacked on top of the given frame.
func basesAfter(bases frameBases, chunk *bytecode.Chunk) frameBases {
	next := bases
	for t := bytecode.TYPE_BOOLEAN; t <= bytecode.TYPE_FUNCTION; t++ {
		next[t] += int(chunk.MemoryLength(t))
	}
	return next
}

// ensure grows each bank to fit a frame of the chunk at the given bases.
func (m *Memory) ensure(bases frameBases, chunk *bytecode.Chunk) {
	need := func(t bytecode.OperandType) int {
		return bases[t] + int(chunk.MemoryLength(t))
	}
	if n := need(bytecode.TYPE_BOOLEAN); n > len(m.Booleans) {
		m.Booleans = append(m.Booleans, make([]bool, n-len(m.Booleans))...)
	}
	if n := need(bytecode.TYPE_BYTE); n > len(m.Bytes) {
		m.Bytes = append(m.Bytes, make([]byte, n-len(m.Bytes))...)
	}
	if n := need(bytecode.TYPE_CHARACTER); n > len(m.Characters) {
		m.Characters = append(m.Characters, make([]rune, n-len(m.Characters))...)
	}
	if n := need(bytecode.TYPE_FLOAT); n > len(m.Floats) {
		m.Floats = append(m.Floats, make([]float64, n-len(m.Floats))...)
	}
	if n := need(bytecode.TYPE_INTEGER); n > len(m.Integers) {
		m.Integers = append(m.Integers, make([]int64, n-len(m.Integers))...)
	}
	if n := need(bytecode.TYPE_STRING); n > len(m.Strings) {
		m.Strings = append(m.Strings, make([]string, n-len(m.Strings))...)
	}
	if n := need(bytecode.TYPE_LIST); n > len(m.Lists) {
		m.Lists = append(m.Lists, make([]*List, n-len(m.Lists))...)
	}
	if n := need(bytecode.TYPE_FUNCTION); n > len(m.Functions) {
		m.Functions = append(m.Functions, make([]*bytecode.Chunk, n-len(m.Functions))...)
	}
}

// CallFrame is the runtime activation record of one function call.
type CallFrame struct {
	Chunk *bytecode.Chunk
	IP    int

	// ReturnAddress names the caller slot that receives the return value,
	// resolved against the caller's bases.
	ReturnAddress bytecode.Address

	// Bases are this frame's skipped-register offsets per bank.
	Bases frameBases
}

// -----------------------------------------------------------------------------
// Address resolution
//
// Resolution is a pure function of (address, frame). The compiler guarantees
// that every address is in bounds and correctly typed, so the accessors
// index the banks directly.

func (t *Thread) slot(addr bytecode.Address, frame *CallFrame) int {
	if addr.Kind == bytecode.MEM_STACK {
		return int(addr.Index)
	}
	return frame.Bases[addr.Type] + int(addr.Index)
}

func (t *Thread) booleanAt(addr bytecode.Address, frame *CallFrame) bool {
	if addr.Kind == bytecode.MEM_ENCODED {
		return addr.Index != 0
	}
	return t.memory.Booleans[t.slot(addr, frame)]
}

func (t *Thread) byteAt(addr bytecode.Address, frame *CallFrame) byte {
	if addr.Kind == bytecode.MEM_ENCODED {
		return byte(addr.Index)
	}
	return t.memory.Bytes[t.slot(addr, frame)]
}

func (t *Thread) characterAt(addr bytecode.Address, frame *CallFrame) rune {
	if addr.Kind == bytecode.MEM_CONSTANT {
		c, ok := frame.Chunk.Constants.GetCharacter(addr.Index)
		utils.Assert(ok, "bad character constant %d", addr.Index)
		return c
	}
	return t.memory.Characters[t.slot(addr, frame)]
}

func (t *Thread) floatAt(addr bytecode.Address, frame *CallFrame) float64 {
	if addr.Kind == bytecode.MEM_CONSTANT {
		f, ok := frame.Chunk.Constants.GetFloat(addr.Index)
		utils.Assert(ok, "bad float constant %d", addr.Index)
		return f
	}
	return t.memory.Floats[t.slot(addr, frame)]
}

func (t *Thread) integerAt(addr bytecode.Address, frame *CallFrame) int64 {
	if addr.Kind == bytecode.MEM_CONSTANT {
		v, ok := frame.Chunk.Constants.GetInteger(addr.Index)
		utils.Assert(ok, "bad integer constant %d", addr.Index)
		return v
	}
	return t.memory.Integers[t.slot(addr, frame)]
}

func (t *Thread) stringAt(addr bytecode.Address, frame *CallFrame) string {
	if addr.Kind == bytecode.MEM_CONSTANT {
		s, ok := frame.Chunk.Constants.GetString(addr.Index)
		utils.Assert(ok, "bad string constant %d", addr.Index)
		return s
	}
	return t.memory.Strings[t.slot(addr, frame)]
}

func (t *Thread) listAt(addr bytecode.Address, frame *CallFrame) *List {
	return t.memory.Lists[t.slot(addr, frame)]
}

func (t *Thread) functionAt(addr bytecode.Address, frame *CallFrame) *bytecode.Chunk {
	return t.memory.Functions[t.slot(addr, frame)]
}

// readValue resolves any address into a tagged Value. Used by moves and
// loads, argument copying, list building and the final return.
func (t *Thread) readValue(addr bytecode.Address, frame *CallFrame) Value {
	switch addr.Type {
	case bytecode.TYPE_NONE:
		return NoneValue()
	case bytecode.TYPE_BOOLEAN:
		return BooleanValue(t.booleanAt(addr, frame))
	case bytecode.TYPE_BYTE:
		return ByteValue(t.byteAt(addr, frame))
	case bytecode.TYPE_CHARACTER:
		return CharacterValue(t.characterAt(addr, frame))
	case bytecode.TYPE_FLOAT:
		return FloatValue(t.floatAt(addr, frame))
	case bytecode.TYPE_INTEGER:
		return IntegerValue(t.integerAt(addr, frame))
	case bytecode.TYPE_STRING:
		return StringValue(t.stringAt(addr, frame))
	case bytecode.TYPE_LIST:
		return ListValue(t.listAt(addr, frame))
	case bytecode.TYPE_FUNCTION:
		return FunctionValue(t.functionAt(addr, frame))
	}
	utils.ShouldNotReachHere()
	return NoneValue()
}

// writeValue stores a tagged Value into a register or stack slot.
func (t *Thread) writeValue(addr bytecode.Address, frame *CallFrame, value Value) {
	switch addr.Type {
	case bytecode.TYPE_NONE:
		// A none destination receives nothing.
	case bytecode.TYPE_BOOLEAN:
		t.memory.Booleans[t.slot(addr, frame)] = value.Boolean
	case bytecode.TYPE_BYTE:
		t.memory.Bytes[t.slot(addr, frame)] = value.Byte
	case bytecode.TYPE_CHARACTER:
		t.memory.Characters[t.slot(addr, frame)] = value.Character
	case bytecode.TYPE_FLOAT:
		t.memory.Floats[t.slot(addr, frame)] = value.Float
	case bytecode.TYPE_INTEGER:
		t.memory.Integers[t.slot(addr, frame)] = value.Integer
	case bytecode.TYPE_STRING:
		t.memory.Strings[t.slot(addr, frame)] = value.String
	case bytecode.TYPE_LIST:
		t.memory.Lists[t.slot(addr, frame)] = value.List
	case bytecode.TYPE_FUNCTION:
		t.memory.Functions[t.slot(addr, frame)] = value.Function
	default:
		utils.ShouldNotReachHere()
	}
}
