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
)

// Local records where an identifier lives for its lexical lifetime. Scopes
// are resolved to flat addresses at compile time; the VM never sees names.
type Local struct {
	Identifier string
	Address    Address
	IsMutable  bool
	ScopeID    int
}

// Chunk is the compiled form of one function: instructions, a parallel
// position vector, interned constants, nested prototypes and the per-type
// register bank sizes the VM must provide.
type Chunk struct {
	Name string
	Type *lang.FunctionType

	Instructions []Instruction
	Positions    []lang.Span

	Constants  *ConstantPool
	Prototypes []*Chunk

	// Argument lists for CALL and CALL_NATIVE, addressed by the C field.
	Arguments [][]Address

	Locals []Local

	BooleanMemoryLength   uint16
	ByteMemoryLength      uint16
	CharacterMemoryLength uint16
	FloatMemoryLength     uint16
	IntegerMemoryLength   uint16
	StringMemoryLength    uint16
	ListMemoryLength      uint16
	FunctionMemoryLength  uint16

	// PrototypeIndex is this chunk's slot in its parent's prototype table.
	PrototypeIndex uint16
}

func (c *Chunk) MemoryLength(t OperandType) uint16 {
	switch t {
	case TYPE_BOOLEAN:
		return c.BooleanMemoryLength
	case TYPE_BYTE:
		return c.ByteMemoryLength
	case TYPE_CHARACTER:
		return c.CharacterMemoryLength
	case TYPE_FLOAT:
		return c.FloatMemoryLength
	case TYPE_INTEGER:
		return c.IntegerMemoryLength
	case TYPE_STRING:
		return c.StringMemoryLength
	case TYPE_LIST:
		return c.ListMemoryLength
	case TYPE_FUNCTION:
		return c.FunctionMemoryLength
	}
	return 0
}

func (c *Chunk) SetMemoryLength(t OperandType, length uint16) {
	switch t {
	case TYPE_BOOLEAN:
		c.BooleanMemoryLength = length
	case TYPE_BYTE:
		c.ByteMemoryLength = length
	case TYPE_CHARACTER:
		c.CharacterMemoryLength = length
	case TYPE_FLOAT:
		c.FloatMemoryLength = length
	case TYPE_INTEGER:
		c.IntegerMemoryLength = length
	case TYPE_STRING:
		c.StringMemoryLength = length
	case TYPE_LIST:
		c.ListMemoryLength = length
	case TYPE_FUNCTION:
		c.FunctionMemoryLength = length
	}
}

func (c *Chunk) String() string {
	if c.Name != "" {
		return fmt.Sprintf("%s %v", c.Name, c.Type)
	}
	return c.Type.String()
}

// -----------------------------------------------------------------------------
// Structural validation
//
// Validate checks the invariants every compiled chunk must satisfy. A failure
// is a compiler bug; the VM relies on these holding and performs no checks of
// its own.

func (c *Chunk) Validate() error {
	if err := c.validateBody(); err != nil {
		return err
	}
	// The prototype table is flat and shared by every chunk of a
	// compilation, and it lists the main chunk at index 0, so the entries
	// are validated here without recursing.
	for i, prototype := range c.Prototypes {
		if int(prototype.PrototypeIndex) != i {
			return fmt.Errorf("chunk %v: prototype %d claims index %d",
				c, i, prototype.PrototypeIndex)
		}
		if prototype == c {
			continue
		}
		if err := prototype.validateBody(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Chunk) validateBody() error {
	if len(c.Instructions) != len(c.Positions) {
		return fmt.Errorf("chunk %v: %d instructions but %d positions",
			c, len(c.Instructions), len(c.Positions))
	}
	if len(c.Instructions) == 0 {
		return fmt.Errorf("chunk %v: empty instruction vector", c)
	}
	if last := c.Instructions[len(c.Instructions)-1]; last.Operation != OP_RETURN {
		return fmt.Errorf("chunk %v: last instruction is %v, want RETURN", c, last.Operation)
	}
	for ip, in := range c.Instructions {
		if err := c.validateInstruction(ip, in); err != nil {
			return err
		}
	}
	return nil
}

func (c *Chunk) validateInstruction(ip int, in Instruction) error {
	length := len(c.Instructions)
	if in.Operation.IsComparison() && ip+1 >= length {
		return fmt.Errorf("chunk %v: %v at %d has no instruction to skip", c, in.Operation, ip)
	}
	if in.Operation == OP_JUMP {
		target := ip + 1 + int(in.B)
		if !in.D {
			target = ip + 1 - int(in.B)
		}
		if target < 0 || target >= length {
			return fmt.Errorf("chunk %v: jump at %d targets %d, length %d", c, ip, target, length)
		}
		if target == ip {
			return fmt.Errorf("chunk %v: jump at %d targets itself", c, ip)
		}
	}
	for _, addr := range c.instructionAddresses(in) {
		if err := c.validateAddress(ip, addr); err != nil {
			return err
		}
	}
	return nil
}

// instructionAddresses lists the operand fields of in that hold addresses.
func (c *Chunk) instructionAddresses(in Instruction) []Address {
	switch in.Operation {
	case OP_MOVE, OP_TEST_SET, OP_NEGATE, OP_NOT:
		return []Address{in.Destination(), in.Left()}
	case OP_CLOSE:
		return []Address{in.Destination()}
	case OP_LOAD_ENCODED, OP_LOAD_CONSTANT:
		return []Address{in.Destination(), in.Left()}
	case OP_LOAD_LIST:
		return []Address{in.Destination(), in.Left(), in.Right()}
	case OP_LOAD_FUNCTION:
		return []Address{in.Destination()}
	case OP_ADD, OP_SUBTRACT, OP_MULTIPLY, OP_DIVIDE, OP_MODULO:
		return []Address{in.Destination(), in.Left(), in.Right()}
	case OP_EQUAL, OP_LESS, OP_LESS_EQUAL:
		return []Address{in.Left(), in.Right()}
	case OP_TEST:
		return []Address{in.Left()}
	case OP_CALL:
		addrs := []Address{in.Destination(), in.Left()}
		return append(addrs, c.argumentAddresses(in.C)...)
	case OP_CALL_NATIVE:
		addrs := []Address{in.Destination()}
		return append(addrs, c.argumentAddresses(in.C)...)
	case OP_RETURN:
		if in.D {
			return []Address{in.Left()}
		}
	}
	return nil
}

func (c *Chunk) argumentAddresses(list uint16) []Address {
	if int(list) >= len(c.Arguments) {
		return nil
	}
	return c.Arguments[list]
}

func (c *Chunk) validateAddress(ip int, addr Address) error {
	switch addr.Kind {
	case MEM_REGISTER, MEM_STACK:
		if addr.Type == TYPE_NONE {
			// A none-typed destination carries no slot.
			return nil
		}
		if addr.Index >= c.MemoryLength(addr.Type) {
			return fmt.Errorf("chunk %v: instruction %d references %v bank slot %d, bank size %d",
				c, ip, addr.Type, addr.Index, c.MemoryLength(addr.Type))
		}
	case MEM_CONSTANT:
		if tag := c.Constants.TagAt(addr.Index); tag != addr.Type {
			return fmt.Errorf("chunk %v: instruction %d references constant %d as %v, pool holds %v",
				c, ip, addr.Index, addr.Type, tag)
		}
	case MEM_ENCODED:
		if addr.Type != TYPE_BOOLEAN && addr.Type != TYPE_BYTE {
			return fmt.Errorf("chunk %v: instruction %d encodes a %v immediate", c, ip, addr.Type)
		}
	}
	return nil
}
