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
	"fmt"
	"math"
	"strconv"
	"strings"

	"dust/bytecode"
)

// -----------------------------------------------------------------------------
// Runtime values
//
// Arithmetic, comparison and test instructions work on the typed register
// banks directly. Value is the tagged carrier for register moves and loads,
// call arguments, list elements and the thread's return value.

type List struct {
	ElemType bytecode.OperandType
	Items    []Value
}

type Value struct {
	Type bytecode.OperandType

	Boolean   bool
	Byte      byte
	Character rune
	Float     float64
	Integer   int64
	String    string
	List      *List
	Function  *bytecode.Chunk
}

func NoneValue() Value {
	return Value{Type: bytecode.TYPE_NONE}
}

func BooleanValue(v bool) Value {
	return Value{Type: bytecode.TYPE_BOOLEAN, Boolean: v}
}

func ByteValue(v byte) Value {
	return Value{Type: bytecode.TYPE_BYTE, Byte: v}
}

func CharacterValue(v rune) Value {
	return Value{Type: bytecode.TYPE_CHARACTER, Character: v}
}

func FloatValue(v float64) Value {
	return Value{Type: bytecode.TYPE_FLOAT, Float: v}
}

func IntegerValue(v int64) Value {
	return Value{Type: bytecode.TYPE_INTEGER, Integer: v}
}

func StringValue(v string) Value {
	return Value{Type: bytecode.TYPE_STRING, String: v}
}

func ListValue(v *List) Value {
	return Value{Type: bytecode.TYPE_LIST, List: v}
}

func FunctionValue(v *bytecode.Chunk) Value {
	return Value{Type: bytecode.TYPE_FUNCTION, Function: v}
}

func (v Value) IsNone() bool {
	return v.Type == bytecode.TYPE_NONE
}

// Display renders the value the way the CLI prints a program's result.
func (v Value) Display() string {
	switch v.Type {
	case bytecode.TYPE_NONE:
		return "none"
	case bytecode.TYPE_BOOLEAN:
		return strconv.FormatBool(v.Boolean)
	case bytecode.TYPE_BYTE:
		return fmt.Sprintf("0x%02X", v.Byte)
	case bytecode.TYPE_CHARACTER:
		return string(v.Character)
	case bytecode.TYPE_FLOAT:
		return displayFloat(v.Float)
	case bytecode.TYPE_INTEGER:
		return strconv.FormatInt(v.Integer, 10)
	case bytecode.TYPE_STRING:
		return v.String
	case bytecode.TYPE_LIST:
		items := make([]string, len(v.List.Items))
		for i, item := range v.List.Items {
			items[i] = item.Display()
		}
		return "[" + strings.Join(items, ", ") + "]"
	case bytecode.TYPE_FUNCTION:
		return v.Function.String()
	}
	return "unknown"
}

func displayFloat(f float64) string {
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	if math.IsNaN(f) {
		return "NaN"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Equals compares values structurally. NaN equals nothing, including itself,
// matching the language's float semantics.
func (v Value) Equals(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case bytecode.TYPE_NONE:
		return true
	case bytecode.TYPE_BOOLEAN:
		return v.Boolean == other.Boolean
	case bytecode.TYPE_BYTE:
		return v.Byte == other.Byte
	case bytecode.TYPE_CHARACTER:
		return v.Character == other.Character
	case bytecode.TYPE_FLOAT:
		return v.Float == other.Float
	case bytecode.TYPE_INTEGER:
		return v.Integer == other.Integer
	case bytecode.TYPE_STRING:
		return v.String == other.String
	case bytecode.TYPE_LIST:
		if v.List.ElemType != other.List.ElemType ||
			len(v.List.Items) != len(other.List.Items) {
			return false
		}
		for i, item := range v.List.Items {
			if !item.Equals(other.List.Items[i]) {
				return false
			}
		}
		return true
	case bytecode.TYPE_FUNCTION:
		return v.Function == other.Function
	}
	return false
}
