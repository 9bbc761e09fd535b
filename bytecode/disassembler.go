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
	"io"
	"math"
	"strconv"
	"strings"
)

func formatInteger(v int64) string {
	return strconv.FormatInt(v, 10)
}

// formatFloat keeps a fractional part visible so float constants cannot be
// mistaken for integers in listings and printed return values.
func formatFloat(f float64) string {
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

// Disassemble writes a human-readable listing of the chunk followed by the
// other entries of its prototype table. The table is flat and lists the main
// chunk at index 0, so each entry prints exactly once.
func (c *Chunk) Disassemble(w io.Writer, name string) {
	c.disassemble(w, name, 0)
	for _, prototype := range c.Prototypes {
		if prototype == c {
			continue
		}
		fmt.Fprintln(w)
		prototype.disassemble(w, prototype.Name, 1)
	}
}

func (c *Chunk) disassemble(w io.Writer, name string, depth int) {
	pad := strings.Repeat("    ", depth)
	if name == "" {
		name = c.Name
	}
	if name == "" {
		name = "anonymous"
	}
	fmt.Fprintf(w, "%s== %s ==\n", pad, name)
	fmt.Fprintf(w, "%stype: %v\n", pad, c.Type)
	fmt.Fprintf(w, "%sregisters: bool=%d byte=%d char=%d float=%d int=%d str=%d list=%d fn=%d\n",
		pad,
		c.BooleanMemoryLength, c.ByteMemoryLength, c.CharacterMemoryLength,
		c.FloatMemoryLength, c.IntegerMemoryLength, c.StringMemoryLength,
		c.ListMemoryLength, c.FunctionMemoryLength)

	for ip, in := range c.Instructions {
		fmt.Fprintf(w, "%s%4d  %-40v %v\n", pad, ip, in, c.Positions[ip])
	}

	if c.Constants.Len() > 0 {
		fmt.Fprintf(w, "%sconstants:\n", pad)
		for i := 0; i < c.Constants.Len(); i++ {
			index := uint16(i)
			fmt.Fprintf(w, "%s%4d  %-6v %s\n",
				pad, i, c.Constants.TagAt(index), c.Constants.Describe(index))
		}
	}

	if len(c.Locals) > 0 {
		fmt.Fprintf(w, "%slocals:\n", pad)
		for i, local := range c.Locals {
			mut := ""
			if local.IsMutable {
				mut = " mut"
			}
			fmt.Fprintf(w, "%s%4d  %-12s %v%s\n", pad, i, local.Identifier, local.Address, mut)
		}
	}
}
