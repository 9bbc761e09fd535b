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
	"io"
	"strings"

	"dust/bytecode"
)

// runNative executes a built-in function. Natives return only after their
// I/O completes; there are no suspension points.
func (t *Thread) runNative(native bytecode.Native, destination bytecode.Address,
	arguments []bytecode.Address, frame *CallFrame, ip int) error {
	switch native {
	case bytecode.NATIVE_WRITE_LINE:
		line := t.text(arguments[0], frame)
		fmt.Fprintln(t.stdout, line)
		return nil

	case bytecode.NATIVE_READ_LINE:
		line, err := t.stdin.ReadString('\n')
		if err != nil && err != io.EOF {
			return fault(UnhandledOperation, t.spanAt(frame, ip), "read_line: %v", err)
		}
		line = strings.TrimRight(line, "\r\n")
		t.memory.Strings[t.slot(destination, frame)] = line
		return nil
	}
	return fault(UnhandledOperation, t.spanAt(frame, ip), "unknown native %d", native)
}
