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

// Native identifies a built-in function targeted by CALL_NATIVE. The ids are
// stable; they appear in the instruction's B field.
type Native uint16

const (
	NATIVE_WRITE_LINE Native = iota
	NATIVE_READ_LINE
)

var nativeNames = map[Native]string{
	NATIVE_WRITE_LINE: "write_line",
	NATIVE_READ_LINE:  "read_line",
}

var nativesByName = map[string]Native{
	"write_line": NATIVE_WRITE_LINE,
	"read_line":  NATIVE_READ_LINE,
}

func (n Native) Name() string {
	return nativeNames[n]
}

func NativeByName(name string) (Native, bool) {
	native, found := nativesByName[name]
	return native, found
}
