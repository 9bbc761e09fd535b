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

	"dust/lang"
)

type ErrorKind int

const (
	DivisionByZero ErrorKind = iota
	ListIndexOutOfBounds
	FunctionIndexOutOfBounds
	MissingReturnValue
	UnhandledOperation
)

var errorTitles = map[ErrorKind]string{
	DivisionByZero:           "Division by zero",
	ListIndexOutOfBounds:     "List index out of bounds",
	FunctionIndexOutOfBounds: "Function index out of bounds",
	MissingReturnValue:       "Missing return value",
	UnhandledOperation:       "Unhandled operation",
}

var errorDescriptions = map[ErrorKind]string{
	DivisionByZero:           "Integer and byte division or modulo by zero is a runtime fault.",
	ListIndexOutOfBounds:     "The list has no element at this index.",
	FunctionIndexOutOfBounds: "The chunk has no prototype at this index.",
	MissingReturnValue:       "Execution reached the end of a chunk without returning.",
	UnhandledOperation:       "The instruction cannot be executed with these operand types.",
}

// Error is a runtime fault. It halts the thread and carries the span of the
// faulting instruction, taken from the chunk's position vector.
type Error struct {
	Kind    ErrorKind
	Span    lang.Span
	Message string
}

func (e *Error) Title() string {
	return errorTitles[e.Kind]
}

func (e *Error) Description() string {
	return errorDescriptions[e.Kind]
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s at %v", e.Title(), e.Message, e.Span)
	}
	return fmt.Sprintf("%s at %v", e.Title(), e.Span)
}

func fault(kind ErrorKind, span lang.Span, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Span: span, Message: fmt.Sprintf(format, args...)}
}
