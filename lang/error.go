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
package lang

import "fmt"

type LexErrorKind int

const (
	InvalidCharacter LexErrorKind = iota
	UnterminatedString
	UnterminatedCharacter
	MalformedByte
	MalformedFloat
	MalformedInteger
)

var lexErrorTitles = map[LexErrorKind]string{
	InvalidCharacter:      "Invalid character",
	UnterminatedString:    "Unterminated string",
	UnterminatedCharacter: "Unterminated character",
	MalformedByte:         "Malformed byte literal",
	MalformedFloat:        "Malformed float literal",
	MalformedInteger:      "Malformed integer literal",
}

var lexErrorDescriptions = map[LexErrorKind]string{
	InvalidCharacter:      "This character cannot be used in Dust source code.",
	UnterminatedString:    "A string literal must be closed with a double quote.",
	UnterminatedCharacter: "A character literal must be closed with a single quote.",
	MalformedByte:         "A byte literal is 0x followed by exactly two hex digits.",
	MalformedFloat:        "A float literal is digits, a dot, digits and an optional exponent.",
	MalformedInteger:      "An integer literal does not fit in 64 bits.",
}

// LexError is returned by the lexer when the input cannot form a token. The
// cursor is positioned past the offending bytes so lexing can continue.
type LexError struct {
	Kind LexErrorKind
	Span Span
}

func (e *LexError) Title() string {
	return lexErrorTitles[e.Kind]
}

func (e *LexError) Description() string {
	return lexErrorDescriptions[e.Kind]
}

func (e *LexError) Error() string {
	return fmt.Sprintf("%s at %v", e.Title(), e.Span)
}
