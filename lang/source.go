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

import (
	"bytes"
	"fmt"
)

// -----------------------------------------------------------------------------
// Source positions
//
// A Span is a half-open byte range [Start, End) into the raw UTF-8 source.
// Every token, instruction and diagnostic carries one.

type Span struct {
	Start int
	End   int
}

func NewSpan(start, end int) Span {
	return Span{Start: start, End: end}
}

func (s Span) Len() int {
	return s.End - s.Start
}

func (s Span) Text(source []byte) string {
	if s.Start < 0 || s.End > len(source) || s.Start > s.End {
		return ""
	}
	return string(source[s.Start:s.End])
}

func (s Span) String() string {
	return fmt.Sprintf("(%d, %d)", s.Start, s.End)
}

// Position qualifies a Span with a file id for multi-file builds. The file
// table itself lives with the caller; single-file builds use file 0.
type Position struct {
	File int
	Span Span
}

// LineOf returns the 1-based line number holding the start of the span and
// the text of that line, for rendering annotated diagnostics.
func LineOf(source []byte, span Span) (int, string) {
	start := span.Start
	if start > len(source) {
		start = len(source)
	}
	line := 1 + bytes.Count(source[:start], []byte{'\n'})
	lineStart := bytes.LastIndexByte(source[:start], '\n') + 1
	lineEnd := bytes.IndexByte(source[lineStart:], '\n')
	if lineEnd < 0 {
		lineEnd = len(source)
	} else {
		lineEnd += lineStart
	}
	return line, string(source[lineStart:lineEnd])
}
