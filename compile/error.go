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
package compile

import (
	"fmt"

	"dust/lang"
)

type ErrorKind int

const (
	// Token stream
	ExpectedToken ErrorKind = iota
	ExpectedTokenMultiple

	// Parsing
	CannotChainComparison
	ExpectedBoolean
	ExpectedExpression
	ExpectedFunction
	ExpectedFunctionType
	InvalidAssignmentTarget
	UnexpectedReturn

	// Variables
	CannotMutateImmutableVariable
	ExpectedMutableVariable
	UndeclaredVariable
	VariableOutOfScope

	// Type checks
	CannotAddType
	CannotAddArguments
	CannotSubtractType
	CannotSubtractArguments
	CannotMultiplyType
	CannotMultiplyArguments
	CannotDivideType
	CannotDivideArguments
	CannotModuloType
	CannotModuloArguments
	CannotCompareArguments
	CannotNegateType
	CannotResolveRegisterType
	CannotResolveVariableType
	IfElseBranchMismatch
	IfMissingElse
	ListItemTypeConflict
	ReturnTypeConflict

	// Chunk limits
	ConstantIndexOutOfBounds
	InstructionIndexOutOfBounds
	LocalIndexOutOfBounds

	// Lifted lex errors
	Lex
)

var errorTitles = map[ErrorKind]string{
	ExpectedToken:                 "Expected a specific token",
	ExpectedTokenMultiple:         "Expected one of several tokens",
	CannotChainComparison:         "Cannot chain comparison operations",
	ExpectedBoolean:               "Expected a boolean",
	ExpectedExpression:            "Expected an expression",
	ExpectedFunction:              "Expected a function",
	ExpectedFunctionType:          "Expected a function type",
	InvalidAssignmentTarget:       "Invalid assignment target",
	UnexpectedReturn:              "Unexpected return",
	CannotMutateImmutableVariable: "Cannot mutate immutable variable",
	ExpectedMutableVariable:       "Expected a mutable variable",
	UndeclaredVariable:            "Undeclared variable",
	VariableOutOfScope:            "Variable out of scope",
	CannotAddType:                 "Cannot add to this type",
	CannotAddArguments:            "Cannot add these types",
	CannotSubtractType:            "Cannot subtract from this type",
	CannotSubtractArguments:       "Cannot subtract these types",
	CannotMultiplyType:            "Cannot multiply this type",
	CannotMultiplyArguments:       "Cannot multiply these types",
	CannotDivideType:              "Cannot divide this type",
	CannotDivideArguments:         "Cannot divide these types",
	CannotModuloType:              "Cannot modulo this type",
	CannotModuloArguments:         "Cannot modulo these types",
	CannotCompareArguments:        "Cannot compare these types",
	CannotNegateType:              "Cannot negate this type",
	CannotResolveRegisterType:     "Cannot resolve register type",
	CannotResolveVariableType:     "Cannot resolve variable type",
	IfElseBranchMismatch:          "If and else branches have different types",
	IfMissingElse:                 "If statement is missing an else branch",
	ListItemTypeConflict:          "List items have different types",
	ReturnTypeConflict:            "Return type conflict",
	ConstantIndexOutOfBounds:      "Constant index out of bounds",
	InstructionIndexOutOfBounds:   "Instruction index out of bounds",
	LocalIndexOutOfBounds:         "Local index out of bounds",
	Lex:                           "Lex error",
}

var errorDescriptions = map[ErrorKind]string{
	ExpectedToken:                 "The parser found a token it did not expect here.",
	ExpectedTokenMultiple:         "The parser found a token it did not expect here.",
	CannotChainComparison:         "The result of a comparison cannot be compared again without parentheses.",
	ExpectedBoolean:               "This position requires a value of type bool.",
	ExpectedExpression:            "This position requires an expression that produces a value.",
	ExpectedFunction:              "Only values of a function type can be called.",
	ExpectedFunctionType:          "The call does not match the function's signature.",
	InvalidAssignmentTarget:       "Only variables can be assigned to.",
	UnexpectedReturn:              "A return statement is only allowed inside a function body.",
	CannotMutateImmutableVariable: "The variable was declared without 'mut' and cannot be reassigned.",
	ExpectedMutableVariable:       "This operation requires a variable declared with 'mut'.",
	UndeclaredVariable:            "No variable with this name has been declared.",
	VariableOutOfScope:            "The variable exists but its scope has already closed.",
	CannotAddType:                 "Values of this type cannot be used with the + operator.",
	CannotAddArguments:            "The + operator is not defined for this combination of types.",
	CannotSubtractType:            "Values of this type cannot be used with the - operator.",
	CannotSubtractArguments:       "The - operator is not defined for this combination of types.",
	CannotMultiplyType:            "Values of this type cannot be used with the * operator.",
	CannotMultiplyArguments:       "The * operator is not defined for this combination of types.",
	CannotDivideType:              "Values of this type cannot be used with the / operator.",
	CannotDivideArguments:         "The / operator is not defined for this combination of types.",
	CannotModuloType:              "Values of this type cannot be used with the % operator.",
	CannotModuloArguments:         "The % operator is not defined for this combination of types.",
	CannotCompareArguments:        "Comparison operators require two values of the same comparable type.",
	CannotNegateType:              "Only numeric values can be negated.",
	CannotResolveRegisterType:     "The compiler could not determine a register type for this value.",
	CannotResolveVariableType:     "The variable's declared type conflicts with its value.",
	IfElseBranchMismatch:          "Both branches of an if/else expression must produce the same type.",
	IfMissingElse:                 "An if expression that produces a value requires an else branch.",
	ListItemTypeConflict:          "Every item of a list literal must have the same type.",
	ReturnTypeConflict:            "The returned value does not match the declared return type.",
	ConstantIndexOutOfBounds:      "The chunk's constant pool is limited to 65536 entries.",
	InstructionIndexOutOfBounds:   "The chunk's instruction vector is limited to 65536 entries.",
	LocalIndexOutOfBounds:         "The chunk's local table is limited to 65536 entries.",
	Lex:                           "The source could not be tokenized.",
}

// Snippet is one annotated source excerpt of an error report.
type Snippet struct {
	Message string
	Span    lang.Span
}

// Error is a compile error: a kind, the offending span, and optional detail
// and help snippets pointing at the spans that explain the conflict.
type Error struct {
	Kind     ErrorKind
	Span     lang.Span
	Message  string
	Details  []Snippet
	Help     []Snippet
	LexCause *lang.LexError
}

func (e *Error) Title() string {
	if e.Kind == Lex && e.LexCause != nil {
		return e.LexCause.Title()
	}
	return errorTitles[e.Kind]
}

func (e *Error) Description() string {
	if e.Kind == Lex && e.LexCause != nil {
		return e.LexCause.Description()
	}
	return errorDescriptions[e.Kind]
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s at %v", e.Title(), e.Message, e.Span)
	}
	return fmt.Sprintf("%s at %v", e.Title(), e.Span)
}

func errorAt(kind ErrorKind, span lang.Span, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Span: span, Message: fmt.Sprintf(format, args...)}
}

func liftLexError(err error) error {
	if lexError, ok := err.(*lang.LexError); ok {
		return &Error{Kind: Lex, Span: lexError.Span, LexCause: lexError}
	}
	return err
}
