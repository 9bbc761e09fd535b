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
	"fmt"
	"strings"
)

// -----------------------------------------------------------------------------
// Type System

type TypeKind int

const (
	TypeNone TypeKind = iota
	TypeBool
	TypeByte
	TypeChar
	TypeFloat
	TypeInt
	TypeString
	TypeList
	TypeFunction
	// Any is internal; it stands for an unconstrained generic placeholder
	// and conforms to everything.
	TypeAny
)

type Type struct {
	Kind TypeKind

	// List element type and length. A negative length means the length is
	// not part of the type.
	Elem   *Type
	Length int

	// Function signature.
	Func *FunctionType
}

type FunctionType struct {
	ValueParameters []*Type
	ReturnType      *Type
}

// Pre-defined basic types
var (
	TNone   = &Type{Kind: TypeNone}
	TBool   = &Type{Kind: TypeBool}
	TByte   = &Type{Kind: TypeByte}
	TChar   = &Type{Kind: TypeChar}
	TFloat  = &Type{Kind: TypeFloat}
	TInt    = &Type{Kind: TypeInt}
	TString = &Type{Kind: TypeString}
	TAny    = &Type{Kind: TypeAny}
)

func ListOf(elem *Type, length int) *Type {
	return &Type{Kind: TypeList, Elem: elem, Length: length}
}

func FunctionOf(params []*Type, ret *Type) *Type {
	return &Type{Kind: TypeFunction, Func: &FunctionType{
		ValueParameters: params,
		ReturnType:      ret,
	}}
}

func (t *Type) IsNone() bool     { return t.Kind == TypeNone }
func (t *Type) IsBool() bool     { return t.Kind == TypeBool }
func (t *Type) IsByte() bool     { return t.Kind == TypeByte }
func (t *Type) IsChar() bool     { return t.Kind == TypeChar }
func (t *Type) IsFloat() bool    { return t.Kind == TypeFloat }
func (t *Type) IsInt() bool      { return t.Kind == TypeInt }
func (t *Type) IsString() bool   { return t.Kind == TypeString }
func (t *Type) IsList() bool     { return t.Kind == TypeList }
func (t *Type) IsFunction() bool { return t.Kind == TypeFunction }

func (t *Type) IsNumeric() bool {
	return t.Kind == TypeByte || t.Kind == TypeFloat || t.Kind == TypeInt
}

func (t *Type) String() string {
	switch t.Kind {
	case TypeNone:
		return "none"
	case TypeBool:
		return "bool"
	case TypeByte:
		return "byte"
	case TypeChar:
		return "char"
	case TypeFloat:
		return "float"
	case TypeInt:
		return "int"
	case TypeString:
		return "str"
	case TypeAny:
		return "any"
	case TypeList:
		if t.Length >= 0 {
			return fmt.Sprintf("[%v; %d]", t.Elem, t.Length)
		}
		return fmt.Sprintf("[%v]", t.Elem)
	case TypeFunction:
		return t.Func.String()
	}
	return "unknown"
}

func (f *FunctionType) String() string {
	params := make([]string, len(f.ValueParameters))
	for i, p := range f.ValueParameters {
		params[i] = p.String()
	}
	ret := ""
	if f.ReturnType != nil && !f.ReturnType.IsNone() {
		ret = " -> " + f.ReturnType.String()
	}
	return fmt.Sprintf("fn(%s)%s", strings.Join(params, ", "), ret)
}

// TypeConflict reports a failed conformance check.
type TypeConflict struct {
	Expected *Type
	Actual   *Type
}

func (c *TypeConflict) Error() string {
	return fmt.Sprintf("expected type %v, found %v", c.Expected, c.Actual)
}

// Check verifies that actual conforms to the expected type. There is no
// implicit widening: int and float never conform to each other.
func (t *Type) Check(actual *Type) error {
	if t.Kind == TypeAny || actual.Kind == TypeAny {
		return nil
	}
	conflict := &TypeConflict{Expected: t, Actual: actual}
	if t.Kind != actual.Kind {
		return conflict
	}
	switch t.Kind {
	case TypeList:
		if err := t.Elem.Check(actual.Elem); err != nil {
			return conflict
		}
		if t.Length >= 0 && actual.Length >= 0 && t.Length != actual.Length {
			return conflict
		}
	case TypeFunction:
		expected, found := t.Func, actual.Func
		if len(expected.ValueParameters) != len(found.ValueParameters) {
			return conflict
		}
		for i, param := range expected.ValueParameters {
			if err := param.Check(found.ValueParameters[i]); err != nil {
				return conflict
			}
		}
		if err := expected.ReturnType.Check(found.ReturnType); err != nil {
			return conflict
		}
	}
	return nil
}
