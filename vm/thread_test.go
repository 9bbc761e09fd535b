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
	"math"
	"testing"
)

func runSource(t *testing.T, source string) Value {
	t.Helper()
	value, err := Run("test", []byte(source))
	if err != nil {
		t.Fatalf("run %q: %v", source, err)
	}
	return value
}

func expectValue(t *testing.T, source string, expected Value) {
	t.Helper()
	value := runSource(t, source)
	if !value.Equals(expected) {
		t.Fatalf("run %q: got %s, want %s", source, value.Display(), expected.Display())
	}
}

func TestByteSaturation(t *testing.T) {
	expectValue(t, "0x00 + 0x01", ByteValue(0x01))
	expectValue(t, "0xFF + 0x01", ByteValue(0xFF))
	expectValue(t, "0x00 - 0x01", ByteValue(0x00))
	expectValue(t, "0xF0 * 0x02", ByteValue(0xFF))
}

func TestIntegerSaturation(t *testing.T) {
	expectValue(t, "9223372036854775807 + 1", IntegerValue(math.MaxInt64))
	expectValue(t, "0 - 9223372036854775807 - 2", IntegerValue(math.MinInt64))
	expectValue(t, "9223372036854775807 * 2", IntegerValue(math.MaxInt64))
	expectValue(t, "9223372036854775807 * 0 - 2", IntegerValue(-2))
}

func TestFloatSemantics(t *testing.T) {
	value := runSource(t, "1.0e308 * 10.0")
	if !math.IsInf(value.Float, 1) {
		t.Fatalf("float overflow is %v, want +inf", value.Float)
	}
	value = runSource(t, "0.0 / 0.0")
	if !math.IsNaN(value.Float) {
		t.Fatalf("0.0/0.0 is %v, want NaN", value.Float)
	}
	expectValue(t, "0.0 / 0.0 == 0.0 / 0.0", BooleanValue(false))
}

func TestIntegerDivision(t *testing.T) {
	expectValue(t, "7 / 2", IntegerValue(3))
	expectValue(t, "0 - 7 / 2", IntegerValue(-3))
	expectValue(t, "7 % 3", IntegerValue(1))
	expectValue(t, "0 - 7 % 3", IntegerValue(-1))
}

func expectFault(t *testing.T, source string, kind ErrorKind) {
	t.Helper()
	_, err := Run("test", []byte(source))
	if err == nil {
		t.Fatalf("run %q: expected a fault", source)
	}
	runtimeError, ok := err.(*Error)
	if !ok {
		t.Fatalf("run %q: unexpected error type %T: %v", source, err, err)
	}
	if runtimeError.Kind != kind {
		t.Fatalf("run %q: fault is %v, want kind %d", source, runtimeError, kind)
	}
}

func TestDivisionByZeroFaults(t *testing.T) {
	expectFault(t, "1 / 0", DivisionByZero)
	expectFault(t, "1 % 0", DivisionByZero)
	expectFault(t, "0xFF / 0x00", DivisionByZero)
	// The fault carries the span of the faulting instruction.
	_, err := Run("test", []byte("1 / 0"))
	fault := err.(*Error)
	if fault.Span.Len() == 0 {
		t.Fatal("fault span is empty")
	}
}

func TestStringComparisons(t *testing.T) {
	expectValue(t, `"abc" == "abc"`, BooleanValue(true))
	expectValue(t, `"abc" == "abd"`, BooleanValue(false))
	expectValue(t, `"abc" < "abd"`, BooleanValue(true))
	expectValue(t, `"b" > "aaaa"`, BooleanValue(true))
	expectValue(t, `"abc" <= "abc"`, BooleanValue(true))
}

func TestStringConcatenation(t *testing.T) {
	expectValue(t, `"foo" + "bar"`, StringValue("foobar"))
	expectValue(t, `"foo" + 'q'`, StringValue("fooq"))
	expectValue(t, `'q' + "foo"`, StringValue("qfoo"))
	expectValue(t, `'a' + 'b'`, StringValue("ab"))
}

func TestListValue(t *testing.T) {
	value := runSource(t, "[1, 2, 3]")
	if value.Type.Name() != "LIST" || len(value.List.Items) != 3 {
		t.Fatalf("got %s", value.Display())
	}
	if value.Display() != "[1, 2, 3]" {
		t.Fatalf("display is %q", value.Display())
	}
	empty := runSource(t, "[]")
	if len(empty.List.Items) != 0 {
		t.Fatalf("empty list has %d items", len(empty.List.Items))
	}
}

func TestNegation(t *testing.T) {
	expectValue(t, "let a = 5; -a", IntegerValue(-5))
	expectValue(t, "let f = 2.5; -f", FloatValue(-2.5))
	expectValue(t, "!true", BooleanValue(false))
	expectValue(t, "!false", BooleanValue(true))
}

func TestSaturatingHelpers(t *testing.T) {
	if saturatingAdd(math.MaxInt64, math.MaxInt64) != math.MaxInt64 {
		t.Fatal("add does not saturate high")
	}
	if saturatingAdd(math.MinInt64, math.MinInt64) != math.MinInt64 {
		t.Fatal("add does not saturate low")
	}
	if saturatingSubtract(math.MinInt64, 1) != math.MinInt64 {
		t.Fatal("subtract does not saturate low")
	}
	if saturatingSubtract(math.MaxInt64, -1) != math.MaxInt64 {
		t.Fatal("subtract does not saturate high")
	}
	if saturatingMultiply(math.MinInt64, -1) != math.MaxInt64 {
		t.Fatal("multiply does not saturate MinInt64 * -1")
	}
	if saturatingMultiply(math.MaxInt64/2, 3) != math.MaxInt64 {
		t.Fatal("multiply does not saturate high")
	}
	if saturatingMultiply(math.MaxInt64, math.MinInt64) != math.MinInt64 {
		t.Fatal("multiply does not saturate low")
	}
	if saturatingMultiply(6, 7) != 42 {
		t.Fatal("multiply is wrong in range")
	}
}
