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
	"math"
	"testing"
)

func TestConstantInterning(t *testing.T) {
	pool := NewConstantPool()
	a := pool.AddInteger(42)
	b := pool.AddInteger(42)
	if a != b {
		t.Fatalf("equal integers interned at %d and %d", a, b)
	}
	c := pool.AddInteger(7)
	if c == a {
		t.Fatal("distinct integers share an index")
	}
	if pool.Len() != 2 {
		t.Fatalf("pool length is %d, want 2", pool.Len())
	}
	if v, ok := pool.GetInteger(a); !ok || v != 42 {
		t.Fatalf("got %d, %t", v, ok)
	}
}

func TestConstantTypeSeparation(t *testing.T) {
	// The character 'a' and the integer 97 share a bit pattern but must
	// not share an entry.
	pool := NewConstantPool()
	char := pool.AddCharacter('a')
	integer := pool.AddInteger(97)
	if char == integer {
		t.Fatal("character and integer collided")
	}
	if pool.TagAt(char) != TYPE_CHARACTER || pool.TagAt(integer) != TYPE_INTEGER {
		t.Fatal("tags are wrong")
	}
}

func TestFloatInterningByBits(t *testing.T) {
	pool := NewConstantPool()
	a := pool.AddFloat(1.5)
	b := pool.AddFloat(1.5)
	if a != b {
		t.Fatal("equal floats interned twice")
	}
	nan1 := pool.AddFloat(math.NaN())
	nan2 := pool.AddFloat(math.NaN())
	if nan1 != nan2 {
		t.Fatal("same NaN payload interned twice")
	}
}

func TestStringSharedBuffer(t *testing.T) {
	pool := NewConstantPool()
	foo := pool.AddString("foo")
	bar := pool.AddString("bar")
	again := pool.AddString("foo")
	if foo != again {
		t.Fatal("equal strings interned twice")
	}
	if s, ok := pool.GetString(foo); !ok || s != "foo" {
		t.Fatalf("got %q, %t", s, ok)
	}
	if s, ok := pool.GetString(bar); !ok || s != "bar" {
		t.Fatalf("got %q, %t", s, ok)
	}
}

func TestPushStringToPool(t *testing.T) {
	pool := NewConstantPool()
	start, end := pool.PushStringToPool("ab")
	if start != 0 || end != 2 {
		t.Fatalf("got (%d, %d)", start, end)
	}
	// Extending the buffer tail reuses it in place.
	start, end = pool.PushStringToPool("abc")
	if start != 0 || end != 3 {
		t.Fatalf("got (%d, %d)", start, end)
	}
	index := pool.AddPooledString(start, end)
	if s, ok := pool.GetString(index); !ok || s != "abc" {
		t.Fatalf("got %q, %t", s, ok)
	}
}

func TestTrimStringPool(t *testing.T) {
	pool := NewConstantPool()
	// Scratch bytes that never become an entry are dropped by the trim.
	pool.PushStringToPool("scratch")
	foo := pool.AddString("foo")
	bar := pool.AddString("bar")
	pool.TrimStringPool()
	if len(pool.strings) != 6 {
		t.Fatalf("backing buffer is %d bytes after trim, want 6", len(pool.strings))
	}
	if s, _ := pool.GetString(foo); s != "foo" {
		t.Fatalf("foo descriptor broken after trim: %q", s)
	}
	if s, _ := pool.GetString(bar); s != "bar" {
		t.Fatalf("bar descriptor broken after trim: %q", s)
	}
}

func TestPoolEquals(t *testing.T) {
	a := NewConstantPool()
	b := NewConstantPool()
	a.AddInteger(1)
	a.AddString("x")
	b.AddInteger(1)
	b.AddString("x")
	if !a.Equals(b) {
		t.Fatal("equal pools reported unequal")
	}
	b.AddInteger(2)
	if a.Equals(b) {
		t.Fatal("unequal pools reported equal")
	}
}
