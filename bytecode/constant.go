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

	"dust/utils"
)

// -----------------------------------------------------------------------------
// Constant pool
//
// Interned character, float, integer and string constants addressed by 16-bit
// indices. Each entry is a packed 64-bit payload plus a type tag; strings
// share one backing buffer and their payload is a (start, end) descriptor
// into it. Entries are deduplicated by content hash and keep insertion order.

type ConstantPool struct {
	payloads []uint64
	tags     []OperandType
	index    map[uint64]uint16
	strings  []byte
}

func NewConstantPool() *ConstantPool {
	return &ConstantPool{index: make(map[uint64]uint16)}
}

func (pool *ConstantPool) Len() int {
	return len(pool.payloads)
}

func (pool *ConstantPool) TagAt(index uint16) OperandType {
	if int(index) >= len(pool.tags) {
		return TYPE_NONE
	}
	return pool.tags[index]
}

// contentHash is FNV-1a over the payload bytes, seeded per tag so equal bit
// patterns of different types never collide into one entry.
func contentHash(tag OperandType, data []byte) uint64 {
	hash := uint64(14695981039346656037) ^ uint64(tag)*31
	for _, b := range data {
		hash ^= uint64(b)
		hash *= 1099511628211
	}
	return hash
}

func payloadBytes(payload uint64) []byte {
	var data [8]byte
	for i := 0; i < 8; i++ {
		data[i] = byte(payload >> (8 * i))
	}
	return data[:]
}

func (pool *ConstantPool) insert(tag OperandType, hash, payload uint64) uint16 {
	if existing, found := pool.index[hash]; found {
		return existing
	}
	index := uint16(len(pool.payloads))
	pool.payloads = append(pool.payloads, payload)
	pool.tags = append(pool.tags, tag)
	pool.index[hash] = index
	return index
}

func (pool *ConstantPool) AddCharacter(character rune) uint16 {
	payload := uint64(uint32(character))
	hash := contentHash(TYPE_CHARACTER, payloadBytes(payload))
	return pool.insert(TYPE_CHARACTER, hash, payload)
}

func (pool *ConstantPool) GetCharacter(index uint16) (rune, bool) {
	if int(index) >= len(pool.payloads) || pool.tags[index] != TYPE_CHARACTER {
		return 0, false
	}
	return rune(uint32(pool.payloads[index])), true
}

// AddFloat interns by bit pattern, so 0.0 and -0.0 are distinct entries and
// NaN payloads dedupe only against themselves.
func (pool *ConstantPool) AddFloat(float float64) uint16 {
	payload := math.Float64bits(float)
	hash := contentHash(TYPE_FLOAT, payloadBytes(payload))
	return pool.insert(TYPE_FLOAT, hash, payload)
}

func (pool *ConstantPool) GetFloat(index uint16) (float64, bool) {
	if int(index) >= len(pool.payloads) || pool.tags[index] != TYPE_FLOAT {
		return 0, false
	}
	return math.Float64frombits(pool.payloads[index]), true
}

func (pool *ConstantPool) AddInteger(integer int64) uint16 {
	payload := uint64(integer)
	hash := contentHash(TYPE_INTEGER, payloadBytes(payload))
	return pool.insert(TYPE_INTEGER, hash, payload)
}

func (pool *ConstantPool) GetInteger(index uint16) (int64, bool) {
	if int(index) >= len(pool.payloads) || pool.tags[index] != TYPE_INTEGER {
		return 0, false
	}
	return int64(pool.payloads[index]), true
}

func stringPayload(start, end uint32) uint64 {
	return uint64(start)<<32 | uint64(end)
}

func (pool *ConstantPool) AddString(str string) uint16 {
	hash := contentHash(TYPE_STRING, []byte(str))
	if existing, found := pool.index[hash]; found {
		return existing
	}
	start := uint32(len(pool.strings))
	pool.strings = append(pool.strings, str...)
	end := uint32(len(pool.strings))
	return pool.insert(TYPE_STRING, hash, stringPayload(start, end))
}

func (pool *ConstantPool) GetString(index uint16) (string, bool) {
	if int(index) >= len(pool.payloads) || pool.tags[index] != TYPE_STRING {
		return "", false
	}
	payload := pool.payloads[index]
	start := uint32(payload >> 32)
	end := uint32(payload)
	return string(pool.strings[start:end]), true
}

// PushStringToPool appends bytes to the shared backing buffer without
// creating a pool entry, for compiler-time string building. When the new
// content extends the current buffer tail the tail is reused in place, so a
// chain of concatenations grows one buffer instead of copying each step.
func (pool *ConstantPool) PushStringToPool(str string) (uint32, uint32) {
	hash := contentHash(TYPE_STRING, []byte(str))
	if existing, found := pool.index[hash]; found {
		payload := pool.payloads[existing]
		return uint32(payload >> 32), uint32(payload)
	}
	if len(str) >= len(pool.strings) && str[:len(pool.strings)] == string(pool.strings) {
		pool.strings = append(pool.strings[:0], str...)
		return 0, uint32(len(str))
	}
	start := uint32(len(pool.strings))
	pool.strings = append(pool.strings, str...)
	return start, uint32(len(pool.strings))
}

// AddPooledString creates a pool entry for a (start, end) range produced by
// PushStringToPool.
func (pool *ConstantPool) AddPooledString(start, end uint32) uint16 {
	str := string(pool.strings[start:end])
	hash := contentHash(TYPE_STRING, []byte(str))
	if existing, found := pool.index[hash]; found {
		return existing
	}
	return pool.insert(TYPE_STRING, hash, stringPayload(start, end))
}

// TrimStringPool compacts the backing buffer to exactly the live string
// entries, rewriting every descriptor payload. Called once at the end of
// compilation; PushStringToPool scratch space is discarded here.
func (pool *ConstantPool) TrimStringPool() {
	trimmed := make([]byte, 0, len(pool.strings))
	for i, tag := range pool.tags {
		if tag != TYPE_STRING {
			continue
		}
		payload := pool.payloads[i]
		start := uint32(payload >> 32)
		end := uint32(payload)
		newStart := uint32(len(trimmed))
		trimmed = append(trimmed, pool.strings[start:end]...)
		newEnd := uint32(len(trimmed))
		pool.payloads[i] = stringPayload(newStart, newEnd)
	}
	pool.strings = trimmed
}

// Equals compares pool contents entry by entry, ignoring buffer layout.
func (pool *ConstantPool) Equals(other *ConstantPool) bool {
	if pool.Len() != other.Len() {
		return false
	}
	for i := range pool.tags {
		if pool.tags[i] != other.tags[i] {
			return false
		}
		index := uint16(i)
		if pool.tags[i] == TYPE_STRING {
			a, _ := pool.GetString(index)
			b, _ := other.GetString(index)
			if a != b {
				return false
			}
		} else if pool.payloads[i] != other.payloads[i] {
			return false
		}
	}
	return true
}

// Describe renders the constant at index for disassembly.
func (pool *ConstantPool) Describe(index uint16) string {
	utils.Assert(int(index) < len(pool.tags), "constant index %d out of bounds", index)
	switch pool.tags[index] {
	case TYPE_CHARACTER:
		c, _ := pool.GetCharacter(index)
		return "'" + string(c) + "'"
	case TYPE_FLOAT:
		f, _ := pool.GetFloat(index)
		return formatFloat(f)
	case TYPE_INTEGER:
		v, _ := pool.GetInteger(index)
		return formatInteger(v)
	case TYPE_STRING:
		s, _ := pool.GetString(index)
		return "\"" + s + "\""
	}
	utils.ShouldNotReachHere()
	return ""
}
