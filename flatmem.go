package vmmu

import (
	"encoding/binary"
	"fmt"
)

// FlatMemory is a simple Memory backend over a contiguous byte slice,
// little-endian like the architecture it emulates. It is meant for tools
// and embeddings that keep guest memory in one allocation; it is not safe
// for concurrent use, so its compare-exchange never fails spuriously.
type FlatMemory struct {
	data []byte
}

// NewFlatMemory allocates a zeroed guest-physical memory of the given size.
func NewFlatMemory(size uint64) *FlatMemory {
	return &FlatMemory{data: make([]byte, size)}
}

// Size returns the size of the backing store in bytes.
func (m *FlatMemory) Size() uint64 { return uint64(len(m.data)) }

func (m *FlatMemory) slice(addr, width uint64) []byte {
	if addr%width != 0 {
		panic(fmt.Sprintf("vmmu: misaligned %d-byte access at %#x", width, addr))
	}
	if addr+width > uint64(len(m.data)) {
		panic(fmt.Sprintf("vmmu: access at %#x beyond memory size %#x", addr, len(m.data)))
	}
	return m.data[addr : addr+width]
}

func (m *FlatMemory) Read32(addr uint64) uint32 {
	return binary.LittleEndian.Uint32(m.slice(addr, 4))
}

func (m *FlatMemory) Read64(addr uint64) uint64 {
	return binary.LittleEndian.Uint64(m.slice(addr, 8))
}

// Write32 stores a word, e.g. to seed page tables.
func (m *FlatMemory) Write32(addr uint64, value uint32) {
	binary.LittleEndian.PutUint32(m.slice(addr, 4), value)
}

// Write64 stores a doubleword.
func (m *FlatMemory) Write64(addr uint64, value uint64) {
	binary.LittleEndian.PutUint64(m.slice(addr, 8), value)
}

func (m *FlatMemory) CompareExchange32(addr uint64, old, new uint32) bool {
	s := m.slice(addr, 4)
	if binary.LittleEndian.Uint32(s) != old {
		return false
	}
	binary.LittleEndian.PutUint32(s, new)
	return true
}

func (m *FlatMemory) CompareExchange64(addr uint64, old, new uint64) bool {
	s := m.slice(addr, 8)
	if binary.LittleEndian.Uint64(s) != old {
		return false
	}
	binary.LittleEndian.PutUint64(s, new)
	return true
}

var _ Memory = (*FlatMemory)(nil)
