package vmmu

import (
	"fmt"
	"testing"
)

// testMemory is a guest-physical memory backend that records every
// operation the walker performs. It does not model a flat array: values
// live in a sparse word map, and reads of unbacked words fail the test.
// The operation counts make TOCTOU bugs and missing atomics visible, and
// after-read hooks let tests mutate memory at exactly the right moment to
// make a compare-exchange fail.
type testMemory struct {
	t *testing.T

	words map[uint64]uint64

	reads  map[uint64]int
	writes map[uint64]int

	// afterRead hooks run once, after the next read of their address
	// completes.
	afterRead map[uint64]func(m *testMemory)
}

func newTestMemory(t *testing.T) *testMemory {
	return &testMemory{
		t:         t,
		words:     make(map[uint64]uint64),
		reads:     make(map[uint64]int),
		writes:    make(map[uint64]int),
		afterRead: make(map[uint64]func(m *testMemory)),
	}
}

// set seeds a word without counting it as a walker operation.
func (m *testMemory) set(addr, value uint64) {
	m.words[addr] = value
}

// get peeks at a word without counting it as a walker operation.
func (m *testMemory) get(addr uint64) uint64 {
	value, ok := m.words[addr]
	if !ok {
		m.t.Fatalf("peek at unbacked memory %#x", addr)
	}
	return value
}

func (m *testMemory) checkAligned(addr, wordSize uint64) {
	if addr%wordSize != 0 {
		m.t.Fatalf("misaligned %d-byte access at %#x", wordSize, addr)
	}
}

func (m *testMemory) load(addr uint64) uint64 {
	value, ok := m.words[addr]
	if !ok {
		m.t.Fatalf("walker read unbacked memory %#x", addr)
	}
	m.reads[addr]++

	if hook, ok := m.afterRead[addr]; ok {
		delete(m.afterRead, addr)
		hook(m)
	}

	return value
}

func (m *testMemory) store(addr, value uint64) {
	m.words[addr] = value
	m.writes[addr]++
}

func (m *testMemory) Read32(addr uint64) uint32 {
	m.checkAligned(addr, 4)
	return uint32(m.load(addr))
}

func (m *testMemory) Read64(addr uint64) uint64 {
	m.checkAligned(addr, 8)
	return m.load(addr)
}

func (m *testMemory) CompareExchange32(addr uint64, old, new uint32) bool {
	m.checkAligned(addr, 4)
	if uint32(m.load(addr)) != old {
		return false
	}
	m.store(addr, uint64(new))
	return true
}

func (m *testMemory) CompareExchange64(addr uint64, old, new uint64) bool {
	m.checkAligned(addr, 8)
	if m.load(addr) != old {
		return false
	}
	m.store(addr, new)
	return true
}

// executeAfterRead schedules fn to run once, right after the next read of
// addr. Useful to lose a compare-exchange on purpose.
func (m *testMemory) executeAfterRead(addr uint64, fn func(m *testMemory)) {
	m.afterRead[addr] = fn
}

var _ Memory = (*testMemory)(nil)

// mustTranslate fails the test on a page fault.
func mustTranslate(t *testing.T, op LinearAccess, state *PagingState, mem Memory) TLBEntry {
	t.Helper()

	tlbe, err := Translate(op, state, mem)
	if err != nil {
		t.Fatalf("Translate(%#x, %v) faulted: %v", op.Addr(), op.Type(), err)
	}
	return tlbe
}

// mustFault fails the test unless translation results in a page fault.
func mustFault(t *testing.T, op LinearAccess, state *PagingState, mem Memory) *PageFault {
	t.Helper()

	_, err := Translate(op, state, mem)
	if err == nil {
		t.Fatalf("Translate(%#x, %v) succeeded, expected a page fault", op.Addr(), op.Type())
	}

	fault, ok := err.(*PageFault)
	if !ok {
		t.Fatalf("Translate returned %T, expected *PageFault", err)
	}
	return fault
}

func fmtAttr(a TLBAttr) string {
	return fmt.Sprintf("W=%v U=%v XD=%v D=%v", a.Writable(), a.User(), a.XD(), a.Dirty())
}
