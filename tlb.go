package vmmu

import "fmt"

type tlbSlot struct {
	valid bool
	entry TLBEntry
}

// TLB is a small fully-associative translation cache with FIFO replacement.
// It is owned by a single vCPU context and is not safe for concurrent use.
type TLB struct {
	slots []tlbSlot
	pos   int
}

// NewTLB creates an empty TLB with the given number of slots. Panics if
// size is not at least 2.
func NewTLB(size int) *TLB {
	if size < 2 {
		panic(fmt.Sprintf("vmmu: TLB size %d too small", size))
	}
	return &TLB{slots: make([]tlbSlot, size)}
}

// Clear resets the TLB to its pristine empty state. Call it when the
// embedding CPU switches CR3 or executes a TLB invalidation.
func (t *TLB) Clear() {
	for i := range t.slots {
		t.slots[i] = tlbSlot{}
	}
	t.pos = 0
}

// Translate behaves like the package-level Translate but caches successful
// translations. A cached entry satisfies an access only if it covers the
// address and the access-rights check passes under the given state; hits do
// not reorder the cache. A hit does not touch memory, so a write that hits
// a cached entry without the dirty bit leaves the page table's D bit as it
// is. Faults are never cached.
func (t *TLB) Translate(op LinearAccess, state *PagingState, mem Memory) (TLBEntry, error) {
	n := len(t.slots)

	for i := 0; i < n; i++ {
		slot := &t.slots[(t.pos+i)%n]
		if !slot.valid {
			continue
		}

		if _, ok := slot.entry.Translate(op.Addr()); ok && slot.entry.Allows(op, state) {
			return slot.entry, nil
		}
	}

	tlbe, err := Translate(op, state, mem)
	if err != nil {
		return TLBEntry{}, err
	}

	t.pos = (t.pos - 1 + n) % n
	t.slots[t.pos] = tlbSlot{valid: true, entry: tlbe}

	return tlbe, nil
}
