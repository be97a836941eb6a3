package vmmu

import (
	"github.com/blitz/vmmu/internal/bits"
)

// Masks applied to CR3 to find the root paging structure.
const (
	cr3MaskPM32 uint64 = 0xFFFFFFF000
	cr3MaskPM64 uint64 = ^uint64(0xFFF)
)

type levelFlags uint8

const (
	// levelTerminal marks the last level of a walk; its entries are
	// always leaves.
	levelTerminal levelFlags = 1 << iota
	// levelHasPS means entries of this level can be large-page leaves.
	levelHasPS
	// levelRespectsPSE makes the PS bit conditional on CR4.PSE.
	levelRespectsPSE
)

// walkLevel parameterizes one level of a page table walk.
type walkLevel struct {
	// Entry size in bytes: 4 for 32-bit paging, 8 for PAE and 4-level.
	wordSize uint64

	// Bits of the linear address that index this table.
	index bits.Range

	// Bits of an entry holding the next table's physical base.
	next bits.Range

	// Bits of a leaf entry holding the page frame. The low bound doubles
	// as the page size order.
	frame bits.Range

	flags levelFlags
}

// Level tables, bit-exact per Intel SDM Vol. 3 4.3 through 4.5.
var (
	pm32Levels = []walkLevel{
		{4, bits.Range{Hi: 31, Lo: 22}, bits.Range{Hi: 31, Lo: 12}, bits.Range{Hi: 31, Lo: 22}, levelHasPS | levelRespectsPSE},
		{4, bits.Range{Hi: 21, Lo: 12}, bits.Range{Hi: 31, Lo: 12}, bits.Range{Hi: 31, Lo: 12}, levelTerminal},
	}

	pm64Levels = []walkLevel{
		{8, bits.Range{Hi: 47, Lo: 39}, bits.Range{Hi: 51, Lo: 12}, bits.Range{}, 0},
		{8, bits.Range{Hi: 38, Lo: 30}, bits.Range{Hi: 51, Lo: 12}, bits.Range{Hi: 51, Lo: 30}, levelHasPS},
		{8, bits.Range{Hi: 29, Lo: 21}, bits.Range{Hi: 51, Lo: 12}, bits.Range{Hi: 51, Lo: 21}, levelHasPS},
		{8, bits.Range{Hi: 20, Lo: 12}, bits.Range{Hi: 51, Lo: 12}, bits.Range{Hi: 51, Lo: 12}, levelTerminal},
	}

	// PAE shares the lower two levels of the 4-level walk; the PDPT is
	// read from the paging state's PDPTE registers instead of memory.
	paeLevels = pm64Levels[2:]

	// PDPTE register selector and PD base bits for PAE.
	paePDPTEIndex = bits.Range{Hi: 31, Lo: 30}
	paePDBase     = bits.Range{Hi: 51, Lo: 12}
)

// isLeaf reports whether an entry of this level terminates the walk.
func (l *walkLevel) isLeaf(entry uint64, state *PagingState) bool {
	if l.flags&levelTerminal != 0 {
		return true
	}

	if l.flags&levelHasPS == 0 {
		return false
	}

	return (l.flags&levelRespectsPSE == 0 || state.CR4PSE()) && entry&PtePS != 0
}

// hasReservedBits reports whether an entry sets bits the current mode
// reserves. Not implemented yet: populating this needs the per-mode,
// per-PS tables from Intel SDM Vol. 3 4.6.
func (l *walkLevel) hasReservedBits(entry uint64, state *PagingState) bool {
	return false
}

// readEntry issues a typed read of one page table entry.
func readEntry(mem Memory, addr, wordSize uint64) uint64 {
	if wordSize == 4 {
		return uint64(mem.Read32(addr))
	}
	return mem.Read64(addr)
}

// updateEntry publishes an A/D update with the width of the level's entry.
// It reports whether the swap took, i.e. whether the entry was still
// unchanged since the walker read it.
func updateEntry(mem Memory, addr, wordSize, old, new uint64) bool {
	if wordSize == 4 {
		return mem.CompareExchange32(addr, uint32(old), uint32(new))
	}
	return mem.CompareExchange64(addr, old, new)
}

// walk descends the given levels from tableBase and either produces the
// leaf TLB entry, a page fault, or errRetry if an A/D update raced with a
// concurrent writer.
func walk(op LinearAccess, state *PagingState, mem Memory, tableBase uint64, levels []walkLevel) (TLBEntry, error) {
	attr := NewTLBAttr(true, true, false, false)

	for i := range levels {
		level := &levels[i]

		entryAddr := tableBase + level.wordSize*level.index.Extract(op.Addr())
		entry := readEntry(mem, entryAddr, level.wordSize)
		updated := entry | PteA

		if entry&PteP == 0 {
			return TLBEntry{}, pageFault(op, state, false, false)
		}
		if level.hasReservedBits(entry, state) {
			return TLBEntry{}, pageFault(op, state, true, true)
		}

		leaf := level.isLeaf(entry, state)

		// Dirty flags only exist in leaf entries.
		permBits := entry
		if !leaf {
			permBits &^= PteD
		}
		attr = CombineAttr(attr, AttrFromPTE(permBits))

		if leaf {
			order := uint8(level.frame.Lo)
			offsetMask := (uint64(1) << order) - 1
			tlbe := NewTLBEntry(op.Addr()&^offsetMask, level.frame.Masked(entry), order, attr)

			if !tlbe.Allows(op, state) {
				return TLBEntry{}, pageFault(op, state, true, false)
			}

			if op.IsWrite() {
				updated |= PteD
				tlbe.Attr().SetDirty()
			}

			if entry != updated && !updateEntry(mem, entryAddr, level.wordSize, entry, updated) {
				return TLBEntry{}, errRetry
			}

			return tlbe, nil
		}

		if entry != updated && !updateEntry(mem, entryAddr, level.wordSize, entry, updated) {
			return TLBEntry{}, errRetry
		}

		tableBase = level.next.Masked(entry)
	}

	panic("vmmu: walk ran past the terminal level")
}

// paeWalk handles the PDPTE-register root of PAE paging, then descends the
// remaining two levels like a 4-level walk.
func paeWalk(op LinearAccess, state *PagingState, mem Memory) (TLBEntry, error) {
	pdpte := state.PDPTE(paePDPTEIndex.Extract(op.Addr()))

	if pdpte&PteP == 0 {
		return TLBEntry{}, pageFault(op, state, true, false)
	}

	// No reserved-bit check here: a PDPTE with reserved bits set would
	// have faulted on the architectural PDPTE load already.

	return walk(op, state, mem, paePDBase.Masked(pdpte), paeLevels)
}

// translateOnce performs a single walk attempt in the current mode.
func translateOnce(op LinearAccess, state *PagingState, mem Memory) (TLBEntry, error) {
	switch state.Mode() {
	case ModePhys:
		return NoPagingEntry(), nil
	case ModePM32:
		return walk(op, state, mem, state.CR3()&cr3MaskPM32, pm32Levels)
	case ModePM32PAE:
		return paeWalk(op, state, mem)
	default:
		return walk(op, state, mem, state.CR3()&cr3MaskPM64, pm64Levels)
	}
}
