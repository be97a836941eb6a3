package vmmu

import "fmt"

// TLBEntry maps a power-of-two, naturally aligned linear memory region to
// physical memory, with the combined permission attribute of the walk that
// produced it.
type TLBEntry struct {
	linearAddr uint64
	physAddr   uint64
	attr       TLBAttr
	sizeBits   uint8
}

// NewTLBEntry builds an entry covering 2^sizeBits bytes at linearAddr.
// Panics if physAddr is not aligned to the region size or sizeBits is out
// of range.
func NewTLBEntry(linearAddr, physAddr uint64, sizeBits uint8, attr TLBAttr) TLBEntry {
	e := TLBEntry{
		linearAddr: linearAddr,
		physAddr:   physAddr,
		attr:       attr,
		sizeBits:   sizeBits,
	}

	if sizeBits > 63 {
		panic(fmt.Sprintf("vmmu: TLB entry size 2^%d out of range", sizeBits))
	}
	if ^e.MatchMask()&physAddr != 0 {
		panic(fmt.Sprintf("vmmu: misaligned physical address %#x for 2^%d region", physAddr, sizeBits))
	}

	return e
}

// NoPagingEntry identity-maps the lower 2^63 bytes of the address space
// with everything allowed; addresses with bit 63 set fall outside it. It is
// the translation result while paging is disabled.
func NoPagingEntry() TLBEntry {
	return NewTLBEntry(0, 0, 63, NoPagingAttr())
}

// LinearAddr returns the base of the mapped linear region.
func (e *TLBEntry) LinearAddr() uint64 { return e.linearAddr }

// PhysAddr returns the base of the backing physical region.
func (e *TLBEntry) PhysAddr() uint64 { return e.physAddr }

// Attr returns the entry's permission attribute. The pointer is live: the
// walker uses it to mark entries dirty.
func (e *TLBEntry) Attr() *TLBAttr { return &e.attr }

// Size returns the size of the mapped region in bytes.
func (e *TLBEntry) Size() uint64 { return uint64(1) << e.sizeBits }

// MatchMask returns the mask selecting the bits of a linear address that
// must equal LinearAddr for this entry to apply.
func (e *TLBEntry) MatchMask() uint64 { return ^(e.Size() - 1) }

// Translate maps la through the entry. The second return value reports
// whether la falls inside the mapped region.
func (e *TLBEntry) Translate(la uint64) (uint64, bool) {
	mask := e.MatchMask()

	if la&mask != e.linearAddr {
		return 0, false
	}
	return (la &^ mask) | e.physAddr, true
}
