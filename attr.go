package vmmu

// TLBAttr packs the permission bits attached to a translation: writable,
// user accessible, execute disable and dirty. XD and D are stored inverted
// so that combining the attributes of two page-table levels reduces to a
// single AND: W and U combine restrictively, XD and D permissively.
type TLBAttr struct {
	pte uint64
}

// AttrFromPTE builds an attribute from a raw page-table entry. Only the W,
// U, XD and D bits are meaningful; for 32-bit entry formats the (absent)
// XD bit reads as zero after widening.
func AttrFromPTE(pte uint64) TLBAttr {
	return TLBAttr{pte: pte ^ (PteD | PteXD)}
}

// NewTLBAttr builds an attribute from individual permission bits.
func NewTLBAttr(w, u, xd, d bool) TLBAttr {
	var pte uint64
	if w {
		pte |= PteW
	}
	if u {
		pte |= PteU
	}
	if xd {
		pte |= PteXD
	}
	if d {
		pte |= PteD
	}
	return AttrFromPTE(pte)
}

// NoPagingAttr is the attribute attached to translations while paging is
// disabled: everything is allowed and the entry is pre-dirtied so writes
// never trigger page table walks.
func NoPagingAttr() TLBAttr {
	return NewTLBAttr(true, true, false, true)
}

func (a TLBAttr) Writable() bool { return a.pte&PteW != 0 }
func (a TLBAttr) User() bool     { return a.pte&PteU != 0 }
func (a TLBAttr) XD() bool       { return ^a.pte&PteXD != 0 }
func (a TLBAttr) Dirty() bool    { return ^a.pte&PteD != 0 }

// SetDirty marks the attribute dirty.
func (a *TLBAttr) SetDirty() {
	a.pte &^= PteD
}

// CombineAttr merges the attributes of two page-table levels: the result is
// writable and user-accessible only if both inputs are, and execute-disabled
// or dirty if either input is. The inverted storage makes this a single AND.
func CombineAttr(a, b TLBAttr) TLBAttr {
	return TLBAttr{pte: a.pte & b.pte}
}
