// Package vmmu emulates linear-to-physical address translation for the
// x86/x86-64 architecture as specified in Intel SDM Vol. 3 Chapter 4.
//
// Given a snapshot of the translation-relevant CPU state and a guest
// physical memory backend, Translate performs a hardware-faithful page
// table walk: it honors all four paging modes, determines access rights
// including SMEP/SMAP/NXE and CR0.WP, and maintains accessed/dirty bits
// with compare-exchange so races with concurrent page table writers are
// detected and retried instead of lost. TLB adds a small fully-associative
// translation cache on top.
package vmmu

// Translate resolves one linear memory access against the given CPU state.
//
// On success it returns a TLB entry that translates the access and is
// guaranteed to allow it. On failure it returns a *PageFault carrying CR2
// and the architectural error code. A/D updates that lose against a
// concurrent page table writer are retried internally by re-walking from
// the top, so a raced walk never leaks partial state to the caller.
func Translate(op LinearAccess, state *PagingState, mem Memory) (TLBEntry, error) {
	for {
		tlbe, err := translateOnce(op, state, mem)
		if err != errRetry {
			return tlbe, err
		}
	}
}
