package vmmu

import (
	"errors"
	"fmt"
)

// PageFault describes a failed translation: the faulting linear address
// (delivered in CR2) and the page-fault error code pushed by the CPU.
type PageFault struct {
	Addr uint64
	Code uint32
}

func (f *PageFault) Error() string {
	return fmt.Sprintf("page fault at %#x (error code %#x)", f.Addr, f.Code)
}

// errRetry signals that a compare-exchange lost against a concurrent page
// table update and the walk must restart from the top. It never escapes
// Translate.
var errRetry = errors.New("translation raced with a page table update")

// pageFault assembles fault information according to Intel SDM Vol. 3 4.7
// "Page-Fault Exceptions".
func pageFault(op LinearAccess, state *PagingState, present, reservedBits bool) *PageFault {
	var code uint32

	if present {
		code |= EcP
	}

	if op.IsWrite() {
		code |= EcW
	}

	if !(op.IsImplicitSupervisor() || state.IsSupervisor()) {
		code |= EcU
	}

	if present && reservedBits {
		code |= EcRSVD
	}

	// The fetch bit is only reported when the CPU can tell fetches apart
	// from data reads.
	if op.IsFetch() && (state.CR4SMEP() || (state.CR4PAE() && state.EferNXE())) {
		code |= EcI
	}

	return &PageFault{Addr: op.Addr(), Code: code}
}
