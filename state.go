package vmmu

import "fmt"

// PagingMode identifies one of the four x86 translation regimes.
type PagingMode int

const (
	// ModePhys means paging is disabled.
	ModePhys PagingMode = iota
	// ModePM32 is classic 32-bit paging.
	ModePM32
	// ModePM32PAE is 32-bit mode with 64-bit page tables.
	ModePM32PAE
	// ModePM64 is 4-level 64-bit paging.
	ModePM64
)

func (m PagingMode) String() string {
	switch m {
	case ModePhys:
		return "PHYS"
	case ModePM32:
		return "PM32"
	case ModePM32PAE:
		return "PM32_PAE"
	case ModePM64:
		return "PM64_4LEVEL"
	}
	return fmt.Sprintf("PagingMode(%d)", int(m))
}

// PagingState is an immutable snapshot of the CPU state that drives address
// translation. Build one per translation from the live register file.
type PagingState struct {
	cr3   uint64
	pdpte [4]uint64

	cr0WP, cr0PG   bool
	cr4PSE, cr4PAE bool
	cr4SMEP        bool
	cr4SMAP        bool

	eferLME, eferNXE bool

	rflagsAC bool

	// Whether CPL indicates supervisor mode. Unrelated to implicit
	// supervisor accesses.
	supervisor bool
}

// NewPagingState captures the translation-relevant bits of the control
// registers. The pdpte values are only consulted in PAE mode; they hold the
// architectural PDPTE registers loaded on the last MOV to CR3. Panics if
// cpl is not a valid privilege level.
func NewPagingState(rflags, cr0, cr3, cr4, efer uint64, cpl uint, pdpte [4]uint64) PagingState {
	if cpl > 3 {
		panic(fmt.Sprintf("vmmu: invalid CPL %d", cpl))
	}

	return PagingState{
		cr3:        cr3,
		pdpte:      pdpte,
		cr0WP:      cr0&Cr0WP != 0,
		cr0PG:      cr0&Cr0PG != 0,
		cr4PSE:     cr4&Cr4PSE != 0,
		cr4PAE:     cr4&Cr4PAE != 0,
		cr4SMEP:    cr4&Cr4SMEP != 0,
		cr4SMAP:    cr4&Cr4SMAP != 0,
		eferLME:    efer&EferLME != 0,
		eferNXE:    efer&EferNXE != 0,
		rflagsAC:   rflags&RflagsAC != 0,
		supervisor: cpl != 3,
	}
}

// Mode derives the paging mode as per Intel SDM Vol. 3 4.1.1 "Three Paging
// Modes" (which are actually four). The conditions are spelled out to match
// the manual.
func (s *PagingState) Mode() PagingMode {
	if !s.cr0PG {
		return ModePhys
	}

	if s.cr0PG && !s.cr4PAE {
		return ModePM32
	}

	if s.cr0PG && s.cr4PAE && !s.eferLME {
		return ModePM32PAE
	}

	return ModePM64
}

// CR3 returns the raw CR3 value.
func (s *PagingState) CR3() uint64 { return s.cr3 }

// PDPTE returns the i-th architectural PDPTE register. Panics if i > 3.
func (s *PagingState) PDPTE(i uint64) uint64 { return s.pdpte[i] }

func (s *PagingState) CR0WP() bool    { return s.cr0WP }
func (s *PagingState) CR0PG() bool    { return s.cr0PG }
func (s *PagingState) CR4PSE() bool   { return s.cr4PSE }
func (s *PagingState) CR4PAE() bool   { return s.cr4PAE }
func (s *PagingState) CR4SMEP() bool  { return s.cr4SMEP }
func (s *PagingState) CR4SMAP() bool  { return s.cr4SMAP }
func (s *PagingState) EferNXE() bool  { return s.eferNXE }
func (s *PagingState) RflagsAC() bool { return s.rflagsAC }

// IsSupervisor reports whether the snapshot's CPL indicates supervisor
// mode (CPL != 3).
func (s *PagingState) IsSupervisor() bool { return s.supervisor }
