package vmmu

// Control register, EFER and RFLAGS bits relevant to address translation.
// See Intel SDM Vol. 3 4.1 "Paging Modes and Control Bits".
const (
	RflagsReserved uint64 = 1 << 1 // always set in RFLAGS
	RflagsAC       uint64 = 1 << 18

	Cr0WP uint64 = 1 << 16
	Cr0PG uint64 = 1 << 31

	Cr4PSE   uint64 = 1 << 4
	Cr4PAE   uint64 = 1 << 5
	Cr4PGE   uint64 = 1 << 7
	Cr4PCIDE uint64 = 1 << 17
	Cr4SMEP  uint64 = 1 << 20
	Cr4SMAP  uint64 = 1 << 21
	Cr4PKE   uint64 = 1 << 22

	EferLME uint64 = 1 << 8
	EferNXE uint64 = 1 << 11
)

// Page table entry flags. The same bit positions apply to all paging
// structures; XD exists only in 64-bit entry formats.
const (
	PteP  uint64 = 1 << 0  // Present
	PteW  uint64 = 1 << 1  // Writable
	PteU  uint64 = 1 << 2  // User accessible
	PteA  uint64 = 1 << 5  // Accessed
	PteD  uint64 = 1 << 6  // Dirty
	PtePS uint64 = 1 << 7  // Page size (large page in non-terminal levels)
	PteXD uint64 = 1 << 63 // Execute disable
)

// Page fault error code bits. See Intel SDM Vol. 3 4.7 "Page-Fault
// Exceptions".
const (
	EcP    uint32 = 1 << 0 // Page was present
	EcW    uint32 = 1 << 1 // Access was a write
	EcU    uint32 = 1 << 2 // Access was a user access
	EcRSVD uint32 = 1 << 3 // A reserved bit was set in a paging structure
	EcI    uint32 = 1 << 4 // Access was an instruction fetch
)
