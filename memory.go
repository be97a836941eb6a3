package vmmu

// Memory is the guest-physical memory the walker reads page tables from.
// All addresses are naturally aligned to the word size. The backend is
// trusted: it must not return torn values or report a compare-exchange as
// successful without performing it. It may surface concurrent modification
// by another vCPU or the guest itself by failing a compare-exchange, which
// makes the walker retry the translation from the top.
type Memory interface {
	Read32(addr uint64) uint32
	Read64(addr uint64) uint64

	// CompareExchange32 atomically replaces the word at addr with new if
	// it still holds old, and reports whether the swap happened.
	CompareExchange32(addr uint64, old, new uint32) bool
	CompareExchange64(addr uint64, old, new uint64) bool
}
