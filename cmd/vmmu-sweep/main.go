// vmmu-sweep cross-checks the access-rights logic against the page table
// walker over the whole decision space.
//
// For every combination of paging mode, CR0.WP, CR4.SMEP/SMAP, RFLAGS.AC,
// EFER.NXE, privilege level, access type and leaf permission bits it builds
// a minimal page table hierarchy, translates through the walker and
// verifies that the walk faults exactly when the access-rights check denies
// the synthetic TLB entry. Any mismatch is a bug in one of the two.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/blitz/vmmu"
)

type combo struct {
	mode                     vmmu.PagingMode
	wp, smep, smap, ac, nxe  bool
	cpl                      uint
	implicit                 bool
	typ                      vmmu.AccessType
	w, u, xd                 bool
}

func (c combo) String() string {
	return fmt.Sprintf("mode=%v wp=%v smep=%v smap=%v ac=%v nxe=%v cpl=%d implicit=%v %v w=%v u=%v xd=%v",
		c.mode, c.wp, c.smep, c.smap, c.ac, c.nxe, c.cpl, c.implicit, c.typ, c.w, c.u, c.xd)
}

func enumerate() []combo {
	bools := []bool{false, true}
	var out []combo

	for _, mode := range []vmmu.PagingMode{vmmu.ModePM32, vmmu.ModePM32PAE, vmmu.ModePM64} {
		for _, wp := range bools {
			for _, smep := range bools {
				for _, smap := range bools {
					for _, ac := range bools {
						for _, nxe := range bools {
							for _, cpl := range []uint{0, 3} {
								for _, implicit := range bools {
									for _, typ := range []vmmu.AccessType{vmmu.AccessRead, vmmu.AccessWrite, vmmu.AccessExecute} {
										if implicit && (cpl == 3 || typ == vmmu.AccessExecute) {
											continue
										}
										for _, w := range bools {
											for _, u := range bools {
												for _, xd := range bools {
													out = append(out, combo{mode, wp, smep, smap, ac, nxe, cpl, implicit, typ, w, u, xd})
												}
											}
										}
									}
								}
							}
						}
					}
				}
			}
		}
	}
	return out
}

func (c combo) state() vmmu.PagingState {
	rflags := vmmu.RflagsReserved
	if c.ac {
		rflags |= vmmu.RflagsAC
	}

	cr0 := vmmu.Cr0PG
	if c.wp {
		cr0 |= vmmu.Cr0WP
	}

	var cr4 uint64
	if c.smep {
		cr4 |= vmmu.Cr4SMEP
	}
	if c.smap {
		cr4 |= vmmu.Cr4SMAP
	}

	var efer uint64
	if c.nxe {
		efer |= vmmu.EferNXE
	}

	var pdpte [4]uint64
	switch c.mode {
	case vmmu.ModePM32PAE:
		cr4 |= vmmu.Cr4PAE
		pdpte[0] = 0x1000 | vmmu.PteP
	case vmmu.ModePM64:
		cr4 |= vmmu.Cr4PAE
		efer |= vmmu.EferLME
	}

	return vmmu.NewPagingState(rflags, cr0, 0, cr4, efer, c.cpl, pdpte)
}

// leafPTE returns the terminal entry for the combination's permission
// bits. Intermediate levels carry W and U so only the leaf restricts.
func (c combo) leafPTE() uint64 {
	pte := vmmu.PteP
	if c.w {
		pte |= vmmu.PteW
	}
	if c.u {
		pte |= vmmu.PteU
	}
	if c.xd && c.mode != vmmu.ModePM32 {
		pte |= vmmu.PteXD
	}
	return pte
}

// memory builds the smallest page table hierarchy for the mode, mapping
// linear address 0 with the combination's leaf permissions.
func (c combo) memory() *vmmu.FlatMemory {
	mem := vmmu.NewFlatMemory(1 << 20)
	inner := vmmu.PteP | vmmu.PteW | vmmu.PteU

	switch c.mode {
	case vmmu.ModePM32:
		mem.Write32(0, 0x1000|uint32(inner))
		mem.Write32(0x1000, uint32(c.leafPTE()))
	case vmmu.ModePM32PAE:
		// The PDPT lives in the paging state; the PD is at 0x1000.
		mem.Write64(0x1000, 0x2000|inner)
		mem.Write64(0x2000, c.leafPTE())
	default:
		mem.Write64(0, 0x1000|inner)
		mem.Write64(0x1000, 0x2000|inner)
		mem.Write64(0x2000, 0x3000|inner)
		mem.Write64(0x3000, c.leafPTE())
	}
	return mem
}

func (c combo) access() vmmu.LinearAccess {
	if c.implicit {
		return vmmu.NewImplicitSupervisorAccess(0, c.typ)
	}
	return vmmu.NewLinearAccess(0, c.typ)
}

func run() error {
	combos := enumerate()
	bar := progressbar.Default(int64(len(combos)), "sweeping access rights")

	var allowed, denied, mismatches int

	for _, c := range combos {
		state := c.state()
		op := c.access()

		// The walker combines the permissive intermediate levels with
		// the leaf, so the leaf attribute is the combined attribute.
		xd := c.xd && c.mode != vmmu.ModePM32
		entry := vmmu.NewTLBEntry(0, 0, 12, vmmu.NewTLBAttr(c.w, c.u, xd, false))
		want := entry.Allows(op, &state)

		_, err := vmmu.Translate(op, &state, c.memory())
		got := err == nil

		if got != want {
			mismatches++
			slog.Error("walker disagrees with access-rights check",
				"combo", c.String(), "walker", got, "allows", want)
		}

		if want {
			allowed++
		} else {
			denied++
		}

		bar.Add(1)
	}

	fmt.Printf("\n%d combinations: %d allowed, %d denied, %d mismatches\n",
		len(combos), allowed, denied, mismatches)

	if mismatches > 0 {
		return fmt.Errorf("%d mismatches between walker and access-rights check", mismatches)
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("vmmu-sweep failed", "error", err)
		os.Exit(1)
	}
}
