// vmmu-walk replays YAML-described machine snapshots through the MMU.
//
// A scenario file holds the translation-relevant registers, a sparse
// physical memory image and a list of accesses:
//
//	name: pm32 write
//	cpu:
//	  rflags: 0x2
//	  cr0: 0x80000000
//	memory:
//	  - { addr: 0x0, width: 32, value: 0x1003 }
//	  - { addr: 0x1000, width: 32, value: 0x3 }
//	accesses:
//	  - { addr: 0x0, type: write }
//
// Each access is translated and the resulting mapping or page fault is
// printed, optionally through a TLB to observe caching behavior.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/blitz/vmmu"
)

type cpuSpec struct {
	Rflags uint64    `yaml:"rflags"`
	CR0    uint64    `yaml:"cr0"`
	CR3    uint64    `yaml:"cr3"`
	CR4    uint64    `yaml:"cr4"`
	EFER   uint64    `yaml:"efer"`
	CPL    uint      `yaml:"cpl"`
	PDPTE  [4]uint64 `yaml:"pdpte"`
}

type wordSpec struct {
	Addr  uint64 `yaml:"addr"`
	Width int    `yaml:"width"`
	Value uint64 `yaml:"value"`
}

type accessSpec struct {
	Addr     uint64 `yaml:"addr"`
	Type     string `yaml:"type"`
	Implicit bool   `yaml:"implicit"`
}

type scenario struct {
	Name     string       `yaml:"name"`
	MemSize  uint64       `yaml:"mem_size"`
	CPU      cpuSpec      `yaml:"cpu"`
	Memory   []wordSpec   `yaml:"memory"`
	Accesses []accessSpec `yaml:"accesses"`
}

func parseAccessType(name string) (vmmu.AccessType, error) {
	switch name {
	case "read", "":
		return vmmu.AccessRead, nil
	case "write":
		return vmmu.AccessWrite, nil
	case "execute", "fetch":
		return vmmu.AccessExecute, nil
	}
	return 0, fmt.Errorf("unknown access type %q", name)
}

const defaultMemSize = 64 << 20

func loadScenario(path string) (*scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var s scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if s.MemSize == 0 {
		s.MemSize = defaultMemSize
	}
	return &s, nil
}

func (s *scenario) buildMemory() (*vmmu.FlatMemory, error) {
	mem := vmmu.NewFlatMemory(s.MemSize)

	for _, w := range s.Memory {
		switch w.Width {
		case 0, 32:
			mem.Write32(w.Addr, uint32(w.Value))
		case 64:
			mem.Write64(w.Addr, w.Value)
		default:
			return nil, fmt.Errorf("word at %#x has unsupported width %d", w.Addr, w.Width)
		}
	}
	return mem, nil
}

func run() error {
	tlbSize := flag.Int("tlb", 0, "translate through a TLB with this many slots (0 = no TLB)")
	verbose := flag.Bool("v", false, "enable debug logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: vmmu-walk [flags] <scenario.yaml>\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	s, err := loadScenario(flag.Arg(0))
	if err != nil {
		return err
	}

	mem, err := s.buildMemory()
	if err != nil {
		return err
	}

	state := vmmu.NewPagingState(s.CPU.Rflags, s.CPU.CR0, s.CPU.CR3, s.CPU.CR4,
		s.CPU.EFER, s.CPU.CPL, s.CPU.PDPTE)

	slog.Info("loaded scenario", "name", s.Name, "mode", state.Mode().String(),
		"accesses", len(s.Accesses))

	var tlb *vmmu.TLB
	if *tlbSize > 0 {
		tlb = vmmu.NewTLB(*tlbSize)
	}

	for i, a := range s.Accesses {
		typ, err := parseAccessType(a.Type)
		if err != nil {
			return err
		}

		var op vmmu.LinearAccess
		if a.Implicit {
			op = vmmu.NewImplicitSupervisorAccess(a.Addr, typ)
		} else {
			op = vmmu.NewLinearAccess(a.Addr, typ)
		}

		var (
			tlbe    vmmu.TLBEntry
			walkErr error
		)
		if tlb != nil {
			tlbe, walkErr = tlb.Translate(op, &state, mem)
		} else {
			tlbe, walkErr = vmmu.Translate(op, &state, mem)
		}

		if walkErr != nil {
			fault := walkErr.(*vmmu.PageFault)
			fmt.Printf("[%d] %s %#x -> #PF cr2=%#x ec=%#x\n", i, typ, a.Addr, fault.Addr, fault.Code)
			continue
		}

		pa, _ := tlbe.Translate(a.Addr)
		attr := tlbe.Attr()
		fmt.Printf("[%d] %s %#x -> %#x (page %#x+%#x W=%v U=%v XD=%v D=%v)\n",
			i, typ, a.Addr, pa, tlbe.PhysAddr(), tlbe.Size(),
			attr.Writable(), attr.User(), attr.XD(), attr.Dirty())
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("vmmu-walk failed", "error", err)
		os.Exit(1)
	}
}
