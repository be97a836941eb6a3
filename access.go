package vmmu

// AccessType classifies a linear memory access.
type AccessType uint8

const (
	AccessRead AccessType = iota
	AccessWrite
	AccessExecute
)

func (t AccessType) String() string {
	switch t {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessExecute:
		return "execute"
	}
	return "invalid"
}

// LinearAccess describes one linear memory access that triggers a
// translation.
type LinearAccess struct {
	addr     uint64
	typ      AccessType
	implicit bool
}

// NewLinearAccess describes an explicit access to a linear address.
func NewLinearAccess(addr uint64, typ AccessType) LinearAccess {
	return LinearAccess{addr: addr, typ: typ}
}

// NewImplicitSupervisorAccess describes an access the CPU performs on its
// own behalf, such as reading the GDT. These are treated as supervisor
// accesses regardless of CPL. Panics for instruction fetches: the CPU never
// fetches code implicitly.
func NewImplicitSupervisorAccess(addr uint64, typ AccessType) LinearAccess {
	if typ == AccessExecute {
		panic("vmmu: implicit supervisor instruction fetch")
	}
	return LinearAccess{addr: addr, typ: typ, implicit: true}
}

// Addr returns the linear address being accessed.
func (a LinearAccess) Addr() uint64 { return a.addr }

// Type returns the access classification.
func (a LinearAccess) Type() AccessType { return a.typ }

func (a LinearAccess) IsWrite() bool    { return a.typ == AccessWrite }
func (a LinearAccess) IsDataRead() bool { return a.typ == AccessRead }
func (a LinearAccess) IsFetch() bool    { return a.typ == AccessExecute }

// IsImplicitSupervisor reports whether this access is always treated as
// supervisor, independent of CPL.
func (a LinearAccess) IsImplicitSupervisor() bool { return a.implicit }
