package vmmu

// Allows reports whether this entry's permissions admit the given access
// under the given CPU state. It does not check that the access's address
// falls inside the entry. It implements Intel SDM Vol. 3 4.6.1
// "Determination of Access Rights". The case split mirrors the manual row
// by row.
func (e *TLBEntry) Allows(op LinearAccess, state *PagingState) bool {
	mode := state.Mode()

	// No permission checking without paging.
	if mode == ModePhys {
		return true
	}

	attr := e.attr

	if op.IsImplicitSupervisor() || state.IsSupervisor() {
		return e.allowsSupervisor(op, state, mode, attr)
	}

	// User-mode accesses.
	switch {
	case op.IsDataRead():
		// Supervisor-mode addresses are never readable from user mode.
		return attr.User()

	case op.IsWrite():
		return attr.User() && attr.Writable()

	default: // instruction fetch
		if !attr.User() {
			return false
		}
		if mode == ModePM32 || !state.EferNXE() {
			return true
		}
		return !attr.XD()
	}
}

func (e *TLBEntry) allowsSupervisor(op LinearAccess, state *PagingState, mode PagingMode, attr TLBAttr) bool {
	switch {
	case op.IsDataRead() && !attr.User():
		// Supervisor data may always be read from supervisor-mode
		// addresses.
		return true

	case op.IsDataRead():
		// Reads from user-mode pages are gated by SMAP, with RFLAGS.AC
		// overriding for explicit accesses.
		if !state.CR4SMAP() {
			return true
		}
		return state.RflagsAC() && !op.IsImplicitSupervisor()

	case op.IsWrite() && !attr.User():
		// CR0.WP decides whether supervisor writes honor the R/W chain.
		if !state.CR0WP() {
			return true
		}
		return attr.Writable()

	case op.IsWrite():
		// Writes to user-mode pages: SMAP/AC as for reads, then the R/W
		// chain if CR0.WP is set.
		if !state.CR0WP() {
			if !state.CR4SMAP() {
				return true
			}
			return state.RflagsAC() && !op.IsImplicitSupervisor()
		}

		if !state.CR4SMAP() {
			return attr.Writable()
		}
		if state.RflagsAC() && !op.IsImplicitSupervisor() {
			return attr.Writable()
		}
		return false

	case !attr.User():
		// Instruction fetches from supervisor-mode addresses respect XD
		// only when the entry format has it and NXE is on.
		if mode == ModePM32 || !state.EferNXE() {
			return true
		}
		return !attr.XD()

	default:
		// Instruction fetches from user-mode addresses.
		if state.CR4SMEP() {
			return false
		}
		if mode == ModePM32 || !state.EferNXE() {
			return true
		}
		return !attr.XD()
	}
}
