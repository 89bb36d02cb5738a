// Package hw models the per-CPU last-branch-record register file: the
// selection register, the top-of-stack register, and a fixed-capacity
// stack of (from, to) branch slots.
//
// All register access is per-CPU. Callers must pin execution to a single
// logical CPU for the duration of any Bank call (see Pin); the interface
// does not enforce this.
package hw

// Entry is one branch slot: the source and destination address of a
// recently taken branch.
type Entry struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

// Regs is the register-shaped trace state for one process. Entries has
// fixed length equal to the hardware capacity and is logically a ring
// whose head is Tos.
type Regs struct {
	Select  uint64
	Tos     uint64
	Entries []Entry
}

// NewRegs returns zeroed registers sized for the given slot capacity.
func NewRegs(capacity int) Regs {
	return Regs{Entries: make([]Entry, capacity)}
}

// CopyInto copies r into dst without reallocating dst's entry slice.
// Both sides must be sized for the same capacity.
func (r *Regs) CopyInto(dst *Regs) {
	dst.Select = r.Select
	dst.Tos = r.Tos
	copy(dst.Entries, r.Entries)
}

// Equal reports whether two register images are field-for-field identical.
func (r *Regs) Equal(o *Regs) bool {
	if r.Select != o.Select || r.Tos != o.Tos || len(r.Entries) != len(o.Entries) {
		return false
	}
	for i := range r.Entries {
		if r.Entries[i] != o.Entries[i] {
			return false
		}
	}
	return true
}
