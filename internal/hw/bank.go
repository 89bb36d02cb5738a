package hw

import "sync"

// Bank is per-CPU access to the branch-trace registers.
//
// Flush zeroes the selection register, the top-of-stack register, and every
// branch slot on the given CPU, then sets the trace-enable control bit.
// Pull reads the CPU's live registers into r; Push writes r into the CPU's
// live registers. Neither touches the enable bit.
type Bank interface {
	// CPUs returns the number of logical CPUs the bank addresses.
	CPUs() int

	Flush(cpu int, enable bool)
	Pull(cpu int, r *Regs)
	Push(cpu int, r *Regs)
}

// simCPU is one simulated CPU's register file.
type simCPU struct {
	mu      sync.Mutex
	regs    Regs
	enabled bool
}

// SimBank is an in-memory register file for a fixed set of simulated CPUs.
// It stands in for the MSRs: Branch records a taken branch into a CPU's
// slots the way the hardware would, so schedulers and tests can generate
// trace contents without real branch hardware.
type SimBank struct {
	capacity int
	cpus     []simCPU
}

// NewSimBank creates a bank of ncpu simulated CPUs, each with the given
// branch-slot capacity.
func NewSimBank(ncpu, capacity int) *SimBank {
	b := &SimBank{capacity: capacity, cpus: make([]simCPU, ncpu)}
	for i := range b.cpus {
		b.cpus[i].regs = NewRegs(capacity)
	}
	return b
}

// Capacity returns the branch-slot capacity of every CPU in the bank.
func (b *SimBank) Capacity() int { return b.capacity }

// CPUs returns the number of simulated CPUs.
func (b *SimBank) CPUs() int { return len(b.cpus) }

func (b *SimBank) Flush(cpu int, enable bool) {
	c := &b.cpus[cpu]
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regs.Select = 0
	c.regs.Tos = 0
	for i := range c.regs.Entries {
		c.regs.Entries[i] = Entry{}
	}
	c.enabled = enable
}

func (b *SimBank) Pull(cpu int, r *Regs) {
	c := &b.cpus[cpu]
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regs.CopyInto(r)
}

func (b *SimBank) Push(cpu int, r *Regs) {
	c := &b.cpus[cpu]
	c.mu.Lock()
	defer c.mu.Unlock()
	r.CopyInto(&c.regs)
}

// Branch records a taken branch on the given CPU: the top-of-stack index
// advances one slot (wrapping at capacity) and the slot receives the
// from/to pair. No-op while the CPU's trace-enable bit is clear.
func (b *SimBank) Branch(cpu int, from, to uint64) {
	c := &b.cpus[cpu]
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	c.regs.Tos = (c.regs.Tos + 1) % uint64(b.capacity)
	c.regs.Entries[c.regs.Tos] = Entry{From: from, To: to}
}

// Enabled reports the trace-enable bit of the given CPU.
func (b *SimBank) Enabled(cpu int) bool {
	c := &b.cpus[cpu]
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Snapshot returns a copy of the given CPU's live registers. Test helper;
// the engine goes through Pull.
func (b *SimBank) Snapshot(cpu int) Regs {
	r := NewRegs(b.capacity)
	b.Pull(cpu, &r)
	return r
}
