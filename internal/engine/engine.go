// Package engine implements the branch-trace engine: the save/restore
// protocol invoked on every context switch and the command dispatcher
// that mutates the trace registry.
//
// One mutex guards the registry structure, record contents, and register
// pull/push together. Nothing blocks, allocates, or logs while it is
// held; CPU pinning brackets every direct register access so "the
// calling CPU" stays meaningful for the duration.
package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/branchtrace/lbrd/internal/hw"
	"github.com/branchtrace/lbrd/internal/registry"
)

// Engine owns the trace registry and the hardware bank.
type Engine struct {
	mu   sync.Mutex
	reg  *registry.Registry
	bank hw.Bank

	defaultFilter uint64
}

// New creates an engine over an established registry and register bank.
func New(reg *registry.Registry, bank hw.Bank) *Engine {
	return &Engine{reg: reg, bank: bank, defaultFilter: hw.DefaultFilter}
}

// SetDefaultFilter overrides the selection filter applied when an enable
// command carries none. Call before the engine is in service.
func (e *Engine) SetDefaultFilter(filter uint64) {
	if filter != 0 {
		e.defaultFilter = filter
	}
}

// Capacity returns the branch-slot capacity records are sized for.
func (e *Engine) Capacity() int { return e.reg.Capacity() }

// clampCPU maps a host CPU id onto the bank's CPU range. The host may
// have more CPUs than the bank models.
func (e *Engine) clampCPU(cpu int) int {
	return cpu % e.bank.CPUs()
}

// SwitchOut saves the outgoing process's live registers into its record.
// Invoked by the context-switch notifier before a switch takes effect;
// the caller is already executing on the named CPU. Untracked pids fall
// through on a single lookup, silently: that is the common case, not a
// failure.
func (e *Engine) SwitchOut(cpu int, pid uint32) {
	cpu = e.clampCPU(cpu)
	e.mu.Lock()
	rec, ok := e.reg.Find(pid)
	if ok {
		e.bank.Pull(cpu, &rec.Regs)
	}
	e.mu.Unlock()
	if ok {
		slog.Debug("saved branch state", "pid", pid, "cpu", cpu)
	}
}

// SwitchIn restores the incoming process's record into the live
// registers. Invoked by the context-switch notifier after a switch takes
// effect. Untracked pids are a silent no-op.
func (e *Engine) SwitchIn(cpu int, pid uint32) {
	cpu = e.clampCPU(cpu)
	e.mu.Lock()
	rec, ok := e.reg.Find(pid)
	if ok {
		e.bank.Push(cpu, &rec.Regs)
	}
	e.mu.Unlock()
	if ok {
		slog.Debug("restored branch state", "pid", pid, "cpu", cpu)
	}
}

// Enable starts tracing pid. A zero filter takes the default. The record
// is created, inserted, and pushed live on the calling CPU in one
// critical section; on any failure the registry is left unchanged.
// Enabling the first record re-arms the calling CPU's trace-enable bit.
func (e *Engine) Enable(pid uint32, filter uint64) error {
	if filter == 0 {
		filter = e.defaultFilter
	}
	cpu, unpin := hw.Pin()
	defer unpin()
	cpu = e.clampCPU(cpu)

	e.mu.Lock()
	defer e.mu.Unlock()
	rearm := e.reg.Len() == 0
	rec := e.reg.Create(pid, filter)
	if err := e.reg.Insert(rec); err != nil {
		return err
	}
	if rearm {
		e.bank.Flush(cpu, true)
	}
	e.bank.Push(cpu, &rec.Regs)
	return nil
}

// Disable stops tracing pid, cascading over its descendants. Draining the
// registry to empty flushes the calling CPU and clears its trace-enable
// bit.
func (e *Engine) Disable(pid uint32) error {
	cpu, unpin := hw.Pin()
	defer unpin()
	cpu = e.clampCPU(cpu)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.reg.Remove(pid); err != nil {
		return err
	}
	if e.reg.Len() == 0 {
		e.bank.Flush(cpu, false)
	}
	return nil
}

// Select updates pid's selection filter and pushes the record live on the
// calling CPU. An untracked pid returns registry.ErrNotFound with the
// hardware untouched.
func (e *Engine) Select(pid uint32, filter uint64) error {
	cpu, unpin := hw.Pin()
	defer unpin()
	cpu = e.clampCPU(cpu)

	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.reg.Find(pid)
	if !ok {
		return registry.ErrNotFound
	}
	rec.Filter = filter
	rec.Regs.Select = filter
	e.bank.Push(cpu, &rec.Regs)
	return nil
}

// Snapshot is a decoded dump of one record.
type Snapshot struct {
	Pid     uint32     `json:"pid"`
	Filter  uint64     `json:"filter"`
	Tos     uint64     `json:"tos"`
	Entries []hw.Entry `json:"entries"`
	CPU     int        `json:"cpu"`
	Time    time.Time  `json:"time"`
}

// Dump pulls pid's live registers on the calling CPU into its record and
// returns a copy for inspection. A dump may race a concurrent switch;
// the lock guarantees whole-record consistency, nothing more.
func (e *Engine) Dump(pid uint32) (*Snapshot, error) {
	cpu, unpin := hw.Pin()
	defer unpin()
	cpu = e.clampCPU(cpu)

	e.mu.Lock()
	rec, ok := e.reg.Find(pid)
	if !ok {
		e.mu.Unlock()
		slog.Warn("dump for untraced process", "pid", pid)
		return nil, registry.ErrNotFound
	}
	e.bank.Pull(cpu, &rec.Regs)
	snap := &Snapshot{
		Pid:     rec.Pid,
		Filter:  rec.Filter,
		Tos:     rec.Regs.Tos,
		Entries: make([]hw.Entry, len(rec.Regs.Entries)),
		CPU:     cpu,
		Time:    time.Now(),
	}
	copy(snap.Entries, rec.Regs.Entries)
	e.mu.Unlock()
	return snap, nil
}

// Pids returns the currently traced pids.
func (e *Engine) Pids() []uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reg.Pids()
}

// Shutdown drains the registry and leaves every CPU of the bank flushed
// with tracing disabled.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	drained := e.reg.Drain()
	for cpu := 0; cpu < e.bank.CPUs(); cpu++ {
		e.bank.Flush(cpu, false)
	}
	e.mu.Unlock()
	if len(drained) > 0 {
		slog.Info("drained trace registry", "records", len(drained))
	}
}
