// Package registry owns the per-process branch-trace records. It is the
// single shared structure between the context-switch path and the command
// path; the engine's mutex serializes every call, so the registry itself
// takes no locks.
package registry

import (
	"errors"
	"sort"

	"github.com/branchtrace/lbrd/internal/hw"
)

var (
	// ErrAlreadyTraced is returned when inserting a record for a pid that
	// already has one. Shadow records are not permitted.
	ErrAlreadyTraced = errors.New("process already traced")

	// ErrNotFound is returned when no record exists for a pid.
	ErrNotFound = errors.New("process not traced")
)

// Record is the trace state for one process. ParentPid links a record to
// the record of the process that created it; it is a plain key, never a
// pointer, so a stale value is an ordinary lookup miss. Zero means no
// parent.
type Record struct {
	Pid       uint32
	Filter    uint64
	ParentPid uint32
	Regs      hw.Regs
}

// Registry is the arena of live trace records, keyed by pid. Capacity is
// fixed at construction and sizes every record's entry slice.
type Registry struct {
	capacity int
	records  map[uint32]*Record
}

// New creates an empty registry. Capacity must already be established by
// CPU identification; calling with capacity <= 0 is a startup-sequencing
// bug and panics.
func New(capacity int) *Registry {
	if capacity <= 0 {
		panic("registry: capacity not established")
	}
	return &Registry{
		capacity: capacity,
		records:  make(map[uint32]*Record),
	}
}

// Capacity returns the fixed entry count every record carries.
func (g *Registry) Capacity() int { return g.capacity }

// Create allocates a zeroed record for pid, sized for the registry
// capacity. The record is not yet inserted.
func (g *Registry) Create(pid uint32, filter uint64) *Record {
	rec := &Record{Pid: pid, Filter: filter, Regs: hw.NewRegs(g.capacity)}
	rec.Regs.Select = filter
	return rec
}

// Insert adds rec to the registry. A live record with the same pid makes
// the insert fail with ErrAlreadyTraced, leaving the registry unchanged.
func (g *Registry) Insert(rec *Record) error {
	if _, ok := g.records[rec.Pid]; ok {
		return ErrAlreadyTraced
	}
	g.records[rec.Pid] = rec
	return nil
}

// Find returns the record for pid. The miss path is a single map lookup,
// cheap enough for every scheduling decision of untraced processes.
func (g *Registry) Find(pid uint32) (*Record, bool) {
	rec, ok := g.records[pid]
	return rec, ok
}

// Remove deletes the record for pid and, transitively, every record whose
// parent chain reaches it. The whole cascade happens in one call, so no
// caller ever observes a record whose parent is gone.
func (g *Registry) Remove(pid uint32) error {
	if _, ok := g.records[pid]; !ok {
		return ErrNotFound
	}
	removed := map[uint32]bool{pid: true}
	delete(g.records, pid)
	for {
		progressed := false
		for p, rec := range g.records {
			if rec.ParentPid != 0 && removed[rec.ParentPid] {
				removed[p] = true
				delete(g.records, p)
				progressed = true
			}
		}
		if !progressed {
			return nil
		}
	}
}

// InsertChild creates and inserts a record for childPid as a descendant of
// parentPid, inheriting the parent's selection filter. This is the
// primitive a process-creation hook would call; nothing in the engine does.
func (g *Registry) InsertChild(parentPid, childPid uint32) (*Record, error) {
	parent, ok := g.records[parentPid]
	if !ok {
		return nil, ErrNotFound
	}
	rec := g.Create(childPid, parent.Filter)
	rec.ParentPid = parentPid
	if err := g.Insert(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Len returns the number of live records.
func (g *Registry) Len() int { return len(g.records) }

// Pids returns the pids of all live records in ascending order.
func (g *Registry) Pids() []uint32 {
	pids := make([]uint32, 0, len(g.records))
	for pid := range g.records {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	return pids
}

// Drain removes every record and returns them, for teardown.
func (g *Registry) Drain() []*Record {
	recs := make([]*Record, 0, len(g.records))
	for pid, rec := range g.records {
		recs = append(recs, rec)
		delete(g.records, pid)
	}
	return recs
}
