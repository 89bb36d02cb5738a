package sched

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/branchtrace/lbrd/internal/hw"
)

// Simulator drives the switch hook the way a scheduler would: one
// goroutine per simulated CPU round-robins a pid set, firing
// switch-out/switch-in around each timeslice and synthesizing branch
// activity in between. It exists for development and tests; nothing on a
// production path depends on it.
type Simulator struct {
	hook     *Hook
	bank     *hw.SimBank
	pids     []uint32
	interval time.Duration

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// NewSimulator creates a simulator over the given hook and bank. Each
// timeslice lasts interval; pids is the workload every CPU cycles
// through.
func NewSimulator(hook *Hook, bank *hw.SimBank, pids []uint32, interval time.Duration) *Simulator {
	return &Simulator{hook: hook, bank: bank, pids: pids, interval: interval}
}

// Start launches one scheduling loop per simulated CPU.
func (s *Simulator) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("simulator already started")
	}
	if len(s.pids) == 0 {
		return fmt.Errorf("simulator needs at least one pid")
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.group, ctx = errgroup.WithContext(ctx)
	for cpu := 0; cpu < s.bank.CPUs(); cpu++ {
		s.group.Go(s.runCPU(ctx, cpu))
	}
	s.started = true
	return nil
}

// Stop halts every scheduling loop and waits for them to drain.
func (s *Simulator) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.stopped {
		return nil
	}
	s.stopped = true
	s.cancel()
	return s.group.Wait()
}

// runCPU returns the scheduling loop for one CPU. CPUs start at offset
// positions in the pid set so concurrent slices run different pids.
func (s *Simulator) runCPU(ctx context.Context, cpu int) func() error {
	return func() error {
		rng := rand.New(rand.NewSource(int64(cpu) + 1))
		idx := cpu % len(s.pids)
		current := s.pids[idx]
		s.hook.OnSwitchIn(cpu, current)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.hook.OnSwitchOut(cpu, current)
				return nil
			case <-ticker.C:
				// Branch activity attributed to the running pid.
				for i := 0; i < 3; i++ {
					from := uint64(current)<<32 | uint64(rng.Uint32())
					s.bank.Branch(cpu, from, from+4)
				}
				s.hook.OnSwitchOut(cpu, current)
				idx = (idx + 1) % len(s.pids)
				current = s.pids[idx]
				s.hook.OnSwitchIn(cpu, current)
			}
		}
	}
}
