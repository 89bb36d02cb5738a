// Package sched connects the trace engine to context-switch
// notifications. The Hook is the registration point the surrounding
// environment drives; the Simulator is a stand-in scheduler that drives
// it when no real one exists.
package sched

import (
	"errors"
	"sync"
)

// Switcher receives context-switch callbacks: SwitchOut for the outgoing
// pid before a switch takes effect, SwitchIn for the incoming pid after.
// Both run on the named CPU and must not block.
type Switcher interface {
	SwitchOut(cpu int, pid uint32)
	SwitchIn(cpu int, pid uint32)
}

var (
	// ErrRegistered is returned by Register when a target is already
	// installed.
	ErrRegistered = errors.New("switch hook already registered")

	// ErrNotRegistered is returned by Unregister without a prior Register.
	ErrNotRegistered = errors.New("switch hook not registered")
)

// Hook fans context-switch notifications into a registered Switcher.
// Register and Unregister bracket the engine's visible lifetime exactly
// once; notifications outside that window are dropped.
type Hook struct {
	mu     sync.RWMutex
	target Switcher
}

// Register installs the switch target.
func (h *Hook) Register(target Switcher) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.target != nil {
		return ErrRegistered
	}
	h.target = target
	return nil
}

// Unregister removes the switch target.
func (h *Hook) Unregister() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.target == nil {
		return ErrNotRegistered
	}
	h.target = nil
	return nil
}

// OnSwitchOut delivers a scheduled-out notification.
func (h *Hook) OnSwitchOut(cpu int, pid uint32) {
	h.mu.RLock()
	target := h.target
	h.mu.RUnlock()
	if target != nil {
		target.SwitchOut(cpu, pid)
	}
}

// OnSwitchIn delivers a scheduled-in notification.
func (h *Hook) OnSwitchIn(cpu int, pid uint32) {
	h.mu.RLock()
	target := h.target
	h.mu.RUnlock()
	if target != nil {
		target.SwitchIn(cpu, pid)
	}
}
