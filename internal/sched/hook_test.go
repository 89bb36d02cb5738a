package sched

import (
	"errors"
	"testing"
)

type countingSwitcher struct {
	outs, ins int
}

func (c *countingSwitcher) SwitchOut(cpu int, pid uint32) { c.outs++ }
func (c *countingSwitcher) SwitchIn(cpu int, pid uint32)  { c.ins++ }

func TestHookRegisterOnce(t *testing.T) {
	var h Hook
	var sw countingSwitcher

	if err := h.Register(&sw); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := h.Register(&sw); !errors.Is(err, ErrRegistered) {
		t.Errorf("second Register = %v, want ErrRegistered", err)
	}
	if err := h.Unregister(); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	if err := h.Unregister(); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("second Unregister = %v, want ErrNotRegistered", err)
	}
}

func TestHookDropsWhenUnregistered(t *testing.T) {
	var h Hook
	var sw countingSwitcher

	h.OnSwitchOut(0, 1)
	h.OnSwitchIn(0, 1)
	if sw.outs != 0 || sw.ins != 0 {
		t.Fatal("notification delivered without registration")
	}

	if err := h.Register(&sw); err != nil {
		t.Fatal(err)
	}
	h.OnSwitchOut(0, 1)
	h.OnSwitchIn(0, 1)
	if sw.outs != 1 || sw.ins != 1 {
		t.Errorf("delivered outs=%d ins=%d, want 1/1", sw.outs, sw.ins)
	}
}
