package hw

import (
	"fmt"
	"strconv"
	"strings"
)

// Selection-register bit assignments. A set bit suppresses recording of
// the named branch class; zero records every branch.
const (
	SelCPLEq0      uint64 = 1 << 0 // branches ending in ring 0
	SelCPLNeq0     uint64 = 1 << 1 // branches ending above ring 0
	SelJCC         uint64 = 1 << 2 // conditional branches
	SelNearRelCall uint64 = 1 << 3
	SelNearIndCall uint64 = 1 << 4
	SelNearRet     uint64 = 1 << 5
	SelNearIndJmp  uint64 = 1 << 6
	SelNearRelJmp  uint64 = 1 << 7
	SelFarBranch   uint64 = 1 << 8
)

// DefaultFilter suppresses ring-0 branches only, the value applied when an
// enable request carries no filter.
const DefaultFilter = SelCPLEq0

var filterBits = map[string]uint64{
	"cpl_eq_0":      SelCPLEq0,
	"cpl_neq_0":     SelCPLNeq0,
	"jcc":           SelJCC,
	"near_rel_call": SelNearRelCall,
	"near_ind_call": SelNearIndCall,
	"near_ret":      SelNearRet,
	"near_ind_jmp":  SelNearIndJmp,
	"near_rel_jmp":  SelNearRelJmp,
	"far_branch":    SelFarBranch,
}

// ParseFilter converts a selection-filter argument to register bits. It
// accepts a numeric literal ("0x1c4", "452") or a comma-joined list of
// branch-class names ("jcc,near_ret").
func ParseFilter(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty selection filter")
	}
	if v, err := strconv.ParseUint(s, 0, 64); err == nil {
		return v, nil
	}
	var bits uint64
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		bit, ok := filterBits[name]
		if !ok {
			return 0, fmt.Errorf("unknown branch class %q", name)
		}
		bits |= bit
	}
	return bits, nil
}

// FilterNames renders the set bits of a selection filter as branch-class
// names, for display. Unnamed bits render as a hex remainder.
func FilterNames(v uint64) string {
	if v == 0 {
		return "none"
	}
	names := []string{
		"cpl_eq_0", "cpl_neq_0", "jcc", "near_rel_call", "near_ind_call",
		"near_ret", "near_ind_jmp", "near_rel_jmp", "far_branch",
	}
	var out []string
	rest := v
	for i, name := range names {
		bit := uint64(1) << i
		if v&bit != 0 {
			out = append(out, name)
			rest &^= bit
		}
	}
	if rest != 0 {
		out = append(out, fmt.Sprintf("%#x", rest))
	}
	return strings.Join(out, ",")
}
