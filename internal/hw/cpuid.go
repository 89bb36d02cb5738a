package hw

import (
	"errors"
	"fmt"
)

// ErrUnsupportedCPU is returned when the CPU family/model has no known
// branch-slot capacity. Fatal at startup: the engine cannot size records
// without it.
var ErrUnsupportedCPU = errors.New("cpu does not support branch tracing")

// intelFamily is the only CPU family with a known slot layout.
const intelFamily = 6

// lbrCapacities maps DisplayModel (family 6) to the number of branch
// slots the part implements.
var lbrCapacities = map[uint32]int{
	// Core 2
	0x0f: 4, 0x17: 4, 0x1d: 4,
	// Atom
	0x1c: 8, 0x26: 8, 0x27: 8, 0x35: 8, 0x36: 8,
	// Nehalem / Westmere
	0x1a: 16, 0x1e: 16, 0x1f: 16, 0x2e: 16,
	0x25: 16, 0x2c: 16, 0x2f: 16,
	// Sandy Bridge / Ivy Bridge
	0x2a: 16, 0x2d: 16, 0x3a: 16, 0x3e: 16,
	// Haswell / Broadwell
	0x3c: 16, 0x3f: 16, 0x45: 16, 0x46: 16,
	0x3d: 16, 0x47: 16, 0x4f: 16, 0x56: 16,
	// Skylake and later client/server cores
	0x4e: 32, 0x5e: 32, 0x55: 32, 0x66: 32,
	0x8e: 32, 0x9e: 32, 0xa5: 32, 0xa6: 32,
}

// Identify maps a CPU family/model pair to its branch-slot capacity.
// Unknown family or model returns ErrUnsupportedCPU.
func Identify(family, model uint32) (int, error) {
	if family != intelFamily {
		return 0, fmt.Errorf("family %d: %w", family, ErrUnsupportedCPU)
	}
	capacity, ok := lbrCapacities[model]
	if !ok {
		return 0, fmt.Errorf("family %d model %#x: %w", family, model, ErrUnsupportedCPU)
	}
	return capacity, nil
}
