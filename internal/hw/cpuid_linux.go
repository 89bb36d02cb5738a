//go:build linux

package hw

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DetectCapacity identifies the host CPU from /proc/cpuinfo and looks up
// its branch-slot capacity.
func DetectCapacity() (int, error) {
	family, model, err := readCPUInfo("/proc/cpuinfo")
	if err != nil {
		return 0, err
	}
	return Identify(family, model)
}

// readCPUInfo extracts the family and model of the first processor entry.
func readCPUInfo(path string) (family, model uint32, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("reading cpu identification: %w", err)
	}
	defer f.Close()

	var haveFamily, haveModel bool
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" && haveFamily && haveModel {
			break // end of first processor entry
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "cpu family":
			n, perr := strconv.ParseUint(value, 10, 32)
			if perr != nil {
				return 0, 0, fmt.Errorf("parsing cpu family %q: %w", value, perr)
			}
			family, haveFamily = uint32(n), true
		case "model":
			n, perr := strconv.ParseUint(value, 10, 32)
			if perr != nil {
				return 0, 0, fmt.Errorf("parsing cpu model %q: %w", value, perr)
			}
			model, haveModel = uint32(n), true
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, 0, fmt.Errorf("reading cpu identification: %w", err)
	}
	if !haveFamily || !haveModel {
		return 0, 0, fmt.Errorf("cpu identification incomplete: %w", ErrUnsupportedCPU)
	}
	return family, model, nil
}
