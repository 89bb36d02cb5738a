// Package config handles lbrd.yaml daemon configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CPUIdent pins CPU identification to an explicit family/model pair
// instead of probing the host.
type CPUIdent struct {
	Family uint32 `yaml:"family"`
	Model  uint32 `yaml:"model"`
}

// SimConfig configures the simulated scheduler.
type SimConfig struct {
	// Enabled starts the simulator at daemon startup.
	Enabled bool `yaml:"enabled,omitempty"`
	// Pids is the workload the simulator round-robins.
	Pids []uint32 `yaml:"pids,omitempty"`
	// IntervalMS is the timeslice length in milliseconds.
	IntervalMS int `yaml:"interval_ms,omitempty"`
}

// Config is the lbrd.yaml daemon manifest.
type Config struct {
	// Socket is the control socket path.
	Socket string `yaml:"socket,omitempty"`
	// Store is the snapshot database path. Empty disables persistence.
	Store string `yaml:"store,omitempty"`
	// DebugDir is the directory for debug log files. Empty disables them.
	DebugDir string `yaml:"debug_dir,omitempty"`
	// RetentionDays is how long to keep debug log files (0 = no cleanup).
	RetentionDays int `yaml:"retention_days,omitempty"`

	// CPUs is the number of CPUs the register bank models.
	CPUs int `yaml:"cpus,omitempty"`
	// Capacity overrides CPU identification with a fixed slot count.
	Capacity int `yaml:"capacity,omitempty"`
	// CPU identifies the part explicitly instead of probing the host.
	CPU *CPUIdent `yaml:"cpu,omitempty"`
	// DefaultFilter overrides the built-in default selection filter.
	// Accepts a number or comma-joined branch-class names.
	DefaultFilter string `yaml:"default_filter,omitempty"`

	Sim SimConfig `yaml:"sim,omitempty"`
}

// DefaultSocket is where the daemon listens when the manifest does not say.
func DefaultSocket() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/lbrd.sock"
	}
	return filepath.Join(dir, ".lbrd", "lbrd.sock")
}

// Load reads the manifest at path. A missing file returns (nil, nil);
// callers fall back to Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// Default returns the configuration used without a manifest.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Socket == "" {
		c.Socket = DefaultSocket()
	}
	if c.CPUs <= 0 {
		c.CPUs = 4
	}
	if c.Sim.IntervalMS <= 0 {
		c.Sim.IntervalMS = 10
	}
}

// Validate rejects manifests the daemon could not honor.
func (c *Config) Validate() error {
	if c.Capacity < 0 {
		return fmt.Errorf("capacity must not be negative, got %d", c.Capacity)
	}
	if c.CPUs < 0 {
		return fmt.Errorf("cpus must not be negative, got %d", c.CPUs)
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("retention_days must not be negative, got %d", c.RetentionDays)
	}
	if c.Sim.Enabled && len(c.Sim.Pids) == 0 {
		return fmt.Errorf("sim.enabled requires sim.pids")
	}
	return nil
}
