// Command lbrd runs the branch-trace daemon: it identifies the CPU,
// builds the trace engine, installs the context-switch hook, and serves
// the control API on a Unix socket.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/branchtrace/lbrd/internal/config"
	"github.com/branchtrace/lbrd/internal/daemon"
	"github.com/branchtrace/lbrd/internal/engine"
	"github.com/branchtrace/lbrd/internal/hw"
	"github.com/branchtrace/lbrd/internal/log"
	"github.com/branchtrace/lbrd/internal/registry"
	"github.com/branchtrace/lbrd/internal/sched"
	"github.com/branchtrace/lbrd/internal/store"
)

var (
	configPath string
	verbose    bool
	jsonOut    bool
)

var rootCmd = &cobra.Command{
	Use:   "lbrd",
	Short: "Branch-trace daemon",
	Long: `lbrd maintains per-process last-branch-record trace state: it saves
and restores branch registers across context switches and serves
enable/disable/filter/dump commands on a control socket.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to lbrd.yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug output")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "log in JSON format")
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := log.Init(log.Options{
		Verbose:       verbose,
		JSONFormat:    jsonOut,
		DebugDir:      cfg.DebugDir,
		RetentionDays: cfg.RetentionDays,
	}); err != nil {
		cmd.PrintErrf("Warning: failed to initialize debug logging: %v\n", err)
	}
	defer log.Close()

	// Capacity must be established before anything touches the registry.
	capacity, err := establishCapacity(cfg)
	if err != nil {
		return fmt.Errorf("identifying cpu: %w", err)
	}
	slog.Info("cpu identified", "capacity", capacity, "cpus", cfg.CPUs)

	bank := hw.NewSimBank(cfg.CPUs, capacity)
	for cpu := 0; cpu < bank.CPUs(); cpu++ {
		bank.Flush(cpu, true)
	}
	eng := engine.New(registry.New(capacity), bank)
	if cfg.DefaultFilter != "" {
		filter, err := hw.ParseFilter(cfg.DefaultFilter)
		if err != nil {
			return fmt.Errorf("parsing default_filter: %w", err)
		}
		eng.SetDefaultFilter(filter)
	}

	var snapshots *store.Store
	if cfg.Store != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Store), 0755); err != nil {
			return fmt.Errorf("creating store dir: %w", err)
		}
		snapshots, err = store.Open(cfg.Store)
		if err != nil {
			return err
		}
		defer snapshots.Close()
	}

	var hook sched.Hook
	if err := hook.Register(eng); err != nil {
		return err
	}
	defer func() { _ = hook.Unregister() }()

	var sim *sched.Simulator
	if cfg.Sim.Enabled {
		sim = sched.NewSimulator(&hook, bank, cfg.Sim.Pids,
			time.Duration(cfg.Sim.IntervalMS)*time.Millisecond)
		if err := sim.Start(); err != nil {
			return err
		}
		defer func() { _ = sim.Stop() }()
		slog.Info("scheduler simulator running", "pids", cfg.Sim.Pids)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Socket), 0755); err != nil {
		return fmt.Errorf("creating socket dir: %w", err)
	}
	srv := daemon.NewServer(cfg.Socket, eng, snapshots, bank.CPUs())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	srv.SetOnShutdown(func() { stop <- syscall.SIGTERM })

	if err := srv.Start(); err != nil {
		return fmt.Errorf("starting control server: %w", err)
	}
	slog.Info("lbrd listening", "socket", cfg.Socket)

	<-stop
	slog.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		slog.Warn("control server stop", "error", err)
	}
	if sim != nil {
		if err := sim.Stop(); err != nil {
			slog.Warn("simulator stop", "error", err)
		}
	}
	eng.Shutdown()
	return nil
}

// loadConfig resolves --config, then ~/.lbrd/lbrd.yaml, then defaults.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".lbrd", "lbrd.yaml")
		}
	}
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		if cfg != nil {
			return cfg, nil
		}
		if configPath != "" {
			return nil, fmt.Errorf("config %s not found", configPath)
		}
	}
	return config.Default(), nil
}

// establishCapacity resolves the branch-slot capacity: explicit override,
// explicit family/model, host probe, in that order.
func establishCapacity(cfg *config.Config) (int, error) {
	if cfg.Capacity > 0 {
		return cfg.Capacity, nil
	}
	if cfg.CPU != nil {
		return hw.Identify(cfg.CPU.Family, cfg.CPU.Model)
	}
	return hw.DetectCapacity()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
