// Package cli implements the lbrctl command-line interface using Cobra.
// Every command is a thin client of the daemon's control socket.
package cli

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/branchtrace/lbrd/internal/config"
	"github.com/branchtrace/lbrd/internal/daemon"
)

var sockPath string

var rootCmd = &cobra.Command{
	Use:   "lbrctl",
	Short: "Control the branch-trace daemon",
	Long: `lbrctl manages per-process branch tracing through a running lbrd:
enable or disable tracing for a process, adjust its selection filter,
and dump its recorded branch history.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&sockPath, "socket", "", "daemon control socket (default ~/.lbrd/lbrd.sock)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// client returns a daemon client for the active socket.
func client() *daemon.Client {
	path := sockPath
	if path == "" {
		if env := os.Getenv("LBRD_SOCKET"); env != "" {
			path = env
		} else {
			path = config.DefaultSocket()
		}
	}
	return daemon.NewClient(path)
}

// cmdContext bounds every request issued by a CLI command.
func cmdContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}
