package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var shutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Stop the daemon",
	Args:  cobra.NoArgs,
	RunE:  runShutdown,
}

func init() {
	rootCmd.AddCommand(shutdownCmd)
}

func runShutdown(cmd *cobra.Command, _ []string) error {
	ctx, cancel := cmdContext()
	defer cancel()
	if err := client().Shutdown(ctx); err != nil {
		return err
	}
	fmt.Println("daemon shutting down")
	return nil
}
