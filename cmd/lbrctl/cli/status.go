package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx, cancel := cmdContext()
	defer cancel()
	health, err := client().Health(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("daemon pid: %d\n", health.PID)
	fmt.Printf("capacity:   %d branch slots\n", health.Capacity)
	fmt.Printf("cpus:       %d\n", health.CPUs)
	fmt.Printf("traced:     %d\n", health.Traced)
	fmt.Printf("started:    %s\n", health.StartedAt)
	return nil
}
