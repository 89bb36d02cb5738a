package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var disableCmd = &cobra.Command{
	Use:   "disable <pid>",
	Short: "Stop tracing a process and its traced children",
	Args:  cobra.ExactArgs(1),
	RunE:  runDisable,
}

func init() {
	rootCmd.AddCommand(disableCmd)
}

func runDisable(cmd *cobra.Command, args []string) error {
	pid, err := parsePid(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := cmdContext()
	defer cancel()
	if err := client().Disable(ctx, pid); err != nil {
		return err
	}
	fmt.Printf("stopped tracing pid %d\n", pid)
	return nil
}
