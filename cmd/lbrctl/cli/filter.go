package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/branchtrace/lbrd/internal/hw"
)

var filterCmd = &cobra.Command{
	Use:   "filter <pid> <selection>",
	Short: "Update a traced process's selection filter",
	Long: `Update the selection filter of a traced process and apply it to the
live registers immediately. The selection accepts a numeric value or
comma-joined branch-class names, e.g. "jcc,near_ret".`,
	Args: cobra.ExactArgs(2),
	RunE: runFilter,
}

func init() {
	rootCmd.AddCommand(filterCmd)
}

func runFilter(cmd *cobra.Command, args []string) error {
	pid, err := parsePid(args[0])
	if err != nil {
		return err
	}
	filter, err := hw.ParseFilter(args[1])
	if err != nil {
		return err
	}

	ctx, cancel := cmdContext()
	defer cancel()
	if err := client().SetFilter(ctx, pid, filter); err != nil {
		return err
	}
	fmt.Printf("pid %d filter set to %#x (%s)\n", pid, filter, hw.FilterNames(filter))
	return nil
}
