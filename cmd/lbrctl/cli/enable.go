package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/branchtrace/lbrd/internal/hw"
)

var enableFilter string

var enableCmd = &cobra.Command{
	Use:   "enable <pid>",
	Short: "Start tracing a process",
	Long: `Start recording branch history for a process. The selection filter
accepts a numeric value (0x1c4) or comma-joined branch-class names
(jcc,near_ret); without --filter the daemon's default applies.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnable,
}

func init() {
	rootCmd.AddCommand(enableCmd)
	enableCmd.Flags().StringVarP(&enableFilter, "filter", "f", "", "selection filter")
}

func runEnable(cmd *cobra.Command, args []string) error {
	pid, err := parsePid(args[0])
	if err != nil {
		return err
	}
	var filter uint64
	if enableFilter != "" {
		if filter, err = hw.ParseFilter(enableFilter); err != nil {
			return err
		}
	}

	ctx, cancel := cmdContext()
	defer cancel()
	if err := client().Enable(ctx, pid, filter); err != nil {
		return err
	}
	fmt.Printf("tracing pid %d\n", pid)
	return nil
}

// parsePid parses a positive decimal pid argument.
func parsePid(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid pid %q", s)
	}
	return uint32(n), nil
}
