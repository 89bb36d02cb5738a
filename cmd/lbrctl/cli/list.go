package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List traced processes",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx, cancel := cmdContext()
	defer cancel()
	infos, err := client().List(ctx)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("no processes traced")
		return nil
	}
	for _, info := range infos {
		fmt.Println(info.Pid)
	}
	return nil
}
