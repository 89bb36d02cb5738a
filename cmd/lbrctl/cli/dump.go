package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/branchtrace/lbrd/internal/hw"
)

var dumpJSON bool

var dumpCmd = &cobra.Command{
	Use:   "dump <pid>",
	Short: "Dump a traced process's branch history",
	Long: `Dump the recorded branch history of a traced process. Output is a
from/to table on a terminal; piped output and --json emit the snapshot
as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().BoolVar(&dumpJSON, "json", false, "output as JSON")
}

func runDump(cmd *cobra.Command, args []string) error {
	pid, err := parsePid(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := cmdContext()
	defer cancel()
	snap, err := client().Dump(ctx, pid)
	if err != nil {
		return err
	}

	if dumpJSON || !isatty.IsTerminal(os.Stdout.Fd()) {
		data, _ := json.MarshalIndent(snap, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("pid:    %d\n", snap.Pid)
	fmt.Printf("filter: %#x (%s)\n", snap.Filter, hw.FilterNames(snap.Filter))
	fmt.Printf("tos:    %d\n", snap.Tos)
	fmt.Printf("cpu:    %d\n", snap.CPU)
	for i, entry := range snap.Entries {
		marker := "  "
		if uint64(i) == snap.Tos {
			marker = "->"
		}
		fmt.Printf("%s [%2d] %#016x -> %#016x\n", marker, i, entry.From, entry.To)
	}
	return nil
}
