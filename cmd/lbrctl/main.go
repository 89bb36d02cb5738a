package main

import (
	"os"

	"github.com/branchtrace/lbrd/cmd/lbrctl/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
